package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	contractx "github.com/relaylabs/relay/agent/contract"
	runtimex "github.com/relaylabs/relay/agent/runtime"
	servicesx "github.com/relaylabs/relay/agent/services"
	statex "github.com/relaylabs/relay/agent/state"
	configx "github.com/relaylabs/relay/pkg/config"
	llmx "github.com/relaylabs/relay/pkg/llm"
	_ "github.com/relaylabs/relay/pkg/logger/autoload"
	serverapix "github.com/relaylabs/relay/pkg/serverapi"
	serverx "github.com/relaylabs/relay/server"
)

func main() {
	serverAPICfg := configx.MustNew[serverapix.Config]("SERVER_API")
	apiClient := serverapix.MustNew(*serverAPICfg)

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	provider := llmx.NewClient(*llmCfg)
	if provider == nil {
		log.Warn().Msg("no reasoning credentials configured, agents run in demo mode")
	}

	manager := runtimex.NewManager(runtimex.Deps{
		Source:   descriptorSource(apiClient),
		Provider: providerOrNil(provider),
		Store:    tenantStore(),
		Sink:     servicesx.NewAPISink(apiClient),
	})

	httpCfg := configx.MustNew[serverx.Config]("HTTP")
	srv := serverx.New(*httpCfg, manager)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// descriptorSource prefers the product database when one is configured and
// falls back to the server API otherwise.
func descriptorSource(apiClient *serverapix.Client) contractx.DescriptorSource {
	pgCfg := configx.MustNew[servicesx.PGConfig]("POSTGRES")
	if pgCfg.Enabled() {
		source, err := servicesx.NewPGSource(*pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres source init failed")
		}
		log.Info().Msg("capability source: postgres")
		return source
	}
	log.Info().Msg("capability source: server api")
	return servicesx.NewAPISource(apiClient)
}

// tenantStore returns the conversation archive, or nil when none is
// configured.
func tenantStore() statex.Store {
	redisCfg := configx.MustNew[statex.RedisConfig]("REDIS")
	if !redisCfg.Enabled() {
		return nil
	}
	store, err := statex.NewRedisStore(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("redis store init failed")
	}
	log.Info().Msg("tenant archive: redis")
	return store
}

// providerOrNil keeps a typed nil *Client from masquerading as a bound
// provider behind the interface.
func providerOrNil(c *llmx.Client) contractx.Provider {
	if c == nil {
		return nil
	}
	return c
}
