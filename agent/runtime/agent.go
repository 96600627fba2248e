// Package runtime holds the per-user agent state machine and the tenant
// manager that isolates agents from each other.
package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	connectorx "github.com/relaylabs/relay/agent/connector"
	contractx "github.com/relaylabs/relay/agent/contract"
	extractx "github.com/relaylabs/relay/agent/extract"
	fallbackx "github.com/relaylabs/relay/agent/fallback"
	historyx "github.com/relaylabs/relay/agent/history"
	statex "github.com/relaylabs/relay/agent/state"
	toolx "github.com/relaylabs/relay/agent/tool"
)

// History exchanges handed to the provider per command.
const providerHistoryWindow = 10

// Descriptors substituted when the capability source is unreachable or
// returns nothing. They keep a fresh agent demoable.
var mockDescriptors = []contractx.CapabilityDescriptor{
	{ID: 1, Name: "Mock Payment Service", Category: "payment"},
	{ID: 2, Name: "Mock Communication Service", Category: "communication"},
}

// Agent owns one user's capability bindings and conversation history.
// Methods are safe for concurrent use; commands from the same user may run
// in parallel and each appends exactly one history entry on completion.
type Agent struct {
	userID   int64
	userData map[string]any

	source   contractx.DescriptorSource
	provider contractx.Provider
	store    statex.Store

	initOnce sync.Once

	// Written once during Init, read-only afterwards.
	descriptors []contractx.CapabilityDescriptor
	connectors  []contractx.Connector
	toolset     contractx.ToolSet

	history *historyx.Buffer
}

// NewAgent builds an uninitialized agent. Provider may be nil (unbound) and
// store may be nil (no archival); source may be nil, in which case Init
// binds the mock descriptors directly.
func NewAgent(userID int64, userData map[string]any, source contractx.DescriptorSource, provider contractx.Provider, store statex.Store) *Agent {
	return &Agent{
		userID:   userID,
		userData: userData,
		source:   source,
		provider: provider,
		store:    store,
		history:  historyx.NewBuffer(historyx.DefaultLimit),
	}
}

// UserID returns the tenant this agent belongs to.
func (a *Agent) UserID() int64 {
	return a.userID
}

// Init fetches the user's capability descriptors and builds connectors and
// tools from them. It runs at most once per agent; a failed or empty fetch
// binds the mock descriptors instead of failing the agent.
func (a *Agent) Init(ctx context.Context) {
	a.initOnce.Do(func() {
		descriptors := a.fetchDescriptors(ctx)
		a.descriptors = descriptors
		a.connectors = connectorx.Build(descriptors)
		a.toolset = toolx.Build(descriptors)
		a.restoreHistory(ctx)

		log.Info().
			Int64("user_id", a.userID).
			Int("services", len(descriptors)).
			Bool("provider_bound", a.provider != nil).
			Msg("agent initialized")
	})
}

func (a *Agent) fetchDescriptors(ctx context.Context) []contractx.CapabilityDescriptor {
	if a.source == nil {
		return mockDescriptors
	}
	descriptors, err := a.source.UserCapabilities(ctx, a.userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", a.userID).
			Msg("capability fetch failed, using mock services")
		return mockDescriptors
	}
	if len(descriptors) == 0 {
		return mockDescriptors
	}
	return descriptors
}

// restoreHistory reloads the archived conversation, if any. Missing or
// unreadable records are ignored.
func (a *Agent) restoreHistory(ctx context.Context) {
	if a.store == nil {
		return
	}
	rec, err := a.store.Load(ctx, a.userID)
	if err != nil || rec == nil {
		return
	}
	for _, entry := range rec.History {
		a.history.Append(entry)
	}
}

// ProcessCommand handles one command end to end: bound path through the
// reasoning provider when one is configured, degraded local path otherwise
// or on provider failure. The response is always non-error; a cancelled
// context skips the history append.
func (a *Agent) ProcessCommand(ctx context.Context, command string, cmdContext map[string]any) contractx.Response {
	a.Init(ctx)

	command = strings.TrimSpace(command)
	if command == "" {
		return contractx.Response{
			Response: "I didn't receive a command. Try 'help' to see what I can do.",
			Action:   "empty_command",
			UserID:   a.userID,
		}
	}

	var resp contractx.Response
	if a.provider == nil {
		resp = a.degraded(ctx, command, cmdContext, fallbackx.ErrorTypeNoCredentials)
	} else {
		resp = a.bound(ctx, command, cmdContext)
	}
	resp.UserID = a.userID

	if ctx.Err() != nil {
		return resp
	}
	a.history.Append(contractx.ConversationEntry{
		Timestamp: time.Now().UTC(),
		Command:   command,
		Response:  resp.Response,
		Result:    resp.Result,
	})
	a.archive(ctx)
	return resp
}

func (a *Agent) bound(ctx context.Context, command string, cmdContext map[string]any) contractx.Response {
	completion, err := a.provider.Complete(ctx, contractx.CompletionRequest{
		Command: command,
		Context: cmdContext,
		History: a.history.Recent(providerHistoryWindow),
		Tools:   a.toolset,
	})
	if err != nil {
		errorType := fallbackx.Classify(err)
		log.Warn().Err(err).
			Int64("user_id", a.userID).
			Str("error_type", string(errorType)).
			Msg("provider failed, degrading")
		return a.degraded(ctx, command, cmdContext, errorType)
	}

	resp := contractx.Response{
		Response: completion.Text,
		Action:   "command_executed",
	}
	if n := len(completion.ToolCalls); n > 0 {
		last := completion.ToolCalls[n-1]
		if action := last.Result.Action(); action != "" {
			resp.Action = action
		}
		resp.Service = last.Tool
		resp.Result = contractx.Result{
			"action":     resp.Action,
			"tool_calls": completion.ToolCalls,
		}
	}
	return resp
}

// degraded computes a response without the provider: fixed meta intents
// first, then keyword dispatch to the user's connectors, then the canned
// fallback intents.
func (a *Agent) degraded(ctx context.Context, command string, cmdContext map[string]any, errorType fallbackx.ErrorType) contractx.Response {
	lowered := strings.ToLower(strings.TrimSpace(command))
	req := fallbackx.Request{
		Command:   command,
		Context:   cmdContext,
		ErrorType: errorType,
		UserID:    a.userID,
		Services:  a.serviceListing,
	}

	if isMetaCommand(lowered) {
		return fallbackx.Respond(ctx, req)
	}

	if c := connectorx.Find(a.connectors, command); c != nil {
		params := extractx.Extract(command, cmdContext)
		result := c.Execute(ctx, command, params)
		return contractx.Response{
			Response:     fallbackx.Prefix(errorType) + connectorx.RenderResponse(result, c),
			Action:       result.Action(),
			Service:      c.Descriptor().Name,
			ErrorType:    string(errorType),
			FallbackMode: true,
			Result:       result,
		}
	}

	req.AvailableServices = connectorx.Names(a.connectors)
	return fallbackx.Respond(ctx, req)
}

func isMetaCommand(lowered string) bool {
	switch lowered {
	case "help", "h", "?":
		return true
	}
	return strings.Contains(lowered, "services") || strings.Contains(lowered, "status")
}

func (a *Agent) serviceListing(context.Context) ([]string, error) {
	listing := make([]string, 0, len(a.connectors))
	for _, c := range a.connectors {
		desc := c.Descriptor()
		listing = append(listing, fmt.Sprintf("%s (%s)", desc.Name, desc.Category))
	}
	return listing, nil
}

// AvailableServices lists the display names of the agent's bound services.
func (a *Agent) AvailableServices() []string {
	return connectorx.Names(a.connectors)
}

// HistorySize reports the retained conversation length.
func (a *Agent) HistorySize() int {
	return a.history.Len()
}

// Status returns the introspection view served by the status intent and the
// websocket status message.
func (a *Agent) Status() map[string]any {
	status := map[string]any{
		"user_id":        a.userID,
		"provider_bound": a.provider != nil,
		"services":       connectorx.Describe(a.connectors),
		"history_size":   a.history.Len(),
	}
	if len(a.userData) > 0 {
		status["user_data"] = a.userData
	}
	return status
}

// archive snapshots the conversation to the tenant store. Best effort;
// failures are logged and never surface to the user.
func (a *Agent) archive(ctx context.Context) {
	if a.store == nil {
		return
	}
	rec := &statex.TenantRecord{
		UserID:    a.userID,
		History:   a.history.Entries(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := a.store.Save(ctx, rec); err != nil {
		log.Debug().Err(err).Int64("user_id", a.userID).Msg("tenant archive failed")
	}
}
