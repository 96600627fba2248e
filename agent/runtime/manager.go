package runtime

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	contractx "github.com/relaylabs/relay/agent/contract"
	statex "github.com/relaylabs/relay/agent/state"
)

// ErrInvalidUserID rejects lookups for non-positive user ids.
var ErrInvalidUserID = errors.New("user id must be positive")

// Deps are the collaborators shared by every agent the manager creates.
// Provider, Store and Sink may be nil.
type Deps struct {
	Source   contractx.DescriptorSource
	Provider contractx.Provider
	Store    statex.Store
	Sink     contractx.MessageSink
}

// Manager keeps one agent per user plus a shared default agent for
// commands that cannot be attributed to a valid user. Agents never share
// history or connectors.
type Manager struct {
	deps Deps

	mu     sync.Mutex
	agents map[int64]*Agent

	defaultAgent *Agent
}

// NewManager builds the tenant manager. The default agent is created
// eagerly so routing always has a destination.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:         deps,
		agents:       make(map[int64]*Agent),
		defaultAgent: NewAgent(0, nil, nil, deps.Provider, nil),
	}
}

// GetOrCreate returns the user's agent, creating and initializing it on
// first use. Concurrent calls for the same user converge on one agent; the
// map insert happens under the lock while the one-shot Init runs outside it.
func (m *Manager) GetOrCreate(ctx context.Context, userID int64, userData map[string]any) (*Agent, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	m.mu.Lock()
	agent, ok := m.agents[userID]
	if !ok {
		agent = NewAgent(userID, userData, m.deps.Source, m.deps.Provider, m.deps.Store)
		m.agents[userID] = agent
	}
	m.mu.Unlock()

	agent.Init(ctx)
	return agent, nil
}

// RouteCommand dispatches one command to the owning agent. Identity
// failures fall through to the shared default agent so the caller always
// gets a response.
func (m *Manager) RouteCommand(ctx context.Context, userID int64, command string, cmdContext map[string]any) contractx.Response {
	agent, err := m.GetOrCreate(ctx, userID, nil)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).
			Msg("routing to default agent")
		agent = m.defaultAgent
	}
	return agent.ProcessCommand(ctx, command, cmdContext)
}

// Remove discards a user's agent and its archived record. A missing agent
// is not an error.
func (m *Manager) Remove(ctx context.Context, userID int64) {
	m.mu.Lock()
	_, ok := m.agents[userID]
	delete(m.agents, userID)
	m.mu.Unlock()

	if ok && m.deps.Store != nil {
		if err := m.deps.Store.Delete(ctx, userID); err != nil {
			log.Debug().Err(err).Int64("user_id", userID).Msg("tenant record delete failed")
		}
	}
}

// ActiveAgents reports how many per-user agents exist.
func (m *Manager) ActiveAgents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.agents)
}

// Relay pushes a response back through the chat channel, when one is
// configured. Best effort.
func (m *Manager) Relay(ctx context.Context, userID int64, content string) {
	if m.deps.Sink == nil || content == "" {
		return
	}
	if err := m.deps.Sink.SendMessage(ctx, userID, content); err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Msg("message relay failed")
	}
}
