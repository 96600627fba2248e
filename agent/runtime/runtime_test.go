package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	contractx "github.com/relaylabs/relay/agent/contract"
	statex "github.com/relaylabs/relay/agent/state"
)

type fakeSource struct {
	descriptors []contractx.CapabilityDescriptor
	err         error
	calls       int
}

func (f *fakeSource) UserCapabilities(ctx context.Context, userID int64) ([]contractx.CapabilityDescriptor, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.descriptors, nil
}

type fakeProvider struct {
	completion contractx.Completion
	err        error

	mu   sync.Mutex
	reqs []contractx.CompletionRequest
}

func (f *fakeProvider) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return contractx.Completion{}, f.err
	}
	return f.completion, nil
}

type fakeStore struct {
	mu      sync.Mutex
	records map[int64]*statex.TenantRecord
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[int64]*statex.TenantRecord{}}
}

func (f *fakeStore) Load(ctx context.Context, userID int64) (*statex.TenantRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return nil, statex.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeStore) Save(ctx context.Context, rec *statex.TenantRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.UserID] = rec
	f.saves++
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, userID)
	return nil
}

func TestInitFallsBackToMockServices(t *testing.T) {
	t.Parallel()

	agent := NewAgent(7, nil, &fakeSource{err: errors.New("api down")}, nil, nil)
	agent.Init(context.Background())

	services := agent.AvailableServices()
	if len(services) != 2 {
		t.Fatalf("services = %v, want 2 mocks", services)
	}
	if services[0] != "Mock Payment Service" {
		t.Fatalf("services[0] = %q", services[0])
	}
}

func TestInitRunsOnce(t *testing.T) {
	t.Parallel()

	src := &fakeSource{descriptors: []contractx.CapabilityDescriptor{
		{ID: 1, Name: "Stripe", Category: "payment"},
	}}
	agent := NewAgent(7, nil, src, nil, nil)

	agent.Init(context.Background())
	agent.Init(context.Background())
	agent.ProcessCommand(context.Background(), "status", nil)

	if src.calls != 1 {
		t.Fatalf("descriptor fetches = %d, want 1", src.calls)
	}
}

func TestUnboundAgentDegradesWithNoCredentials(t *testing.T) {
	t.Parallel()

	agent := NewAgent(7, nil, nil, nil, nil)
	resp := agent.ProcessCommand(context.Background(), "pay $25.50 to merchant@example.com", nil)

	if !resp.FallbackMode {
		t.Fatal("fallback_mode not set")
	}
	if resp.ErrorType != "no_credentials" {
		t.Fatalf("error_type = %q", resp.ErrorType)
	}
	if resp.Action != "payment_processed" {
		t.Fatalf("action = %q, want payment_processed via local dispatch", resp.Action)
	}
	if resp.Service != "Mock Payment Service" {
		t.Fatalf("service = %q", resp.Service)
	}
	if !strings.Contains(resp.Response, "No reasoning service is configured") {
		t.Fatalf("missing degraded prefix: %q", resp.Response)
	}
}

func TestProviderThrottlingDegrades(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{err: fmt.Errorf("call: %w", contractx.ErrThrottled)}
	agent := NewAgent(7, nil, nil, provider, nil)

	resp := agent.ProcessCommand(context.Background(), "help", nil)
	if resp.ErrorType != "throttling" {
		t.Fatalf("error_type = %q, want throttling", resp.ErrorType)
	}
	if resp.Action != "help" {
		t.Fatalf("action = %q, want help", resp.Action)
	}
}

func TestDegradedNoServiceFound(t *testing.T) {
	t.Parallel()

	agent := NewAgent(7, nil, nil, nil, nil)
	resp := agent.ProcessCommand(context.Background(), "book me a flight", nil)

	if resp.Action != "no_service_found" {
		t.Fatalf("action = %q, want no_service_found", resp.Action)
	}
	if len(resp.AvailableServices) != 2 {
		t.Fatalf("available_services = %v", resp.AvailableServices)
	}
}

func TestBoundCommandUsesToolTrace(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{completion: contractx.Completion{
		Text: "Done, I sent the payment.",
		ToolCalls: []contractx.ToolCall{
			{
				Tool:   "payment_1",
				Args:   map[string]any{"amount": 25.5},
				Result: contractx.Result{"action": "payment_processed", "status": "success"},
			},
		},
	}}
	agent := NewAgent(7, nil, nil, provider, nil)

	resp := agent.ProcessCommand(context.Background(), "pay $25.50 to merchant@example.com", nil)
	if resp.FallbackMode {
		t.Fatal("bound path flagged as fallback")
	}
	if resp.Action != "payment_processed" {
		t.Fatalf("action = %q", resp.Action)
	}
	if resp.Service != "payment_1" {
		t.Fatalf("service = %q", resp.Service)
	}
	if resp.Result == nil {
		t.Fatal("tool trace missing from result")
	}
}

func TestBoundCommandWithoutTools(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{completion: contractx.Completion{Text: "Hello!"}}
	agent := NewAgent(7, nil, nil, provider, nil)

	resp := agent.ProcessCommand(context.Background(), "say hello", nil)
	if resp.Action != "command_executed" {
		t.Fatalf("action = %q, want command_executed", resp.Action)
	}
	if resp.Response != "Hello!" {
		t.Fatalf("response = %q", resp.Response)
	}
}

func TestHistoryAppendedOncePerCommand(t *testing.T) {
	t.Parallel()

	agent := NewAgent(7, nil, nil, nil, nil)
	agent.ProcessCommand(context.Background(), "pay $5.00 to bob@example.com", nil)
	agent.ProcessCommand(context.Background(), "help", nil)

	if got := agent.HistorySize(); got != 2 {
		t.Fatalf("history size = %d, want 2", got)
	}
}

func TestCancelledContextSkipsHistory(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{err: func() error {
		cancel()
		return context.Canceled
	}()}

	agent := NewAgent(7, nil, nil, provider, nil)
	agent.Init(context.Background())
	agent.ProcessCommand(ctx, "pay $5.00 to bob@example.com", nil)

	if got := agent.HistorySize(); got != 0 {
		t.Fatalf("history size = %d, want 0 after cancellation", got)
	}
}

func TestEmptyCommand(t *testing.T) {
	t.Parallel()

	agent := NewAgent(7, nil, nil, nil, nil)
	resp := agent.ProcessCommand(context.Background(), "   ", nil)
	if resp.Action != "empty_command" {
		t.Fatalf("action = %q", resp.Action)
	}
	if agent.HistorySize() != 0 {
		t.Fatal("empty command recorded in history")
	}
}

func TestProviderReceivesBoundedHistory(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{completion: contractx.Completion{Text: "ok"}}
	agent := NewAgent(7, nil, nil, provider, nil)

	for i := 0; i < 15; i++ {
		agent.ProcessCommand(context.Background(), fmt.Sprintf("command %d", i), nil)
	}

	lastReq := provider.reqs[len(provider.reqs)-1]
	if len(lastReq.History) != providerHistoryWindow {
		t.Fatalf("history window = %d, want %d", len(lastReq.History), providerHistoryWindow)
	}
}

func TestArchiveAndRestore(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	agent := NewAgent(7, nil, nil, nil, store)
	agent.ProcessCommand(context.Background(), "help", nil)

	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}

	revived := NewAgent(7, nil, nil, nil, store)
	revived.Init(context.Background())
	if got := revived.HistorySize(); got != 1 {
		t.Fatalf("restored history size = %d, want 1", got)
	}
}

func TestManagerGetOrCreateConcurrent(t *testing.T) {
	t.Parallel()

	m := NewManager(Deps{})
	const goroutines = 16

	agents := make([]*Agent, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := m.GetOrCreate(context.Background(), 7, nil)
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			agents[i] = a
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if agents[i] != agents[0] {
			t.Fatal("concurrent GetOrCreate returned distinct agents")
		}
	}
	if got := m.ActiveAgents(); got != 1 {
		t.Fatalf("active agents = %d, want 1", got)
	}
}

func TestManagerIsolatesTenants(t *testing.T) {
	t.Parallel()

	m := NewManager(Deps{})
	m.RouteCommand(context.Background(), 1, "pay $5.00 to bob@example.com", nil)
	m.RouteCommand(context.Background(), 2, "help", nil)

	a1, _ := m.GetOrCreate(context.Background(), 1, nil)
	a2, _ := m.GetOrCreate(context.Background(), 2, nil)
	if a1.HistorySize() != 1 || a2.HistorySize() != 1 {
		t.Fatalf("history sizes = %d, %d; want 1, 1", a1.HistorySize(), a2.HistorySize())
	}
}

func TestManagerInvalidUserFallsBackToDefault(t *testing.T) {
	t.Parallel()

	m := NewManager(Deps{})
	resp := m.RouteCommand(context.Background(), 0, "help", nil)

	if resp.UserID != 0 {
		t.Fatalf("user_id = %d, want 0 (default agent)", resp.UserID)
	}
	if resp.Action != "help" {
		t.Fatalf("action = %q", resp.Action)
	}
	if got := m.ActiveAgents(); got != 0 {
		t.Fatalf("active agents = %d, want 0", got)
	}
}

func TestManagerRemove(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	m := NewManager(Deps{Store: store})
	m.RouteCommand(context.Background(), 5, "help", nil)

	m.Remove(context.Background(), 5)
	if got := m.ActiveAgents(); got != 0 {
		t.Fatalf("active agents = %d, want 0", got)
	}
	if _, err := store.Load(context.Background(), 5); !errors.Is(err, statex.ErrRecordNotFound) {
		t.Fatalf("record not deleted: %v", err)
	}
}
