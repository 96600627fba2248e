package contract

import "context"

// Connector handles commands for one capability descriptor. CanHandle must
// be a pure predicate; the dispatcher calls it at most once per command per
// connector, in registration order, and selects the first match.
type Connector interface {
	Descriptor() CapabilityDescriptor
	CanHandle(command string) bool
	Execute(ctx context.Context, command string, params map[string]any) Result
}

// Provider is the reasoning-provider port. A nil Provider means the agent is
// unbound and answers in fallback mode only.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// DescriptorSource returns the capability descriptors configured for a user.
type DescriptorSource interface {
	UserCapabilities(ctx context.Context, userID int64) ([]CapabilityDescriptor, error)
}

// MessageSink relays a response back through a chat-style channel.
// Failures are logged by callers, never raised to the end user.
type MessageSink interface {
	SendMessage(ctx context.Context, recipientID int64, content string) error
}
