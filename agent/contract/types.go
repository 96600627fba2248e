package contract

import (
	"context"
	"time"
)

// CapabilityDescriptor identifies one connectable external service.
// Category is free-form ("payment", "communication", ...); duplicates are
// allowed and simply produce duplicate connectors.
type CapabilityDescriptor struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Result is the structured outcome of executing a command against a
// connector or tool. It always carries an "action" key; validation failures
// are expressed as "*_failed" actions with a user-facing "message", never as
// Go errors.
type Result map[string]any

// Action returns the result's action tag, or "" when absent.
func (r Result) Action() string {
	s, _ := r["action"].(string)
	return s
}

// Status returns the result's status field, or "" when absent.
func (r Result) Status() string {
	s, _ := r["status"].(string)
	return s
}

// Message returns the user-facing message attached to the result, if any.
func (r Result) Message() string {
	s, _ := r["message"].(string)
	return s
}

// Failed builds a structured failure result.
func Failed(action, errText, userMessage string) Result {
	return Result{
		"action":  action,
		"status":  "failed",
		"error":   errText,
		"message": userMessage,
	}
}

// Response is what a processed command returns to the transport.
type Response struct {
	Response          string   `json:"response"`
	Action            string   `json:"action"`
	Service           string   `json:"service,omitempty"`
	UserID            int64    `json:"user_id,omitempty"`
	ErrorType         string   `json:"error_type,omitempty"`
	FallbackMode      bool     `json:"fallback_mode,omitempty"`
	AvailableServices []string `json:"available_services,omitempty"`
	Result            Result   `json:"result,omitempty"`
}

// ConversationEntry is one recorded exchange in an agent's history.
type ConversationEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Response  string    `json:"response"`
	Result    Result    `json:"result,omitempty"`
}

// ToolSpec describes one callable tool exposed to the reasoning provider.
// Parameters is a JSON-schema object in the chat-completions tool format.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolSet bundles the tool specs offered to the provider with the executor
// that runs a chosen tool locally.
type ToolSet struct {
	Specs   []ToolSpec
	Execute func(ctx context.Context, name string, args map[string]any) Result
}

// ToolCall records one provider-requested tool invocation and its outcome.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result Result         `json:"result,omitempty"`
}

// Completion is a successful reasoning-provider round trip.
type Completion struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// CompletionRequest carries everything the provider needs for one command.
type CompletionRequest struct {
	Command string
	Context map[string]any
	History []ConversationEntry
	Tools   ToolSet
}
