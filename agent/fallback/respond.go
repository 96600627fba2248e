package fallback

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// Canned content for the fixed fallback intents.
var (
	helpCommands = []string{
		"Send payments: 'pay $25.50 to merchant@example.com'",
		"Send messages: 'send message hello to user@example.com'",
		"Check services: 'services'",
		"Get status: 'status'",
	}

	mockServiceList = []string{
		"Mock Payment Service (payment)",
		"Mock Communication Service (communication)",
		"Mock Email Service (email)",
	}
)

// Request is the input to the fallback responder.
type Request struct {
	Command   string
	Context   map[string]any
	ErrorType ErrorType
	UserID    int64

	// Services fetches the live capability listing; on nil or error the
	// static mock list is substituted.
	Services func(ctx context.Context) ([]string, error)

	// AvailableServices, when set, turns the no-intent branch into a
	// no_service_found response carrying this list. When unset the
	// responder falls back to a generic demo acknowledgment.
	AvailableServices []string
}

// Respond computes a degraded response entirely locally: an explanatory
// prefix for the error type, then the first matching intent. It never
// performs a real side effect.
func Respond(ctx context.Context, req Request) contractx.Response {
	prefix := Prefix(req.ErrorType)
	lowered := strings.ToLower(strings.TrimSpace(req.Command))

	resp := contractx.Response{
		UserID:       req.UserID,
		ErrorType:    string(req.ErrorType),
		FallbackMode: true,
	}

	switch {
	case lowered == "help" || lowered == "h" || lowered == "?":
		resp.Action = "help"
		resp.Response = prefix + "Here is what I can do:\n" + bulletList(helpCommands)

	case strings.Contains(lowered, "services"):
		resp.Action = "services_list"
		services := fetchServices(ctx, req.Services)
		resp.AvailableServices = services
		resp.Response = prefix + fmt.Sprintf("Available services (%d):\n%s",
			len(services), bulletList(services))

	case strings.Contains(lowered, "status"):
		resp.Action = "status"
		resp.Response = prefix + fmt.Sprintf(
			"Agent for user %d is running in demo mode (error_type=%s).",
			req.UserID, req.ErrorType)

	case paymentShaped(lowered):
		resp.Action = "payment_simulated"
		resp.Response = prefix + "I would normally process this payment through your payment service. No charge was made."

	case messageShaped(lowered):
		resp.Action = "message_simulated"
		resp.Response = prefix + "I would normally send this message through your communication service. Nothing was sent."

	case len(req.AvailableServices) > 0:
		resp.Action = "no_service_found"
		resp.AvailableServices = req.AvailableServices
		resp.Response = prefix + "I'm sorry, I don't have a service that can handle that request."

	default:
		resp.Action = "demo_response"
		resp.Response = prefix + "I received your command but can only acknowledge it in demo mode."
	}

	return resp
}

func paymentShaped(lowered string) bool {
	return strings.Contains(lowered, "pay") &&
		(strings.Contains(lowered, "to") || strings.Contains(lowered, "@"))
}

func messageShaped(lowered string) bool {
	return (strings.Contains(lowered, "send") || strings.Contains(lowered, "message")) &&
		(strings.Contains(lowered, "to") || strings.Contains(lowered, "@"))
}

func fetchServices(ctx context.Context, fetch func(ctx context.Context) ([]string, error)) []string {
	if fetch == nil {
		return mockServiceList
	}
	services, err := fetch(ctx)
	if err != nil || len(services) == 0 {
		return mockServiceList
	}
	return services
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
