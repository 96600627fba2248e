package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	contractx "github.com/relaylabs/relay/agent/contract"
)

var communicationKeywords = []string{"send", "message", "sms", "call", "twilio", "text"}

// Communication handles messaging and call commands.
type Communication struct {
	descriptor contractx.CapabilityDescriptor
}

func (c *Communication) Descriptor() contractx.CapabilityDescriptor { return c.descriptor }

func (c *Communication) CanHandle(command string) bool {
	return containsAny(command, communicationKeywords)
}

func (c *Communication) Execute(_ context.Context, command string, params map[string]any) contractx.Result {
	lowered := strings.ToLower(command)
	switch {
	case strings.Contains(lowered, "send") && strings.Contains(lowered, "message"):
		return c.sendMessage(params)
	case strings.Contains(lowered, "call"):
		return c.makeCall(params)
	default:
		return contractx.Failed("message_failed",
			fmt.Sprintf("unsupported communication command: %s", command),
			"I can send messages and make calls. Try 'send message hello to user@example.com'.")
	}
}

func (c *Communication) sendMessage(params map[string]any) contractx.Result {
	to, _ := params["to"].(string)
	message, _ := params["message"].(string)

	if to == "" {
		return contractx.Failed("message_failed", "No recipient specified",
			"Please specify who you want to send the message to (phone number, email, or name).")
	}
	if message == "" {
		return contractx.Failed("message_failed", "No message content",
			"Please specify what message you want to send.")
	}

	return contractx.Result{
		"action":     "message_sent",
		"to":         to,
		"message":    message,
		"status":     "success",
		"message_id": "msg_" + uuid.NewString(),
	}
}

func (c *Communication) makeCall(params map[string]any) contractx.Result {
	to, _ := params["to"].(string)

	return contractx.Result{
		"action":  "call_initiated",
		"to":      to,
		"status":  "success",
		"call_id": "call_" + uuid.NewString(),
	}
}
