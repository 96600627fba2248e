package tool

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	contractx "github.com/relaylabs/relay/agent/contract"
)

func buildPaymentTool(desc contractx.CapabilityDescriptor) builtTool {
	return builtTool{
		spec: contractx.ToolSpec{
			Name:        toolName("payment", desc),
			Description: fmt.Sprintf("Process a charge or refund through %s.", desc.Name),
			Parameters: schemaObject(map[string]any{
				"operation":      map[string]any{"type": "string", "enum": []string{"charge", "refund"}},
				"amount":         map[string]any{"type": "number", "description": "Payment amount, must be positive"},
				"currency":       map[string]any{"type": "string", "description": "ISO currency code, defaults to USD"},
				"transaction_id": map[string]any{"type": "string", "description": "Original transaction for refunds"},
			}, "amount"),
		},
		run: func(_ context.Context, args map[string]any) contractx.Result {
			amount := floatArg(args, "amount")
			if amount <= 0 {
				return contractx.Failed("payment_failed", "Invalid amount",
					"Please specify a valid payment amount.")
			}

			if stringArg(args, "operation") == "refund" {
				return contractx.Result{
					"action":         "refund_processed",
					"transaction_id": args["transaction_id"],
					"amount":         amount,
					"status":         "success",
				}
			}

			currency := stringArg(args, "currency")
			if currency == "" {
				currency = "USD"
			}
			return contractx.Result{
				"action":         "payment_processed",
				"amount":         amount,
				"currency":       currency,
				"status":         "success",
				"transaction_id": "txn_" + uuid.NewString(),
			}
		},
	}
}

func buildCommunicationTool(desc contractx.CapabilityDescriptor) builtTool {
	return builtTool{
		spec: contractx.ToolSpec{
			Name:        toolName("communication", desc),
			Description: fmt.Sprintf("Send a message or start a call through %s.", desc.Name),
			Parameters: schemaObject(map[string]any{
				"operation": map[string]any{"type": "string", "enum": []string{"send", "call"}},
				"to":        map[string]any{"type": "string", "description": "Phone number or email of the recipient"},
				"message":   map[string]any{"type": "string", "description": "Message body, required for send"},
			}, "to"),
		},
		run: func(_ context.Context, args map[string]any) contractx.Result {
			to := stringArg(args, "to")
			if to == "" {
				return contractx.Failed("message_failed", "No recipient specified",
					"Please specify who you want to send the message to (phone number, email, or name).")
			}

			if stringArg(args, "operation") == "call" {
				return contractx.Result{
					"action":  "call_initiated",
					"to":      to,
					"status":  "success",
					"call_id": "call_" + uuid.NewString(),
				}
			}

			message := stringArg(args, "message")
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
		},
	}
}

func buildEmailTool(desc contractx.CapabilityDescriptor) builtTool {
	return builtTool{
		spec: contractx.ToolSpec{
			Name:        toolName("email", desc),
			Description: fmt.Sprintf("Send an email through %s.", desc.Name),
			Parameters: schemaObject(map[string]any{
				"to":      map[string]any{"type": "string", "description": "Recipient email address"},
				"subject": map[string]any{"type": "string"},
				"body":    map[string]any{"type": "string"},
			}, "to", "body"),
		},
		run: func(_ context.Context, args map[string]any) contractx.Result {
			to := stringArg(args, "to")
			if to == "" {
				return contractx.Failed("email_failed", "No recipient specified",
					"Please specify the recipient email address.")
			}
			if stringArg(args, "body") == "" {
				return contractx.Failed("email_failed", "No email body",
					"Please specify what the email should say.")
			}
			return contractx.Result{
				"action":   "email_sent",
				"to":       to,
				"subject":  stringArg(args, "subject"),
				"status":   "success",
				"email_id": "email_" + uuid.NewString(),
			}
		},
	}
}

func buildSMSTool(desc contractx.CapabilityDescriptor) builtTool {
	return builtTool{
		spec: contractx.ToolSpec{
			Name:        toolName("sms", desc),
			Description: fmt.Sprintf("Send an SMS through %s.", desc.Name),
			Parameters: schemaObject(map[string]any{
				"to":      map[string]any{"type": "string", "description": "Recipient phone number"},
				"message": map[string]any{"type": "string"},
			}, "to", "message"),
		},
		run: func(_ context.Context, args map[string]any) contractx.Result {
			to := stringArg(args, "to")
			if to == "" {
				return contractx.Failed("sms_failed", "No recipient specified",
					"Please specify the recipient phone number.")
			}
			if stringArg(args, "message") == "" {
				return contractx.Failed("sms_failed", "No message content",
					"Please specify the SMS text.")
			}
			return contractx.Result{
				"action": "sms_sent",
				"to":     to,
				"status": "success",
				"sms_id": "sms_" + uuid.NewString(),
			}
		},
	}
}

// buildGenericTool echoes a structured acknowledgment tagged with the
// descriptor's original category. It never fails hard: a missing action just
// acknowledges the payload.
func buildGenericTool(desc contractx.CapabilityDescriptor) builtTool {
	category := desc.Category
	if category == "" {
		category = "service"
	}
	return builtTool{
		spec: contractx.ToolSpec{
			Name:        toolName(category, desc),
			Description: fmt.Sprintf("Invoke %s (%s) with a named action and parameters.", desc.Name, category),
			Parameters: schemaObject(map[string]any{
				"action":     map[string]any{"type": "string", "description": "Verb to perform"},
				"parameters": map[string]any{"type": "object", "description": "Free-form action payload"},
			}, "action"),
		},
		run: func(_ context.Context, args map[string]any) contractx.Result {
			verb := stringArg(args, "action")
			if verb == "" {
				return contractx.Failed(category+"_failed", "No action specified",
					fmt.Sprintf("Please name the action to perform on %s.", desc.Name))
			}
			return contractx.Result{
				"action":     fmt.Sprintf("%s_%s", category, verb),
				"category":   category,
				"service":    desc.Name,
				"parameters": args["parameters"],
				"status":     "success",
			}
		},
	}
}
