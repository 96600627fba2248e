package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	contractx "github.com/relaylabs/relay/agent/contract"
)

var paymentKeywords = []string{"pay", "payment", "charge", "refund", "stripe"}

// Payment handles payment-shaped commands (charges and refunds).
type Payment struct {
	descriptor contractx.CapabilityDescriptor
}

func (p *Payment) Descriptor() contractx.CapabilityDescriptor { return p.descriptor }

func (p *Payment) CanHandle(command string) bool {
	return containsAny(command, paymentKeywords)
}

func (p *Payment) Execute(_ context.Context, command string, params map[string]any) contractx.Result {
	lowered := strings.ToLower(command)
	switch {
	case strings.Contains(lowered, "refund"):
		return p.processRefund(params)
	case strings.Contains(lowered, "pay"):
		return p.processPayment(params)
	default:
		return contractx.Failed("payment_failed",
			fmt.Sprintf("unsupported payment command: %s", command),
			"I can process payments and refunds. Try 'pay $10 to merchant@example.com'.")
	}
}

func (p *Payment) processPayment(params map[string]any) contractx.Result {
	amount := floatParam(params, "amount")
	if amount <= 0 {
		return contractx.Failed("payment_failed", "Invalid amount",
			"Please specify a valid payment amount.")
	}

	currency, _ := params["currency"].(string)
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
}

func (p *Payment) processRefund(params map[string]any) contractx.Result {
	return contractx.Result{
		"action":         "refund_processed",
		"transaction_id": params["transaction_id"],
		"amount":         floatParam(params, "amount"),
		"status":         "success",
	}
}

func floatParam(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
