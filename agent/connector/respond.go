package connector

import (
	"fmt"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// RenderResponse turns an execution result into the natural-language line
// shown to the user. Unrecognized actions read as generic success.
func RenderResponse(result contractx.Result, c contractx.Connector) string {
	switch result.Action() {
	case "payment_processed":
		amount := floatParam(result, "amount")
		currency, _ := result["currency"].(string)
		return fmt.Sprintf("Payment of $%.2f %s has been processed successfully.", amount, currency)

	case "refund_processed":
		return fmt.Sprintf("Refund of $%.2f has been processed successfully.", floatParam(result, "amount"))

	case "message_sent":
		to, _ := result["to"].(string)
		if to == "" {
			to = "recipient"
		}
		return fmt.Sprintf("Your message has been sent successfully to %s.", to)

	case "call_initiated":
		return "Call has been initiated successfully."

	case "payment_failed", "message_failed", "command_failed":
		if msg := result.Message(); msg != "" {
			return msg
		}
		return "The request could not be completed."

	default:
		return fmt.Sprintf("%s has completed the requested action.", c.Descriptor().Name)
	}
}
