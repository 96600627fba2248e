// Package extract converts free-text commands into structured parameters.
// It is a best-effort heuristic layer, not a grammar: each rule is an
// independent regexp applied in a fixed order.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Amounts at or above this are assumed to be phone numbers or other
// identifiers mis-captured by the amount pattern.
const maxAmount = 1_000_000

var (
	amountPattern = regexp.MustCompile(`(?i)\$?(\d+(?:\.\d{2})?)\s*(?:USD|dollars?|bucks?)?\b`)
	phonePattern  = regexp.MustCompile(`(\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4})`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	toPattern     = regexp.MustCompile(`(?i)\bto\s+([A-Za-z\s]+?)(?:\s|$)`)
	sayPattern    = regexp.MustCompile(`(?i)(?:saying|message|text)\s+(.+?)(?:\s+to\s|$)`)
	quotePattern  = regexp.MustCompile(`["']([^"']+)["']`)
)

// Extract applies the pattern rules to command in order, then merges the
// caller-supplied context on top. Context values override extracted ones.
func Extract(command string, context map[string]any) map[string]any {
	params := make(map[string]any, len(context)+4)

	if m := amountPattern.FindStringSubmatch(command); m != nil {
		if amount, err := strconv.ParseFloat(m[1], 64); err == nil && amount < maxAmount {
			params["amount"] = amount
		}
	}

	if m := phonePattern.FindStringSubmatch(command); m != nil {
		params["to"] = m[1]
	}

	// Email wins over a phone match in the same text: it runs later and
	// overwrites "to".
	if m := emailPattern.FindString(command); m != "" {
		params["to"] = m
	}

	// A human name is never a machine-usable address, so it lands in
	// recipient_name and only when "to" is still unset.
	if _, ok := params["to"]; !ok {
		if m := toPattern.FindStringSubmatch(command); m != nil {
			params["recipient_name"] = strings.TrimSpace(m[1])
		}
	}

	if m := sayPattern.FindStringSubmatch(command); m != nil {
		params["message"] = strings.TrimSpace(m[1])
	} else if m := quotePattern.FindStringSubmatch(command); m != nil {
		params["message"] = m[1]
	}

	for k, v := range context {
		params[k] = v
	}

	return params
}
