// Package fallback degrades reasoning-provider failures into locally
// computed, still-responsive answers.
package fallback

import (
	"errors"
	"strings"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// ErrorType tags the degraded mode a provider failure maps to.
type ErrorType string

const (
	ErrorTypeThrottling    ErrorType = "throttling"
	ErrorTypeAuth          ErrorType = "auth_error"
	ErrorTypeGeneral       ErrorType = "general_error"
	ErrorTypeNoCredentials ErrorType = "no_credentials"
)

// Keyword table for classifying untyped provider errors. Checked in order;
// first hit wins.
var classifications = []struct {
	errorType ErrorType
	keywords  []string
}{
	{ErrorTypeThrottling, []string{"throttl", "rate limit", "rate_limit", "quota", "too many requests"}},
	{ErrorTypeAuth, []string{"unauthorized", "access denied", "forbidden", "invalid api key", "authentication"}},
}

// Classify maps a provider failure to its degraded mode. Typed sentinel
// errors are honored first, then the error message is keyword-sniffed.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeGeneral
	}
	if errors.Is(err, contractx.ErrThrottled) {
		return ErrorTypeThrottling
	}
	if errors.Is(err, contractx.ErrUnauthorized) {
		return ErrorTypeAuth
	}

	msg := strings.ToLower(err.Error())
	for _, c := range classifications {
		for _, kw := range c.keywords {
			if strings.Contains(msg, kw) {
				return c.errorType
			}
		}
	}
	return ErrorTypeGeneral
}

// Prefix returns the canned explanatory lead-in for a degraded mode.
func Prefix(errorType ErrorType) string {
	switch errorType {
	case ErrorTypeThrottling:
		return "The reasoning service is rate limited right now, so I'm answering in demo mode. "
	case ErrorTypeAuth:
		return "The reasoning service rejected my credentials, so I'm answering in demo mode. "
	case ErrorTypeNoCredentials:
		return "No reasoning service is configured, so I'm answering in demo mode. "
	default:
		return "The reasoning service is temporarily unavailable, so I'm answering in demo mode. "
	}
}
