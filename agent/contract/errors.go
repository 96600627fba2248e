package contract

import "errors"

var (
	// Provider failure kinds. Wrapped by provider implementations so the
	// fallback classifier can pick them up with errors.Is before resorting
	// to message sniffing.
	ErrThrottled    = errors.New("provider throttled")
	ErrUnauthorized = errors.New("provider unauthorized")
	ErrProvider     = errors.New("provider call failed")
)
