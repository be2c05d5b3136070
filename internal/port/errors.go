package port

import "errors"

// Sentinel errors used across ports.
var (
	// ErrProviderUnavailable means the backend failed its health check
	// before the sweep started. Fatal: the sweep does not run.
	ErrProviderUnavailable = errors.New("ai provider unavailable")

	// ErrProvider wraps a single failed or malformed generate/embed call.
	// Recovered per configuration, recorded as a failed result.
	ErrProvider = errors.New("ai provider call failed")
)
