package navsdk

import "errors"

// Sentinel errors used internally to translate a failed request into one of
// the result Codes in types.go. Exported because
// internal/correlator surfaces its own sentinels (correlator.ErrTimeout,
// correlator.ErrShutdown) that this package's translation logic compares
// against with errors.Is, and maps any transport.Send error to
// ErrNotConnected;
// keeping the façade's own sentinels exported documents the taxonomy for
// callers who inspect error values returned from lower layers via logs.
var (
	ErrNotConnected    = errors.New("navsdk: not connected")
	ErrTimeout         = errors.New("navsdk: request timed out")
	ErrInvalidResponse = errors.New("navsdk: invalid response from server")
	ErrInvalidParam    = errors.New("navsdk: invalid parameter")
	ErrUnknown         = errors.New("navsdk: unknown error")
)
