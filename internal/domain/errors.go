package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput covers boundary validation failures (payload shape, enums, attribute types).
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	// ErrReplyNotAccepted is returned when a customer reply arrives while the run
	// is not awaiting one. The signal is a no-op and must not alter the run.
	ErrReplyNotAccepted = errors.New("run is not awaiting a reply")
	// ErrRunTerminal guards operations against runs that already reached a terminal state.
	ErrRunTerminal = errors.New("run already terminal")
)

// TransientError marks a failure as retryable (network, timeout, broker unavailable).
// Anything not wrapped in it is treated as permanent by the engine's retry policy.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so the engine retries it with backoff. Wrapping nil returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
