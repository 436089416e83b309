package ai

import "errors"

var (
	// ErrUnavailable covers transient upstream failures: network errors,
	// timeouts, 429 and 5xx responses. Callers retry these with bounded
	// backoff before surfacing.
	ErrUnavailable = errors.New("ai provider unavailable")
	// ErrRejected covers authentication and malformed-request failures.
	// Never retried.
	ErrRejected = errors.New("ai provider rejected request")
	// ErrBadOutput means the model replied but the reply failed schema
	// validation. Never retried: the input is unlikely to change.
	ErrBadOutput = errors.New("ai output failed validation")
)

func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
