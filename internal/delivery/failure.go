package delivery

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failed outbound delivery attempt.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindQuotaExceeded
	KindRateLimited
	KindTransientNetwork
	KindMalformedResponse
	KindPayloadTooLarge
)

// String returns a short operator-facing name for the failure kind.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth error"
	case KindQuotaExceeded:
		return "quota exceeded"
	case KindRateLimited:
		return "rate limited"
	case KindTransientNetwork:
		return "transient network error"
	case KindMalformedResponse:
		return "malformed response"
	case KindPayloadTooLarge:
		return "payload too large"
	default:
		return "unknown error"
	}
}

// Failure is the outcome of a failed delivery attempt. Both outbound
// channels translate their transport errors into a Failure so the
// orchestrator can decide whether to retry or abort without knowing
// the wire format.
type Failure struct {
	Kind Kind
	Err  error
	// RetryAfter is a backoff hint from the transport, zero when the
	// transport did not provide one. Only meaningful for rate-limited
	// failures.
	RetryAfter time.Duration
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return f.Kind.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether the same call may succeed if attempted
// again without operator intervention.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindRateLimited, KindTransientNetwork:
		return true
	default:
		return false
	}
}

// Failed wraps err as a Failure of the given kind.
func Failed(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// Classify extracts the Failure from an error chain. Errors that did
// not come from a delivery client classify as unknown and
// non-retryable.
func Classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindUnknown, Err: err}
}

// Retry runs fn, and runs it once more immediately if the first
// attempt failed with a retryable classification. At most one retry
// per call keeps a flaky transport from stalling the input loop.
func Retry(fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if !Classify(err).Retryable() {
		return err
	}
	return fn()
}
