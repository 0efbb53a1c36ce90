package comps

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingConfig marks a search collaborator that cannot run because
// required credentials or configuration are absent. It is fatal for the call
// and never retried.
var ErrMissingConfig = errors.New("missing marketplace configuration")

// RateLimitError signals upstream quota exhaustion. It is surfaced to the
// caller with a retry hint instead of being retried inside the aggregation
// loop.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("marketplace rate limited, retry in %s", e.RetryAfter.Round(time.Second))
}

// IsRateLimited unwraps err into a rate-limit condition.
func IsRateLimited(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
