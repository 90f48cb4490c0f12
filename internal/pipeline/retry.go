package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"time"

	"github.com/dgallion1/docquiz/internal/llm"
)

// ErrCallTimeout marks a single capability call that ran past its own
// deadline while the request itself was still live.
var ErrCallTimeout = errors.New("capability call timed out")

// RetryPolicy bounds how often and how slowly a chunk is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Delay returns the wait before retrying after attempt n (0-indexed):
// exponential from BaseDelay with up to 50% jitter, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	base := p.BaseDelay << uint(min(attempt, 20))
	if p.MaxDelay > 0 && (base > p.MaxDelay || base <= 0) {
		base = p.MaxDelay
	}
	if half := int64(base) / 2; half > 0 {
		base += time.Duration(rand.Int64N(half))
	}
	if p.MaxDelay > 0 && base > p.MaxDelay {
		base = p.MaxDelay
	}
	return base
}

// Wait is the pause before the next attempt: the larger of the backoff and
// any server-requested Retry-After, never above MaxDelay.
func (p RetryPolicy) Wait(attempt int, err error) time.Duration {
	d := max(p.Delay(attempt), retryAfter(err))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCallTimeout) {
		return true
	}
	// The request was cancelled or ran out of time; another attempt cannot help.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var retryErr *llm.RetryableError
	if errors.As(err, &retryErr) || errors.Is(err, llm.ErrRateLimited) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// retryAfter extracts a server-requested wait, or 0.
func retryAfter(err error) time.Duration {
	var retryErr *llm.RetryableError
	if errors.As(err, &retryErr) {
		return retryErr.RetryAfter
	}
	return 0
}
