package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines how a failing task body is re-run by Retry
type RetryPolicy struct {
	MaxRetries     int           `json:"max_retries" yaml:"max_retries"`
	InitialBackoff time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff" yaml:"max_backoff"`
	BackoffFactor  float64       `json:"backoff_factor" yaml:"backoff_factor"`
	EnableJitter   bool          `json:"enable_jitter" yaml:"enable_jitter"`
	JitterFactor   float64       `json:"jitter_factor" yaml:"jitter_factor"` // 0.0 to 1.0
}

// DefaultRetryPolicy returns a retry policy with sensible defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		EnableJitter:   true,
		JitterFactor:   0.3,
	}
}

// Backoff calculates the wait before the given retry attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	// initialBackoff * factor^(attempt-1)
	backoff := time.Duration(float64(p.InitialBackoff) * math.Pow(p.BackoffFactor, float64(attempt-1)))
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}

	if p.EnableJitter && p.JitterFactor > 0 {
		jitter := rand.Float64() * p.JitterFactor
		backoff = time.Duration(float64(backoff) * (1 + jitter))
	}
	return backoff
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry wraps task so that failures are re-run up to policy.MaxRetries times
// with exponential backoff. Errors marked Permanent and context cancellation
// end the loop early. The handle still sees a single outcome.
func Retry(policy RetryPolicy, task Task) Task {
	return func(ctx context.Context) (any, error) {
		for attempt := 0; ; attempt++ {
			result, err := task(ctx)
			if err == nil {
				return result, nil
			}

			var p *permanentError
			if errors.As(err, &p) {
				return nil, p.err
			}
			if attempt >= policy.MaxRetries {
				return nil, fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
			}

			timer := time.NewTimer(policy.Backoff(attempt + 1))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("retry interrupted after %d attempts: %w", attempt+1, err)
			}
		}
	}
}
