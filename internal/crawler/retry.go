package crawler

import (
	"time"

	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/fetcher"
)

// RetryPolicy decides whether and when a failed fetch is tried again.
//
// Design decision: The policy is a value applied by the orchestrator
// around the fetch call, not behavior buried in a fetcher, because:
// 1. Retry behavior stays testable with a fake fetcher
// 2. Every fetch mechanism gets identical retry semantics
// 3. The attempt count travels with the task, so a retried task
//    re-enters the frontier instead of holding a worker hostage
type RetryPolicy struct {
	// MaxRetries is the number of re-attempts after the first failure.
	// A task is attempted at most MaxRetries+1 times.
	MaxRetries int

	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff growth.
	MaxDelay time.Duration
}

// NewRetryPolicy builds the retry policy from configuration.
func NewRetryPolicy(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
	}
}

// ShouldRetry reports whether a failure at the given attempt (0-based)
// warrants another try. Only transient errors are retried.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	return attempt < p.MaxRetries && fetcher.IsTransient(err)
}

// Backoff returns the wait before retry attempt n (0-based): the base
// delay doubled per attempt, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		return p.MaxDelay
	}
	return d
}
