package crawler

import (
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// RateCeiling is a token-bucket cap on requests per window, layered over
// the delay clock. Zero Requests disables it.
type RateCeiling struct {
	// Requests is the number of requests allowed per Window.
	Requests int
	// Window is the time span the request count applies to.
	Window time.Duration
}

// Politeness computes the spacing between requests to one domain: a
// fixed minimum interval plus a uniformly drawn jitter in [0, bound),
// under an optional token-bucket ceiling. Jitter keeps a multi-domain
// crawl from settling into a lockstep request rhythm that storefront
// rate limiters recognize; the ceiling holds even when delay and jitter
// are tuned down to zero.
type Politeness struct {
	// interval is the minimum time between requests.
	interval time.Duration
	// jitter is the exclusive upper bound of the random extra delay.
	jitter time.Duration
	// bucket is the optional request-rate ceiling. Nil when disabled.
	bucket *rate.Limiter
}

// NewPoliteness creates a politeness controller with no rate ceiling.
// Non-positive values disable the respective component.
func NewPoliteness(interval, jitter time.Duration) *Politeness {
	return NewPolitenessWithCeiling(interval, jitter, RateCeiling{})
}

// NewPolitenessWithCeiling creates a politeness controller with a
// token-bucket request cap over the delay clock.
func NewPolitenessWithCeiling(interval, jitter time.Duration, ceiling RateCeiling) *Politeness {
	if interval < 0 {
		interval = 0
	}
	if jitter < 0 {
		jitter = 0
	}
	p := &Politeness{interval: interval, jitter: jitter}
	if ceiling.Requests > 0 && ceiling.Window > 0 {
		every := ceiling.Window / time.Duration(ceiling.Requests)
		if every <= 0 {
			every = time.Millisecond
		}
		p.bucket = rate.NewLimiter(rate.Every(every), ceiling.Requests)
	}
	return p
}

// WaitTime returns the non-negative duration to wait before the next
// request, given when the previous request was issued. A zero last
// instant means no request has been made yet. The ceiling is not
// consulted here; CeilingDelay covers it.
func (p *Politeness) WaitTime(last, now time.Time) time.Duration {
	if last.IsZero() {
		return 0
	}
	next := last.Add(p.interval + p.jitterSample())
	if wait := next.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// CeilingDelay reserves a slot in the rate ceiling and returns how long
// the caller must wait for it. Each call consumes one token, so
// concurrent callers get successive slots.
func (p *Politeness) CeilingDelay() time.Duration {
	if p.bucket == nil {
		return 0
	}
	return p.bucket.Reserve().Delay()
}

// jitterSample draws the random extra delay for one call.
func (p *Politeness) jitterSample() time.Duration {
	if p.jitter <= 0 {
		return 0
	}
	return rand.N(p.jitter)
}
