package fetcher

import "sync/atomic"

// userAgents is the default pool of desktop browser identities. Requests
// rotate through the pool so a domain sees a mix of browsers rather than
// one identity repeated thousands of times.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:90.0) Gecko/20100101 Firefox/90.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.159 Safari/537.36",
}

// UserAgentPool hands out User-Agent strings round-robin. A fixed
// override disables rotation.
type UserAgentPool struct {
	// agents are the identities to rotate through.
	agents []string
	// next is the rotation cursor.
	next atomic.Uint64
	// fixed, when non-empty, is returned for every request.
	fixed string
}

// NewUserAgentPool creates a pool. A non-empty fixed agent disables
// rotation and is returned for every call to Next.
func NewUserAgentPool(fixed string) *UserAgentPool {
	return &UserAgentPool{
		agents: userAgents,
		fixed:  fixed,
	}
}

// Next returns the User-Agent for the next request.
func (p *UserAgentPool) Next() string {
	if p.fixed != "" {
		return p.fixed
	}
	n := p.next.Add(1)
	return p.agents[(n-1)%uint64(len(p.agents))]
}
