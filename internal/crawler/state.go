package crawler

import (
	"sync"
	"time"
)

// AdmitResult is the outcome of asking to dispatch a URL.
type AdmitResult int

const (
	// AdmitOK means the URL was inserted into the visited set and the
	// caller owns its one fetch.
	AdmitOK AdmitResult = iota
	// AdmitAlreadyVisited means another task already claimed the URL.
	AdmitAlreadyVisited
	// AdmitBudgetExhausted means the domain's page cap is reached.
	AdmitBudgetExhausted
)

// String returns the string representation of the AdmitResult.
func (r AdmitResult) String() string {
	switch r {
	case AdmitOK:
		return "ok"
	case AdmitAlreadyVisited:
		return "already visited"
	case AdmitBudgetExhausted:
		return "budget exhausted"
	default:
		return "unknown"
	}
}

// domainState holds the mutable crawl state for one domain. All access
// goes through its mutex; workers on different domains never contend.
type domainState struct {
	mu sync.Mutex

	// visited holds every URL admitted for dispatch.
	visited map[string]struct{}

	// products holds the URLs classified as products at first visit.
	products map[string]struct{}

	// pagesVisited counts admitted URLs. Never exceeds the page cap.
	pagesVisited int

	// lastRequest is the politeness clock: the instant the most recent
	// request slot was reserved for.
	lastRequest time.Time
}

// StateStore keys crawl state by domain with per-domain locking.
//
// Design decision: One struct with per-key mutexes rather than a
// goroutine per domain owning its state because:
// 1. The dedup check-and-insert must be atomic with dispatch, which a
//    short critical section expresses directly
// 2. Snapshots can walk all domains without stopping the crawl
// 3. The store outlives individual domain crawls, so batch runs can
//    inspect it after workers exit
type StateStore struct {
	mu      sync.RWMutex
	domains map[string]*domainState
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{domains: make(map[string]*domainState)}
}

// domain returns the state for a domain, creating it on first use.
func (s *StateStore) domain(name string) *domainState {
	s.mu.RLock()
	ds, ok := s.domains[name]
	s.mu.RUnlock()
	if ok {
		return ds
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok = s.domains[name]; ok {
		return ds
	}
	ds = &domainState{
		visited:  make(map[string]struct{}),
		products: make(map[string]struct{}),
	}
	s.domains[name] = ds
	return ds
}

// Admit atomically claims a URL for dispatch. The page-cap check, the
// visited check-and-insert, and the counter increment happen in one
// critical section, so exactly one caller ever gets AdmitOK for a URL.
func (s *StateStore) Admit(domain, url string, pageCap int) AdmitResult {
	ds := s.domain(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if pageCap > 0 && ds.pagesVisited >= pageCap {
		return AdmitBudgetExhausted
	}
	if _, ok := ds.visited[url]; ok {
		return AdmitAlreadyVisited
	}
	ds.visited[url] = struct{}{}
	ds.pagesVisited++
	return AdmitOK
}

// Visited reports whether a URL has been admitted for the domain.
func (s *StateStore) Visited(domain, url string) bool {
	ds := s.domain(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	_, ok := ds.visited[url]
	return ok
}

// AddProduct records a product URL. Returns false when the URL was
// already recorded.
func (s *StateStore) AddProduct(domain, url string) bool {
	ds := s.domain(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, ok := ds.products[url]; ok {
		return false
	}
	ds.products[url] = struct{}{}
	return true
}

// IsProduct reports whether a URL was recorded as a product.
func (s *StateStore) IsProduct(domain, url string) bool {
	ds := s.domain(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	_, ok := ds.products[url]
	return ok
}

// PagesVisited returns the number of URLs admitted for the domain.
func (s *StateStore) PagesVisited(domain string) int {
	ds := s.domain(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.pagesVisited
}

// ProductCount returns the number of product URLs for the domain.
func (s *StateStore) ProductCount(domain string) int {
	ds := s.domain(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.products)
}

// ReserveFetch computes the politeness wait for the next request to the
// domain and advances the request clock to the reserved instant, so
// concurrent reservations stay spaced even when more than one fetch per
// domain is allowed. The returned wait also covers the rate ceiling
// when one is configured.
func (s *StateStore) ReserveFetch(domain string, p *Politeness) time.Duration {
	ds := s.domain(domain)
	ds.mu.Lock()

	now := time.Now()
	wait := p.WaitTime(ds.lastRequest, now)
	ds.lastRequest = now.Add(wait)
	ds.mu.Unlock()

	if ceiling := p.CeilingDelay(); ceiling > wait {
		wait = ceiling
	}
	return wait
}
