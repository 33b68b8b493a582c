package crawler

import (
	"sort"

	"github.com/nao1215/shopscan/internal/model"
)

// Collector projects crawl state into results.
type Collector struct {
	store *StateStore
}

// NewCollector creates a collector over the given store.
func NewCollector(store *StateStore) *Collector {
	return &Collector{store: store}
}

// Snapshot returns the domain to product-URL mapping at call time. Safe
// to call during an active run; the view may then be partial. Calling
// it twice with no intervening mutation returns identical results.
func (c *Collector) Snapshot() model.CrawlResult {
	c.store.mu.RLock()
	names := make([]string, 0, len(c.store.domains))
	for name := range c.store.domains {
		names = append(names, name)
	}
	c.store.mu.RUnlock()

	result := make(model.CrawlResult, len(names))
	for _, name := range names {
		ds := c.store.domain(name)

		ds.mu.Lock()
		urls := make([]string, 0, len(ds.products))
		for u := range ds.products {
			urls = append(urls, u)
		}
		ds.mu.Unlock()

		sort.Strings(urls)
		result[name] = urls
	}
	return result
}
