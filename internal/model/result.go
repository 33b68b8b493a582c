package model

import (
	"sort"
	"time"
)

// CrawlResult maps each crawled domain to the product URLs discovered on
// it. Values are sorted and duplicate-free. The JSON form is an object
// whose values are string arrays, so a written result file can be read
// back without any wrapper schema.
type CrawlResult map[string][]string

// Domains returns the result's domains in sorted order.
func (r CrawlResult) Domains() []string {
	domains := make([]string, 0, len(r))
	for domain := range r {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains
}

// TotalProducts returns the number of product URLs across all domains.
func (r CrawlResult) TotalProducts() int {
	total := 0
	for _, urls := range r {
		total += len(urls)
	}
	return total
}

// Merge folds another result into this one. URL lists are combined,
// deduplicated, and re-sorted. Used by batch mode to join per-site runs.
func (r CrawlResult) Merge(other CrawlResult) {
	for domain, urls := range other {
		if len(urls) == 0 {
			if _, ok := r[domain]; !ok {
				r[domain] = []string{}
			}
			continue
		}
		seen := make(map[string]struct{}, len(r[domain])+len(urls))
		merged := make([]string, 0, len(r[domain])+len(urls))
		for _, u := range r[domain] {
			if _, ok := seen[u]; !ok {
				seen[u] = struct{}{}
				merged = append(merged, u)
			}
		}
		for _, u := range urls {
			if _, ok := seen[u]; !ok {
				seen[u] = struct{}{}
				merged = append(merged, u)
			}
		}
		sort.Strings(merged)
		r[domain] = merged
	}
}

// RunReport wraps a CrawlResult with the statistics a single run
// produced. It is the unit the report writers and the archive consume.
type RunReport struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run completed or was shut down.
	FinishedAt time.Time `json:"finished_at"`

	// Seeds are the normalized seed URLs the run started from.
	Seeds []string `json:"seeds"`

	// Result is the domain to product-URL mapping.
	Result CrawlResult `json:"result"`

	// Domains holds per-domain crawl statistics keyed by domain.
	Domains map[string]*DomainReport `json:"domains,omitempty"`

	// Products holds enriched metadata for product pages, in discovery
	// order. Only populated when metadata extraction is enabled.
	Products []ProductRecord `json:"products,omitempty"`

	// Interrupted is true when the run ended via shutdown rather than
	// by draining all frontiers.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewRunReport creates a RunReport with its maps initialized.
func NewRunReport(seeds []string) *RunReport {
	return &RunReport{
		StartedAt: time.Now(),
		Seeds:     seeds,
		Result:    make(CrawlResult),
		Domains:   make(map[string]*DomainReport),
	}
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Domain returns the per-domain report, creating it on first use.
func (r *RunReport) Domain(domain string) *DomainReport {
	if d, ok := r.Domains[domain]; ok {
		return d
	}
	d := &DomainReport{Domain: domain}
	r.Domains[domain] = d
	return d
}

// TotalPages returns the number of pages visited across all domains.
func (r *RunReport) TotalPages() int {
	total := 0
	for _, d := range r.Domains {
		total += d.PagesVisited
	}
	return total
}

// DomainReport holds the crawl statistics for one domain.
type DomainReport struct {
	// Domain is the lowercased host.
	Domain string `json:"domain"`

	// PagesVisited is the number of URLs dispatched to a fetch.
	PagesVisited int `json:"pages_visited"`

	// ProductsFound is the number of URLs classified as products.
	ProductsFound int `json:"products_found"`

	// Retries is the number of retry attempts issued.
	Retries int `json:"retries"`

	// Dropped is the number of tasks abandoned after fatal errors or
	// retry exhaustion.
	Dropped int `json:"dropped"`

	// Failed is true when the domain's crawl could not run at all,
	// for example because the fetch mechanism failed to initialize.
	Failed bool `json:"failed,omitempty"`

	// Error is the failure message when Failed is set.
	Error string `json:"error,omitempty"`

	// Platform is the detected shop platform, when recognizable.
	Platform ShopPlatform `json:"platform,omitempty"`
}

// ProductRecord is one product page with extracted metadata.
type ProductRecord struct {
	// Domain is the host the product page belongs to.
	Domain string `json:"domain"`

	// URL is the normalized product page URL.
	URL string `json:"url"`

	// Title is the product title, when one could be extracted.
	Title string `json:"title,omitempty"`

	// Price is the displayed price text, when one could be extracted.
	Price string `json:"price,omitempty"`

	// Currency is the ISO currency code, when declared in the markup.
	Currency string `json:"currency,omitempty"`

	// Image is the primary product image URL, when declared.
	Image string `json:"image,omitempty"`
}
