package classifier

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/shopscan/internal/model"
)

// Classification is the outcome for one URL: whether it is a product
// page, and which scheduling category it belongs to. The two axes are
// independent; a paginated listing can carry a digit-bearing path and be
// flagged product by the heuristic without changing its category.
type Classification struct {
	// IsProduct is true when the URL matches a product rule.
	IsProduct bool
	// Category is the frontier scheduling class for the URL.
	Category model.Category
}

// Classifier evaluates URL strings against ordered rule tables.
//
// Design decision: Rules are compiled once at construction and the
// classifier is immutable afterwards because:
// 1. Classify runs on every discovered link, so per-call compilation
//    would dominate the crawl's CPU time
// 2. Immutability makes the classifier shareable across workers with no
//    locking
// 3. Site-specific rules from the config file can be merged in at
//    construction without complicating the call path
type Classifier struct {
	productPatterns    []*regexp.Regexp
	domainPatterns     map[string][]*regexp.Regexp
	paginationPatterns []*regexp.Regexp
	priorityMarkers    []string
	skipMarkers        []string
}

// Option configures a Classifier.
type Option func(*Classifier) error

// WithProductPatterns appends global product patterns to the built-in
// table. Returns an error from construction if a pattern does not compile.
func WithProductPatterns(patterns []string) Option {
	return func(c *Classifier) error {
		compiled, err := compileUserPatterns(patterns)
		if err != nil {
			return err
		}
		c.productPatterns = append(c.productPatterns, compiled...)
		return nil
	}
}

// WithDomainPatterns registers product patterns for one domain key. The
// key is matched as a substring of the task's domain, so "tatacliq.com"
// covers www.tatacliq.com as well.
func WithDomainPatterns(domainKey string, patterns []string) Option {
	return func(c *Classifier) error {
		compiled, err := compileUserPatterns(patterns)
		if err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(domainKey))
		c.domainPatterns[key] = append(c.domainPatterns[key], compiled...)
		return nil
	}
}

// WithPaginationPatterns appends pagination patterns to the built-in table.
func WithPaginationPatterns(patterns []string) Option {
	return func(c *Classifier) error {
		compiled, err := compileUserPatterns(patterns)
		if err != nil {
			return err
		}
		c.paginationPatterns = append(c.paginationPatterns, compiled...)
		return nil
	}
}

// WithPriorityMarkers appends listing-page markers to the built-in table.
func WithPriorityMarkers(markers []string) Option {
	return func(c *Classifier) error {
		c.priorityMarkers = append(c.priorityMarkers, markers...)
		return nil
	}
}

// WithSkipMarkers appends skip markers to the built-in table.
func WithSkipMarkers(markers []string) Option {
	return func(c *Classifier) error {
		c.skipMarkers = append(c.skipMarkers, markers...)
		return nil
	}
}

// NewClassifier creates a Classifier holding the built-in rule tables
// plus any additions from options.
func NewClassifier(opts ...Option) (*Classifier, error) {
	c := &Classifier{
		productPatterns:    append([]*regexp.Regexp(nil), defaultProductPatterns...),
		domainPatterns:     make(map[string][]*regexp.Regexp, len(defaultDomainPatterns)),
		paginationPatterns: append([]*regexp.Regexp(nil), defaultPaginationPatterns...),
		priorityMarkers:    append([]string(nil), defaultPriorityMarkers...),
		skipMarkers:        append([]string(nil), defaultSkipMarkers...),
	}
	for key, patterns := range defaultDomainPatterns {
		c.domainPatterns[key] = append([]*regexp.Regexp(nil), patterns...)
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Classify evaluates one URL. The domain selects which site-specific
// product rules apply; it is the task's domain, not re-derived from the
// URL, so redirected seeds keep their original rule set.
func (c *Classifier) Classify(rawURL, domain string) Classification {
	return Classification{
		IsProduct: c.isProduct(rawURL, domain),
		Category:  c.categoryOf(rawURL),
	}
}

// ShouldSkip reports whether the URL points into an account or checkout
// flow that should not be crawled at all.
func (c *Classifier) ShouldSkip(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, marker := range c.skipMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isProduct runs the three rule stages in order. First match wins; there
// is no scoring.
func (c *Classifier) isProduct(rawURL, domain string) bool {
	domain = strings.ToLower(domain)
	for key, patterns := range c.domainPatterns {
		if !strings.Contains(domain, key) {
			continue
		}
		for _, pattern := range patterns {
			if pattern.MatchString(rawURL) {
				return true
			}
		}
	}

	for _, pattern := range c.productPatterns {
		if pattern.MatchString(rawURL) {
			return true
		}
	}

	return c.numericTail(rawURL)
}

// numericTail reports whether the final path segment contains a digit
// run while the path avoids the category/collection words. Slug-with-id
// URLs like /items/shirt-pid-48213 are products on most storefronts even
// when no named pattern matches.
func (c *Classifier) numericTail(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	lowerPath := strings.ToLower(path)
	if strings.Contains(lowerPath, "category") || strings.Contains(lowerPath, "collection") {
		return false
	}

	lastSegment := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		lastSegment = path[idx+1:]
	}
	return numericRun.MatchString(lastSegment)
}

// categoryOf picks the scheduling category: pagination outranks listing
// markers, everything else is normal.
func (c *Classifier) categoryOf(rawURL string) model.Category {
	for _, pattern := range c.paginationPatterns {
		if pattern.MatchString(rawURL) {
			return model.CategoryPagination
		}
	}
	for _, marker := range c.priorityMarkers {
		if strings.Contains(rawURL, marker) {
			return model.CategoryPriority
		}
	}
	return model.CategoryNormal
}

// compileUserPatterns compiles config-supplied patterns, wrapping the
// first failure with the offending pattern text.
func compileUserPatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
