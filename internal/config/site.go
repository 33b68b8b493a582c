package config

import (
	"sort"
	"strings"
)

// SiteConfig holds site-specific configuration for a single storefront.
// This allows customizing crawl behavior per domain.
type SiteConfig struct {
	// URL is the seed URL for the site. Sites with a URL act as crawl
	// roots when no positional seeds are given.
	URL string `yaml:"url,omitempty"`

	// MaxPages overrides the global per-domain page budget for this site.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"max_pages,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// Delay overrides the politeness interval for this site.
	Delay Duration `yaml:"delay,omitempty"`

	// Jitter overrides the random extra delay bound for this site.
	Jitter Duration `yaml:"jitter,omitempty"`

	// Fetcher selects the fetch mechanism for this site: "http" or
	// "render". Script-heavy storefronts need "render" to expose their
	// product links.
	Fetcher string `yaml:"fetcher,omitempty"`

	// UserAgent overrides the User-Agent header for this site.
	// If empty, the crawler rotates through its browser pool.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	// Consent cookies keep storefronts from serving a cookie banner
	// instead of listings.
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// ProductPatterns are extra product URL regexes for this site,
	// applied on top of the built-in rules.
	ProductPatterns []string `yaml:"product_patterns,omitempty"`

	// PaginationPatterns are extra pagination URL regexes for this site.
	PaginationPatterns []string `yaml:"pagination_patterns,omitempty"`

	// PriorityMarkers are extra listing path markers for this site.
	PriorityMarkers []string `yaml:"priority_markers,omitempty"`

	// SkipMarkers are extra URL substrings that exclude a link from the
	// crawl, such as login or checkout paths.
	SkipMarkers []string `yaml:"skip_markers,omitempty"`

	// IgnoreRobots exempts this site from robots.txt checks.
	IgnoreRobots bool `yaml:"ignore_robots,omitempty"`
}

// File represents the structure of the .shopscan sites file.
type File struct {
	// Sites maps domains to their site-specific configurations.
	// A key matches any crawled domain that contains it, so
	// "tatacliq.com" also covers "www.tatacliq.com".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific domain.
// It merges the site-specific configuration with defaults.
func (sf *File) GetSiteConfig(domain string) SiteConfig {
	// Start with defaults
	result := sf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := sf.lookup(domain); ok {
		if siteConfig.URL != "" {
			result.URL = siteConfig.URL
		}
		if siteConfig.MaxPages != 0 {
			result.MaxPages = siteConfig.MaxPages
		}
		if siteConfig.Depth != 0 {
			result.Depth = siteConfig.Depth
		}
		if !siteConfig.Delay.IsZero() {
			result.Delay = siteConfig.Delay
		}
		if !siteConfig.Jitter.IsZero() {
			result.Jitter = siteConfig.Jitter
		}
		if siteConfig.Fetcher != "" {
			result.Fetcher = siteConfig.Fetcher
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if len(siteConfig.Headers) > 0 {
			// Copy into a fresh map so the merge never mutates the
			// shared Defaults.Headers.
			merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range siteConfig.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
		if len(siteConfig.ProductPatterns) > 0 {
			result.ProductPatterns = siteConfig.ProductPatterns
		}
		if len(siteConfig.PaginationPatterns) > 0 {
			result.PaginationPatterns = siteConfig.PaginationPatterns
		}
		if len(siteConfig.PriorityMarkers) > 0 {
			result.PriorityMarkers = siteConfig.PriorityMarkers
		}
		if len(siteConfig.SkipMarkers) > 0 {
			result.SkipMarkers = siteConfig.SkipMarkers
		}
		if siteConfig.IgnoreRobots {
			result.IgnoreRobots = true
		}
	}

	return result
}

// lookup finds the site entry whose key is contained in domain.
// An exact key wins, then the longest matching key.
func (sf *File) lookup(domain string) (SiteConfig, bool) {
	if siteConfig, ok := sf.Sites[domain]; ok {
		return siteConfig, true
	}
	best := ""
	for key := range sf.Sites {
		if key == "" || !strings.Contains(domain, key) {
			continue
		}
		if len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return SiteConfig{}, false
	}
	return sf.Sites[best], true
}

// SeedURLs returns the seed URLs of all sites that declare one, sorted
// by domain key so crawl order is stable.
func (sf *File) SeedURLs() []string {
	keys := make([]string, 0, len(sf.Sites))
	for key, siteConfig := range sf.Sites {
		if siteConfig.URL == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, sf.Sites[key].URL)
	}
	return urls
}
