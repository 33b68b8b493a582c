package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	// AppName is the application name.
	AppName = "shopscan"

	// DefaultMaxPages is the per-domain page budget.
	// Large enough to exhaust the category tree of a typical storefront,
	// so the cap acts as a runaway guard rather than a sampling limit.
	DefaultMaxPages = 10000

	// DefaultCrawlDepth is the maximum link depth measured from the seed.
	// Storefronts reach their product pages within three hops
	// (home, category, listing page, product), so deeper expansion
	// mostly revisits templated chrome links.
	DefaultCrawlDepth = 3

	// DefaultConcurrency is the number of concurrent fetch workers
	// across all domains. Four workers keep a multi-site crawl moving
	// without looking like a scraper burst to any single origin.
	DefaultConcurrency = 4

	// DefaultDomainConcurrency is the number of in-flight requests
	// allowed per domain. One request at a time per origin is the
	// politest setting and makes the delay accounting exact.
	DefaultDomainConcurrency = 1

	// DefaultCrawlDelay is the minimum interval between two requests
	// to the same domain.
	DefaultCrawlDelay = 3 * time.Second

	// DefaultCrawlJitter is the upper bound of the random extra delay
	// added to each politeness wait. Randomized spacing avoids the
	// metronome request pattern that rate limiters key on.
	DefaultCrawlJitter = 5 * time.Second

	// DefaultRateRequests caps requests per domain per window. The cap
	// sits over the delay clock as a ceiling: it only binds when delay
	// and jitter are tuned down, for example against a staging host.
	DefaultRateRequests = 60

	// DefaultRateWindow is the window for the per-domain request cap.
	DefaultRateWindow = time.Minute

	// DefaultMaxRetries is the number of retries after a transient
	// fetch failure. Two retries give three total attempts per URL,
	// which clears most load balancer hiccups without hammering a
	// genuinely unhealthy origin.
	DefaultMaxRetries = 2

	// DefaultRetryBaseDelay is the backoff before the first retry.
	// Subsequent retries double the delay.
	DefaultRetryBaseDelay = 2 * time.Second

	// DefaultRetryMaxDelay caps the exponential backoff growth.
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultMaxLinksPerPage is the number of extracted links a single
	// page may add to the frontier. Pagination and listing links are
	// kept first when the budget truncates, so coverage degrades toward
	// breadth rather than randomness.
	DefaultMaxLinksPerPage = 50

	// DefaultFrontierCapacity bounds the pending queue per crawl.
	// When the frontier is full, new normal-priority links are shed
	// first, keeping memory flat on link-dense storefronts.
	DefaultFrontierCapacity = 10000

	// DefaultRequestTimeout is the per-request timeout for plain HTTP
	// fetches.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultRenderTimeout is the per-page timeout when fetching
	// through a headless browser. Rendering waits for scripts and
	// lazy-loaded content, so it needs more headroom than a plain GET.
	DefaultRenderTimeout = 60 * time.Second

	// DefaultMaxBodySize is the response body cap in bytes. Product
	// and listing markup fits comfortably in 5MB; anything larger is
	// almost always a mislabeled binary.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultParallelSites is the number of sites crawled concurrently
	// in batch mode.
	DefaultParallelSites = 1
)

// Config holds the crawl settings.
//
// Design decision: Configuration uses a flat struct with explicit fields
// rather than a map or interface-based approach because:
//  1. Type safety at compile time
//  2. Clear documentation of available options
//  3. Easy defaults and validation in one place
type Config struct {
	// Seeds are the start URLs, one crawl root per domain.
	Seeds []string
	// SitesFilePath is an explicit sites file path. Empty means search
	// the default locations.
	SitesFilePath string
	// Sites holds per-domain overrides loaded from the sites file.
	Sites *File
	// MaxPages is the per-domain page budget.
	MaxPages int
	// CrawlDepth is the maximum link depth from the seed.
	CrawlDepth int
	// Concurrency is the number of fetch workers across all domains.
	Concurrency int
	// DomainConcurrency is the in-flight request cap per domain.
	DomainConcurrency int
	// CrawlDelay is the minimum interval between requests to one domain.
	CrawlDelay time.Duration
	// CrawlJitter is the upper bound of the random extra delay per request.
	CrawlJitter time.Duration
	// RateRequests caps requests per domain per RateWindow. Zero disables
	// the cap and leaves spacing to the delay clock alone.
	RateRequests int
	// RateWindow is the window for RateRequests.
	RateWindow time.Duration
	// MaxRetries is the number of retries after a transient fetch failure.
	MaxRetries int
	// RetryBaseDelay is the backoff before the first retry.
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the exponential backoff.
	RetryMaxDelay time.Duration
	// MaxLinksPerPage bounds how many links one page may enqueue.
	MaxLinksPerPage int
	// FrontierCapacity bounds the pending queue size.
	FrontierCapacity int
	// RequestTimeout is the per-request timeout for plain HTTP fetches.
	RequestTimeout time.Duration
	// RenderTimeout is the per-page timeout for headless browser fetches.
	RenderTimeout time.Duration
	// MaxBodySize is the response body cap in bytes.
	MaxBodySize int64
	// UserAgent overrides the rotating browser User-Agent pool when set.
	UserAgent string
	// Render fetches pages through a headless browser instead of plain
	// HTTP. Script-heavy storefronts only emit product links after
	// JavaScript runs.
	Render bool
	// RespectRobots honors robots.txt disallow rules when true.
	RespectRobots bool
	// Verbose enables debug logging.
	Verbose bool
	// JSONReport writes the report as JSON.
	JSONReport bool
	// MarkdownReport writes the report as Markdown.
	MarkdownReport bool
	// ExcelReport writes the report as an Excel workbook.
	ExcelReport bool
	// ReportFile is the report output path. Empty means stdout, except
	// for Excel which always needs a file.
	ReportFile string
	// SaveToDB archives crawled pages into the local SQLite database.
	SaveToDB bool
	// DBDir overrides the database directory. Empty means the XDG data
	// directory.
	DBDir string
	// ParallelSites is the number of sites crawled concurrently in
	// batch mode.
	ParallelSites int
}

// NewConfig returns a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:          DefaultMaxPages,
		CrawlDepth:        DefaultCrawlDepth,
		Concurrency:       DefaultConcurrency,
		DomainConcurrency: DefaultDomainConcurrency,
		CrawlDelay:        DefaultCrawlDelay,
		CrawlJitter:       DefaultCrawlJitter,
		RateRequests:      DefaultRateRequests,
		RateWindow:        DefaultRateWindow,
		MaxRetries:        DefaultMaxRetries,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		RetryMaxDelay:     DefaultRetryMaxDelay,
		MaxLinksPerPage:   DefaultMaxLinksPerPage,
		FrontierCapacity:  DefaultFrontierCapacity,
		RequestTimeout:    DefaultRequestTimeout,
		RenderTimeout:     DefaultRenderTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		RespectRobots:     true,
		ParallelSites:     DefaultParallelSites,
	}
}

// Validate checks the configuration for invalid values. It returns the
// first error found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.DomainConcurrency <= 0 {
		return ErrInvalidDomainConcurrency
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.CrawlJitter < 0 {
		return ErrInvalidCrawlJitter
	}
	if c.RateRequests < 0 || (c.RateRequests > 0 && c.RateWindow <= 0) {
		return ErrInvalidRateLimit
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return ErrInvalidRetryDelay
	}
	if c.MaxLinksPerPage <= 0 {
		return ErrInvalidMaxLinks
	}
	if c.FrontierCapacity <= 0 {
		return ErrInvalidFrontierCapacity
	}
	if c.RequestTimeout <= 0 || c.RenderTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ParallelSites <= 0 {
		return ErrInvalidParallelSites
	}
	formats := 0
	for _, enabled := range []bool{c.JSONReport, c.MarkdownReport, c.ExcelReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}
	if c.ExcelReport && c.ReportFile == "" {
		return ErrExcelRequiresFile
	}
	return nil
}

// SiteConfigFor returns the merged per-site settings for domain, or nil
// when no sites file is loaded.
func (c *Config) SiteConfigFor(domain string) *SiteConfig {
	if c.Sites == nil {
		return nil
	}
	site := c.Sites.GetSiteConfig(domain)
	return &site
}

// XDGDataDir returns the data directory for the application.
// e.g. ~/.local/share/shopscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory for the application.
// e.g. ~/.config/shopscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the cache directory for the application.
// e.g. ~/.cache/shopscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// DatabaseDir returns the directory that holds the crawl archive.
// An explicit DBDir wins over the XDG data directory.
func (c *Config) DatabaseDir() string {
	if c.DBDir != "" {
		return c.DBDir
	}
	return XDGDataDir()
}

// EnsureDir creates dir with owner-only group access if it does not
// exist yet.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0750)
}
