package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoSeeds is returned when no seed URL is available from either
	// positional arguments or the sites file.
	ErrNoSeeds = errors.New("no seeds specified: provide a URL or a sites file with url entries")

	// ErrInvalidMaxPages is returned when the per-domain page budget is not
	// positive. A budget of zero would end every crawl before the seed.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidCrawlDepth is returned when the crawl depth is negative.
	// A depth of zero is valid and crawls only the seed pages.
	ErrInvalidCrawlDepth = errors.New("invalid crawl depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	// Zero workers would mean no fetches at all, effectively stopping the crawl.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidDomainConcurrency is returned when the per-domain in-flight
	// cap is not positive. Every domain needs at least one request slot.
	ErrInvalidDomainConcurrency = errors.New("invalid domain concurrency: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// A negative delay is invalid; use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidCrawlJitter is returned when the jitter bound is negative.
	// A negative bound is invalid; use 0 for fixed request spacing.
	ErrInvalidCrawlJitter = errors.New("invalid crawl jitter: must be non-negative")

	// ErrInvalidRateLimit is returned when the request cap is negative or
	// has no window. Use 0 requests to disable the cap.
	ErrInvalidRateLimit = errors.New("invalid rate limit: requests must be non-negative and need a positive window")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	// Zero retries is valid and drops a URL on its first transient failure.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidRetryDelay is returned when the backoff bounds are not
	// positive or the cap sits below the base delay.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: base must be positive and max must not be below base")

	// ErrInvalidMaxLinks is returned when the per-page link budget is not
	// positive. Every expanded page must be allowed to enqueue something.
	ErrInvalidMaxLinks = errors.New("invalid max links per page: must be positive")

	// ErrInvalidFrontierCapacity is returned when the pending queue bound
	// is not positive.
	ErrInvalidFrontierCapacity = errors.New("invalid frontier capacity: must be positive")

	// ErrInvalidTimeout is returned when a request or render timeout is not
	// positive. A timeout of zero or negative would cause immediate failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the response body cap is not
	// positive. An unbounded body read would let one page exhaust memory.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidParallelSites is returned when the batch site parallelism
	// is not positive.
	ErrInvalidParallelSites = errors.New("invalid parallel sites: must be positive")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown, and --excel is specified. Only one output format can be
	// used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: choose one of --json, --markdown, --excel")

	// ErrExcelRequiresFile is returned when an Excel report is requested
	// without an output path. Workbooks are binary and never go to stdout.
	ErrExcelRequiresFile = errors.New("excel report requires an output file: use --output")
)
