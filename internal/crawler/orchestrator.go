package crawler

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/shopscan/internal/classifier"
	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/fetcher"
	"github.com/nao1215/shopscan/internal/model"
	"github.com/nao1215/shopscan/internal/product"
	"github.com/nao1215/shopscan/internal/robots"
)

// platformScanLimit caps how much of a page body the per-page platform
// detection reads. Platform markers sit in the document head, and a
// full scan of every multi-megabyte listing would add up.
const platformScanLimit = 256 * 1024

// PageRecord is one visited page as handed to the archive.
type PageRecord struct {
	// Domain is the host the page belongs to.
	Domain string
	// URL is the normalized URL that was dispatched.
	URL string
	// FinalURL is the URL after redirects.
	FinalURL string
	// Depth is the link distance from the seed.
	Depth int
	// Category is the task's scheduling class.
	Category model.Category
	// Product is true when the URL classified as a product page.
	Product bool
	// StatusCode is the HTTP response status.
	StatusCode int
	// Title is the page or product title, when available.
	Title string
	// Price is the extracted product price, when available.
	Price string
	// Currency is the extracted currency code, when available.
	Currency string
	// Image is the extracted product image URL, when available.
	Image string
	// Platform is the shop platform detected on this page.
	Platform model.ShopPlatform
	// Hash is the SHA-256 of the page body.
	Hash string
	// Rendered is true when a headless browser produced the page.
	Rendered bool
	// FetchedAt is when the page was fetched.
	FetchedAt time.Time
}

// PageSink receives every successfully fetched page, typically for
// archival. Implementations must be safe for concurrent use.
type PageSink interface {
	RecordPage(ctx context.Context, rec PageRecord) error
}

// Orchestrator runs the crawl: it owns the per-domain frontiers and
// state, dispatches tasks to the fetch capability under global and
// per-domain concurrency caps, applies politeness and retry, and
// expands discovered links into new tasks.
//
// Design decision: One orchestrator drives all domains rather than one
// crawler object per site because:
//  1. The global in-flight cap spans domains, so something must see all
//     of them at once
//  2. Per-domain state lives in the shared store, which makes the final
//     snapshot one read instead of a merge
//  3. Shutdown is a single flag observed by every worker
type Orchestrator struct {
	cfg      *config.Config
	fetch    fetcher.Fetcher
	classify *classifier.Classifier
	robots   *robots.Agent
	products *product.Extractor
	sink     PageSink
	logger   *slog.Logger

	store     *StateStore
	collector *Collector
	retry     RetryPolicy

	// fetchSlots bounds in-flight fetches across all domains.
	fetchSlots chan struct{}

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	// report is the report of the active run. Run is single-use.
	report   *model.RunReport
	reportMu sync.Mutex
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRobots gates dispatch through a robots.txt agent.
func WithRobots(agent *robots.Agent) OrchestratorOption {
	return func(o *Orchestrator) {
		o.robots = agent
	}
}

// WithProductExtractor enables product metadata enrichment and platform
// detection on fetched pages.
func WithProductExtractor(e *product.Extractor) OrchestratorOption {
	return func(o *Orchestrator) {
		o.products = e
	}
}

// WithPageSink archives every fetched page through the sink.
func WithPageSink(sink PageSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates a crawl orchestrator. The fetcher and
// classifier are required; robots gating, product enrichment, and
// archival are optional.
func NewOrchestrator(cfg *config.Config, fetch fetcher.Fetcher, classify *classifier.Classifier, opts ...OrchestratorOption) (*Orchestrator, error) {
	if fetch == nil {
		return nil, ErrNilFetcher
	}
	if classify == nil {
		return nil, ErrNilClassifier
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	slots := cfg.Concurrency
	if slots <= 0 {
		slots = 1
	}

	store := NewStateStore()
	o := &Orchestrator{
		cfg:        cfg,
		fetch:      fetch,
		classify:   classify,
		logger:     slog.Default(),
		store:      store,
		collector:  NewCollector(store),
		retry:      NewRetryPolicy(cfg),
		fetchSlots: make(chan struct{}, slots),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run crawls from the given seeds until every domain drains, hits its
// page cap, or the run is shut down. The returned report is always
// best effort: per-domain failures are recorded in it, not returned.
// Run is single-use; create a new orchestrator for another run.
func (o *Orchestrator) Run(ctx context.Context, seeds []model.Seed) (*model.RunReport, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeedTasks
	}

	urls := make([]string, 0, len(seeds))
	order := make([]string, 0, len(seeds))
	byDomain := make(map[string][]model.CrawlTask)
	for _, seed := range seeds {
		if seed.IsZero() {
			continue
		}
		urls = append(urls, seed.URL())
		if _, ok := byDomain[seed.Domain()]; !ok {
			order = append(order, seed.Domain())
		}
		byDomain[seed.Domain()] = append(byDomain[seed.Domain()], seed.Task())
	}
	if len(order) == 0 {
		return nil, ErrNoSeedTasks
	}

	o.report = model.NewRunReport(urls)
	o.logger.Info("starting crawl", "domains", len(order), "seeds", len(urls))

	var wg sync.WaitGroup
	for _, domain := range order {
		dc := o.newDomainCrawl(domain, byDomain[domain], o.report.Domain(domain))
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.crawlDomain(ctx, dc)
		}()
	}
	wg.Wait()

	o.report.FinishedAt = time.Now()
	o.report.Result = o.collector.Snapshot()
	o.report.Interrupted = o.isShutdown() || ctx.Err() != nil

	o.logger.Info("crawl finished",
		"domains", len(order),
		"pages", o.report.TotalPages(),
		"products", o.report.Result.TotalProducts(),
		"interrupted", o.report.Interrupted,
		"duration", o.report.Duration().Round(time.Millisecond),
	)
	return o.report, nil
}

// Shutdown stops the run cooperatively: workers stop dispatching new
// tasks and in-flight fetches finish on their own. Safe to call more
// than once and from any goroutine.
func (o *Orchestrator) Shutdown() {
	o.shutdownOnce.Do(func() {
		close(o.shutdownCh)
	})
}

// Snapshot returns the current domain to product-URL mapping. May be
// partial while a run is active.
func (o *Orchestrator) Snapshot() model.CrawlResult {
	return o.collector.Snapshot()
}

// isShutdown reports whether Shutdown has been called.
func (o *Orchestrator) isShutdown() bool {
	select {
	case <-o.shutdownCh:
		return true
	default:
		return false
	}
}

// stopped reports whether dispatch must halt.
func (o *Orchestrator) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || o.isShutdown()
}

// domainCrawl bundles everything one domain's dispatch loop needs.
type domainCrawl struct {
	domain string
	seeds  []model.CrawlTask

	frontier   *Frontier
	politeness *Politeness

	pageCap      int
	maxDepth     int
	maxLinks     int
	skipMarkers  []string
	ignoreRobots bool

	// template carries the per-site request settings; the URL is filled
	// in per task.
	template fetcher.Request

	// slots bounds in-flight tasks for this domain.
	slots chan struct{}
	// inflight counts dispatched tasks that have not finished.
	inflight atomic.Int64
	// completions wakes the dispatch loop when a task finishes.
	completions chan struct{}

	report  *model.DomainReport
	retries atomic.Int64
	dropped atomic.Int64

	failed atomic.Bool

	mu       sync.Mutex
	failErr  error
	platform model.ShopPlatform
}

// fail latches the domain's fatal failure. The first error wins.
func (dc *domainCrawl) fail(err error) {
	if dc.failed.CompareAndSwap(false, true) {
		dc.mu.Lock()
		dc.failErr = err
		dc.mu.Unlock()
	}
}

// failure returns the latched fatal error, if any.
func (dc *domainCrawl) failure() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.failErr
}

// setPlatform records the detected shop platform. The first detection
// wins; storefronts do not switch platforms mid-crawl.
func (dc *domainCrawl) setPlatform(p model.ShopPlatform) {
	if p == model.ShopPlatformUnknown {
		return
	}
	dc.mu.Lock()
	if dc.platform == model.ShopPlatformUnknown {
		dc.platform = p
	}
	dc.mu.Unlock()
}

// platformValue returns the detected shop platform.
func (dc *domainCrawl) platformValue() model.ShopPlatform {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.platform
}

// notifyDone signals the dispatch loop that a task finished. The
// buffered channel makes the signal lossy but never missed: one pending
// wakeup is enough for the loop to re-check its counters.
func (dc *domainCrawl) notifyDone() {
	select {
	case dc.completions <- struct{}{}:
	default:
	}
}

// siteSkips reports whether the URL matches a site-specific skip marker.
func (dc *domainCrawl) siteSkips(rawURL string) bool {
	if len(dc.skipMarkers) == 0 {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, marker := range dc.skipMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// newDomainCrawl resolves per-site settings and builds the domain's
// dispatch context.
func (o *Orchestrator) newDomainCrawl(domain string, seeds []model.CrawlTask, report *model.DomainReport) *domainCrawl {
	pageCap := o.cfg.MaxPages
	maxDepth := o.cfg.CrawlDepth
	delay := o.cfg.CrawlDelay
	jitter := o.cfg.CrawlJitter
	render := o.cfg.Render

	var template fetcher.Request
	var skips []string
	ignoreRobots := false

	if site := o.cfg.SiteConfigFor(domain); site != nil {
		if site.MaxPages > 0 {
			pageCap = site.MaxPages
		}
		if site.Depth > 0 {
			maxDepth = site.Depth
		}
		if !site.Delay.IsZero() {
			delay = site.Delay.Duration
		}
		if !site.Jitter.IsZero() {
			jitter = site.Jitter.Duration
		}
		switch site.Fetcher {
		case "render":
			render = true
		case "http":
			render = false
		}
		template.UserAgent = site.UserAgent
		template.Cookie = site.Cookie
		template.Headers = site.Headers
		for _, marker := range site.SkipMarkers {
			skips = append(skips, strings.ToLower(marker))
		}
		ignoreRobots = site.IgnoreRobots
	}
	template.Render = render

	slots := o.cfg.DomainConcurrency
	if slots <= 0 {
		slots = 1
	}

	return &domainCrawl{
		domain: domain,
		seeds:  seeds,
		frontier: NewFrontier(o.cfg.FrontierCapacity, maxDepth, func(url string) bool {
			return o.store.Visited(domain, url)
		}),
		politeness: NewPolitenessWithCeiling(delay, jitter, RateCeiling{
			Requests: o.cfg.RateRequests,
			Window:   o.cfg.RateWindow,
		}),
		pageCap:      pageCap,
		maxDepth:     maxDepth,
		maxLinks:     o.cfg.MaxLinksPerPage,
		skipMarkers:  skips,
		ignoreRobots: ignoreRobots,
		template:     template,
		slots:        make(chan struct{}, slots),
		completions:  make(chan struct{}, 1),
		report:       report,
	}
}

// crawlDomain is the dispatch loop for one domain. It runs until the
// frontier drains with nothing in flight, the page cap is reached, the
// fetch mechanism fails, or the run stops.
func (o *Orchestrator) crawlDomain(ctx context.Context, dc *domainCrawl) {
	if o.robots != nil && dc.ignoreRobots {
		o.robots.Override(dc.domain)
	}
	for _, seed := range dc.seeds {
		dc.frontier.Push(seed)
	}

	for {
		if o.stopped(ctx) || dc.failed.Load() || o.store.PagesVisited(dc.domain) >= dc.pageCap {
			if drained := dc.frontier.Drain(); len(drained) > 0 {
				o.logger.Debug("discarding queued tasks", "domain", dc.domain, "count", len(drained))
			}
			if dc.inflight.Load() == 0 {
				break
			}
			// In-flight tasks always notify on completion.
			<-dc.completions
			continue
		}

		task, attempt, ok := dc.frontier.Pop()
		if !ok {
			if dc.inflight.Load() == 0 {
				break
			}
			select {
			case <-dc.completions:
			case <-o.shutdownCh:
			case <-ctx.Done():
			}
			continue
		}

		select {
		case dc.slots <- struct{}{}:
		case <-o.shutdownCh:
			dc.frontier.PushRetry(task, attempt)
			continue
		case <-ctx.Done():
			dc.frontier.PushRetry(task, attempt)
			continue
		}
		dc.inflight.Add(1)
		go o.runTask(ctx, dc, task, attempt)
	}

	o.finishDomain(dc)
}

// finishDomain copies the domain's final statistics into its report.
func (o *Orchestrator) finishDomain(dc *domainCrawl) {
	dc.report.PagesVisited = o.store.PagesVisited(dc.domain)
	dc.report.ProductsFound = o.store.ProductCount(dc.domain)
	dc.report.Retries = int(dc.retries.Load())
	dc.report.Dropped = int(dc.dropped.Load())
	dc.report.Platform = dc.platformValue()
	if err := dc.failure(); err != nil {
		dc.report.Failed = true
		dc.report.Error = err.Error()
	}

	o.logger.Info("domain crawl finished",
		"domain", dc.domain,
		"pages", dc.report.PagesVisited,
		"products", dc.report.ProductsFound,
		"retries", dc.report.Retries,
		"dropped", dc.report.Dropped,
		"failed", dc.report.Failed,
	)
}

// runTask carries one task through fetch, link expansion, and retry.
func (o *Orchestrator) runTask(ctx context.Context, dc *domainCrawl, task model.CrawlTask, attempt int) {
	defer func() {
		<-dc.slots
		dc.inflight.Add(-1)
		dc.notifyDone()
	}()

	if attempt == 0 {
		if o.robots != nil && !o.robots.Allowed(ctx, task.URL) {
			o.logger.Debug("robots.txt disallows URL, skipping", "domain", dc.domain, "url", task.URL)
			return
		}

		switch res := o.store.Admit(dc.domain, task.URL, dc.pageCap); res {
		case AdmitAlreadyVisited, AdmitBudgetExhausted:
			o.logger.Debug("task not dispatched", "domain", dc.domain, "url", task.URL, "reason", res.String())
			return
		}

		if cls := o.classify.Classify(task.URL, dc.domain); cls.IsProduct {
			o.store.AddProduct(dc.domain, task.URL)
		}
	}

	if wait := o.store.ReserveFetch(dc.domain, dc.politeness); wait > 0 {
		if !o.sleep(ctx, wait) {
			return
		}
	}

	select {
	case o.fetchSlots <- struct{}{}:
	case <-o.shutdownCh:
		return
	case <-ctx.Done():
		return
	}

	req := dc.template
	req.URL = task.URL
	page, err := o.fetch.Fetch(ctx, req)
	<-o.fetchSlots

	if err != nil {
		o.handleFailure(ctx, dc, task, attempt, err)
		return
	}

	o.logger.Debug("fetched page",
		"domain", dc.domain,
		"url", task.URL,
		"status", page.StatusCode,
		"depth", task.Depth,
		"attempt", attempt,
		"latency_ms", page.Latency.Milliseconds(),
	)

	res := o.extractPage(dc, task, page)
	o.recordPage(ctx, dc, task, page, res)
	o.pushLinks(dc, task, res)
}

// handleFailure applies the error taxonomy to a failed fetch: init
// failures abandon the domain, transient errors retry with backoff
// until attempts run out, everything else drops the task.
func (o *Orchestrator) handleFailure(ctx context.Context, dc *domainCrawl, task model.CrawlTask, attempt int, err error) {
	if fetcher.IsInitFailure(err) {
		dc.fail(err)
		o.logger.Error("fetch mechanism failed to initialize, abandoning domain",
			"domain", dc.domain, "error", err)
		return
	}
	if ctx.Err() != nil || o.isShutdown() {
		return
	}

	if o.retry.ShouldRetry(attempt, err) {
		dc.retries.Add(1)
		backoff := o.retry.Backoff(attempt)
		o.logger.Debug("retrying after transient failure",
			"domain", dc.domain, "url", task.URL, "attempt", attempt+1, "backoff", backoff, "error", err)
		if backoff > 0 && !o.sleep(ctx, backoff) {
			return
		}
		if !dc.frontier.PushRetry(task, attempt+1) {
			dc.dropped.Add(1)
		}
		return
	}

	dc.dropped.Add(1)
	o.logger.Warn("dropping task",
		"domain", dc.domain, "url", task.URL, "attempts", attempt+1, "error", err)
}

// extractPage parses the fetched page for its title and links. Returns
// nil when the body cannot be parsed; the page still counts as visited.
func (o *Orchestrator) extractPage(dc *domainCrawl, task model.CrawlTask, page *model.Page) *fetcher.ExtractResult {
	base := page.FinalURL
	if base == "" {
		base = task.URL
	}
	extractor, err := fetcher.NewLinkExtractor(base)
	if err != nil {
		o.logger.Debug("link extraction skipped", "url", task.URL, "error", err)
		return nil
	}
	res, err := extractor.Extract(bytes.NewReader(page.Body))
	if err != nil {
		o.logger.Debug("link extraction failed", "url", task.URL, "error", err)
		return nil
	}
	return res
}

// recordPage enriches product pages with metadata, tracks the domain's
// shop platform, and hands the page to the archive sink.
func (o *Orchestrator) recordPage(ctx context.Context, dc *domainCrawl, task model.CrawlTask, page *model.Page, res *fetcher.ExtractResult) {
	isProduct := o.store.IsProduct(dc.domain, task.URL)

	title := ""
	if res != nil {
		title = res.Title
	}

	var meta product.Metadata
	if o.products != nil {
		if isProduct {
			meta = o.products.Extract(page)
			dc.setPlatform(meta.Platform)
			if meta.Title != "" {
				title = meta.Title
			}
			o.appendProduct(model.ProductRecord{
				Domain:   dc.domain,
				URL:      task.URL,
				Title:    meta.Title,
				Price:    meta.Price,
				Currency: meta.Currency,
				Image:    meta.Image,
			})
		} else if dc.platformValue() == model.ShopPlatformUnknown {
			scan := page.Body
			if len(scan) > platformScanLimit {
				scan = scan[:platformScanLimit]
			}
			dc.setPlatform(product.DetectPlatform(scan))
		}
	}

	if o.sink == nil {
		return
	}
	rec := PageRecord{
		Domain:     dc.domain,
		URL:        task.URL,
		FinalURL:   page.FinalURL,
		Depth:      task.Depth,
		Category:   task.Category,
		Product:    isProduct,
		StatusCode: page.StatusCode,
		Title:      title,
		Price:      meta.Price,
		Currency:   meta.Currency,
		Image:      meta.Image,
		Platform:   dc.platformValue(),
		Hash:       page.Hash,
		Rendered:   page.Rendered,
		FetchedAt:  page.FetchedAt,
	}
	if err := o.sink.RecordPage(ctx, rec); err != nil {
		o.logger.Warn("archive write failed", "url", task.URL, "error", err)
	}
}

// appendProduct adds a product record to the run report.
func (o *Orchestrator) appendProduct(rec model.ProductRecord) {
	o.reportMu.Lock()
	o.report.Products = append(o.report.Products, rec)
	o.reportMu.Unlock()
}

// pushLinks classifies the page's same-domain links and queues them at
// the next depth, bounded by the per-page expansion cap.
func (o *Orchestrator) pushLinks(dc *domainCrawl, task model.CrawlTask, res *fetcher.ExtractResult) {
	if res == nil || task.Depth+1 > dc.maxDepth {
		return
	}

	tasks := o.selectLinks(dc, task, res.Links)
	pushed := 0
	for _, t := range tasks {
		if dc.frontier.Push(t) {
			pushed++
		}
	}
	o.logger.Debug("expanded links",
		"domain", dc.domain, "url", task.URL, "discovered", len(res.Links), "queued", pushed)
}

// selectLinks classifies candidate links and keeps at most maxLinks of
// them, preferring pagination, then priority, then normal, in document
// order within each class.
func (o *Orchestrator) selectLinks(dc *domainCrawl, parent model.CrawlTask, links []string) []model.CrawlTask {
	var byRank [3][]model.CrawlTask
	for _, link := range links {
		if model.DomainOf(link) != dc.domain {
			continue
		}
		if o.classify.ShouldSkip(link) || dc.siteSkips(link) {
			continue
		}
		cls := o.classify.Classify(link, dc.domain)
		t := model.CrawlTask{
			URL:      link,
			Domain:   dc.domain,
			Depth:    parent.Depth + 1,
			Category: cls.Category,
		}
		byRank[cls.Category.Rank()] = append(byRank[cls.Category.Rank()], t)
	}

	selected := make([]model.CrawlTask, 0, dc.maxLinks)
	for rank := len(byRank) - 1; rank >= 0; rank-- {
		for _, t := range byRank[rank] {
			if len(selected) >= dc.maxLinks {
				return selected
			}
			selected = append(selected, t)
		}
	}
	return selected
}

// sleep waits cooperatively. Returns false when the run stopped before
// the wait elapsed.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-o.shutdownCh:
		return false
	case <-ctx.Done():
		return false
	}
}
