package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/shopscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchRunner handles concurrent crawling of multiple sites, one
// pipeline per seed. It uses errgroup to manage goroutines and respect
// concurrency limits.
//
// Design decision: We use a separate BatchRunner rather than feeding all
// seeds to one orchestrator because:
// 1. Each site gets its own fetch slot pool and, when configured, its
//    own browser; a renderer that fails to start poisons only its site
// 2. Per-site pipelines can differ (site-specific classifier patterns,
//    archive on or off)
// 3. It keeps the Pipeline focused on single-run execution
type BatchRunner struct {
	// factory creates a fresh pipeline and run for each seed.
	// We use a factory to ensure per-site state doesn't leak between runs.
	factory func(seed model.Seed) (*Pipeline, *Run, error)

	// concurrency is the maximum number of sites crawled at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed per-site reports.
	// Access is synchronized via mutex.
	results []*model.RunReport
	mu      sync.Mutex
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sites crawled concurrently.
// Default is 2 if not specified; site crawls are heavyweight, especially
// when each carries a headless browser.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a new BatchRunner.
//
// The factory function is called for each seed to create a fresh
// pipeline and run. Returning an error from the factory marks that
// site as failed without affecting the others.
func NewBatchRunner(factory func(seed model.Seed) (*Pipeline, *Run, error), opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		factory:     factory,
		concurrency: 2,
		results:     make([]*model.RunReport, 0),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Process crawls multiple sites concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each site gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns one report per seed in seed order, even for sites that failed.
// The error return indicates whether the batch was cancelled.
func (b *BatchRunner) Process(ctx context.Context, seeds []model.Seed) ([]*model.RunReport, error) {
	b.logger.Info("starting batch crawl",
		"total_sites", len(seeds),
		"parallel_sites", b.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain seed order
	b.results = make([]*model.RunReport, len(seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			b.logger.Info("crawling site",
				"domain", seed.Domain(),
				"index", i+1,
				"total", len(seeds),
			)

			b.store(i, b.runSite(ctx, seed))
			return nil
		})
	}

	// Wait for all site crawls to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	b.logger.Info("batch crawl complete",
		"total_sites", len(seeds),
		"elapsed", elapsed,
	)

	return b.results, err
}

// ProcessWithCallback crawls multiple sites and calls a callback for
// each completed site. This is useful for streaming results.
//
// The callback receives the report and the index of the seed in the
// original slice. The callback is called from the goroutine that
// completed the crawl, so it should be thread-safe if it accesses
// shared state.
func (b *BatchRunner) ProcessWithCallback(
	ctx context.Context,
	seeds []model.Seed,
	callback func(report *model.RunReport, index int),
) error {
	b.logger.Info("starting batch crawl with callback",
		"total_sites", len(seeds),
		"parallel_sites", b.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			callback(b.runSite(ctx, seed), i)
			return nil
		})
	}

	return g.Wait()
}

// runSite crawls one seed through its own pipeline. Failures are folded
// into the returned report so one broken site never aborts the batch.
func (b *BatchRunner) runSite(ctx context.Context, seed model.Seed) *model.RunReport {
	p, run, err := b.factory(seed)
	if err != nil {
		b.logger.Warn("site setup failed",
			"domain", seed.Domain(),
			"error", err,
		)
		return failedReport(seed, err)
	}

	execErr := p.Execute(ctx, run)
	if execErr != nil {
		b.logger.Warn("site crawl failed",
			"domain", seed.Domain(),
			"error", execErr,
		)
	}

	rpt := run.Report
	if rpt == nil {
		if execErr == nil {
			execErr = errors.New("pipeline produced no report")
		}
		return failedReport(seed, execErr)
	}

	b.logger.Info("site crawl completed",
		"domain", seed.Domain(),
		"products", rpt.Result.TotalProducts(),
	)
	return rpt
}

// store records a site's report at its seed index.
func (b *BatchRunner) store(i int, rpt *model.RunReport) {
	b.mu.Lock()
	b.results[i] = rpt
	b.mu.Unlock()
}

// failedReport builds a report for a site whose crawl never ran.
func failedReport(seed model.Seed, err error) *model.RunReport {
	rpt := model.NewRunReport([]string{seed.URL()})
	domain := rpt.Domain(seed.Domain())
	domain.Failed = true
	domain.Error = err.Error()
	rpt.FinishedAt = time.Now()
	return rpt
}

// MergeReports folds per-site reports into one combined run report.
// Domain statistics and product metadata are concatenated; the result
// mappings are merged and deduplicated. The combined report is
// interrupted if any site's crawl was.
func MergeReports(seeds []model.Seed, reports []*model.RunReport) *model.RunReport {
	urls := make([]string, len(seeds))
	for i, seed := range seeds {
		urls[i] = seed.URL()
	}

	combined := model.NewRunReport(urls)
	for _, rpt := range reports {
		if rpt == nil {
			continue
		}
		combined.Result.Merge(rpt.Result)
		for domain, d := range rpt.Domains {
			combined.Domains[domain] = d
		}
		combined.Products = append(combined.Products, rpt.Products...)
		if rpt.Interrupted {
			combined.Interrupted = true
		}
		if rpt.StartedAt.Before(combined.StartedAt) {
			combined.StartedAt = rpt.StartedAt
		}
	}
	combined.FinishedAt = time.Now()
	return combined
}
