package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/shopscan/internal/classifier"
	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/crawler"
	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/fetcher"
	"github.com/nao1215/shopscan/internal/log"
	"github.com/nao1215/shopscan/internal/model"
	"github.com/nao1215/shopscan/internal/pipeline"
	"github.com/nao1215/shopscan/internal/product"
	"github.com/nao1215/shopscan/internal/report"
	"github.com/nao1215/shopscan/internal/robots"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl storefronts and collect product page URLs",
		Long: `Crawl visits one or more e-commerce storefronts and collects product
page URLs.

Starting from each seed, it follows category and pagination links,
classifies URLs by shape and pages by markup, and reports the product
URLs it found per domain. Crawls stay polite: one request at a time per
domain with a randomized delay, honoring robots.txt.

Seeds come from the command line or from the sites file (.shopscan).
Every run is archived in a local database for 'shopscan compare'.

Examples:
  # Crawl a single storefront
  shopscan crawl https://www.example-shop.com

  # Crawl the sites listed in the .shopscan sites file
  shopscan crawl

  # Crawl a script-heavy storefront through a headless browser
  shopscan crawl --render https://www.example-shop.com

  # Crawl several sites concurrently and write a JSON report
  shopscan crawl --parallel-sites 4 --json -o report.json

  # Use a specific sites file
  shopscan crawl -s mysites.yaml

Sites file (.shopscan) example:
  defaults:
    delay: 3s
  sites:
    www.example-shop.com:
      url: https://www.example-shop.com/
      fetcher: render
      max_pages: 500`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link depth from the seed")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per domain")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between two requests to the same domain")
	cmd.Flags().Duration("jitter", config.DefaultCrawlJitter,
		"Upper bound of the random extra delay per request")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of concurrent fetch workers across all domains")
	cmd.Flags().BoolP("render", "r", false,
		"Fetch pages through a headless browser (for script-heavy storefronts)")
	cmd.Flags().String("user-agent", "",
		"Override the rotating browser User-Agent pool")
	cmd.Flags().Bool("ignore-robots", false,
		"Skip robots.txt checks")

	// Batch crawling flags
	cmd.Flags().IntP("parallel-sites", "b", config.DefaultParallelSites,
		"Number of sites crawled concurrently")

	// Sites file
	cmd.Flags().StringP("sites", "s", "",
		"Sites file path (default: .shopscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --excel)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --excel)")
	cmd.Flags().BoolP("excel", "x", false,
		"Write an Excel product sheet (requires --output)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Archive flags
	cmd.Flags().Bool("no-archive", false,
		"Skip archiving the run to the local database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging. The secure handler masks cookies and
	// authorization headers so site credentials never reach the logs.
	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	return runCrawl(ctx, cancel, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.CrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.CrawlJitter, err = cmd.Flags().GetDuration("jitter")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Render, err = cmd.Flags().GetBool("render")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	ignoreRobots, err := cmd.Flags().GetBool("ignore-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !ignoreRobots

	cfg.ParallelSites, err = cmd.Flags().GetInt("parallel-sites")
	if err != nil {
		return nil, err
	}

	cfg.SitesFilePath, err = cmd.Flags().GetString("sites")
	if err != nil {
		return nil, err
	}

	// Load per-site settings from the sites file.
	// If user explicitly specified a sites file path, error if not found.
	// If no path specified, silently use empty settings if no file found.
	explicitSitesPath := cfg.SitesFilePath != ""
	sitesPath := config.FindSitesFile(cfg.SitesFilePath)

	if sitesPath != "" {
		cfg.Sites, err = config.LoadSitesFile(sitesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load sites file %s: %w", sitesPath, err)
		}
	} else if explicitSitesPath {
		// User explicitly specified a sites file that doesn't exist
		return nil, fmt.Errorf("sites file not found: %s", cfg.SitesFilePath)
	} else {
		// Use empty settings if no file found and user didn't explicitly
		// specify one
		cfg.Sites = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ExcelReport, err = cmd.Flags().GetBool("excel")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noArchive, err := cmd.Flags().GetBool("no-archive")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noArchive
	cfg.DBDir = config.XDGDataDir()

	cfg.Verbose = getVerboseFlag(cmd)

	// Seeds come from positional arguments, falling back to the sites file
	if len(args) > 0 {
		cfg.Seeds = args
	} else {
		cfg.Seeds = cfg.Sites.SeedURLs()
	}

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *slog.Logger) error {
	seeds, err := resolveSeeds(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"render", cfg.Render,
		"parallelSites", cfg.ParallelSites,
		"saveToDB", cfg.SaveToDB,
	)

	// Open the crawl archive if saving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DatabaseDir(), database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("crawl archive opened", "dir", cfg.DatabaseDir())
	}

	// Use the batch runner for concurrent site crawling if requested
	if cfg.ParallelSites > 1 && len(seeds) > 1 {
		return runBatchCrawl(ctx, cancel, cfg, db, logger, seeds)
	}

	// Single orchestrator run covering all seeds
	return runSingleCrawl(ctx, cancel, cfg, db, logger, seeds)
}

// resolveSeeds validates and normalizes the configured seed URLs.
func resolveSeeds(cfg *config.Config) ([]model.Seed, error) {
	seeds := make([]model.Seed, 0, len(cfg.Seeds))
	for _, raw := range cfg.Seeds {
		seed, err := model.NewSeed(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid seed URL %q: %w", raw, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// seedURLStrings returns the normalized URL of each seed.
func seedURLStrings(seeds []model.Seed) []string {
	urls := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		urls = append(urls, seed.URL())
	}
	return urls
}

// notifyShutdown installs the interrupt handler. The first signal runs
// stop so the crawl can wind down and still archive and report what it
// collected. A second signal cancels the context outright. The returned
// function removes the handler.
func notifyShutdown(cancel context.CancelFunc, logger *slog.Logger, stop func()) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping crawl...")
			stop()
		case <-done:
			return
		}
		select {
		case <-sigCh:
			logger.Info("received second shutdown signal, aborting")
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// runSingleCrawl crawls all seeds through one orchestrator run.
func runSingleCrawl(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger, seeds []model.Seed) error {
	// Begin the archive row before the crawl so pages stream into the
	// database while the run is still in flight.
	var sink crawler.PageSink
	var runID int64
	if db != nil {
		id, err := db.BeginRun(ctx, seedURLStrings(seeds))
		if err != nil {
			return fmt.Errorf("failed to begin archive run: %w", err)
		}
		runID = id
		sink = db.Sink(runID)
	}

	orch, cleanup, err := buildOrchestrator(cfg, seeds, sink, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// The first interrupt stops dispatch and lets in-flight fetches
	// finish, so the partial report still reaches the archive and the
	// report writers.
	stopNotify := notifyShutdown(cancel, logger, orch.Shutdown)
	defer stopNotify()

	writer, closeWriter, err := buildReportWriter(cfg)
	if err != nil {
		return err
	}
	defer closeWriter()

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(
		pipeline.NewCrawlStep(orch, pipeline.WithCrawlLogger(logger)),
		pipeline.NewArchiveStep(db, pipeline.WithArchiveLogger(logger)),
		pipeline.NewReportStep(writer, pipeline.WithReportLogger(logger)),
	)

	run := &pipeline.Run{
		Config: cfg,
		Seeds:  seeds,
		RunID:  runID,
	}

	domains := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		domains = append(domains, seed.Domain())
	}
	fmt.Printf("Crawling %s...\n\n", strings.Join(domains, ", "))
	startTime := time.Now()

	if err := p.Execute(ctx, run); err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	fmt.Printf("\nCrawl completed in %s\n", elapsed.Round(time.Millisecond))

	return nil
}

// runBatchCrawl crawls each seed through its own pipeline with bounded
// concurrency. All sites share one archive run, finalized after the
// per-site reports are merged.
func runBatchCrawl(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger, seeds []model.Seed) error {
	stopNotify := notifyShutdown(cancel, logger, cancel)
	defer stopNotify()

	var sink crawler.PageSink
	var runID int64
	if db != nil {
		id, err := db.BeginRun(ctx, seedURLStrings(seeds))
		if err != nil {
			return fmt.Errorf("failed to begin archive run: %w", err)
		}
		runID = id
		sink = db.Sink(runID)
	}

	fmt.Printf("Starting batch crawl of %d sites (parallel: %d)...\n\n",
		len(seeds), cfg.ParallelSites)
	startTime := time.Now()

	// Per-site pipelines may each start a headless browser; release
	// them after the whole batch finishes.
	var mu sync.Mutex
	var cleanups []func()
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	factory := func(seed model.Seed) (*pipeline.Pipeline, *pipeline.Run, error) {
		orch, cleanup, err := buildOrchestrator(cfg, []model.Seed{seed}, sink, logger)
		if err != nil {
			return nil, nil, err
		}
		mu.Lock()
		cleanups = append(cleanups, cleanup)
		mu.Unlock()

		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddStep(pipeline.NewCrawlStep(orch, pipeline.WithCrawlLogger(logger)))

		run := &pipeline.Run{
			Config: cfg,
			Seeds:  []model.Seed{seed},
			RunID:  runID,
		}
		return p, run, nil
	}

	br := pipeline.NewBatchRunner(factory,
		pipeline.WithConcurrency(cfg.ParallelSites),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	reports := make([]*model.RunReport, len(seeds))
	var outMu sync.Mutex
	err := br.ProcessWithCallback(ctx, seeds, func(rpt *model.RunReport, index int) {
		outMu.Lock()
		defer outMu.Unlock()

		reports[index] = rpt
		fmt.Printf("[%d/%d] %s: %d pages, %d product URLs\n",
			index+1, len(seeds), seeds[index].Domain(),
			rpt.TotalPages(), rpt.Result.TotalProducts())
	})

	merged := pipeline.MergeReports(seeds, reports)
	if err != nil {
		merged.Interrupted = true
	}

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch crawl completed in %s\n\n", elapsed.Round(time.Millisecond))

	// Finalize with a detached context so an interrupt still archives
	// what the crawl collected.
	finCtx := context.WithoutCancel(ctx)
	if db != nil {
		if ferr := db.FinishRun(finCtx, runID, merged); ferr != nil {
			logger.Error("failed to archive run", "error", ferr)
		}
	}

	writer, closeWriter, werr := buildReportWriter(cfg)
	if werr != nil {
		return werr
	}
	defer closeWriter()
	if _, werr := writer.Write(merged); werr != nil {
		logger.Error("failed to write report", "error", werr)
	}

	return err
}

// buildOrchestrator assembles the fetch, classification, and robots
// components for one crawl over the given seeds. The returned cleanup
// releases the headless browser when one was started.
func buildOrchestrator(cfg *config.Config, seeds []model.Seed, sink crawler.PageSink, logger *slog.Logger) (*crawler.Orchestrator, func(), error) {
	httpFetcher := fetcher.NewHTTPFetcher(cfg, logger)

	cleanup := func() {}
	var fetch fetcher.Fetcher = httpFetcher
	if needsRenderer(cfg, seeds) {
		renderer := fetcher.NewRenderFetcher(cfg, logger)
		fetch = fetcher.NewComposite(httpFetcher, renderer, logger)
		cleanup = renderer.Close
	}

	classify, err := buildClassifier(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []crawler.OrchestratorOption{
		crawler.WithOrchestratorLogger(logger),
		crawler.WithProductExtractor(product.NewExtractor(logger)),
	}
	if cfg.RespectRobots {
		opts = append(opts, crawler.WithRobots(robots.NewAgent(cfg, httpFetcher.Client(), logger)))
	}
	if sink != nil {
		opts = append(opts, crawler.WithPageSink(sink))
	}

	orch, err := crawler.NewOrchestrator(cfg, fetch, classify, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return orch, cleanup, nil
}

// needsRenderer reports whether any crawled domain can ask for a
// headless browser fetch. Site overrides can turn rendering on for a
// single domain even when the global flag is off.
func needsRenderer(cfg *config.Config, seeds []model.Seed) bool {
	if cfg.Render {
		return true
	}
	for _, seed := range seeds {
		if site := cfg.SiteConfigFor(seed.Domain()); site != nil && site.Fetcher == "render" {
			return true
		}
	}
	return false
}

// buildClassifier creates the URL classifier with any extra patterns
// from the sites file layered on top of the built-in rule tables. Only
// product patterns are keyed by domain; a site's extra pagination
// patterns and markers join the global tables.
func buildClassifier(cfg *config.Config) (*classifier.Classifier, error) {
	var opts []classifier.Option
	if cfg.Sites != nil {
		defaults := cfg.Sites.Defaults
		if len(defaults.ProductPatterns) > 0 {
			opts = append(opts, classifier.WithProductPatterns(defaults.ProductPatterns))
		}
		if len(defaults.PaginationPatterns) > 0 {
			opts = append(opts, classifier.WithPaginationPatterns(defaults.PaginationPatterns))
		}
		if len(defaults.PriorityMarkers) > 0 {
			opts = append(opts, classifier.WithPriorityMarkers(defaults.PriorityMarkers))
		}
		if len(defaults.SkipMarkers) > 0 {
			opts = append(opts, classifier.WithSkipMarkers(defaults.SkipMarkers))
		}

		for domain, site := range cfg.Sites.Sites {
			if len(site.ProductPatterns) > 0 {
				opts = append(opts, classifier.WithDomainPatterns(domain, site.ProductPatterns))
			}
			if len(site.PaginationPatterns) > 0 {
				opts = append(opts, classifier.WithPaginationPatterns(site.PaginationPatterns))
			}
			if len(site.PriorityMarkers) > 0 {
				opts = append(opts, classifier.WithPriorityMarkers(site.PriorityMarkers))
			}
		}
	}
	return classifier.NewClassifier(opts...)
}

// buildReportWriter assembles the report output for one run. When the
// report goes to a file the console still gets the summary.
func buildReportWriter(cfg *config.Config) (report.Writer, func(), error) {
	cleanup := func() {}
	output := io.Writer(os.Stdout)

	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions.
		// Crawl output can reveal which sites an operator watches.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		cleanup = func() { f.Close() }
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	case cfg.ExcelReport:
		w = report.NewExcelWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if cfg.ReportFile != "" {
		w = report.NewMultiWriter(w, report.NewSimpleWriter(os.Stdout))
	}

	return w, cleanup, nil
}
