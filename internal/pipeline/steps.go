package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/shopscan/internal/crawler"
	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/report"
)

// CrawlStep runs the crawl engine over the run's seeds.
//
// Design decision: The step wraps a pre-built orchestrator rather than
// constructing one because:
// 1. The caller needs the orchestrator handle for signal-driven shutdown
// 2. Fetcher construction can fail (browser startup) and belongs with
//    the caller's error handling, not mid-pipeline
// 3. One orchestrator already fans out across all seed domains
type CrawlStep struct {
	// orch is the crawl engine to run.
	orch *crawler.Orchestrator

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawl step around the given orchestrator.
func NewCrawlStep(orch *crawler.Orchestrator, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		orch:   orch,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl and stores the report on the run.
func (s *CrawlStep) Do(ctx context.Context, run *Run) error {
	rpt, err := s.orch.Run(ctx, run.Seeds)
	if rpt != nil {
		run.Report = rpt
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	s.logger.Info("crawl completed",
		"pages", rpt.TotalPages(),
		"products", rpt.Result.TotalProducts(),
		"interrupted", rpt.Interrupted,
	)
	return nil
}

// ArchiveStep finalizes the run's archive row with the finished report.
// The row itself is created before the crawl so the page sink can stream
// into it; this step only closes it out.
type ArchiveStep struct {
	// db is the crawl archive. Nil disables archiving.
	db *database.CrawlDB

	// logger for structured logging.
	logger *slog.Logger
}

// ArchiveStepOption configures an ArchiveStep.
type ArchiveStepOption func(*ArchiveStep)

// WithArchiveLogger sets a custom logger for the archive step.
func WithArchiveLogger(logger *slog.Logger) ArchiveStepOption {
	return func(s *ArchiveStep) {
		s.logger = logger
	}
}

// NewArchiveStep creates a new archive step.
func NewArchiveStep(db *database.CrawlDB, opts ...ArchiveStepOption) *ArchiveStep {
	s := &ArchiveStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return "archive"
}

// Do records the finished report against the run's archive row.
func (s *ArchiveStep) Do(ctx context.Context, run *Run) error {
	if s.db == nil || run.RunID == 0 {
		s.logger.Debug("skipping archive, no database configured")
		return nil
	}
	if run.Report == nil {
		s.logger.Debug("skipping archive, no report to store")
		return nil
	}

	if err := s.db.FinishRun(ctx, run.RunID, run.Report); err != nil {
		return fmt.Errorf("failed to archive run: %w", err)
	}

	s.logger.Info("run archived", "run_id", run.RunID)
	return nil
}

// ReportStep renders the finished report through a writer. The writer is
// typically a MultiWriter fanning out to the terminal and result files.
type ReportStep struct {
	// writer receives the finished report.
	writer report.Writer

	// logger for structured logging.
	logger *slog.Logger
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithReportLogger sets a custom logger for the report step.
func WithReportLogger(logger *slog.Logger) ReportStepOption {
	return func(s *ReportStep) {
		s.logger = logger
	}
}

// NewReportStep creates a new report step.
func NewReportStep(w report.Writer, opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{
		writer: w,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the run's report.
func (s *ReportStep) Do(_ context.Context, run *Run) error {
	if s.writer == nil || run.Report == nil {
		s.logger.Debug("skipping report, nothing to write")
		return nil
	}

	n, err := s.writer.Write(run.Report)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.Debug("report written", "bytes", n)
	return nil
}
