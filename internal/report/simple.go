package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/shopscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether domains with no products are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full run report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	// Header
	w.writeHeader(&sb, report)

	// Per-domain statistics
	w.writeDomains(&sb, report)

	// Product URLs
	w.writeProducts(&sb, report.Result, report)

	// Footer
	w.writeFooter(&sb)

	// Write to output
	return w.output.Write([]byte(sb.String()))
}

// WriteResult outputs only the product URL mapping.
func (w *SimpleWriter) WriteResult(result model.CrawlResult) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SHOPSCAN RESULT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	w.writeProducts(&sb, result, nil)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SHOPSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Seeds:          %d\n", len(report.Seeds)))
	sb.WriteString(fmt.Sprintf("Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", report.Duration().Round(time.Second)))
	sb.WriteString(fmt.Sprintf("Pages Crawled:  %d\n", report.TotalPages()))
	sb.WriteString(fmt.Sprintf("Products Found: %d\n", report.Result.TotalProducts()))

	if report.Interrupted {
		sb.WriteString("Status:         INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeDomains writes the per-domain statistics section.
func (w *SimpleWriter) writeDomains(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DOMAINS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Domains) == 0 {
		sb.WriteString("  No domains crawled\n\n")
		return
	}

	domains := make([]string, 0, len(report.Domains))
	for domain := range report.Domains {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for _, domain := range domains {
		d := report.Domains[domain]

		if d.Failed {
			sb.WriteString(fmt.Sprintf("  [!] %s\n", domain))
			sb.WriteString(fmt.Sprintf("      FAILED: %s\n", d.Error))
			continue
		}

		sb.WriteString(fmt.Sprintf("  [+] %s\n", domain))
		sb.WriteString(fmt.Sprintf("      pages: %d, products: %d, retries: %d, dropped: %d\n",
			d.PagesVisited, d.ProductsFound, d.Retries, d.Dropped))
		if d.Platform != model.ShopPlatformUnknown {
			sb.WriteString(fmt.Sprintf("      platform: %s\n", d.Platform.DisplayName()))
		}
	}
	sb.WriteString("\n")
}

// writeProducts writes the product URL lists. The report is optional and
// only consulted for verbose metadata lines.
func (w *SimpleWriter) writeProducts(sb *strings.Builder, result model.CrawlResult, report *model.RunReport) {
	if result.TotalProducts() == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PRODUCT PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if result.TotalProducts() == 0 {
		sb.WriteString("  No product pages discovered\n\n")
		return
	}

	var details map[string]model.ProductRecord
	if w.verbose && report != nil && len(report.Products) > 0 {
		details = make(map[string]model.ProductRecord, len(report.Products))
		for _, p := range report.Products {
			details[p.URL] = p
		}
	}

	for _, domain := range result.Domains() {
		urls := result[domain]
		if len(urls) == 0 && !w.showEmpty {
			continue
		}

		sb.WriteString(fmt.Sprintf("%s (%d)\n", domain, len(urls)))
		if len(urls) == 0 {
			sb.WriteString("  No products found\n\n")
			continue
		}

		for _, url := range urls {
			sb.WriteString(fmt.Sprintf("  * %s\n", url))
			if p, ok := details[url]; ok {
				if p.Title != "" {
					sb.WriteString(fmt.Sprintf("    Title: %s\n", p.Title))
				}
				if p.Price != "" {
					sb.WriteString(fmt.Sprintf("    Price: %s %s\n", p.Price, p.Currency))
				}
			}
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by ShopScan\n")
	sb.WriteString("https://github.com/nao1215/shopscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
