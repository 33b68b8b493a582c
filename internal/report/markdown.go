package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/shopscan/internal/model"
)

// maxListedURLs caps how many product URLs are listed per domain before
// the list is elided. Full URL sets belong in the JSON result file.
const maxListedURLs = 20

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, report)

	// Per-domain crawl statistics
	w.writeDomains(md, report)

	// Product URLs per domain
	w.writeProducts(md, report)

	// Product metadata table when extraction ran
	w.writeProductDetails(md, report)

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteResult outputs only the product URL mapping in Markdown format.
func (w *MarkdownWriter) WriteResult(result model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("ShopScan Result")
	md.PlainText("")
	w.writeURLLists(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("ShopScan Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seeds", strconv.Itoa(len(report.Seeds))},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Second).String()},
			{"Domains", strconv.Itoa(len(report.Domains))},
			{"Pages Crawled", strconv.Itoa(report.TotalPages())},
			{"Products Found", strconv.Itoa(report.Result.TotalProducts())},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RunReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeDomains writes the per-domain statistics section.
func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Domains")
	md.PlainText("")

	if len(report.Domains) == 0 {
		md.PlainText("No domains were crawled.")
		md.PlainText("")
		return
	}

	domains := make([]string, 0, len(report.Domains))
	for domain := range report.Domains {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	rows := make([][]string, 0, len(domains))
	failed := 0
	for _, domain := range domains {
		d := report.Domains[domain]
		status := "✅"
		if d.Failed {
			failed++
			status = "❌ " + truncateString(d.Error, 40)
		}
		platform := "-"
		if d.Platform != model.ShopPlatformUnknown {
			platform = d.Platform.DisplayName()
		}
		rows = append(rows, []string{
			"`" + domain + "`",
			strconv.Itoa(d.PagesVisited),
			strconv.Itoa(d.ProductsFound),
			strconv.Itoa(d.Retries),
			strconv.Itoa(d.Dropped),
			platform,
			status,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Pages", "Products", "Retries", "Dropped", "Platform", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	// Add pie chart if any products were found
	if report.Result.TotalProducts() > 0 {
		w.writePieChart(md, report)
	}

	// Add alert based on run state
	w.writeAlert(md, report, failed)
}

// writePieChart writes a mermaid pie chart of products per domain.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Products per Domain"),
		piechart.WithShowData(true),
	)

	for _, domain := range report.Result.Domains() {
		count := len(report.Result[domain])
		if count > 0 {
			chart.LabelAndIntValue(domain, uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the run state.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport, failed int) {
	switch {
	case failed > 0:
		md.Cautionf("%d domain crawl(s) failed and produced no results.", failed)
	case report.Interrupted:
		md.Warningf("The crawl was interrupted before all frontiers drained. Results are partial.")
	case report.Result.TotalProducts() == 0:
		md.Note("No product pages were discovered.")
	default:
		md.Tip(fmt.Sprintf(
			"Crawl completed with %d product page(s) across %d domain(s).",
			report.Result.TotalProducts(), len(report.Domains),
		))
	}
	md.PlainText("")
}

// writeProducts writes the product URL lists per domain.
func (w *MarkdownWriter) writeProducts(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Product Pages")
	md.PlainText("")

	if report.Result.TotalProducts() == 0 {
		md.PlainText("No product pages discovered.")
		md.PlainText("")
		return
	}

	w.writeURLLists(md, report.Result)
}

// writeURLLists writes one bullet list of product URLs per domain.
func (w *MarkdownWriter) writeURLLists(md *markdown.Markdown, result model.CrawlResult) {
	for _, domain := range result.Domains() {
		urls := result[domain]

		md.PlainText("### " + domain)
		md.PlainText("")

		if len(urls) == 0 {
			md.PlainText("No products found.")
			md.PlainText("")
			continue
		}

		listed := urls
		if len(listed) > maxListedURLs {
			listed = listed[:maxListedURLs]
		}
		md.BulletList(listed...)
		if rest := len(urls) - len(listed); rest > 0 {
			md.PlainTextf("... and %d more", rest)
		}
		md.PlainText("")
	}
}

// writeProductDetails writes the extracted metadata table.
func (w *MarkdownWriter) writeProductDetails(md *markdown.Markdown, report *model.RunReport) {
	if len(report.Products) == 0 {
		return
	}

	md.H2("Product Details")
	md.PlainText("")

	rows := make([][]string, len(report.Products))
	for i, p := range report.Products {
		title := p.Title
		if title == "" {
			title = "-"
		}
		price := p.Price
		if price != "" && p.Currency != "" {
			price = price + " " + p.Currency
		}
		if price == "" {
			price = "-"
		}
		rows[i] = []string{
			p.Domain,
			truncateString(title, 40),
			price,
			truncateString(p.URL, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Title", "Price", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ShopScan](https://github.com/nao1215/shopscan)*")
}
