package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/nao1215/shopscan/internal/model"
	"github.com/xuri/excelize/v2"
)

// summarySheet and productSheet are the workbook sheet names.
const (
	summarySheet = "Summary"
	productSheet = "Products"
)

// ExcelWriter outputs reports as an Excel workbook.
// This format is designed for handing results to non-engineering teams
// who filter and annotate product lists in a spreadsheet.
//
// Design decision: We use the excelize library rather than writing CSV
// because:
// 1. One file carries both the per-domain summary and the product rows
// 2. Column types survive the trip into spreadsheet tools
// 3. No quoting or encoding ambiguity for URLs and titles
type ExcelWriter struct {
	baseWriter
}

// NewExcelWriter creates an ExcelWriter that outputs to the given writer.
func NewExcelWriter(output io.Writer) *ExcelWriter {
	return &ExcelWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full run report as a two-sheet workbook.
func (w *ExcelWriter) Write(report *model.RunReport) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return 0, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(productSheet); err != nil {
		return 0, fmt.Errorf("failed to create product sheet: %w", err)
	}

	if err := w.writeSummarySheet(f, report); err != nil {
		return 0, err
	}
	if err := w.writeProductSheet(f, report.Result, report.Products); err != nil {
		return 0, err
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

// WriteResult outputs only the product URL mapping as a one-sheet workbook.
func (w *ExcelWriter) WriteResult(result model.CrawlResult) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", productSheet); err != nil {
		return 0, fmt.Errorf("failed to name product sheet: %w", err)
	}
	if err := w.writeProductSheet(f, result, nil); err != nil {
		return 0, err
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

// writeSummarySheet fills the per-domain statistics sheet.
func (w *ExcelWriter) writeSummarySheet(f *excelize.File, report *model.RunReport) error {
	header := []interface{}{"Domain", "Pages", "Products", "Retries", "Dropped", "Platform", "Failed", "Error"}
	if err := setRow(f, summarySheet, 1, header); err != nil {
		return err
	}

	domains := make([]string, 0, len(report.Domains))
	for domain := range report.Domains {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for i, domain := range domains {
		d := report.Domains[domain]
		platform := ""
		if d.Platform != model.ShopPlatformUnknown {
			platform = d.Platform.DisplayName()
		}
		row := []interface{}{
			d.Domain,
			d.PagesVisited,
			d.ProductsFound,
			d.Retries,
			d.Dropped,
			platform,
			d.Failed,
			d.Error,
		}
		if err := setRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}

	return f.SetColWidth(summarySheet, "A", "A", 30)
}

// writeProductSheet fills the product rows, joining in extracted metadata
// when it is available for a URL.
func (w *ExcelWriter) writeProductSheet(f *excelize.File, result model.CrawlResult, products []model.ProductRecord) error {
	header := []interface{}{"Domain", "URL", "Title", "Price", "Currency", "Image"}
	if err := setRow(f, productSheet, 1, header); err != nil {
		return err
	}

	details := make(map[string]model.ProductRecord, len(products))
	for _, p := range products {
		details[p.URL] = p
	}

	rowNum := 2
	for _, domain := range result.Domains() {
		for _, url := range result[domain] {
			p := details[url]
			row := []interface{}{domain, url, p.Title, p.Price, p.Currency, p.Image}
			if err := setRow(f, productSheet, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
	}

	if err := f.SetColWidth(productSheet, "A", "A", 30); err != nil {
		return err
	}
	return f.SetColWidth(productSheet, "B", "B", 60)
}

// setRow writes one row of cells starting at column A.
func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}
