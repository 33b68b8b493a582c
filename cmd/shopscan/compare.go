package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/model"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
// This command compares crawl results with each other or with archived runs.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [old.json new.json]",
		Short: "Compare product URLs between two crawls",
		Long: `Compare shows which product URLs appeared and disappeared between two
crawls, per domain.

Inputs are either two JSON reports written by 'shopscan crawl --json',
or two archived runs referenced by ID with --runs. Use --list to see
the runs in the archive.

Examples:
  # Compare two JSON reports
  shopscan compare old.json new.json

  # Compare two archived runs by ID
  shopscan compare --runs 3,7

  # List archived runs
  shopscan compare --list

  # Output comparison in JSON format
  shopscan compare --json old.json new.json`,
		Args: cobra.MaximumNArgs(2),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List archived runs in the database")

	// Comparison target flags
	cmd.Flags().StringP("runs", "r", "",
		"Compare two archived runs by ID (format: old,new)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listRuns, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	runsSpec, err := cmd.Flags().GetString("runs")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Handle --list flag
	if listRuns {
		db, err := openArchive()
		if err != nil {
			return err
		}
		defer db.Close()
		return listArchivedRuns(context.Background(), db)
	}

	var previous, current model.CrawlResult
	var label string

	switch {
	case len(args) == 2 && runsSpec != "":
		return errors.New("cannot combine report files with --runs")

	case len(args) == 2:
		previous, err = loadResultFile(args[0])
		if err != nil {
			return err
		}
		current, err = loadResultFile(args[1])
		if err != nil {
			return err
		}
		label = fmt.Sprintf("%s -> %s", args[0], args[1])

	case len(args) == 1:
		return errors.New("two report files are required (old.json new.json)")

	case runsSpec != "":
		oldID, newID, err := parseRunsSpec(runsSpec)
		if err != nil {
			return err
		}

		db, err := openArchive()
		if err != nil {
			return err
		}
		defer db.Close()

		previous, current, err = loadArchivedResults(context.Background(), db, oldID, newID)
		if err != nil {
			return err
		}
		label = fmt.Sprintf("run %d -> run %d", oldID, newID)

	default:
		return errors.New("two report files or --runs <old>,<new> required (use --list to see archived runs)")
	}

	comparison := diffResults(previous, current)
	comparison.Label = label

	// Output the result
	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// openArchive opens the crawl archive in the XDG data directory.
func openArchive() (*database.CrawlDB, error) {
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// listArchivedRuns lists all runs in the crawl archive.
func listArchivedRuns(ctx context.Context, db *database.CrawlDB) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No archived runs found in the database.")
		fmt.Println("\nUse 'shopscan crawl' to crawl and archive a run.")
		return nil
	}

	fmt.Printf("Archived runs (%d):\n\n", len(runs))
	fmt.Printf("  %-6s  %-20s  %-22s  %8s  %9s\n", "ID", "Started", "Finished", "Pages", "Products")
	fmt.Println("  " + strings.Repeat("-", 72))

	for _, info := range runs {
		finished := "-"
		if !info.FinishedAt.IsZero() {
			finished = info.FinishedAt.Format("2006-01-02 15:04:05")
		}
		if info.Interrupted {
			finished += " *"
		}
		fmt.Printf("  %-6d  %-20s  %-22s  %8d  %9d\n",
			info.ID,
			info.StartedAt.Format("2006-01-02 15:04:05"),
			finished,
			info.Pages,
			info.Products,
		)
	}

	fmt.Println("\n  * interrupted run")
	fmt.Println("\nUse 'shopscan compare --runs <old>,<new>' to compare two runs.")

	return nil
}

// parseRunsSpec parses a "--runs old,new" pair of archive run IDs.
func parseRunsSpec(spec string) (int64, int64, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --runs value %q (expected two run IDs like 3,7)", spec)
	}

	oldID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || oldID <= 0 {
		return 0, 0, fmt.Errorf("invalid run ID %q", strings.TrimSpace(parts[0]))
	}
	newID, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || newID <= 0 {
		return 0, 0, fmt.Errorf("invalid run ID %q", strings.TrimSpace(parts[1]))
	}
	return oldID, newID, nil
}

// loadArchivedResults loads the product URLs of two archived runs.
func loadArchivedResults(ctx context.Context, db *database.CrawlDB, oldID, newID int64) (model.CrawlResult, model.CrawlResult, error) {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list runs: %w", err)
	}
	known := make(map[int64]bool, len(runs))
	for _, info := range runs {
		known[info.ID] = true
	}
	for _, id := range []int64{oldID, newID} {
		if !known[id] {
			return nil, nil, fmt.Errorf("run %d not found in archive (use --list to see archived runs)", id)
		}
	}

	previous, err := db.ProductURLs(ctx, oldID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run %d: %w", oldID, err)
	}
	current, err := db.ProductURLs(ctx, newID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run %d: %w", newID, err)
	}
	return previous, current, nil
}

// loadResultFile reads a JSON report written by 'shopscan crawl --json'.
func loadResultFile(path string) (model.CrawlResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the user's own command line
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var result model.CrawlResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse report file %s: %w", path, err)
	}
	return result, nil
}

// ComparisonResult holds the per-domain difference between two crawl
// results.
type ComparisonResult struct {
	// Label identifies what was compared, either two report files or
	// two archived runs.
	Label string `json:"label"`

	// Added maps each domain to the product URLs present only in the
	// new result.
	Added model.CrawlResult `json:"added,omitempty"`

	// Removed maps each domain to the product URLs present only in the
	// old result.
	Removed model.CrawlResult `json:"removed,omitempty"`

	// UnchangedCount is the number of product URLs present in both.
	UnchangedCount int `json:"unchanged_count"`

	// OldTotal is the product URL count of the old result.
	OldTotal int `json:"old_total"`

	// NewTotal is the product URL count of the new result.
	NewTotal int `json:"new_total"`
}

// diffResults computes the per-domain added and removed product URLs
// between two crawl results. Duplicate URLs within one result count
// once.
func diffResults(previous, current model.CrawlResult) *ComparisonResult {
	result := &ComparisonResult{
		Added:    make(model.CrawlResult),
		Removed:  make(model.CrawlResult),
		OldTotal: previous.TotalProducts(),
		NewTotal: current.TotalProducts(),
	}

	domains := make(map[string]bool, len(previous)+len(current))
	for domain := range previous {
		domains[domain] = true
	}
	for domain := range current {
		domains[domain] = true
	}

	for domain := range domains {
		oldSet := make(map[string]bool, len(previous[domain]))
		for _, url := range previous[domain] {
			oldSet[url] = true
		}
		newSet := make(map[string]bool, len(current[domain]))
		for _, url := range current[domain] {
			newSet[url] = true
		}

		for url := range newSet {
			if oldSet[url] {
				result.UnchangedCount++
			} else {
				result.Added[domain] = append(result.Added[domain], url)
			}
		}
		for url := range oldSet {
			if !newSet[url] {
				result.Removed[domain] = append(result.Removed[domain], url)
			}
		}
	}

	for domain := range result.Added {
		sort.Strings(result.Added[domain])
	}
	for domain := range result.Removed {
		sort.Strings(result.Removed[domain])
	}

	return result
}

// comparedDomains returns the sorted set of domains with changes.
func comparedDomains(result *ComparisonResult) []string {
	seen := make(map[string]bool, len(result.Added)+len(result.Removed))
	for domain := range result.Added {
		seen[domain] = true
	}
	for domain := range result.Removed {
		seen[domain] = true
	}

	domains := make([]string, 0, len(seen))
	for domain := range seen {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Crawl Comparison: %s\n\n", result.Label)

	fmt.Println("## Summary")
	fmt.Println()
	fmt.Println("| Metric | Count |")
	fmt.Println("|--------|-------|")
	fmt.Printf("| Old product URLs | %d |\n", result.OldTotal)
	fmt.Printf("| New product URLs | %d |\n", result.NewTotal)
	fmt.Printf("| Added | %d |\n", result.Added.TotalProducts())
	fmt.Printf("| Removed | %d |\n", result.Removed.TotalProducts())
	fmt.Printf("| Unchanged | %d |\n", result.UnchangedCount)

	for _, domain := range comparedDomains(result) {
		added := result.Added[domain]
		removed := result.Removed[domain]

		fmt.Printf("\n## %s (+%d / -%d)\n\n", domain, len(added), len(removed))
		for _, url := range added {
			fmt.Printf("- [+] `%s`\n", url)
		}
		for _, url := range removed {
			fmt.Printf("- ~~`%s`~~\n", url)
		}
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable
// text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Crawl Comparison: %s\n", result.Label)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nProduct URLs: %d -> %d (%s)\n",
		result.OldTotal, result.NewTotal, formatDelta(result.NewTotal-result.OldTotal))

	domains := comparedDomains(result)
	for _, domain := range domains {
		added := result.Added[domain]
		removed := result.Removed[domain]

		fmt.Printf("\n%s (+%d / -%d):\n", domain, len(added), len(removed))
		for _, url := range added {
			fmt.Printf("  [+] %s\n", url)
		}
		for _, url := range removed {
			fmt.Printf("  [-] %s\n", url)
		}
	}

	if len(domains) == 0 {
		fmt.Println("\nNo product URL changes.")
	}
	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d product URLs\n", result.UnchangedCount)
	}

	return nil
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
