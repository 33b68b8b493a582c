package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/shopscan/internal/crawler"
	"github.com/nao1215/shopscan/internal/database"
	"github.com/nao1215/shopscan/internal/model"
)

func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	t.Run("command has correct use", func(t *testing.T) {
		t.Parallel()

		cmd := NewCompareCmd()
		if got, want := cmd.Use, "compare [old.json new.json]"; got != want {
			t.Errorf("Use = %q, want %q", got, want)
		}
	})

	t.Run("command has short description", func(t *testing.T) {
		t.Parallel()

		cmd := NewCompareCmd()
		if cmd.Short == "" {
			t.Error("expected non-empty Short description")
		}
	})

	t.Run("command has expected flags", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			flagName  string
			shorthand string
		}{
			{"list", "l"},
			{"runs", "r"},
			{"json", "j"},
			{"markdown", "m"},
		}

		cmd := NewCompareCmd()
		for _, tt := range tests {
			t.Run(tt.flagName+" flag", func(t *testing.T) {
				flag := cmd.Flags().Lookup(tt.flagName)
				if flag == nil {
					t.Fatalf("expected command to have %s flag", tt.flagName)
				}
				if got, want := flag.Shorthand, tt.shorthand; got != want {
					t.Errorf("%s shorthand = %q, want %q", tt.flagName, got, want)
				}
			})
		}
	})

	t.Run("does not have excel flag", func(t *testing.T) {
		t.Parallel()

		cmd := NewCompareCmd()
		if flag := cmd.Flags().Lookup("excel"); flag != nil {
			t.Error("expected command to not have excel flag")
		}
	})
}

func TestParseRunsSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		wantOld int64
		wantNew int64
		wantErr bool
	}{
		{name: "valid pair", spec: "3,7", wantOld: 3, wantNew: 7},
		{name: "pair with spaces", spec: " 3 , 7 ", wantOld: 3, wantNew: 7},
		{name: "single id", spec: "3", wantErr: true},
		{name: "three ids", spec: "3,7,9", wantErr: true},
		{name: "non numeric", spec: "a,7", wantErr: true},
		{name: "zero id", spec: "0,7", wantErr: true},
		{name: "negative id", spec: "3,-1", wantErr: true},
		{name: "empty", spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			oldID, newID, err := parseRunsSpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseRunsSpec(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRunsSpec(%q) unexpected error: %v", tt.spec, err)
			}
			if oldID != tt.wantOld || newID != tt.wantNew {
				t.Errorf("parseRunsSpec(%q) = (%d, %d), want (%d, %d)",
					tt.spec, oldID, newID, tt.wantOld, tt.wantNew)
			}
		})
	}
}

func TestDiffResults(t *testing.T) {
	t.Parallel()

	t.Run("detects added and removed urls", func(t *testing.T) {
		t.Parallel()

		previous := model.CrawlResult{
			"shop.example": {
				"https://shop.example/product/a",
				"https://shop.example/product/b",
			},
		}
		current := model.CrawlResult{
			"shop.example": {
				"https://shop.example/product/b",
				"https://shop.example/product/c",
			},
		}

		result := diffResults(previous, current)

		if got, want := len(result.Added["shop.example"]), 1; got != want {
			t.Fatalf("added count = %d, want %d", got, want)
		}
		if got, want := result.Added["shop.example"][0], "https://shop.example/product/c"; got != want {
			t.Errorf("added[0] = %q, want %q", got, want)
		}
		if got, want := len(result.Removed["shop.example"]), 1; got != want {
			t.Fatalf("removed count = %d, want %d", got, want)
		}
		if got, want := result.Removed["shop.example"][0], "https://shop.example/product/a"; got != want {
			t.Errorf("removed[0] = %q, want %q", got, want)
		}
		if got, want := result.UnchangedCount, 1; got != want {
			t.Errorf("UnchangedCount = %d, want %d", got, want)
		}
		if got, want := result.OldTotal, 2; got != want {
			t.Errorf("OldTotal = %d, want %d", got, want)
		}
		if got, want := result.NewTotal, 2; got != want {
			t.Errorf("NewTotal = %d, want %d", got, want)
		}
	})

	t.Run("identical results have no changes", func(t *testing.T) {
		t.Parallel()

		urls := model.CrawlResult{
			"shop.example": {
				"https://shop.example/product/a",
				"https://shop.example/product/b",
			},
		}

		result := diffResults(urls, urls)

		if got, want := len(result.Added), 0; got != want {
			t.Errorf("added domains = %d, want %d", got, want)
		}
		if got, want := len(result.Removed), 0; got != want {
			t.Errorf("removed domains = %d, want %d", got, want)
		}
		if got, want := result.UnchangedCount, 2; got != want {
			t.Errorf("UnchangedCount = %d, want %d", got, want)
		}
	})

	t.Run("new domain appears", func(t *testing.T) {
		t.Parallel()

		current := model.CrawlResult{
			"www.westside.com": {
				"https://www.westside.com/products/kurta",
				"https://www.westside.com/products/shirt",
			},
		}

		result := diffResults(model.CrawlResult{}, current)

		if got, want := len(result.Added["www.westside.com"]), 2; got != want {
			t.Errorf("added count = %d, want %d", got, want)
		}
		if got, want := result.OldTotal, 0; got != want {
			t.Errorf("OldTotal = %d, want %d", got, want)
		}
	})

	t.Run("domain disappears", func(t *testing.T) {
		t.Parallel()

		previous := model.CrawlResult{
			"www.virgio.com": {"https://www.virgio.com/shop/dress"},
		}

		result := diffResults(previous, model.CrawlResult{})

		if got, want := len(result.Removed["www.virgio.com"]), 1; got != want {
			t.Errorf("removed count = %d, want %d", got, want)
		}
	})

	t.Run("nil results", func(t *testing.T) {
		t.Parallel()

		result := diffResults(nil, nil)

		if got, want := result.OldTotal, 0; got != want {
			t.Errorf("OldTotal = %d, want %d", got, want)
		}
		if got, want := result.NewTotal, 0; got != want {
			t.Errorf("NewTotal = %d, want %d", got, want)
		}
		if got, want := result.UnchangedCount, 0; got != want {
			t.Errorf("UnchangedCount = %d, want %d", got, want)
		}
	})

	t.Run("added urls are sorted", func(t *testing.T) {
		t.Parallel()

		current := model.CrawlResult{
			"shop.example": {
				"https://shop.example/product/zebra",
				"https://shop.example/product/apple",
				"https://shop.example/product/mango",
			},
		}

		result := diffResults(model.CrawlResult{}, current)

		added := result.Added["shop.example"]
		want := []string{
			"https://shop.example/product/apple",
			"https://shop.example/product/mango",
			"https://shop.example/product/zebra",
		}
		if len(added) != len(want) {
			t.Fatalf("added count = %d, want %d", len(added), len(want))
		}
		for i := range want {
			if added[i] != want[i] {
				t.Errorf("added[%d] = %q, want %q", i, added[i], want[i])
			}
		}
	})

	t.Run("duplicate urls count once", func(t *testing.T) {
		t.Parallel()

		previous := model.CrawlResult{
			"shop.example": {
				"https://shop.example/product/a",
				"https://shop.example/product/a",
			},
		}

		result := diffResults(previous, model.CrawlResult{})

		if got, want := len(result.Removed["shop.example"]), 1; got != want {
			t.Errorf("removed count = %d, want %d", got, want)
		}
	})
}

func TestComparedDomains(t *testing.T) {
	t.Parallel()

	t.Run("returns sorted union of changed domains", func(t *testing.T) {
		t.Parallel()

		result := &ComparisonResult{
			Added: model.CrawlResult{
				"www.westside.com": {"https://www.westside.com/products/kurta"},
			},
			Removed: model.CrawlResult{
				"www.virgio.com":   {"https://www.virgio.com/shop/dress"},
				"www.westside.com": {"https://www.westside.com/products/old"},
			},
		}

		domains := comparedDomains(result)
		want := []string{"www.virgio.com", "www.westside.com"}
		if len(domains) != len(want) {
			t.Fatalf("domain count = %d, want %d", len(domains), len(want))
		}
		for i := range want {
			if domains[i] != want[i] {
				t.Errorf("domains[%d] = %q, want %q", i, domains[i], want[i])
			}
		}
	})

	t.Run("empty comparison has no domains", func(t *testing.T) {
		t.Parallel()

		result := diffResults(model.CrawlResult{}, model.CrawlResult{})
		if got := comparedDomains(result); len(got) != 0 {
			t.Errorf("domains = %v, want empty", got)
		}
	})
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta int
		want  string
	}{
		{delta: 5, want: "+5"},
		{delta: -3, want: "-3"},
		{delta: 0, want: "0"},
	}

	for _, tt := range tests {
		if got := formatDelta(tt.delta); got != tt.want {
			t.Errorf("formatDelta(%d) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}

func TestLoadResultFile(t *testing.T) {
	t.Parallel()

	t.Run("loads valid report file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "report.json")
		content := `{"shop.example": ["https://shop.example/product/a", "https://shop.example/product/b"]}`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := loadResultFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, want := len(result["shop.example"]), 2; got != want {
			t.Errorf("url count = %d, want %d", got, want)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := loadResultFile(filepath.Join(t.TempDir(), "missing.json"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
		if !strings.Contains(err.Error(), "failed to read report file") {
			t.Errorf("unexpected error message: %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "report.json")
		if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := loadResultFile(path)
		if err == nil {
			t.Fatal("expected error for invalid JSON")
		}
		if !strings.Contains(err.Error(), "failed to parse report file") {
			t.Errorf("unexpected error message: %v", err)
		}
	})
}

// archiveRun inserts a finished run with the given product URLs into the
// database and returns its run ID.
func archiveRun(t *testing.T, db *database.CrawlDB, urls []string) int64 {
	t.Helper()
	ctx := context.Background()

	runID, err := db.BeginRun(ctx, []string{"https://shop.example/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, url := range urls {
		rec := crawler.PageRecord{
			Domain:     "shop.example",
			URL:        url,
			FinalURL:   url,
			Category:   model.CategoryNormal,
			Product:    true,
			StatusCode: 200,
		}
		if err := db.InsertPage(ctx, runID, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rpt := model.NewRunReport([]string{"https://shop.example/"})
	rpt.FinishedAt = time.Now()
	if err := db.FinishRun(ctx, runID, rpt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return runID
}

func TestLoadArchivedResults(t *testing.T) {
	t.Parallel()

	t.Run("loads two archived runs", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer db.Close()

		oldID := archiveRun(t, db, []string{
			"https://shop.example/product/a",
			"https://shop.example/product/b",
		})
		newID := archiveRun(t, db, []string{
			"https://shop.example/product/b",
			"https://shop.example/product/c",
		})

		previous, current, err := loadArchivedResults(context.Background(), db, oldID, newID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, want := len(previous["shop.example"]), 2; got != want {
			t.Errorf("previous url count = %d, want %d", got, want)
		}
		if got, want := len(current["shop.example"]), 2; got != want {
			t.Errorf("current url count = %d, want %d", got, want)
		}

		diff := diffResults(previous, current)
		if got, want := len(diff.Added["shop.example"]), 1; got != want {
			t.Errorf("added count = %d, want %d", got, want)
		}
		if got, want := len(diff.Removed["shop.example"]), 1; got != want {
			t.Errorf("removed count = %d, want %d", got, want)
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer db.Close()

		runID := archiveRun(t, db, []string{"https://shop.example/product/a"})

		_, _, err = loadArchivedResults(context.Background(), db, runID, 999)
		if err == nil {
			t.Fatal("expected error for unknown run ID")
		}
		if !strings.Contains(err.Error(), "not found in archive") {
			t.Errorf("unexpected error message: %v", err)
		}
	})
}

func TestListArchivedRuns(t *testing.T) {
	t.Run("empty archive", func(t *testing.T) {
		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer db.Close()

		oldStdout := os.Stdout
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		os.Stdout = w

		listErr := listArchivedRuns(context.Background(), db)

		w.Close()
		os.Stdout = oldStdout
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if listErr != nil {
			t.Fatalf("unexpected error: %v", listErr)
		}
		if !strings.Contains(buf.String(), "No archived runs found") {
			t.Error("expected empty archive message")
		}
	})

	t.Run("lists archived runs", func(t *testing.T) {
		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer db.Close()

		archiveRun(t, db, []string{
			"https://shop.example/product/a",
			"https://shop.example/product/b",
		})

		oldStdout := os.Stdout
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		os.Stdout = w

		listErr := listArchivedRuns(context.Background(), db)

		w.Close()
		os.Stdout = oldStdout
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if listErr != nil {
			t.Fatalf("unexpected error: %v", listErr)
		}
		output := buf.String()
		if !strings.Contains(output, "Archived runs (1)") {
			t.Errorf("expected run count header, got:\n%s", output)
		}
		if !strings.Contains(output, "Products") {
			t.Error("expected table header")
		}
	})
}

func TestRunCompareCmdErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "one file argument",
			args:    []string{"compare", "old.json"},
			wantErr: "two report files are required",
		},
		{
			name:    "files and runs conflict",
			args:    []string{"compare", "old.json", "new.json", "--runs", "1,2"},
			wantErr: "cannot combine report files with --runs",
		},
		{
			name:    "no arguments",
			args:    []string{"compare"},
			wantErr: "two report files or --runs",
		},
		{
			name:    "invalid runs spec",
			args:    []string{"compare", "--runs", "nope"},
			wantErr: "invalid --runs value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rootCmd := NewRootCmd()
			rootCmd.SetArgs(tt.args)

			err := rootCmd.Execute()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

// writeResultFile writes a crawl result as a JSON report file and
// returns its path.
func writeResultFile(t *testing.T, dir, name string, result model.CrawlResult) string {
	t.Helper()

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestRunCompareCmdWithFiles(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeResultFile(t, dir, "old.json", model.CrawlResult{
		"shop.example": {
			"https://shop.example/product/a",
			"https://shop.example/product/b",
		},
	})
	newPath := writeResultFile(t, dir, "new.json", model.CrawlResult{
		"shop.example": {
			"https://shop.example/product/b",
			"https://shop.example/product/c",
		},
	})

	runCompare := func(t *testing.T, args []string) string {
		t.Helper()

		oldStdout := os.Stdout
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		os.Stdout = w

		rootCmd := NewRootCmd()
		rootCmd.SetArgs(args)
		execErr := rootCmd.Execute()

		w.Close()
		os.Stdout = oldStdout
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if execErr != nil {
			t.Fatalf("unexpected error: %v", execErr)
		}
		return buf.String()
	}

	t.Run("text output", func(t *testing.T) {
		output := runCompare(t, []string{"compare", oldPath, newPath})

		if !strings.Contains(output, "Crawl Comparison:") {
			t.Error("expected comparison header")
		}
		if !strings.Contains(output, "[+] https://shop.example/product/c") {
			t.Errorf("expected added URL in output, got:\n%s", output)
		}
		if !strings.Contains(output, "[-] https://shop.example/product/a") {
			t.Errorf("expected removed URL in output, got:\n%s", output)
		}
		if !strings.Contains(output, "Unchanged: 1 product URLs") {
			t.Errorf("expected unchanged count, got:\n%s", output)
		}
	})

	t.Run("json output", func(t *testing.T) {
		output := runCompare(t, []string{"compare", "--json", oldPath, newPath})

		var result ComparisonResult
		if err := json.Unmarshal([]byte(output), &result); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got, want := len(result.Added["shop.example"]), 1; got != want {
			t.Errorf("added count = %d, want %d", got, want)
		}
		if got, want := result.UnchangedCount, 1; got != want {
			t.Errorf("UnchangedCount = %d, want %d", got, want)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		output := runCompare(t, []string{"compare", "--markdown", oldPath, newPath})

		if !strings.Contains(output, "# Crawl Comparison:") {
			t.Error("expected markdown heading")
		}
		if !strings.Contains(output, "| Metric | Count |") {
			t.Error("expected summary table")
		}
		if !strings.Contains(output, "- [+] `https://shop.example/product/c`") {
			t.Errorf("expected added URL in output, got:\n%s", output)
		}
	})
}

func TestOutputComparisonText(t *testing.T) {
	t.Run("no changes", func(t *testing.T) {
		urls := model.CrawlResult{
			"shop.example": {"https://shop.example/product/a"},
		}
		result := diffResults(urls, urls)
		result.Label = "run 1 -> run 2"

		oldStdout := os.Stdout
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		os.Stdout = w

		outErr := outputComparisonText(result)

		w.Close()
		os.Stdout = oldStdout
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if outErr != nil {
			t.Fatalf("unexpected error: %v", outErr)
		}
		if !strings.Contains(buf.String(), "No product URL changes.") {
			t.Error("expected no-changes message")
		}
		if !strings.Contains(buf.String(), "Unchanged: 1 product URLs") {
			t.Error("expected unchanged count")
		}
	})
}
