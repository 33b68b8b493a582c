package model

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestCrawlResult_Domains(t *testing.T) {
	t.Parallel()

	result := CrawlResult{
		"www.westside.com": {"https://www.westside.com/products/a"},
		"nykaafashion.com": {"https://nykaafashion.com/product/b"},
		"www.tatacliq.com": {},
		"www.virgio.com":   {"https://www.virgio.com/shop/c"},
	}

	want := []string{"nykaafashion.com", "www.tatacliq.com", "www.virgio.com", "www.westside.com"}
	if got := result.Domains(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCrawlResult_TotalProducts(t *testing.T) {
	t.Parallel()

	result := CrawlResult{
		"a.com": {"u1", "u2"},
		"b.com": {"u3"},
		"c.com": {},
	}

	if got := result.TotalProducts(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestCrawlResult_Merge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		base  CrawlResult
		other CrawlResult
		want  CrawlResult
	}{
		{
			name:  "disjoint domains",
			base:  CrawlResult{"a.com": {"u1"}},
			other: CrawlResult{"b.com": {"u2"}},
			want:  CrawlResult{"a.com": {"u1"}, "b.com": {"u2"}},
		},
		{
			name:  "overlapping URLs deduplicated and sorted",
			base:  CrawlResult{"a.com": {"u2", "u1"}},
			other: CrawlResult{"a.com": {"u3", "u1"}},
			want:  CrawlResult{"a.com": {"u1", "u2", "u3"}},
		},
		{
			name:  "empty list still creates the domain key",
			base:  CrawlResult{},
			other: CrawlResult{"a.com": {}},
			want:  CrawlResult{"a.com": {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.base.Merge(tt.other)
			if !reflect.DeepEqual(tt.base, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.base)
			}
		})
	}
}

func TestCrawlResult_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	original := CrawlResult{
		"nykaafashion.com": {
			"https://nykaafashion.com/product/red-dress",
			"https://nykaafashion.com/silk-scarf/p/12345",
		},
		"www.virgio.com": {},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored CrawlResult
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, restored) {
		t.Errorf("round trip mismatch: expected %v, got %v", original, restored)
	}
}

func TestRunReport_Domain(t *testing.T) {
	t.Parallel()

	report := NewRunReport([]string{"https://www.virgio.com/"})

	first := report.Domain("www.virgio.com")
	first.PagesVisited = 7

	second := report.Domain("www.virgio.com")
	if second.PagesVisited != 7 {
		t.Errorf("expected same report instance, got pages %d", second.PagesVisited)
	}
	if len(report.Domains) != 1 {
		t.Errorf("expected one domain entry, got %d", len(report.Domains))
	}
}

func TestRunReport_TotalPages(t *testing.T) {
	t.Parallel()

	report := NewRunReport(nil)
	report.Domain("a.com").PagesVisited = 10
	report.Domain("b.com").PagesVisited = 5

	if got := report.TotalPages(); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
}

func TestRunReport_Duration(t *testing.T) {
	t.Parallel()

	t.Run("zero before finish", func(t *testing.T) {
		t.Parallel()

		report := NewRunReport(nil)
		if got := report.Duration(); got != 0 {
			t.Errorf("expected zero duration, got %v", got)
		}
	})

	t.Run("difference after finish", func(t *testing.T) {
		t.Parallel()

		report := NewRunReport(nil)
		report.StartedAt = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		report.FinishedAt = time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)

		if got := report.Duration(); got != 5*time.Minute {
			t.Errorf("expected 5m, got %v", got)
		}
	})
}
