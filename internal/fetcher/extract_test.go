package fetcher

import (
	"strings"
	"testing"
)

// TestNewLinkExtractor tests extractor construction.
func TestNewLinkExtractor(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid base URL", func(t *testing.T) {
		t.Parallel()

		if _, err := NewLinkExtractor("https://www.virgio.com/collections/dresses"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects an unparsable base URL", func(t *testing.T) {
		t.Parallel()

		if _, err := NewLinkExtractor("://missing-scheme"); err == nil {
			t.Error("expected error for unparsable base URL")
		}
	})
}

// TestLinkExtractor_Extract tests link discovery and metadata collection
// on a storefront listing page.
func TestLinkExtractor_Extract(t *testing.T) {
	t.Parallel()

	const page = `<!DOCTYPE html>
<html>
<head>
<title>  Dresses | Virgio  </title>
<link rel="canonical" href="https://www.virgio.com/collections/dresses?page=1">
<link rel="stylesheet" href="/cdn/theme.css">
<meta name="description" content="Shop dresses online">
<meta property="og:title" content="Dresses">
<meta property="og:price:amount" content="1299.00">
<script src="/cdn/assets/theme.js"></script>
<script src="https://cdn.shopify.com/s/app.js"></script>
<script>window.dataLayer = [];</script>
</head>
<body>
<a href="/products/floral-midi-dress">Floral Midi</a>
<a href="/products/floral-midi-dress">Floral Midi again</a>
<a href="/products/floral-midi-dress#reviews">Floral Midi reviews</a>
<a href="https://www.virgio.com/products/satin-slip">Satin Slip</a>
<a href="https://WWW.VIRGIO.COM/products/linen-shirt">Linen Shirt</a>
<a href="https://www.virgio.com:443/sale">Sale</a>
<a href="?page=2">Next page</a>
<a href="https://www.instagram.com/virgio">Instagram</a>
<a href="javascript:void(0)">Quick view</a>
<a href="mailto:care@virgio.com">Write to us</a>
<a href="tel:+911234567890">Call us</a>
<a href="#size-guide">Size guide</a>
<a href="">Empty</a>
</body>
</html>`

	extractor, err := NewLinkExtractor("https://www.virgio.com/collections/dresses")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := extractor.Extract(strings.NewReader(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("collects title", func(t *testing.T) {
		t.Parallel()

		if result.Title != "Dresses | Virgio" {
			t.Errorf("expected trimmed title, got %q", result.Title)
		}
	})

	t.Run("resolves and deduplicates links", func(t *testing.T) {
		t.Parallel()

		want := []string{
			"https://www.virgio.com/products/floral-midi-dress",
			"https://www.virgio.com/products/satin-slip",
			"https://www.virgio.com/products/linen-shirt",
			"https://www.virgio.com/sale",
			"https://www.virgio.com/collections/dresses?page=2",
			"https://www.instagram.com/virgio",
		}
		if len(result.Links) != len(want) {
			t.Fatalf("expected %d links, got %d: %v", len(want), len(result.Links), result.Links)
		}
		for i, link := range want {
			if result.Links[i] != link {
				t.Errorf("link %d: expected %q, got %q", i, link, result.Links[i])
			}
		}
	})

	t.Run("splits internal and external links", func(t *testing.T) {
		t.Parallel()

		if len(result.InternalLinks) != 5 {
			t.Errorf("expected 5 internal links, got %d: %v", len(result.InternalLinks), result.InternalLinks)
		}
		if len(result.ExternalLinks) != 1 {
			t.Fatalf("expected 1 external link, got %d: %v", len(result.ExternalLinks), result.ExternalLinks)
		}
		if result.ExternalLinks[0] != "https://www.instagram.com/virgio" {
			t.Errorf("unexpected external link %q", result.ExternalLinks[0])
		}
	})

	t.Run("collects script sources", func(t *testing.T) {
		t.Parallel()

		want := []string{
			"https://www.virgio.com/cdn/assets/theme.js",
			"https://cdn.shopify.com/s/app.js",
		}
		if len(result.Scripts) != len(want) {
			t.Fatalf("expected %d scripts, got %d: %v", len(want), len(result.Scripts), result.Scripts)
		}
		for i, src := range want {
			if result.Scripts[i] != src {
				t.Errorf("script %d: expected %q, got %q", i, src, result.Scripts[i])
			}
		}
	})

	t.Run("collects meta tags by name and property", func(t *testing.T) {
		t.Parallel()

		if result.MetaTags["description"] != "Shop dresses online" {
			t.Errorf("expected description meta, got %q", result.MetaTags["description"])
		}
		if result.MetaTags["og:title"] != "Dresses" {
			t.Errorf("expected og:title meta, got %q", result.MetaTags["og:title"])
		}
		if result.MetaTags["og:price:amount"] != "1299.00" {
			t.Errorf("expected og:price:amount meta, got %q", result.MetaTags["og:price:amount"])
		}
	})

	t.Run("collects canonical URL", func(t *testing.T) {
		t.Parallel()

		if result.Canonical != "https://www.virgio.com/collections/dresses?page=1" {
			t.Errorf("unexpected canonical %q", result.Canonical)
		}
	})
}

// TestLinkExtractor_ExtractMalformed tests parsing of broken markup.
func TestLinkExtractor_ExtractMalformed(t *testing.T) {
	t.Parallel()

	t.Run("handles unclosed tags", func(t *testing.T) {
		t.Parallel()

		const page = `<html><body><div><a href="/products/one">one<a href="/products/two">two</body>`

		extractor, err := NewLinkExtractor("https://www.tatacliq.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result, err := extractor.Extract(strings.NewReader(page))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Links) != 2 {
			t.Errorf("expected 2 links from malformed markup, got %d: %v", len(result.Links), result.Links)
		}
	})

	t.Run("handles empty document", func(t *testing.T) {
		t.Parallel()

		extractor, err := NewLinkExtractor("https://www.tatacliq.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result, err := extractor.Extract(strings.NewReader(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Links) != 0 {
			t.Errorf("expected no links, got %v", result.Links)
		}
		if result.Title != "" {
			t.Errorf("expected no title, got %q", result.Title)
		}
	})
}
