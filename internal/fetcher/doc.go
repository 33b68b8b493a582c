// Package fetcher retrieves storefront pages over HTTP or through a
// headless browser. It exposes a single Fetcher interface, classifies
// failures into a retryable taxonomy, and extracts same-domain links
// from fetched HTML.
package fetcher
