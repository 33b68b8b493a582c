package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Page represents one fetched web page.
//
// Design decision: We keep the decoded body alongside the response
// metadata because:
// 1. The body feeds both link extraction and product metadata extraction
// 2. Status code and content type drive the fetch error taxonomy
// 3. The hash allows change detection between archived runs
type Page struct {
	// URL is the normalized URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Equal to URL when no redirect
	// occurred.
	FinalURL string `json:"final_url"`

	// StatusCode is the HTTP response status code. Rendered pages report
	// 200 because the browser surfaces no status for the main document.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers.
	// Keys are header names (canonicalized), values are slices of header values.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type of the response, without parameters.
	ContentType string `json:"content_type"`

	// Body is the decoded (uncompressed, UTF-8) response body.
	// Limited to MaxBodySize bytes. Excluded from JSON to keep reports small.
	Body []byte `json:"-"`

	// Hash is the SHA-256 hash of the body.
	// Used for deduplication and change detection.
	Hash string `json:"hash,omitempty"`

	// Rendered is true when the page came from a headless browser rather
	// than a plain HTTP request.
	Rendered bool `json:"rendered,omitempty"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`

	// Latency is how long the fetch took.
	Latency time.Duration `json:"latency"`
}

// MaxBodySize is the maximum size of body content to keep.
// Larger bodies are truncated to this size. Product listing pages with
// lazy-loaded grids can be several megabytes of markup.
const MaxBodySize = 5 * 1024 * 1024 // 5 MB

// ComputeHash calculates and sets the SHA-256 hash of the page body.
// This should be called after setting the Body field.
func (p *Page) ComputeHash() {
	if len(p.Body) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Body)
	p.Hash = hex.EncodeToString(hash[:])
}

// GetHeader returns the first value of the specified header.
// Returns empty string if the header is not present.
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML returns true if the page content type indicates HTML.
func (p *Page) IsHTML() bool {
	return p.ContentType == "text/html" ||
		p.ContentType == "application/xhtml+xml" ||
		strings.HasPrefix(p.ContentType, "text/html;")
}

// TruncateBody ensures the body doesn't exceed MaxBodySize.
// Call this after setting Body to enforce the size limit.
func (p *Page) TruncateBody() {
	if len(p.Body) > MaxBodySize {
		p.Body = p.Body[:MaxBodySize]
	}
}
