package model

import (
	"errors"
	"net/url"
	"strings"
)

// Seed errors.
var (
	// ErrEmptySeedURL is returned when the seed URL is empty.
	ErrEmptySeedURL = errors.New("seed URL cannot be empty")
	// ErrInvalidSeedURL is returned when the seed URL cannot be parsed
	// or lacks a host.
	ErrInvalidSeedURL = errors.New("invalid seed URL")
)

// defaultScheme is assumed when a seed is given as a bare host.
const defaultScheme = "https"

// Seed is an immutable value object representing a validated crawl
// starting point. It carries the normalized URL and the domain that all
// of the crawl's per-domain state will be keyed by.
type Seed struct {
	url    string // Normalized absolute URL
	domain string // Lowercased host including any www prefix
}

// NewSeed creates a Seed from a raw URL string. A missing scheme defaults
// to https. Returns an error if the URL cannot be parsed or has no host.
func NewSeed(raw string) (Seed, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Seed{}, ErrEmptySeedURL
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = defaultScheme + "://" + trimmed
	}

	normalized, err := NormalizeURL(trimmed)
	if err != nil {
		return Seed{}, err
	}

	return Seed{
		url:    normalized,
		domain: DomainOf(normalized),
	}, nil
}

// MustNewSeed creates a new Seed or panics if invalid.
// Use only for known-valid URLs in tests or initialization.
func MustNewSeed(raw string) Seed {
	s, err := NewSeed(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// URL returns the normalized seed URL.
func (s Seed) URL() string {
	return s.url
}

// Domain returns the domain the seed belongs to.
func (s Seed) Domain() string {
	return s.domain
}

// IsZero returns true if this is a zero value (empty) Seed.
func (s Seed) IsZero() bool {
	return s.url == ""
}

// Equals returns true if two Seed values are equal.
func (s Seed) Equals(other Seed) bool {
	return s.url == other.url
}

// Task returns the depth-0 crawl task for this seed. Seed pages carry the
// priority rank so listing roots are expanded before incidental links.
func (s Seed) Task() CrawlTask {
	return CrawlTask{
		URL:      s.url,
		Domain:   s.domain,
		Depth:    0,
		Category: CategoryPriority,
	}
}

// NormalizeURL canonicalizes a URL so that trivially different spellings
// of the same page share one identity:
//   - scheme and host are lowercased
//   - the fragment is dropped
//   - default ports (:80 for http, :443 for https) are stripped
//   - an empty path becomes "/"
//
// The query string is preserved because listing pages distinguish
// themselves by query parameters (page=2, offset=40).
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidSeedURL
	}
	if u.Host == "" {
		return "", ErrInvalidSeedURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// DomainOf extracts the lowercased hostname from a URL string. Returns an
// empty string if the URL cannot be parsed. The www prefix is kept: the
// original site lists use it and per-domain state should match the seeds
// exactly.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SameDomain reports whether two URL strings share a hostname. Used for
// restricting link expansion to the seed's own site.
func SameDomain(a, b string) bool {
	da := DomainOf(a)
	if da == "" {
		return false
	}
	return da == DomainOf(b)
}
