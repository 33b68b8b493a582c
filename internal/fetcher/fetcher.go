package fetcher

import (
	"context"
	"log/slog"

	"github.com/nao1215/shopscan/internal/model"
)

// Request describes a single page fetch.
type Request struct {
	// URL is the absolute URL to fetch.
	URL string
	// UserAgent overrides the rotating pool for this request.
	UserAgent string
	// Cookie is sent as the Cookie header when non-empty.
	Cookie string
	// Headers are extra request headers.
	Headers map[string]string
	// Render asks for a headless browser fetch when the fetcher
	// supports it.
	Render bool
}

// Fetcher retrieves a single page.
//
// Design decision: One narrow interface for both plain HTTP and headless
// browser fetching because:
//  1. The crawl engine should not know how a page was obtained
//  2. Per-site configuration can swap mechanisms without touching the engine
//  3. Tests can substitute an in-memory fake
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*model.Page, error)
}

// Composite prefers the renderer for render requests and falls back to
// plain HTTP when the renderer fails. Init failures of the renderer are
// not fatal as long as the HTTP path can still serve the page.
type Composite struct {
	httpFetcher Fetcher
	renderer    Fetcher
	logger      *slog.Logger
}

// NewComposite builds a composite fetcher from HTTP and optional
// renderer components.
func NewComposite(httpFetcher, renderer Fetcher, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{httpFetcher: httpFetcher, renderer: renderer, logger: logger}
}

// Fetch delegates to the renderer for render requests, falling back to
// the HTTP fetcher on renderer errors. Context cancellation is returned
// as is: shutdown must not trigger a second fetch attempt.
func (c *Composite) Fetch(ctx context.Context, req Request) (*model.Page, error) {
	if req.Render && c.renderer != nil {
		page, err := c.renderer.Fetch(ctx, req)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Warn("renderer failed, falling back to HTTP fetch",
			"url", req.URL, "error", err)
	}
	req.Render = false
	return c.httpFetcher.Fetch(ctx, req)
}
