package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/model"
)

// consentCookies are set before navigation so storefronts serve their
// listings instead of a cookie banner.
var consentCookies = map[string]string{
	"cookie_consent":   "accepted",
	"privacy_settings": "accepted",
}

// RenderFetcher fetches pages through headless Chrome. Storefronts that
// build their product grids in JavaScript only expose product links
// after scripts run and lazy-loaded content scrolls into view.
type RenderFetcher struct {
	// timeout bounds one render including script execution.
	timeout time.Duration
	// maxBodySize caps the captured DOM in bytes.
	maxBodySize int64
	// pool rotates User-Agent identities.
	pool *UserAgentPool
	// sessions bounds concurrent browser tabs.
	sessions chan struct{}
	// logger records render details.
	logger *slog.Logger

	// allocOnce guards allocator creation.
	allocOnce sync.Once
	// allocCtx is the shared browser allocator context.
	allocCtx context.Context
	// allocCancel tears the allocator down.
	allocCancel context.CancelFunc
	// started flips after the first successful render. Failures before
	// that point are reported as init failures.
	started atomic.Bool
}

// NewRenderFetcher constructs a headless browser fetcher with bounded
// concurrency. The browser process starts lazily on the first fetch.
func NewRenderFetcher(cfg *config.Config, logger *slog.Logger) *RenderFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	sessions := cfg.Concurrency
	if sessions <= 0 {
		sessions = 1
	}
	return &RenderFetcher{
		timeout:     cfg.RenderTimeout,
		maxBodySize: cfg.MaxBodySize,
		pool:        NewUserAgentPool(cfg.UserAgent),
		sessions:    make(chan struct{}, sessions),
		logger:      logger,
	}
}

// Close shuts the shared browser down. Safe to call before any fetch.
func (r *RenderFetcher) Close() {
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

// allocator lazily creates the shared browser allocator.
func (r *RenderFetcher) allocator() context.Context {
	r.allocOnce.Do(func() {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("blink-settings", "imagesEnabled=false"),
		)
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), execOpts...)
	})
	return r.allocCtx
}

// Fetch navigates to the URL, waits for the document to settle, scrolls
// to trigger lazy loading, and captures the final DOM.
func (r *RenderFetcher) Fetch(ctx context.Context, req Request) (*model.Page, error) {
	select {
	case r.sessions <- struct{}{}:
		defer func() { <-r.sessions }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tabCtx, tabCancel := chromedp.NewContext(r.allocator())
	defer tabCancel()

	// Caller cancellation must tear the tab down; the tab context only
	// descends from the allocator.
	stopWatch := context.AfterFunc(ctx, tabCancel)
	defer stopWatch()

	runCtx, runCancel := context.WithTimeout(tabCtx, r.timeout)
	defer runCancel()

	ua := req.UserAgent
	if ua == "" {
		ua = r.pool.Next()
	}

	start := time.Now()
	var html string
	var finalURL string

	actions := []chromedp.Action{
		network.Enable(),
		emulation.SetUserAgentOverride(ua),
		r.setCookies(req),
		chromedp.Navigate(req.URL),
		waitForDocumentReady(r.logger),
		r.scrollPage(),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, r.classifyRunError(ctx, req.URL, err)
	}
	r.started.Store(true)

	if int64(len(html)) > r.maxBodySize {
		html = html[:r.maxBodySize]
	}
	if finalURL == "" {
		finalURL = req.URL
	}

	page := &model.Page{
		URL:         req.URL,
		FinalURL:    finalURL,
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte(html),
		Rendered:    true,
		FetchedAt:   time.Now(),
		Latency:     time.Since(start),
	}
	page.ComputeHash()

	r.logger.Debug("rendered page",
		"url", req.URL,
		"final_url", finalURL,
		"bytes", len(html),
		"latency_ms", page.Latency.Milliseconds(),
	)
	return page, nil
}

// setCookies installs the consent cookies plus any configured site
// cookies for the target domain before navigation.
func (r *RenderFetcher) setCookies(req Request) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		u, err := url.Parse(req.URL)
		if err != nil || u.Hostname() == "" {
			return nil
		}
		domain := u.Hostname()

		for name, value := range consentCookies {
			if err := network.SetCookie(name, value).WithDomain(domain).WithPath("/").Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", name, err)
			}
		}
		for _, pair := range parseCookiePairs(req.Cookie) {
			if err := network.SetCookie(pair[0], pair[1]).WithDomain(domain).WithPath("/").Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", pair[0], err)
			}
		}
		return nil
	})
}

// scrollPage scrolls the page in viewport-sized chunks to trigger lazy
// loading, then returns to the top. Scrolling is best effort: a failure
// still leaves a usable DOM.
func (r *RenderFetcher) scrollPage() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var height, viewport int64
		if err := chromedp.Evaluate(`document.body.scrollHeight`, &height).Do(ctx); err != nil {
			r.logger.Warn("scroll skipped", "error", err)
			return nil
		}
		if err := chromedp.Evaluate(`window.innerHeight`, &viewport).Do(ctx); err != nil || viewport <= 0 {
			viewport = 800
		}

		chunks := height / viewport
		if chunks > 3 {
			chunks = 3
		}
		for i := int64(0); i < chunks; i++ {
			script := fmt.Sprintf(`window.scrollTo(0, %d)`, (i+1)*viewport)
			if err := chromedp.Evaluate(script, nil).Do(ctx); err != nil {
				r.logger.Warn("scroll failed", "error", err)
				return nil
			}
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := chromedp.Evaluate(`window.scrollTo(0, 0)`, nil).Do(ctx); err != nil {
			r.logger.Warn("scroll reset failed", "error", err)
		}
		return nil
	})
}

// classifyRunError maps chromedp failures onto the fetch error taxonomy.
// Failures before the first successful render mean the browser itself
// cannot run here, which fails the whole mechanism rather than one URL.
func (r *RenderFetcher) classifyRunError(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !r.started.Load() {
		return NewInitError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(url, err)
	}
	return NewTransportError(url, err)
}

// waitForDocumentReady polls document.readyState until the page reports
// complete.
func waitForDocumentReady(logger *slog.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				if logger != nil {
					logger.Warn("waitForDocumentReady evaluate failed", "error", err)
				}
				return err
			}
			if readyState == "complete" {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				if logger != nil {
					logger.Warn("waitForDocumentReady cancelled", "error", ctx.Err())
				}
				return ctx.Err()
			}
		}
	})
}

// parseCookiePairs splits a "name1=value1; name2=value2" cookie string
// into pairs. Malformed fragments are skipped.
func parseCookiePairs(cookie string) [][2]string {
	if strings.TrimSpace(cookie) == "" {
		return nil
	}
	pairs := make([][2]string, 0, 2)
	for _, part := range strings.Split(cookie, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found || strings.TrimSpace(name) == "" {
			continue
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(name), strings.TrimSpace(value)})
	}
	return pairs
}
