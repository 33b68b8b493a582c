// Package robots evaluates robots.txt rules for crawled hosts.
package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/shopscan/internal/config"
)

// DefaultCacheTTL is how long fetched robots.txt rules stay valid.
// Storefront robots files change rarely; refetching per request would
// double the traffic the politeness delays try to limit.
const DefaultCacheTTL = 30 * time.Minute

// Agent evaluates robots.txt rules with per-host caching and overrides.
//
// Design decision: Robots failures fail open because:
//  1. A missing robots.txt means no restrictions were published
//  2. A host that cannot serve robots.txt should not block the crawl
//  3. Politeness delays already bound the request rate either way
type Agent struct {
	// client fetches robots.txt files.
	client *http.Client
	// userAgent is the token matched against robots.txt groups.
	userAgent string
	// ttl bounds how long cached rules are reused.
	ttl time.Duration
	// respect disables all checks when false.
	respect bool
	// logger records fetch failures and disallows.
	logger *slog.Logger

	mu sync.RWMutex
	// cache holds fetched rules keyed by lowercased host.
	cache map[string]cacheEntry
	// overrides holds hosts exempted from robots checks.
	overrides map[string]struct{}
}

type cacheEntry struct {
	fetched time.Time
	rules   *robotstxt.RobotsData
}

// NewAgent constructs a robots agent. A nil client gets a short-timeout
// default so a hanging robots.txt fetch cannot stall a worker.
func NewAgent(cfg *config.Config, client *http.Client, logger *slog.Logger) *Agent {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.AppName
	}

	return &Agent{
		client:    client,
		userAgent: userAgent,
		ttl:       DefaultCacheTTL,
		respect:   cfg.RespectRobots,
		logger:    logger,
		cache:     make(map[string]cacheEntry),
		overrides: make(map[string]struct{}),
	}
}

// Allowed reports whether the URL may be fetched. Unparsable and
// relative URLs are never allowed.
func (a *Agent) Allowed(ctx context.Context, rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() {
		return false
	}

	if !a.respect {
		return true
	}

	host := strings.ToLower(target.Hostname())
	a.mu.RLock()
	_, exempt := a.overrides[host]
	a.mu.RUnlock()
	if exempt {
		return true
	}

	rules, err := a.rules(ctx, target)
	if err != nil {
		a.logger.Debug("robots.txt unavailable, allowing fetch",
			"host", target.Host, "error", err)
		return true
	}

	group := rules.FindGroup(a.userAgent)
	if group == nil {
		group = rules.FindGroup("*")
		if group == nil {
			return true
		}
	}

	allowed := group.Test(target.Path)
	if !allowed {
		a.logger.Debug("robots.txt disallows URL", "url", rawURL)
	}
	return allowed
}

// Override exempts a host from robots checks. Used for sites whose
// configuration sets ignore_robots.
func (a *Agent) Override(host string) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return
	}
	a.mu.Lock()
	a.overrides[host] = struct{}{}
	a.mu.Unlock()
}

// Purge evicts cached rules for a host, forcing a refetch on the next
// check.
func (a *Agent) Purge(host string) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return
	}
	a.mu.Lock()
	delete(a.cache, host)
	a.mu.Unlock()
}

// rules returns cached robots data for the target's host, fetching and
// parsing it when the cache entry is missing or stale.
func (a *Agent) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	a.mu.RLock()
	entry, ok := a.cache[host]
	if ok && time.Since(entry.fetched) < a.ttl {
		a.mu.RUnlock()
		return entry.rules, nil
	}
	a.mu.RUnlock()

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	a.mu.Lock()
	a.cache[host] = cacheEntry{fetched: time.Now(), rules: data}
	a.mu.Unlock()

	return data, nil
}
