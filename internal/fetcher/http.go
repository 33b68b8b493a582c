package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/shopscan/internal/config"
	"github.com/nao1215/shopscan/internal/model"
)

// HTTPFetcher implements Fetcher via the Go http.Client.
//
// Design decision: Compression is negotiated and decoded by hand rather
// than left to the transport because:
//  1. The transport never offers brotli, which storefront CDNs prefer
//  2. Manual decoding keeps the body cap measured in decoded bytes
//  3. The stored page body must be plain UTF-8 for later extraction
type HTTPFetcher struct {
	// client is the shared HTTP client with a tuned transport.
	client *http.Client
	// pool rotates User-Agent identities.
	pool *UserAgentPool
	// maxBodySize caps the decoded body in bytes.
	maxBodySize int64
	// logger records fetch details.
	logger *slog.Logger
}

// NewHTTPFetcher constructs an HTTP fetcher from the crawl configuration.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Decoding happens in readBody so the Accept-Encoding offer can
		// include brotli.
		DisableCompression: true,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		pool:        NewUserAgentPool(cfg.UserAgent),
		maxBodySize: cfg.MaxBodySize,
		logger:      logger,
	}
}

// Client exposes the underlying HTTP client for reuse (eg. robots.txt fetches).
func (f *HTTPFetcher) Client() *http.Client {
	if f == nil {
		return nil
	}
	return f.client
}

// Fetch downloads a single URL using HTTP.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*model.Page, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, NewTransportError(req.URL, fmt.Errorf("build request: %w", err))
	}

	ua := req.UserAgent
	if ua == "" {
		ua = f.pool.Next()
	}
	httpReq.Header.Set("User-Agent", ua)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if req.Cookie != "" {
		httpReq.Header.Set("Cookie", req.Cookie)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, classifyRequestError(req.URL, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		drainAndClose(resp.Body)
		return nil, NewHTTPError(req.URL, resp.StatusCode)
	}

	mediaType := responseMediaType(resp)
	if mediaType != "" && !(&model.Page{ContentType: mediaType}).IsHTML() {
		drainAndClose(resp.Body)
		return nil, NewNonHTMLError(req.URL, mediaType)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, classifyRequestError(req.URL, err)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	page := &model.Page{
		URL:         req.URL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header.Clone(),
		ContentType: mediaType,
		Body:        body,
		FetchedAt:   time.Now(),
		Latency:     time.Since(start),
	}
	page.ComputeHash()

	f.logger.Debug("fetched page",
		"url", req.URL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"latency_ms", page.Latency.Milliseconds(),
	)
	return page, nil
}

// readBody decompresses, charset-decodes, and caps the response body.
// Bodies over the cap are truncated, not rejected: a truncated listing
// page still yields links.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			drainAndClose(resp.Body)
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	// Transcode legacy charsets to UTF-8 so downstream parsing sees one
	// encoding. Falls back to the raw stream when the label is unknown.
	if decoded, err := charset.NewReader(reader, resp.Header.Get("Content-Type")); err == nil {
		reader = decoded
	}

	limited := io.LimitReader(reader, f.maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		f.logger.Debug("response body truncated", "url", resp.Request.URL.String(), "limit", f.maxBodySize)
		body = body[:f.maxBodySize]
	}
	return body, nil
}

// classifyRequestError maps transport-layer failures onto the fetch
// error taxonomy. Context cancellation passes through untouched so the
// crawl engine can tell shutdown apart from a broken origin.
func classifyRequestError(url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(url, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(url, err)
	}
	return NewTransportError(url, err)
}

// responseMediaType returns the response media type without parameters.
func responseMediaType(resp *http.Response) string {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		if i := strings.Index(ct, ";"); i >= 0 {
			ct = ct[:i]
		}
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mediaType
}

// drainAndClose discards a bounded amount of the body before closing so
// the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
