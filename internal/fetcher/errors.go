package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a fetch failed. The crawler retries transient
// kinds and drops the URL on fatal ones.
type ErrorKind int

const (
	// KindTransport covers connection-level failures: DNS, TCP, TLS,
	// connection reset. These are transient.
	KindTransport ErrorKind = iota
	// KindTimeout covers request or render deadlines. Transient.
	KindTimeout
	// KindHTTP covers responses with status >= 400. Whether it is
	// transient depends on the status code.
	KindHTTP
	// KindNonHTML covers responses whose Content-Type is not HTML.
	// Fatal: refetching a PDF will not turn it into a product page.
	KindNonHTML
	// KindInit covers fetch mechanism startup failures, such as a
	// headless browser that cannot launch. Fatal for the whole domain.
	KindInit
)

// String returns the kind name for logs.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindNonHTML:
		return "non-html"
	case KindInit:
		return "init"
	default:
		return "unknown"
	}
}

// FetchError describes a failed page fetch.
//
// Design decision: We use one error type with a Kind enum rather than a
// sentinel per failure mode because:
//  1. HTTP failures need to carry the status code
//  2. The retry policy only asks one question: transient or not
//  3. errors.As gives callers the structured details when they want them
type FetchError struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// URL is the requested URL.
	URL string
	// StatusCode is set for KindHTTP errors.
	StatusCode int
	// ContentType is set for KindNonHTML errors.
	ContentType string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	case KindNonHTML:
		return fmt.Sprintf("fetch %s: non-html content type %q", e.URL, e.ContentType)
	case KindInit:
		if e.Err != nil {
			return fmt.Sprintf("fetcher init: %v", e.Err)
		}
		return "fetcher init failed"
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether a retry could plausibly succeed.
// Timeouts and transport errors are transient, as are HTTP 429 and 5xx.
// Other HTTP statuses, non-HTML responses, and init failures are fatal.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindTransport:
		return true
	case KindHTTP:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

// NewTransportError wraps a connection-level failure.
func NewTransportError(url string, err error) *FetchError {
	return &FetchError{Kind: KindTransport, URL: url, Err: err}
}

// NewTimeoutError wraps a deadline failure.
func NewTimeoutError(url string, err error) *FetchError {
	return &FetchError{Kind: KindTimeout, URL: url, Err: err}
}

// NewHTTPError records a status >= 400 response.
func NewHTTPError(url string, statusCode int) *FetchError {
	return &FetchError{Kind: KindHTTP, URL: url, StatusCode: statusCode}
}

// NewNonHTMLError records a response that is not an HTML document.
func NewNonHTMLError(url, contentType string) *FetchError {
	return &FetchError{Kind: KindNonHTML, URL: url, ContentType: contentType}
}

// NewInitError records a fetch mechanism startup failure.
func NewInitError(err error) *FetchError {
	return &FetchError{Kind: KindInit, Err: err}
}

// IsTransient reports whether err is worth retrying. Context
// cancellation is never retried: it means the crawl is shutting down.
// Unclassified errors count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient()
	}
	return true
}

// IsInitFailure reports whether err means the fetch mechanism itself
// could not start. The crawler fails the whole domain on these rather
// than burning retries per URL.
func IsInitFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindInit
}
