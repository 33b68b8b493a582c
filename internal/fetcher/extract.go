package fetcher

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/shopscan/internal/model"
)

// LinkExtractor pulls crawlable links and page metadata out of HTML.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
//  4. Standard library extension, well-maintained
type LinkExtractor struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ExtractResult contains all information extracted from an HTML page.
//
// Design decision: We return a comprehensive result struct rather than
// multiple methods because:
//  1. Single parsing pass is more efficient
//  2. Related data can be collected together
//  3. Caller can choose what to use
type ExtractResult struct {
	// Title is the page title from <title> tag.
	Title string

	// Links contains all discovered crawlable URLs, normalized and
	// deduplicated, in document order.
	Links []string

	// InternalLinks are links on the same domain as the base URL. These
	// are the only candidates for frontier expansion.
	InternalLinks []string

	// ExternalLinks are links to other domains.
	ExternalLinks []string

	// Scripts contains script sources. Platform detection reads these.
	Scripts []string

	// MetaTags contains meta tag information keyed by name or property.
	MetaTags map[string]string

	// Canonical is the resolved rel=canonical URL, if the page declares one.
	Canonical string
}

// NewLinkExtractor creates an extractor with the given base URL.
// The base URL is used to resolve relative links.
func NewLinkExtractor(baseURL string) (*LinkExtractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &LinkExtractor{baseURL: u}, nil
}

// Extract parses HTML content and collects links and metadata.
func (e *LinkExtractor) Extract(content io.Reader) (*ExtractResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ExtractResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
		Scripts:       make([]string, 0),
		MetaTags:      make(map[string]string),
	}
	seen := make(map[string]bool)

	// Walk the DOM tree
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			e.processElement(n, result, seen)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (e *LinkExtractor) processElement(n *html.Node, result *ExtractResult, seen map[string]bool) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			resolved := e.resolveURL(href)
			if resolved == "" || seen[resolved] {
				return
			}
			seen[resolved] = true
			result.Links = append(result.Links, resolved)
			e.classifyLink(resolved, result)
		}

	case "script":
		if src := getAttr(n, "src"); src != "" {
			if resolved := e.resolveURL(src); resolved != "" {
				result.Scripts = append(result.Scripts, resolved)
			}
		}

	case "meta":
		name := getAttr(n, "name")
		if name == "" {
			name = getAttr(n, "property") // OpenGraph uses property
		}
		content := getAttr(n, "content")
		if name != "" && content != "" {
			result.MetaTags[name] = content
		}

	case "link":
		if href := getAttr(n, "href"); href != "" && getAttr(n, "rel") == "canonical" {
			result.Canonical = e.resolveURL(href)
		}
	}
}

// resolveURL resolves a relative URL against the base URL and normalizes
// it. Non-crawlable schemes and bare fragments resolve to "".
//
// Design decision: We resolve URLs rather than storing them as-is because:
//  1. Makes deduplication easier
//  2. Allows proper link classification
//  3. Reduces ambiguity in results
func (e *LinkExtractor) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := e.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	normalized, err := model.NormalizeURL(resolved.String())
	if err != nil {
		return ""
	}
	return normalized
}

// classifyLink sorts a link into internal or external.
func (e *LinkExtractor) classifyLink(link string, result *ExtractResult) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}

	if strings.EqualFold(u.Hostname(), e.baseURL.Hostname()) {
		result.InternalLinks = append(result.InternalLinks, link)
		return
	}
	result.ExternalLinks = append(result.ExternalLinks, link)
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
