package product

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/shopscan/internal/model"
)

// Metadata holds what could be extracted from a product page. Zero
// fields mean the page did not declare that piece of information.
type Metadata struct {
	// Title is the product title.
	Title string
	// Price is the displayed price, as text.
	Price string
	// Currency is the declared currency code.
	Currency string
	// Image is the primary product image URL.
	Image string
	// Platform is the detected shop platform.
	Platform model.ShopPlatform
}

// Extractor pulls product metadata out of HTML markup.
//
// Design decision: Extraction reads OpenGraph and schema.org markup
// rather than site-specific selectors because:
//  1. Storefronts embed both for search engines and social previews
//  2. The same rules work across Shopify, Magento and custom platforms
//  3. Per-site selector maintenance does not scale with the site list
type Extractor struct {
	// logger records extraction failures.
	logger *slog.Logger
}

// NewExtractor creates a product metadata extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract reads product metadata from the page body. Pages that cannot
// be parsed still get platform detection, which scans raw markup.
func (e *Extractor) Extract(page *model.Page) Metadata {
	meta := Metadata{Platform: DetectPlatform(page.Body)}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		e.logger.Debug("product page parse failed", "url", page.URL, "error", err)
		return meta
	}

	meta.Title = e.title(doc)
	meta.Price = e.price(doc)
	meta.Currency = e.currency(doc)
	meta.Image = e.image(doc, page.URL)
	return meta
}

// title prefers OpenGraph, then schema.org, then document markup.
func (e *Extractor) title(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:title"]`); v != "" {
		return v
	}
	if v := itemprop(doc, "name"); v != "" {
		return v
	}
	if v := cleanText(doc.Find("title").First().Text()); v != "" {
		return v
	}
	return cleanText(doc.Find("h1").First().Text())
}

// price reads the machine-readable price declarations. Display-only
// price nodes are a last resort since they mix symbols and sale text.
func (e *Extractor) price(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
	} {
		if v := metaContent(doc, sel); v != "" {
			return v
		}
	}
	if v := itemprop(doc, "price"); v != "" {
		return v
	}
	for _, sel := range []string{".price", ".product-price"} {
		if v := cleanText(doc.Find(sel).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

// currency reads the declared currency code.
func (e *Extractor) currency(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[property="product:price:currency"]`,
		`meta[property="og:price:currency"]`,
	} {
		if v := metaContent(doc, sel); v != "" {
			return v
		}
	}
	return itemprop(doc, "priceCurrency")
}

// image returns the primary product image, resolved against the page
// URL when the markup uses a relative path.
func (e *Extractor) image(doc *goquery.Document, pageURL string) string {
	img := metaContent(doc, `meta[property="og:image"]`)
	if img == "" {
		sel := doc.Find(`[itemprop="image"]`).First()
		if v, ok := sel.Attr("content"); ok {
			img = strings.TrimSpace(v)
		} else if v, ok := sel.Attr("src"); ok {
			img = strings.TrimSpace(v)
		}
	}
	if img == "" {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return img
	}
	ref, err := url.Parse(img)
	if err != nil {
		return img
	}
	resolved := base.ResolveReference(ref)
	// data: URIs and other non-web schemes stay as declared.
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return img
	}
	return resolved.String()
}

// metaContent returns the trimmed content attribute of the first
// matching meta tag.
func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

// itemprop returns the first schema.org property value, preferring the
// content attribute over element text.
func itemprop(doc *goquery.Document, name string) string {
	sel := doc.Find(`[itemprop="` + name + `"]`).First()
	if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return cleanText(sel.Text())
}

// cleanText trims and collapses whitespace runs.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// platformSignature maps body markers to a shop platform. Markers are
// matched case-insensitively against the raw markup, which also covers
// meta generator tags.
type platformSignature struct {
	platform model.ShopPlatform
	markers  []string
}

// platformSignatures lists detection markers in priority order.
// The first signature with any matching marker wins.
var platformSignatures = []platformSignature{
	{
		platform: model.ShopPlatformShopify,
		markers:  []string{"cdn.shopify.com", "shopify.theme", "window.shopify", "/cdn/shop/"},
	},
	{
		platform: model.ShopPlatformMagento,
		markers:  []string{"x-magento-init", "data-mage-init", "mage/cookies", "magento_"},
	},
	{
		platform: model.ShopPlatformWooCommerce,
		markers:  []string{"wp-content/plugins/woocommerce", "woocommerce"},
	},
	{
		platform: model.ShopPlatformBigCommerce,
		markers:  []string{"cdn11.bigcommerce.com", "bigcommerce.com", "stencil-utils"},
	},
	{
		platform: model.ShopPlatformSalesforce,
		markers:  []string{"demandware.static", "/on/demandware.store", "dwstatic"},
	},
	{
		platform: model.ShopPlatformPrestaShop,
		markers:  []string{"prestashop", "/modules/ps_"},
	},
}

// DetectPlatform scans page markup for shop platform markers.
// Returns ShopPlatformUnknown when nothing matches.
func DetectPlatform(body []byte) model.ShopPlatform {
	if len(body) == 0 {
		return model.ShopPlatformUnknown
	}
	haystack := strings.ToLower(string(body))
	for _, sig := range platformSignatures {
		for _, marker := range sig.markers {
			if strings.Contains(haystack, marker) {
				return sig.platform
			}
		}
	}
	return model.ShopPlatformUnknown
}
