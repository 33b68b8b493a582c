package product

import (
	"testing"

	"github.com/nao1215/shopscan/internal/model"
)

// TestExtractor_Extract tests metadata extraction from product markup.
func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("reads opengraph product markup", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{
			URL: "https://www.virgio.com/products/floral-midi-dress",
			Body: []byte(`<html><head>
<meta property="og:title" content="Floral Midi Dress">
<meta property="og:image" content="https://cdn.shopify.com/s/files/dress.jpg">
<meta property="product:price:amount" content="1299.00">
<meta property="product:price:currency" content="INR">
<title>Floral Midi Dress | Virgio</title>
</head><body></body></html>`),
		}

		meta := NewExtractor(nil).Extract(page)

		if meta.Title != "Floral Midi Dress" {
			t.Errorf("expected og:title, got %q", meta.Title)
		}
		if meta.Price != "1299.00" {
			t.Errorf("expected price, got %q", meta.Price)
		}
		if meta.Currency != "INR" {
			t.Errorf("expected currency, got %q", meta.Currency)
		}
		if meta.Image != "https://cdn.shopify.com/s/files/dress.jpg" {
			t.Errorf("expected image, got %q", meta.Image)
		}
		if meta.Platform != model.ShopPlatformShopify {
			t.Errorf("expected shopify from image CDN, got %q", meta.Platform)
		}
	})

	t.Run("falls back to schema.org markup", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{
			URL: "https://www.westside.com/p/linen-shirt",
			Body: []byte(`<html><body>
<div itemscope itemtype="https://schema.org/Product">
  <span itemprop="name">Linen Shirt</span>
  <meta itemprop="price" content="2199">
  <meta itemprop="priceCurrency" content="INR">
  <img itemprop="image" src="/images/linen-shirt.jpg">
</div>
</body></html>`),
		}

		meta := NewExtractor(nil).Extract(page)

		if meta.Title != "Linen Shirt" {
			t.Errorf("expected itemprop name, got %q", meta.Title)
		}
		if meta.Price != "2199" {
			t.Errorf("expected itemprop price, got %q", meta.Price)
		}
		if meta.Currency != "INR" {
			t.Errorf("expected itemprop currency, got %q", meta.Currency)
		}
		if meta.Image != "https://www.westside.com/images/linen-shirt.jpg" {
			t.Errorf("expected resolved image URL, got %q", meta.Image)
		}
	})

	t.Run("falls back to title tag and price node", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{
			URL: "https://www.tatacliq.com/shirt/p-mp000123",
			Body: []byte(`<html><head><title>  Casual Shirt  </title></head>
<body><div class="price"> ₹ 1,499 </div></body></html>`),
		}

		meta := NewExtractor(nil).Extract(page)

		if meta.Title != "Casual Shirt" {
			t.Errorf("expected title tag text, got %q", meta.Title)
		}
		if meta.Price != "₹ 1,499" {
			t.Errorf("expected price node text, got %q", meta.Price)
		}
	})

	t.Run("returns zero metadata for bare pages", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{
			URL:  "https://www.nykaafashion.com/",
			Body: []byte(`<html><body><p>nothing here</p></body></html>`),
		}

		meta := NewExtractor(nil).Extract(page)

		if meta.Title != "" || meta.Price != "" || meta.Currency != "" || meta.Image != "" {
			t.Errorf("expected zero metadata, got %+v", meta)
		}
		if meta.Platform != model.ShopPlatformUnknown {
			t.Errorf("expected unknown platform, got %q", meta.Platform)
		}
	})

	t.Run("keeps protocol relative image untouched", func(t *testing.T) {
		t.Parallel()

		page := &model.Page{
			URL: "https://www.virgio.com/products/slip",
			Body: []byte(`<html><head>
<meta property="og:image" content="//cdn.example.net/slip.jpg">
</head><body></body></html>`),
		}

		meta := NewExtractor(nil).Extract(page)

		if meta.Image != "https://cdn.example.net/slip.jpg" {
			t.Errorf("expected scheme from page URL, got %q", meta.Image)
		}
	})
}

// TestDetectPlatform tests shop platform marker detection.
func TestDetectPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want model.ShopPlatform
	}{
		{
			name: "shopify cdn",
			body: `<script src="https://cdn.shopify.com/s/files/theme.js"></script>`,
			want: model.ShopPlatformShopify,
		},
		{
			name: "shopify new cdn path",
			body: `<link href="/cdn/shop/t/1/assets/base.css">`,
			want: model.ShopPlatformShopify,
		},
		{
			name: "magento init blocks",
			body: `<script type="text/x-magento-init">{}</script>`,
			want: model.ShopPlatformMagento,
		},
		{
			name: "woocommerce plugin path",
			body: `<link href="/wp-content/plugins/woocommerce/assets/css/woocommerce.css">`,
			want: model.ShopPlatformWooCommerce,
		},
		{
			name: "woocommerce generator meta",
			body: `<meta name="generator" content="WooCommerce 8.1.2">`,
			want: model.ShopPlatformWooCommerce,
		},
		{
			name: "bigcommerce cdn",
			body: `<img src="https://cdn11.bigcommerce.com/s-abc/product.jpg">`,
			want: model.ShopPlatformBigCommerce,
		},
		{
			name: "demandware storefront",
			body: `<a href="/on/demandware.store/Sites-x-Site/en_IN/Cart-Show">cart</a>`,
			want: model.ShopPlatformSalesforce,
		},
		{
			name: "prestashop generator meta",
			body: `<meta name="generator" content="PrestaShop">`,
			want: model.ShopPlatformPrestaShop,
		},
		{
			name: "shopify wins over generic markers",
			body: `<script>window.Shopify = {};</script><div class="woocommerce"></div>`,
			want: model.ShopPlatformShopify,
		},
		{
			name: "plain storefront",
			body: `<html><body><a href="/products/1">p</a></body></html>`,
			want: model.ShopPlatformUnknown,
		},
		{
			name: "empty body",
			body: "",
			want: model.ShopPlatformUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DetectPlatform([]byte(tt.body)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
