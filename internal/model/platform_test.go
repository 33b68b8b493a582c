package model

import "testing"

func TestShopPlatform_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		platform ShopPlatform
		want     string
	}{
		{name: "shopify", platform: ShopPlatformShopify, want: "shopify"},
		{name: "magento", platform: ShopPlatformMagento, want: "magento"},
		{name: "unknown", platform: ShopPlatformUnknown, want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.platform.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestShopPlatform_DisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		platform ShopPlatform
		want     string
	}{
		{name: "shopify", platform: ShopPlatformShopify, want: "Shopify"},
		{name: "woocommerce keeps vendor casing", platform: ShopPlatformWooCommerce, want: "WooCommerce"},
		{name: "bigcommerce keeps vendor casing", platform: ShopPlatformBigCommerce, want: "BigCommerce"},
		{name: "unknown", platform: ShopPlatformUnknown, want: "Unknown"},
		{name: "unmapped archived value is title cased", platform: ShopPlatform("squarespace"), want: "Squarespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.platform.DisplayName(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestShopPlatform_IsValid(t *testing.T) {
	t.Parallel()

	valid := []ShopPlatform{
		ShopPlatformShopify, ShopPlatformMagento, ShopPlatformWooCommerce,
		ShopPlatformBigCommerce, ShopPlatformSalesforce, ShopPlatformPrestaShop,
	}
	for _, p := range valid {
		if !p.IsValid() {
			t.Errorf("expected %s to be valid", p)
		}
	}

	if ShopPlatformUnknown.IsValid() {
		t.Error("expected unknown platform to be invalid")
	}
	if ShopPlatform("etsy").IsValid() {
		t.Error("expected unrecognized platform to be invalid")
	}
}

func TestParseShopPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want ShopPlatform
	}{
		{name: "shopify", in: "shopify", want: ShopPlatformShopify},
		{name: "magento alias", in: "adobe_commerce", want: ShopPlatformMagento},
		{name: "woocommerce alias", in: "wordpress", want: ShopPlatformWooCommerce},
		{name: "demandware alias", in: "demandware", want: ShopPlatformSalesforce},
		{name: "unrecognized", in: "etsy", want: ShopPlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ParseShopPlatform(tt.in); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
