package model

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// platformUnknownStr is the string representation for unknown platform values.
const platformUnknownStr = "unknown"

// ShopPlatform represents the e-commerce platform a site runs on.
// Knowing the platform helps interpret URL shapes: Shopify sites use
// /collections/ and /products/ paths, Magento uses .html product slugs,
// and so on.
type ShopPlatform string

// Shop platform constants.
const (
	// ShopPlatformUnknown represents an unrecognized platform.
	ShopPlatformUnknown ShopPlatform = ""
	// ShopPlatformShopify represents Shopify.
	ShopPlatformShopify ShopPlatform = "shopify"
	// ShopPlatformMagento represents Magento / Adobe Commerce.
	ShopPlatformMagento ShopPlatform = "magento"
	// ShopPlatformWooCommerce represents WooCommerce on WordPress.
	ShopPlatformWooCommerce ShopPlatform = "woocommerce"
	// ShopPlatformBigCommerce represents BigCommerce.
	ShopPlatformBigCommerce ShopPlatform = "bigcommerce"
	// ShopPlatformSalesforce represents Salesforce Commerce Cloud (Demandware).
	ShopPlatformSalesforce ShopPlatform = "salesforce"
	// ShopPlatformPrestaShop represents PrestaShop.
	ShopPlatformPrestaShop ShopPlatform = "prestashop"
)

// String returns the string representation of the ShopPlatform.
func (p ShopPlatform) String() string {
	if p == ShopPlatformUnknown {
		return platformUnknownStr
	}
	return string(p)
}

// displayNames hold the vendor capitalization of each platform, which
// plain title casing gets wrong (WooCommerce, BigCommerce).
var displayNames = map[ShopPlatform]string{
	ShopPlatformShopify:     "Shopify",
	ShopPlatformMagento:     "Magento",
	ShopPlatformWooCommerce: "WooCommerce",
	ShopPlatformBigCommerce: "BigCommerce",
	ShopPlatformSalesforce:  "Salesforce Commerce",
	ShopPlatformPrestaShop:  "PrestaShop",
}

// DisplayName returns the platform name the way the vendor writes it.
// Values outside the known set, such as generator tags archived by a
// newer version, are title cased.
func (p ShopPlatform) DisplayName() string {
	if name, ok := displayNames[p]; ok {
		return name
	}
	if p == ShopPlatformUnknown {
		return "Unknown"
	}
	return cases.Title(language.English).String(string(p))
}

// IsValid returns true if this is a known platform.
func (p ShopPlatform) IsValid() bool {
	switch p {
	case ShopPlatformShopify, ShopPlatformMagento, ShopPlatformWooCommerce,
		ShopPlatformBigCommerce, ShopPlatformSalesforce, ShopPlatformPrestaShop:
		return true
	default:
		return false
	}
}

// ParseShopPlatform converts a string to ShopPlatform.
func ParseShopPlatform(s string) ShopPlatform {
	switch s {
	case "shopify":
		return ShopPlatformShopify
	case "magento", "adobe_commerce":
		return ShopPlatformMagento
	case "woocommerce", "wordpress":
		return ShopPlatformWooCommerce
	case "bigcommerce":
		return ShopPlatformBigCommerce
	case "salesforce", "demandware":
		return ShopPlatformSalesforce
	case "prestashop":
		return ShopPlatformPrestaShop
	default:
		return ShopPlatformUnknown
	}
}
