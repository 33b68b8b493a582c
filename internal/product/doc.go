// Package product extracts product metadata and platform hints from
// fetched storefront pages.
package product
