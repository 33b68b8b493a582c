// Package main provides the entry point for the shopscan CLI.
//
// shopscan crawls e-commerce storefronts and collects product page URLs.
// It discovers product listings by following category and pagination links
// while respecting per-domain politeness limits.
//
// Usage:
//
//	shopscan crawl https://www.example-shop.com
//	shopscan crawl --sites .shopscan
//
// See --help for all available options.
package main

// main is the entry point for shopscan.
func main() {
	Execute()
}
