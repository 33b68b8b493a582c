// Package classifier decides, from the URL string alone, whether a page
// is a product page and which scheduling category it belongs to.
//
// The classifier is pure: no I/O, no shared mutable state, deterministic
// output for a given input. This makes it safe to call from any worker
// goroutine without synchronization and trivial to test against fixture
// tables.
//
// Classification runs in three stages, first positive match wins:
//
//  1. Domain-specific product patterns, selected by substring match
//     against the domain (tatacliq.com patterns apply to www.tatacliq.com)
//  2. Global product patterns shared by most storefronts
//  3. A numeric heuristic: a digit run in the final path segment marks a
//     product unless the path mentions "category" or "collection"
//
// The scheduling category is decided independently: pagination patterns
// first, then listing-page markers, else normal.
package classifier
