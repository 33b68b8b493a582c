// Package model defines the core data structures used throughout shopscan.
//
// This package contains the following main types:
//   - Seed: A validated crawl starting point (URL plus owning domain)
//   - CrawlTask: One unit of pending fetch work with its scheduling category
//   - Page: A fetched web page with response metadata
//   - CrawlResult: The domain to product-URL mapping produced by a run
//   - RunReport: Per-run statistics wrapped around the result
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, fetcher, report, database) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
