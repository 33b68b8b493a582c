// Package database provides SQLite-based storage for crawl runs.
//
// This package implements the CrawlDB, which stores:
//   - Run records with seed lists and the final report
//   - Visited page records with product metadata per run
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// The archive is what powers run history and the compare command: two
// runs' product URLs can be diffed long after the crawls finished.
package database
