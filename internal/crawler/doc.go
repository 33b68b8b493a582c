// Package crawler schedules and runs storefront crawls.
//
// # Architecture
//
// The package is designed around the Orchestrator type, which drives one
// dispatch loop per domain. Each loop pops tasks from a priority
// Frontier, admits them against the shared StateStore (dedup and page
// budget in one step), spaces requests through Politeness, and hands the
// fetch to the configured fetcher under global and per-domain
// concurrency caps.
//
// Design decision: We implement our own scheduler rather than using a
// third-party crawling framework because:
//  1. The priority model (pagination over category listings over
//     everything else) has to hold inside a bounded queue with rank-aware
//     eviction
//  2. Page budgets, dedup, and politeness clocks must update atomically
//     per domain, which frameworks with global queues do not offer
//  3. Retry re-queues tasks into the frontier instead of blocking a
//     worker, so attempt counts have to travel with the queued entry
//
// # Components
//
//   - Orchestrator: runs the crawl and owns the per-domain dispatch loops
//   - Frontier: bounded three-tier priority queue with depth and
//     visited-URL rejection
//   - StateStore: per-domain visited set, product set, page counter, and
//     politeness clock
//   - Politeness: interval-plus-jitter wait computation
//   - RetryPolicy: transient-error retry with exponential backoff
//   - Collector: snapshot of the domain to product-URL mapping
//
// # Politeness
//
// The crawler is polite by default:
//   - Respects robots.txt (configurable per site)
//   - Minimum delay plus random jitter between requests to one domain
//   - At most one in-flight request per domain unless raised
//   - Bounded depth, page budget, and frontier size
//
// # Usage
//
//	orchestrator, err := crawler.NewOrchestrator(cfg, fetch, classify)
//	if err != nil {
//		return err
//	}
//	report, err := orchestrator.Run(ctx, seeds)
//	if err != nil {
//		return err
//	}
//	fmt.Println(report.Result.TotalProducts())
package crawler
