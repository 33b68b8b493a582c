package crawler

import "errors"

// Engine construction errors.
//
// Design decision: We use sentinel errors for dependency validation
// because:
// 1. A missing collaborator is a programming error worth failing fast on
// 2. Callers can distinguish them from crawl-time failures, which are
//    recorded in the run report instead of returned
var (
	// ErrNilFetcher is returned when no page fetcher is provided.
	ErrNilFetcher = errors.New("fetcher is required")

	// ErrNilClassifier is returned when no URL classifier is provided.
	ErrNilClassifier = errors.New("classifier is required")

	// ErrNoSeedTasks is returned when Run is called without any seeds.
	ErrNoSeedTasks = errors.New("no seed tasks: nothing to crawl")
)
