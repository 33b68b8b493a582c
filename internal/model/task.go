package model

// Category is the scheduling class of a crawl task. Higher-ranked categories
// are dispatched before lower-ranked ones within the same domain.
//
// Design decision: The category is decided once, at classification time,
// and stored on the task because:
// 1. Classification is pure and cheap, so doing it at discovery keeps the
//    dispatch path free of pattern matching
// 2. A retried task must re-enter the queue at its original rank, which
//    requires the rank to travel with the task
// 3. The frontier's eviction policy needs the rank without re-parsing the URL
type Category int

const (
	// CategoryNormal is an ordinary page with no scheduling preference.
	CategoryNormal Category = iota
	// CategoryPriority is a listing page (category/collection/shop/products)
	// likely to link to many product pages.
	CategoryPriority
	// CategoryPagination is a paginated continuation of a listing. Crawled
	// first so deep listings are walked before the frontier fills up.
	CategoryPagination
)

// String returns the string representation of the Category.
func (c Category) String() string {
	switch c {
	case CategoryPagination:
		return "pagination"
	case CategoryPriority:
		return "priority"
	case CategoryNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Rank returns the dispatch rank. A larger rank dequeues earlier.
func (c Category) Rank() int {
	return int(c)
}

// ParseCategory converts a string to a Category. Unrecognized values map
// to CategoryNormal so archived rows from older versions stay readable.
func ParseCategory(s string) Category {
	switch s {
	case "pagination":
		return CategoryPagination
	case "priority":
		return CategoryPriority
	default:
		return CategoryNormal
	}
}

// CrawlTask is one unit of pending fetch work. Task identity is the pair
// (Domain, URL); the URL is normalized before the task is created, so two
// tasks with equal fields are the same piece of work. Tasks are immutable
// once created.
type CrawlTask struct {
	// URL is the normalized absolute URL to fetch.
	URL string `json:"url"`

	// Domain is the lowercased host that owns this task. All scheduling
	// state (visited set, page budget, politeness clock) is keyed by it.
	Domain string `json:"domain"`

	// Depth is the link distance from the seed page. Seeds are depth 0.
	Depth int `json:"depth"`

	// Category is the scheduling class assigned at classification time.
	Category Category `json:"category"`
}

// TaskState tracks a task through its lifecycle for logging and statistics.
type TaskState int

const (
	// TaskQueued means the task sits in a frontier awaiting dispatch.
	TaskQueued TaskState = iota
	// TaskDispatched means a worker has claimed the task.
	TaskDispatched
	// TaskFetching means the fetch capability call is in flight.
	TaskFetching
	// TaskSucceeded means the fetch returned usable HTML.
	TaskSucceeded
	// TaskFailed means the fetch failed; the task may still be retried.
	TaskFailed
	// TaskDropped means the task is abandoned: retries exhausted, a fatal
	// fetch error, or a bound (depth, page cap, capacity) cut it off.
	TaskDropped
)

// String returns the string representation of the TaskState.
func (s TaskState) String() string {
	switch s {
	case TaskQueued:
		return "queued"
	case TaskDispatched:
		return "dispatched"
	case TaskFetching:
		return "fetching"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	case TaskDropped:
		return "dropped"
	default:
		return "unknown"
	}
}
