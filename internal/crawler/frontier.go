package crawler

import (
	"sync"

	"github.com/nao1215/shopscan/internal/model"
)

// entry is a queued task together with its retry attempt count.
// Attempt 0 is the first dispatch.
type entry struct {
	task    model.CrawlTask
	attempt int
}

// Frontier is the pending-work queue for one domain. Tasks are held in
// three tiers by category and dispatched pagination first, then
// priority, then normal, FIFO within a tier.
//
// Design decision: Three slices instead of a heap because:
// 1. There are exactly three ranks, so tier selection is a constant walk
// 2. FIFO order within a rank falls out of append and head removal
// 3. Eviction under capacity pressure needs tail access to the lowest
//    tier, which a heap does not give cheaply
type Frontier struct {
	mu sync.Mutex

	// tiers holds queued entries indexed by category rank.
	tiers [3][]entry

	// size is the total number of queued entries across tiers.
	size int

	// capacity bounds size. Pushes beyond it evict lower-priority work
	// or are discarded.
	capacity int

	// maxDepth is the deepest task depth accepted.
	maxDepth int

	// visited reports whether a URL is already in the domain's visited
	// set. Guards against the race between a caller's dedup check and
	// its push.
	visited func(url string) bool
}

// NewFrontier creates a frontier with the given capacity and depth
// bound. The visited hook may be nil, which disables the push-time
// dedup check.
func NewFrontier(capacity, maxDepth int, visited func(url string) bool) *Frontier {
	if capacity <= 0 {
		capacity = 1
	}
	return &Frontier{
		capacity: capacity,
		maxDepth: maxDepth,
		visited:  visited,
	}
}

// Push queues a task for its first dispatch. Returns false when the
// task is silently discarded: depth beyond the bound, URL already
// visited, or no room at or below the task's rank.
func (f *Frontier) Push(task model.CrawlTask) bool {
	if task.Depth > f.maxDepth {
		return false
	}
	if f.visited != nil && f.visited(task.URL) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushLocked(entry{task: task})
}

// PushRetry re-queues a failed task at its original rank. The visited
// check is skipped: a retried URL is in the visited set already, and
// re-entry is the point.
func (f *Frontier) PushRetry(task model.CrawlTask, attempt int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushLocked(entry{task: task, attempt: attempt})
}

// pushLocked inserts the entry, evicting lower-priority work when the
// frontier is full. Pagination tasks are only discarded once every
// queued task is pagination-ranked.
func (f *Frontier) pushLocked(e entry) bool {
	rank := e.task.Category.Rank()
	if f.size >= f.capacity && !f.evictBelowLocked(rank) {
		return false
	}
	f.tiers[rank] = append(f.tiers[rank], e)
	f.size++
	return true
}

// evictBelowLocked discards the most recently added entry from the
// lowest non-empty tier strictly below rank. Returns false when no such
// tier exists.
func (f *Frontier) evictBelowLocked(rank int) bool {
	for tier := 0; tier < rank; tier++ {
		n := len(f.tiers[tier])
		if n == 0 {
			continue
		}
		f.tiers[tier] = f.tiers[tier][:n-1]
		f.size--
		return true
	}
	return false
}

// Pop removes and returns the highest-priority queued task and its
// attempt count. The second return is false when the frontier is empty.
func (f *Frontier) Pop() (model.CrawlTask, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for tier := len(f.tiers) - 1; tier >= 0; tier-- {
		if len(f.tiers[tier]) == 0 {
			continue
		}
		e := f.tiers[tier][0]
		f.tiers[tier] = f.tiers[tier][1:]
		f.size--
		return e.task, e.attempt, true
	}
	return model.CrawlTask{}, 0, false
}

// Len returns the number of queued tasks.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// Drain removes and returns all queued tasks in dispatch order. Used
// when a domain stops dispatching: page cap reached, fetch mechanism
// failed, or shutdown.
func (f *Frontier) Drain() []model.CrawlTask {
	f.mu.Lock()
	defer f.mu.Unlock()

	drained := make([]model.CrawlTask, 0, f.size)
	for tier := len(f.tiers) - 1; tier >= 0; tier-- {
		for _, e := range f.tiers[tier] {
			drained = append(drained, e.task)
		}
		f.tiers[tier] = nil
	}
	f.size = 0
	return drained
}
