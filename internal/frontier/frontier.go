// Package frontier holds the pending-URL queue driving the crawl.
package frontier

// Strategy selects the traversal order.
type Strategy string

const (
	// BFS dequeues the oldest entry first (breadth-first).
	BFS Strategy = "bfs"
	// DFS dequeues the most recently added entry first (depth-first).
	DFS Strategy = "dfs"
)

// ParseStrategy maps a config string onto a Strategy, defaulting to BFS.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == DFS {
		return DFS
	}
	return BFS
}

// Entry is one pending page visit. Entries are immutable once pushed.
type Entry struct {
	URL            string
	DiscoveredFrom string
	Depth          int
}

// Frontier is a two-ended queue of entries with URL-level dedup against both
// its own contents and an external notion of "already handled" supplied by
// the caller at push time. It is not safe for concurrent use; the crawl is
// strictly sequential.
type Frontier struct {
	entries  []Entry
	queued   map[string]struct{}
	strategy Strategy
}

// New creates an empty frontier with the given traversal strategy.
func New(strategy Strategy) *Frontier {
	return &Frontier{
		queued:   make(map[string]struct{}),
		strategy: strategy,
	}
}

// Strategy returns the traversal order in use.
func (f *Frontier) Strategy() Strategy {
	return f.strategy
}

// Push appends an entry unless its URL is already queued. Returns true when
// the entry was accepted.
func (f *Frontier) Push(e Entry) bool {
	if _, ok := f.queued[e.URL]; ok {
		return false
	}
	f.queued[e.URL] = struct{}{}
	f.entries = append(f.entries, e)
	return true
}

// Pop removes and returns the next entry per the strategy: DFS takes the
// tail, BFS the head. The second result is false when the frontier is empty.
func (f *Frontier) Pop() (Entry, bool) {
	if len(f.entries) == 0 {
		return Entry{}, false
	}

	var e Entry
	if f.strategy == DFS {
		e = f.entries[len(f.entries)-1]
		f.entries = f.entries[:len(f.entries)-1]
	} else {
		e = f.entries[0]
		f.entries = f.entries[1:]
	}
	delete(f.queued, e.URL)
	return e, true
}

// Contains reports whether a URL is currently queued.
func (f *Frontier) Contains(url string) bool {
	_, ok := f.queued[url]
	return ok
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	return len(f.entries)
}
