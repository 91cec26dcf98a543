// Package state owns the mutable crawl state: the visited set, the learned
// route-parameter table, and the seen-seed set. All mutation flows through
// CrawlState methods so the scheduler stays testable without a browser.
package state

import (
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
)

// CrawlState tracks what one run has already handled. Not safe for concurrent
// use; the crawl is strictly sequential.
type CrawlState struct {
	filter    *bloom.BloomFilter
	visited   map[string]struct{}
	order     []string
	params    map[string]map[string]struct{}
	seenSeeds map[string]struct{}
}

// NewCrawlState sizes the visited-set bloom prefilter from the page budget.
func NewCrawlState(expectedPages int) *CrawlState {
	if expectedPages < 100 {
		expectedPages = 100
	}
	return &CrawlState{
		filter:    bloom.NewWithEstimates(uint(expectedPages)*10, 0.001),
		visited:   make(map[string]struct{}),
		params:    make(map[string]map[string]struct{}),
		seenSeeds: make(map[string]struct{}),
	}
}

// MarkVisited records a URL as dequeued for testing. Returns false when the
// URL was already visited; a URL is only ever marked once per run.
func (s *CrawlState) MarkVisited(url string) bool {
	if s.HasVisited(url) {
		return false
	}
	s.filter.AddString(url)
	s.visited[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// HasVisited reports whether a URL was already tested this run. The bloom
// filter answers definite negatives cheaply; positives are confirmed against
// the exact set.
func (s *CrawlState) HasVisited(url string) bool {
	if !s.filter.TestString(url) {
		return false
	}
	_, ok := s.visited[url]
	return ok
}

// VisitedCount returns the number of tested URLs.
func (s *CrawlState) VisitedCount() int {
	return len(s.visited)
}

// VisitedURLs returns tested URLs in visit order.
func (s *CrawlState) VisitedURLs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// MergeParamValues folds newly observed route-parameter values into the
// running table. The table only grows; existing values are never dropped.
// Returns true when at least one previously unknown value was added.
func (s *CrawlState) MergeParamValues(values map[string][]string) bool {
	changed := false
	for name, list := range values {
		for _, v := range list {
			if v == "" {
				continue
			}
			if s.params[name] == nil {
				s.params[name] = make(map[string]struct{})
			}
			if _, ok := s.params[name][v]; !ok {
				s.params[name][v] = struct{}{}
				changed = true
			}
		}
	}
	return changed
}

// ParamValues returns the learned parameter table with sorted value lists.
func (s *CrawlState) ParamValues() map[string][]string {
	out := make(map[string][]string, len(s.params))
	for name, set := range s.params {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		out[name] = values
	}
	return out
}

// MarkSeedSeen records a route-seed URL so the same seed is never offered to
// the frontier twice across a run. Returns false when already seen.
func (s *CrawlState) MarkSeedSeen(url string) bool {
	if _, ok := s.seenSeeds[url]; ok {
		return false
	}
	s.seenSeeds[url] = struct{}{}
	return true
}
