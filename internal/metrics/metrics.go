// Package metrics collects run counters for the exerciser.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates counters across one run. All methods are safe for
// concurrent use; browser event listeners fire from other goroutines.
type Collector struct {
	pagesTested   atomic.Int64
	pagesPassed   atomic.Int64
	pagesFailed   atomic.Int64
	pagesWarning  atomic.Int64
	linksFound    atomic.Int64
	seedsEnqueued atomic.Int64
	dynamicSeeds  atomic.Int64

	elementsTested  atomic.Int64
	elementsPassed  atomic.Int64
	elementsFailed  atomic.Int64
	elementsSkipped atomic.Int64

	networkErrors atomic.Int64
	consoleErrors atomic.Int64
	screenshots   atomic.Int64

	statusMu    sync.Mutex
	statusCodes map[int]int64

	startTime time.Time
}

// New creates a collector anchored at the current time.
func New() *Collector {
	return &Collector{
		statusCodes: make(map[int]int64),
		startTime:   time.Now(),
	}
}

// RecordPage records one tested page with its final status.
func (c *Collector) RecordPage(status string) {
	c.pagesTested.Add(1)
	switch status {
	case "passed":
		c.pagesPassed.Add(1)
	case "failed":
		c.pagesFailed.Add(1)
	case "warning":
		c.pagesWarning.Add(1)
	}
}

// RecordElement records one element interaction outcome.
func (c *Collector) RecordElement(status string) {
	c.elementsTested.Add(1)
	switch status {
	case "passed":
		c.elementsPassed.Add(1)
	case "failed":
		c.elementsFailed.Add(1)
	case "skipped":
		c.elementsSkipped.Add(1)
	}
}

// RecordLinks counts links discovered on a page.
func (c *Collector) RecordLinks(n int) {
	c.linksFound.Add(int64(n))
}

// RecordSeed counts a URL accepted into the frontier.
func (c *Collector) RecordSeed() {
	c.seedsEnqueued.Add(1)
}

// RecordDynamicSeed counts a route seed produced by parameter learning.
func (c *Collector) RecordDynamicSeed() {
	c.dynamicSeeds.Add(1)
}

// RecordNetworkError counts one captured HTTP error response by status code.
func (c *Collector) RecordNetworkError(statusCode int) {
	c.networkErrors.Add(1)
	c.statusMu.Lock()
	c.statusCodes[statusCode]++
	c.statusMu.Unlock()
}

// RecordConsoleError counts one captured console or page error.
func (c *Collector) RecordConsoleError() {
	c.consoleErrors.Add(1)
}

// RecordScreenshot counts one failure screenshot written to disk.
func (c *Collector) RecordScreenshot() {
	c.screenshots.Add(1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	PagesTested     int64           `json:"pages_tested"`
	PagesPassed     int64           `json:"pages_passed"`
	PagesFailed     int64           `json:"pages_failed"`
	PagesWarning    int64           `json:"pages_warning"`
	LinksFound      int64           `json:"links_found"`
	SeedsEnqueued   int64           `json:"seeds_enqueued"`
	DynamicSeeds    int64           `json:"dynamic_seeds"`
	ElementsTested  int64           `json:"elements_tested"`
	ElementsPassed  int64           `json:"elements_passed"`
	ElementsFailed  int64           `json:"elements_failed"`
	ElementsSkipped int64           `json:"elements_skipped"`
	NetworkErrors   int64           `json:"network_errors"`
	ConsoleErrors   int64           `json:"console_errors"`
	Screenshots     int64           `json:"screenshots"`
	StatusCodes     map[int]int64   `json:"status_codes"`
	Elapsed         time.Duration   `json:"elapsed"`
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.statusMu.Lock()
	codes := make(map[int]int64, len(c.statusCodes))
	for k, v := range c.statusCodes {
		codes[k] = v
	}
	c.statusMu.Unlock()

	return Snapshot{
		PagesTested:     c.pagesTested.Load(),
		PagesPassed:     c.pagesPassed.Load(),
		PagesFailed:     c.pagesFailed.Load(),
		PagesWarning:    c.pagesWarning.Load(),
		LinksFound:      c.linksFound.Load(),
		SeedsEnqueued:   c.seedsEnqueued.Load(),
		DynamicSeeds:    c.dynamicSeeds.Load(),
		ElementsTested:  c.elementsTested.Load(),
		ElementsPassed:  c.elementsPassed.Load(),
		ElementsFailed:  c.elementsFailed.Load(),
		ElementsSkipped: c.elementsSkipped.Load(),
		NetworkErrors:   c.networkErrors.Load(),
		ConsoleErrors:   c.consoleErrors.Load(),
		Screenshots:     c.screenshots.Load(),
		StatusCodes:     codes,
		Elapsed:         time.Since(c.startTime),
	}
}

// Fields renders the snapshot as loose key/value pairs for logging.
func (s Snapshot) Fields() map[string]interface{} {
	return map[string]interface{}{
		"pages_tested":     s.PagesTested,
		"pages_passed":     s.PagesPassed,
		"pages_failed":     s.PagesFailed,
		"pages_warning":    s.PagesWarning,
		"elements_tested":  s.ElementsTested,
		"elements_failed":  s.ElementsFailed,
		"elements_skipped": s.ElementsSkipped,
		"network_errors":   s.NetworkErrors,
		"console_errors":   s.ConsoleErrors,
		"elapsed":          s.Elapsed.Round(time.Millisecond).String(),
	}
}
