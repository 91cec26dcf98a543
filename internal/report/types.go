package report

import (
	"time"

	"github.com/PentesterFlow/OpenProbe/internal/explain"
)

// Status grades a page or element outcome.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusWarning Status = "warning"
	StatusSkipped Status = "skipped"
)

// NetworkError is a failed HTTP response observed while a page was under test.
type NetworkError struct {
	URL         string              `json:"url"`
	Method      string              `json:"method,omitempty"`
	StatusCode  int                 `json:"status_code"`
	StatusText  string              `json:"status_text,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Explanation explain.Explanation `json:"explanation"`
	Screenshot  string              `json:"screenshot_path,omitempty"`
}

// ConsoleError is a console or uncaught-exception message observed while a
// page was under test.
type ConsoleError struct {
	Type        string              `json:"error_type"`
	Message     string              `json:"message"`
	Source      string              `json:"source,omitempty"`
	Line        int                 `json:"line_number,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Explanation explain.Explanation `json:"explanation"`
	Screenshot  string              `json:"screenshot_path,omitempty"`
}

// ElementTest is the outcome of exercising one interactive element.
// NavigatedTo is the URL the interaction landed on when it navigated away.
type ElementTest struct {
	Type        string              `json:"element_type"`
	Label       string              `json:"element_text"`
	Selector    string              `json:"element_selector"`
	Action      string              `json:"action"`
	Status      Status              `json:"status"`
	Error       string              `json:"error_message,omitempty"`
	Screenshot  string              `json:"screenshot_path,omitempty"`
	NavigatedTo string              `json:"navigated_to,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Explanation explain.Explanation `json:"explanation"`
}

// PageResult collects everything observed on one page.
type PageResult struct {
	URL             string         `json:"url"`
	Title           string         `json:"title"`
	Module          string         `json:"module,omitempty"`
	Status          Status         `json:"status"`
	LoadTimeMS      float64        `json:"load_time_ms"`
	Screenshot      string         `json:"screenshot_path,omitempty"`
	NetworkErrors   []NetworkError `json:"network_errors"`
	ConsoleErrors   []ConsoleError `json:"console_errors"`
	ElementTests    []ElementTest  `json:"element_tests"`
	DiscoveredLinks []string       `json:"discovered_links"`
	DiscoveredFrom  string         `json:"discovered_from,omitempty"`
	Depth           int            `json:"crawl_depth"`
	Timestamp       time.Time      `json:"timestamp"`
}

// ElementsPassed counts element tests that passed.
func (p *PageResult) ElementsPassed() int {
	return p.countElements(StatusPassed)
}

// ElementsFailed counts element tests that failed.
func (p *PageResult) ElementsFailed() int {
	return p.countElements(StatusFailed)
}

func (p *PageResult) countElements(status Status) int {
	n := 0
	for _, t := range p.ElementTests {
		if t.Status == status {
			n++
		}
	}
	return n
}

// HasErrors reports whether anything on the page went wrong.
func (p *PageResult) HasErrors() bool {
	return len(p.NetworkErrors) > 0 || len(p.ConsoleErrors) > 0 || p.ElementsFailed() > 0
}

// CrawlStep is one entry in the ordered visit path.
type CrawlStep struct {
	Step           int    `json:"step_number"`
	URL            string `json:"url"`
	Title          string `json:"title"`
	DiscoveredFrom string `json:"discovered_from,omitempty"`
	Status         Status `json:"status"`
	LinksFound     int    `json:"links_found"`
}

// Session is the complete record of one run.
type Session struct {
	TargetURL string       `json:"website_url"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Pages     []PageResult `json:"pages_tested"`
	CrawlPath []CrawlStep  `json:"crawl_path"`
}

// TotalPages counts pages tested.
func (s *Session) TotalPages() int { return len(s.Pages) }

// PagesWithErrors counts pages where anything went wrong.
func (s *Session) PagesWithErrors() int {
	n := 0
	for i := range s.Pages {
		if s.Pages[i].HasErrors() {
			n++
		}
	}
	return n
}

// TotalNetworkErrors sums network errors across pages.
func (s *Session) TotalNetworkErrors() int {
	n := 0
	for i := range s.Pages {
		n += len(s.Pages[i].NetworkErrors)
	}
	return n
}

// TotalConsoleErrors sums console errors across pages.
func (s *Session) TotalConsoleErrors() int {
	n := 0
	for i := range s.Pages {
		n += len(s.Pages[i].ConsoleErrors)
	}
	return n
}

// TotalElementTests sums element tests across pages.
func (s *Session) TotalElementTests() int {
	n := 0
	for i := range s.Pages {
		n += len(s.Pages[i].ElementTests)
	}
	return n
}

// TotalElementFailures sums failed element tests across pages.
func (s *Session) TotalElementFailures() int {
	n := 0
	for i := range s.Pages {
		n += s.Pages[i].ElementsFailed()
	}
	return n
}

// Duration is the wall-clock run time, zero while the run is still open.
func (s *Session) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// ModuleSummary aggregates per-module counts for the report.
type ModuleSummary struct {
	Name            string `json:"name"`
	Pages           int    `json:"pages"`
	PagesWithErrors int    `json:"errors"`
	NetworkErrors   int    `json:"network_errors"`
	ConsoleErrors   int    `json:"console_errors"`
	ElementFailures int    `json:"element_failures"`
}

// Summarize groups page results by module, in first-seen order. Pages without
// a module fall under Uncategorized.
func Summarize(s *Session) []ModuleSummary {
	index := make(map[string]int)
	var out []ModuleSummary
	for i := range s.Pages {
		page := &s.Pages[i]
		name := page.Module
		if name == "" {
			name = "Uncategorized"
		}
		idx, ok := index[name]
		if !ok {
			idx = len(out)
			index[name] = idx
			out = append(out, ModuleSummary{Name: name})
		}
		out[idx].Pages++
		if page.HasErrors() {
			out[idx].PagesWithErrors++
		}
		out[idx].NetworkErrors += len(page.NetworkErrors)
		out[idx].ConsoleErrors += len(page.ConsoleErrors)
		out[idx].ElementFailures += page.ElementsFailed()
	}
	return out
}
