// Package monitor aggregates error signals emitted by the browser while a
// page is under test: HTTP error responses and console/page errors. Filtering
// is pure so it can be tested without a browser attached.
package monitor

import (
	"strings"
	"sync"
	"time"
)

// Capture caps, per page. A runaway error loop on a broken page should not
// grow the report without bound.
const (
	maxNetworkPerPage = 200
	maxConsolePerPage = 200
	maxMessageLen     = 500
)

// NetworkError is one captured HTTP error response.
type NetworkError struct {
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConsoleError is one captured console message or uncaught page error.
type ConsoleError struct {
	Type      string    `json:"type"` // "error", "warning", "pageerror"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Config selects which signals count as errors.
type Config struct {
	// StatusCodes lists HTTP statuses recorded as network errors.
	StatusCodes []int
	// IgnoreURLPatterns drops responses whose URL contains any substring
	// (case-insensitive). Third-party noise like analytics endpoints.
	IgnoreURLPatterns []string
	// ConsoleTypes lists console message types to record.
	ConsoleTypes []string
}

// Monitor collects filtered error signals for the page currently under test.
// Safe for concurrent use; browser events arrive from another goroutine.
type Monitor struct {
	mu           sync.Mutex
	statusCodes  map[int]struct{}
	ignore       []string
	consoleTypes map[string]struct{}
	network      []NetworkError
	console      []ConsoleError
}

// New builds a monitor from config.
func New(cfg Config) *Monitor {
	m := &Monitor{
		statusCodes:  make(map[int]struct{}, len(cfg.StatusCodes)),
		consoleTypes: make(map[string]struct{}, len(cfg.ConsoleTypes)),
	}
	for _, c := range cfg.StatusCodes {
		m.statusCodes[c] = struct{}{}
	}
	for _, p := range cfg.IgnoreURLPatterns {
		m.ignore = append(m.ignore, strings.ToLower(p))
	}
	for _, t := range cfg.ConsoleTypes {
		m.consoleTypes[t] = struct{}{}
	}
	return m
}

// OnResponse records an HTTP response when its status is in the error set and
// its URL is not ignored.
func (m *Monitor) OnResponse(url string, status int) {
	if !m.wantStatus(status) || m.ignored(url) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.network) >= maxNetworkPerPage {
		return
	}
	m.network = append(m.network, NetworkError{
		URL:        url,
		StatusCode: status,
		Timestamp:  time.Now(),
	})
}

// OnConsole records a console message when its type is in the selected set.
func (m *Monitor) OnConsole(messageType, text string) {
	if _, ok := m.consoleTypes[messageType]; !ok {
		return
	}
	m.record(messageType, text)
}

// OnPageError records an uncaught page exception, reported under the
// "pageerror" type when that type is selected.
func (m *Monitor) OnPageError(text string) {
	if _, ok := m.consoleTypes["pageerror"]; !ok {
		return
	}
	m.record("pageerror", text)
}

func (m *Monitor) record(messageType, text string) {
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.console) >= maxConsolePerPage {
		return
	}
	m.console = append(m.console, ConsoleError{
		Type:      messageType,
		Message:   text,
		Timestamp: time.Now(),
	})
}

// Drain returns everything captured since the last drain and clears the
// buffers for the next page.
func (m *Monitor) Drain() ([]NetworkError, []ConsoleError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	network := m.network
	console := m.console
	m.network = nil
	m.console = nil
	return network, console
}

// Reset discards anything captured so far.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.network = nil
	m.console = nil
}

func (m *Monitor) wantStatus(status int) bool {
	_, ok := m.statusCodes[status]
	return ok
}

func (m *Monitor) ignored(url string) bool {
	lower := strings.ToLower(url)
	for _, p := range m.ignore {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
