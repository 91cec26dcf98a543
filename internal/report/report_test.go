package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PentesterFlow/OpenProbe/internal/explain"
)

func sampleSession(t *testing.T, screenshotDir string) *Session {
	t.Helper()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return &Session{
		TargetURL: "https://app.example.com",
		StartTime: start,
		EndTime:   start.Add(95 * time.Second),
		Pages: []PageResult{
			{
				URL:    "https://app.example.com/",
				Title:  "Home",
				Module: "Shop",
				Status: StatusPassed,
				ElementTests: []ElementTest{
					{Type: "button", Label: "Search", Selector: "#search", Action: "click", Status: StatusPassed},
				},
				DiscoveredLinks: []string{"https://app.example.com/cart"},
			},
			{
				URL:    "https://app.example.com/cart",
				Title:  "Cart",
				Module: "Shop",
				Status: StatusFailed,
				Depth:  1,
				NetworkErrors: []NetworkError{
					{
						URL:         "https://app.example.com/api/cart",
						StatusCode:  500,
						Timestamp:   start,
						Explanation: explain.Network(500),
					},
				},
				ConsoleErrors: []ConsoleError{
					{
						Type:        "error",
						Message:     "x is not defined",
						Timestamp:   start,
						Explanation: explain.Console("x is not defined", "error"),
					},
				},
				ElementTests: []ElementTest{
					{
						Type: "button", Label: "Checkout", Selector: ".checkout",
						Action: "click", Status: StatusFailed, Error: "click timeout",
						Screenshot:  filepath.Join(screenshotDir, "screenshots", "checkout.png"),
						Explanation: explain.Element("click timeout", "button"),
					},
				},
				DiscoveredFrom: "https://app.example.com/",
			},
			{
				URL:    "https://app.example.com/about",
				Title:  "About",
				Status: StatusPassed,
			},
		},
		CrawlPath: []CrawlStep{
			{Step: 1, URL: "https://app.example.com/", Status: StatusPassed, LinksFound: 1},
			{Step: 2, URL: "https://app.example.com/cart", DiscoveredFrom: "https://app.example.com/", Status: StatusFailed},
			{Step: 3, URL: "https://app.example.com/about", Status: StatusPassed},
		},
	}
}

func TestSessionAggregates(t *testing.T) {
	s := sampleSession(t, t.TempDir())

	if got := s.TotalPages(); got != 3 {
		t.Errorf("TotalPages() = %d, want 3", got)
	}
	if got := s.PagesWithErrors(); got != 1 {
		t.Errorf("PagesWithErrors() = %d, want 1", got)
	}
	if got := s.TotalElementTests(); got != 2 {
		t.Errorf("TotalElementTests() = %d, want 2", got)
	}
	if got := s.TotalElementFailures(); got != 1 {
		t.Errorf("TotalElementFailures() = %d, want 1", got)
	}
	if got := s.Duration(); got != 95*time.Second {
		t.Errorf("Duration() = %v, want 95s", got)
	}
}

func TestSummarizeGroupsByModule(t *testing.T) {
	s := sampleSession(t, t.TempDir())
	modules := Summarize(s)

	if len(modules) != 2 {
		t.Fatalf("module count = %d, want 2 (Shop + Uncategorized)", len(modules))
	}
	if modules[0].Name != "Shop" || modules[0].Pages != 2 {
		t.Errorf("first module = %+v, want Shop with 2 pages", modules[0])
	}
	if modules[0].PagesWithErrors != 1 || modules[0].NetworkErrors != 1 || modules[0].ElementFailures != 1 {
		t.Errorf("Shop summary = %+v", modules[0])
	}
	if modules[1].Name != "Uncategorized" || modules[1].Pages != 1 {
		t.Errorf("second module = %+v, want Uncategorized with 1 page", modules[1])
	}
}

func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(dir)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	path, err := g.WriteHTML(sampleSession(t, dir))
	if err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	html := string(data)

	for _, want := range []string{
		"https://app.example.com",
		"Module Summary",
		"Shop",
		"Uncategorized",
		"Crawl Path",
		"Internal Server Error",
		"Undefined Variable/Function",
		"click timeout",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteHTMLRelativizesScreenshots(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(dir)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	s := sampleSession(t, dir)
	if _, err := g.WriteHTML(s); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}

	got := s.Pages[1].ElementTests[0].Screenshot
	want := filepath.Join("screenshots", "checkout.png")
	if got != want {
		t.Errorf("screenshot path = %q, want %q", got, want)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(dir)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	path, err := g.WriteJSON(sampleSession(t, dir))
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	var decoded Session
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if decoded.TargetURL != "https://app.example.com" {
		t.Errorf("TargetURL = %q", decoded.TargetURL)
	}
	if len(decoded.Pages) != 3 || len(decoded.CrawlPath) != 3 {
		t.Errorf("pages = %d, crawl path = %d", len(decoded.Pages), len(decoded.CrawlPath))
	}
	if decoded.Pages[1].NetworkErrors[0].StatusCode != 500 {
		t.Errorf("network error status = %d", decoded.Pages[1].NetworkErrors[0].StatusCode)
	}
}

func TestRunDir(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 5, 7, 0, time.UTC)
	got := RunDir("test_results", start)
	want := filepath.Join("test_results", "run_20250310_090507")
	if got != want {
		t.Errorf("RunDir() = %q, want %q", got, want)
	}
}
