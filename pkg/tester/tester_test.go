package tester

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PentesterFlow/OpenProbe/internal/browser"
	"github.com/PentesterFlow/OpenProbe/internal/report"
)

type fakeElement struct {
	tag      string
	text     string
	visible  bool
	clickErr error
	clicks   int
	onClick  func()
}

func (f *fakeElement) Tag() (string, error)                        { return f.tag, nil }
func (f *fakeElement) Visible() (bool, error)                      { return f.visible, nil }
func (f *fakeElement) Enabled() (bool, error)                      { return true, nil }
func (f *fakeElement) Editable() (bool, error)                     { return true, nil }
func (f *fakeElement) Interactable() (bool, error)                 { return f.visible, nil }
func (f *fakeElement) Attribute(name string) (string, bool, error) { return "", false, nil }
func (f *fakeElement) Text() (string, error)                       { return f.text, nil }
func (f *fakeElement) EvalString(js string) (string, error)        { return "", nil }
func (f *fakeElement) Focus() error                                { return nil }
func (f *fakeElement) Input(text string) error                     { return nil }
func (f *fakeElement) Click() error {
	f.clicks++
	if f.onClick != nil {
		f.onClick()
	}
	return f.clickErr
}

// fakeSite serves a static set of pages through the Page interface.
type fakeSite struct {
	url      string
	html     map[string]string
	elements map[string]map[string][]browser.Element
	navErr   map[string]error
	visits   []string
}

func (f *fakeSite) URL() string   { return f.url }
func (f *fakeSite) Title() string { return "Page " + f.url }
func (f *fakeSite) HTML() (string, error) {
	return f.html[f.url], nil
}
func (f *fakeSite) Navigate(url string) error {
	if err := f.navErr[url]; err != nil {
		return err
	}
	f.url = url
	f.visits = append(f.visits, url)
	return nil
}
func (f *fakeSite) Back() error { return nil }
func (f *fakeSite) Elements(selector string) ([]browser.Element, error) {
	return f.elements[f.url][selector], nil
}
func (f *fakeSite) Eval(js string) (string, error) { return "", nil }
func (f *fakeSite) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("png"), 0o644)
}
func (f *fakeSite) PressEscape() error { return nil }
func (f *fakeSite) PressEnter() error  { return nil }
func (f *fakeSite) WatchPopup(window time.Duration) func() bool {
	return func() bool { return false }
}
func (f *fakeSite) Settle(d time.Duration) {}

func link(href string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, href, href)
}

func newRunTester(t *testing.T, site *fakeSite, opts ...Option) *Tester {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Target = "https://app.example.com/"
	cfg.CrawlDelay = 0
	cfg.ElementDelay = 0
	cfg.OutputDir = t.TempDir()
	cfg.SnapshotInterval = 1

	all := append([]Option{WithConfig(cfg), WithPage(site)}, opts...)
	tester, err := New(all...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tester
}

func TestRunCrawlsLinkedPages(t *testing.T) {
	site := &fakeSite{
		html: map[string]string{
			"https://app.example.com/":  "<html>" + link("/a") + link("/b") + "</html>",
			"https://app.example.com/a": "<html>" + link("/c") + "</html>",
		},
	}

	tester := newRunTester(t, site)
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(session.Pages) != 4 {
		urls := make([]string, 0, len(session.Pages))
		for _, p := range session.Pages {
			urls = append(urls, p.URL)
		}
		t.Fatalf("pages tested = %v, want 4", urls)
	}
	if session.CrawlPath[0].URL != "https://app.example.com/" {
		t.Errorf("first step = %q, want start page", session.CrawlPath[0].URL)
	}
	for _, p := range session.Pages {
		if p.Status != report.StatusPassed {
			t.Errorf("page %s status = %q, want passed", p.URL, p.Status)
		}
	}
}

func TestRunWritesArtifacts(t *testing.T) {
	site := &fakeSite{html: map[string]string{
		"https://app.example.com/": "<html></html>",
	}}

	tester := newRunTester(t, site)
	if _, err := tester.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	runDirs, err := filepath.Glob(filepath.Join(tester.Config().OutputDir, "run_*"))
	if err != nil || len(runDirs) != 1 {
		t.Fatalf("run dirs = %v (err %v), want exactly one", runDirs, err)
	}
	for _, name := range []string{"test_report.html", "test_data.json", "session.db"} {
		if _, err := os.Stat(filepath.Join(runDirs[0], name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
}

func TestRunHonorsMaxPages(t *testing.T) {
	site := &fakeSite{html: map[string]string{
		"https://app.example.com/": "<html>" + link("/a") + link("/b") + link("/c") + "</html>",
	}}

	tester := newRunTester(t, site, WithMaxPages(2))
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(session.Pages) != 2 {
		t.Errorf("pages tested = %d, want 2", len(session.Pages))
	}
}

func TestRunHonorsMaxDepth(t *testing.T) {
	site := &fakeSite{
		html: map[string]string{
			"https://app.example.com/":  "<html>" + link("/a") + "</html>",
			"https://app.example.com/a": "<html>" + link("/b") + "</html>",
		},
	}

	tester := newRunTester(t, site, WithMaxDepth(1))
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, p := range session.Pages {
		if p.URL == "https://app.example.com/b" {
			t.Error("page beyond depth budget was tested")
		}
	}
	if len(session.Pages) != 2 {
		t.Errorf("pages tested = %d, want 2", len(session.Pages))
	}
}

func TestRunSkipsExcludedURLs(t *testing.T) {
	site := &fakeSite{html: map[string]string{
		"https://app.example.com/": "<html>" + link("/a") + link("/logout") + "</html>",
	}}

	tester := newRunTester(t, site)
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, p := range session.Pages {
		if p.URL == "https://app.example.com/logout" {
			t.Error("logout URL must never be crawled")
		}
	}
	if len(session.Pages) != 2 {
		t.Errorf("pages tested = %d, want 2", len(session.Pages))
	}
}

func TestRunModuleRestriction(t *testing.T) {
	site := &fakeSite{
		html: map[string]string{
			"https://app.example.com/shop":      "<html>" + link("/shop/item") + link("/about") + "</html>",
			"https://app.example.com/shop/item": "<html></html>",
		},
	}

	tester := newRunTester(t, site,
		WithModules(ModuleConfig{Name: "Shop", Seeds: []string{"/shop"}}),
		WithModule("Shop"),
	)
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	visited := make(map[string]bool)
	for _, p := range session.Pages {
		visited[p.URL] = true
	}
	if visited["https://app.example.com/"] {
		t.Error("start page outside the module must not be seeded")
	}
	if visited["https://app.example.com/about"] {
		t.Error("page outside the module was tested")
	}
	if !visited["https://app.example.com/shop"] {
		t.Error("module seed was not tested")
	}
	if !visited["https://app.example.com/shop/item"] {
		t.Error("in-module link was not followed")
	}
	for _, p := range session.Pages {
		if p.Module != "Shop" {
			t.Errorf("page %s attributed to %q, want Shop", p.URL, p.Module)
		}
	}
}

func TestRunSeedsPostLoginPage(t *testing.T) {
	site := &fakeSite{
		url: "https://app.example.com/dashboard",
		html: map[string]string{
			"https://app.example.com/dashboard": "<html></html>",
		},
	}

	tester := newRunTester(t, site)
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(session.CrawlPath) == 0 || session.CrawlPath[0].URL != "https://app.example.com/dashboard" {
		t.Fatalf("crawl path = %+v, want to start at the current page", session.CrawlPath)
	}
	if session.Pages[0].DiscoveredFrom != "Start Page" {
		t.Errorf("discovered from = %q, want Start Page", session.Pages[0].DiscoveredFrom)
	}
}

func TestRunNavigationFailureRecordsFailedPage(t *testing.T) {
	site := &fakeSite{
		html: map[string]string{
			"https://app.example.com/": "<html>" + link("/broken") + link("/ok") + "</html>",
		},
		navErr: map[string]error{
			"https://app.example.com/broken": errors.New("navigation timeout"),
		},
	}

	tester := newRunTester(t, site)
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var broken *report.PageResult
	okVisited := false
	for i := range session.Pages {
		switch session.Pages[i].URL {
		case "https://app.example.com/broken":
			broken = &session.Pages[i]
		case "https://app.example.com/ok":
			okVisited = true
		}
	}
	if broken == nil {
		t.Fatal("failed page missing from session")
	}
	if broken.Status != report.StatusFailed {
		t.Errorf("broken page status = %q, want failed", broken.Status)
	}
	if !okVisited {
		t.Error("crawl must continue past a navigation failure")
	}
}

func TestRunTestsElements(t *testing.T) {
	button := &fakeElement{tag: "button", text: "Save", visible: true}
	site := &fakeSite{
		html: map[string]string{"https://app.example.com/": "<html></html>"},
		elements: map[string]map[string][]browser.Element{
			"https://app.example.com/": {
				"button, [role='button'], input[type='button'], input[type='submit']": {button},
			},
		},
	}

	tester := newRunTester(t, site)
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(session.Pages) != 1 {
		t.Fatalf("pages tested = %d, want 1", len(session.Pages))
	}
	tests := session.Pages[0].ElementTests
	if len(tests) != 1 {
		t.Fatalf("element tests = %d, want 1", len(tests))
	}
	if tests[0].Status != report.StatusPassed || tests[0].Label != "Save" {
		t.Errorf("element test = %+v", tests[0])
	}
	if button.clicks != 1 {
		t.Errorf("button clicks = %d, want 1", button.clicks)
	}
}

func TestRunElementFailureFailsPage(t *testing.T) {
	button := &fakeElement{tag: "button", text: "Save", visible: true, clickErr: errors.New("detached")}
	site := &fakeSite{
		html: map[string]string{"https://app.example.com/": "<html></html>"},
		elements: map[string]map[string][]browser.Element{
			"https://app.example.com/": {
				"button, [role='button'], input[type='button'], input[type='submit']": {button},
			},
		},
	}

	tester := newRunTester(t, site)
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	page := session.Pages[0]
	if page.Status != report.StatusFailed {
		t.Errorf("page status = %q, want failed", page.Status)
	}
	if page.ElementTests[0].Explanation.Title == "" {
		t.Error("failed element test must carry an explanation")
	}
}

func TestRunRouteSeeds(t *testing.T) {
	site := &fakeSite{html: map[string]string{
		"https://app.example.com/":      "<html></html>",
		"https://app.example.com/admin": "<html></html>",
	}}

	tester := newRunTester(t, site, WithRouteSeeds(RouteSeedConfig{
		Enabled: true,
		Routes:  []string{"/admin"},
	}))
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	found := false
	for _, p := range session.Pages {
		if p.URL == "https://app.example.com/admin" {
			found = true
			if p.DiscoveredFrom != "Route Seed" {
				t.Errorf("discovered from = %q, want Route Seed", p.DiscoveredFrom)
			}
		}
	}
	if !found {
		t.Error("route seed was not crawled")
	}
}

func TestPageStatusGrading(t *testing.T) {
	tests := []struct {
		name string
		page report.PageResult
		want report.Status
	}{
		{"clean", report.PageResult{}, report.StatusPassed},
		{"network error only", report.PageResult{
			NetworkErrors: []report.NetworkError{{StatusCode: 500}},
		}, report.StatusWarning},
		{"console error only", report.PageResult{
			ConsoleErrors: []report.ConsoleError{{Type: "error"}},
		}, report.StatusWarning},
		{"element failure", report.PageResult{
			ElementTests: []report.ElementTest{{Status: report.StatusFailed}},
		}, report.StatusFailed},
		{"element failure outranks network error", report.PageResult{
			ElementTests:  []report.ElementTest{{Status: report.StatusFailed}},
			NetworkErrors: []report.NetworkError{{StatusCode: 500}},
		}, report.StatusFailed},
		{"skipped elements stay passed", report.PageResult{
			ElementTests: []report.ElementTest{{Status: report.StatusSkipped}},
		}, report.StatusPassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageStatus(&tt.page); got != tt.want {
				t.Errorf("pageStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunElementNavigationDiscovered(t *testing.T) {
	button := &fakeElement{tag: "button", text: "Open", visible: true}
	site := &fakeSite{
		html: map[string]string{
			"https://app.example.com/":       "<html></html>",
			"https://app.example.com/landed": "<html></html>",
		},
		elements: map[string]map[string][]browser.Element{
			"https://app.example.com/": {
				"button, [role='button'], input[type='button'], input[type='submit']": {button},
			},
		},
	}
	button.onClick = func() { site.url = "https://app.example.com/landed" }

	tester := newRunTester(t, site)
	session, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	start := session.Pages[0]
	if len(start.ElementTests) != 1 || start.ElementTests[0].NavigatedTo != "https://app.example.com/landed" {
		t.Fatalf("element tests = %+v, want the landing URL recorded", start.ElementTests)
	}
	foundLink := false
	for _, l := range start.DiscoveredLinks {
		if l == "https://app.example.com/landed" {
			foundLink = true
		}
	}
	if !foundLink {
		t.Error("element navigation target missing from discovered links")
	}

	var landed *report.PageResult
	for i := range session.Pages {
		if session.Pages[i].URL == "https://app.example.com/landed" {
			landed = &session.Pages[i]
		}
	}
	if landed == nil {
		t.Fatal("page reached through an element click was not crawled")
	}
	if landed.DiscoveredFrom != "https://app.example.com/" {
		t.Errorf("discovered from = %q, want the start page", landed.DiscoveredFrom)
	}
}

func TestRunCancelledContext(t *testing.T) {
	site := &fakeSite{html: map[string]string{
		"https://app.example.com/": "<html>" + link("/a") + "</html>",
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tester := newRunTester(t, site)
	session, err := tester.Run(ctx)
	if err == nil {
		t.Fatal("Run() expected context error")
	}
	if len(session.Pages) != 0 {
		t.Errorf("pages tested = %d, want 0 after immediate cancel", len(session.Pages))
	}
}
