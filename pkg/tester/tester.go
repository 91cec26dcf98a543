// Package tester orchestrates a full black-box run against a web
// application: authenticate, crawl reachable pages, exercise the interactive
// elements on each one, and write an HTML report plus a JSON dump of
// everything observed.
package tester

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/PentesterFlow/OpenProbe/internal/auth"
	"github.com/PentesterFlow/OpenProbe/internal/browser"
	"github.com/PentesterFlow/OpenProbe/internal/discovery"
	"github.com/PentesterFlow/OpenProbe/internal/explain"
	"github.com/PentesterFlow/OpenProbe/internal/frontier"
	"github.com/PentesterFlow/OpenProbe/internal/interact"
	"github.com/PentesterFlow/OpenProbe/internal/logger"
	"github.com/PentesterFlow/OpenProbe/internal/metrics"
	"github.com/PentesterFlow/OpenProbe/internal/modules"
	"github.com/PentesterFlow/OpenProbe/internal/monitor"
	"github.com/PentesterFlow/OpenProbe/internal/ratelimit"
	"github.com/PentesterFlow/OpenProbe/internal/report"
	"github.com/PentesterFlow/OpenProbe/internal/routeseeds"
	"github.com/PentesterFlow/OpenProbe/internal/state"
	"github.com/PentesterFlow/OpenProbe/internal/urlnorm"
)

// Seed source labels recorded as the discovered-from of seeded pages.
const (
	seedStartPage    = "Start Page"
	seedRoute        = "Route Seed"
	seedRouteDynamic = "Route Seed (dynamic)"
)

// Tester is the run orchestrator.
type Tester struct {
	config *Config
	logger *logger.Logger

	// page is the browsing surface. session is set only when the tester
	// launched the browser itself and therefore owns it.
	page    browser.Page
	session *browser.Session

	normalizer *urlnorm.Normalizer
	matcher    *modules.Matcher
	frontier   *frontier.Frontier
	state      *state.CrawlState
	monitor    *monitor.Monitor
	pacer      *ratelimit.Pacer
	metrics    *metrics.Collector
	elements   *interact.Tester
	generator  *report.Generator
	snapshots  *state.SnapshotStore

	screenshotDir string

	// Dynamic route learning inputs, empty unless route seeding is on.
	routePaths   []string
	routeMatch   []routeseeds.Matcher
	routeOptions routeseeds.Options

	record *report.Session
}

// New creates a tester with the given options.
func New(opts ...Option) (*Tester, error) {
	t := &Tester{config: DefaultConfig()}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := t.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logLevel := logger.InfoLevel
	if t.config.Debug {
		logLevel = logger.DebugLevel
	} else if !t.config.Verbose {
		logLevel = logger.WarnLevel
	}
	t.logger = logger.New(logger.Config{
		Level:     logLevel,
		Pretty:    true,
		Component: "tester",
	})

	return t, nil
}

// Config returns the effective configuration.
func (t *Tester) Config() *Config { return t.config }

// Run executes the whole session and returns the record of it. The returned
// session is valid even when err is non-nil; it holds whatever was tested
// before the failure.
func (t *Tester) Run(ctx context.Context) (*report.Session, error) {
	start := time.Now()
	t.record = &report.Session{
		TargetURL: t.config.Target,
		StartTime: start,
	}

	runDir := report.RunDir(t.config.OutputDir, start)
	var err error
	t.generator, err = report.NewGenerator(runDir)
	if err != nil {
		return t.record, err
	}

	if err := t.initialize(ctx, runDir); err != nil {
		return t.record, err
	}
	defer t.teardown()

	if err := t.login(ctx); err != nil {
		return t.record, fmt.Errorf("authentication failed: %w", err)
	}

	t.seed()

	if err := t.crawl(ctx); err != nil {
		t.finish()
		return t.record, err
	}

	t.finish()
	return t.record, nil
}

// initialize builds every component of the run.
func (t *Tester) initialize(ctx context.Context, runDir string) error {
	var err error

	t.normalizer, err = urlnorm.New(t.config.Target, urlnorm.Options{
		KeepQuery:    t.config.IncludeQueryParams,
		KeepFragment: t.config.IncludeHash,
	}, t.config.ExcludedURLPatterns)
	if err != nil {
		return fmt.Errorf("failed to create URL normalizer: %w", err)
	}

	mods := make([]modules.Module, 0, len(t.config.Modules))
	for _, m := range t.config.Modules {
		mods = append(mods, modules.Module{Name: m.Name, Seeds: m.Seeds})
	}
	t.matcher = modules.NewMatcher(mods)

	// A single-module run crawls depth-first so the focused area is
	// exhausted before budgets run out.
	strategy := frontier.ParseStrategy(t.config.Strategy)
	if t.config.Module != "" {
		strategy = frontier.DFS
	}
	t.frontier = frontier.New(strategy)

	t.state = state.NewCrawlState(t.config.MaxPages)
	t.metrics = metrics.New()
	t.pacer = ratelimit.NewPacer(t.config.CrawlDelay, 500*time.Millisecond, t.config.ElementDelay)
	t.monitor = monitor.New(monitor.Config{
		StatusCodes:       t.config.ErrorStatusCodes,
		IgnoreURLPatterns: t.config.IgnoreURLPatterns,
		ConsoleTypes:      t.config.ConsoleErrorTypes,
	})

	if t.page == nil {
		t.session, err = browser.NewSession(ctx, t.config.Browser)
		if err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}
		t.page = t.session
	}
	if t.session != nil {
		t.session.ListenEvents(t.monitor)
	}

	t.screenshotDir = filepath.Join(runDir, "screenshots")
	t.elements = interact.New(t.page, interact.Config{
		InteractionDelay:  t.config.ElementDelay,
		PopupWindow:       t.config.PopupWait,
		ScreenshotOnError: t.config.ScreenshotOnError,
		ScreenshotDir:     t.screenshotDir,
	})

	if t.config.SnapshotInterval > 0 {
		t.snapshots, err = state.OpenSnapshotStore(filepath.Join(runDir, "session.db"))
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
	}

	return nil
}

func (t *Tester) teardown() {
	if t.snapshots != nil {
		_ = t.snapshots.Close()
	}
	if t.session != nil {
		_ = t.session.Close()
	}
}

func (t *Tester) login(ctx context.Context) error {
	provider := auth.NewProvider(t.page, t.config.Auth, t.logger)
	return provider.Login(ctx)
}

// seed fills the frontier with the start page, module seeds, and route seeds,
// all at depth zero.
func (t *Tester) seed() {
	push := func(url, source string) {
		normalized := t.normalizer.Normalize(t.config.Target, url)
		if normalized == "" || !t.state.MarkSeedSeen(normalized) {
			return
		}
		if t.frontier.Push(frontier.Entry{URL: normalized, DiscoveredFrom: source}) {
			t.metrics.RecordSeed()
			t.logger.SeedEvent(normalized, source, 0)
		}
	}

	// Seed where login actually landed us, not the configured target: the
	// post-login page is the real entry point of the session.
	startURL := t.config.Target
	if current := t.page.URL(); current != "" && t.normalizer.Normalize(t.config.Target, current) != "" {
		startURL = current
	}
	normalizedStart := t.normalizer.Normalize(t.config.Target, startURL)
	if t.config.Module != "" && !t.matcher.Contains(normalizedStart, t.config.Module) {
		t.logger.WithURL(startURL).WithModule(t.config.Module).
			Warn("Start page is outside the selected module, not seeding it")
	} else {
		push(startURL, seedStartPage)
	}

	for _, m := range t.config.Modules {
		if t.config.Module != "" && m.Name != t.config.Module {
			continue
		}
		for _, s := range m.Seeds {
			push(urlnorm.Resolve(t.config.Target, s), "Module Seed: "+m.Name)
		}
	}

	if t.config.RouteSeeds.Enabled {
		t.seedRoutes()
	}
}

func (t *Tester) seedRoutes() {
	rs := t.config.RouteSeeds

	paths := append([]string(nil), rs.Routes...)
	if rs.File != "" {
		loaded, stats := routeseeds.LoadPaths(rs.File)
		paths = append(paths, loaded...)
		if stats.MissingFile {
			t.logger.WithField("file", rs.File).Warn("Route manifest not found")
		} else {
			t.logger.WithField("file", rs.File).
				WithField("routes", len(loaded)).
				Info("Loaded route manifest")
		}
	}
	if len(paths) == 0 {
		return
	}

	t.routePaths = paths
	t.routeMatch = routeseeds.BuildMatchers(paths)
	t.routeOptions = routeseeds.Options{
		IncludeDynamic: rs.IncludeDynamic,
		SkipMissing:    rs.SkipMissingParams,
		MaxPerPath:     rs.MaxPerPath,
	}
	t.state.MergeParamValues(routeseeds.NormalizeParamValues(rs.ParamValues))

	t.pushRouteSeeds(seedRoute)
}

// pushRouteSeeds expands the route manifest against the currently known
// parameter values and enqueues any URL not seen before.
func (t *Tester) pushRouteSeeds(source string) {
	expanded, _ := routeseeds.Expand(t.routePaths, t.normalizer.Origin(), t.state.ParamValues(), t.routeOptions)
	for _, u := range expanded {
		normalized := t.normalizer.Normalize(t.config.Target, u)
		if normalized == "" || t.state.HasVisited(normalized) || !t.state.MarkSeedSeen(normalized) {
			continue
		}
		if t.frontier.Push(frontier.Entry{URL: normalized, DiscoveredFrom: source}) {
			if source == seedRouteDynamic {
				t.metrics.RecordDynamicSeed()
			} else {
				t.metrics.RecordSeed()
			}
			t.logger.SeedEvent(normalized, source, 0)
		}
	}
}

// crawl is the main sequential loop: one page at a time until the frontier
// empties or a budget is hit.
func (t *Tester) crawl(ctx context.Context) error {
	for t.frontier.Len() > 0 {
		if err := ctx.Err(); err != nil {
			t.logger.Warn("Run cancelled, finishing early")
			return err
		}
		if t.state.VisitedCount() >= t.config.MaxPages {
			t.logger.WithField("max_pages", t.config.MaxPages).Info("Page budget reached")
			return nil
		}

		entry, ok := t.frontier.Pop()
		if !ok {
			return nil
		}
		if t.state.HasVisited(entry.URL) || entry.Depth > t.config.MaxDepth {
			continue
		}

		if err := t.pacer.WaitPage(ctx); err != nil {
			return err
		}

		t.state.MarkVisited(entry.URL)
		t.testPage(ctx, entry)

		if t.config.RouteSeeds.Enabled && t.config.RouteSeeds.LearnParams {
			t.learnRouteParams()
		}
		if t.snapshots != nil && t.state.VisitedCount()%t.config.SnapshotInterval == 0 {
			t.saveSnapshot()
		}
	}
	return nil
}

// testPage navigates to one page, discovers its links, and exercises its
// elements.
func (t *Tester) testPage(ctx context.Context, entry frontier.Entry) {
	moduleName := t.matcher.Resolve(entry.URL)
	t.logger.PageEvent(logger.InfoLevel, entry.URL, entry.Depth, moduleName).Msg("Testing page")

	page := report.PageResult{
		URL:            entry.URL,
		Module:         moduleName,
		Status:         report.StatusPassed,
		DiscoveredFrom: entry.DiscoveredFrom,
		Depth:          entry.Depth,
		Timestamp:      time.Now(),
	}

	// Discard anything captured before this page (login flow, previous
	// page teardown).
	t.monitor.Reset()

	navStart := time.Now()
	if err := t.page.Navigate(entry.URL); err != nil {
		page.Status = report.StatusFailed
		page.ConsoleErrors = append(page.ConsoleErrors, report.ConsoleError{
			Type:        "pageerror",
			Message:     err.Error(),
			Timestamp:   time.Now(),
			Explanation: explain.Page(err.Error()),
		})
		t.logger.ErrorEvent(err, entry.URL, "navigate")
		t.recordPage(page, 0)
		return
	}
	page.LoadTimeMS = float64(time.Since(navStart)) / float64(time.Millisecond)
	page.Title = t.page.Title()

	disc := discovery.New(t.page, t.normalizer, t.matcher, discovery.Config{
		ExcludedElementSelectors: t.config.ExcludedElementSelectors,
		ModuleName:               t.config.Module,
		Visited:                  t.state.HasVisited,
	})

	expandCfg := discovery.DefaultExpandConfig()
	if t.config.ExpandNav {
		disc.ExpandNav(expandCfg)
	}
	if t.config.ScrollPages {
		disc.ScrollPage(expandCfg)
	}

	links := disc.Links()
	page.DiscoveredLinks = links
	t.metrics.RecordLinks(len(links))
	seenLinks := make(map[string]bool, len(links))
	for _, link := range links {
		seenLinks[link] = true
		t.frontier.Push(frontier.Entry{
			URL:            link,
			DiscoveredFrom: entry.URL,
			Depth:          entry.Depth + 1,
		})
	}

	page.ElementTests = t.testElements(ctx, disc.Elements(), entry.URL)

	// Pages reachable only through element interactions (SPA buttons,
	// onclick handlers) join the discovered links.
	for _, et := range page.ElementTests {
		if et.NavigatedTo == "" {
			continue
		}
		normalized := t.normalizer.Normalize(entry.URL, et.NavigatedTo)
		if normalized == "" || normalized == entry.URL || seenLinks[normalized] {
			continue
		}
		if t.state.HasVisited(normalized) || !t.matcher.Contains(normalized, t.config.Module) {
			continue
		}
		seenLinks[normalized] = true
		page.DiscoveredLinks = append(page.DiscoveredLinks, normalized)
		t.metrics.RecordLinks(1)
		t.frontier.Push(frontier.Entry{
			URL:            normalized,
			DiscoveredFrom: entry.URL,
			Depth:          entry.Depth + 1,
		})
	}

	netErrs, conErrs := t.monitor.Drain()
	for _, e := range netErrs {
		t.metrics.RecordNetworkError(e.StatusCode)
		page.NetworkErrors = append(page.NetworkErrors, report.NetworkError{
			URL:         e.URL,
			StatusCode:  e.StatusCode,
			Timestamp:   e.Timestamp,
			Explanation: explain.Network(e.StatusCode),
		})
	}
	for _, e := range conErrs {
		t.metrics.RecordConsoleError()
		page.ConsoleErrors = append(page.ConsoleErrors, report.ConsoleError{
			Type:        e.Type,
			Message:     e.Message,
			Timestamp:   e.Timestamp,
			Explanation: explain.Console(e.Message, e.Type),
		})
	}

	page.Status = pageStatus(&page)
	if page.Status != report.StatusPassed && t.config.ScreenshotOnError {
		page.Screenshot = t.capturePage()
	}
	t.recordPage(page, len(links))
}

// capturePage takes a page-level screenshot after an errored page. Empty when
// the capture itself fails.
func (t *Tester) capturePage() string {
	name := fmt.Sprintf("page_error_%s.png", time.Now().Format("20060102_150405.000000"))
	path := filepath.Join(t.screenshotDir, name)
	if err := t.page.Screenshot(path); err != nil {
		return ""
	}
	return path
}

// testElements runs the interaction protocol over every candidate, returning
// to the page under test if an interaction navigated away.
func (t *Tester) testElements(ctx context.Context, candidates []discovery.Candidate, pageURL string) []report.ElementTest {
	results := make([]report.ElementTest, 0, len(candidates))
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		if err := t.pacer.BetweenElements(ctx); err != nil {
			break
		}

		r := t.elements.Test(c)
		t.metrics.RecordElement(string(r.Status))
		if r.Screenshot != "" {
			t.metrics.RecordScreenshot()
		}
		t.logger.ElementEvent(r.Type, r.Label, string(r.Status))

		result := report.ElementTest{
			Type:        r.Type,
			Label:       r.Label,
			Selector:    r.Selector,
			Action:      r.Action,
			Status:      report.Status(r.Status),
			Error:       r.Error,
			Screenshot:  r.Screenshot,
			NavigatedTo: r.NavigatedTo,
			Timestamp:   time.Now(),
		}
		if r.Status == interact.StatusFailed {
			result.Explanation = explain.Element(r.Error, r.Type)
		}
		results = append(results, result)

		if current := t.page.URL(); current != "" && current != pageURL {
			_ = t.page.Navigate(pageURL)
		}
	}
	return results
}

// learnRouteParams harvests parameter values from every URL seen so far and
// re-expands the route manifest when anything new turned up.
func (t *Tester) learnRouteParams() {
	if len(t.routeMatch) == 0 {
		return
	}
	observed := routeseeds.ExtractParamValues(t.routeMatch, t.state.VisitedURLs())
	if !t.state.MergeParamValues(routeseeds.NormalizeParamValues(observed)) {
		return
	}
	t.logger.Debug("Learned new route parameter values")
	t.pushRouteSeeds(seedRouteDynamic)
}

func (t *Tester) recordPage(page report.PageResult, linksFound int) {
	t.metrics.RecordPage(string(page.Status))
	t.record.Pages = append(t.record.Pages, page)
	t.record.CrawlPath = append(t.record.CrawlPath, report.CrawlStep{
		Step:           len(t.record.CrawlPath) + 1,
		URL:            page.URL,
		Title:          page.Title,
		DiscoveredFrom: page.DiscoveredFrom,
		Status:         page.Status,
		LinksFound:     linksFound,
	})
}

// pageStatus grades a page: a failed element interaction fails it; network
// or console errors alone downgrade it to a warning.
func pageStatus(page *report.PageResult) report.Status {
	if page.ElementsFailed() > 0 {
		return report.StatusFailed
	}
	if len(page.NetworkErrors) > 0 || len(page.ConsoleErrors) > 0 {
		return report.StatusWarning
	}
	return report.StatusPassed
}

// snapshot is what gets persisted between pages so an interrupted run leaves
// an inspectable record behind.
type snapshot struct {
	Session *report.Session  `json:"session"`
	Metrics metrics.Snapshot `json:"metrics"`
	Visited []string         `json:"visited_urls"`
}

func (t *Tester) saveSnapshot() {
	err := t.snapshots.Save(snapshot{
		Session: t.record,
		Metrics: t.metrics.Snapshot(),
		Visited: t.state.VisitedURLs(),
	})
	if err != nil {
		t.logger.WithError(err).Warn("Snapshot save failed")
	}
}

// finish closes the session record and writes all artifacts.
func (t *Tester) finish() {
	t.record.EndTime = time.Now()

	if t.snapshots != nil {
		t.saveSnapshot()
	}
	if path, err := t.generator.WriteJSON(t.record); err != nil {
		t.logger.WithError(err).Error("Failed to write session data")
	} else {
		t.logger.WithField("path", path).Info("Session data written")
	}
	if path, err := t.generator.WriteHTML(t.record); err != nil {
		t.logger.WithError(err).Error("Failed to write report")
	} else {
		t.logger.WithField("path", path).Info("Report written")
	}

	t.logger.SummaryEvent(t.metrics.Snapshot().Fields())
}
