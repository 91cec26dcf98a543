package tester

import (
	"time"

	"github.com/PentesterFlow/OpenProbe/internal/auth"
	"github.com/PentesterFlow/OpenProbe/internal/browser"
)

// Option is a functional option for configuring the Tester.
type Option func(*Tester) error

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(t *Tester) error {
		if config != nil {
			t.config = config
		}
		return nil
	}
}

// WithTarget sets the start URL of the application under test.
func WithTarget(url string) Option {
	return func(t *Tester) error {
		t.config.Target = url
		return nil
	}
}

// WithMaxPages bounds how many pages one run tests.
func WithMaxPages(n int) Option {
	return func(t *Tester) error {
		if n < 1 {
			n = 1
		}
		t.config.MaxPages = n
		return nil
	}
}

// WithMaxDepth bounds how many links deep the crawl follows.
func WithMaxDepth(depth int) Option {
	return func(t *Tester) error {
		if depth < 1 {
			depth = 1
		}
		t.config.MaxDepth = depth
		return nil
	}
}

// WithStrategy sets the crawl order, "bfs" or "dfs".
func WithStrategy(strategy string) Option {
	return func(t *Tester) error {
		t.config.Strategy = strategy
		return nil
	}
}

// WithCrawlDelay sets the minimum pause between page visits.
func WithCrawlDelay(d time.Duration) Option {
	return func(t *Tester) error {
		t.config.CrawlDelay = d
		return nil
	}
}

// WithModules defines the site's functional areas.
func WithModules(mods ...ModuleConfig) Option {
	return func(t *Tester) error {
		t.config.Modules = append(t.config.Modules, mods...)
		return nil
	}
}

// WithModule restricts the run to one named module.
func WithModule(name string) Option {
	return func(t *Tester) error {
		t.config.Module = name
		return nil
	}
}

// WithRouteSeeds configures manifest-based seeding.
func WithRouteSeeds(rs RouteSeedConfig) Option {
	return func(t *Tester) error {
		t.config.RouteSeeds = rs
		return nil
	}
}

// WithAuth sets the authentication configuration.
func WithAuth(cfg auth.Config) Option {
	return func(t *Tester) error {
		t.config.Auth = cfg
		return nil
	}
}

// WithHeadless toggles headless browser mode.
func WithHeadless(headless bool) Option {
	return func(t *Tester) error {
		t.config.Browser.Headless = headless
		return nil
	}
}

// WithOutputDir sets the directory receiving run artifacts.
func WithOutputDir(dir string) Option {
	return func(t *Tester) error {
		t.config.OutputDir = dir
		return nil
	}
}

// WithExcludedURLPatterns adds URL substrings that are never crawled.
func WithExcludedURLPatterns(patterns ...string) Option {
	return func(t *Tester) error {
		t.config.ExcludedURLPatterns = append(t.config.ExcludedURLPatterns, patterns...)
		return nil
	}
}

// WithVerbose enables info-level logging.
func WithVerbose(verbose bool) Option {
	return func(t *Tester) error {
		t.config.Verbose = verbose
		return nil
	}
}

// WithDebug enables debug-level logging.
func WithDebug(debug bool) Option {
	return func(t *Tester) error {
		t.config.Debug = debug
		return nil
	}
}

// WithPage injects a pre-built browsing surface instead of launching a
// browser. The caller keeps ownership; Run will not close it.
func WithPage(page browser.Page) Option {
	return func(t *Tester) error {
		t.page = page
		return nil
	}
}
