package tester

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/OpenProbe/internal/auth"
	"github.com/PentesterFlow/OpenProbe/internal/browser"
	"github.com/PentesterFlow/OpenProbe/internal/frontier"
)

// ModuleConfig names one functional area of the site and the seed URLs or
// URL prefixes that belong to it.
type ModuleConfig struct {
	Name  string   `json:"name" yaml:"name"`
	Seeds []string `json:"seeds" yaml:"seeds"`
}

// RouteSeedConfig controls seeding the crawl from a route manifest.
type RouteSeedConfig struct {
	// Enabled turns route seeding on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// File is a route-table source file (a JS/TS router definition or
	// similar); path templates are extracted from path: '...' / path = "..."
	// literals in it.
	File string `json:"file" yaml:"file"`

	// Routes lists inline route paths, used in addition to File.
	Routes []string `json:"routes" yaml:"routes"`

	// ParamValues maps :param names to candidate values for dynamic routes.
	ParamValues map[string][]string `json:"param_values" yaml:"param_values"`

	// IncludeDynamic expands routes containing :param segments.
	IncludeDynamic bool `json:"include_dynamic" yaml:"include_dynamic"`

	// SkipMissingParams skips dynamic routes with no known values.
	SkipMissingParams bool `json:"skip_missing_params" yaml:"skip_missing_params"`

	// MaxPerPath bounds expansion of one dynamic route. Zero means default.
	MaxPerPath int `json:"max_per_path" yaml:"max_per_path"`

	// LearnParams re-expands dynamic routes with parameter values observed
	// in visited URLs as the crawl progresses.
	LearnParams bool `json:"learn_params" yaml:"learn_params"`
}

// Config holds all run configuration.
type Config struct {
	// Target is the start URL of the application under test.
	Target string `json:"target" yaml:"target"`

	// MaxPages bounds how many pages one run tests.
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// MaxDepth bounds how many links deep the crawl follows.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// Strategy is the crawl order, "bfs" or "dfs".
	Strategy string `json:"crawl_strategy" yaml:"crawl_strategy"`

	// CrawlDelay is the minimum pause between page visits.
	CrawlDelay time.Duration `json:"crawl_delay" yaml:"crawl_delay"`

	// ElementDelay is the pause between element interactions.
	ElementDelay time.Duration `json:"element_delay" yaml:"element_delay"`

	// PopupWait is how long to tolerate a popup after a click.
	PopupWait time.Duration `json:"popup_wait" yaml:"popup_wait"`

	// IncludeQueryParams keeps query strings when deciding page identity.
	IncludeQueryParams bool `json:"include_query_params" yaml:"include_query_params"`

	// IncludeHash keeps URL fragments when deciding page identity.
	IncludeHash bool `json:"include_hash" yaml:"include_hash"`

	// ScreenshotOnError captures the page when an interaction fails.
	ScreenshotOnError bool `json:"screenshot_on_error" yaml:"screenshot_on_error"`

	// ErrorStatusCodes lists HTTP statuses recorded as network errors.
	ErrorStatusCodes []int `json:"error_status_codes" yaml:"error_status_codes"`

	// ConsoleErrorTypes lists console message types recorded as errors.
	ConsoleErrorTypes []string `json:"console_error_types" yaml:"console_error_types"`

	// IgnoreURLPatterns drops network errors from matching third-party URLs.
	IgnoreURLPatterns []string `json:"ignore_url_patterns" yaml:"ignore_url_patterns"`

	// ExcludedURLPatterns are never crawled (logout, downloads, APIs).
	ExcludedURLPatterns []string `json:"excluded_url_patterns" yaml:"excluded_url_patterns"`

	// ExcludedElementSelectors are never interacted with.
	ExcludedElementSelectors []string `json:"excluded_element_selectors" yaml:"excluded_element_selectors"`

	// Modules partitions the site into named functional areas, checked in
	// declaration order.
	Modules []ModuleConfig `json:"modules" yaml:"modules"`

	// Module restricts the run to one named module. Single-module runs
	// crawl depth-first so the focused area is exhausted before anything
	// else is touched.
	Module string `json:"module" yaml:"module"`

	// RouteSeeds configures manifest-based seeding.
	RouteSeeds RouteSeedConfig `json:"route_seeds" yaml:"route_seeds"`

	// ExpandNav opens collapsed menus before link discovery.
	ExpandNav bool `json:"expand_nav" yaml:"expand_nav"`

	// ScrollPages scrolls pages to trigger lazy-loaded content.
	ScrollPages bool `json:"scroll_pages" yaml:"scroll_pages"`

	// Auth selects how the session gets authenticated.
	Auth auth.Config `json:"auth" yaml:"auth"`

	// Browser configures the headless browser.
	Browser browser.Config `json:"browser" yaml:"browser"`

	// OutputDir receives one run_<timestamp> directory per run.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// SnapshotInterval is how many pages between session snapshots. Zero
	// disables snapshots.
	SnapshotInterval int `json:"snapshot_interval" yaml:"snapshot_interval"`

	// Verbose enables info-level logging.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug enables debug-level logging.
	Debug bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxPages:           100,
		MaxDepth:           5,
		Strategy:           string(frontier.DFS),
		CrawlDelay:         time.Second,
		ElementDelay:       500 * time.Millisecond,
		PopupWait:          1500 * time.Millisecond,
		IncludeQueryParams: true,
		IncludeHash:        false,
		ScreenshotOnError:  true,
		ErrorStatusCodes:   []int{400, 401, 403, 404, 405, 500, 502, 503, 504},
		ConsoleErrorTypes:  []string{"error", "pageerror", "warning"},
		IgnoreURLPatterns: []string{
			"google-analytics.com",
			"gtag/js",
			"googletagmanager.com",
			"facebook.com/tr",
			"sentry.io",
		},
		ExcludedURLPatterns: []string{
			"logout", "signout", "sign-out", "log-out",
			"/api/", ".pdf", ".zip", ".exe",
			"mailto:", "tel:", "javascript:", "#",
		},
		ExcludedElementSelectors: []string{
			"[data-testid='logout']",
			".logout-btn",
			"#logout",
			"[href*='logout']",
			"[href*='signout']",
		},
		RouteSeeds: RouteSeedConfig{
			IncludeDynamic:    true,
			SkipMissingParams: true,
			LearnParams:       true,
		},
		ExpandNav:        true,
		ScrollPages:      true,
		Auth:             auth.DefaultConfig(),
		Browser:          browser.DefaultConfig(),
		OutputDir:        "test_results",
		SnapshotInterval: 10,
	}
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file, JSON when the path ends in
// .json, YAML otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target URL is required")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max pages must be at least 1")
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1")
	}
	if c.Strategy != "" {
		s := frontier.ParseStrategy(c.Strategy)
		if string(s) != c.Strategy {
			return fmt.Errorf("unknown crawl strategy %q", c.Strategy)
		}
	}
	if _, err := auth.ParseMode(string(c.Auth.Mode)); err != nil {
		return err
	}
	if c.Module != "" && !c.hasModule(c.Module) {
		return fmt.Errorf("module %q is not defined", c.Module)
	}
	seen := make(map[string]struct{}, len(c.Modules))
	for _, m := range c.Modules {
		if m.Name == "" {
			return fmt.Errorf("module with empty name")
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("duplicate module %q", m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

func (c *Config) hasModule(name string) bool {
	for _, m := range c.Modules {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := json.Marshal(c)
	clone := &Config{}
	_ = json.Unmarshal(data, clone)
	return clone
}
