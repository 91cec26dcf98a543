package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/OpenProbe/internal/auth"
	"github.com/PentesterFlow/OpenProbe/internal/modules"
	"github.com/PentesterFlow/OpenProbe/internal/report"
	"github.com/PentesterFlow/OpenProbe/internal/routeseeds"
	"github.com/PentesterFlow/OpenProbe/internal/urlnorm"
	"github.com/PentesterFlow/OpenProbe/pkg/tester"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Run flags
	maxPages     int
	maxDepth     int
	strategy     string
	crawlDelay   time.Duration
	moduleName   string
	routesFile   string
	outputDir    string
	headed       bool
	noExpandNav  bool
	noScroll     bool
	excludeURLs  []string

	// Auth flags
	authMode  string
	loginURL  string
	username  string
	password  string
	loginWait time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "openprobe",
		Short: "OpenProbe - Automated Web Application Tester",
		Long: `OpenProbe - An automated black-box tester for web applications.

Logs in, crawls every reachable page, exercises buttons, links, inputs and
dropdowns without destructive input, and records network errors, console
errors and broken elements into an HTML report with plain-language
explanations.`,
		Version: version,
	}

	runCmd := &cobra.Command{
		Use:   "run [target]",
		Short: "Test a target application",
		Long:  "Crawl a target URL and test the interactive elements on every page.",
		Args:  cobra.ExactArgs(1),
		RunE:  runTest,
	}

	modulesCmd := &cobra.Command{
		Use:   "modules",
		Short: "Show configured modules",
		Long:  "List the modules defined in the configuration file and their seed URLs.",
		RunE:  runModules,
	}

	routesCmd := &cobra.Command{
		Use:   "routes",
		Short: "Preview route seed expansion",
		Long:  "Expand the configured route manifest against a target and print the seed URLs a run would start from.",
		RunE:  runRoutes,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")

	// Run flags
	runCmd.Flags().IntVarP(&maxPages, "max-pages", "n", 100, "Maximum pages to test")
	runCmd.Flags().IntVarP(&maxDepth, "max-depth", "d", 5, "Maximum crawl depth")
	runCmd.Flags().StringVarP(&strategy, "strategy", "s", "dfs", "Crawl strategy (bfs, dfs)")
	runCmd.Flags().DurationVar(&crawlDelay, "crawl-delay", time.Second, "Pause between page visits")
	runCmd.Flags().StringVarP(&moduleName, "module", "m", "", "Restrict the run to one configured module")
	runCmd.Flags().StringVar(&routesFile, "routes", "", "Route table file (paths extracted from path: '...' literals)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "test_results", "Output directory for run artifacts")
	runCmd.Flags().BoolVar(&headed, "headed", false, "Run the browser with a visible window")
	runCmd.Flags().BoolVar(&noExpandNav, "no-expand-nav", false, "Skip opening collapsed menus before discovery")
	runCmd.Flags().BoolVar(&noScroll, "no-scroll", false, "Skip scrolling pages for lazy content")
	runCmd.Flags().StringArrayVar(&excludeURLs, "exclude", nil, "Additional URL substrings to exclude")

	// Auth flags
	runCmd.Flags().StringVar(&authMode, "auth-mode", "none", "Authentication mode (none, form, manual)")
	runCmd.Flags().StringVar(&loginURL, "login-url", "", "Login page URL")
	runCmd.Flags().StringVarP(&username, "username", "u", "", "Username for form login")
	runCmd.Flags().StringVarP(&password, "password", "p", "", "Password for form login")
	runCmd.Flags().DurationVar(&loginWait, "login-wait", 30*time.Second, "How long to wait for a manual login")

	// Routes flags
	routesCmd.Flags().StringVar(&routesFile, "routes", "", "Route table file (paths extracted from path: '...' literals)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(routesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig(cmd *cobra.Command, target string) (*tester.Config, error) {
	config := tester.DefaultConfig()
	if configFile != "" {
		loaded, err := tester.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = loaded
	}
	if target != "" {
		config.Target = target
	}

	// Command-line flags take precedence over the config file.
	if cmd.Flags().Changed("max-pages") {
		config.MaxPages = maxPages
	}
	if cmd.Flags().Changed("max-depth") {
		config.MaxDepth = maxDepth
	}
	if cmd.Flags().Changed("strategy") {
		config.Strategy = strategy
	}
	if cmd.Flags().Changed("crawl-delay") {
		config.CrawlDelay = crawlDelay
	}
	if cmd.Flags().Changed("module") {
		config.Module = moduleName
	}
	if cmd.Flags().Changed("routes") {
		config.RouteSeeds.Enabled = true
		config.RouteSeeds.File = routesFile
	}
	if cmd.Flags().Changed("output") {
		config.OutputDir = outputDir
	}
	if headed {
		config.Browser.Headless = false
	}
	if noExpandNav {
		config.ExpandNav = false
	}
	if noScroll {
		config.ScrollPages = false
	}
	config.ExcludedURLPatterns = append(config.ExcludedURLPatterns, excludeURLs...)

	if cmd.Flags().Changed("auth-mode") {
		mode, err := auth.ParseMode(authMode)
		if err != nil {
			return nil, err
		}
		config.Auth.Mode = mode
	}
	if loginURL != "" {
		config.Auth.LoginURL = loginURL
	}
	if username != "" {
		config.Auth.Username = username
	}
	if password != "" {
		config.Auth.Password = password
	}
	if cmd.Flags().Changed("login-wait") {
		config.Auth.ManualWait = loginWait
	}

	config.Verbose = verbose
	config.Debug = debug
	return config, nil
}

func runTest(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	t, err := tester.New(tester.WithConfig(config))
	if err != nil {
		return fmt.Errorf("failed to create tester: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printBanner(config)

	start := time.Now()
	session, err := t.Run(ctx)
	duration := time.Since(start)

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "\nInterrupted, partial results written.")
	}

	printSummary(session, config, duration)
	return nil
}

func runModules(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		return fmt.Errorf("modules requires --config")
	}
	config, err := tester.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	if len(config.Modules) == 0 {
		fmt.Println("No modules configured.")
		return nil
	}
	for _, m := range config.Modules {
		fmt.Printf("%s\n", m.Name)
		for _, s := range m.Seeds {
			fmt.Printf("  %s\n", s)
		}
	}
	fmt.Printf("\nUncategorized pages fall under %q.\n", modules.Uncategorized)
	return nil
}

func runRoutes(cmd *cobra.Command, args []string) error {
	config := tester.DefaultConfig()
	if configFile != "" {
		loaded, err := tester.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
		config = loaded
	}
	if cmd.Flags().Changed("routes") {
		config.RouteSeeds.File = routesFile
	}

	paths := append([]string(nil), config.RouteSeeds.Routes...)
	if config.RouteSeeds.File != "" {
		loaded, stats := routeseeds.LoadPaths(config.RouteSeeds.File)
		if stats.MissingFile {
			return fmt.Errorf("route manifest %s not found", config.RouteSeeds.File)
		}
		paths = append(paths, loaded...)
	}
	if len(paths) == 0 {
		fmt.Println("No routes configured.")
		return nil
	}

	base := urlnorm.Origin(config.Target)
	if base == "" {
		base = "https://example.com"
	}
	expanded, stats := routeseeds.Expand(paths, base,
		routeseeds.NormalizeParamValues(config.RouteSeeds.ParamValues),
		routeseeds.Options{
			IncludeDynamic: config.RouteSeeds.IncludeDynamic,
			SkipMissing:    config.RouteSeeds.SkipMissingParams,
			MaxPerPath:     config.RouteSeeds.MaxPerPath,
		})

	for _, u := range expanded {
		fmt.Println(u)
	}
	fmt.Printf("\n%d seeds from %d routes (%d static, %d dynamic)\n",
		len(expanded), stats.TotalPaths, stats.StaticPaths, stats.DynamicPaths)
	if stats.CappedPaths > 0 {
		fmt.Printf("%d dynamic routes truncated by the per-route cap\n", stats.CappedPaths)
	}
	return nil
}

func printBanner(config *tester.Config) {
	fmt.Println()
	fmt.Printf("OpenProbe v%s\n", version)
	fmt.Printf("Target:     %s\n", config.Target)
	fmt.Printf("Max Pages:  %d\n", config.MaxPages)
	fmt.Printf("Max Depth:  %d\n", config.MaxDepth)
	fmt.Printf("Strategy:   %s\n", config.Strategy)
	if config.Module != "" {
		fmt.Printf("Module:     %s\n", config.Module)
	}
	fmt.Println()
}

func printSummary(session *report.Session, config *tester.Config, duration time.Duration) {
	if session == nil {
		return
	}
	fmt.Println()
	fmt.Println("Run Summary")
	fmt.Println("-----------")
	fmt.Printf("Duration:         %v\n", duration.Round(time.Second))
	fmt.Printf("Pages Tested:     %d\n", session.TotalPages())
	fmt.Printf("Pages With Errors:%d\n", session.PagesWithErrors())
	fmt.Printf("Elements Tested:  %d\n", session.TotalElementTests())
	fmt.Printf("Element Failures: %d\n", session.TotalElementFailures())
	fmt.Printf("Network Errors:   %d\n", session.TotalNetworkErrors())
	fmt.Printf("Console Errors:   %d\n", session.TotalConsoleErrors())
	fmt.Printf("Output:           %s\n", config.OutputDir)
	fmt.Println()
}
