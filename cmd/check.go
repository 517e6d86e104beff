package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lukemcguire/synthlinks/browser"
	"github.com/lukemcguire/synthlinks/checker"
	"github.com/lukemcguire/synthlinks/config"
	"github.com/lukemcguire/synthlinks/logger"
	"github.com/lukemcguire/synthlinks/metrics"
	"github.com/lukemcguire/synthlinks/result"
	"github.com/lukemcguire/synthlinks/tui"
)

const progressBuffer = 100

type checkFlags struct {
	engine         string
	output         string
	metricsFile    string
	logLevel       string
	headed         bool
	linkLimit      int
	linkOrder      string
	retries        int
	retryDelay     time.Duration
	linkTimeout    time.Duration
	totalTimeout   time.Duration
	concurrency    int
	rateLimit      int
	adaptiveRate   bool
	expectedStatus string
	selector       string
	attributes     []string
	waitFor        string
	respectRobots  bool
	dedupe         bool
	userAgent      string
}

func newCheckCommand() *cobra.Command {
	var f checkFlags

	cmd := &cobra.Command{
		Use:   "check [url]",
		Short: "Check the links on one page",
		Long: `Load the origin page, follow up to --link-limit of its links and report
every outcome. Exits non-zero when any link fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Path(cfgFile))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			f.apply(cmd, cfg)
			if len(args) == 1 {
				cfg.Check.OriginURI = args[0]
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return runCheck(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func (f *checkFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.engine, "engine", config.EnginePlaywright, "page engine: playwright or http")
	fs.StringVarP(&f.output, "output", "o", config.OutputJSON, "output format: json, csv, text or tui")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.BoolVar(&f.headed, "headed", false, "show the browser window")
	fs.IntVar(&f.linkLimit, "link-limit", result.DefaultLinkLimit, "maximum links checked, origin included")
	fs.StringVar(&f.linkOrder, "link-order", string(result.LinkOrderSequential), "link order: SEQUENTIAL (alias FIRST_N) or RANDOM")
	fs.IntVar(&f.retries, "retries", 0, "retries per link after a failed navigation")
	fs.DurationVar(&f.retryDelay, "retry-delay", 0, "base delay between retries")
	fs.DurationVar(&f.linkTimeout, "link-timeout", time.Duration(result.DefaultLinkTimeoutMillis)*time.Millisecond, "timeout per navigation")
	fs.DurationVar(&f.totalTimeout, "total-timeout", time.Duration(result.DefaultTotalTimeout)*time.Millisecond, "timeout for the whole scan")
	fs.IntVar(&f.concurrency, "concurrency", result.DefaultConcurrency, "pages open at once")
	fs.IntVar(&f.rateLimit, "rate-limit", 0, "navigations per second, 0 for unlimited")
	fs.BoolVar(&f.adaptiveRate, "adaptive-rate", false, "adjust the rate limit to page load times")
	fs.StringVar(&f.expectedStatus, "expected-status", "2xx", "expected status: a code such as 200 or a class such as 2xx")
	fs.StringVar(&f.selector, "selector", result.DefaultElementSelector, "CSS selector for link elements")
	fs.StringSliceVar(&f.attributes, "attributes", []string{"href"}, "attributes read from each element, one link per attribute")
	fs.StringVar(&f.waitFor, "wait-for", "", "CSS selector to wait for before extracting links")
	fs.BoolVar(&f.respectRobots, "respect-robots", false, "skip links disallowed by robots.txt")
	fs.BoolVar(&f.dedupe, "dedupe", false, "check each distinct URL once")
	fs.StringVar(&f.userAgent, "user-agent", result.DefaultUserAgent, "User-Agent header")
}

// apply copies explicitly set flags over the loaded configuration.
func (f *checkFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("engine") {
		cfg.Engine = f.engine
	}
	if set("output") {
		cfg.Output = f.output
	}
	if set("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if set("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if set("headed") {
		cfg.Headed = f.headed
	}

	c := &cfg.Check
	if set("link-limit") {
		c.LinkLimit = f.linkLimit
	}
	if set("link-order") {
		c.LinkOrder = f.linkOrder
	}
	if set("retries") {
		c.MaxRetries = f.retries
	}
	if set("retry-delay") {
		c.RetryDelay = f.retryDelay
	}
	if set("link-timeout") {
		c.LinkTimeout = f.linkTimeout
	}
	if set("total-timeout") {
		c.TotalTimeout = f.totalTimeout
	}
	if set("concurrency") {
		c.Concurrency = f.concurrency
	}
	if set("rate-limit") {
		c.RateLimit = f.rateLimit
	}
	if set("adaptive-rate") {
		c.AdaptiveRate = f.adaptiveRate
	}
	if set("expected-status") {
		c.ExpectedStatus = f.expectedStatus
	}
	if set("selector") {
		c.ElementSelector = f.selector
	}
	if set("attributes") {
		c.Attributes = f.attributes
	}
	if set("wait-for") {
		c.WaitForSelector = f.waitFor
	}
	if set("respect-robots") {
		c.RespectRobots = f.respectRobots
	}
	if set("dedupe") {
		c.DedupeLinks = f.dedupe
	}
	if set("user-agent") {
		c.UserAgent = f.userAgent
	}
}

// runCheck runs one scan and writes the result to out. cfg must already be
// validated.
func runCheck(ctx context.Context, cfg *config.Config, out io.Writer) error {
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	opts, err := cfg.Check.Options()
	if err != nil {
		return err
	}
	opts.SetDefaults()

	engine, stop, err := newEngine(cfg, opts, log)
	if err != nil {
		return err
	}
	defer stop()

	m := metrics.New()
	optFns := []checker.Option{
		checker.WithLogger(log),
		checker.WithMetrics(m),
		checker.WithAdaptivePacing(cfg.Check.AdaptiveRate),
		checker.WithRobotsClient(&http.Client{Timeout: opts.TimeoutFor(opts.OriginURI)}),
		checker.WithRuntimeMetadata(runtimeMetadata(cfg, engine)),
	}

	var res *result.SyntheticResult
	if cfg.Output == config.OutputTUI {
		res, err = runTUI(ctx, opts, engine, optFns)
	} else {
		res, err = checker.New(opts, engine, nil, optFns...).Run(ctx)
	}

	if cfg.MetricsFile != "" {
		if writeErr := m.WriteTextfile(cfg.MetricsFile); writeErr != nil {
			log.Error("write metrics textfile failed", logger.Error(writeErr))
		}
	}
	if err != nil {
		return fmt.Errorf("run check: %w", err)
	}

	if err := writeResult(out, cfg.Output, res); err != nil {
		return err
	}
	if !res.BrokenLinksResult.Passed() {
		return ErrFailingLinks
	}
	return nil
}

// newEngine builds the configured page engine and a function that releases it.
func newEngine(cfg *config.Config, opts result.Options, log logger.Logger) (checker.Browser, func(), error) {
	if cfg.Engine == config.EngineHTTP {
		engine := browser.NewHTTP(browser.HTTPConfig{
			UserAgent:   opts.UserAgent,
			DedupeLinks: opts.DedupeLinks,
			Logger:      log,
		})
		return engine, func() {}, nil
	}

	engine, err := browser.NewPlaywright(browser.PlaywrightConfig{
		UserAgent:   opts.UserAgent,
		Headless:    !cfg.Headed,
		DedupeLinks: opts.DedupeLinks,
		Logger:      log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}
	stop := func() {
		if err := engine.Stop(); err != nil {
			log.Warn("stop browser failed", logger.Error(err))
		}
	}
	return engine, stop, nil
}

func runtimeMetadata(cfg *config.Config, engine checker.Browser) map[string]string {
	md := map[string]string{
		"engine":  cfg.Engine,
		"version": Version,
	}
	if v, ok := engine.(interface{ Version() string }); ok {
		md["browser_version"] = v.Version()
	}
	return md
}

func runTUI(ctx context.Context, opts result.Options, engine checker.Browser, optFns []checker.Option) (*result.SyntheticResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progressCh := make(chan checker.CheckEvent, progressBuffer)
	c := checker.New(opts, engine, progressCh, optFns...)

	program := tea.NewProgram(tui.NewModel(ctx, cancel, c, progressCh))
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("run tui: %w", err)
	}

	model, ok := final.(tui.Model)
	if !ok {
		return nil, errors.New("unexpected tui model")
	}
	if model.Err() != nil {
		return nil, model.Err()
	}
	if model.GetResult() == nil {
		return nil, context.Canceled
	}
	return model.GetResult(), nil
}

func writeResult(out io.Writer, format string, res *result.SyntheticResult) error {
	switch format {
	case config.OutputJSON:
		if err := result.WriteJSON(out, *res); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	case config.OutputCSV:
		if err := result.WriteCSV(out, res.BrokenLinksResult); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	case config.OutputText:
		result.PrintResults(out, *res)
	case config.OutputTUI:
		// The summary was already rendered by the TUI.
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}
