package config

import (
	"fmt"
	"time"

	"github.com/lukemcguire/synthlinks/logger"
	"github.com/lukemcguire/synthlinks/result"
	"github.com/lukemcguire/synthlinks/status"
)

// Engines and output formats accepted by Validate.
const (
	EnginePlaywright = "playwright"
	EngineHTTP       = "http"

	OutputJSON = "json"
	OutputCSV  = "csv"
	OutputText = "text"
	OutputTUI  = "tui"
)

// Config is the complete synthlinks configuration.
type Config struct {
	Logging     logger.Config `yaml:"logging"`
	Engine      string        `env:"SYNTHLINKS_ENGINE"       yaml:"engine"`
	Headed      bool          `env:"SYNTHLINKS_HEADED"       yaml:"headed"`
	Output      string        `env:"SYNTHLINKS_OUTPUT"       yaml:"output"`
	MetricsFile string        `env:"SYNTHLINKS_METRICS_FILE" yaml:"metrics_file"`
	Check       CheckConfig   `yaml:"check"`
}

// CheckConfig describes one scan. Zero values take the scan defaults.
type CheckConfig struct {
	OriginURI       string                   `env:"SYNTHLINKS_ORIGIN_URI"        yaml:"origin_uri"`
	LinkLimit       int                      `env:"SYNTHLINKS_LINK_LIMIT"        yaml:"link_limit"`
	LinkOrder       string                   `env:"SYNTHLINKS_LINK_ORDER"        yaml:"link_order"`
	LinkTimeout     time.Duration            `env:"SYNTHLINKS_LINK_TIMEOUT"      yaml:"link_timeout"`
	MaxRetries      int                      `env:"SYNTHLINKS_MAX_RETRIES"       yaml:"max_retries"`
	RetryDelay      time.Duration            `env:"SYNTHLINKS_RETRY_DELAY"       yaml:"retry_delay"`
	TotalTimeout    time.Duration            `env:"SYNTHLINKS_TOTAL_TIMEOUT"     yaml:"total_timeout"`
	Concurrency     int                      `env:"SYNTHLINKS_CONCURRENCY"       yaml:"concurrency"`
	RateLimit       int                      `env:"SYNTHLINKS_RATE_LIMIT"        yaml:"rate_limit"`
	AdaptiveRate    bool                     `env:"SYNTHLINKS_ADAPTIVE_RATE"     yaml:"adaptive_rate"`
	ExpectedStatus  string                   `env:"SYNTHLINKS_EXPECTED_STATUS"   yaml:"expected_status"`
	ElementSelector string                   `env:"SYNTHLINKS_ELEMENT_SELECTOR"  yaml:"element_selector"`
	Attributes      []string                 `env:"SYNTHLINKS_ATTRIBUTES"        yaml:"attributes"`
	WaitForSelector string                   `env:"SYNTHLINKS_WAIT_FOR_SELECTOR" yaml:"wait_for_selector"`
	RespectRobots   bool                     `env:"SYNTHLINKS_RESPECT_ROBOTS"    yaml:"respect_robots"`
	UserAgent       string                   `env:"SYNTHLINKS_USER_AGENT"        yaml:"user_agent"`
	DedupeLinks     bool                     `env:"SYNTHLINKS_DEDUPE_LINKS"      yaml:"dedupe_links"`
	PerLink         map[string]PerLinkConfig `yaml:"per_link"`
}

// PerLinkConfig overrides the expectation or timeout for one target URL.
type PerLinkConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	ExpectedStatus string        `yaml:"expected_status"`
}

// SetDefaults fills unset top-level fields. Scan fields are defaulted by
// result.Options.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	if c.Engine == "" {
		c.Engine = EnginePlaywright
	}
	if c.Output == "" {
		c.Output = OutputJSON
	}
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration, including the scan options it maps to.
func (c *Config) Validate() error {
	switch c.Engine {
	case EnginePlaywright, EngineHTTP:
	default:
		return &ValidationError{Field: "engine", Message: "must be one of: playwright, http"}
	}
	switch c.Output {
	case OutputJSON, OutputCSV, OutputText, OutputTUI:
	default:
		return &ValidationError{Field: "output", Message: "must be one of: json, csv, text, tui"}
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return &ValidationError{Field: "logging.format", Message: "must be one of: json, console"}
	}

	opts, err := c.Check.Options()
	if err != nil {
		return err
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("check: %w", err)
	}
	return nil
}

// Options converts the scan configuration to result.Options. Defaults are
// not applied.
func (c CheckConfig) Options() (result.Options, error) {
	order, err := result.ParseLinkOrder(c.LinkOrder)
	if err != nil {
		return result.Options{}, &ValidationError{Field: "check.link_order", Message: err.Error()}
	}

	var expected status.Expectation
	if c.ExpectedStatus != "" {
		if expected, err = status.ParseExpectation(c.ExpectedStatus); err != nil {
			return result.Options{}, &ValidationError{Field: "check.expected_status", Message: err.Error()}
		}
	}

	var perLink map[string]result.PerLinkOption
	if len(c.PerLink) > 0 {
		perLink = make(map[string]result.PerLinkOption, len(c.PerLink))
		for uri, pl := range c.PerLink {
			opt := result.PerLinkOption{LinkTimeoutMillis: millis(pl.Timeout)}
			if pl.ExpectedStatus != "" {
				if opt.ExpectedStatusCode, err = status.ParseExpectation(pl.ExpectedStatus); err != nil {
					return result.Options{}, &ValidationError{
						Field:   fmt.Sprintf("check.per_link[%s].expected_status", uri),
						Message: err.Error(),
					}
				}
			}
			perLink[uri] = opt
		}
	}

	return result.Options{
		OriginURI: c.OriginURI,
		LinkLimit: c.LinkLimit,
		QuerySelector: result.QuerySelector{
			ElementSelector: c.ElementSelector,
			GetAttributes:   c.Attributes,
		},
		LinkOrder:                   order,
		LinkTimeoutMillis:           millis(c.LinkTimeout),
		MaxRetries:                  c.MaxRetries,
		RetryDelayMillis:            millis(c.RetryDelay),
		ExpectedStatusCode:          expected,
		PerLinkOptions:              perLink,
		WaitForSelector:             c.WaitForSelector,
		TotalSyntheticTimeoutMillis: millis(c.TotalTimeout),
		Concurrency:                 c.Concurrency,
		RateLimit:                   c.RateLimit,
		RespectRobots:               c.RespectRobots,
		UserAgent:                   c.UserAgent,
		DedupeLinks:                 c.DedupeLinks,
	}, nil
}

func millis(d time.Duration) int {
	return int(d / time.Millisecond)
}
