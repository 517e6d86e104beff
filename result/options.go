package result

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lukemcguire/synthlinks/status"
)

// LinkOrder selects which extracted links are followed when there are more
// than the link limit allows.
type LinkOrder string

const (
	LinkOrderSequential LinkOrder = "SEQUENTIAL"
	LinkOrderRandom     LinkOrder = "RANDOM"
)

// ParseLinkOrder parses a link order. "FIRST_N" is accepted as an alias of
// SEQUENTIAL.
func ParseLinkOrder(s string) (LinkOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "SEQUENTIAL", "FIRST_N":
		return LinkOrderSequential, nil
	case "RANDOM":
		return LinkOrderRandom, nil
	}
	return "", fmt.Errorf("unknown link order %q", s)
}

// Defaults applied by Options.SetDefaults.
const (
	DefaultLinkLimit         = 10
	DefaultLinkTimeoutMillis = 30_000
	DefaultTotalTimeout      = 60_000
	DefaultConcurrency       = 4
	DefaultElementSelector   = "a"
	DefaultUserAgent         = "synthlinks/1.0 (+https://github.com/lukemcguire/synthlinks)"
)

// QuerySelector controls which elements and attributes links are read from.
type QuerySelector struct {
	ElementSelector string   `json:"element_selector"`
	GetAttributes   []string `json:"get_attributes"`
}

// PerLinkOption overrides the global expectation or timeout for one target.
type PerLinkOption struct {
	LinkTimeoutMillis  int                `json:"link_timeout_millis,omitempty"`
	ExpectedStatusCode status.Expectation `json:"expected_status_code"`
}

// Options configure a scan. They are echoed verbatim in the report.
type Options struct {
	OriginURI                   string                   `json:"origin_uri"`
	LinkLimit                   int                      `json:"link_limit"` // counts the origin link
	QuerySelector               QuerySelector            `json:"query_selector_options"`
	LinkOrder                   LinkOrder                `json:"link_order"`
	LinkTimeoutMillis           int                      `json:"link_timeout_millis"`
	MaxRetries                  int                      `json:"max_retries"`
	RetryDelayMillis            int                      `json:"retry_delay_millis"`
	ExpectedStatusCode          status.Expectation       `json:"expected_status_code"`
	PerLinkOptions              map[string]PerLinkOption `json:"per_link_options,omitempty"`
	WaitForSelector             string                   `json:"wait_for_selector,omitempty"`
	TotalSyntheticTimeoutMillis int                      `json:"total_synthetic_timeout_millis"`
	Concurrency                 int                      `json:"concurrency"`
	RateLimit                   int                      `json:"rate_limit,omitempty"`
	RespectRobots               bool                     `json:"respect_robots"`
	UserAgent                   string                   `json:"user_agent"`
	DedupeLinks                 bool                     `json:"dedupe_links"`
}

// SetDefaults fills unset fields. Zero MaxRetries and RetryDelayMillis are
// meaningful values and are left alone.
func (o *Options) SetDefaults() {
	if o.LinkLimit == 0 {
		o.LinkLimit = DefaultLinkLimit
	}
	if o.QuerySelector.ElementSelector == "" {
		o.QuerySelector.ElementSelector = DefaultElementSelector
	}
	if len(o.QuerySelector.GetAttributes) == 0 {
		o.QuerySelector.GetAttributes = []string{"href"}
	}
	if o.LinkOrder == "" {
		o.LinkOrder = LinkOrderSequential
	}
	if o.LinkTimeoutMillis == 0 {
		o.LinkTimeoutMillis = DefaultLinkTimeoutMillis
	}
	if o.ExpectedStatusCode.IsZero() {
		o.ExpectedStatusCode = status.OfClass(status.Class2xx)
	}
	if o.TotalSyntheticTimeoutMillis == 0 {
		o.TotalSyntheticTimeoutMillis = DefaultTotalTimeout
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
}

// ValidationError reports an invalid option.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks options after defaults have been applied.
func (o Options) Validate() error {
	if o.OriginURI == "" {
		return &ValidationError{Field: "origin_uri", Message: "is required"}
	}
	if !isHTTPURL(o.OriginURI) {
		return &ValidationError{Field: "origin_uri", Message: "must be an absolute http or https URL"}
	}
	if o.LinkLimit < 1 {
		return &ValidationError{Field: "link_limit", Message: "must be at least 1"}
	}
	if o.LinkOrder != LinkOrderSequential && o.LinkOrder != LinkOrderRandom {
		return &ValidationError{Field: "link_order", Message: "must be SEQUENTIAL or RANDOM"}
	}
	if o.LinkTimeoutMillis < 1 {
		return &ValidationError{Field: "link_timeout_millis", Message: "must be positive"}
	}
	if o.TotalSyntheticTimeoutMillis < 1 {
		return &ValidationError{Field: "total_synthetic_timeout_millis", Message: "must be positive"}
	}
	if o.MaxRetries < 0 {
		return &ValidationError{Field: "max_retries", Message: "must not be negative"}
	}
	if o.RetryDelayMillis < 0 {
		return &ValidationError{Field: "retry_delay_millis", Message: "must not be negative"}
	}
	if o.Concurrency < 1 {
		return &ValidationError{Field: "concurrency", Message: "must be at least 1"}
	}
	if o.RateLimit < 0 {
		return &ValidationError{Field: "rate_limit", Message: "must not be negative"}
	}
	if strings.TrimSpace(o.QuerySelector.ElementSelector) == "" || len(o.QuerySelector.GetAttributes) == 0 {
		return &ValidationError{Field: "query_selector_options", Message: "needs an element selector and at least one attribute"}
	}
	if err := validateExpectation("expected_status_code", o.ExpectedStatusCode, false); err != nil {
		return err
	}
	for uri, opt := range o.PerLinkOptions {
		field := fmt.Sprintf("per_link_options[%s]", uri)
		if !isHTTPURL(uri) {
			return &ValidationError{Field: field, Message: "key must be an absolute http or https URL"}
		}
		if opt.LinkTimeoutMillis < 0 {
			return &ValidationError{Field: field + ".link_timeout_millis", Message: "must not be negative"}
		}
		if err := validateExpectation(field+".expected_status_code", opt.ExpectedStatusCode, true); err != nil {
			return err
		}
	}
	return nil
}

func validateExpectation(field string, exp status.Expectation, allowZero bool) error {
	switch {
	case exp.Code != 0:
		if exp.Code < 100 || exp.Code > 599 {
			return &ValidationError{Field: field, Message: "status code must be between 100 and 599"}
		}
	case exp.Class.Valid():
	case exp.IsZero() && allowZero:
	default:
		return &ValidationError{Field: field, Message: "must set a status code or a status class"}
	}
	return nil
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// ExpectationFor returns the status expectation for target, preferring a
// per-link override.
func (o Options) ExpectationFor(target string) status.Expectation {
	if opt, ok := o.PerLinkOptions[target]; ok && !opt.ExpectedStatusCode.IsZero() {
		return opt.ExpectedStatusCode
	}
	return o.ExpectedStatusCode
}

// TimeoutFor returns the navigation timeout for target, preferring a
// per-link override.
func (o Options) TimeoutFor(target string) time.Duration {
	if opt, ok := o.PerLinkOptions[target]; ok && opt.LinkTimeoutMillis > 0 {
		return time.Duration(opt.LinkTimeoutMillis) * time.Millisecond
	}
	return time.Duration(o.LinkTimeoutMillis) * time.Millisecond
}

// TotalTimeout is the deadline for a whole scan.
func (o Options) TotalTimeout() time.Duration {
	return time.Duration(o.TotalSyntheticTimeoutMillis) * time.Millisecond
}

// RetryDelay is the base delay between navigation attempts.
func (o Options) RetryDelay() time.Duration {
	return time.Duration(o.RetryDelayMillis) * time.Millisecond
}
