package result

import (
	"errors"
	"testing"
	"time"

	"github.com/lukemcguire/synthlinks/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() Options {
	opts := Options{OriginURI: "https://example.com/"}
	opts.SetDefaults()
	return opts
}

func TestOptions_SetDefaults(t *testing.T) {
	opts := validOptions()

	assert.Equal(t, DefaultLinkLimit, opts.LinkLimit)
	assert.Equal(t, LinkOrderSequential, opts.LinkOrder)
	assert.Equal(t, "a", opts.QuerySelector.ElementSelector)
	assert.Equal(t, []string{"href"}, opts.QuerySelector.GetAttributes)
	assert.Equal(t, status.OfClass(status.Class2xx), opts.ExpectedStatusCode)
	assert.Equal(t, 0, opts.MaxRetries)
	assert.Equal(t, DefaultConcurrency, opts.Concurrency)
	assert.Equal(t, DefaultUserAgent, opts.UserAgent)
	require.NoError(t, opts.Validate())
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{"missing origin", func(o *Options) { o.OriginURI = "" }, "origin_uri"},
		{"non-http origin", func(o *Options) { o.OriginURI = "ftp://example.com/" }, "origin_uri"},
		{"relative origin", func(o *Options) { o.OriginURI = "/index.html" }, "origin_uri"},
		{"negative link limit", func(o *Options) { o.LinkLimit = -1 }, "link_limit"},
		{"bad link order", func(o *Options) { o.LinkOrder = "REVERSE" }, "link_order"},
		{"negative retries", func(o *Options) { o.MaxRetries = -1 }, "max_retries"},
		{"negative retry delay", func(o *Options) { o.RetryDelayMillis = -5 }, "retry_delay_millis"},
		{"negative timeout", func(o *Options) { o.LinkTimeoutMillis = -1 }, "link_timeout_millis"},
		{"negative rate limit", func(o *Options) { o.RateLimit = -1 }, "rate_limit"},
		{"empty selector", func(o *Options) { o.QuerySelector.ElementSelector = " " }, "query_selector_options"},
		{"exact code out of range", func(o *Options) { o.ExpectedStatusCode = status.Exact(700) }, "expected_status_code"},
		{"unknown class", func(o *Options) { o.ExpectedStatusCode = status.OfClass(status.Class(9)) }, "expected_status_code"},
		{
			"per-link key not a URL",
			func(o *Options) { o.PerLinkOptions = map[string]PerLinkOption{"not a url": {}} },
			"per_link_options[not a url]",
		},
		{
			"per-link bad code",
			func(o *Options) {
				o.PerLinkOptions = map[string]PerLinkOption{"https://x/": {ExpectedStatusCode: status.Exact(42)}}
			},
			"per_link_options[https://x/].expected_status_code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			require.Error(t, err)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestOptions_PerLinkOverrides(t *testing.T) {
	opts := validOptions()
	opts.PerLinkOptions = map[string]PerLinkOption{
		"https://example.com/gone":    {ExpectedStatusCode: status.Exact(410), LinkTimeoutMillis: 500},
		"https://example.com/timeout": {LinkTimeoutMillis: 1500},
	}
	require.NoError(t, opts.Validate())

	assert.Equal(t, status.Exact(410), opts.ExpectationFor("https://example.com/gone"))
	assert.Equal(t, 500*time.Millisecond, opts.TimeoutFor("https://example.com/gone"))

	// A per-link entry without an expectation falls back to the global one.
	assert.Equal(t, status.OfClass(status.Class2xx), opts.ExpectationFor("https://example.com/timeout"))
	assert.Equal(t, 1500*time.Millisecond, opts.TimeoutFor("https://example.com/timeout"))

	assert.Equal(t, status.OfClass(status.Class2xx), opts.ExpectationFor("https://example.com/other"))
	assert.Equal(t, 30*time.Second, opts.TimeoutFor("https://example.com/other"))
}

func TestParseLinkOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    LinkOrder
		wantErr bool
	}{
		{"", LinkOrderSequential, false},
		{"sequential", LinkOrderSequential, false},
		{"FIRST_N", LinkOrderSequential, false},
		{"random", LinkOrderRandom, false},
		{"sideways", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLinkOrder(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
