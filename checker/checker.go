// Package checker runs a synthetic broken-link scan: it loads the origin
// page, extracts and selects links, follows them concurrently through a
// bounded page pool and aggregates every outcome into one report.
package checker

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/synthlinks/logger"
	"github.com/lukemcguire/synthlinks/metrics"
	"github.com/lukemcguire/synthlinks/result"
)

// Checker runs one scan per call to Run.
type Checker struct {
	opts         result.Options
	browser      Browser
	progressCh   chan<- CheckEvent
	log          logger.Logger
	metrics      *metrics.Metrics
	rng          *rand.Rand
	robotsClient *http.Client
	metadata     map[string]string
	adaptivePace bool

	mu      sync.Mutex
	checked int
	failing int
	total   int
}

// Option customises a Checker.
type Option func(*Checker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(c *Checker) { c.log = log }
}

// WithMetrics records scan metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Checker) { c.metrics = m }
}

// WithRand sets the source used for RANDOM link order.
func WithRand(rng *rand.Rand) Option {
	return func(c *Checker) { c.rng = rng }
}

// WithRobotsClient sets the HTTP client used to fetch robots.txt.
func WithRobotsClient(client *http.Client) Option {
	return func(c *Checker) { c.robotsClient = client }
}

// WithRuntimeMetadata adds entries to the result's runtime metadata.
func WithRuntimeMetadata(md map[string]string) Option {
	return func(c *Checker) { maps.Copy(c.metadata, md) }
}

// WithAdaptivePacing lets the rate limit adjust to observed page load times.
func WithAdaptivePacing(enabled bool) Option {
	return func(c *Checker) { c.adaptivePace = enabled }
}

// New creates a Checker for opts driving b.
// The progressCh parameter is optional; pass nil to disable progress events.
func New(opts result.Options, b Browser, progressCh chan<- CheckEvent, optFns ...Option) *Checker {
	c := &Checker{
		opts:         opts,
		browser:      b,
		progressCh:   progressCh,
		log:          logger.NewNop(),
		robotsClient: &http.Client{Timeout: 5 * time.Second},
		metadata:     make(map[string]string),
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Run executes the scan. Link failures are part of the result; an error is
// returned only for invalid options or when no page could be opened.
func (c *Checker) Run(ctx context.Context) (*result.SyntheticResult, error) {
	start := time.Now()

	opts := c.opts
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate options: %w", err)
	}

	scanID := uuid.NewString()
	log := c.log.With(logger.String("scan_id", scanID), logger.String("origin", opts.OriginURI))
	metadata := map[string]string{"scan_id": scanID}

	c.mu.Lock()
	c.checked, c.failing, c.total = 0, 0, 0
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, opts.TotalTimeout())
	defer cancel()

	pool := NewPagePool(c.browser, opts.Concurrency, log)
	defer pool.CloseAll()

	policy := PolicyFromOptions(opts.MaxRetries, opts.RetryDelay())
	nav := NewNavigator(c.browser, opts, policy, NewPacer(opts.RateLimit, c.adaptivePace, 0), log)

	log.Info("scan started",
		logger.Int("link_limit", opts.LinkLimit),
		logger.String("link_order", string(opts.LinkOrder)),
		logger.Int("concurrency", opts.Concurrency))

	var origin result.LinkResult
	var links []result.Link
	err := pool.With(ctx, func(page Page) error {
		origin = nav.FollowLink(ctx, page, result.Link{TargetURI: opts.OriginURI}, opts.OriginURI, true)
		c.record(origin)
		if !origin.LinkPassed {
			return nil
		}

		var extractErr error
		links, extractErr = c.browser.ExtractLinks(ctx, page, opts.QuerySelector, opts.WaitForSelector)
		if extractErr != nil {
			log.Warn("extract links failed", logger.Error(extractErr))
			metadata["extraction_error"] = extractErr.Error()
			links = nil
		}
		return nil
	})
	if err != nil {
		c.metrics.RecordScan(nil, time.Now())
		return nil, fmt.Errorf("load origin: %w", err)
	}

	if !origin.LinkPassed {
		log.Warn("origin failed, skipping link extraction",
			logger.String("error_type", string(origin.ErrorType)),
			logger.String("error", origin.ErrorMessage))
	}

	metadata["extracted_links"] = strconv.Itoa(len(links))
	if opts.RespectRobots && len(links) > 0 {
		links = NewRobotsFilter(c.robotsClient, opts.UserAgent, log).Filter(ctx, links)
		metadata["robots_allowed_links"] = strconv.Itoa(len(links))
	}

	selected := SelectLinks(links, opts.LinkLimit, opts.LinkOrder, c.rng)
	metadata["selected_links"] = strconv.Itoa(len(selected))
	c.mu.Lock()
	c.total = 1 + len(selected)
	c.mu.Unlock()

	followed, err := c.follow(ctx, pool, nav, opts, selected)
	if err != nil {
		c.metrics.RecordScan(nil, time.Now())
		return nil, err
	}

	results := make([]result.LinkResult, 0, 1+len(followed))
	results = append(results, origin)
	results = append(results, followed...)

	report, err := result.Aggregate(opts, results)
	if err != nil {
		return nil, fmt.Errorf("aggregate results: %w", err)
	}

	maps.Copy(metadata, c.metadata)
	res := result.NewSyntheticResult(report, start, metadata)
	c.metrics.RecordScan(&report, res.EndTime)

	log.Info("scan finished",
		logger.Int("link_count", report.LinkCount),
		logger.Int("failing_link_count", report.FailingLinkCount),
		logger.Int("unreachable_count", report.UnreachableCount),
		logger.Duration("elapsed", res.EndTime.Sub(res.StartTime)))

	return &res, nil
}

// follow evaluates the selected links concurrently. Results keep selection
// order. Links that never got a page before the scan deadline are recorded
// as timeouts.
func (c *Checker) follow(ctx context.Context, pool *PagePool, nav *Navigator, opts result.Options, selected []result.Link) ([]result.LinkResult, error) {
	followed := make([]result.LinkResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.Size())
	for i, link := range selected {
		g.Go(func() error {
			page, err := pool.Acquire(gctx)
			if err != nil {
				if ctx.Err() != nil {
					followed[i] = abandoned(link, opts, ctx.Err())
					c.record(followed[i])
					return nil
				}
				return fmt.Errorf("acquire page for %s: %w", link.TargetURI, err)
			}
			defer pool.Release(page)

			followed[i] = nav.FollowLink(gctx, page, link, opts.OriginURI, false)
			c.record(followed[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("follow links: %w", err)
	}
	return followed, nil
}

// abandoned is the result for a link the scan ran out of time to visit.
func abandoned(link result.Link, opts result.Options, cause error) result.LinkResult {
	now := time.Now()
	return result.LinkResult{
		ExpectedStatusCode: opts.ExpectationFor(link.TargetURI),
		SourceURI:          opts.OriginURI,
		TargetURI:          link.TargetURI,
		HTMLElement:        link.HTMLElement,
		AnchorText:         link.AnchorText,
		ErrorType:          result.ClassifyError(cause, nil),
		ErrorMessage:       fmt.Sprintf("scan ended before navigation: %v", cause),
		LinkStartTime:      now,
		LinkEndTime:        now,
		RetriesRemaining:   opts.MaxRetries,
	}
}

func (c *Checker) record(r result.LinkResult) {
	c.metrics.RecordLink(r, c.opts.MaxRetries)

	c.mu.Lock()
	c.checked++
	if !r.LinkPassed {
		c.failing++
	}
	evt := CheckEvent{
		URL:           r.TargetURI,
		Passed:        r.LinkPassed,
		IsOrigin:      r.IsOrigin,
		Error:         r.ErrorMessage,
		ErrorCategory: r.ErrorType,
		Checked:       c.checked,
		Failing:       c.failing,
		Total:         c.total,
	}
	c.mu.Unlock()

	if r.StatusCode != nil {
		evt.StatusCode = *r.StatusCode
	}
	if c.progressCh != nil {
		c.progressCh <- evt
	}
}
