package checker

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukemcguire/synthlinks/metrics"
	"github.com/lukemcguire/synthlinks/result"
)

func scenarioOptions() result.Options {
	return result.Options{
		OriginURI:  "https://site/",
		LinkLimit:  4,
		MaxRetries: 2,
	}
}

func TestCheckerRun_Scenario(t *testing.T) {
	fb := newFakeBrowser().
		on("https://site/", Response(200)).
		on("https://site/ok", Response(200)).
		on("https://site/missing", Response(404)).
		on("https://down.example/", Failure(errRefused))
	fb.links = links("https://site/ok", "https://site/missing", "https://down.example/", "https://site/never")

	events := make(chan CheckEvent, 16)
	m := metrics.New()
	c := New(scenarioOptions(), fb, events, WithMetrics(m), WithRuntimeMetadata(map[string]string{"engine": "fake"}))

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	close(events)

	report := res.BrokenLinksResult
	assert.Equal(t, result.Stats{
		LinkCount:        4,
		PassingLinkCount: 2,
		FailingLinkCount: 2,
		UnreachableCount: 1,
		Status2xxCount:   2,
		Status4xxCount:   1,
	}, report.Stats)

	require.NotNil(t, report.OriginLinkResult)
	assert.True(t, report.OriginLinkResult.IsOrigin)
	assert.Equal(t, []string{"https://site/ok", "https://site/missing", "https://down.example/"},
		func() []string {
			var out []string
			for _, r := range report.FollowedLinkResults {
				out = append(out, r.TargetURI)
			}
			return out
		}())

	down := report.FollowedLinkResults[2]
	assert.Nil(t, down.StatusCode)
	assert.Equal(t, 0, down.RetriesRemaining)
	assert.Equal(t, result.CategoryConnectionRefused, down.ErrorType)
	assert.Equal(t, 3, fb.navigations("https://down.example/"))
	assert.Equal(t, 0, fb.navigations("https://site/never"), "link_limit counts the origin")

	assert.Equal(t, "fake", res.RuntimeMetadata["engine"])
	assert.NotEmpty(t, res.RuntimeMetadata["scan_id"])
	assert.Equal(t, "4", res.RuntimeMetadata["extracted_links"])
	assert.Equal(t, "3", res.RuntimeMetadata["selected_links"])
	assert.False(t, res.EndTime.Before(res.StartTime))

	var got []CheckEvent
	for evt := range events {
		got = append(got, evt)
	}
	require.Len(t, got, 4)
	assert.True(t, got[0].IsOrigin)
	assert.Equal(t, 4, got[3].Checked)
	assert.Equal(t, 2, got[3].Failing)
	assert.Equal(t, 4, got[3].Total)

	assert.Equal(t, len(fb.pages), fb.closed, "every opened page is closed")
	assert.InDelta(t, 1, testutil.ToFloat64(m.Scans.WithLabelValues("failed")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.NavigationRetries), 0)
}

func TestCheckerRun_OriginFailureSkipsExtraction(t *testing.T) {
	fb := newFakeBrowser().on("https://site/", Response(500))
	fb.links = links("https://site/a")

	res, err := New(scenarioOptions(), fb, nil).Run(context.Background())
	require.NoError(t, err)

	report := res.BrokenLinksResult
	assert.Equal(t, 1, report.LinkCount)
	assert.Equal(t, 1, report.FailingLinkCount)
	assert.Equal(t, 1, report.Status5xxCount)
	assert.Empty(t, report.FollowedLinkResults)
	assert.Equal(t, 0, fb.extracted)
	assert.False(t, report.Passed())
}

func TestCheckerRun_ExtractionErrorIsRecorded(t *testing.T) {
	fb := newFakeBrowser()
	fb.extractErr = errors.New("selector never appeared")

	res, err := New(scenarioOptions(), fb, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.BrokenLinksResult.LinkCount)
	assert.Equal(t, "selector never appeared", res.RuntimeMetadata["extraction_error"])
	assert.True(t, res.BrokenLinksResult.Passed())
}

func TestCheckerRun_OpenFailureAborts(t *testing.T) {
	fb := newFakeBrowser()
	fb.openErr = errors.New("browser not installed")
	m := metrics.New()

	res, err := New(scenarioOptions(), fb, nil, WithMetrics(m)).Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, fb.openErr)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Scans.WithLabelValues("error")), 0)
}

func TestCheckerRun_InvalidOptions(t *testing.T) {
	_, err := New(result.Options{OriginURI: "ftp://site/"}, newFakeBrowser(), nil).Run(context.Background())

	require.Error(t, err)
	var vErr *result.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestCheckerRun_RespectsConcurrency(t *testing.T) {
	fb := newFakeBrowser()
	fb.delay = 5 * time.Millisecond
	var targetsList []string
	for i := range 12 {
		targetsList = append(targetsList, "https://site/p"+string(rune('a'+i)))
	}
	fb.links = links(targetsList...)

	opts := scenarioOptions()
	opts.LinkLimit = 20
	opts.Concurrency = 3

	res, err := New(opts, fb, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 13, res.BrokenLinksResult.LinkCount)
	assert.LessOrEqual(t, fb.maxFlight, 3)
	assert.LessOrEqual(t, len(fb.pages), 3)
}

func TestCheckerRun_TotalTimeoutMarksLinksFailed(t *testing.T) {
	fb := newFakeBrowser()
	fb.links = links("https://site/slow1", "https://site/slow2", "https://site/slow3")

	opts := scenarioOptions()
	opts.MaxRetries = 0
	opts.Concurrency = 1
	opts.TotalSyntheticTimeoutMillis = 100
	// Origin loads instantly; followed links are slower than the whole scan.
	c := New(opts, &slowAfterOrigin{fakeBrowser: fb, origin: opts.OriginURI, delay: time.Second}, nil)

	start := time.Now()
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 3*time.Second)
	report := res.BrokenLinksResult
	assert.Equal(t, 4, report.LinkCount)
	assert.Equal(t, 3, report.FailingLinkCount)
	for _, r := range report.FollowedLinkResults {
		assert.Equal(t, result.CategoryTimeout, r.ErrorType, r.TargetURI)
		assert.Nil(t, r.StatusCode)
	}
}

type slowAfterOrigin struct {
	*fakeBrowser
	origin string
	delay  time.Duration
}

func (s *slowAfterOrigin) Navigate(ctx context.Context, page Page, url string, timeout time.Duration) NavigationResult {
	if url != s.origin {
		select {
		case <-ctx.Done():
			return Failure(ctx.Err())
		case <-time.After(s.delay):
		}
	}
	return s.fakeBrowser.Navigate(ctx, page, url, timeout)
}

func TestCheckerRun_RandomOrderUsesRand(t *testing.T) {
	all := []string{"https://site/1", "https://site/2", "https://site/3", "https://site/4", "https://site/5"}
	run := func(seed uint64) []string {
		fb := newFakeBrowser()
		fb.links = links(all...)
		opts := scenarioOptions()
		opts.LinkOrder = result.LinkOrderRandom
		opts.LinkLimit = 3
		opts.Concurrency = 1

		res, err := New(opts, fb, nil, WithRand(rand.New(rand.NewPCG(seed, seed)))).Run(context.Background())
		require.NoError(t, err)
		var out []string
		for _, r := range res.BrokenLinksResult.FollowedLinkResults {
			out = append(out, r.TargetURI)
		}
		return out
	}

	first := run(99)
	assert.Len(t, first, 2)
	assert.Equal(t, first, run(99), "same seed selects the same links")
}

func TestCheckerRun_RespectRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fb := newFakeBrowser()
	fb.links = links(srv.URL+"/private/a", srv.URL+"/public", srv.URL+"/private/b")
	opts := result.Options{OriginURI: srv.URL + "/", RespectRobots: true}

	res, err := New(opts, fb, nil, WithRobotsClient(srv.Client())).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.BrokenLinksResult.FollowedLinkResults, 1)
	assert.Equal(t, srv.URL+"/public", res.BrokenLinksResult.FollowedLinkResults[0].TargetURI)
	assert.Equal(t, "1", res.RuntimeMetadata["robots_allowed_links"])
}

func TestCheckerRun_ResetsCountersBetweenRuns(t *testing.T) {
	fb := newFakeBrowser()
	fb.links = links("https://site/a")
	events := make(chan CheckEvent, 8)
	c := New(scenarioOptions(), fb, events)

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	_, err = c.Run(context.Background())
	require.NoError(t, err)
	close(events)

	var last CheckEvent
	for evt := range events {
		last = evt
	}
	assert.Equal(t, 2, last.Checked)
}
