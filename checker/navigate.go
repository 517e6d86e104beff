package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/lukemcguire/synthlinks/logger"
	"github.com/lukemcguire/synthlinks/result"
	"github.com/lukemcguire/synthlinks/status"
	"github.com/lukemcguire/synthlinks/urlutil"
)

const blankPage = "about:blank"

// Navigator evaluates single links: it navigates, classifies the response
// against the expectation for the target and retries failed attempts.
type Navigator struct {
	ctrl   PageController
	opts   result.Options
	policy RetryPolicy
	pacer  *Pacer
	log    logger.Logger
	now    func() time.Time
}

// NewNavigator returns a Navigator. pacer and log may be nil.
func NewNavigator(ctrl PageController, opts result.Options, policy RetryPolicy, pacer *Pacer, log logger.Logger) *Navigator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Navigator{
		ctrl:   ctrl,
		opts:   opts,
		policy: policy,
		pacer:  pacer,
		log:    log,
		now:    time.Now,
	}
}

type attempt struct {
	nav   NavigationResult
	start time.Time
	end   time.Time
}

// FollowLink navigates page to link and returns its terminal result. It
// never fails: navigation errors are recorded in the result.
func (n *Navigator) FollowLink(ctx context.Context, page Page, link result.Link, sourceURI string, isOrigin bool) result.LinkResult {
	target := link.TargetURI
	expected := n.opts.ExpectationFor(target)
	timeout := n.opts.TimeoutFor(target)
	retriesRemaining := n.policy.MaxRetries
	log := n.log.With(logger.String("target", target))

	var last attempt
	for try := 0; ; try++ {
		if try > 0 {
			if err := n.policy.Wait(ctx, try); err != nil {
				log.Debug("retry abandoned", logger.Error(err))
				break
			}
			retriesRemaining--
		}

		last = n.navigate(ctx, page, target, timeout, log)
		if passed(expected, last.nav) || retriesRemaining == 0 || ctx.Err() != nil {
			break
		}
		log.Debug("navigation attempt failed, retrying",
			logger.Int("retries_remaining", retriesRemaining-1),
			logger.String("outcome", describe(last.nav, expected)))
	}

	r := result.LinkResult{
		LinkPassed:         passed(expected, last.nav),
		ExpectedStatusCode: expected,
		SourceURI:          sourceURI,
		TargetURI:          target,
		HTMLElement:        link.HTMLElement,
		AnchorText:         link.AnchorText,
		LinkStartTime:      last.start,
		LinkEndTime:        last.end,
		IsOrigin:           isOrigin,
		RetriesRemaining:   retriesRemaining,
	}
	if last.nav.HasResponse() {
		code := last.nav.StatusCode
		r.StatusCode = &code
	}
	if !r.LinkPassed {
		r.ErrorType = result.ClassifyError(last.nav.Err, r.StatusCode)
		r.ErrorMessage = describe(last.nav, expected)
	}
	return r
}

// navigate performs one attempt, clearing the page first when the browser
// would otherwise treat the move as an in-document fragment jump.
func (n *Navigator) navigate(ctx context.Context, page Page, target string, timeout time.Duration, log logger.Logger) attempt {
	if urlutil.IsFragmentNavigation(page.URL(), target) {
		blank := n.ctrl.Navigate(ctx, page, blankPage, timeout)
		log.Debug("reset page before fragment navigation",
			logger.String("from", page.URL()), logger.String("reset", blank.Kind.String()))
	}

	if err := n.pacer.Wait(ctx); err != nil {
		now := n.now()
		return attempt{nav: Failure(fmt.Errorf("wait for rate limiter: %w", err)), start: now, end: now}
	}

	start := n.now()
	nav := n.ctrl.Navigate(ctx, page, target, timeout)
	end := n.now()
	n.pacer.ObserveRTT(end.Sub(start))

	return attempt{nav: nav, start: start, end: end}
}

func passed(expected status.Expectation, nav NavigationResult) bool {
	return nav.HasResponse() && status.IsPassing(expected, nav.StatusCode)
}

func describe(nav NavigationResult, expected status.Expectation) string {
	if nav.HasResponse() {
		return fmt.Sprintf("status %d does not match %s", nav.StatusCode, expected)
	}
	if nav.Err == nil {
		return ErrNoResponse.Error()
	}
	return nav.Err.Error()
}
