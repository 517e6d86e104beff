package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/lukemcguire/synthlinks/checker"
	"github.com/lukemcguire/synthlinks/logger"
	"github.com/lukemcguire/synthlinks/result"
)

// defaultWaitForTimeout bounds how long extraction waits for wait_for_selector
// when the context carries no deadline.
const defaultWaitForTimeout = 30 * time.Second

// PlaywrightConfig configures the Playwright engine.
type PlaywrightConfig struct {
	UserAgent   string
	Headless    bool
	DedupeLinks bool
	Logger      logger.Logger
}

// Playwright drives headless Chromium through playwright-go. Every page gets
// its own browser context, so no cache or cookies are shared between links.
type Playwright struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	userAgent string
	dedupe    bool
	log       logger.Logger
}

var _ checker.Browser = (*Playwright)(nil)

// NewPlaywright starts the Playwright driver and launches Chromium. Browsers
// must already be installed. Call Stop when done.
func NewPlaywright(cfg PlaywrightConfig) (*Playwright, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = result.DefaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			cfg.Logger.Warn("stop playwright failed", logger.Error(stopErr))
		}
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &Playwright{
		pw:        pw,
		browser:   b,
		userAgent: cfg.UserAgent,
		dedupe:    cfg.DedupeLinks,
		log:       cfg.Logger,
	}, nil
}

// Stop closes the browser and the driver.
func (p *Playwright) Stop() error {
	var errs []error
	if err := p.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := p.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

// Version reports the browser version for runtime metadata.
func (p *Playwright) Version() string {
	return p.browser.Version()
}

type playwrightPage struct {
	bctx playwright.BrowserContext
	page playwright.Page
}

func (pp *playwrightPage) URL() string {
	return pp.page.URL()
}

func asPlaywrightPage(page checker.Page) (*playwrightPage, error) {
	pp, ok := page.(*playwrightPage)
	if !ok {
		return nil, fmt.Errorf("page %T was not opened by the playwright engine", page)
	}
	return pp, nil
}

// Open creates a fresh browser context with caching disabled and one page in it.
func (p *Playwright) Open(ctx context.Context) (checker.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bctx, err := p.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:        playwright.String(p.userAgent),
		ExtraHttpHeaders: map[string]string{"Cache-Control": "no-cache"},
	})
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		if closeErr := bctx.Close(); closeErr != nil {
			p.log.Warn("close browser context failed", logger.Error(closeErr))
		}
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &playwrightPage{bctx: bctx, page: page}, nil
}

// Navigate loads target and reports the main document response.
func (p *Playwright) Navigate(ctx context.Context, page checker.Page, target string, timeout time.Duration) checker.NavigationResult {
	pp, err := asPlaywrightPage(page)
	if err != nil {
		return checker.Failure(err)
	}

	timeout, err = clampTimeout(ctx, timeout)
	if err != nil {
		return checker.Failure(err)
	}

	resp, err := pp.page.Goto(target, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return checker.Failure(navigationError(err))
	}
	if resp == nil {
		return checker.Failure(checker.ErrNoResponse)
	}
	return checker.Response(resp.Status())
}

// Close closes the page and its browser context.
func (p *Playwright) Close(page checker.Page) error {
	pp, err := asPlaywrightPage(page)
	if err != nil {
		return err
	}

	var errs []error
	if err := pp.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := pp.bctx.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser context: %w", err))
	}
	return errors.Join(errs...)
}

// ExtractLinks waits for waitFor when set, then reads links from the
// rendered DOM.
func (p *Playwright) ExtractLinks(ctx context.Context, page checker.Page, sel result.QuerySelector, waitFor string) ([]result.Link, error) {
	pp, err := asPlaywrightPage(page)
	if err != nil {
		return nil, err
	}

	if waitFor != "" {
		timeout := defaultWaitForTimeout
		if timeout, err = clampTimeout(ctx, timeout); err != nil {
			return nil, err
		}
		err = pp.page.Locator(waitFor).First().WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
		})
		if err != nil {
			return nil, fmt.Errorf("wait for selector %q: %w", waitFor, navigationError(err))
		}
	}

	content, err := pp.page.Content()
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}
	base, err := url.Parse(pp.page.URL())
	if err != nil {
		return nil, fmt.Errorf("parse page URL: %w", err)
	}

	links, err := ExtractLinks(strings.NewReader(content), base, sel, p.dedupe)
	if err != nil {
		return nil, fmt.Errorf("extract links from %s: %w", base, err)
	}
	return links, nil
}

// clampTimeout shortens timeout to the time left before ctx's deadline.
// playwright-go calls are not context aware, so the deadline is enforced
// through the per-call timeout.
func clampTimeout(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		timeout = min(timeout, left)
	}
	return max(timeout, time.Millisecond), nil
}

// navigationError marks playwright timeouts as deadline errors so they
// classify as timeouts.
func navigationError(err error) error {
	if errors.Is(err, playwright.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}
