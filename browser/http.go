package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lukemcguire/synthlinks/checker"
	"github.com/lukemcguire/synthlinks/logger"
	"github.com/lukemcguire/synthlinks/result"
)

// DefaultMaxBodyBytes bounds how much of a response body is kept for link
// extraction.
const DefaultMaxBodyBytes = 5 << 20

// errNoDocument is returned when links are requested from a page that holds
// no loaded document.
var errNoDocument = errors.New("no document loaded")

// HTTPConfig configures the HTTP engine.
type HTTPConfig struct {
	Client       *http.Client
	UserAgent    string
	MaxBodyBytes int64
	DedupeLinks  bool
	Logger       logger.Logger
}

// HTTP is a page engine that fetches documents with net/http. It does not
// run JavaScript, so links added by scripts are not seen.
type HTTP struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	dedupe    bool
	log       logger.Logger
}

var _ checker.Browser = (*HTTP)(nil)

// NewHTTP returns an HTTP engine.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = result.DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &HTTP{
		client:    cfg.Client,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		dedupe:    cfg.DedupeLinks,
		log:       cfg.Logger,
	}
}

type httpPage struct {
	mu   sync.Mutex
	url  string
	base *url.URL
	body []byte
}

func (p *httpPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *httpPage) load(current string, base *url.URL, body []byte) {
	p.mu.Lock()
	p.url, p.base, p.body = current, base, body
	p.mu.Unlock()
}

func asHTTPPage(page checker.Page) (*httpPage, error) {
	p, ok := page.(*httpPage)
	if !ok {
		return nil, fmt.Errorf("page %T was not opened by the HTTP engine", page)
	}
	return p, nil
}

// Open returns an empty page.
func (h *HTTP) Open(_ context.Context) (checker.Page, error) {
	return &httpPage{}, nil
}

// Navigate issues a GET for target. Redirects are followed and the final
// status is reported.
func (h *HTTP) Navigate(ctx context.Context, page checker.Page, target string, timeout time.Duration) checker.NavigationResult {
	p, err := asHTTPPage(page)
	if err != nil {
		return checker.Failure(err)
	}
	if target == "about:blank" {
		p.load(target, nil, nil)
		return checker.Failure(checker.ErrNoResponse)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return checker.Failure(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		p.load(target, nil, nil)
		return checker.Failure(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			h.log.Debug("close response body failed", logger.String("url", target), logger.Error(closeErr))
		}
	}()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, h.maxBody))
	if readErr != nil {
		h.log.Debug("read response body failed", logger.String("url", target), logger.Error(readErr))
		body = nil
	}

	final := resp.Request.URL
	current := final.String()
	if parsed, parseErr := url.Parse(target); parseErr == nil && final.Fragment == "" && parsed.Fragment != "" {
		withFragment := *final
		withFragment.Fragment = parsed.Fragment
		current = withFragment.String()
	}
	p.load(current, final, body)

	return checker.Response(resp.StatusCode)
}

// Close drops the page's document.
func (h *HTTP) Close(page checker.Page) error {
	p, err := asHTTPPage(page)
	if err != nil {
		return err
	}
	p.load("", nil, nil)
	return nil
}

// ExtractLinks reads links from the page's last loaded document. waitFor is
// ignored because the document never changes after load.
func (h *HTTP) ExtractLinks(_ context.Context, page checker.Page, sel result.QuerySelector, waitFor string) ([]result.Link, error) {
	p, err := asHTTPPage(page)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	base, body := p.base, p.body
	p.mu.Unlock()
	if base == nil || body == nil {
		return nil, errNoDocument
	}
	if waitFor != "" {
		h.log.Debug("wait_for_selector ignored by http engine", logger.String("selector", waitFor))
	}

	links, err := ExtractLinks(bytes.NewReader(body), base, sel, h.dedupe)
	if err != nil {
		return nil, fmt.Errorf("extract links from %s: %w", base, err)
	}
	return links, nil
}
