package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/lukemcguire/synthlinks/logger"
	"github.com/lukemcguire/synthlinks/result"
)

// maxRobotsBytes bounds how much of a robots.txt body is read.
const maxRobotsBytes = 512 << 10

// RobotsFilter drops links disallowed by their host's robots.txt. Any
// failure to fetch or parse robots.txt allows the link.
type RobotsFilter struct {
	client    *http.Client
	userAgent string
	log       logger.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData // nil entry allows everything
}

// NewRobotsFilter returns a filter fetching robots.txt with client.
func NewRobotsFilter(client *http.Client, userAgent string, log logger.Logger) *RobotsFilter {
	if log == nil {
		log = logger.NewNop()
	}
	return &RobotsFilter{
		client:    client,
		userAgent: userAgent,
		log:       log,
		hosts:     make(map[string]*robotstxt.RobotsData),
	}
}

// Filter returns the allowed links in their original order.
func (r *RobotsFilter) Filter(ctx context.Context, links []result.Link) []result.Link {
	allowed := make([]result.Link, 0, len(links))
	for _, link := range links {
		ok, err := r.Allowed(ctx, link.TargetURI)
		if err != nil {
			r.log.Debug("robots.txt unavailable, allowing link",
				logger.String("target", link.TargetURI), logger.Error(err))
		}
		if !ok {
			r.log.Debug("link disallowed by robots.txt", logger.String("target", link.TargetURI))
			continue
		}
		allowed = append(allowed, link)
	}
	return allowed
}

// Allowed reports whether rawURL may be visited. Errors are returned for
// logging only; the answer is then true.
func (r *RobotsFilter) Allowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return true, nil
	}

	key := parsed.Scheme + "://" + parsed.Host
	r.mu.Lock()
	data, cached := r.hosts[key]
	r.mu.Unlock()

	if !cached {
		data, err = r.fetch(ctx, key)
		r.mu.Lock()
		r.hosts[key] = data
		r.mu.Unlock()
		if err != nil {
			return true, err
		}
	}
	if data == nil {
		return true, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.userAgent), nil
}

func (r *RobotsFilter) fetch(ctx context.Context, hostURL string) (*robotstxt.RobotsData, error) {
	robotsURL := hostURL + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create robots.txt request for %s: %w", hostURL, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt for %s: %w", hostURL, err)
	}
	defer resp.Body.Close()

	// 404 and 5xx allow everything.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt body for %s: %w", hostURL, err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt for %s: %w", hostURL, err)
	}
	return data, nil
}
