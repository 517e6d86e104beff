package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lukemcguire/synthlinks/result"
)

// ErrNoResponse is returned by a PageController when navigation completed
// without yielding an HTTP response.
var ErrNoResponse = errors.New("navigation produced no response")

// Page is one open page handed out by the pool.
type Page interface {
	// URL is the address currently loaded, or "" before the first navigation.
	URL() string
}

// PageController drives pages in a browser or browser-like engine.
type PageController interface {
	Open(ctx context.Context) (Page, error)
	// Navigate loads url within timeout. Failures are reported in the
	// result, never as a panic or a separate error.
	Navigate(ctx context.Context, page Page, url string, timeout time.Duration) NavigationResult
	Close(page Page) error
}

// LinkExtractor reads candidate links from the page currently loaded.
type LinkExtractor interface {
	ExtractLinks(ctx context.Context, page Page, sel result.QuerySelector, waitFor string) ([]result.Link, error)
}

// Browser is everything a scan needs from an engine.
type Browser interface {
	PageController
	LinkExtractor
}

// Kind tags a NavigationResult.
type Kind int

const (
	// KindResponse means an HTTP response was received.
	KindResponse Kind = iota + 1
	// KindFailure means no response was received.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindFailure:
		return "failure"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// NavigationResult is the outcome of one navigation attempt. Exactly one of
// StatusCode and Err is meaningful, selected by Kind.
type NavigationResult struct {
	Kind       Kind
	StatusCode int
	Err        error
}

// Response builds a result for a received HTTP response.
func Response(code int) NavigationResult {
	return NavigationResult{Kind: KindResponse, StatusCode: code}
}

// Failure builds a result for a navigation that produced no response. A nil
// err is replaced with ErrNoResponse.
func Failure(err error) NavigationResult {
	if err == nil {
		err = ErrNoResponse
	}
	return NavigationResult{Kind: KindFailure, Err: err}
}

// HasResponse reports whether a response was received.
func (n NavigationResult) HasResponse() bool {
	return n.Kind == KindResponse
}
