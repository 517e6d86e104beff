package checker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lukemcguire/synthlinks/result"
)

type fakePage struct {
	id  int
	mu  sync.Mutex
	url string
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) setURL(u string) {
	p.mu.Lock()
	p.url = u
	p.mu.Unlock()
}

// fakeBrowser replays scripted navigation results per URL. The last scripted
// result repeats; unscripted URLs answer 200.
type fakeBrowser struct {
	mu         sync.Mutex
	script     map[string][]NavigationResult
	links      []result.Link
	extractErr error
	openErr    error
	closeErr   error
	delay      time.Duration

	pages     []*fakePage
	closed    int
	calls     []string
	extracted int
	inFlight  int
	maxFlight int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{script: make(map[string][]NavigationResult)}
}

func (f *fakeBrowser) on(url string, results ...NavigationResult) *fakeBrowser {
	f.script[url] = results
	return f
}

func (f *fakeBrowser) Open(_ context.Context) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	p := &fakePage{id: len(f.pages)}
	f.pages = append(f.pages, p)
	return p, nil
}

func (f *fakeBrowser) Navigate(ctx context.Context, page Page, url string, _ time.Duration) NavigationResult {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.inFlight++
	f.maxFlight = max(f.maxFlight, f.inFlight)
	var res NavigationResult
	if scripted := f.script[url]; len(scripted) > 0 {
		res = scripted[0]
		if len(scripted) > 1 {
			f.script[url] = scripted[1:]
		}
	} else {
		res = Response(200)
	}
	delay := f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 && url != blankPage {
		select {
		case <-ctx.Done():
			return Failure(ctx.Err())
		case <-time.After(delay):
		}
	}

	page.(*fakePage).setURL(url)
	return res
}

func (f *fakeBrowser) Close(page Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func (f *fakeBrowser) ExtractLinks(_ context.Context, _ Page, _ result.QuerySelector, _ string) ([]result.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracted++
	return f.links, f.extractErr
}

func (f *fakeBrowser) navigations(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

func (f *fakeBrowser) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var errRefused = errors.New("net::ERR_CONNECTION_REFUSED at https://down.example/")

func links(targets ...string) []result.Link {
	out := make([]result.Link, 0, len(targets))
	for _, t := range targets {
		out = append(out, result.Link{TargetURI: t, AnchorText: "link to " + t, HTMLElement: "a"})
	}
	return out
}
