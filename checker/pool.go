package checker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/lukemcguire/synthlinks/logger"
)

// PagePool bounds how many pages are in use at once and reuses idle pages
// between navigations.
type PagePool struct {
	ctrl PageController
	sem  *semaphore.Weighted
	size int
	log  logger.Logger

	mu     sync.Mutex
	idle   []Page
	opened []Page
}

// NewPagePool returns a pool holding at most size pages. size < 1 is treated as 1.
func NewPagePool(ctrl PageController, size int, log logger.Logger) *PagePool {
	size = max(size, 1)
	if log == nil {
		log = logger.NewNop()
	}
	return &PagePool{
		ctrl: ctrl,
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
		log:  log,
	}
}

// Size is the maximum number of pages the pool hands out at once.
func (p *PagePool) Size() int {
	return p.size
}

// Acquire blocks until a slot is free, then hands out an idle page or opens
// a new one. Every successful Acquire must be paired with Release.
func (p *PagePool) Acquire(ctx context.Context) (Page, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for page slot: %w", err)
	}

	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		page := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return page, nil
	}
	p.mu.Unlock()

	page, err := p.ctrl.Open(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("open page: %w", err)
	}

	p.mu.Lock()
	p.opened = append(p.opened, page)
	p.mu.Unlock()

	return page, nil
}

// Release returns page to the pool and frees its slot.
func (p *PagePool) Release(page Page) {
	p.mu.Lock()
	p.idle = append(p.idle, page)
	p.mu.Unlock()
	p.sem.Release(1)
}

// With runs fn with a page from the pool and always returns the page.
func (p *PagePool) With(ctx context.Context, fn func(Page) error) error {
	page, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(page)
	return fn(page)
}

// CloseAll closes every page the pool has opened. Close failures are logged
// and do not stop the remaining pages from being closed.
func (p *PagePool) CloseAll() {
	p.mu.Lock()
	pages := p.opened
	p.opened = nil
	p.idle = nil
	p.mu.Unlock()

	for _, page := range pages {
		if err := p.ctrl.Close(page); err != nil {
			p.log.Warn("close page failed", logger.String("url", page.URL()), logger.Error(err))
		}
	}
}
