package checker

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// minPaceRate is the slowest the pacer will go, in navigations per second.
	minPaceRate = 1.0

	// maxPaceRate is the fastest the pacer will go.
	maxPaceRate = 100.0

	// rttAlpha is the EMA smoothing factor for observed navigation times.
	rttAlpha = 0.2

	// speedupFactor is applied per observation faster than the target.
	speedupFactor = 1.1

	// maxSlowdown bounds how far one slow observation can cut the rate.
	maxSlowdown = 0.5

	// DefaultTargetRTT is the navigation time the adaptive pacer aims for.
	DefaultTargetRTT = 2 * time.Second
)

// Pacer limits how often navigations start. In adaptive mode it slows down
// when pages take longer than the target to load and recovers gradually
// when they are fast. A nil *Pacer never waits.
type Pacer struct {
	limiter   *rate.Limiter
	targetRTT time.Duration
	adaptive  bool

	mu     sync.Mutex
	emaRTT time.Duration
	rps    float64
}

// NewPacer returns a pacer starting at rps navigations per second, or nil
// when rps is not positive.
func NewPacer(rps int, adaptive bool, targetRTT time.Duration) *Pacer {
	if rps <= 0 {
		return nil
	}
	if targetRTT <= 0 {
		targetRTT = DefaultTargetRTT
	}
	start := clampRate(float64(rps))

	return &Pacer{
		limiter:   rate.NewLimiter(rate.Limit(start), int(math.Ceil(start))),
		targetRTT: targetRTT,
		adaptive:  adaptive,
		emaRTT:    targetRTT,
		rps:       start,
	}
}

// Wait blocks until the next navigation may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// ObserveRTT records how long a navigation took. Fixed-rate pacers ignore it.
func (p *Pacer) ObserveRTT(rtt time.Duration) {
	if p == nil || !p.adaptive || rtt <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.emaRTT = time.Duration(rttAlpha*float64(rtt) + (1-rttAlpha)*float64(p.emaRTT))
	ratio := float64(p.targetRTT) / float64(p.emaRTT)

	next := p.rps * speedupFactor
	if ratio < 1 {
		next = max(p.rps*ratio, p.rps*maxSlowdown)
	}
	next = clampRate(next)

	if math.Abs(next-p.rps) > 0.1 {
		p.rps = next
		p.limiter.SetLimit(rate.Limit(next))
		p.limiter.SetBurst(int(math.Ceil(next)))
	}
}

// Rate returns the current rate in navigations per second.
func (p *Pacer) Rate() float64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rps
}

// EMA returns the smoothed navigation time.
func (p *Pacer) EMA() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.emaRTT
}

func clampRate(rps float64) float64 {
	return min(max(rps, minPaceRate), maxPaceRate)
}
