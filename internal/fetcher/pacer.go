package fetcher

import (
	"math/rand"
	"sync"
	"time"
)

// Pacer enforces per-domain spacing between requests. The gap between two
// requests to the same host is drawn uniformly from [minDelay, maxDelay] so
// the interval never settles into a fixed, detectable rhythm.
type Pacer struct {
	minDelay time.Duration
	maxDelay time.Duration

	mu   sync.Mutex
	last map[string]time.Time

	now    func() time.Time
	sleep  func(time.Duration)
	jitter func() float64
}

// NewPacer builds a Pacer with the given delay window.
func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
		last:     make(map[string]time.Time),
		now:      time.Now,
		sleep:    time.Sleep,
		jitter:   rand.Float64,
	}
}

// Wait blocks until enough time has passed since the last request to host.
// The first request to a host proceeds immediately.
func (p *Pacer) Wait(host string) {
	if host == "" {
		return
	}
	p.mu.Lock()
	last, ok := p.last[host]
	p.mu.Unlock()
	if !ok {
		return
	}

	target := p.minDelay + time.Duration(p.jitter()*float64(p.maxDelay-p.minDelay))
	elapsed := p.now().Sub(last)
	if elapsed < target {
		p.sleep(target - elapsed)
	}
}

// Touch records that a request to host was just issued.
func (p *Pacer) Touch(host string) {
	if host == "" {
		return
	}
	p.mu.Lock()
	p.last[host] = p.now()
	p.mu.Unlock()
}
