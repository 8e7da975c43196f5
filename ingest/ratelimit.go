package ingest

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// perSourceLimiter grants each distinct source IP its own token bucket so
// one noisy or spoofed source can't starve the rest of the listener's
// allowance. Grounded on the teacher's keyed map[string]*rate.Limiter
// idiom (api.RateLimiter); unlike that login/API tiering, ingest has only
// one tier so no per-tier prefixing is needed.
type perSourceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*sourceEntry
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
}

type sourceEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newPerSourceLimiter(r rate.Limit, burst int) *perSourceLimiter {
	return &perSourceLimiter{
		limiters: make(map[string]*sourceEntry),
		rate:     r,
		burst:    burst,
		idleTTL:  5 * time.Minute,
	}
}

// Allow reports whether a datagram from source should be admitted,
// creating that source's bucket on first sight.
func (p *perSourceLimiter) Allow(source string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.limiters[source]
	if !ok {
		entry = &sourceEntry{limiter: rate.NewLimiter(p.rate, p.burst)}
		p.limiters[source] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// EvictIdle drops buckets for sources that haven't sent a datagram within
// the idle TTL, so a long-running listener doesn't accumulate one entry
// per source it has ever seen.
func (p *perSourceLimiter) EvictIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.idleTTL)
	for source, entry := range p.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(p.limiters, source)
		}
	}
}
