// Package detect implements the per-source-IP scan-state engine: Fast
// Scan and Slow Scan detection over a sharded, mutex-protected map.
package detect

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"idsrs/core"
	"idsrs/metrics"
)

// shardCount is a fixed power of two so the FNV hash can be masked
// instead of reduced with modulo. 32 shards keeps per-shard lock
// contention low without the bookkeeping of a lock-free map.
const shardCount = 32

// Config carries the tunables of both scan detectors plus cooldown and
// entry retention, exactly the fields spec.md assigns to the Detector.
type Config struct {
	FastThreshold int
	FastWindow    time.Duration
	SlowThreshold int
	SlowWindow    time.Duration
	AlertCooldown time.Duration
	MaxEntryAge   time.Duration
}

// sourceState is the PerSourceState record, guarded by its own mutex so
// unrelated sources never contend on the same lock.
type sourceState struct {
	mu          sync.Mutex
	ports       map[int]time.Time
	lastAlertAt time.Time
	lastTouchAt time.Time
}

type shard struct {
	mu      sync.Mutex
	sources map[string]*sourceState
}

// Detector tracks per-source port-touch history and emits Alerts when a
// source crosses the fast or slow scan threshold.
type Detector struct {
	cfg    Config
	shards [shardCount]*shard
	clock  core.Clock
}

// New builds a Detector. clock may be core.RealClock{} in production or
// a *core.FakeClock in tests.
func New(cfg Config, clock core.Clock) *Detector {
	d := &Detector{cfg: cfg, clock: clock}
	for i := range d.shards {
		d.shards[i] = &shard{sources: make(map[string]*sourceState)}
	}
	return d
}

func (d *Detector) shardFor(sourceIP string) *shard {
	h := fnv.New32a()
	h.Write([]byte(sourceIP))
	return d.shards[h.Sum32()&(shardCount-1)]
}

// getOrCreate returns the source's state, creating it under the shard
// lock if absent. This is the "atomic get-or-create per key" step.
func (s *shard) getOrCreate(sourceIP string) *sourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sources[sourceIP]
	if !ok {
		st = &sourceState{ports: make(map[int]time.Time)}
		s.sources[sourceIP] = st
	}
	return st
}

// Observe records e against its source's state and returns any alerts
// the observation triggers. The critical section covering the port set,
// cooldown check, and last-touch update never suspends.
func (d *Detector) Observe(e *core.Event) []core.Alert {
	start := time.Now()
	defer func() {
		metrics.ObserveDuration.Observe(time.Since(start).Seconds())
	}()

	if !e.Admissible() {
		metrics.EventsDiscarded.WithLabelValues("not_admissible").Inc()
		return nil
	}

	now := e.ReceivedAt
	if now.IsZero() {
		now = d.clock.Now()
	}

	st := d.shardFor(e.SourceIP).getOrCreate(e.SourceIP)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.ports[e.DestPort] = now
	st.lastTouchAt = now
	d.pruneLocked(st, now)

	fastCount := countWithin(st.ports, now, d.cfg.FastWindow)
	slowCount := countWithin(st.ports, now, d.cfg.SlowWindow)

	if !st.lastAlertAt.IsZero() && now.Sub(st.lastAlertAt) < d.cfg.AlertCooldown {
		return nil
	}

	var kind core.AlertKind
	var count int
	var window time.Duration
	switch {
	case fastCount > d.cfg.FastThreshold:
		kind, count, window = core.FastScan, fastCount, d.cfg.FastWindow
	case slowCount > d.cfg.SlowThreshold:
		kind, count, window = core.SlowScan, slowCount, d.cfg.SlowWindow
	default:
		return nil
	}

	st.lastAlertAt = now
	alert := core.Alert{
		ID:              core.NewAlertID(),
		Kind:            kind,
		SourceIP:        e.SourceIP,
		UniquePortCount: count,
		PortsSample:     portsWithin(st.ports, now, window),
		DetectedAt:      now,
	}
	metrics.AlertsEmitted.WithLabelValues(string(kind)).Inc()
	return []core.Alert{alert}
}

// pruneLocked drops observations older than the widest configured
// window. Optional per spec.md, required here for bounded memory; it
// never changes the outcome of the threshold checks since both checks
// only consider observations within their own (narrower or equal)
// window.
func (d *Detector) pruneLocked(st *sourceState, now time.Time) {
	maxWindow := d.cfg.FastWindow
	if d.cfg.SlowWindow > maxWindow {
		maxWindow = d.cfg.SlowWindow
	}
	cutoff := now.Add(-maxWindow)
	for port, ts := range st.ports {
		if !ts.After(cutoff) {
			delete(st.ports, port)
		}
	}
}

func countWithin(ports map[int]time.Time, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, ts := range ports {
		if ts.After(cutoff) && !ts.After(now) {
			n++
		}
	}
	return n
}

func portsWithin(ports map[int]time.Time, now time.Time, window time.Duration) []int {
	cutoff := now.Add(-window)
	out := make([]int, 0, len(ports))
	for port, ts := range ports {
		if ts.After(cutoff) && !ts.After(now) {
			out = append(out, port)
		}
	}
	sort.Ints(out)
	return out
}

// Cleanup removes every source whose last touch predates now by more
// than MaxEntryAge. Safe to run concurrently with Observe on unrelated
// or even the same key: removal happens under the owning shard lock.
func (d *Detector) Cleanup(now time.Time) int {
	removed := 0
	cutoff := now.Add(-d.cfg.MaxEntryAge)
	for _, s := range d.shards {
		s.mu.Lock()
		for ip, st := range s.sources {
			st.mu.Lock()
			stale := st.lastTouchAt.Before(cutoff)
			st.mu.Unlock()
			if stale {
				delete(s.sources, ip)
				removed++
			}
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		metrics.CleanupRemoved.Add(float64(removed))
	}
	return removed
}

// RunCleanup drives Cleanup on a ticker until ctx is canceled. It is the
// Cleanup scheduler component: a single independently progressing task
// that never blocks the listener.
func (d *Detector) RunCleanup(ctx context.Context, interval time.Duration, onCleanup func(removed, tracked int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := d.Cleanup(d.clock.Now())
			if onCleanup != nil {
				onCleanup(removed, d.TrackedSources())
			}
		}
	}
}

// TrackedSources returns the number of sources currently held in state,
// for display/log_stats parity.
func (d *Detector) TrackedSources() int {
	total := 0
	for _, s := range d.shards {
		s.mu.Lock()
		total += len(s.sources)
		s.mu.Unlock()
	}
	metrics.ActiveSources.Set(float64(total))
	return total
}
