// Package ratelimit implements per-key token buckets used to gate
// inbound messages by origin key and by sender. The per-key
// table-with-garbage-collection shape keys on an arbitrary string
// rather than an IP address, and the token accounting itself is
// delegated to golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a keyed collection of token buckets, one per distinct key,
// each refilling at tokensPerInterval/interval up to burst. Idle entries
// are garbage collected so the table does not grow unbounded across the
// lifetime of a long-running node.
type Limiter struct {
	mu         sync.Mutex
	entries    map[string]*entry
	ratePerSec float64
	burst      int
	idleTTL    time.Duration

	stop chan struct{}
	once sync.Once
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New constructs a Limiter allowing tokensPerInterval tokens every
// interval, with the given burst capacity. A background goroutine prunes
// keys idle for longer than idleTTL (default 10x interval).
func New(tokensPerInterval int, interval time.Duration, burst int) *Limiter {
	if interval <= 0 {
		interval = time.Second
	}
	ratePerSec := float64(tokensPerInterval) / interval.Seconds()
	idleTTL := interval * 10
	if idleTTL < time.Second {
		idleTTL = time.Second
	}
	l := &Limiter{
		entries:    make(map[string]*entry),
		ratePerSec: ratePerSec,
		burst:      burst,
		idleTTL:    idleTTL,
		stop:       make(chan struct{}),
	}
	go l.garbageCollect()
	return l
}

// Allow reports whether a token is available for key, consuming one if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.ratePerSec), l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()
	return e.limiter.Allow()
}

// Close stops the garbage collection goroutine.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) garbageCollect() {
	ticker := time.NewTicker(l.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.idleTTL)
			l.mu.Lock()
			for key, e := range l.entries {
				if e.lastSeen.Before(cutoff) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
