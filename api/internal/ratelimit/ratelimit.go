package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (client IP, chat id).
// A zero rate disables limiting entirely.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

func (l *Limiter) Enabled() bool { return l != nil && l.limit > 0 }

// Allow reports whether key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.lim.AllowN(v.lastSeen, 1)
}

// Cleanup drops keys idle for longer than the ttl. Returns how many were removed.
func (l *Limiter) Cleanup() int {
	if !l.Enabled() {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.ttl)
	n := 0
	for k, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, k)
			n++
		}
	}
	return n
}

// StartCleanup runs Cleanup every minute until stop is closed.
func (l *Limiter) StartCleanup(stop <-chan struct{}) {
	if !l.Enabled() {
		return
	}
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}
