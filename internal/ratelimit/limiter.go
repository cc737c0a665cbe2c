// Package ratelimit keeps one token bucket per caller key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Settings describe the bucket every key receives.
type Settings struct {
	RequestsPerMinute int
	Burst             int
}

func (s Settings) limit() rate.Limit {
	return rate.Limit(float64(s.RequestsPerMinute) / 60)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	settings Settings
	buckets  map[string]*entry
	now      func() time.Time
}

// New creates a limiter with the given per-key settings.
func New(s Settings) *Limiter {
	return &Limiter{
		settings: normalize(s),
		buckets:  make(map[string]*entry),
		now:      time.Now,
	}
}

func normalize(s Settings) Settings {
	if s.RequestsPerMinute <= 0 {
		s.RequestsPerMinute = 100
	}
	if s.Burst <= 0 {
		s.Burst = s.RequestsPerMinute
	}
	return s
}

// SetSettings replaces the settings for existing and future keys.
func (l *Limiter) SetSettings(s Settings) {
	s = normalize(s)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings = s
	now := l.now()
	for _, e := range l.buckets {
		e.lim.SetLimitAt(now, s.limit())
		e.lim.SetBurstAt(now, s.Burst)
	}
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.settings.limit(), l.settings.Burst)}
		l.buckets[key] = e
	}
	e.lastSeen = now

	d := Decision{Limit: l.settings.RequestsPerMinute}
	r := e.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		d.RetryAfter = delay
		return d
	}
	d.Allowed = true
	d.Remaining = max(int(e.lim.TokensAt(now)), 0)
	return d
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Sweep drops keys idle for longer than idle.
func (l *Limiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	n := 0
	for k, e := range l.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// Run sweeps idle keys every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			l.Sweep(2 * interval)
		}
	}
}
