// Package ratelimit bounds outbound request rates per domain and globally,
// and supplies the anti-detection request headers used on every call.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Default limiter settings.
const (
	DefaultDomainRate   = 0.5 // tokens per second per domain
	DefaultDomainBurst  = 2
	DefaultGlobalRate   = 5.0
	DefaultGlobalBurst  = 10
	defaultPollInterval = 50 * time.Millisecond
)

// Config holds rate limiter configuration.
type Config struct {
	DomainRate  float64       `yaml:"domain_rate"`
	DomainBurst int           `yaml:"domain_burst"`
	GlobalRate  float64       `yaml:"global_rate"`
	GlobalBurst int           `yaml:"global_burst"`
	JitterMin   time.Duration `yaml:"jitter_min"`
	JitterMax   time.Duration `yaml:"jitter_max"`
}

// WithDefaults returns a copy of the config with defaults applied for
// zero-value fields.
func (c Config) WithDefaults() Config {
	if c.DomainRate <= 0 {
		c.DomainRate = DefaultDomainRate
	}
	if c.DomainBurst <= 0 {
		c.DomainBurst = DefaultDomainBurst
	}
	if c.GlobalRate <= 0 {
		c.GlobalRate = DefaultGlobalRate
	}
	if c.GlobalBurst <= 0 {
		c.GlobalBurst = DefaultGlobalBurst
	}
	if c.JitterMax <= 0 {
		c.JitterMin = 200 * time.Millisecond
		c.JitterMax = 1200 * time.Millisecond
	}
	return c
}

// bucket is a token bucket refilled by elapsed time.
type bucket struct {
	tokens     float64
	capacity   float64
	ratePerSec float64
	lastRefill time.Time
}

func newBucket(capacity int, rate float64, now time.Time) *bucket {
	return &bucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		ratePerSec: rate,
		lastRefill: now,
	}
}

// take refills by elapsed time and consumes a token when one is available.
func (b *bucket) take(now time.Time) bool {
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now
	b.tokens += elapsed * b.ratePerSec
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Limiter grants request slots from a per-domain bucket plus a global
// bucket. State is in-memory only and resets on process restart.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	global  *bucket
	domains map[string]*bucket
	rng     *rand.Rand
	now     func() time.Time
}

// New creates a limiter with the given configuration.
func New(cfg Config) *Limiter {
	cfg = cfg.WithDefaults()
	now := time.Now
	return &Limiter{
		cfg:     cfg,
		global:  newBucket(cfg.GlobalBurst, cfg.GlobalRate, now()),
		domains: make(map[string]*bucket),
		rng:     rand.New(rand.NewSource(now().UnixNano())),
		now:     now,
	}
}

// Acquire blocks until both the domain bucket and the global bucket grant a
// token, or the context is done.
func (l *Limiter) Acquire(ctx context.Context, domain string) error {
	for {
		if l.tryAcquire(domain) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(defaultPollInterval):
		}
	}
}

// TryAcquire attempts to take a slot without blocking.
func (l *Limiter) TryAcquire(domain string) bool {
	return l.tryAcquire(domain)
}

func (l *Limiter) tryAcquire(domain string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	db, ok := l.domains[domain]
	if !ok {
		db = newBucket(l.cfg.DomainBurst, l.cfg.DomainRate, now)
		l.domains[domain] = db
	}

	// Domain bucket first so a starved domain does not drain the global one.
	if !db.take(now) {
		return false
	}

	if !l.global.take(now) {
		// Refund: the call will not happen.
		db.tokens++
		return false
	}

	return true
}

// Jitter returns a random delay within the configured jitter window.
func (l *Limiter) Jitter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.cfg.JitterMax - l.cfg.JitterMin
	if window <= 0 {
		return l.cfg.JitterMin
	}
	return l.cfg.JitterMin + time.Duration(l.rng.Int63n(int64(window)))
}
