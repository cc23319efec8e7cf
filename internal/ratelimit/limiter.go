// Package ratelimit provides per-owner rate limiting. Generation
// endpoints get a much tighter budget than plain CRUD, since every
// call can fan out to the model provider.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Class partitions requests by cost.
type Class int

const (
	// ClassStandard covers note and category CRUD.
	ClassStandard Class = iota
	// ClassPipeline covers content generation endpoints.
	ClassPipeline
)

// Config defines the rate limiting configuration.
type Config struct {
	StandardRPS     float64       // Requests per second for CRUD endpoints
	StandardBurst   int           // Burst size for CRUD endpoints
	PipelineRPS     float64       // Requests per second for generation endpoints
	PipelineBurst   int           // Burst size for generation endpoints
	CleanupInterval time.Duration // How often to clean up idle limiters
}

// DefaultConfig provides sensible defaults for rate limiting.
var DefaultConfig = Config{
	StandardRPS:     10,
	StandardBurst:   20,
	PipelineRPS:     0.2, // one generation every five seconds
	PipelineBurst:   3,
	CleanupInterval: time.Hour,
}

type limiterKey struct {
	ownerID string
	class   Class
}

// limiterEntry holds a rate limiter and tracks its last usage.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter manages per-owner, per-class rate limiting.
type Limiter struct {
	limiters map[limiterKey]*limiterEntry
	mu       sync.RWMutex
	config   Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewLimiter creates a limiter with the given configuration and starts
// a background goroutine that evicts idle entries.
func NewLimiter(config Config) *Limiter {
	l := &Limiter{
		limiters: make(map[limiterKey]*limiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Allow reports whether a request from the owner in the given class is
// within the rate limit.
func (l *Limiter) Allow(ownerID string, class Class) bool {
	return l.Get(ownerID, class).Allow()
}

// Get returns the rate limiter for the owner and class, creating one
// if necessary.
func (l *Limiter) Get(ownerID string, class Class) *rate.Limiter {
	key := limiterKey{ownerID: ownerID, class: class}

	// Fast path: existing limiter under the read lock.
	l.mu.RLock()
	entry, exists := l.limiters[key]
	if exists {
		entry.lastUsed = time.Now()
		l.mu.RUnlock()
		return entry.limiter
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the write lock.
	entry, exists = l.limiters[key]
	if exists {
		entry.lastUsed = time.Now()
		return entry.limiter
	}

	rps := l.config.StandardRPS
	burst := l.config.StandardBurst
	if class == ClassPipeline {
		rps = l.config.PipelineRPS
		burst = l.config.PipelineBurst
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	l.limiters[key] = &limiterEntry{limiter: limiter, lastUsed: time.Now()}
	return limiter
}

// Cleanup removes limiters that have been idle for longer than the
// cleanup interval.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.CleanupInterval)
	for key, entry := range l.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (l *Limiter) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

// Len returns the number of active limiters. Useful for tests and
// monitoring.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
