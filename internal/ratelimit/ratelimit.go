// Package ratelimit tracks daily AI call budgets per analysis lens.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a per-lens and a total daily call budget. Counters reset
// at the first check after local midnight.
type Limiter struct {
	mu sync.Mutex

	used     map[string]int
	perLens  int
	total    int
	maxTotal int

	cacheHits   int
	cacheMisses int

	resetAt time.Time
	now     func() time.Time
}

// New builds a limiter allowing perLens calls per lens and maxTotal calls
// overall per day. A zero budget disables the corresponding check.
func New(perLens, maxTotal int) *Limiter {
	l := &Limiter{
		used:     make(map[string]int),
		perLens:  perLens,
		maxTotal: maxTotal,
		now:      time.Now,
	}
	l.resetAt = nextMidnight(l.now())
	return l
}

// Allow reports whether a call for the given lens fits in today's budget.
func (l *Limiter) Allow(lens string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset()

	if l.maxTotal > 0 && l.total >= l.maxTotal {
		return false
	}
	if l.perLens > 0 && l.used[lens] >= l.perLens {
		return false
	}
	return true
}

// Use records one call against the lens budget.
func (l *Limiter) Use(lens string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset()
	l.used[lens]++
	l.total++
}

// RecordCacheHit notes that a cached payload avoided an AI call.
func (l *Limiter) RecordCacheHit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cacheHits++
}

// RecordCacheMiss notes a cache miss that led to fresh work.
func (l *Limiter) RecordCacheMiss() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cacheMisses++
}

// Stats returns a snapshot of today's usage.
func (l *Limiter) Stats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset()

	perLens := make(map[string]int, len(l.used))
	for k, v := range l.used {
		perLens[k] = v
	}
	return map[string]any{
		"calls_total":  l.total,
		"calls_max":    l.maxTotal,
		"per_lens":     perLens,
		"cache_hits":   l.cacheHits,
		"cache_misses": l.cacheMisses,
		"resets_at":    l.resetAt.Format(time.RFC3339),
	}
}

func (l *Limiter) maybeReset() {
	if l.now().Before(l.resetAt) {
		return
	}
	l.used = make(map[string]int)
	l.total = 0
	l.resetAt = nextMidnight(l.now())
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
