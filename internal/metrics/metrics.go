// Package metrics collects runtime counters for the pipeline and scheduler.
package metrics

import (
	"sync"
	"time"
)

// Metrics is a process-wide counter registry guarded by a RWMutex.
type Metrics struct {
	mu sync.RWMutex

	startTime time.Time

	// Collection
	ItemsFetched      int64
	SourcesFailed     int64
	DuplicatesDropped int64
	ItemsScored       int64

	// Review channel
	ReviewsVerified int64
	ReviewsRejected int64
	ReviewDegrades  int64

	// Cache
	CacheHits   int64
	CacheMisses int64
	StaleServes int64

	// Synthesis
	SynthesisRuns     int64
	SynthesisFailures int64
	LensFailures      int64

	// Dispatch
	ReportsDispatched int64
	DispatchFailures  int64

	lastRunDuration time.Duration
	lastError       string
	lastErrorAt     time.Time
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics instance.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{startTime: time.Now()}
	})
	return instance
}

func (m *Metrics) add(field *int64, n int64) {
	m.mu.Lock()
	*field += n
	m.mu.Unlock()
}

func (m *Metrics) AddItemsFetched(n int) { m.add(&m.ItemsFetched, int64(n)) }

func (m *Metrics) AddSourcesFailed(n int) { m.add(&m.SourcesFailed, int64(n)) }

func (m *Metrics) AddDuplicates(n int) { m.add(&m.DuplicatesDropped, int64(n)) }

func (m *Metrics) AddItemsScored(n int) { m.add(&m.ItemsScored, int64(n)) }

func (m *Metrics) AddReviewsVerified(n int) { m.add(&m.ReviewsVerified, int64(n)) }

func (m *Metrics) AddReviewsRejected(n int) { m.add(&m.ReviewsRejected, int64(n)) }

func (m *Metrics) IncReviewDegrade() { m.add(&m.ReviewDegrades, 1) }

func (m *Metrics) IncCacheHit() { m.add(&m.CacheHits, 1) }

func (m *Metrics) IncCacheMiss() { m.add(&m.CacheMisses, 1) }

func (m *Metrics) IncStaleServe() { m.add(&m.StaleServes, 1) }

func (m *Metrics) IncSynthesisRun() { m.add(&m.SynthesisRuns, 1) }

func (m *Metrics) IncSynthesisFailure() { m.add(&m.SynthesisFailures, 1) }

func (m *Metrics) AddLensFailures(n int) { m.add(&m.LensFailures, int64(n)) }

func (m *Metrics) IncDispatched() { m.add(&m.ReportsDispatched, 1) }

func (m *Metrics) IncDispatchFailure() { m.add(&m.DispatchFailures, 1) }

// RecordRunDuration stores the duration of the most recent pipeline pass.
func (m *Metrics) RecordRunDuration(d time.Duration) {
	m.mu.Lock()
	m.lastRunDuration = d
	m.mu.Unlock()
}

// RecordError stores the most recent error for the health endpoint.
func (m *Metrics) RecordError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.lastError = err.Error()
	m.lastErrorAt = time.Now()
	m.mu.Unlock()
}

// Healthy reports whether the process has seen an error in the last hour.
func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError == "" || time.Since(m.lastErrorAt) > time.Hour
}

// GetStats returns a snapshot suitable for the /metrics endpoint.
func (m *Metrics) GetStats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
		"items_fetched":      m.ItemsFetched,
		"sources_failed":     m.SourcesFailed,
		"duplicates_dropped": m.DuplicatesDropped,
		"items_scored":       m.ItemsScored,
		"reviews_verified":   m.ReviewsVerified,
		"reviews_rejected":   m.ReviewsRejected,
		"review_degrades":    m.ReviewDegrades,
		"cache_hits":         m.CacheHits,
		"cache_misses":       m.CacheMisses,
		"stale_serves":       m.StaleServes,
		"synthesis_runs":     m.SynthesisRuns,
		"synthesis_failures": m.SynthesisFailures,
		"lens_failures":      m.LensFailures,
		"reports_dispatched": m.ReportsDispatched,
		"dispatch_failures":  m.DispatchFailures,
		"last_run_duration":  m.lastRunDuration.String(),
		"last_error":         m.lastError,
	}
}
