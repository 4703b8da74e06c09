package dbtools

import (
	"sort"
	"sync"
	"time"

	"github.com/FreePeak/db-query-proxy/internal/logger"
)

// DefaultSlowThreshold is used when no threshold is configured
const DefaultSlowThreshold = 500 * time.Millisecond

// QueryMetrics stores timing for one statement shape
type QueryMetrics struct {
	Query         string // SQL text with placeholders
	Count         int
	Errors        int
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastExecuted  time.Time
}

// AvgDuration returns the mean execution time
func (m QueryMetrics) AvgDuration() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.Count)
}

// PerformanceAnalyzer times statements and logs the slow ones. Statements
// are keyed by their SQL text, which carries placeholders rather than values,
// so every request with the same shape lands in one bucket.
type PerformanceAnalyzer struct {
	mu            sync.Mutex
	metrics       map[string]*QueryMetrics
	slowThreshold time.Duration
	now           func() time.Time
}

// NewPerformanceAnalyzer creates an analyzer. A non-positive threshold means
// DefaultSlowThreshold.
func NewPerformanceAnalyzer(slowThreshold time.Duration) *PerformanceAnalyzer {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	return &PerformanceAnalyzer{
		metrics:       make(map[string]*QueryMetrics),
		slowThreshold: slowThreshold,
		now:           time.Now,
	}
}

// Track runs fn and records how long stmt took
func (pa *PerformanceAnalyzer) Track(stmt Statement, fn func() error) error {
	start := pa.now()
	err := fn()
	duration := pa.now().Sub(start)

	if duration >= pa.slowThreshold {
		logger.With(logger.Fields{
			"duration": duration.String(),
			"args":     len(stmt.Args),
		}).Warn("Slow query: %s", stmt.SQL)
	}

	pa.record(stmt.SQL, duration, err != nil)
	return err
}

func (pa *PerformanceAnalyzer) record(query string, duration time.Duration, failed bool) {
	pa.mu.Lock()
	defer pa.mu.Unlock()

	m, ok := pa.metrics[query]
	if !ok {
		m = &QueryMetrics{Query: query, MinDuration: duration, MaxDuration: duration}
		pa.metrics[query] = m
	}

	m.Count++
	m.TotalDuration += duration
	m.LastExecuted = pa.now()
	if failed {
		m.Errors++
	}
	if duration < m.MinDuration {
		m.MinDuration = duration
	}
	if duration > m.MaxDuration {
		m.MaxDuration = duration
	}
}

// SlowQueries returns the statements whose average exceeds the threshold,
// slowest first
func (pa *PerformanceAnalyzer) SlowQueries() []QueryMetrics {
	var slow []QueryMetrics
	for _, m := range pa.AllMetrics() {
		if m.AvgDuration() >= pa.slowThreshold {
			slow = append(slow, m)
		}
	}
	return slow
}

// AllMetrics returns a copy of every recorded statement, slowest average first
func (pa *PerformanceAnalyzer) AllMetrics() []QueryMetrics {
	pa.mu.Lock()
	out := make([]QueryMetrics, 0, len(pa.metrics))
	for _, m := range pa.metrics {
		out = append(out, *m)
	}
	pa.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].AvgDuration() > out[j].AvgDuration()
	})
	return out
}
