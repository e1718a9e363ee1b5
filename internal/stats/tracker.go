// Package stats tracks acquisition and task latency distributions for
// the session pool.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/influxdata/tdigest"
)

// Tracker accumulates latency samples for pool acquisitions and task
// executions. Percentiles come from t-digests (~100 centroids each);
// exact aggregates are kept alongside.
type Tracker struct {
	acquireCount atomic.Int64
	taskCount    atomic.Int64

	mu sync.Mutex // TDigest is not thread-safe

	acquireDigest *tdigest.TDigest
	acquireSum    int64 // nanoseconds
	acquireMax    int64 // nanoseconds
	acquireMin    int64 // nanoseconds (-1 = unset)

	taskDigest *tdigest.TDigest
	taskSum    int64 // nanoseconds
	taskMax    int64 // nanoseconds
	taskMin    int64 // nanoseconds (-1 = unset)
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		acquireDigest: tdigest.NewWithCompression(100),
		taskDigest:    tdigest.NewWithCompression(100),
		acquireMin:    -1,
		taskMin:       -1,
	}
}

// RecordAcquire adds one slot-acquisition latency sample.
func (t *Tracker) RecordAcquire(d time.Duration) {
	t.acquireCount.Add(1)

	t.mu.Lock()
	defer t.mu.Unlock()
	ns := d.Nanoseconds()
	t.acquireDigest.Add(float64(ns), 1)
	t.acquireSum += ns
	if ns > t.acquireMax {
		t.acquireMax = ns
	}
	if t.acquireMin < 0 || ns < t.acquireMin {
		t.acquireMin = ns
	}
}

// RecordTask adds one task-runtime sample (bind to release).
func (t *Tracker) RecordTask(d time.Duration) {
	t.taskCount.Add(1)

	t.mu.Lock()
	defer t.mu.Unlock()
	ns := d.Nanoseconds()
	t.taskDigest.Add(float64(ns), 1)
	t.taskSum += ns
	if ns > t.taskMax {
		t.taskMax = ns
	}
	if t.taskMin < 0 || ns < t.taskMin {
		t.taskMin = ns
	}
}

// LatencySummary is the point-in-time view of one latency distribution.
type LatencySummary struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// Summary is the tracker's full snapshot.
type Summary struct {
	Acquire LatencySummary `json:"acquire"`
	Task    LatencySummary `json:"task"`
}

// Snapshot returns the current latency summaries.
func (t *Tracker) Snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Summary{
		Acquire: summarize(t.acquireCount.Load(), t.acquireDigest,
			t.acquireSum, t.acquireMin, t.acquireMax),
		Task: summarize(t.taskCount.Load(), t.taskDigest,
			t.taskSum, t.taskMin, t.taskMax),
	}
}

func summarize(count int64, digest *tdigest.TDigest, sum, min, max int64) LatencySummary {
	s := LatencySummary{Count: count}
	if count == 0 {
		return s
	}
	if min > 0 {
		s.Min = time.Duration(min)
	}
	s.Max = time.Duration(max)
	s.Avg = time.Duration(sum / count)
	s.P50 = time.Duration(digest.Quantile(0.50))
	s.P95 = time.Duration(digest.Quantile(0.95))
	s.P99 = time.Duration(digest.Quantile(0.99))
	return s
}
