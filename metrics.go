package hilbertcluster

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational
// metrics. Implement this interface to integrate with monitoring
// systems like Prometheus. It is a superset of optimizer.Collector, so
// a collector configured here also receives per-trial and per-round
// metrics from the search loop.
type MetricsCollector interface {
	// RecordTrial is called after each optimizer trial.
	// duration is the total time taken, err is nil if successful.
	RecordTrial(duration time.Duration, err error)

	// RecordRound is called after each optimizer round with whether any
	// trial in it improved on the best result so far.
	RecordRound(improved bool, duration time.Duration)

	// RecordSearch is called after each full permutation search.
	RecordSearch(duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot save or load.
	// size is the encoded snapshot size in bytes.
	RecordSnapshot(size int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTrial(time.Duration, error)         {}
func (NoopMetricsCollector) RecordRound(bool, time.Duration)          {}
func (NoopMetricsCollector) RecordSearch(time.Duration, error)        {}
func (NoopMetricsCollector) RecordSnapshot(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TrialCount       atomic.Int64
	TrialErrors      atomic.Int64
	TrialTotalNanos  atomic.Int64
	RoundCount       atomic.Int64
	RoundImproved    atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	SnapshotCount    atomic.Int64
	SnapshotErrors   atomic.Int64
	SnapshotBytes    atomic.Int64
}

// RecordTrial implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrial(duration time.Duration, err error) {
	b.TrialCount.Add(1)
	b.TrialTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TrialErrors.Add(1)
	}
}

// RecordRound implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRound(improved bool, duration time.Duration) {
	b.RoundCount.Add(1)
	if improved {
		b.RoundImproved.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(size int, duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	b.SnapshotBytes.Add(int64(size))
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		TrialCount:     b.TrialCount.Load(),
		TrialErrors:    b.TrialErrors.Load(),
		TrialAvgNanos:  b.getAvgTrialNanos(),
		RoundCount:     b.RoundCount.Load(),
		RoundImproved:  b.RoundImproved.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.getAvgSearchNanos(),
		SnapshotCount:  b.SnapshotCount.Load(),
		SnapshotErrors: b.SnapshotErrors.Load(),
		SnapshotBytes:  b.SnapshotBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgTrialNanos() int64 {
	count := b.TrialCount.Load()
	if count == 0 {
		return 0
	}
	return b.TrialTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TrialCount     int64
	TrialErrors    int64
	TrialAvgNanos  int64
	RoundCount     int64
	RoundImproved  int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	SnapshotCount  int64
	SnapshotErrors int64
	SnapshotBytes  int64
}
