package minlsh

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	RecordInsert(duration time.Duration, err error)

	// RecordQuery is called after each query operation. candidates is the
	// number of candidate keys returned.
	RecordQuery(candidates int, duration time.Duration, err error)

	// RecordRemove is called after each remove operation.
	RecordRemove(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)     {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64

	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryTotalNanos atomic.Int64
	CandidatesTotal atomic.Int64

	RemoveCount      atomic.Int64
	RemoveErrors     atomic.Int64
	RemoveTotalNanos atomic.Int64
}

func (c *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	c.InsertCount.Add(1)
	c.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.InsertErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordQuery(candidates int, duration time.Duration, err error) {
	c.QueryCount.Add(1)
	c.QueryTotalNanos.Add(duration.Nanoseconds())
	c.CandidatesTotal.Add(int64(candidates))
	if err != nil {
		c.QueryErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	c.RemoveCount.Add(1)
	c.RemoveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.RemoveErrors.Add(1)
	}
}

// MetricsStats is a point-in-time view of a BasicMetricsCollector.
type MetricsStats struct {
	InsertCount    int64
	InsertErrors   int64
	InsertAvgNanos int64

	QueryCount    int64
	QueryErrors   int64
	QueryAvgNanos int64
	AvgCandidates int64

	RemoveCount    int64
	RemoveErrors   int64
	RemoveAvgNanos int64
}

// GetStats returns a snapshot of the collected metrics.
func (c *BasicMetricsCollector) GetStats() MetricsStats {
	stats := MetricsStats{
		InsertCount:  c.InsertCount.Load(),
		InsertErrors: c.InsertErrors.Load(),
		QueryCount:   c.QueryCount.Load(),
		QueryErrors:  c.QueryErrors.Load(),
		RemoveCount:  c.RemoveCount.Load(),
		RemoveErrors: c.RemoveErrors.Load(),
	}
	if stats.InsertCount > 0 {
		stats.InsertAvgNanos = c.InsertTotalNanos.Load() / stats.InsertCount
	}
	if stats.QueryCount > 0 {
		stats.QueryAvgNanos = c.QueryTotalNanos.Load() / stats.QueryCount
		stats.AvgCandidates = c.CandidatesTotal.Load() / stats.QueryCount
	}
	if stats.RemoveCount > 0 {
		stats.RemoveAvgNanos = c.RemoveTotalNanos.Load() / stats.RemoveCount
	}
	return stats
}
