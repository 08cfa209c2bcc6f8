package persistence

import (
	"sync/atomic"
	"time"
)

// MetricsCollector observes durable writes.
type MetricsCollector interface {
	RecordEventPersisted(eventType string, success bool, duration time.Duration)
	RecordPersistAttempt(eventType string, attempt int, success bool)
	RecordQueueDepth(depth int)
}

type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventPersisted(string, bool, time.Duration) {}
func (NoOpMetricsCollector) RecordPersistAttempt(string, int, bool)           {}
func (NoOpMetricsCollector) RecordQueueDepth(int)                             {}

// Counters is a minimal in-process collector surfaced on the health endpoint.
type Counters struct {
	persisted  atomic.Int64
	failed     atomic.Int64
	retries    atomic.Int64
	queueDepth atomic.Int64
}

func (c *Counters) RecordEventPersisted(_ string, success bool, _ time.Duration) {
	if success {
		c.persisted.Add(1)
	} else {
		c.failed.Add(1)
	}
}

func (c *Counters) RecordPersistAttempt(_ string, attempt int, _ bool) {
	if attempt > 1 {
		c.retries.Add(1)
	}
}

func (c *Counters) RecordQueueDepth(depth int) {
	c.queueDepth.Store(int64(depth))
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	Persisted  int64 `json:"persisted"`
	Failed     int64 `json:"failed"`
	Retries    int64 `json:"retries"`
	QueueDepth int64 `json:"queue_depth"`
}

func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Persisted:  c.persisted.Load(),
		Failed:     c.failed.Load(),
		Retries:    c.retries.Load(),
		QueueDepth: c.queueDepth.Load(),
	}
}
