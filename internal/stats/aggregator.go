// Package stats keeps wait-free transfer counters and derives throughput and
// latency figures from them on demand.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
)

// Observer receives a copy of every recorded event, e.g. to feed prometheus.
type Observer interface {
	ObserveTransfer(status models.TransferStatus, amount int64, latency time.Duration)
	ObserveReplay()
}

type Aggregator struct {
	started  time.Time
	now      func() time.Time
	observer Observer

	total         atomic.Int64
	successful    atomic.Int64
	rejected      atomic.Int64
	volume        atomic.Int64
	latencyMicros atomic.Int64
}

type Option func(*Aggregator)

func WithObserver(o Observer) Option {
	return func(a *Aggregator) { a.observer = o }
}

// WithClock replaces time.Now, including for the start instant.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	a.started = a.now()
	return a
}

// RecordCompleted counts a transfer that moved amount.
func (a *Aggregator) RecordCompleted(amount int64, latency time.Duration) {
	a.successful.Add(1)
	a.volume.Add(amount)
	a.record(latency)
	if a.observer != nil {
		a.observer.ObserveTransfer(models.StatusCompleted, amount, latency)
	}
}

// RecordRejected counts a transfer refused for insufficient funds.
func (a *Aggregator) RecordRejected(amount int64, latency time.Duration) {
	a.rejected.Add(1)
	a.record(latency)
	if a.observer != nil {
		a.observer.ObserveTransfer(models.StatusFailedInsufficientFunds, amount, latency)
	}
}

// RecordReplay notes a request answered from a stored outcome. Replays are
// not executions and leave the counters untouched.
func (a *Aggregator) RecordReplay() {
	if a.observer != nil {
		a.observer.ObserveReplay()
	}
}

// Record dispatches on the outcome status.
func (a *Aggregator) Record(out models.TransferOutcome, latency time.Duration) {
	if out.Completed() {
		a.RecordCompleted(out.AmountMinorUnits, latency)
		return
	}
	a.RecordRejected(out.AmountMinorUnits, latency)
}

func (a *Aggregator) record(latency time.Duration) {
	a.latencyMicros.Add(latency.Microseconds())
	a.total.Add(1)
}

// Snapshot reads the counters without blocking writers. The cache and
// account figures come from the caller since the aggregator does not own them.
func (a *Aggregator) Snapshot(cachedKeys, provisionedAccounts int64) models.StatsSnapshot {
	total := a.total.Load()
	uptime := max(1, int64(a.now().Sub(a.started)/time.Second))

	var avgLatency float64
	if total > 0 {
		avgLatency = float64(a.latencyMicros.Load()) / float64(total)
	}
	rps := float64(total) / float64(uptime)

	return models.StatsSnapshot{
		Processed:           total,
		Successful:          a.successful.Load(),
		Rejected:            a.rejected.Load(),
		TotalVolume:         a.volume.Load(),
		AvgLatencyMicros:    avgLatency,
		RequestsPerSecond:   rps,
		RequestsPerMinute:   rps * 60,
		UptimeSeconds:       uptime,
		CachedKeys:          cachedKeys,
		ProvisionedAccounts: provisionedAccounts,
	}
}
