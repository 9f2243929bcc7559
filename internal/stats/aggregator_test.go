package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingObserver struct {
	transfers []models.TransferStatus
	replays   int
}

func (o *recordingObserver) ObserveTransfer(status models.TransferStatus, _ int64, _ time.Duration) {
	o.transfers = append(o.transfers, status)
}

func (o *recordingObserver) ObserveReplay() { o.replays++ }

func TestSnapshotEmpty(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	a := New(WithClock(clock.Now))

	s := a.Snapshot(0, 0)

	assert.Equal(t, int64(0), s.Processed)
	assert.Equal(t, 0.0, s.AvgLatencyMicros)
	assert.Equal(t, int64(1), s.UptimeSeconds, "uptime is at least one second")
	assert.Equal(t, 0.0, s.RequestsPerSecond)
}

func TestSnapshotDerivedFigures(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	a := New(WithClock(clock.Now))

	a.RecordCompleted(500, 100*time.Microsecond)
	a.RecordCompleted(250, 300*time.Microsecond)
	a.RecordRejected(9000, 200*time.Microsecond)
	a.RecordReplay()
	clock.Advance(3 * time.Second)

	s := a.Snapshot(7, 11)

	assert.Equal(t, int64(3), s.Processed)
	assert.Equal(t, int64(2), s.Successful)
	assert.Equal(t, int64(1), s.Rejected)
	assert.Equal(t, int64(750), s.TotalVolume)
	assert.Equal(t, 200.0, s.AvgLatencyMicros)
	assert.Equal(t, int64(3), s.UptimeSeconds)
	assert.Equal(t, 1.0, s.RequestsPerSecond)
	assert.Equal(t, 60.0, s.RequestsPerMinute)
	assert.Equal(t, int64(7), s.CachedKeys)
	assert.Equal(t, int64(11), s.ProvisionedAccounts)
}

func TestRecordDispatchesOnStatus(t *testing.T) {
	obs := &recordingObserver{}
	a := New(WithObserver(obs))

	a.Record(models.TransferOutcome{Status: models.StatusCompleted, AmountMinorUnits: 5}, time.Microsecond)
	a.Record(models.TransferOutcome{Status: models.StatusFailedInsufficientFunds, AmountMinorUnits: 5}, time.Microsecond)
	a.RecordReplay()

	s := a.Snapshot(0, 0)
	assert.Equal(t, int64(1), s.Successful)
	assert.Equal(t, int64(1), s.Rejected)
	assert.Equal(t, int64(5), s.TotalVolume)
	assert.Equal(t, []models.TransferStatus{models.StatusCompleted, models.StatusFailedInsufficientFunds}, obs.transfers)
	assert.Equal(t, 1, obs.replays)
}

func TestConcurrentRecording(t *testing.T) {
	a := New()

	const workers, each = 32, 1000
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				if w%2 == 0 {
					a.RecordCompleted(1, time.Microsecond)
				} else {
					a.RecordRejected(1, time.Microsecond)
				}
			}
		}()
	}
	wg.Wait()

	s := a.Snapshot(0, 0)
	assert.Equal(t, int64(workers*each), s.Processed)
	assert.Equal(t, s.Processed, s.Successful+s.Rejected)
	assert.Equal(t, int64(workers/2*each), s.TotalVolume)
	assert.GreaterOrEqual(t, s.AvgLatencyMicros, 0.0)
}
