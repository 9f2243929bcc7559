package idempotency

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
)

func outcome(key string) models.TransferOutcome {
	return models.TransferOutcome{
		TransferID:       key,
		Status:           models.StatusCompleted,
		Message:          models.MessageCompleted,
		AmountMinorUnits: 10,
	}
}

func TestLookupInsert(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Lookup("k1")
	assert.False(t, ok)

	c.Insert("k1", outcome("k1"))
	got, ok := c.Lookup("k1")
	require.True(t, ok)
	assert.Equal(t, outcome("k1"), got)
	assert.Equal(t, 1, c.Len())
}

func TestExpiredEntriesAreAbsent(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Insert("k1", outcome("k1"))

	time.Sleep(40 * time.Millisecond)

	_, ok := c.Lookup("k1")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "expired entries linger until swept")
	assert.Equal(t, 0, c.Sweep())
	assert.Equal(t, 0, c.Len())
}

func TestSweepKeepsLiveEntries(t *testing.T) {
	c := New(time.Minute)
	c.Insert("a", outcome("a"))
	c.Insert("b", outcome("b"))

	assert.Equal(t, 2, c.Sweep())
}

func TestInsertSweepsPeriodically(t *testing.T) {
	c := New(10 * time.Millisecond)
	for i := range sweepEvery - 1 {
		c.Insert(fmt.Sprintf("k-%d", i), outcome("x"))
	}
	time.Sleep(20 * time.Millisecond)

	c.Insert("fresh", outcome("fresh"))
	assert.Equal(t, 1, c.Len())
}

func TestGetOrComputeRunsOnce(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int32

	compute := func() models.TransferOutcome {
		calls.Add(1)
		return outcome("k1")
	}

	first, executed := c.GetOrCompute("k1", compute)
	assert.True(t, executed)
	second, executed := c.GetOrCompute("k1", compute)
	assert.False(t, executed)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrComputeConcurrentSameKey(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	compute := func() models.TransferOutcome {
		calls.Add(1)
		<-release
		return outcome("k3")
	}

	const callers = 1000
	results := make([]models.TransferOutcome, callers)
	var executions atomic.Int32
	var started, done sync.WaitGroup
	for i := range callers {
		started.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			started.Done()
			out, executed := c.GetOrCompute("k3", compute)
			if executed {
				executions.Add(1)
			}
			results[i] = out
		}()
	}
	started.Wait()
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), executions.Load())
	for _, r := range results {
		assert.Equal(t, outcome("k3"), r)
	}
}

func TestGetOrComputeDistinctKeysDoNotBlock(t *testing.T) {
	c := New(time.Minute)
	block := make(chan struct{})
	inFlight := make(chan struct{})

	go c.GetOrCompute("slow", func() models.TransferOutcome {
		close(inFlight)
		<-block
		return outcome("slow")
	})
	<-inFlight

	out, executed := c.GetOrCompute("fast", func() models.TransferOutcome { return outcome("fast") })
	assert.True(t, executed)
	assert.Equal(t, "fast", out.TransferID)
	close(block)
}

func TestGetOrComputeAfterExpiryRecomputes(t *testing.T) {
	c := New(20 * time.Millisecond)
	var calls atomic.Int32
	compute := func() models.TransferOutcome {
		calls.Add(1)
		return outcome("k")
	}

	c.GetOrCompute("k", compute)
	time.Sleep(40 * time.Millisecond)
	_, executed := c.GetOrCompute("k", compute)

	assert.True(t, executed)
	assert.Equal(t, int32(2), calls.Load())
}
