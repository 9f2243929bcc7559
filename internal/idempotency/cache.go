// Package idempotency deduplicates transfers by idempotency key.
//
// Outcomes are kept for a fixed time-to-live measured from insertion.
// Expired entries are invisible to readers and are dropped lazily, either by
// Sweep or after every sweepEvery insertions, so no background goroutine is
// needed.
package idempotency

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
)

const sweepEvery = 4096

type Cache struct {
	entries *gocache.Cache
	flight  singleflight.Group
	ttl     time.Duration
	inserts atomic.Uint64
}

// New returns a cache retaining outcomes for ttl. Expiry is kept as wall-clock
// time, so a step of the system clock stretches or shrinks retention.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: gocache.New(ttl, 0),
		ttl:     ttl,
	}
}

// Lookup returns the outcome stored for key unless it is absent or expired.
func (c *Cache) Lookup(key string) (models.TransferOutcome, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return models.TransferOutcome{}, false
	}
	return v.(models.TransferOutcome), true
}

// Insert stores outcome for key, expiring ttl from now.
func (c *Cache) Insert(key string, outcome models.TransferOutcome) {
	c.entries.Set(key, outcome, c.ttl)
	if c.inserts.Add(1)%sweepEvery == 0 {
		c.entries.DeleteExpired()
	}
}

// GetOrCompute returns the outcome for key, running compute only if no live
// outcome exists. At most one compute runs per key at a time: callers that
// arrive while it runs wait for it and share its result. The outcome is
// inserted before the in-flight slot is released, so a later caller always
// finds it. executed is true only for the caller whose compute ran.
func (c *Cache) GetOrCompute(key string, compute func() models.TransferOutcome) (outcome models.TransferOutcome, executed bool) {
	if out, ok := c.Lookup(key); ok {
		return out, false
	}

	v, _, _ := c.flight.Do(key, func() (any, error) {
		if out, ok := c.Lookup(key); ok {
			return out, nil
		}
		out := compute()
		c.Insert(key, out)
		executed = true
		return out, nil
	})
	return v.(models.TransferOutcome), executed
}

// Sweep drops expired entries and returns the number still cached.
func (c *Cache) Sweep() int {
	c.entries.DeleteExpired()
	return c.entries.ItemCount()
}

// Len counts stored entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	return c.entries.ItemCount()
}
