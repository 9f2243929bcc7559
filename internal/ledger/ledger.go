package ledger

import (
	"context"
	"time"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/idempotency"
	interfaces "github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/stats"
)

// Ledger is the in-memory transfer strategy. Balances live in an
// AccountStore, outcomes in an idempotency cache; the Ledger itself holds no
// mutable state.
type Ledger struct {
	accounts interfaces.AccountStore // balances, created lazily with the default balance
	cache    *idempotency.Cache      // outcome per idempotency key, doubles as the execution guard
	stats    *stats.Aggregator       // shared with the HTTP stats endpoint
	opts     options                 // publisher, logger, clock
}

// NewLedger wires the in-memory strategy.
func NewLedger(accounts interfaces.AccountStore, cache *idempotency.Cache, aggregator *stats.Aggregator, opts ...Option) *Ledger {
	return &Ledger{
		accounts: accounts,
		cache:    cache,
		stats:    aggregator,
		opts:     newOptions(opts),
	}
}

// Transfer executes req at most once per idempotency key. Concurrent and
// later submissions of the same key receive the stored outcome without
// touching balances or counters. It never returns an error.
func (l *Ledger) Transfer(ctx context.Context, req models.TransferRequest) (models.TransferOutcome, error) {
	out, executed := l.cache.GetOrCompute(req.IdempotencyKey, func() models.TransferOutcome {
		return l.execute(req)
	})
	if !executed {
		l.stats.RecordReplay()
		return out, nil
	}

	if !out.Completed() {
		l.opts.log.Debug("transfer rejected", "transfer_id", out.TransferID, "from", req.FromAccount, "amount", req.AmountMinorUnits)
	}
	l.opts.publish(ctx, req, out)
	return out, nil
}

// execute debits then credits. Once the debit lands the credit always
// follows, so no intermediate state outlives this call.
func (l *Ledger) execute(req models.TransferRequest) models.TransferOutcome {
	start := time.Now()
	out := models.TransferOutcome{
		TransferID:       req.IdempotencyKey,
		AmountMinorUnits: req.AmountMinorUnits,
	}

	if l.accounts.Debit(req.FromAccount, req.AmountMinorUnits) {
		out.Status = models.StatusCompleted
		out.Message = models.MessageCompleted
		out.ToBalanceAfter = l.accounts.Credit(req.ToAccount, req.AmountMinorUnits)
		out.FromBalanceAfter = l.accounts.Current(req.FromAccount)
	} else {
		out.Status = models.StatusFailedInsufficientFunds
		out.Message = models.MessageInsufficientFunds
		out.FromBalanceAfter = l.accounts.Current(req.FromAccount)
		out.ToBalanceAfter = l.accounts.Current(req.ToAccount)
	}

	latency := time.Since(start)
	out.ProcessingMicros = latency.Microseconds()
	l.stats.Record(out, latency)
	return out
}

// Stats sweeps expired idempotency entries before taking the snapshot.
func (l *Ledger) Stats(context.Context) (models.StatsSnapshot, error) {
	cached := l.cache.Sweep()
	return l.stats.Snapshot(int64(cached), l.accounts.TotalAccounts()), nil
}

// Balance reports the balance of an existing account.
func (l *Ledger) Balance(_ context.Context, accountID string) (int64, error) {
	balance, ok := l.accounts.Lookup(accountID)
	if !ok {
		return 0, models.ErrAccountNotFound
	}
	return balance, nil
}

var _ interfaces.TransferService = (*Ledger)(nil)
