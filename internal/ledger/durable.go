package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	interfaces "github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/stats"
)

// DurableLedger is the storage-backed transfer strategy. Balances and the
// audit trail live in a TransferStore; the persisted audit row is the
// idempotency record, guarded by its unique key.
type DurableLedger struct {
	store     interfaces.TransferStore // accounts and the transfer audit trail
	stats     *stats.Aggregator        // counts only executions this process committed
	txTimeout time.Duration            // ceiling for one transaction, retries included
	opts      options                  // publisher, logger, retry budget, clock
}

func NewDurableLedger(store interfaces.TransferStore, aggregator *stats.Aggregator, txTimeout time.Duration, opts ...Option) *DurableLedger {
	return &DurableLedger{
		store:     store,
		stats:     aggregator,
		txTimeout: txTimeout,
		opts:      newOptions(opts),
	}
}

// Transfer returns the persisted outcome for the key when one exists and
// otherwise executes the transfer in a single storage transaction. When a
// concurrent request with the same key commits first, the losing transaction
// rolls back and the committed row is returned instead.
func (d *DurableLedger) Transfer(ctx context.Context, req models.TransferRequest) (models.TransferOutcome, error) {
	out, err := d.store.FindTransfer(ctx, req.IdempotencyKey)
	if err == nil {
		d.stats.RecordReplay()
		return out, nil
	}
	if !errors.Is(err, models.ErrTransferNotFound) {
		return models.TransferOutcome{}, fmt.Errorf("find transfer %q: %w", req.IdempotencyKey, err)
	}

	out, err = d.execute(ctx, req)
	if errors.Is(err, models.ErrDuplicateTransfer) {
		existing, findErr := d.store.FindTransfer(ctx, req.IdempotencyKey)
		if findErr != nil {
			return models.TransferOutcome{}, fmt.Errorf("reload transfer %q: %w", req.IdempotencyKey, findErr)
		}
		d.stats.RecordReplay()
		return existing, nil
	}
	if err != nil {
		d.opts.log.Error("transfer aborted", "transfer_id", req.IdempotencyKey, "error", err)
		return models.TransferOutcome{}, fmt.Errorf("execute transfer %q: %w", req.IdempotencyKey, err)
	}

	d.stats.Record(out, time.Duration(out.ProcessingMicros)*time.Microsecond)
	d.opts.publish(ctx, req, out)
	return out, nil
}

// execute runs the storage transaction under the transaction timeout,
// retrying only on ErrTxConflict.
func (d *DurableLedger) execute(ctx context.Context, req models.TransferRequest) (models.TransferOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, d.txTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond

	return backoff.Retry(ctx, func() (models.TransferOutcome, error) {
		out, err := d.store.ExecuteTransfer(ctx, req)
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, models.ErrTxConflict):
			d.opts.log.Debug("retrying transfer after conflict", "transfer_id", req.IdempotencyKey, "error", err)
			return out, err
		default:
			return out, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(b), backoff.WithMaxTries(d.opts.txRetries))
}

// Stats reports persisted audit rows as cached keys.
func (d *DurableLedger) Stats(ctx context.Context) (models.StatsSnapshot, error) {
	transfers, err := d.store.CountTransfers(ctx)
	if err != nil {
		return models.StatsSnapshot{}, fmt.Errorf("count transfers: %w", err)
	}
	accounts, err := d.store.CountAccounts(ctx)
	if err != nil {
		return models.StatsSnapshot{}, fmt.Errorf("count accounts: %w", err)
	}
	return d.stats.Snapshot(transfers, accounts), nil
}

func (d *DurableLedger) Balance(ctx context.Context, accountID string) (int64, error) {
	return d.store.Balance(ctx, accountID)
}

var _ interfaces.TransferService = (*DurableLedger)(nil)
