package ledger

import (
	"context"
	"log/slog"
	"time"

	interfaces "github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/models/events"
)

const defaultTxRetries = 3

type options struct {
	publisher interfaces.EventPublisher
	log       *slog.Logger
	txRetries uint
	now       func() time.Time
}

// Option configures a Ledger or a DurableLedger.
type Option func(*options)

// WithPublisher emits a TransferProcessed event after every fresh execution.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTxRetries bounds the attempts of a durable transfer that keeps hitting
// serialization failures or deadlocks.
func WithTxRetries(n uint) Option {
	return func(o *options) { o.txRetries = max(n, 1) }
}

func newOptions(opts []Option) options {
	o := options{
		log:       slog.Default(),
		txRetries: defaultTxRetries,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.With("component", "ledger")
	return o
}

// publish never fails the transfer: the outcome is already final.
func (o options) publish(ctx context.Context, req models.TransferRequest, out models.TransferOutcome) {
	if o.publisher == nil {
		return
	}
	event := events.NewTransferProcessed(req, out, o.now())
	if err := o.publisher.Publish(context.WithoutCancel(ctx), out.TransferID, event); err != nil {
		o.log.Warn("failed to publish transfer event", "transfer_id", out.TransferID, "error", err)
	}
}
