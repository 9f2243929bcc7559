package interfaces

import (
	"context"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
)

// TransferService is the single entry point for transfers. The in-memory
// and the durable strategies both satisfy it and produce identical outcomes
// for identical logical results.
type TransferService interface {
	Transfer(ctx context.Context, req models.TransferRequest) (models.TransferOutcome, error)
	Stats(ctx context.Context) (models.StatsSnapshot, error)
	Balance(ctx context.Context, accountID string) (int64, error)
}

// AccountStore holds in-memory balances. Unknown accounts are created with
// the default balance on first mutation.
type AccountStore interface {
	Debit(accountID string, amount int64) bool
	Credit(accountID string, amount int64) int64
	Current(accountID string) int64
	Lookup(accountID string) (int64, bool)
	TotalAccounts() int64
}

// TransferStore persists accounts and the transfer audit trail.
type TransferStore interface {
	FindTransfer(ctx context.Context, idempotencyKey string) (models.TransferOutcome, error)
	ExecuteTransfer(ctx context.Context, req models.TransferRequest) (models.TransferOutcome, error)
	Balance(ctx context.Context, accountID string) (int64, error)
	CountAccounts(ctx context.Context) (int64, error)
	CountTransfers(ctx context.Context) (int64, error)
}
