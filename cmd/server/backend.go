package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/config"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/idempotency"
	interfaces "github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/ledger"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/stats"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/storage/memory"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/storage/postgres"
)

// newTransferService builds the strategy selected by payments.backend and
// provisions its accounts before any traffic is served.
func newTransferService(ctx context.Context, cfg *config.Config, aggregator *stats.Aggregator, log *slog.Logger, opts []ledger.Option) (interfaces.TransferService, func(), error) {
	p := cfg.Payments

	switch p.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, postgres.Config{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() { db.Close() }

		store := postgres.NewPostgresTransferStore(db, p.DefaultBalanceMinorUnits)
		if cfg.Database.Migrate {
			if err := store.Migrate(ctx); err != nil {
				cleanup()
				return nil, nil, err
			}
		}

		start := time.Now()
		if err := store.Provision(ctx, p.PreloadAccounts, p.PreloadWorkers); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("provision accounts: %w", err)
		}
		log.Info("accounts provisioned", "backend", p.Backend, "count", p.PreloadAccounts, "took", time.Since(start))

		return ledger.NewDurableLedger(store, aggregator, p.TransactionTimeout, opts...), cleanup, nil

	default:
		accounts := memory.NewAccountStore(p.DefaultBalanceMinorUnits)

		start := time.Now()
		if err := accounts.Preload(ctx, p.PreloadAccounts, p.PreloadWorkers); err != nil {
			return nil, nil, fmt.Errorf("preload accounts: %w", err)
		}
		log.Info("accounts provisioned", "backend", p.Backend, "count", p.PreloadAccounts, "took", time.Since(start))

		cache := idempotency.New(p.IdempotencyTTL)
		return ledger.NewLedger(accounts, cache, aggregator, opts...), func() {}, nil
	}
}
