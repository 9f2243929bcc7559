package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	interfaces "github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces" // interface TransferStore
	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/storage"
)

//go:embed schema.sql
var schema string

type PostgresTransferStore struct {
	db             *sql.DB // connection pool, owns accounts and transfers
	defaultBalance int64   // balance of accounts created on first reference
}

func NewPostgresTransferStore(db *sql.DB, defaultBalance int64) *PostgresTransferStore {
	return &PostgresTransferStore{
		db:             db,
		defaultBalance: defaultBalance,
	}
}

// Migrate creates the accounts and transfers tables if they do not exist.
func (p *PostgresTransferStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Provision inserts ACC-00000000 .. ACC-(n-1) with the default balance, one
// statement per chunk. Existing accounts are left untouched.
func (p *PostgresTransferStore) Provision(ctx context.Context, n, workers int) error {
	const query = `INSERT INTO accounts (id, balance_minor_units)
	SELECT 'ACC-' || lpad(g::text, 8, '0'), $3
	FROM generate_series($1::int, $2::int - 1) AS g
	ON CONFLICT (id) DO NOTHING`

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, chunk := range storage.Chunks(n, storage.DefaultChunkSize) {
		g.Go(func() error {
			if _, err := p.db.ExecContext(ctx, query, chunk.Start, chunk.End, p.defaultBalance); err != nil {
				return fmt.Errorf("provision [%d,%d): %w", chunk.Start, chunk.End, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *PostgresTransferStore) FindTransfer(ctx context.Context, idempotencyKey string) (models.TransferOutcome, error) {
	const query = `SELECT idempotency_key, status, message, processing_micros,
	from_balance_after, to_balance_after, amount_minor_units
	FROM transfers WHERE idempotency_key = $1`

	var (
		out    models.TransferOutcome
		status string
	)
	err := p.db.QueryRowContext(ctx, query, idempotencyKey).Scan(
		&out.TransferID,
		&status,
		&out.Message,
		&out.ProcessingMicros,
		&out.FromBalanceAfter,
		&out.ToBalanceAfter,
		&out.AmountMinorUnits,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransferOutcome{}, models.ErrTransferNotFound
	}
	if err != nil {
		return models.TransferOutcome{}, err
	}

	if out.Status, err = models.ParseTransferStatus(status); err != nil {
		return models.TransferOutcome{}, fmt.Errorf("transfer %q: %w", idempotencyKey, err)
	}
	return out, nil
}

// ExecuteTransfer moves the amount and writes the audit row in one
// transaction. Both account rows are locked in id order so that transfers
// in opposite directions cannot deadlock. A rejected transfer is persisted
// too; it only leaves the balances alone.
func (p *PostgresTransferStore) ExecuteTransfer(ctx context.Context, req models.TransferRequest) (out models.TransferOutcome, err error) {
	start := time.Now()

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return out, classify(err)
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
			err = classify(err)
		}
	}()

	// byte order, the same order as COLLATE "C" in lockAccounts
	first, second := req.FromAccount, req.ToAccount
	if second < first {
		first, second = second, first
	}
	if err = p.ensureAccount(ctx, dbTx, first); err != nil {
		return out, err
	}
	if err = p.ensureAccount(ctx, dbTx, second); err != nil {
		return out, err
	}
	if err = p.lockAccounts(ctx, dbTx, first, second); err != nil {
		return out, err
	}

	debited, err := p.debit(ctx, dbTx, req.FromAccount, req.AmountMinorUnits)
	if err != nil {
		return out, err
	}
	if debited {
		if err = p.credit(ctx, dbTx, req.ToAccount, req.AmountMinorUnits); err != nil {
			return out, err
		}
	}

	out = models.TransferOutcome{
		TransferID:       req.IdempotencyKey,
		Status:           models.StatusCompleted,
		Message:          models.MessageCompleted,
		AmountMinorUnits: req.AmountMinorUnits,
	}
	if !debited {
		out.Status = models.StatusFailedInsufficientFunds
		out.Message = models.MessageInsufficientFunds
	}
	if out.FromBalanceAfter, err = p.balance(ctx, dbTx, req.FromAccount); err != nil {
		return out, err
	}
	if out.ToBalanceAfter, err = p.balance(ctx, dbTx, req.ToAccount); err != nil {
		return out, err
	}
	out.ProcessingMicros = time.Since(start).Microseconds()

	if err = p.saveTransfer(ctx, dbTx, req, out); err != nil {
		return out, err
	}
	if err = dbTx.Commit(); err != nil {
		return out, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (p *PostgresTransferStore) ensureAccount(ctx context.Context, dbTx *sql.Tx, accountID string) error {
	const query = `INSERT INTO accounts (id, balance_minor_units) VALUES ($1, $2)
	ON CONFLICT (id) DO NOTHING`

	_, err := dbTx.ExecContext(ctx, query, accountID, p.defaultBalance)
	return err
}

func (p *PostgresTransferStore) lockAccounts(ctx context.Context, dbTx *sql.Tx, ids ...string) error {
	const query = `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id COLLATE "C" FOR UPDATE`

	rows, err := dbTx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		locked++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if locked != len(ids) {
		return fmt.Errorf("locked %d of %d accounts", locked, len(ids))
	}
	return nil
}

// debit reports false when the balance does not cover the amount.
func (p *PostgresTransferStore) debit(ctx context.Context, dbTx *sql.Tx, accountID string, amount int64) (bool, error) {
	const query = `UPDATE accounts SET balance_minor_units = balance_minor_units - $1, updated_at = CURRENT_TIMESTAMP
	WHERE id = $2 AND balance_minor_units >= $1`

	res, err := dbTx.ExecContext(ctx, query, amount, accountID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *PostgresTransferStore) credit(ctx context.Context, dbTx *sql.Tx, accountID string, amount int64) error {
	const query = `UPDATE accounts SET balance_minor_units = balance_minor_units + $1, updated_at = CURRENT_TIMESTAMP
	WHERE id = $2`

	_, err := dbTx.ExecContext(ctx, query, amount, accountID)
	return err
}

func (p *PostgresTransferStore) balance(ctx context.Context, dbTx *sql.Tx, accountID string) (int64, error) {
	const query = `SELECT balance_minor_units FROM accounts WHERE id = $1`

	var balance int64
	err := dbTx.QueryRowContext(ctx, query, accountID).Scan(&balance)
	return balance, err
}

func (p *PostgresTransferStore) saveTransfer(ctx context.Context, dbTx *sql.Tx, req models.TransferRequest, out models.TransferOutcome) error {
	const query = `INSERT INTO transfers (idempotency_key, from_account, to_account, amount_minor_units,
	status, message, processing_micros, from_balance_after, to_balance_after)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := dbTx.ExecContext(ctx, query,
		req.IdempotencyKey, req.FromAccount, req.ToAccount, req.AmountMinorUnits,
		string(out.Status), out.Message, out.ProcessingMicros, out.FromBalanceAfter, out.ToBalanceAfter,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", models.ErrDuplicateTransfer, err)
	}
	return err
}

// Balance returns ErrAccountNotFound for accounts that were never created.
func (p *PostgresTransferStore) Balance(ctx context.Context, accountID string) (int64, error) {
	const query = `SELECT balance_minor_units FROM accounts WHERE id = $1`

	var balance int64
	err := p.db.QueryRowContext(ctx, query, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrAccountNotFound
	}
	return balance, err
}

func (p *PostgresTransferStore) CountAccounts(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT count(*) FROM accounts`)
}

func (p *PostgresTransferStore) CountTransfers(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT count(*) FROM transfers`)
}

func (p *PostgresTransferStore) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

var _ interfaces.TransferStore = (*PostgresTransferStore)(nil)
