/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains the SQL for account reads, row-locked balance mutations, ledger row
 * inserts, and the Zelle velocity aggregation. `WithinTransaction` binds a repository
 * to a single pgx transaction so the ledger applier can make multi-row mutations
 * atomic.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/shopspring/decimal: Exact currency arithmetic; NUMERIC columns are
 *   moved through text to avoid lossy float conversions.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
)

const pgUniqueViolation = "23505"

// dbtx is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx, so every
// query method works identically inside and outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is the concrete Repository backed by PostgreSQL.
type PostgresRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository bound to a connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: pool, pool: pool}
}

const accountColumns = `id, customer_id, account_number, balance::text, status, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		balance string
	)
	err := row.Scan(
		&account.ID,
		&account.CustomerID,
		&account.AccountNumber,
		&balance,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccount retrieves an account by its primary id.
func (r *PostgresRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// GetAccountByNumber retrieves an account by its immutable account number.
func (r *PostgresRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountNumber))
}

// GetAccountForUpdate retrieves an account and takes a row lock on it. Only useful
// inside WithinTransaction; the lock is held until commit or rollback.
func (r *PostgresRepository) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// UpdateAccountBalance sets an account's balance to the given value.
func (r *PostgresRepository) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1::numeric, updated_at = NOW() WHERE id = $2`
	result, err := r.db.Exec(ctx, query, balance.StringFixed(2), id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// InsertTransaction appends one ledger row. A unique-index conflict on the reference
// number surfaces as ErrDuplicateReference so the applier can resolve it.
func (r *PostgresRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, account_id, counterparty_account_id, type, status, amount, reference_number, memo, failure_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.CounterpartyAccountID,
		tx.Type,
		tx.Status,
		tx.Amount.StringFixed(2),
		tx.ReferenceNumber,
		tx.Memo,
		tx.FailureReason,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

const transactionColumns = `id, account_id, counterparty_account_id, type, status, amount::text, reference_number, COALESCE(memo, ''), failure_reason, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		amount string
	)
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.CounterpartyAccountID,
		&tx.Type,
		&tx.Status,
		&amount,
		&tx.ReferenceNumber,
		&tx.Memo,
		&tx.FailureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *PostgresRepository) collectTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// FindDebitByReference returns the source-side debit row of a transfer, which is the
// row the applier inspects for idempotent replays.
func (r *PostgresRepository) FindDebitByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_number = $1 AND amount < 0 AND type <> 'fee'
		ORDER BY created_at
		LIMIT 1
	`
	return scanTransaction(r.db.QueryRow(ctx, query, referenceNumber))
}

// ListTransactionsByReference returns every ledger row generated by one transfer.
func (r *PostgresRepository) ListTransactionsByReference(ctx context.Context, referenceNumber string) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_number = $1
		ORDER BY created_at
	`
	return r.collectTransactions(ctx, query, referenceNumber)
}

// ListTransactionsByAccount returns an account's ledger history, newest first.
func (r *PostgresRepository) ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.collectTransactions(ctx, query, accountID, limit, offset)
}

// MarkTransferCompleted moves every still-pending row of a transfer to completed.
func (r *PostgresRepository) MarkTransferCompleted(ctx context.Context, referenceNumber string) error {
	query := `
		UPDATE transactions
		SET status = 'completed', updated_at = NOW()
		WHERE reference_number = $1 AND status = 'pending'
	`
	result, err := r.db.Exec(ctx, query, referenceNumber)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// MarkTransferFailed moves every still-pending row of a transfer to failed and
// records the reason. Completed rows are left untouched.
func (r *PostgresRepository) MarkTransferFailed(ctx context.Context, referenceNumber string, reason string) error {
	query := `
		UPDATE transactions
		SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE reference_number = $1 AND status = 'pending'
	`
	result, err := r.db.Exec(ctx, query, referenceNumber, reason)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// ListStalePendingTransfers returns external debit rows that have been waiting for
// settlement since before the cutoff.
func (r *PostgresRepository) ListStalePendingTransfers(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE type = 'transfer_out' AND status = 'pending' AND amount < 0 AND created_at < $1
		ORDER BY created_at
	`
	return r.collectTransactions(ctx, query, olderThan)
}

// ZelleOutflowSince sums completed and pending zelle_send outflow for an account since
// the given instant. Debits are stored negative, so the sum is negated back into a
// non-negative outflow total.
func (r *PostgresRepository) ZelleOutflowSince(ctx context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(-amount), 0)::text
		FROM transactions
		WHERE account_id = $1
		  AND type = 'zelle_send'
		  AND status IN ('pending', 'completed')
		  AND created_at >= $2
	`
	var total string
	if err := r.db.QueryRow(ctx, query, accountID, since).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(total)
}

// WithinTransaction runs fn against a repository bound to one database transaction.
// Nested calls reuse the already-open transaction.
func (r *PostgresRepository) WithinTransaction(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresRepository{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
