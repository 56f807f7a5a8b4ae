/**
 * @description
 * This file defines the `Repository` interface: the contract the transfer-service
 * expects from the account store and the ledger store. Defining an interface decouples
 * the authorization and ledger-application logic from the PostgreSQL implementation
 * and lets tests substitute in-memory fakes.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid, github.com/shopspring/decimal: Identity and money types.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateReference  = errors.New("reference number already exists")
)

// Repository defines the data access operations used by the service.
//
// GetAccountForUpdate and UpdateAccountBalance are only meaningful inside
// WithinTransaction, which runs the given function against a repository bound to a
// single database transaction: the function's effects commit together or not at all,
// and rows read FOR UPDATE stay locked until that decision is made.
type Repository interface {
	// Account store.
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	// Ledger store.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	FindDebitByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error)
	ListTransactionsByReference(ctx context.Context, referenceNumber string) ([]domain.Transaction, error)
	ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
	MarkTransferCompleted(ctx context.Context, referenceNumber string) error
	MarkTransferFailed(ctx context.Context, referenceNumber string, reason string) error
	ListStalePendingTransfers(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error)

	// Velocity aggregation: total zelle_send outflow (completed + pending) for the
	// account since the given instant, as a non-negative decimal.
	ZelleOutflowSince(ctx context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error)

	// WithinTransaction executes fn against a repository bound to one database
	// transaction. A non-nil error from fn rolls everything back.
	WithinTransaction(ctx context.Context, fn func(Repository) error) error
}
