package app

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
	"github.com/meridianbank/transfer-service/internal/store"
	"github.com/meridianbank/transfer-service/pkg/rabbitmq"
)

// fakeRepository is an in-memory store.Repository used across the package tests.
// WithinTransaction snapshots all state before running fn and restores it when fn
// fails, mirroring the rollback behavior of the PostgreSQL implementation.
type fakeRepository struct {
	accounts map[uuid.UUID]*domain.Account
	byNumber map[string]uuid.UUID
	txns     []*domain.Transaction

	// Optional hooks for error injection.
	getAccountErr        error
	insertTransactionErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts: make(map[uuid.UUID]*domain.Account),
		byNumber: make(map[string]uuid.UUID),
	}
}

func (f *fakeRepository) addAccount(customerID uuid.UUID, number string, balance string, status domain.AccountStatus) *domain.Account {
	account := &domain.Account{
		ID:            uuid.New(),
		CustomerID:    customerID,
		AccountNumber: number,
		Balance:       mustDecimal(balance),
		Status:        status,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	f.accounts[account.ID] = account
	f.byNumber[number] = account.ID
	return account
}

func (f *fakeRepository) addTransaction(tx domain.Transaction) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	copied := tx
	f.txns = append(f.txns, &copied)
}

func (f *fakeRepository) balanceOf(id uuid.UUID) decimal.Decimal {
	return f.accounts[id].Balance
}

func (f *fakeRepository) transactionsFor(ref string) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range f.txns {
		if tx.ReferenceNumber == ref {
			out = append(out, *tx)
		}
	}
	return out
}

func (f *fakeRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if f.getAccountErr != nil {
		return nil, f.getAccountErr
	}
	account, ok := f.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	id, ok := f.byNumber[accountNumber]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return f.GetAccount(ctx, id)
}

func (f *fakeRepository) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return f.GetAccount(ctx, id)
}

func (f *fakeRepository) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	account, ok := f.accounts[id]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.Balance = balance
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if f.insertTransactionErr != nil {
		return f.insertTransactionErr
	}
	for _, existing := range f.txns {
		if existing.ReferenceNumber == tx.ReferenceNumber &&
			existing.AccountID == tx.AccountID &&
			existing.Type == tx.Type {
			return store.ErrDuplicateReference
		}
	}
	copied := *tx
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	f.txns = append(f.txns, &copied)
	return nil
}

func (f *fakeRepository) FindDebitByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error) {
	for _, tx := range f.txns {
		if tx.ReferenceNumber != referenceNumber {
			continue
		}
		if tx.Type == domain.TransactionTypeTransferOut || tx.Type == domain.TransactionTypeZelleSend {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, store.ErrTransactionNotFound
}

func (f *fakeRepository) ListTransactionsByReference(ctx context.Context, referenceNumber string) ([]domain.Transaction, error) {
	return f.transactionsFor(referenceNumber), nil
}

func (f *fakeRepository) ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range f.txns {
		if tx.AccountID == accountID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepository) MarkTransferCompleted(ctx context.Context, referenceNumber string) error {
	updated := 0
	for _, tx := range f.txns {
		if tx.ReferenceNumber == referenceNumber && tx.Status == domain.TransactionStatusPending {
			tx.Status = domain.TransactionStatusCompleted
			tx.UpdatedAt = time.Now().UTC()
			updated++
		}
	}
	if updated == 0 {
		return store.ErrTransactionNotFound
	}
	return nil
}

func (f *fakeRepository) MarkTransferFailed(ctx context.Context, referenceNumber string, reason string) error {
	updated := 0
	for _, tx := range f.txns {
		if tx.ReferenceNumber == referenceNumber && tx.Status == domain.TransactionStatusPending {
			tx.Status = domain.TransactionStatusFailed
			tx.FailureReason = &reason
			tx.UpdatedAt = time.Now().UTC()
			updated++
		}
	}
	if updated == 0 {
		return store.ErrTransactionNotFound
	}
	return nil
}

func (f *fakeRepository) ListStalePendingTransfers(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range f.txns {
		if tx.Type == domain.TransactionTypeTransferOut &&
			tx.Status == domain.TransactionStatusPending &&
			tx.Amount.IsNegative() &&
			tx.CreatedAt.Before(olderThan) {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (f *fakeRepository) ZelleOutflowSince(ctx context.Context, accountID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, tx := range f.txns {
		if tx.AccountID != accountID || tx.Type != domain.TransactionTypeZelleSend {
			continue
		}
		if tx.Status != domain.TransactionStatusPending && tx.Status != domain.TransactionStatusCompleted {
			continue
		}
		if tx.CreatedAt.Before(since) {
			continue
		}
		sum = sum.Add(tx.Amount.Neg())
	}
	return sum, nil
}

func (f *fakeRepository) WithinTransaction(ctx context.Context, fn func(store.Repository) error) error {
	accountsSnapshot := make(map[uuid.UUID]*domain.Account, len(f.accounts))
	for id, account := range f.accounts {
		copied := *account
		accountsSnapshot[id] = &copied
	}
	txnsSnapshot := make([]*domain.Transaction, len(f.txns))
	for i, tx := range f.txns {
		copied := *tx
		txnsSnapshot[i] = &copied
	}

	if err := fn(f); err != nil {
		f.accounts = accountsSnapshot
		f.txns = txnsSnapshot
		return err
	}
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	Exchange   string
	RoutingKey string
	Reference  string
}

func (p *capturingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.events = append(p.events, publishedEvent{Exchange: exchange, RoutingKey: routingKey})
	return nil
}

func (p *capturingPublisher) PublishTransferEvent(ctx context.Context, exchange, routingKey string, event rabbitmq.TransferEvent) error {
	p.events = append(p.events, publishedEvent{Exchange: exchange, RoutingKey: routingKey, Reference: event.ReferenceNumber})
	return nil
}

func (p *capturingPublisher) Close() {}
