package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
)

func approved(fee string, balance string) *domain.Authorization {
	return &domain.Authorization{
		Approved:        true,
		Fee:             mustDecimal(fee),
		SnapshotBalance: mustDecimal(balance),
	}
}

func TestApply_InternalTransferConservesFunds(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "500.00", domain.AccountStatusActive)
	dest := repo.addAccount(uuid.New(), "1000000002", "50.00", domain.AccountStatusActive)

	result, err := NewApplier(repo).Apply(context.Background(), domain.TransferRequest{
		SourceAccountID:          source.ID,
		TransferType:             domain.TransferTypeInternal,
		Amount:                   mustDecimal("100.00"),
		Memo:                     "rent split",
		DestinationAccountNumber: "1000000002",
	}, approved("0", "500.00"))
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if result.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected completed status, got %s", result.Status)
	}
	if result.Replayed {
		t.Fatal("fresh transfer must not be marked replayed")
	}
	if !repo.balanceOf(source.ID).Equal(mustDecimal("400.00")) {
		t.Fatalf("expected source balance 400.00, got %s", repo.balanceOf(source.ID))
	}
	if !repo.balanceOf(dest.ID).Equal(mustDecimal("150.00")) {
		t.Fatalf("expected destination balance 150.00, got %s", repo.balanceOf(dest.ID))
	}

	rows := repo.transactionsFor(result.ReferenceNumber)
	if len(rows) != 2 {
		t.Fatalf("expected debit and credit rows, got %d", len(rows))
	}

	// Conservation: signed amounts across the ledger unit sum to zero.
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(row.Amount)
		if row.Status != domain.TransactionStatusCompleted {
			t.Fatalf("internal transfer rows must complete immediately, got %s", row.Status)
		}
	}
	if !sum.IsZero() {
		t.Fatalf("expected ledger rows to sum to zero, got %s", sum)
	}
}

func TestApply_ExternalTransferReservesPendingDebitAndFee(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "2000.00", domain.AccountStatusActive)

	result, err := NewApplier(repo).Apply(context.Background(), domain.TransferRequest{
		SourceAccountID: source.ID,
		TransferType:    domain.TransferTypeDomesticExternal,
		Amount:          mustDecimal("1200.00"),
		RecipientName:   "Jordan Avery",
		BankName:        "First Harbor Bank",
		RoutingDetail:   "021000021",
	}, approved("5", "2000.00"))
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if result.Status != domain.TransactionStatusPending {
		t.Fatalf("expected pending status for external transfer, got %s", result.Status)
	}
	if !result.Fee.Equal(mustDecimal("5")) {
		t.Fatalf("expected $5.00 fee, got %s", result.Fee)
	}
	if !repo.balanceOf(source.ID).Equal(mustDecimal("795.00")) {
		t.Fatalf("expected source debited amount plus fee, got %s", repo.balanceOf(source.ID))
	}

	rows := repo.transactionsFor(result.ReferenceNumber)
	if len(rows) != 2 {
		t.Fatalf("expected debit and fee rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Status != domain.TransactionStatusPending {
			t.Fatalf("external transfer rows must await settlement, got %s", row.Status)
		}
		if !row.Amount.IsNegative() {
			t.Fatalf("source-side rows must be negative, got %s", row.Amount)
		}
	}
}

func TestApply_RecipientNotFoundRollsBack(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "500.00", domain.AccountStatusActive)

	_, err := NewApplier(repo).Apply(context.Background(), domain.TransferRequest{
		SourceAccountID:          source.ID,
		TransferType:             domain.TransferTypeInternal,
		Amount:                   mustDecimal("100.00"),
		DestinationAccountNumber: "9999999999",
	}, approved("0", "500.00"))
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}

	if !repo.balanceOf(source.ID).Equal(mustDecimal("500.00")) {
		t.Fatalf("expected balance unchanged after rollback, got %s", repo.balanceOf(source.ID))
	}
	if len(repo.txns) != 0 {
		t.Fatalf("expected no ledger rows after rollback, got %d", len(repo.txns))
	}
}

func TestApply_SelfTransferRejected(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "500.00", domain.AccountStatusActive)

	_, err := NewApplier(repo).Apply(context.Background(), domain.TransferRequest{
		SourceAccountID:          source.ID,
		TransferType:             domain.TransferTypeInternal,
		Amount:                   mustDecimal("100.00"),
		DestinationAccountNumber: "1000000001",
	}, approved("0", "500.00"))
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
}

func TestApply_BalanceRecheckedUnderLock(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	// The authorization snapshot said 500.00, but the account has since been drained.
	source := repo.addAccount(customerID, "1000000001", "40.00", domain.AccountStatusActive)
	repo.addAccount(uuid.New(), "1000000002", "0.00", domain.AccountStatusActive)

	_, err := NewApplier(repo).Apply(context.Background(), domain.TransferRequest{
		SourceAccountID:          source.ID,
		TransferType:             domain.TransferTypeInternal,
		Amount:                   mustDecimal("100.00"),
		DestinationAccountNumber: "1000000002",
	}, approved("0", "500.00"))
	if !errors.Is(err, ErrInsufficientFundsAtCommit) {
		t.Fatalf("expected ErrInsufficientFundsAtCommit, got %v", err)
	}
	if !repo.balanceOf(source.ID).Equal(mustDecimal("40.00")) {
		t.Fatalf("expected balance unchanged, got %s", repo.balanceOf(source.ID))
	}
	if len(repo.txns) != 0 {
		t.Fatalf("expected no ledger rows, got %d", len(repo.txns))
	}
}

func TestApply_StatusRecheckedUnderLock(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "500.00", domain.AccountStatusSuspended)
	repo.addAccount(uuid.New(), "1000000002", "0.00", domain.AccountStatusActive)

	_, err := NewApplier(repo).Apply(context.Background(), domain.TransferRequest{
		SourceAccountID:          source.ID,
		TransferType:             domain.TransferTypeInternal,
		Amount:                   mustDecimal("100.00"),
		DestinationAccountNumber: "1000000002",
	}, approved("0", "500.00"))
	if !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("expected ErrAccountNotActive, got %v", err)
	}
}

func TestApply_IdempotentReplay(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "2000.00", domain.AccountStatusActive)
	dest := repo.addAccount(uuid.New(), "1000000002", "0.00", domain.AccountStatusActive)
	applier := NewApplier(repo)

	req := domain.TransferRequest{
		SourceAccountID:          source.ID,
		TransferType:             domain.TransferTypeInternal,
		Amount:                   mustDecimal("250.00"),
		ReferenceNumber:          "TRF-20260315-CAFEBABE0001",
		DestinationAccountNumber: "1000000002",
	}

	first, err := applier.Apply(context.Background(), req, approved("0", "2000.00"))
	if err != nil {
		t.Fatalf("first Apply returned error: %v", err)
	}
	second, err := applier.Apply(context.Background(), req, approved("0", "1750.00"))
	if err != nil {
		t.Fatalf("second Apply returned error: %v", err)
	}

	if !second.Replayed {
		t.Fatal("expected second Apply to be a replay")
	}
	if second.ReferenceNumber != first.ReferenceNumber {
		t.Fatalf("replay must return the original reference, got %s and %s", first.ReferenceNumber, second.ReferenceNumber)
	}
	if !repo.balanceOf(source.ID).Equal(mustDecimal("1750.00")) {
		t.Fatalf("expected balance debited exactly once, got %s", repo.balanceOf(source.ID))
	}
	if !repo.balanceOf(dest.ID).Equal(mustDecimal("250.00")) {
		t.Fatalf("expected destination credited exactly once, got %s", repo.balanceOf(dest.ID))
	}
}

func TestApply_ReplayReportsFee(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "5000.00", domain.AccountStatusActive)
	applier := NewApplier(repo)

	req := domain.TransferRequest{
		SourceAccountID: source.ID,
		TransferType:    domain.TransferTypeInternational,
		Amount:          mustDecimal("1000.00"),
		ReferenceNumber: "TRF-20260315-CAFEBABE0002",
		RecipientName:   "Ana Souza",
		BankName:        "Banco Central",
	}

	if _, err := applier.Apply(context.Background(), req, approved("30", "5000.00")); err != nil {
		t.Fatalf("first Apply returned error: %v", err)
	}
	replay, err := applier.Apply(context.Background(), req, approved("30", "3970.00"))
	if err != nil {
		t.Fatalf("replay Apply returned error: %v", err)
	}
	if !replay.Fee.Equal(mustDecimal("30")) {
		t.Fatalf("expected replayed fee of $30.00, got %s", replay.Fee)
	}
}

func TestApply_CallerReferenceConflict(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "2000.00", domain.AccountStatusActive)
	repo.addAccount(uuid.New(), "1000000002", "0.00", domain.AccountStatusActive)
	applier := NewApplier(repo)

	ref := "TRF-20260315-CAFEBABE0003"
	first := domain.TransferRequest{
		SourceAccountID:          source.ID,
		TransferType:             domain.TransferTypeInternal,
		Amount:                   mustDecimal("100.00"),
		ReferenceNumber:          ref,
		DestinationAccountNumber: "1000000002",
	}
	if _, err := applier.Apply(context.Background(), first, approved("0", "2000.00")); err != nil {
		t.Fatalf("first Apply returned error: %v", err)
	}

	// Same reference, different amount: this is a different transfer, not a retry.
	conflicting := first
	conflicting.Amount = mustDecimal("200.00")
	_, err := applier.Apply(context.Background(), conflicting, approved("0", "1900.00"))
	if !errors.Is(err, ErrReferenceConflict) {
		t.Fatalf("expected ErrReferenceConflict, got %v", err)
	}
	if !repo.balanceOf(source.ID).Equal(mustDecimal("1900.00")) {
		t.Fatalf("expected only the first transfer to debit, got %s", repo.balanceOf(source.ID))
	}
}

func TestApply_RequiresAuthorization(t *testing.T) {
	repo := newFakeRepository()
	applier := NewApplier(repo)

	req := domain.TransferRequest{
		SourceAccountID:          uuid.New(),
		TransferType:             domain.TransferTypeInternal,
		Amount:                   mustDecimal("10.00"),
		DestinationAccountNumber: "1000000002",
	}

	if _, err := applier.Apply(context.Background(), req, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for nil authorization, got %v", err)
	}
	if _, err := applier.Apply(context.Background(), req, &domain.Authorization{Approved: false}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for rejected authorization, got %v", err)
	}
}

func TestApply_ZelleSendUsesZelleDebitType(t *testing.T) {
	repo := newFakeRepository()
	customerID := uuid.New()
	source := repo.addAccount(customerID, "1000000001", "500.00", domain.AccountStatusActive)

	result, err := NewApplier(repo).Apply(context.Background(), domain.TransferRequest{
		SourceAccountID:  source.ID,
		TransferType:     domain.TransferTypeZelleSend,
		Amount:           mustDecimal("75.00"),
		RecipientContact: "user@example.com",
	}, approved("0", "500.00"))
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if result.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected zelle send to complete immediately, got %s", result.Status)
	}
	rows := repo.transactionsFor(result.ReferenceNumber)
	if len(rows) != 1 {
		t.Fatalf("expected a single debit row, got %d", len(rows))
	}
	if rows[0].Type != domain.TransactionTypeZelleSend {
		t.Fatalf("expected zelle_send debit type, got %s", rows[0].Type)
	}
}
