/**
 * @description
 * This file contains the ledger applier: the single write path that turns an approved
 * transfer into balance changes plus ledger rows. Everything happens inside one
 * database transaction, so the debit, the credit, and the transaction rows become
 * visible together or not at all; a failure (including a context timeout) after the
 * debit rolls the whole unit back rather than leaving a debit without its matching
 * rows.
 *
 * Concurrency: the source balance is re-read under a row lock immediately before
 * mutation, which closes the race between authorize and apply. When two accounts are
 * involved they are locked in ascending id order so opposite-direction transfers
 * cannot deadlock; unrelated accounts never block each other.
 *
 * Idempotency: the reference number is the idempotency key. A repeated Apply with a
 * reference that already produced a transfer returns the prior result instead of
 * re-mutating balances.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 * - github.com/shopspring/decimal, github.com/google/uuid.
 */

package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
	"github.com/meridianbank/transfer-service/internal/store"
)

// maxReferenceAttempts bounds retries after a generated reference collides with an
// existing row. Collisions are astronomically unlikely; exhausting the budget means
// something is wrong with the ledger and the caller should see a conflict.
const maxReferenceAttempts = 3

// ErrSelfTransfer rejects internal transfers whose destination resolves back to the
// source account.
var ErrSelfTransfer = errors.New("source and destination accounts are identical")

// Applier atomically realizes approved transfers against the account and ledger stores.
type Applier struct {
	repo store.Repository
}

// NewApplier creates an applier over the given repository.
func NewApplier(repo store.Repository) *Applier {
	return &Applier{repo: repo}
}

// Apply realizes an approved transfer. The caller must not pass a rejected or missing
// authorization. Once the mutation phase begins the operation runs to a terminal
// state: committed, or rolled back with no effects.
func (a *Applier) Apply(ctx context.Context, req domain.TransferRequest, authz *domain.Authorization) (*domain.ApplyResult, error) {
	if authz == nil || !authz.Approved {
		return nil, ErrNotAuthorized
	}

	ref := strings.TrimSpace(req.ReferenceNumber)
	callerSupplied := ref != ""
	if !callerSupplied {
		ref = NewReferenceNumber()
	}

	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		prior, err := a.replayResult(ctx, ref, req)
		if err == nil && prior != nil {
			return prior, nil
		}
		if err != nil {
			if !errors.Is(err, ErrReferenceConflict) || callerSupplied {
				return nil, err
			}
			// A generated reference happened to exist for an unrelated transfer;
			// try again with a fresh one.
			ref = NewReferenceNumber()
			continue
		}

		status, err := a.applyOnce(ctx, ref, req, authz)
		if err == nil {
			return &domain.ApplyResult{
				ReferenceNumber: ref,
				Fee:             authz.Fee,
				Status:          status,
			}, nil
		}
		if errors.Is(err, store.ErrDuplicateReference) {
			// Lost a race on the unique index. Either this exact request already
			// committed (replay it on the next loop pass) or the number belongs to
			// someone else (conflict or regenerate).
			continue
		}
		return nil, err
	}

	return nil, ErrReferenceConflict
}

// replayResult looks for an existing transfer with this reference. It returns the
// prior result when the existing transfer matches the request, nil when the reference
// is unused, and ErrReferenceConflict when the reference belongs to a different
// transfer.
func (a *Applier) replayResult(ctx context.Context, ref string, req domain.TransferRequest) (*domain.ApplyResult, error) {
	debit, err := a.repo.FindDebitByReference(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if debit.AccountID != req.SourceAccountID ||
		debit.Type != debitTypeFor(req.TransferType) ||
		!debit.Amount.Equal(req.Amount.Neg()) {
		return nil, ErrReferenceConflict
	}

	rows, err := a.repo.ListTransactionsByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	fee := decimal.Zero
	for _, row := range rows {
		if row.Type == domain.TransactionTypeFee {
			fee = fee.Add(row.Amount.Neg())
		}
	}

	return &domain.ApplyResult{
		ReferenceNumber: ref,
		Fee:             fee,
		Status:          debit.Status,
		Replayed:        true,
	}, nil
}

// applyOnce runs the atomic mutation unit for one transfer attempt.
func (a *Applier) applyOnce(ctx context.Context, ref string, req domain.TransferRequest, authz *domain.Authorization) (domain.TransactionStatus, error) {
	total := req.Amount.Add(authz.Fee)
	rowStatus := domain.TransactionStatusCompleted
	if req.IsExternal() {
		// Optimistic debit: funds are reserved now, settlement confirms later.
		rowStatus = domain.TransactionStatusPending
	}

	err := a.repo.WithinTransaction(ctx, func(r store.Repository) error {
		var destID *uuid.UUID
		if req.TransferType == domain.TransferTypeInternal {
			dest, err := r.GetAccountByNumber(ctx, req.DestinationAccountNumber)
			if err != nil {
				if errors.Is(err, store.ErrAccountNotFound) {
					return ErrRecipientNotFound
				}
				return fmt.Errorf("resolve destination: %w", err)
			}
			if dest.ID == req.SourceAccountID {
				return ErrSelfTransfer
			}
			destID = &dest.ID
		}

		source, dest, err := lockAccounts(ctx, r, req.SourceAccountID, destID)
		if err != nil {
			return err
		}

		// Re-validate against the locked row; the snapshot used at authorization
		// time may be stale by now.
		if source.Status != domain.AccountStatusActive {
			return ErrAccountNotActive
		}
		if source.Balance.LessThan(total) {
			return ErrInsufficientFundsAtCommit
		}

		if err := r.UpdateAccountBalance(ctx, source.ID, source.Balance.Sub(total)); err != nil {
			return fmt.Errorf("debit source: %w", err)
		}
		if dest != nil {
			if err := r.UpdateAccountBalance(ctx, dest.ID, dest.Balance.Add(req.Amount)); err != nil {
				return fmt.Errorf("credit destination: %w", err)
			}
		}

		debit := &domain.Transaction{
			ID:                    uuid.New(),
			AccountID:             source.ID,
			CounterpartyAccountID: destID,
			Type:                  debitTypeFor(req.TransferType),
			Status:                rowStatus,
			Amount:                req.Amount.Neg(),
			ReferenceNumber:       ref,
			Memo:                  req.Memo,
		}
		if err := r.InsertTransaction(ctx, debit); err != nil {
			return err
		}

		if authz.Fee.IsPositive() {
			feeRow := &domain.Transaction{
				ID:              uuid.New(),
				AccountID:       source.ID,
				Type:            domain.TransactionTypeFee,
				Status:          rowStatus,
				Amount:          authz.Fee.Neg(),
				ReferenceNumber: ref,
				Memo:            fmt.Sprintf("%s transfer fee", req.TransferType),
			}
			if err := r.InsertTransaction(ctx, feeRow); err != nil {
				return err
			}
		}

		if dest != nil {
			sourceID := source.ID
			credit := &domain.Transaction{
				ID:                    uuid.New(),
				AccountID:             dest.ID,
				CounterpartyAccountID: &sourceID,
				Type:                  domain.TransactionTypeTransferIn,
				Status:                domain.TransactionStatusCompleted,
				Amount:                req.Amount,
				ReferenceNumber:       ref,
				Memo:                  req.Memo,
			}
			if err := r.InsertTransaction(ctx, credit); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return "", err
	}
	return rowStatus, nil
}

// lockAccounts takes FOR UPDATE locks on the source and (optionally) destination
// accounts in ascending id order, so two transfers touching the same pair of accounts
// in opposite directions acquire their locks in the same sequence.
func lockAccounts(ctx context.Context, r store.Repository, sourceID uuid.UUID, destID *uuid.UUID) (*domain.Account, *domain.Account, error) {
	if destID == nil {
		source, err := r.GetAccountForUpdate(ctx, sourceID)
		if err != nil {
			return nil, nil, err
		}
		return source, nil, nil
	}

	first, second := sourceID, *destID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	a1, err := r.GetAccountForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	a2, err := r.GetAccountForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if a1.ID == sourceID {
		return a1, a2, nil
	}
	return a2, a1, nil
}

// debitTypeFor maps a transfer type to the ledger row type of its source-side debit.
func debitTypeFor(t domain.TransferType) domain.TransactionType {
	if t == domain.TransferTypeZelleSend {
		return domain.TransactionTypeZelleSend
	}
	return domain.TransactionTypeTransferOut
}
