/**
 * @description
 * This file contains the transfer authorizer: the read-only decision step that
 * validates a movement request, prices its fee, and checks balance and Zelle
 * velocity limits. Authorize performs no writes, so it is freely cancellable and its
 * result is reproducible given identical inputs and store snapshots.
 *
 * Order of checks matters: request shape and contact format are rejected before any
 * store access, the manual-review ceiling is enforced regardless of balance, and
 * velocity is evaluated last against calendar-day and calendar-month windows.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 * - github.com/shopspring/decimal: Exact currency arithmetic.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
	"github.com/meridianbank/transfer-service/internal/store"
)

// Limits holds the product limits enforced during authorization.
type Limits struct {
	ZellePerTransaction   decimal.Decimal
	ZelleDaily            decimal.Decimal
	ZelleMonthly          decimal.Decimal
	ExternalReviewCeiling decimal.Decimal
}

// DefaultLimits returns the standard product limits: $2,500.00 per Zelle transaction
// and per day, $20,000.00 per month, and a $25,000.00 manual-review ceiling for
// anything leaving the source account other than an internal book transfer.
func DefaultLimits() Limits {
	return Limits{
		ZellePerTransaction:   decimal.NewFromInt(2500),
		ZelleDaily:            decimal.NewFromInt(2500),
		ZelleMonthly:          decimal.NewFromInt(20000),
		ExternalReviewCeiling: decimal.NewFromInt(25000),
	}
}

// Authorizer decides whether a requested transfer may proceed.
type Authorizer struct {
	repo   store.Repository
	limits Limits
	now    func() time.Time
}

// NewAuthorizer creates an authorizer over the given repository and limits.
func NewAuthorizer(repo store.Repository, limits Limits) *Authorizer {
	return &Authorizer{repo: repo, limits: limits, now: time.Now}
}

// Authorize validates the request and returns an approval with the computed fee, or
// a typed rejection error. It only reads; balances are never mutated here.
func (a *Authorizer) Authorize(ctx context.Context, auth domain.AuthContext, req domain.TransferRequest) (*domain.Authorization, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IsZelle() {
		if !ValidZelleContact(req.RecipientContact) {
			return nil, ErrInvalidContact
		}
		if req.Amount.GreaterThan(a.limits.ZellePerTransaction) {
			return nil, ErrZelleTransactionLimit
		}
	}

	if req.TransferType != domain.TransferTypeInternal && req.Amount.GreaterThan(a.limits.ExternalReviewCeiling) {
		return nil, ErrLimitRequiresReview
	}

	account, err := a.repo.GetAccount(ctx, req.SourceAccountID)
	if err != nil {
		return nil, err
	}
	if account.CustomerID != auth.CustomerID {
		return nil, ErrAccountAccessDenied
	}
	if account.Status != domain.AccountStatusActive {
		return nil, ErrAccountNotActive
	}

	fee := FeeFor(req.TransferType, req.Amount)
	if account.Balance.LessThan(req.Amount.Add(fee)) {
		return nil, ErrInsufficientFunds
	}

	if req.IsZelle() {
		if err := a.checkVelocity(ctx, account, req.Amount); err != nil {
			return nil, err
		}
	}

	return &domain.Authorization{
		Approved:        true,
		Fee:             fee,
		SnapshotBalance: account.Balance,
	}, nil
}

// checkVelocity enforces the calendar-day and calendar-month Zelle send limits.
func (a *Authorizer) checkVelocity(ctx context.Context, account *domain.Account, amount decimal.Decimal) error {
	now := a.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	dailySum, err := a.repo.ZelleOutflowSince(ctx, account.ID, startOfDay)
	if err != nil {
		return fmt.Errorf("daily zelle outflow lookup: %w", err)
	}
	if dailySum.Add(amount).GreaterThan(a.limits.ZelleDaily) {
		return newVelocityLimitError("daily", a.limits.ZelleDaily, dailySum)
	}

	monthlySum, err := a.repo.ZelleOutflowSince(ctx, account.ID, startOfMonth)
	if err != nil {
		return fmt.Errorf("monthly zelle outflow lookup: %w", err)
	}
	if monthlySum.Add(amount).GreaterThan(a.limits.ZelleMonthly) {
		return newVelocityLimitError("monthly", a.limits.ZelleMonthly, monthlySum)
	}

	return nil
}
