/**
 * @description
 * This file defines the business error taxonomy for transfer processing. All of these
 * are expected, recoverable outcomes returned as typed errors; handlers map them to
 * HTTP statuses with errors.Is / errors.As. Only store connectivity failures fall
 * through as generic internal errors.
 */

package app

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotActive rejects movement on accounts that are not in active status.
	ErrAccountNotActive = errors.New("source account is not active")

	// ErrAccountAccessDenied rejects requests against accounts the caller does not own.
	ErrAccountAccessDenied = errors.New("account does not belong to the authenticated customer")

	// ErrInvalidContact rejects Zelle recipients that are neither an email address nor
	// a 10-digit US phone number.
	ErrInvalidContact = errors.New("recipient must be an email address or a 10-digit US phone number")

	// ErrZelleTransactionLimit rejects single Zelle transactions over the product cap.
	ErrZelleTransactionLimit = errors.New("zelle transfers are limited to $2,500.00 per transaction")

	// ErrInsufficientFunds is the authorization-time balance rejection, computed from
	// the snapshot balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientFundsAtCommit is the apply-time rejection raised when the
	// re-read balance no longer covers the transfer. Kept distinct from
	// ErrInsufficientFunds so callers can tell a race-induced rejection from an
	// upfront one.
	ErrInsufficientFundsAtCommit = errors.New("insufficient funds at commit")

	// ErrRecipientNotFound rejects internal transfers whose destination account
	// number does not resolve.
	ErrRecipientNotFound = errors.New("recipient account not found")

	// ErrLimitRequiresReview rejects external transfers over the manual-review
	// ceiling. Not retryable.
	ErrLimitRequiresReview = errors.New("transfers over $25,000.00 require manual review")

	// ErrNotAuthorized guards Apply against being called with a rejected or missing
	// authorization.
	ErrNotAuthorized = errors.New("transfer has not been authorized")

	// ErrReferenceConflict reports a caller-supplied reference number that already
	// belongs to a different transfer.
	ErrReferenceConflict = errors.New("reference number already used by a different transfer")

	// ErrRateLimited reports that the caller exceeded the transfer submission limit.
	ErrRateLimited = errors.New("too many transfer requests; slow down")
)

// VelocityLimitError reports a Zelle daily or monthly limit rejection, including the
// exact remaining headroom so the caller can adjust.
type VelocityLimitError struct {
	Scope     string // "daily" or "monthly"
	Limit     decimal.Decimal
	Current   decimal.Decimal
	Remaining decimal.Decimal
}

func (e *VelocityLimitError) Error() string {
	return fmt.Sprintf("%s zelle limit of $%s exceeded: $%s remaining", e.Scope, e.Limit.StringFixed(2), e.Remaining.StringFixed(2))
}

func newVelocityLimitError(scope string, limit, current decimal.Decimal) *VelocityLimitError {
	remaining := limit.Sub(current).Round(2)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return &VelocityLimitError{
		Scope:     scope,
		Limit:     limit,
		Current:   current,
		Remaining: remaining,
	}
}
