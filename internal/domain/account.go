/**
 * @description
 * This file defines the account model for the transfer-service. Accounts are owned by
 * the account store (the bank's relational database); this service reads them during
 * authorization and mutates balances only through the ledger applier's atomic path.
 *
 * @notes
 * - Balances are `decimal.Decimal` values with two-digit currency precision. Using a
 *   decimal type avoids the floating-point inaccuracies that plague financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of a bank account.
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusClosed    AccountStatus = "closed"
	AccountStatusRejected  AccountStatus = "rejected"
)

// Account represents one bank account row.
// The account number is unique and immutable once assigned.
type Account struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Status        AccountStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AuthContext carries the verified identity of the caller through every operation.
// It is constructed by the API middleware from a validated token and passed
// explicitly; there is no ambient authentication state anywhere in the service.
type AuthContext struct {
	CustomerID uuid.UUID
}
