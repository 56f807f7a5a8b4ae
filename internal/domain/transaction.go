/**
 * @description
 * This file defines the append-only ledger model. Every realized money movement is
 * persisted as one or more Transaction rows that share a reference number: a signed
 * debit row on the source account, an optional fee row, and a matching credit row on
 * the destination account for internal transfers.
 *
 * @notes
 * - Amounts are signed: negative for debits, positive for credits.
 * - A row that reached `completed` is never mutated again; corrections are expressed
 *   as additional rows, never as edits to history.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger row.
type TransactionType string

const (
	TransactionTypeDeposit       TransactionType = "deposit"
	TransactionTypeWithdrawal    TransactionType = "withdrawal"
	TransactionTypeTransferOut   TransactionType = "transfer_out"
	TransactionTypeTransferIn    TransactionType = "transfer_in"
	TransactionTypeZelleSend     TransactionType = "zelle_send"
	TransactionTypeZelleReceived TransactionType = "zelle_received"
	TransactionTypeFee           TransactionType = "fee"
)

// TransactionStatus is the settlement state of a ledger row.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is one append-only ledger row. It maps directly to the `transactions`
// table in the database.
type Transaction struct {
	ID                    uuid.UUID         `json:"id"`
	AccountID             uuid.UUID         `json:"account_id"`
	CounterpartyAccountID *uuid.UUID        `json:"counterparty_account_id,omitempty"`
	Type                  TransactionType   `json:"type"`
	Status                TransactionStatus `json:"status"`
	Amount                decimal.Decimal   `json:"amount"`
	ReferenceNumber       string            `json:"reference_number"`
	Memo                  string            `json:"memo"`
	FailureReason         *string           `json:"failure_reason,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// SettlementEvent is the payload consumed from the external settlement rail for
// transfers that left the bank (domestic_external / international). The reference
// number ties the event back to the pending debit row.
type SettlementEvent struct {
	ReferenceNumber string `json:"reference_number"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	RailSessionID   string `json:"rail_session_id,omitempty"`
}
