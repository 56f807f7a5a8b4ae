/**
 * @description
 * This file defines the transfer request value object and the result types exchanged
 * between the API layer, the authorizer, and the ledger applier. A TransferRequest is
 * constructed once per API call, validated at the boundary, and discarded after
 * processing; its durable effect is the set of Transaction rows it produces.
 *
 * @notes
 * - The request is a single typed struct whose Validate method enforces the
 *   per-transfer-type variant shape. Fields belonging to a different variant are
 *   rejected rather than silently ignored, so malformed bodies never reach the
 *   business logic.
 */

package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferType classifies a movement request.
type TransferType string

const (
	TransferTypeInternal         TransferType = "internal"
	TransferTypeDomesticExternal TransferType = "domestic_external"
	TransferTypeInternational    TransferType = "international"
	TransferTypeZelleSend        TransferType = "zelle_send"
	TransferTypeZelleRequest     TransferType = "zelle_request"
)

// Request-shape validation errors. These are surfaced before any store access.
var (
	ErrInvalidTransferType = errors.New("unknown transfer type")
	ErrInvalidAmount       = errors.New("amount must be a positive value")
	ErrAmountPrecision     = errors.New("amount must have at most two decimal places")
	ErrMissingSource       = errors.New("source account id is required")
	ErrMissingDestination  = errors.New("destination account number is required for internal transfers")
	ErrMissingContact      = errors.New("recipient contact is required for zelle transfers")
	ErrMissingBeneficiary  = errors.New("recipient name and bank name are required for external transfers")
	ErrVariantMismatch     = errors.New("request carries fields that do not belong to its transfer type")
)

// TransferRequest is the DTO for an incoming money movement request.
// ReferenceNumber is an optional client-supplied idempotency key; when empty the
// service generates one.
type TransferRequest struct {
	SourceAccountID uuid.UUID       `json:"source_account_id"`
	TransferType    TransferType    `json:"transfer_type"`
	Amount          decimal.Decimal `json:"amount"`
	Memo            string          `json:"memo"`
	ReferenceNumber string          `json:"reference_number,omitempty"`

	// Internal variant.
	DestinationAccountNumber string `json:"destination_account_number,omitempty"`

	// Zelle variant: an email address or a 10-digit US phone number.
	RecipientContact string `json:"recipient_contact,omitempty"`

	// External variant (domestic_external / international).
	RecipientName string `json:"recipient_name,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	RoutingDetail string `json:"routing_detail,omitempty"`
}

// IsZelle reports whether the request is a Zelle-style peer operation.
func (r TransferRequest) IsZelle() bool {
	return r.TransferType == TransferTypeZelleSend || r.TransferType == TransferTypeZelleRequest
}

// IsExternal reports whether the request leaves the bank over an external rail.
func (r TransferRequest) IsExternal() bool {
	return r.TransferType == TransferTypeDomesticExternal || r.TransferType == TransferTypeInternational
}

// Validate enforces the amount constraints and the per-type variant shape.
// It performs no store access.
func (r TransferRequest) Validate() error {
	if r.SourceAccountID == uuid.Nil {
		return ErrMissingSource
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !r.Amount.Equal(r.Amount.Round(2)) {
		return ErrAmountPrecision
	}

	hasDestination := strings.TrimSpace(r.DestinationAccountNumber) != ""
	hasContact := strings.TrimSpace(r.RecipientContact) != ""
	hasBeneficiary := strings.TrimSpace(r.RecipientName) != "" || strings.TrimSpace(r.BankName) != "" || strings.TrimSpace(r.RoutingDetail) != ""

	switch r.TransferType {
	case TransferTypeInternal:
		if !hasDestination {
			return ErrMissingDestination
		}
		if hasContact || hasBeneficiary {
			return ErrVariantMismatch
		}
	case TransferTypeZelleSend, TransferTypeZelleRequest:
		if !hasContact {
			return ErrMissingContact
		}
		if hasDestination || hasBeneficiary {
			return ErrVariantMismatch
		}
	case TransferTypeDomesticExternal, TransferTypeInternational:
		if strings.TrimSpace(r.RecipientName) == "" || strings.TrimSpace(r.BankName) == "" {
			return ErrMissingBeneficiary
		}
		if hasDestination || hasContact {
			return ErrVariantMismatch
		}
	default:
		return ErrInvalidTransferType
	}

	return nil
}

// Authorization is the outcome of a successful authorization decision. Rejections are
// returned as typed errors instead, so an Authorization value always means approved.
type Authorization struct {
	Approved        bool
	Fee             decimal.Decimal
	SnapshotBalance decimal.Decimal
}

// ApplyResult describes the committed (or replayed) effect of a transfer.
type ApplyResult struct {
	ReferenceNumber string
	Fee             decimal.Decimal
	Status          TransactionStatus
	Replayed        bool
}

// TransferReceipt is the caller-facing response for a processed transfer.
type TransferReceipt struct {
	Success         bool              `json:"success"`
	ReferenceNumber string            `json:"reference_number"`
	Fee             decimal.Decimal   `json:"fee"`
	Status          TransactionStatus `json:"status"`
}
