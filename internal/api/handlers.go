/**
 * @description
 * This file contains the HTTP handlers for the transfer-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridianbank/transfer-service/internal/app"
	"github.com/meridianbank/transfer-service/internal/domain"
	"github.com/meridianbank/transfer-service/internal/store"
)

// TransferHandlers holds the application service that handlers will use.
type TransferHandlers struct {
	service *app.Service
}

// NewTransferHandlers creates a new instance of TransferHandlers.
func NewTransferHandlers(service *app.Service) *TransferHandlers {
	return &TransferHandlers{service: service}
}

// CreateTransferHandler handles requests to move money out of one of the caller's
// accounts: internal, external (domestic or international), or Zelle.
func (h *TransferHandlers) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := GetCustomerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get customer ID from context")
		return
	}
	auth := domain.AuthContext{CustomerID: customerID}

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_transfer outcome=reject reason=invalid_json customer_id=%s err=%v", customerID, err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	log.Printf("level=info component=api endpoint=create_transfer outcome=accepted customer_id=%s account_id=%s type=%s amount=%s",
		customerID, req.SourceAccountID, req.TransferType, req.Amount.StringFixed(2))

	receipt, err := h.service.Transfer(r.Context(), auth, req)
	if err != nil {
		h.writeTransferError(w, customerID, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, receipt)
}

// GetTransferHandler handles requests to fetch the receipt for a processed transfer
// by its reference number.
func (h *TransferHandlers) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := GetCustomerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get customer ID from context")
		return
	}
	auth := domain.AuthContext{CustomerID: customerID}

	referenceNumber := strings.TrimSpace(chi.URLParam(r, "referenceNumber"))
	if referenceNumber == "" {
		h.writeError(w, http.StatusBadRequest, "Reference number is required")
		return
	}

	receipt, err := h.service.TransferReceipt(r.Context(), auth, referenceNumber)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTransactionNotFound), errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Transfer not found")
		case errors.Is(err, app.ErrAccountAccessDenied):
			h.writeError(w, http.StatusForbidden, "Transfer does not belong to caller")
		default:
			log.Printf("level=error component=api endpoint=get_transfer outcome=failed customer_id=%s reference=%s err=%v", customerID, referenceNumber, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, receipt)
}

// ListAccountTransactionsHandler handles requests for an account's ledger history.
func (h *TransferHandlers) ListAccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := GetCustomerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get customer ID from context")
		return
	}
	auth := domain.AuthContext{CustomerID: customerID}

	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid account ID format")
		return
	}

	limit, err := parseOptionalInt(r.URL.Query().Get("limit"), 20)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := parseOptionalInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	transactions, err := h.service.ListAccountTransactions(r.Context(), auth, accountID, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrAccountAccessDenied):
			h.writeError(w, http.StatusForbidden, "Account does not belong to caller")
		default:
			log.Printf("level=error component=api endpoint=list_transactions outcome=failed customer_id=%s account_id=%s err=%v", customerID, accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":   accountID.String(),
		"limit":        limit,
		"offset":       offset,
		"transactions": transactions,
	})
}

// writeTransferError maps the business error taxonomy onto HTTP status codes.
func (h *TransferHandlers) writeTransferError(w http.ResponseWriter, customerID uuid.UUID, err error) {
	var velocityErr *app.VelocityLimitError

	switch {
	case errors.Is(err, domain.ErrInvalidTransferType),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountPrecision),
		errors.Is(err, domain.ErrMissingSource),
		errors.Is(err, domain.ErrMissingDestination),
		errors.Is(err, domain.ErrMissingContact),
		errors.Is(err, domain.ErrMissingBeneficiary),
		errors.Is(err, domain.ErrVariantMismatch),
		errors.Is(err, app.ErrInvalidContact),
		errors.Is(err, app.ErrSelfTransfer):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInsufficientFunds), errors.Is(err, app.ErrInsufficientFundsAtCommit):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, app.ErrAccountAccessDenied), errors.Is(err, app.ErrAccountNotActive):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "Source account not found")
	case errors.Is(err, app.ErrRecipientNotFound):
		h.writeError(w, http.StatusNotFound, "Recipient account not found")
	case errors.Is(err, app.ErrReferenceConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrZelleTransactionLimit),
		errors.Is(err, app.ErrLimitRequiresReview),
		errors.As(err, &velocityErr):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Too many transfer requests; please retry shortly")
	default:
		log.Printf("level=error component=api endpoint=create_transfer outcome=failed customer_id=%s err=%v", customerID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseOptionalInt(raw string, fallback int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid integer: %q", raw)
	}
	return value, nil
}

// writeJSON is a helper for writing JSON responses.
func (h *TransferHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *TransferHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
