/**
 * @description
 * This file contains the orchestration layer for transfer processing. The `Service`
 * struct ties the pipeline together: rate limiting, authorization, ledger
 * application, and notification publishing. It also exposes the read operations used
 * by the API layer (transfer receipts and account history), enforcing account
 * ownership against the caller's AuthContext on every path.
 *
 * @dependencies
 * - context, log, time: Standard Go libraries.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Notification event publishing.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
	"github.com/meridianbank/transfer-service/internal/store"
	"github.com/meridianbank/transfer-service/pkg/rabbitmq"
)

// EventsExchange is the topic exchange carrying transfer lifecycle events.
const EventsExchange = "bank.events"

// Routing keys for published notification events.
const (
	routingTransferCompleted = "transfer.completed"
	routingTransferPending   = "transfer.pending_settlement"
	routingTransferFailed    = "transfer.failed"
	routingZelleRequest      = "zelle.request.created"
)

// RateLimiter throttles transfer submission per customer. Implementations must be
// safe for concurrent use; a nil limiter disables throttling.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for transfers.
type Service struct {
	repo       store.Repository
	authorizer *Authorizer
	applier    *Applier
	events     rabbitmq.Publisher

	limiter            RateLimiter
	transfersPerMinute int
}

// NewService creates a new transfer service instance.
func NewService(repo store.Repository, authorizer *Authorizer, applier *Applier, events rabbitmq.Publisher) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		applier:    applier,
		events:     events,
	}
}

// SetRateLimiter enables per-customer submission throttling.
func (s *Service) SetRateLimiter(limiter RateLimiter, transfersPerMinute int) {
	s.limiter = limiter
	s.transfersPerMinute = transfersPerMinute
}

// Transfer runs the full pipeline for one movement request: throttle, authorize,
// apply, notify. The returned receipt is safe to hand straight to the caller.
func (s *Service) Transfer(ctx context.Context, auth domain.AuthContext, req domain.TransferRequest) (*domain.TransferReceipt, error) {
	if err := s.consumeRateLimit(ctx, auth); err != nil {
		return nil, err
	}

	authz, err := s.authorizer.Authorize(ctx, auth, req)
	if err != nil {
		log.Printf("level=info component=service op=transfer outcome=rejected customer_id=%s account_id=%s type=%s err=%v",
			auth.CustomerID, req.SourceAccountID, req.TransferType, err)
		return nil, err
	}

	// A Zelle request moves no funds: it is authorized, assigned a reference, and
	// announced to the recipient. The eventual payment arrives as an ordinary
	// zelle_send from the counterparty.
	if req.TransferType == domain.TransferTypeZelleRequest {
		ref := req.ReferenceNumber
		if ref == "" {
			ref = NewReferenceNumber()
		}
		s.publishEvent(auth, req.SourceAccountID, ref, string(req.TransferType), string(domain.TransactionStatusPending), req.Amount, decimal.Zero, routingZelleRequest)
		return &domain.TransferReceipt{
			Success:         true,
			ReferenceNumber: ref,
			Fee:             decimal.Zero,
			Status:          domain.TransactionStatusPending,
		}, nil
	}

	result, err := s.applier.Apply(ctx, req, authz)
	if err != nil {
		log.Printf("level=warn component=service op=transfer outcome=failed customer_id=%s account_id=%s type=%s err=%v",
			auth.CustomerID, req.SourceAccountID, req.TransferType, err)
		return nil, err
	}

	if !result.Replayed {
		routingKey := routingTransferCompleted
		if result.Status == domain.TransactionStatusPending {
			routingKey = routingTransferPending
		}
		s.publishEvent(auth, req.SourceAccountID, result.ReferenceNumber, string(req.TransferType), string(result.Status), req.Amount, result.Fee, routingKey)
	}

	log.Printf("level=info component=service op=transfer outcome=%s customer_id=%s account_id=%s type=%s reference=%s replayed=%t",
		result.Status, auth.CustomerID, req.SourceAccountID, req.TransferType, result.ReferenceNumber, result.Replayed)

	return &domain.TransferReceipt{
		Success:         result.Status != domain.TransactionStatusFailed,
		ReferenceNumber: result.ReferenceNumber,
		Fee:             result.Fee,
		Status:          result.Status,
	}, nil
}

// TransferReceipt returns the receipt for a previously processed transfer. Only the
// owner of the source account may look it up.
func (s *Service) TransferReceipt(ctx context.Context, auth domain.AuthContext, referenceNumber string) (*domain.TransferReceipt, error) {
	debit, err := s.repo.FindDebitByReference(ctx, referenceNumber)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccount(ctx, debit.AccountID)
	if err != nil {
		return nil, err
	}
	if account.CustomerID != auth.CustomerID {
		return nil, ErrAccountAccessDenied
	}

	rows, err := s.repo.ListTransactionsByReference(ctx, referenceNumber)
	if err != nil {
		return nil, err
	}
	fee := decimal.Zero
	for _, row := range rows {
		if row.Type == domain.TransactionTypeFee {
			fee = fee.Add(row.Amount.Neg())
		}
	}

	return &domain.TransferReceipt{
		Success:         debit.Status != domain.TransactionStatusFailed,
		ReferenceNumber: referenceNumber,
		Fee:             fee,
		Status:          debit.Status,
	}, nil
}

// ListAccountTransactions returns ledger history for an account the caller owns.
func (s *Service) ListAccountTransactions(ctx context.Context, auth domain.AuthContext, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.CustomerID != auth.CustomerID {
		return nil, ErrAccountAccessDenied
	}
	return s.repo.ListTransactionsByAccount(ctx, accountID, limit, offset)
}

// SettlementConsumer returns the consumer that applies settlement events from the
// external rail to pending transfers.
func (s *Service) SettlementConsumer() *SettlementConsumer {
	return NewSettlementConsumer(s.repo, s.events)
}

func (s *Service) consumeRateLimit(ctx context.Context, auth domain.AuthContext) error {
	if s.limiter == nil || s.transfersPerMinute <= 0 {
		return nil
	}
	count, _, err := s.limiter.ConsumeRateLimit(ctx, "transfer", auth.CustomerID.String(), s.transfersPerMinute, time.Minute)
	if err != nil {
		// The limiter is protective, not load-bearing; fail open when it is down.
		log.Printf("level=warn component=service msg=\"rate limiter unavailable; allowing request\" customer_id=%s err=%v", auth.CustomerID, err)
		return nil
	}
	if count > s.transfersPerMinute {
		return ErrRateLimited
	}
	return nil
}

func (s *Service) publishEvent(auth domain.AuthContext, accountID uuid.UUID, reference, transferType, status string, amount, fee decimal.Decimal, routingKey string) {
	if s.events == nil {
		return
	}
	// Notification publishing is detached from the request context: the transfer has
	// already committed and a caller timeout must not suppress the event.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := rabbitmq.TransferEvent{
		CustomerID:      auth.CustomerID,
		AccountID:       accountID,
		ReferenceNumber: reference,
		TransferType:    transferType,
		Status:          status,
		Amount:          amount,
		Fee:             fee,
		Timestamp:       time.Now().UTC(),
	}
	if err := s.events.PublishTransferEvent(ctx, EventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=service msg=\"event publish failed\" routing_key=%s reference=%s err=%v", routingKey, reference, err)
	}
}
