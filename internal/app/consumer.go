/**
 * @description
 * Settlement event consumer. External transfers (domestic_external / international)
 * commit locally with a pending debit; the external rail later reports a terminal
 * outcome on the settlement exchange. This consumer finalizes pending rows on
 * success and atomically reverses the debit (amount plus fee credited back, rows
 * marked failed) when the rail reports failure or a return.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
	"github.com/meridianbank/transfer-service/internal/store"
	"github.com/meridianbank/transfer-service/pkg/rabbitmq"
)

type SettlementConsumer struct {
	repo   store.Repository
	events rabbitmq.Publisher
}

func NewSettlementConsumer(repo store.Repository, events rabbitmq.Publisher) *SettlementConsumer {
	return &SettlementConsumer{repo: repo, events: events}
}

// HandleMessage processes one settlement delivery. Returning true acknowledges the
// message; false re-queues it for another attempt.
func (c *SettlementConsumer) HandleMessage(body []byte) bool {
	var event domain.SettlementEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=settlement_consumer msg=\"unmarshal failed; dropping\" err=%v", err)
		return true
	}

	if strings.TrimSpace(event.ReferenceNumber) == "" {
		log.Printf("level=warn component=settlement_consumer msg=\"missing reference number; dropping\" event=%+v", event)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.processEvent(ctx, event); err != nil {
		log.Printf("level=error component=settlement_consumer msg=\"processing failed; re-queuing\" reference=%s err=%v", event.ReferenceNumber, err)
		return false
	}
	return true
}

func (c *SettlementConsumer) processEvent(ctx context.Context, event domain.SettlementEvent) error {
	debit, err := c.repo.FindDebitByReference(ctx, event.ReferenceNumber)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			log.Printf("level=warn component=settlement_consumer msg=\"no transfer for reference; dropping\" reference=%s", event.ReferenceNumber)
			return nil
		}
		return fmt.Errorf("lookup transfer: %w", err)
	}

	switch normalizeSettlementStatus(event.Status) {
	case "completed":
		return c.handleSettled(ctx, debit)
	case "failed":
		return c.handleReturned(ctx, debit, event.Reason)
	default:
		return nil
	}
}

// handleSettled finalizes the pending rows of a settled transfer. Already-terminal
// transfers are left alone so redeliveries stay idempotent.
func (c *SettlementConsumer) handleSettled(ctx context.Context, debit *domain.Transaction) error {
	if debit.Status != domain.TransactionStatusPending {
		return nil
	}
	if err := c.repo.MarkTransferCompleted(ctx, debit.ReferenceNumber); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	c.publishOutcome(ctx, debit, routingTransferCompleted, domain.TransactionStatusCompleted)
	return nil
}

// handleReturned reverses a pending external transfer: the reserved amount plus fee
// is credited back to the source account and every pending row is marked failed, all
// inside one database transaction.
func (c *SettlementConsumer) handleReturned(ctx context.Context, debit *domain.Transaction, reason string) error {
	if debit.Status != domain.TransactionStatusPending {
		return nil
	}

	err := c.repo.WithinTransaction(ctx, func(r store.Repository) error {
		account, err := r.GetAccountForUpdate(ctx, debit.AccountID)
		if err != nil {
			return fmt.Errorf("lock source account: %w", err)
		}

		rows, err := r.ListTransactionsByReference(ctx, debit.ReferenceNumber)
		if err != nil {
			return fmt.Errorf("list transfer rows: %w", err)
		}

		refund := decimal.Zero
		for _, row := range rows {
			if row.Status == domain.TransactionStatusPending && row.Amount.IsNegative() {
				refund = refund.Add(row.Amount.Neg())
			}
		}
		if refund.IsZero() {
			return nil
		}

		if err := r.UpdateAccountBalance(ctx, account.ID, account.Balance.Add(refund)); err != nil {
			return fmt.Errorf("refund source: %w", err)
		}
		if err := r.MarkTransferFailed(ctx, debit.ReferenceNumber, reason); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.publishOutcome(ctx, debit, routingTransferFailed, domain.TransactionStatusFailed)
	return nil
}

// publishOutcome notifies the customer of a terminal settlement state. Publish
// failures are logged and swallowed; the ledger change has already committed.
func (c *SettlementConsumer) publishOutcome(ctx context.Context, debit *domain.Transaction, routingKey string, status domain.TransactionStatus) {
	if c.events == nil {
		return
	}
	event := rabbitmq.TransferEvent{
		AccountID:       debit.AccountID,
		ReferenceNumber: debit.ReferenceNumber,
		Status:          string(status),
		Amount:          debit.Amount.Neg(),
		Timestamp:       time.Now().UTC(),
	}
	if err := c.events.PublishTransferEvent(ctx, EventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=settlement_consumer msg=\"outcome event publish failed\" routing_key=%s reference=%s err=%v", routingKey, debit.ReferenceNumber, err)
	}
}

func normalizeSettlementStatus(status string) string {
	switch strings.TrimSpace(strings.ToLower(status)) {
	case "completed", "successful", "success", "settled":
		return "completed"
	case "failed", "failure", "returned", "rejected":
		return "failed"
	default:
		return status
	}
}
