/**
 * @description
 * Reconciliation sweep for stuck external transfers. A debit that stays pending past
 * the configured age means the settlement rail never reported a terminal outcome;
 * the sweep flags each one for manual review by publishing an event and logging it.
 * It deliberately mutates nothing: settlement decisions belong to the rail, and a
 * flagged transfer is resolved by operations staff, not by this job.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/meridianbank/transfer-service/internal/domain"
	"github.com/meridianbank/transfer-service/internal/store"
	"github.com/meridianbank/transfer-service/pkg/rabbitmq"
)

const routingTransferReview = "transfer.review.required"

// Reconciler flags external transfers that have waited too long for settlement.
type Reconciler struct {
	repo        store.Repository
	events      rabbitmq.Publisher
	reviewAfter time.Duration
}

// NewReconciler creates a reconciler that flags debits pending longer than reviewAfter.
func NewReconciler(repo store.Repository, events rabbitmq.Publisher, reviewAfter time.Duration) *Reconciler {
	if reviewAfter <= 0 {
		reviewAfter = 72 * time.Hour
	}
	return &Reconciler{repo: repo, events: events, reviewAfter: reviewAfter}
}

// FlagStalePendingTransfers is the cron entry point.
func (r *Reconciler) FlagStalePendingTransfers() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-r.reviewAfter)
	stale, err := r.repo.ListStalePendingTransfers(ctx, cutoff)
	if err != nil {
		log.Printf("level=error component=reconciler msg=\"stale transfer lookup failed\" err=%v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	log.Printf("level=warn component=reconciler msg=\"pending external transfers awaiting settlement past cutoff\" count=%d cutoff=%s", len(stale), cutoff.Format(time.RFC3339))

	for _, debit := range stale {
		log.Printf("level=warn component=reconciler msg=\"transfer flagged for manual review\" reference=%s account_id=%s amount=%s pending_since=%s",
			debit.ReferenceNumber, debit.AccountID, debit.Amount.Neg().StringFixed(2), debit.CreatedAt.Format(time.RFC3339))

		if r.events == nil {
			continue
		}
		event := rabbitmq.TransferEvent{
			AccountID:       debit.AccountID,
			ReferenceNumber: debit.ReferenceNumber,
			TransferType:    string(domain.TransferTypeDomesticExternal),
			Status:          string(debit.Status),
			Amount:          debit.Amount.Neg(),
			Timestamp:       time.Now().UTC(),
		}
		if err := r.events.PublishTransferEvent(ctx, EventsExchange, routingTransferReview, event); err != nil {
			log.Printf("level=warn component=reconciler msg=\"review event publish failed\" reference=%s err=%v", debit.ReferenceNumber, err)
		}
	}
}
