package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/outbox"
)

// AuditPublisher copies an outbox message into the audit store
type AuditPublisher interface {
	PublishToAudit(ctx context.Context, message *outbox.Message) error
}

// AuditPublisherImpl implements AuditPublisher
type AuditPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  credit.AuditRepository
	logger     *slog.Logger
}

func NewAuditPublisher(
	outboxRepo outbox.Repository,
	auditRepo credit.AuditRepository,
	logger *slog.Logger,
) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// PublishToAudit records the transaction carried by message and marks the
// message processed. A transaction already in the audit store is not written
// again, so a message whose status update failed is only re-marked on the
// next poll.
func (p *AuditPublisherImpl) PublishToAudit(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With("outbox_id", message.ID, "transaction_id", message.TransactionID.String())

	txn, err := message.Transaction()
	if err != nil {
		logger.Error("Failed to unmarshal credit transaction from outbox payload", "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	_, err = p.auditRepo.GetByTransactionID(ctx, txn.ID)
	switch {
	case err == nil:
		logger.Debug("Credit transaction already in audit store")
	case credit.KindOf(err) == credit.KindNotFound:
		if err := p.auditRepo.Record(ctx, txn); err != nil {
			logger.Error("Failed to record credit transaction in audit store", "error", err)
			return fmt.Errorf("failed to record audit entry %s: %w", txn.ID, err)
		}
	default:
		logger.Error("Failed to look up credit transaction in audit store", "error", err)
		return fmt.Errorf("failed to look up audit entry %s: %w", txn.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Debug("Outbox message recorded in audit store", "farmer_id", txn.FarmerID.String(), "type", string(txn.Type))
	return nil
}
