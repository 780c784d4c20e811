package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/outbox"
	"github.com/jackc/pgx/v5"
)

type LedgerWriterImpl struct {
	transactionRepo credit.TransactionRepository
	outboxRepo      outbox.Repository
	logger          *slog.Logger
}

func NewLedgerWriter(transactionRepo credit.TransactionRepository, outboxRepo outbox.Repository, logger *slog.Logger) service.LedgerWriter {
	return &LedgerWriterImpl{
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		logger:          logger,
	}
}

// Append writes the ledger row and the outbox message that will copy it to
// the audit store. Both land in tx or neither does.
func (w *LedgerWriterImpl) Append(ctx context.Context, tx pgx.Tx, txn *credit.Transaction) error {
	if err := w.transactionRepo.WithTx(tx).Append(ctx, txn); err != nil {
		w.logger.Error("Failed to append credit transaction",
			"transaction_id", txn.ID.String(),
			"farmer_id", txn.FarmerID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to append credit transaction %s: %w", txn.ID, err)
	}

	message, err := outbox.NewMessage(txn)
	if err != nil {
		w.logger.Error("Failed to create new outbox message (marshal payload)",
			"transaction_id", txn.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for tx %s: %w", txn.ID, err)
	}

	if err := w.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		w.logger.Error("Failed to create outbox message",
			"transaction_id", txn.ID.String(),
			"farmer_id", txn.FarmerID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for tx %s: %w", txn.ID, err)
	}

	w.logger.Debug("Credit transaction appended",
		"transaction_id", txn.ID.String(),
		"type", string(txn.Type),
		"outbox_id", message.ID,
	)
	return nil
}
