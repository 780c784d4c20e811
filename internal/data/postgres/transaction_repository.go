package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, farmer_id, type, amount, balance_before, balance_after, actor_id, COALESCE(notes, ''), created_at`

// TransactionRepository implements credit.TransactionRepository. The table
// rejects UPDATE and DELETE, so the only write is Append.
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) credit.TransactionRepository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) credit.TransactionRepository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *TransactionRepository) Append(ctx context.Context, t *credit.Transaction) error {
	query := `
		INSERT INTO credit_transactions (id, farmer_id, type, amount, balance_before, balance_after, actor_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.FarmerID,
		t.Type,
		t.Amount,
		t.BalanceBefore,
		t.BalanceAfter,
		t.ActorID,
		t.Notes,
		t.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append credit transaction",
			"transaction_id", t.ID.String(),
			"farmer_id", t.FarmerID.String(),
			"type", string(t.Type),
			"error", err,
		)
		return fmt.Errorf("failed to append credit transaction: %w", err)
	}

	return nil
}

func (r *TransactionRepository) ListByFarmerID(ctx context.Context, farmerID uuid.UUID, limit, offset int) ([]*credit.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM credit_transactions
		WHERE farmer_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`

	return r.query(ctx, query, farmerID, limit, offset)
}

func (r *TransactionRepository) CountByFarmerID(ctx context.Context, farmerID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM credit_transactions WHERE farmer_id = $1`, farmerID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count credit transactions", "farmer_id", farmerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count credit transactions: %w", err)
	}
	return count, nil
}

// History returns the complete ledger of a farmer in write order
func (r *TransactionRepository) History(ctx context.Context, farmerID uuid.UUID) ([]*credit.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM credit_transactions
		WHERE farmer_id = $1
		ORDER BY created_at ASC, seq ASC
	`

	return r.query(ctx, query, farmerID)
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...interface{}) ([]*credit.Transaction, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query credit transactions", "error", err)
		return nil, fmt.Errorf("failed to query credit transactions: %w", err)
	}
	defer rows.Close()

	var txns []*credit.Transaction
	for rows.Next() {
		var t credit.Transaction
		err := rows.Scan(
			&t.ID,
			&t.FarmerID,
			&t.Type,
			&t.Amount,
			&t.BalanceBefore,
			&t.BalanceAfter,
			&t.ActorID,
			&t.Notes,
			&t.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan credit transaction", "error", err)
			return nil, fmt.Errorf("failed to scan credit transaction: %w", err)
		}
		txns = append(txns, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over credit transactions: %w", err)
	}

	return txns, nil
}
