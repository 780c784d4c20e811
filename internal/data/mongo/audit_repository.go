// Package mongo keeps the audit copy of the credit ledger. Documents are
// written by the outbox poller after the Postgres transaction commits.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditCollectionName is the name of the audit collection in MongoDB
const AuditCollectionName = "credit_audit"

// ErrEntryNotFound is returned when no audit document exists for a transaction
type ErrEntryNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return fmt.Sprintf("audit entry not found for transaction %s", e.TransactionID)
}

func (e ErrEntryNotFound) Kind() credit.ErrorKind { return credit.KindNotFound }

// AuditRepository implements credit.AuditRepository for MongoDB
type AuditRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		collection: db.Collection(AuditCollectionName),
		logger:     logger,
	}
}

// EnsureIndexes creates the unique transaction index that makes Record
// idempotent, plus the index serving per-farmer time range queries
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_transaction_id"),
		},
		{
			Keys:    bson.D{{Key: "farmer_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_farmer_timestamp"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// Record stores a copy of a committed transaction. Recording the same
// transaction twice is a no-op.
func (r *AuditRepository) Record(ctx context.Context, t *credit.Transaction) error {
	_, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Audit entry already recorded", "transaction_id", t.ID.String())
			return nil
		}
		r.logger.Error("Failed to record audit entry",
			"transaction_id", t.ID.String(),
			"error", err)
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

func (r *AuditRepository) GetByTransactionID(ctx context.Context, id uuid.UUID) (*credit.Transaction, error) {
	var t credit.Transaction
	err := r.collection.FindOne(ctx, bson.M{"transaction_id": id}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrEntryNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get audit entry",
			"transaction_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}

	return &t, nil
}

// GetByTimeRange returns a page of a farmer's audit entries in [from, to),
// newest first. uuid.Nil selects every farmer.
func (r *AuditRepository) GetByTimeRange(ctx context.Context, farmerID uuid.UUID, from, to time.Time, limit, offset int) ([]*credit.Transaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "transaction_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, timeRangeFilter(farmerID, from, to), opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries by time range",
			"farmer_id", farmerID.String(),
			"from", from,
			"to", to,
			"error", err)
		return nil, fmt.Errorf("failed to get audit entries by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*credit.Transaction
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries", "farmer_id", farmerID.String(), "error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

func (r *AuditRepository) CountByTimeRange(ctx context.Context, farmerID uuid.UUID, from, to time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, timeRangeFilter(farmerID, from, to))
	if err != nil {
		r.logger.Error("Failed to count audit entries", "farmer_id", farmerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

func timeRangeFilter(farmerID uuid.UUID, from, to time.Time) bson.M {
	filter := bson.M{
		"timestamp": bson.M{
			"$gte": from,
			"$lt":  to,
		},
	}
	if farmerID != uuid.Nil {
		filter["farmer_id"] = farmerID
	}
	return filter
}
