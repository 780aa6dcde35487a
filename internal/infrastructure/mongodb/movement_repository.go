package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stocksync-platform/sync-service/internal/domain"
)

// MovementRepository is the append-only movement ledger backed by the
// "stock_movements" collection. A partial unique index on the offline
// event id is the durable dedupe backstop for replayed events.
type MovementRepository struct {
	collection *mongo.Collection
}

func NewMovementRepository(db *mongo.Database) *MovementRepository {
	repo := &MovementRepository{collection: db.Collection("stock_movements")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *MovementRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "entityId", Value: 1},
			{Key: "createdAt", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "channel", Value: 1},
			{Key: "createdAt", Value: -1},
		}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "eventId", Value: 1}}},
		// Dedupe key for offline replays; only offline movements carry it
		{
			Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "offlineEventId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"offlineEventId": bson.M{"$exists": true}}),
		},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *MovementRepository) Append(ctx context.Context, record *domain.MovementRecord) error {
	_, err := r.collection.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateMovement
	}
	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

func (r *MovementRepository) List(ctx context.Context, tenantID string, filter domain.MovementFilter, limit, offset int64) ([]*domain.MovementRecord, int64, error) {
	query := bson.M{"tenantId": tenantID}
	if filter.EntityID != "" {
		query["entityId"] = filter.EntityID
	}
	if filter.Channel != "" {
		query["channel"] = filter.Channel
	}
	if filter.From != nil || filter.To != nil {
		window := bson.M{}
		if filter.From != nil {
			window["$gte"] = *filter.From
		}
		if filter.To != nil {
			window["$lt"] = *filter.To
		}
		query["createdAt"] = window
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movements: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.MovementRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *MovementRepository) ExistsOffline(ctx context.Context, tenantID, offlineEventID string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx,
		bson.M{"tenantId": tenantID, "offlineEventId": offlineEventID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check offline dedupe: %w", err)
	}
	return count > 0, nil
}
