package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stocksync-platform/sync-service/internal/domain"
)

// PendingConflictRepository stores conflicts awaiting resolution in the
// "pending_conflicts" collection. Update is conditional on the stored
// status still being PENDING, which makes resolution a compare-and-swap:
// of two concurrent resolvers exactly one wins.
type PendingConflictRepository struct {
	collection *mongo.Collection
}

func NewPendingConflictRepository(db *mongo.Database) *PendingConflictRepository {
	repo := &PendingConflictRepository{collection: db.Collection("pending_conflicts")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *PendingConflictRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "conflictId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "status", Value: 1},
			{Key: "createdAt", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "event.entityId", Value: 1},
			{Key: "status", Value: 1},
		}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *PendingConflictRepository) Save(ctx context.Context, conflict *domain.PendingConflict) error {
	if _, err := r.collection.InsertOne(ctx, conflict); err != nil {
		return fmt.Errorf("failed to save pending conflict: %w", err)
	}
	return nil
}

func (r *PendingConflictRepository) GetByID(ctx context.Context, tenantID, conflictID string) (*domain.PendingConflict, error) {
	var conflict domain.PendingConflict
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "conflictId": conflictID}).Decode(&conflict)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrConflictNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending conflict: %w", err)
	}
	return &conflict, nil
}

// Update persists a status transition away from PENDING. It fails with
// ErrConflictResolved when another writer already moved the conflict.
func (r *PendingConflictRepository) Update(ctx context.Context, conflict *domain.PendingConflict) error {
	filter := bson.M{
		"tenantId":   conflict.TenantID,
		"conflictId": conflict.ConflictID,
		"status":     domain.ConflictStatusPending,
	}
	update := bson.M{"$set": bson.M{
		"status":            conflict.Status,
		"resolution":        conflict.Resolution,
		"resolvedBy":        conflict.ResolvedBy,
		"resolvedAt":        conflict.ResolvedAt,
		"resolutionComment": conflict.ResolutionComment,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update pending conflict: %w", err)
	}
	if result.MatchedCount == 0 {
		// Missing entirely, or already moved out of PENDING
		count, countErr := r.collection.CountDocuments(ctx,
			bson.M{"tenantId": conflict.TenantID, "conflictId": conflict.ConflictID},
			options.Count().SetLimit(1))
		if countErr != nil {
			return fmt.Errorf("failed to update pending conflict: %w", countErr)
		}
		if count == 0 {
			return domain.ErrConflictNotFound
		}
		return domain.ErrConflictResolved
	}
	return nil
}

func (r *PendingConflictRepository) List(ctx context.Context, tenantID string, filter domain.ConflictFilter, limit, offset int64) ([]*domain.PendingConflict, int64, error) {
	query := bson.M{"tenantId": tenantID}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Channel != "" {
		query["event.channel"] = filter.Channel
	}
	if filter.Severity != nil {
		query["conflict.severity"] = *filter.Severity
	}
	if filter.EntityID != "" {
		query["event.entityId"] = filter.EntityID
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count pending conflicts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending conflicts: %w", err)
	}
	defer cursor.Close(ctx)

	var conflicts []*domain.PendingConflict
	if err := cursor.All(ctx, &conflicts); err != nil {
		return nil, 0, err
	}
	return conflicts, total, nil
}

func (r *PendingConflictRepository) OldestPending(ctx context.Context, tenantID string) (*time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetProjection(bson.M{"createdAt": 1})

	var doc struct {
		CreatedAt time.Time `bson:"createdAt"`
	}
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "status": domain.ConflictStatusPending}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find oldest pending conflict: %w", err)
	}
	return &doc.CreatedAt, nil
}

func (r *PendingConflictRepository) CountPending(ctx context.Context, tenantID, entityID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"tenantId":       tenantID,
		"event.entityId": entityID,
		"status":         domain.ConflictStatusPending,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending conflicts: %w", err)
	}
	return count, nil
}
