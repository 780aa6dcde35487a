package mongodb

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stocksync-platform/sync-service/internal/offline"
)

// OfflineQueueRepository is a durable offline.Queue backed by the
// "offline_queue" collection. It survives client restarts, unlike the
// in-memory queue.
type OfflineQueueRepository struct {
	collection *mongo.Collection
}

func NewOfflineQueueRepository(db *mongo.Database) *OfflineQueueRepository {
	repo := &OfflineQueueRepository{collection: db.Collection("offline_queue")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *OfflineQueueRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "offlineId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "status", Value: 1},
			{Key: "queuedAt", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "event.entityId", Value: 1},
			{Key: "status", Value: 1},
		}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *OfflineQueueRepository) Enqueue(ctx context.Context, event *offline.QueuedEvent) error {
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue offline event: %w", err)
	}
	return nil
}

func (r *OfflineQueueRepository) Get(ctx context.Context, offlineID string) (*offline.QueuedEvent, error) {
	var event offline.QueuedEvent
	err := r.collection.FindOne(ctx, bson.M{"offlineId": offlineID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, offline.ErrNotQueued
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load queued event: %w", err)
	}
	return &event, nil
}

// ListPending returns pending events ordered by the client timestamp
// when present, server timestamp otherwise. The coalesced ordering is
// applied in memory; queues are small and per-tenant.
func (r *OfflineQueueRepository) ListPending(ctx context.Context, tenantID string) ([]*offline.QueuedEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "queuedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"tenantId": tenantID, "status": offline.StatusPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*offline.QueuedEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Event.EffectiveTimestamp().Before(events[j].Event.EffectiveTimestamp())
	})
	return events, nil
}

func (r *OfflineQueueRepository) Update(ctx context.Context, event *offline.QueuedEvent) error {
	filter := bson.M{"offlineId": event.OfflineID}
	update := bson.M{"$set": bson.M{
		"status":        event.Status,
		"retryCount":    event.RetryCount,
		"lastAttemptAt": event.LastAttemptAt,
		"syncedAt":      event.SyncedAt,
		"lastError":     event.LastError,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update queued event: %w", err)
	}
	if result.MatchedCount == 0 {
		return offline.ErrNotQueued
	}
	return nil
}

func (r *OfflineQueueRepository) CountPending(ctx context.Context, tenantID, entityID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"tenantId":       tenantID,
		"event.entityId": entityID,
		"status":         bson.M{"$in": bson.A{offline.StatusPending, offline.StatusSyncing}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count queued events: %w", err)
	}
	return count, nil
}
