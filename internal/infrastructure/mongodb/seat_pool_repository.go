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

// SeatPoolRepository persists transport trip seat aggregates in the
// "seat_pools" collection.
type SeatPoolRepository struct {
	collection *mongo.Collection
}

func NewSeatPoolRepository(db *mongo.Database) *SeatPoolRepository {
	repo := &SeatPoolRepository{collection: db.Collection("seat_pools")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *SeatPoolRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "tripId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *SeatPoolRepository) Get(ctx context.Context, tenantID, tripID string) (*domain.TripSeatPool, error) {
	var pool domain.TripSeatPool
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "tripId": tripID}).Decode(&pool)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrSeatPoolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load seat pool: %w", err)
	}
	return &pool, nil
}

func (r *SeatPoolRepository) Save(ctx context.Context, pool *domain.TripSeatPool) error {
	pool.UpdatedAt = time.Now().UTC()

	filter := bson.M{"tenantId": pool.TenantID, "tripId": pool.TripID}
	update := bson.M{"$set": pool}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save seat pool: %w", err)
	}
	return nil
}
