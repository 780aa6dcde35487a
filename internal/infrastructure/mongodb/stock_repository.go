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

// StockRepository persists stock items in the "stock_items" collection.
// Quantity mutations run as single atomic updates so concurrent channel
// writes never interleave a read-modify-write.
type StockRepository struct {
	collection *mongo.Collection
}

func NewStockRepository(db *mongo.Database) *StockRepository {
	repo := &StockRepository{collection: db.Collection("stock_items")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StockRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "entityId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "locationId", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "available", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *StockRepository) GetItem(ctx context.Context, tenantID, entityID string) (*domain.StockItem, error) {
	var item domain.StockItem
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "entityId": entityID}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stock item: %w", err)
	}
	return &item, nil
}

func (r *StockRepository) Save(ctx context.Context, item *domain.StockItem) error {
	item.UpdatedAt = time.Now().UTC()

	filter := bson.M{"tenantId": item.TenantID, "entityId": item.EntityID}
	update := bson.M{"$set": item}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save stock item: %w", err)
	}
	return nil
}

// AdjustQuantity applies a signed delta to on-hand and available in one
// atomic update, flooring both at zero, and returns the prior available
// quantity.
func (r *StockRepository) AdjustQuantity(ctx context.Context, tenantID, entityID string, delta int) (int, error) {
	filter := bson.M{"tenantId": tenantID, "entityId": entityID}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"onHand":    bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$onHand", delta}}}},
			"available": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$available", delta}}}},
			"updatedAt": time.Now().UTC(),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before domain.StockItem
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if err == mongo.ErrNoDocuments {
		return 0, domain.ErrEntityNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock quantity: %w", err)
	}
	return before.Available, nil
}

// SetQuantity overwrites on-hand and available with an absolute count
// and returns the prior available quantity. Reserved stock is left
// untouched.
func (r *StockRepository) SetQuantity(ctx context.Context, tenantID, entityID string, quantity int) (int, error) {
	if quantity < 0 {
		return 0, domain.ErrInvalidQuantity
	}

	filter := bson.M{"tenantId": tenantID, "entityId": entityID}
	update := bson.M{"$set": bson.M{
		"onHand":    quantity,
		"available": quantity,
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before domain.StockItem
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if err == mongo.ErrNoDocuments {
		return 0, domain.ErrEntityNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to set stock quantity: %w", err)
	}
	return before.Available, nil
}

// AdjustReservation moves quantity between available and reserved;
// positive reserves, negative releases. Both counters floor at zero.
func (r *StockRepository) AdjustReservation(ctx context.Context, tenantID, entityID string, quantity int) error {
	filter := bson.M{"tenantId": tenantID, "entityId": entityID}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"available": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$available", quantity}}}},
			"reserved":  bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$reserved", quantity}}}},
			"updatedAt": time.Now().UTC(),
		}}},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to adjust reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}
