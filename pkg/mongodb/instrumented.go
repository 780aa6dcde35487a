package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/metrics"
)

// InstrumentedClient wraps a MongoDB Client with metrics and tracing
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedClient creates a new instrumented MongoDB client
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
}

// Collection returns an instrumented collection
func (c *InstrumentedClient) Collection(name string) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: c.client.Collection(name),
		name:       name,
		database:   c.client.config.Database,
		metrics:    c.metrics,
		tracer:     c.tracer,
	}
}

// Database returns the underlying database handle
func (c *InstrumentedClient) Database() *mongo.Database {
	return c.client.Database()
}

// Client returns the underlying MongoDB client
func (c *InstrumentedClient) Client() *mongo.Client {
	return c.client.Client()
}

// Close disconnects the client
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck performs a health check with tracing
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "mongodb.ping",
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.client.config.Database),
		),
	)
	defer span.End()

	err := c.client.HealthCheck(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// InstrumentedCollection wraps a collection, recording a metric and span
// for each operation
type InstrumentedCollection struct {
	collection *mongo.Collection
	name       string
	database   string
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Raw returns the underlying collection for operations not covered here
func (c *InstrumentedCollection) Raw() *mongo.Collection {
	return c.collection
}

func (c *InstrumentedCollection) instrument(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "mongodb."+op,
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.database),
			semconv.DBMongoDBCollection(c.name),
			semconv.DBOperation(op),
		),
	)
	return ctx, func(err error) {
		if err != nil && err != mongo.ErrNoDocuments {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.metrics.RecordMongoDBOperation(c.name, op, err == nil || err == mongo.ErrNoDocuments, time.Since(start))
	}
}

// FindOne executes a find-one with instrumentation
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	ctx, done := c.instrument(ctx, "findOne")
	res := c.collection.FindOne(ctx, filter, opts...)
	done(res.Err())
	return res
}

// Find executes a find with instrumentation
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	ctx, done := c.instrument(ctx, "find")
	cur, err := c.collection.Find(ctx, filter, opts...)
	done(err)
	return cur, err
}

// InsertOne executes an insert with instrumentation
func (c *InstrumentedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	ctx, done := c.instrument(ctx, "insertOne")
	res, err := c.collection.InsertOne(ctx, document, opts...)
	done(err)
	return res, err
}

// UpdateOne executes an update with instrumentation
func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	ctx, done := c.instrument(ctx, "updateOne")
	res, err := c.collection.UpdateOne(ctx, filter, update, opts...)
	done(err)
	return res, err
}

// FindOneAndUpdate executes an atomic read-modify-write with instrumentation
func (c *InstrumentedCollection) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	ctx, done := c.instrument(ctx, "findOneAndUpdate")
	res := c.collection.FindOneAndUpdate(ctx, filter, update, opts...)
	done(res.Err())
	return res
}

// CountDocuments executes a count with instrumentation
func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	ctx, done := c.instrument(ctx, "countDocuments")
	n, err := c.collection.CountDocuments(ctx, filter, opts...)
	done(err)
	return n, err
}

// Indexes returns the collection's index view
func (c *InstrumentedCollection) Indexes() mongo.IndexView {
	return c.collection.Indexes()
}
