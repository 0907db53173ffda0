// internal/report/mongodb.go

package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBOptions configures the MongoDB sink.
type MongoDBOptions struct {
	// URI is the mongodb:// connection string.
	URI string

	// Database holds the collection.
	Database string

	// Collection receives the records. Defaults to "checks".
	Collection string

	// OnConflict controls duplicate handling. Defaults to
	// ConflictIgnore; ConflictReplace is not supported because records
	// carry no natural key.
	OnConflict ConflictStrategy

	// Timeout bounds each driver operation. Defaults to 30 seconds.
	Timeout time.Duration
}

// MongoDBWriter persists records as documents in a MongoDB collection.
type MongoDBWriter struct {
	mu         sync.Mutex
	client     *mongo.Client
	collection *mongo.Collection
	strategy   ConflictStrategy
	timeout    time.Duration
	closed     bool
}

// NewMongoDBWriter connects to the server and returns a writer bound
// to the configured collection.
func NewMongoDBWriter(opts MongoDBOptions) (*MongoDBWriter, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}
	if opts.Collection == "" {
		opts.Collection = "checks"
	}
	if opts.OnConflict == "" {
		opts.OnConflict = ConflictIgnore
	}
	if opts.OnConflict == ConflictReplace {
		return nil, fmt.Errorf("conflict strategy %q is not supported for MongoDB", opts.OnConflict)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	clientOptions := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDBWriter{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		strategy:   opts.OnConflict,
		timeout:    opts.Timeout,
	}, nil
}

func mongoDocument(r Record) bson.M {
	return bson.M{
		"suite":       r.Suite,
		"page":        r.Page,
		"element":     r.Element,
		"check":       r.Check,
		"status":      string(r.Status),
		"message":     r.Message,
		"duration_ms": float64(r.Duration) / float64(time.Millisecond),
		"ts":          primitive.NewDateTimeFromTime(r.Timestamp),
		"created_at":  primitive.NewDateTimeFromTime(time.Now()),
	}
}

// Write inserts records with one unordered InsertMany call.
func (w *MongoDBWriter) Write(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	for i, record := range records {
		docs[i] = mongoDocument(record)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	_, err := w.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		// Unordered inserts report duplicates after attempting every
		// document, so surviving rows are already in.
		if w.strategy == ConflictIgnore && mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert records: %w", err)
	}
	return nil
}

// Close disconnects from the server.
func (w *MongoDBWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
