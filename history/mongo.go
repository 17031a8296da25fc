package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns the local-development defaults.
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "daytrip",
		Collection: "planning_runs",
	}
}

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the collection.
func NewMongoStore(config *MongoConfig) (*MongoStore, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}
	if err := store.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return store, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (s *MongoStore) Add(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	prepare(rec)

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts); err != nil {
		return fmt.Errorf("failed to store planning run: %w", err)
	}
	return nil
}

func (s *MongoStore) ListByOwner(ctx context.Context, owner string, limit int) ([]*Record, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query planning runs: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode planning runs: %w", err)
	}
	return records, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.Disconnect(ctx)
}

// Ping checks that the MongoDB connection is alive.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

var _ Store = (*MongoStore)(nil)
