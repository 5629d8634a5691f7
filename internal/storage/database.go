package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/types"
)

// MongoStore keeps records in a MongoDB collection keyed by _id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	stamp      *stamper
	logger     *slog.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (*MongoStore, error) {
	if cfg.MongoURI == "" {
		return nil, &types.ConfigurationError{Key: "storage.mongo_uri", Reason: "is required for mongo storage"}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "connect", Err: err}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "ping", Err: err}
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		stamp:      newStamper(time.Millisecond), // BSON dates have millisecond precision
		logger:     logger.With("component", "mongo_store"),
	}

	_, err = s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "type", Value: 1}, {Key: "parent_id", Value: 1}},
	})
	if err != nil {
		s.logger.Warn("index creation failed", "error", err)
	}

	s.logger.Info("mongodb store opened", "database", cfg.Database, "collection", cfg.Collection)
	return s, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Upsert(ctx context.Context, p *types.Product) (*types.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.findOne(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	var prevUpdated time.Time
	if existing != nil {
		prevUpdated = existing.UpdatedAt
	}
	rec := mergeRecord(existing, p, s.stamp.next(prevUpdated))

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "upsert", Err: err}
	}

	s.logger.Debug("record upserted", "id", rec.ID, "type", rec.Type, "created", existing == nil)
	return rec, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*types.Product, error) {
	return s.findOne(ctx, id)
}

func (s *MongoStore) Primary(ctx context.Context) ([]*types.Product, error) {
	return s.find(ctx, bson.M{"type": types.TypePrimary})
}

func (s *MongoStore) Competitors(ctx context.Context, parentID string) ([]*types.Product, error) {
	return s.find(ctx, bson.M{"type": types.TypeCompetitor, "parent_id": parentID})
}

func (s *MongoStore) All(ctx context.Context) ([]*types.Product, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStore) DeleteCompetitors(ctx context.Context, parentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.collection.DeleteMany(ctx, bson.M{"type": types.TypeCompetitor, "parent_id": parentID})
	if err != nil {
		return 0, &types.StorageError{Backend: "mongodb", Op: "delete_competitors", Err: err}
	}
	s.logger.Info("competitors deleted", "parent_id", parentID, "count", res.DeletedCount)
	return int(res.DeletedCount), nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, &types.StorageError{Backend: "mongodb", Op: "delete", Err: err}
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Op: "clear", Err: err}
	}
	s.logger.Info("store cleared", "removed", res.DeletedCount)
	return nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb store closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) findOne(ctx context.Context, id string) (*types.Product, error) {
	var p types.Product
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "get", Err: err}
	}
	return &p, nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]*types.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "find", Err: err}
	}
	defer cursor.Close(ctx)

	out := make([]*types.Product, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "find", Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}
