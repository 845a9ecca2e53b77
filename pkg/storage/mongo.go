package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var _ KeyValueStore = (*MongoStore)(nil)

// mongoEntry is the document shape: the key is the document id and the
// value is stored as raw JSON bytes, so arbitrary JSON round-trips without
// any BSON type coercion.
type mongoEntry struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// MongoStore is a MongoDB-backed KeyValueStore using one document per key.
type MongoStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoStore creates a store over the given collection.
func NewMongoStore(collection *mongo.Collection, logger *zap.Logger) *MongoStore {
	return &MongoStore{
		collection: collection,
		logger:     logger.Named("MongoStore"),
	}
}

func (s *MongoStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}
	opts := options.Replace().SetUpsert(true)
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": key}, mongoEntry{Key: key, Value: data}, opts)
	if err != nil {
		s.logger.Error("Failed to upsert document", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save key %q: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, key string, dest any) error {
	var entry mongoEntry
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		s.logger.Error("Failed to find document", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to load key %q: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value for key %q: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		s.logger.Error("Failed to delete document", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{}
	if prefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list documents", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var entry mongoEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode entry: %w", err)
		}
		keys = append(keys, entry.Key)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MongoStore) Clear(ctx context.Context) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{}); err != nil {
		s.logger.Error("Failed to clear collection", zap.Error(err))
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}
