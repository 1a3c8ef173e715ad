package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/jsonstash/jsonstash/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMirror replicates stored documents into a MongoDB collection.
// Each record is keyed by the store key (_id) and carries the prefix so the
// collection can be queried by group.
type MongoMirror struct {
	col *mongo.Collection
}

// mongoRecord is the Mongo representation of a stored document.
type mongoRecord struct {
	Key      string    `bson:"_id"`
	Prefix   string    `bson:"prefix"`
	Document any       `bson:"document"`
	StoredAt time.Time `bson:"storedAt"`
}

func newMongoRecord(e *document.Entry) mongoRecord {
	return mongoRecord{Key: e.Key, Prefix: e.Prefix, Document: e.Value, StoredAt: e.StoredAt}
}

// mongoIndexTimeout bounds index creation when the mirror is built.
const mongoIndexTimeout = 5 * time.Second

type indexCreator interface {
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error)
}

// NewMongoMirror wraps col and makes sure it has an index on "prefix" for
// grouped listings. A missing index only costs speed, so failure is logged.
func NewMongoMirror(col *mongo.Collection) *MongoMirror {
	if err := ensurePrefixIndex(col.Indexes(), mongoIndexTimeout); err != nil {
		logger.Warnf("mongo mirror: %v", err)
	}
	return &MongoMirror{col: col}
}

func ensurePrefixIndex(iv indexCreator, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	model := mongo.IndexModel{Keys: bson.D{{Key: "prefix", Value: 1}}}
	if _, err := iv.CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create prefix index: %w", err)
	}
	return nil
}

func (m *MongoMirror) Name() string { return "mongo" }

func (m *MongoMirror) Put(ctx context.Context, e *document.Entry) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": e.Key}, newMongoRecord(e), opts)
	return err
}

func (m *MongoMirror) Delete(ctx context.Context, key string) error {
	_, err := m.col.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
