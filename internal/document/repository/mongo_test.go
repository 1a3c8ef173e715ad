package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestNewMongoRecord(t *testing.T) {
	stored := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc, err := document.Decode([]byte(`{"user":{"name":"Ann","age":41}}`))
	require.NoError(t, err)

	rec := newMongoRecord(&document.Entry{Key: "user_20240102_030405", Prefix: "user", Value: doc, StoredAt: stored})
	require.Equal(t, "user_20240102_030405", rec.Key)
	require.Equal(t, "user", rec.Prefix)
	require.Equal(t, stored, rec.StoredAt)

	// the record must be encodable by the driver, json.Number included
	raw, err := bson.Marshal(rec)
	require.NoError(t, err)

	r := bson.Raw(raw)
	require.Equal(t, "user_20240102_030405", r.Lookup("_id").StringValue())
	require.Equal(t, "user", r.Lookup("prefix").StringValue())
	require.Equal(t, "Ann", r.Lookup("document", "user", "name").StringValue())
	require.Equal(t, int64(41), r.Lookup("document", "user", "age").AsInt64())
}

type fakeIndexes struct {
	model    mongo.IndexModel
	deadline time.Time
	block    bool
	err      error
}

func (f *fakeIndexes) CreateOne(ctx context.Context, model mongo.IndexModel, _ ...*options.CreateIndexesOptions) (string, error) {
	f.model = model
	f.deadline, _ = ctx.Deadline()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "prefix_1", f.err
}

func TestEnsurePrefixIndex(t *testing.T) {
	f := &fakeIndexes{}
	start := time.Now()
	require.NoError(t, ensurePrefixIndex(f, time.Minute))

	assert.Equal(t, bson.D{{Key: "prefix", Value: 1}}, f.model.Keys)
	require.False(t, f.deadline.IsZero(), "index creation must be bounded")
	assert.WithinDuration(t, start.Add(time.Minute), f.deadline, 5*time.Second)
}

func TestEnsurePrefixIndex_Errors(t *testing.T) {
	boom := errors.New("not authorized")
	err := ensurePrefixIndex(&fakeIndexes{err: boom}, time.Second)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "create prefix index")

	// an unresponsive server gives up at the deadline
	err = ensurePrefixIndex(&fakeIndexes{block: true}, 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
