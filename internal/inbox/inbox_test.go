package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sample = Header + `
m-1,100.00,Uma Lo,2025-01-20T18:04:00Z,ELECTRICITY-2025-01-UMALO
m-2,$100,Bob,2025-01-21,thanks
`

func writeInbox(t *testing.T, root, name, body string) {
	t.Helper()
	dir := filepath.Join(root, Dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestParse(t *testing.T) {
	events, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "m-1", events[0].MessageID)
	assert.True(t, decimal.RequireFromString("100").Equal(events[0].Amount))
	assert.Equal(t, "Uma Lo", events[0].Actor)
	assert.Equal(t, time.Date(2025, 1, 20, 18, 4, 0, 0, time.UTC), events[0].Timestamp)
	assert.Equal(t, "ELECTRICITY-2025-01-UMALO", events[0].Note)

	assert.Equal(t, time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC), events[1].Timestamp)
	assert.True(t, decimal.RequireFromString("100").Equal(events[1].Amount))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader(Header + "\nm-1,abc,Uma,2025-01-20,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	_, err = Parse(strings.NewReader(Header + "\nm-1,1,Uma,yesterday,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing timestamp")

	_, err = Parse(strings.NewReader(Header + "\nm-1,1\n"))
	assert.Error(t, err)
}

func TestUnmarshalEvent_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEvent([]string{"one"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 5 fields")
}

func TestCSVSource_FetchAndArchive(t *testing.T) {
	root := t.TempDir()
	writeInbox(t, root, "jan.csv", sample)

	src := NewCSVSource(root)
	assert.Equal(t, "csv", src.Name())

	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)

	require.NoError(t, src.Archive())
	_, err = os.Stat(filepath.Join(root, Dir, "processed", "jan.csv"))
	assert.NoError(t, err)

	events, err = src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCSVSource_EmptyInbox(t *testing.T) {
	events, err := NewCSVSource(t.TempDir()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCSVSource_BadFile(t *testing.T) {
	root := t.TempDir()
	writeInbox(t, root, "bad.csv", Header+"\nm-1,x,Uma,2025-01-20,\n")

	_, err := NewCSVSource(root).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.csv")
}

type mockDataStore struct {
	findFunc func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

func (m *mockDataStore) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return m.findFunc(ctx, filter, opts...)
}

type mockCollectionProvider struct {
	collectionFunc func(name string) DataStore
}

func (m *mockCollectionProvider) Collection(name string) DataStore {
	return m.collectionFunc(name)
}

func cursorOf(t *testing.T, docs ...interface{}) *mongo.Cursor {
	t.Helper()
	cur, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	require.NoError(t, err)
	return cur
}

func TestMongoSource_Fetch(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2025, 1, 20, 18, 4, 0, 0, time.UTC)
	d128, err := primitive.ParseDecimal128("33.33")
	require.NoError(t, err)

	docs := []interface{}{
		bson.M{"message_id": "m-1", "amount": "100.00", "actor": "Uma Lo", "timestamp": ts, "note": "ELECTRICITY-2025-01-UMALO", "received_at": ts},
		bson.M{"message_id": "m-2", "amount": 99.999, "actor": "Bob", "timestamp": ts, "received_at": ts},
		bson.M{"message_id": "m-3", "amount": int32(50), "actor": "Alice", "timestamp": ts, "received_at": ts},
		bson.M{"message_id": "m-4", "amount": d128, "actor": "Alice", "timestamp": ts, "received_at": ts},
		bson.M{"message_id": "bad", "actor": "nobody", "timestamp": ts, "received_at": ts},
		bson.M{"message_id": "bad-ts", "amount": "1.00", "actor": "nobody", "received_at": ts},
	}

	var gotCollection string
	var gotFilter interface{}
	provider := &mockCollectionProvider{
		collectionFunc: func(name string) DataStore {
			gotCollection = name
			return &mockDataStore{
				findFunc: func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
					gotFilter = filter
					return cursorOf(t, docs...), nil
				},
			}
		},
	}

	src := NewMongoSource(provider, "", since)
	assert.Equal(t, "mongo", src.Name())

	events, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultCollection, gotCollection)
	assert.Equal(t, bson.M{"received_at": bson.M{"$gte": since}}, gotFilter)

	require.Len(t, events, 4)
	assert.Equal(t, "m-1", events[0].MessageID)
	assert.True(t, decimal.RequireFromString("100").Equal(events[0].Amount))
	assert.Equal(t, ts, events[0].Timestamp)
	assert.Equal(t, "ELECTRICITY-2025-01-UMALO", events[0].Note)
	assert.Equal(t, "100", events[1].Amount.String())
	assert.Equal(t, "50", events[2].Amount.String())
	assert.Equal(t, "33.33", events[3].Amount.String())
}

func TestMongoSource_FindError(t *testing.T) {
	provider := &mockCollectionProvider{
		collectionFunc: func(name string) DataStore {
			return &mockDataStore{
				findFunc: func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
					return nil, errors.New("connection refused")
				},
			}
		},
	}

	_, err := NewMongoSource(provider, "payments", time.Time{}).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying payments")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDecodeAmount_Unsupported(t *testing.T) {
	_, err := decodeAmount(bson.RawValue{Type: bson.TypeBoolean, Value: []byte{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported amount type")
}
