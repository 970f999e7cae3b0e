package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleared-dev/rentbook/internal/logger"
	"github.com/cleared-dev/rentbook/internal/model"
)

// DefaultDatabase and DefaultCollection apply when config leaves them empty.
const (
	DefaultDatabase   = "rentbook"
	DefaultCollection = "notifications"
)

// DataStore is the subset of *mongo.Collection the source reads through.
type DataStore interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) DataStore
}

// MongoCollection adapts *mongo.Collection to DataStore.
type MongoCollection struct {
	*mongo.Collection
}

// Find runs a query on the collection.
func (c *MongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	cur, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform Find: %w", err)
	}
	return cur, nil
}

// MongoProvider adapts *mongo.Client to CollectionProvider.
type MongoProvider struct {
	client   *mongo.Client
	database string
}

// NewMongoProvider creates a provider over one database.
func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	if database == "" {
		database = DefaultDatabase
	}
	return &MongoProvider{client: client, database: database}
}

// Collection returns a DataStore for the named collection.
func (p *MongoProvider) Collection(name string) DataStore {
	return &MongoCollection{p.client.Database(p.database).Collection(name)}
}

// ConnectToMongoDB connects and pings.
func ConnectToMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	log := logger.FromContext(ctx)
	log.Debug().Msg("connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Msg("connected to MongoDB")
	return client, nil
}

// Notification is a parsed payment notification as stored in MongoDB.
type Notification struct {
	MessageID  string        `bson:"message_id"`
	Amount     bson.RawValue `bson:"amount"`
	Actor      string        `bson:"actor"`
	Timestamp  time.Time     `bson:"timestamp"`
	Note       string        `bson:"note"`
	ReceivedAt time.Time     `bson:"received_at"`
}

// MongoSource reads notifications received at or after Since.
type MongoSource struct {
	provider   CollectionProvider
	collection string
	since      time.Time
}

// NewMongoSource creates a source over the named collection.
func NewMongoSource(provider CollectionProvider, collection string, since time.Time) *MongoSource {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoSource{provider: provider, collection: collection, since: since}
}

// Name identifies the source in logs.
func (s *MongoSource) Name() string { return "mongo" }

// Fetch returns notifications in received order. A malformed document is
// logged and skipped.
func (s *MongoSource) Fetch(ctx context.Context) ([]model.ConfirmationEvent, error) {
	log := logger.FromContext(ctx)

	filter := bson.M{"received_at": bson.M{"$gte": s.since}}
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: 1}})

	cur, err := s.provider.Collection(s.collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.collection, err)
	}
	defer cur.Close(ctx)

	var events []model.ConfirmationEvent
	for cur.Next(ctx) {
		var n Notification
		if err := cur.Decode(&n); err != nil {
			log.Warn().Err(err).Msg("skipping undecodable notification")
			continue
		}
		ev, err := n.Event()
		if err != nil {
			log.Warn().Err(err).Str("message_id", n.MessageID).Msg("skipping malformed notification")
			continue
		}
		events = append(events, ev)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.collection, err)
	}
	return events, nil
}

// Event converts the document into a confirmation event.
func (n Notification) Event() (model.ConfirmationEvent, error) {
	amount, err := decodeAmount(n.Amount)
	if err != nil {
		return model.ConfirmationEvent{}, err
	}
	if n.Timestamp.IsZero() {
		return model.ConfirmationEvent{}, fmt.Errorf("missing timestamp")
	}
	return model.ConfirmationEvent{
		MessageID: n.MessageID,
		Amount:    amount,
		Actor:     n.Actor,
		Timestamp: n.Timestamp.UTC(),
		Note:      n.Note,
	}, nil
}

// decodeAmount accepts the numeric encodings feeds write: strings, doubles,
// integers and Decimal128.
func decodeAmount(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bsontype.String:
		return decimal.NewFromString(v.StringValue())
	case bsontype.Double:
		return decimal.NewFromFloat(v.Double()).Round(2), nil
	case bsontype.Int32:
		return decimal.NewFromInt32(v.Int32()), nil
	case bsontype.Int64:
		return decimal.NewFromInt(v.Int64()), nil
	case bsontype.Decimal128:
		d128 := v.Decimal128()
		return decimal.NewFromString(d128.String())
	case 0:
		return decimal.Decimal{}, fmt.Errorf("missing amount")
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported amount type %s", v.Type)
}
