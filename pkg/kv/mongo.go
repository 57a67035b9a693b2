package kv

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoConfig holds the connection settings for a MongoDB-backed store.
type MongoConfig struct {
	ConnectionURL  string        `env:"MONGODB_URL,required"`                     // ConnectionURL is the URL of the database.
	Database       string        `env:"MONGODB_DATABASE" envDefault:"gatekit"`    // Database holding the key-value collection.
	Collection     string        `env:"MONGODB_COLLECTION" envDefault:"kv"`       // Collection storing one document per key.
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"` // ConnectTimeout is the timeout for connecting to the database.
	RetryAttempts  int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`    // RetryAttempts is the number of retry attempts to connect.
	RetryInterval  time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`   // RetryInterval is the interval between retry attempts.
}

// MongoStore is a Store backed by a MongoDB collection with one document
// per key: `{_id: <key>, value: <bytes>}`.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoDocument struct {
	ID    string `bson:"_id"`
	Value []byte `bson:"value"`
}

// NewMongoStore connects to MongoDB using the provided configuration and
// returns a ready store.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	for attempt := 0; attempt < cfg.RetryAttempts; attempt++ {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return &MongoStore{
					client:     client,
					collection: client.Database(cfg.Database).Collection(cfg.Collection),
				}, nil
			}
			_ = client.Disconnect(ctx)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrFailedToConnectToMongo
}

// NewMongoStoreWithCollection wraps an existing collection. The caller
// keeps ownership of the client; Close is a no-op.
func NewMongoStoreWithCollection(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	var doc mongoDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return doc.Value, nil
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoDocument{ID: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Close disconnects the underlying client, if this store owns one.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
