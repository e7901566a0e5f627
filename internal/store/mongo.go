package store

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

// MongoStore persists the catalogue in a MongoDB collection, one document
// per activity, keyed by normalized URL.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg *config.StoreConfig, logger *slog.Logger) (*MongoStore, error) {
	uri := cfg.MongoURI
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StoreError{Backend: "mongo", Err: err}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, &types.StoreError{Backend: "mongo", Err: err}
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
		logger: logger.With("component", "store", "backend", "mongo"),
	}, nil
}

func (s *MongoStore) Load(ctx context.Context) ([]types.Activity, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userRemoved": bson.M{"$ne": true}})
	if err != nil {
		return nil, &types.StoreError{Backend: "mongo", Err: err}
	}
	defer cursor.Close(ctx)

	var activities []types.Activity
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, &types.StoreError{Backend: "mongo", Err: err}
	}
	return activities, nil
}

func (s *MongoStore) Get(ctx context.Context, rawURL string) (*types.Activity, error) {
	var a types.Activity
	err := s.coll.FindOne(ctx, bson.M{"url": NormalizeURL(rawURL)}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StoreError{Backend: "mongo", Err: err}
	}
	return &a, nil
}

func (s *MongoStore) Upsert(ctx context.Context, activity types.Activity) (bool, error) {
	// Normalize the key so repeated analyses of slash/case variants of the
	// same site replace one document instead of accumulating.
	activity.URL = NormalizeURL(activity.URL)

	res, err := s.coll.ReplaceOne(ctx,
		bson.M{"url": activity.URL},
		activity,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return false, &types.StoreError{Backend: "mongo", Err: err}
	}

	updated := res.MatchedCount > 0
	s.logger.Debug("activity saved", "url", activity.URL, "updated", updated)
	return updated, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return &types.StoreError{Backend: "mongo", Err: err}
	}
	return nil
}
