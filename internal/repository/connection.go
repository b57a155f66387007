package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionProducts    = "products"
	CollectionUsers       = "users"
	CollectionCarts       = "carts"
	CollectionCheckouts   = "checkouts"
	CollectionOrders      = "orders"
	CollectionOutbox      = "outbox"
	CollectionSubscribers = "subscribers"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// guestCartTTL bounds how long an abandoned guest cart survives.
const guestCartTTL = 30 * 24 * time.Hour

func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	exists := func(field string) interface{} {
		return bson.M{field: bson.M{"$exists": true}}
	}

	indexes := map[string][]mongo.IndexModel{
		CollectionCarts: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(exists("user_id")),
			},
			{
				Keys:    bson.D{{Key: "guest_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(exists("guest_id")),
			},
			{
				Keys: bson.D{{Key: "updated_at", Value: 1}},
				Options: options.Index().
					SetExpireAfterSeconds(int32(guestCartTTL.Seconds())).
					SetPartialFilterExpression(exists("guest_id")),
			},
		},
		CollectionCheckouts: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "is_finalized", Value: 1}, {Key: "cart_settled", Value: 1}}},
		},
		CollectionOrders: {
			{
				Keys:    bson.D{{Key: "checkout_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		CollectionUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		CollectionProducts: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		CollectionOutbox: {
			{Keys: bson.D{{Key: "processed_at", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// EnsureCollections creates every collection up front. Collections cannot be
// created implicitly inside a multi-document transaction.
func EnsureCollections(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	for _, name := range []string{CollectionProducts, CollectionUsers, CollectionCarts, CollectionCheckouts, CollectionOrders, CollectionOutbox} {
		if have[name] {
			continue
		}
		if err := db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}
	return nil
}

// WipeCollections deletes every document from the named collections.
func WipeCollections(ctx context.Context, db *mongo.Database, names ...string) error {
	for _, name := range names {
		if _, err := db.Collection(name).DeleteMany(ctx, bson.D{}); err != nil {
			return fmt.Errorf("failed to wipe %s: %w", name, err)
		}
	}
	return nil
}
