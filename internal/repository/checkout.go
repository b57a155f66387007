package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCheckoutRepository struct {
	collection *mongo.Collection
}

func NewCheckoutRepository(db *mongo.Database) CheckoutRepository {
	return &mongoCheckoutRepository{collection: db.Collection(CollectionCheckouts)}
}

func (m *mongoCheckoutRepository) Get(ctx context.Context, id domain.CheckoutID) (*domain.Checkout, error) {
	var checkout domain.Checkout
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&checkout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to get checkout: %w", err)
	}
	return &checkout, nil
}

func (m *mongoCheckoutRepository) Insert(ctx context.Context, checkout *domain.Checkout) error {
	doc := *checkout
	doc.Version = 1
	stamp(&doc.CreatedAt, &doc.UpdatedAt)

	if _, err := m.collection.InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("failed to insert checkout: %w", err)
	}
	*checkout = doc
	return nil
}

func (m *mongoCheckoutRepository) Save(ctx context.Context, checkout *domain.Checkout) error {
	doc := *checkout
	doc.Version = checkout.Version + 1
	stamp(&doc.CreatedAt, &doc.UpdatedAt)

	if err := replaceVersioned(ctx, m.collection, checkout.ID, checkout.Version, &doc); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		return fmt.Errorf("failed to save checkout: %w", err)
	}
	*checkout = doc
	return nil
}

func (m *mongoCheckoutRepository) CountUnsettled(ctx context.Context, userID domain.UserID) (int64, error) {
	filter := bson.M{
		"user":         userID,
		"is_finalized": true,
		"cart_settled": bson.M{"$ne": true},
	}
	n, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsettled checkouts: %w", err)
	}
	return n, nil
}
