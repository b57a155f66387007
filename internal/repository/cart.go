package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{collection: db.Collection(CollectionCarts)}
}

func ownerFilter(owner domain.Owner) bson.M {
	if owner.UserID != "" {
		return bson.M{"user_id": owner.UserID}
	}
	return bson.M{"guest_id": owner.GuestID}
}

func (m *mongoCartRepository) GetByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var cart domain.Cart
	err := m.collection.FindOne(ctx, ownerFilter(owner)).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

// Insert creates the cart at version 1. A second cart for the same owner
// loses the race with domain.ErrConcurrencyConflict.
func (m *mongoCartRepository) Insert(ctx context.Context, cart *domain.Cart) error {
	doc := *cart
	doc.Version = 1
	stamp(&doc.CreatedAt, &doc.UpdatedAt)

	if _, err := m.collection.InsertOne(ctx, &doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConcurrencyConflict
		}
		return fmt.Errorf("failed to insert cart: %w", err)
	}
	*cart = doc
	return nil
}

func (m *mongoCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	doc := *cart
	doc.Version = cart.Version + 1
	stamp(&doc.CreatedAt, &doc.UpdatedAt)

	if err := replaceVersioned(ctx, m.collection, cart.ID, cart.Version, &doc); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		return fmt.Errorf("failed to save cart: %w", err)
	}
	*cart = doc
	return nil
}

func (m *mongoCartRepository) Delete(ctx context.Context, id domain.CartID) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}
