package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{collection: db.Collection(CollectionOrders)}
}

func (m *mongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *mongoOrderRepository) Get(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *mongoOrderRepository) GetByCheckoutID(ctx context.Context, id domain.CheckoutID) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"checkout_id": id})
}

// ListByUser returns the user's orders, newest first.
func (m *mongoOrderRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// Insert fails with ErrDuplicateCheckout when an order already exists for
// the same checkout.
func (m *mongoOrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	doc := *order
	doc.Version = 1
	stamp(&doc.CreatedAt, &doc.UpdatedAt)

	if _, err := m.collection.InsertOne(ctx, &doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	*order = doc
	return nil
}

func (m *mongoOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	doc := *order
	doc.Version = order.Version + 1
	stamp(&doc.CreatedAt, &doc.UpdatedAt)

	if err := replaceVersioned(ctx, m.collection, order.ID, order.Version, &doc); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		return fmt.Errorf("failed to save order: %w", err)
	}
	*order = doc
	return nil
}
