package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicateCheckout = errors.New("order for this checkout already exists")
	ErrDuplicateEmail    = fmt.Errorf("%w: email is already registered", domain.ErrValidation)
)

// CartRepository defines the interface for cart data operations.
// Writes are versioned: Save fails with domain.ErrConcurrencyConflict when the
// stored version moved since the cart was read.
type CartRepository interface {
	GetByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Insert(ctx context.Context, cart *domain.Cart) error
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, id domain.CartID) error
}

type CheckoutRepository interface {
	Get(ctx context.Context, id domain.CheckoutID) (*domain.Checkout, error)
	Insert(ctx context.Context, checkout *domain.Checkout) error
	Save(ctx context.Context, checkout *domain.Checkout) error
	// CountUnsettled counts the user's finalized checkouts whose lines are
	// still in the cart.
	CountUnsettled(ctx context.Context, userID domain.UserID) (int64, error)
}

type OrderRepository interface {
	Get(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	GetByCheckoutID(ctx context.Context, id domain.CheckoutID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Order, error)
	Insert(ctx context.Context, order *domain.Order) error
	Save(ctx context.Context, order *domain.Order) error
}

type ProductRepository interface {
	Get(ctx context.Context, id domain.ProductID) (*domain.Product, error)
	List(ctx context.Context, category string) ([]*domain.Product, error)
	InsertMany(ctx context.Context, products []*domain.Product) error
}

type UserRepository interface {
	Get(ctx context.Context, id domain.UserID) (*domain.User, error)
	Insert(ctx context.Context, user *domain.User) error
}

type OutboxRepository interface {
	Insert(ctx context.Context, event *OutboxEvent) error
	GetUnprocessed(ctx context.Context, limit int64) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id string) error
}

// Transactor runs fn inside one multi-document transaction. Repositories
// called with the ctx handed to fn take part in it. fn may be retried on
// transient errors, so it must reload whatever it mutates.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

func stamp(createdAt *time.Time, updatedAt *time.Time) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// replaceVersioned overwrites the document with the given id only if its
// stored version still equals expected.
func replaceVersioned(ctx context.Context, coll *mongo.Collection, id interface{}, expected int64, doc interface{}) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}
