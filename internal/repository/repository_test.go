package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	mongoURI string
	dbSeq    atomic.Int64
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	// Transactions need a replica set.
	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	if err != nil {
		log.Fatalf("failed to start mongo container: %v", err)
	}
	mongoURI, err = container.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("failed to get connection string: %v", err)
	}

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	db, err := ConnectMongoDB(ctx, mongoURI, fmt.Sprintf("testdb_%d", dbSeq.Add(1)))
	require.NoError(t, err)
	require.NoError(t, EnsureCollections(ctx, db))
	require.NoError(t, CreateIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = db.Client().Disconnect(ctx)
	})
	return db
}

func newTestCart(t *testing.T, owner domain.Owner) *domain.Cart {
	t.Helper()
	cart, err := domain.NewCart(owner, time.Now())
	require.NoError(t, err)
	ref, err := domain.NewCatalogReference(domain.CatalogItem{
		ProductID: "P1",
		Name:      "Shirt",
		Image:     "shirt.jpg",
		Price:     domain.MustMoney("10.50"),
	}, "M", "blue", 2)
	require.NoError(t, err)
	require.NoError(t, cart.AddItem(ref))
	return cart
}

func TestCartRepository_GetByOwner_NotFound(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))

	cart, err := repo.GetByOwner(context.Background(), domain.UserOwner("nobody"))
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
	assert.Nil(t, cart)

	_, err = repo.GetByOwner(context.Background(), domain.Owner{})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestCartRepository_InsertAndGet(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	cart := newTestCart(t, domain.UserOwner("u1"))
	require.NoError(t, repo.Insert(ctx, cart))
	assert.Equal(t, int64(1), cart.Version)

	got, err := repo.GetByOwner(ctx, domain.UserOwner("u1"))
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)
	assert.Equal(t, domain.UserID("u1"), got.UserID)
	assert.Empty(t, got.GuestID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "M", got.Items[0].Size)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, got.TotalPrice.Equal(domain.MustMoney("21")))
	assert.Equal(t, int64(1), got.Version)
}

func TestCartRepository_GuestCart(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newTestCart(t, domain.GuestOwner("g1"))))
	require.NoError(t, repo.Insert(ctx, newTestCart(t, domain.GuestOwner("g2"))))

	got, err := repo.GetByOwner(ctx, domain.GuestOwner("g2"))
	require.NoError(t, err)
	assert.Equal(t, domain.GuestID("g2"), got.GuestID)

	err = repo.Insert(ctx, newTestCart(t, domain.GuestOwner("g1")))
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestCartRepository_SaveDetectsStaleVersion(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newTestCart(t, domain.UserOwner("u1"))))

	tab1, err := repo.GetByOwner(ctx, domain.UserOwner("u1"))
	require.NoError(t, err)
	tab2, err := repo.GetByOwner(ctx, domain.UserOwner("u1"))
	require.NoError(t, err)

	require.NoError(t, tab1.UpdateItemQuantity(tab1.Items[0].Key(), 5))
	require.NoError(t, repo.Save(ctx, tab1))
	assert.Equal(t, int64(2), tab1.Version)

	tab2.Clear()
	err = repo.Save(ctx, tab2)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, int64(1), tab2.Version)

	stored, err := repo.GetByOwner(ctx, domain.UserOwner("u1"))
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 5, stored.Items[0].Quantity)
	assert.True(t, stored.TotalPrice.Equal(domain.MustMoney("52.50")))
}

func TestCartRepository_Delete(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	cart := newTestCart(t, domain.UserOwner("u1"))
	require.NoError(t, repo.Insert(ctx, cart))
	require.NoError(t, repo.Delete(ctx, cart.ID))

	_, err := repo.GetByOwner(ctx, domain.UserOwner("u1"))
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, cart.ID), domain.ErrCartNotFound)
}

func newTestCheckout(t *testing.T) *domain.Checkout {
	t.Helper()
	checkout, err := domain.NewCheckoutFromCart(newTestCart(t, domain.UserOwner("u1")), domain.ShippingAddress{
		Address:    "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}, "card", time.Now())
	require.NoError(t, err)
	return checkout
}

func TestCheckoutRepository_Lifecycle(t *testing.T) {
	repo := NewCheckoutRepository(setupTestDB(t))
	ctx := context.Background()

	checkout := newTestCheckout(t)
	require.NoError(t, repo.Insert(ctx, checkout))

	got, err := repo.Get(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
	assert.Nil(t, got.PaidAt)

	require.NoError(t, got.ConfirmPayment(map[string]any{"transaction_id": "tx-1"}, "paid", time.Now()))
	require.NoError(t, repo.Save(ctx, got))

	paid, err := repo.Get(ctx, checkout.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, "tx-1", paid.PaymentDetails["transaction_id"])

	stale := *checkout
	require.NoError(t, stale.ConfirmPayment(nil, "paid", time.Now()))
	assert.ErrorIs(t, repo.Save(ctx, &stale), domain.ErrConcurrencyConflict)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)
}

func newFinalizedCheckout(t *testing.T) *domain.Checkout {
	t.Helper()
	checkout := newTestCheckout(t)
	require.NoError(t, checkout.ConfirmPayment(nil, "paid", time.Now()))
	require.NoError(t, checkout.Finalize(time.Now()))
	return checkout
}

func TestCheckoutRepository_CountUnsettled(t *testing.T) {
	repo := NewCheckoutRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newTestCheckout(t)))
	finalized := newFinalizedCheckout(t)
	require.NoError(t, repo.Insert(ctx, finalized))

	n, err := repo.CountUnsettled(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	changed, err := finalized.MarkCartSettled(time.Now())
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, repo.Save(ctx, finalized))

	n, err = repo.CountUnsettled(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.CountUnsettled(ctx, "someone-else")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrderRepository_UniquePerCheckout(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	checkout := newFinalizedCheckout(t)
	first, err := domain.NewOrderFromCheckout(checkout, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, first))

	second, err := domain.NewOrderFromCheckout(checkout, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, second), ErrDuplicateCheckout)

	got, err := repo.GetByCheckoutID(ctx, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, domain.OrderStatusProcessing, got.Status)
}

func TestOrderRepository_SaveAndList(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	older, err := domain.NewOrderFromCheckout(newFinalizedCheckout(t), time.Now())
	require.NoError(t, err)
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, older))

	newer, err := domain.NewOrderFromCheckout(newFinalizedCheckout(t), time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, newer))

	require.NoError(t, newer.MarkShipped(time.Now()))
	require.NoError(t, repo.Save(ctx, newer))

	orders, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, domain.OrderStatusShipped, orders[0].Status)
	assert.Equal(t, older.ID, orders[1].ID)

	none, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestProductRepository(t *testing.T) {
	repo := NewProductRepository(setupTestDB(t))
	ctx := context.Background()

	products := []*domain.Product{
		{ID: "p-1", Name: "Denim Jacket", Price: domain.MustMoney("59.99"), Category: "Top Wear"},
		{ID: "p-2", Name: "Chino Pants", Price: domain.MustMoney("39.99"), Category: "Bottom Wear"},
		{ID: "p-3", Name: "Linen Shirt", Price: domain.MustMoney("29.99"), Category: "Top Wear"},
	}
	require.NoError(t, repo.InsertMany(ctx, products))

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tops, err := repo.List(ctx, "Top Wear")
	require.NoError(t, err)
	require.Len(t, tops, 2)
	assert.Equal(t, "Denim Jacket", tops[0].Name)

	got, err := repo.Get(ctx, "p-2")
	require.NoError(t, err)
	assert.Equal(t, "39.99", got.Price.String())

	_, err = repo.Get(ctx, "p-9")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user, err := domain.NewUser("Admin", "admin@example.com", "hash", domain.RoleAdmin, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, user))

	got, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", got.Email)
	assert.Equal(t, "hash", got.PasswordHash)

	dup, err := domain.NewUser("Other", "admin@example.com", "hash", "", time.Now())
	require.NoError(t, err)
	err = repo.Insert(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestOutboxRepository(t *testing.T) {
	repo := NewOutboxRepository(setupTestDB(t))
	ctx := context.Background()

	first := NewOutboxEvent("c1", domain.EventCheckoutFinalized, []byte(`{"checkout_id":"c1"}`))
	first.CreatedAt = time.Now().Add(-time.Minute)
	second := NewOutboxEvent("c2", domain.EventCheckoutFinalized, []byte(`{"checkout_id":"c2"}`))
	require.NoError(t, repo.Insert(ctx, second))
	require.NoError(t, repo.Insert(ctx, first))

	events, err := repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c1", events[0].AggregateID)
	assert.JSONEq(t, `{"checkout_id":"c1"}`, string(events[0].Payload))

	require.NoError(t, repo.MarkProcessed(ctx, first.ID))
	events, err = repo.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, second.ID, events[0].ID)

	assert.Error(t, repo.MarkProcessed(ctx, "missing"))
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tx := NewTransactor(db)
	checkouts := NewCheckoutRepository(db)
	outbox := NewOutboxRepository(db)

	checkout := newTestCheckout(t)
	boom := fmt.Errorf("boom")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := checkouts.Insert(ctx, checkout); err != nil {
			return err
		}
		if err := outbox.Insert(ctx, NewOutboxEvent(string(checkout.ID), "test", []byte(`{}`))); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = checkouts.Get(ctx, checkout.ID)
	assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)
	events, err := outbox.GetUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTransactor_Commits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tx := NewTransactor(db)
	checkouts := NewCheckoutRepository(db)

	checkout := newTestCheckout(t)
	require.NoError(t, tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return checkouts.Insert(ctx, checkout)
	}))

	_, err := checkouts.Get(ctx, checkout.ID)
	require.NoError(t, err)
}

func TestWipeCollections(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	products := NewProductRepository(db)
	require.NoError(t, products.InsertMany(ctx, []*domain.Product{{ID: "p-1", Name: "Hat", Price: domain.MustMoney("5")}}))

	require.NoError(t, WipeCollections(ctx, db, CollectionProducts, CollectionUsers))

	all, err := products.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestContextCancellation(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(10 * time.Millisecond)

	_, err := repo.GetByOwner(ctx, domain.UserOwner("u1"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
