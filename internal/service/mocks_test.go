package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

// snapshotter is implemented by the in-memory stores so mockTx can roll them
// back when the transaction body fails.
type snapshotter interface {
	snapshot() func()
}

type mockTx struct {
	stores []snapshotter
	calls  int
}

func (m *mockTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	restores := make([]func(), len(m.stores))
	for i, s := range m.stores {
		restores[i] = s.snapshot()
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

func copyCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.CatalogReference{}, c.Items...)
	return &out
}

type memCartRepo struct {
	mu       sync.Mutex
	carts    map[domain.CartID]*domain.Cart
	getErr   error
	writeErr error
	saves    int
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[domain.CartID]*domain.Cart{}}
}

func (m *memCartRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[domain.CartID]*domain.Cart, len(m.carts))
	for id, c := range m.carts {
		saved[id] = copyCart(c)
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.carts = saved
	}
}

func (m *memCartRepo) GetByOwner(_ context.Context, owner domain.Owner) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, c := range m.carts {
		if owner.UserID != "" && c.UserID == owner.UserID {
			return copyCart(c), nil
		}
		if owner.UserID == "" && c.UserID == "" && c.GuestID == owner.GuestID {
			return copyCart(c), nil
		}
	}
	return nil, domain.ErrCartNotFound
}

func (m *memCartRepo) Insert(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	cart.Version = 1
	m.carts[cart.ID] = copyCart(cart)
	return nil
}

func (m *memCartRepo) Save(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	stored, ok := m.carts[cart.ID]
	if !ok || stored.Version != cart.Version {
		return domain.ErrConcurrencyConflict
	}
	cart.Version++
	m.carts[cart.ID] = copyCart(cart)
	m.saves++
	return nil
}

func (m *memCartRepo) Delete(_ context.Context, id domain.CartID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[id]; !ok {
		return domain.ErrCartNotFound
	}
	delete(m.carts, id)
	return nil
}

func (m *memCartRepo) stored(owner domain.Owner) *domain.Cart {
	c, err := m.GetByOwner(context.Background(), owner)
	if err != nil {
		return nil
	}
	return c
}

type memCache struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	getErr  error
	deletes int
}

func newMemCache() *memCache {
	return &memCache{carts: map[string]*domain.Cart{}}
}

func (m *memCache) Get(_ context.Context, owner domain.Owner) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[owner.Key()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return copyCart(c), nil
}

func (m *memCache) Set(_ context.Context, owner domain.Owner, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[owner.Key()] = copyCart(cart)
	return nil
}

func (m *memCache) Delete(_ context.Context, owner domain.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, owner.Key())
	m.deletes++
	return nil
}

func (m *memCache) has(owner domain.Owner) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.carts[owner.Key()]
	return ok
}

type mockCatalog struct {
	items map[domain.ProductID]domain.CatalogItem
	err   error
	calls int
}

func (m *mockCatalog) ResolveCatalogItem(_ context.Context, id domain.ProductID) (domain.CatalogItem, error) {
	m.calls++
	if m.err != nil {
		return domain.CatalogItem{}, m.err
	}
	item, ok := m.items[id]
	if !ok {
		return domain.CatalogItem{}, domain.ErrProductNotFound
	}
	return item, nil
}

type mockIdentity struct {
	known map[domain.UserID]bool
	err   error
}

func (m *mockIdentity) ResolveIdentity(_ context.Context, id domain.UserID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.known[id], nil
}

func copyCheckout(c *domain.Checkout) *domain.Checkout {
	out := *c
	out.Items = append([]domain.CatalogReference{}, c.Items...)
	return &out
}

type memCheckoutRepo struct {
	mu        sync.Mutex
	checkouts map[domain.CheckoutID]*domain.Checkout
	saveErr   error
}

func newMemCheckoutRepo() *memCheckoutRepo {
	return &memCheckoutRepo{checkouts: map[domain.CheckoutID]*domain.Checkout{}}
}

func (m *memCheckoutRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[domain.CheckoutID]*domain.Checkout, len(m.checkouts))
	for id, c := range m.checkouts {
		saved[id] = copyCheckout(c)
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.checkouts = saved
	}
}

func (m *memCheckoutRepo) Get(_ context.Context, id domain.CheckoutID) (*domain.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checkouts[id]
	if !ok {
		return nil, domain.ErrCheckoutNotFound
	}
	return copyCheckout(c), nil
}

func (m *memCheckoutRepo) Insert(_ context.Context, c *domain.Checkout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Version = 1
	m.checkouts[c.ID] = copyCheckout(c)
	return nil
}

func (m *memCheckoutRepo) Save(_ context.Context, c *domain.Checkout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.checkouts[c.ID]
	if !ok || stored.Version != c.Version {
		return domain.ErrConcurrencyConflict
	}
	c.Version++
	m.checkouts[c.ID] = copyCheckout(c)
	return nil
}

func (m *memCheckoutRepo) CountUnsettled(_ context.Context, userID domain.UserID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.checkouts {
		if c.UserID == userID && c.IsFinalized && !c.CartSettled {
			n++
		}
	}
	return n, nil
}

type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[domain.OrderID]*domain.Order
	insertErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[domain.OrderID]*domain.Order{}}
}

func (m *memOrderRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[domain.OrderID]*domain.Order, len(m.orders))
	for id, o := range m.orders {
		cp := *o
		saved[id] = &cp
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.orders = saved
	}
}

func (m *memOrderRepo) Get(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) GetByCheckoutID(_ context.Context, id domain.CheckoutID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.CheckoutID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *memOrderRepo) ListByUser(_ context.Context, userID domain.UserID) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) Insert(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, existing := range m.orders {
		if existing.CheckoutID == o.CheckoutID {
			return repository.ErrDuplicateCheckout
		}
	}
	o.Version = 1
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) Save(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID]
	if !ok || stored.Version != o.Version {
		return domain.ErrConcurrencyConflict
	}
	o.Version++
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

type memOutbox struct {
	mu        sync.Mutex
	events    []*repository.OutboxEvent
	insertErr error
}

func (m *memOutbox) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := append([]*repository.OutboxEvent{}, m.events...)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.events = saved
	}
}

func (m *memOutbox) Insert(_ context.Context, e *repository.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memOutbox) GetUnprocessed(context.Context, int64) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*repository.OutboxEvent{}, m.events...), nil
}

func (m *memOutbox) MarkProcessed(context.Context, string) error { return nil }

type memUserRepo struct {
	users map[domain.UserID]*domain.User
}

func (m *memUserRepo) Get(_ context.Context, id domain.UserID) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) Insert(_ context.Context, u *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.users[u.ID] = u
	return nil
}

type memProductRepo struct {
	products []*domain.Product
}

func (m *memProductRepo) Get(_ context.Context, id domain.ProductID) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *memProductRepo) List(_ context.Context, category string) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0)
	for _, p := range m.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProductRepo) InsertMany(_ context.Context, products []*domain.Product) error {
	m.products = append(m.products, products...)
	return nil
}

var errBoom = errors.New("boom")
