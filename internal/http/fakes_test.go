package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeCartService struct {
	cart     *domain.Cart
	err      error
	lastKey  domain.ItemKey
	lastQty  int
	owner    domain.Owner
	merged   [2]string
	cleared  bool
	addedPID domain.ProductID
}

func (f *fakeCartService) GetCart(_ context.Context, owner domain.Owner) (*domain.Cart, error) {
	f.owner = owner
	return f.cart, f.err
}

func (f *fakeCartService) AddItem(_ context.Context, owner domain.Owner, productID domain.ProductID, size, color string, quantity int) (*domain.Cart, error) {
	f.owner = owner
	f.addedPID = productID
	f.lastKey = domain.ItemKey{ProductID: productID, Size: size, Color: color}
	f.lastQty = quantity
	return f.cart, f.err
}

func (f *fakeCartService) UpdateItemQuantity(_ context.Context, owner domain.Owner, key domain.ItemKey, quantity int) (*domain.Cart, error) {
	f.owner = owner
	f.lastKey = key
	f.lastQty = quantity
	return f.cart, f.err
}

func (f *fakeCartService) RemoveItem(_ context.Context, owner domain.Owner, key domain.ItemKey) (*domain.Cart, error) {
	f.owner = owner
	f.lastKey = key
	return f.cart, f.err
}

func (f *fakeCartService) ClearCart(_ context.Context, owner domain.Owner) error {
	f.owner = owner
	f.cleared = f.err == nil
	return f.err
}

func (f *fakeCartService) MergeGuestCart(_ context.Context, guestID domain.GuestID, userID domain.UserID) (*domain.Cart, error) {
	f.merged = [2]string{string(guestID), string(userID)}
	return f.cart, f.err
}

type fakeCheckoutService struct {
	checkout *domain.Checkout
	order    *domain.Order
	err      error
	owner    domain.Owner
	userID   domain.UserID
	address  domain.ShippingAddress
	status   string
	details  map[string]any
}

func (f *fakeCheckoutService) CreateFromCart(_ context.Context, owner domain.Owner, address domain.ShippingAddress, _ string) (*domain.Checkout, error) {
	f.owner = owner
	f.address = address
	return f.checkout, f.err
}

func (f *fakeCheckoutService) Get(_ context.Context, userID domain.UserID, _ domain.CheckoutID) (*domain.Checkout, error) {
	f.userID = userID
	return f.checkout, f.err
}

func (f *fakeCheckoutService) ConfirmPayment(_ context.Context, userID domain.UserID, _ domain.CheckoutID, details map[string]any, status string) (*domain.Checkout, error) {
	f.userID = userID
	f.details = details
	f.status = status
	return f.checkout, f.err
}

func (f *fakeCheckoutService) Finalize(_ context.Context, userID domain.UserID, _ domain.CheckoutID) (*domain.Order, error) {
	f.userID = userID
	return f.order, f.err
}

type fakeOrderService struct {
	order   *domain.Order
	orders  []*domain.Order
	err     error
	applied string
}

func (f *fakeOrderService) Get(_ context.Context, _ domain.UserID, _ domain.OrderID) (*domain.Order, error) {
	return f.order, f.err
}

func (f *fakeOrderService) ListByUser(_ context.Context, _ domain.UserID) ([]*domain.Order, error) {
	return f.orders, f.err
}

func (f *fakeOrderService) MarkShipped(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	f.applied = "ship:" + string(id)
	return f.order, f.err
}

func (f *fakeOrderService) MarkDelivered(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	f.applied = "deliver:" + string(id)
	return f.order, f.err
}

func (f *fakeOrderService) Cancel(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	f.applied = "cancel:" + string(id)
	return f.order, f.err
}

type fakeUserService struct {
	users map[domain.UserID]*domain.User
	err   error
}

func (f *fakeUserService) Register(_ context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, err := domain.NewUser(name, email, "hash:"+password, role, testNow)
	if err != nil {
		return nil, err
	}
	if f.users == nil {
		f.users = map[domain.UserID]*domain.User{}
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserService) Get(_ context.Context, id domain.UserID) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

type fakeProductService struct {
	products []*domain.Product
	err      error
	category string
}

func (f *fakeProductService) List(_ context.Context, category string) ([]*domain.Product, error) {
	f.category = category
	return f.products, f.err
}

func (f *fakeProductService) Get(_ context.Context, id domain.ProductID) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

type testServer struct {
	carts     *fakeCartService
	checkouts *fakeCheckoutService
	orders    *fakeOrderService
	users     *fakeUserService
	products  *fakeProductService
	registry  *prometheus.Registry
	handler   http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		carts:     &fakeCartService{},
		checkouts: &fakeCheckoutService{},
		orders:    &fakeOrderService{},
		users:     &fakeUserService{users: map[domain.UserID]*domain.User{}},
		products:  &fakeProductService{},
		registry:  prometheus.NewRegistry(),
	}
	ts.handler = NewRouter(Services{
		Users:     ts.users,
		Products:  ts.products,
		Carts:     ts.carts,
		Checkouts: ts.checkouts,
		Orders:    ts.orders,
	}, RouterConfig{
		RequestTimeout: 5 * time.Second,
		MaxBodyBytes:   1 << 10,
		Metrics:        NewMetrics(ts.registry),
		Gatherer:       ts.registry,
		Logger:         zap.NewNop(),
	})
	return ts
}

func (ts *testServer) addUser(id domain.UserID, role domain.Role) {
	ts.users.users[id] = &domain.User{ID: id, Name: "Test", Email: string(id) + "@example.com", Role: role}
}
