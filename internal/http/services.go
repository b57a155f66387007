package http

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
)

// The handlers depend on these instead of the concrete services so that they
// can be tested with hand-written fakes.

type CartService interface {
	GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	AddItem(ctx context.Context, owner domain.Owner, productID domain.ProductID, size, color string, quantity int) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner domain.Owner, key domain.ItemKey, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.Owner, key domain.ItemKey) (*domain.Cart, error)
	ClearCart(ctx context.Context, owner domain.Owner) error
	MergeGuestCart(ctx context.Context, guestID domain.GuestID, userID domain.UserID) (*domain.Cart, error)
}

type CheckoutService interface {
	CreateFromCart(ctx context.Context, owner domain.Owner, address domain.ShippingAddress, paymentMethod string) (*domain.Checkout, error)
	Get(ctx context.Context, userID domain.UserID, id domain.CheckoutID) (*domain.Checkout, error)
	ConfirmPayment(ctx context.Context, userID domain.UserID, id domain.CheckoutID, details map[string]any, status string) (*domain.Checkout, error)
	Finalize(ctx context.Context, userID domain.UserID, id domain.CheckoutID) (*domain.Order, error)
}

type OrderService interface {
	Get(ctx context.Context, userID domain.UserID, id domain.OrderID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Order, error)
	MarkShipped(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	MarkDelivered(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	Cancel(ctx context.Context, id domain.OrderID) (*domain.Order, error)
}

type UserService interface {
	Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error)
	Get(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type ProductService interface {
	List(ctx context.Context, category string) ([]*domain.Product, error)
	Get(ctx context.Context, id domain.ProductID) (*domain.Product, error)
}
