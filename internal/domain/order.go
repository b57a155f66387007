package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Delivery requires a prior shipment: Processing cannot jump to Delivered.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := orderTransitions[status]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
	}
	return status, nil
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) String() string {
	return string(s)
}

type Order struct {
	ID              OrderID            `bson:"_id" json:"id"`
	CheckoutID      CheckoutID         `bson:"checkout_id" json:"checkout_id"`
	UserID          UserID             `bson:"user" json:"user"`
	Items           []CatalogReference `bson:"order_items" json:"order_items"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	PaymentMethod   string             `bson:"payment_method" json:"payment_method"`
	TotalPrice      Money              `bson:"total_price" json:"total_price"`
	IsPaid          bool               `bson:"is_paid" json:"is_paid"`
	PaidAt          *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	PaymentStatus   string             `bson:"payment_status" json:"payment_status"`
	IsDelivered     bool               `bson:"is_delivered" json:"is_delivered"`
	DeliveredAt     *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	Status          OrderStatus        `bson:"status" json:"status"`
	Version         int64              `bson:"version" json:"-"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewOrderFromCheckout copies a finalized checkout into a new order in the
// Processing state.
func NewOrderFromCheckout(c *Checkout, now time.Time) (*Order, error) {
	if c == nil || !c.IsFinalized {
		return nil, ErrCheckoutNotFinalized
	}
	var paidAt *time.Time
	if c.PaidAt != nil {
		t := *c.PaidAt
		paidAt = &t
	}
	return &Order{
		ID:              NewOrderID(),
		CheckoutID:      c.ID,
		UserID:          c.UserID,
		Items:           cloneItems(c.Items),
		ShippingAddress: c.ShippingAddress,
		PaymentMethod:   c.PaymentMethod,
		TotalPrice:      c.TotalPrice,
		IsPaid:          c.IsPaid,
		PaidAt:          paidAt,
		PaymentStatus:   c.PaymentStatus,
		Status:          OrderStatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) transition(next OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: order %s cannot move from %s to %s", ErrInvalidTransition, o.ID, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

func (o *Order) MarkShipped(now time.Time) error {
	return o.transition(OrderStatusShipped, now)
}

func (o *Order) MarkDelivered(now time.Time) error {
	if err := o.transition(OrderStatusDelivered, now); err != nil {
		return err
	}
	deliveredAt := now
	o.IsDelivered = true
	o.DeliveredAt = &deliveredAt
	return nil
}

func (o *Order) Cancel(now time.Time) error {
	return o.transition(OrderStatusCancelled, now)
}
