package domain

import (
	"strings"
	"time"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

type ShippingAddress struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
}

func (a ShippingAddress) Validate() error {
	for _, field := range []string{a.Address, a.City, a.PostalCode, a.Country} {
		if strings.TrimSpace(field) == "" {
			return ErrIncompleteAddress
		}
	}
	return nil
}

type CheckoutState string

const (
	CheckoutStateCreated   CheckoutState = "CREATED"
	CheckoutStatePaid      CheckoutState = "PAID"
	CheckoutStateFinalized CheckoutState = "FINALIZED"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateCreated:   {CheckoutStatePaid},
	CheckoutStatePaid:      {CheckoutStateFinalized},
	CheckoutStateFinalized: {},
}

func (s CheckoutState) CanTransitionTo(next CheckoutState) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CheckoutState) IsTerminal() bool {
	return len(checkoutTransitions[s]) == 0
}

func (s CheckoutState) String() string {
	return string(s)
}

// Checkout is a cart frozen at purchase intent. Items and total are fixed at
// creation; only payment confirmation and finalization change it afterwards.
type Checkout struct {
	ID              CheckoutID         `bson:"_id" json:"id"`
	UserID          UserID             `bson:"user" json:"user"`
	Items           []CatalogReference `bson:"checkout_items" json:"checkout_items"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	PaymentMethod   string             `bson:"payment_method" json:"payment_method"`
	TotalPrice      Money              `bson:"total_price" json:"total_price"`
	IsPaid          bool               `bson:"is_paid" json:"is_paid"`
	PaidAt          *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	PaymentStatus   string             `bson:"payment_status" json:"payment_status"`
	PaymentDetails  map[string]any     `bson:"payment_details,omitempty" json:"payment_details,omitempty"`
	IsFinalized     bool               `bson:"is_finalized" json:"is_finalized"`
	FinalizedAt     *time.Time         `bson:"finalized_at,omitempty" json:"finalized_at,omitempty"`
	CartSettled     bool               `bson:"cart_settled" json:"-"`
	Version         int64              `bson:"version" json:"-"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewCheckoutFromCart snapshots cart. The cart itself is left untouched.
func NewCheckoutFromCart(cart *Cart, address ShippingAddress, paymentMethod string, now time.Time) (*Checkout, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if cart.UserID == "" {
		return nil, ErrGuestCheckoutNotAllowed
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		return nil, ErrPaymentMethodRequired
	}
	for _, item := range cart.Items {
		if err := item.validateFrozen(); err != nil {
			return nil, err
		}
	}

	items := cloneItems(cart.Items)
	return &Checkout{
		ID:              NewCheckoutID(),
		UserID:          cart.UserID,
		Items:           items,
		ShippingAddress: address,
		PaymentMethod:   paymentMethod,
		TotalPrice:      ComputeTotal(items),
		PaymentStatus:   PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (c *Checkout) State() CheckoutState {
	switch {
	case c.IsFinalized:
		return CheckoutStateFinalized
	case c.IsPaid:
		return CheckoutStatePaid
	default:
		return CheckoutStateCreated
	}
}

// ConfirmPayment records a successful payment. An empty status is stored as
// "paid".
func (c *Checkout) ConfirmPayment(details map[string]any, status string, now time.Time) error {
	if c.IsPaid {
		return ErrAlreadyPaid
	}
	if !c.State().CanTransitionTo(CheckoutStatePaid) {
		return ErrInvalidTransition
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = PaymentStatusPaid
	}
	paidAt := now
	c.IsPaid = true
	c.PaidAt = &paidAt
	c.PaymentStatus = status
	c.PaymentDetails = details
	c.UpdatedAt = now
	return nil
}

func (c *Checkout) Finalize(now time.Time) error {
	if c.IsFinalized {
		return ErrAlreadyFinalized
	}
	if !c.IsPaid {
		return ErrNotPaid
	}
	if !c.State().CanTransitionTo(CheckoutStateFinalized) {
		return ErrInvalidTransition
	}
	finalizedAt := now
	c.IsFinalized = true
	c.FinalizedAt = &finalizedAt
	c.UpdatedAt = now
	return nil
}

// MarkCartSettled records that the purchased lines were taken out of the
// buyer's cart. It reports false when that already happened.
func (c *Checkout) MarkCartSettled(now time.Time) (bool, error) {
	if !c.IsFinalized {
		return false, ErrCheckoutNotFinalized
	}
	if c.CartSettled {
		return false, nil
	}
	c.CartSettled = true
	c.UpdatedAt = now
	return true, nil
}
