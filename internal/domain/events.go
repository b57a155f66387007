package domain

import "time"

const EventCheckoutFinalized = "CheckoutFinalized"

// CheckoutFinalizedEvent is published once per finalized checkout. Items are
// the purchased lines, the only ones the cart settlement removes.
type CheckoutFinalizedEvent struct {
	CheckoutID  CheckoutID         `json:"checkout_id"`
	OrderID     OrderID            `json:"order_id"`
	UserID      UserID             `json:"user_id"`
	Items       []CatalogReference `json:"items"`
	TotalPrice  Money              `json:"total_price"`
	FinalizedAt time.Time          `json:"finalized_at"`
}
