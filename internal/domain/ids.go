package domain

import "github.com/google/uuid"

// Identifier newtypes. Each aggregate and external reference gets its own type
// so a product id can never be passed where a user id is expected.
type (
	UserID     string
	GuestID    string
	ProductID  string
	CartID     string
	CheckoutID string
	OrderID    string
)

func NewUserID() UserID         { return UserID(uuid.NewString()) }
func NewProductID() ProductID   { return ProductID(uuid.NewString()) }
func NewCartID() CartID         { return CartID(uuid.NewString()) }
func NewCheckoutID() CheckoutID { return CheckoutID(uuid.NewString()) }
func NewOrderID() OrderID       { return OrderID(uuid.NewString()) }

func (id UserID) String() string     { return string(id) }
func (id GuestID) String() string    { return string(id) }
func (id ProductID) String() string  { return string(id) }
func (id CartID) String() string     { return string(id) }
func (id CheckoutID) String() string { return string(id) }
func (id OrderID) String() string    { return string(id) }
