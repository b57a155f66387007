package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the domain and service layers wraps
// exactly one of these, so callers classify with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrInvalidTransition     = errors.New("invalid state transition")
	ErrNotFound              = errors.New("not found")
	ErrConcurrencyConflict   = errors.New("concurrent modification, reload and retry")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

var (
	ErrInvalidQuantity         = fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, MaxLineQuantity)
	ErrInvalidOwner            = fmt.Errorf("%w: user id or guest id is required", ErrValidation)
	ErrInvalidProduct          = fmt.Errorf("%w: product id is required", ErrValidation)
	ErrNegativePrice           = fmt.Errorf("%w: price cannot be negative", ErrValidation)
	ErrIncompleteItem          = fmt.Errorf("%w: item name, image and price are required", ErrValidation)
	ErrIncompleteAddress       = fmt.Errorf("%w: address, city, postal code and country are required", ErrValidation)
	ErrPaymentMethodRequired   = fmt.Errorf("%w: payment method is required", ErrValidation)
	ErrEmptyCart               = fmt.Errorf("%w: cart is empty, nothing to checkout", ErrValidation)
	ErrGuestCheckoutNotAllowed = fmt.Errorf("%w: guests must sign in before checkout", ErrValidation)

	ErrAlreadyPaid          = fmt.Errorf("%w: checkout is already paid", ErrInvalidTransition)
	ErrNotPaid              = fmt.Errorf("%w: checkout is not paid", ErrInvalidTransition)
	ErrAlreadyFinalized     = fmt.Errorf("%w: checkout is already finalized", ErrInvalidTransition)
	ErrCheckoutNotFinalized = fmt.Errorf("%w: checkout is not finalized", ErrInvalidTransition)

	ErrPurchaseSettling = fmt.Errorf("%w: the previous checkout is still being removed from the cart", ErrConcurrencyConflict)

	ErrCartNotFound     = fmt.Errorf("cart %w", ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("item %w in cart", ErrNotFound)
	ErrCheckoutNotFound = fmt.Errorf("checkout %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
)
