package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

// CartCache holds read copies of carts keyed by owner. Writers go to the
// repository and invalidate here.
type CartCache interface {
	Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Set(ctx context.Context, owner domain.Owner, cart *domain.Cart) error
	Delete(ctx context.Context, owner domain.Owner) error
}

var ErrCacheMiss = errors.New("cache miss")
