// Package catalog resolves product snapshots and identities for the cart and
// checkout services. Lookups run behind a circuit breaker and a timeout, and
// any failure other than "not found" surfaces as
// domain.ErrDependencyUnavailable.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/pkg/circuitbreaker"
	"go.uber.org/zap"
)

type Resolver interface {
	ResolveCatalogItem(ctx context.Context, id domain.ProductID) (domain.CatalogItem, error)
}

type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id domain.UserID) (bool, error)
}

func notFoundIsSuccess(err error) bool {
	return err == nil || errors.Is(err, domain.ErrNotFound)
}

func unavailable(what string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDependencyUnavailable, what, err)
}

type ProductCatalog struct {
	products repository.ProductRepository
	breaker  *circuitbreaker.Breaker[domain.CatalogItem]
	timeout  time.Duration
}

func NewProductCatalog(products repository.ProductRepository, timeout time.Duration, log *zap.Logger) *ProductCatalog {
	return &ProductCatalog{
		products: products,
		breaker: circuitbreaker.New[domain.CatalogItem](circuitbreaker.Settings{
			Name:         "catalog",
			IsSuccessful: notFoundIsSuccess,
		}, log),
		timeout: timeout,
	}
}

func (c *ProductCatalog) ResolveCatalogItem(ctx context.Context, id domain.ProductID) (domain.CatalogItem, error) {
	if id == "" {
		return domain.CatalogItem{}, domain.ErrInvalidProduct
	}
	item, err := c.breaker.Execute(ctx, func(ctx context.Context) (domain.CatalogItem, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		p, err := c.products.Get(ctx, id)
		if err != nil {
			return domain.CatalogItem{}, err
		}
		return p.CatalogItem(), nil
	})
	if err != nil {
		return domain.CatalogItem{}, unavailable("catalog", err)
	}
	return item, nil
}

type UserDirectory struct {
	users   repository.UserRepository
	breaker *circuitbreaker.Breaker[bool]
	timeout time.Duration
}

func NewUserDirectory(users repository.UserRepository, timeout time.Duration, log *zap.Logger) *UserDirectory {
	return &UserDirectory{
		users: users,
		breaker: circuitbreaker.New[bool](circuitbreaker.Settings{
			Name:         "identity",
			IsSuccessful: notFoundIsSuccess,
		}, log),
		timeout: timeout,
	}
}

// ResolveIdentity reports whether the user exists. A missing user is
// (false, nil), not an error.
func (d *UserDirectory) ResolveIdentity(ctx context.Context, id domain.UserID) (bool, error) {
	if id == "" {
		return false, nil
	}
	exists, err := d.breaker.Execute(ctx, func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if _, err := d.users.Get(ctx, id); err != nil {
			return false, err
		}
		return true, nil
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("identity", err)
	}
	return exists, nil
}
