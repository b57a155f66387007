package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog catalog.Resolver
	tx      repository.Transactor
	log     *zap.Logger
	now     func() time.Time
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	cache cache.CartCache,
	catalog catalog.Resolver,
	tx repository.Transactor,
	log *zap.Logger,
) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
		tx:      tx,
		log:     log,
		now:     utcNow,
	}
}

// GetCart returns the owner's cart. An owner without a stored cart gets an
// empty, unsaved one.
func (s *CartService) GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(owner.Key(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, owner)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithTrace(ctx, s.log).Warn("cache get failed", zap.String("owner", owner.Key()), zap.Error(err))
		}

		cart, err = s.repo.GetByOwner(ctx, owner)
		if errors.Is(err, domain.ErrCartNotFound) {
			now := s.now()
			return &domain.Cart{
				Owner:      owner,
				Items:      []domain.CatalogReference{},
				TotalPrice: domain.Zero(),
				CreatedAt:  now,
				UpdatedAt:  now,
			}, nil
		}
		if err != nil {
			return nil, err
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, owner, cart); err != nil {
				s.log.Warn("cache set failed", zap.String("owner", owner.Key()), zap.Error(err))
			}
		}()
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem resolves the product from the catalog and adds it to the owner's
// cart, creating the cart on first use.
func (s *CartService) AddItem(ctx context.Context, owner domain.Owner, productID domain.ProductID, size, color string, quantity int) (cart *domain.Cart, err error) {
	ctx, span := tracer.Start(ctx, "CartService.AddItem")
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(
		attribute.String("cart.owner", owner.Key()),
		attribute.String("product.id", string(productID)),
		attribute.Int("quantity", quantity),
	)

	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	item, err := s.catalog.ResolveCatalogItem(ctx, productID)
	if err != nil {
		return nil, err
	}
	ref, err := domain.NewCatalogReference(item, size, color, quantity)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, owner, true, func(c *domain.Cart) error {
		return c.AddItem(ref)
	})
}

// UpdateItemQuantity sets a line's quantity; zero removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, owner domain.Owner, key domain.ItemKey, quantity int) (cart *domain.Cart, err error) {
	ctx, span := tracer.Start(ctx, "CartService.UpdateItemQuantity")
	defer func() { finishSpan(span, err) }()

	return s.mutate(ctx, owner, false, func(c *domain.Cart) error {
		return c.UpdateItemQuantity(key, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, owner domain.Owner, key domain.ItemKey) (cart *domain.Cart, err error) {
	ctx, span := tracer.Start(ctx, "CartService.RemoveItem")
	defer func() { finishSpan(span, err) }()

	return s.mutate(ctx, owner, false, func(c *domain.Cart) error {
		return c.RemoveItem(key)
	})
}

// ClearCart deletes the owner's cart.
func (s *CartService) ClearCart(ctx context.Context, owner domain.Owner) (err error) {
	ctx, span := tracer.Start(ctx, "CartService.ClearCart")
	defer func() { finishSpan(span, err) }()

	cart, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, cart.ID); err != nil {
		logger.WithTrace(ctx, s.log).Error("repo delete cart failed", zap.String("owner", owner.Key()), zap.Error(err))
		return err
	}

	s.invalidateCache(owner)
	return nil
}

// MergeGuestCart moves the guest's lines into the user's cart and deletes the
// guest cart, in one transaction.
func (s *CartService) MergeGuestCart(ctx context.Context, guestID domain.GuestID, userID domain.UserID) (merged *domain.Cart, err error) {
	ctx, span := tracer.Start(ctx, "CartService.MergeGuestCart")
	defer func() { finishSpan(span, err) }()

	guestOwner := domain.GuestOwner(guestID)
	userOwner := domain.UserOwner(userID)
	if guestID == "" || userID == "" {
		return nil, domain.ErrInvalidOwner
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		guest, err := s.repo.GetByOwner(ctx, guestOwner)
		if err != nil {
			return err
		}

		user, err := s.repo.GetByOwner(ctx, userOwner)
		created := false
		if errors.Is(err, domain.ErrCartNotFound) {
			user, err = domain.NewCart(userOwner, s.now())
			created = true
		}
		if err != nil {
			return err
		}

		if err := user.Merge(guest); err != nil {
			return err
		}
		if created {
			err = s.repo.Insert(ctx, user)
		} else {
			err = s.repo.Save(ctx, user)
		}
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, guest.ID); err != nil {
			return err
		}

		merged = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(guestOwner)
	s.invalidateCache(userOwner)
	logger.WithTrace(ctx, s.log).Info("guest cart merged",
		zap.String("guest_id", string(guestID)),
		zap.String("user_id", string(userID)),
		zap.Int("lines", len(merged.Items)),
	)
	return merged, nil
}

// mutate loads the owner's cart, applies fn and writes it back with a
// versioned save. When fn fails nothing is written. create allows a missing
// cart to be started.
func (s *CartService) mutate(ctx context.Context, owner domain.Owner, create bool, fn func(*domain.Cart) error) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.repo.GetByOwner(ctx, owner)
	isNew := false
	if errors.Is(err, domain.ErrCartNotFound) && create {
		cart, err = domain.NewCart(owner, s.now())
		isNew = true
	}
	if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	if isNew {
		err = s.repo.Insert(ctx, cart)
	} else {
		err = s.repo.Save(ctx, cart)
	}
	if err != nil {
		logger.WithTrace(ctx, s.log).Warn("cart write failed", zap.String("owner", owner.Key()), zap.Error(err))
		return nil, err
	}

	s.invalidateCache(owner)
	return cart, nil
}

func (s *CartService) invalidateCache(owner domain.Owner) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("owner", owner.Key()), zap.Error(err))
	}
}
