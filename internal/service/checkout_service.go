package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CheckoutService struct {
	checkouts repository.CheckoutRepository
	carts     repository.CartRepository
	cartCache cache.CartCache
	outbox    repository.OutboxRepository
	tx        repository.Transactor
	identity  catalog.IdentityResolver
	orders    *OrderService
	log       *zap.Logger
	now       func() time.Time
}

func NewCheckoutService(
	checkouts repository.CheckoutRepository,
	carts repository.CartRepository,
	cartCache cache.CartCache,
	outbox repository.OutboxRepository,
	tx repository.Transactor,
	identity catalog.IdentityResolver,
	orders *OrderService,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		checkouts: checkouts,
		carts:     carts,
		cartCache: cartCache,
		outbox:    outbox,
		tx:        tx,
		identity:  identity,
		orders:    orders,
		log:       log,
		now:       utcNow,
	}
}

// CreateFromCart snapshots the owner's cart into a new checkout. Guests must
// sign in first. The cart stays as it is until the checkout is finalized, and
// no new checkout starts while a finalized one is not yet settled against it.
func (s *CheckoutService) CreateFromCart(ctx context.Context, owner domain.Owner, address domain.ShippingAddress, paymentMethod string) (checkout *domain.Checkout, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.CreateFromCart")
	defer func() { finishSpan(span, err) }()

	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if owner.IsGuest() {
		return nil, domain.ErrGuestCheckoutNotAllowed
	}
	span.SetAttributes(attribute.String("user.id", string(owner.UserID)))

	exists, err := s.identity.ResolveIdentity(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	unsettled, err := s.checkouts.CountUnsettled(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if unsettled > 0 {
		return nil, domain.ErrPurchaseSettling
	}

	cart, err := s.carts.GetByOwner(ctx, domain.UserOwner(owner.UserID))
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil, domain.ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	checkout, err = domain.NewCheckoutFromCart(cart, address, paymentMethod, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.checkouts.Insert(ctx, checkout); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.log).Info("checkout created",
		zap.String("checkout_id", string(checkout.ID)),
		zap.String("user_id", string(checkout.UserID)),
		zap.String("total", checkout.TotalPrice.String()),
	)
	return checkout, nil
}

func (s *CheckoutService) Get(ctx context.Context, userID domain.UserID, id domain.CheckoutID) (*domain.Checkout, error) {
	checkout, err := s.checkouts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if checkout.UserID != userID {
		return nil, domain.ErrCheckoutNotFound
	}
	return checkout, nil
}

// ConfirmPayment marks the checkout paid. A second confirmation fails with
// domain.ErrAlreadyPaid and leaves the first one's data in place.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, userID domain.UserID, id domain.CheckoutID, details map[string]any, status string) (checkout *domain.Checkout, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.ConfirmPayment")
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("checkout.id", string(id)))

	checkout, err = s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := checkout.ConfirmPayment(details, status, s.now()); err != nil {
		return nil, err
	}
	if err := s.checkouts.Save(ctx, checkout); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.log).Info("checkout paid",
		zap.String("checkout_id", string(id)),
		zap.String("payment_status", checkout.PaymentStatus),
	)
	return checkout, nil
}

// Finalize closes a paid checkout. In one transaction it marks the checkout
// finalized, creates its order and records a CheckoutFinalized outbox event.
// Consuming the event runs SettleCart.
func (s *CheckoutService) Finalize(ctx context.Context, userID domain.UserID, id domain.CheckoutID) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.Finalize")
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("checkout.id", string(id)))

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		checkout, err := s.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := checkout.Finalize(s.now()); err != nil {
			return err
		}
		if err := s.checkouts.Save(ctx, checkout); err != nil {
			return err
		}

		created, err := s.orders.CreateFromCheckout(ctx, checkout)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(domain.CheckoutFinalizedEvent{
			CheckoutID:  checkout.ID,
			OrderID:     created.ID,
			UserID:      checkout.UserID,
			Items:       checkout.Items,
			TotalPrice:  checkout.TotalPrice,
			FinalizedAt: *checkout.FinalizedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal checkout finalized event: %w", err)
		}
		event := repository.NewOutboxEvent(string(checkout.ID), domain.EventCheckoutFinalized, payload)
		if err := s.outbox.Insert(ctx, event); err != nil {
			return err
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.log).Info("checkout finalized",
		zap.String("checkout_id", string(id)),
		zap.String("order_id", string(order.ID)),
	)
	return order, nil
}

// SettleCart removes a finalized checkout's purchased lines from the buyer's
// cart. Lines added after the checkout was created keep their extra quantity.
// Settling twice is a no-op, so redelivered events are safe.
func (s *CheckoutService) SettleCart(ctx context.Context, id domain.CheckoutID) (err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.SettleCart")
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("checkout.id", string(id)))

	var (
		owner   domain.Owner
		settled bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		checkout, err := s.checkouts.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = domain.UserOwner(checkout.UserID)
		settled, err = checkout.MarkCartSettled(s.now())
		if err != nil || !settled {
			return err
		}

		// A concurrent cart write fails the versioned save and the caller retries.
		cart, err := s.carts.GetByOwner(ctx, owner)
		if err != nil && !errors.Is(err, domain.ErrCartNotFound) {
			return err
		}
		if cart != nil && cart.RemovePurchased(checkout.Items) {
			if err := s.carts.Save(ctx, cart); err != nil {
				return err
			}
		}

		return s.checkouts.Save(ctx, checkout)
	})
	if err != nil {
		return err
	}
	if !settled {
		return nil
	}

	cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cartCache.Delete(cacheCtx, owner); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("owner", owner.Key()), zap.Error(err))
	}

	logger.WithTrace(ctx, s.log).Info("purchased items removed from cart",
		zap.String("checkout_id", string(id)),
		zap.String("user_id", string(owner.UserID)),
	)
	return nil
}
