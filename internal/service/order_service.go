package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderService struct {
	repo repository.OrderRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewOrderService(repo repository.OrderRepository, log *zap.Logger) *OrderService {
	return &OrderService{repo: repo, log: log, now: utcNow}
}

// CreateFromCheckout creates the order for a finalized checkout. It is
// idempotent: an existing order for the checkout is returned as is.
func (s *OrderService) CreateFromCheckout(ctx context.Context, checkout *domain.Checkout) (*domain.Order, error) {
	existing, err := s.repo.GetByCheckoutID(ctx, checkout.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}

	order, err := domain.NewOrderFromCheckout(checkout, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateCheckout) {
			logger.WithTrace(ctx, s.log).Info("order for checkout already exists",
				zap.String("checkout_id", string(checkout.ID)))
			return s.repo.GetByCheckoutID(ctx, checkout.ID)
		}
		return nil, err
	}

	logger.WithTrace(ctx, s.log).Info("order created",
		zap.String("order_id", string(order.ID)),
		zap.String("checkout_id", string(checkout.ID)),
	)
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, userID domain.UserID, id domain.OrderID) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListByUser returns the user's orders, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrInvalidOwner
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *OrderService) MarkShipped(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	return s.transition(ctx, "OrderService.MarkShipped", id, (*domain.Order).MarkShipped)
}

// MarkDelivered is only legal for a shipped order.
func (s *OrderService) MarkDelivered(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	return s.transition(ctx, "OrderService.MarkDelivered", id, (*domain.Order).MarkDelivered)
}

func (s *OrderService) Cancel(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	return s.transition(ctx, "OrderService.Cancel", id, (*domain.Order).Cancel)
}

func (s *OrderService) transition(ctx context.Context, name string, id domain.OrderID, apply func(*domain.Order, time.Time) error) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, name)
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", string(id)))

	order, err = s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if err := apply(order, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.log).Info("order status changed",
		zap.String("order_id", string(id)),
		zap.Stringer("from", from),
		zap.Stringer("to", order.Status),
	)
	return order, nil
}
