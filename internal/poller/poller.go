package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/publisher"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	consumerGroup = "cart-cleaner"
	maxAttempts   = 3
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CartSettler is satisfied by service.CheckoutService.
type CartSettler interface {
	SettleCart(ctx context.Context, id domain.CheckoutID) error
}

func NewKafkaReader(topic string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
}

// Poller consumes CheckoutFinalized events and removes the purchased lines
// from the buyer's cart.
type Poller struct {
	reader  MessageReader
	carts   CartSettler
	log     *zap.Logger
	backoff time.Duration
}

func NewPoller(reader MessageReader, carts CartSettler, log *zap.Logger) *Poller {
	return &Poller{reader: reader, carts: carts, log: log, backoff: 200 * time.Millisecond}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.processNext(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (p *Poller) processNext(ctx context.Context) {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.log.Error("error reading message", zap.Error(err))
		select {
		case <-time.After(p.backoff):
		case <-ctx.Done():
		}
		return
	}

	if err := p.handle(ctx, m); err != nil {
		p.log.Error("failed to handle message",
			zap.String("key", string(m.Key)),
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
	}

	if err := p.reader.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		p.log.Error("failed to commit message", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	carrier := publisher.HeaderCarrier{Headers: &m.Headers}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	ctx, span := otel.Tracer("github.com/fjod/go_shop/internal/poller").Start(ctx, "Poller.handle")
	defer span.End()

	if eventType := carrier.Get(publisher.HeaderEventType); eventType != domain.EventCheckoutFinalized {
		return nil
	}

	var event domain.CheckoutFinalizedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error parsing message: %w", err)
	}
	if event.CheckoutID == "" {
		return errors.New("missing checkout_id")
	}
	span.SetAttributes(
		attribute.String("checkout.id", string(event.CheckoutID)),
		attribute.String("user.id", string(event.UserID)),
	)

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.carts.SettleCart(ctx, event.CheckoutID)
		if err == nil {
			logger.WithTrace(ctx, p.log).Info("cart settled after checkout",
				zap.String("checkout_id", string(event.CheckoutID)),
				zap.String("user_id", string(event.UserID)),
				zap.Int("lines", len(event.Items)),
			)
			return nil
		}
		if !retryable(err) || attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(p.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	span.RecordError(err)
	return fmt.Errorf("failed to settle cart: %w", err)
}

// retryable reports whether another attempt can succeed. Conflicts and
// outages can; missing or unfinalized checkouts cannot.
func retryable(err error) bool {
	return !errors.Is(err, domain.ErrValidation) &&
		!errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrInvalidTransition)
}
