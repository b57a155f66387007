package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_shop/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const batchSize = 100

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

// OutboxPoller publishes outbox events in creation order and marks each one
// processed after the broker accepted it. Delivery is at least once.
type OutboxPoller struct {
	repo      repository.OutboxRepository
	writer    MessageWriter
	log       *zap.Logger
	eventTick time.Duration
	timeout   time.Duration
}

func NewOutboxPoller(repo repository.OutboxRepository, writer MessageWriter, log *zap.Logger) *OutboxPoller {
	return &OutboxPoller{
		repo:      repo,
		writer:    writer,
		log:       log,
		eventTick: time.Second,
		timeout:   5 * time.Second,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

// processUnpublishedEvents returns how many events were published.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessed(ctx, batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error("failed to publish outbox event", zap.String("event_id", event.ID), zap.Error(err))
			// Later events of the same aggregate must not overtake this one.
			return published
		}
		if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
			p.log.Error("failed to mark outbox event as processed", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	ctx, span := otel.Tracer("github.com/fjod/go_shop/internal/publisher").Start(ctx, "OutboxPoller.publish")
	defer span.End()

	headers := []kafka.Header{{Key: HeaderEventType, Value: []byte(event.EventType)}}
	otel.GetTextMapPropagator().Inject(ctx, HeaderCarrier{Headers: &headers})

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	})
}
