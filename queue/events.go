package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/types"
)

// EventEnvelope is the body of a published event. The routing key is the
// event name.
type EventEnvelope struct {
	Name      string      `json:"name"`
	Timestamp time.Time   `json:"timestamp"`
	Data      types.Event `json:"data"`
}

// EventPublisher publishes coordinator events to a topic exchange. Events
// are emitted after the state change committed, so publishing failures are
// logged and dropped.
type EventPublisher struct {
	pub      Publisher
	exchange string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewEventPublisher(pub Publisher, exchange string, timeout time.Duration, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		pub:      pub,
		exchange: exchange,
		timeout:  timeout,
		logger:   logger,
	}
}

func (p *EventPublisher) Emit(ev types.Event) {
	now := time.Now().UTC()
	body, err := json.Marshal(&EventEnvelope{Name: ev.EventName(), Timestamp: now, Data: ev})
	if err != nil {
		p.logger.Error("failed to marshal event", zap.String("event", ev.EventName()), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.pub.PublishWithContext(ctx, p.exchange, ev.EventName(), false, false, amqp.Publishing{
		ContentType:  messageContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Type:         ev.EventName(),
		Body:         body,
	})
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.String("event", ev.EventName()),
			zap.String("exchange", p.exchange),
			zap.Error(err),
		)
	}
}
