package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/xcm"
)

const messageContentType = "application/json"

// Router publishes outbound remote calls to the outbound queue where the
// messaging relayer picks them up.
type Router struct {
	pub     Publisher
	queue   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ xcm.Router = (*Router)(nil)

func NewRouter(pub Publisher, queueName string, timeout time.Duration, logger *zap.Logger) *Router {
	return &Router{
		pub:     pub,
		queue:   queueName,
		timeout: timeout,
		logger:  logger,
	}
}

// Send publishes msg as a persistent message. It does not retry; a failed
// publish is reported to the caller which then records nothing.
func (r *Router) Send(ctx context.Context, msg *xcm.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", msg.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = r.pub.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  messageContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    time.Now(),
		Type:         msg.Protocol.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message %s to queue %s: %w", msg.ID, r.queue, err)
	}

	r.logger.Debug("published outbound message",
		zap.String("id", msg.ID),
		zap.String("protocol", msg.Protocol.String()),
		zap.String("destination", msg.Destination.String()),
	)

	return nil
}
