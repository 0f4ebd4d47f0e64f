package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/types"
)

// ResponseMessage is the body of a message on the response queue.
type ResponseMessage struct {
	QueryID   types.QueryID  `json:"query_id"`
	Responder types.Location `json:"responder"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
}

func (m *ResponseMessage) Response() types.Response {
	return types.Response{Responder: m.Responder, Success: m.Success, Error: m.Error}
}

// ResponseHandler processes one decoded response.
type ResponseHandler func(ctx context.Context, queryID types.QueryID, resp types.Response) error

// ResponseConsumer feeds deliveries from the response queue to a handler
// one at a time. A delivery is acked when handled, dropped when it is
// malformed or refused by the coordinator, and requeued otherwise.
type ResponseConsumer struct {
	wg   sync.WaitGroup
	quit chan struct{}
	once sync.Once

	deliveries <-chan amqp.Delivery
	handler    ResponseHandler
	timeout    time.Duration
	logger     *zap.Logger
}

func NewResponseConsumer(deliveries <-chan amqp.Delivery, handler ResponseHandler, timeout time.Duration, logger *zap.Logger) *ResponseConsumer {
	return &ResponseConsumer{
		quit:       make(chan struct{}),
		deliveries: deliveries,
		handler:    handler,
		timeout:    timeout,
		logger:     logger,
	}
}

func (c *ResponseConsumer) Start() {
	c.wg.Add(1)
	go c.consumeLoop()
}

func (c *ResponseConsumer) Stop() {
	c.once.Do(func() {
		close(c.quit)
	})
	c.wg.Wait()
}

func (c *ResponseConsumer) consumeLoop() {
	defer c.wg.Done()

	for {
		select {
		case d, ok := <-c.deliveries:
			if !ok {
				c.logger.Info("response delivery channel closed")
				return
			}
			c.process(d)
		case <-c.quit:
			c.logger.Debug("exiting response consumer loop")
			return
		}
	}
}

func (c *ResponseConsumer) process(d amqp.Delivery) {
	var msg ResponseMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error("dropping malformed response",
			zap.String("message_id", d.MessageId),
			zap.Error(err),
		)
		c.nack(d, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.handler(ctx, msg.QueryID, msg.Response())
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack response", zap.Uint64("query_id", msg.QueryID), zap.Error(ackErr))
		}
	case isDomainError(err):
		c.logger.Warn("response refused by the coordinator",
			zap.Uint64("query_id", msg.QueryID),
			zap.Error(err),
		)
		c.nack(d, false)
	default:
		c.logger.Error("failed to process response, requeueing",
			zap.Uint64("query_id", msg.QueryID),
			zap.Error(err),
		)
		c.nack(d, true)
	}
}

func (c *ResponseConsumer) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		c.logger.Error("failed to nack response", zap.Error(err))
	}
}

// isDomainError reports whether err is a registered coordinator error.
// Such responses will be refused again on redelivery.
func isDomainError(err error) bool {
	var e *errorsmod.Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Codespace() == types.ModuleName
}

// EncodeResponse is the inverse of the consumer's decoding, used by
// relayers and tests.
func EncodeResponse(queryID types.QueryID, resp types.Response) ([]byte, error) {
	body, err := json.Marshal(&ResponseMessage{
		QueryID:   queryID,
		Responder: resp.Responder,
		Success:   resp.Success,
		Error:     resp.Error,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response %d: %w", queryID, err)
	}
	return body, nil
}
