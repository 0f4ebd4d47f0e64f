package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	RtyAttNum = uint(5)
	RtyAtt    = retry.Attempts(RtyAttNum)
	RtyDel    = retry.Delay(time.Millisecond * 400)
	RtyErr    = retry.LastErrorOnly(true)
)

const consumerTag = "xdd"

// Publisher is the subset of an AMQP channel used to publish messages.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Client owns the broker connection. Publishing and consuming use separate
// channels so that flow control on one does not stall the other.
type Client struct {
	mu sync.Mutex

	cfg    *Config
	logger *zap.Logger

	conn    *amqp.Connection
	pubCh   *amqp.Channel
	consCh  *amqp.Channel
	closed  bool
	onClose chan *amqp.Error
}

// NewClient dials the broker and declares the queues and the event exchange.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	var conn *amqp.Connection
	if err := retry.Do(func() error {
		c, err := amqp.Dial(cfg.URI())
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, RtyAtt, RtyDel, RtyErr, retry.OnRetry(func(n uint, err error) {
		logger.Debug(
			"failed to connect to the AMQP broker",
			zap.String("url", cfg.URL),
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err),
		)
	})); err != nil {
		return nil, fmt.Errorf("failed to connect to the AMQP broker at %s: %w", cfg.URL, err)
	}

	c := &Client{
		cfg:     cfg,
		logger:  logger,
		conn:    conn,
		onClose: conn.NotifyClose(make(chan *amqp.Error, 1)),
	}
	if err := c.setup(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("connected to the AMQP broker", zap.String("url", cfg.URL))

	return c, nil
}

func (c *Client) setup() error {
	pubCh, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open publishing channel: %w", err)
	}
	for _, name := range []string{c.cfg.OutboundQueue, c.cfg.ResponseQueue} {
		if _, err := pubCh.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}
	if c.cfg.EventExchange != "" {
		if err := pubCh.ExchangeDeclare(c.cfg.EventExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", c.cfg.EventExchange, err)
		}
	}

	consCh, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consuming channel: %w", err)
	}
	if err := consCh.Qos(c.cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch count: %w", err)
	}

	c.pubCh = pubCh
	c.consCh = consCh
	return nil
}

// Router returns the outbound channel backed by the publishing channel.
func (c *Client) Router() *Router {
	return NewRouter(c.pubCh, c.cfg.OutboundQueue, c.cfg.PublishTimeout, c.logger)
}

// EventPublisher returns a publisher of coordinator events, or nil when no
// event exchange is configured.
func (c *Client) EventPublisher() *EventPublisher {
	if c.cfg.EventExchange == "" {
		return nil
	}
	return NewEventPublisher(c.pubCh, c.cfg.EventExchange, c.cfg.PublishTimeout, c.logger)
}

// ConsumeResponses starts delivering responses to handler.
func (c *Client) ConsumeResponses(handler ResponseHandler) (*ResponseConsumer, error) {
	deliveries, err := c.consCh.Consume(c.cfg.ResponseQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume queue %s: %w", c.cfg.ResponseQueue, err)
	}

	consumer := NewResponseConsumer(deliveries, handler, c.cfg.ProcessingTimeout, c.logger)
	consumer.Start()

	return consumer, nil
}

// NotifyClose returns a channel that receives the error the connection was
// closed with by the broker.
func (c *Client) NotifyClose() <-chan *amqp.Error {
	return c.onClose
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.consCh != nil {
		if err := c.consCh.Cancel(consumerTag, false); err != nil {
			c.logger.Debug("failed to cancel response consumer", zap.Error(err))
		}
	}

	return c.conn.Close()
}
