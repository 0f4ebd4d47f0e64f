package queue

import (
	"fmt"
	"time"
)

const (
	defaultURL               = "localhost:5672"
	defaultUser              = "guest"
	defaultPassword          = "guest"
	defaultOutboundQueue     = "xcm_outbound_queue"
	defaultResponseQueue     = "xcm_response_queue"
	defaultEventExchange     = "xcm_delegator_events"
	defaultPrefetchCount     = 10
	defaultProcessingTimeout = 5 * time.Second
	defaultPublishTimeout    = 5 * time.Second
)

type Config struct {
	URL               string        `long:"url" description:"host:port of the AMQP broker"`
	User              string        `long:"user" description:"AMQP user"`
	Password          string        `long:"password" description:"AMQP password"`
	OutboundQueue     string        `long:"outboundqueue" description:"Queue the outbound remote calls are published to"`
	ResponseQueue     string        `long:"responsequeue" description:"Queue the remote call responses are consumed from"`
	EventExchange     string        `long:"eventexchange" description:"Topic exchange the coordinator events are published to; empty disables event publishing"`
	PrefetchCount     int           `long:"prefetchcount" description:"The maximum number of unacknowledged responses delivered at once"`
	ProcessingTimeout time.Duration `long:"processingtimeout" description:"The maximum time spent on processing a single response"`
	PublishTimeout    time.Duration `long:"publishtimeout" description:"The maximum time spent on publishing a single message"`
}

func DefaultConfig() *Config {
	return &Config{
		URL:               defaultURL,
		User:              defaultUser,
		Password:          defaultPassword,
		OutboundQueue:     defaultOutboundQueue,
		ResponseQueue:     defaultResponseQueue,
		EventExchange:     defaultEventExchange,
		PrefetchCount:     defaultPrefetchCount,
		ProcessingTimeout: defaultProcessingTimeout,
		PublishTimeout:    defaultPublishTimeout,
	}
}

func (cfg *Config) Validate() error {
	if cfg.URL == "" {
		return fmt.Errorf("missing queue url")
	}
	if cfg.OutboundQueue == "" {
		return fmt.Errorf("missing outbound queue name")
	}
	if cfg.ResponseQueue == "" {
		return fmt.Errorf("missing response queue name")
	}
	if cfg.OutboundQueue == cfg.ResponseQueue {
		return fmt.Errorf("outbound and response queues must differ")
	}
	if cfg.PrefetchCount <= 0 {
		return fmt.Errorf("prefetch count must be positive")
	}
	if cfg.ProcessingTimeout <= 0 {
		return fmt.Errorf("processing timeout must be positive")
	}
	if cfg.PublishTimeout <= 0 {
		return fmt.Errorf("publish timeout must be positive")
	}
	return nil
}

// URI is the broker address with credentials.
func (cfg *Config) URI() string {
	return fmt.Sprintf("amqp://%s:%s@%s", cfg.User, cfg.Password, cfg.URL)
}
