package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SyncHandler runs one sync for a decoded trigger message
type SyncHandler func(ctx context.Context, req SyncRequest) error

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Connection    *Connection
	Exchange      string
	Queue         string
	RoutingKey    string
	DLQQueue      string
	PrefetchCount int
	Logger        *zap.Logger
	Handler       SyncHandler
}

// Consumer receives sync trigger messages. Deliveries are handled one at a
// time so device polling stays sequential.
type Consumer struct {
	channel *amqp.Channel
	cfg     ConsumerConfig
	logger  *zap.Logger
	done    chan struct{}
}

// NewConsumer declares the trigger exchange, queue and dead-letter queue
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 1
	}

	ch, err := cfg.Connection.topicChannel(cfg.Exchange, cfg.PrefetchCount)
	if err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(cfg.DLQQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DLQQueue,
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, args); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Consumer{
		channel: ch,
		cfg:     cfg,
		logger:  cfg.Logger,
		done:    make(chan struct{}),
	}, nil
}

// Start begins consuming in a background goroutine until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.cfg.Queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer started",
		zap.String("queue", c.cfg.Queue),
		zap.Int("prefetch", c.cfg.PrefetchCount),
	)

	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("consumer context cancelled, stopping")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("message channel closed")
					return
				}
				c.handle(ctx, msg)
			}
		}
	}()

	return nil
}

// Done is closed once the consume loop exits
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	logger := c.logger.With(zap.String("routing_key", msg.RoutingKey))

	req, err := DecodeSyncRequest(msg.Body)
	if err == nil {
		logger = logger.With(zap.String("request_id", req.RequestID))
		logger.Info("received sync request", zap.Int("days", req.Days))
		err = c.cfg.Handler(ctx, req)
	}

	if err != nil {
		logger.Error("sync request failed", zap.Error(err))
		// requeue=false routes the message to the DLQ
		if nackErr := msg.Nack(false, false); nackErr != nil {
			logger.Error("failed to NACK message", zap.Error(nackErr))
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		logger.Error("failed to ACK message", zap.Error(ackErr))
		return
	}
	logger.Info("sync request acknowledged")
}

// Close closes the consumer channel
func (c *Consumer) Close() error {
	if c.channel != nil {
		return c.channel.Close()
	}
	return nil
}
