package mq

import (
	"context"
	"fmt"
	"net/url"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/septivank/attendance-sync-worker/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Connection is the shared broker connection for the batch publisher and
// the sync trigger consumer.
type Connection struct {
	conn *amqp.Connection
}

// NewConnection dials RABBITMQ_URL. A broker-side close is logged; the
// consumer notices it through its closed delivery channel.
func NewConnection(lc fx.Lifecycle, logger *zap.Logger, cfg config.RabbitMQConfig) (*Connection, error) {
	logger = logger.With(zap.String("broker", redactURL(cfg.URL)))

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		logger.Error("rabbitmq unreachable", zap.Error(err))
		return nil, fmt.Errorf("cannot connect to RabbitMQ (unset RABBITMQ_URL to disable messaging): %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if amqpErr, ok := <-closed; ok && amqpErr != nil {
			logger.Warn("rabbitmq connection closed by broker",
				zap.Int("code", amqpErr.Code),
				zap.String("reason", amqpErr.Reason))
		}
	}()

	lc.Append(fx.StopHook(func(ctx context.Context) error {
		if conn.IsClosed() {
			return nil
		}
		if err := conn.Close(); err != nil {
			logger.Error("failed to close rabbitmq connection", zap.Error(err))
			return err
		}
		logger.Info("rabbitmq connection closed")
		return nil
	}))

	logger.Info("connected to rabbitmq")
	return &Connection{conn: conn}, nil
}

// topicChannel opens a channel with a durable topic exchange declared on
// it. prefetch > 0 also sets the channel QoS.
func (c *Connection) topicChannel(exchange string, prefetch int) (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}
	return ch, nil
}

// redactURL hides the broker password for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
