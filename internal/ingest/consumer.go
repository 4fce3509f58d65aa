package ingest

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rongwang/kasciraya-server/internal/config"
	"github.com/rongwang/kasciraya-server/internal/utils"
)

// acknowledger is the part of amqp091.Delivery the consumer settles with
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consumer books payloads delivered on a durable queue
type Consumer struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	adapter  *Adapter
	logger   *utils.Logger
}

// NewConsumer connects to the broker and declares the exchange, the queue
// and their binding
func NewConsumer(cfg config.AMQPConfig, adapter *Adapter, logger *utils.Logger) (*Consumer, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Consumer{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		adapter:  adapter,
		logger:   logger.WithComponent("amqp"),
	}

	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Consumer) setup() error {
	// Declare exchange
	if err := c.channel.ExchangeDeclare(
		c.exchange, // name
		"direct",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	if _, err := c.channel.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange
	if err := c.channel.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// One unacknowledged delivery at a time keeps bookings in queue order
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Run consumes until ctx is done or the broker closes the channel
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack (we want manual ack)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "consuming feed transactions", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "stopping consumer", "reason", ctx.Err())
			return nil
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handle(ctx, delivery.Body, delivery)
		}
	}
}

// handle books one message and settles it: ack on success, drop payloads
// that can never succeed, requeue the rest
func (c *Consumer) handle(ctx context.Context, body []byte, ack acknowledger) {
	payload, err := ParsePayload(body)
	if err == nil {
		_, err = c.adapter.Book(ctx, *payload)
	}

	switch {
	case err == nil:
		if ackErr := ack.Ack(false); ackErr != nil {
			c.logger.ErrorContext(ctx, "ack failed", utils.FieldError, ackErr)
		}
	case Permanent(err):
		c.logger.WarnContext(ctx, "dropping feed message", utils.FieldError, err)
		if nackErr := ack.Nack(false, false); nackErr != nil {
			c.logger.ErrorContext(ctx, "nack failed", utils.FieldError, nackErr)
		}
	default:
		c.logger.ErrorContext(ctx, "feed message failed, requeueing", utils.FieldError, err)
		if nackErr := ack.Nack(false, true); nackErr != nil {
			c.logger.ErrorContext(ctx, "nack failed", utils.FieldError, nackErr)
		}
	}
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
