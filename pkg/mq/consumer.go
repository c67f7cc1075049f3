package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/commentd/pkg/metrics"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// Options bounds how much work a consumer takes on at once. Prefetch caps the
// unacked batch the broker hands over, Workers caps parallel handler calls,
// HandleTimeout is the per-message processing deadline.
type Options struct {
	Prefetch      int
	Workers       int
	HandleTimeout time.Duration
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	opts       Options
	logger     *zap.Logger
}

// NewConsumer creates a consumer for a specific routing key. The durable work
// queue and the matching dead-letter queue are declared up front so neither
// publishing nor dead-lettering can race the topology.
func NewConsumer(url, routingKey string, opts Options, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := DeclareDLQExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	if _, err := DeclareDLQQueue(ch, routingKey); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	queueName := QueueNameFor(routingKey)
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if opts.Prefetch <= 0 {
		opts.Prefetch = 8
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.HandleTimeout <= 0 {
		opts.HandleTimeout = 30 * time.Second
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
		zap.Int("prefetch", opts.Prefetch),
		zap.Int("workers", opts.Workers),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		opts:       opts,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks reading deliveries until the channel closes. Messages
// within a prefetched batch are handed to a worker pool so one slow provider
// call cannot stall the rest of the batch.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	if err := c.channel.Qos(c.opts.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"worker",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	pool := workerpool.New(c.opts.Workers)
	for msg := range deliveries {
		msg := msg
		pool.Submit(func() {
			c.process(msg)
		})
	}
	pool.StopWait()

	return nil
}

// process guarantees every delivery ends in exactly one ack or nack, even when
// the handler panics. A handler error means "retry": the message is requeued
// and the broker redelivers it. Permanent failures are the handler's problem;
// it parks them on the DLQ and returns nil.
func (c *Consumer) process(msg amqp091.Delivery) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.HandleTimeout)
	defer cancel()

	c.logger.Debug("Received message",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.Int("message_size", len(msg.Body)),
	)

	defer func() {
		if r := recover(); r != nil {
			// A payload that panics the handler will panic again on
			// redelivery, so it is acked like any other poison message.
			c.logger.Error("Handler panic recovered",
				zap.String("routing_key", c.routingKey),
				zap.String("queue", c.queue.Name),
				zap.Any("panic", r),
			)
			if err := msg.Ack(false); err != nil {
				c.logger.Error("Failed to ack message after panic",
					zap.String("routing_key", c.routingKey),
					zap.Error(err),
				)
			}
		}
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		c.logger.Error("Handler error",
			zap.String("routing_key", c.routingKey),
			zap.String("queue", c.queue.Name),
			zap.Error(err),
		)
		if err := msg.Nack(false, true); err != nil {
			c.logger.Error("Failed to nack message",
				zap.String("routing_key", c.routingKey),
				zap.Error(err),
			)
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			zap.String("routing_key", c.routingKey),
			zap.Error(err),
		)
		return
	}

	metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
	c.logger.Debug("Message processed successfully",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)
}
