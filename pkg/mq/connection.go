package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "comments"
)

// Routing keys for the notification fan-out. The IM channel consumes the raw
// creation event, the email channel gets a dedicated job per comment.
const (
	RoutingKeyCommentCreated    = "comment.created"
	RoutingKeyNotificationEmail = "notification.email"
)

// QueueNameFor derives the durable queue name bound to a routing key.
func QueueNameFor(routingKey string) string {
	return routingKey + ".q"
}

// NewConnection creates a new RabbitMQ connection.
func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the comments exchange.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
