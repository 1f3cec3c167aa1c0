// Package queue publishes messages to RabbitMQ.
// This is part of the platform layer and contains no business logic.
package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange receives every raw lead event, routed by event name.
const DefaultExchange = "ex.rawleads"

// Publisher sends one JSON message under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// RabbitMQ owns one connection and one channel bound to a topic exchange.
type RabbitMQ struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// Dial connects and declares the durable topic exchange.
func Dial(url, exchange string) (*RabbitMQ, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &RabbitMQ{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends a persistent JSON message.
func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := r.ch.PublishWithContext(ctx,
		r.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Close releases the channel and the connection.
func (r *RabbitMQ) Close() error {
	if r == nil {
		return nil
	}
	chErr := r.ch.Close()
	if err := r.conn.Close(); err != nil {
		return err
	}
	return chErr
}

var _ Publisher = (*RabbitMQ)(nil)
