/**
 * @description
 * This package provides a consumer for receiving messages from RabbitMQ.
 * It handles connecting to the broker, declaring the topic exchange and
 * queue, binding routing keys, and dispatching deliveries to handlers.
 *
 * @dependencies
 * - log: Standard Go library.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */
package rabbitmq

import (
	"log"

	"github.com/rabbitmq/amqp091-go"
)

// Consumer holds the RabbitMQ connection and channel for consuming messages.
type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewConsumer creates and returns a new Consumer.
func NewConsumer(amqpURL string) (*Consumer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, channel: ch}, nil
}

// ConsumeWithBindings declares a durable topic exchange and queue, binds the
// queue to every routing key in the bindings map, and starts a goroutine that
// dispatches each delivery to its handler. Handlers return true to ack the
// message and false to nack it with requeue.
func (c *Consumer) ConsumeWithBindings(exchange, queueName string, bindings map[string]func([]byte) bool) error {
	err := c.channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	)
	if err != nil {
		return err
	}

	q, err := c.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	)
	if err != nil {
		return err
	}

	for routingKey := range bindings {
		if err := c.channel.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return err
		}
	}

	deliveries, err := c.channel.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // autoAck
		false,  // exclusive
		false,  // noLocal
		false,  // noWait
		nil,    // args
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range deliveries {
			handler, ok := bindings[d.RoutingKey]
			if !ok {
				log.Printf("level=warn component=rabbitmq_consumer queue=%s msg=\"no handler for routing key; acking\" routing_key=%s", queueName, d.RoutingKey)
				d.Ack(false)
				continue
			}
			if handler(d.Body) {
				d.Ack(false)
			} else {
				d.Nack(false, true)
			}
		}
		log.Printf("level=warn component=rabbitmq_consumer queue=%s msg=\"delivery channel closed\"", queueName)
	}()

	log.Printf("level=info component=rabbitmq_consumer queue=%s exchange=%s msg=\"consumer started\" bindings=%d", queueName, exchange, len(bindings))
	return nil
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
