package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gallery-backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const QueueName = "photo_pipeline"

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewClient connects to RabbitMQ and declares the pipeline queue.
func NewClient(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	slog.Info("rabbitmq client initialized", "queue", QueueName)

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

// Publish enqueues one job message as persistent JSON.
func (c *Client) Publish(ctx context.Context, msg models.TaskMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	err = c.channel.PublishWithContext(ctx,
		"",        // exchange
		QueueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	slog.Debug("published task", "job", msg.Job, "photo_id", msg.PhotoID)
	return nil
}

// Consume starts a manual-ack consumer. prefetch bounds unacknowledged
// deliveries held by this process.
func (c *Client) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := c.channel.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set qos: %w", err)
		}
	}
	msgs, err := c.channel.Consume(
		QueueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	return msgs, nil
}

// DecodeTask parses a delivery body.
func DecodeTask(body []byte) (models.TaskMessage, error) {
	var msg models.TaskMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode task: %w", err)
	}
	if msg.Job == "" || msg.PhotoID <= 0 {
		return msg, fmt.Errorf("invalid task: job %q photo_id %d", msg.Job, msg.PhotoID)
	}
	return msg, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			slog.Warn("error closing channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			slog.Warn("error closing connection", "error", err)
		}
	}
	return nil
}
