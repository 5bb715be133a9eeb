package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"expensetracker/internal/logger"
)

const publishTimeout = 5 * time.Second

// Queue publishes and consumes mail jobs on a durable direct exchange.
type Queue struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewQueue dials the broker and declares the exchange, queue and binding.
func NewQueue(url, exchangeName, queueName string) (*Queue, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q := &Queue{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := q.setup(); err != nil {
		q.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return q, nil
}

func (q *Queue) setup() error {
	if err := q.channel.ExchangeDeclare(q.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := q.channel.QueueDeclare(q.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Routing key equals the queue name on the direct exchange.
	if err := q.channel.QueueBind(q.queueName, q.queueName, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Send publishes job as a persistent message. It implements Mailer.
func (q *Queue) Send(ctx context.Context, job Job) error {
	body, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = q.channel.PublishWithContext(ctx, q.exchangeName, q.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    job.Timestamp,
		Type:         string(job.Kind),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}

	logger.Named("mailer").Infow("published mail job", "kind", job.Kind, "queue", q.queueName)
	return nil
}

// Consume hands every queued job to handler until ctx is cancelled.
func (q *Queue) Consume(ctx context.Context, handler func(context.Context, Job) error) error {
	msgs, err := q.channel.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger.Named("mailer").Infow("consuming mail jobs", "queue", q.queueName)
	return handleDeliveries(ctx, msgs, handler)
}

// Close closes the channel and the connection.
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// ErrDeliveriesClosed is returned when the broker closes the delivery channel.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// handleDeliveries acks handled jobs, drops undecodable ones, and requeues a
// failed job once before dropping it.
func handleDeliveries(ctx context.Context, msgs <-chan amqp091.Delivery, handler func(context.Context, Job) error) error {
	log := logger.Named("mailer")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}

			job, err := JobFromJSON(delivery.Body)
			if err != nil {
				log.Errorw("dropping undecodable mail job", "error", err)
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, job); err != nil {
				requeue := !delivery.Redelivered
				log.Errorw("mail job failed", "error", err, "kind", job.Kind, "requeue", requeue)
				_ = delivery.Nack(false, requeue)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}
