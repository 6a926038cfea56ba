// Package events publishes workflow mutations to RabbitMQ so downstream
// services (notifications, reporting) can react to status changes.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/logging"
)

const publishTimeout = 5 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher implements generic.Notifier over a durable direct exchange.
type Publisher struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	queueName    string
	logger       *logging.Logger

	// amqp channels must not be used for concurrent publishes.
	mu sync.Mutex
}

var _ generic.Notifier = (*Publisher)(nil)

// NewPublisher dials the broker and declares the exchange, queue and binding.
func NewPublisher(url, exchangeName, queueName string, logger *logging.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, exchangeName, queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	p := newPublisher(ch, exchangeName, queueName, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchangeName, queueName string, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Publisher{
		channel:      ch,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger: logger.WithComponent(logging.ComponentAMQP).With(
			logging.FieldExchange, exchangeName,
			logging.FieldQueue, queueName,
		),
	}
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Notify publishes a status change. Errors are returned to the dispatcher,
// which logs them without failing the mutation.
func (p *Publisher) Notify(ctx context.Context, e generic.MutationEvent) error {
	body, err := NewStatusChangedMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    e.ID,
			Type:         TypeStatusChanged,
			Timestamp:    e.OccurredAt,
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.DebugContext(ctx, "published status change",
		logging.FieldOperation, logging.OpPublish,
		logging.FieldDomain, e.Domain,
		logging.FieldRecordID, e.RecordID,
		logging.FieldTo, e.To,
	)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
