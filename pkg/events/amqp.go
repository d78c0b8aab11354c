package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/akeren/waitlist-signup/pkg/retry"
)

type AMQPConfig struct {
	URL      string
	Exchange string
	// Retry wraps the initial dial. Nil dials once.
	Retry retry.RetryPolicy
}

// AMQPPublisher publishes JSON events to a durable topic exchange, using the
// event type as routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("events: amqp url required")
	}
	if _, err := amqp.ParseURI(url); err != nil {
		return nil, fmt.Errorf("events: invalid amqp url: %w", err)
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		exchange = "waitlist"
	}

	var conn *amqp.Connection
	dial := func() error {
		c, err := amqp.Dial(url)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	var err error
	if cfg.Retry != nil {
		err = cfg.Retry.Execute(dial)
	} else {
		err = dial()
	}
	if err != nil {
		return nil, fmt.Errorf("events: dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange %q: %w", exchange, err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.encode()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
}

func (p *AMQPPublisher) Ping(context.Context) error {
	if p.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	chErr := p.channel.Close()
	connErr := p.conn.Close()
	if errors.Is(chErr, amqp.ErrClosed) {
		chErr = nil
	}
	if errors.Is(connErr, amqp.ErrClosed) {
		connErr = nil
	}
	return errors.Join(chErr, connErr)
}
