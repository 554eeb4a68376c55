package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/amirphl/avax-blinks/config"
)

// BlinkGeneratedEvent is published after a blink has been stored
type BlinkGeneratedEvent struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Platform  string `json:"platform"`
	Actual    string `json:"actual"`
	Timestamp string `json:"timestamp"`
}

// EventPublisher delivers domain events to downstream consumers
type EventPublisher interface {
	PublishBlinkGenerated(ctx context.Context, evt BlinkGeneratedEvent) error
	Close() error
}

// AMQPEventPublisher publishes JSON events to a durable RabbitMQ queue
type AMQPEventPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewAMQPEventPublisher dials the broker and declares the queue
func NewAMQPEventPublisher(cfg config.EventsConfig) (*AMQPEventPublisher, error) {
	p := &AMQPEventPublisher{url: cfg.AMQPURL, queue: cfg.Queue}
	if err := p.connect(); err != nil {
		return nil, err
	}
	ch, err := p.conn.Channel()
	if err != nil {
		_ = p.conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	defer ch.Close()
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = p.conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}
	return p, nil
}

func (p *AMQPEventPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to dial amqp: %w", err)
	}
	p.conn = conn
	return nil
}

func (p *AMQPEventPublisher) PublishBlinkGenerated(ctx context.Context, evt BlinkGeneratedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open amqp channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Type:         "blink.generated",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.queue, err)
	}
	return nil
}

func (p *AMQPEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

// NoopEventPublisher drops events
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishBlinkGenerated(context.Context, BlinkGeneratedEvent) error {
	return nil
}

func (NoopEventPublisher) Close() error { return nil }

// MockEventPublisher records events for tests
type MockEventPublisher struct {
	mu     sync.Mutex
	Err    error
	events []BlinkGeneratedEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishBlinkGenerated(_ context.Context, evt BlinkGeneratedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *MockEventPublisher) Close() error { return nil }

// Events returns the published events
func (m *MockEventPublisher) Events() []BlinkGeneratedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BlinkGeneratedEvent(nil), m.events...)
}
