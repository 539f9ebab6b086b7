package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultExchange = "rentbook.records"

// AMQPConfig describes the broker connection.
type AMQPConfig struct {
	URL      string
	Exchange string
	Timeout  time.Duration
}

// AMQPPublisher publishes events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	timeout  time.Duration
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		exchange = defaultExchange
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
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
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, timeout: timeout}, nil
}

// Publish sends the event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := encodeMessage(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("amqp publisher closed")
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.RoutingKey(), err)
	}
	return nil
}

// Close shuts the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := errors.Join(p.ch.Close(), p.conn.Close())
	p.ch, p.conn = nil, nil
	return err
}

func encodeMessage(event Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.At,
		Type:         event.RoutingKey(),
		Headers:      amqp.Table{"sheet": event.Sheet},
		Body:         body,
	}, nil
}
