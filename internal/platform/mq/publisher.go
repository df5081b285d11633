package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/pkg/config"
)

// Publisher emits JSON domain events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// NopPublisher drops every event; used when amqp.url is empty.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// AMQPPublisher publishes persistent messages to a durable topic exchange.
// The connection is opened lazily and re-dialed after it closes.
type AMQPPublisher struct {
	url      string
	exchange string
	log      *zap.SugaredLogger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, exchange string, log *zap.SugaredLogger) *AMQPPublisher {
	return &AMQPPublisher{url: url, exchange: exchange, log: log}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("failed to dial amqp: %w", err)
		}
		p.conn = conn
		p.log.Infow("amqp connected", "exchange", p.exchange)
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}

func NewPublisher(lc fx.Lifecycle, cfg *config.Config, l *zap.SugaredLogger) Publisher {
	if cfg.AMQP.URL == "" {
		l.Infow("amqp not configured, ledger events are dropped")
		return NopPublisher{}
	}
	p := NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, l)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return p.Close() },
	})
	return p
}

var Module = fx.Options(
	fx.Provide(NewPublisher),
)
