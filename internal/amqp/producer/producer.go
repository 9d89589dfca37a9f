package simpleproducer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

var ErrNotConnected = errors.New("producer is not connected")

// Producer publishes JSON messages to a durable topic exchange.
type Producer struct {
	mu       sync.Mutex
	exchange string
	conn     *amqp.Connection
	channel  *amqp.Channel
}

func New(exchange string, conn *amqp.Connection) *Producer {
	return &Producer{exchange: exchange, conn: conn}
}

func (p *Producer) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	channel, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("cannot open channel, %w", err)
	}

	if err := channel.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = channel.Close()

		return fmt.Errorf("cannot declare exchange %s, %w", p.exchange, err)
	}

	p.channel = channel

	return nil
}

func (p *Producer) Publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return ErrNotConnected
	}

	err := p.channel.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("cannot publish %s, %w", routingKey, err)
	}

	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return nil
	}

	err := p.channel.Close()
	p.channel = nil

	return err
}
