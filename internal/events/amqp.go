package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// AMQPForwarder republishes bus events as persistent JSON messages on a
// durable RabbitMQ queue. Publish failures are logged and dropped.
type AMQPForwarder struct {
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	sub  *Subscription
}

// DialAMQP connects to url and declares queue.
func DialAMQP(url, queue string) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	return &AMQPForwarder{queue: queue, conn: conn, ch: ch}, nil
}

// Attach subscribes the forwarder to bus.
func (f *AMQPForwarder) Attach(bus *Bus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sub = bus.Subscribe(f.Handle)
}

// Handle publishes a single event.
func (f *AMQPForwarder) Handle(e Event) {
	msg, err := encodeEvent(e)
	if err != nil {
		log.Error().Err(err).Str("kind", string(e.Kind)).Msg("rabbitmq: encode event failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		return
	}
	if err := f.ch.PublishWithContext(ctx, "", f.queue, false, false, msg); err != nil {
		log.Error().Err(err).Str("queue", f.queue).Msg("rabbitmq: publish failed")
	}
}

// Close detaches from the bus and closes the broker connection.
func (f *AMQPForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sub.Close()
	f.sub = nil

	var firstErr error
	if f.ch != nil {
		firstErr = f.ch.Close()
		f.ch = nil
	}
	if f.conn != nil {
		if err := f.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		f.conn = nil
	}
	return firstErr
}

func encodeEvent(e Event) (amqp.Publishing, error) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.At,
		Type:         string(e.Kind),
		Body:         body,
	}, nil
}
