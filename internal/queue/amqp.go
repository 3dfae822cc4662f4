package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// channel is the subset of *amqp.Channel the queue uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue publishes to and consumes from durable queues named after the
// topic on the default exchange.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   channel
	mu   sync.Mutex
	log  zerolog.Logger

	declared map[string]bool
}

func DialAMQP(url string, log zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q := newAMQPQueue(ch, log)
	q.conn = conn
	return q, nil
}

func newAMQPQueue(ch channel, log zerolog.Logger) *AMQPQueue {
	return &AMQPQueue{ch: ch, log: log, declared: make(map[string]bool)}
}

func (q *AMQPQueue) declare(topic string) error {
	if q.declared[topic] {
		return nil
	}
	if _, err := q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

// Publish is safe for concurrent use; the underlying channel is not.
func (q *AMQPQueue) Publish(ctx context.Context, topic string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.declare(topic); err != nil {
		return err
	}
	err := q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe consumes topic with manual acks until ctx is done or the
// delivery channel closes. A failed message is requeued once, then dropped.
func (q *AMQPQueue) Subscribe(ctx context.Context, topic string, handler Handler) error {
	q.mu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(topic, "", false, false, false, false, nil)
	}
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				q.handle(ctx, topic, handler, d)
			}
		}
	}()
	return nil
}

func (q *AMQPQueue) handle(ctx context.Context, topic string, handler Handler, d amqp.Delivery) {
	if err := handler(ctx, d.Body); err != nil {
		requeue := !d.Redelivered
		q.log.Warn().Err(err).Str("topic", topic).Bool("requeue", requeue).Msg("message handling failed")
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			q.log.Error().Err(nackErr).Msg("nack failed")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		q.log.Error().Err(err).Msg("ack failed")
	}
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	err := q.ch.Close()
	if q.conn != nil {
		if cerr := q.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
