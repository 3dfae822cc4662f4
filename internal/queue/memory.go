package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// InMemoryQueue delivers to in-process subscribers with retry and linear
// backoff. Used when no broker is configured.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	wg         sync.WaitGroup
	log        zerolog.Logger
	MaxRetries int
	Backoff    time.Duration
}

func NewInMemoryQueue(log zerolog.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		log:        log,
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// Publish sends a message to all subscribers of topic.
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, body []byte) error {
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	// handlers outlive the publishing request
	jobCtx := context.WithoutCancel(ctx)
	for _, h := range handlers {
		q.wg.Add(1)
		go q.process(jobCtx, topic, h, body)
	}
	return nil
}

func (q *InMemoryQueue) process(ctx context.Context, topic string, h Handler, body []byte) {
	defer q.wg.Done()

	for attempt := 0; ; attempt++ {
		err := h(ctx, body)
		if err == nil {
			return
		}
		if attempt >= q.MaxRetries {
			q.log.Error().Err(err).Str("topic", topic).Int("attempts", attempt+1).Msg("job permanently failed")
			return
		}
		q.log.Warn().Err(err).Str("topic", topic).Int("attempt", attempt+1).Msg("job failed, retrying")
		time.Sleep(time.Duration(attempt+1) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic.
func (q *InMemoryQueue) Subscribe(ctx context.Context, topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished, including retries.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}
