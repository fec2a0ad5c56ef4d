// Package mail delivers notification copies through the campus mail relay.
package mail

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Message is an outbound email.
type Message struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	PlainBody string `json:"plain_body"`
	HTMLBody  string `json:"html_body,omitempty"`
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ErrQueueFull is returned when the async mailer cannot accept more messages.
var ErrQueueFull = errors.New("mail queue full")

// ErrMailerClosed is returned by Send once Close has been called.
var ErrMailerClosed = errors.New("mailer closed")

// AsyncMailer hands messages to a background goroutine so callers never wait on the relay.
type AsyncMailer struct {
	inner  Mailer
	logger *zap.Logger
	queue  chan Message
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsyncMailer starts the delivery goroutine. Call Close to drain it.
func NewAsyncMailer(inner Mailer, buffer int, logger *zap.Logger) *AsyncMailer {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &AsyncMailer{inner: inner, logger: logger, queue: make(chan Message, buffer)}
	m.wg.Add(1)
	go m.run()
	return m
}

// Send enqueues msg without blocking.
func (m *AsyncMailer) Send(ctx context.Context, msg Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrMailerClosed
	}
	select {
	case m.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be sent. It is
// safe to call more than once.
func (m *AsyncMailer) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *AsyncMailer) run() {
	defer m.wg.Done()
	for msg := range m.queue {
		if err := m.inner.Send(context.Background(), msg); err != nil {
			m.logger.Warn("mail delivery failed", zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		}
	}
}
