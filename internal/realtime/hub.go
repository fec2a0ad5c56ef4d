// Package realtime fans live events out to connected sessions.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
)

const defaultBuffer = 32

// Session is one live connection's subscription.
type Session struct {
	ID     string
	UserID int64
	topics []string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// Messages yields serialized events queued for the session.
func (s *Session) Messages() <-chan []byte {
	return s.send
}

// Done is closed when the session is unregistered.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Topics returns the topics the session joined.
func (s *Session) Topics() []string {
	return append([]string(nil), s.topics...)
}

// Hub keeps topic membership for sessions of this process.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Session]struct{}
	buffer  int
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub builds a hub whose sessions queue up to buffer events each.
func NewHub(buffer int, logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics:  make(map[string]map[*Session]struct{}),
		buffer:  buffer,
		logger:  logger,
		metrics: metrics,
	}
}

// Register creates a session joined to topics.
func (h *Hub) Register(userID int64, topics ...string) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		topics: topics,
		send:   make(chan []byte, h.buffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		members, ok := h.topics[topic]
		if !ok {
			members = make(map[*Session]struct{})
			h.topics[topic] = members
		}
		members[s] = struct{}{}
	}
	return s
}

// Unregister removes the session from all topics. Safe to call twice.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	for _, topic := range s.topics {
		if members, ok := h.topics[topic]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.mu.Unlock()
	s.once.Do(func() { close(s.done) })
}

// Publish serializes event and queues it for every session on topic.
func (h *Hub) Publish(ctx context.Context, topic string, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.Deliver(topic, payload)
	return nil
}

// Deliver queues an already serialized event. A session whose queue is full
// misses the event; the publisher never blocks.
func (h *Hub) Deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.topics[topic] {
		select {
		case s.send <- payload:
		default:
			h.metrics.RecordPushDropped()
			h.logger.Warn("live session queue full, dropping event",
				zap.String("session_id", s.ID),
				zap.Int64("user_id", s.UserID),
				zap.String("topic", topic))
		}
	}
}

// Subscribers returns the number of sessions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
