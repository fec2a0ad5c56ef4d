package service

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type push struct {
	topic string
	event events.Event
}

// Batch collects the side effects of one mutation. They run only if the
// mutation's transaction commits.
type Batch struct {
	seq        *sequencer
	held       map[int64]func()
	pushes     []push
	mails      []mail.Message
	onCommit   []func(context.Context)
	onRollback []func(context.Context)
}

func newBatch(seq *sequencer) *Batch {
	return &Batch{seq: seq, held: make(map[int64]func())}
}

// Broadcast queues event for topic.
func (b *Batch) Broadcast(topic string, event events.Event) {
	b.pushes = append(b.pushes, push{topic: topic, event: event})
}

// AfterCommit runs fn once the transaction has committed.
func (b *Batch) AfterCommit(fn func(context.Context)) {
	b.onCommit = append(b.onCommit, fn)
}

// OnRollback runs fn if the transaction fails.
func (b *Batch) OnRollback(fn func(context.Context)) {
	b.onRollback = append(b.onRollback, fn)
}

// sequence orders this batch's pushes for ticketID after those of every
// mutation that committed before it. Must be called while holding the ticket row lock.
func (b *Batch) sequence(ticketID int64) {
	if b.seq == nil {
		return
	}
	if _, ok := b.held[ticketID]; ok {
		return
	}
	b.held[ticketID] = b.seq.acquire(ticketID)
}

func (b *Batch) release() {
	for id, unlock := range b.held {
		unlock()
		delete(b.held, id)
	}
}

// Mutate runs fn in a transaction and, after commit, publishes what fn queued.
func (n *NotificationService) Mutate(ctx context.Context, fn func(tx repository.Store, b *Batch) error) error {
	b := newBatch(n.seq)
	err := n.store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(tx, b)
	})
	if err != nil {
		b.release()
		for _, undo := range b.onRollback {
			undo(ctx)
		}
		return err
	}
	n.Flush(ctx, b)
	return nil
}

// sequencer is a set of per-ticket locks.
type sequencer struct {
	mu    sync.Mutex
	locks map[int64]*seqLock
}

type seqLock struct {
	mu   sync.Mutex
	refs int
}

func newSequencer() *sequencer {
	return &sequencer{locks: make(map[int64]*seqLock)}
}

func (s *sequencer) acquire(id int64) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &seqLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}
