package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingMailer) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestAsyncMailerDrainsOnClose(t *testing.T) {
	inner := &recordingMailer{err: errors.New("relay refused")}
	m := NewAsyncMailer(inner, 8, zap.NewNop())

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Send(context.Background(), Message{To: "a@example.edu", Subject: "s"}))
	}
	m.Close()

	assert.Len(t, inner.sent, 3)
}

func TestQueueConsumerHandle(t *testing.T) {
	inner := &recordingMailer{}
	c := NewQueueConsumer("", "helpdesk.mail", 1, inner, zap.NewNop())

	body, err := json.Marshal(Message{To: "student@example.edu", Subject: "Ticket resolved", PlainBody: "done"})
	require.NoError(t, err)
	require.NoError(t, c.Handle(context.Background(), body))
	require.Len(t, inner.sent, 1)
	assert.Equal(t, "Ticket resolved", inner.sent[0].Subject)

	assert.Error(t, c.Handle(context.Background(), []byte("{")))
	assert.Error(t, c.Handle(context.Background(), []byte(`{"subject":"no one"}`)))
}

func TestNewOutboundSelectsTransport(t *testing.T) {
	logger := zap.NewNop()

	m, release := NewOutbound(config.MailConfig{}, config.QueueConfig{URL: "amqp://localhost"}, logger)
	assert.Nil(t, m)
	release()

	m, release = NewOutbound(config.MailConfig{Enabled: true}, config.QueueConfig{URL: "amqp://localhost", MailQueue: "mail"}, logger)
	assert.IsType(t, &AsyncMailer{}, m)
	release()

	m, release = NewOutbound(config.MailConfig{Enabled: true, Host: "localhost", Port: 2525}, config.QueueConfig{}, logger)
	assert.IsType(t, &AsyncMailer{}, m)
	release()
}

type blockingMailer struct {
	release chan struct{}
	calls   chan Message
}

func (b *blockingMailer) Send(ctx context.Context, msg Message) error {
	b.calls <- msg
	<-b.release
	return nil
}

func TestAsyncMailerDoesNotWaitForSlowRelay(t *testing.T) {
	inner := &blockingMailer{release: make(chan struct{}), calls: make(chan Message, 4)}
	m := NewAsyncMailer(inner, 4, zap.NewNop())

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Send(context.Background(), Message{To: "staff@example.edu", Subject: "Daily summary"}))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	<-inner.calls
	close(inner.release)
	m.Close()
}

func TestAsyncMailerSendAfterClose(t *testing.T) {
	m := NewAsyncMailer(&recordingMailer{}, 1, zap.NewNop())
	m.Close()
	m.Close()

	assert.ErrorIs(t, m.Send(context.Background(), Message{To: "late@example.edu"}), ErrMailerClosed)
}

func TestOutboundQueueReturnsWhileBrokerIsSilent(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		conns    []net.Conn
		accepted = make(chan struct{})
	)
	go func() {
		defer close(accepted)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()

	m, release := NewOutbound(config.MailConfig{Enabled: true},
		config.QueueConfig{URL: "amqp://guest:guest@" + ln.Addr().String() + "/", MailQueue: "helpdesk.mail"}, zap.NewNop())

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Send(context.Background(), Message{To: "student@example.edu", Subject: "Ticket in progress"}))
	}
	assert.Less(t, time.Since(start), time.Second)

	_ = ln.Close()
	<-accepted
	mu.Lock()
	for _, c := range conns {
		_ = c.Close()
	}
	mu.Unlock()
	release()
}
