package handlers

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	wsclient "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/realtime"
)

func newLiveFixture(t *testing.T, logger *zap.Logger) (*LiveHandler, *realtime.Hub, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("live-secret", "", 5)
	hub := realtime.NewHub(4, logger, observability.NewMetrics())
	return NewLiveHandler(hub, auth.NewAuthMiddleware(tokens, nil, logger), 50*time.Millisecond, logger), hub, tokens
}

func TestLiveUpgradeTopics(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	live, _, tokens := newLiveFixture(t, zap.New(core))
	valid, _, err := tokens.GenerateToken(domain.User{ID: 5, DisplayName: "Ada"})
	require.NoError(t, err)

	var gotUser int64
	var gotTopics []string
	app := fiber.New()
	app.Get("/ws", live.Upgrade, func(c *fiber.Ctx) error {
		gotUser, _ = c.Locals(liveUserKey).(int64)
		gotTopics, _ = c.Locals(liveTopicsKey).([]string)
		return c.SendStatus(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		query    string
		wantUser int64
		wantWarn int
	}{
		{"valid token", "?token=" + valid, 5, 0},
		{"invalid token", "?token=forged", 0, 1},
		{"no token", "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.TakeAll()
			req := httptest.NewRequest(http.MethodGet, "/ws"+tt.query, nil)
			req.Header.Set(fiber.HeaderConnection, "Upgrade")
			req.Header.Set(fiber.HeaderUpgrade, "websocket")
			req.Header.Set("Sec-WebSocket-Version", "13")
			req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusNoContent, resp.StatusCode)

			want := events.BroadcastTopics()
			if tt.wantUser != 0 {
				want = append(want, events.UserTopic(tt.wantUser))
			}
			assert.Equal(t, tt.wantUser, gotUser)
			assert.ElementsMatch(t, want, gotTopics)
			assert.Equal(t, tt.wantWarn, logs.Len())
		})
	}
}

func TestLiveSessionDeliversAndCleansUp(t *testing.T) {
	live, hub, tokens := newLiveFixture(t, zap.NewNop())
	token, _, err := tokens.GenerateToken(domain.User{ID: 7, DisplayName: "Grace"})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/ws", live.Upgrade, live.Serve())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()

	conn, _, err := wsclient.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?token="+token, nil)
	require.NoError(t, err)

	userTopic := events.UserTopic(7)
	require.Eventually(t, func() bool { return hub.Subscribers(userTopic) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Subscribers(events.TopicTicketUpdates))

	hub.Deliver(userTopic, []byte(`{"type":"notification"}`))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		kind, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		if kind == wsclient.TextMessage {
			assert.JSONEq(t, `{"type":"notification"}`, string(payload))
			break
		}
	}

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.Subscribers(userTopic) == 0 && hub.Subscribers(events.TopicTicketUpdates) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
