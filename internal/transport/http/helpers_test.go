package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livepoll-server/internal/auth"
	"github.com/vovakirdan/livepoll-server/internal/config"
	"github.com/vovakirdan/livepoll-server/internal/core"
	"github.com/vovakirdan/livepoll-server/internal/proto"
	"github.com/vovakirdan/livepoll-server/internal/service/polls"
	"github.com/vovakirdan/livepoll-server/internal/service/votes"
	"github.com/vovakirdan/livepoll-server/internal/store/sqlite"
)

type testEnv struct {
	cfg    config.Config
	hub    *core.Hub
	store  *sqlite.SQLiteStore
	auth   *auth.Service
	router *gin.Engine
	ts     *httptest.Server
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.TokenTTL = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	hub := core.NewHub(&logger, nil)
	t.Cleanup(hub.Shutdown)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	})

	router := NewRouter(Services{
		Hub:      hub,
		Auth:     authService,
		Polls:    polls.New(st, hub, &logger),
		Votes:    votes.New(st, hub, nil, &logger),
		Registry: prometheus.NewRegistry(),
	}, &cfg, &logger)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &testEnv{cfg: cfg, hub: hub, store: st, auth: authService, router: router, ts: ts}
}

// do runs a JSON request against the router and decodes the response into out, if set.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func (e *testEnv) register(t *testing.T, email string) UserResponse {
	t.Helper()

	var user UserResponse
	code := e.do(t, http.MethodPost, "/api/users", map[string]any{
		"name": "Tester", "email": email, "password": "password123",
	}, "", &user)
	require.Equal(t, http.StatusCreated, code)
	return user
}

// seedPoll registers a user and creates a two-option poll through the API.
func (e *testEnv) seedPoll(t *testing.T, email string) (UserResponse, PollResponse) {
	t.Helper()

	user := e.register(t, email)
	var poll PollResponse
	code := e.do(t, http.MethodPost, "/api/polls", map[string]any{
		"creatorId": user.ID, "question": "Best editor?", "options": []string{"vim", "emacs"}, "isPublished": true,
	}, "", &poll)
	require.Equal(t, http.StatusCreated, code)
	return user, poll
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()

	var resp LoginResponse
	code := e.do(t, http.MethodPost, "/api/users/login", map[string]any{"email": email, "password": "password123"}, "", &resp)
	require.Equal(t, http.StatusOK, code)
	return resp.Token
}

type wsMessage struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	ctx  context.Context
}

func (e *testEnv) dial(t *testing.T) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })

	c := &wsClient{t: t, conn: conn, ctx: ctx}
	c.next(proto.EventActiveUsers)
	return c
}

func (c *wsClient) send(typ string, data any) {
	c.t.Helper()
	require.NoError(c.t, wsjson.Write(c.ctx, c.conn, map[string]any{"type": typ, "data": data}))
}

func (c *wsClient) read() wsMessage {
	c.t.Helper()
	var msg wsMessage
	require.NoError(c.t, wsjson.Read(c.ctx, c.conn, &msg))
	return msg
}

// next reads until an event with the given name arrives.
func (c *wsClient) next(event string) wsMessage {
	c.t.Helper()
	for {
		msg := c.read()
		if msg.Type == proto.OutboundTypeEvent && msg.Event == event {
			return msg
		}
	}
}

// nextError reads until an error frame arrives.
func (c *wsClient) nextError() *proto.Error {
	c.t.Helper()
	for {
		msg := c.read()
		if msg.Type == proto.OutboundTypeError {
			return msg.Error
		}
	}
}

// activeUsers returns the count carried by the next active_users event.
func (c *wsClient) activeUsers() int {
	c.t.Helper()
	var payload proto.ActiveUsers
	require.NoError(c.t, json.Unmarshal(c.next(proto.EventActiveUsers).Data, &payload))
	return payload.Count
}

// barrier returns every frame received before the server processed all
// previously sent commands. Commands on one connection are handled in order,
// so the reply to an unknown message type marks the point.
func (c *wsClient) barrier() []wsMessage {
	c.t.Helper()
	c.send("barrier", nil)

	var before []wsMessage
	for {
		msg := c.read()
		if msg.Type == proto.OutboundTypeError && msg.Error != nil && msg.Error.Code == core.ErrCodeInvalidMessage {
			return before
		}
		before = append(before, msg)
	}
}
