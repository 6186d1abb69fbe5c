package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livepoll-server/internal/auth"
	"github.com/vovakirdan/livepoll-server/internal/config"
	"github.com/vovakirdan/livepoll-server/internal/core"
	"github.com/vovakirdan/livepoll-server/internal/utils"
)

const writeTimeout = 5 * time.Second

// errServerClosing is returned by the write loop when the hub closed the client.
var errServerClosing = errors.New("server closing")

// WSHandler upgrades HTTP connections and bridges them to a core session.
type WSHandler struct {
	hub         *core.Hub
	authService *auth.Service
	cfg         *config.Config
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, authService: authService, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	client := core.NewClient(utils.NewID(), h.cfg.ClientBuffer)
	session, err := h.hub.Connect(client)
	if err != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status, reason := closeStatus(err)
	if status == websocket.StatusInternalError {
		h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
	}
	conn.Close(status, reason)
}

func closeStatus(err error) (websocket.StatusCode, string) {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		return websocket.StatusNormalClosure, "closing"
	case errors.Is(err, errServerClosing):
		return websocket.StatusGoingAway, "server shutting down"
	}
	switch s := websocket.CloseStatus(err); s {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return websocket.StatusNormalClosure, "closing"
	case websocket.StatusMessageTooBig:
		return s, "message too big"
	case -1:
		return websocket.StatusInternalError, "internal error"
	default:
		return s, "closing"
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	client := session.Client()
	limiter := newRateLimiter(h.cfg.WSRateLimit, h.cfg.WSRateBurst)

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if !limiter.allow() {
			h.hub.Send(client, errorEvent(core.ErrCodeRateLimited, "too many messages"))
			continue
		}

		cmd, protoErr := inboundToCommand(raw)
		if protoErr != nil {
			h.hub.Send(client, errorEvent(protoErr.Code, protoErr.Msg))
			continue
		}
		if cmd.Kind == core.CommandIdentify && h.cfg.RequireAuth {
			userID, ok := h.identity(cmd.User)
			if !ok {
				h.hub.Send(client, errorEvent(core.ErrCodeUnauthorized, "invalid token"))
				continue
			}
			cmd.User = userID
		}

		err = session.Handle(cmd)
		var coreErr *core.CoreError
		switch {
		case err == nil:
		case errors.As(err, &coreErr):
			h.hub.Send(client, errorEvent(coreErr.Code, coreErr.Message))
		case errors.Is(err, core.ErrUnknownCommand):
			h.hub.Send(client, errorEvent(core.ErrCodeInvalidMessage, "unknown message type"))
		case errors.Is(err, core.ErrSessionClosed):
			return nil
		default:
			return err
		}
	}
}

// identity resolves an identify token to the user id it was issued for.
func (h *WSHandler) identity(token string) (string, bool) {
	if token == "" || h.authService == nil {
		return "", false
	}
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws identify with invalid token")
		return "", false
	}
	id, err := claims.UserID()
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(id, 10), true
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return errServerClosing
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, outboundFromEvent(event))
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
