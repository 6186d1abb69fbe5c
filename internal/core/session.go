package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// SessionState is the lifecycle state of a connection session.
type SessionState int

const (
	// StateConnected is the initial state; commands are accepted.
	StateConnected SessionState = iota
	// StateClosed is terminal; presence and room memberships are released.
	StateClosed
)

func (s SessionState) String() string {
	if s == StateClosed {
		return "closed"
	}
	return "connected"
}

// Session drives one connection's identity and room memberships.
// Commands and Close are serialized, so nothing can join a room after cleanup.
type Session struct {
	hub    *Hub
	client *Client
	log    zerolog.Logger

	mu    sync.Mutex
	state SessionState
}

func newSession(h *Hub, c *Client) *Session {
	return &Session{
		hub:    h,
		client: c,
		log:    h.log.With().Str("conn_id", c.ID).Logger(),
		state:  StateConnected,
	}
}

// Client returns the connection wrapped by the session.
func (s *Session) Client() *Client {
	return s.client
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle applies a client command. Validation failures are returned as *CoreError.
func (s *Session) Handle(cmd *Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}

	switch cmd.Kind {
	case CommandIdentify:
		if cmd.User == "" {
			return coreError(ErrCodeBadRequest, "user id is required")
		}
		count, changed := s.hub.presence.Identify(s.client.ID, cmd.User)
		s.log.Debug().Str("user_id", cmd.User).Int("count", count).Bool("changed", changed).Msg("identified")
	case CommandJoinPoll:
		if cmd.Poll == "" {
			return coreError(ErrCodeBadRequest, "poll id is required")
		}
		if s.hub.rooms.Join(s.client, cmd.Poll) {
			s.log.Debug().Str("poll_id", cmd.Poll).Msg("joined poll")
		}
	case CommandLeavePoll:
		if cmd.Poll == "" {
			return coreError(ErrCodeBadRequest, "poll id is required")
		}
		if s.hub.rooms.Leave(s.client.ID, cmd.Poll) {
			s.log.Debug().Str("poll_id", cmd.Poll).Msg("left poll")
		}
	default:
		return ErrUnknownCommand
	}
	return nil
}

// Close moves the session to StateClosed, releasing its identity and room
// memberships and closing the client's outbound queue. Safe to call repeatedly.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	s.cleanup("release presence", func() { s.hub.presence.Release(s.client.ID) })
	s.cleanup("leave rooms", func() { s.hub.rooms.LeaveAll(s.client.ID) })
	s.cleanup("detach client", func() { s.hub.forget(s) })
}

// cleanup runs one disconnect step; a failure is logged so the remaining steps still run.
func (s *Session) cleanup(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("step", step).Msg("session cleanup failed")
		}
	}()
	fn()
}
