package core

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrHubClosed is returned by Connect after Shutdown.
var ErrHubClosed = errors.New("hub closed")

// Hub owns the presence registry, the room index and the dispatcher shared by
// every connection session.
type Hub struct {
	*Dispatcher

	presence *Presence
	rooms    *RoomIndex
	observer Observer
	log      *zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewHub creates a hub. A nil logger or observer disables that output.
func NewHub(logger *zerolog.Logger, observer Observer) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if observer == nil {
		observer = nopObserver{}
	}

	rooms := NewRoomIndex(logger)
	h := &Hub{
		Dispatcher: NewDispatcher(rooms, observer, logger),
		rooms:      rooms,
		observer:   observer,
		log:        logger,
		sessions:   make(map[string]*Session),
	}
	h.presence = NewPresence(func(count int) {
		h.BroadcastActiveUsers(count)
	})
	return h
}

// Connect attaches a client and returns its session. The client immediately
// receives the current active user count.
func (h *Hub) Connect(c *Client) (*Session, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	s := newSession(h, c)
	h.sessions[c.ID] = s
	h.mu.Unlock()

	h.attach(c)
	h.observer.ConnectionOpened()
	h.presence.Peek(func(count int) {
		h.Send(c, &Event{Kind: EventActiveUsers, ActiveUsers: count})
	})

	h.log.Debug().Str("conn_id", c.ID).Msg("client connected")
	return s, nil
}

// Run blocks until ctx is done and then closes every session.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Shutdown()
}

// Shutdown closes all sessions and refuses new connections.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	h.log.Info().Int("sessions", len(sessions)).Msg("hub stopped")
}

// Presence returns the presence registry.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// Rooms returns the room membership index.
func (h *Hub) Rooms() *RoomIndex {
	return h.rooms
}

// ActiveUsers returns the number of distinct identified users.
func (h *Hub) ActiveUsers() int {
	return h.presence.Count()
}

// Session returns the open session for a connection id.
func (h *Hub) Session(connID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[connID]
	return s, ok
}

// SessionIDs returns the connection ids of every open session.
func (h *Hub) SessionIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) forget(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.client.ID)
	h.mu.Unlock()

	if h.detach(s.client) {
		h.observer.ConnectionClosed()
	}
	s.client.close()
	h.log.Debug().Str("conn_id", s.client.ID).Msg("client disconnected")
}
