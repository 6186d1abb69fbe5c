package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Room groups the connections subscribed to one poll.
type Room struct {
	Name    string
	clients map[string]*Client
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[string]*Client),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(id string) bool {
	if _, exists := r.clients[id]; !exists {
		return false
	}
	delete(r.clients, id)
	return true
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

// RoomIndex maps poll room ids to subscribed connections.
type RoomIndex struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byConn map[string]map[string]struct{} // connection id -> joined room ids
	log    *zerolog.Logger
}

// NewRoomIndex creates an empty index.
func NewRoomIndex(logger *zerolog.Logger) *RoomIndex {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RoomIndex{
		rooms:  make(map[string]*Room),
		byConn: make(map[string]map[string]struct{}),
		log:    logger,
	}
}

// Join subscribes the client to a room. Returns false if it was already a member.
func (x *RoomIndex) Join(c *Client, roomID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	room, ok := x.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		x.rooms[roomID] = room
	}
	if !room.AddClient(c) {
		return false
	}

	joined, ok := x.byConn[c.ID]
	if !ok {
		joined = make(map[string]struct{})
		x.byConn[c.ID] = joined
	}
	joined[roomID] = struct{}{}
	return true
}

// Leave unsubscribes a connection from a room. Returns false if it was not a member.
func (x *RoomIndex) Leave(connID, roomID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	joined, ok := x.byConn[connID]
	if !ok {
		return false
	}
	if _, ok := joined[roomID]; !ok {
		return false
	}
	delete(joined, roomID)
	if len(joined) == 0 {
		delete(x.byConn, connID)
	}
	x.removeFromRoom(connID, roomID)
	return true
}

// LeaveAll removes a connection from every room it joined and returns those room ids.
func (x *RoomIndex) LeaveAll(connID string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	joined, ok := x.byConn[connID]
	if !ok {
		return nil
	}
	delete(x.byConn, connID)

	left := make([]string, 0, len(joined))
	for roomID := range joined {
		x.removeFromRoom(connID, roomID)
		left = append(left, roomID)
	}
	return left
}

// Drop removes a room with all of its memberships.
func (x *RoomIndex) Drop(roomID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	room, ok := x.rooms[roomID]
	if !ok {
		return
	}
	delete(x.rooms, roomID)
	for connID := range room.clients {
		joined := x.byConn[connID]
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(x.byConn, connID)
		}
	}
}

// MembersOf returns a snapshot of the clients currently subscribed to a room.
func (x *RoomIndex) MembersOf(roomID string) []*Client {
	x.mu.RLock()
	defer x.mu.RUnlock()

	room, ok := x.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		members = append(members, c)
	}
	return members
}

// RoomsOf returns the room ids a connection has joined.
func (x *RoomIndex) RoomsOf(connID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	joined := x.byConn[connID]
	rooms := make([]string, 0, len(joined))
	for roomID := range joined {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Len returns the number of non-empty rooms.
func (x *RoomIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.rooms)
}

// removeFromRoom expects x.mu to be held.
func (x *RoomIndex) removeFromRoom(connID, roomID string) {
	room, ok := x.rooms[roomID]
	if !ok || !room.RemoveClient(connID) {
		x.log.Warn().Str("conn_id", connID).Str("poll_id", roomID).Msg("room index out of sync, ignoring")
		return
	}
	if room.Empty() {
		delete(x.rooms, roomID)
	}
}
