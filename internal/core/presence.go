package core

import "sync"

// Presence maps user identities to their open connections and derives the
// number of distinct active users.
type Presence struct {
	mu       sync.Mutex
	byConn   map[string]string // connection id -> user id
	counts   map[string]int    // user id -> open connections, always > 0
	onChange func(count int)
}

// NewPresence creates an empty registry. onChange, if set, is called with the
// new unique-user count whenever it changes. It runs under the registry lock
// so notifications are observed in the order the count changed; it must not block.
func NewPresence(onChange func(count int)) *Presence {
	return &Presence{
		byConn:   make(map[string]string),
		counts:   make(map[string]int),
		onChange: onChange,
	}
}

// Identify binds userID to the connection. A connection bound to another
// identity is rebound; identifying twice with the same identity is a no-op.
// Returns the unique-user count and whether it changed.
func (p *Presence) Identify(connID, userID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := len(p.counts)
	if prev, ok := p.byConn[connID]; ok {
		if prev == userID {
			return before, false
		}
		p.decrement(prev)
	}
	p.byConn[connID] = userID
	p.counts[userID]++

	return p.notify(before)
}

// Release unbinds the connection's identity, if any. Returns the unique-user
// count and whether it changed (only when the last connection of a user goes away).
func (p *Presence) Release(connID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := len(p.counts)
	userID, ok := p.byConn[connID]
	if !ok {
		return before, false
	}
	delete(p.byConn, connID)
	p.decrement(userID)

	return p.notify(before)
}

// Count returns the number of distinct users with at least one open connection.
func (p *Presence) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.counts)
}

// Peek calls fn with the current unique-user count while holding the registry
// lock, so fn is ordered with respect to onChange notifications.
func (p *Presence) Peek(fn func(count int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(len(p.counts))
}

// UserOf returns the identity bound to a connection.
func (p *Presence) UserOf(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.byConn[connID]
	return userID, ok
}

// Connections returns how many open connections a user holds.
func (p *Presence) Connections(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID]
}

func (p *Presence) decrement(userID string) {
	if p.counts[userID] <= 1 {
		delete(p.counts, userID)
		return
	}
	p.counts[userID]--
}

func (p *Presence) notify(before int) (int, bool) {
	after := len(p.counts)
	if after == before {
		return after, false
	}
	if p.onChange != nil {
		p.onChange(after)
	}
	return after, true
}
