package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Observer receives delivery and lifecycle signals, typically for metrics.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	ActiveUsersChanged(count int)
	EventDelivered(kind EventKind)
	EventDropped(kind EventKind)
	StaleResultsSkipped()
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened() {}
func (nopObserver) ConnectionClosed() {}
func (nopObserver) ActiveUsersChanged(int) {}
func (nopObserver) EventDelivered(EventKind) {}
func (nopObserver) EventDropped(EventKind) {}
func (nopObserver) StaleResultsSkipped() {}

// pollStream orders result broadcasts for one poll.
type pollStream struct {
	mu        sync.Mutex
	sent      bool
	lastTotal int
}

// Dispatcher pushes events to rooms or to every live connection. Delivery is
// a non-blocking enqueue per client, so a slow or closed client never stalls
// the others or the caller.
type Dispatcher struct {
	rooms    *RoomIndex
	observer Observer
	log      *zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	streamsMu sync.Mutex
	streams   map[int64]*pollStream
}

// NewDispatcher creates a dispatcher that targets rooms through the given index.
func NewDispatcher(rooms *RoomIndex, observer Observer, logger *zerolog.Logger) *Dispatcher {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		rooms:    rooms,
		observer: observer,
		log:      logger,
		clients:  make(map[string]*Client),
		streams:  make(map[int64]*pollStream),
	}
}

// BroadcastResults delivers a snapshot to every current member of the poll's
// room. Calls for the same poll are serialized; a snapshot with fewer votes
// than one already delivered is stale and skipped. Returns the number of
// clients the snapshot was queued for.
func (d *Dispatcher) BroadcastResults(snapshot *ResultSnapshot) int {
	stream := d.stream(snapshot.PollID)
	stream.mu.Lock()
	defer stream.mu.Unlock()

	total := snapshot.Total()
	if stream.sent && total < stream.lastTotal {
		d.observer.StaleResultsSkipped()
		d.log.Debug().Int64("poll_id", snapshot.PollID).Int("total", total).Int("last_total", stream.lastTotal).Msg("skipping stale results")
		return 0
	}
	stream.sent = true
	stream.lastTotal = total

	ev := &Event{Kind: EventPollResults, Results: snapshot}
	return d.deliverAll(d.rooms.MembersOf(RoomID(snapshot.PollID)), ev)
}

// BroadcastPollCreated announces a new poll to every connection.
func (d *Dispatcher) BroadcastPollCreated(poll *PollSummary) int {
	return d.deliverAll(d.connections(), &Event{Kind: EventPollCreated, Poll: poll})
}

// BroadcastPollDeleted announces a removed poll to every connection and
// forgets its room and ordering state.
func (d *Dispatcher) BroadcastPollDeleted(pollID int64) int {
	n := d.deliverAll(d.connections(), &Event{Kind: EventPollDeleted, PollID: pollID})
	d.rooms.Drop(RoomID(pollID))

	d.streamsMu.Lock()
	delete(d.streams, pollID)
	d.streamsMu.Unlock()
	return n
}

// BroadcastActiveUsers sends the unique-user count to every connection.
func (d *Dispatcher) BroadcastActiveUsers(count int) int {
	d.observer.ActiveUsersChanged(count)
	return d.deliverAll(d.connections(), &Event{Kind: EventActiveUsers, ActiveUsers: count})
}

// Send delivers an event to a single client.
func (d *Dispatcher) Send(c *Client, ev *Event) bool {
	return d.deliver(c, ev)
}

// Connections returns the number of attached clients.
func (d *Dispatcher) Connections() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clients)
}

func (d *Dispatcher) attach(c *Client) {
	d.mu.Lock()
	d.clients[c.ID] = c
	d.mu.Unlock()
}

func (d *Dispatcher) detach(c *Client) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.clients[c.ID]; !ok {
		return false
	}
	delete(d.clients, c.ID)
	return true
}

func (d *Dispatcher) connections() []*Client {
	d.mu.RLock()
	defer d.mu.RUnlock()

	clients := make([]*Client, 0, len(d.clients))
	for _, c := range d.clients {
		clients = append(clients, c)
	}
	return clients
}

func (d *Dispatcher) stream(pollID int64) *pollStream {
	d.streamsMu.Lock()
	defer d.streamsMu.Unlock()

	s, ok := d.streams[pollID]
	if !ok {
		s = &pollStream{}
		d.streams[pollID] = s
	}
	return s
}

func (d *Dispatcher) deliverAll(clients []*Client, ev *Event) int {
	delivered := 0
	for _, c := range clients {
		if d.deliver(c, ev) {
			delivered++
		}
	}
	return delivered
}

func (d *Dispatcher) deliver(c *Client, ev *Event) bool {
	if c.Send(ev) {
		d.observer.EventDelivered(ev.Kind)
		return true
	}
	d.observer.EventDropped(ev.Kind)
	d.log.Debug().Str("conn_id", c.ID).Str("event", ev.Kind.String()).Msg("dropped event for slow or closed client")
	return false
}
