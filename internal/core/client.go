package core

import "sync"

const defaultClientBuffer = 16

// Client is one live transport stream as seen by the core layer.
type Client struct {
	ID     string
	Events chan *Event

	mu     sync.Mutex
	closed bool
}

// NewClient constructs a client with a bounded outbound queue.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:     id,
		Events: make(chan *Event, buffer),
	}
}

// Send enqueues an event without blocking. It reports false when the client
// is closed or its queue is full; the event is dropped for this client only.
func (c *Client) Send(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// Closed reports whether the client's queue has been closed.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// close closes the outbound queue once. Writers drain what is left and stop.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Events)
}
