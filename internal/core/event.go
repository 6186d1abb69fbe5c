package core

import (
	"strconv"
	"time"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventActiveUsers carries the number of distinct identified users. Sent to every connection.
	EventActiveUsers EventKind = iota
	// EventPollResults carries a fresh result snapshot. Sent to the poll's room.
	EventPollResults
	// EventPollCreated announces a new poll. Sent to every connection.
	EventPollCreated
	// EventPollDeleted announces a removed poll. Sent to every connection.
	EventPollDeleted
	// EventError notifies a single client about a rejected command.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventActiveUsers:
		return "active_users"
	case EventPollResults:
		return "poll_results"
	case EventPollCreated:
		return "poll_created"
	case EventPollDeleted:
		return "poll_deleted"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
// Events are shared between recipients and must not be mutated after dispatch.
type Event struct {
	Kind        EventKind
	ActiveUsers int
	Results     *ResultSnapshot
	Poll        *PollSummary
	PollID      int64 // EventPollDeleted
	Error       *CoreError
}

// OptionResult is one option's current tally.
type OptionResult struct {
	ID    int64
	Text  string
	Votes int
}

// ResultSnapshot is an immutable, fully recomputed view of a poll's counts.
type ResultSnapshot struct {
	PollID  int64
	Options []OptionResult
}

// Total returns the number of votes across all options.
func (s *ResultSnapshot) Total() int {
	total := 0
	for _, o := range s.Options {
		total += o.Votes
	}
	return total
}

// Creator identifies the author of a poll.
type Creator struct {
	ID   int64
	Name string
}

// PollSummary is the payload of EventPollCreated.
type PollSummary struct {
	ID          int64
	Question    string
	IsPublished bool
	CreatedAt   time.Time
	Creator     Creator
	Options     []OptionResult
}

// RoomID returns the room key used for a poll id.
func RoomID(pollID int64) string {
	return strconv.FormatInt(pollID, 10)
}
