package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
// Data is the bare payload: a JSON string or number for every inbound type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeIdentify  = "identify"
	InboundTypeJoinPoll  = "join_poll"
	InboundTypeLeavePoll = "leave_poll"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventActiveUsers = "active_users"
	EventPollResults = "poll_results"
	EventPollCreated = "poll_created"
	EventPollDeleted = "poll_deleted"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ActiveUsers carries the number of distinct connected users.
type ActiveUsers struct {
	Count int `json:"count"`
}

// OptionResult is one option inside a poll payload.
type OptionResult struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollResults is the payload of poll_results.
type PollResults struct {
	PollID  int64          `json:"pollId"`
	Options []OptionResult `json:"options"`
}

// Creator identifies a poll's author.
type Creator struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PollCreated is the payload of poll_created.
type PollCreated struct {
	ID          int64          `json:"id"`
	Question    string         `json:"question"`
	IsPublished bool           `json:"isPublished"`
	CreatedAt   string         `json:"createdAt"`
	Creator     Creator        `json:"creator"`
	Options     []OptionResult `json:"options"`
}

// PollDeleted is the payload of poll_deleted.
type PollDeleted struct {
	ID int64 `json:"id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
