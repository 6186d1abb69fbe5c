package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandIdentify binds a user identity to the connection.
	CommandIdentify CommandKind = iota
	// CommandJoinPoll subscribes the connection to a poll's results.
	CommandJoinPoll
	// CommandLeavePoll unsubscribes the connection from a poll's results.
	CommandLeavePoll
)

func (k CommandKind) String() string {
	switch k {
	case CommandIdentify:
		return "identify"
	case CommandJoinPoll:
		return "join_poll"
	case CommandLeavePoll:
		return "leave_poll"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind
	User string // CommandIdentify
	Poll string // CommandJoinPoll, CommandLeavePoll
}
