package http

import (
	"encoding/json"
	"strings"

	"github.com/vovakirdan/livepoll-server/internal/core"
	"github.com/vovakirdan/livepoll-server/internal/proto"
	"github.com/vovakirdan/livepoll-server/internal/utils"
)

// inboundToCommand decodes a client frame into a core command. A non-nil
// *proto.Error is a recoverable protocol error for the client.
func inboundToCommand(raw []byte) (*core.Command, *proto.Error) {
	var inbound proto.Inbound
	if err := json.Unmarshal(raw, &inbound); err != nil {
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "malformed message"}
	}

	arg, err := proto.DecodeText(inbound.Data)
	if err != nil {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "data must be a string or number"}
	}
	arg = strings.TrimSpace(arg)

	switch inbound.Type {
	case proto.InboundTypeIdentify:
		return &core.Command{Kind: core.CommandIdentify, User: arg}, nil
	case proto.InboundTypeJoinPoll, proto.InboundTypeLeavePoll:
		kind := core.CommandJoinPoll
		if inbound.Type == proto.InboundTypeLeavePoll {
			kind = core.CommandLeavePoll
		}
		if arg == "" {
			return &core.Command{Kind: kind}, nil
		}
		// "07", 7 and "7" address the same room.
		pollID, ok := utils.ParseID(arg)
		if !ok {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "poll id must be a positive integer"}
		}
		return &core.Command{Kind: kind, Poll: core.RoomID(pollID)}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventActiveUsers:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventActiveUsers,
			Data:  proto.ActiveUsers{Count: event.ActiveUsers},
		}
	case core.EventPollResults:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPollResults,
			Data: proto.PollResults{
				PollID:  event.Results.PollID,
				Options: optionResults(event.Results.Options),
			},
		}
	case core.EventPollCreated:
		p := event.Poll
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPollCreated,
			Data: proto.PollCreated{
				ID:          p.ID,
				Question:    p.Question,
				IsPublished: p.IsPublished,
				CreatedAt:   formatTime(p.CreatedAt),
				Creator:     proto.Creator{ID: p.Creator.ID, Name: p.Creator.Name},
				Options:     optionResults(p.Options),
			},
		}
	case core.EventPollDeleted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPollDeleted,
			Data:  proto.PollDeleted{ID: event.PollID},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func optionResults(options []core.OptionResult) []proto.OptionResult {
	out := make([]proto.OptionResult, len(options))
	for i, o := range options {
		out[i] = proto.OptionResult{ID: o.ID, Text: o.Text, Votes: o.Votes}
	}
	return out
}

func errorEvent(code, msg string) *core.Event {
	return &core.Event{Kind: core.EventError, Error: &core.CoreError{Code: code, Message: msg}}
}
