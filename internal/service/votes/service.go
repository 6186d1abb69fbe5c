package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/livepoll-server/internal/core"
	"github.com/vovakirdan/livepoll-server/internal/store"
)

// Common errors for vote admission.
var (
	ErrOptionNotFound = errors.New("poll option not found")
	ErrAlreadyVoted   = errors.New("you have already voted in this poll")
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidInput   = errors.New("invalid user or option id")
)

// Rejection reasons reported to the Observer.
const (
	ReasonOptionNotFound = "option_not_found"
	ReasonAlreadyVoted   = "already_voted"
	ReasonRaceLost       = "race_lost"
	ReasonUserNotFound   = "user_not_found"
	ReasonInvalidInput   = "invalid_input"
)

// Broadcaster pushes fresh results to the poll's room.
type Broadcaster interface {
	BroadcastResults(snapshot *core.ResultSnapshot) int
}

// Observer receives admission outcomes, typically for metrics.
type Observer interface {
	VoteAdmitted()
	VoteRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) VoteAdmitted() {}
func (nopObserver) VoteRejected(string) {}

// Service admits votes: at most one per user per poll, followed by a result
// broadcast to the poll's subscribers.
type Service struct {
	store       store.VoteStore
	broadcaster Broadcaster
	observer    Observer
	log         *zerolog.Logger
}

// New creates a vote admission service. A nil observer or logger disables that output.
func New(st store.VoteStore, broadcaster Broadcaster, observer Observer, logger *zerolog.Logger) *Service {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:       st,
		broadcaster: broadcaster,
		observer:    observer,
		log:         logger,
	}
}

// Cast records a vote for optionID on behalf of userID. The fresh result
// snapshot is broadcast and returned. Returns ErrOptionNotFound,
// ErrAlreadyVoted or ErrUserNotFound on rejection.
func (s *Service) Cast(ctx context.Context, userID, optionID int64) (*store.Vote, *core.ResultSnapshot, error) {
	if userID <= 0 || optionID <= 0 {
		s.observer.VoteRejected(ReasonInvalidInput)
		return nil, nil, ErrInvalidInput
	}

	option, err := s.store.FindPollOptionWithPoll(ctx, optionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.observer.VoteRejected(ReasonOptionNotFound)
			return nil, nil, ErrOptionNotFound
		}
		return nil, nil, fmt.Errorf("find option: %w", err)
	}

	// Fast path only: a concurrent vote can still slip in before the insert.
	existing, err := s.store.FindExistingVote(ctx, userID, option.PollID)
	if err != nil {
		return nil, nil, fmt.Errorf("find existing vote: %w", err)
	}
	if existing != nil {
		s.observer.VoteRejected(ReasonAlreadyVoted)
		return nil, nil, ErrAlreadyVoted
	}

	vote, err := s.store.InsertVote(ctx, userID, optionID)
	switch {
	case errors.Is(err, store.ErrConflict):
		s.observer.VoteRejected(ReasonRaceLost)
		s.log.Debug().Int64("user_id", userID).Int64("poll_id", option.PollID).Msg("concurrent vote lost uniqueness race")
		return nil, nil, ErrAlreadyVoted
	case errors.Is(err, store.ErrNotFound):
		s.observer.VoteRejected(ReasonOptionNotFound)
		return nil, nil, ErrOptionNotFound
	case errors.Is(err, store.ErrInvalidReference):
		s.observer.VoteRejected(ReasonUserNotFound)
		return nil, nil, ErrUserNotFound
	case err != nil:
		return nil, nil, fmt.Errorf("insert vote: %w", err)
	}
	s.observer.VoteAdmitted()

	snapshot, err := s.Results(ctx, vote.PollID)
	if err != nil {
		// The vote is durable; subscribers catch up on the next broadcast.
		s.log.Error().Err(err).Int64("poll_id", vote.PollID).Msg("failed to load results after vote")
		return vote, nil, nil
	}

	n := s.broadcaster.BroadcastResults(snapshot)
	s.log.Debug().Int64("poll_id", vote.PollID).Int("total", snapshot.Total()).Int("recipients", n).Msg("results broadcast")
	return vote, snapshot, nil
}

// Results recomputes the counts of every option of a poll.
func (s *Service) Results(ctx context.Context, pollID int64) (*core.ResultSnapshot, error) {
	results, err := s.store.GetResultSnapshot(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("result snapshot: %w", err)
	}
	return SnapshotFromStore(results), nil
}

// SnapshotFromStore converts stored counts into the broadcast form.
func SnapshotFromStore(r *store.PollResults) *core.ResultSnapshot {
	options := make([]core.OptionResult, len(r.Options))
	for i, o := range r.Options {
		options[i] = core.OptionResult{ID: o.ID, Text: o.Text, Votes: o.Votes}
	}
	return &core.ResultSnapshot{PollID: r.PollID, Options: options}
}
