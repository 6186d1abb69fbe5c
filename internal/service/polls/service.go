package polls

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/livepoll-server/internal/core"
	"github.com/vovakirdan/livepoll-server/internal/store"
)

// Common errors for poll operations.
var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrCreatorNotFound = errors.New("creator not found")
	ErrTooFewOptions   = errors.New("at least two options are required")
	ErrInvalidQuestion = errors.New("question is required")
	ErrNotPollCreator  = errors.New("only the poll creator can delete it")
)

// Broadcaster announces poll lifecycle changes to every connection.
type Broadcaster interface {
	BroadcastPollCreated(poll *core.PollSummary) int
	BroadcastPollDeleted(pollID int64) int
}

// Service provides poll management.
type Service struct {
	store       store.PollStore
	broadcaster Broadcaster
	log         *zerolog.Logger
}

// New creates a poll service.
func New(st store.PollStore, broadcaster Broadcaster, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:       st,
		broadcaster: broadcaster,
		log:         logger,
	}
}

// CreateInput describes a new poll.
type CreateInput struct {
	CreatorID   int64
	Question    string
	IsPublished bool
	Options     []string
}

// Create stores a poll with its options and announces it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Poll, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, ErrInvalidQuestion
	}
	options := make([]string, 0, len(in.Options))
	for _, o := range in.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if len(options) < 2 {
		return nil, ErrTooFewOptions
	}

	poll, err := s.store.CreatePoll(ctx, in.CreatorID, question, in.IsPublished, options)
	if err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return nil, ErrCreatorNotFound
		}
		return nil, fmt.Errorf("create poll: %w", err)
	}

	n := s.broadcaster.BroadcastPollCreated(Summary(poll))
	s.log.Info().Int64("poll_id", poll.ID).Int("options", len(poll.Options)).Int("recipients", n).Msg("poll created")
	return poll, nil
}

// Get returns a poll with current counts.
func (s *Service) Get(ctx context.Context, id int64) (*store.Poll, error) {
	poll, err := s.store.GetPoll(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("get poll: %w", err)
	}
	return poll, nil
}

// List returns all polls, newest first.
func (s *Service) List(ctx context.Context) ([]*store.Poll, error) {
	polls, err := s.store.ListPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return polls, nil
}

// Delete removes a poll with its votes and tells every connection.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeletePoll(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPollNotFound
		}
		return fmt.Errorf("delete poll: %w", err)
	}

	n := s.broadcaster.BroadcastPollDeleted(id)
	s.log.Info().Int64("poll_id", id).Int("recipients", n).Msg("poll deleted")
	return nil
}

// DeleteAs removes a poll only when requesterID created it.
func (s *Service) DeleteAs(ctx context.Context, id, requesterID int64) error {
	poll, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if poll.CreatorID != requesterID {
		s.log.Warn().Int64("poll_id", id).Int64("user_id", requesterID).Msg("poll delete refused")
		return ErrNotPollCreator
	}
	return s.Delete(ctx, id)
}

// Summary converts a stored poll into the poll_created payload.
func Summary(p *store.Poll) *core.PollSummary {
	options := make([]core.OptionResult, len(p.Options))
	for i, o := range p.Options {
		options[i] = core.OptionResult{ID: o.ID, Text: o.Text, Votes: o.Votes}
	}
	return &core.PollSummary{
		ID:          p.ID,
		Question:    p.Question,
		IsPublished: p.IsPublished,
		CreatedAt:   p.CreatedAt,
		Creator:     core.Creator{ID: p.CreatorID, Name: p.CreatorName},
		Options:     options,
	}
}
