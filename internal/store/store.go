package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference is returned when a write points at a missing parent row.
	ErrInvalidReference = errors.New("invalid reference")
)

// User represents a registered user.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Poll is a question with its options. Options carry current vote counts
// when loaded through GetPoll or ListPolls.
type Poll struct {
	ID          int64
	CreatorID   int64
	CreatorName string
	Question    string
	IsPublished bool
	CreatedAt   time.Time
	Options     []PollOption
}

// PollOption is one selectable answer of a poll.
type PollOption struct {
	ID     int64
	PollID int64
	Text   string
	Votes  int
}

// Vote is a durable vote record. At most one exists per (UserID, PollID).
type Vote struct {
	ID           int64
	UserID       int64
	PollOptionID int64
	PollID       int64
	CreatedAt    time.Time
}

// OptionCount is a single option's tally inside PollResults.
type OptionCount struct {
	ID    int64
	Text  string
	Votes int
}

// PollResults is a freshly computed tally of every option of a poll, ordered by option id.
type PollResults struct {
	PollID  int64
	Options []OptionCount
}

// Total returns the sum of all option counts.
func (r *PollResults) Total() int {
	total := 0
	for _, o := range r.Options {
		total += o.Votes
	}
	return total
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers lists all users ordered by id.
	ListUsers(ctx context.Context) ([]*User, error)
}

// PollStore handles poll persistence.
type PollStore interface {
	// CreatePoll creates a poll and its options in one transaction.
	CreatePoll(ctx context.Context, creatorID int64, question string, isPublished bool, options []string) (*Poll, error)

	// GetPoll retrieves a poll with options and vote counts.
	GetPoll(ctx context.Context, id int64) (*Poll, error)

	// ListPolls lists all polls with options and vote counts, newest first.
	ListPolls(ctx context.Context) ([]*Poll, error)

	// DeletePoll removes a poll together with its options and votes.
	DeletePoll(ctx context.Context, id int64) error
}

// VoteStore is the vote ledger consumed by vote admission.
type VoteStore interface {
	// FindPollOptionWithPoll resolves an option and its parent poll id.
	// Returns ErrNotFound if the option does not exist.
	FindPollOptionWithPoll(ctx context.Context, optionID int64) (*PollOption, error)

	// FindExistingVote returns the user's vote in the poll, or nil if none exists.
	FindExistingVote(ctx context.Context, userID, pollID int64) (*Vote, error)

	// InsertVote records a vote. Returns ErrConflict if the user already
	// voted in the option's poll and ErrNotFound if the option vanished.
	InsertVote(ctx context.Context, userID, optionID int64) (*Vote, error)

	// GetResultSnapshot computes current counts for every option of a poll.
	GetResultSnapshot(ctx context.Context, pollID int64) (*PollResults, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	PollStore
	VoteStore

	// Close closes the underlying database connection.
	Close() error
}
