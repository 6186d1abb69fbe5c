package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/livepoll-server/internal/store"
)

//go:embed schema.sql
var schema string

const dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file, or ":memory:".
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup creates a new SQLite store, applies the schema and then runs setup.
// Useful for tests to seed rows.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// mapWriteError translates sqlite constraint failures into store sentinels.
func mapWriteError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %v", store.ErrInvalidReference, err)
	default:
		return err
	}
}

// ==== UserStore implementation ====

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", mapWriteError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ListUsers lists all users ordered by id.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// ==== PollStore implementation ====

// CreatePoll creates a poll and its options in one transaction.
func (s *SQLiteStore) CreatePoll(ctx context.Context, creatorID int64, question string, isPublished bool, options []string) (*store.Poll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO polls (creator_id, question, is_published)
		VALUES (?, ?, ?)
	`, creatorID, question, isPublished)
	if err != nil {
		return nil, fmt.Errorf("insert poll: %w", mapWriteError(err))
	}

	pollID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	for _, text := range options {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO poll_options (poll_id, text)
			VALUES (?, ?)
		`, pollID, text); err != nil {
			return nil, fmt.Errorf("insert poll option: %w", mapWriteError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetPoll(ctx, pollID)
}

// GetPoll retrieves a poll with options and vote counts.
func (s *SQLiteStore) GetPoll(ctx context.Context, id int64) (*store.Poll, error) {
	query := `
		SELECT p.id, p.creator_id, u.name, p.question, p.is_published, p.created_at
		FROM polls p
		JOIN users u ON u.id = p.creator_id
		WHERE p.id = ?
	`
	var poll store.Poll
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&poll.ID,
		&poll.CreatorID,
		&poll.CreatorName,
		&poll.Question,
		&poll.IsPublished,
		&poll.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("poll: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query poll: %w", err)
	}

	options, err := s.listOptions(ctx, &id)
	if err != nil {
		return nil, err
	}
	poll.Options = options[id]
	return &poll, nil
}

// ListPolls lists all polls with options and vote counts, newest first.
func (s *SQLiteStore) ListPolls(ctx context.Context) ([]*store.Poll, error) {
	query := `
		SELECT p.id, p.creator_id, u.name, p.question, p.is_published, p.created_at
		FROM polls p
		JOIN users u ON u.id = p.creator_id
		ORDER BY p.created_at DESC, p.id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query polls: %w", err)
	}
	defer rows.Close()

	polls := make([]*store.Poll, 0)
	for rows.Next() {
		var poll store.Poll
		if err := rows.Scan(&poll.ID, &poll.CreatorID, &poll.CreatorName, &poll.Question, &poll.IsPublished, &poll.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		polls = append(polls, &poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate polls: %w", err)
	}

	options, err := s.listOptions(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, poll := range polls {
		poll.Options = options[poll.ID]
	}
	return polls, nil
}

// listOptions loads options with vote counts grouped by poll id.
// A nil pollID loads options for every poll.
func (s *SQLiteStore) listOptions(ctx context.Context, pollID *int64) (map[int64][]store.PollOption, error) {
	query := `
		SELECT o.id, o.poll_id, o.text, COUNT(v.id)
		FROM poll_options o
		LEFT JOIN votes v ON v.poll_option_id = o.id
		WHERE ? IS NULL OR o.poll_id = ?
		GROUP BY o.id, o.poll_id, o.text
		ORDER BY o.id
	`
	rows, err := s.db.QueryContext(ctx, query, pollID, pollID)
	if err != nil {
		return nil, fmt.Errorf("query poll options: %w", err)
	}
	defer rows.Close()

	options := make(map[int64][]store.PollOption)
	for rows.Next() {
		var opt store.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Votes); err != nil {
			return nil, fmt.Errorf("scan poll option: %w", err)
		}
		options[opt.PollID] = append(options[opt.PollID], opt)
	}

	return options, rows.Err()
}

// DeletePoll removes a poll; options and votes go with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeletePoll(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM polls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("poll: %w", store.ErrNotFound)
	}
	return nil
}

// ==== VoteStore implementation ====

// FindPollOptionWithPoll resolves an option and its parent poll id.
func (s *SQLiteStore) FindPollOptionWithPoll(ctx context.Context, optionID int64) (*store.PollOption, error) {
	query := `
		SELECT id, poll_id, text
		FROM poll_options
		WHERE id = ?
	`
	var opt store.PollOption
	err := s.db.QueryRowContext(ctx, query, optionID).Scan(&opt.ID, &opt.PollID, &opt.Text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("poll option: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query poll option: %w", err)
	}
	return &opt, nil
}

// FindExistingVote returns the user's vote in the poll, or nil if none exists.
func (s *SQLiteStore) FindExistingVote(ctx context.Context, userID, pollID int64) (*store.Vote, error) {
	query := `
		SELECT id, user_id, poll_option_id, poll_id, created_at
		FROM votes
		WHERE user_id = ? AND poll_id = ?
	`
	vote, err := s.scanVote(s.db.QueryRowContext(ctx, query, userID, pollID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return vote, err
}

// InsertVote records a vote. The poll id is copied from the option in the same
// statement, so UNIQUE(user_id, poll_id) has the final say on duplicates.
func (s *SQLiteStore) InsertVote(ctx context.Context, userID, optionID int64) (*store.Vote, error) {
	query := `
		INSERT INTO votes (user_id, poll_option_id, poll_id)
		SELECT ?, id, poll_id FROM poll_options WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, userID, optionID)
	if err != nil {
		return nil, fmt.Errorf("insert vote: %w", mapWriteError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("poll option: %w", store.ErrNotFound)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.scanVote(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, poll_option_id, poll_id, created_at
		FROM votes
		WHERE id = ?
	`, id))
}

func (s *SQLiteStore) scanVote(row *sql.Row) (*store.Vote, error) {
	var vote store.Vote
	err := row.Scan(&vote.ID, &vote.UserID, &vote.PollOptionID, &vote.PollID, &vote.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vote: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query vote: %w", err)
	}
	return &vote, nil
}

// GetResultSnapshot computes current counts for every option of a poll.
func (s *SQLiteStore) GetResultSnapshot(ctx context.Context, pollID int64) (*store.PollResults, error) {
	options, err := s.listOptions(ctx, &pollID)
	if err != nil {
		return nil, err
	}

	opts, ok := options[pollID]
	if !ok {
		return nil, fmt.Errorf("poll: %w", store.ErrNotFound)
	}

	results := &store.PollResults{
		PollID:  pollID,
		Options: make([]store.OptionCount, 0, len(opts)),
	}
	for _, o := range opts {
		results.Options = append(results.Options, store.OptionCount{ID: o.ID, Text: o.Text, Votes: o.Votes})
	}
	return results, nil
}
