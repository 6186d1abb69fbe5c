package http

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livepoll-server/internal/config"
)

func TestUserRegistrationAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	user := env.register(t, "ann@example.com")
	assert.Equal(t, "ann@example.com", user.Email)
	assert.NotZero(t, user.ID)

	var errResp ErrorResponse
	code := env.do(t, http.MethodPost, "/api/users", map[string]any{
		"name": "Ann", "email": "ann@example.com", "password": "password123",
	}, "", &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, errResp.Error, errResp.Message)
	assert.NotEmpty(t, errResp.Message)

	code = env.do(t, http.MethodPost, "/api/users", map[string]any{"name": "No Email"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var login LoginResponse
	code = env.do(t, http.MethodPost, "/api/users/login", map[string]any{
		"email": "ann@example.com", "password": "password123",
	}, "", &login)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, user.ID, login.User.ID)

	code = env.do(t, http.MethodPost, "/api/users/login", map[string]any{
		"email": "ann@example.com", "password": "nope-nope",
	}, "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	var users []UserResponse
	code = env.do(t, http.MethodGet, "/api/users", nil, "", &users)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, users, 1)
}

func TestCreatePollValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "bob@example.com")

	var errResp ErrorResponse
	code := env.do(t, http.MethodPost, "/api/polls", map[string]any{
		"creatorId": user.ID, "question": "Only one?", "options": []string{"yes"},
	}, "", &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "At least two options are required", errResp.Message)

	code = env.do(t, http.MethodPost, "/api/polls", map[string]any{
		"question": "No creator?", "options": []string{"a", "b"},
	}, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = env.do(t, http.MethodPost, "/api/polls", map[string]any{
		"creatorId": user.ID + 99, "question": "Ghost?", "options": []string{"a", "b"},
	}, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetAndListPolls(t *testing.T) {
	env := newTestEnv(t, nil)
	_, poll := env.seedPoll(t, "carol@example.com")

	var got PollResponse
	code := env.do(t, http.MethodGet, "/api/polls/"+strconv.FormatInt(poll.ID, 10), nil, "", &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, poll.Question, got.Question)
	assert.Equal(t, "Tester", got.Creator.Name)

	code = env.do(t, http.MethodGet, "/api/polls/abc", nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = env.do(t, http.MethodGet, "/api/polls/9999", nil, "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	var all []PollResponse
	code = env.do(t, http.MethodGet, "/api/polls", nil, "", &all)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, all, 1)
}

func TestCastVoteOutcomes(t *testing.T) {
	env := newTestEnv(t, nil)
	user, poll := env.seedPoll(t, "dave@example.com")

	var vote VoteResponse
	code := env.do(t, http.MethodPost, "/api/votes", map[string]any{
		"userId": strconv.FormatInt(user.ID, 10), "pollOptionId": poll.Options[0].ID,
	}, "", &vote)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, user.ID, vote.UserID)
	assert.Equal(t, poll.Options[0].ID, vote.PollOptionID)

	var errResp ErrorResponse
	code = env.do(t, http.MethodPost, "/api/votes", map[string]any{
		"userId": user.ID, "pollOptionId": poll.Options[1].ID,
	}, "", &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "You have already voted in this poll", errResp.Message)

	code = env.do(t, http.MethodPost, "/api/votes", map[string]any{
		"userId": user.ID, "pollOptionId": 424242,
	}, "", &errResp)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Poll option not found", errResp.Message)

	code = env.do(t, http.MethodPost, "/api/votes", map[string]any{
		"userId": "abc", "pollOptionId": poll.Options[0].ID,
	}, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = env.do(t, http.MethodPost, "/api/votes", map[string]any{"pollOptionId": poll.Options[0].ID}, "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var got PollResponse
	env.do(t, http.MethodGet, "/api/polls/"+strconv.FormatInt(poll.ID, 10), nil, "", &got)
	assert.Equal(t, 1, got.Options[0].Votes)
	assert.Equal(t, 0, got.Options[1].Votes)
}

func TestDeletePoll(t *testing.T) {
	env := newTestEnv(t, nil)
	_, poll := env.seedPoll(t, "erin@example.com")
	path := "/api/polls/" + strconv.FormatInt(poll.ID, 10)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, nil, "", nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, path, nil, "", nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, nil, "", nil))
}

func TestRequireAuthUsesTokenSubject(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.RequireAuth = true })
	owner := env.register(t, "owner@example.com")
	other := env.register(t, "other@example.com")
	token := env.login(t, "owner@example.com")

	body := map[string]any{"creatorId": other.ID, "question": "Whose?", "options": []string{"a", "b"}}
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/polls", body, "", nil))
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/polls", body, "not-a-token", nil))

	var poll PollResponse
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/polls", body, token, &poll))
	assert.Equal(t, owner.ID, poll.Creator.ID, "token subject overrides body")

	var vote VoteResponse
	code := env.do(t, http.MethodPost, "/api/votes", map[string]any{
		"userId": other.ID, "pollOptionId": poll.Options[0].ID,
	}, token, &vote)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, owner.ID, vote.UserID)

	// Reads stay public.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/polls", nil, "", nil))
}

func TestDeletePollOnlyByCreator(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.RequireAuth = true })
	env.register(t, "owner@example.com")
	env.register(t, "other@example.com")
	ownerToken := env.login(t, "owner@example.com")
	otherToken := env.login(t, "other@example.com")

	var poll PollResponse
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/polls", map[string]any{
		"question": "Keep it?", "options": []string{"a", "b"},
	}, ownerToken, &poll))
	path := "/api/polls/" + strconv.FormatInt(poll.ID, 10)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodDelete, path, nil, "", nil))

	var errResp ErrorResponse
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, path, nil, otherToken, &errResp))
	assert.Equal(t, "Only the poll creator can delete it", errResp.Message)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, nil, "", nil))

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, nil, ownerToken, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, nil, "", nil))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	code := env.do(t, http.MethodOptions, "/api/polls", nil, "", nil)
	assert.Equal(t, http.StatusNoContent, code)
}
