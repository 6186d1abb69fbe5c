package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livepoll-server/internal/proto"
	"github.com/vovakirdan/livepoll-server/internal/service/votes"
)

// VoteHandlers provides the HTTP entry point to vote admission.
type VoteHandlers struct {
	votes *votes.Service
	log   *zerolog.Logger
}

// NewVoteHandlers creates a new vote handlers instance.
func NewVoteHandlers(svc *votes.Service, logger *zerolog.Logger) *VoteHandlers {
	return &VoteHandlers{
		votes: svc,
		log:   logger,
	}
}

// CastVoteRequest represents the vote request body. Ids may be numbers or
// numeric strings.
type CastVoteRequest struct {
	UserID       proto.ID `json:"userId"`
	PollOptionID proto.ID `json:"pollOptionId"`
}

// VoteResponse represents a recorded vote.
type VoteResponse struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId"`
	PollOptionID int64  `json:"pollOptionId"`
	CreatedAt    string `json:"createdAt"`
}

// Cast records a vote.
// POST /api/votes
func (h *VoteHandlers) Cast(c *gin.Context) {
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid vote request")
		respondError(c, http.StatusBadRequest, "Invalid userId or pollOptionId")
		return
	}

	userID := int64(req.UserID)
	if uid, ok := authenticatedUser(c); ok {
		userID = uid
	}

	vote, _, err := h.votes.Cast(c.Request.Context(), userID, int64(req.PollOptionID))
	switch {
	case errors.Is(err, votes.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "Invalid userId or pollOptionId")
		return
	case errors.Is(err, votes.ErrOptionNotFound):
		respondError(c, http.StatusNotFound, "Poll option not found")
		return
	case errors.Is(err, votes.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, votes.ErrAlreadyVoted):
		respondError(c, http.StatusConflict, "You have already voted in this poll")
		return
	case err != nil:
		h.log.Error().Err(err).Int64("user_id", userID).Int64("option_id", int64(req.PollOptionID)).Msg("failed to cast vote")
		internalError(c)
		return
	}

	c.JSON(http.StatusCreated, VoteResponse{
		ID:           vote.ID,
		UserID:       vote.UserID,
		PollOptionID: vote.PollOptionID,
		CreatedAt:    formatTime(vote.CreatedAt),
	})
}
