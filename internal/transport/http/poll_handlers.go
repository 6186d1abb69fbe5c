package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livepoll-server/internal/proto"
	"github.com/vovakirdan/livepoll-server/internal/service/polls"
	"github.com/vovakirdan/livepoll-server/internal/store"
)

// PollHandlers provides HTTP handlers for poll management.
type PollHandlers struct {
	polls *polls.Service
	log   *zerolog.Logger
}

// NewPollHandlers creates a new poll handlers instance.
func NewPollHandlers(svc *polls.Service, logger *zerolog.Logger) *PollHandlers {
	return &PollHandlers{
		polls: svc,
		log:   logger,
	}
}

// CreatePollRequest represents the create poll request body. With
// authentication the token's user replaces CreatorID.
type CreatePollRequest struct {
	CreatorID   proto.ID `json:"creatorId"`
	Question    string   `json:"question" binding:"required"`
	Options     []string `json:"options"`
	IsPublished bool     `json:"isPublished"`
}

// OptionResponse is one option with its vote count.
type OptionResponse struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// CreatorResponse identifies a poll's author.
type CreatorResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PollResponse represents a poll in API responses.
type PollResponse struct {
	ID          int64            `json:"id"`
	Question    string           `json:"question"`
	IsPublished bool             `json:"isPublished"`
	CreatedAt   string           `json:"createdAt"`
	Creator     CreatorResponse  `json:"creator"`
	Options     []OptionResponse `json:"options"`
}

func pollResponse(p *store.Poll) PollResponse {
	options := make([]OptionResponse, len(p.Options))
	for i, o := range p.Options {
		options[i] = OptionResponse{ID: o.ID, Text: o.Text, Votes: o.Votes}
	}
	return PollResponse{
		ID:          p.ID,
		Question:    p.Question,
		IsPublished: p.IsPublished,
		CreatedAt:   formatTime(p.CreatedAt),
		Creator:     CreatorResponse{ID: p.CreatorID, Name: p.CreatorName},
		Options:     options,
	}
}

// Create handles poll creation.
// POST /api/polls
func (h *PollHandlers) Create(c *gin.Context) {
	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create poll request")
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	creatorID := int64(req.CreatorID)
	if uid, ok := authenticatedUser(c); ok {
		creatorID = uid
	}
	if creatorID == 0 {
		respondError(c, http.StatusBadRequest, "creatorId is required")
		return
	}

	poll, err := h.polls.Create(c.Request.Context(), polls.CreateInput{
		CreatorID:   creatorID,
		Question:    req.Question,
		IsPublished: req.IsPublished,
		Options:     req.Options,
	})
	switch {
	case errors.Is(err, polls.ErrTooFewOptions):
		respondError(c, http.StatusBadRequest, "At least two options are required")
		return
	case errors.Is(err, polls.ErrInvalidQuestion):
		respondError(c, http.StatusBadRequest, "Question is required")
		return
	case errors.Is(err, polls.ErrCreatorNotFound):
		respondError(c, http.StatusNotFound, "Creator not found")
		return
	case err != nil:
		h.log.Error().Err(err).Int64("user_id", creatorID).Msg("failed to create poll")
		internalError(c)
		return
	}

	c.JSON(http.StatusCreated, pollResponse(poll))
}

// List returns all polls with their counts.
// GET /api/polls
func (h *PollHandlers) List(c *gin.Context) {
	all, err := h.polls.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list polls")
		internalError(c)
		return
	}

	response := make([]PollResponse, 0, len(all))
	for _, p := range all {
		response = append(response, pollResponse(p))
	}
	c.JSON(http.StatusOK, response)
}

// Get returns one poll.
// GET /api/polls/:id
func (h *PollHandlers) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	poll, err := h.polls.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, polls.ErrPollNotFound) {
			respondError(c, http.StatusNotFound, "Poll not found")
			return
		}
		h.log.Error().Err(err).Int64("poll_id", id).Msg("failed to get poll")
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, pollResponse(poll))
}

// Delete removes a poll. An authenticated caller must be its creator.
// DELETE /api/polls/:id
func (h *PollHandlers) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var err error
	if userID, authed := authenticatedUser(c); authed {
		err = h.polls.DeleteAs(c.Request.Context(), id, userID)
	} else {
		err = h.polls.Delete(c.Request.Context(), id)
	}
	if err != nil {
		switch {
		case errors.Is(err, polls.ErrPollNotFound):
			respondError(c, http.StatusNotFound, "Poll not found")
			return
		case errors.Is(err, polls.ErrNotPollCreator):
			respondError(c, http.StatusForbidden, "Only the poll creator can delete it")
			return
		}
		h.log.Error().Err(err).Int64("poll_id", id).Msg("failed to delete poll")
		internalError(c)
		return
	}
	c.Status(http.StatusNoContent)
}
