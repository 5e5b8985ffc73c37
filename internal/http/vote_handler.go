package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voting-service/internal/domain/vote"
	"voting-service/internal/platform/apperr"
	"voting-service/internal/worker"
)

type voteRequest struct {
	ChoiceID int64 `json:"choice_id"`
}

type pollResultsResponse struct {
	PollSlug   string              `json:"poll_slug"`
	TotalVotes int64               `json:"total_votes"`
	Results    []vote.ChoiceResult `json:"results"`
}

// @Summary     Cast a vote
// @Tags        votes
// @Accept      json
// @Produce     json
// @Param       slug     path  string       true  "Poll slug"
// @Param       request  body  voteRequest  true  "Vote payload"
// @Success     201  {object}  map[string]any
// @Failure     400  {object}  map[string]string  "invalid body, invalid choice or closed poll"
// @Failure     401  {object}  map[string]string  "login required for private poll"
// @Failure     404  {object}  map[string]string  "poll not found"
// @Failure     409  {object}  map[string]string  "already voted"
// @Failure     410  {object}  map[string]string  "poll expired"
// @Router      /api/v1/polls/{slug}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.ChoiceID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "choice_id is required", nil))
		return
	}

	voter := vote.Voter{
		UserID:    optionalUserID(r),
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}

	v, err := h.voteSvc.CastVote(r.Context(), slug, req.ChoiceID, voter)
	if err != nil {
		errorResponse(w, err)
		return
	}

	select {
	case h.voteCh <- worker.VoteEvent{
		PollID:    v.PollID,
		ChoiceID:  v.ChoiceID,
		PollSlug:  slug,
		Anonymous: voter.Anonymous(),
	}:
	default:
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"vote_id":  v.ID,
		"voted_at": v.VotedAt,
	})
}

// @Summary     Poll results
// @Tags        polls
// @Produce     json
// @Param       slug  path  string  true  "Poll slug"
// @Success     200  {object}  pollResultsResponse
// @Failure     404  {object}  map[string]string  "poll not found"
// @Router      /api/v1/polls/{slug}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	res, total, err := h.voteSvc.Tally(r.Context(), slug)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pollResultsResponse{
		PollSlug:   slug,
		TotalVotes: total,
		Results:    res,
	})
}
