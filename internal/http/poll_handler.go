package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"voting-service/internal/domain/poll"
	"voting-service/internal/platform/apperr"
)

type createPollRequest struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	CategoryID         *int64   `json:"category_id"`
	StartDate          *string  `json:"start_date"`
	EndDate            *string  `json:"end_date"`
	IsPublic           *bool    `json:"is_public"`
	AllowMultipleVotes bool     `json:"allow_multiple_votes"`
	Choices            []string `json:"choices"`
}

type updatePollRequest struct {
	Title              *string  `json:"title"`
	Description        *string  `json:"description"`
	CategoryID         *int64   `json:"category_id"`
	StartDate          *string  `json:"start_date"`
	EndDate            *string  `json:"end_date"`
	IsActive           *bool    `json:"is_active"`
	IsArchived         *bool    `json:"is_archived"`
	IsPublic           *bool    `json:"is_public"`
	AllowMultipleVotes *bool    `json:"allow_multiple_votes"`
	Choices            []string `json:"choices"`
}

// @Summary     Create a poll with its choices
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body  createPollRequest  true  "Poll payload (2-10 choices)"
// @Success     201  {object}  map[string]any
// @Failure     400  {object}  map[string]string  "validation error"
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Router      /api/v1/polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	in := poll.CreateInput{
		Title:              req.Title,
		Description:        req.Description,
		CategoryID:         req.CategoryID,
		StartDate:          parseTimePtr(req.StartDate),
		EndDate:            parseTimePtr(req.EndDate),
		IsPublic:           isPublic,
		AllowMultipleVotes: req.AllowMultipleVotes,
		Choices:            req.Choices,
	}

	p, choices, err := h.pollSvc.Create(r.Context(), in, userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"poll":    p,
		"choices": choices,
	})
}

// @Summary     List active polls
// @Tags        polls
// @Produce     json
// @Param       category  query  int  false  "Category ID filter"
// @Param       limit     query  int  false  "Page size (default 10)"
// @Param       offset    query  int  false  "Page offset"
// @Success     200  {array}  poll.Poll
// @Router      /api/v1/polls [get]
func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	var f poll.ListFilter
	q := r.URL.Query()
	if v := q.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errorResponse(w, apperr.BadRequest("invalid_input", "invalid category id", err))
			return
		}
		f.CategoryID = &id
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	polls, err := h.pollSvc.List(r.Context(), f)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

// @Summary     Poll detail with choices
// @Tags        polls
// @Produce     json
// @Param       slug  path  string  true  "Poll slug"
// @Success     200  {object}  map[string]any
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{slug} [get]
func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	p, choices, err := h.pollSvc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll":    p,
		"choices": choices,
	})
}

// @Summary     Update a poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Param       slug     path  string             true  "Poll slug"
// @Param       request  body  updatePollRequest  true  "Fields to change"
// @Success     204
// @Failure     403  {object}  map[string]string  "permission denied"
// @Failure     409  {object}  map[string]string  "edit locked"
// @Router      /api/v1/polls/{slug} [patch]
func (h *Handler) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	in := poll.UpdateInput{
		Title:              req.Title,
		Description:        req.Description,
		CategoryID:         req.CategoryID,
		StartDate:          parseTimePtr(req.StartDate),
		EndDate:            parseTimePtr(req.EndDate),
		IsActive:           req.IsActive,
		IsArchived:         req.IsArchived,
		IsPublic:           req.IsPublic,
		AllowMultipleVotes: req.AllowMultipleVotes,
		Choices:            req.Choices,
	}

	actor := poll.Actor{UserID: userIDFromCtx(r), IsAdmin: isAdmin(r)}
	if err := h.pollSvc.Update(r.Context(), chi.URLParam(r, "slug"), in, actor); err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Delete a poll and everything under it
// @Tags        polls
// @Security    BearerAuth
// @Param       slug  path  string  true  "Poll slug"
// @Success     204
// @Failure     403  {object}  map[string]string  "permission denied"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{slug} [delete]
func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	actor := poll.Actor{UserID: userIDFromCtx(r), IsAdmin: isAdmin(r)}
	if err := h.pollSvc.Delete(r.Context(), chi.URLParam(r, "slug"), actor); err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
