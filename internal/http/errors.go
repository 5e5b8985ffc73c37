package api

import (
	"database/sql"
	"errors"
	"net/http"

	"voting-service/internal/domain/category"
	"voting-service/internal/domain/poll"
	"voting-service/internal/domain/user"
	"voting-service/internal/domain/vote"
	"voting-service/internal/platform/apperr"
	"voting-service/internal/slug"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrInactiveUser):
		return apperr.Unauthorized("inactive_user", "user is inactive", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.BadRequest("email_taken", "email already taken", err)
	case errors.Is(err, poll.ErrNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrValidation):
		return apperr.BadRequest("validation_error", err.Error(), err)
	case errors.Is(err, poll.ErrPermissionDenied):
		return apperr.Forbidden("permission_denied", "you do not have permission to modify this poll", err)
	case errors.Is(err, poll.ErrEditLocked):
		return apperr.Conflict("edit_locked", "cannot edit poll after voting has started", err)
	case errors.Is(err, slug.ErrExhausted):
		return apperr.Internal("slug_generation_failed", "could not generate a unique slug", err)
	case errors.Is(err, category.ErrNotFound):
		return apperr.NotFound("category_not_found", "category not found", err)
	case errors.Is(err, category.ErrNameRequired):
		return apperr.BadRequest("validation_error", "category name required", err)
	case errors.Is(err, vote.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, vote.ErrChoiceNotInPoll):
		return apperr.BadRequest("invalid_choice", "choice does not belong to poll", err)
	case errors.Is(err, vote.ErrPollClosed):
		return apperr.BadRequest("poll_closed", "this poll is no longer active", err)
	case errors.Is(err, vote.ErrPollExpired):
		return apperr.Gone("poll_expired", "this poll has ended", err)
	case errors.Is(err, vote.ErrLoginRequired):
		return apperr.Unauthorized("login_required", "please login to vote in this private poll", err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.Conflict("already_voted", "already voted in this poll", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
