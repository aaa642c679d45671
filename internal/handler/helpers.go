package handler

import (
	"errors"
	"net/http"

	"gavelogy/internal/domain"
	"gavelogy/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		commitErr       *domain.CommitError
		conflictErr     *domain.ConflictError
		preconditionErr *domain.PreconditionError
	)

	switch {
	case errors.As(err, &commitErr):
		// Enough detail for the user to choose between retry and discard
		httputil.RespondErrorWithExtras(w, http.StatusBadGateway, commitErr.Error(), map[string]interface{}{
			"phase":      commitErr.Phase,
			"table":      commitErr.Table,
			"entity_ids": commitErr.EntityIDs,
			"flushed":    commitErr.Flushed,
			"retryable":  true,
		})
	case errors.Is(err, domain.ErrCommitInProgress):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrLoadTimeout):
		httputil.RespondErrorWithExtras(w, http.StatusGatewayTimeout, err.Error(), map[string]interface{}{
			"retryable": true,
		})
	case errors.As(err, &preconditionErr):
		httputil.RespondErrorWithExtras(w, http.StatusUnprocessableEntity, preconditionErr.Error(), map[string]interface{}{
			"reason":      preconditionCode(preconditionErr.Reason),
			"document_id": preconditionErr.DocumentID,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// preconditionCode gives clients a stable identifier for each rejection
func preconditionCode(reason error) string {
	switch {
	case errors.Is(reason, domain.ErrUnsavedItem):
		return "unsaved_item"
	case errors.Is(reason, domain.ErrNothingToSave):
		return "nothing_to_save"
	case errors.Is(reason, domain.ErrNothingToPublish):
		return "nothing_to_publish"
	case errors.Is(reason, domain.ErrNotLoaded):
		return "not_loaded"
	default:
		return "precondition_failed"
	}
}
