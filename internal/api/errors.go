package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/retreatscout/retreat-scout/internal/api/respond"
	"github.com/retreatscout/retreat-scout/internal/chat"
	"github.com/retreatscout/retreat-scout/internal/identity"
	"github.com/retreatscout/retreat-scout/internal/model"
)

// writeErr maps service errors to HTTP status codes. A partial delete
// gets its own payload so the client can tell it from a plain 500.
func writeErr(w http.ResponseWriter, err error) {
	var pde *chat.PartialDeleteError
	switch {
	case errors.As(err, &pde):
		respond.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":            "session partially deleted",
			"code":             http.StatusInternalServerError,
			"sessionId":        pde.SessionID,
			"deletedStages":    pde.Completed,
			"failedStage":      pde.Failed,
			"partiallyDeleted": true,
		})
	case errors.Is(err, chat.ErrAuthRequired):
		respond.WriteUnauthorized(w, "authentication required")
	case errors.Is(err, identity.ErrInvalidCredentials):
		respond.WriteUnauthorized(w, "invalid email or password")
	case errors.Is(err, chat.ErrBusy):
		respond.WriteConflict(w, "a search is already in progress")
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrConflict):
		respond.WriteConflict(w, err.Error())
	default:
		respond.WriteInternalError(w, err.Error())
	}
}
