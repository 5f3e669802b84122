package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dislink/connect-api/internal/authz"
	"github.com/dislink/connect-api/internal/connect"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/rs/zerolog"
)

type codeIssuer interface {
	Issue(ctx context.Context, ownerID string) (connect.IssuedCode, error)
}

type CodeHandler struct {
	issuer codeIssuer
	codes  repository.CodeRepository
	logger zerolog.Logger
}

func NewCodeHandler(issuer codeIssuer, codes repository.CodeRepository, logger zerolog.Logger) *CodeHandler {
	return &CodeHandler{
		issuer: issuer,
		codes:  codes,
		logger: logger.With().Str("handler", "codes").Logger(),
	}
}

func (h *CodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	issued, err := h.issuer.Issue(r.Context(), userID)
	if err != nil {
		var incomplete *connect.ProfileIncompleteError
		switch {
		case errors.Is(err, connect.ErrProfileNotFound):
			writeError(w, http.StatusNotFound, "profile_not_found", "Create your profile before generating a code.")
		case errors.As(err, &incomplete):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":   "profile_incomplete",
				"message": "Complete your profile before generating a code.",
				"missing": incomplete.Missing,
			})
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to issue connection code")
			writeError(w, http.StatusServiceUnavailable, "unavailable", "Could not generate a code right now. Please try again.")
		}
		return
	}

	writeJSON(w, http.StatusCreated, issued)
}

func (h *CodeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	codes, err := h.codes.ListCodesByOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list codes")
		http.Error(w, "Failed to list codes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"codes": codes})
}
