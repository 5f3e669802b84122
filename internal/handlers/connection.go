package handlers

import (
	"net/http"

	"github.com/dislink/connect-api/internal/authz"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/rs/zerolog"
)

type ConnectionHandler struct {
	repo   repository.ConnectionRepository
	logger zerolog.Logger
}

func NewConnectionHandler(repo repository.ConnectionRepository, logger zerolog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		repo:   repo,
		logger: logger.With().Str("handler", "connection").Logger(),
	}
}

func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	conns, err := h.repo.ListConnections(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list connections")
		http.Error(w, "Failed to list connections", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"connections": conns})
}
