package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/dislink/connect-api/internal/authz"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type InvitationHandler struct {
	invitations repository.InvitationRepository
	logger      zerolog.Logger
}

func NewInvitationHandler(invitations repository.InvitationRepository, logger zerolog.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitations: invitations,
		logger:      logger.With().Str("handler", "invitation").Logger(),
	}
}

// List returns the invitations visitors sent through the caller's codes.
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	invitations, err := h.invitations.ListInvitationsByOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list invitations")
		http.Error(w, "Failed to list invitations", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"invitations": invitations})
}

func (h *InvitationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	invitationID := mux.Vars(r)["invitationID"]
	if _, err := uuid.Parse(invitationID); err != nil {
		http.Error(w, "Invalid invitation ID", http.StatusBadRequest)
		return
	}

	inv, err := h.invitations.RejectInvitation(r.Context(), invitationID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Invitation not found or already closed", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("invitation_id", invitationID).Msg("failed to reject invitation")
		http.Error(w, "Failed to reject invitation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, inv)
}
