package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const hookSecretHeader = "X-Hook-Secret"

type connectionCompleter interface {
	CompleteQRConnection(ctx context.Context, userID string)
}

// HookHandler receives account lifecycle callbacks from the auth provider.
type HookHandler struct {
	secret    []byte
	users     repository.UserRepository
	completer connectionCompleter
	logger    zerolog.Logger
}

type userVerifiedRequest struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func NewHookHandler(secret string, users repository.UserRepository, completer connectionCompleter, logger zerolog.Logger) *HookHandler {
	return &HookHandler{
		secret:    []byte(secret),
		users:     users,
		completer: completer,
		logger:    logger.With().Str("handler", "hooks").Logger(),
	}
}

func (h *HookHandler) authorized(r *http.Request) bool {
	given := []byte(r.Header.Get(hookSecretHeader))
	return len(h.secret) > 0 && subtle.ConstantTimeCompare(given, h.secret) == 1
}

// UserVerified mirrors the user and realizes any pending QR connections.
// Completion problems never fail the hook.
func (h *HookHandler) UserVerified(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req userVerifiedRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublicBody)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		http.Error(w, "user_id must be a UUID", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	user, err := h.users.UpsertUser(r.Context(), models.User{
		ID:            req.UserID,
		Email:         email,
		EmailVerified: req.EmailVerified,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to mirror user")
		http.Error(w, "Failed to record user", http.StatusServiceUnavailable)
		return
	}

	if user.EmailVerified {
		h.completer.CompleteQRConnection(r.Context(), user.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}
