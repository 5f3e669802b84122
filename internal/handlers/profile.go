package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dislink/connect-api/internal/authz"
	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/rs/zerolog"
)

const maxProfileBody = 64 << 10

type ProfileHandler struct {
	profiles repository.ProfileRepository
	codes    repository.CodeRepository
	logger   zerolog.Logger
}

type profileRequest struct {
	Name        string                    `json:"name"`
	JobTitle    string                    `json:"job_title"`
	Company     string                    `json:"company"`
	ImageURL    string                    `json:"image_url"`
	Bio         string                    `json:"bio"`
	Location    string                    `json:"location"`
	Email       string                    `json:"email"`
	Phone       string                    `json:"phone"`
	Interests   []string                  `json:"interests"`
	SocialLinks map[string]string         `json:"social_links"`
	Sharing     models.SharingPreferences `json:"sharing"`
}

func NewProfileHandler(profiles repository.ProfileRepository, codes repository.CodeRepository, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		codes:    codes,
		logger:   logger.With().Str("handler", "profile").Logger(),
	}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Profile not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load profile")
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Put replaces the caller's profile. Turning sharing off marks every active
// code as not public so stale snapshots stop resolving.
func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBody)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	profile, err := h.profiles.UpsertProfile(r.Context(), models.Profile{
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		JobTitle:    strings.TrimSpace(req.JobTitle),
		Company:     strings.TrimSpace(req.Company),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Bio:         strings.TrimSpace(req.Bio),
		Location:    strings.TrimSpace(req.Location),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Interests:   req.Interests,
		SocialLinks: req.SocialLinks,
		Sharing:     req.Sharing,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to save profile")
		http.Error(w, "Failed to save profile", http.StatusInternalServerError)
		return
	}

	if !profile.Sharing.Enabled {
		n, err := h.codes.DisableSharing(r.Context(), userID)
		if err != nil {
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to retire active codes")
			http.Error(w, "Failed to update sharing", http.StatusInternalServerError)
			return
		}
		if n > 0 {
			h.logger.Info().Str("user_id", userID).Int64("codes", n).Msg("sharing disabled on active codes")
		}
	}

	writeJSON(w, http.StatusOK, profile)
}
