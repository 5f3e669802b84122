package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/dislink/connect-api/internal/config"
	"github.com/dislink/connect-api/internal/connect"
	"github.com/dislink/connect-api/internal/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

const (
	maxPublicBody     = 16 << 10
	defaultQRSize     = 256
	minQRSize         = 128
	maxQRSize         = 1024
	msgServiceFailure = "Something went wrong on our side. Please try again in a moment."
)

type codeResolver interface {
	Validate(ctx context.Context, code string) (connect.Resolution, error)
}

type scanRecorder interface {
	Go(ctx context.Context, code string, visitor models.VisitorContext)
}

type invitationSubmitter interface {
	Submit(ctx context.Context, code string, input connect.InvitationInput) (connect.IntakeResult, error)
}

// PublicHandler serves the anonymous share surface of a connection code.
type PublicHandler struct {
	resolver    codeResolver
	scans       scanRecorder
	invitations invitationSubmitter
	codes       config.CodeConfig
	logger      zerolog.Logger
}

type scanRequest struct {
	Referrer string           `json:"referrer"`
	Location *models.GeoPoint `json:"location"`
}

func NewPublicHandler(resolver codeResolver, scans scanRecorder, invitations invitationSubmitter, codes config.CodeConfig, logger zerolog.Logger) *PublicHandler {
	return &PublicHandler{
		resolver:    resolver,
		scans:       scans,
		invitations: invitations,
		codes:       codes,
		logger:      logger.With().Str("handler", "public").Logger(),
	}
}

// resolutionStatus maps a resolution reason to its HTTP status.
func resolutionStatus(reason string) int {
	switch reason {
	case connect.ReasonNotFound:
		return http.StatusNotFound
	case connect.ReasonExpired:
		return http.StatusGone
	case connect.ReasonNotPublic:
		return http.StatusForbidden
	}
	return http.StatusServiceUnavailable
}

func (h *PublicHandler) resolve(w http.ResponseWriter, r *http.Request) (connect.Resolution, bool) {
	code := mux.Vars(r)["code"]
	resolution, err := h.resolver.Validate(r.Context(), code)
	if err == nil {
		return resolution, true
	}
	if reason := connect.Reason(err); reason != "" {
		writeError(w, resolutionStatus(reason), reason, connect.ResolutionMessage(reason))
		return connect.Resolution{}, false
	}
	h.logger.Error().Err(err).Msg("failed to resolve connection code")
	writeError(w, http.StatusServiceUnavailable, "unavailable", msgServiceFailure)
	return connect.Resolution{}, false
}

func (h *PublicHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	resolution, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, connect.Disclose(resolution.Snapshot))
}

// RecordScan always answers 202; the scan is recorded in the background.
func (h *PublicHandler) RecordScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPublicBody))
	if err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			req = scanRequest{}
		}
	}

	visitor := models.VisitorContext{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Referrer:   req.Referrer,
		Location:   req.Location,
	}
	if visitor.Referrer == "" {
		visitor.Referrer = r.Referer()
	}

	h.scans.Go(r.Context(), mux.Vars(r)["code"], visitor)
	w.WriteHeader(http.StatusAccepted)
}

func (h *PublicHandler) SubmitInvitation(w http.ResponseWriter, r *http.Request) {
	var input connect.InvitationInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublicBody)).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, connect.IntakeResult{Message: "Invalid request body"})
		return
	}

	result, err := h.invitations.Submit(r.Context(), mux.Vars(r)["code"], input)
	switch {
	case err != nil:
		h.logger.Error().Err(err).Msg("invitation submission failed")
		writeJSON(w, http.StatusServiceUnavailable, result)
	case result.Success:
		writeJSON(w, http.StatusCreated, result)
	case result.Reason != "":
		writeJSON(w, resolutionStatus(result.Reason), result)
	default:
		writeJSON(w, http.StatusBadRequest, result)
	}
}

// QRCode renders the share URL of a live code as a PNG.
func (h *PublicHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.resolve(w, r); !ok {
		return
	}

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			size = min(max(parsed, minQRSize), maxQRSize)
		}
	}

	png, err := qrcode.Encode(connect.PublicURL(h.codes, mux.Vars(r)["code"]), qrcode.Medium, size)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to render qr code")
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
