package connect

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/rs/zerolog"
)

const (
	defaultScanTimeout = 5 * time.Second
	maxUserAgentLen    = 512
	maxReferrerLen     = 2048
)

// Tracker records scan telemetry. Recording never affects the visitor's
// response, so every failure is logged and dropped.
type Tracker struct {
	validator   *Validator
	scans       repository.ScanRepository
	codes       repository.CodeRepository
	fingerprint *Fingerprinter
	logger      zerolog.Logger
	timeout     time.Duration
}

func NewTracker(validator *Validator, scans repository.ScanRepository, codes repository.CodeRepository, fingerprint *Fingerprinter, logger zerolog.Logger) *Tracker {
	return &Tracker{
		validator:   validator,
		scans:       scans,
		codes:       codes,
		fingerprint: fingerprint,
		logger:      logger.With().Str("component", "scan_tracker").Logger(),
		timeout:     defaultScanTimeout,
	}
}

// RecordScan classifies code and appends a scan event for it.
func (t *Tracker) RecordScan(ctx context.Context, code string, visitor models.VisitorContext) models.ScanOutcome {
	outcome := models.ScanOutcomeOK
	resolution, err := t.validator.Validate(ctx, code)
	if err != nil {
		reason := Reason(err)
		if reason == "" {
			t.logger.Error().Err(err).Msg("scan not recorded: code lookup failed")
			return ""
		}
		outcome = models.ScanOutcome(reason)
	}

	evt := models.ScanEvent{
		CodeHash:  HashCode(code),
		Outcome:   outcome,
		UserAgent: truncate(visitor.UserAgent, maxUserAgentLen),
		Referrer:  truncate(visitor.Referrer, maxReferrerLen),
	}
	if resolution.Code.ID != "" {
		id := resolution.Code.ID
		evt.CodeID = &id
	}
	if t.fingerprint != nil {
		evt.Fingerprint = t.fingerprint.Fingerprint(visitor.RemoteAddr, visitor.UserAgent)
	}
	if visitor.Location != nil && visitor.Location.Valid() {
		loc := *visitor.Location
		evt.Location = &loc
	}

	if err := t.scans.RecordScan(ctx, evt); err != nil {
		t.logger.Error().Err(err).Str("outcome", string(outcome)).Msg("failed to record scan")
	}

	if outcome == models.ScanOutcomeOK {
		if err := t.codes.RecordUsage(ctx, resolution.Code.ID); err != nil {
			t.logger.Warn().Err(err).Str("code_id", resolution.Code.ID).Msg("failed to bump code usage")
		}
	}

	return outcome
}

// Go records the scan in the background. The work outlives the request that
// triggered it but is bounded by the tracker timeout.
func (t *Tracker) Go(ctx context.Context, code string, visitor models.VisitorContext) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	go func() {
		defer cancel()
		t.RecordScan(bg, code, visitor)
	}()
}

func truncate(v string, limit int) string {
	v = strings.TrimSpace(v)
	if len(v) <= limit {
		return v
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut]
}
