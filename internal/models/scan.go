package models

import "time"

type ScanOutcome string

const (
	ScanOutcomeOK        ScanOutcome = "ok"
	ScanOutcomeNotFound  ScanOutcome = "not_found"
	ScanOutcomeExpired   ScanOutcome = "expired"
	ScanOutcomeNotPublic ScanOutcome = "not_public"
)

// GeoPoint is a visitor-supplied location. It is only present when the
// visitor granted geolocation.
type GeoPoint struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters *float64 `json:"accuracy_meters,omitempty"`
}

// Valid checks coordinate ranges.
func (g GeoPoint) Valid() bool {
	if g.Latitude < -90 || g.Latitude > 90 {
		return false
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return false
	}
	return g.AccuracyMeters == nil || *g.AccuracyMeters >= 0
}

// VisitorContext describes an anonymous visitor at scan time.
type VisitorContext struct {
	RemoteAddr string    `json:"-"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
	Location   *GeoPoint `json:"location,omitempty"`
}

// ScanEvent is an append-only telemetry record. It never grants access.
type ScanEvent struct {
	ID          string      `json:"id" db:"id"`
	CodeHash    string      `json:"-" db:"code_hash"`
	CodeID      *string     `json:"code_id,omitempty" db:"code_id"`
	Outcome     ScanOutcome `json:"outcome" db:"outcome"`
	Fingerprint *string     `json:"visitor_fingerprint,omitempty" db:"visitor_fingerprint"`
	UserAgent   string      `json:"user_agent" db:"user_agent"`
	Referrer    string      `json:"referrer" db:"referrer"`
	Location    *GeoPoint   `json:"location,omitempty" db:"location"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}
