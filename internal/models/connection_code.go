package models

import "time"

// ProfileSnapshot is the denormalized copy of a profile captured when a code
// is issued. Every field apart from the name may be absent.
type ProfileSnapshot struct {
	Name        string                       `json:"name"`
	ImageURL    Optional[string]             `json:"image_url"`
	JobTitle    Optional[string]             `json:"job_title"`
	Company     Optional[string]             `json:"company"`
	Bio         Optional[string]             `json:"bio"`
	Location    Optional[string]             `json:"location"`
	Email       Optional[string]             `json:"email"`
	Phone       Optional[string]             `json:"phone"`
	Interests   Optional[[]string]           `json:"interests"`
	SocialLinks Optional[map[string]string]  `json:"social_links"`
	Sharing     Optional[SharingPreferences] `json:"sharing"`
}

// SharingEnabled is false when preferences are missing.
func (s ProfileSnapshot) SharingEnabled() bool {
	prefs, ok := s.Sharing.Get()
	return ok && prefs.Enabled
}

// ConnectionCode is an issued, time-bounded code. The plaintext code is only
// known at issuance; CodeHash is what gets stored and looked up.
type ConnectionCode struct {
	ID           string          `json:"id" db:"id"`
	OwnerID      string          `json:"owner_id" db:"owner_id"`
	CodeHash     string          `json:"-" db:"code_hash"`
	Snapshot     ProfileSnapshot `json:"profile_snapshot" db:"profile_snapshot"`
	ExpiresAt    time.Time       `json:"expires_at" db:"expires_at"`
	UsageCount   int64           `json:"usage_count" db:"usage_count"`
	LastUsedAt   *time.Time      `json:"last_used_at,omitempty" db:"last_used_at"`
	SupersededAt *time.Time      `json:"superseded_at,omitempty" db:"superseded_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`

	// SharingDisabledAt is set when the owner turned sharing off while the
	// code was active.
	SharingDisabledAt *time.Time `json:"sharing_disabled_at,omitempty" db:"sharing_disabled_at"`
}

// IsExpired reports whether the validity window has lapsed or a newer code
// replaced this one.
func (c ConnectionCode) IsExpired(now time.Time) bool {
	return c.SupersededAt != nil || !now.Before(c.ExpiresAt)
}

// IsPublic reports whether the code may disclose its snapshot: the owner has
// not revoked sharing since issuance and the snapshot itself has it enabled.
func (c ConnectionCode) IsPublic() bool {
	return c.SharingDisabledAt == nil && c.Snapshot.SharingEnabled()
}

// PublicProfile is the sanitized view of a snapshot safe for anonymous
// viewers. Omitted fields were either absent or not shared.
type PublicProfile struct {
	Name        string       `json:"name"`
	ImageURL    string       `json:"image_url,omitempty"`
	JobTitle    string       `json:"job_title,omitempty"`
	Company     string       `json:"company,omitempty"`
	Bio         string       `json:"bio,omitempty"`
	Location    string       `json:"location,omitempty"`
	Email       string       `json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Interests   []string     `json:"interests,omitempty"`
	SocialLinks []SocialLink `json:"social_links,omitempty"`
}

type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}
