package models

import "time"

// Disclosure keys understood by SharingPreferences.AllowedFields.
const (
	FieldBio       = "bio"
	FieldInterests = "interests"
	FieldLocation  = "location"
	FieldCompany   = "company"
	FieldJobTitle  = "jobTitle"
	FieldEmail     = "email"
	FieldPhone     = "phone"
)

// DisclosableFields lists every field key the disclosure filter knows about.
var DisclosableFields = []string{
	FieldBio,
	FieldInterests,
	FieldLocation,
	FieldCompany,
	FieldJobTitle,
	FieldEmail,
	FieldPhone,
}

// SharingPreferences controls what a connection code discloses. A missing key
// in either map means the field or link is not shared.
type SharingPreferences struct {
	Enabled       bool            `json:"enabled"`
	AllowedFields map[string]bool `json:"allowed_fields,omitempty"`
	SharedLinks   map[string]bool `json:"shared_links,omitempty"`
}

// AllowsField reports whether the owner opted in to sharing field.
func (p SharingPreferences) AllowsField(field string) bool {
	return p.AllowedFields[field]
}

// AllowsLink reports whether the owner opted in to sharing the platform link.
func (p SharingPreferences) AllowsLink(platform string) bool {
	return p.SharedLinks[platform]
}

// Clone returns a deep copy so snapshots never alias live profile maps.
func (p SharingPreferences) Clone() SharingPreferences {
	out := SharingPreferences{Enabled: p.Enabled}
	if p.AllowedFields != nil {
		out.AllowedFields = make(map[string]bool, len(p.AllowedFields))
		for k, v := range p.AllowedFields {
			out.AllowedFields[k] = v
		}
	}
	if p.SharedLinks != nil {
		out.SharedLinks = make(map[string]bool, len(p.SharedLinks))
		for k, v := range p.SharedLinks {
			out.SharedLinks[k] = v
		}
	}
	return out
}

// Profile is the live, editable profile of a user.
type Profile struct {
	UserID      string             `json:"user_id" db:"user_id"`
	Name        string             `json:"name" db:"name"`
	JobTitle    string             `json:"job_title" db:"job_title"`
	Company     string             `json:"company" db:"company"`
	ImageURL    string             `json:"image_url" db:"image_url"`
	Bio         string             `json:"bio" db:"bio"`
	Location    string             `json:"location" db:"location"`
	Email       string             `json:"email" db:"email"`
	Phone       string             `json:"phone" db:"phone"`
	Interests   []string           `json:"interests" db:"interests"`
	SocialLinks map[string]string  `json:"social_links" db:"social_links"`
	Sharing     SharingPreferences `json:"sharing" db:"sharing"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}
