package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationSent     InvitationStatus = "sent"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	InvitationRejected InvitationStatus = "rejected"
)

// IsOpen reports whether the invitation can still be accepted, expired or
// rejected.
func (s InvitationStatus) IsOpen() bool {
	return s == InvitationPending || s == InvitationSent
}

func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationPending, InvitationSent, InvitationAccepted, InvitationExpired, InvitationRejected:
		return true
	}
	return false
}

// InvitationRequest is an anonymous visitor's request to connect with a code
// owner.
type InvitationRequest struct {
	ID         string           `json:"id" db:"id"`
	CodeID     string           `json:"code_id" db:"code_id"`
	OwnerID    string           `json:"owner_id" db:"owner_id"`
	Email      string           `json:"email" db:"email"`
	Message    string           `json:"message,omitempty" db:"message"`
	Location   *GeoPoint        `json:"location,omitempty" db:"location"`
	Status     InvitationStatus `json:"status" db:"status"`
	ExpiresAt  time.Time        `json:"expires_at" db:"expires_at"`
	SentAt     *time.Time       `json:"sent_at,omitempty" db:"sent_at"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty" db:"accepted_at"`
	AcceptedBy *string          `json:"accepted_by,omitempty" db:"accepted_by"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// IsExpired determines whether the acceptance window has lapsed.
func (i InvitationRequest) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
