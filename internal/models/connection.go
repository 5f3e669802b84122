package models

import "time"

// Connection is one direction of a realized relationship. Every accepted
// invitation produces a pair: owner->contact and contact->owner.
type Connection struct {
	OwnerID      string    `json:"owner_id" db:"owner_id"`
	ContactID    string    `json:"contact_id" db:"contact_id"`
	InvitationID *string   `json:"invitation_id,omitempty" db:"invitation_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
