package models

import (
	"encoding/json"
	"time"
)

type NotificationEvent string

const (
	NotificationEventInvitationReceived NotificationEvent = "invitation_received"
	NotificationEventConnectionCreated  NotificationEvent = "connection_created"
)

type Notification struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"user_id" db:"user_id"`
	EventType NotificationEvent `json:"event_type" db:"event_type"`
	Title     string            `json:"title" db:"title"`
	Message   string            `json:"message" db:"message"`
	Metadata  json.RawMessage   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	ReadAt    *time.Time        `json:"read_at,omitempty" db:"read_at"`
}
