package temporal

import "time"

// TaskQueueName is the Temporal task queue serving invitation workflows.
const TaskQueueName = "DISLINK_INVITATIONS"

// InvitationWorkflowIDPrefix prefixes every invitation workflow ID.
const InvitationWorkflowIDPrefix = "dislink-invitation-"

// DefaultActivityTimeout bounds a single activity attempt.
const DefaultActivityTimeout = time.Minute

// MaxSendAttempts caps retries of the email activity.
const MaxSendAttempts = 5

// InvitationParams is the input of the invitation workflow.
type InvitationParams struct {
	InvitationID string
	OwnerName    string
	ExpiresAt    time.Time
}
