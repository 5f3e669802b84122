package activities

import (
	"context"
	"database/sql"
	"time"

	"github.com/dislink/connect-api/internal/connect"
	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/notification"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/dislink/connect-api/internal/temporal"
	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"
)

type Activities struct {
	Invitations             repository.InvitationRepository
	Mailer                  notification.InvitationMailer
	RegistrationURLTemplate string
	Now                     func() time.Time
}

// SendInvitationActivity emails the visitor. Invitations that are no longer
// pending are skipped so retries and resubmissions never double send.
func (a *Activities) SendInvitationActivity(ctx context.Context, params temporal.InvitationParams) (bool, error) {
	logger := activity.GetLogger(ctx)

	inv, err := a.Invitations.GetInvitationByID(ctx, params.InvitationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, sdktemporal.NewNonRetryableApplicationError("invitation not found", "InvitationNotFound", err)
		}
		return false, errors.Wrap(err, "failed to load invitation")
	}
	if inv.Status != models.InvitationPending {
		logger.Info("Invitation no longer pending, skipping email", "InvitationID", inv.ID, "Status", string(inv.Status))
		return false, nil
	}

	if err := a.Mailer.SendInvitation(connect.InvitationEmail(inv, params.OwnerName, a.RegistrationURLTemplate)); err != nil {
		logger.Error("Failed to send invitation email", "InvitationID", inv.ID, "error", err)
		return false, errors.Wrap(err, "failed to send invitation email")
	}
	return true, nil
}

func (a *Activities) MarkInvitationSentActivity(ctx context.Context, invitationID string) error {
	if _, err := a.Invitations.MarkInvitationSent(ctx, invitationID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "failed to mark invitation sent")
	}
	return nil
}

// ExpireInvitationActivity closes the invitation once its window has passed.
// It reports whether the invitation was expired by this call.
func (a *Activities) ExpireInvitationActivity(ctx context.Context, invitationID string) (bool, error) {
	logger := activity.GetLogger(ctx)

	inv, err := a.Invitations.GetInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to load invitation")
	}
	// A resubmission may have pushed the deadline out.
	if !inv.Status.IsOpen() || !inv.IsExpired(a.now()) {
		return false, nil
	}

	if _, err := a.Invitations.ExpireInvitation(ctx, invitationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to expire invitation")
	}
	logger.Info("Invitation expired", "InvitationID", invitationID)
	return true, nil
}

func (a *Activities) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
