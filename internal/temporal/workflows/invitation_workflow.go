package workflows

import (
	"github.com/dislink/connect-api/internal/temporal"
	"github.com/dislink/connect-api/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// InvitationWorkflow sends the invitation email, records the delivery, then
// sleeps until the acceptance window closes and expires the invitation if it
// is still open.
func InvitationWorkflow(ctx workflow.Context, params temporal.InvitationParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			MaximumAttempts: temporal.MaxSendAttempts,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting invitation workflow", "InvitationID", params.InvitationID)

	var a *activities.Activities

	var sent bool
	if err := workflow.ExecuteActivity(ctx, a.SendInvitationActivity, params).Get(ctx, &sent); err != nil {
		logger.Error("Failed to send invitation.", "error", err)
		return err
	}

	if sent {
		if err := workflow.ExecuteActivity(ctx, a.MarkInvitationSentActivity, params.InvitationID).Get(ctx, nil); err != nil {
			logger.Error("Failed to mark invitation sent.", "error", err)
			return err
		}
	}

	if wait := params.ExpiresAt.Sub(workflow.Now(ctx)); wait > 0 {
		if err := workflow.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	var expired bool
	if err := workflow.ExecuteActivity(ctx, a.ExpireInvitationActivity, params.InvitationID).Get(ctx, &expired); err != nil {
		logger.Error("Failed to expire invitation.", "error", err)
		return err
	}

	logger.Info("Invitation workflow completed.", "InvitationID", params.InvitationID, "Expired", expired)
	return nil
}
