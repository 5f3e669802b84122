package workflows

import (
	"context"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/temporal"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.temporal.io/sdk/client"
)

// Dispatcher hands invitations to InvitationWorkflow. The invitation stays
// pending until the workflow's first activity sends it.
type Dispatcher struct {
	client client.Client
}

func NewDispatcher(c client.Client) *Dispatcher {
	return &Dispatcher{client: c}
}

func (d *Dispatcher) Dispatch(ctx context.Context, inv models.InvitationRequest, snapshot models.ProfileSnapshot) error {
	opts := client.StartWorkflowOptions{
		ID:        temporal.InvitationWorkflowIDPrefix + inv.ID + "-" + uuid.NewString(),
		TaskQueue: temporal.TaskQueueName,
	}
	params := temporal.InvitationParams{
		InvitationID: inv.ID,
		OwnerName:    snapshot.Name,
		ExpiresAt:    inv.ExpiresAt,
	}
	if _, err := d.client.ExecuteWorkflow(ctx, opts, InvitationWorkflow, params); err != nil {
		return errors.Wrap(err, "failed to start invitation workflow")
	}
	return nil
}
