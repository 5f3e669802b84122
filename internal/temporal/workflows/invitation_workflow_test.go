package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/temporal"
	"github.com/dislink/connect-api/internal/temporal/activities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/testsuite"
)

func newWorkflowEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&activities.Activities{})
	return env
}

func forInvitation(id string) interface{} {
	return mock.MatchedBy(func(p temporal.InvitationParams) bool {
		return p.InvitationID == id
	})
}

func TestInvitationWorkflowSendsThenExpires(t *testing.T) {
	env := newWorkflowEnv(t)
	var a *activities.Activities
	params := temporal.InvitationParams{
		InvitationID: "inv-1",
		OwnerName:    "John Doe",
		ExpiresAt:    env.Now().Add(48 * time.Hour),
	}

	env.OnActivity(a.SendInvitationActivity, mock.Anything, forInvitation(params.InvitationID)).Return(true, nil).Once()
	env.OnActivity(a.MarkInvitationSentActivity, mock.Anything, "inv-1").Return(nil).Once()
	env.OnActivity(a.ExpireInvitationActivity, mock.Anything, "inv-1").Return(true, nil).Once()

	env.ExecuteWorkflow(InvitationWorkflow, params)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.False(t, env.Now().Before(params.ExpiresAt))
	env.AssertExpectations(t)
}

func TestInvitationWorkflowSkipsMarkWhenNotSent(t *testing.T) {
	env := newWorkflowEnv(t)
	var a *activities.Activities
	params := temporal.InvitationParams{InvitationID: "inv-2", ExpiresAt: env.Now().Add(-time.Hour)}

	env.OnActivity(a.SendInvitationActivity, mock.Anything, forInvitation(params.InvitationID)).Return(false, nil).Once()
	env.OnActivity(a.ExpireInvitationActivity, mock.Anything, "inv-2").Return(false, nil).Once()

	env.ExecuteWorkflow(InvitationWorkflow, params)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestInvitationWorkflowFailsWhenEmailFails(t *testing.T) {
	env := newWorkflowEnv(t)
	var a *activities.Activities
	params := temporal.InvitationParams{InvitationID: "inv-3", ExpiresAt: env.Now().Add(time.Hour)}

	env.OnActivity(a.SendInvitationActivity, mock.Anything, forInvitation(params.InvitationID)).Return(false, errors.New("smtp down"))

	env.ExecuteWorkflow(InvitationWorkflow, params)

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
}

func TestDispatcherStartsWorkflow(t *testing.T) {
	c := &mocks.Client{}
	expiresAt := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	c.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
			return opts.TaskQueue == temporal.TaskQueueName &&
				strings.HasPrefix(opts.ID, temporal.InvitationWorkflowIDPrefix+"inv-1-")
		}),
		mock.Anything,
		temporal.InvitationParams{InvitationID: "inv-1", OwnerName: "John Doe", ExpiresAt: expiresAt},
	).Return(&mocks.WorkflowRun{}, nil).Once()

	err := NewDispatcher(c).Dispatch(context.Background(),
		models.InvitationRequest{ID: "inv-1", ExpiresAt: expiresAt},
		models.ProfileSnapshot{Name: "John Doe"},
	)
	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestDispatcherWrapsStartFailure(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("unavailable")).Once()

	err := NewDispatcher(c).Dispatch(context.Background(), models.InvitationRequest{ID: "inv-1"}, models.ProfileSnapshot{})
	assert.ErrorContains(t, err, "failed to start invitation workflow")
}
