package connect

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/notification"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// CompletionReport summarizes one completion run.
type CompletionReport struct {
	Accepted []string `json:"accepted"`
	Expired  []string `json:"expired"`
	Skipped  []string `json:"skipped"`
	Created  int      `json:"created"`
}

// Completer turns open invitations into connections once the invited visitor
// has a verified account.
type Completer struct {
	users         repository.UserRepository
	invitations   repository.InvitationRepository
	connections   repository.ConnectionRepository
	notifications notification.Service
	logger        zerolog.Logger
	now           func() time.Time
}

func NewCompleter(
	users repository.UserRepository,
	invitations repository.InvitationRepository,
	connections repository.ConnectionRepository,
	notifications notification.Service,
	logger zerolog.Logger,
) *Completer {
	return &Completer{
		users:         users,
		invitations:   invitations,
		connections:   connections,
		notifications: notifications,
		logger:        logger.With().Str("component", "connection_completion").Logger(),
		now:           time.Now,
	}
}

// CompleteQRConnection runs Complete and logs any failure. Registration must
// not fail because of it.
func (c *Completer) CompleteQRConnection(ctx context.Context, userID string) {
	report, err := c.Complete(ctx, userID)
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("connection completion failed")
	}
	if len(report.Accepted) > 0 || len(report.Expired) > 0 {
		c.logger.Info().
			Str("user_id", userID).
			Int("accepted", len(report.Accepted)).
			Int("expired", len(report.Expired)).
			Int("connections_created", report.Created).
			Msg("connection completion finished")
	}
}

// Complete accepts every open invitation addressed to the user's email. It is
// safe to run repeatedly. A failing invitation is skipped and its error is
// combined into the returned error once the rest have been processed.
func (c *Completer) Complete(ctx context.Context, userID string) (CompletionReport, error) {
	var report CompletionReport

	user, err := c.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report, nil
		}
		return report, errors.Wrap(err, "load user")
	}
	if !user.EmailVerified {
		return report, nil
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return report, nil
	}

	invitations, err := c.invitations.ListOpenInvitationsByEmail(ctx, email)
	if err != nil {
		return report, errors.Wrap(err, "list invitations")
	}

	var errs error
	now := c.now()
	for _, inv := range invitations {
		if !inv.Status.IsOpen() {
			continue
		}
		if inv.OwnerID == user.ID {
			report.Skipped = append(report.Skipped, inv.ID)
			continue
		}
		if inv.IsExpired(now) {
			if _, err := c.invitations.ExpireInvitation(ctx, inv.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
				c.logger.Warn().Err(err).Str("invitation_id", inv.ID).Msg("failed to expire invitation")
				errs = multierr.Append(errs, errors.Wrapf(err, "expire invitation %s", inv.ID))
				continue
			}
			report.Expired = append(report.Expired, inv.ID)
			continue
		}

		accepted, created, err := c.accept(ctx, user, inv)
		if created {
			report.Created++
		}
		if err != nil {
			c.logger.Warn().Err(err).Str("invitation_id", inv.ID).Msg("failed to accept invitation")
			errs = multierr.Append(errs, err)
			continue
		}
		if accepted {
			report.Accepted = append(report.Accepted, inv.ID)
		}
	}

	return report, errs
}

func (c *Completer) accept(ctx context.Context, user models.User, inv models.InvitationRequest) (bool, bool, error) {
	invitationID := inv.ID
	created, err := c.connections.CreateConnectionPair(ctx, inv.OwnerID, user.ID, &invitationID)
	if err != nil {
		return false, false, errors.Wrapf(err, "create connection for invitation %s", inv.ID)
	}

	accepted := true
	if _, err := c.invitations.AcceptInvitation(ctx, inv.ID, user.ID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return false, created, errors.Wrapf(err, "accept invitation %s", inv.ID)
		}
		// Another run closed it first.
		accepted = false
	}

	if created && c.notifications != nil {
		if err := c.notifications.NotifyConnectionCreated(ctx, inv.OwnerID, user.ID, inv.ID); err != nil {
			c.logger.Warn().Err(err).Str("invitation_id", inv.ID).Msg("failed to notify owner")
		}
	}

	return accepted, created, nil
}
