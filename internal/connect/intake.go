package connect

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dislink/connect-api/internal/config"
	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/notification"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const maxEmailLength = 254

const (
	msgInvitationSent   = "Invitation sent. Check your inbox to finish creating your account."
	msgAlreadyConnected = "This invitation has already been used."
	msgRequestReceived  = "Thanks, your request has been received."
	msgFixFields        = "Please correct the highlighted fields and try again."
	msgTryAgain         = "We could not send your invitation right now. Please try again in a moment."
)

// ResolutionMessage is the visitor-facing copy for a resolution failure.
func ResolutionMessage(reason string) string {
	switch reason {
	case ReasonNotFound:
		return "This code does not exist. Check the link or ask the owner to share it again."
	case ReasonExpired:
		return "This code has expired. Ask the owner for a new code."
	case ReasonNotPublic:
		return "The owner has not enabled profile sharing."
	}
	return msgTryAgain
}

type InvitationInput struct {
	Email    string           `json:"email"`
	Message  string           `json:"message,omitempty"`
	Location *models.GeoPoint `json:"location,omitempty"`
}

// IntakeResult is the visitor-facing outcome of a submission. Expected
// failures are reported here, never as errors.
type IntakeResult struct {
	Success     bool                      `json:"success"`
	Message     string                    `json:"message"`
	Reason      string                    `json:"reason,omitempty"`
	FieldErrors map[string]string         `json:"field_errors,omitempty"`
	Invitation  *models.InvitationRequest `json:"-"`
}

// InvitationDispatcher delivers a stored invitation to the visitor.
type InvitationDispatcher interface {
	Dispatch(ctx context.Context, inv models.InvitationRequest, snapshot models.ProfileSnapshot) error
}

type Intake struct {
	validator     *Validator
	invitations   repository.InvitationRepository
	dispatcher    InvitationDispatcher
	notifications notification.Service
	cfg           config.InvitationConfig
	emailPattern  *regexp.Regexp
	logger        zerolog.Logger
}

func NewIntake(
	validator *Validator,
	invitations repository.InvitationRepository,
	dispatcher InvitationDispatcher,
	notifications notification.Service,
	cfg config.InvitationConfig,
	logger zerolog.Logger,
) (*Intake, error) {
	pattern, err := cfg.EmailRegexp()
	if err != nil {
		return nil, errors.Wrap(err, "compile email pattern")
	}
	return &Intake{
		validator:     validator,
		invitations:   invitations,
		dispatcher:    dispatcher,
		notifications: notifications,
		cfg:           cfg,
		emailPattern:  pattern,
		logger:        logger.With().Str("component", "invitation_intake").Logger(),
	}, nil
}

// Submit records a visitor's request to connect through code and sends them
// an invitation. The returned error is set only for dependency failures.
func (in *Intake) Submit(ctx context.Context, code string, input InvitationInput) (IntakeResult, error) {
	resolution, err := in.validator.Validate(ctx, code)
	if err != nil {
		if reason := Reason(err); reason != "" {
			return IntakeResult{Reason: reason, Message: ResolutionMessage(reason)}, nil
		}
		return IntakeResult{Message: msgTryAgain}, err
	}

	email, message, fieldErrors := in.validateInput(input)
	if len(fieldErrors) > 0 {
		return IntakeResult{Message: msgFixFields, FieldErrors: fieldErrors}, nil
	}

	var location *models.GeoPoint
	if input.Location != nil {
		loc := *input.Location
		location = &loc
	}

	inv, err := in.invitations.UpsertInvitation(ctx, models.InvitationRequest{
		CodeID:    resolution.Code.ID,
		OwnerID:   resolution.Code.OwnerID,
		Email:     email,
		Message:   message,
		Location:  location,
		Status:    models.InvitationPending,
		ExpiresAt: resolution.Code.ExpiresAt.Add(in.cfg.AcceptWindow()),
	})
	if err != nil {
		return IntakeResult{Message: msgTryAgain}, &PersistenceError{Op: "store invitation", Err: err}
	}

	if !inv.Status.IsOpen() {
		in.logger.Debug().Str("invitation_id", inv.ID).Str("status", string(inv.Status)).Msg("invitation already closed")
		message := msgRequestReceived
		if inv.Status == models.InvitationAccepted {
			message = msgAlreadyConnected
		}
		return IntakeResult{Success: true, Message: message, Invitation: &inv}, nil
	}

	if err := in.dispatcher.Dispatch(ctx, inv, resolution.Snapshot); err != nil {
		return IntakeResult{Message: msgTryAgain, Invitation: &inv}, errors.Wrap(err, "dispatch invitation")
	}

	if in.notifications != nil {
		if err := in.notifications.NotifyInvitationReceived(ctx, inv.OwnerID, inv.ID, inv.Email); err != nil {
			in.logger.Warn().Err(err).Str("invitation_id", inv.ID).Msg("failed to notify owner")
		}
	}

	in.logger.Info().
		Str("invitation_id", inv.ID).
		Str("code_id", inv.CodeID).
		Str("owner_id", inv.OwnerID).
		Msg("invitation submitted")

	return IntakeResult{Success: true, Message: msgInvitationSent, Invitation: &inv}, nil
}

func (in *Intake) validateInput(input InvitationInput) (string, string, map[string]string) {
	fieldErrors := map[string]string{}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	switch {
	case email == "":
		fieldErrors["email"] = "Email is required."
	case len(email) > maxEmailLength:
		fieldErrors["email"] = "Email is too long."
	case !in.emailPattern.MatchString(email):
		fieldErrors["email"] = "Enter a valid email address."
	}

	message := strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(message) > in.cfg.MaxMessageLength {
		fieldErrors["message"] = "Message is too long."
	}

	if input.Location != nil && !input.Location.Valid() {
		fieldErrors["location"] = "Location is out of range."
	}

	return email, message, fieldErrors
}

// SyncDispatcher sends the invitation email inline and marks it sent.
type SyncDispatcher struct {
	mailer                  notification.InvitationMailer
	invitations             repository.InvitationRepository
	registrationURLTemplate string
}

func NewSyncDispatcher(mailer notification.InvitationMailer, invitations repository.InvitationRepository, registrationURLTemplate string) *SyncDispatcher {
	return &SyncDispatcher{
		mailer:                  mailer,
		invitations:             invitations,
		registrationURLTemplate: registrationURLTemplate,
	}
}

func (d *SyncDispatcher) Dispatch(ctx context.Context, inv models.InvitationRequest, snapshot models.ProfileSnapshot) error {
	if err := d.mailer.SendInvitation(InvitationEmail(inv, snapshot.Name, d.registrationURLTemplate)); err != nil {
		return errors.Wrap(err, "send invitation email")
	}
	if _, err := d.invitations.MarkInvitationSent(ctx, inv.ID); err != nil {
		return errors.Wrap(err, "mark invitation sent")
	}
	return nil
}

// InvitationEmail builds the email for inv.
func InvitationEmail(inv models.InvitationRequest, ownerName, registrationURLTemplate string) notification.InvitationEmail {
	return notification.InvitationEmail{
		Recipient:       inv.Email,
		OwnerName:       ownerName,
		Message:         inv.Message,
		RegistrationURL: RegistrationURL(registrationURLTemplate, inv.ID),
		ExpiresAt:       inv.ExpiresAt,
	}
}

// RegistrationURL renders the sign-up link carrying the invitation id.
func RegistrationURL(template, invitationID string) string {
	return fmt.Sprintf(template, invitationID)
}
