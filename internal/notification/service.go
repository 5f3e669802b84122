package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/dislink/connect-api/internal/models"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/rs/zerolog"
)

type Event struct {
	UserID   string
	Event    models.NotificationEvent
	Title    string
	Message  string
	Metadata map[string]interface{}
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	NotifyInvitationReceived(ctx context.Context, ownerID, invitationID, visitorEmail string) error
	NotifyConnectionCreated(ctx context.Context, ownerID, contactID, invitationID string) error
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if evt.Event == "" {
		return models.Notification{}, fmt.Errorf("event type is required")
	}
	userID := strings.TrimSpace(evt.UserID)
	if userID == "" {
		return models.Notification{}, fmt.Errorf("user id is required")
	}
	title := strings.TrimSpace(evt.Title)
	message := strings.TrimSpace(evt.Message)
	if title == "" {
		title = string(evt.Event)
	}

	notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
		UserID:   userID,
		Event:    evt.Event,
		Title:    title,
		Message:  message,
		Metadata: evt.Metadata,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(evt.Event)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyInvitationReceived(ctx context.Context, ownerID, invitationID, visitorEmail string) error {
	_, err := s.Publish(ctx, Event{
		UserID:  ownerID,
		Event:   models.NotificationEventInvitationReceived,
		Title:   "New connection request",
		Message: fmt.Sprintf("%s scanned your code and asked to connect. We sent them an invitation.", visitorEmail),
		Metadata: map[string]interface{}{
			"invitation_id": invitationID,
			"email":         visitorEmail,
		},
	})
	return err
}

func (s *service) NotifyConnectionCreated(ctx context.Context, ownerID, contactID, invitationID string) error {
	_, err := s.Publish(ctx, Event{
		UserID:  ownerID,
		Event:   models.NotificationEventConnectionCreated,
		Title:   "New connection",
		Message: "Someone you met through your Dislink code just joined and is now connected with you.",
		Metadata: map[string]interface{}{
			"contact_id":    contactID,
			"invitation_id": invitationID,
		},
	})
	return err
}

func (s *service) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, userID, limit)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
