package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dislink/connect-api/internal/config"
	"github.com/dislink/connect-api/internal/models"
	"github.com/rs/zerolog"
)

// RecipientLookup resolves the user a notification is addressed to.
type RecipientLookup interface {
	GetUserByID(ctx context.Context, userID string) (models.User, error)
}

// EmailNotifier mails a copy of in-app notifications to verified owners.
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	users    RecipientLookup
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger   zerolog.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, users RecipientLookup, logger zerolog.Logger) (*EmailNotifier, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email notifier")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email notifier")
	}
	if users == nil {
		return nil, fmt.Errorf("recipient lookup is required for email notifier")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &EmailNotifier{
		host:     host,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     from,
		users:    users,
		send:     smtp.SendMail,
		logger:   logger.With().Str("notifier", "email").Logger(),
	}, nil
}

func (n *EmailNotifier) Notify(ctx context.Context, notif models.Notification) error {
	user, err := n.users.GetUserByID(ctx, notif.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if !user.EmailVerified || strings.TrimSpace(user.Email) == "" {
		return nil
	}

	subject := fmt.Sprintf("[Dislink] %s", headerSanitizer.Replace(strings.TrimSpace(notif.Title)))
	if subject == "[Dislink] " {
		subject = "[Dislink] Notification"
	}

	body := strings.Builder{}
	body.WriteString(strings.TrimSpace(notif.Message))
	body.WriteString("\n\n")
	body.WriteString(fmt.Sprintf("Created: %s\n", notif.CreatedAt.Format("2006-01-02 15:04:05 MST")))

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		n.from, user.Email, subject)

	message := []byte(headers + body.String())
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := n.send(addr, auth, n.from, []string{user.Email}, message); err != nil {
		return err
	}

	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("event_type", string(notif.EventType)).
		Str("user_id", notif.UserID).
		Msg("email notification sent")
	return nil
}

func (n *EmailNotifier) String() string {
	return "EmailNotifier"
}
