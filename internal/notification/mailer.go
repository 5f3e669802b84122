package notification

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/dislink/connect-api/internal/config"
)

// InvitationEmail is the content of an invitation sent to a visitor who asked
// to connect through a QR code.
type InvitationEmail struct {
	Recipient       string
	OwnerName       string
	Message         string
	RegistrationURL string
	ExpiresAt       time.Time
}

// InvitationMailer is responsible for delivering invitation emails.
type InvitationMailer interface {
	SendInvitation(email InvitationEmail) error
}

// SMTPInvitationMailer sends invitation emails using an SMTP server.
type SMTPInvitationMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

var headerSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

// NewSMTPInvitationMailer constructs a new SMTPInvitationMailer from config.
func NewSMTPInvitationMailer(cfg config.EmailConfig) (*SMTPInvitationMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	return &SMTPInvitationMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}, nil
}

// SendInvitation dispatches an invitation email to the visitor.
func (m *SMTPInvitationMailer) SendInvitation(email InvitationEmail) error {
	message := BuildInvitationMessage(m.from, email)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if strings.TrimSpace(m.username) != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{email.Recipient}, message)
}

// BuildInvitationMessage renders the raw RFC 5322 message for email.
func BuildInvitationMessage(from string, email InvitationEmail) []byte {
	owner := strings.TrimSpace(headerSanitizer.Replace(email.OwnerName))
	if owner == "" {
		owner = "Someone"
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		from, headerSanitizer.Replace(email.Recipient), fmt.Sprintf("%s wants to connect with you on Dislink", owner))

	body := strings.Builder{}
	body.WriteString("Hello,\n\n")
	body.WriteString(fmt.Sprintf("You scanned %s's Dislink code and asked to connect.\n", owner))
	if msg := strings.TrimSpace(email.Message); msg != "" {
		body.WriteString("\nYour note:\n\n")
		body.WriteString(msg + "\n")
	}
	body.WriteString("\nCreate your account with the link below and the connection will be added automatically:\n\n")
	body.WriteString(email.RegistrationURL + "\n\n")
	if !email.ExpiresAt.IsZero() {
		body.WriteString(fmt.Sprintf("This invitation is valid until %s. ", email.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")))
	}
	body.WriteString("If you did not expect this email, you can ignore it.\n\n")
	body.WriteString("Thanks,\nThe Dislink Team\n")

	return []byte(headers + body.String())
}
