// Package mail sends transactional email. SMTPMailer delivers through an SMTP
// relay with gomail; LogMailer only logs and is used when no relay is
// configured.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

// Message is a plain text email to one recipient
type Message struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP relay settings
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer for the relay in cfg
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the relay and delivers msg. gomail has no context support, so
// ctx is only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.compose(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	if msg.Name != "" {
		gm.SetAddressHeader("To", msg.To, msg.Name)
	} else {
		gm.SetHeader("To", msg.To)
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	return gm
}

// LogMailer logs messages instead of sending them
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs msg at info level
func (m LogMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail not sent, no SMTP relay configured",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// PasswordResetMessage builds the reset email carrying resetURL
func PasswordResetMessage(to, name, resetURL string) Message {
	var body strings.Builder
	if first := firstName(name); first != "" {
		fmt.Fprintf(&body, "Hi %s,\n\n", first)
	}
	body.WriteString("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to:\n\n")
	body.WriteString(resetURL)
	body.WriteString("\n\nThe link is valid for 10 minutes. If you didn't forget your password, please ignore this email.\n")

	return Message{
		To:      to,
		Name:    name,
		Subject: "Your password reset token (valid for 10 min)",
		Body:    body.String(),
	}
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
