// Package mailer sends the transactional emails of the identity flows:
// address confirmation and password recovery.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"gopkg.in/gomail.v2"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a sender for the given relay.
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send dials the relay and delivers msg.
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. Used in
// development when no SMTP relay is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("email (not sent, no SMTP configured)", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// Mailer renders and sends the identity emails.
type Mailer struct {
	sender  Sender
	siteURL string
}

// New creates a Mailer. Links in emails are built from siteURL.
func New(sender Sender, siteURL string) *Mailer {
	return &Mailer{sender: sender, siteURL: siteURL}
}

// SendConfirmation sends the sign-up confirmation link.
func (m *Mailer) SendConfirmation(ctx context.Context, to, token string) error {
	link := m.siteURL + "/auth/confirm?token=" + url.QueryEscape(token)
	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: "Confirm your email",
		Body: "Welcome to the marketplace!\n\n" +
			"Confirm your email address by opening the link below:\n\n" + link + "\n",
	})
}

// SendRecovery sends the password reset link. redirectTo, when set,
// replaces the default reset page.
func (m *Mailer) SendRecovery(ctx context.Context, to, token, redirectTo string) error {
	base := m.siteURL + "/auth/reset-password"
	if redirectTo != "" {
		base = redirectTo
	}
	link, err := withToken(base, token)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: "Reset your password",
		Body: "We received a request to reset your password.\n\n" +
			"Choose a new password here:\n\n" + link + "\n\n" +
			"If you did not ask for this, you can ignore this email.\n",
	})
}

func withToken(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
