// Package mailer sends plain text and HTML email.
//
// SMTPSender delivers through an SMTP relay and throttles itself with a
// token bucket so a burst of notifications cannot trip the relay's limits.
// LogSender stands in when email is disabled.
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
)

// Errors returned by senders.
var (
	ErrNoRecipient    = errors.New("message has no recipient")
	ErrInvalidAddress = errors.New("invalid email address")
	ErrEmptySubject   = errors.New("message subject is required")
	ErrEmptyBody      = errors.New("message body is required")
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	Text    string
	// HTML is optional. When set the message is sent as multipart/alternative.
	HTML string
}

// Validate checks that the message can be sent.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return ErrInvalidAddress
	}
	if strings.TrimSpace(m.Subject) == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return ErrEmptyBody
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender logs messages instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "mailer", "transport", "log")}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email delivery disabled, message not sent",
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}
