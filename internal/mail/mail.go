// Package mail sends outbound notification email. Delivery is best effort:
// callers enqueue a Message and never wait on the relay.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vibhor121/mastersunion/internal/metrics"
	"github.com/vibhor121/mastersunion/pkg/config"
	gomail "github.com/wneessen/go-mail"
)

var ErrNotConfigured = errors.New("smtp relay is not configured")

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

func (m Message) Validate() error {
	if m.To == "" {
		return errors.New("message has no recipient")
	}
	if m.Subject == "" {
		return errors.New("message has no subject")
	}
	return nil
}

// Result is the outcome of one send attempt.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Queue accepts messages for later delivery. Enqueue must not block on the
// relay.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}

// NopQueue discards every message.
type NopQueue struct{}

func (NopQueue) Enqueue(context.Context, Message) error { return nil }

// SMTPSender relays through the configured SMTP server.
type SMTPSender struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if !s.cfg.Enabled() {
		s.logger.Warn("smtp disabled, dropping email", "to", msg.To, "subject", msg.Subject)
		return ErrNotConfigured
	}

	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}

	opts := []gomail.Option{gomail.WithPort(s.cfg.Port)}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	if s.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Deliver sends msg and reports the outcome without returning an error.
func Deliver(ctx context.Context, sender Sender, msg Message, logger *slog.Logger) Result {
	if err := sender.Send(ctx, msg); err != nil {
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		logger.Error("error sending email", "to", msg.To, "subject", msg.Subject, "error", err)
		return Result{Success: false, Error: err.Error()}
	}
	metrics.EmailsTotal.WithLabelValues("sent").Inc()
	return Result{Success: true}
}
