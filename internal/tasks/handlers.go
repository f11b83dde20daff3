package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/metrics"
	"github.com/vibhor121/mastersunion/pkg/util"
)

// ReminderSender runs one reminder sweep.
type ReminderSender interface {
	SendReminders(ctx context.Context, now time.Time, window time.Duration) (int, error)
}

type Handler struct {
	sender    mail.Sender
	reminders ReminderSender
	window    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandler(sender mail.Sender, reminders ReminderSender, window time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		sender:    sender,
		reminders: reminders,
		window:    window,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEmailSend, h.HandleEmailSend)
	mux.HandleFunc(TypeReminderSweep, h.HandleReminderSweep)
}

// RegisterSchedule adds the periodic reminder sweep to scheduler.
func RegisterSchedule(scheduler *asynq.Scheduler, schedule *util.Schedule) (string, error) {
	return scheduler.Register(schedule.String(), NewReminderSweepTask())
}

func (h *Handler) HandleEmailSend(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid email: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.sender.Send(ctx, payload); err != nil {
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		h.logger.Error("email delivery failed", "to", payload.To, "subject", payload.Subject, "error", err)
		if errors.Is(err, mail.ErrNotConfigured) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	metrics.EmailsTotal.WithLabelValues("sent").Inc()
	return nil
}

func (h *Handler) HandleReminderSweep(ctx context.Context, t *asynq.Task) error {
	sent, err := h.reminders.SendReminders(ctx, h.now(), h.window)
	if err != nil {
		return fmt.Errorf("reminder sweep: %w", err)
	}

	h.logger.Debug("reminder sweep finished", "reminded", sent, "window", h.window)
	return nil
}
