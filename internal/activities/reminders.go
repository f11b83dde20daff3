package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/metrics"
	"github.com/vibhor121/mastersunion/internal/notifications"
)

// SendReminders notifies and mails the lead owner of every open activity
// scheduled between now and now+window that has not been reminded yet.
// Each activity is claimed with a conditional update first, so concurrent
// sweeps remind it once.
func (s *Service) SendReminders(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	now = now.UTC()

	var due []models.Activity
	if err := s.db.WithContext(ctx).
		Preload("Lead.Owner").
		Where("scheduled_at >= ? AND scheduled_at <= ?", now, now.Add(window)).
		Where("completed_at IS NULL AND reminder_sent_at IS NULL").
		Order("scheduled_at ASC").
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("finding due activities: %w", err)
	}

	reminded := 0
	for i := range due {
		activity := &due[i]
		if activity.Lead == nil || activity.Lead.Owner == nil {
			continue
		}

		claim := s.db.WithContext(ctx).
			Model(&models.Activity{}).
			Where("id = ? AND reminder_sent_at IS NULL", activity.ID).
			Update("reminder_sent_at", now)
		if claim.Error != nil {
			s.logger.Error("failed to claim activity reminder", "activity_id", activity.ID, "error", claim.Error)
			continue
		}
		if claim.RowsAffected == 0 {
			continue
		}

		owner := activity.Lead.Owner
		leadName := activity.Lead.FullName()

		s.notifier.Notify(ctx, &models.Notification{
			UserID:  owner.ID,
			Title:   "Activity Reminder",
			Message: fmt.Sprintf("%s for %s is scheduled at %s", activity.Title, leadName, activity.ScheduledAt.UTC().Format(time.RFC3339)),
			Type:    models.NotificationActivityReminder,
			Metadata: notifications.Metadata(map[string]interface{}{
				"leadId":     activity.LeadID,
				"activityId": activity.ID,
			}),
		})

		msg, err := s.composer.ActivityReminder(owner.Email, activity.Title, leadName, *activity.ScheduledAt)
		if err == nil {
			err = s.emails.Enqueue(ctx, msg)
		}
		if err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("email").Inc()
			s.logger.Error("failed to enqueue reminder email", "activity_id", activity.ID, "error", err)
		}

		reminded++
	}

	if reminded > 0 {
		s.logger.Info("activity reminders sent", "count", reminded)
	}
	return reminded, nil
}
