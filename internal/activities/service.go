package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/apperror"
	"github.com/vibhor121/mastersunion/internal/authz"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/notifications"
	"github.com/vibhor121/mastersunion/internal/realtime"
	"gorm.io/gorm"
)

var (
	ErrActivityNotFound = fmt.Errorf("activity %w", apperror.ErrNotFound)
	ErrLeadNotFound     = fmt.Errorf("lead %w", apperror.ErrNotFound)
)

type CreateInput struct {
	Type        models.ActivityType
	Title       string
	Description string
	Outcome     string
	Duration    *int
	ScheduledAt *time.Time
	CompletedAt *time.Time
}

func (in CreateInput) Validate() map[string]string {
	errs := make(map[string]string)
	switch {
	case in.Type == "":
		errs["type"] = "type is required"
	case in.Type == models.ActivityStatusChange:
		errs["type"] = "status changes are recorded automatically"
	case !in.Type.Valid():
		errs["type"] = "invalid activity type"
	}
	if strings.TrimSpace(in.Title) == "" {
		errs["title"] = "title is required"
	}
	if in.Duration != nil && *in.Duration < 0 {
		errs["duration"] = "duration cannot be negative"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type UpdateInput struct {
	Type        *models.ActivityType
	Title       *string
	Description *string
	Outcome     *string
	Duration    *int
	ScheduledAt *time.Time
	CompletedAt *time.Time
}

func (in UpdateInput) Validate() map[string]string {
	errs := make(map[string]string)
	if in.Type != nil && (!in.Type.Valid() || *in.Type == models.ActivityStatusChange) {
		errs["type"] = "invalid activity type"
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		errs["title"] = "title cannot be empty"
	}
	if in.Duration != nil && *in.Duration < 0 {
		errs["duration"] = "duration cannot be negative"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// CacheInvalidator retires cached aggregates that cover the given lead owners.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, owners ...uuid.UUID)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, ...uuid.UUID) {}

type Service struct {
	db         *gorm.DB
	notifier   *notifications.Notifier
	dispatcher realtime.Dispatcher
	emails     mail.Queue
	composer   *mail.Composer
	cache      CacheInvalidator
	logger     *slog.Logger
}

func NewService(
	db *gorm.DB,
	notifier *notifications.Notifier,
	dispatcher realtime.Dispatcher,
	emails mail.Queue,
	composer *mail.Composer,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:         db,
		notifier:   notifier,
		dispatcher: dispatcher,
		emails:     emails,
		composer:   composer,
		cache:      nopInvalidator{},
		logger:     logger,
	}
}

func (s *Service) WithCache(cache CacheInvalidator) *Service {
	if cache != nil {
		s.cache = cache
	}
	return s
}

func (s *Service) invalidate(ctx context.Context, a *models.Activity) {
	if a.Lead != nil {
		s.cache.Invalidate(ctx, a.Lead.OwnerID)
	}
}

func (s *Service) lead(ctx context.Context, id uuid.UUID, actor authz.Actor) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	if !authz.Can(actor, authz.LeadView, authz.Resource{OwnerID: lead.OwnerID}) {
		return nil, apperror.ErrForbidden
	}
	return &lead, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	if err := s.db.WithContext(ctx).
		Preload("Lead").
		Preload("User").
		First(&activity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return &activity, nil
}

func resource(a *models.Activity) authz.Resource {
	res := authz.Resource{AuthorID: a.UserID}
	if a.Lead != nil {
		res.OwnerID = a.Lead.OwnerID
	}
	return res
}

// ListForLead returns a lead's activities newest first.
func (s *Service) ListForLead(ctx context.Context, leadID uuid.UUID, typ models.ActivityType, page, perPage int, actor authz.Actor) ([]models.Activity, int64, error) {
	if _, err := s.lead(ctx, leadID, actor); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Activity{}).Where("lead_id = ?", leadID)
	if typ != "" {
		query = query.Where("type = ?", typ)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting activities: %w", err)
	}

	if perPage <= 0 {
		perPage = 20
	}
	if page < 1 {
		page = 1
	}

	var items []models.Activity
	if err := query.
		Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("listing activities: %w", err)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor authz.Actor) (*models.Activity, error) {
	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res := resource(activity)
	if !authz.Can(actor, authz.LeadView, res) && !authz.Can(actor, authz.ActivityModify, res) {
		return nil, apperror.ErrForbidden
	}
	return activity, nil
}

// Create logs an activity on a lead the actor can see. Scheduling something
// on another user's lead tells that owner about it.
func (s *Service) Create(ctx context.Context, leadID uuid.UUID, input CreateInput, actor authz.Actor) (*models.Activity, error) {
	if fields := input.Validate(); fields != nil {
		return nil, &apperror.ValidationError{Fields: fields}
	}

	lead, err := s.lead(ctx, leadID, actor)
	if err != nil {
		return nil, err
	}

	activity := &models.Activity{
		Type:        input.Type,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Outcome:     input.Outcome,
		Duration:    input.Duration,
		ScheduledAt: utc(input.ScheduledAt),
		CompletedAt: utc(input.CompletedAt),
		LeadID:      lead.ID,
		UserID:      actor.ID,
	}
	if err := s.db.WithContext(ctx).Create(activity).Error; err != nil {
		return nil, fmt.Errorf("creating activity: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	created, err := s.load(ctx, activity.ID)
	if err != nil {
		created = activity
	}

	s.logger.Info("activity created", "activity_id", activity.ID, "lead_id", lead.ID, "user_id", actor.ID)
	s.cache.Invalidate(ctx, lead.OwnerID)

	if activity.ScheduledAt != nil && lead.OwnerID != actor.ID {
		s.notifier.Notify(ctx, &models.Notification{
			UserID:  lead.OwnerID,
			Title:   "New Activity Scheduled",
			Message: fmt.Sprintf("%s scheduled a %s: %s", actor.Label(), strings.ToLower(string(activity.Type)), activity.Title),
			Type:    models.NotificationActivityReminder,
			Metadata: notifications.Metadata(map[string]interface{}{
				"leadId":     lead.ID,
				"activityId": activity.ID,
			}),
		})
	}

	s.dispatcher.BroadcastToTopic(realtime.LeadTopic(lead.ID), realtime.EventActivityNew, created)

	return created, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor authz.Actor) (*models.Activity, error) {
	if fields := input.Validate(); fields != nil {
		return nil, &apperror.ValidationError{Fields: fields}
	}

	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ActivityModify, resource(activity)) {
		return nil, apperror.ErrForbidden
	}

	updates := map[string]interface{}{}
	if input.Type != nil {
		updates["type"] = *input.Type
	}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Outcome != nil {
		updates["outcome"] = *input.Outcome
	}
	if input.Duration != nil {
		updates["duration"] = *input.Duration
	}
	if input.ScheduledAt != nil {
		updates["scheduled_at"] = utc(input.ScheduledAt)
		updates["reminder_sent_at"] = nil
	}
	if input.CompletedAt != nil {
		updates["completed_at"] = utc(input.CompletedAt)
	}
	if len(updates) == 0 {
		return activity, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Activity{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("updating activity: %w", err)
	}
	s.invalidate(context.WithoutCancel(ctx), activity)
	return s.load(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor authz.Actor) error {
	activity, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !authz.Can(actor, authz.ActivityModify, resource(activity)) {
		return apperror.ErrForbidden
	}
	if err := s.db.WithContext(ctx).Delete(activity).Error; err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	s.invalidate(context.WithoutCancel(ctx), activity)
	return nil
}

// Upcoming lists open, future activities on the actor's own leads, soonest
// first.
func (s *Service) Upcoming(ctx context.Context, actor authz.Actor, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var items []models.Activity
	err := s.db.WithContext(ctx).
		Joins("JOIN leads ON leads.id = activities.lead_id AND leads.deleted_at IS NULL").
		Where("leads.owner_id = ?", actor.ID).
		Where("activities.scheduled_at >= ?", time.Now().UTC()).
		Where("activities.completed_at IS NULL").
		Preload("Lead").
		Preload("User").
		Order("activities.scheduled_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing upcoming activities: %w", err)
	}
	return items, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
