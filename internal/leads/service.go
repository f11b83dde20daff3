package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/apperror"
	"github.com/vibhor121/mastersunion/internal/audit"
	"github.com/vibhor121/mastersunion/internal/authz"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/metrics"
	"github.com/vibhor121/mastersunion/internal/notifications"
	"github.com/vibhor121/mastersunion/internal/realtime"
	"gorm.io/gorm"
)

var ErrLeadNotFound = fmt.Errorf("lead %w", apperror.ErrNotFound)

// CacheInvalidator retires cached aggregates that cover the given owners.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, owners ...uuid.UUID)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, ...uuid.UUID) {}

// Service runs every lead mutation. The lead row and its history commit
// together; activities, notifications, pushes and email that follow the
// commit are best effort and never change the result.
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

// WithCache makes every committed mutation retire the aggregates it affects.
func (s *Service) WithCache(cache CacheInvalidator) *Service {
	if cache != nil {
		s.cache = cache
	}
	return s
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := db.WithContext(ctx).Preload("Owner").First(&lead, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("loading lead: %w", err)
	}
	return &lead, nil
}

// resolveOwner checks that a requested owner is an active account.
func (s *Service) resolveOwner(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var owner models.User
	err := s.db.WithContext(ctx).First(&owner, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !owner.IsActive) {
		return nil, apperror.NewValidation("ownerId", "owner must be an active user")
	}
	if err != nil {
		return nil, fmt.Errorf("loading owner: %w", err)
	}
	return &owner, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor authz.Actor) (*models.Lead, error) {
	lead, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.LeadView, authz.Resource{OwnerID: lead.OwnerID}) {
		return nil, apperror.ErrForbidden
	}
	return lead, nil
}

// Create stores a lead with its "Lead created" activity. A manager or admin
// may assign it to someone else; anyone else always owns what they create.
func (s *Service) Create(ctx context.Context, input CreateInput, actor authz.Actor) (*models.Lead, error) {
	if fields := input.Validate(); fields != nil {
		return nil, &apperror.ValidationError{Fields: fields}
	}

	ownerID := actor.ID
	if input.OwnerID != nil && authz.Can(actor, authz.LeadAssign, authz.Resource{}) {
		if _, err := s.resolveOwner(ctx, *input.OwnerID); err != nil {
			return nil, err
		}
		ownerID = *input.OwnerID
	}

	lead := &models.Lead{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       strings.TrimSpace(input.Email),
		Phone:       input.Phone,
		Company:     input.Company,
		Position:    input.Position,
		Source:      input.Source,
		Status:      input.Status,
		Priority:    input.Priority,
		Value:       input.Value,
		Notes:       input.Notes,
		OwnerID:     ownerID,
		CreatedByID: actor.ID,
		Version:     1,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lead).Error; err != nil {
			return fmt.Errorf("creating lead: %w", err)
		}

		created := &models.Activity{
			Type:        models.ActivityNote,
			Title:       "Lead created",
			Description: "Lead created by " + actor.Label(),
			LeadID:      lead.ID,
			UserID:      actor.ID,
		}
		if err := tx.Create(created).Error; err != nil {
			return fmt.Errorf("creating lead activity: %w", err)
		}

		reloaded, err := s.load(ctx, tx, lead.ID)
		if err != nil {
			return err
		}
		lead = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The lead is committed; what follows must not be cut short by the caller.
	ctx = context.WithoutCancel(ctx)
	s.logger.Info("lead created", "lead_id", lead.ID, "owner_id", lead.OwnerID, "user_id", actor.ID)
	s.cache.Invalidate(ctx, lead.OwnerID)

	if lead.OwnerID != actor.ID {
		s.announceAssignment(ctx, lead, "New Lead Assigned",
			fmt.Sprintf("A new lead %q has been assigned to you", lead.FullName()))
	}

	return lead, nil
}

// Update applies patch under the lead's version lock and records one history
// entry per changed tracked field.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch, actor authz.Actor) (*models.Lead, error) {
	patch.normalize()
	if fields := patch.Validate(); fields != nil {
		return nil, &apperror.ValidationError{Fields: fields}
	}

	current, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if !authz.Can(actor, authz.LeadUpdate, authz.Resource{OwnerID: current.OwnerID}) {
		return nil, apperror.ErrForbidden
	}

	if patch.OwnerID != nil {
		switch {
		case !authz.Can(actor, authz.LeadAssign, authz.Resource{OwnerID: current.OwnerID}):
			patch.OwnerID = nil
		case *patch.OwnerID != current.OwnerID:
			if _, err := s.resolveOwner(ctx, *patch.OwnerID); err != nil {
				return nil, err
			}
		}
	}

	if patch.Version != nil && *patch.Version != current.Version {
		metrics.LeadConflictsTotal.Inc()
		return nil, fmt.Errorf("lead was modified concurrently: %w", apperror.ErrConflict)
	}

	entries := audit.Diff(current.ID, audit.Snapshot(current), patch.tracked(), actor.Label())

	columns := patch.columns()
	if len(columns) == 0 {
		return current, nil
	}
	columns["version"] = current.Version + 1

	var updated *models.Lead
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Lead{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Updates(columns)
		if result.Error != nil {
			return fmt.Errorf("updating lead: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("lead was modified concurrently: %w", apperror.ErrConflict)
		}

		if err := audit.Record(tx, entries); err != nil {
			return err
		}

		reloaded, err := s.load(ctx, tx, current.ID)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			metrics.LeadConflictsTotal.Inc()
		}
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	s.logger.Info("lead updated", "lead_id", updated.ID, "user_id", actor.ID, "changes", len(entries))
	s.cache.Invalidate(ctx, current.OwnerID, updated.OwnerID)

	if change, ok := audit.Changed(entries, audit.FieldStatus); ok {
		s.announceStatusChange(ctx, updated, change.OldValue, change.NewValue, actor)
	}
	if _, ok := audit.Changed(entries, audit.FieldOwnerID); ok {
		s.announceAssignment(ctx, updated, "Lead Assigned",
			fmt.Sprintf("Lead %q has been assigned to you", updated.FullName()))
	}

	s.dispatcher.BroadcastToTopic(realtime.LeadTopic(updated.ID), realtime.EventLeadChanged, updated)

	return updated, nil
}

// announceStatusChange logs the STATUS_CHANGE activity, notifies the current
// owner and mails them. Each step is independent.
func (s *Service) announceStatusChange(ctx context.Context, lead *models.Lead, from, to string, actor authz.Actor) {
	activity := &models.Activity{
		Type:        models.ActivityStatusChange,
		Title:       "Status changed",
		Description: fmt.Sprintf("Status changed from %s to %s", from, to),
		LeadID:      lead.ID,
		UserID:      actor.ID,
	}
	if err := s.db.WithContext(ctx).Create(activity).Error; err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("activity").Inc()
		s.logger.Error("failed to log status change activity", "lead_id", lead.ID, "error", err)
	}

	s.notifier.Notify(ctx, &models.Notification{
		UserID:  lead.OwnerID,
		Title:   "Lead Status Changed",
		Message: fmt.Sprintf("Lead status changed from %s to %s", from, to),
		Type:    models.NotificationLeadStatusChanged,
		Metadata: notifications.Metadata(map[string]interface{}{
			"leadId":    lead.ID,
			"oldStatus": from,
			"newStatus": to,
		}),
	})

	if lead.Owner == nil {
		return
	}
	msg, err := s.composer.LeadStatusChanged(lead.Owner.Email, lead.FullName(), from, to)
	s.enqueueEmail(ctx, lead, msg, err)
}

// announceAssignment tells the lead's owner it is now theirs.
func (s *Service) announceAssignment(ctx context.Context, lead *models.Lead, title, message string) {
	s.notifier.Notify(ctx, &models.Notification{
		UserID:   lead.OwnerID,
		Title:    title,
		Message:  message,
		Type:     models.NotificationLeadAssigned,
		Metadata: notifications.Metadata(map[string]interface{}{"leadId": lead.ID}),
	})

	if lead.Owner == nil {
		return
	}
	msg, err := s.composer.LeadAssigned(lead.Owner.Email, lead.FullName(), lead.Owner.FullName())
	s.enqueueEmail(ctx, lead, msg, err)
}

func (s *Service) enqueueEmail(ctx context.Context, lead *models.Lead, msg mail.Message, renderErr error) {
	if renderErr == nil {
		renderErr = s.emails.Enqueue(ctx, msg)
	}
	if renderErr != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("email").Inc()
		s.logger.Error("failed to enqueue email", "lead_id", lead.ID, "to", msg.To, "error", renderErr)
	}
}

// Delete soft-deletes a lead. Only managers and admins may delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor authz.Actor) error {
	lead, err := s.load(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !authz.Can(actor, authz.LeadDelete, authz.Resource{OwnerID: lead.OwnerID}) {
		return apperror.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(lead).Error; err != nil {
		return fmt.Errorf("deleting lead: %w", err)
	}

	s.logger.Info("lead deleted", "lead_id", id, "user_id", actor.ID)
	s.cache.Invalidate(context.WithoutCancel(ctx), lead.OwnerID)
	return nil
}
