package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/apperror"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/metrics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = fmt.Errorf("notification %w", apperror.ErrNotFound)

// Filter narrows a listing. A nil IsRead returns both read and unread.
type Filter struct {
	IsRead *bool
}

// Page is a 1-based page request.
type Page struct {
	Page    int
	PerPage int
}

const defaultPerPage = 20

func (p Page) limit() int {
	if p.PerPage <= 0 {
		return defaultPerPage
	}
	return p.PerPage
}

func (p Page) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.limit()
}

// Store persists notifications. Rows are immutable except for IsRead.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// Metadata encodes v as notification metadata.
func Metadata(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func (s *Store) Create(ctx context.Context, n *models.Notification) error {
	if n.UserID == uuid.Nil {
		return apperror.NewValidation("userId", "recipient is required")
	}
	if !n.Type.Valid() {
		return apperror.NewValidation("type", "unknown notification type")
	}
	n.IsRead = false

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(string(n.Type)).Inc()
	return nil
}

// ListFor returns the user's notifications newest first, with the total
// matching the filter.
func (s *Store) ListFor(ctx context.Context, userID uuid.UUID, filter Filter, page Page) ([]models.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if filter.IsRead != nil {
		query = query.Where("is_read = ?", *filter.IsRead)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	var items []models.Notification
	if err := query.
		Order("created_at DESC").
		Offset(page.offset()).
		Limit(page.limit()).
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}

	return items, total, nil
}

// owned loads a notification and checks that userID is its recipient.
func (s *Store) owned(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return &n, nil
}

// MarkRead flips the read flag. Marking an already read notification is a
// success.
func (s *Store) MarkRead(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	n, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}

	if err := s.db.WithContext(ctx).Model(n).Update("is_read", true).Error; err != nil {
		return nil, fmt.Errorf("marking notification read: %w", err)
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead flips every unread notification of the user and returns how
// many changed.
func (s *Store) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("marking notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) Delete(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(n).Error; err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	return nil
}

func (s *Store) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}
