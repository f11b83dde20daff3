// Package users manages CRM accounts on behalf of administrators and
// managers. Self-service profile changes live in the auth package.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/apperror"
	"github.com/vibhor121/mastersunion/internal/auth"
	"github.com/vibhor121/mastersunion/internal/authz"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = fmt.Errorf("user %w", apperror.ErrNotFound)
	ErrEmailTaken   = fmt.Errorf("user with this email already exists: %w", apperror.ErrConflict)
)

// Summary is a user with ownership counts.
type Summary struct {
	models.User
	LeadCount     int64 `json:"leadCount"`
	ActivityCount int64 `json:"activityCount"`
}

type ListFilter struct {
	Role     models.Role
	IsActive *bool
	Search   string
	Page     int
	PerPage  int
}

type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
}

func (in CreateInput) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(in.Email) == "" {
		errs["email"] = "email is required"
	}
	if len(in.Password) < auth.MinPasswordLength {
		errs["password"] = fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength)
	}
	if strings.TrimSpace(in.FirstName) == "" {
		errs["firstName"] = "first name is required"
	}
	if strings.TrimSpace(in.LastName) == "" {
		errs["lastName"] = "last name is required"
	}
	if !in.Role.Valid() {
		errs["role"] = "invalid role"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// UpdateInput changes a user. Role and IsActive are applied only when the
// actor is an administrator.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Role      *models.Role
	IsActive  *bool
}

func (in UpdateInput) Validate() map[string]string {
	errs := make(map[string]string)
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		errs["firstName"] = "first name cannot be empty"
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) == "" {
		errs["lastName"] = "last name cannot be empty"
	}
	if in.Role != nil && !in.Role.Valid() {
		errs["role"] = "invalid role"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// summarize attaches lead and activity counts with one grouped query each.
func (s *Service) summarize(ctx context.Context, list []models.User) ([]Summary, error) {
	out := make([]Summary, len(list))
	if len(list) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(list))
	for i, u := range list {
		ids[i] = u.ID
		out[i].User = u
	}

	type count struct {
		ID    uuid.UUID
		Total int64
	}
	var leadCounts, activityCounts []count
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Select("owner_id AS id, COUNT(*) AS total").
		Where("owner_id IN ?", ids).
		Group("owner_id").
		Scan(&leadCounts).Error; err != nil {
		return nil, fmt.Errorf("counting leads: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Activity{}).
		Select("user_id AS id, COUNT(*) AS total").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&activityCounts).Error; err != nil {
		return nil, fmt.Errorf("counting activities: %w", err)
	}

	index := make(map[uuid.UUID]int, len(list))
	for i, u := range list {
		index[u.ID] = i
	}
	for _, c := range leadCounts {
		out[index[c.ID]].LeadCount = c.Total
	}
	for _, c := range activityCounts {
		out[index[c.ID]].ActivityCount = c.Total
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, actor authz.Actor) ([]Summary, int64, error) {
	if !authz.Can(actor, authz.UserList, authz.Resource{}) {
		return nil, 0, apperror.ErrForbidden
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	var list []models.User
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}

	out, err := s.summarize(ctx, list)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor authz.Actor) (*Summary, error) {
	if !authz.Can(actor, authz.UserView, authz.Resource{OwnerID: id}) {
		return nil, apperror.ErrForbidden
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := s.summarize(ctx, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Service) Create(ctx context.Context, input CreateInput, actor authz.Actor) (*models.User, error) {
	if !authz.Can(actor, authz.UserAdminister, authz.Resource{}) {
		return nil, apperror.ErrForbidden
	}
	if errs := input.Validate(); errs != nil {
		return nil, &apperror.ValidationError{Fields: errs}
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created", "user_id", user.ID, "email", user.Email, "by", actor.Email)
	return user, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor authz.Actor) (*models.User, error) {
	if errs := input.Validate(); errs != nil {
		return nil, &apperror.ValidationError{Fields: errs}
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.UserUpdate, authz.Resource{OwnerID: user.ID}) {
		return nil, apperror.ErrForbidden
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if authz.Can(actor, authz.UserAdminister, authz.Resource{}) {
		if input.Role != nil {
			updates["role"] = *input.Role
		}
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
		}
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}
		s.logger.Info("user updated", "user_id", id, "by", actor.Email)
	}

	return s.load(ctx, id)
}

// Deactivate disables an account. Rows the user owns stay in place.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, actor authz.Actor) error {
	if !authz.Can(actor, authz.UserAdminister, authz.Resource{}) {
		return apperror.ErrForbidden
	}
	if id == actor.ID {
		return apperror.NewValidation("id", "you cannot delete your own account")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_active", false).Error; err != nil {
		return fmt.Errorf("deactivating user: %w", err)
	}

	s.logger.Info("user deactivated", "user_id", id, "by", actor.Email)
	return nil
}

// Assignable lists active users who may own leads, by first name.
func (s *Service) Assignable(ctx context.Context, actor authz.Actor) ([]models.User, error) {
	if !authz.Can(actor, authz.UserList, authz.Resource{}) {
		return nil, apperror.ErrForbidden
	}

	var out []models.User
	if err := s.db.WithContext(ctx).
		Where("role IN ? AND is_active = ?", []models.Role{models.RoleSalesExecutive, models.RoleManager}, true).
		Order("first_name ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing assignable users: %w", err)
	}
	return out, nil
}
