package leads

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/authz"
	"github.com/vibhor121/mastersunion/internal/database/models"
)

// ListFilter narrows a lead listing. Sales executives always see only
// their own leads whatever OwnerID says.
type ListFilter struct {
	Status    models.LeadStatus
	Priority  models.Priority
	OwnerID   *uuid.UUID
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"firstName": "first_name",
	"lastName":  "last_name",
	"company":   "company",
	"status":    "status",
	"priority":  "priority",
	"value":     "value",
}

func (f ListFilter) order() string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}

func bounds(page, perPage int) (offset, limit int) {
	if perPage <= 0 {
		perPage = 20
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage, perPage
}

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (s *Service) List(ctx context.Context, filter ListFilter, actor authz.Actor) ([]models.Lead, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Lead{})

	if !authz.Can(actor, authz.LeadListAll, authz.Resource{}) {
		query = query.Where("owner_id = ?", actor.ID)
	} else if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(
			`LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\' OR `+
				`LOWER(email) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting leads: %w", err)
	}

	offset, limit := bounds(filter.Page, filter.PerPage)
	var leads []models.Lead
	if err := query.
		Preload("Owner").
		Order(filter.order()).
		Offset(offset).
		Limit(limit).
		Find(&leads).Error; err != nil {
		return nil, 0, fmt.Errorf("listing leads: %w", err)
	}

	return leads, total, nil
}

// History returns a lead's field changes, newest first.
func (s *Service) History(ctx context.Context, id uuid.UUID, actor authz.Actor, page, perPage int) ([]models.LeadHistory, int64, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.LeadHistory{}).Where("lead_id = ?", id)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting lead history: %w", err)
	}

	offset, limit := bounds(page, perPage)
	var entries []models.LeadHistory
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("listing lead history: %w", err)
	}

	return entries, total, nil
}

// CanView reports whether the user may watch the lead's live topic.
func (s *Service) CanView(ctx context.Context, user *models.User, leadID uuid.UUID) bool {
	actor := authz.Actor{ID: user.ID, Role: user.Role}
	_, err := s.Get(ctx, leadID, actor)
	return err == nil
}
