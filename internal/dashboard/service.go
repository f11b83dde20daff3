package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/apperror"
	"github.com/vibhor121/mastersunion/internal/authz"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"gorm.io/gorm"
)

type Stats struct {
	TotalLeads     int64   `json:"totalLeads"`
	NewLeads       int64   `json:"newLeads"`
	QualifiedLeads int64   `json:"qualifiedLeads"`
	WonLeads       int64   `json:"wonLeads"`
	LostLeads      int64   `json:"lostLeads"`
	TotalValue     float64 `json:"totalValue"`
	WonValue       float64 `json:"wonValue"`
	ConversionRate float64 `json:"conversionRate"`
}

type StatusCount struct {
	Status models.LeadStatus `json:"status"`
	Count  int64             `json:"count"`
}

type PriorityCount struct {
	Priority models.Priority `json:"priority"`
	Count    int64           `json:"count"`
}

type TimelinePoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
	Won   int64  `json:"won"`
	Lost  int64  `json:"lost"`
}

type Performer struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	TotalLeads int64     `json:"totalLeads"`
	WonLeads   int64     `json:"wonLeads"`
	WonValue   float64   `json:"wonValue"`
}

type TypeCount struct {
	Type  models.ActivityType `json:"type"`
	Count int64               `json:"count"`
}

type ActivityStats struct {
	TotalActivities     int64       `json:"totalActivities"`
	CompletedActivities int64       `json:"completedActivities"`
	UpcomingActivities  int64       `json:"upcomingActivities"`
	ActivitiesByType    []TypeCount `json:"activitiesByType"`
}

// Service computes dashboard aggregates. Sales executives only ever see
// their own leads; the restriction is a bound owner_id parameter.
type Service struct {
	db     *gorm.DB
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, cache Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NoCache{}
	}
	return &Service{db: db, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

const allScope = "all"

// scope returns the cache scope and the owner restriction, if any.
func scope(actor authz.Actor) (string, *uuid.UUID) {
	if authz.Can(actor, authz.LeadListAll, authz.Resource{}) {
		return allScope, nil
	}
	id := actor.ID
	return id.String(), &id
}

func (s *Service) leads(ctx context.Context, owner *uuid.UUID) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Lead{})
	if owner != nil {
		q = q.Where("owner_id = ?", *owner)
	}
	return q
}

// generation names the live key set of a scope. Invalidate replaces it, so
// entries written under the old one are never read again.
func (s *Service) generation(ctx context.Context, scopeKey string) string {
	if raw, ok := s.cache.Get(ctx, "gen:"+scopeKey); ok {
		return string(raw)
	}
	return "0"
}

// cached serves name within scopeKey from the cache or computes it with fn.
func (s *Service) cached(ctx context.Context, scopeKey, name string, dest interface{}, fn func() error) error {
	if s.ttl <= 0 {
		return fn()
	}

	key := scopeKey + ":" + s.generation(ctx, scopeKey) + ":" + name
	if raw, ok := s.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(raw, dest); err == nil {
			return nil
		}
	}

	if err := fn(); err != nil {
		return err
	}

	if raw, err := json.Marshal(dest); err == nil {
		s.cache.Set(ctx, key, raw, s.ttl)
	}
	return nil
}

// Invalidate retires the cached aggregates of each owner's scope and of the
// organisation-wide scope.
func (s *Service) Invalidate(ctx context.Context, owners ...uuid.UUID) {
	if s.ttl <= 0 {
		return
	}
	scopes := []string{allScope}
	for _, id := range owners {
		if id != uuid.Nil {
			scopes = append(scopes, id.String())
		}
	}
	for _, scopeKey := range scopes {
		s.cache.Set(ctx, "gen:"+scopeKey, []byte(uuid.NewString()), s.ttl)
	}
}

func (s *Service) Stats(ctx context.Context, actor authz.Actor) (*Stats, error) {
	scopeKey, owner := scope(actor)
	var out Stats

	err := s.cached(ctx, scopeKey, "stats", &out, func() error {
		var row struct {
			TotalLeads     int64
			NewLeads       int64
			QualifiedLeads int64
			WonLeads       int64
			LostLeads      int64
			TotalValue     float64
			WonValue       float64
		}
		err := s.leads(ctx, owner).Select(
			"COUNT(*) AS total_leads, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS new_leads, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS qualified_leads, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS won_leads, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS lost_leads, "+
				"COALESCE(SUM(value), 0) AS total_value, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN value ELSE 0 END), 0) AS won_value",
			models.LeadStatusNew, models.LeadStatusQualified, models.LeadStatusWon,
			models.LeadStatusLost, models.LeadStatusWon,
		).Scan(&row).Error
		if err != nil {
			return fmt.Errorf("computing lead stats: %w", err)
		}

		out = Stats{
			TotalLeads:     row.TotalLeads,
			NewLeads:       row.NewLeads,
			QualifiedLeads: row.QualifiedLeads,
			WonLeads:       row.WonLeads,
			LostLeads:      row.LostLeads,
			TotalValue:     row.TotalValue,
			WonValue:       row.WonValue,
		}
		if row.TotalLeads > 0 {
			out.ConversionRate = math.Round(float64(row.WonLeads)/float64(row.TotalLeads)*10000) / 100
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) LeadsByStatus(ctx context.Context, actor authz.Actor) ([]StatusCount, error) {
	scopeKey, owner := scope(actor)
	out := []StatusCount{}

	err := s.cached(ctx, scopeKey, "by-status", &out, func() error {
		return s.leads(ctx, owner).
			Select("status, COUNT(*) AS count").
			Group("status").
			Order("count DESC").
			Scan(&out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("grouping leads by status: %w", err)
	}
	return out, nil
}

func (s *Service) LeadsByPriority(ctx context.Context, actor authz.Actor) ([]PriorityCount, error) {
	scopeKey, owner := scope(actor)
	out := []PriorityCount{}

	err := s.cached(ctx, scopeKey, "by-priority", &out, func() error {
		return s.leads(ctx, owner).
			Select("priority, COUNT(*) AS count").
			Group("priority").
			Order("count DESC").
			Scan(&out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("grouping leads by priority: %w", err)
	}
	return out, nil
}

// Timeline buckets leads created in the last days by UTC calendar day.
func (s *Service) Timeline(ctx context.Context, actor authz.Actor, days int) ([]TimelinePoint, error) {
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		days = 365
	}

	scopeKey, owner := scope(actor)
	out := []TimelinePoint{}

	err := s.cached(ctx, scopeKey, fmt.Sprintf("timeline:%d", days), &out, func() error {
		since := s.now().UTC().AddDate(0, 0, -days)

		var rows []struct {
			CreatedAt time.Time
			Status    models.LeadStatus
		}
		if err := s.leads(ctx, owner).
			Select("created_at, status").
			Where("created_at >= ?", since).
			Order("created_at").
			Scan(&rows).Error; err != nil {
			return err
		}

		buckets := make(map[string]*TimelinePoint)
		for _, r := range rows {
			date := r.CreatedAt.UTC().Format("2006-01-02")
			p, ok := buckets[date]
			if !ok {
				p = &TimelinePoint{Date: date}
				buckets[date] = p
			}
			p.Count++
			switch r.Status {
			case models.LeadStatusWon:
				p.Won++
			case models.LeadStatusLost:
				p.Lost++
			}
		}

		out = make([]TimelinePoint, 0, len(buckets))
		for _, p := range buckets {
			out = append(out, *p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building lead timeline: %w", err)
	}
	return out, nil
}

// TopPerformers ranks active reps and managers by won value.
func (s *Service) TopPerformers(ctx context.Context, actor authz.Actor, limit int) ([]Performer, error) {
	if !authz.Can(actor, authz.TeamReports, authz.Resource{}) {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 50 {
		limit = 5
	}

	out := []Performer{}
	err := s.cached(ctx, allScope, fmt.Sprintf("top-performers:%d", limit), &out, func() error {
		var rows []struct {
			ID         uuid.UUID
			FirstName  string
			LastName   string
			Email      string
			TotalLeads int64
			WonLeads   int64
			WonValue   float64
		}
		err := s.db.WithContext(ctx).Raw(`
			SELECT u.id, u.first_name, u.last_name, u.email,
				COUNT(l.id) AS total_leads,
				COALESCE(SUM(CASE WHEN l.status = ? THEN 1 ELSE 0 END), 0) AS won_leads,
				COALESCE(SUM(CASE WHEN l.status = ? THEN l.value ELSE 0 END), 0) AS won_value
			FROM users u
			LEFT JOIN leads l ON l.owner_id = u.id AND l.deleted_at IS NULL
			WHERE u.role IN ? AND u.is_active = ? AND u.deleted_at IS NULL
			GROUP BY u.id, u.first_name, u.last_name, u.email
			ORDER BY won_value DESC, won_leads DESC
			LIMIT ?`,
			models.LeadStatusWon, models.LeadStatusWon,
			[]models.Role{models.RoleSalesExecutive, models.RoleManager}, true, limit,
		).Scan(&rows).Error
		if err != nil {
			return err
		}

		out = make([]Performer, 0, len(rows))
		for _, r := range rows {
			out = append(out, Performer{
				ID:         r.ID,
				Name:       r.FirstName + " " + r.LastName,
				Email:      r.Email,
				TotalLeads: r.TotalLeads,
				WonLeads:   r.WonLeads,
				WonValue:   r.WonValue,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ranking performers: %w", err)
	}
	return out, nil
}

func (s *Service) ActivityStats(ctx context.Context, actor authz.Actor) (*ActivityStats, error) {
	scopeKey, owner := scope(actor)
	var out ActivityStats

	err := s.cached(ctx, scopeKey, "activity-stats", &out, func() error {
		base := func() *gorm.DB {
			q := s.db.WithContext(ctx).
				Table("activities AS a").
				Joins("JOIN leads l ON a.lead_id = l.id AND l.deleted_at IS NULL").
				Where("a.deleted_at IS NULL")
			if owner != nil {
				q = q.Where("l.owner_id = ?", *owner)
			}
			return q
		}

		var totals struct {
			TotalActivities     int64
			CompletedActivities int64
			UpcomingActivities  int64
		}
		if err := base().Select(
			"COUNT(*) AS total_activities, "+
				"COALESCE(SUM(CASE WHEN a.completed_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS completed_activities, "+
				"COALESCE(SUM(CASE WHEN a.scheduled_at >= ? AND a.completed_at IS NULL THEN 1 ELSE 0 END), 0) AS upcoming_activities",
			s.now().UTC(),
		).Scan(&totals).Error; err != nil {
			return err
		}

		byType := []TypeCount{}
		if err := base().
			Select("a.type AS type, COUNT(*) AS count").
			Group("a.type").
			Order("count DESC").
			Scan(&byType).Error; err != nil {
			return err
		}

		out = ActivityStats{
			TotalActivities:     totals.TotalActivities,
			CompletedActivities: totals.CompletedActivities,
			UpcomingActivities:  totals.UpcomingActivities,
			ActivitiesByType:    byType,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("computing activity stats: %w", err)
	}
	return &out, nil
}
