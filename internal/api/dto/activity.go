package dto

import (
	"time"

	"github.com/vibhor121/mastersunion/internal/activities"
	"github.com/vibhor121/mastersunion/internal/api/validation"
	"github.com/vibhor121/mastersunion/internal/database/models"
)

// STATUS_CHANGE is written by the lead pipeline only.
type CreateActivityRequest struct {
	Type        string     `json:"type" validate:"required,oneof=CALL EMAIL MEETING NOTE TASK"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=10000"`
	Outcome     string     `json:"outcome" validate:"max=1000"`
	Duration    *int       `json:"duration" validate:"omitempty,gte=0"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (r *CreateActivityRequest) ToInput() (activities.CreateInput, map[string]string) {
	r.Title = validation.Sanitize(r.Title)
	r.Description = validation.Sanitize(r.Description)
	r.Outcome = validation.Sanitize(r.Outcome)

	in := activities.CreateInput{
		Type:        models.ActivityType(r.Type),
		Title:       r.Title,
		Description: r.Description,
		Outcome:     r.Outcome,
		Duration:    r.Duration,
		ScheduledAt: r.ScheduledAt,
		CompletedAt: r.CompletedAt,
	}
	return in, validation.Struct(r)
}

type UpdateActivityRequest struct {
	Type        *string    `json:"type" validate:"omitempty,oneof=CALL EMAIL MEETING NOTE TASK"`
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	Outcome     *string    `json:"outcome" validate:"omitempty,max=1000"`
	Duration    *int       `json:"duration" validate:"omitempty,gte=0"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (r *UpdateActivityRequest) ToInput() (activities.UpdateInput, map[string]string) {
	r.Title = validation.SanitizePtr(r.Title)
	r.Description = validation.SanitizePtr(r.Description)
	r.Outcome = validation.SanitizePtr(r.Outcome)

	in := activities.UpdateInput{
		Title:       r.Title,
		Description: r.Description,
		Outcome:     r.Outcome,
		Duration:    r.Duration,
		ScheduledAt: r.ScheduledAt,
		CompletedAt: r.CompletedAt,
	}
	if r.Type != nil {
		t := models.ActivityType(*r.Type)
		in.Type = &t
	}
	return in, validation.Struct(r)
}
