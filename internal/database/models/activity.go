package models

import (
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityCall         ActivityType = "CALL"
	ActivityEmail        ActivityType = "EMAIL"
	ActivityMeeting      ActivityType = "MEETING"
	ActivityNote         ActivityType = "NOTE"
	ActivityTask         ActivityType = "TASK"
	ActivityStatusChange ActivityType = "STATUS_CHANGE"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask, ActivityStatusChange:
		return true
	}
	return false
}

type Activity struct {
	Base
	Type        ActivityType `gorm:"not null;index" json:"type"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Outcome     string       `json:"outcome,omitempty"`
	Duration    *int         `json:"duration,omitempty"` // minutes
	ScheduledAt *time.Time   `gorm:"index" json:"scheduledAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`

	// ReminderSentAt is set by the reminder sweep so a scheduled activity is
	// reminded at most once.
	ReminderSentAt *time.Time `json:"-"`

	LeadID uuid.UUID `gorm:"type:uuid;index;not null" json:"leadId"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`

	// Relationships
	Lead *Lead `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Activity) TableName() string {
	return "activities"
}
