package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string

// Wire-stable notification categories.
const (
	NotificationLeadAssigned      NotificationType = "LEAD_ASSIGNED"
	NotificationLeadStatusChanged NotificationType = "LEAD_STATUS_CHANGED"
	NotificationActivityReminder  NotificationType = "ACTIVITY_REMINDER"
	NotificationSystemAlert       NotificationType = "SYSTEM_ALERT"
	NotificationMention           NotificationType = "MENTION"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLeadAssigned, NotificationLeadStatusChanged, NotificationActivityReminder,
		NotificationSystemAlert, NotificationMention:
		return true
	}
	return false
}

type Notification struct {
	Base
	UserID   uuid.UUID        `gorm:"type:uuid;index;not null" json:"userId"`
	Title    string           `gorm:"not null" json:"title"`
	Message  string           `gorm:"type:text;not null" json:"message"`
	Type     NotificationType `gorm:"not null;index" json:"type"`
	IsRead   bool             `gorm:"default:false;index" json:"isRead"`
	Metadata datatypes.JSON   `json:"metadata,omitempty"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
