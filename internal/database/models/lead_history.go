package models

import "github.com/google/uuid"

// LeadHistory is one field change on one lead. Rows are append-only.
type LeadHistory struct {
	AppendOnly
	LeadID    uuid.UUID `gorm:"type:uuid;index;not null" json:"leadId"`
	FieldName string    `gorm:"not null" json:"fieldName"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	ChangedBy string    `gorm:"not null" json:"changedBy"`
}

func (LeadHistory) TableName() string {
	return "lead_history"
}
