package models

import "github.com/google/uuid"

type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "NEW"
	LeadStatusContacted   LeadStatus = "CONTACTED"
	LeadStatusQualified   LeadStatus = "QUALIFIED"
	LeadStatusProposal    LeadStatus = "PROPOSAL"
	LeadStatusNegotiation LeadStatus = "NEGOTIATION"
	LeadStatusWon         LeadStatus = "WON"
	LeadStatusLost        LeadStatus = "LOST"
	LeadStatusInactive    LeadStatus = "INACTIVE"
)

// LeadStatuses lists every accepted status. Any value may follow any other;
// only membership is checked.
var LeadStatuses = []LeadStatus{
	LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusProposal,
	LeadStatusNegotiation, LeadStatusWon, LeadStatusLost, LeadStatusInactive,
}

func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

type Lead struct {
	Base
	FirstName string     `gorm:"not null" json:"firstName"`
	LastName  string     `gorm:"not null" json:"lastName"`
	Email     string     `gorm:"not null;index" json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Company   string     `gorm:"index" json:"company,omitempty"`
	Position  string     `json:"position,omitempty"`
	Source    string     `json:"source,omitempty"`
	Status    LeadStatus `gorm:"not null;index;default:'NEW'" json:"status"`
	Priority  Priority   `gorm:"not null;index;default:'MEDIUM'" json:"priority"`
	Value     float64    `gorm:"default:0" json:"value"`
	Notes     string     `gorm:"type:text" json:"notes,omitempty"`

	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`
	CreatedByID uuid.UUID `gorm:"type:uuid;index;not null" json:"createdById"`

	// Version is bumped on every update and used as an optimistic lock.
	Version int64 `gorm:"not null;default:1" json:"version"`

	// Relationships
	Owner      *User         `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedBy  *User         `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	Activities []Activity    `gorm:"foreignKey:LeadID" json:"-"`
	History    []LeadHistory `gorm:"foreignKey:LeadID" json:"-"`
}

func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) FullName() string {
	return l.FirstName + " " + l.LastName
}
