// Package authz is the single authorization capability check for the CRM.
//
// Rules:
//   - ADMIN and MANAGER may act on any lead, activity and notification owner's leads
//   - SALES_EXECUTIVE may only act on leads they own
//   - only privileged roles may assign or reassign a lead's owner
//   - only ADMIN may create, delete, or change the role of users
package authz

import (
	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/database/models"
)

// Actor is the verified identity behind an operation.
type Actor struct {
	ID    uuid.UUID
	Role  models.Role
	Name  string
	Email string
}

// Label is the human-readable actor description stored on history rows.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

type Action string

const (
	LeadView       Action = "lead:view"
	LeadUpdate     Action = "lead:update"
	LeadDelete     Action = "lead:delete"
	LeadAssign     Action = "lead:assign"
	LeadListAll    Action = "lead:list_all"
	ActivityModify Action = "activity:modify"
	UserList       Action = "user:list"
	UserView       Action = "user:view"
	UserUpdate     Action = "user:update"
	UserAdminister Action = "user:administer"
	TeamReports    Action = "dashboard:team"
)

// Resource describes the entity an action targets. Zero fields are ignored.
type Resource struct {
	OwnerID  uuid.UUID // lead owner, or the user record being viewed/updated
	AuthorID uuid.UUID // activity author
}

// Can reports whether actor may perform action on res.
func Can(actor Actor, action Action, res Resource) bool {
	if actor.ID == uuid.Nil {
		return false
	}
	privileged := actor.Role.Privileged()

	switch action {
	case LeadView, LeadUpdate:
		return privileged || res.OwnerID == actor.ID
	case LeadDelete, LeadAssign, LeadListAll, UserList, TeamReports:
		return privileged
	case ActivityModify:
		return privileged || res.AuthorID == actor.ID || res.OwnerID == actor.ID
	case UserView, UserUpdate:
		return privileged || res.OwnerID == actor.ID
	case UserAdminister:
		return actor.Role == models.RoleAdmin
	}
	return false
}
