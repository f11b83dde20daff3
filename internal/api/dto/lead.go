package dto

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/api/validation"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/leads"
)

// Value accepts a JSON number or a numeric string.
type CreateLeadRequest struct {
	FirstName string       `json:"firstName" validate:"required,max=100"`
	LastName  string       `json:"lastName" validate:"required,max=100"`
	Email     string       `json:"email" validate:"required,email"`
	Phone     string       `json:"phone" validate:"max=50"`
	Company   string       `json:"company" validate:"max=200"`
	Position  string       `json:"position" validate:"max=200"`
	Source    string       `json:"source" validate:"max=100"`
	Status    string       `json:"status" validate:"omitempty,oneof=NEW CONTACTED QUALIFIED PROPOSAL NEGOTIATION WON LOST INACTIVE"`
	Priority  string       `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Value     *json.Number `json:"value"`
	Notes     string       `json:"notes" validate:"max=10000"`
	OwnerID   *string      `json:"ownerId" validate:"omitempty,uuid"`
}

func (r *CreateLeadRequest) sanitize() {
	for _, f := range []*string{&r.FirstName, &r.LastName, &r.Phone, &r.Company, &r.Position, &r.Source, &r.Notes} {
		*f = validation.Sanitize(*f)
	}
}

// ToInput validates the request and converts it to the service input.
func (r *CreateLeadRequest) ToInput() (leads.CreateInput, map[string]string) {
	r.sanitize()
	errs := validation.Struct(r)
	if errs == nil {
		errs = make(map[string]string)
	}

	in := leads.CreateInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Position:  r.Position,
		Source:    r.Source,
		Status:    models.LeadStatus(r.Status),
		Priority:  models.Priority(r.Priority),
		Notes:     r.Notes,
	}

	if v, ok := parseValue(r.Value, errs); ok && v != nil {
		in.Value = *v
	}
	if r.OwnerID != nil && errs["ownerId"] == "" {
		id := uuid.MustParse(*r.OwnerID)
		in.OwnerID = &id
	}

	if len(errs) > 0 {
		return in, errs
	}
	return in, nil
}

type UpdateLeadRequest struct {
	FirstName *string      `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string      `json:"lastName" validate:"omitempty,min=1,max=100"`
	Email     *string      `json:"email" validate:"omitempty,email"`
	Phone     *string      `json:"phone" validate:"omitempty,max=50"`
	Company   *string      `json:"company" validate:"omitempty,max=200"`
	Position  *string      `json:"position" validate:"omitempty,max=200"`
	Source    *string      `json:"source" validate:"omitempty,max=100"`
	Status    *string      `json:"status" validate:"omitempty,oneof=NEW CONTACTED QUALIFIED PROPOSAL NEGOTIATION WON LOST INACTIVE"`
	Priority  *string      `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Value     *json.Number `json:"value"`
	Notes     *string      `json:"notes" validate:"omitempty,max=10000"`
	OwnerID   *string      `json:"ownerId" validate:"omitempty,uuid"`
	Version   *int64       `json:"version" validate:"omitempty,gte=1"`
}

func (r *UpdateLeadRequest) sanitize() {
	for _, f := range []**string{&r.FirstName, &r.LastName, &r.Phone, &r.Company, &r.Position, &r.Source, &r.Notes} {
		*f = validation.SanitizePtr(*f)
	}
}

func (r *UpdateLeadRequest) ToPatch() (leads.Patch, map[string]string) {
	r.sanitize()
	errs := validation.Struct(r)
	if errs == nil {
		errs = make(map[string]string)
	}

	p := leads.Patch{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Position:  r.Position,
		Source:    r.Source,
		Notes:     r.Notes,
		Version:   r.Version,
	}
	if r.Status != nil {
		s := models.LeadStatus(*r.Status)
		p.Status = &s
	}
	if r.Priority != nil {
		pr := models.Priority(*r.Priority)
		p.Priority = &pr
	}
	if v, ok := parseValue(r.Value, errs); ok {
		p.Value = v
	}
	if r.OwnerID != nil && errs["ownerId"] == "" {
		id := uuid.MustParse(*r.OwnerID)
		p.OwnerID = &id
	}

	if len(errs) > 0 {
		return p, errs
	}
	return p, nil
}

func parseValue(n *json.Number, errs map[string]string) (*float64, bool) {
	if n == nil {
		return nil, true
	}
	v, err := n.Float64()
	if err != nil {
		errs["value"] = "value must be a number"
		return nil, false
	}
	if v < 0 {
		errs["value"] = "value must be greater than or equal to 0"
		return nil, false
	}
	return &v, true
}
