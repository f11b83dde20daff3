package leads

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/audit"
	"github.com/vibhor121/mastersunion/internal/database/models"
)

// CreateInput carries a new lead. A zero Status or Priority takes the
// column default.
type CreateInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Position  string
	Source    string
	Status    models.LeadStatus
	Priority  models.Priority
	Value     float64
	Notes     string
	OwnerID   *uuid.UUID
}

func (in CreateInput) Validate() map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(in.FirstName) == "" {
		errs["firstName"] = "first name is required"
	}
	if strings.TrimSpace(in.LastName) == "" {
		errs["lastName"] = "last name is required"
	}
	if in.Email == "" {
		errs["email"] = "email is required"
	} else if !validEmail(in.Email) {
		errs["email"] = "invalid email format"
	}
	if in.Status != "" && !in.Status.Valid() {
		errs["status"] = "invalid status"
	}
	if in.Priority != "" && !in.Priority.Valid() {
		errs["priority"] = "invalid priority"
	}
	if in.Value < 0 {
		errs["value"] = "value cannot be negative"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Patch is a partial update. Only non-nil fields are applied and diffed.
type Patch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Company   *string
	Position  *string
	Source    *string
	Status    *models.LeadStatus
	Priority  *models.Priority
	Value     *float64
	Notes     *string
	OwnerID   *uuid.UUID

	// Version, when set, must equal the stored version.
	Version *int64
}

func (p Patch) Validate() map[string]string {
	errs := make(map[string]string)

	if p.FirstName != nil && strings.TrimSpace(*p.FirstName) == "" {
		errs["firstName"] = "first name cannot be empty"
	}
	if p.LastName != nil && strings.TrimSpace(*p.LastName) == "" {
		errs["lastName"] = "last name cannot be empty"
	}
	if p.Email != nil && !validEmail(*p.Email) {
		errs["email"] = "invalid email format"
	}
	if p.Status != nil && !p.Status.Valid() {
		errs["status"] = "invalid status"
	}
	if p.Priority != nil && !p.Priority.Valid() {
		errs["priority"] = "invalid priority"
	}
	if p.Value != nil && *p.Value < 0 {
		errs["value"] = "value cannot be negative"
	}
	if p.OwnerID != nil && *p.OwnerID == uuid.Nil {
		errs["ownerId"] = "invalid owner"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// normalize trims identity fields so the diff sees what is stored.
func (p *Patch) normalize() {
	for _, f := range []**string{&p.FirstName, &p.LastName, &p.Email} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
}

// tracked renders the supplied tracked fields canonically for diffing.
func (p Patch) tracked() map[string]string {
	out := make(map[string]string)
	put := func(field string, v interface{}, present bool) {
		if present {
			out[field] = audit.Stringify(v)
		}
	}

	put(audit.FieldFirstName, p.FirstName, p.FirstName != nil)
	put(audit.FieldLastName, p.LastName, p.LastName != nil)
	put(audit.FieldEmail, p.Email, p.Email != nil)
	put(audit.FieldPhone, p.Phone, p.Phone != nil)
	put(audit.FieldCompany, p.Company, p.Company != nil)
	put(audit.FieldPosition, p.Position, p.Position != nil)
	put(audit.FieldSource, p.Source, p.Source != nil)
	put(audit.FieldValue, p.Value, p.Value != nil)
	put(audit.FieldOwnerID, p.OwnerID, p.OwnerID != nil)
	if p.Status != nil {
		out[audit.FieldStatus] = string(*p.Status)
	}
	if p.Priority != nil {
		out[audit.FieldPriority] = string(*p.Priority)
	}
	return out
}

// columns maps the supplied fields to database columns.
func (p Patch) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.FirstName != nil {
		cols["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		cols["last_name"] = *p.LastName
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Company != nil {
		cols["company"] = *p.Company
	}
	if p.Position != nil {
		cols["position"] = *p.Position
	}
	if p.Source != nil {
		cols["source"] = *p.Source
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Priority != nil {
		cols["priority"] = *p.Priority
	}
	if p.Value != nil {
		cols["value"] = *p.Value
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	if p.OwnerID != nil {
		cols["owner_id"] = *p.OwnerID
	}
	return cols
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
