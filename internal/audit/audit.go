// Package audit turns a lead patch into append-only field history.
package audit

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"gorm.io/gorm"
)

// Tracked lead fields, by their wire name.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldCompany   = "company"
	FieldPosition  = "position"
	FieldStatus    = "status"
	FieldSource    = "source"
	FieldValue     = "value"
	FieldPriority  = "priority"
	FieldOwnerID   = "ownerId"
)

var trackedFields = map[string]struct{}{
	FieldFirstName: {}, FieldLastName: {}, FieldEmail: {}, FieldPhone: {},
	FieldCompany: {}, FieldPosition: {}, FieldStatus: {}, FieldSource: {},
	FieldValue: {}, FieldPriority: {}, FieldOwnerID: {},
}

// Tracked reports whether changes to field are recorded.
func Tracked(field string) bool {
	_, ok := trackedFields[field]
	return ok
}

// Stringify renders a field value canonically so equal values of different
// shapes compare equal, such as the number 50000 and the string "50000".
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case uuid.UUID:
		if x == uuid.Nil {
			return ""
		}
		return x.String()
	case *uuid.UUID:
		if x == nil || *x == uuid.Nil {
			return ""
		}
		return x.String()
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	case *time.Time:
		if x == nil || x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Snapshot captures the tracked fields of a lead in canonical form.
func Snapshot(l *models.Lead) map[string]string {
	return map[string]string{
		FieldFirstName: l.FirstName,
		FieldLastName:  l.LastName,
		FieldEmail:     l.Email,
		FieldPhone:     l.Phone,
		FieldCompany:   l.Company,
		FieldPosition:  l.Position,
		FieldStatus:    string(l.Status),
		FieldSource:    l.Source,
		FieldValue:     Stringify(l.Value),
		FieldPriority:  string(l.Priority),
		FieldOwnerID:   Stringify(l.OwnerID),
	}
}

// Diff compares the patch against the old snapshot and returns one entry per
// tracked field whose canonical value changed. Keys absent from the patch are
// never considered. Entries are ordered by field name.
func Diff(leadID uuid.UUID, old, patch map[string]string, changedBy string) []models.LeadHistory {
	fields := make([]string, 0, len(patch))
	for field := range patch {
		if Tracked(field) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	var entries []models.LeadHistory
	for _, field := range fields {
		next := patch[field]
		prev := old[field]
		if prev == next {
			continue
		}
		entries = append(entries, models.LeadHistory{
			LeadID:    leadID,
			FieldName: field,
			OldValue:  prev,
			NewValue:  next,
			ChangedBy: changedBy,
		})
	}
	return entries
}

// Record inserts entries inside the caller's transaction. An error must
// abort that transaction.
func Record(tx *gorm.DB, entries []models.LeadHistory) error {
	if len(entries) == 0 {
		return nil
	}
	if err := tx.Create(&entries).Error; err != nil {
		return fmt.Errorf("recording lead history: %w", err)
	}
	return nil
}

// Changed returns the new value of field when entries contain it.
func Changed(entries []models.LeadHistory, field string) (models.LeadHistory, bool) {
	for _, e := range entries {
		if e.FieldName == field {
			return e, true
		}
	}
	return models.LeadHistory{}, false
}
