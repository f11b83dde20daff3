package audit_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibhor121/mastersunion/internal/audit"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/testutil"
	"gorm.io/gorm"
)

func TestStringify(t *testing.T) {
	id := uuid.New()
	when := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", "NEW", "NEW"},
		{"whole float", 50000.0, "50000"},
		{"fractional float", 1234.5, "1234.5"},
		{"int", 42, "42"},
		{"uuid", id, id.String()},
		{"nil uuid", uuid.Nil, ""},
		{"time", when, "2024-03-01T10:00:00Z"},
		{"nil time pointer", (*time.Time)(nil), ""},
		{"status", models.LeadStatusWon, "WON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, audit.Stringify(tt.in))
		})
	}
}

func TestDiff(t *testing.T) {
	leadID := uuid.New()
	lead := &models.Lead{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Status:    models.LeadStatusNew,
		Priority:  models.PriorityMedium,
		Value:     50000,
		Notes:     "met at conference",
		OwnerID:   uuid.New(),
	}
	old := audit.Snapshot(lead)

	t.Run("equal canonical values produce nothing", func(t *testing.T) {
		patch := map[string]string{
			audit.FieldValue:  audit.Stringify("50000"),
			audit.FieldStatus: "NEW",
		}
		assert.Empty(t, audit.Diff(leadID, old, patch, "Mgr One"))
	})

	t.Run("single status change", func(t *testing.T) {
		patch := map[string]string{audit.FieldStatus: "QUALIFIED"}
		entries := audit.Diff(leadID, old, patch, "Ada Rep")
		require.Len(t, entries, 1)
		assert.Equal(t, leadID, entries[0].LeadID)
		assert.Equal(t, "status", entries[0].FieldName)
		assert.Equal(t, "NEW", entries[0].OldValue)
		assert.Equal(t, "QUALIFIED", entries[0].NewValue)
		assert.Equal(t, "Ada Rep", entries[0].ChangedBy)
	})

	t.Run("untracked and absent keys are ignored", func(t *testing.T) {
		patch := map[string]string{
			"notes":          "changed",
			"version":        "9",
			audit.FieldPhone: "",
		}
		assert.Empty(t, audit.Diff(leadID, old, patch, "x"))
	})

	t.Run("entries are sorted by field", func(t *testing.T) {
		newOwner := uuid.New()
		patch := map[string]string{
			audit.FieldPriority: "HIGH",
			audit.FieldOwnerID:  audit.Stringify(newOwner),
			audit.FieldCompany:  "Analytical Engines",
		}
		entries := audit.Diff(leadID, old, patch, "x")
		require.Len(t, entries, 3)
		assert.Equal(t, []string{"company", "ownerId", "priority"},
			[]string{entries[0].FieldName, entries[1].FieldName, entries[2].FieldName})

		owner, ok := audit.Changed(entries, audit.FieldOwnerID)
		require.True(t, ok)
		assert.Equal(t, lead.OwnerID.String(), owner.OldValue)
		assert.Equal(t, newOwner.String(), owner.NewValue)

		_, ok = audit.Changed(entries, audit.FieldStatus)
		assert.False(t, ok)
	})
}

func TestRecord(t *testing.T) {
	setup := testutil.NewTestContext(t)
	lead := testutil.CreateTestLead(t, setup.DB, setup.Rep)

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, audit.Record(setup.DB, nil))
	})

	t.Run("rows are written inside the caller's transaction", func(t *testing.T) {
		entries := audit.Diff(lead.ID, audit.Snapshot(lead), map[string]string{
			audit.FieldStatus:   "CONTACTED",
			audit.FieldPriority: "HIGH",
		}, "Test Rep")

		err := setup.DB.Transaction(func(tx *gorm.DB) error {
			return audit.Record(tx, entries)
		})
		require.NoError(t, err)

		var count int64
		setup.DB.Model(&models.LeadHistory{}).Where("lead_id = ?", lead.ID).Count(&count)
		assert.Equal(t, int64(2), count)
	})

	t.Run("rollback discards rows", func(t *testing.T) {
		entries := audit.Diff(lead.ID, audit.Snapshot(lead), map[string]string{
			audit.FieldSource: "referral",
		}, "Test Rep")

		err := setup.DB.Transaction(func(tx *gorm.DB) error {
			if err := audit.Record(tx, entries); err != nil {
				return err
			}
			return gorm.ErrInvalidTransaction
		})
		require.Error(t, err)

		var count int64
		setup.DB.Model(&models.LeadHistory{}).Where("lead_id = ? AND field_name = ?", lead.ID, "source").Count(&count)
		assert.Equal(t, int64(0), count)
	})
}
