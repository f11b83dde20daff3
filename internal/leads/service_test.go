package leads_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibhor121/mastersunion/internal/apperror"
	"github.com/vibhor121/mastersunion/internal/audit"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/leads"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/notifications"
	"github.com/vibhor121/mastersunion/internal/realtime"
	"github.com/vibhor121/mastersunion/internal/testutil"
	"github.com/vibhor121/mastersunion/pkg/util"
	"gorm.io/gorm"
)

type fixture struct {
	*testutil.TestSetup
	svc        *leads.Service
	dispatcher *testutil.FakeDispatcher
	emails     *testutil.FakeEmailQueue
	ctx        context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	setup := testutil.NewTestContext(t)
	dispatcher := &testutil.FakeDispatcher{}
	emails := &testutil.FakeEmailQueue{}
	composer, err := mail.NewComposer()
	require.NoError(t, err)

	logger := util.DiscardLogger()
	notifier := notifications.NewNotifier(notifications.NewStore(setup.DB), dispatcher, logger)

	return &fixture{
		TestSetup:  setup,
		svc:        leads.NewService(setup.DB, notifier, dispatcher, emails, composer, logger),
		dispatcher: dispatcher,
		emails:     emails,
		ctx:        context.Background(),
	}
}

func (f *fixture) notifications(t *testing.T, userID uuid.UUID, typ models.NotificationType) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, f.DB.Where("user_id = ? AND type = ?", userID, typ).Find(&out).Error)
	return out
}

func (f *fixture) allNotifications(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.DB.Model(&models.Notification{}).Count(&count).Error)
	return count
}

func (f *fixture) history(t *testing.T, leadID uuid.UUID) []models.LeadHistory {
	t.Helper()
	var out []models.LeadHistory
	require.NoError(t, f.DB.Where("lead_id = ?", leadID).Order("field_name").Find(&out).Error)
	return out
}

func (f *fixture) activities(t *testing.T, leadID uuid.UUID, typ models.ActivityType) []models.Activity {
	t.Helper()
	var out []models.Activity
	require.NoError(t, f.DB.Where("lead_id = ? AND type = ?", leadID, typ).Find(&out).Error)
	return out
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.LeadStatus) *models.LeadStatus { return &s }

func newLeadInput() leads.CreateInput {
	return leads.CreateInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Company:   "Analytical Engines",
		Value:     50000,
	}
}

func TestService_Create(t *testing.T) {
	t.Run("rep without owner owns the lead and nobody is notified", func(t *testing.T) {
		f := newFixture(t)
		actor := testutil.ActorFor(f.Rep)

		lead, err := f.svc.Create(f.ctx, newLeadInput(), actor)
		require.NoError(t, err)

		assert.Equal(t, f.Rep.ID, lead.OwnerID)
		assert.Equal(t, f.Rep.ID, lead.CreatedByID)
		assert.Equal(t, models.LeadStatusNew, lead.Status)
		assert.Equal(t, models.PriorityMedium, lead.Priority)
		assert.Equal(t, int64(1), lead.Version)

		created := f.activities(t, lead.ID, models.ActivityNote)
		require.Len(t, created, 1)
		assert.Equal(t, "Lead created", created[0].Title)
		assert.Equal(t, "Lead created by "+f.Rep.FullName(), created[0].Description)

		assert.Zero(t, f.allNotifications(t))
		assert.Empty(t, f.dispatcher.Events())
		assert.Empty(t, f.emails.Messages())
	})

	t.Run("rep supplied owner is ignored", func(t *testing.T) {
		f := newFixture(t)
		input := newLeadInput()
		input.OwnerID = &f.OtherRep.ID

		lead, err := f.svc.Create(f.ctx, input, testutil.ActorFor(f.Rep))
		require.NoError(t, err)
		assert.Equal(t, f.Rep.ID, lead.OwnerID)
		assert.Zero(t, f.allNotifications(t))
	})

	t.Run("manager assigning to a rep notifies the rep", func(t *testing.T) {
		f := newFixture(t)
		input := newLeadInput()
		input.OwnerID = &f.Rep.ID

		lead, err := f.svc.Create(f.ctx, input, testutil.ActorFor(f.Manager))
		require.NoError(t, err)
		assert.Equal(t, f.Rep.ID, lead.OwnerID)
		assert.Equal(t, f.Manager.ID, lead.CreatedByID)

		assigned := f.notifications(t, f.Rep.ID, models.NotificationLeadAssigned)
		require.Len(t, assigned, 1)
		assert.Equal(t, "New Lead Assigned", assigned[0].Title)
		assert.Contains(t, string(assigned[0].Metadata), lead.ID.String())
		assert.Empty(t, f.notifications(t, f.Manager.ID, models.NotificationLeadAssigned))

		pushed := f.dispatcher.DeliveredTo(f.Rep.ID)
		require.Len(t, pushed, 1)
		assert.Equal(t, realtime.EventNotificationNew, pushed[0].Event)

		sent := f.emails.Messages()
		require.Len(t, sent, 1)
		assert.Equal(t, f.Rep.Email, sent[0].To)
		assert.Equal(t, "New Lead Assigned", sent[0].Subject)
	})

	t.Run("manager assigning to an inactive user fails validation", func(t *testing.T) {
		f := newFixture(t)
		testutil.DeactivateUser(t, f.DB, f.OtherRep)
		input := newLeadInput()
		input.OwnerID = &f.OtherRep.ID

		_, err := f.svc.Create(f.ctx, input, testutil.ActorFor(f.Manager))
		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, apperror.Fields(err), "ownerId")

		unknown := uuid.New()
		input.OwnerID = &unknown
		_, err = f.svc.Create(f.ctx, input, testutil.ActorFor(f.Admin))
		assert.ErrorIs(t, err, apperror.ErrValidation)

		var count int64
		f.DB.Model(&models.Lead{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("invalid input is rejected before any write", func(t *testing.T) {
		f := newFixture(t)
		input := newLeadInput()
		input.Email = "not-an-email"
		input.Status = "ARCHIVED"

		_, err := f.svc.Create(f.ctx, input, testutil.ActorFor(f.Rep))
		fields := apperror.Fields(err)
		assert.Equal(t, "invalid email format", fields["email"])
		assert.Equal(t, "invalid status", fields["status"])
	})
}

func TestService_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	rep := testutil.ActorFor(f.Rep)
	lead, err := f.svc.Create(f.ctx, newLeadInput(), rep)
	require.NoError(t, err)

	t.Run("NEW to QUALIFIED records one entry and one notification", func(t *testing.T) {
		updated, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{Status: statusPtr(models.LeadStatusQualified)}, rep)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusQualified, updated.Status)
		assert.Equal(t, int64(2), updated.Version)

		history := f.history(t, lead.ID)
		require.Len(t, history, 1)
		assert.Equal(t, "status", history[0].FieldName)
		assert.Equal(t, "NEW", history[0].OldValue)
		assert.Equal(t, "QUALIFIED", history[0].NewValue)
		assert.Equal(t, f.Rep.FullName(), history[0].ChangedBy)

		changed := f.notifications(t, f.Rep.ID, models.NotificationLeadStatusChanged)
		require.Len(t, changed, 1)
		assert.Equal(t, "Lead status changed from NEW to QUALIFIED", changed[0].Message)

		statusLog := f.activities(t, lead.ID, models.ActivityStatusChange)
		require.Len(t, statusLog, 1)
		assert.Equal(t, "Status changed from NEW to QUALIFIED", statusLog[0].Description)

		sent := f.emails.Messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "Lead Status Updated", sent[0].Subject)

		broadcast := f.dispatcher.OnTopic(realtime.LeadTopic(lead.ID))
		require.Len(t, broadcast, 1)
		assert.Equal(t, realtime.EventLeadChanged, broadcast[0].Event)
	})

	t.Run("backward transition is accepted and announced", func(t *testing.T) {
		_, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{Status: statusPtr(models.LeadStatusWon)}, rep)
		require.NoError(t, err)
		_, err = f.svc.Update(f.ctx, lead.ID, leads.Patch{Status: statusPtr(models.LeadStatusNew)}, rep)
		require.NoError(t, err)

		assert.Len(t, f.notifications(t, f.Rep.ID, models.NotificationLeadStatusChanged), 3)
		assert.Len(t, f.activities(t, lead.ID, models.ActivityStatusChange), 3)
		assert.Len(t, f.history(t, lead.ID), 3)
	})

	t.Run("setting current values records nothing", func(t *testing.T) {
		before := f.allNotifications(t)
		value := 50000.0

		_, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{
			Status:    statusPtr(models.LeadStatusNew),
			FirstName: strPtr("Ada"),
			Value:     &value,
		}, rep)
		require.NoError(t, err)

		assert.Len(t, f.history(t, lead.ID), 3)
		assert.Equal(t, before, f.allNotifications(t))
	})
}

func TestService_UpdateAuthorization(t *testing.T) {
	f := newFixture(t)
	lead, err := f.svc.Create(f.ctx, newLeadInput(), testutil.ActorFor(f.Rep))
	require.NoError(t, err)

	t.Run("non owner rep is forbidden", func(t *testing.T) {
		_, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{Status: statusPtr(models.LeadStatusLost)}, testutil.ActorFor(f.OtherRep))
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.Empty(t, f.history(t, lead.ID))
		assert.Zero(t, f.allNotifications(t))
	})

	t.Run("unknown lead is not found", func(t *testing.T) {
		_, err := f.svc.Update(f.ctx, uuid.New(), leads.Patch{Company: strPtr("x")}, testutil.ActorFor(f.Admin))
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("owner change from a rep is silently dropped", func(t *testing.T) {
		updated, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{
			OwnerID: &f.OtherRep.ID,
			Company: strPtr("Difference Engines"),
		}, testutil.ActorFor(f.Rep))
		require.NoError(t, err)

		assert.Equal(t, f.Rep.ID, updated.OwnerID)
		assert.Equal(t, "Difference Engines", updated.Company)

		history := f.history(t, lead.ID)
		require.Len(t, history, 1)
		assert.Equal(t, "company", history[0].FieldName)
		assert.Empty(t, f.notifications(t, f.OtherRep.ID, models.NotificationLeadAssigned))
	})
}

func TestService_Reassign(t *testing.T) {
	f := newFixture(t)
	lead, err := f.svc.Create(f.ctx, newLeadInput(), testutil.ActorFor(f.Rep))
	require.NoError(t, err)

	updated, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{OwnerID: &f.OtherRep.ID}, testutil.ActorFor(f.Manager))
	require.NoError(t, err)
	assert.Equal(t, f.OtherRep.ID, updated.OwnerID)

	history := f.history(t, lead.ID)
	require.Len(t, history, 1)
	assert.Equal(t, audit.FieldOwnerID, history[0].FieldName)
	assert.Equal(t, f.Rep.ID.String(), history[0].OldValue)
	assert.Equal(t, f.OtherRep.ID.String(), history[0].NewValue)

	assigned := f.notifications(t, f.OtherRep.ID, models.NotificationLeadAssigned)
	require.Len(t, assigned, 1)
	assert.Equal(t, "Lead Assigned", assigned[0].Title)
	assert.Equal(t, `Lead "Ada Lovelace" has been assigned to you`, assigned[0].Message)
	assert.Empty(t, f.notifications(t, f.Rep.ID, models.NotificationLeadAssigned))

	assert.Len(t, f.dispatcher.DeliveredTo(f.OtherRep.ID), 1)
	assert.Empty(t, f.dispatcher.DeliveredTo(f.Rep.ID))

	t.Run("previous owner loses access", func(t *testing.T) {
		_, err := f.svc.Get(f.ctx, lead.ID, testutil.ActorFor(f.Rep))
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("status and owner change together notify the new owner twice", func(t *testing.T) {
		f.dispatcher.Reset()
		_, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{
			OwnerID: &f.Rep.ID,
			Status:  statusPtr(models.LeadStatusContacted),
		}, testutil.ActorFor(f.Admin))
		require.NoError(t, err)

		assert.Len(t, f.notifications(t, f.Rep.ID, models.NotificationLeadStatusChanged), 1)
		assert.Len(t, f.notifications(t, f.Rep.ID, models.NotificationLeadAssigned), 1)
		assert.Len(t, f.dispatcher.DeliveredTo(f.Rep.ID), 2)
	})
}

func TestService_VersionLock(t *testing.T) {
	f := newFixture(t)
	rep := testutil.ActorFor(f.Rep)
	lead, err := f.svc.Create(f.ctx, newLeadInput(), rep)
	require.NoError(t, err)

	stale := lead.Version
	_, err = f.svc.Update(f.ctx, lead.ID, leads.Patch{Company: strPtr("First"), Version: &stale}, rep)
	require.NoError(t, err)

	_, err = f.svc.Update(f.ctx, lead.ID, leads.Patch{Company: strPtr("Second"), Version: &stale}, rep)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	got, err := f.svc.Get(f.ctx, lead.ID, rep)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Company)
	assert.Equal(t, int64(2), got.Version)
	assert.Len(t, f.history(t, lead.ID), 1)
}

func TestService_BestEffortFailures(t *testing.T) {
	t.Run("email queue failure does not fail the update", func(t *testing.T) {
		f := newFixture(t)
		rep := testutil.ActorFor(f.Rep)
		lead, err := f.svc.Create(f.ctx, newLeadInput(), rep)
		require.NoError(t, err)

		f.emails.Err = errors.New("queue unavailable")
		updated, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{Status: statusPtr(models.LeadStatusProposal)}, rep)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusProposal, updated.Status)
		assert.Len(t, f.notifications(t, f.Rep.ID, models.NotificationLeadStatusChanged), 1)
	})

	t.Run("notification failure does not fail the update", func(t *testing.T) {
		f := newFixture(t)
		rep := testutil.ActorFor(f.Rep)
		lead, err := f.svc.Create(f.ctx, newLeadInput(), rep)
		require.NoError(t, err)

		require.NoError(t, f.DB.Migrator().DropTable(&models.Notification{}))

		updated, err := f.svc.Update(f.ctx, lead.ID, leads.Patch{Status: statusPtr(models.LeadStatusWon)}, rep)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusWon, updated.Status)
		assert.Len(t, f.history(t, lead.ID), 1)
		assert.Len(t, f.activities(t, lead.ID, models.ActivityStatusChange), 1)
		assert.Empty(t, f.dispatcher.DeliveredTo(f.Rep.ID))
	})

	t.Run("audit failure rolls the update back", func(t *testing.T) {
		f := newFixture(t)
		rep := testutil.ActorFor(f.Rep)
		lead, err := f.svc.Create(f.ctx, newLeadInput(), rep)
		require.NoError(t, err)

		require.NoError(t, f.DB.Migrator().DropTable(&models.LeadHistory{}))

		_, err = f.svc.Update(f.ctx, lead.ID, leads.Patch{Status: statusPtr(models.LeadStatusLost)}, rep)
		require.Error(t, err)

		got, err := f.svc.Get(f.ctx, lead.ID, rep)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusNew, got.Status)
		assert.Equal(t, int64(1), got.Version)
		assert.Zero(t, f.allNotifications(t))
	})
}

func TestService_ListGetDelete(t *testing.T) {
	f := newFixture(t)
	rep := testutil.ActorFor(f.Rep)
	other := testutil.ActorFor(f.OtherRep)

	mine, err := f.svc.Create(f.ctx, newLeadInput(), rep)
	require.NoError(t, err)

	theirs := newLeadInput()
	theirs.FirstName = "Charles"
	theirs.LastName = "Babbage"
	theirs.Email = "charles@example.com"
	theirs.Company = "Royal Society"
	theirs.Priority = models.PriorityHigh
	_, err = f.svc.Create(f.ctx, theirs, other)
	require.NoError(t, err)

	t.Run("reps see only their own leads", func(t *testing.T) {
		list, total, err := f.svc.List(f.ctx, leads.ListFilter{OwnerID: &f.OtherRep.ID}, rep)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, mine.ID, list[0].ID)
	})

	t.Run("managers filter by owner, priority and search", func(t *testing.T) {
		manager := testutil.ActorFor(f.Manager)

		_, total, err := f.svc.List(f.ctx, leads.ListFilter{}, manager)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		list, _, err := f.svc.List(f.ctx, leads.ListFilter{OwnerID: &f.OtherRep.ID}, manager)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Charles", list[0].FirstName)

		list, _, err = f.svc.List(f.ctx, leads.ListFilter{Priority: models.PriorityHigh}, manager)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, _, err = f.svc.List(f.ctx, leads.ListFilter{Search: "royal"}, manager)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Royal Society", list[0].Company)

		list, _, err = f.svc.List(f.ctx, leads.ListFilter{SortBy: "firstName", SortOrder: "asc", Page: 1, PerPage: 1}, manager)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Ada", list[0].FirstName)
	})

	t.Run("get enforces ownership", func(t *testing.T) {
		_, err := f.svc.Get(f.ctx, mine.ID, other)
		assert.ErrorIs(t, err, apperror.ErrForbidden)

		got, err := f.svc.Get(f.ctx, mine.ID, testutil.ActorFor(f.Manager))
		require.NoError(t, err)
		require.NotNil(t, got.Owner)
		assert.Equal(t, f.Rep.Email, got.Owner.Email)
	})

	t.Run("history is paged and guarded", func(t *testing.T) {
		for _, c := range []string{"A", "B", "C"} {
			_, err := f.svc.Update(f.ctx, mine.ID, leads.Patch{Company: strPtr(c)}, rep)
			require.NoError(t, err)
		}

		entries, total, err := f.svc.History(f.ctx, mine.ID, rep, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, entries, 2)

		_, _, err = f.svc.History(f.ctx, mine.ID, other, 1, 20)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("only managers delete", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.Delete(f.ctx, mine.ID, rep), apperror.ErrForbidden)

		require.NoError(t, f.svc.Delete(f.ctx, mine.ID, testutil.ActorFor(f.Manager)))
		_, err := f.svc.Get(f.ctx, mine.ID, rep)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestService_StatusSideEffectsOutliveRequest(t *testing.T) {
	f := newFixture(t)
	rep := testutil.ActorFor(f.Rep)
	lead, err := f.svc.Create(f.ctx, newLeadInput(), rep)
	require.NoError(t, err)

	// The client goes away once the status change is committed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.DB.Callback().Create().Before("gorm:create").Register("test:client_gone", func(tx *gorm.DB) {
		if a, ok := tx.Statement.Dest.(*models.Activity); ok && a.Type == models.ActivityStatusChange {
			cancel()
		}
	}))

	updated, err := f.svc.Update(ctx, lead.ID, leads.Patch{Status: statusPtr(models.LeadStatusContacted)}, rep)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusContacted, updated.Status)
	require.Error(t, ctx.Err())

	assert.Len(t, f.activities(t, lead.ID, models.ActivityStatusChange), 1)
	assert.Len(t, f.notifications(t, f.Rep.ID, models.NotificationLeadStatusChanged), 1)
	assert.Len(t, f.emails.Messages(), 1)
	assert.Len(t, f.dispatcher.OnTopic(realtime.LeadTopic(lead.ID)), 1)
}

func TestService_SearchMatchesLiterally(t *testing.T) {
	f := newFixture(t)
	rep := testutil.ActorFor(f.Rep)

	_, err := f.svc.Create(f.ctx, newLeadInput(), rep)
	require.NoError(t, err)
	underscored := newLeadInput()
	underscored.Company = "Acme_Labs"
	underscored.Email = "ops@acme.example.com"
	_, err = f.svc.Create(f.ctx, underscored, rep)
	require.NoError(t, err)

	tests := []struct {
		search string
		want   int
	}{
		{"%", 0},
		{"_", 1},
		{"e_l", 1},
		{`\`, 0},
		{"lovelace", 2},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			list, total, err := f.svc.List(f.ctx, leads.ListFilter{Search: tt.search}, rep)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.want), total)
			assert.Len(t, list, tt.want)
		})
	}
}

type invalidations struct {
	calls [][]uuid.UUID
}

func (c *invalidations) Invalidate(_ context.Context, owners ...uuid.UUID) {
	c.calls = append(c.calls, owners)
}

func TestService_InvalidatesDashboardCache(t *testing.T) {
	f := newFixture(t)
	cache := &invalidations{}
	f.svc.WithCache(cache)
	manager := testutil.ActorFor(f.Manager)

	input := newLeadInput()
	input.OwnerID = &f.Rep.ID
	lead, err := f.svc.Create(f.ctx, input, manager)
	require.NoError(t, err)
	require.Len(t, cache.calls, 1)
	assert.Equal(t, []uuid.UUID{f.Rep.ID}, cache.calls[0])

	_, err = f.svc.Update(f.ctx, lead.ID, leads.Patch{OwnerID: &f.OtherRep.ID}, manager)
	require.NoError(t, err)
	require.Len(t, cache.calls, 2)
	assert.ElementsMatch(t, []uuid.UUID{f.Rep.ID, f.OtherRep.ID}, cache.calls[1])

	// An empty patch commits nothing.
	_, err = f.svc.Update(f.ctx, lead.ID, leads.Patch{}, manager)
	require.NoError(t, err)
	assert.Len(t, cache.calls, 2)

	require.NoError(t, f.svc.Delete(f.ctx, lead.ID, manager))
	require.Len(t, cache.calls, 3)
	assert.Equal(t, []uuid.UUID{f.OtherRep.ID}, cache.calls[2])
}
