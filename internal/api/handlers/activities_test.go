package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibhor121/mastersunion/internal/api/dto"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/testutil"
)

type activityPage struct {
	Data  []models.Activity `json:"data"`
	Total int64             `json:"total"`
}

func TestActivityHandler_Create(t *testing.T) {
	env := setupTestRouter(t)
	lead := testutil.CreateTestLead(t, env.DB, env.Rep)
	path := "/api/v1/leads/" + lead.ID.String() + "/activities"

	t.Run("owner logs a call", func(t *testing.T) {
		rr := env.do(t, "POST", path, map[string]interface{}{
			"type":     "CALL",
			"title":    "Intro call",
			"duration": 15,
		}, env.Rep)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var activity models.Activity
		testutil.ParseJSONResponse(t, rr, &activity)
		assert.Equal(t, models.ActivityCall, activity.Type)
		assert.Equal(t, lead.ID, activity.LeadID)
		assert.Equal(t, env.Rep.ID, activity.UserID)
	})

	t.Run("manager schedules on rep's lead", func(t *testing.T) {
		at := time.Now().Add(2 * time.Hour).UTC()
		rr := env.do(t, "POST", path, map[string]interface{}{
			"type":        "MEETING",
			"title":       "Demo",
			"scheduledAt": at.Format(time.RFC3339),
		}, env.Manager)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var count int64
		require.NoError(t, env.DB.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", env.Rep.ID, models.NotificationActivityReminder).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("status change is not accepted", func(t *testing.T) {
		rr := env.do(t, "POST", path, map[string]interface{}{
			"type":  "STATUS_CHANGE",
			"title": "Moved",
		}, env.Rep)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "type")
	})

	t.Run("missing title", func(t *testing.T) {
		rr := env.do(t, "POST", path, map[string]interface{}{"type": "NOTE"}, env.Rep)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("lead of another sales executive", func(t *testing.T) {
		rr := env.do(t, "POST", path, map[string]interface{}{"type": "NOTE", "title": "Peek"}, env.OtherRep)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}

func TestActivityHandler_ListGetUpdateDelete(t *testing.T) {
	env := setupTestRouter(t)
	lead := testutil.CreateTestLead(t, env.DB, env.Rep)
	activity := testutil.CreateTestActivity(t, env.DB, lead, env.Rep, nil)
	path := "/api/v1/activities/" + activity.ID.String()

	t.Run("list for lead", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/v1/leads/"+lead.ID.String()+"/activities", nil, env.Rep)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var page activityPage
		testutil.ParseJSONResponse(t, rr, &page)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("list filtered by type", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/v1/leads/"+lead.ID.String()+"/activities?type=EMAIL", nil, env.Rep)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var page activityPage
		testutil.ParseJSONResponse(t, rr, &page)
		assert.Equal(t, int64(0), page.Total)
	})

	t.Run("get", func(t *testing.T) {
		rr := env.do(t, "GET", path, nil, env.Manager)
		testutil.AssertStatus(t, rr, http.StatusOK)

		rr = env.do(t, "GET", path, nil, env.OtherRep)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("update", func(t *testing.T) {
		rr := env.do(t, "PUT", path, map[string]interface{}{"outcome": "Interested"}, env.Rep)
		testutil.AssertStatus(t, rr, http.StatusOK)

		var updated models.Activity
		testutil.ParseJSONResponse(t, rr, &updated)
		assert.Equal(t, "Interested", updated.Outcome)

		rr = env.do(t, "PUT", path, map[string]interface{}{"outcome": "Nope"}, env.OtherRep)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("delete", func(t *testing.T) {
		rr := env.do(t, "DELETE", path, nil, env.OtherRep)
		testutil.AssertStatus(t, rr, http.StatusForbidden)

		rr = env.do(t, "DELETE", path, nil, env.Rep)
		testutil.AssertStatus(t, rr, http.StatusOK)

		rr = env.do(t, "GET", path, nil, env.Rep)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestActivityHandler_Upcoming(t *testing.T) {
	env := setupTestRouter(t)
	lead := testutil.CreateTestLead(t, env.DB, env.Rep)

	soon := time.Now().Add(time.Hour)
	later := time.Now().Add(48 * time.Hour)
	past := time.Now().Add(-time.Hour)
	second := testutil.CreateTestActivity(t, env.DB, lead, env.Rep, &later)
	first := testutil.CreateTestActivity(t, env.DB, lead, env.Rep, &soon)
	testutil.CreateTestActivity(t, env.DB, lead, env.Rep, &past)

	rr := env.do(t, "GET", "/api/v1/activities/upcoming", nil, env.Rep)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var items []models.Activity
	testutil.ParseJSONResponse(t, rr, &items)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)

	rr = env.do(t, "GET", "/api/v1/activities/upcoming", nil, env.OtherRep)
	testutil.AssertStatus(t, rr, http.StatusOK)
	items = nil
	testutil.ParseJSONResponse(t, rr, &items)
	assert.Empty(t, items)
}
