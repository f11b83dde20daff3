package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vibhor121/mastersunion/internal/activities"
	"github.com/vibhor121/mastersunion/internal/api/dto"
	"github.com/vibhor121/mastersunion/internal/api/middleware"
	"github.com/vibhor121/mastersunion/internal/database/models"
)

type ActivityHandler struct {
	errorWriter
	activities *activities.Service
}

func NewActivityHandler(svc *activities.Service, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{errorWriter: newErrorWriter(logger), activities: svc}
}

func (h *ActivityHandler) ListForLead(w http.ResponseWriter, r *http.Request) {
	leadID, ok := pathID(w, r, "id", "Lead")
	if !ok {
		return
	}
	page := dto.PaginationFromQuery(r)
	typ := models.ActivityType(r.URL.Query().Get("type"))

	items, total, err := h.activities.ListForLead(r.Context(), leadID, typ, page.Page, page.PerPage, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve activities")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewPaginated(items, total, page))
}

func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	leadID, ok := pathID(w, r, "id", "Lead")
	if !ok {
		return
	}

	var req dto.CreateActivityRequest
	if !decode(w, r, &req) {
		return
	}
	input, errs := req.ToInput()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	activity, err := h.activities.Create(r.Context(), leadID, input, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to create activity")
		return
	}

	writeJSON(w, http.StatusCreated, activity)
}

func (h *ActivityHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.activities.Upcoming(r.Context(), middleware.Actor(r.Context()), limit)
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve upcoming activities")
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Activity")
	if !ok {
		return
	}

	activity, err := h.activities.Get(r.Context(), id, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve activity")
		return
	}

	writeJSON(w, http.StatusOK, activity)
}

func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Activity")
	if !ok {
		return
	}

	var req dto.UpdateActivityRequest
	if !decode(w, r, &req) {
		return
	}
	input, errs := req.ToInput()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	activity, err := h.activities.Update(r.Context(), id, input, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to update activity")
		return
	}

	writeJSON(w, http.StatusOK, activity)
}

func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Activity")
	if !ok {
		return
	}

	if err := h.activities.Delete(r.Context(), id, middleware.Actor(r.Context())); err != nil {
		h.writeError(w, r, err, "Failed to delete activity")
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Activity deleted successfully"})
}
