package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vibhor121/mastersunion/internal/api/dto"
	"github.com/vibhor121/mastersunion/internal/api/middleware"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/leads"
)

type LeadHandler struct {
	errorWriter
	leads *leads.Service
}

func NewLeadHandler(svc *leads.Service, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{errorWriter: newErrorWriter(logger), leads: svc}
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := dto.PaginationFromQuery(r)

	filter := leads.ListFilter{
		Status:    models.LeadStatus(q.Get("status")),
		Priority:  models.Priority(q.Get("priority")),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      page.Page,
		PerPage:   page.PerPage,
	}
	if raw := q.Get("ownerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeValidation(w, map[string]string{"ownerId": "ownerId must be a valid id"})
			return
		}
		filter.OwnerID = &id
	}

	list, total, err := h.leads.List(r.Context(), filter, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve leads")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewPaginated(list, total, page))
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Lead")
	if !ok {
		return
	}

	lead, err := h.leads.Get(r.Context(), id, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve lead")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLeadRequest
	if !decode(w, r, &req) {
		return
	}
	input, errs := req.ToInput()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	lead, err := h.leads.Create(r.Context(), input, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to create lead")
		return
	}

	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Lead")
	if !ok {
		return
	}

	var req dto.UpdateLeadRequest
	if !decode(w, r, &req) {
		return
	}
	patch, errs := req.ToPatch()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	lead, err := h.leads.Update(r.Context(), id, patch, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to update lead")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Lead")
	if !ok {
		return
	}

	if err := h.leads.Delete(r.Context(), id, middleware.Actor(r.Context())); err != nil {
		h.writeError(w, r, err, "Failed to delete lead")
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Lead deleted successfully"})
}

func (h *LeadHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Lead")
	if !ok {
		return
	}
	page := dto.PaginationFromQuery(r)

	entries, total, err := h.leads.History(r.Context(), id, middleware.Actor(r.Context()), page.Page, page.PerPage)
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve lead history")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewPaginated(entries, total, page))
}
