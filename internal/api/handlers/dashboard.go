package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vibhor121/mastersunion/internal/api/middleware"
	"github.com/vibhor121/mastersunion/internal/dashboard"
)

type DashboardHandler struct {
	errorWriter
	dashboard *dashboard.Service
}

func NewDashboardHandler(svc *dashboard.Service, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{errorWriter: newErrorWriter(logger), dashboard: svc}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve dashboard statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) LeadsByStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.LeadsByStatus(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve leads by status")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) LeadsByPriority(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.LeadsByPriority(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve leads by priority")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	out, err := h.dashboard.Timeline(r.Context(), middleware.Actor(r.Context()), days)
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve leads timeline")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) TopPerformers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	out, err := h.dashboard.TopPerformers(r.Context(), middleware.Actor(r.Context()), limit)
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve top performers")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) ActivityStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.ActivityStats(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve activity statistics")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
