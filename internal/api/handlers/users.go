package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vibhor121/mastersunion/internal/api/dto"
	"github.com/vibhor121/mastersunion/internal/api/middleware"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/users"
)

type UserHandler struct {
	errorWriter
	users *users.Service
}

func NewUserHandler(svc *users.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{errorWriter: newErrorWriter(logger), users: svc}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := dto.PaginationFromQuery(r)

	filter := users.ListFilter{
		Role:    models.Role(q.Get("role")),
		Search:  q.Get("search"),
		Page:    page.Page,
		PerPage: page.PerPage,
	}
	if raw := q.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidation(w, map[string]string{"isActive": "isActive must be a boolean"})
			return
		}
		filter.IsActive = &active
	}

	list, total, err := h.users.List(r.Context(), filter, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve users")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewPaginated(list, total, page))
}

func (h *UserHandler) Assignable(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.Assignable(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve sales executives")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "User")
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	input, errs := req.ToInput()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	user, err := h.users.Create(r.Context(), input, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "User")
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}
	input, errs := req.ToInput()
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	user, err := h.users.Update(r.Context(), id, input, middleware.Actor(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "User")
	if !ok {
		return
	}

	if err := h.users.Deactivate(r.Context(), id, middleware.Actor(r.Context())); err != nil {
		h.writeError(w, r, err, "Failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "User deactivated successfully"})
}
