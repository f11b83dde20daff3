package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vibhor121/mastersunion/internal/api/dto"
	"github.com/vibhor121/mastersunion/internal/api/middleware"
	"github.com/vibhor121/mastersunion/internal/notifications"
)

type NotificationHandler struct {
	errorWriter
	store *notifications.Store
}

func NewNotificationHandler(store *notifications.Store, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{errorWriter: newErrorWriter(logger), store: store}
}

type notificationList struct {
	dto.PaginatedResponse
	UnreadCount int64 `json:"unreadCount"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page := dto.PaginationFromQuery(r)

	var filter notifications.Filter
	if raw := r.URL.Query().Get("isRead"); raw != "" {
		isRead, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidation(w, map[string]string{"isRead": "isRead must be a boolean"})
			return
		}
		filter.IsRead = &isRead
	}

	items, total, err := h.store.ListFor(r.Context(), userID, filter, notifications.Page{Page: page.Page, PerPage: page.PerPage})
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve notifications")
		return
	}
	unread, err := h.store.UnreadCount(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve notifications")
		return
	}

	writeJSON(w, http.StatusOK, notificationList{
		PaginatedResponse: dto.NewPaginated(items, total, page),
		UnreadCount:       unread,
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to retrieve unread count")
		return
	}

	writeJSON(w, http.StatusOK, dto.CountResponse{Count: count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Notification")
	if !ok {
		return
	}

	n, err := h.store.MarkRead(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to mark notification as read")
		return
	}

	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	flipped, err := h.store.MarkAllRead(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "Failed to mark notifications as read")
		return
	}

	writeJSON(w, http.StatusOK, dto.CountResponse{Count: flipped})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Notification")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		h.writeError(w, r, err, "Failed to delete notification")
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Notification deleted successfully"})
}
