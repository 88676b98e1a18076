package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/groupbuy-service/internal/notification"
)

type SendMessageRequest struct {
	UserID   uuid.UUID             `json:"user_id" validate:"required"`
	Title    string                `json:"title" validate:"required,max=200"`
	Message  string                `json:"message" validate:"required,max=4000"`
	Severity notification.Severity `json:"severity" validate:"omitempty,oneof=info success warning error"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

type NotificationHandler struct {
	service  notification.Service
	validate *validator.Validate
}

func NewNotificationHandler(service notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service, validate: newValidator()}
}

func (h *NotificationHandler) RegisterUserRoutes(router chi.Router) {
	router.Get("/notifications/mine", h.handleListMine)
	router.Get("/notifications/unread-count", h.handleUnreadCount)
	router.Post("/notifications/{id}/read", h.handleMarkRead)
}

func (h *NotificationHandler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/notifications", h.handleSendMessage)
}

func (h *NotificationHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid unread parameter")
			return
		}
		unreadOnly = v
	}

	list, err := h.service.ListMine(r.Context(), id.UserID, unreadOnly)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list notifications")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.service.UnreadCount(r.Context(), id.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to count notifications")
		return
	}
	respondWithJSON(w, http.StatusOK, UnreadCountResponse{Unread: n})
}

func (h *NotificationHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	notificationID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(r.Context(), id.UserID, notificationID); err != nil {
		respondWithServiceError(w, err, "Failed to mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	n, err := h.service.SendMessage(r.Context(), req.UserID, req.Title, req.Message, req.Severity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to send message")
		return
	}
	respondWithJSON(w, http.StatusCreated, n)
}
