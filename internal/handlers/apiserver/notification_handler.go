package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fitsocial/internal/events"
	"fitsocial/internal/kafka"
	"fitsocial/internal/middleware"
	"fitsocial/internal/models"
	"fitsocial/internal/services"
)

// NotificationHandler serves a user's notification feed and accepts pushes
// from other subsystems. Pushes are not written directly: they go through
// Kafka so the social server can store them and deliver live in one place.
type NotificationHandler struct {
	notificationService services.NotificationService
	publisher           *kafka.SocialEventPublisher
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService services.NotificationService, publisher *kafka.SocialEventPublisher) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, publisher: publisher}
}

// ListNotificationsHandler handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	notifications, err := h.notificationService.Fetch(r.Context(), userID)
	if err != nil {
		log.Printf("Error fetching notifications for user %d: %v", userID, err)
		writeJSONError(w, "failed to fetch notifications", http.StatusInternalServerError)
		return
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	writeJSONResponse(w, http.StatusOK, notifications)
}

// MarkNotificationSeenHandler handles POST /api/v1/notifications/{notificationID}/seen
func (h *NotificationHandler) MarkNotificationSeenHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	notificationID, ok := pathID(r, "notificationID")
	if !ok {
		writeJSONError(w, "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := h.notificationService.MarkSeen(r.Context(), notificationID); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error marking notification %d seen: %v", notificationID, err)
			writeJSONError(w, "failed to mark notification seen", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "notification marked seen"})
}

// PushNotificationHandler handles POST /api/v1/notifications
// It accepts a notification event from another subsystem and enqueues it for
// the social server.
func (h *NotificationHandler) PushNotificationHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	var event events.NotificationEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if event.UserID == 0 || event.Text == "" {
		writeJSONError(w, "userId and text are required", http.StatusBadRequest)
		return
	}

	if err := h.publisher.PublishNotification(r.Context(), event); err != nil {
		log.Printf("Error publishing notification for user %d: %v", event.UserID, err)
		writeJSONError(w, "failed to enqueue notification", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusAccepted, map[string]string{"message": "notification enqueued"})
}
