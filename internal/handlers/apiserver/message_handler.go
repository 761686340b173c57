package apiserver

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"fitsocial/internal/middleware"
	"fitsocial/internal/models"
	"fitsocial/internal/services"
)

// MessageHandler serves the read side of the message store: conversation
// summaries and paginated history. Sending and seen-state go over the
// websocket surface.
type MessageHandler struct {
	messageService services.MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// ListConversationsHandler handles GET /api/v1/conversations
func (h *MessageHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	summaries, err := h.messageService.ConversationSummaries(r.Context(), userID)
	if err != nil {
		log.Printf("Error building conversation summaries for user %d: %v", userID, err)
		writeJSONError(w, "failed to fetch conversations", http.StatusInternalServerError)
		return
	}

	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	writeJSONResponse(w, http.StatusOK, summaries)
}

// GetMessagesHandler handles GET /api/v1/conversations/{friendID}/messages?page=&pageSize=
// The conversation is addressed by the friend on the other side of it; the
// room is resolved internally.
func (h *MessageHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	friendID, ok := pathID(r, "friendID")
	if !ok {
		writeJSONError(w, "invalid friend id", http.StatusBadRequest)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", services.DefaultPageSize)

	messagePage, err := h.messageService.FetchMessages(r.Context(), userID, friendID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			writeJSONError(w, "no conversation with this user", http.StatusNotFound)
		} else {
			log.Printf("Error fetching messages between %d and %d: %v", userID, friendID, err)
			writeJSONError(w, "failed to fetch messages", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, messagePage)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
