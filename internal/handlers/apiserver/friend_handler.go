package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fitsocial/internal/middleware"
	"fitsocial/internal/models"
	"fitsocial/internal/services"
)

// FriendHandler handles HTTP requests for the friend graph: requests,
// replies, and friendship status changes. Durable state goes through the
// friend service; fan-out to the other party goes through the notifier,
// which publishes to Kafka for the social server to deliver.
type FriendHandler struct {
	friendService services.FriendService
	notifier      services.FriendNotifier
}

// NewFriendHandler creates a new FriendHandler.
func NewFriendHandler(friendService services.FriendService, notifier services.FriendNotifier) *FriendHandler {
	return &FriendHandler{friendService: friendService, notifier: notifier}
}

// SendFriendRequestPayload is the JSON body for sending a friend request.
type SendFriendRequestPayload struct {
	ReceiverID  uint   `json:"receiverId"`
	Description string `json:"description,omitempty"`
}

// SendFriendRequestHandler handles POST /api/v1/friend-requests
func (h *FriendHandler) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	adderID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	var payload SendFriendRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.ReceiverID == 0 {
		writeJSONError(w, "missing receiverId", http.StatusBadRequest)
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), adderID, payload.ReceiverID, payload.Description)
	if err != nil {
		if errors.Is(err, services.ErrSelfRequest) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		} else if errors.Is(err, services.ErrDuplicatePendingRequest) || errors.Is(err, services.ErrAlreadyFriends) {
			writeJSONError(w, err.Error(), http.StatusConflict)
		} else {
			log.Printf("Error sending friend request from %d to %d: %v", adderID, payload.ReceiverID, err)
			writeJSONError(w, "failed to send friend request", http.StatusInternalServerError)
		}
		return
	}

	// The request row is committed; a lost event only delays the receiver
	// finding out until their next poll.
	if err := h.notifier.NotifyFriendRequest(r.Context(), request); err != nil {
		log.Printf("Failed to publish friend request %d event: %v", request.ID, err)
	}

	writeJSONResponse(w, http.StatusCreated, request)
}

// ReplyFriendRequestPayload is the JSON body for resolving a friend request.
type ReplyFriendRequestPayload struct {
	Decision string `json:"decision"` // "accepted" or "declined"
}

// ReplyFriendRequestHandler handles POST /api/v1/friend-requests/{requestID}/reply
func (h *FriendHandler) ReplyFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	requestID, ok := pathID(r, "requestID")
	if !ok {
		writeJSONError(w, "invalid friend request id", http.StatusBadRequest)
		return
	}

	var payload ReplyFriendRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	result, err := h.friendService.Reply(r.Context(), receiverID, requestID, models.FriendRequestStatus(payload.Decision))
	if err != nil {
		if errors.Is(err, services.ErrInvalidDecision) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		} else if errors.Is(err, services.ErrRequestNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else if errors.Is(err, services.ErrNotRequestReceiver) {
			writeJSONError(w, err.Error(), http.StatusForbidden)
		} else if errors.Is(err, services.ErrRequestNotPending) {
			writeJSONError(w, err.Error(), http.StatusConflict)
		} else {
			log.Printf("Error resolving friend request %d by user %d: %v", requestID, receiverID, err)
			writeJSONError(w, "failed to resolve friend request", http.StatusInternalServerError)
		}
		return
	}

	if err := h.notifier.NotifyFriendReply(r.Context(), result.Request, result.RoomID); err != nil {
		log.Printf("Failed to publish friend reply event for request %d: %v", requestID, err)
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// ListPendingRequestsHandler handles GET /api/v1/friend-requests/pending
func (h *FriendHandler) ListPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	pending, err := h.friendService.ListPendingRequests(r.Context(), userID)
	if err != nil {
		log.Printf("Error fetching pending requests for user %d: %v", userID, err)
		writeJSONError(w, "failed to fetch pending requests", http.StatusInternalServerError)
		return
	}

	if pending == nil {
		pending = []models.PendingFriendRequest{}
	}
	writeJSONResponse(w, http.StatusOK, pending)
}

// ListFriendsHandler handles GET /api/v1/friends
func (h *FriendHandler) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	friendships, err := h.friendService.ListFriends(r.Context(), userID)
	if err != nil {
		log.Printf("Error fetching friends list for user %d: %v", userID, err)
		writeJSONError(w, "failed to fetch friends list", http.StatusInternalServerError)
		return
	}

	if friendships == nil {
		friendships = []models.Friendship{}
	}
	writeJSONResponse(w, http.StatusOK, friendships)
}

// DisableFriendshipHandler handles POST /api/v1/friendships/{friendshipID}/disable
func (h *FriendHandler) DisableFriendshipHandler(w http.ResponseWriter, r *http.Request) {
	h.setFriendshipStatus(w, r, models.FriendshipStatusInactive)
}

// RestoreFriendshipHandler handles POST /api/v1/friendships/{friendshipID}/restore
func (h *FriendHandler) RestoreFriendshipHandler(w http.ResponseWriter, r *http.Request) {
	h.setFriendshipStatus(w, r, models.FriendshipStatusActive)
}

func (h *FriendHandler) setFriendshipStatus(w http.ResponseWriter, r *http.Request, status models.FriendshipStatus) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	friendshipID, ok := pathID(r, "friendshipID")
	if !ok {
		writeJSONError(w, "invalid friendship id", http.StatusBadRequest)
		return
	}

	var friendship *models.Friendship
	var err error
	if status == models.FriendshipStatusInactive {
		friendship, err = h.friendService.Disable(r.Context(), friendshipID, userID)
	} else {
		friendship, err = h.friendService.Restore(r.Context(), friendshipID, userID)
	}
	if err != nil {
		if errors.Is(err, services.ErrFriendshipNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else if errors.Is(err, services.ErrNotFriendshipMember) {
			writeJSONError(w, err.Error(), http.StatusForbidden)
		} else {
			log.Printf("Error updating friendship %d status by user %d: %v", friendshipID, userID, err)
			writeJSONError(w, "failed to update friendship", http.StatusInternalServerError)
		}
		return
	}

	if err := h.notifier.NotifyFriendStatus(r.Context(), friendship, userID); err != nil {
		log.Printf("Failed to publish friendship %d status event: %v", friendshipID, err)
	}

	writeJSONResponse(w, http.StatusOK, friendship)
}
