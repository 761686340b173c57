package socialserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"fitsocial/internal/auth"
	"fitsocial/internal/config"
	"fitsocial/internal/events"
	"fitsocial/internal/presence"
	"fitsocial/internal/services"
	"fitsocial/internal/storage"
	ws "fitsocial/internal/websocket"
)

// WebSocketHandler terminates websocket connections and dispatches the
// actions clients send over them.
type WebSocketHandler struct {
	router    *presence.Router
	delivery  services.DeliveryService
	roomRepo  storage.RoomRepository
	blacklist auth.TokenBlacklist
	cfg       config.Config
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(
	router *presence.Router,
	delivery services.DeliveryService,
	roomRepo storage.RoomRepository,
	blacklist auth.TokenBlacklist,
	cfg config.Config,
) *WebSocketHandler {
	return &WebSocketHandler{
		router:    router,
		delivery:  delivery,
		roomRepo:  roomRepo,
		blacklist: blacklist,
		cfg:       cfg,
	}
}

// ServeWS authenticates the request, upgrades it to a websocket connection,
// and registers the client with the presence router. The registration happens
// before the pumps start, so the first inbound action already sees the
// connection as online.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(r.Context(), token, h.cfg.Auth.JWTSecretKey, h.blacklist)
	if err != nil {
		log.Printf("WebSocket connection rejected: invalid token: %v", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	client, err := ws.ServeConnection(claims.UserID, w, r, h.cfg.WebSocket, h.handleEvent, h.handleClose)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Printf("WebSocket upgrade failed for user %d: %v", claims.UserID, err)
		return
	}

	h.router.Register(client)
	client.Start(h.cfg.WebSocket)
	log.Printf("User %s (ID: %d) connected over WebSocket (conn %s)", claims.Username, claims.UserID, client.ID())
}

func (h *WebSocketHandler) handleClose(client *ws.Client) {
	h.router.Unregister(client.ID())
	log.Printf("Connection %s of user %d closed", client.ID(), client.UserID())
}

// handleEvent dispatches one decoded client action. Validation failures are
// reported back on the same connection as error events; only unexpected
// internal failures propagate as errors.
func (h *WebSocketHandler) handleEvent(ctx context.Context, client *ws.Client, event events.ClientEvent) error {
	switch event.Action {
	case events.ActionJoinRoom:
		return h.handleJoinRoom(ctx, client, event)
	case events.ActionLeaveRoom:
		return h.handleLeaveRoom(client, event)
	case events.ActionSendMessage:
		return h.handleSendMessage(ctx, client, event)
	case events.ActionMarkSeen:
		return h.handleMarkSeen(ctx, client, event)
	default:
		h.sendError(client, fmt.Sprintf("unknown action: %s", event.Action))
		return nil
	}
}

// handleJoinRoom marks the connection as viewing a room. Membership is
// checked so a client cannot subscribe to a stranger's conversation.
func (h *WebSocketHandler) handleJoinRoom(ctx context.Context, client *ws.Client, event events.ClientEvent) error {
	var payload events.JoinRoomPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == 0 {
		h.sendError(client, "join-room requires a roomId")
		return nil
	}

	isMember, err := h.roomRepo.IsMember(ctx, payload.RoomID, client.UserID())
	if err != nil {
		return fmt.Errorf("failed to check membership for join-room: %w", err)
	}
	if !isMember {
		h.sendError(client, "not a member of this room")
		return nil
	}

	h.router.JoinRoom(client.ID(), payload.RoomID)
	return nil
}

func (h *WebSocketHandler) handleLeaveRoom(client *ws.Client, event events.ClientEvent) error {
	var payload events.JoinRoomPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == 0 {
		h.sendError(client, "leave-room requires a roomId")
		return nil
	}
	h.router.LeaveRoom(client.ID(), payload.RoomID)
	return nil
}

func (h *WebSocketHandler) handleSendMessage(ctx context.Context, client *ws.Client, event events.ClientEvent) error {
	var payload events.SendMessagePayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RoomID == 0 {
		h.sendError(client, "send-message requires a roomId and a body")
		return nil
	}

	message, err := h.delivery.SendMessage(ctx, client.UserID(), payload.RoomID, payload.Body, payload.ExtraInfo)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) || errors.Is(err, services.ErrNotRoomMember) || errors.Is(err, services.ErrEmptyMessage) {
			h.sendError(client, err.Error())
			return nil
		}
		return fmt.Errorf("failed to send message to room %d: %w", payload.RoomID, err)
	}

	ack := events.Envelope{
		Event: events.SendMessageAck,
		Data:  events.AckEvent{AckID: event.AckID, MessageID: message.ID},
	}
	if !client.Deliver(ack.Encode()) {
		log.Printf("Dropping ack for message %d on slow connection %s", message.ID, client.ID())
	}
	return nil
}

func (h *WebSocketHandler) handleMarkSeen(ctx context.Context, client *ws.Client, event events.ClientEvent) error {
	var payload events.MarkSeenPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || len(payload.MessageIDs) == 0 {
		h.sendError(client, "mark-seen requires messageIds")
		return nil
	}

	if err := h.delivery.MarkSeen(ctx, client.UserID(), payload.MessageIDs); err != nil {
		if errors.Is(err, services.ErrNoMessageIDs) {
			h.sendError(client, err.Error())
			return nil
		}
		return fmt.Errorf("failed to mark messages seen: %w", err)
	}
	return nil
}

func (h *WebSocketHandler) sendError(client *ws.Client, message string) {
	envelope := events.Envelope{Event: events.ErrorEvent, Data: message}
	if !client.Deliver(envelope.Encode()) {
		log.Printf("Dropping error event for slow connection %s", client.ID())
	}
}
