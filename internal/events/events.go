// Package events defines the wire-level event names and payload DTOs shared
// by the socket layer, the delivery coordinator, and the Kafka pipeline.
package events

import (
	"encoding/json"
	"time"

	"fitsocial/internal/models"
)

// Names of events emitted to clients.
const (
	NewMessage                = "new-message"
	NewMessageNotification    = "new-message-notification"
	UpdatedMessageVisibility  = "updated-message-visibility"
	NewNotification           = "new-notification"
	NewFriendRequest          = "new-friend-request"
	NewFriendResponse         = "new-friend-response"
	NewFriendStatus           = "new-friend-status"
	SendMessageAck            = "send-message-ack"
	ErrorEvent                = "error"
)

// Names of actions accepted from clients.
const (
	ActionJoinRoom    = "join-room"
	ActionLeaveRoom   = "leave-room"
	ActionSendMessage = "send-message"
	ActionMarkSeen    = "mark-seen"
)

// Envelope is the frame for every event sent to a client.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Encode marshals the envelope for the wire. Marshal failures are reported
// as a generic error frame rather than dropped silently.
func (e Envelope) Encode() []byte {
	payload, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"event":"error","data":"encoding failure"}`)
	}
	return payload
}

// ClientEvent is the frame for every action received from a client. AckID is
// an optional client-chosen correlation token echoed back in acks.
type ClientEvent struct {
	Action string          `json:"action"`
	AckID  string          `json:"ackId,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// JoinRoomPayload carries the room for join-room and leave-room actions.
type JoinRoomPayload struct {
	RoomID uint `json:"roomId"`
}

// SendMessagePayload is the body of a send-message action.
type SendMessagePayload struct {
	RoomID    uint            `json:"roomId"`
	Body      string          `json:"body"`
	ExtraInfo json.RawMessage `json:"extraInfo,omitempty"`
}

// MarkSeenPayload is the body of a mark-seen action.
type MarkSeenPayload struct {
	MessageIDs []uint `json:"messageIds"`
}

// MessageEvent is the DTO for new-message and new-message-notification.
type MessageEvent struct {
	ID        uint            `json:"id"`
	RoomID    uint            `json:"roomId"`
	SenderID  uint            `json:"senderId"`
	Body      string          `json:"body"`
	ExtraInfo json.RawMessage `json:"extraInfo,omitempty"`
	SentAt    time.Time       `json:"sentAt"`
}

// SeenEvent is the DTO for updated-message-visibility.
type SeenEvent struct {
	RoomID     uint   `json:"roomId"`
	UserID     uint   `json:"userId"`
	MessageIDs []uint `json:"messageIds"`
}

// AckEvent is the DTO for send-message-ack.
type AckEvent struct {
	AckID     string `json:"ackId,omitempty"`
	MessageID uint   `json:"messageId"`
}

// FriendResponseEvent is the DTO for new-friend-response.
type FriendResponseEvent struct {
	RequestID uint   `json:"requestId"`
	Decision  string `json:"decision"`
	FriendID  uint   `json:"friendId"`
	RoomID    uint   `json:"roomId,omitempty"`
}

// FriendStatusEvent is the DTO for new-friend-status, emitted when a
// friendship is disabled or restored.
type FriendStatusEvent struct {
	FriendshipID uint   `json:"friendshipId"`
	FriendID     uint   `json:"friendId"`
	Status       string `json:"status"`
}

// Kinds of events published to the social notifications topic.
const (
	SocialEventFriendRequest = "friend-request"
	SocialEventFriendReply   = "friend-reply"
	SocialEventFriendStatus  = "friend-status"
	SocialEventNotification  = "notification"
)

// SocialEvent is the envelope published to the notifications topic by the
// REST surface and other subsystems. The social server consumes it and
// replays the event into the delivery layer, which owns the live
// connections. Exactly one of the payload fields is set, per Kind.
type SocialEvent struct {
	Kind          string                `json:"kind"`
	FriendRequest *models.FriendRequest `json:"friendRequest,omitempty"`
	RoomID        uint                  `json:"roomId,omitempty"`
	Friendship    *models.Friendship    `json:"friendship,omitempty"`
	ActorID       uint                  `json:"actorId,omitempty"`
	Notification  *NotificationEvent    `json:"notification,omitempty"`
}

// NotificationEvent mirrors a persisted notification for live push, and is
// also the payload external subsystems publish for generic notifications.
type NotificationEvent struct {
	ID                   uint            `json:"id,omitempty"`
	UserID               uint            `json:"userId"`
	Text                 string          `json:"text"`
	Sentiment            string          `json:"sentiment"`
	Clickable            bool            `json:"clickable"`
	ClickableInfo        json.RawMessage `json:"clickableInfo,omitempty"`
	ClickableDestination string          `json:"clickableDestination,omitempty"`
	CreatedAt            time.Time       `json:"createdAt,omitempty"`
}
