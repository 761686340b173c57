package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"fitsocial/internal/events"
	"fitsocial/internal/models"
	"fitsocial/internal/presence"
	"fitsocial/internal/storage"
)

// FriendNotifier fans out friend-graph changes to their target users. The
// REST server satisfies it with a Kafka publisher; the social server, which
// owns the live connections, satisfies it with the delivery service itself.
type FriendNotifier interface {
	NotifyFriendRequest(ctx context.Context, request *models.FriendRequest) error
	NotifyFriendReply(ctx context.Context, request *models.FriendRequest, roomID uint) error
	NotifyFriendStatus(ctx context.Context, friendship *models.Friendship, actorID uint) error
}

// DeliveryService is the orchestration layer between durable state and live
// sockets. Every operation persists first and emits after the commit, so a
// client can never observe a live event whose row is not yet queryable.
type DeliveryService interface {
	FriendNotifier

	// SendMessage persists a message, echoes it to every connection joined
	// to the room, and raises an out-of-band notification event for the
	// other member if none of their connections is viewing the room.
	SendMessage(ctx context.Context, senderID, roomID uint, body string, extraInfo json.RawMessage) (*models.Message, error)
	// MarkSeen records seen receipts and broadcasts the read-receipt update
	// to each affected room. Idempotent over already-seen ids.
	MarkSeen(ctx context.Context, userID uint, messageIDs []uint) error

	// NotifyGeneric persists an externally produced notification (likes,
	// admin broadcasts) and pushes it live if the target is connected.
	NotifyGeneric(ctx context.Context, event events.NotificationEvent) (*models.Notification, error)
}

type deliveryService struct {
	messages      MessageService
	notifications NotificationService
	roomRepo      storage.RoomRepository
	router        *presence.Router
}

// NewDeliveryService creates a new DeliveryService instance.
func NewDeliveryService(
	messages MessageService,
	notifications NotificationService,
	roomRepo storage.RoomRepository,
	router *presence.Router,
) DeliveryService {
	return &deliveryService{
		messages:      messages,
		notifications: notifications,
		roomRepo:      roomRepo,
		router:        router,
	}
}

func (s *deliveryService) SendMessage(ctx context.Context, senderID, roomID uint, body string, extraInfo json.RawMessage) (*models.Message, error) {
	message, err := s.messages.InsertMessage(ctx, roomID, senderID, body, extraInfo, time.Now())
	if err != nil {
		return nil, err
	}

	msgEvent := events.MessageEvent{
		ID:        message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Body:      message.Body,
		ExtraInfo: message.ExtraInfo,
		SentAt:    message.SentAt,
	}
	s.emitToRoom(roomID, events.Envelope{Event: events.NewMessage, Data: msgEvent})

	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
	if err != nil {
		// The message is already durable and echoed; a failed member
		// lookup only loses the offline alert.
		log.Printf("Failed to load members of room %d for notification fan-out: %v", roomID, err)
		return message, nil
	}
	for _, memberID := range memberIDs {
		if memberID == senderID {
			continue
		}
		// The presence read may be slightly stale; the worst case is one
		// redundant notification.
		if s.router.IsUserInRoom(memberID, roomID) {
			continue
		}
		s.emitToUser(memberID, events.Envelope{Event: events.NewMessageNotification, Data: msgEvent})
	}
	return message, nil
}

func (s *deliveryService) MarkSeen(ctx context.Context, userID uint, messageIDs []uint) error {
	byRoom, err := s.messages.MarkSeen(ctx, userID, messageIDs)
	if err != nil {
		return err
	}
	for roomID, ids := range byRoom {
		s.emitToRoom(roomID, events.Envelope{
			Event: events.UpdatedMessageVisibility,
			Data:  events.SeenEvent{RoomID: roomID, UserID: userID, MessageIDs: ids},
		})
	}
	return nil
}

func (s *deliveryService) NotifyFriendRequest(ctx context.Context, request *models.FriendRequest) error {
	info, _ := json.Marshal(map[string]uint{"requestId": request.ID, "adderId": request.AdderID})
	notification, err := s.notifications.Push(ctx, request.ReceiverID,
		"You have a new friend request", models.SentimentNormal, true, info, "friend-requests")
	if err != nil {
		return fmt.Errorf("failed to store friend request notification: %w", err)
	}

	s.emitToUser(request.ReceiverID, events.Envelope{Event: events.NewFriendRequest, Data: request})
	s.emitNotification(notification)
	return nil
}

func (s *deliveryService) NotifyFriendReply(ctx context.Context, request *models.FriendRequest, roomID uint) error {
	sentiment := models.SentimentPositive
	text := "Your friend request was accepted"
	if request.Status == models.FriendRequestStatusDeclined {
		sentiment = models.SentimentNegative
		text = "Your friend request was declined"
	}

	info, _ := json.Marshal(map[string]uint{"requestId": request.ID, "friendId": request.ReceiverID})
	notification, err := s.notifications.Push(ctx, request.AdderID, text, sentiment, true, info, "friends")
	if err != nil {
		return fmt.Errorf("failed to store friend reply notification: %w", err)
	}

	s.emitToUser(request.AdderID, events.Envelope{
		Event: events.NewFriendResponse,
		Data: events.FriendResponseEvent{
			RequestID: request.ID,
			Decision:  string(request.Status),
			FriendID:  request.ReceiverID,
			RoomID:    roomID,
		},
	})
	s.emitNotification(notification)
	return nil
}

// NotifyFriendStatus emits a live-only status change (disable/restore) to
// the other party. No notification row is stored for these.
func (s *deliveryService) NotifyFriendStatus(ctx context.Context, friendship *models.Friendship, actorID uint) error {
	target := friendship.OtherUser(actorID)
	s.emitToUser(target, events.Envelope{
		Event: events.NewFriendStatus,
		Data: events.FriendStatusEvent{
			FriendshipID: friendship.ID,
			FriendID:     actorID,
			Status:       string(friendship.Status),
		},
	})
	return nil
}

func (s *deliveryService) NotifyGeneric(ctx context.Context, event events.NotificationEvent) (*models.Notification, error) {
	notification, err := s.notifications.Push(ctx, event.UserID, event.Text,
		models.NotificationSentiment(event.Sentiment), event.Clickable,
		event.ClickableInfo, event.ClickableDestination)
	if err != nil {
		return nil, err
	}
	s.emitNotification(notification)
	return notification, nil
}

func (s *deliveryService) emitNotification(notification *models.Notification) {
	s.emitToUser(notification.UserID, events.Envelope{Event: events.NewNotification, Data: notification})
}

func (s *deliveryService) emitToRoom(roomID uint, envelope events.Envelope) {
	payload := envelope.Encode()
	for _, conn := range s.router.ConnsInRoom(roomID) {
		if !conn.Deliver(payload) {
			log.Printf("Dropping %s event for slow connection %s in room %d", envelope.Event, conn.ID(), roomID)
		}
	}
}

func (s *deliveryService) emitToUser(userID uint, envelope events.Envelope) {
	payload := envelope.Encode()
	for _, conn := range s.router.ConnsForUser(userID) {
		if !conn.Deliver(payload) {
			log.Printf("Dropping %s event for slow connection %s of user %d", envelope.Event, conn.ID(), userID)
		}
	}
}
