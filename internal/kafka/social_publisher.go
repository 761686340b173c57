package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"fitsocial/internal/events"
	"fitsocial/internal/models"
)

// SocialEventPublisher publishes social events to the notifications topic.
// It is the Kafka-backed implementation of services.FriendNotifier for
// processes that do not own the live connections.
type SocialEventPublisher struct {
	producer MessageProducer
	topic    string
}

// NewSocialEventPublisher creates a new SocialEventPublisher instance.
func NewSocialEventPublisher(producer MessageProducer, topic string) *SocialEventPublisher {
	return &SocialEventPublisher{producer: producer, topic: topic}
}

// NotifyFriendRequest publishes a new pending friend request.
func (p *SocialEventPublisher) NotifyFriendRequest(ctx context.Context, request *models.FriendRequest) error {
	return p.publish(ctx, request.ReceiverID, events.SocialEvent{
		Kind:          events.SocialEventFriendRequest,
		FriendRequest: request,
	})
}

// NotifyFriendReply publishes the resolution of a friend request. RoomID is
// set only on acceptance.
func (p *SocialEventPublisher) NotifyFriendReply(ctx context.Context, request *models.FriendRequest, roomID uint) error {
	return p.publish(ctx, request.AdderID, events.SocialEvent{
		Kind:          events.SocialEventFriendReply,
		FriendRequest: request,
		RoomID:        roomID,
	})
}

// NotifyFriendStatus publishes a friendship disable or restore.
func (p *SocialEventPublisher) NotifyFriendStatus(ctx context.Context, friendship *models.Friendship, actorID uint) error {
	return p.publish(ctx, friendship.OtherUser(actorID), events.SocialEvent{
		Kind:       events.SocialEventFriendStatus,
		Friendship: friendship,
		ActorID:    actorID,
	})
}

// PublishNotification publishes a generic notification for a user.
func (p *SocialEventPublisher) PublishNotification(ctx context.Context, notification events.NotificationEvent) error {
	return p.publish(ctx, notification.UserID, events.SocialEvent{
		Kind:         events.SocialEventNotification,
		Notification: &notification,
	})
}

// publish keys the message by target user id, keeping each user's events on
// one partition and therefore in order.
func (p *SocialEventPublisher) publish(ctx context.Context, targetUserID uint, event events.SocialEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Kind, err)
	}
	key := []byte(strconv.FormatUint(uint64(targetUserID), 10))
	if err := p.producer.SendMessage(ctx, p.topic, key, payload); err != nil {
		return fmt.Errorf("failed to publish %s event for user %d: %w", event.Kind, targetUserID, err)
	}
	return nil
}
