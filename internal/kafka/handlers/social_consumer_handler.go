package kafkahandlers

import (
	"context"
	"encoding/json"
	"log"

	"fitsocial/internal/events"
	"fitsocial/internal/services"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// SocialConsumerLogic replays social events from the notifications topic into
// the delivery service: the REST server and other subsystems publish them,
// and this process owns the live connections they must reach.
type SocialConsumerLogic struct {
	delivery services.DeliveryService
}

// NewSocialConsumerLogic creates a new SocialConsumerLogic instance.
func NewSocialConsumerLogic(delivery services.DeliveryService) *SocialConsumerLogic {
	if delivery == nil {
		log.Panic("DeliveryService cannot be nil")
	}
	return &SocialConsumerLogic{delivery: delivery}
}

// HandleSocialEvent is the MessageHandler passed to the Kafka consumer. It
// processes a single social event.
func (h *SocialConsumerLogic) HandleSocialEvent(ctx context.Context, msg *kafka.Message) error {
	var event events.SocialEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// Malformed payloads are skipped, not retried: redelivering them
		// cannot make them parse.
		log.Printf("Error unmarshalling social event (Topic: %s, Offset: %v, Value: '%s'): %v. Skipping.",
			*msg.TopicPartition.Topic, msg.TopicPartition.Offset, string(msg.Value), err)
		return nil
	}

	// Returning an error leaves the offset uncommitted, so transient storage
	// failures are retried on the next poll.
	switch event.Kind {
	case events.SocialEventFriendRequest:
		if event.FriendRequest == nil {
			return h.skipIncomplete(msg, event.Kind)
		}
		return h.delivery.NotifyFriendRequest(ctx, event.FriendRequest)
	case events.SocialEventFriendReply:
		if event.FriendRequest == nil {
			return h.skipIncomplete(msg, event.Kind)
		}
		return h.delivery.NotifyFriendReply(ctx, event.FriendRequest, event.RoomID)
	case events.SocialEventFriendStatus:
		if event.Friendship == nil || event.ActorID == 0 {
			return h.skipIncomplete(msg, event.Kind)
		}
		return h.delivery.NotifyFriendStatus(ctx, event.Friendship, event.ActorID)
	case events.SocialEventNotification:
		if event.Notification == nil || event.Notification.UserID == 0 || event.Notification.Text == "" {
			return h.skipIncomplete(msg, event.Kind)
		}
		_, err := h.delivery.NotifyGeneric(ctx, *event.Notification)
		return err
	default:
		log.Printf("Ignoring social event with unknown kind %q (Topic: %s, Offset: %v)",
			event.Kind, *msg.TopicPartition.Topic, msg.TopicPartition.Offset)
		return nil
	}
}

func (h *SocialConsumerLogic) skipIncomplete(msg *kafka.Message, kind string) error {
	log.Printf("Dropping incomplete %s event (Topic: %s, Offset: %v)",
		kind, *msg.TopicPartition.Topic, msg.TopicPartition.Offset)
	return nil
}
