package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"fitsocial/internal/events"
	"fitsocial/internal/models"
	"fitsocial/internal/presence"
	"fitsocial/internal/storage"
)

type recordingConn struct {
	id     string
	userID uint

	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) ID() string   { return c.id }
func (c *recordingConn) UserID() uint { return c.userID }
func (c *recordingConn) Deliver(p []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, p)
	return true
}

type receivedEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *recordingConn) received(t *testing.T) []receivedEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	decoded := make([]receivedEvent, 0, len(c.frames))
	for _, frame := range c.frames {
		var ev receivedEvent
		require.NoError(t, json.Unmarshal(frame, &ev))
		decoded = append(decoded, ev)
	}
	return decoded
}

func (c *recordingConn) eventNames(t *testing.T) []string {
	t.Helper()
	names := []string{}
	for _, ev := range c.received(t) {
		names = append(names, ev.Event)
	}
	return names
}

type deliveryFixture struct {
	delivery      DeliveryService
	notifications NotificationService
	router        *presence.Router
	roomRepo      storage.RoomRepository
}

func newDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()
	db := newTestDB(t)
	roomRepo := storage.NewGormRoomRepository(db)
	messages := NewMessageService(storage.NewGormMessageRepository(db), roomRepo)
	notifications := NewNotificationService(storage.NewGormNotificationRepository(db))
	router := presence.NewRouter()
	return &deliveryFixture{
		delivery:      NewDeliveryService(messages, notifications, roomRepo, router),
		notifications: notifications,
		router:        router,
		roomRepo:      roomRepo,
	}
}

func (f *deliveryFixture) connect(id string, userID uint) *recordingConn {
	conn := &recordingConn{id: id, userID: userID}
	f.router.Register(conn)
	return conn
}

func TestSendMessageEchoesToRoom(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	room, err := f.roomRepo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	sender := f.connect("sender", 1)
	friend := f.connect("friend", 2)
	f.router.JoinRoom("sender", room.ID)
	f.router.JoinRoom("friend", room.ID)

	msg, err := f.delivery.SendMessage(ctx, 1, room.ID, "hello", nil)
	require.NoError(t, err)
	require.NotZero(t, msg.ID)

	// Both connections viewing the room got the echo; nobody got an
	// out-of-band notification.
	require.Equal(t, []string{events.NewMessage}, sender.eventNames(t))
	require.Equal(t, []string{events.NewMessage}, friend.eventNames(t))

	var payload events.MessageEvent
	require.NoError(t, json.Unmarshal(friend.received(t)[0].Data, &payload))
	require.Equal(t, msg.ID, payload.ID)
	require.Equal(t, "hello", payload.Body)
	require.Equal(t, uint(1), payload.SenderID)
}

func TestSendMessageNotifiesAbsentFriend(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	room, err := f.roomRepo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	// The friend is online but has not joined the room.
	friend := f.connect("friend", 2)

	_, err = f.delivery.SendMessage(ctx, 1, room.ID, "hello", nil)
	require.NoError(t, err)

	require.Equal(t, []string{events.NewMessageNotification}, friend.eventNames(t))
}

func TestSendMessageSuppressesNotificationWhenViewing(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	room, err := f.roomRepo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	// One device in the room, one not. Any viewing device suppresses the
	// notification for all of them.
	phone := f.connect("phone", 2)
	laptop := f.connect("laptop", 2)
	f.router.JoinRoom("laptop", room.ID)

	_, err = f.delivery.SendMessage(ctx, 1, room.ID, "hello", nil)
	require.NoError(t, err)

	require.Equal(t, []string{events.NewMessage}, laptop.eventNames(t))
	require.Empty(t, phone.eventNames(t))
}

func TestSendMessageOfflineRecipientStillPersists(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	room, err := f.roomRepo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	msg, err := f.delivery.SendMessage(ctx, 1, room.ID, "while you were out", nil)
	require.NoError(t, err)
	require.NotZero(t, msg.ID)
}

func TestMarkSeenBroadcastsToRoom(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	room, err := f.roomRepo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)
	msg, err := f.delivery.SendMessage(ctx, 1, room.ID, "hello", nil)
	require.NoError(t, err)

	sender := f.connect("sender", 1)
	f.router.JoinRoom("sender", room.ID)

	require.NoError(t, f.delivery.MarkSeen(ctx, 2, []uint{msg.ID}))

	received := sender.received(t)
	require.Len(t, received, 1)
	require.Equal(t, events.UpdatedMessageVisibility, received[0].Event)

	var seen events.SeenEvent
	require.NoError(t, json.Unmarshal(received[0].Data, &seen))
	require.Equal(t, room.ID, seen.RoomID)
	require.Equal(t, uint(2), seen.UserID)
	require.Equal(t, []uint{msg.ID}, seen.MessageIDs)
}

func TestNotifyFriendRequest(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	receiver := f.connect("receiver", 2)

	request := &models.FriendRequest{AdderID: 1, ReceiverID: 2, Status: models.FriendRequestStatusPending}
	request.ID = 10
	require.NoError(t, f.delivery.NotifyFriendRequest(ctx, request))

	require.Equal(t, []string{events.NewFriendRequest, events.NewNotification}, receiver.eventNames(t))

	// The notification is durable for offline catch-up.
	stored, err := f.notifications.Fetch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.True(t, stored[0].Clickable)
	require.Equal(t, "friend-requests", stored[0].ClickableDestination)
}

func TestNotifyFriendReplySentiment(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	adder := f.connect("adder", 1)

	accepted := &models.FriendRequest{AdderID: 1, ReceiverID: 2, Status: models.FriendRequestStatusAccepted}
	accepted.ID = 11
	require.NoError(t, f.delivery.NotifyFriendReply(ctx, accepted, 7))

	declined := &models.FriendRequest{AdderID: 1, ReceiverID: 3, Status: models.FriendRequestStatusDeclined}
	declined.ID = 12
	require.NoError(t, f.delivery.NotifyFriendReply(ctx, declined, 0))

	names := adder.eventNames(t)
	require.Equal(t, []string{
		events.NewFriendResponse, events.NewNotification,
		events.NewFriendResponse, events.NewNotification,
	}, names)

	var response events.FriendResponseEvent
	require.NoError(t, json.Unmarshal(adder.received(t)[0].Data, &response))
	require.Equal(t, uint(7), response.RoomID)
	require.Equal(t, string(models.FriendRequestStatusAccepted), response.Decision)

	stored, err := f.notifications.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	// Newest first: the declined reply is on top.
	require.Equal(t, models.SentimentNegative, stored[0].Sentiment)
	require.Equal(t, models.SentimentPositive, stored[1].Sentiment)
}

func TestNotifyFriendStatusIsLiveOnly(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	other := f.connect("other", 2)

	terminator := uint(1)
	friendship := &models.Friendship{UserLow: 1, UserHigh: 2, Status: models.FriendshipStatusInactive, TerminatedBy: &terminator, RoomID: 3}
	friendship.ID = 5
	require.NoError(t, f.delivery.NotifyFriendStatus(ctx, friendship, 1))

	require.Equal(t, []string{events.NewFriendStatus}, other.eventNames(t))

	// No durable row for status flips.
	stored, err := f.notifications.Fetch(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestNotifyGenericPersistsAndPushes(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	target := f.connect("target", 9)

	notification, err := f.delivery.NotifyGeneric(ctx, events.NotificationEvent{
		UserID:    9,
		Text:      "Someone liked your workout",
		Sentiment: string(models.SentimentPositive),
	})
	require.NoError(t, err)
	require.NotZero(t, notification.ID)
	require.Equal(t, []string{events.NewNotification}, target.eventNames(t))

	// Offline target: persists without any live delivery.
	offline, err := f.delivery.NotifyGeneric(ctx, events.NotificationEvent{UserID: 10, Text: "hi", Sentiment: "bogus"})
	require.NoError(t, err)
	require.Equal(t, models.SentimentNormal, offline.Sentiment)

	stored, err := f.notifications.Fetch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}
