package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fitsocial/internal/models"
)

func seedRoomWithMessages(t *testing.T, roomRepo RoomRepository, msgRepo MessageRepository, count int, senderID uint) (uint, []uint) {
	t.Helper()
	ctx := context.Background()

	room, err := roomRepo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	ids := make([]uint, 0, count)
	for i := 0; i < count; i++ {
		msg := &models.Message{RoomID: room.ID, SenderID: senderID, Body: "msg", SentAt: time.Now()}
		require.NoError(t, msgRepo.Create(ctx, msg))
		ids = append(ids, msg.ID)
	}
	return room.ID, ids
}

func TestGetByRoomIDNewestFirst(t *testing.T) {
	db := newTestDB(t)
	roomRepo := NewGormRoomRepository(db)
	msgRepo := NewGormMessageRepository(db)
	ctx := context.Background()

	roomID, ids := seedRoomWithMessages(t, roomRepo, msgRepo, 5, 1)

	page, err := msgRepo.GetByRoomID(ctx, roomID, 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.Equal(t, ids[4], page[0].ID)
	require.Equal(t, ids[3], page[1].ID)
	require.Equal(t, ids[2], page[2].ID)

	page, err = msgRepo.GetByRoomID(ctx, roomID, 3, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[1], page[0].ID)
	require.Equal(t, ids[0], page[1].ID)
}

func TestAddReceiptsIdempotent(t *testing.T) {
	db := newTestDB(t)
	roomRepo := NewGormRoomRepository(db)
	msgRepo := NewGormMessageRepository(db)
	ctx := context.Background()

	_, ids := seedRoomWithMessages(t, roomRepo, msgRepo, 3, 1)

	require.NoError(t, msgRepo.AddReceipts(ctx, 2, ids))
	// A second pass over the same ids must not fail or duplicate.
	require.NoError(t, msgRepo.AddReceipts(ctx, 2, ids))

	var count int64
	require.NoError(t, db.Model(&models.MessageReceipt{}).Where("user_id = ?", 2).Count(&count).Error)
	require.EqualValues(t, len(ids), count)

	msg, err := msgRepo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.True(t, msg.SeenByUser(2))
	require.False(t, msg.SeenByUser(1))
}

func TestCountUnread(t *testing.T) {
	db := newTestDB(t)
	roomRepo := NewGormRoomRepository(db)
	msgRepo := NewGormMessageRepository(db)
	ctx := context.Background()

	roomID, ids := seedRoomWithMessages(t, roomRepo, msgRepo, 4, 1)

	// User 2 has seen nothing; all four count.
	count, err := msgRepo.CountUnread(ctx, roomID, 2)
	require.NoError(t, err)
	require.EqualValues(t, 4, count)

	// The sender's own messages are never unread for them.
	count, err = msgRepo.CountUnread(ctx, roomID, 1)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)

	require.NoError(t, msgRepo.AddReceipts(ctx, 2, ids[:3]))
	count, err = msgRepo.CountUnread(ctx, roomID, 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestLastInRoom(t *testing.T) {
	db := newTestDB(t)
	roomRepo := NewGormRoomRepository(db)
	msgRepo := NewGormMessageRepository(db)
	ctx := context.Background()

	room, err := roomRepo.CreateRoomWithMembers(ctx, 1, 2)
	require.NoError(t, err)

	last, err := msgRepo.LastInRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Nil(t, last)

	roomID, ids := seedRoomWithMessages(t, roomRepo, msgRepo, 3, 1)
	last, err = msgRepo.LastInRoom(ctx, roomID)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, ids[2], last.ID)
}
