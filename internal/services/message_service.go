package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fitsocial/internal/models"
	"fitsocial/internal/storage"
)

var (
	ErrRoomNotFound  = errors.New("chat room not found")
	ErrNotRoomMember = errors.New("user is not a member of this room")
	ErrEmptyMessage  = errors.New("message body is empty")
	ErrNoMessageIDs  = errors.New("no message ids given")
)

const DefaultPageSize = 50

// MessageService wraps the message store: persistence of messages, paginated
// history, seen-state, and the derived conversation summaries.
type MessageService interface {
	// InsertMessage persists a message after verifying the room exists and
	// the sender belongs to it.
	InsertMessage(ctx context.Context, roomID, senderID uint, body string, extraInfo json.RawMessage, sentAt time.Time) (*models.Message, error)
	// FetchMessages pages through the history of the room shared by userID
	// and friendID, oldest-to-newest within each page.
	FetchMessages(ctx context.Context, userID, friendID uint, page, pageSize int) (*models.MessagePage, error)
	// MarkSeen unions userID into the seen-by sets of the given messages,
	// fanning out per room. The returned map holds, per room the user
	// belongs to, the ids that were processed; callers use it to broadcast
	// read-receipt updates.
	MarkSeen(ctx context.Context, userID uint, messageIDs []uint) (map[uint][]uint, error)
	ConversationSummaries(ctx context.Context, userID uint) ([]models.ConversationSummary, error)
	RoomIDForFriendPair(ctx context.Context, userID, friendID uint) (uint, bool, error)
}

type messageService struct {
	msgRepo  storage.MessageRepository
	roomRepo storage.RoomRepository
}

// NewMessageService creates a new MessageService instance.
func NewMessageService(msgRepo storage.MessageRepository, roomRepo storage.RoomRepository) MessageService {
	return &messageService{msgRepo: msgRepo, roomRepo: roomRepo}
}

func (s *messageService) InsertMessage(ctx context.Context, roomID, senderID uint, body string, extraInfo json.RawMessage, sentAt time.Time) (*models.Message, error) {
	if body == "" && len(extraInfo) == 0 {
		return nil, ErrEmptyMessage
	}

	isMember, err := s.roomRepo.IsMember(ctx, roomID, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership of user %d in room %d: %w", senderID, roomID, err)
	}
	if !isMember {
		exists, err := s.roomRepo.RoomExists(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to check room %d: %w", roomID, err)
		}
		if !exists {
			return nil, ErrRoomNotFound
		}
		return nil, ErrNotRoomMember
	}

	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	message := &models.Message{
		RoomID:    roomID,
		SenderID:  senderID,
		Body:      body,
		ExtraInfo: extraInfo,
		SentAt:    sentAt,
	}
	if err := s.msgRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to store message in room %d: %w", roomID, err)
	}
	return message, nil
}

// FetchMessages queries newest-first for cheap offset pagination, then
// reverses the page to chronological order so repeated "load older" calls
// can prepend safely. HasMore is true whenever the page came back full,
// which may cost the client one extra empty fetch at the exact boundary.
func (s *messageService) FetchMessages(ctx context.Context, userID, friendID uint, page, pageSize int) (*models.MessagePage, error) {
	roomID, ok, err := s.roomRepo.RoomIDForUsers(ctx, userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room for users %d and %d: %w", userID, friendID, err)
	}
	if !ok {
		return nil, ErrRoomNotFound
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	offset := (page - 1) * pageSize

	messages, err := s.msgRepo.GetByRoomID(ctx, roomID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for room %d: %w", roomID, err)
	}

	// newest-first -> oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return &models.MessagePage{
		Messages: messages,
		Page:     page,
		HasMore:  len(messages) == pageSize,
	}, nil
}

func (s *messageService) MarkSeen(ctx context.Context, userID uint, messageIDs []uint) (map[uint][]uint, error) {
	if len(messageIDs) == 0 {
		return nil, ErrNoMessageIDs
	}

	// De-duplicate before touching storage.
	seen := make(map[uint]struct{}, len(messageIDs))
	unique := make([]uint, 0, len(messageIDs))
	for _, id := range messageIDs {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	messages, err := s.msgRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for seen update: %w", err)
	}

	// Fan out per room, keeping only rooms the user actually belongs to so
	// the seen-by set stays a subset of the room's two members.
	byRoom := make(map[uint][]uint)
	for _, msg := range messages {
		byRoom[msg.RoomID] = append(byRoom[msg.RoomID], msg.ID)
	}

	allowed := make(map[uint][]uint, len(byRoom))
	var toPersist []uint
	for roomID, ids := range byRoom {
		isMember, err := s.roomRepo.IsMember(ctx, roomID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership of user %d in room %d: %w", userID, roomID, err)
		}
		if !isMember {
			continue
		}
		allowed[roomID] = ids
		toPersist = append(toPersist, ids...)
	}

	if len(toPersist) > 0 {
		if err := s.msgRepo.AddReceipts(ctx, userID, toPersist); err != nil {
			return nil, fmt.Errorf("failed to record seen receipts for user %d: %w", userID, err)
		}
	}
	return allowed, nil
}

// ConversationSummaries builds the chat-list view: one row per room the user
// belongs to, with the last message and the unread count.
func (s *messageService) ConversationSummaries(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	roomIDs, err := s.roomRepo.RoomIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms for user %d: %w", userID, err)
	}

	summaries := make([]models.ConversationSummary, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of room %d: %w", roomID, err)
		}
		var friendID uint
		for _, id := range memberIDs {
			if id != userID {
				friendID = id
				break
			}
		}

		summary := models.ConversationSummary{RoomID: roomID, FriendID: friendID}

		last, err := s.msgRepo.LastInRoom(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to load last message of room %d: %w", roomID, err)
		}
		if last != nil {
			summary.LastMessage = last.Body
			summary.LastSenderID = last.SenderID
			sentAt := last.SentAt
			summary.LastSentAt = &sentAt
		}

		unread, err := s.msgRepo.CountUnread(ctx, roomID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count unread in room %d: %w", roomID, err)
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *messageService) RoomIDForFriendPair(ctx context.Context, userID, friendID uint) (uint, bool, error) {
	return s.roomRepo.RoomIDForUsers(ctx, userID, friendID)
}
