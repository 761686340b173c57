package models

import (
	"encoding/json"
	"time"
)

// Message represents a chat message stored in the database.
// Conversation order is defined by insertion order; the auto-incrementing
// ID is monotonically increasing per room.
type Message struct {
	BaseModel
	RoomID   uint   `gorm:"index;not null" json:"roomId"`
	SenderID uint   `gorm:"index;not null" json:"senderId"`
	Body     string `gorm:"type:text" json:"body"`

	// ExtraInfo carries an opaque structured payload supplied by the
	// client, e.g. attachment references. Stored as JSONB.
	ExtraInfo json.RawMessage `gorm:"type:jsonb" json:"extraInfo,omitempty"`

	SentAt time.Time `gorm:"not null;index" json:"sentAt"`

	Receipts []MessageReceipt `gorm:"foreignKey:MessageID" json:"-"`
}

// TableName specifies the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// SeenBy returns the set of user IDs that have acknowledged this message.
func (m *Message) SeenBy() []uint {
	ids := make([]uint, 0, len(m.Receipts))
	for _, r := range m.Receipts {
		ids = append(ids, r.UserID)
	}
	return ids
}

// SeenByUser reports whether userID appears in the message's seen-by set.
func (m *Message) SeenByUser(userID uint) bool {
	for _, r := range m.Receipts {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// MessageReceipt records that a user has seen a message. The composite
// unique index gives the seen-by set its set semantics: inserting with
// ON CONFLICT DO NOTHING is an atomic append-if-absent, so concurrent
// seen events from multiple devices cannot race or duplicate.
type MessageReceipt struct {
	MessageID uint      `gorm:"primaryKey;autoIncrement:false" json:"messageId"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	SeenAt    time.Time `json:"seenAt"`
}

// TableName specifies the table name for the MessageReceipt model.
func (MessageReceipt) TableName() string {
	return "message_receipts"
}

// ConversationSummary is a derived, non-persisted view combining the last
// message and unread count per friend pair, used for a chat list screen.
type ConversationSummary struct {
	RoomID       uint       `json:"roomId"`
	FriendID     uint       `json:"friendId"`
	LastMessage  string     `json:"lastMessage"`
	LastSenderID uint       `json:"lastSenderId"`
	LastSentAt   *time.Time `json:"lastSentAt,omitempty"`
	UnreadCount  int64      `json:"unreadCount"`
}

// MessagePage is a chronologically ordered page of room messages.
// HasMore is a conservative signal: it is true whenever the page came back
// full, which can yield one extra empty fetch exactly at the boundary.
type MessagePage struct {
	Messages []*Message `json:"messages"`
	Page     int        `json:"page"`
	HasMore  bool       `json:"hasMore"`
}
