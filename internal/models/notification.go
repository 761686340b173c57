package models

import "encoding/json"

// NotificationSentiment colors a notification for the client UI.
type NotificationSentiment string

const (
	SentimentPositive NotificationSentiment = "positive"
	SentimentNormal   NotificationSentiment = "normal"
	SentimentNegative NotificationSentiment = "negative"
)

// Notification is an asynchronous, write-once entry delivered to a user
// outside of any chat room: likes, friend requests, admin broadcasts.
// This core stores and routes notifications but never interprets their
// content; the only mutation is flipping Seen to true.
type Notification struct {
	BaseModel
	UserID    uint                  `gorm:"index;not null" json:"userId"`
	Text      string                `gorm:"type:text" json:"text"`
	Seen      bool                  `gorm:"not null;default:false" json:"seen"`
	Sentiment NotificationSentiment `gorm:"type:varchar(20);not null;default:'normal'" json:"sentiment"`

	Clickable bool `gorm:"not null;default:false" json:"clickable"`
	// ClickableInfo is an opaque payload the client hands to the screen
	// named by ClickableDestination.
	ClickableInfo        json.RawMessage `gorm:"type:jsonb" json:"clickableInfo,omitempty"`
	ClickableDestination string          `gorm:"type:varchar(64)" json:"clickableDestination,omitempty"`
}

// TableName specifies the table name for the Notification model.
func (Notification) TableName() string {
	return "notifications"
}
