package models

import "time"

// Conversation is a direct-message thread between exactly two users.
//
// Participant IDs are stored in canonical order (Participant1ID < Participant2ID)
// so that (A,B) and (B,A) always resolve to the same row. The last-message
// fields are a denormalized pointer maintained by a store trigger for cheap
// list rendering; the application never writes them.
type Conversation struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Participant1ID     uint       `gorm:"not null;uniqueIndex:idx_conversations_pair" json:"participant1_id"`
	Participant2ID     uint       `gorm:"not null;uniqueIndex:idx_conversations_pair" json:"participant2_id"`
	Participant1       *User      `gorm:"foreignKey:Participant1ID" json:"participant1,omitempty"`
	Participant2       *User      `gorm:"foreignKey:Participant2ID" json:"participant2,omitempty"`
	LastMessageID      *uint      `gorm:"->" json:"last_message_id,omitempty"`
	LastMessageAt      *time.Time `gorm:"->" json:"last_message_at,omitempty"`
	LastMessageContent string     `gorm:"->" json:"last_message_content"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// UnreadCount is computed per requesting user at query time.
	UnreadCount int `gorm:"-" json:"unread_count"`
}

// Other returns the participant that is not the given user.
func (c *Conversation) Other(userID uint) uint {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

// HasParticipant reports whether the user is one of the two participants.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// Message represents a direct message inside a conversation.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	Sender         *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
