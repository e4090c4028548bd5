package models

import "time"

// Chat is a direct conversation between exactly two users. The group fields
// are reserved in the schema but no implemented flow populates them.
type Chat struct {
	ID            int64     `json:"id"`
	UserAID       int64     `json:"user_a_id"`
	UserBID       int64     `json:"user_b_id"`
	IsGroup       bool      `json:"is_group"`
	GroupName     string    `json:"group_name,omitempty"`
	GroupAdminID  *int64    `json:"group_admin_id,omitempty"`
	LastMessageID *int64    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChatMessage carries text and/or an image URL. Seen defaults to false and is
// never flipped by any implemented flow.
type ChatMessage struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Text      string    `json:"text,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is a chat with its denormalized latest message, as returned by
// the chat list endpoint.
type ChatSummary struct {
	Chat
	LastMessage *ChatMessage `json:"last_message,omitempty"`
}

// PartnerID returns the other participant of a direct chat.
func (c *Chat) PartnerID(userID int64) int64 {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}
