package model

import (
	"fmt"
	"time"
)

// Message is one persisted chat message. Immutable after insert except
// for IsRead, which only ever flips false -> true.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	RecipientID    int64     `json:"recipient_id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	IsRead         bool      `json:"is_read"`
}

// ConversationID derives the canonical conversation key for a pair.
// Sorting the ids makes it independent of who sends first, so both
// directions of a pair always land in the same conversation.
func ConversationID(a, b int64) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("conv_%d_%d", a, b)
}

// ConversationSummary is one row of the recent-conversations listing:
// the partner, their latest message, and the live unread count. Partners
// who are no longer friends still appear; history outlives the edge.
type ConversationSummary struct {
	PartnerID       int64     `json:"partner_id"`
	PartnerUsername string    `json:"partner_username"`
	LastText        string    `json:"last_text"`
	LastSenderID    int64     `json:"last_sender_id"`
	LastTimestamp   time.Time `json:"last_timestamp"`
	UnreadCount     int64     `json:"unread_count"`
}
