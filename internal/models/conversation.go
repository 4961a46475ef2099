package models

import "time"

// Conversation kinds. A direct conversation has exactly two members until a
// successful member addition mutates it to a group.
const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// Conversation is a message thread between two or more accounts.
// LastMessage and LastMessageAt are a denormalized summary cache updated on
// send, independently of the message write itself.
type Conversation struct {
	ID            int64      `db:"id" json:"id"`
	Kind          string     `db:"kind" json:"kind"`
	Name          *string    `db:"name" json:"name,omitempty"`
	LastMessage   *string    `db:"last_message" json:"last_message,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedBy     int64      `db:"created_by" json:"created_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ConversationSummary is the list view of a conversation for one account.
type ConversationSummary struct {
	Conversation
	CustomName  *string     `json:"custom_name,omitempty"`
	UnreadCount int         `json:"unread_count"`
	MemberIDs   []int64     `json:"member_ids"`
	Peer        *AccountRef `json:"peer,omitempty"`
}
