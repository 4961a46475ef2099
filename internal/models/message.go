package models

import "time"

// Message statuses. The status column is legacy and informational only;
// read state is derived from membership cursors, never from this field.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// Message is an append-only chat message. The id is a snowflake: strictly
// increasing with creation time, so id comparison doubles as the ordering
// comparator for pagination and unread counts.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	SenderName     string    `db:"sender_name" json:"sender_name"`
	Content        string    `db:"content" json:"content"`
	Attachment     *string   `db:"attachment" json:"attachment,omitempty"`
	Status         string    `db:"status" json:"status"`
	SentAt         time.Time `db:"sent_at" json:"sent_at"`
}

// UnreadBy reports whether the membership's account still counts this message
// as unread: the account is not the sender and either has no read cursor or
// a cursor that orders before the message id.
func (m Message) UnreadBy(member Membership) bool {
	if member.AccountID == m.SenderID {
		return false
	}
	if member.LastReadMessageID == nil {
		return true
	}
	return m.ID > *member.LastReadMessageID
}
