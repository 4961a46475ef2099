package models

import "time"

// Account is a registered user.
type Account struct {
	ID            int64     `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Username      string    `db:"username" json:"username"`
	StatusMessage string    `db:"status_message" json:"status_message"`
	Avatar        string    `db:"avatar" json:"avatar"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AccountRef is the public slice of an account embedded in other responses.
type AccountRef struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Avatar   string `db:"avatar" json:"avatar"`
}

// Membership links an account to a conversation it has joined. The
// last_read_message_id column is the account's read cursor: unread counts are
// derived by comparing message ids against it, there is no per-message flag.
type Membership struct {
	ConversationID    int64     `db:"conversation_id" json:"conversation_id"`
	AccountID         int64     `db:"account_id" json:"account_id"`
	CustomName        *string   `db:"custom_name" json:"custom_name,omitempty"`
	LastReadMessageID *int64    `db:"last_read_message_id" json:"last_read_message_id,omitempty"`
	JoinedAt          time.Time `db:"joined_at" json:"joined_at"`
}
