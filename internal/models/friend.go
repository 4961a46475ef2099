package models

import "time"

// Friend edge statuses. Accepted and rejected are terminal.
const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
	FriendRejected = "rejected"
)

// FriendEdge is a directional friend request between two accounts. At most
// one edge exists per unordered account pair regardless of direction.
type FriendEdge struct {
	ID          int64     `db:"id" json:"id"`
	RequesterID int64     `db:"requester_id" json:"requester_id"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
