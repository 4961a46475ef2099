package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	sf "github.com/tinode/snowflake"

	"messenger-service/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNoMessages      = errors.New("conversation has no messages")
)

// MessageRepository abstracts message persistence. Messages are append-only;
// nothing here mutates a stored message apart from its legacy status column.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID int64, senderName, content string, attachment *string) (models.Message, error)
	Get(ctx context.Context, messageID int64) (models.Message, error)
	List(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]models.Message, error)
	ListRecent(ctx context.Context, conversationID int64, limit int) ([]models.Message, error)
	LatestID(ctx context.Context, conversationID int64) (int64, error)
	CountUnread(ctx context.Context, conversationID, accountID int64, afterID *int64) (int, error)
}

// MessageRepo is a sqlx implementation of MessageRepository. Ids come from a
// snowflake sequence: strictly increasing with creation time, so concurrent
// sends need no further coordination to keep conversation order.
type MessageRepo struct {
	db  *sqlx.DB
	seq *sf.SnowFlake
}

// NewMessageRepo constructs a MessageRepo with its own id sequence.
func NewMessageRepo(db *sqlx.DB, workerID uint32) (*MessageRepo, error) {
	seq, err := sf.NewSnowFlake(workerID)
	if err != nil {
		return nil, err
	}
	return &MessageRepo{db: db, seq: seq}, nil
}

// Create stores a message under a freshly generated snowflake id. The sender
// name is a snapshot taken at send time, never re-joined from accounts.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID int64, senderName, content string, attachment *string) (models.Message, error) {
	id, err := r.seq.Next()
	if err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, sender_name, content, attachment)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id, conversation_id, sender_id, sender_name, content, attachment, status, sent_at`,
		int64(id), conversationID, senderID, senderName, content, attachment).StructScan(&msg)
	return msg, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, conversation_id, sender_id, sender_name, content, attachment, status, sent_at
         FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// List returns up to limit messages in ascending id order. With beforeID set
// only messages strictly older than it are considered, which is the
// pagination contract: callers detect another page when len == limit.
func (r *MessageRepo) List(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]models.Message, error) {
	var msgs []models.Message
	var err error
	if beforeID != nil {
		err = r.db.SelectContext(ctx, &msgs,
			`SELECT id, conversation_id, sender_id, sender_name, content, attachment, status, sent_at
             FROM messages WHERE conversation_id=$1 AND id < $2
             ORDER BY id DESC LIMIT $3`, conversationID, *beforeID, limit)
	} else {
		err = r.db.SelectContext(ctx, &msgs,
			`SELECT id, conversation_id, sender_id, sender_name, content, attachment, status, sent_at
             FROM messages WHERE conversation_id=$1
             ORDER BY id DESC LIMIT $2`, conversationID, limit)
	}
	if err != nil {
		return nil, err
	}
	// Query newest-first for the limit, serve oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ListRecent returns the newest limit messages in ascending order. Used for
// the legacy room backlog on join.
func (r *MessageRepo) ListRecent(ctx context.Context, conversationID int64, limit int) ([]models.Message, error) {
	return r.List(ctx, conversationID, limit, nil)
}

// LatestID returns the id of the conversation's newest message.
func (r *MessageRepo) LatestID(ctx context.Context, conversationID int64) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id,
		`SELECT id FROM messages WHERE conversation_id=$1 ORDER BY id DESC LIMIT 1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoMessages
	}
	return id, err
}

// CountUnread counts messages from other senders ordered after the given
// cursor. A nil cursor counts every message from other senders.
func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, accountID int64, afterID *int64) (int, error) {
	var count int
	var err error
	if afterID != nil {
		err = r.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND sender_id<>$2 AND id > $3`,
			conversationID, accountID, *afterID)
	} else {
		err = r.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND sender_id<>$2`,
			conversationID, accountID)
	}
	return count, err
}
