package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMembershipNotFound   = errors.New("not a conversation member")
)

// ConversationRepository abstracts conversation and membership persistence.
type ConversationRepository interface {
	CreateDirect(ctx context.Context, a, b int64) (models.Conversation, bool, error)
	CreateGroup(ctx context.Context, creatorID int64, memberIDs []int64, name *string) (models.Conversation, error)
	Get(ctx context.Context, id int64) (models.Conversation, error)
	ListForAccount(ctx context.Context, accountID int64) ([]models.Conversation, error)
	IsMember(ctx context.Context, conversationID, accountID int64) (bool, error)
	MemberIDs(ctx context.Context, conversationID int64) ([]int64, error)
	ListMemberships(ctx context.Context, conversationID int64) ([]models.Membership, error)
	GetMembership(ctx context.Context, conversationID, accountID int64) (models.Membership, error)
	AddMembers(ctx context.Context, conversationID int64, memberIDs []int64) ([]int64, error)
	Leave(ctx context.Context, conversationID, accountID int64) error
	SetCustomName(ctx context.Context, conversationID, accountID int64, name string) error
	MarkRead(ctx context.Context, conversationID, accountID, messageID int64) error
	UpdateSummary(ctx context.Context, conversationID int64, text string, at time.Time) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateDirect returns the existing direct conversation between the two
// accounts, or creates one. The second return value is true when a new
// conversation was created.
func (r *ConversationRepo) CreateDirect(ctx context.Context, a, b int64) (models.Conversation, bool, error) {
	if a == b {
		return models.Conversation{}, false, errors.New("cannot create conversation with self")
	}

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT c.id, c.kind, c.name, c.last_message, c.last_message_at, c.created_by, c.created_at
         FROM conversations c
         JOIN conversation_members m1 ON m1.conversation_id = c.id AND m1.account_id = $1
         JOIN conversation_members m2 ON m2.conversation_id = c.id AND m2.account_id = $2
         WHERE c.kind = 'direct'`, a, b)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO conversations (kind, created_by) VALUES ('direct', $1)
         RETURNING id, kind, name, last_message, last_message_at, created_by, created_at`, a).
		StructScan(&conv); err != nil {
		return models.Conversation{}, false, err
	}

	for _, id := range []int64{a, b} {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, account_id) VALUES ($1, $2)`, conv.ID, id); err != nil {
			return models.Conversation{}, false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, false, err
	}
	return conv, true, nil
}

// CreateGroup creates a group conversation. The creator is always a member,
// and duplicate member ids collapse to one membership record each.
func (r *ConversationRepo) CreateGroup(ctx context.Context, creatorID int64, memberIDs []int64, name *string) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var conv models.Conversation
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO conversations (kind, name, created_by) VALUES ('group', $1, $2)
         RETURNING id, kind, name, last_message, last_message_at, created_by, created_at`, name, creatorID).
		StructScan(&conv); err != nil {
		return models.Conversation{}, err
	}

	memberSet := map[int64]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]int64, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, account_id) VALUES ($1, $2)`, conv.ID, id); err != nil {
			return models.Conversation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, id int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT id, kind, name, last_message, last_message_at, created_by, created_at FROM conversations WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListForAccount returns the conversations the account has joined, most
// recently active first.
func (r *ConversationRepo) ListForAccount(ctx context.Context, accountID int64) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs,
		`SELECT c.id, c.kind, c.name, c.last_message, c.last_message_at, c.created_by, c.created_at
         FROM conversations c
         JOIN conversation_members m ON m.conversation_id = c.id
         WHERE m.account_id = $1
         ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`, accountID)
	return convs, err
}

// IsMember checks whether the account has a membership record.
func (r *ConversationRepo) IsMember(ctx context.Context, conversationID, accountID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversation_members WHERE conversation_id=$1 AND account_id=$2)`,
		conversationID, accountID)
	return exists, err
}

// MemberIDs returns the account ids of all current members.
func (r *ConversationRepo) MemberIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT account_id FROM conversation_members WHERE conversation_id=$1 ORDER BY account_id`, conversationID)
	return ids, err
}

// ListMemberships returns every membership record of the conversation,
// read cursors included.
func (r *ConversationRepo) ListMemberships(ctx context.Context, conversationID int64) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.SelectContext(ctx, &members,
		`SELECT conversation_id, account_id, custom_name, last_read_message_id, joined_at
         FROM conversation_members WHERE conversation_id=$1`, conversationID)
	return members, err
}

// GetMembership fetches one account's membership record.
func (r *ConversationRepo) GetMembership(ctx context.Context, conversationID, accountID int64) (models.Membership, error) {
	var member models.Membership
	err := r.db.GetContext(ctx, &member,
		`SELECT conversation_id, account_id, custom_name, last_read_message_id, joined_at
         FROM conversation_members WHERE conversation_id=$1 AND account_id=$2`, conversationID, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, ErrMembershipNotFound
	}
	return member, err
}

// AddMembers inserts membership records for the ids not already present and
// returns the ids actually added. Growing a direct conversation past two
// members flips its kind to group.
func (r *ConversationRepo) AddMembers(ctx context.Context, conversationID int64, memberIDs []int64) ([]int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var current []int64
	if err = tx.SelectContext(ctx, &current,
		`SELECT account_id FROM conversation_members WHERE conversation_id=$1`, conversationID); err != nil {
		return nil, err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}

	added := make([]int64, 0, len(memberIDs))
	for _, id := range memberIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		existing[id] = struct{}{}
		added = append(added, id)
	}
	if len(added) == 0 {
		err = tx.Rollback()
		return []int64{}, err
	}

	for _, id := range added {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, account_id) VALUES ($1, $2)`, conversationID, id); err != nil {
			return nil, err
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE conversations SET kind='group' WHERE id=$1 AND kind='direct'`, conversationID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return added, nil
}

// Leave removes only the account's own membership record. The conversation
// and its history stay intact for remaining members, even when none remain.
func (r *ConversationRepo) Leave(ctx context.Context, conversationID, accountID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_members WHERE conversation_id=$1 AND account_id=$2`, conversationID, accountID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// SetCustomName sets the caller's private display name for the conversation.
func (r *ConversationRepo) SetCustomName(ctx context.Context, conversationID, accountID int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversation_members SET custom_name=$3 WHERE conversation_id=$1 AND account_id=$2`,
		conversationID, accountID, name)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// MarkRead moves the account's read cursor to the given message id.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, accountID, messageID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversation_members SET last_read_message_id=$3 WHERE conversation_id=$1 AND account_id=$2`,
		conversationID, accountID, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// UpdateSummary refreshes the denormalized last-message cache. It is a
// separate write from the message insert and is allowed to fail without
// rolling the message back.
func (r *ConversationRepo) UpdateSummary(ctx context.Context, conversationID int64, text string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET last_message=$2, last_message_at=$3 WHERE id=$1`, conversationID, text, at)
	return err
}
