package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

var (
	ErrEdgeNotFound   = errors.New("friend request not found")
	ErrAlreadyFriends = errors.New("already friends")
	ErrRequestPending = errors.New("friend request already pending")
	ErrDuplicateEdge  = errors.New("friend edge already exists")
)

// FriendRepository abstracts friend edge persistence.
type FriendRepository interface {
	Create(ctx context.Context, requesterID, recipientID int64) (models.FriendEdge, error)
	Get(ctx context.Context, id int64) (models.FriendEdge, error)
	FindBetween(ctx context.Context, a, b int64) (models.FriendEdge, error)
	SetStatus(ctx context.Context, id int64, status string) error
	ListForAccount(ctx context.Context, accountID int64, status string) ([]models.FriendEdge, error)
}

// FriendRepo is a sqlx implementation of FriendRepository.
type FriendRepo struct {
	db *sqlx.DB
}

// NewFriendRepo constructs a FriendRepo.
func NewFriendRepo(db *sqlx.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// Create inserts a pending edge. The unordered-pair unique index backstops
// the pre-check in the handler against concurrent duplicate requests.
func (r *FriendRepo) Create(ctx context.Context, requesterID, recipientID int64) (models.FriendEdge, error) {
	var edge models.FriendEdge
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO friend_edges (requester_id, recipient_id, status) VALUES ($1, $2, 'pending')
         RETURNING id, requester_id, recipient_id, status, created_at`,
		requesterID, recipientID).StructScan(&edge)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.FriendEdge{}, ErrDuplicateEdge
		}
		return models.FriendEdge{}, err
	}
	return edge, nil
}

// Get fetches an edge by id.
func (r *FriendRepo) Get(ctx context.Context, id int64) (models.FriendEdge, error) {
	var edge models.FriendEdge
	err := r.db.GetContext(ctx, &edge,
		`SELECT id, requester_id, recipient_id, status, created_at FROM friend_edges WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendEdge{}, ErrEdgeNotFound
	}
	return edge, err
}

// FindBetween looks up the edge between two accounts in either direction.
func (r *FriendRepo) FindBetween(ctx context.Context, a, b int64) (models.FriendEdge, error) {
	var edge models.FriendEdge
	err := r.db.GetContext(ctx, &edge,
		`SELECT id, requester_id, recipient_id, status, created_at FROM friend_edges
         WHERE (requester_id=$1 AND recipient_id=$2) OR (requester_id=$2 AND recipient_id=$1)`, a, b)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendEdge{}, ErrEdgeNotFound
	}
	return edge, err
}

// SetStatus transitions the edge.
func (r *FriendRepo) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE friend_edges SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrEdgeNotFound
	}
	return nil
}

// ListForAccount returns edges touching the account with the given status.
func (r *FriendRepo) ListForAccount(ctx context.Context, accountID int64, status string) ([]models.FriendEdge, error) {
	var edges []models.FriendEdge
	err := r.db.SelectContext(ctx, &edges,
		`SELECT id, requester_id, recipient_id, status, created_at FROM friend_edges
         WHERE (requester_id=$1 OR recipient_id=$1) AND status=$2
         ORDER BY created_at DESC`, accountID, status)
	return edges, err
}
