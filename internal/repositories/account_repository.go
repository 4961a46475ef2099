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
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("email or username already registered")
)

// AccountRepository abstracts account persistence.
type AccountRepository interface {
	Create(ctx context.Context, email, passwordHash, username string) (models.Account, error)
	GetByID(ctx context.Context, id int64) (models.Account, error)
	GetByEmail(ctx context.Context, email string) (models.Account, error)
	GetRefs(ctx context.Context, ids []int64) ([]models.AccountRef, error)
}

// AccountRepo is a sqlx implementation of AccountRepository.
type AccountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo constructs an AccountRepo.
func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, email, passwordHash, username string) (models.Account, error) {
	var account models.Account
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO accounts (email, password_hash, username) VALUES ($1, $2, $3)
         RETURNING id, email, password_hash, username, status_message, avatar, created_at`,
		email, passwordHash, username).StructScan(&account)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.Account{}, ErrDuplicateAccount
		}
		return models.Account{}, err
	}
	return account, nil
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT id, email, password_hash, username, status_message, avatar, created_at FROM accounts WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

// GetByEmail fetches an account by email, hash included, for login.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT id, email, password_hash, username, status_message, avatar, created_at FROM accounts WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

// GetRefs returns public account info for a set of ids.
func (r *AccountRepo) GetRefs(ctx context.Context, ids []int64) ([]models.AccountRef, error) {
	if len(ids) == 0 {
		return []models.AccountRef{}, nil
	}
	var refs []models.AccountRef
	err := r.db.SelectContext(ctx, &refs,
		`SELECT id, username, avatar FROM accounts WHERE id = ANY($1)`, pq.Array(ids))
	return refs, err
}
