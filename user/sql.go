package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByAuth0ID(ctx context.Context, auth0ID string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, getByAuth0IDQuery, auth0ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const getByAuth0IDQuery = `SELECT * FROM users WHERE auth0_id = $1`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const getByIDQuery = `SELECT * FROM users WHERE id = $1`

// InsertTx creates the user row inside the caller's transaction so the signup
// bonus ledger entry commits with it.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, auth0ID string) (*User, error) {
	var u User
	err := tx.GetContext(ctx, &u, insertQuery, uuid.New(), auth0ID)
	return &u, err
}

const insertQuery = `
INSERT INTO users (id, auth0_id) VALUES ($1, $2) RETURNING *
`

// LockTx takes the user's row lock. Every transaction that touches both a ride
// and a user locks the ride first, then the user, so lock cycles cannot form.
func (r *Repository) LockTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.GetContext(ctx, &locked, lockQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const lockQuery = `SELECT id FROM users WHERE id = $1 FOR UPDATE`

func (r *Repository) UpdateProfile(ctx context.Context, auth0ID, email, name string) error {
	_, err := r.db.ExecContext(ctx, updateProfileQuery, email, name, auth0ID)
	return err
}

const updateProfileQuery = `UPDATE users SET email = NULLIF($1, ''), name = NULLIF($2, '') WHERE auth0_id = $3`
