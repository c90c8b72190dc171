package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// AuthRepository is the credential store the auth service depends on.
type AuthRepository interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

var _ AuthRepository = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID           uuid.UUID
	CompanyID    *uuid.UUID
	Name         string
	Email        string
	Role         string
	IsActive     bool
	PasswordHash string
	CreatedAt    time.Time
}

const userColumns = `id, company_id, name, email, role, is_active, password_hash, created_at`

const getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`

const getUserByIDQuery = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, getUserByEmailQuery, email))
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, getUserByIDQuery, userID))
}

func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
