package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"accountcore/internal/user/entity"
	"accountcore/pkg/utilities"
)

// ErrDuplicateEmail signals a unique-constraint violation on the email column
// so callers can answer with a conflict instead of a generic failure.
var ErrDuplicateEmail = errors.New("email already in use")

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id BIGINT PRIMARY KEY,
  name TEXT NOT NULL,
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  registration_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_login TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_users_status ON users(status);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const userColumns = `id, name, email, password_hash, status, registration_time, last_login`

// Create inserts a new account. The id is assigned here (snowflake) so the
// caller never picks one; returns ErrDuplicateEmail on a unique violation.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	const q = `INSERT INTO users (id, name, email, password_hash, status, registration_time)
		VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING registration_time`
	id := utilities.NewSnowflakeID()
	if u.Status == "" {
		u.Status = entity.StatusActive
	}
	row := r.db.QueryRowxContext(ctx, q, id, u.Name, u.Email, u.PasswordHash, u.Status)
	if err := row.Scan(&u.RegistrationTime); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, ErrDuplicateEmail
		}
		return 0, err
	}
	u.ID = id
	return id, nil
}

// GetByID fetches a full account row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByEmail fetches by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns every account ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows := []entity.User{}
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus applies a bulk status change and returns the affected count.
func (r *UserRepo) UpdateStatus(ctx context.Context, ids []int64, status string) (int64, error) {
	const q = `UPDATE users SET status=$1 WHERE id = ANY($2)`
	res, err := r.db.ExecContext(ctx, q, status, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes accounts in bulk and returns the affected count.
func (r *UserRepo) Delete(ctx context.Context, ids []int64) (int64, error) {
	const q = `DELETE FROM users WHERE id = ANY($1)`
	res, err := r.db.ExecContext(ctx, q, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TouchLastLogin stamps last_login from the database clock. GREATEST keeps
// the column from moving backwards if two logins race.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) (time.Time, error) {
	const q = `UPDATE users SET last_login = GREATEST(last_login, NOW()) WHERE id=$1 RETURNING last_login`
	var t time.Time
	if err := r.db.GetContext(ctx, &t, q, id); err != nil {
		return time.Time{}, err
	}
	return t, nil
}
