// Package repository provides PostgreSQL persistence for users and tasks.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/atinyakov/TaskKeeper/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// UserRecord is a user row including the fields never exposed to
// clients.
type UserRecord struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Confirmed    bool
	CreatedOn    time.Time
}

// User converts the record to its client-facing shape.
func (r UserRecord) User() models.User {
	return models.User{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Confirmed: r.Confirmed,
		CreatedOn: r.CreatedOn.UTC().Format(time.RFC3339),
	}
}

// PostgresUserRepository implements user persistence on PostgreSQL.
type PostgresUserRepository struct {
	DB *sql.DB
}

// NewPostgresUserRepository creates a repository over the given
// database handle.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// Create inserts a new unconfirmed user and returns its ID. The
// unique constraint on email surfaces as a database error the caller
// maps to a duplicate-account failure.
func (r *PostgresUserRepository) Create(ctx context.Context, firstName, lastName, email, passwordHash, confirmationCode string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(
		ctx,
		`INSERT INTO users (first_name, last_name, email, password_hash, confirmation_code)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		firstName, lastName, email, passwordHash, confirmationCode,
	).Scan(&id)
	return id, err
}

// FindByEmail returns the user row for email, or ErrNotFound.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	rec := &UserRecord{}
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, first_name, last_name, email, password_hash, confirmed, created_on
		 FROM users WHERE email = $1`,
		email,
	).Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.Email, &rec.PasswordHash, &rec.Confirmed, &rec.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByID returns the user row for id, or ErrNotFound.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	rec := &UserRecord{}
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, first_name, last_name, email, password_hash, confirmed, created_on
		 FROM users WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.Email, &rec.PasswordHash, &rec.Confirmed, &rec.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateProfile overwrites the mutable profile fields and returns
// the fresh row.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName, email string) (*UserRecord, error) {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE users SET first_name = $1, last_name = $2, email = $3 WHERE id = $4`,
		firstName, lastName, email, id,
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Confirm marks the user carrying the confirmation code as confirmed
// and clears the code. ErrNotFound when the code matches nothing.
func (r *PostgresUserRepository) Confirm(ctx context.Context, code string) error {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE users SET confirmed = TRUE, confirmation_code = NULL WHERE confirmation_code = $1`,
		code,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken attaches a password-reset token to the account with
// the given email. ErrNotFound when no such account exists.
func (r *PostgresUserRepository) SetResetToken(ctx context.Context, email, token string) error {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE users SET reset_token = $1 WHERE email = $2`,
		token, email,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetToken replaces the password of the account holding the
// token and clears the token so it cannot be reused.
func (r *PostgresUserRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string) error {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE users SET password_hash = $1, reset_token = NULL WHERE reset_token = $2`,
		passwordHash, token,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
