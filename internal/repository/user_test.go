package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupUserMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresUserRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

var userColumns = []string{"id", "first_name", "last_name", "email", "password_hash", "confirmed", "created_on"}

func TestUserCreate_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (first_name, last_name, email, password_hash, confirmation_code)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`)).
		WithArgs("Ada", "Lovelace", "ada@example.com", "hash", "code-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := repo.Create(context.Background(), "Ada", "Lovelace", "ada@example.com", "hash", "code-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 7 {
		t.Errorf("expected id 7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserCreate_Error(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))

	_, err := repo.Create(context.Background(), "Ada", "Lovelace", "ada@example.com", "hash", "code-1")
	if err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByEmail_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, first_name, last_name, email, password_hash, confirmed, created_on
			 FROM users WHERE email = $1`)).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "Ada", "Lovelace", "ada@example.com", "hash", true, created))

	rec, err := repo.FindByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != 7 || rec.PasswordHash != "hash" {
		t.Errorf("unexpected record: %+v", rec)
	}

	u := rec.User()
	if u.CreatedOn != "2024-03-01T12:00:00Z" {
		t.Errorf("expected RFC3339 created_on, got %q", u.CreatedOn)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET first_name = $1, last_name = $2, email = $3 WHERE id = $4`)).
		WithArgs("Ada", "Byron", "ada@example.com", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "Ada", "Byron", "ada@example.com", "hash", true, time.Now()))

	rec, err := repo.UpdateProfile(context.Background(), 7, "Ada", "Byron", "ada@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.LastName != "Byron" {
		t.Errorf("expected updated last name, got %q", rec.LastName)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateProfile(context.Background(), 99, "A", "B", "c@d.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestConfirm_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET confirmed = TRUE, confirmation_code = NULL WHERE confirmation_code = $1`)).
		WithArgs("code-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Confirm(context.Background(), "code-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestConfirm_UnknownCode(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET confirmed = TRUE`)).
		WithArgs("bogus").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Confirm(context.Background(), "bogus"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSetResetToken_UnknownEmail(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET reset_token = $1 WHERE email = $2`)).
		WithArgs("token-1", "nobody@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetResetToken(context.Background(), "nobody@example.com", "token-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestConsumeResetToken_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1, reset_token = NULL WHERE reset_token = $2`)).
		WithArgs("newhash", "token-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ConsumeResetToken(context.Background(), "token-1", "newhash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestConsumeResetToken_InvalidToken(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1, reset_token = NULL WHERE reset_token = $2`)).
		WithArgs("newhash", "expired").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ConsumeResetToken(context.Background(), "expired", "newhash")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
