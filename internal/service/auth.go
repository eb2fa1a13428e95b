// Package service provides the server-side business logic for
// accounts and tasks, delegating persistence to the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/TaskKeeper/internal/models"
	"github.com/atinyakov/TaskKeeper/internal/repository"
)

var (
	// ErrInvalidCredentials covers unknown accounts and wrong
	// passwords alike, so responses do not leak which one it was.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDuplicateEmail is returned when registering an email that
	// already has an account.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	// ErrValidation wraps user-input problems.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound mirrors repository.ErrNotFound at this layer.
	ErrNotFound = errors.New("not found")
)

const (
	tokenTTL          = 24 * time.Hour
	minPasswordLength = 6
)

// UserRepository is the persistence surface the auth service needs.
type UserRepository interface {
	Create(ctx context.Context, firstName, lastName, email, passwordHash, confirmationCode string) (int64, error)
	FindByEmail(ctx context.Context, email string) (*repository.UserRecord, error)
	FindByID(ctx context.Context, id int64) (*repository.UserRecord, error)
	UpdateProfile(ctx context.Context, id int64, firstName, lastName, email string) (*repository.UserRecord, error)
	Confirm(ctx context.Context, code string) error
	SetResetToken(ctx context.Context, email, token string) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string) error
}

// Claims is the session token payload; the embedded user is what the
// client decodes for display.
type Claims struct {
	jwt.RegisteredClaims
	User models.User `json:"user"`
}

// Auth implements account management and session token issuance.
type Auth struct {
	users  UserRepository
	secret []byte
	logger *zap.Logger
}

// NewAuth constructs the auth service. secret signs session tokens.
func NewAuth(users UserRepository, secret []byte, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auth{users: users, secret: secret, logger: logger}
}

// Login verifies the credentials and returns a signed session token
// embedding the user.
func (a *Auth) Login(ctx context.Context, username, password string) (string, error) {
	rec, err := a.users.FindByEmail(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return a.issueToken(rec.User())
}

// Register creates a new unconfirmed account. The confirmation code
// would be emailed in a production deployment; the reference server
// logs it instead.
func (a *Auth) Register(ctx context.Context, u models.UserCreate) error {
	if u.FirstName == "" || u.LastName == "" || u.Email == "" {
		return fmt.Errorf("%w: first name, last name and email are required", ErrValidation)
	}
	if len(u.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if u.Password != u.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	if _, err := a.users.FindByEmail(ctx, u.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	code := uuid.NewString()
	id, err := a.users.Create(ctx, u.FirstName, u.LastName, u.Email, string(hash), code)
	if err != nil {
		return err
	}

	a.logger.Info("account created",
		zap.Int64("user_id", id),
		zap.String("confirmation_code", code),
	)
	return nil
}

// ConfirmAccount redeems a confirmation code.
func (a *Auth) ConfirmAccount(ctx context.Context, code string) error {
	err := a.users.Confirm(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: unknown confirmation code", ErrValidation)
	}
	return err
}

// ForgotPassword issues a reset token for the account. The token
// would be emailed in production; the reference server logs it.
// Unknown emails succeed silently so the endpoint cannot be used to
// probe for accounts.
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	token := uuid.NewString()
	err := a.users.SetResetToken(ctx, email, token)
	if errors.Is(err, repository.ErrNotFound) {
		a.logger.Info("password reset requested for unknown email", zap.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}
	a.logger.Info("password reset token issued",
		zap.String("email", email),
		zap.String("reset_token", token),
	)
	return nil
}

// ResetPassword consumes a reset token and installs the new password.
func (a *Auth) ResetPassword(ctx context.Context, data models.ResetPassword) error {
	if len(data.NewPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if data.NewPassword != data.ConfirmNewPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = a.users.ConsumeResetToken(ctx, data.ResetPasswordToken, string(hash))
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: invalid or expired reset token", ErrValidation)
	}
	return err
}

// UpdateUser applies a partial profile update and, because the token
// payload embeds the profile, issues a replacement token.
func (a *Auth) UpdateUser(ctx context.Context, id int64, data models.UserUpdate) (string, error) {
	rec, err := a.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	firstName := rec.FirstName
	lastName := rec.LastName
	email := rec.Email
	if data.FirstName != nil {
		firstName = *data.FirstName
	}
	if data.LastName != nil {
		lastName = *data.LastName
	}
	if data.Email != nil {
		email = *data.Email
	}

	updated, err := a.users.UpdateProfile(ctx, id, firstName, lastName, email)
	if err != nil {
		return "", err
	}
	return a.issueToken(updated.User())
}

// VerifyToken validates a session token's signature and expiry and
// returns its claims.
func (a *Auth) VerifyToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *Auth) issueToken(user models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		User: user,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
