// Package auth manages the authenticated session: login and logout,
// account flows, the persisted session token, and the current-user
// broadcast other parts of the client observe.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/TaskKeeper/internal/client/broadcast"
	"github.com/atinyakov/TaskKeeper/internal/client/gateway"
	"github.com/atinyakov/TaskKeeper/internal/client/session"
	"github.com/atinyakov/TaskKeeper/internal/models"
)

// tokenClaims is the session token payload. Only the embedded user
// object is of interest client-side.
type tokenClaims struct {
	jwt.RegisteredClaims
	User *models.User `json:"user"`
}

// Service owns the session token and the decoded current user.
type Service struct {
	gw     *gateway.Gateway
	store  *session.Store
	logger *zap.Logger

	mu      sync.Mutex
	current *models.User
	users   *broadcast.Broadcaster[*models.User]
}

// NewService constructs the auth service and immediately attempts to
// restore a session from any stored token. A token whose payload
// cannot be decoded is treated as no session: the token is cleared
// and the current user stays nil.
func NewService(gw *gateway.Gateway, store *session.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		gw:     gw,
		store:  store,
		logger: logger,
		users:  broadcast.New[*models.User](),
	}
	s.restoreFromStore()
	return s
}

func (s *Service) restoreFromStore() {
	token := s.store.Token()
	if token == "" {
		return
	}
	user := decodeToken(token)
	if user == nil {
		// Implicit logout: the stored credential is unusable.
		s.logger.Info("stored token is not decodable, clearing session")
		_ = s.store.Clear()
		return
	}
	s.setCurrentUser(user)
}

// Login submits the credentials as multipart form fields. When the
// response carries an access token it is persisted and its embedded
// user published; a token-less response leaves the session untouched.
func (s *Service) Login(ctx context.Context, creds models.LoginCredentials) (*models.TokenResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("username", creds.Username); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := w.WriteField("password", creds.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	resp, err := s.gw.Post(ctx, "/login", w.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	var out models.TokenResponse
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if out.AccessToken != "" {
		if err := s.store.SetToken(out.AccessToken); err != nil {
			return nil, fmt.Errorf("login: persist token: %w", err)
		}
		s.setCurrentUser(decodeToken(out.AccessToken))
	}
	return &out, nil
}

// Logout calls the logout endpoint and then tears the local session
// down no matter what the server said: the token is cleared and nil
// published as the current user. The network error, if any, is still
// reported.
func (s *Service) Logout(ctx context.Context) error {
	resp, err := s.gw.Get(ctx, "/logout", nil)
	if resp != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	if clearErr := s.store.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	s.setCurrentUser(nil)

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Register creates a new account. The session is not touched.
func (s *Service) Register(ctx context.Context, user models.UserCreate) (*models.BaseResponse, error) {
	return s.postJSON(ctx, "/users", user, "register")
}

// ForgotPassword requests a password-reset email.
func (s *Service) ForgotPassword(ctx context.Context, data models.ForgotPassword) (*models.BaseResponse, error) {
	return s.postJSON(ctx, "/forgotPassword", data, "forgot password")
}

// ResetPassword completes a password reset with the emailed token.
func (s *Service) ResetPassword(ctx context.Context, data models.ResetPassword) (*models.BaseResponse, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	resp, err := s.gw.Patch(ctx, "/resetPassword", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	defer resp.Body.Close()

	var out models.BaseResponse
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	return &out, nil
}

// ConfirmAccount redeems an account-confirmation code.
func (s *Service) ConfirmAccount(ctx context.Context, code string) (*models.BaseResponse, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, fmt.Errorf("confirm account: %w", err)
	}
	resp, err := s.gw.Patch(ctx, "/confirmAccount", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("confirm account: %w", err)
	}
	defer resp.Body.Close()

	var out models.BaseResponse
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("confirm account: %w", err)
	}
	return &out, nil
}

// UpdateUser sends a partial profile update. When the server returns
// a replacement token it is persisted and its embedded user
// published; without one the published user is left as-is even
// though the profile may have changed server-side.
func (s *Service) UpdateUser(ctx context.Context, id int64, data models.UserUpdate) (*models.UpdateUserResponse, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	resp, err := s.gw.Put(ctx, fmt.Sprintf("/users/%d", id), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	defer resp.Body.Close()

	var out models.UpdateUserResponse
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if out.NewToken != "" {
		if err := s.store.SetToken(out.NewToken); err != nil {
			return nil, fmt.Errorf("update user: persist token: %w", err)
		}
		if user := decodeToken(out.NewToken); user != nil {
			s.setCurrentUser(user)
		}
	}
	return &out, nil
}

// IsAuthenticated reports whether a session token is present. Token
// expiry is deliberately not inspected.
func (s *Service) IsAuthenticated() bool {
	return s.store.Token() != ""
}

// CurrentUser returns the most recently published user, or nil when
// unauthenticated.
func (s *Service) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe delivers subsequent current-user changes. The present
// value is not replayed.
func (s *Service) Subscribe() (<-chan *models.User, func()) {
	return s.users.Subscribe()
}

func (s *Service) setCurrentUser(u *models.User) {
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
	s.users.Publish(u)
}

func (s *Service) postJSON(ctx context.Context, path string, payload any, op string) (*models.BaseResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := s.gw.Post(ctx, path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var out models.BaseResponse
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

func decodeBody(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope models.BaseResponse
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, envelope.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeToken extracts the user object embedded in the token payload.
// The middle segment is base64-decoded and parsed as JSON; the
// signature is never verified (the payload is display-only and the
// server re-checks every request). Any failure yields nil.
func decodeToken(token string) *models.User {
	claims := &tokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims.User
}
