package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/TaskKeeper/internal/middleware"
	"github.com/atinyakov/TaskKeeper/internal/models"
)

// AuthService defines the account operations required by the HTTP
// handlers.
type AuthService interface {
	// Login verifies the credentials and returns a signed session token.
	Login(ctx context.Context, username, password string) (string, error)
	// Register creates a new unconfirmed account.
	Register(ctx context.Context, u models.UserCreate) error
	// ConfirmAccount redeems a confirmation code.
	ConfirmAccount(ctx context.Context, code string) error
	// ForgotPassword issues a password-reset token for the email.
	ForgotPassword(ctx context.Context, email string) error
	// ResetPassword consumes a reset token and installs a new password.
	ResetPassword(ctx context.Context, data models.ResetPassword) error
	// UpdateUser applies a partial profile update and returns a
	// replacement session token.
	UpdateUser(ctx context.Context, id int64, data models.UserUpdate) (string, error)
}

// AuthHandler handles the authentication and account endpoints.
type AuthHandler struct {
	AuthService AuthService
}

// Login handles POST /login. Credentials arrive as multipart form
// fields, not JSON. A successful login answers with the access
// token; bad credentials answer HTTP 200 with an embedded 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	token, err := h.AuthService.Login(r.Context(), username, password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{
		Status:      http.StatusOK,
		Message:     "login successful",
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Register handles POST /users.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.AuthService.Register(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, "account created, confirmation code sent")
}

// ForgotPassword handles POST /forgotPassword.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPassword
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, "password reset email sent")
}

// ResetPassword handles PATCH /resetPassword.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPassword
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.AuthService.ResetPassword(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, "password reset")
}

// ConfirmAccount handles PATCH /confirmAccount.
func (h *AuthHandler) ConfirmAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.AuthService.ConfirmAccount(r.Context(), req.Code); err != nil {
		writeServiceError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, "account confirmed")
}

// Logout handles GET /logout. Sessions are stateless tokens, so
// there is nothing to revoke server-side; the endpoint exists for
// the client's teardown sequence.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, "logged out")
}

// UpdateUser handles PUT /users/{id}. Users may only update their
// own profile. The response carries a replacement token because the
// token payload embeds the profile.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if id != middleware.GetUserIDFromContext(r.Context()) {
		writeEnvelope(w, http.StatusForbidden, "cannot update another user")
		return
	}

	var req models.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	token, err := h.AuthService.UpdateUser(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UpdateUserResponse{
		BaseResponse: models.BaseResponse{Status: http.StatusOK, Message: "profile updated"},
		NewToken:     token,
	})
}
