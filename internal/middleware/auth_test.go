package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestBearerAuth(t *testing.T) {
	verify := func(token string) (int64, error) {
		if token == "valid" {
			return 7, nil
		}
		return 0, errors.New("bad token")
	}

	var gotUserID int64
	handler := BearerAuth(verify)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantCode   int
		wantUserID int64
	}{
		{"valid token", "Bearer valid", http.StatusOK, 7},
		{"invalid token", "Bearer expired", http.StatusUnauthorized, 0},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0},
		{"bare Bearer", "Bearer ", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = 0
			req := httptest.NewRequest(http.MethodGet, "/task", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantCode)
			}
			if gotUserID != tt.wantUserID {
				t.Errorf("user id in context = %d; want %d", gotUserID, tt.wantUserID)
			}
		})
	}
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetUserIDFromContext(req.Context()); id != 0 {
		t.Errorf("expected 0 for a context without a user, got %d", id)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0), 2)
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := []int{}
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first two requests within the burst should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request should be limited, got %d", codes[2])
	}
}
