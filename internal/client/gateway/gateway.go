// Package gateway is the single place outbound API requests pass
// through. It attaches the bearer token from the session store and
// forwards plain HTTP verbs to the underlying http.Client.
package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource yields the current session token, or "" when there is
// no session.
type TokenSource interface {
	Token() string
}

// Gateway issues HTTP requests against a fixed base URL. It holds no
// domain knowledge: services build paths, bodies, and parse
// responses themselves.
type Gateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	logger  *zap.Logger
}

// New constructs a Gateway. client may be nil, in which case a
// default client with a 30s timeout is used.
func New(baseURL string, client *http.Client, tokens TokenSource, logger *zap.Logger) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{baseURL: baseURL, client: client, tokens: tokens, logger: logger}
}

// Get issues a GET to path. params may be nil; non-nil params are
// encoded as the query string verbatim, the gateway adds nothing.
func (g *Gateway) Get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	return g.do(ctx, http.MethodGet, path, params, "", nil)
}

// Post issues a POST with the given body and content type.
func (g *Gateway) Post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	return g.do(ctx, http.MethodPost, path, nil, contentType, body)
}

// Put issues a PUT with the given body and content type.
func (g *Gateway) Put(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	return g.do(ctx, http.MethodPut, path, nil, contentType, body)
}

// Patch issues a PATCH with the given body and content type.
func (g *Gateway) Patch(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	return g.do(ctx, http.MethodPatch, path, nil, contentType, body)
}

// Delete issues a DELETE to path.
func (g *Gateway) Delete(ctx context.Context, path string) (*http.Response, error) {
	return g.do(ctx, http.MethodDelete, path, nil, "", nil)
}

func (g *Gateway) do(ctx context.Context, method, path string, params url.Values, contentType string, body io.Reader) (*http.Response, error) {
	u := g.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	// The original client always sends the header, empty when no
	// token is stored. Preserved as-is.
	token := g.tokens.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	g.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}
