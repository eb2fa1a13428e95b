package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newGateway(token string, fn roundTripperFunc) *Gateway {
	client := &http.Client{Transport: fn, Timeout: time.Second}
	return New("http://example.com", client, staticToken(token), nil)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("{}")),
	}
}

func TestBearerHeaderWithToken(t *testing.T) {
	var got string
	gw := newGateway("abc123", func(req *http.Request) (*http.Response, error) {
		got = req.Header.Get("Authorization")
		return okResponse(), nil
	})

	resp, err := gw.Get(context.Background(), "/task", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Bearer abc123", got)
}

func TestAuthorizationHeaderSentEmptyWithoutToken(t *testing.T) {
	var header http.Header
	gw := newGateway("", func(req *http.Request) (*http.Response, error) {
		header = req.Header
		return okResponse(), nil
	})

	resp, err := gw.Get(context.Background(), "/task", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The header must be present but empty, not omitted.
	vals, ok := header["Authorization"]
	require.True(t, ok)
	assert.Equal(t, []string{""}, vals)
}

func TestQueryParamsPassedVerbatim(t *testing.T) {
	var gotURL *url.URL
	gw := newGateway("t", func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL
		return okResponse(), nil
	})

	params := url.Values{}
	params.Set("state", "done")
	params.Set("page_number", "1")

	resp, err := gw.Get(context.Background(), "/task", params)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "/task", gotURL.Path)
	assert.Equal(t, "page_number=1&state=done", gotURL.RawQuery)
}

func TestRequestIDAttached(t *testing.T) {
	seen := map[string]bool{}
	gw := newGateway("t", func(req *http.Request) (*http.Response, error) {
		id := req.Header.Get("X-Request-Id")
		assert.NotEmpty(t, id)
		seen[id] = true
		return okResponse(), nil
	})

	for range 3 {
		resp, err := gw.Get(context.Background(), "/task", nil)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Len(t, seen, 3)
}

func TestVerbsAndContentType(t *testing.T) {
	var gotMethod, gotCT string
	fn := func(req *http.Request) (*http.Response, error) {
		gotMethod = req.Method
		gotCT = req.Header.Get("Content-Type")
		return okResponse(), nil
	}
	gw := newGateway("t", fn)
	ctx := context.Background()

	resp, err := gw.Post(ctx, "/login", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotCT)

	resp, err = gw.Put(ctx, "/task/1", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.MethodPut, gotMethod)

	resp, err = gw.Patch(ctx, "/resetPassword", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.MethodPatch, gotMethod)

	resp, err = gw.Delete(ctx, "/task/1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.MethodDelete, gotMethod)
}
