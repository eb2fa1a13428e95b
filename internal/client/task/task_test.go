package task

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/TaskKeeper/internal/client/gateway"
	"github.com/atinyakov/TaskKeeper/internal/models"
)

// roundTripperFunc lets tests stand in for the real transport.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newService(fn roundTripperFunc) *Service {
	client := &http.Client{Transport: fn, Timeout: time.Second}
	gw := gateway.New("http://example.com", client, staticToken("tok"), nil)
	return NewService(gw, nil)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestList_QueryContainsOnlySetFilters(t *testing.T) {
	var gotQuery string
	svc := newService(func(req *http.Request) (*http.Response, error) {
		gotQuery = req.URL.RawQuery
		return jsonResponse(200, `{"status":200,"message":"ok","page_number":2,"page_size":20,"total_pages":1,"total_records":1,"list":[]}`), nil
	})

	_, err := svc.List(context.Background(), Filters{PageNumber: 2, PageSize: 20, State: "done"})
	require.NoError(t, err)
	assert.Equal(t, "page_number=2&page_size=20&state=done", gotQuery)
}

func TestList_EmptyFiltersSendNoParams(t *testing.T) {
	var gotQuery string
	svc := newService(func(req *http.Request) (*http.Response, error) {
		gotQuery = req.URL.RawQuery
		return jsonResponse(200, `{"status":200,"message":"ok","list":[]}`), nil
	})

	_, err := svc.List(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Empty(t, gotQuery)
}

func TestList_CachesReturnedTasks(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{
			"status":200,"message":"ok","page_number":1,"page_size":10,
			"total_pages":1,"total_records":2,
			"list":[
				{"id":1,"title":"first","state":"todo"},
				{"id":2,"title":"second","state":"doing"}
			]}`), nil
	})

	_, err := svc.List(context.Background(), Filters{PageNumber: 1})
	require.NoError(t, err)

	got, ok := svc.TaskFromCache(2)
	require.True(t, ok)
	assert.Equal(t, "second", got.Title)
	assert.Equal(t, "doing", got.State)
}

func TestList_BusinessFailureSkipsCache(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":500,"message":"backend unhappy","list":[{"id":7,"title":"x","state":"todo"}]}`), nil
	})

	out, err := svc.List(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Equal(t, 500, out.Status)
	assert.Equal(t, "backend unhappy", out.Message)

	_, ok := svc.TaskFromCache(7)
	assert.False(t, ok)
}

func TestCreate_CachesAndNotifies(t *testing.T) {
	var sentBody map[string]any
	svc := newService(func(req *http.Request) (*http.Response, error) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&sentBody))
		return jsonResponse(200, `{"status":201,"message":"created","id":5,"title":"write tests","state":"todo"}`), nil
	})

	updates, cancel := svc.Updates()
	defer cancel()

	out, err := svc.Create(context.Background(), models.TaskCreate{Title: "write tests"})
	require.NoError(t, err)
	assert.Equal(t, 201, out.Status)
	assert.Equal(t, int64(5), out.ID)

	// Optional empty fields never appear in the payload.
	assert.Equal(t, map[string]any{"title": "write tests"}, sentBody)

	cached, ok := svc.TaskFromCache(5)
	require.True(t, ok)
	assert.Equal(t, "write tests", cached.Title)

	assert.Len(t, updates, 1)
}

func TestCreate_ShortTitleRejectedBeforeNetwork(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be issued")
		return nil, nil
	})

	updates, cancel := svc.Updates()
	defer cancel()

	_, err := svc.Create(context.Background(), models.TaskCreate{Title: "ab"})
	assert.ErrorIs(t, err, ErrTitleTooShort)
	assert.Empty(t, updates)
}

func TestUpdate_OverwritesCacheEntry(t *testing.T) {
	calls := 0
	svc := newService(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(200, `{"status":200,"message":"ok","id":3,"title":"old","state":"todo"}`), nil
		}
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/task/3", req.URL.Path)
		return jsonResponse(200, `{"status":200,"message":"ok","id":3,"title":"new","state":"doing"}`), nil
	})

	_, err := svc.Get(context.Background(), 3)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 3, models.TaskCreate{Title: "new"})
	require.NoError(t, err)

	cached, ok := svc.TaskFromCache(3)
	require.True(t, ok)
	assert.Equal(t, "new", cached.Title)
}

func TestDelete_EvictsCacheAndNotifies(t *testing.T) {
	calls := 0
	svc := newService(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(200, `{"status":200,"message":"ok","id":1,"title":"doomed","state":"todo"}`), nil
		}
		assert.Equal(t, http.MethodDelete, req.Method)
		return jsonResponse(200, `{"status":200,"message":"deleted"}`), nil
	})

	_, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	updates, cancel := svc.Updates()
	defer cancel()

	_, err = svc.Delete(context.Background(), 1)
	require.NoError(t, err)

	// Cache miss immediately, without any re-listing.
	_, ok := svc.TaskFromCache(1)
	assert.False(t, ok)
	assert.Len(t, updates, 1)
}

func TestMarkAsDone_EmptyBodyAndCacheOverwrite(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/task/mark_as_done/4", req.URL.Path)
		body, _ := io.ReadAll(req.Body)
		assert.Empty(t, body)
		return jsonResponse(200, `{"status":200,"message":"ok","id":4,"title":"t","state":"done"}`), nil
	})

	out, err := svc.MarkAsDone(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "done", out.State)

	cached, _ := svc.TaskFromCache(4)
	assert.Equal(t, "done", cached.State)
}

func TestToggleState_HitsToggleEndpoint(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/task/toggle_state/9", req.URL.Path)
		return jsonResponse(200, `{"status":200,"message":"ok","id":9,"title":"t","state":"doing"}`), nil
	})

	updates, cancel := svc.Updates()
	defer cancel()

	out, err := svc.ToggleState(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "doing", out.State)
	assert.Len(t, updates, 1)
}

func TestFailedMutationEmitsNoNotification(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	})

	updates, cancel := svc.Updates()
	defer cancel()

	_, err := svc.Delete(context.Background(), 1)
	require.Error(t, err)
	assert.Empty(t, updates)
}

func TestStats_DefaultsMissingFieldsToZero(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/task/stats/summary", req.URL.Path)
		return jsonResponse(200, `{"status":200,"message":"ok","data":{"total":4,"done":1}}`), nil
	})

	out, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, out.Data.Total)
	assert.Equal(t, 1, out.Data.Done)
	assert.Zero(t, out.Data.Todo)
	assert.Zero(t, out.Data.Overdue)
	assert.Zero(t, out.Data.CompletionRate)
}

func TestTransportErrorIsNormalized(t *testing.T) {
	cause := errors.New("connection refused")
	svc := newService(func(req *http.Request) (*http.Response, error) {
		return nil, cause
	})

	_, err := svc.Get(context.Background(), 1)
	require.Error(t, err)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Contains(t, opErr.Message, "connection refused")
	assert.ErrorIs(t, opErr, cause)
}

func TestServerErrorMessageTakesPriority(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(500, `{"status":500,"message":"task does not exist"}`), nil
	})

	_, err := svc.Get(context.Background(), 42)
	require.Error(t, err)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "task does not exist", opErr.Message)
	assert.Error(t, opErr.Err)
}

func TestClearCache(t *testing.T) {
	svc := newService(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":200,"message":"ok","id":1,"title":"t","state":"todo"}`), nil
	})

	_, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	svc.ClearCache()
	_, ok := svc.TaskFromCache(1)
	assert.False(t, ok)
}
