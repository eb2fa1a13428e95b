// Package task mediates all task-related API calls, keeps a
// best-effort local cache of last-known tasks, and broadcasts a
// change signal so independent views can refresh themselves.
package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/atinyakov/TaskKeeper/internal/client/broadcast"
	"github.com/atinyakov/TaskKeeper/internal/client/gateway"
	"github.com/atinyakov/TaskKeeper/internal/models"
)

const (
	basePath = "/task"

	// MinTitleLength is enforced client-side before any request is
	// issued.
	MinTitleLength = 3
)

// ErrTitleTooShort is returned by Create when the draft title has
// fewer than MinTitleLength characters. No request is issued.
var ErrTitleTooShort = fmt.Errorf("title must be at least %d characters", MinTitleLength)

// Filters narrows and pages the task listing. Zero values are left
// out of the query string entirely; the service never invents
// defaults on its own.
type Filters struct {
	PageNumber int
	PageSize   int
	State      string
	Tag        string
	Search     string
	SortBy     string // created_on | due_date | title | state
	SortOrder  string // asc | desc
}

// params serializes only the set, non-empty filter values.
func (f Filters) params() url.Values {
	v := url.Values{}
	if f.PageNumber > 0 {
		v.Set("page_number", strconv.Itoa(f.PageNumber))
	}
	if f.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.State != "" {
		v.Set("state", f.State)
	}
	if f.Tag != "" {
		v.Set("tag", f.Tag)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.SortBy != "" {
		v.Set("sort_by", f.SortBy)
	}
	if f.SortOrder != "" {
		v.Set("sort_order", f.SortOrder)
	}
	return v
}

// Service owns task CRUD against the API, the local task cache, and
// the task-change broadcast. The cache is a convenience lookup only:
// list and stats views always re-fetch from the network.
type Service struct {
	gw      *gateway.Gateway
	logger  *zap.Logger
	cache   *cache
	updates *broadcast.Broadcaster[bool]
}

// NewService constructs a task Service on top of the gateway.
func NewService(gw *gateway.Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gw:      gw,
		logger:  logger,
		cache:   newCache(),
		updates: broadcast.New[bool](),
	}
}

// Updates returns a channel receiving a signal after every confirmed
// mutation, plus a cancel function. There is no replay for late
// subscribers and no deduplication of near-simultaneous signals.
func (s *Service) Updates() (<-chan bool, func()) {
	return s.updates.Subscribe()
}

func (s *Service) notifyUpdated() {
	s.updates.Publish(true)
}

// List fetches a page of tasks. On an embedded status 200 every
// returned task with an ID is upserted into the cache; entries absent
// from the page are left alone (the cache is additive).
func (s *Service) List(ctx context.Context, f Filters) (*models.PagedResponse, error) {
	resp, err := s.gw.Get(ctx, basePath, f.params())
	if err != nil {
		return nil, s.opError("get tasks", err, nil)
	}
	defer resp.Body.Close()

	var out models.PagedResponse
	if err := s.decode(resp, "get tasks", &out); err != nil {
		return nil, err
	}

	if out.Status == http.StatusOK {
		for _, t := range out.List {
			if t.ID != 0 {
				s.cache.put(t)
			}
		}
	}
	return &out, nil
}

// Get fetches a single task and caches it on success.
func (s *Service) Get(ctx context.Context, id int64) (*models.TaskResponse, error) {
	op := fmt.Sprintf("get task %d", id)

	resp, err := s.gw.Get(ctx, fmt.Sprintf("%s/%d", basePath, id), nil)
	if err != nil {
		return nil, s.opError(op, err, nil)
	}
	defer resp.Body.Close()

	var out models.TaskResponse
	if err := s.decode(resp, op, &out); err != nil {
		return nil, err
	}

	if out.Status == http.StatusOK && out.ID != 0 {
		s.cache.put(out.Task)
	}
	return &out, nil
}

// Create submits a new task draft. The title is validated locally
// (minimum length) before any network call; empty optional fields
// are omitted from the payload. On an embedded 200 or 201 the
// returned task is cached and a change signal is published.
func (s *Service) Create(ctx context.Context, draft models.TaskCreate) (*models.TaskResponse, error) {
	if utf8.RuneCountInString(draft.Title) < MinTitleLength {
		return nil, ErrTitleTooShort
	}

	body, err := json.Marshal(draft)
	if err != nil {
		return nil, s.opError("create task", err, nil)
	}

	resp, err := s.gw.Post(ctx, basePath, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, s.opError("create task", err, nil)
	}
	defer resp.Body.Close()

	var out models.TaskResponse
	if err := s.decode(resp, "create task", &out); err != nil {
		return nil, err
	}

	if out.Status == http.StatusOK || out.Status == http.StatusCreated {
		if out.ID != 0 {
			s.cache.put(out.Task)
		}
		s.notifyUpdated()
	}
	return &out, nil
}

// Update sends a partial draft for an existing task. On an embedded
// 200 the cache entry is overwritten and a change signal published.
func (s *Service) Update(ctx context.Context, id int64, draft models.TaskCreate) (*models.TaskResponse, error) {
	op := fmt.Sprintf("update task %d", id)

	body, err := json.Marshal(draft)
	if err != nil {
		return nil, s.opError(op, err, nil)
	}

	resp, err := s.gw.Put(ctx, fmt.Sprintf("%s/%d", basePath, id), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, s.opError(op, err, nil)
	}
	defer resp.Body.Close()

	var out models.TaskResponse
	if err := s.decode(resp, op, &out); err != nil {
		return nil, err
	}

	if out.Status == http.StatusOK {
		if out.ID != 0 {
			s.cache.put(out.Task)
		}
		s.notifyUpdated()
	}
	return &out, nil
}

// Delete removes a task. On an embedded 200 the cache entry is
// evicted and a change signal published.
func (s *Service) Delete(ctx context.Context, id int64) (*models.BaseResponse, error) {
	op := fmt.Sprintf("delete task %d", id)

	resp, err := s.gw.Delete(ctx, fmt.Sprintf("%s/%d", basePath, id))
	if err != nil {
		return nil, s.opError(op, err, nil)
	}
	defer resp.Body.Close()

	var out models.BaseResponse
	if err := s.decode(resp, op, &out); err != nil {
		return nil, err
	}

	if out.Status == http.StatusOK {
		s.cache.delete(id)
		s.notifyUpdated()
	}
	return &out, nil
}

// MarkAsDone moves a task straight to done, whatever its current
// state. It sends no request body.
func (s *Service) MarkAsDone(ctx context.Context, id int64) (*models.TaskResponse, error) {
	return s.transition(ctx, id, "mark_as_done", fmt.Sprintf("mark task %d as done", id))
}

// ToggleState advances a task one step along the cycle
// todo -> doing -> done -> todo. It sends no request body.
func (s *Service) ToggleState(ctx context.Context, id int64) (*models.TaskResponse, error) {
	return s.transition(ctx, id, "toggle_state", fmt.Sprintf("toggle task %d state", id))
}

func (s *Service) transition(ctx context.Context, id int64, action, op string) (*models.TaskResponse, error) {
	resp, err := s.gw.Put(ctx, fmt.Sprintf("%s/%s/%d", basePath, action, id), "", http.NoBody)
	if err != nil {
		return nil, s.opError(op, err, nil)
	}
	defer resp.Body.Close()

	var out models.TaskResponse
	if err := s.decode(resp, op, &out); err != nil {
		return nil, err
	}

	if out.Status == http.StatusOK {
		if out.ID != 0 {
			s.cache.put(out.Task)
		}
		s.notifyUpdated()
	}
	return &out, nil
}

// Stats fetches the aggregate counters. It never reads or writes the
// task cache.
func (s *Service) Stats(ctx context.Context) (*models.StatsResponse, error) {
	resp, err := s.gw.Get(ctx, basePath+"/stats/summary", nil)
	if err != nil {
		return nil, s.opError("get task statistics", err, nil)
	}
	defer resp.Body.Close()

	var out models.StatsResponse
	if err := s.decode(resp, "get task statistics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskFromCache returns the last-known task for id, if any. Local
// only, no network call.
func (s *Service) TaskFromCache(id int64) (models.Task, bool) {
	return s.cache.get(id)
}

// ClearCache drops every cached task.
func (s *Service) ClearCache() {
	s.cache.clear()
}

// decode reads a response body into out. A non-2xx transport status
// or an undecodable body is normalized into an *OpError; a decodable
// 2xx body is returned as-is, leaving embedded-status checks to the
// caller.
func (s *Service) decode(resp *http.Response, op string, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope models.BaseResponse
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		return s.opError(op, err, &envelope)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return s.opError(op, err, nil)
	}
	return nil
}

// opError builds the normalized failure for op. Message priority:
// server-supplied envelope message, then the underlying error text,
// then "<op> failed". The original error stays wrapped for logging.
func (s *Service) opError(op string, err error, envelope *models.BaseResponse) *OpError {
	msg := ""
	if envelope != nil && envelope.Message != "" {
		msg = envelope.Message
	} else if err != nil && err.Error() != "" {
		msg = err.Error()
	} else {
		msg = op + " failed"
	}

	s.logger.Debug("task operation failed",
		zap.String("operation", op),
		zap.String("message", msg),
		zap.Error(err),
	)
	return &OpError{Op: op, Message: msg, Err: err}
}

// OpError is the normalized failure surfaced by every task
// operation.
type OpError struct {
	// Op names the failed operation.
	Op string
	// Message is the best-effort human-readable description.
	Message string
	// Err is the original error, preserved for diagnostics.
	Err error
}

func (e *OpError) Error() string { return e.Message }

func (e *OpError) Unwrap() error { return e.Err }
