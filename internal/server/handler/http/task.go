package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/TaskKeeper/internal/middleware"
	"github.com/atinyakov/TaskKeeper/internal/models"
	"github.com/atinyakov/TaskKeeper/internal/service"
)

// TaskService defines the task operations required by the HTTP
// handlers.
type TaskService interface {
	Create(ctx context.Context, userID int64, in models.TaskCreate) (models.Task, error)
	Get(ctx context.Context, userID, id int64) (models.Task, error)
	Update(ctx context.Context, userID, id int64, in models.TaskCreate) (models.Task, error)
	Delete(ctx context.Context, userID, id int64) error
	MarkAsDone(ctx context.Context, userID, id int64) (models.Task, error)
	ToggleState(ctx context.Context, userID, id int64) (models.Task, error)
	List(ctx context.Context, userID int64, f service.ListFilters) (service.TaskPage, error)
	Stats(ctx context.Context, userID int64) (models.TaskStats, error)
}

// TaskHandler handles the task endpoints. Every route is mounted
// behind bearer authentication; the owning user comes from the
// request context.
type TaskHandler struct {
	TaskService TaskService
}

func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func writeTask(w http.ResponseWriter, status int, message string, t models.Task) {
	writeJSON(w, http.StatusOK, models.TaskResponse{
		BaseResponse: models.BaseResponse{Status: status, Message: message},
		Task:         t,
	})
}

// List handles GET /task. Filter parameters absent from the query
// stay zero and the service applies its paging defaults.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.ListFilters{
		State:     q.Get("state"),
		Tag:       q.Get("tag"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	f.PageNumber, _ = strconv.Atoi(q.Get("page_number"))
	f.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	page, err := h.TaskService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.PagedResponse{
		BaseResponse: models.BaseResponse{Status: http.StatusOK, Message: "ok"},
		PageNumber:   page.PageNumber,
		PageSize:     page.PageSize,
		TotalPages:   page.TotalPages,
		TotalRecords: page.TotalRecords,
		List:         page.Tasks,
	})
}

// Get handles GET /task/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	t, err := h.TaskService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTask(w, http.StatusOK, "ok", t)
}

// Create handles POST /task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.TaskCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	t, err := h.TaskService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTask(w, http.StatusCreated, "task created", t)
}

// Update handles PUT /task/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	var req models.TaskCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	t, err := h.TaskService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTask(w, http.StatusOK, "task updated", t)
}

// Delete handles DELETE /task/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	if err := h.TaskService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, "task deleted")
}

// MarkAsDone handles PUT /task/mark_as_done/{id}. No request body.
func (h *TaskHandler) MarkAsDone(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	t, err := h.TaskService.MarkAsDone(r.Context(), middleware.GetUserIDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTask(w, http.StatusOK, "task marked as done", t)
}

// ToggleState handles PUT /task/toggle_state/{id}. No request body.
func (h *TaskHandler) ToggleState(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	t, err := h.TaskService.ToggleState(r.Context(), middleware.GetUserIDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTask(w, http.StatusOK, "task state toggled", t)
}

// Stats handles GET /task/stats/summary.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.TaskService.Stats(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.StatsResponse{
		BaseResponse: models.BaseResponse{Status: http.StatusOK, Message: "ok"},
		Data:         stats,
	})
}
