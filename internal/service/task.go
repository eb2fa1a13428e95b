package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/atinyakov/TaskKeeper/internal/models"
	"github.com/atinyakov/TaskKeeper/internal/repository"
)

const (
	minTitleLength  = 3
	defaultPageSize = 10
	maxPageSize     = 100
)

// TaskRepository is the persistence surface the task service needs.
type TaskRepository interface {
	Create(ctx context.Context, userID int64, d repository.TaskDraft) (models.Task, error)
	Find(ctx context.Context, userID, id int64) (models.Task, error)
	Update(ctx context.Context, userID, id int64, d repository.TaskDraft) (models.Task, error)
	Delete(ctx context.Context, userID, id int64) error
	List(ctx context.Context, userID int64, q repository.ListQuery) ([]models.Task, int, error)
	Stats(ctx context.Context, userID int64) (repository.StatCounts, error)
}

// TaskPage is one page of the listing with its pagination metadata.
type TaskPage struct {
	Tasks        []models.Task
	PageNumber   int
	PageSize     int
	TotalPages   int
	TotalRecords int
}

// ListFilters mirrors the query parameters of the list endpoint.
type ListFilters struct {
	PageNumber int
	PageSize   int
	State      string
	Tag        string
	Search     string
	SortBy     string
	SortOrder  string
}

// Task implements the task operations on top of a TaskRepository.
type Task struct {
	tasks TaskRepository
}

// NewTask constructs the task service.
func NewTask(tasks TaskRepository) *Task {
	return &Task{tasks: tasks}
}

func validState(s string) bool {
	switch models.State(s) {
	case models.StateTodo, models.StateDoing, models.StateDone:
		return true
	}
	return false
}

func validTag(s string) bool {
	switch models.Tag(s) {
	case models.TagNone, models.TagOptional, models.TagImportant, models.TagUrgent:
		return true
	}
	return false
}

// draftFromCreate validates the incoming payload and turns it into a
// repository draft. Empty optional fields stay nil.
func draftFromCreate(in models.TaskCreate, requireTitle bool) (repository.TaskDraft, error) {
	d := repository.TaskDraft{}

	if in.Title != "" {
		if len([]rune(in.Title)) < minTitleLength {
			return d, fmt.Errorf("%w: title must be at least %d characters", ErrValidation, minTitleLength)
		}
		d.Title = &in.Title
	} else if requireTitle {
		return d, fmt.Errorf("%w: title is required", ErrValidation)
	}

	if in.Description != "" {
		d.Description = &in.Description
	}
	if in.DueDate != "" {
		due, err := time.Parse(time.RFC3339, in.DueDate)
		if err != nil {
			return d, fmt.Errorf("%w: due_date must be RFC 3339", ErrValidation)
		}
		d.DueDate = &due
	}
	if in.Tag != "" {
		if !validTag(in.Tag) {
			return d, fmt.Errorf("%w: unknown tag %q", ErrValidation, in.Tag)
		}
		d.Tag = &in.Tag
	}
	if in.State != "" {
		if !validState(in.State) {
			return d, fmt.Errorf("%w: unknown state %q", ErrValidation, in.State)
		}
		d.State = &in.State
	}
	return d, nil
}

// Create validates and stores a new task for the user.
func (s *Task) Create(ctx context.Context, userID int64, in models.TaskCreate) (models.Task, error) {
	d, err := draftFromCreate(in, true)
	if err != nil {
		return models.Task{}, err
	}
	return s.tasks.Create(ctx, userID, d)
}

// Get returns one task owned by the user.
func (s *Task) Get(ctx context.Context, userID, id int64) (models.Task, error) {
	t, err := s.tasks.Find(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// Update applies the provided partial fields to the task.
func (s *Task) Update(ctx context.Context, userID, id int64, in models.TaskCreate) (models.Task, error) {
	d, err := draftFromCreate(in, false)
	if err != nil {
		return models.Task{}, err
	}
	t, err := s.tasks.Update(ctx, userID, id, d)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// Delete removes the task.
func (s *Task) Delete(ctx context.Context, userID, id int64) error {
	err := s.tasks.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// MarkAsDone moves the task straight to done regardless of its
// current state.
func (s *Task) MarkAsDone(ctx context.Context, userID, id int64) (models.Task, error) {
	state := string(models.StateDone)
	t, err := s.tasks.Update(ctx, userID, id, repository.TaskDraft{State: &state})
	if errors.Is(err, repository.ErrNotFound) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// ToggleState advances the task one step along the cycle
// todo -> doing -> done -> todo.
func (s *Task) ToggleState(ctx context.Context, userID, id int64) (models.Task, error) {
	current, err := s.tasks.Find(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Task{}, ErrNotFound
	}
	if err != nil {
		return models.Task{}, err
	}

	next := string(models.NextState(models.State(current.State)))
	t, err := s.tasks.Update(ctx, userID, id, repository.TaskDraft{State: &next})
	if errors.Is(err, repository.ErrNotFound) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// List returns one page of the user's tasks.
func (s *Task) List(ctx context.Context, userID int64, f ListFilters) (TaskPage, error) {
	if f.PageNumber < 1 {
		f.PageNumber = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	if f.State != "" && !validState(f.State) {
		return TaskPage{}, fmt.Errorf("%w: unknown state %q", ErrValidation, f.State)
	}
	if f.Tag != "" && !validTag(f.Tag) {
		return TaskPage{}, fmt.Errorf("%w: unknown tag %q", ErrValidation, f.Tag)
	}

	tasks, total, err := s.tasks.List(ctx, userID, repository.ListQuery{
		State:     f.State,
		Tag:       f.Tag,
		Search:    f.Search,
		SortBy:    f.SortBy,
		SortOrder: f.SortOrder,
		Offset:    (f.PageNumber - 1) * f.PageSize,
		Limit:     f.PageSize,
	})
	if err != nil {
		return TaskPage{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + f.PageSize - 1) / f.PageSize
	}
	return TaskPage{
		Tasks:        tasks,
		PageNumber:   f.PageNumber,
		PageSize:     f.PageSize,
		TotalPages:   totalPages,
		TotalRecords: total,
	}, nil
}

// Stats assembles the aggregate counters and the derived completion
// rate (percentage of done tasks, one decimal).
func (s *Task) Stats(ctx context.Context, userID int64) (models.TaskStats, error) {
	c, err := s.tasks.Stats(ctx, userID)
	if err != nil {
		return models.TaskStats{}, err
	}

	rate := 0.0
	if c.Total > 0 {
		rate = math.Round(float64(c.Done)/float64(c.Total)*1000) / 10
	}
	return models.TaskStats{
		Total:          c.Total,
		Todo:           c.Todo,
		Doing:          c.Doing,
		Done:           c.Done,
		Overdue:        c.Overdue,
		CompletionRate: rate,
	}, nil
}
