package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/TaskKeeper/internal/models"
)

// TaskDraft carries the persistable task fields. Nil pointers mean
// "leave unchanged" on update and "use the column default" on
// insert.
type TaskDraft struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Tag         *string
	State       *string
}

// ListQuery narrows and pages the task listing. Zero values are not
// applied.
type ListQuery struct {
	State     string
	Tag       string
	Search    string
	SortBy    string
	SortOrder string
	Offset    int
	Limit     int
}

// StatCounts are the raw aggregates read in one query.
type StatCounts struct {
	Total   int
	Todo    int
	Doing   int
	Done    int
	Overdue int
}

// sortColumns whitelists the sortable columns; anything else falls
// back to created_on.
var sortColumns = map[string]string{
	"created_on": "created_on",
	"due_date":   "due_date",
	"title":      "title",
	"state":      "state",
}

// PostgresTaskRepository implements task persistence on PostgreSQL.
// Every operation is scoped to the owning user.
type PostgresTaskRepository struct {
	DB *sql.DB
}

// NewPostgresTaskRepository creates a repository over the given
// database handle.
func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{DB: db}
}

const taskColumns = `id, title, description, due_date, tag, state, user_id, created_on, updated_on`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var (
		t       models.Task
		due     sql.NullTime
		created time.Time
		updated time.Time
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &due, &t.Tag, &t.State, &t.UserID, &created, &updated)
	if err != nil {
		return models.Task{}, err
	}
	if due.Valid {
		t.DueDate = due.Time.UTC().Format(time.RFC3339)
	}
	t.CreatedOn = created.UTC().Format(time.RFC3339)
	t.UpdatedOn = updated.UTC().Format(time.RFC3339)
	return t, nil
}

// Create inserts a task for userID and returns the stored row.
func (r *PostgresTaskRepository) Create(ctx context.Context, userID int64, d TaskDraft) (models.Task, error) {
	var due sql.NullTime
	if d.DueDate != nil {
		due = sql.NullTime{Time: *d.DueDate, Valid: true}
	}
	description := ""
	if d.Description != nil {
		description = *d.Description
	}
	tag := string(models.TagNone)
	if d.Tag != nil {
		tag = *d.Tag
	}
	state := string(models.StateTodo)
	if d.State != nil {
		state = *d.State
	}

	row := r.DB.QueryRowContext(
		ctx,
		`INSERT INTO tasks (title, description, due_date, tag, state, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+taskColumns,
		*d.Title, description, due, tag, state, userID,
	)
	return scanTask(row)
}

// Find returns the task with id owned by userID, or ErrNotFound.
func (r *PostgresTaskRepository) Find(ctx context.Context, userID, id int64) (models.Task, error) {
	row := r.DB.QueryRowContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// Update applies the non-nil draft fields to the task and returns
// the fresh row. ErrNotFound when the task is missing or owned by
// someone else.
func (r *PostgresTaskRepository) Update(ctx context.Context, userID, id int64, d TaskDraft) (models.Task, error) {
	set := []string{"updated_on = now()"}
	args := []any{}
	n := 1

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, val)
		n++
	}
	if d.Title != nil {
		add("title", *d.Title)
	}
	if d.Description != nil {
		add("description", *d.Description)
	}
	if d.DueDate != nil {
		add("due_date", *d.DueDate)
	}
	if d.Tag != nil {
		add("tag", *d.Tag)
	}
	if d.State != nil {
		add("state", *d.State)
	}

	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
		strings.Join(set, ", "), n, n+1, taskColumns,
	)
	args = append(args, id, userID)

	t, err := scanTask(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// Delete removes the task. ErrNotFound when nothing was deleted.
func (r *PostgresTaskRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.DB.ExecContext(
		ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of tasks matching q plus the total number of
// matching rows.
func (r *PostgresTaskRepository) List(ctx context.Context, userID int64, q ListQuery) ([]models.Task, int, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	n := 2

	if q.State != "" {
		where = append(where, fmt.Sprintf("state = $%d", n))
		args = append(args, q.State)
		n++
	}
	if q.Tag != "" {
		where = append(where, fmt.Sprintf("tag = $%d", n))
		args = append(args, q.Tag)
		n++
	}
	if q.Search != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
		args = append(args, "%"+q.Search+"%")
		n++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(
		ctx, `SELECT COUNT(*) FROM tasks WHERE `+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := sortColumns[q.SortBy]
	if !ok {
		sortCol = "created_on"
	}
	order := "ASC"
	if strings.EqualFold(q.SortOrder, "desc") {
		order = "DESC"
	}

	query := fmt.Sprintf(
		`SELECT %s FROM tasks WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		taskColumns, cond, sortCol, order, n, n+1,
	)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Stats reads the aggregate counters for userID in a single query.
// A task counts as overdue when its due date has passed and it is
// not done.
func (r *PostgresTaskRepository) Stats(ctx context.Context, userID int64) (StatCounts, error) {
	var c StatCounts
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE state = 'todo'),
			COUNT(*) FILTER (WHERE state = 'doing'),
			COUNT(*) FILTER (WHERE state = 'done'),
			COUNT(*) FILTER (WHERE due_date IS NOT NULL AND due_date < now() AND state <> 'done')
		 FROM tasks WHERE user_id = $1`,
		userID,
	).Scan(&c.Total, &c.Todo, &c.Doing, &c.Done, &c.Overdue)
	return c, err
}
