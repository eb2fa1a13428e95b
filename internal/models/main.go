// Package models defines the core data structures for tasks, users,
// and the response envelopes exchanged with the TaskKeeper API.
package models

// State is the lifecycle state of a task.
type State string

const (
	// StateTodo marks a task that has not been started.
	StateTodo State = "todo"
	// StateDoing marks a task that is in progress.
	StateDoing State = "doing"
	// StateDone marks a completed task.
	StateDone State = "done"
)

// NextState returns the state following s in the toggle cycle
// todo -> doing -> done -> todo. Any unrecognized state maps
// back to todo.
func NextState(s State) State {
	switch s {
	case StateTodo:
		return StateDoing
	case StateDoing:
		return StateDone
	case StateDone:
		return StateTodo
	default:
		return StateTodo
	}
}

// Tag is the priority tag attached to a task.
type Tag string

const (
	TagNone      Tag = "none"
	TagOptional  Tag = "optional"
	TagImportant Tag = "important"
	TagUrgent    Tag = "urgent"
)

// Task represents a to-do item. ID is zero until the server has
// persisted the task.
type Task struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Tag         string `json:"tag,omitempty"`
	State       string `json:"state"`
	UserID      int64  `json:"user_id,omitempty"`
	CreatedOn   string `json:"created_on,omitempty"`
	UpdatedOn   string `json:"updated_on,omitempty"`
}

// TaskCreate carries the fields accepted when creating or updating a
// task. Empty optional fields are omitted from the payload entirely,
// never sent as empty strings.
type TaskCreate struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Tag         string `json:"tag,omitempty"`
	State       string `json:"state,omitempty"`
}

// TaskStats holds the aggregate counters returned by the stats
// endpoint. Fields missing from the server response decode to zero;
// nothing is recomputed client-side.
type TaskStats struct {
	Total          int     `json:"total"`
	Todo           int     `json:"todo"`
	Doing          int     `json:"doing"`
	Done           int     `json:"done"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"`
}

// User represents an application user as embedded in the session
// token payload.
type User struct {
	ID        int64  `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed,omitempty"`
	CreatedOn string `json:"created_on,omitempty"`
}

// UserCreate carries the registration payload.
type UserCreate struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UserUpdate carries a partial profile update. Nil pointers are
// omitted from the payload.
type UserUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// BaseResponse is the envelope every API response carries: a numeric
// status and a human-readable message. A 2xx transport response whose
// Status differs from the expected success code is a business
// failure; callers must check Status.
type BaseResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// TaskResponse is a single task merged with the base envelope, as
// returned by the task detail and mutation endpoints.
type TaskResponse struct {
	BaseResponse
	Task
}

// PagedResponse wraps a page of tasks together with pagination
// metadata.
type PagedResponse struct {
	BaseResponse
	PageNumber   int    `json:"page_number"`
	PageSize     int    `json:"page_size"`
	TotalPages   int    `json:"total_pages"`
	TotalRecords int    `json:"total_records"`
	List         []Task `json:"list"`
}

// StatsResponse wraps the aggregate task statistics.
type StatsResponse struct {
	BaseResponse
	Data TaskStats `json:"data"`
}

// TokenResponse is returned by the login endpoint.
type TokenResponse struct {
	Status      int    `json:"status"`
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

// UpdateUserResponse is returned by the user update endpoint. When
// the profile change affects the token payload the server issues a
// replacement token in NewToken.
type UpdateUserResponse struct {
	BaseResponse
	NewToken string `json:"new_token,omitempty"`
}

// LoginCredentials are the fields submitted to the login endpoint as
// multipart form values.
type LoginCredentials struct {
	Username string
	Password string
}

// ForgotPassword is the payload for requesting a password reset.
type ForgotPassword struct {
	Email string `json:"email"`
}

// ResetPassword is the payload for completing a password reset.
type ResetPassword struct {
	ResetPasswordToken string `json:"reset_password_token"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}
