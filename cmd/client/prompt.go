package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/TaskKeeper/internal/client/task"
	"github.com/atinyakov/TaskKeeper/internal/models"
)

func promptLine(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

// promptCredentials collects the login form.
func promptCredentials() (models.LoginCredentials, error) {
	scanner := bufio.NewScanner(os.Stdin)

	username := promptLine(scanner, "Email: ")
	if !strings.Contains(username, "@") {
		return models.LoginCredentials{}, fmt.Errorf("enter a valid email address")
	}
	password := promptLine(scanner, "Password: ")
	if password == "" {
		return models.LoginCredentials{}, fmt.Errorf("password is required")
	}
	return models.LoginCredentials{Username: username, Password: password}, nil
}

// promptRegistration collects and validates the registration form
// before anything goes over the wire.
func promptRegistration() (models.UserCreate, error) {
	scanner := bufio.NewScanner(os.Stdin)

	u := models.UserCreate{
		FirstName: promptLine(scanner, "First name: "),
		LastName:  promptLine(scanner, "Last name: "),
		Email:     promptLine(scanner, "Email: "),
	}
	if u.FirstName == "" || u.LastName == "" {
		return u, fmt.Errorf("first and last name are required")
	}
	if !strings.Contains(u.Email, "@") {
		return u, fmt.Errorf("enter a valid email address")
	}

	u.Password = promptLine(scanner, "Password (min 6 chars): ")
	if len(u.Password) < 6 {
		return u, fmt.Errorf("password must be at least 6 characters")
	}
	u.ConfirmPassword = promptLine(scanner, "Confirm password: ")
	if u.Password != u.ConfirmPassword {
		return u, fmt.Errorf("passwords do not match")
	}
	return u, nil
}

// promptTaskDraft collects a task form. Empty optional answers stay
// empty and are omitted from the payload.
func promptTaskDraft() (models.TaskCreate, error) {
	scanner := bufio.NewScanner(os.Stdin)

	draft := models.TaskCreate{
		Title: promptLine(scanner, "Title: "),
	}
	if utf8.RuneCountInString(draft.Title) < task.MinTitleLength {
		return draft, task.ErrTitleTooShort
	}

	draft.Description = promptLine(scanner, "Description (optional): ")
	draft.DueDate = promptLine(scanner, "Due date RFC3339 (optional): ")

	tag := promptLine(scanner, "Tag none/optional/important/urgent (optional): ")
	switch models.Tag(tag) {
	case "", models.TagNone, models.TagOptional, models.TagImportant, models.TagUrgent:
		draft.Tag = tag
	default:
		return draft, fmt.Errorf("unknown tag %q", tag)
	}
	return draft, nil
}
