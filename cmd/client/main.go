// Package main is the interactive TaskKeeper terminal client. It
// drives the auth and task services against a running API server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/atinyakov/TaskKeeper/internal/client/auth"
	"github.com/atinyakov/TaskKeeper/internal/client/gateway"
	"github.com/atinyakov/TaskKeeper/internal/client/session"
	"github.com/atinyakov/TaskKeeper/internal/client/task"
	"github.com/atinyakov/TaskKeeper/internal/config"
	"github.com/atinyakov/TaskKeeper/internal/logger"
	"github.com/atinyakov/TaskKeeper/internal/models"
)

var (
	version   string
	buildDate string
)

// app bundles the client services the REPL commands work with.
type app struct {
	auth  *auth.Service
	tasks *task.Service
}

// requireAuth is the command-level rendition of the route guard:
// task and account commands refuse to run without a session.
func (a *app) requireAuth() bool {
	if !a.auth.IsAuthenticated() {
		fmt.Println("Please login first (type 'login')")
		return false
	}
	return true
}

func printTask(t models.Task) {
	fmt.Printf("#%d [%s] %s", t.ID, t.State, t.Title)
	if t.Tag != "" && t.Tag != string(models.TagNone) {
		fmt.Printf(" (%s)", t.Tag)
	}
	if t.DueDate != "" {
		fmt.Printf(" due %s", t.DueDate)
	}
	fmt.Println()
	if t.Description != "" {
		fmt.Printf("    %s\n", t.Description)
	}
}

func fail(err error) {
	var opErr *task.OpError
	if errors.As(err, &opErr) {
		fmt.Println("Error:", opErr.Message)
		return
	}
	fmt.Println("Error:", err)
}

// parseListArgs turns "key=value" arguments into filters, starting
// from the first page with the default page size the way the list
// view always did.
func parseListArgs(args []string) (task.Filters, error) {
	f := task.Filters{PageNumber: 1, PageSize: 10}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return f, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch key {
		case "page":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return f, fmt.Errorf("bad page %q", value)
			}
			f.PageNumber = n
		case "size":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return f, fmt.Errorf("bad size %q", value)
			}
			f.PageSize = n
		case "state":
			f.State = value
		case "tag":
			f.Tag = value
		case "search":
			f.Search = value
		case "sort":
			f.SortBy = value
		case "order":
			f.SortOrder = value
		default:
			return f, fmt.Errorf("unknown filter %q", key)
		}
	}
	return f, nil
}

func parseID(args []string, usage string) (int64, bool) {
	if len(args) < 2 {
		fmt.Println("Usage:", usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id < 1 {
		fmt.Printf("Bad task id %q\n", args[1])
		return 0, false
	}
	return id, true
}

// repl runs the interactive shell loop.
func repl(a *app) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	// Refresh hints: a background watcher tells the user when a
	// mutation confirmed, mirroring how list views re-fetch on the
	// change signal.
	updates, cancel := a.tasks.Updates()
	defer cancel()
	go func() {
		for range updates {
			// Mutations already print their own outcome; the signal
			// is consumed here so the buffer never fills.
		}
	}()

	for {
		fmt.Print("taskkeeper> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "help":
			fmt.Println("Commands: login, register, confirm <code>, forgot <email>, reset,")
			fmt.Println("  whoami, account, logout,")
			fmt.Println("  list [page=N] [size=N] [state=S] [tag=T] [search=Q] [sort=F] [order=asc|desc],")
			fmt.Println("  add, show <id>, edit <id>, del <id>, done <id>, toggle <id>, stats, exit")

		case "login":
			creds, err := promptCredentials()
			if err != nil {
				fmt.Println(err)
				continue
			}
			res, err := a.auth.Login(ctx, creds)
			if err != nil {
				fail(err)
				continue
			}
			if res.AccessToken == "" {
				fmt.Println("Login failed:", res.Message)
				continue
			}
			if u := a.auth.CurrentUser(); u != nil {
				fmt.Printf("Welcome, %s %s\n", u.FirstName, u.LastName)
			} else {
				fmt.Println("Logged in")
			}

		case "register":
			u, err := promptRegistration()
			if err != nil {
				fmt.Println(err)
				continue
			}
			res, err := a.auth.Register(ctx, u)
			if err != nil {
				fail(err)
				continue
			}
			fmt.Println(res.Message)

		case "confirm":
			if len(args) < 2 {
				fmt.Println("Usage: confirm <code>")
				continue
			}
			res, err := a.auth.ConfirmAccount(ctx, args[1])
			if err != nil {
				fail(err)
				continue
			}
			fmt.Println(res.Message)

		case "forgot":
			if len(args) < 2 {
				fmt.Println("Usage: forgot <email>")
				continue
			}
			res, err := a.auth.ForgotPassword(ctx, models.ForgotPassword{Email: args[1]})
			if err != nil {
				fail(err)
				continue
			}
			fmt.Println(res.Message)

		case "reset":
			sc := bufio.NewScanner(os.Stdin)
			data := models.ResetPassword{
				ResetPasswordToken: promptLine(sc, "Reset token: "),
				NewPassword:        promptLine(sc, "New password: "),
				ConfirmNewPassword: promptLine(sc, "Confirm new password: "),
			}
			if data.NewPassword != data.ConfirmNewPassword {
				fmt.Println("Passwords do not match")
				continue
			}
			res, err := a.auth.ResetPassword(ctx, data)
			if err != nil {
				fail(err)
				continue
			}
			fmt.Println(res.Message)

		case "whoami":
			if u := a.auth.CurrentUser(); u != nil {
				fmt.Printf("%s %s <%s>\n", u.FirstName, u.LastName, u.Email)
			} else {
				fmt.Println("Not logged in")
			}

		case "account":
			if !a.requireAuth() {
				continue
			}
			u := a.auth.CurrentUser()
			if u == nil {
				fmt.Println("No user information in the session token")
				continue
			}
			sc := bufio.NewScanner(os.Stdin)
			update := models.UserUpdate{}
			if v := promptLine(sc, fmt.Sprintf("First name [%s]: ", u.FirstName)); v != "" {
				update.FirstName = &v
			}
			if v := promptLine(sc, fmt.Sprintf("Last name [%s]: ", u.LastName)); v != "" {
				update.LastName = &v
			}
			if v := promptLine(sc, fmt.Sprintf("Email [%s]: ", u.Email)); v != "" {
				update.Email = &v
			}
			res, err := a.auth.UpdateUser(ctx, u.ID, update)
			if err != nil {
				fail(err)
				continue
			}
			fmt.Println(res.Message)

		case "logout":
			if err := a.auth.Logout(ctx); err != nil {
				// Local teardown already happened; the server just
				// did not acknowledge.
				fmt.Println("Logged out locally:", err)
				continue
			}
			fmt.Println("Logged out")

		case "list":
			if !a.requireAuth() {
				continue
			}
			filters, err := parseListArgs(args[1:])
			if err != nil {
				fmt.Println(err)
				continue
			}
			page, err := a.tasks.List(ctx, filters)
			if err != nil {
				fail(err)
				continue
			}
			if page.Status != 200 {
				fmt.Println("Failed to list tasks:", page.Message)
				continue
			}
			for _, t := range page.List {
				printTask(t)
			}
			fmt.Printf("Page %d/%d (%d tasks)\n", page.PageNumber, page.TotalPages, page.TotalRecords)

		case "add":
			if !a.requireAuth() {
				continue
			}
			draft, err := promptTaskDraft()
			if err != nil {
				fmt.Println(err)
				continue
			}
			res, err := a.tasks.Create(ctx, draft)
			if err != nil {
				fail(err)
				continue
			}
			if res.Status != 200 && res.Status != 201 {
				fmt.Println("Failed to create task:", res.Message)
				continue
			}
			printTask(res.Task)

		case "show":
			if !a.requireAuth() {
				continue
			}
			id, ok := parseID(args, "show <id>")
			if !ok {
				continue
			}
			// Cheap lookup first, then the authoritative fetch.
			if cached, ok := a.tasks.TaskFromCache(id); ok {
				fmt.Println("(cached)")
				printTask(cached)
			}
			res, err := a.tasks.Get(ctx, id)
			if err != nil {
				fail(err)
				continue
			}
			if res.Status != 200 {
				fmt.Println(res.Message)
				continue
			}
			printTask(res.Task)

		case "edit":
			if !a.requireAuth() {
				continue
			}
			id, ok := parseID(args, "edit <id>")
			if !ok {
				continue
			}
			draft, err := promptTaskDraft()
			if err != nil {
				fmt.Println(err)
				continue
			}
			res, err := a.tasks.Update(ctx, id, draft)
			if err != nil {
				fail(err)
				continue
			}
			if res.Status != 200 {
				fmt.Println("Failed to update task:", res.Message)
				continue
			}
			printTask(res.Task)

		case "del":
			if !a.requireAuth() {
				continue
			}
			id, ok := parseID(args, "del <id>")
			if !ok {
				continue
			}
			res, err := a.tasks.Delete(ctx, id)
			if err != nil {
				fail(err)
				continue
			}
			fmt.Println(res.Message)

		case "done":
			if !a.requireAuth() {
				continue
			}
			id, ok := parseID(args, "done <id>")
			if !ok {
				continue
			}
			res, err := a.tasks.MarkAsDone(ctx, id)
			if err != nil {
				fail(err)
				continue
			}
			if res.Status != 200 {
				fmt.Println(res.Message)
				continue
			}
			printTask(res.Task)

		case "toggle":
			if !a.requireAuth() {
				continue
			}
			id, ok := parseID(args, "toggle <id>")
			if !ok {
				continue
			}
			res, err := a.tasks.ToggleState(ctx, id)
			if err != nil {
				fail(err)
				continue
			}
			if res.Status != 200 {
				fmt.Println(res.Message)
				continue
			}
			printTask(res.Task)

		case "stats":
			if !a.requireAuth() {
				continue
			}
			res, err := a.tasks.Stats(ctx)
			if err != nil {
				fail(err)
				continue
			}
			if res.Status != 200 {
				fmt.Println(res.Message)
				continue
			}
			s := res.Data
			fmt.Printf("Total: %d  todo: %d  doing: %d  done: %d  overdue: %d  completion: %.1f%%\n",
				s.Total, s.Todo, s.Doing, s.Done, s.Overdue, s.CompletionRate)

		case "exit":
			fmt.Println("Bye")
			return

		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func main() {
	options := config.Parse()

	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("TaskKeeper Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	if err := log.Init("error"); err != nil {
		fmt.Println("failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	store := session.NewStore(options.TokenFile)
	gw := gateway.New(options.BaseURL, nil, store, log.Log)

	a := &app{
		auth:  auth.NewService(gw, store, log.Log),
		tasks: task.NewService(gw, log.Log),
	}

	if a.auth.IsAuthenticated() {
		if u := a.auth.CurrentUser(); u != nil {
			fmt.Printf("Session restored for %s %s\n", u.FirstName, u.LastName)
		}
	}

	repl(a)
}
