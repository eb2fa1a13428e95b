// Package main initializes and starts the TaskKeeper reference API
// server, setting up configuration, logging, the database connection,
// repositories, services, and handlers.
package main

import (
	"cmp"
	"fmt"

	nethttp "net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atinyakov/TaskKeeper/internal/config"
	"github.com/atinyakov/TaskKeeper/internal/db"
	"github.com/atinyakov/TaskKeeper/internal/logger"
	"github.com/atinyakov/TaskKeeper/internal/metrics"
	"github.com/atinyakov/TaskKeeper/internal/repository"
	"github.com/atinyakov/TaskKeeper/internal/server/handler/http"
	"github.com/atinyakov/TaskKeeper/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if options.JWTSecret == "" {
		zapLogger.Fatal("a token signing secret is required (-jwt-secret or JWT_SECRET)")
	}

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Initialize repositories for users and tasks.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	taskRepo := repository.NewPostgresTaskRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuth(userRepo, []byte(options.JWTSecret), zapLogger)
	taskService := service.NewTask(taskRepo)

	// Create HTTP handlers for auth and task endpoints.
	authHandler := &http.AuthHandler{AuthService: authService}
	taskHandler := &http.TaskHandler{TaskService: taskService}

	verify := func(token string) (int64, error) {
		claims, err := authService.VerifyToken(token)
		if err != nil {
			return 0, err
		}
		return claims.User.ID, nil
	}

	// Build the router with middleware and routes.
	collector := metrics.NewCollector()
	limiter := rate.NewLimiter(rate.Limit(100), 200)
	router := http.NewRouter(authHandler, taskHandler, verify, collector, limiter, zapLogger)

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
	if err := nethttp.ListenAndServe(options.Port, router); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
