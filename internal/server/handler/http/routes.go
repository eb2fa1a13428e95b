package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atinyakov/TaskKeeper/internal/metrics"
	"github.com/atinyakov/TaskKeeper/internal/middleware"
)

// NewRouter constructs the HTTP handler serving the TaskKeeper API.
//
// Public endpoints:
//
//	POST  /login           → AuthHandler.Login (multipart form)
//	POST  /users           → AuthHandler.Register
//	POST  /forgotPassword  → AuthHandler.ForgotPassword
//	PATCH /resetPassword   → AuthHandler.ResetPassword
//	PATCH /confirmAccount  → AuthHandler.ConfirmAccount
//	GET   /metrics         → Prometheus metrics
//
// Bearer-authenticated endpoints:
//
//	GET    /logout                   → AuthHandler.Logout
//	PUT    /users/{id}               → AuthHandler.UpdateUser
//	GET    /task                     → TaskHandler.List
//	POST   /task                     → TaskHandler.Create
//	GET    /task/stats/summary       → TaskHandler.Stats
//	PUT    /task/mark_as_done/{id}   → TaskHandler.MarkAsDone
//	PUT    /task/toggle_state/{id}   → TaskHandler.ToggleState
//	GET    /task/{id}                → TaskHandler.Get
//	PUT    /task/{id}                → TaskHandler.Update
//	DELETE /task/{id}                → TaskHandler.Delete
func NewRouter(
	authHandler *AuthHandler,
	taskHandler *TaskHandler,
	verify middleware.VerifyFunc,
	collector *metrics.Collector,
	limiter *rate.Limiter,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.RateLimit(limiter))
	r.Use(collector.Middleware)

	r.Get("/metrics", collector.Handler().ServeHTTP)

	// Public endpoints
	r.Post("/login", authHandler.Login)
	r.Post("/users", authHandler.Register)
	r.Post("/forgotPassword", authHandler.ForgotPassword)
	r.Patch("/resetPassword", authHandler.ResetPassword)
	r.Patch("/confirmAccount", authHandler.ConfirmAccount)

	// Protected group: requires a valid bearer token
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(verify))

		r.Get("/logout", authHandler.Logout)
		r.Put("/users/{id}", authHandler.UpdateUser)

		r.Route("/task", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)
			r.Get("/stats/summary", taskHandler.Stats)
			r.Put("/mark_as_done/{id}", taskHandler.MarkAsDone)
			r.Put("/toggle_state/{id}", taskHandler.ToggleState)
			r.Get("/{id}", taskHandler.Get)
			r.Put("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
		})
	})

	return r
}
