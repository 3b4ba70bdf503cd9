// Package router sets up all HTTP routes and middleware chains for the
// mercado API. Reads on the category tree require authentication; writes
// require the admin role.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mercado/internal/auth"
	"mercado/internal/cache"
	"mercado/internal/handlers"
	"mercado/internal/middleware"
)

// loginRateLimit bounds login attempts per client IP.
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(tokens *auth.TokenManager, denylist *cache.Denylist, authHandlers *handlers.Auth, categories *handlers.Categories) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Authenticate(tokens, denylist))

	// Health check — no auth.
	r.Get("/health", healthHandler)

	loginLimiter := middleware.NewRateLimiter(loginRateLimit, loginRateWindow)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(loginLimiter.Middleware).Post("/login", authHandlers.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", authHandlers.Logout)
			r.Get("/me", authHandlers.Me)
			r.Post("/2fa/setup", authHandlers.TwoFASetup)
			r.Post("/2fa/verify", authHandlers.TwoFAVerify)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireAdmin)
			r.Post("/register", authHandlers.Register)
		})
	})

	r.Route("/api/categories", func(r chi.Router) {
		// Reads — any authenticated user.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", categories.List)
			r.Get("/hierarchy", categories.Hierarchy)
			r.Get("/stats", categories.Stats)
			r.Get("/slug/{slug}", categories.GetBySlug)
			r.Get("/{id}", categories.Get)
		})

		// Writes — admin only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireAdmin)
			r.Post("/", categories.Create)
			r.Patch("/{id}", categories.Update)
			r.Delete("/{id}", categories.Delete)
			r.Post("/{id}/restore", categories.Restore)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
