// Package router sets up all HTTP routes and middleware chains for the
// marketplace API. It organizes routes into public, authenticated and
// creator groups with appropriate middleware stacks.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"agentmarket/internal/handlers"
	"agentmarket/internal/middleware"
	"agentmarket/internal/models"
)

// Deps holds everything the router wires together.
type Deps struct {
	Catalog *handlers.Catalog
	Auth    *handlers.Auth

	Tokens   middleware.TokenParser
	Sessions middleware.SessionLookup

	// AuthLimiter throttles the credential endpoints. Nil disables it.
	AuthLimiter *middleware.RateLimiter

	CORSOrigins   []string
	SecureCookies bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request. Recoverer wraps the rest
	// of the chain; LoadIdentity runs before Logger so access lines carry
	// the caller.
	r.Use(middleware.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LoadIdentity(d.Tokens, d.Sessions))
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CSRFHeaderName},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check: no auth, no CSRF.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.SecureCookies))

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", d.Catalog.ListAgents)
			r.With(middleware.RequireAuth).Post("/", d.Catalog.CreateAgent)
			r.Get("/{id}", d.Catalog.GetAgent)
		})
		r.Get("/categories", d.Catalog.ListCategories)

		// Creator dashboard.
		r.Route("/creator", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleCreator, models.RoleAdmin))
			r.Get("/agents", d.Catalog.ListCreatorAgents)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Post("/categories", d.Catalog.CreateCategory)
			r.Delete("/categories/{id}", d.Catalog.DeleteCategory)
		})

		r.Route("/auth", func(r chi.Router) {
			// Credential endpoints, throttled per client.
			r.Group(func(r chi.Router) {
				if d.AuthLimiter != nil {
					r.Use(d.AuthLimiter.Middleware)
				}
				r.Post("/signup", d.Auth.SignUp)
				r.Post("/signin", d.Auth.SignIn)
				r.Post("/recover", d.Auth.Recover)
				r.Post("/reset", d.Auth.Reset)
			})

			r.Post("/refresh", d.Auth.Refresh)
			r.Get("/verify", d.Auth.Verify)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/signout", d.Auth.SignOut)
				r.Get("/user", d.Auth.User)
			})
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
