// Package main is the entry point for the agent marketplace API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentmarket/internal/cache"
	"agentmarket/internal/catalog"
	"agentmarket/internal/config"
	"agentmarket/internal/database"
	"agentmarket/internal/events"
	"agentmarket/internal/handlers"
	"agentmarket/internal/identity"
	"agentmarket/internal/mailer"
	"agentmarket/internal/middleware"
	"agentmarket/internal/router"
	"agentmarket/internal/session"
	"agentmarket/internal/store"
	"agentmarket/internal/token"
	"agentmarket/internal/tracing"
)

// Credential endpoints accept this many requests per client per window.
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

func main() {
	// Structured logger: text output, debug level in development.
	level := slog.LevelInfo
	if os.Getenv("APP_ENV") == "" || os.Getenv("APP_ENV") == "development" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	shutdownTracing, err := tracing.Init(context.Background(), "agentmarket", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Connect to PostgreSQL.
	db, err := database.Connect(context.Background(), cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if _, err := database.Migrate(context.Background(), db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed demo accounts and catalog (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions, one-time tokens, category cache).
	valkeyClient, err := cache.ConnectValkey(context.Background(), cache.Options{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
	})
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, cfg.SessionTTL, secureCookies)
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Outgoing mail: SMTP when configured, otherwise logged.
	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		slog.Warn("smtp not configured, outgoing mail is logged only")
	}
	mail := mailer.New(sender, cfg.SiteURL)

	// Moderation hand-off over NATS (optional).
	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL)
		if err != nil {
			slog.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		publisher = nc
		slog.Info("nats connected", "url", cfg.NATSURL)
	}
	defer publisher.Close()

	// Initialize data stores and services.
	userStore := store.NewUserStore(db)
	agentStore := store.NewAgentStore(db)
	categoryStore := store.NewCategoryStore(db)

	catalogService := catalog.NewService(agentStore, categoryStore,
		catalog.WithCategoryCache(cache.NewCategoryCache(valkeyClient, cache.DefaultCategoryTTL)),
		catalog.WithPublisher(publisher),
	)
	identityService := identity.NewService(userStore, sessionStore, issuer, mail, identity.Config{
		RequireEmailConfirmation: cfg.RequireEmailConfirmation,
		SiteURL:                  cfg.SiteURL,
		RecoveryTTL:              identity.DefaultRecoveryTTL,
		ConfirmTTL:               identity.DefaultConfirmTTL,
	})

	authLimiter := middleware.NewRateLimiter(authRateLimit, authRateWindow)
	defer authLimiter.Stop()

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Deps{
		Catalog:       handlers.NewCatalog(catalogService),
		Auth:          handlers.NewAuth(identityService, sessionStore),
		Tokens:        issuer,
		Sessions:      sessionStore,
		AuthLimiter:   authLimiter,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		SecureCookies: secureCookies,
	})

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := shutdownTracing(ctx); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}

	slog.Info("server stopped gracefully")
}
