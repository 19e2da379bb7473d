// Exhibition guestbook server for 牠眼中的他眼中的牠.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/naicoco/guestbook/internal/api"
	"github.com/naicoco/guestbook/internal/config"
	"github.com/naicoco/guestbook/internal/fallback"
	"github.com/naicoco/guestbook/internal/identity"
	"github.com/naicoco/guestbook/internal/mail"
	"github.com/naicoco/guestbook/internal/middleware"
	"github.com/naicoco/guestbook/internal/narrative"
	"github.com/naicoco/guestbook/internal/store"
	"github.com/naicoco/guestbook/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"email_configured", cfg.EmailConfigured())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	fb, err := fallback.New(cfg.FallbackDir)
	if err != nil {
		slog.Error("Failed to initialize fallback store", "error", err)
		os.Exit(1)
	}
	slog.Info("Fallback store ready", "dir", fb.Dir())

	if !cfg.EmailConfigured() {
		slog.Warn("Email secrets incomplete, submissions will be refused delivery")
	}

	// Initialize services.
	sender := mail.NewSMTPSender(cfg.Email)
	pipeline := mail.NewPipeline(cfg, sender, fb)
	machine := narrative.NewMachine(pipeline, cfg.Cooldown)
	hub := api.NewHub()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, machine, hub)
	guestbookHandler := api.NewGuestbookHandler(baseHandler)
	posterHandler := api.NewPosterHandler(cfg.PosterDir)
	streamHandler := api.NewStreamHandler(hub, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	guestbookHandler.RegisterRoutes(r)
	posterHandler.RegisterRoutes(r)

	// WebSocket refresh channel.
	r.Get("/ws/narrative", streamHandler.ServeHTTP)

	// Serve embedded frontend.
	r.Handle("/*", web.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store.StartCleanupWorker(ctx, repo, cfg.SessionTTL)
	slog.Info("Session cleanup worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
