package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bazario-admin/internal/api"
	"bazario-admin/internal/archive"
	"bazario-admin/internal/chat"
	"bazario-admin/internal/config"
	"bazario-admin/internal/events"
	"bazario-admin/internal/handler"
	"bazario-admin/internal/middleware"
	"bazario-admin/internal/notify"
	"bazario-admin/internal/observability"
	"bazario-admin/internal/realtime"
	"bazario-admin/internal/relay"
	"bazario-admin/internal/session"
	"bazario-admin/internal/storage"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(logLevel, logFormat)

	slog.Info("starting admin console daemon")

	store, err := storage.NewFileStore(cfg.StateDir, cfg.StateSecret)
	if err != nil {
		slog.Error("failed to open state store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sess, err := session.NewStore(store)
	if err != nil {
		slog.Error("failed to restore session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	bus := events.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.NewClient(api.Options{
		BaseURL:        cfg.APIBaseURL,
		APIKey:         cfg.APIKey,
		RequestTimeout: cfg.RequestTimeout,
		UploadTimeout:  cfg.UploadTimeout,
		Alerter:        logAlerter{},
		State:          store,
		OnSessionExpired: func() {
			bus.Publish(events.TopicSessionExpired, nil)
		},
	}, sess)

	ensureSession(ctx, client, sess, cfg)
	if id := sess.UserID(); id != "" {
		// Tag the daemon's fetch contexts so cache and backend logs carry
		// the operator identity.
		ctx = observability.WithUserID(ctx, id)
	}

	var db *archiveDB
	if cfg.DatabaseURL != "" {
		conn, err := config.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to archive database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer conn.Close()
		db = &archiveDB{conn: conn, repo: archive.NewRepository(conn)}
		slog.Info("connected to archive database")
	}

	var eventRelay *relay.Relay
	if cfg.RabbitMQURL != "" {
		eventRelay, err = relay.NewRelay(cfg.RabbitMQURL)
		if err != nil {
			slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer eventRelay.Close()
		slog.Info("connected to event relay")
	}

	coordinator := notify.NewCoordinator(client.Notifications, bus)
	// UserID is empty in sessionless mode; the socket never connects
	// without a token, so the thread stays idle until sign-in.
	thread := chat.NewThread(client.Messages, store, sess.UserID())

	reconciler := realtime.NewReconciler(
		&feedTap{feed: coordinator, db: db, relay: eventRelay},
		&chatTap{sink: thread, relay: eventRelay},
	)

	socket := realtime.NewSocket(cfg.SocketURL, sess.AccessToken, reconciler)
	go func() {
		if err := socket.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("socket error", slog.String("error", err.Error()))
		}
	}()
	slog.Info("socket consumer started")

	if sess.IsLogged() {
		warmCtx, warmCancel := context.WithTimeout(ctx, 30*time.Second)
		if _, err := coordinator.FetchList(warmCtx, true); err != nil {
			slog.Warn("initial feed fetch failed", slog.String("error", err.Error()))
		}
		if _, err := coordinator.FetchUnread(warmCtx, true); err != nil {
			slog.Warn("initial unread fetch failed", slog.String("error", err.Error()))
		}
		warmCancel()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db.sql(), relayOrNil(eventRelay), sess))
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("daemon listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down daemon")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}
	slog.Info("daemon stopped")
}

// ensureSession signs in with the configured credentials when no session
// survived the restart. A daemon without a session still serves health and
// metrics; readiness reports it.
func ensureSession(ctx context.Context, client *api.Client, sess *session.Store, cfg *config.Config) {
	if sess.IsLogged() {
		slog.Info("restored persisted session",
			slog.String("user_id", sess.UserID()))
		return
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		slog.Warn("no persisted session and no admin credentials configured")
		return
	}

	signInCtx, signInCancel := context.WithTimeout(ctx, 30*time.Second)
	defer signInCancel()

	user, err := client.Auth.SignIn(signInCtx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		slog.Error("sign-in failed", slog.String("error", err.Error()))
		return
	}
	slog.Info("signed in", slog.String("user_id", user.ID))
}
