// notifytail signs in, subscribes to the notification feed, and prints
// every change to stdout. Useful for watching reconciliation behavior
// against a live backend without the full daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bazario-admin/internal/api"
	"bazario-admin/internal/chat"
	"bazario-admin/internal/config"
	"bazario-admin/internal/events"
	"bazario-admin/internal/notify"
	"bazario-admin/internal/observability"
	"bazario-admin/internal/realtime"
	"bazario-admin/internal/session"
	"bazario-admin/internal/storage"
)

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn" // keep stdout readable, feed output is the point
	}
	observability.InitLogger(logLevel, "text")

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
	client := api.NewClient(api.Options{
		BaseURL:        cfg.APIBaseURL,
		APIKey:         cfg.APIKey,
		RequestTimeout: cfg.RequestTimeout,
		State:          store,
	}, sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !sess.IsLogged() {
		if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
			fmt.Fprintln(os.Stderr, "no session: set ADMIN_EMAIL and ADMIN_PASSWORD or run the daemon first")
			os.Exit(1)
		}
		signInCtx, signInCancel := context.WithTimeout(ctx, 30*time.Second)
		if _, err := client.Auth.SignIn(signInCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			signInCancel()
			slog.Error("sign-in failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		signInCancel()
	}
	ctx = observability.WithUserID(ctx, sess.UserID())

	coordinator := notify.NewCoordinator(client.Notifications, bus)
	unsubscribe := coordinator.Subscribe(printSnapshot)
	defer unsubscribe()

	thread := chat.NewThread(client.Messages, store, sess.UserID())
	reconciler := realtime.NewReconciler(coordinator, thread)
	socket := realtime.NewSocket(cfg.SocketURL, sess.AccessToken, reconciler)
	go func() {
		if err := socket.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("socket error", slog.String("error", err.Error()))
		}
	}()

	warmCtx, warmCancel := context.WithTimeout(ctx, 30*time.Second)
	if _, err := coordinator.FetchList(warmCtx, true); err != nil {
		slog.Error("initial fetch failed", slog.String("error", err.Error()))
	}
	if _, err := coordinator.FetchUnread(warmCtx, true); err != nil {
		slog.Error("initial unread fetch failed", slog.String("error", err.Error()))
	}
	warmCancel()

	fmt.Fprintf(os.Stderr, "tailing notifications for %s (ctrl-c to stop)\n", sess.UserID())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

func printSnapshot(s notify.Snapshot) {
	line := struct {
		At     string `json:"at"`
		Unread int    `json:"unread"`
		Count  int    `json:"count"`
		Latest string `json:"latest,omitempty"`
	}{
		At:     time.Now().Format(time.RFC3339),
		Unread: s.Unread,
		Count:  len(s.Notifications),
	}
	if len(s.Notifications) > 0 {
		line.Latest = s.Notifications[0].Title
	}

	out, err := json.Marshal(line)
	if err != nil {
		slog.Error("failed to encode snapshot", slog.String("error", err.Error()))
		return
	}
	fmt.Println(string(out))
}
