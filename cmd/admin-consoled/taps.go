package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"bazario-admin/internal/archive"
	"bazario-admin/internal/domain"
	"bazario-admin/internal/handler"
	"bazario-admin/internal/realtime"
	"bazario-admin/internal/relay"
)

const tapTimeout = 10 * time.Second

// logAlerter routes user-facing alerts into the structured log, since the
// daemon has no toast surface.
type logAlerter struct{}

func (logAlerter) Alert(level, message string) {
	switch level {
	case "error":
		slog.Error("alert", slog.String("message", message))
	default:
		slog.Warn("alert", slog.String("message", message))
	}
}

// archiveDB bundles the raw connection (for readiness pings) with the
// repository built on it.
type archiveDB struct {
	conn *sql.DB
	repo *archive.Repository
}

func (a *archiveDB) sql() *sql.DB {
	if a == nil {
		return nil
	}
	return a.conn
}

// relayOrNil avoids a typed-nil interface value when the relay is not
// configured.
func relayOrNil(r *relay.Relay) handler.RelayChecker {
	if r == nil {
		return nil
	}
	return r
}

// feedTap forwards reconciled notifications to the coordinator and, when
// configured, archives and relays them. Archive and relay failures are
// logged but never block the feed.
type feedTap struct {
	feed  realtime.Feed
	db    *archiveDB
	relay *relay.Relay
}

func (t *feedTap) Splice(n *domain.Notification) {
	t.feed.Splice(n)

	ctx, cancel := context.WithTimeout(context.Background(), tapTimeout)
	defer cancel()

	if t.db != nil {
		if err := t.db.repo.Save(ctx, n); err != nil {
			slog.Warn("archive write failed", slog.String("error", err.Error()))
		}
	}
	if t.relay != nil {
		if err := t.relay.PublishNotification(ctx, n); err != nil {
			slog.Warn("relay publish failed", slog.String("error", err.Error()))
		}
	}
}

func (t *feedTap) ForceRefresh(ctx context.Context) error {
	return t.feed.ForceRefresh(ctx)
}

// chatTap forwards admin messages to the chat thread and relays them.
type chatTap struct {
	sink  realtime.ChatSink
	relay *relay.Relay
}

func (t *chatTap) Receive(msg *domain.ChatMessage) {
	t.sink.Receive(msg)

	if t.relay == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), tapTimeout)
	defer cancel()

	if err := t.relay.PublishAdminMessage(ctx, msg); err != nil {
		slog.Warn("relay publish failed", slog.String("error", err.Error()))
	}
}
