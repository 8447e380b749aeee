package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/observability"
)

// Feed is the notification cache the reconciler writes into.
type Feed interface {
	Splice(n *domain.Notification)
	ForceRefresh(ctx context.Context) error
}

// ChatSink receives admin direct messages for the chat surface.
type ChatSink interface {
	Receive(msg *domain.ChatMessage)
}

// Reconciler merges server-pushed events into cached state, deduplicating
// against events already seen this session.
type Reconciler struct {
	mu   sync.Mutex
	seen map[string]struct{}

	feed    Feed
	chat    ChatSink
	timeout time.Duration
}

func NewReconciler(feed Feed, chat ChatSink) *Reconciler {
	return &Reconciler{
		seen:    make(map[string]struct{}),
		feed:    feed,
		chat:    chat,
		timeout: 10 * time.Second,
	}
}

// DedupKey identifies a pushed notification. The persisted id wins; id-less
// payloads fall back to a composite of type, user, title, and timestamp.
// Two id-less events identical in all four fields collapse into one — an
// accepted limit, since the backend itself cannot tell them apart.
func DedupKey(n *domain.Notification) string {
	if n.ID != "" {
		return n.ID
	}
	return fmt.Sprintf("%s|%s|%s|%s", n.Type, n.UserID, n.Title, n.CreatedAt.Format(time.RFC3339Nano))
}

// OnNotification handles a pushed notification event. Complete payloads are
// spliced straight into the cache; incomplete ones force a full refetch
// because not every event type carries a full record.
func (r *Reconciler) OnNotification(data json.RawMessage) {
	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		slog.Warn("undecodable notification event", slog.String("error", err.Error()))
		observability.SocketEventsTotal.WithLabelValues(EventNotification, "ignored").Inc()
		return
	}

	key := DedupKey(&n)
	r.mu.Lock()
	if _, dup := r.seen[key]; dup {
		r.mu.Unlock()
		observability.SocketEventsTotal.WithLabelValues(EventNotification, "duplicate").Inc()
		return
	}
	r.seen[key] = struct{}{}
	r.mu.Unlock()

	if n.Complete() {
		r.feed.Splice(&n)
		observability.SocketEventsTotal.WithLabelValues(EventNotification, "applied").Inc()
		return
	}

	observability.SocketEventsTotal.WithLabelValues(EventNotification, "refetch").Inc()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.feed.ForceRefresh(ctx); err != nil {
		slog.Warn("forced refresh after incomplete push failed", slog.String("error", err.Error()))
	}
}

// OnAdminMessage forwards a pushed chat message to the chat surface, which
// owns per-conversation acceptance and optimistic-echo reconciliation.
func (r *Reconciler) OnAdminMessage(data json.RawMessage) {
	var msg domain.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("undecodable admin message event", slog.String("error", err.Error()))
		observability.SocketEventsTotal.WithLabelValues(EventAdminMessage, "ignored").Inc()
		return
	}

	if r.chat == nil {
		observability.SocketEventsTotal.WithLabelValues(EventAdminMessage, "ignored").Inc()
		return
	}
	r.chat.Receive(&msg)
	observability.SocketEventsTotal.WithLabelValues(EventAdminMessage, "applied").Inc()
}
