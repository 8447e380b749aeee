// Package chat holds the client-side state of the admin direct-message
// surface: the open conversation, optimistic sends awaiting confirmation,
// and the unread badge.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bazario-admin/internal/api"
	"bazario-admin/internal/domain"
	"bazario-admin/internal/storage"

	"github.com/google/uuid"
)

const defaultErrorTTL = 5 * time.Second

// Sender is the slice of the API the thread needs.
type Sender interface {
	Send(ctx context.Context, req api.SendRequest) (*domain.ChatMessage, error)
	History(ctx context.Context, chatID string) ([]*domain.ChatMessage, error)
}

// Thread is the state of one user's chat surface. A message sent through
// it moves Composing → Sent(temp) → Confirmed or Failed; confirmation
// arrives either as the HTTP response or as the socket echo, whichever
// lands first, and the thread ends up with exactly one bubble either way.
type Thread struct {
	mu        sync.Mutex
	sender    Sender
	store     storage.Store
	userID    string
	chatID    string
	open      bool
	messages  []*domain.ChatMessage
	processed map[string]struct{}

	realtimeCount int // incoming messages delivered by socket since last open
	lastSeen      time.Time

	onChange []func()
	errorTTL time.Duration
}

func NewThread(sender Sender, store storage.Store, userID string) *Thread {
	t := &Thread{
		sender:    sender,
		store:     store,
		userID:    userID,
		processed: make(map[string]struct{}),
		errorTTL:  defaultErrorTTL,
	}
	t.loadLastSeen()
	return t
}

// OnChange registers a callback invoked after every thread mutation.
func (t *Thread) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = append(t.onChange, fn)
	t.mu.Unlock()
}

// Open loads the conversation history and marks the panel open, resetting
// the realtime unread counter and persisting the last-seen mark.
func (t *Thread) Open(ctx context.Context, chatID string) ([]*domain.ChatMessage, error) {
	history, err := t.sender.History(ctx, chatID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t.mu.Lock()
	t.chatID = chatID
	t.open = true
	t.messages = history
	t.realtimeCount = 0
	t.lastSeen = now
	t.mu.Unlock()

	t.persistLastSeen(now)
	t.notify()
	return t.Messages(), nil
}

// Close marks the panel closed. Incoming messages keep accumulating into
// the badge until the next Open.
func (t *Thread) Close() {
	t.mu.Lock()
	t.open = false
	t.mu.Unlock()
}

// Messages returns a copy of the visible thread.
func (t *Thread) Messages() []*domain.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*domain.ChatMessage(nil), t.messages...)
}

// Send appends a temp bubble immediately, then delivers the message. The
// correlation id generated here is echoed back by the backend, so the
// confirmed record replaces the right bubble without comparing text.
func (t *Thread) Send(ctx context.Context, receiver, text string) error {
	if text == "" {
		return domain.ErrInvalidInput
	}

	t.mu.Lock()
	chatID := t.chatID
	t.mu.Unlock()
	if chatID == "" {
		return domain.ErrConversationNotFound
	}

	temp := &domain.ChatMessage{
		CorrelationID: uuid.New().String(),
		ChatID:        chatID,
		Sender:        t.userID,
		Receiver:      receiver,
		Message:       text,
		FromAdmin:     true,
		CreatedAt:     time.Now(),
		Temp:          true,
	}

	t.mu.Lock()
	t.messages = append(t.messages, temp)
	t.mu.Unlock()
	t.notify()

	confirmed, err := t.sender.Send(ctx, api.SendRequest{
		ChatID:        chatID,
		Receiver:      receiver,
		Message:       text,
		CorrelationID: temp.CorrelationID,
	})

	switch {
	case err != nil:
		t.failTemp(temp, fmt.Sprintf("Failed to send: %s", text))
		return err

	case confirmed == nil || confirmed.ID == "":
		// Confirmed but unidentifiable: reconcile from the server instead
		// of guessing which record is ours.
		if refetchErr := t.refetch(ctx, chatID); refetchErr != nil {
			t.failTemp(temp, fmt.Sprintf("Failed to send: %s", text))
			return refetchErr
		}
		return nil

	default:
		t.replaceTemp(temp.CorrelationID, text, confirmed)
		return nil
	}
}

// Receive merges a socket-delivered message. Duplicate emissions are
// dropped via a processed-set; a message enters the visible thread only
// when it targets the open conversation, and an echo of the current
// user's own send replaces its temp bubble instead of appending.
func (t *Thread) Receive(msg *domain.ChatMessage) {
	key := processedKey(msg)

	t.mu.Lock()
	if _, dup := t.processed[key]; dup {
		t.mu.Unlock()
		return
	}
	t.processed[key] = struct{}{}

	if msg.Sender == t.userID {
		t.mu.Unlock()
		t.replaceTemp(msg.CorrelationID, msg.Message, msg)
		return
	}

	// Only admin-originated messages addressed to this user belong to
	// this surface.
	if !msg.FromAdmin || msg.Receiver != t.userID {
		t.mu.Unlock()
		return
	}

	if t.open && msg.ChatID == t.chatID {
		t.messages = append(t.messages, msg)
		t.mu.Unlock()
		t.notify()
		return
	}

	t.realtimeCount++
	t.mu.Unlock()
	t.notify()
}

// UnreadBadge prefers the realtime counter when any socket deliveries
// happened this session; otherwise it counts persisted messages newer
// than the stored last-seen mark.
func (t *Thread) UnreadBadge(persisted []*domain.ChatMessage) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.realtimeCount > 0 {
		return t.realtimeCount
	}

	count := 0
	for _, msg := range persisted {
		if msg.Sender != t.userID && msg.CreatedAt.After(t.lastSeen) {
			count++
		}
	}
	return count
}

// replaceTemp swaps the temp bubble for the confirmed record. Matching is
// by correlation id first; echoes that lost the correlation id fall back
// to the oldest temp bubble with identical text.
func (t *Thread) replaceTemp(correlationID, text string, confirmed *domain.ChatMessage) {
	t.mu.Lock()
	replaced := false
	for i, msg := range t.messages {
		if !msg.Temp {
			continue
		}
		if (correlationID != "" && msg.CorrelationID == correlationID) ||
			(correlationID == "" && msg.Message == text) {
			t.messages[i] = confirmed
			replaced = true
			break
		}
	}
	t.mu.Unlock()

	if replaced {
		t.notify()
	}
}

// failTemp swaps the temp bubble for an error bubble that removes itself
// after errorTTL.
func (t *Thread) failTemp(temp *domain.ChatMessage, errorText string) {
	failure := &domain.ChatMessage{
		CorrelationID: temp.CorrelationID,
		ChatID:        temp.ChatID,
		Sender:        temp.Sender,
		Message:       errorText,
		CreatedAt:     time.Now(),
		Failed:        true,
	}

	t.mu.Lock()
	for i, msg := range t.messages {
		if msg.Temp && msg.CorrelationID == temp.CorrelationID {
			t.messages[i] = failure
			break
		}
	}
	t.mu.Unlock()
	t.notify()

	time.AfterFunc(t.errorTTL, func() {
		t.mu.Lock()
		for i, msg := range t.messages {
			if msg.Failed && msg.CorrelationID == temp.CorrelationID {
				t.messages = append(t.messages[:i], t.messages[i+1:]...)
				break
			}
		}
		t.mu.Unlock()
		t.notify()
	})
}

func (t *Thread) refetch(ctx context.Context, chatID string) error {
	history, err := t.sender.History(ctx, chatID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.messages = history
	t.mu.Unlock()
	t.notify()
	return nil
}

func (t *Thread) notify() {
	t.mu.Lock()
	callbacks := append([]func(){}, t.onChange...)
	t.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

func (t *Thread) loadLastSeen() {
	raw, err := t.store.Get(storage.LastSeenKey(t.userID))
	if err != nil {
		return
	}
	if parsed, err := time.Parse(time.RFC3339Nano, string(raw)); err == nil {
		t.lastSeen = parsed
	}
}

func (t *Thread) persistLastSeen(at time.Time) {
	key := storage.LastSeenKey(t.userID)
	if err := t.store.Set(key, []byte(at.Format(time.RFC3339Nano))); err != nil {
		slog.Warn("failed to persist last-seen mark", slog.String("error", err.Error()))
	}
}

// processedKey deduplicates socket emissions of the same message.
func processedKey(msg *domain.ChatMessage) string {
	return fmt.Sprintf("%s|%s|%s|%d", msg.ID, msg.Message, msg.Sender, msg.CreatedAt.UnixMilli())
}
