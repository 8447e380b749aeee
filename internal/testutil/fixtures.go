// Package testutil provides fixture builders shared across package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"bazario-admin/internal/domain"
)

var idCounter atomic.Int64

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// NotificationOptions allows customizing notification fixture creation
type NotificationOptions struct {
	ID        string
	UserID    string
	Title     string
	Type      string
	Read      bool
	CreatedAt time.Time
}

// NewTestNotification creates a notification with sensible defaults.
// Pass options to override specific fields.
func NewTestNotification(opts ...func(*NotificationOptions)) *domain.Notification {
	o := &NotificationOptions{
		ID:        nextID("ntf"),
		UserID:    "user-1",
		Title:     "Test notification",
		Type:      domain.TypeBidPlaced,
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return &domain.Notification{
		ID:        o.ID,
		UserID:    o.UserID,
		Title:     o.Title,
		Message:   "fixture message",
		Type:      o.Type,
		Read:      o.Read,
		CreatedAt: o.CreatedAt,
	}
}

// WithNotificationID overrides the generated id
func WithNotificationID(id string) func(*NotificationOptions) {
	return func(o *NotificationOptions) { o.ID = id }
}

// WithNotificationType overrides the notification type
func WithNotificationType(typ string) func(*NotificationOptions) {
	return func(o *NotificationOptions) { o.Type = typ }
}

// WithNotificationRead marks the fixture as already read
func WithNotificationRead() func(*NotificationOptions) {
	return func(o *NotificationOptions) { o.Read = true }
}

// MessageOptions allows customizing chat message fixture creation
type MessageOptions struct {
	ID        string
	ChatID    string
	Sender    string
	Receiver  string
	Message   string
	FromAdmin bool
}

// NewTestMessage creates a chat message fixture with sensible defaults.
func NewTestMessage(opts ...func(*MessageOptions)) *domain.ChatMessage {
	o := &MessageOptions{
		ID:        nextID("msg"),
		ChatID:    "chat-1",
		Sender:    "user-2",
		Receiver:  "admin-1",
		Message:   "fixture message",
		FromAdmin: true,
	}

	for _, opt := range opts {
		opt(o)
	}

	return &domain.ChatMessage{
		ID:        o.ID,
		ChatID:    o.ChatID,
		Sender:    o.Sender,
		Receiver:  o.Receiver,
		Message:   o.Message,
		FromAdmin: o.FromAdmin,
		CreatedAt: time.Now(),
	}
}

// WithMessageSender overrides the sender
func WithMessageSender(sender string) func(*MessageOptions) {
	return func(o *MessageOptions) { o.Sender = sender }
}

// WithMessageChatID overrides the conversation id
func WithMessageChatID(chatID string) func(*MessageOptions) {
	return func(o *MessageOptions) { o.ChatID = chatID }
}
