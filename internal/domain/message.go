package domain

import (
	"errors"
	"time"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ChatMessage is a direct message between an admin and a user. Temp and
// Failed exist only client-side: a temp message is appended optimistically
// on send and replaced once the server confirms it.
type ChatMessage struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlationId,omitempty"`
	ChatID        string    `json:"chatId"`
	Sender        string    `json:"sender"`
	Receiver      string    `json:"receiver"`
	Message       string    `json:"message"`
	FromAdmin     bool      `json:"fromAdmin"`
	CreatedAt     time.Time `json:"createdAt"`

	Temp   bool `json:"-"`
	Failed bool `json:"-"`
}

// Conversation groups the messages exchanged with a single user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	AdminID   string    `json:"adminId"`
	UpdatedAt time.Time `json:"updatedAt"`
}
