package domain

import (
	"errors"
	"time"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notification types emitted by the backend. AdminMessage notifications are
// rendered exclusively by the chat surface, never by the general feed.
const (
	TypeAdminMessage = "ADMIN_MESSAGE"
	TypeBidPlaced    = "BID_PLACED"
	TypeTenderClosed = "TENDER_CLOSED"
	TypeSaleCreated  = "DIRECT_SALE_CREATED"
	TypeKYCUpdated   = "IDENTITY_STATUS"
)

// Notification is a server-generated event delivered either by socket push
// or by batch fetch.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      string            `json:"type"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}

// IsAdminMessage reports whether this notification is a direct admin chat
// message. These are filtered out of the notification feed so the chat
// widget and the feed never double-count the same event.
func (n *Notification) IsAdminMessage() bool {
	return n.Type == TypeAdminMessage
}

// Complete reports whether the payload carries enough fields to be spliced
// into the cached list without a round-trip. The backend does not guarantee
// complete socket payloads for every event type.
func (n *Notification) Complete() bool {
	return n.ID != "" && n.Title != "" && !n.CreatedAt.IsZero()
}
