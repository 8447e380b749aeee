package api

import (
	"context"
	"fmt"

	"bazario-admin/internal/domain"
)

// NotificationsAPI wraps the notifications/* endpoint group.
type NotificationsAPI struct {
	c *Client
}

// List fetches the signed-in user's notifications, most recent first.
func (n *NotificationsAPI) List(ctx context.Context) ([]*domain.Notification, error) {
	var resp struct {
		Notifications []*domain.Notification `json:"notifications"`
	}
	if err := n.c.Get(ctx, "/notifications", &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// UnreadCount fetches the number of unread notifications.
func (n *NotificationsAPI) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := n.c.Get(ctx, "/notifications/unread-count", &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// MarkRead marks a single notification as read.
func (n *NotificationsAPI) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	return n.c.Put(ctx, fmt.Sprintf("/notifications/%s/read", id), nil, nil)
}

// MarkAllRead marks every notification as read.
func (n *NotificationsAPI) MarkAllRead(ctx context.Context) error {
	return n.c.Put(ctx, "/notifications/read-all", nil, nil)
}

// Remove deletes a single notification.
func (n *NotificationsAPI) Remove(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	return n.c.Delete(ctx, "/notifications/"+id, nil)
}

// RemoveAll deletes every notification.
func (n *NotificationsAPI) RemoveAll(ctx context.Context) error {
	return n.c.Delete(ctx, "/notifications", nil)
}
