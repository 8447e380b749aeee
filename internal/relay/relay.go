// Package relay republishes reconciled admin events onto RabbitMQ so
// downstream consumers (reporting, CRM sync) get a single deduplicated
// stream instead of each re-implementing socket reconciliation.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"bazario-admin/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeEvents = "admin.events"

	routingNotification = "notification.reconciled"
	routingAdminMessage = "chat.admin-message"
)

type Relay struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NotificationEvent is the wire shape for reconciled notifications.
type NotificationEvent struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"created_at"`
	Timestamp int64  `json:"timestamp"`
}

// AdminMessageEvent is the wire shape for delivered chat messages.
type AdminMessageEvent struct {
	ID        string `json:"id"`
	ChatID    string `json:"chat_id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Timestamp int64  `json:"timestamp"`
}

func NewRelay(url string) (*Relay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r := &Relay{conn: conn, channel: ch}
	if err := r.setup(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Relay) setup() error {
	if err := r.channel.ExchangeDeclare(
		exchangeEvents, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	slog.Info("relay setup completed successfully")
	return nil
}

// PublishNotification republishes a reconciled notification.
func (r *Relay) PublishNotification(ctx context.Context, n *domain.Notification) error {
	event := &NotificationEvent{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Type:      n.Type,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Unix(),
		Timestamp: time.Now().Unix(),
	}
	if err := r.publish(ctx, routingNotification, event); err != nil {
		return err
	}

	slog.Info("relayed notification",
		slog.String("notification_id", n.ID),
		slog.String("type", n.Type))
	return nil
}

// PublishAdminMessage republishes a delivered chat message. The message
// body is deliberately omitted from the event.
func (r *Relay) PublishAdminMessage(ctx context.Context, msg *domain.ChatMessage) error {
	event := &AdminMessageEvent{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Timestamp: time.Now().Unix(),
	}
	if err := r.publish(ctx, routingAdminMessage, event); err != nil {
		return err
	}

	slog.Info("relayed admin message",
		slog.String("chat_id", msg.ChatID))
	return nil
}

func (r *Relay) publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		exchangeEvents,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// IsClosed reports whether the underlying connection has gone away.
func (r *Relay) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *Relay) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}
