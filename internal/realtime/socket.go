// Package realtime consumes the backend's push channel and merges what it
// delivers into the locally cached state.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"bazario-admin/internal/observability"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 64 * 1024

	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
)

// reconnectBackoff doubles the wait after every disconnect cycle, capped
// at maxReconnectDelay. A successful dial resets it so hours of healthy
// connection do not inherit the penalty of old flaps.
type reconnectBackoff struct {
	delay time.Duration
}

func newReconnectBackoff() *reconnectBackoff {
	return &reconnectBackoff{delay: initialReconnectDelay}
}

func (b *reconnectBackoff) next() time.Duration {
	d := b.delay
	b.delay *= 2
	if b.delay > maxReconnectDelay {
		b.delay = maxReconnectDelay
	}
	return d
}

func (b *reconnectBackoff) reset() {
	b.delay = initialReconnectDelay
}

// Envelope is the wire frame for every pushed event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event names the backend emits.
const (
	EventNotification = "notification"
	EventAdminMessage = "adminMessage"
)

// Dispatcher receives decoded socket events.
type Dispatcher interface {
	OnNotification(data json.RawMessage)
	OnAdminMessage(data json.RawMessage)
}

// Socket maintains the push connection, reconnecting with capped backoff.
type Socket struct {
	url        string
	token      func() string // read at dial time, never a snapshot
	dispatcher Dispatcher
}

func NewSocket(url string, token func() string, dispatcher Dispatcher) *Socket {
	return &Socket{url: url, token: token, dispatcher: dispatcher}
}

// Run connects and consumes events until ctx is cancelled. Connection
// failures trigger a reconnect; they never propagate as a Run error.
func (s *Socket) Run(ctx context.Context) error {
	backoff := newReconnectBackoff()

	for {
		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff.reset()
		}

		wait := backoff.next()
		if err != nil {
			slog.Warn("socket disconnected, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("delay", wait))
			observability.SocketReconnectsTotal.Inc()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// consume dials once and reads until the connection drops. The returned
// bool reports whether the dial succeeded, so Run can reset its backoff.
func (s *Socket) consume(ctx context.Context) (bool, error) {
	header := map[string][]string{}
	if token := s.token(); token != "" {
		header["Authorization"] = []string{"Bearer " + token}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	slog.Info("socket connected", slog.String("url", s.url))

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return true, err
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Keepalive pings; the read loop owns the connection lifetime.
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(writeWait)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("socket read error", slog.String("error", err.Error()))
			}
			return true, err
		}

		var envelope Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			slog.Warn("invalid socket frame", slog.String("error", err.Error()))
			continue
		}

		switch envelope.Event {
		case EventNotification:
			s.dispatcher.OnNotification(envelope.Data)
		case EventAdminMessage:
			s.dispatcher.OnAdminMessage(envelope.Data)
		default:
			observability.SocketEventsTotal.WithLabelValues(envelope.Event, "ignored").Inc()
		}
	}
}
