package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bazario-admin/internal/api"
	"bazario-admin/internal/domain"
	"bazario-admin/internal/storage"
)

type mockSender struct {
	mu           sync.Mutex
	sendFn       func(req api.SendRequest) (*domain.ChatMessage, error)
	history      []*domain.ChatMessage
	historyErr   error
	historyCalls int
	lastReq      api.SendRequest
}

func (m *mockSender) Send(_ context.Context, req api.SendRequest) (*domain.ChatMessage, error) {
	m.mu.Lock()
	m.lastReq = req
	fn := m.sendFn
	m.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &domain.ChatMessage{
		ID:            "srv-1",
		CorrelationID: req.CorrelationID,
		ChatID:        req.ChatID,
		Sender:        "admin-1",
		Receiver:      req.Receiver,
		Message:       req.Message,
		FromAdmin:     true,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *mockSender) History(_ context.Context, _ string) ([]*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return append([]*domain.ChatMessage(nil), m.history...), nil
}

func openThread(t *testing.T, sender *mockSender) *Thread {
	t.Helper()
	th := NewThread(sender, storage.NewMemoryStore(), "admin-1")
	if _, err := th.Open(context.Background(), "chat-9"); err != nil {
		t.Fatalf("open: %v", err)
	}
	return th
}

func TestSendConfirmedReplacesTempBubble(t *testing.T) {
	sender := &mockSender{}
	tempSeen := false
	th := openThread(t, sender)
	sender.sendFn = func(req api.SendRequest) (*domain.ChatMessage, error) {
		for _, msg := range th.Messages() {
			if msg.Temp && msg.Message == "hello" {
				tempSeen = true
			}
		}
		return &domain.ChatMessage{
			ID:            "srv-1",
			CorrelationID: req.CorrelationID,
			ChatID:        req.ChatID,
			Message:       req.Message,
			Sender:        "admin-1",
			FromAdmin:     true,
			CreatedAt:     time.Now(),
		}, nil
	}

	if err := th.Send(context.Background(), "user-2", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if !tempSeen {
		t.Error("expected a temp bubble to be visible while the send was in flight")
	}
	msgs := th.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Temp || msgs[0].ID != "srv-1" {
		t.Errorf("expected confirmed record, got %+v", msgs[0])
	}
	if sender.lastReq.CorrelationID == "" {
		t.Error("expected a correlation id on the send request")
	}
}

func TestSendFailureShowsExpiringErrorBubble(t *testing.T) {
	sender := &mockSender{sendFn: func(api.SendRequest) (*domain.ChatMessage, error) {
		return nil, errors.New("boom")
	}}
	th := openThread(t, sender)
	th.errorTTL = 30 * time.Millisecond

	if err := th.Send(context.Background(), "user-2", "hello"); err == nil {
		t.Fatal("expected send error")
	}

	msgs := th.Messages()
	if len(msgs) != 1 || !msgs[0].Failed {
		t.Fatalf("expected a failed bubble, got %+v", msgs)
	}

	deadline := time.Now().Add(time.Second)
	for len(th.Messages()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("error bubble was never removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendConfirmedWithoutIDRefetches(t *testing.T) {
	sender := &mockSender{sendFn: func(req api.SendRequest) (*domain.ChatMessage, error) {
		return &domain.ChatMessage{Message: req.Message}, nil
	}}
	th := openThread(t, sender)
	sender.mu.Lock()
	sender.history = []*domain.ChatMessage{{ID: "srv-7", ChatID: "chat-9", Message: "hello", Sender: "admin-1"}}
	sender.mu.Unlock()

	if err := th.Send(context.Background(), "user-2", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	sender.mu.Lock()
	calls := sender.historyCalls
	sender.mu.Unlock()
	if calls != 2 { // open + refetch
		t.Errorf("expected a conversation refetch, got %d history calls", calls)
	}
	msgs := th.Messages()
	if len(msgs) != 1 || msgs[0].ID != "srv-7" {
		t.Errorf("expected thread reconciled from server, got %+v", msgs)
	}
}

func TestSocketEchoReplacesTempBubble(t *testing.T) {
	sender := &mockSender{}
	release := make(chan struct{})
	corrCh := make(chan string, 1)
	sender.sendFn = func(req api.SendRequest) (*domain.ChatMessage, error) {
		corrCh <- req.CorrelationID
		<-release
		return &domain.ChatMessage{ID: "srv-1", CorrelationID: req.CorrelationID, Message: req.Message, Sender: "admin-1"}, nil
	}
	th := openThread(t, sender)

	done := make(chan error, 1)
	go func() { done <- th.Send(context.Background(), "user-2", "hello") }()

	corr := <-corrCh
	th.Receive(&domain.ChatMessage{
		ID:            "srv-1",
		CorrelationID: corr,
		ChatID:        "chat-9",
		Sender:        "admin-1",
		Message:       "hello",
		FromAdmin:     true,
		CreatedAt:     time.Now(),
	})
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("send: %v", err)
	}

	msgs := th.Messages()
	if len(msgs) != 1 {
		t.Fatalf("echo plus confirmation must leave exactly one bubble, got %d", len(msgs))
	}
	if msgs[0].Temp || msgs[0].ID != "srv-1" {
		t.Errorf("expected the echoed record, got %+v", msgs[0])
	}
}

func TestReceiveDuplicateEmissionDropped(t *testing.T) {
	th := openThread(t, &mockSender{})
	msg := &domain.ChatMessage{
		ID:        "srv-2",
		ChatID:    "chat-9",
		Sender:    "user-2",
		Receiver:  "admin-1",
		Message:   "ping",
		FromAdmin: true,
		CreatedAt: time.Now(),
	}

	th.Receive(msg)
	th.Receive(msg)

	if got := len(th.Messages()); got != 1 {
		t.Errorf("expected duplicate to be dropped, got %d messages", got)
	}
}

func TestReceiveIgnoresMessagesForOthers(t *testing.T) {
	th := openThread(t, &mockSender{})

	th.Receive(&domain.ChatMessage{ID: "a", ChatID: "chat-9", Sender: "user-2", Receiver: "admin-1", Message: "x", FromAdmin: false, CreatedAt: time.Now()})
	th.Receive(&domain.ChatMessage{ID: "b", ChatID: "chat-9", Sender: "user-2", Receiver: "someone-else", Message: "y", FromAdmin: true, CreatedAt: time.Now()})

	if got := len(th.Messages()); got != 0 {
		t.Errorf("expected no messages accepted, got %d", got)
	}
	if badge := th.UnreadBadge(nil); badge != 0 {
		t.Errorf("expected badge 0, got %d", badge)
	}
}

func TestUnreadBadgePrefersRealtimeCount(t *testing.T) {
	sender := &mockSender{}
	th := openThread(t, sender)
	th.Close()

	for i, id := range []string{"m1", "m2"} {
		th.Receive(&domain.ChatMessage{
			ID:        id,
			ChatID:    "chat-9",
			Sender:    "user-2",
			Receiver:  "admin-1",
			Message:   "hi",
			FromAdmin: true,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
	}

	if badge := th.UnreadBadge(nil); badge != 2 {
		t.Errorf("expected realtime badge 2, got %d", badge)
	}

	if _, err := th.Open(context.Background(), "chat-9"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if badge := th.UnreadBadge(nil); badge != 0 {
		t.Errorf("expected badge reset after open, got %d", badge)
	}
}

func TestUnreadBadgeFallsBackToLastSeen(t *testing.T) {
	store := storage.NewMemoryStore()
	mark := time.Now().Add(-time.Hour)
	if err := store.Set(storage.LastSeenKey("admin-1"), []byte(mark.Format(time.RFC3339Nano))); err != nil {
		t.Fatalf("seed last-seen: %v", err)
	}

	th := NewThread(&mockSender{}, store, "admin-1")
	persisted := []*domain.ChatMessage{
		{ID: "old", Sender: "user-2", CreatedAt: mark.Add(-time.Minute)},
		{ID: "new", Sender: "user-2", CreatedAt: mark.Add(time.Minute)},
		{ID: "mine", Sender: "admin-1", CreatedAt: mark.Add(2 * time.Minute)},
	}

	if badge := th.UnreadBadge(persisted); badge != 1 {
		t.Errorf("expected 1 unseen message, got %d", badge)
	}
}
