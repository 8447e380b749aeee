package api

import (
	"context"

	"bazario-admin/internal/domain"
)

// MessagesAPI wraps the message/* and conversation/* endpoint groups.
type MessagesAPI struct {
	c *Client
}

// SendRequest is the payload for POST /message. CorrelationID is generated
// client-side and echoed back by the backend so optimistic sends can be
// matched without comparing message text.
type SendRequest struct {
	ChatID        string `json:"chatId"`
	Receiver      string `json:"receiver"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
}

// Conversations lists the admin's conversations, most recently updated first.
func (m *MessagesAPI) Conversations(ctx context.Context) ([]*domain.Conversation, error) {
	var resp struct {
		Conversations []*domain.Conversation `json:"conversations"`
	}
	if err := m.c.Get(ctx, "/conversation", &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// History fetches the messages of one conversation, oldest first.
func (m *MessagesAPI) History(ctx context.Context, chatID string) ([]*domain.ChatMessage, error) {
	if chatID == "" {
		return nil, domain.ErrInvalidInput
	}
	var resp struct {
		Messages []*domain.ChatMessage `json:"messages"`
	}
	if err := m.c.Get(ctx, "/conversation/"+chatID+"/messages", &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Send delivers a chat message and returns the server-confirmed record.
func (m *MessagesAPI) Send(ctx context.Context, req SendRequest) (*domain.ChatMessage, error) {
	if req.Message == "" || req.ChatID == "" {
		return nil, domain.ErrInvalidInput
	}
	var resp struct {
		Message *domain.ChatMessage `json:"message"`
	}
	if err := m.c.Post(ctx, "/message", req, &resp); err != nil {
		return nil, err
	}
	return resp.Message, nil
}
