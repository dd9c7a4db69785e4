// Package messaging provides outbound messaging for OrderGate.
//
// This file adapts the whatsmeow personal-account client to the Service
// interface. Personal accounts cannot send Business interactive messages,
// so buttons and lists are degraded to numbered text.
package messaging

import (
	"context"
	"log/slog"

	"github.com/tablelink/ordergate/internal/whatsapp"
)

// MeowService implements Service over a whatsmeow personal-account client.
type MeowService struct {
	client whatsapp.Sender
}

// NewMeowService wraps the given whatsmeow sender.
func NewMeowService(client whatsapp.Sender) *MeowService {
	slog.Debug("MeowService created")
	return &MeowService{client: client}
}

// SendText sends a plain text message. The business id is unused: one
// personal account serves all businesses.
func (s *MeowService) SendText(ctx context.Context, businessID, phone, text string) error {
	return s.client.SendMessage(ctx, phone, text)
}

// SendInteractiveButtons degrades buttons to numbered text.
func (s *MeowService) SendInteractiveButtons(ctx context.Context, businessID, phone, body string, buttons []Button, footer string) error {
	return s.client.SendMessage(ctx, phone, renderButtonsAsText(body, buttons, footer))
}

// SendInteractiveList degrades the list to numbered text.
func (s *MeowService) SendInteractiveList(ctx context.Context, businessID, phone, body, buttonLabel string, sections []ListSection) error {
	return s.client.SendMessage(ctx, phone, renderListAsText(body, sections))
}
