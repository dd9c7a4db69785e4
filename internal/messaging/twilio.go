// Package messaging provides outbound messaging for OrderGate.
//
// This file implements a Twilio-backed WhatsApp provider. Twilio's
// programmable messaging API has no native interactive messages, so buttons
// and lists are degraded to numbered text; the engine accepts numeric
// replies against the rendered order.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioOpts holds configuration options for the Twilio provider.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string // WhatsApp number in "whatsapp:+1234567890" format
}

// TwilioOption defines a configuration option for the Twilio provider.
type TwilioOption func(*TwilioOpts)

// WithTwilioAccountSID sets the Twilio account SID.
func WithTwilioAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

// WithTwilioAuthToken sets the Twilio auth token.
func WithTwilioAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithTwilioFrom sets the sending WhatsApp number.
func WithTwilioFrom(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromWhats = from }
}

// TwilioService implements Service over the Twilio REST API.
type TwilioService struct {
	client    *twilio.RestClient
	fromWhats string
}

// NewTwilioService creates a Twilio provider, falling back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER environment
// variables for unset options.
func NewTwilioService(opts ...TwilioOption) (*TwilioService, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio provider config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioService{client: client, fromWhats: cfg.FromWhats}, nil
}

// SendText sends a plain text message. The business id is unused: one
// Twilio sender serves all businesses.
func (s *TwilioService) SendText(ctx context.Context, businessID, phone, text string) error {
	to := phone
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:+" + strings.TrimPrefix(to, "+")
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromWhats)
	params.SetBody(text)

	_, err := s.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioService SendText failed", "error", err, "to", phone)
		return fmt.Errorf("failed to send message to %s: %w", phone, err)
	}
	slog.Debug("TwilioService message sent", "to", phone, "body_length", len(text))
	return nil
}

// SendInteractiveButtons degrades buttons to numbered text.
func (s *TwilioService) SendInteractiveButtons(ctx context.Context, businessID, phone, body string, buttons []Button, footer string) error {
	return s.SendText(ctx, businessID, phone, renderButtonsAsText(body, buttons, footer))
}

// SendInteractiveList degrades the list to numbered text.
func (s *TwilioService) SendInteractiveList(ctx context.Context, businessID, phone, body, buttonLabel string, sections []ListSection) error {
	return s.SendText(ctx, businessID, phone, renderListAsText(body, sections))
}
