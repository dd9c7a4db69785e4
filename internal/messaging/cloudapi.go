// Package messaging provides outbound messaging for OrderGate.
//
// This file implements the WhatsApp Business Cloud API provider, speaking
// the Graph /{phone-number-id}/messages endpoint with native interactive
// button and list payloads.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Cloud API defaults.
const (
	DefaultGraphBaseURL    = "https://graph.facebook.com"
	DefaultGraphVersion    = "v23.0"
	DefaultCloudAPITimeout = 30 * time.Second
)

// CloudAPICredentials are the per-business Cloud API settings.
type CloudAPICredentials struct {
	AccessToken   string
	PhoneNumberID string
}

// CredentialsFunc resolves the Cloud API credentials for a business.
type CredentialsFunc func(businessID string) (CloudAPICredentials, error)

// CloudAPIService implements Service against the WhatsApp Business Cloud
// API.
type CloudAPIService struct {
	baseURL     string
	version     string
	credentials CredentialsFunc
	httpClient  *http.Client
}

// CloudAPIOption configures a CloudAPIService.
type CloudAPIOption func(*CloudAPIService)

// WithGraphBaseURL overrides the Graph API base URL (used by tests).
func WithGraphBaseURL(url string) CloudAPIOption {
	return func(s *CloudAPIService) { s.baseURL = url }
}

// WithGraphVersion overrides the Graph API version.
func WithGraphVersion(v string) CloudAPIOption {
	return func(s *CloudAPIService) { s.version = v }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) CloudAPIOption {
	return func(s *CloudAPIService) { s.httpClient = c }
}

// NewCloudAPIService creates a Cloud API provider resolving per-business
// credentials through the given function.
func NewCloudAPIService(credentials CredentialsFunc, opts ...CloudAPIOption) *CloudAPIService {
	s := &CloudAPIService{
		baseURL:     DefaultGraphBaseURL,
		version:     DefaultGraphVersion,
		credentials: credentials,
		httpClient:  &http.Client{Timeout: DefaultCloudAPITimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outbound message payload shapes for the Cloud API.

type cloudMessage struct {
	MessagingProduct string            `json:"messaging_product"`
	RecipientType    string            `json:"recipient_type"`
	To               string            `json:"to"`
	Type             string            `json:"type"`
	Text             *cloudText        `json:"text,omitempty"`
	Interactive      *cloudInteractive `json:"interactive,omitempty"`
}

type cloudText struct {
	Body string `json:"body"`
}

type cloudInteractive struct {
	Type   string       `json:"type"` // "button" or "list"
	Body   cloudBody    `json:"body"`
	Footer *cloudBody   `json:"footer,omitempty"`
	Action *cloudAction `json:"action,omitempty"`
}

type cloudBody struct {
	Text string `json:"text"`
}

type cloudAction struct {
	Buttons  []cloudButton  `json:"buttons,omitempty"`
	Button   string         `json:"button,omitempty"`
	Sections []cloudSection `json:"sections,omitempty"`
}

type cloudButton struct {
	Type  string     `json:"type"`
	Reply cloudReply `json:"reply"`
}

type cloudReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type cloudSection struct {
	Title string     `json:"title,omitempty"`
	Rows  []cloudRow `json:"rows"`
}

type cloudRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// SendText sends a plain text message.
func (s *CloudAPIService) SendText(ctx context.Context, businessID, phone, text string) error {
	msg := cloudMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               phone,
		Type:             "text",
		Text:             &cloudText{Body: text},
	}
	return s.send(ctx, businessID, msg)
}

// SendInteractiveButtons sends a native reply-button message. WhatsApp caps
// buttons at three; extras are dropped.
func (s *CloudAPIService) SendInteractiveButtons(ctx context.Context, businessID, phone, body string, buttons []Button, footer string) error {
	if len(buttons) > MaxButtons {
		slog.Warn("CloudAPIService truncating buttons", "businessID", businessID, "count", len(buttons))
		buttons = buttons[:MaxButtons]
	}
	action := &cloudAction{}
	for _, b := range buttons {
		action.Buttons = append(action.Buttons, cloudButton{
			Type:  "reply",
			Reply: cloudReply{ID: b.ID, Title: b.Title},
		})
	}
	interactive := &cloudInteractive{
		Type:   "button",
		Body:   cloudBody{Text: body},
		Action: action,
	}
	if footer != "" {
		interactive.Footer = &cloudBody{Text: footer}
	}
	msg := cloudMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               phone,
		Type:             "interactive",
		Interactive:      interactive,
	}
	return s.send(ctx, businessID, msg)
}

// SendInteractiveList sends a native list message.
func (s *CloudAPIService) SendInteractiveList(ctx context.Context, businessID, phone, body, buttonLabel string, sections []ListSection) error {
	action := &cloudAction{Button: buttonLabel}
	for _, sec := range sections {
		cs := cloudSection{Title: sec.Title}
		for _, row := range sec.Rows {
			cs.Rows = append(cs.Rows, cloudRow{ID: row.ID, Title: row.Title, Description: row.Description})
		}
		action.Sections = append(action.Sections, cs)
	}
	msg := cloudMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               phone,
		Type:             "interactive",
		Interactive: &cloudInteractive{
			Type:   "list",
			Body:   cloudBody{Text: body},
			Action: action,
		},
	}
	return s.send(ctx, businessID, msg)
}

func (s *CloudAPIService) send(ctx context.Context, businessID string, msg cloudMessage) error {
	creds, err := s.credentials(businessID)
	if err != nil {
		slog.Error("CloudAPIService credential resolution failed", "error", err, "businessID", businessID)
		return fmt.Errorf("failed to resolve credentials for business %s: %w", businessID, err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", s.baseURL, s.version, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("CloudAPIService send failed", "error", err, "businessID", businessID, "to", msg.To)
		return fmt.Errorf("failed to send message to %s: %w", msg.To, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("CloudAPIService send rejected", "status", resp.StatusCode, "businessID", businessID, "to", msg.To, "body", string(body))
		return fmt.Errorf("whatsapp api returned status %d", resp.StatusCode)
	}
	slog.Debug("CloudAPIService message sent", "businessID", businessID, "to", msg.To, "type", msg.Type)
	return nil
}
