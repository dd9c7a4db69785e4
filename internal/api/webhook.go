package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tablelink/ordergate/internal/models"
)

const signatureHeader = "X-Hub-Signature-256"

var (
	errMissingSignature = errors.New("missing webhook signature header")
	errBadSignature     = errors.New("webhook signature mismatch")
)

// Cloud API webhook payload shapes, reduced to the fields the gateway
// consumes.
type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Value webhookValue `json:"value"`
	Field string       `json:"field"`
}

type webhookValue struct {
	MessagingProduct string              `json:"messaging_product"`
	Metadata         webhookMetadata     `json:"metadata"`
	Contacts         []webhookContact    `json:"contacts,omitempty"`
	Messages         []incomingWAMessage `json:"messages,omitempty"`
}

type webhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type webhookContact struct {
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
	WaID string `json:"wa_id"`
}

type incomingWAMessage struct {
	From        string         `json:"from"`
	ID          string         `json:"id"`
	Timestamp   string         `json:"timestamp"`
	Type        string         `json:"type"`
	Text        *waText        `json:"text,omitempty"`
	Interactive *waInteractive `json:"interactive,omitempty"`
	Order       *waOrder       `json:"order,omitempty"`
	Image       *waMedia       `json:"image,omitempty"`
	Video       *waMedia       `json:"video,omitempty"`
}

type waText struct {
	Body string `json:"body"`
}

type waInteractive struct {
	Type        string   `json:"type"`
	ButtonReply *waReply `json:"button_reply,omitempty"`
	ListReply   *waReply `json:"list_reply,omitempty"`
}

type waReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type waOrder struct {
	CatalogID    string          `json:"catalog_id"`
	ProductItems []waProductItem `json:"product_items"`
}

type waProductItem struct {
	ProductRetailerID string      `json:"product_retailer_id"`
	Quantity          json.Number `json:"quantity"`
	ItemPrice         json.Number `json:"item_price"`
	Currency          string      `json:"currency"`
}

type waMedia struct {
	ID      string `json:"id,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// handleWebhookVerification answers the Cloud API subscription challenge.
func (s *Server) handleWebhookVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.opts.VerifyToken {
		slog.Debug("Webhook verification accepted")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}
	slog.Warn("Webhook verification rejected", "mode", mode)
	http.Error(w, "verification failed", http.StatusForbidden)
}

// handleWebhook verifies and processes one inbound webhook delivery.
// Failures after a successful parse still return 200 so the platform does
// not retry a delivery the engine has already seen.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if err := s.verifySignature(r, body); err != nil {
		slog.Warn("Webhook signature rejected", "error", err)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Error("Webhook payload unmarshal failed", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	for _, msg := range normalizeWebhook(payload) {
		var err error
		if msg.Kind == models.MessageKindOrder {
			err = s.engine.ProcessOrderMessage(ctx, msg)
		} else {
			err = s.engine.ProcessMessage(ctx, msg)
		}
		if err != nil {
			slog.Error("Webhook processing failed", "error", err,
				"businessID", msg.BusinessID, "phone", msg.PhoneNumber, "kind", msg.Kind)
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// verifySignature checks the payload HMAC when an app secret is
// configured.
func (s *Server) verifySignature(r *http.Request, body []byte) error {
	if s.opts.AppSecret == "" {
		return nil
	}
	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		return errMissingSignature
	}
	mac := hmac.New(sha256.New, []byte(s.opts.AppSecret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return errBadSignature
	}
	// Restore the body for any downstream reader.
	r.Body = io.NopCloser(bytes.NewReader(body))
	return nil
}

// normalizeWebhook flattens a Cloud API delivery into engine messages.
// The entry id (the WhatsApp business account id) keys the tenant.
func normalizeWebhook(payload webhookPayload) []models.IncomingMessage {
	var out []models.IncomingMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" && change.Field != "" {
				continue
			}
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, wm := range change.Value.Messages {
				msg, ok := normalizeMessage(entry.ID, wm)
				if !ok {
					continue
				}
				msg.CustomerName = names[wm.From]
				out = append(out, msg)
			}
		}
	}
	return out
}

func normalizeMessage(businessID string, wm incomingWAMessage) (models.IncomingMessage, bool) {
	msg := models.IncomingMessage{
		BusinessID:  businessID,
		PhoneNumber: normalizePhoneNumber(wm.From),
	}
	switch wm.Type {
	case "text":
		if wm.Text == nil {
			return msg, false
		}
		msg.Kind = models.MessageKindText
		msg.Content = wm.Text.Body
	case "interactive":
		if wm.Interactive == nil {
			return msg, false
		}
		switch {
		case wm.Interactive.ButtonReply != nil:
			msg.Kind = models.MessageKindButton
			msg.InteractivePayload = wm.Interactive.ButtonReply.ID
			msg.Content = wm.Interactive.ButtonReply.Title
		case wm.Interactive.ListReply != nil:
			msg.Kind = models.MessageKindList
			msg.InteractivePayload = wm.Interactive.ListReply.ID
			msg.Content = wm.Interactive.ListReply.Title
		default:
			return msg, false
		}
	case "order":
		if wm.Order == nil {
			return msg, false
		}
		msg.Kind = models.MessageKindOrder
		event := &models.OrderEvent{CatalogID: wm.Order.CatalogID}
		for _, pi := range wm.Order.ProductItems {
			qty, _ := strconv.Atoi(pi.Quantity.String())
			price, _ := pi.ItemPrice.Float64()
			event.Lines = append(event.Lines, models.OrderEventLine{
				ItemID:   pi.ProductRetailerID,
				Quantity: qty,
				Price:    price,
			})
		}
		msg.Order = event
	case "image":
		msg.Kind = models.MessageKindImage
		if wm.Image != nil {
			msg.Content = wm.Image.Caption
		}
	case "video":
		msg.Kind = models.MessageKindVideo
		if wm.Video != nil {
			msg.Content = wm.Video.Caption
		}
	default:
		return msg, false
	}
	return msg, true
}

// normalizePhoneNumber strips formatting from a platform sender id into an
// E.164-like form.
func normalizePhoneNumber(v string) string {
	var b strings.Builder
	for i, r := range v {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
