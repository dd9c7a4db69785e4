package profile

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tablelink/ordergate/internal/messaging"
	"github.com/tablelink/ordergate/internal/models"
	"github.com/tablelink/ordergate/internal/store"
)

// recordingMessenger captures outbound messages instead of sending them.
type recordingMessenger struct {
	texts   []string
	buttons []string
	lists   []string
}

func (r *recordingMessenger) SendText(ctx context.Context, businessID, phone, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingMessenger) SendInteractiveButtons(ctx context.Context, businessID, phone, body string, buttons []messaging.Button, footer string) error {
	r.buttons = append(r.buttons, body)
	return nil
}

func (r *recordingMessenger) SendInteractiveList(ctx context.Context, businessID, phone, body, buttonLabel string, sections []messaging.ListSection) error {
	r.lists = append(r.lists, body)
	return nil
}

func newTestManager() (*Manager, *store.InMemoryStore, *recordingMessenger) {
	st := store.NewInMemoryStore()
	msg := &recordingMessenger{}
	return NewManager(st, msg), st, msg
}

func textMessage(content string) models.IncomingMessage {
	return models.IncomingMessage{
		BusinessID:  "biz1",
		PhoneNumber: "+2348000000001",
		Kind:        models.MessageKindText,
		Content:     content,
	}
}

func payloadMessage(payload string) models.IncomingMessage {
	return models.IncomingMessage{
		BusinessID:         "biz1",
		PhoneNumber:        "+2348000000001",
		Kind:               models.MessageKindButton,
		InteractivePayload: payload,
	}
}

func TestSaveAddressValidation(t *testing.T) {
	m, _, _ := newTestManager()

	if err := m.SaveAddress("biz1", "+2348000000001", "short"); err != models.ErrAddressTooShort {
		t.Errorf("short address: err = %v, want ErrAddressTooShort", err)
	}
	if err := m.SaveAddress("biz1", "+2348000000001", "please show me the menu now"); err != models.ErrAddressLooksCommand {
		t.Errorf("command-like address: err = %v, want ErrAddressLooksCommand", err)
	}
	if err := m.SaveAddress("biz1", "+2348000000001", "12 Allen Avenue, Ikeja, Lagos"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := m.Load("biz1", "+2348000000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || len(p.Addresses) != 1 {
		t.Fatalf("profile after save = %+v, want one address", p)
	}
	if p.Addresses[0].ID == 0 {
		t.Error("saved address should get an id")
	}
}

func TestSaveAddressCap(t *testing.T) {
	m, _, _ := newTestManager()

	for i := 0; i < models.MaxProfileAddresses; i++ {
		addr := fmt.Sprintf("%d Marina Road, Lagos Island", i+1)
		if err := m.SaveAddress("biz1", "+2348000000001", addr); err != nil {
			t.Fatalf("address %d: unexpected error: %v", i+1, err)
		}
	}
	err := m.SaveAddress("biz1", "+2348000000001", "10 Marina Road, Lagos Island")
	if err != models.ErrAddressLimitReached {
		t.Errorf("over-cap save: err = %v, want ErrAddressLimitReached", err)
	}

	p, _ := m.Load("biz1", "+2348000000001")
	if len(p.Addresses) != models.MaxProfileAddresses {
		t.Errorf("address count = %d, want %d", len(p.Addresses), models.MaxProfileAddresses)
	}
}

func TestSaveContactPhone(t *testing.T) {
	m, _, _ := newTestManager()

	if err := m.SaveContactPhone("biz1", "+2348000000001", "not a number"); err != models.ErrInvalidPhone {
		t.Errorf("invalid phone: err = %v, want ErrInvalidPhone", err)
	}
	if err := m.SaveContactPhone("biz1", "+2348000000001", "+234 (801) 234-5678"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := m.Load("biz1", "+2348000000001")
	if p.ContactPhone != "+2348012345678" {
		t.Errorf("stored phone = %q, want +2348012345678", p.ContactPhone)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+2348012345678", "+2348012345678", true},
		{"0801 234 5678", "08012345678", true},
		{"(080) 123-4567", "0801234567", true},
		{"12345", "", false},
		{"+123456789012345678", "", false},
		{"call me", "", false},
		{"080+1234567", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("NormalizePhone(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEnterActivatesProfileFlow(t *testing.T) {
	m, _, msg := newTestManager()
	sess := models.NewOrderSession("biz1", "+2348000000001")
	sess.CurrentState = models.StateItemSelection

	if err := m.Enter(context.Background(), sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ProfileState != models.ProfileStateMenu {
		t.Errorf("ProfileState = %s, want %s", sess.ProfileState, models.ProfileStateMenu)
	}
	if len(msg.buttons) != 1 {
		t.Errorf("sent %d button prompts, want 1", len(msg.buttons))
	}
}

func TestContinueOrderResumes(t *testing.T) {
	m, _, _ := newTestManager()
	sess := models.NewOrderSession("biz1", "+2348000000001")
	sess.CurrentState = models.StateItemSelection
	sess.Cart.Items = append(sess.Cart.Items, models.CartItem{ItemID: "a", Name: "Rice", Price: 500, Quantity: 1})
	sess.ProfileState = models.ProfileStateMenu

	resumed, err := m.HandleMessage(context.Background(), sess, payloadMessage(models.PayloadProfileContinue))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resumed {
		t.Error("continue payload should resume the order flow")
	}
	if sess.InProfileFlow() {
		t.Error("ProfileState should be cleared on resume")
	}
	if len(sess.Cart.Items) != 1 {
		t.Error("cart must be untouched by the profile detour")
	}
	if sess.CurrentState != models.StateItemSelection {
		t.Errorf("primary state = %s, want %s", sess.CurrentState, models.StateItemSelection)
	}
}

func TestAddressFlowThroughMessages(t *testing.T) {
	m, _, msg := newTestManager()
	sess := models.NewOrderSession("biz1", "+2348000000001")
	sess.ProfileState = models.ProfileStateMenu
	ctx := context.Background()

	if _, err := m.HandleMessage(ctx, sess, payloadMessage(models.PayloadProfileAddresses)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ProfileState != models.ProfileStateAddressMenu {
		t.Fatalf("ProfileState = %s, want %s", sess.ProfileState, models.ProfileStateAddressMenu)
	}

	if _, err := m.HandleMessage(ctx, sess, payloadMessage(models.PayloadProfileAddAddress)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ProfileState != models.ProfileStateWaitingForAddress {
		t.Fatalf("ProfileState = %s, want %s", sess.ProfileState, models.ProfileStateWaitingForAddress)
	}

	if _, err := m.HandleMessage(ctx, sess, textMessage("45 Awolowo Road, Ikoyi, Lagos")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ProfileState != models.ProfileStateAddressMenu {
		t.Errorf("ProfileState after save = %s, want %s", sess.ProfileState, models.ProfileStateAddressMenu)
	}

	p, _ := m.Load("biz1", "+2348000000001")
	if p == nil || len(p.Addresses) != 1 {
		t.Fatal("address should be saved through the flow")
	}
	saved := false
	for _, txt := range msg.texts {
		if strings.Contains(txt, "saved") {
			saved = true
		}
	}
	if !saved {
		t.Error("customer should be told the address was saved")
	}
}

func TestUnknownSubStateBailsOut(t *testing.T) {
	m, _, _ := newTestManager()
	sess := models.NewOrderSession("biz1", "+2348000000001")
	sess.ProfileState = models.ProfileState("BOGUS")

	resumed, err := m.HandleMessage(context.Background(), sess, textMessage("anything"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resumed || sess.InProfileFlow() {
		t.Error("unknown sub-state should hand control back to the order flow")
	}
}

func TestRenderPromptMatchesSubState(t *testing.T) {
	m, _, msg := newTestManager()
	ctx := context.Background()
	sess := models.NewOrderSession("biz1", "+2348000000001")

	sess.ProfileState = models.ProfileStateWaitingForAddress
	if err := m.RenderPrompt(ctx, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.texts) != 1 || !strings.Contains(msg.texts[0], "type the address") {
		t.Errorf("texts = %v, want the address entry prompt", msg.texts)
	}
	if len(msg.buttons)+len(msg.lists) != 0 {
		t.Error("the address entry prompt is plain text")
	}
	if sess.ProfileState != models.ProfileStateWaitingForAddress {
		t.Errorf("ProfileState = %s, rendering must not change it", sess.ProfileState)
	}

	sess.ProfileState = models.ProfileStateMenu
	if err := m.RenderPrompt(ctx, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.buttons) != 1 || !strings.Contains(msg.buttons[0], "manage") {
		t.Errorf("buttons = %v, want the profile menu", msg.buttons)
	}
	if len(sess.LastPromptPayloads) != 3 {
		t.Errorf("prompt payloads = %v, want the three menu buttons", sess.LastPromptPayloads)
	}
}

func TestMenuRecordsPromptPayloads(t *testing.T) {
	m, _, _ := newTestManager()
	sess := models.NewOrderSession("biz1", "+2348000000001")

	if err := m.Enter(context.Background(), sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{models.PayloadProfileAddresses, models.PayloadProfilePhone, models.PayloadProfileContinue}
	if len(sess.LastPromptPayloads) != len(want) {
		t.Fatalf("prompt payloads = %v, want %v", sess.LastPromptPayloads, want)
	}
	for i, id := range want {
		if sess.LastPromptPayloads[i] != id {
			t.Errorf("prompt payload %d = %q, want %q", i, sess.LastPromptPayloads[i], id)
		}
	}
}

func TestTruncateRuneSafe(t *testing.T) {
	long := "Šiaurės prospektas 124, Vilnius"
	got := truncate(long, 24)
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) != 24 {
		t.Errorf("truncated length = %d runes, want 24", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated value should end with an ellipsis, got %q", got)
	}
	if truncate("short", 24) != "short" {
		t.Error("short values must pass through unchanged")
	}
}
