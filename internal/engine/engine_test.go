package engine

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tablelink/ordergate/internal/messaging"
	"github.com/tablelink/ordergate/internal/models"
	"github.com/tablelink/ordergate/internal/profile"
	"github.com/tablelink/ordergate/internal/session"
	"github.com/tablelink/ordergate/internal/store"
)

// fakeMessenger records outbound messages instead of delivering them.
type fakeMessenger struct {
	texts   []string
	buttons []string
	lists   []string
}

func (f *fakeMessenger) SendText(ctx context.Context, businessID, phone, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendInteractiveButtons(ctx context.Context, businessID, phone, body string, buttons []messaging.Button, footer string) error {
	f.buttons = append(f.buttons, body)
	return nil
}

func (f *fakeMessenger) SendInteractiveList(ctx context.Context, businessID, phone, body, buttonLabel string, sections []messaging.ListSection) error {
	f.lists = append(f.lists, body)
	return nil
}

func (f *fakeMessenger) total() int { return len(f.texts) + len(f.buttons) + len(f.lists) }

// fakeCatalog serves a fixed catalog.
type fakeCatalog struct {
	items    []models.CatalogItem
	toppings []models.ToppingItem
	centers  []models.RevenueCenter
}

func (f *fakeCatalog) GetItems(ctx context.Context, restaurantID, revenueCenterID string, itemIDs []string) ([]models.CatalogItem, error) {
	if len(itemIDs) == 0 {
		return f.items, nil
	}
	want := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}
	var out []models.CatalogItem
	for _, it := range f.items {
		if want[it.ID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetToppings(ctx context.Context, toppingClassID, revenueCenterID string) ([]models.ToppingItem, error) {
	return f.toppings, nil
}

func (f *fakeCatalog) GetRevenueCenters(ctx context.Context, restaurantID string) ([]models.RevenueCenter, error) {
	return f.centers, nil
}

// fakeOrders records submissions and answers discount checks.
type fakeOrders struct {
	charges  []models.ChargeInfo
	discount *models.DiscountResult
	lastReq  *models.OrderRequest
}

func (f *fakeOrders) CreateOrder(ctx context.Context, req models.OrderRequest, authToken string) (*models.OrderResult, error) {
	f.lastReq = &req
	return &models.OrderResult{OrderID: "ord-1"}, nil
}

func (f *fakeOrders) ValidateDiscountCode(ctx context.Context, code, restaurantID string) (*models.DiscountResult, error) {
	return f.discount, nil
}

func (f *fakeOrders) GetCharges(ctx context.Context, restaurantID, revenueCenterID, serviceType string) ([]models.ChargeInfo, error) {
	return f.charges, nil
}

type fixture struct {
	engine *Engine
	store  *store.InMemoryStore
	msg    *fakeMessenger
	orders *fakeOrders
}

func newFixture(t *testing.T, items []models.CatalogItem) *fixture {
	t.Helper()
	st := store.NewInMemoryStore()
	if err := st.SaveBusiness(models.Business{
		ID: "biz1", Name: "Mama Cass", RestaurantID: "rest1",
		ChatEnabled: true, MenuMode: models.MenuModeCompact,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := &fakeMessenger{}
	cat := &fakeCatalog{
		items:    items,
		toppings: []models.ToppingItem{{ID: "t1", Name: "Cheese", Price: 50}, {ID: "t2", Name: "Bacon", Price: 100}},
		centers:  []models.RevenueCenter{{ID: "rc1", Name: "Ikeja"}},
	}
	orders := &fakeOrders{
		charges: []models.ChargeInfo{{ID: "charge1", Name: "Ikeja Zone", Amount: 200}},
	}
	sessions := session.NewManager(st)
	profiles := profile.NewManager(st, msg)
	return &fixture{
		engine: NewEngine(sessions, st, msg, cat, orders, profiles),
		store:  st,
		msg:    msg,
		orders: orders,
	}
}

func plainItems() []models.CatalogItem {
	return []models.CatalogItem{
		{ID: "rice", Name: "Jollof Rice", Price: 500},
		{ID: "water", Name: "Water", Price: 100},
	}
}

func textMsg(content string) models.IncomingMessage {
	return models.IncomingMessage{BusinessID: "biz1", PhoneNumber: "+2348000000001", Kind: models.MessageKindText, Content: content}
}

func clickMsg(payload string) models.IncomingMessage {
	return models.IncomingMessage{BusinessID: "biz1", PhoneNumber: "+2348000000001", Kind: models.MessageKindList, InteractivePayload: payload}
}

func orderMsg(lines ...models.OrderEventLine) models.IncomingMessage {
	return models.IncomingMessage{
		BusinessID:  "biz1",
		PhoneNumber: "+2348000000001",
		Kind:        models.MessageKindOrder,
		Order:       &models.OrderEvent{Lines: lines},
	}
}

func (f *fixture) session(t *testing.T) *models.OrderSession {
	t.Helper()
	sess, err := f.store.GetSession("biz1", "+2348000000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess == nil {
		t.Fatal("session not found")
	}
	return sess
}

func (f *fixture) seedSession(t *testing.T, mutate func(*models.OrderSession)) {
	t.Helper()
	sess := models.NewOrderSession("biz1", "+2348000000001")
	if mutate != nil {
		mutate(sess)
	}
	if err := f.store.SaveSession(*sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFirstContactCreatesSession(t *testing.T) {
	f := newFixture(t, plainItems())
	if err := f.engine.ProcessMessage(context.Background(), textMsg("good evening")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.CurrentState != models.StateLocationSelection {
		t.Errorf("state = %s, want %s", sess.CurrentState, models.StateLocationSelection)
	}
	if len(f.msg.lists) != 1 {
		t.Errorf("sent %d lists, want 1 location picker", len(f.msg.lists))
	}
	if len(f.msg.texts) == 0 || !strings.Contains(f.msg.texts[0], "Mama Cass") {
		t.Error("greeting should mention the business name")
	}
}

func TestChatDisabledBusiness(t *testing.T) {
	f := newFixture(t, plainItems())
	if err := f.store.SaveBusiness(models.Business{ID: "biz1", Name: "Mama Cass", RestaurantID: "rest1", ChatEnabled: false}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.engine.ProcessMessage(context.Background(), textMsg("hello there")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := f.store.GetSession("biz1", "+2348000000001")
	if got != nil {
		t.Error("no session should be created when chat is disabled")
	}
	if len(f.msg.texts) != 1 || !strings.Contains(f.msg.texts[0], "not available") {
		t.Errorf("customer should get the unavailable notice, got %v", f.msg.texts)
	}
}

func TestHappyPathPickupOrder(t *testing.T) {
	f := newFixture(t, plainItems())
	ctx := context.Background()

	steps := []models.IncomingMessage{
		textMsg("good evening"),
		clickMsg(models.PayloadRevenueCenterPrefix + "rc1"),
	}
	for i, msg := range steps {
		if err := f.engine.ProcessMessage(ctx, msg); err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
	}
	if sess := f.session(t); sess.CurrentState != models.StateItemSelection {
		t.Fatalf("state after location = %s, want %s", sess.CurrentState, models.StateItemSelection)
	}

	if err := f.engine.ProcessOrderMessage(ctx, orderMsg(models.OrderEventLine{ItemID: "rice", Quantity: 2})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.CurrentState != models.StateDeliveryMethod {
		t.Fatalf("state after add = %s, want %s", sess.CurrentState, models.StateDeliveryMethod)
	}
	if len(sess.Cart.Items) != 1 || sess.Cart.Items[0].Quantity != 2 {
		t.Fatalf("cart = %+v, want one line of quantity 2", sess.Cart.Items)
	}

	rest := []models.IncomingMessage{
		clickMsg(models.PayloadMethodPickup),
		textMsg("+2348012345678"),
		textMsg("none"),
		clickMsg(models.PayloadConfirmOrder),
	}
	for i, msg := range rest {
		if err := f.engine.ProcessMessage(ctx, msg); err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
	}

	if f.orders.lastReq == nil {
		t.Fatal("order was never submitted")
	}
	req := f.orders.lastReq
	if req.Subtotal != 1000 {
		t.Errorf("submitted subtotal = %v, want 1000", req.Subtotal)
	}
	if req.DeliveryMethod != models.DeliveryMethodPickup {
		t.Errorf("delivery method = %s, want %s", req.DeliveryMethod, models.DeliveryMethodPickup)
	}
	if req.Notes != "" {
		t.Errorf("notes = %q, want empty for \"none\"", req.Notes)
	}
	if req.ContactPhone != "+2348012345678" {
		t.Errorf("contact phone = %q", req.ContactPhone)
	}

	// Successful submission resets the conversation.
	sess = f.session(t)
	if sess.CurrentState != models.StateLocationSelection || len(sess.Cart.Items) != 0 {
		t.Errorf("session after submit = %s with %d items, want fresh", sess.CurrentState, len(sess.Cart.Items))
	}

	confirmed := false
	for _, txt := range f.msg.texts {
		if strings.Contains(txt, "ord-1") {
			confirmed = true
		}
	}
	if !confirmed {
		t.Error("customer should receive the order number")
	}
}

func TestMismatchedClickReRendersWithoutExecuting(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateDeliveryMethod
		s.RevenueCenterID = "rc1"
		s.Cart.Items = append(s.Cart.Items, models.CartItem{ItemID: "rice", Name: "Jollof Rice", Price: 500, Quantity: 1})
	})

	// A stale item click from an old menu prompt.
	if err := f.engine.ProcessMessage(context.Background(), clickMsg(models.PayloadItemPrefix+"water")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess := f.session(t)
	if sess.CurrentState != models.StateDeliveryMethod {
		t.Errorf("state = %s, mismatched click must not change state", sess.CurrentState)
	}
	if len(sess.Cart.Items) != 1 {
		t.Errorf("cart has %d items, mismatched click must not add items", len(sess.Cart.Items))
	}
	if len(f.msg.buttons) != 1 {
		t.Errorf("sent %d button prompts, want the re-rendered method prompt", len(f.msg.buttons))
	}
}

func TestRecipeParentOptionsFlow(t *testing.T) {
	combo := models.CatalogItem{
		ID: "combo", Name: "Lunch Combo", Price: 900,
		OptionSets: []models.OptionSet{{
			ID: "size", Name: "Size",
			Options: []models.CatalogItem{
				{ID: "o1", Name: "Small", Price: 0},
				{ID: "o2", Name: "Large", Price: 200},
			},
		}},
	}
	f := newFixture(t, []models.CatalogItem{combo})
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateItemSelection
		s.RevenueCenterID = "rc1"
	})
	ctx := context.Background()

	if err := f.engine.ProcessOrderMessage(ctx, orderMsg(models.OrderEventLine{ItemID: "combo", Quantity: 1})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.CurrentState != models.StateItemOptions {
		t.Fatalf("state = %s, want %s", sess.CurrentState, models.StateItemOptions)
	}
	if len(sess.PendingParents) != 1 || len(sess.Cart.Items) != 1 {
		t.Fatalf("pending parents = %d, cart = %d, want 1 and 1", len(sess.PendingParents), len(sess.Cart.Items))
	}

	if err := f.engine.ProcessMessage(ctx, clickMsg(models.PayloadOptionPrefix+"o2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess = f.session(t)
	if len(sess.PendingParents) != 0 {
		t.Error("pending parent should be popped after its last option set")
	}
	if len(sess.Cart.Items) != 2 {
		t.Fatalf("cart has %d items, want parent plus chosen option", len(sess.Cart.Items))
	}
	if sess.Cart.Items[0].GroupingID == "" || sess.Cart.Items[0].GroupingID != sess.Cart.Items[1].GroupingID {
		t.Error("parent and option must share a grouping id")
	}
	if sess.CurrentState != models.StateDeliveryMethod {
		t.Errorf("state = %s, want %s", sess.CurrentState, models.StateDeliveryMethod)
	}
}

func TestToppingsFlow(t *testing.T) {
	pizza := models.CatalogItem{ID: "pizza", Name: "Margherita", Price: 1200, ToppingClassID: "tc1"}
	f := newFixture(t, []models.CatalogItem{pizza})
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateItemSelection
		s.RevenueCenterID = "rc1"
	})
	ctx := context.Background()

	if err := f.engine.ProcessOrderMessage(ctx, orderMsg(models.OrderEventLine{ItemID: "pizza", Quantity: 1})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess := f.session(t); sess.CurrentState != models.StateItemToppings {
		t.Fatalf("state = %s, want %s", sess.CurrentState, models.StateItemToppings)
	}

	if err := f.engine.ProcessMessage(ctx, clickMsg(models.PayloadToppingPrefix+"t1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.engine.ProcessMessage(ctx, clickMsg(models.PayloadToppingsDone)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess := f.session(t)
	if len(sess.PendingTops) != 0 {
		t.Error("toppings queue should be drained")
	}
	if len(sess.Cart.Items) != 2 {
		t.Fatalf("cart has %d items, want pizza plus topping", len(sess.Cart.Items))
	}
	topping := sess.Cart.Items[1]
	if !topping.IsTopping || topping.GroupingID != sess.Cart.Items[0].GroupingID {
		t.Errorf("topping line = %+v, want grouped topping", topping)
	}
	if sess.CurrentState != models.StateDeliveryMethod {
		t.Errorf("state = %s, want %s", sess.CurrentState, models.StateDeliveryMethod)
	}
}

func TestProfileInterruptAndResume(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateItemSelection
		s.RevenueCenterID = "rc1"
		s.Cart.Items = append(s.Cart.Items, models.CartItem{ItemID: "rice", Name: "Jollof Rice", Price: 500, Quantity: 1})
	})
	ctx := context.Background()

	if err := f.engine.ProcessMessage(ctx, textMsg("profile")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.ProfileState != models.ProfileStateMenu {
		t.Fatalf("ProfileState = %s, want %s", sess.ProfileState, models.ProfileStateMenu)
	}

	if err := f.engine.ProcessMessage(ctx, clickMsg(models.PayloadProfileContinue)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess = f.session(t)
	if sess.InProfileFlow() {
		t.Error("profile flow should be closed after continue")
	}
	if sess.CurrentState != models.StateItemSelection || len(sess.Cart.Items) != 1 {
		t.Error("order state and cart must survive the profile detour")
	}
	if len(f.msg.lists) == 0 {
		t.Error("the menu prompt should be re-rendered on resume")
	}
}

func TestCheckoutShortcutWithEmptyCart(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateItemSelection
		s.RevenueCenterID = "rc1"
	})

	if err := f.engine.ProcessMessage(context.Background(), textMsg("checkout")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.CurrentState != models.StateItemSelection {
		t.Errorf("state = %s, empty-cart checkout must stay on the menu", sess.CurrentState)
	}
	if len(f.msg.texts) == 0 || !strings.Contains(f.msg.texts[0], "empty") {
		t.Error("customer should be told the cart is empty")
	}
}

func TestRestartKeywordResetsSession(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateOrderConfirmation
		s.RevenueCenterID = "rc1"
		s.DeliveryMethod = models.DeliveryMethodPickup
		s.Cart.Items = append(s.Cart.Items, models.CartItem{ItemID: "rice", Name: "Jollof Rice", Price: 500, Quantity: 1})
	})

	if err := f.engine.ProcessMessage(context.Background(), textMsg("hi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.CurrentState != models.StateLocationSelection || len(sess.Cart.Items) != 0 {
		t.Errorf("session after restart = %s with %d items, want fresh", sess.CurrentState, len(sess.Cart.Items))
	}
	if len(f.msg.lists) != 1 {
		t.Error("restart should render the location picker")
	}
}

func TestOrderEventBeforeLocationIsRedirected(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, nil)

	if err := f.engine.ProcessOrderMessage(context.Background(), orderMsg(models.OrderEventLine{ItemID: "rice", Quantity: 1})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if len(sess.Cart.Items) != 0 {
		t.Error("items must not be added before a location is chosen")
	}
	if len(f.msg.texts) == 0 || !strings.Contains(f.msg.texts[0], "finish the current step") {
		t.Errorf("customer should get a corrective note, got %v", f.msg.texts)
	}
	if len(f.msg.lists) != 1 {
		t.Error("the location picker should be rendered")
	}
}

func TestCancelFlowAndTerminalState(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateItemSelection
		s.RevenueCenterID = "rc1"
		s.Cart.Items = append(s.Cart.Items, models.CartItem{ItemID: "rice", Name: "Jollof Rice", Price: 500, Quantity: 1})
	})
	ctx := context.Background()

	if err := f.engine.ProcessMessage(ctx, textMsg("cancel")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess := f.session(t); sess.CurrentState != models.StateCancelConfirmation {
		t.Fatalf("state = %s, want %s", sess.CurrentState, models.StateCancelConfirmation)
	}

	if err := f.engine.ProcessMessage(ctx, clickMsg(models.PayloadYes)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.CurrentState != models.StateCancelled {
		t.Fatalf("state = %s, want %s", sess.CurrentState, models.StateCancelled)
	}
	if len(sess.Cart.Items) != 0 {
		t.Error("cancellation should clear the cart")
	}

	// Further input into a cancelled session is ignored.
	before := f.msg.total()
	if err := f.engine.ProcessMessage(ctx, textMsg("add more rice")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.msg.total() != before {
		t.Error("cancelled sessions must not respond to ordinary input")
	}
}

func TestDiscountCodeApplied(t *testing.T) {
	f := newFixture(t, plainItems())
	f.orders.discount = &models.DiscountResult{Code: "WELCOME10", Value: 10, AmountType: "percent", IsActive: true}
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateOrderConfirmation
		s.RevenueCenterID = "rc1"
		s.DeliveryMethod = models.DeliveryMethodPickup
		s.ContactPhone = "+2348012345678"
		s.Notes = "none"
		s.Cart.Items = append(s.Cart.Items, models.CartItem{ItemID: "rice", Name: "Jollof Rice", Price: 500, Quantity: 2})
	})
	ctx := context.Background()

	if err := f.engine.ProcessMessage(ctx, textMsg("discount")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess := f.session(t); sess.CurrentState != models.StateWaitingForDiscountCode {
		t.Fatalf("state = %s, want %s", sess.CurrentState, models.StateWaitingForDiscountCode)
	}

	if err := f.engine.ProcessMessage(ctx, textMsg("WELCOME10")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.DiscountAmount != 100 {
		t.Errorf("discount amount = %v, want 100 (10%% of 1000)", sess.DiscountAmount)
	}
	if sess.CurrentState != models.StateOrderConfirmation {
		t.Errorf("state = %s, want back at %s", sess.CurrentState, models.StateOrderConfirmation)
	}
}

func TestMismatchedClickInProfileFlowRendersProfilePrompt(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateItemSelection
		s.RevenueCenterID = "rc1"
		s.ProfileState = models.ProfileStateWaitingForAddress
	})

	// A stale menu click while the profile flow is waiting for an address.
	if err := f.engine.ProcessMessage(context.Background(), clickMsg(models.PayloadItemPrefix+"rice")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.msg.lists) != 0 {
		t.Errorf("sent %d lists, the primary menu must not appear while the profile flow owns the turn", len(f.msg.lists))
	}
	if len(f.msg.texts) != 1 || !strings.Contains(f.msg.texts[0], "type the address") {
		t.Errorf("texts = %v, want the address entry prompt", f.msg.texts)
	}
	sess := f.session(t)
	if sess.ProfileState != models.ProfileStateWaitingForAddress {
		t.Errorf("ProfileState = %s, a stale click must not change it", sess.ProfileState)
	}
	if sess.CurrentState != models.StateItemSelection || len(sess.Cart.Items) != 0 {
		t.Error("a stale click must not mutate the primary state or cart")
	}
}

func TestNumericTextReplySelectsPromptRow(t *testing.T) {
	f := newFixture(t, plainItems())
	ctx := context.Background()

	if err := f.engine.ProcessMessage(ctx, textMsg("good evening")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if len(sess.LastPromptPayloads) == 0 {
		t.Fatal("rendering the location picker should record its row payloads")
	}

	// "1" selects the first (and only) location row.
	if err := f.engine.ProcessMessage(ctx, textMsg("1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess = f.session(t)
	if sess.RevenueCenterID != "rc1" {
		t.Errorf("revenue center = %q, want rc1 selected by number", sess.RevenueCenterID)
	}
	if sess.CurrentState != models.StateItemSelection {
		t.Errorf("state = %s, want %s", sess.CurrentState, models.StateItemSelection)
	}
}

func TestTextOnlyPromptClearsNumericMapping(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateDeliveryMethod
		s.RevenueCenterID = "rc1"
		s.Cart.Items = append(s.Cart.Items, models.CartItem{ItemID: "rice", Name: "Jollof Rice", Price: 500, Quantity: 1})
		s.LastPromptPayloads = []string{models.PayloadMethodPickup, models.PayloadMethodDelivery}
	})
	ctx := context.Background()

	// "1" maps onto the first method button.
	if err := f.engine.ProcessMessage(ctx, textMsg("1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.DeliveryMethod != models.DeliveryMethodPickup {
		t.Fatalf("delivery method = %q, want pickup selected by number", sess.DeliveryMethod)
	}
	if sess.CurrentState != models.StateDeliveryContactPhone {
		t.Fatalf("state = %s, want %s", sess.CurrentState, models.StateDeliveryContactPhone)
	}
	if len(sess.LastPromptPayloads) != 0 {
		t.Fatalf("prompt payloads = %v, a text-only prompt must void the mapping", sess.LastPromptPayloads)
	}

	// A number typed at the phone prompt is ordinary text, not a row pick.
	if err := f.engine.ProcessMessage(ctx, textMsg("1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess = f.session(t)
	if sess.CurrentState != models.StateDeliveryContactPhone {
		t.Errorf("state = %s, a rejected phone must not advance the flow", sess.CurrentState)
	}
	if sess.ContactPhone != "" {
		t.Errorf("contact phone = %q, want empty", sess.ContactPhone)
	}
}

func TestProfileMenuAcceptsNumericReply(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateItemSelection
		s.RevenueCenterID = "rc1"
	})
	ctx := context.Background()

	if err := f.engine.ProcessMessage(ctx, textMsg("profile")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if sess.ProfileState != models.ProfileStateMenu {
		t.Fatalf("ProfileState = %s, want %s", sess.ProfileState, models.ProfileStateMenu)
	}
	if len(sess.LastPromptPayloads) != 3 {
		t.Fatalf("prompt payloads = %v, the profile menu should record its buttons", sess.LastPromptPayloads)
	}

	// "3" is the numbered Continue order button.
	if err := f.engine.ProcessMessage(ctx, textMsg("3")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess = f.session(t)
	if sess.InProfileFlow() {
		t.Error("a numeric continue reply should close the profile flow")
	}
	if sess.CurrentState != models.StateItemSelection {
		t.Errorf("state = %s, want %s", sess.CurrentState, models.StateItemSelection)
	}
}

func TestRemoveLinePromptKeepsPlainNumbers(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateRemoveItemPrompt
		s.RevenueCenterID = "rc1"
		s.Cart.Items = append(s.Cart.Items,
			models.CartItem{ItemID: "rice", Name: "Jollof Rice", Price: 500, Quantity: 1},
			models.CartItem{ItemID: "water", Name: "Water", Price: 100, Quantity: 1},
		)
		// Stale mapping from an earlier interactive prompt.
		s.LastPromptPayloads = []string{models.PayloadEditAddItem, models.PayloadEditRemoveItem, models.PayloadEditBack}
	})

	if err := f.engine.ProcessMessage(context.Background(), textMsg("2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess := f.session(t)
	if len(sess.Cart.Items) != 1 || sess.Cart.Items[0].ItemID != "rice" {
		t.Errorf("cart = %+v, \"2\" should remove the second cart line", sess.Cart.Items)
	}
	if sess.CurrentState != models.StateEditOrder {
		t.Errorf("state = %s, want %s", sess.CurrentState, models.StateEditOrder)
	}
}

func TestMixedCaseNoneNotesNotSubmitted(t *testing.T) {
	f := newFixture(t, plainItems())
	f.seedSession(t, func(s *models.OrderSession) {
		s.CurrentState = models.StateOrderConfirmation
		s.RevenueCenterID = "rc1"
		s.DeliveryMethod = models.DeliveryMethodPickup
		s.ContactPhone = "+2348012345678"
		s.Notes = "nOne"
		s.Cart.Items = append(s.Cart.Items, models.CartItem{ItemID: "rice", Name: "Jollof Rice", Price: 500, Quantity: 1})
	})

	if err := f.engine.ProcessMessage(context.Background(), clickMsg(models.PayloadConfirmOrder)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.orders.lastReq == nil {
		t.Fatal("order was never submitted")
	}
	if f.orders.lastReq.Notes != "" {
		t.Errorf("notes = %q, any casing of \"none\" must submit empty", f.orders.lastReq.Notes)
	}
}

func TestClipRuneSafe(t *testing.T) {
	got := clip("Crème brûlée à la maison spéciale", 10)
	if !utf8.ValidString(got) {
		t.Errorf("clip produced invalid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) != 10 {
		t.Errorf("clipped length = %d runes, want 10", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("clipped value should end with an ellipsis, got %q", got)
	}
	if clip("Water", 24) != "Water" {
		t.Error("short names must pass through unchanged")
	}
}
