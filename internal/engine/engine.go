// Package engine implements the order flow engine: the dispatcher that
// classifies every inbound event, runs the cross-cutting interceptors
// (mismatched clicks, restart keywords, profile takeover, shortcut
// actions), and routes to the per-state transition handlers.
//
// Each turn is structured read-validate-mutate-persist-respond: handlers
// mutate a working copy of the session and queue outbound messages on the
// turn; the engine persists the session first and flushes the queue after,
// so a failed turn never leaves persisted state ahead of what the customer
// saw.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tablelink/ordergate/internal/catalog"
	"github.com/tablelink/ordergate/internal/messaging"
	"github.com/tablelink/ordergate/internal/models"
	"github.com/tablelink/ordergate/internal/orderapi"
	"github.com/tablelink/ordergate/internal/profile"
	"github.com/tablelink/ordergate/internal/search"
	"github.com/tablelink/ordergate/internal/session"
	"github.com/tablelink/ordergate/internal/store"
	"github.com/tablelink/ordergate/internal/validation"
)

const chatUnavailableNotice = "Sorry, ordering over chat is not available for this business."

const retryNotice = "Something went wrong on our side. Please try that again."

// handlerFunc executes one turn for a primary conversation state.
type handlerFunc func(ctx context.Context, t *turn, msg models.IncomingMessage) error

// Engine is the order flow dispatcher.
type Engine struct {
	sessions *session.Manager
	store    store.Store
	msg      messaging.Service
	catalog  catalog.Provider
	orders   orderapi.Provider
	profiles *profile.Manager
	search   *search.Service

	handlers map[models.ConversationState]handlerFunc
}

// NewEngine wires the engine to its collaborators and builds the routing
// table. It panics if any conversation state lacks a handler, so a missing
// route is a construction-time error rather than a silent dead end.
func NewEngine(sessions *session.Manager, st store.Store, msg messaging.Service, cat catalog.Provider, orders orderapi.Provider, profiles *profile.Manager) *Engine {
	e := &Engine{
		sessions: sessions,
		store:    st,
		msg:      msg,
		catalog:  cat,
		orders:   orders,
		profiles: profiles,
		search:   search.NewService(),
	}
	e.handlers = map[models.ConversationState]handlerFunc{
		models.StateLocationSelection:         e.handleLocationSelection,
		models.StateItemSelection:             e.handleItemSelection,
		models.StateItemSelectionFromEdit:     e.handleItemSelection,
		models.StateItemOptions:               e.handleItemOptions,
		models.StateItemToppings:              e.handleItemToppings,
		models.StateDeliveryMethod:            e.handleDeliveryMethod,
		models.StateDeliveryLocationSelection: e.handleDeliveryLocationSelection,
		models.StateDeliveryAddress:           e.handleDeliveryAddress,
		models.StateDeliveryContactPhone:      e.handleDeliveryContactPhone,
		models.StateAddressSavePrompt:         e.handleAddressSavePrompt,
		models.StateCollectNotes:              e.handleCollectNotes,
		models.StateOrderConfirmation:         e.handleOrderConfirmation,
		models.StateWaitingForDiscountCode:    e.handleDiscountCode,
		models.StateEditOrder:                 e.handleEditOrder,
		models.StateRemoveItemPrompt:          e.handleRemoveItemPrompt,
		models.StatePackSelectionAdd:          e.handlePackSelectionAdd,
		models.StatePackSelectionRemove:       e.handlePackSelectionRemove,
		models.StateCancelConfirmation:        e.handleCancelConfirmation,
		models.StateConfirmClosedRestaurant:   e.handleConfirmClosedRestaurant,
		models.StateConfirmClosedDelivery:     e.handleConfirmClosedDelivery,
		models.StateSearch:                    e.handleSearch,
		models.StateSearchResults:             e.handleSearchResults,
		models.StateCancelled:                 e.handleCancelled,
	}
	for _, state := range models.AllConversationStates {
		if e.handlers[state] == nil {
			panic(fmt.Sprintf("engine: no handler for state %s", state))
		}
	}
	return e
}

// turn is the unit of work for one inbound event. Handlers mutate the
// session copy and queue outbound messages; nothing reaches the customer
// or the store until the engine finishes the turn.
type turn struct {
	sess *models.OrderSession
	biz  *models.Business
	out  []outbound

	// Payload ids of the buttons and list rows queued this turn, in the
	// order a degraded provider numbers them.
	prompts []string
}

type outbound struct {
	kind     string // "text", "buttons", "list"
	body     string
	footer   string
	label    string
	buttons  []messaging.Button
	sections []messaging.ListSection
}

func (t *turn) text(body string) {
	t.out = append(t.out, outbound{kind: "text", body: body})
}

func (t *turn) buttons(body string, btns []messaging.Button, footer string) {
	t.out = append(t.out, outbound{kind: "buttons", body: body, buttons: btns, footer: footer})
	for _, b := range btns {
		t.prompts = append(t.prompts, b.ID)
	}
}

func (t *turn) list(body, label string, sections []messaging.ListSection) {
	t.out = append(t.out, outbound{kind: "list", body: body, label: label, sections: sections})
	for _, sec := range sections {
		for _, row := range sec.Rows {
			t.prompts = append(t.prompts, row.ID)
		}
	}
}

func (e *Engine) flush(ctx context.Context, t *turn) error {
	for _, o := range t.out {
		var err error
		switch o.kind {
		case "buttons":
			err = e.msg.SendInteractiveButtons(ctx, t.sess.BusinessID, t.sess.PhoneNumber, o.body, o.buttons, o.footer)
		case "list":
			err = e.msg.SendInteractiveList(ctx, t.sess.BusinessID, t.sess.PhoneNumber, o.body, o.label, o.sections)
		default:
			err = e.msg.SendText(ctx, t.sess.BusinessID, t.sess.PhoneNumber, o.body)
		}
		if err != nil {
			return fmt.Errorf("failed to send outbound message: %w", err)
		}
	}
	return nil
}

// finish persists the session and then flushes queued outbound messages.
// Turns that queued anything replace the recorded prompt payloads, so a
// text-only prompt voids stale numeric mappings. Turns that queued nothing
// leave them alone: the profile sub-flow sends directly and records its
// own prompts on the session.
func (e *Engine) finish(ctx context.Context, t *turn) error {
	if len(t.out) > 0 {
		t.sess.LastPromptPayloads = t.prompts
	}
	if err := e.sessions.Save(t.sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return e.flush(ctx, t)
}

// ProcessMessage handles one normalized text, button, or list event.
func (e *Engine) ProcessMessage(ctx context.Context, msg models.IncomingMessage) error {
	slog.Debug("Engine ProcessMessage", "businessID", msg.BusinessID, "phone", msg.PhoneNumber, "kind", msg.Kind)

	sess, err := e.sessions.Get(msg.BusinessID, msg.PhoneNumber)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if sess != nil {
		msg = resolveNumericReply(sess, msg)
	}

	// Mismatched click: a button or list payload from a prompt that does
	// not belong to the session's current state or active profile
	// sub-state. Re-render the real prompt and never execute the stale
	// action.
	if sess != nil && msg.IsInteractive() && !validation.IsPayloadValidForSession(sess, msg.InteractivePayload) {
		slog.Debug("Engine mismatched click", "businessID", msg.BusinessID, "phone", msg.PhoneNumber,
			"payload", msg.InteractivePayload, "state", sess.CurrentState, "profileState", sess.ProfileState)
		if sess.InProfileFlow() {
			if err := e.profiles.RenderPrompt(ctx, sess); err != nil {
				return e.sendRetry(ctx, msg, err)
			}
			return nil
		}
		t := &turn{sess: sess}
		if t.biz, err = e.business(sess.BusinessID); err != nil {
			return err
		}
		if err := e.renderStatePrompt(ctx, t); err != nil {
			return e.sendRetry(ctx, msg, err)
		}
		return e.flush(ctx, t)
	}

	if sess == nil {
		return e.startSession(ctx, msg)
	}

	if msg.Kind == models.MessageKindText && validation.IsRestartKeyword(msg.Content) {
		if err := e.sessions.Reset(sess); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
		t := &turn{sess: sess}
		if t.biz, err = e.business(sess.BusinessID); err != nil {
			return err
		}
		greeting := "Welcome back!"
		if msg.CustomerName != "" {
			greeting = "Welcome back, " + msg.CustomerName + "!"
		}
		t.text(greeting)
		if err := e.renderStatePrompt(ctx, t); err != nil {
			return e.sendRetry(ctx, msg, err)
		}
		return e.flush(ctx, t)
	}

	if sess.CurrentState == models.StateCancelled {
		slog.Debug("Engine ignoring input for cancelled session", "businessID", msg.BusinessID, "phone", msg.PhoneNumber)
		return nil
	}

	t := &turn{sess: sess}
	if t.biz, err = e.business(sess.BusinessID); err != nil {
		return err
	}

	if sess.InProfileFlow() {
		resumed, err := e.profiles.HandleMessage(ctx, sess, msg)
		if err != nil {
			return e.sendRetry(ctx, msg, err)
		}
		if resumed {
			if err := e.renderStatePrompt(ctx, t); err != nil {
				return e.sendRetry(ctx, msg, err)
			}
		}
		return e.finish(ctx, t)
	}

	if handled, err := e.runShortcuts(ctx, t, msg); err != nil {
		return e.sendRetry(ctx, msg, err)
	} else if handled {
		return e.finish(ctx, t)
	}

	if err := e.handlers[sess.CurrentState](ctx, t, msg); err != nil {
		return e.sendRetry(ctx, msg, err)
	}
	return e.finish(ctx, t)
}

// resolveNumericReply maps a bare-number text reply onto the matching row
// of the last rendered prompt. Providers without native interactive
// messages render prompts as numbered text, so "2" means the second row.
func resolveNumericReply(sess *models.OrderSession, msg models.IncomingMessage) models.IncomingMessage {
	if msg.Kind != models.MessageKindText {
		return msg
	}
	if !sess.InProfileFlow() && sess.CurrentState == models.StateRemoveItemPrompt {
		// Numbers here address cart lines, not prompt rows.
		return msg
	}
	n, err := strconv.Atoi(strings.TrimSpace(msg.Content))
	if err != nil || n < 1 || n > len(sess.LastPromptPayloads) {
		return msg
	}
	msg.Kind = models.MessageKindButton
	msg.InteractivePayload = sess.LastPromptPayloads[n-1]
	return msg
}

// startSession creates a session for an unseen (business, phone) pair and
// renders the location picker, or rejects the customer when the business
// has chat disabled.
func (e *Engine) startSession(ctx context.Context, msg models.IncomingMessage) error {
	biz, err := e.business(msg.BusinessID)
	if err != nil {
		return err
	}
	if !biz.ChatEnabled {
		slog.Debug("Engine chat disabled for business", "businessID", msg.BusinessID)
		return e.msg.SendText(ctx, msg.BusinessID, msg.PhoneNumber, chatUnavailableNotice)
	}
	sess, err := e.sessions.Create(msg.BusinessID, msg.PhoneNumber)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	t := &turn{sess: sess, biz: biz}
	greeting := "Welcome to " + biz.Name + "!"
	if msg.CustomerName != "" {
		greeting = "Hi " + msg.CustomerName + ", welcome to " + biz.Name + "!"
	}
	t.text(greeting)
	if err := e.renderStatePrompt(ctx, t); err != nil {
		return e.sendRetry(ctx, msg, err)
	}
	return e.finish(ctx, t)
}

// runShortcuts executes the fixed-order cross-cutting actions triggered by
// free text. Each is gated by the validation allow-table; a disallowed
// shortcut produces a corrective message plus a redirect to the next
// required step instead of a silent no-op.
func (e *Engine) runShortcuts(ctx context.Context, t *turn, msg models.IncomingMessage) (bool, error) {
	if msg.Kind != models.MessageKindText {
		return false, nil
	}
	action := validation.ClassifyTextIntent(msg.Content)
	if action == "" {
		return false, nil
	}
	if !validation.IsActionAllowedInState(t.sess.CurrentState, action) {
		return true, e.redirectToNextStep(ctx, t, "That action is not available right now.")
	}
	switch action {
	case models.ActionCheckout:
		if len(t.sess.Cart.Items) == 0 {
			t.text("Your cart is empty. Add something from the menu first.")
			return true, e.renderStatePrompt(ctx, t)
		}
		return true, e.redirectToNextStep(ctx, t, "")
	case models.ActionApplyDiscount:
		t.sess.CurrentState = models.StateWaitingForDiscountCode
		t.text("Please send your discount code.")
		return true, nil
	case models.ActionManageProfile:
		return true, e.profiles.Enter(ctx, t.sess)
	case models.ActionFullMenu:
		t.sess.CurrentState = models.StateItemSelection
		return true, e.renderMenu(ctx, t)
	case models.ActionHelp:
		t.text(helpText)
		return true, e.renderStatePrompt(ctx, t)
	case models.ActionSearch:
		t.sess.CurrentState = models.StateSearch
		t.text("What are you looking for? Send a word or two, e.g. \"chicken burger\".")
		return true, nil
	case models.ActionCancelOrder:
		t.sess.CurrentState = models.StateCancelConfirmation
		t.buttons("Are you sure you want to cancel this order?", []messaging.Button{
			{ID: models.PayloadYes, Title: "Yes, cancel"},
			{ID: models.PayloadNo, Title: "No, keep it"},
		}, "")
		return true, nil
	}
	return false, nil
}

const helpText = "You can:\n" +
	"- browse the menu (type \"menu\")\n" +
	"- search for items (type \"search\")\n" +
	"- apply a discount code (type \"discount\")\n" +
	"- manage your addresses and phone (type \"profile\")\n" +
	"- cancel the order (type \"cancel\")"

// redirectToNextStep sends a corrective note and re-renders the prompt for
// the first unsatisfied step of the order ladder.
func (e *Engine) redirectToNextStep(ctx context.Context, t *turn, note string) error {
	if note != "" {
		t.text(note)
	}
	t.sess.CurrentState = validation.GetNextRequiredStep(t.sess)
	return e.renderStatePrompt(ctx, t)
}

// sendRetry reports a failed turn to the customer without persisting any
// of the turn's mutations, so a retry is safe.
func (e *Engine) sendRetry(ctx context.Context, msg models.IncomingMessage, cause error) error {
	slog.Error("Engine turn failed", "error", cause, "businessID", msg.BusinessID, "phone", msg.PhoneNumber)
	if err := e.msg.SendText(ctx, msg.BusinessID, msg.PhoneNumber, retryNotice); err != nil {
		slog.Error("Engine failed to send retry notice", "error", err, "businessID", msg.BusinessID)
	}
	return cause
}

func (e *Engine) business(id string) (*models.Business, error) {
	biz, err := e.store.GetBusiness(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load business %s: %w", id, err)
	}
	if biz == nil {
		return nil, fmt.Errorf("business %s is not configured", id)
	}
	return biz, nil
}
