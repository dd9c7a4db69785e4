// Package validation is the pure rule engine consulted before every
// state-changing or shortcut action. It owns the action allow-table, the
// required-step ladder, trigger-word classifiers, and opening-hours checks.
// Nothing here mutates state or performs I/O.
package validation

import (
	"strings"
	"time"

	"github.com/tablelink/ordergate/internal/models"
)

type stateSet map[models.ConversationState]bool

func setOf(states ...models.ConversationState) stateSet {
	s := make(stateSet, len(states))
	for _, st := range states {
		s[st] = true
	}
	return s
}

// profileBlockedStates are the primary states that must complete before the
// profile sub-flow may take over the conversation.
var profileBlockedStates = setOf(
	models.StateItemOptions,
	models.StateItemToppings,
	models.StateCollectNotes,
	models.StateAddressSavePrompt,
	models.StateOrderConfirmation,
)

// actionAllowedStates is the central allow-table. Actions absent from the
// table are fail-open: allowed everywhere except CANCELLED.
var actionAllowedStates = map[models.Action]stateSet{
	models.ActionAddToCart: setOf(
		models.StateItemSelection,
		models.StateItemSelectionFromEdit,
		models.StateSearch,
		models.StateSearchResults,
	),
	models.ActionCheckout: setOf(
		models.StateItemSelection,
		models.StateItemSelectionFromEdit,
		models.StateSearchResults,
	),
	models.ActionApplyDiscount: setOf(
		models.StateItemSelection,
		models.StateEditOrder,
		models.StateOrderConfirmation,
	),
	models.ActionFullMenu: setOf(
		models.StateItemSelection,
		models.StateItemSelectionFromEdit,
		models.StateSearch,
		models.StateSearchResults,
	),
	models.ActionSearch: setOf(
		models.StateItemSelection,
		models.StateItemSelectionFromEdit,
		models.StateSearch,
		models.StateSearchResults,
	),
	models.ActionEditOrder: setOf(
		models.StateOrderConfirmation,
	),
	models.ActionPlaceOrder: setOf(
		models.StateOrderConfirmation,
	),
	models.ActionAddPack: setOf(
		models.StateItemSelection,
		models.StateItemSelectionFromEdit,
	),
	models.ActionRemovePack: setOf(
		models.StateItemSelection,
		models.StateItemSelectionFromEdit,
		models.StateEditOrder,
	),
}

// IsActionAllowedInState reports whether the action may run in the given
// primary state. Unknown actions are allowed (fail-open) except in the
// terminal CANCELLED state; MANAGE_PROFILE is additionally blocked while an
// uninterruptible step is in progress.
func IsActionAllowedInState(state models.ConversationState, action models.Action) bool {
	if state == models.StateCancelled {
		return false
	}
	if action == models.ActionManageProfile {
		return !profileBlockedStates[state]
	}
	allowed, known := actionAllowedStates[action]
	if !known {
		return true
	}
	return allowed[state]
}

// HasCompletedRequiredSteps reports whether the session has satisfied the
// prerequisites for the action.
func HasCompletedRequiredSteps(s *models.OrderSession, action models.Action) bool {
	switch action {
	case models.ActionAddToCart:
		return s.RevenueCenterID != ""
	case models.ActionCheckout:
		return s.RevenueCenterID != "" && s.DeliveryMethod != ""
	case models.ActionDelivery:
		return s.RevenueCenterID != "" && s.DeliveryMethod != "" && s.DeliveryAddress != ""
	case models.ActionPlaceOrder:
		if s.RevenueCenterID == "" || s.DeliveryMethod == "" {
			return false
		}
		if s.DeliveryMethod == models.DeliveryMethodPickup {
			return true
		}
		return s.DeliveryAddress != "" && s.DeliveryChargeID != ""
	default:
		return true
	}
}

// GetNextRequiredStep walks the deterministic order-building ladder and
// returns the first unsatisfied step. Used to redirect the customer after
// any disallowed action.
func GetNextRequiredStep(s *models.OrderSession) models.ConversationState {
	if s.RevenueCenterID == "" {
		return models.StateLocationSelection
	}
	if s.DeliveryMethod == "" {
		return models.StateDeliveryMethod
	}
	if s.DeliveryMethod == models.DeliveryMethodDelivery {
		if s.DeliveryChargeID == "" {
			return models.StateDeliveryLocationSelection
		}
		if s.DeliveryAddress == "" {
			return models.StateDeliveryAddress
		}
	}
	if s.ContactPhone == "" {
		return models.StateDeliveryContactPhone
	}
	if s.Notes == "" {
		return models.StateCollectNotes
	}
	return models.StateOrderConfirmation
}

// Restart keywords reset the conversation, exact or as a prefix.
var restartKeywords = []string{"hi", "hello", "hey"}

// IsRestartKeyword reports whether the text is a greeting that restarts the
// conversation.
func IsRestartKeyword(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range restartKeywords {
		if t == kw || strings.HasPrefix(t, kw+" ") {
			return true
		}
	}
	return false
}

func matchesAny(text string, phrases ...string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, p := range phrases {
		if t == p || strings.HasPrefix(t, p+" ") || strings.HasPrefix(t, p+"?") {
			return true
		}
	}
	return false
}

// ClassifyTextIntent maps free text onto a shortcut action. The engine runs
// these in fixed order; the zero Action means no shortcut matched.
func ClassifyTextIntent(text string) models.Action {
	switch {
	case IsDiscountIntent(text):
		return models.ActionApplyDiscount
	case IsCheckoutIntent(text):
		return models.ActionCheckout
	case IsProfileIntent(text):
		return models.ActionManageProfile
	case IsFullMenuIntent(text):
		return models.ActionFullMenu
	case IsHelpIntent(text):
		return models.ActionHelp
	case IsSearchIntent(text):
		return models.ActionSearch
	case IsCancelIntent(text):
		return models.ActionCancelOrder
	default:
		return ""
	}
}

// IsDiscountIntent matches discount-code requests.
func IsDiscountIntent(text string) bool {
	return matchesAny(text, "discount", "promo", "coupon", "apply discount")
}

// IsCheckoutIntent matches checkout requests.
func IsCheckoutIntent(text string) bool {
	return matchesAny(text, "checkout", "check out", "pay", "done")
}

// IsProfileIntent matches explicit profile-management requests.
func IsProfileIntent(text string) bool {
	return matchesAny(text, "profile", "manage profile", "my profile", "my addresses")
}

// IsFullMenuIntent matches full-menu requests.
func IsFullMenuIntent(text string) bool {
	return matchesAny(text, "menu", "full menu", "show menu")
}

// IsHelpIntent matches help requests.
func IsHelpIntent(text string) bool {
	return matchesAny(text, "help")
}

// IsSearchIntent matches search requests.
func IsSearchIntent(text string) bool {
	return matchesAny(text, "search", "find")
}

// IsCancelIntent matches order-cancellation requests.
func IsCancelIntent(text string) bool {
	return matchesAny(text, "cancel", "cancel order")
}

// ContainsCommandToken reports whether free text carries menu keywords.
// Used by the profile flow to stop customers from saving command-like text
// as an address.
func ContainsCommandToken(text string) bool {
	t := " " + strings.ToLower(text) + " "
	for _, kw := range []string{"menu", "cancel", "help", "search", "profile", "discount", "checkout"} {
		if strings.Contains(t, " "+kw+" ") {
			return true
		}
	}
	return false
}

// IsLocationOpen evaluates "HH:MM" opening hours against now, handling
// hours that cross midnight. Empty hours mean always open.
func IsLocationOpen(openTime, closeTime string, now time.Time) bool {
	open, okOpen := parseClock(openTime)
	close, okClose := parseClock(closeTime)
	if !okOpen || !okClose {
		return true
	}
	cur := now.Hour()*60 + now.Minute()
	if open == close {
		return true
	}
	if open < close {
		return cur >= open && cur < close
	}
	// Crosses midnight: open 22:00, close 04:00.
	return cur >= open || cur < close
}

func parseClock(v string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, m := atoi(parts[0]), atoi(parts[1])
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func atoi(s string) int {
	n := 0
	if s == "" {
		return -1
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}
