package validation

import (
	"testing"
	"time"

	"github.com/tablelink/ordergate/internal/models"
)

func TestIsActionAllowedInState(t *testing.T) {
	cases := []struct {
		state  models.ConversationState
		action models.Action
		want   bool
	}{
		{models.StateItemSelection, models.ActionAddToCart, true},
		{models.StateDeliveryMethod, models.ActionAddToCart, false},
		{models.StateOrderConfirmation, models.ActionPlaceOrder, true},
		{models.StateItemSelection, models.ActionPlaceOrder, false},
		{models.StateSearchResults, models.ActionCheckout, true},
		{models.StateCollectNotes, models.ActionCheckout, false},
		// Unknown actions fail open outside CANCELLED.
		{models.StateCollectNotes, models.ActionHelp, true},
		{models.StateCancelled, models.ActionHelp, false},
		{models.StateCancelled, models.ActionAddToCart, false},
		// Profile is blocked mid-step, allowed while browsing.
		{models.StateItemOptions, models.ActionManageProfile, false},
		{models.StateOrderConfirmation, models.ActionManageProfile, false},
		{models.StateItemSelection, models.ActionManageProfile, true},
	}
	for _, tc := range cases {
		if got := IsActionAllowedInState(tc.state, tc.action); got != tc.want {
			t.Errorf("IsActionAllowedInState(%s, %s) = %v, want %v", tc.state, tc.action, got, tc.want)
		}
	}
}

func TestHasCompletedRequiredSteps(t *testing.T) {
	s := models.NewOrderSession("biz1", "+2348000000000")
	if HasCompletedRequiredSteps(s, models.ActionAddToCart) {
		t.Error("add-to-cart should require a selected location")
	}
	s.RevenueCenterID = "rc1"
	if !HasCompletedRequiredSteps(s, models.ActionAddToCart) {
		t.Error("add-to-cart should pass once a location is chosen")
	}
	if HasCompletedRequiredSteps(s, models.ActionPlaceOrder) {
		t.Error("place-order should require a delivery method")
	}
	s.DeliveryMethod = models.DeliveryMethodPickup
	if !HasCompletedRequiredSteps(s, models.ActionPlaceOrder) {
		t.Error("pickup orders need no address")
	}
	s.DeliveryMethod = models.DeliveryMethodDelivery
	if HasCompletedRequiredSteps(s, models.ActionPlaceOrder) {
		t.Error("delivery orders need an address and charge")
	}
	s.DeliveryAddress = "12 Allen Avenue, Ikeja"
	s.DeliveryChargeID = "charge1"
	if !HasCompletedRequiredSteps(s, models.ActionPlaceOrder) {
		t.Error("delivery order with address and charge should pass")
	}
}

func TestGetNextRequiredStepLadder(t *testing.T) {
	s := models.NewOrderSession("biz1", "+2348000000000")
	if got := GetNextRequiredStep(s); got != models.StateLocationSelection {
		t.Errorf("next step = %s, want %s", got, models.StateLocationSelection)
	}
	s.RevenueCenterID = "rc1"
	if got := GetNextRequiredStep(s); got != models.StateDeliveryMethod {
		t.Errorf("next step = %s, want %s", got, models.StateDeliveryMethod)
	}
	s.DeliveryMethod = models.DeliveryMethodDelivery
	if got := GetNextRequiredStep(s); got != models.StateDeliveryLocationSelection {
		t.Errorf("next step = %s, want %s", got, models.StateDeliveryLocationSelection)
	}
	s.DeliveryChargeID = "charge1"
	if got := GetNextRequiredStep(s); got != models.StateDeliveryAddress {
		t.Errorf("next step = %s, want %s", got, models.StateDeliveryAddress)
	}
	s.DeliveryAddress = "12 Allen Avenue, Ikeja"
	if got := GetNextRequiredStep(s); got != models.StateDeliveryContactPhone {
		t.Errorf("next step = %s, want %s", got, models.StateDeliveryContactPhone)
	}
	s.ContactPhone = "+2348000000000"
	if got := GetNextRequiredStep(s); got != models.StateCollectNotes {
		t.Errorf("next step = %s, want %s", got, models.StateCollectNotes)
	}
	s.Notes = "none"
	if got := GetNextRequiredStep(s); got != models.StateOrderConfirmation {
		t.Errorf("next step = %s, want %s", got, models.StateOrderConfirmation)
	}
}

func TestIsRestartKeyword(t *testing.T) {
	for _, text := range []string{"hi", "Hello", " hey ", "hi there"} {
		if !IsRestartKeyword(text) {
			t.Errorf("IsRestartKeyword(%q) = false, want true", text)
		}
	}
	for _, text := range []string{"high", "hithere", "checkout", ""} {
		if IsRestartKeyword(text) {
			t.Errorf("IsRestartKeyword(%q) = true, want false", text)
		}
	}
}

func TestClassifyTextIntent(t *testing.T) {
	cases := []struct {
		text string
		want models.Action
	}{
		{"discount", models.ActionApplyDiscount},
		{"promo", models.ActionApplyDiscount},
		{"checkout", models.ActionCheckout},
		{"check out", models.ActionCheckout},
		{"pay", models.ActionCheckout},
		{"my profile", models.ActionManageProfile},
		{"menu", models.ActionFullMenu},
		{"help", models.ActionHelp},
		{"search", models.ActionSearch},
		{"cancel", models.ActionCancelOrder},
		{"two jollof please", ""},
	}
	for _, tc := range cases {
		if got := ClassifyTextIntent(tc.text); got != tc.want {
			t.Errorf("ClassifyTextIntent(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestContainsCommandToken(t *testing.T) {
	if !ContainsCommandToken("see the menu for details") {
		t.Error("embedded command word should be detected")
	}
	if ContainsCommandToken("12 Allen Avenue, Ikeja, Lagos") {
		t.Error("plain address should not trip the command check")
	}
}

func TestIsLocationOpen(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	}
	cases := []struct {
		open, close string
		now         time.Time
		want        bool
	}{
		{"09:00", "17:00", at(12, 0), true},
		{"09:00", "17:00", at(8, 59), false},
		{"09:00", "17:00", at(17, 0), false},
		// Hours crossing midnight.
		{"22:00", "04:00", at(23, 30), true},
		{"22:00", "04:00", at(2, 0), true},
		{"22:00", "04:00", at(12, 0), false},
		// Missing or malformed hours mean always open.
		{"", "", at(3, 0), true},
		{"9am", "5pm", at(3, 0), true},
		// Equal open and close means always open.
		{"00:00", "00:00", at(3, 0), true},
	}
	for _, tc := range cases {
		if got := IsLocationOpen(tc.open, tc.close, tc.now); got != tc.want {
			t.Errorf("IsLocationOpen(%q, %q, %s) = %v, want %v", tc.open, tc.close, tc.now.Format("15:04"), got, tc.want)
		}
	}
}

func TestIsPayloadValidForSession(t *testing.T) {
	s := models.NewOrderSession("biz1", "+2348000000000")

	s.CurrentState = models.StateItemSelection
	cases := []struct {
		payload string
		want    bool
	}{
		{models.PayloadItemPrefix + "abc", true},
		{models.PayloadCategoryPrefix + "drinks", true},
		{models.PayloadCheckout, true},
		{models.PayloadConfirmOrder, false},
		{models.PayloadMethodPickup, false},
	}
	for _, tc := range cases {
		if got := IsPayloadValidForSession(s, tc.payload); got != tc.want {
			t.Errorf("payload %q in %s = %v, want %v", tc.payload, s.CurrentState, got, tc.want)
		}
	}

	s.CurrentState = models.StateOrderConfirmation
	if !IsPayloadValidForSession(s, models.PayloadConfirmOrder) {
		t.Error("confirm_order should be accepted at confirmation")
	}
	if IsPayloadValidForSession(s, models.PayloadItemPrefix+"abc") {
		t.Error("item clicks should be rejected at confirmation")
	}

	// Profile sub-state takes over payload matching.
	s.ProfileState = models.ProfileStateMenu
	if !IsPayloadValidForSession(s, models.PayloadProfileAddresses) {
		t.Error("profile menu payload should be accepted in profile flow")
	}
	if IsPayloadValidForSession(s, models.PayloadConfirmOrder) {
		t.Error("order payloads should be rejected while in profile flow")
	}
}
