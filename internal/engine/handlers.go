package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tablelink/ordergate/internal/cart"
	"github.com/tablelink/ordergate/internal/messaging"
	"github.com/tablelink/ordergate/internal/models"
	"github.com/tablelink/ordergate/internal/profile"
	"github.com/tablelink/ordergate/internal/validation"
)

// input returns the effective input of a message: the interactive payload
// for clicks, the trimmed text otherwise.
func input(msg models.IncomingMessage) string {
	if msg.IsInteractive() {
		return msg.InteractivePayload
	}
	return strings.TrimSpace(msg.Content)
}

func (e *Engine) handleLocationSelection(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	if !strings.HasPrefix(in, models.PayloadRevenueCenterPrefix) {
		t.text("Please pick a location from the list.")
		return e.renderStatePrompt(ctx, t)
	}
	id := strings.TrimPrefix(in, models.PayloadRevenueCenterPrefix)
	centers, err := e.catalog.GetRevenueCenters(ctx, t.biz.RestaurantID)
	if err != nil {
		return fmt.Errorf("failed to load revenue centers: %w", err)
	}
	var chosen *models.RevenueCenter
	for i := range centers {
		if centers[i].ID == id {
			chosen = &centers[i]
			break
		}
	}
	if chosen == nil {
		t.text("That location is no longer available.")
		return e.renderStatePrompt(ctx, t)
	}
	t.sess.RevenueCenterID = chosen.ID
	if !validation.IsLocationOpen(chosen.OpenTime, chosen.CloseTime, e.businessNow(t.biz)) {
		t.sess.CurrentState = models.StateConfirmClosedRestaurant
		return e.renderStatePrompt(ctx, t)
	}
	t.sess.CurrentState = models.StateItemSelection
	return e.renderMenu(ctx, t)
}

func (e *Engine) handleItemSelection(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	switch {
	case strings.HasPrefix(in, models.PayloadItemPrefix):
		return e.addSingleItem(ctx, t, strings.TrimPrefix(in, models.PayloadItemPrefix))

	case strings.HasPrefix(in, models.PayloadCategoryPrefix):
		t.sess.CategoryID = strings.TrimPrefix(in, models.PayloadCategoryPrefix)
		t.sess.MenuLevel = 1
		return e.renderMenu(ctx, t)

	case in == models.PayloadCheckout:
		if len(t.sess.Cart.Items) == 0 {
			t.text("Your cart is empty. Add something from the menu first.")
			return e.renderStatePrompt(ctx, t)
		}
		if t.sess.IsEditing {
			t.sess.IsEditing = false
			t.sess.CurrentState = models.StateOrderConfirmation
			return e.renderStatePrompt(ctx, t)
		}
		return e.redirectToNextStep(ctx, t, "")

	case in == models.PayloadEditBack && t.sess.CurrentState == models.StateItemSelectionFromEdit:
		t.sess.IsEditing = false
		t.sess.CurrentState = models.StateOrderConfirmation
		return e.renderStatePrompt(ctx, t)

	case in == models.PayloadApplyDiscount:
		t.sess.CurrentState = models.StateWaitingForDiscountCode
		t.text("Please send your discount code.")
		return nil

	case in == models.PayloadNewPack:
		t.sess.CurrentPackID = cart.NextPackID(&t.sess.Cart, t.sess.CurrentPackID)
		t.text(fmt.Sprintf("Started a new basket (%s). Items you add now go into it.", t.sess.CurrentPackID))
		return e.renderMenu(ctx, t)

	case strings.HasPrefix(in, models.PayloadPackPrefix):
		packID := strings.TrimPrefix(in, models.PayloadPackPrefix)
		t.sess.CurrentPackID = packID
		t.text(fmt.Sprintf("Switched to basket %s.", strings.TrimPrefix(packID, "pack")))
		return e.renderMenu(ctx, t)
	}

	if msg.Kind == models.MessageKindText {
		lower := strings.ToLower(in)
		switch {
		case lower == "add pack" || lower == "new pack":
			t.sess.CurrentState = models.StatePackSelectionAdd
			return e.renderStatePrompt(ctx, t)
		case lower == "remove pack":
			t.sess.CurrentState = models.StatePackSelectionRemove
			return e.renderStatePrompt(ctx, t)
		}
		// Free text while browsing is treated as a search query.
		return e.runCatalogSearch(ctx, t, in)
	}

	t.text("Please pick an item from the menu.")
	return e.renderStatePrompt(ctx, t)
}

// addSingleItem resolves one catalog item by id and routes it through the
// same classification as a catalog order event.
func (e *Engine) addSingleItem(ctx context.Context, t *turn, itemID string) error {
	items, err := e.catalog.GetItems(ctx, t.biz.RestaurantID, t.sess.RevenueCenterID, []string{itemID})
	if err != nil {
		return fmt.Errorf("failed to resolve catalog item: %w", err)
	}
	if len(items) == 0 {
		t.text("That item is no longer on the menu.")
		return e.renderStatePrompt(ctx, t)
	}
	e.addCatalogItem(t, items[0], 1)
	if len(t.sess.PendingParents) > 0 {
		t.sess.CurrentState = models.StateItemOptions
		return e.renderCurrentOptionSet(ctx, t)
	}
	if len(t.sess.PendingTops) > 0 {
		t.sess.CurrentState = models.StateItemToppings
		return e.renderCurrentToppings(ctx, t)
	}
	t.text(e.cartSummaryText(t))
	t.buttons("Anything else?", []messaging.Button{
		{ID: models.PayloadCheckout, Title: "Checkout"},
	}, "Pick more items from the menu, or checkout.")
	if t.sess.CurrentState == models.StateSearchResults {
		t.sess.CurrentState = models.StateItemSelection
	}
	return nil
}

func (e *Engine) handleItemOptions(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	if len(t.sess.PendingParents) == 0 {
		return e.continueCartFlow(ctx, t)
	}
	in := input(msg)
	if !strings.HasPrefix(in, models.PayloadOptionPrefix) {
		t.text("Please choose one of the listed options.")
		return e.renderCurrentOptionSet(ctx, t)
	}
	optionID := strings.TrimPrefix(in, models.PayloadOptionPrefix)

	head := &t.sess.PendingParents[0]
	parent, set, err := e.currentOptionSet(ctx, t, head)
	if err != nil {
		return err
	}
	var chosen *models.CatalogItem
	for i := range set.Options {
		if set.Options[i].ID == optionID {
			chosen = &set.Options[i]
			break
		}
	}
	if chosen == nil {
		t.text("Please choose one of the listed options.")
		return e.renderCurrentOptionSet(ctx, t)
	}

	cart.AddItem(&t.sess.Cart, models.CartItem{
		ItemID:       chosen.ID,
		Name:         chosen.Name,
		Price:        chosen.Price,
		Quantity:     1,
		TaxClassID:   chosen.TaxClassID,
		PackID:       head.Item.PackID,
		GroupingID:   head.GroupingID,
		ParentItemID: head.Item.ItemID,
	})
	head.CurrentOptionIx++

	if head.CurrentOptionIx < head.TotalOptionSets {
		return e.renderCurrentOptionSet(ctx, t)
	}

	// All option sets for this parent are done; pop it and queue toppings
	// if the parent offers them.
	done := t.sess.PendingParents[0]
	t.sess.PendingParents = t.sess.PendingParents[1:]
	if parent.HasToppings() {
		t.sess.PendingTops = append(t.sess.PendingTops, models.PendingToppings{
			GroupingID:     done.GroupingID,
			ItemID:         done.Item.ItemID,
			ItemName:       done.Item.Name,
			ToppingClassID: parent.ToppingClassID,
		})
	}
	t.text(fmt.Sprintf("%s is ready.", done.Item.Name))
	return e.continueCartFlow(ctx, t)
}

func (e *Engine) handleItemToppings(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	if len(t.sess.PendingTops) == 0 {
		return e.continueCartFlow(ctx, t)
	}
	in := input(msg)
	head := &t.sess.PendingTops[0]

	switch {
	case strings.HasPrefix(in, models.PayloadToppingPrefix):
		id := strings.TrimPrefix(in, models.PayloadToppingPrefix)
		for _, sel := range head.SelectedIDs {
			if sel == id {
				t.text("That topping is already selected.")
				return e.renderCurrentToppings(ctx, t)
			}
		}
		head.SelectedIDs = append(head.SelectedIDs, id)
		return e.renderCurrentToppings(ctx, t)

	case in == models.PayloadToppingsDone:
		if err := e.applySelectedToppings(ctx, t, *head); err != nil {
			return err
		}
		t.sess.PendingTops = t.sess.PendingTops[1:]
		return e.continueCartFlow(ctx, t)

	case in == models.PayloadSkipToppings:
		t.sess.PendingTops = t.sess.PendingTops[1:]
		return e.continueCartFlow(ctx, t)
	}

	t.text("Please pick a topping, or choose Done or Skip.")
	return e.renderCurrentToppings(ctx, t)
}

// applySelectedToppings materializes the selected toppings as grouped cart
// lines for the item at the head of the toppings queue.
func (e *Engine) applySelectedToppings(ctx context.Context, t *turn, pt models.PendingToppings) error {
	if len(pt.SelectedIDs) == 0 {
		return nil
	}
	available, err := e.catalog.GetToppings(ctx, pt.ToppingClassID, t.sess.RevenueCenterID)
	if err != nil {
		return fmt.Errorf("failed to load toppings: %w", err)
	}
	byID := make(map[string]models.ToppingItem, len(available))
	for _, tp := range available {
		byID[tp.ID] = tp
	}
	packID := t.sess.CurrentPackID
	for _, it := range t.sess.Cart.Items {
		if it.GroupingID == pt.GroupingID {
			packID = it.PackID
			break
		}
	}
	for _, id := range pt.SelectedIDs {
		tp, ok := byID[id]
		if !ok {
			continue
		}
		cart.AddItem(&t.sess.Cart, models.CartItem{
			ItemID:       tp.ID,
			Name:         tp.Name,
			Price:        tp.Price,
			Quantity:     1,
			PackID:       packID,
			GroupingID:   pt.GroupingID,
			ParentItemID: pt.ItemID,
			IsTopping:    true,
		})
	}
	return nil
}

func (e *Engine) handleDeliveryMethod(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	var method string
	switch {
	case in == models.PayloadMethodPickup || strings.EqualFold(in, "pickup"):
		method = models.DeliveryMethodPickup
	case in == models.PayloadMethodDelivery || strings.EqualFold(in, "delivery"):
		method = models.DeliveryMethodDelivery
	default:
		t.text("Please choose Pickup or Delivery.")
		return e.renderStatePrompt(ctx, t)
	}

	t.sess.DeliveryMethod = method
	e.prefillContactPhone(t)

	if method == models.DeliveryMethodDelivery {
		open, err := e.isCurrentLocationOpen(ctx, t)
		if err != nil {
			return err
		}
		if !open {
			t.sess.CurrentState = models.StateConfirmClosedDelivery
			return e.renderStatePrompt(ctx, t)
		}
		t.sess.CurrentState = models.StateDeliveryLocationSelection
		return e.renderStatePrompt(ctx, t)
	}
	return e.redirectToNextStep(ctx, t, "")
}

// prefillContactPhone copies a saved profile contact phone onto the
// session so the ladder can skip the phone step.
func (e *Engine) prefillContactPhone(t *turn) {
	if t.sess.ContactPhone != "" {
		return
	}
	p, err := e.profiles.Load(t.sess.BusinessID, t.sess.PhoneNumber)
	if err != nil || p == nil {
		return
	}
	t.sess.ContactPhone = p.ContactPhone
}

func (e *Engine) isCurrentLocationOpen(ctx context.Context, t *turn) (bool, error) {
	centers, err := e.catalog.GetRevenueCenters(ctx, t.biz.RestaurantID)
	if err != nil {
		return false, fmt.Errorf("failed to load revenue centers: %w", err)
	}
	for _, rc := range centers {
		if rc.ID == t.sess.RevenueCenterID {
			return validation.IsLocationOpen(rc.OpenTime, rc.CloseTime, e.businessNow(t.biz)), nil
		}
	}
	return true, nil
}

// businessNow returns the current time in the business's fixed local zone,
// falling back to server time when the zone is unknown.
func (e *Engine) businessNow(biz *models.Business) time.Time {
	if biz.Timezone == "" {
		return time.Now()
	}
	loc, err := time.LoadLocation(biz.Timezone)
	if err != nil {
		return time.Now()
	}
	return time.Now().In(loc)
}

func (e *Engine) handleDeliveryLocationSelection(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	if !strings.HasPrefix(in, models.PayloadChargePrefix) {
		t.text("Please choose a delivery area from the list.")
		return e.renderStatePrompt(ctx, t)
	}
	id := strings.TrimPrefix(in, models.PayloadChargePrefix)
	charges, err := e.orders.GetCharges(ctx, t.biz.RestaurantID, t.sess.RevenueCenterID, t.sess.DeliveryMethod)
	if err != nil {
		return fmt.Errorf("failed to load delivery charges: %w", err)
	}
	for _, ch := range charges {
		if ch.ID == id {
			t.sess.DeliveryChargeID = ch.ID
			t.sess.CurrentState = models.StateDeliveryAddress
			return e.renderStatePrompt(ctx, t)
		}
	}
	t.text("That delivery area is no longer available.")
	return e.renderStatePrompt(ctx, t)
}

func (e *Engine) handleDeliveryAddress(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)

	if msg.IsInteractive() {
		if in == models.PayloadNewAddress {
			t.text("Please type your delivery address (at least 10 characters).")
			return nil
		}
		if strings.HasPrefix(in, models.PayloadSavedAddressPrefix) {
			id := strings.TrimPrefix(in, models.PayloadSavedAddressPrefix)
			p, err := e.profiles.Load(t.sess.BusinessID, t.sess.PhoneNumber)
			if err != nil {
				return err
			}
			if p != nil {
				for _, a := range p.Addresses {
					if strconv.FormatInt(a.ID, 10) == id {
						t.sess.DeliveryAddress = a.Address
						return e.redirectToNextStep(ctx, t, "")
					}
				}
			}
			t.text("That saved address was not found.")
			return e.renderStatePrompt(ctx, t)
		}
	}

	if len(in) < profile.MinAddressLength {
		t.text("That address looks too short. Please send the full delivery address (at least 10 characters).")
		return nil
	}
	if validation.ContainsCommandToken(in) {
		t.text("That text contains menu keywords. Please send the delivery address only.")
		return nil
	}
	t.sess.DeliveryAddress = in

	p, err := e.profiles.Load(t.sess.BusinessID, t.sess.PhoneNumber)
	if err != nil {
		return err
	}
	if p == nil || len(p.Addresses) == 0 {
		t.sess.CurrentState = models.StateAddressSavePrompt
		return e.renderStatePrompt(ctx, t)
	}
	return e.redirectToNextStep(ctx, t, "")
}

func (e *Engine) handleDeliveryContactPhone(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	normalized, ok := profile.NormalizePhone(in)
	if !ok {
		t.text("That doesn't look like a phone number. Please send digits only, e.g. +2348012345678.")
		return nil
	}
	t.sess.ContactPhone = normalized
	if err := e.profiles.SaveContactPhone(t.sess.BusinessID, t.sess.PhoneNumber, normalized); err != nil {
		return err
	}
	return e.redirectToNextStep(ctx, t, "")
}

func (e *Engine) handleAddressSavePrompt(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	switch input(msg) {
	case models.PayloadSaveAddressYes:
		err := e.profiles.SaveAddress(t.sess.BusinessID, t.sess.PhoneNumber, t.sess.DeliveryAddress)
		switch err {
		case nil:
			t.text("Address saved for next time.")
		case models.ErrAddressLimitReached:
			t.text("Your address book is full, so this address was not saved.")
		default:
			return err
		}
		return e.redirectToNextStep(ctx, t, "")
	case models.PayloadSaveAddressNo:
		return e.redirectToNextStep(ctx, t, "")
	default:
		return e.renderStatePrompt(ctx, t)
	}
}

func (e *Engine) handleCollectNotes(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	if in == "" {
		return e.renderStatePrompt(ctx, t)
	}
	t.sess.Notes = in
	t.sess.CurrentState = models.StateOrderConfirmation
	return e.renderStatePrompt(ctx, t)
}

func (e *Engine) handleOrderConfirmation(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	switch input(msg) {
	case models.PayloadConfirmOrder:
		return e.submitOrder(ctx, t)
	case models.PayloadEditOrder:
		t.sess.CurrentState = models.StateEditOrder
		return e.renderStatePrompt(ctx, t)
	case models.PayloadCancelOrder:
		t.sess.CurrentState = models.StateCancelConfirmation
		return e.renderStatePrompt(ctx, t)
	case models.PayloadApplyDiscount:
		t.sess.CurrentState = models.StateWaitingForDiscountCode
		t.text("Please send your discount code.")
		return nil
	default:
		return e.renderStatePrompt(ctx, t)
	}
}

func (e *Engine) handleDiscountCode(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	code := input(msg)
	if code == "" {
		t.text("Please send your discount code.")
		return nil
	}
	result, err := e.orders.ValidateDiscountCode(ctx, code, t.biz.RestaurantID)
	if err != nil {
		return fmt.Errorf("failed to validate discount code: %w", err)
	}
	if result == nil || !result.IsActive {
		t.text("That discount code is not valid.")
		return e.returnFromDetour(ctx, t)
	}

	subtotal := cart.Subtotal(&t.sess.Cart)
	amount := result.Value
	if result.AmountType == "percent" {
		amount = cart.Round2(subtotal * result.Value / 100)
	}
	if amount > subtotal {
		amount = subtotal
	}
	t.sess.DiscountCode = code
	t.sess.DiscountType = result.AmountType
	t.sess.DiscountValue = result.Value
	t.sess.DiscountAmount = amount
	t.text(fmt.Sprintf("Discount applied: -%.2f", amount))
	return e.returnFromDetour(ctx, t)
}

// returnFromDetour resumes the main flow after a shortcut detour: back to
// browsing while the order ladder has not started, otherwise to the first
// unsatisfied ladder step.
func (e *Engine) returnFromDetour(ctx context.Context, t *turn) error {
	if t.sess.DeliveryMethod == "" {
		t.sess.CurrentState = models.StateItemSelection
		return e.renderMenu(ctx, t)
	}
	return e.redirectToNextStep(ctx, t, "")
}

func (e *Engine) handleEditOrder(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	switch input(msg) {
	case models.PayloadEditAddItem:
		t.sess.IsEditing = true
		t.sess.CurrentState = models.StateItemSelectionFromEdit
		return e.renderMenu(ctx, t)
	case models.PayloadEditRemoveItem:
		t.sess.CurrentState = models.StateRemoveItemPrompt
		return e.renderStatePrompt(ctx, t)
	case models.PayloadEditBack:
		t.sess.CurrentState = models.StateOrderConfirmation
		return e.renderStatePrompt(ctx, t)
	default:
		return e.renderStatePrompt(ctx, t)
	}
}

func (e *Engine) handleRemoveItemPrompt(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	n, err := strconv.Atoi(in)
	if err != nil {
		t.text("Please send the number of the line to remove.")
		return e.renderStatePrompt(ctx, t)
	}
	if !cart.RemoveLogicalLine(&t.sess.Cart, n) {
		t.text("There is no line with that number.")
		return e.renderStatePrompt(ctx, t)
	}
	t.text("Removed.")
	if len(t.sess.Cart.Items) == 0 {
		t.sess.IsEditing = false
		t.sess.CurrentState = models.StateItemSelection
		t.text("Your cart is now empty.")
		return e.renderMenu(ctx, t)
	}
	t.text(e.cartSummaryText(t))
	t.sess.CurrentState = models.StateEditOrder
	return e.renderStatePrompt(ctx, t)
}

func (e *Engine) handlePackSelectionAdd(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	switch {
	case in == models.PayloadNewPack:
		t.sess.CurrentPackID = cart.NextPackID(&t.sess.Cart, t.sess.CurrentPackID)
		t.text(fmt.Sprintf("Started a new basket (%s).", t.sess.CurrentPackID))
	case strings.HasPrefix(in, models.PayloadPackPrefix):
		packID := strings.TrimPrefix(in, models.PayloadPackPrefix)
		t.sess.CurrentPackID = packID
		t.text(fmt.Sprintf("Switched to basket %s.", strings.TrimPrefix(packID, "pack")))
	default:
		return e.renderStatePrompt(ctx, t)
	}
	t.sess.CurrentState = models.StateItemSelection
	return e.renderMenu(ctx, t)
}

func (e *Engine) handlePackSelectionRemove(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	if !strings.HasPrefix(in, models.PayloadPackPrefix) || in == models.PayloadNewPack {
		return e.renderStatePrompt(ctx, t)
	}
	packID := strings.TrimPrefix(in, models.PayloadPackPrefix)
	removed := cart.RemovePack(&t.sess.Cart, packID)
	if removed == 0 {
		t.text("That basket is already empty.")
	} else {
		t.text(fmt.Sprintf("Removed basket %s.", strings.TrimPrefix(packID, "pack")))
	}
	if t.sess.CurrentPackID == packID {
		packs := cart.Packs(&t.sess.Cart)
		if len(packs) > 0 {
			t.sess.CurrentPackID = packs[0]
		} else {
			t.sess.CurrentPackID = models.DefaultPackID
		}
	}
	t.sess.CurrentState = models.StateItemSelection
	return e.renderMenu(ctx, t)
}

func (e *Engine) handleCancelConfirmation(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	switch input(msg) {
	case models.PayloadYes:
		t.sess.Reset()
		t.sess.CurrentState = models.StateCancelled
		t.text("Your order has been cancelled. Say hi whenever you want to start a new one.")
		return nil
	case models.PayloadNo:
		return e.returnFromDetour(ctx, t)
	default:
		return e.renderStatePrompt(ctx, t)
	}
}

func (e *Engine) handleConfirmClosedRestaurant(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	switch input(msg) {
	case models.PayloadYes:
		t.sess.CurrentState = models.StateItemSelection
		return e.renderMenu(ctx, t)
	case models.PayloadNo:
		t.sess.RevenueCenterID = ""
		t.sess.CurrentState = models.StateLocationSelection
		return e.renderStatePrompt(ctx, t)
	default:
		return e.renderStatePrompt(ctx, t)
	}
}

func (e *Engine) handleConfirmClosedDelivery(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	switch input(msg) {
	case models.PayloadYes:
		t.sess.CurrentState = models.StateDeliveryLocationSelection
		return e.renderStatePrompt(ctx, t)
	case models.PayloadNo:
		t.sess.DeliveryMethod = ""
		t.sess.RevenueCenterID = ""
		t.sess.CurrentState = models.StateLocationSelection
		return e.renderStatePrompt(ctx, t)
	default:
		return e.renderStatePrompt(ctx, t)
	}
}

func (e *Engine) handleSearch(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	query := input(msg)
	if query == "" {
		return e.renderStatePrompt(ctx, t)
	}
	return e.runCatalogSearch(ctx, t, query)
}

func (e *Engine) handleSearchResults(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	in := input(msg)
	if strings.HasPrefix(in, models.PayloadSearchResultPrefix) {
		return e.addSingleItem(ctx, t, strings.TrimPrefix(in, models.PayloadSearchResultPrefix))
	}
	if in == models.PayloadCheckout {
		if len(t.sess.Cart.Items) == 0 {
			t.text("Your cart is empty. Add something from the menu first.")
			return e.renderStatePrompt(ctx, t)
		}
		return e.redirectToNextStep(ctx, t, "")
	}
	if msg.Kind == models.MessageKindText {
		return e.runCatalogSearch(ctx, t, in)
	}
	return e.renderStatePrompt(ctx, t)
}

func (e *Engine) handleCancelled(ctx context.Context, t *turn, msg models.IncomingMessage) error {
	return nil
}

// runCatalogSearch executes a fuzzy search over the business's catalog and
// renders the ranked results.
func (e *Engine) runCatalogSearch(ctx context.Context, t *turn, query string) error {
	items, err := e.catalog.GetItems(ctx, t.biz.RestaurantID, t.sess.RevenueCenterID, nil)
	if err != nil {
		return fmt.Errorf("failed to load catalog for search: %w", err)
	}
	results := e.search.Search(query, items)
	if len(results) == 0 {
		t.text(fmt.Sprintf("No items matched \"%s\". Try a different word, or type \"menu\".", query))
		t.sess.CurrentState = models.StateSearch
		return nil
	}
	rows := make([]messaging.ListRow, 0, len(results))
	for _, r := range results {
		if len(rows) == maxListRows {
			break
		}
		rows = append(rows, messaging.ListRow{
			ID:          models.PayloadSearchResultPrefix + r.Item.ID,
			Title:       clip(r.Item.Name, 24),
			Description: fmt.Sprintf("%.2f", r.Item.Price),
		})
	}
	t.sess.CurrentState = models.StateSearchResults
	t.list(fmt.Sprintf("Here is what I found for \"%s\":", query), "View results",
		[]messaging.ListSection{{Title: "Search results", Rows: rows}})
	return nil
}
