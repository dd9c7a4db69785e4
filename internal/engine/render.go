package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tablelink/ordergate/internal/cart"
	"github.com/tablelink/ordergate/internal/messaging"
	"github.com/tablelink/ordergate/internal/models"
)

// maxListRows is the WhatsApp interactive-list row limit per message.
const maxListRows = 10

// renderStatePrompt re-renders the prompt for the session's current state.
// It is the engine's answer to mismatched clicks, invalid input, and
// profile-flow resume: whatever happened, the customer always gets the
// prompt their state requires next.
func (e *Engine) renderStatePrompt(ctx context.Context, t *turn) error {
	switch t.sess.CurrentState {
	case models.StateLocationSelection:
		return e.renderLocationPicker(ctx, t)
	case models.StateItemSelection, models.StateItemSelectionFromEdit:
		return e.renderMenu(ctx, t)
	case models.StateItemOptions:
		if len(t.sess.PendingParents) == 0 {
			return e.continueCartFlow(ctx, t)
		}
		return e.renderCurrentOptionSet(ctx, t)
	case models.StateItemToppings:
		if len(t.sess.PendingTops) == 0 {
			return e.continueCartFlow(ctx, t)
		}
		return e.renderCurrentToppings(ctx, t)
	case models.StateDeliveryMethod:
		t.buttons("How would you like to get your order?", []messaging.Button{
			{ID: models.PayloadMethodPickup, Title: "Pickup"},
			{ID: models.PayloadMethodDelivery, Title: "Delivery"},
		}, "")
		return nil
	case models.StateDeliveryLocationSelection:
		return e.renderChargeOptions(ctx, t)
	case models.StateDeliveryAddress:
		return e.renderAddressPrompt(ctx, t)
	case models.StateDeliveryContactPhone:
		t.text("What phone number should the rider call? Send it as digits, e.g. +2348012345678.")
		return nil
	case models.StateAddressSavePrompt:
		t.buttons("Save this address for next time?", []messaging.Button{
			{ID: models.PayloadSaveAddressYes, Title: "Yes, save it"},
			{ID: models.PayloadSaveAddressNo, Title: "No, thanks"},
		}, "")
		return nil
	case models.StateCollectNotes:
		t.text("Any notes for your order? Send them now, or reply \"none\".")
		return nil
	case models.StateOrderConfirmation:
		return e.renderConfirmation(t)
	case models.StateWaitingForDiscountCode:
		t.text("Please send your discount code.")
		return nil
	case models.StateEditOrder:
		t.text(e.cartSummaryText(t))
		t.buttons("What would you like to change?", []messaging.Button{
			{ID: models.PayloadEditAddItem, Title: "Add item"},
			{ID: models.PayloadEditRemoveItem, Title: "Remove item"},
			{ID: models.PayloadEditBack, Title: "Back"},
		}, "")
		return nil
	case models.StateRemoveItemPrompt:
		t.text(e.numberedLinesText(t) + "\n\nSend the number of the line to remove.")
		return nil
	case models.StatePackSelectionAdd:
		return e.renderPackPicker(t, true)
	case models.StatePackSelectionRemove:
		return e.renderPackPicker(t, false)
	case models.StateCancelConfirmation:
		t.buttons("Are you sure you want to cancel this order?", []messaging.Button{
			{ID: models.PayloadYes, Title: "Yes, cancel"},
			{ID: models.PayloadNo, Title: "No, keep it"},
		}, "")
		return nil
	case models.StateConfirmClosedRestaurant:
		t.buttons("This location is currently closed. Order anyway for later?", []messaging.Button{
			{ID: models.PayloadYes, Title: "Yes, order anyway"},
			{ID: models.PayloadNo, Title: "No, pick another"},
		}, "")
		return nil
	case models.StateConfirmClosedDelivery:
		t.buttons("This location is currently closed for delivery. Continue anyway?", []messaging.Button{
			{ID: models.PayloadYes, Title: "Yes, continue"},
			{ID: models.PayloadNo, Title: "No, go back"},
		}, "")
		return nil
	case models.StateSearch:
		t.text("What are you looking for? Send a word or two, e.g. \"chicken burger\".")
		return nil
	case models.StateSearchResults:
		t.text("Pick a result from the list above, or send another search term.")
		return nil
	case models.StateCancelled:
		return nil
	}
	return nil
}

func (e *Engine) renderLocationPicker(ctx context.Context, t *turn) error {
	centers, err := e.catalog.GetRevenueCenters(ctx, t.biz.RestaurantID)
	if err != nil {
		return fmt.Errorf("failed to load revenue centers: %w", err)
	}
	if len(centers) == 0 {
		t.text("No locations are available right now. Please try again later.")
		return nil
	}
	rows := make([]messaging.ListRow, 0, len(centers))
	for _, rc := range centers {
		if len(rows) == maxListRows {
			break
		}
		desc := ""
		if rc.OpenTime != "" && rc.CloseTime != "" {
			desc = rc.OpenTime + " - " + rc.CloseTime
		}
		rows = append(rows, messaging.ListRow{
			ID:          models.PayloadRevenueCenterPrefix + rc.ID,
			Title:       clip(rc.Name, 24),
			Description: desc,
		})
	}
	t.list("Where would you like to order from?", "Choose location",
		[]messaging.ListSection{{Title: "Locations", Rows: rows}})
	return nil
}

// renderMenu shows the catalog for the current location, one section per
// category in full menu mode, a flat list otherwise.
func (e *Engine) renderMenu(ctx context.Context, t *turn) error {
	items, err := e.catalog.GetItems(ctx, t.biz.RestaurantID, t.sess.RevenueCenterID, nil)
	if err != nil {
		return fmt.Errorf("failed to load menu: %w", err)
	}
	if t.sess.CategoryID != "" {
		filtered := items[:0]
		for _, it := range items {
			if it.CategoryID == t.sess.CategoryID {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if len(items) == 0 {
		t.sess.CategoryID = ""
		t.text("The menu for this location is empty right now. Please try again later.")
		return nil
	}

	var sections []messaging.ListSection
	if t.biz.MenuMode == models.MenuModeFull && t.sess.CategoryID == "" {
		sections = sectionsByCategory(items)
	} else {
		sections = []messaging.ListSection{{Title: "Menu", Rows: itemRows(items, maxListRows)}}
	}
	footer := "Type anything to search the menu, or \"checkout\" when you are done."
	t.list("What would you like to order?", "View menu", sections)
	t.text(footer)
	return nil
}

func itemRows(items []models.CatalogItem, limit int) []messaging.ListRow {
	rows := make([]messaging.ListRow, 0, limit)
	for _, it := range items {
		if len(rows) == limit {
			break
		}
		rows = append(rows, messaging.ListRow{
			ID:          models.PayloadItemPrefix + it.ID,
			Title:       clip(it.Name, 24),
			Description: fmt.Sprintf("%.2f", it.Price),
		})
	}
	return rows
}

// sectionsByCategory groups items into list sections, preserving catalog
// order, within the overall row limit.
func sectionsByCategory(items []models.CatalogItem) []messaging.ListSection {
	var sections []messaging.ListSection
	index := map[string]int{}
	total := 0
	for _, it := range items {
		if total == maxListRows {
			break
		}
		key := it.CategoryID
		ix, ok := index[key]
		if !ok {
			title := "Menu"
			if key != "" {
				title = "Category " + key
			}
			sections = append(sections, messaging.ListSection{Title: title})
			ix = len(sections) - 1
			index[key] = ix
		}
		sections[ix].Rows = append(sections[ix].Rows, messaging.ListRow{
			ID:          models.PayloadItemPrefix + it.ID,
			Title:       clip(it.Name, 24),
			Description: fmt.Sprintf("%.2f", it.Price),
		})
		total++
	}
	return sections
}

// currentOptionSet resolves the head pending parent's catalog item and the
// option set at its current index.
func (e *Engine) currentOptionSet(ctx context.Context, t *turn, head *models.PendingParent) (*models.CatalogItem, *models.OptionSet, error) {
	items, err := e.catalog.GetItems(ctx, t.biz.RestaurantID, t.sess.RevenueCenterID, []string{head.Item.ItemID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load item options: %w", err)
	}
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("item %s vanished from the catalog", head.Item.ItemID)
	}
	item := items[0]
	if head.CurrentOptionIx >= len(item.OptionSets) {
		return nil, nil, fmt.Errorf("option index %d out of range for item %s", head.CurrentOptionIx, item.ID)
	}
	return &item, &item.OptionSets[head.CurrentOptionIx], nil
}

func (e *Engine) renderCurrentOptionSet(ctx context.Context, t *turn) error {
	head := &t.sess.PendingParents[0]
	_, set, err := e.currentOptionSet(ctx, t, head)
	if err != nil {
		return err
	}
	rows := make([]messaging.ListRow, 0, len(set.Options))
	for _, opt := range set.Options {
		if len(rows) == maxListRows {
			break
		}
		desc := ""
		if opt.Price > 0 {
			desc = fmt.Sprintf("+%.2f", opt.Price)
		}
		rows = append(rows, messaging.ListRow{
			ID:          models.PayloadOptionPrefix + opt.ID,
			Title:       clip(opt.Name, 24),
			Description: desc,
		})
	}
	body := fmt.Sprintf("%s (%d of %d): choose your %s.",
		head.Item.Name, head.CurrentOptionIx+1, head.TotalOptionSets, set.Name)
	t.list(body, "Choose", []messaging.ListSection{{Title: set.Name, Rows: rows}})
	return nil
}

func (e *Engine) renderCurrentToppings(ctx context.Context, t *turn) error {
	head := &t.sess.PendingTops[0]
	available, err := e.catalog.GetToppings(ctx, head.ToppingClassID, t.sess.RevenueCenterID)
	if err != nil {
		return fmt.Errorf("failed to load toppings: %w", err)
	}
	selected := make(map[string]bool, len(head.SelectedIDs))
	for _, id := range head.SelectedIDs {
		selected[id] = true
	}
	rows := make([]messaging.ListRow, 0, maxListRows)
	for _, tp := range available {
		if len(rows) == maxListRows-2 {
			break
		}
		if selected[tp.ID] {
			continue
		}
		desc := ""
		if tp.Price > 0 {
			desc = fmt.Sprintf("+%.2f", tp.Price)
		}
		rows = append(rows, messaging.ListRow{
			ID:          models.PayloadToppingPrefix + tp.ID,
			Title:       clip(tp.Name, 24),
			Description: desc,
		})
	}
	body := fmt.Sprintf("Any toppings for %s?", head.ItemName)
	if len(head.SelectedIDs) > 0 {
		body = fmt.Sprintf("Any more toppings for %s? (%d selected)", head.ItemName, len(head.SelectedIDs))
	}
	sections := []messaging.ListSection{
		{Title: "Toppings", Rows: rows},
		{Title: "Finish", Rows: []messaging.ListRow{
			{ID: models.PayloadToppingsDone, Title: "Done"},
			{ID: models.PayloadSkipToppings, Title: "No toppings"},
		}},
	}
	t.list(body, "Toppings", sections)
	return nil
}

func (e *Engine) renderChargeOptions(ctx context.Context, t *turn) error {
	charges, err := e.orders.GetCharges(ctx, t.biz.RestaurantID, t.sess.RevenueCenterID, t.sess.DeliveryMethod)
	if err != nil {
		return fmt.Errorf("failed to load delivery charges: %w", err)
	}
	if len(charges) == 0 {
		t.text("Delivery is not available from this location right now. Reply \"hi\" to start over.")
		return nil
	}
	rows := make([]messaging.ListRow, 0, len(charges))
	for _, ch := range charges {
		if len(rows) == maxListRows {
			break
		}
		rows = append(rows, messaging.ListRow{
			ID:          models.PayloadChargePrefix + ch.ID,
			Title:       clip(ch.Name, 24),
			Description: fmt.Sprintf("%.2f", ch.Amount),
		})
	}
	t.list("Which area should we deliver to?", "Choose area",
		[]messaging.ListSection{{Title: "Delivery areas", Rows: rows}})
	return nil
}

func (e *Engine) renderAddressPrompt(ctx context.Context, t *turn) error {
	p, err := e.profiles.Load(t.sess.BusinessID, t.sess.PhoneNumber)
	if err != nil {
		return err
	}
	if p == nil || len(p.Addresses) == 0 {
		t.text("Please type your delivery address (at least 10 characters).")
		return nil
	}
	rows := make([]messaging.ListRow, 0, len(p.Addresses)+1)
	for _, a := range p.Addresses {
		if len(rows) == maxListRows-1 {
			break
		}
		rows = append(rows, messaging.ListRow{
			ID:    models.PayloadSavedAddressPrefix + strconv.FormatInt(a.ID, 10),
			Title: clip(a.Address, 24),
		})
	}
	rows = append(rows, messaging.ListRow{ID: models.PayloadNewAddress, Title: "New address"})
	t.list("Where should we deliver?", "Choose address",
		[]messaging.ListSection{{Title: "Saved addresses", Rows: rows}})
	return nil
}

func (e *Engine) renderConfirmation(t *turn) error {
	t.text(e.orderSummaryText(t))
	t.buttons("Ready to place your order?", []messaging.Button{
		{ID: models.PayloadConfirmOrder, Title: "Confirm"},
		{ID: models.PayloadEditOrder, Title: "Edit"},
		{ID: models.PayloadCancelOrder, Title: "Cancel"},
	}, "Type \"discount\" to apply a code.")
	return nil
}

func (e *Engine) renderPackPicker(t *turn, allowNew bool) error {
	packs := cart.Packs(&t.sess.Cart)
	rows := make([]messaging.ListRow, 0, len(packs)+1)
	for _, p := range packs {
		if len(rows) == maxListRows-1 {
			break
		}
		rows = append(rows, messaging.ListRow{
			ID:          models.PayloadPackPrefix + p,
			Title:       "Basket " + strings.TrimPrefix(p, "pack"),
			Description: fmt.Sprintf("%.2f", cart.PackSubtotal(&t.sess.Cart, p)),
		})
	}
	body := "Which basket?"
	if allowNew {
		rows = append(rows, messaging.ListRow{ID: models.PayloadNewPack, Title: "New basket"})
		body = "Which basket should new items go into?"
	}
	t.list(body, "Choose basket", []messaging.ListSection{{Title: "Baskets", Rows: rows}})
	return nil
}

// cartSummaryText renders the cart's numbered logical lines with per-pack
// subtotals when more than one pack exists.
func (e *Engine) cartSummaryText(t *turn) string {
	c := &t.sess.Cart
	if len(c.Items) == 0 {
		return "Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("Your cart:\n")
	b.WriteString(e.numberedLinesText(t))
	packs := cart.Packs(c)
	if len(packs) > 1 {
		b.WriteString("\n")
		for _, p := range packs {
			fmt.Fprintf(&b, "\nBasket %s: %.2f", strings.TrimPrefix(p, "pack"), cart.PackSubtotal(c, p))
		}
	}
	fmt.Fprintf(&b, "\n\nSubtotal: %.2f", cart.Subtotal(c))
	return b.String()
}

func (e *Engine) numberedLinesText(t *turn) string {
	var b strings.Builder
	for i, ln := range cart.LogicalLines(&t.sess.Cart) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %dx %s - %.2f", i+1, ln.Quantity, ln.Label, ln.Total)
	}
	return b.String()
}

// orderSummaryText renders the full pre-submission summary.
func (e *Engine) orderSummaryText(t *turn) string {
	var b strings.Builder
	b.WriteString(e.cartSummaryText(t))
	if t.sess.DiscountAmount > 0 {
		fmt.Fprintf(&b, "\nDiscount (%s): -%.2f", t.sess.DiscountCode, t.sess.DiscountAmount)
		fmt.Fprintf(&b, "\nTotal: %.2f", cart.Round2(cart.Subtotal(&t.sess.Cart)-t.sess.DiscountAmount))
	}
	fmt.Fprintf(&b, "\n\n%s", t.sess.DeliveryMethod)
	if t.sess.DeliveryMethod == models.DeliveryMethodDelivery && t.sess.DeliveryAddress != "" {
		fmt.Fprintf(&b, " to %s", t.sess.DeliveryAddress)
	}
	if t.sess.ContactPhone != "" {
		fmt.Fprintf(&b, "\nContact: %s", t.sess.ContactPhone)
	}
	if t.sess.Notes != "" && !strings.EqualFold(t.sess.Notes, "none") {
		fmt.Fprintf(&b, "\nNotes: %s", t.sess.Notes)
	}
	return b.String()
}

// clip shortens a row title to the interactive-message limit, counting
// runes so multi-byte names are never cut mid-character.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
