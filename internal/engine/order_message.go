package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tablelink/ordergate/internal/cart"
	"github.com/tablelink/ordergate/internal/models"
	"github.com/tablelink/ordergate/internal/validation"
)

// ProcessOrderMessage handles a catalog "add to cart" event. Each line is
// resolved against the authoritative catalog and classified: recipe
// parents queue option selection, topping-class items queue topping
// selection, plain items go straight into the cart.
func (e *Engine) ProcessOrderMessage(ctx context.Context, msg models.IncomingMessage) error {
	slog.Debug("Engine ProcessOrderMessage", "businessID", msg.BusinessID, "phone", msg.PhoneNumber)
	if msg.Order == nil || len(msg.Order.Lines) == 0 {
		return nil
	}

	sess, err := e.sessions.Get(msg.BusinessID, msg.PhoneNumber)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return e.startSession(ctx, msg)
	}
	if sess.CurrentState == models.StateCancelled {
		return nil
	}

	t := &turn{sess: sess}
	if t.biz, err = e.business(sess.BusinessID); err != nil {
		return err
	}

	if !validation.IsActionAllowedInState(sess.CurrentState, models.ActionAddToCart) ||
		!validation.HasCompletedRequiredSteps(sess, models.ActionAddToCart) {
		if err := e.redirectToNextStep(ctx, t, "Please finish the current step before adding items."); err != nil {
			return e.sendRetry(ctx, msg, err)
		}
		return e.flush(ctx, t)
	}

	if err := e.addOrderLines(ctx, t, msg.Order.Lines); err != nil {
		return e.sendRetry(ctx, msg, err)
	}
	if err := e.continueCartFlow(ctx, t); err != nil {
		return e.sendRetry(ctx, msg, err)
	}
	return e.finish(ctx, t)
}

// addOrderLines resolves and classifies the requested lines, mutating the
// turn's cart and pending queues. Unknown item ids are reported and
// skipped, never guessed.
func (e *Engine) addOrderLines(ctx context.Context, t *turn, lines []models.OrderEventLine) error {
	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ItemID)
	}
	items, err := e.catalog.GetItems(ctx, t.biz.RestaurantID, t.sess.RevenueCenterID, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog items: %w", err)
	}
	byID := make(map[string]models.CatalogItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	for _, ln := range lines {
		item, ok := byID[ln.ItemID]
		if !ok {
			t.text(fmt.Sprintf("One of the items (%s) is no longer on the menu and was skipped.", ln.ItemID))
			continue
		}
		qty := ln.Quantity
		if qty < 1 {
			qty = 1
		}
		e.addCatalogItem(t, item, qty)
	}
	return nil
}

// addCatalogItem classifies one resolved catalog item into the cart.
func (e *Engine) addCatalogItem(t *turn, item models.CatalogItem, qty int) {
	switch {
	case item.IsRecipeParent():
		// One pending parent and one placeholder entry per requested unit;
		// each unit gets its own grouping so its chosen children attach
		// atomically.
		for i := 0; i < qty; i++ {
			groupingID := uuid.NewString()
			entry := models.CartItem{
				ItemID:       item.ID,
				Name:         item.Name,
				Price:        item.Price,
				Quantity:     1,
				TaxClassID:   item.TaxClassID,
				PackID:       t.sess.CurrentPackID,
				GroupingID:   groupingID,
				IsParentItem: true,
			}
			cart.AddItem(&t.sess.Cart, entry)
			setIDs := make([]string, 0, len(item.OptionSets))
			for _, os := range item.OptionSets {
				setIDs = append(setIDs, os.ID)
			}
			t.sess.PendingParents = append(t.sess.PendingParents, models.PendingParent{
				Item:            entry,
				GroupingID:      groupingID,
				OptionSetIDs:    setIDs,
				TotalOptionSets: len(item.OptionSets),
			})
		}
	case item.HasToppings():
		groupingID := uuid.NewString()
		cart.AddItem(&t.sess.Cart, models.CartItem{
			ItemID:     item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   qty,
			TaxClassID: item.TaxClassID,
			PackID:     t.sess.CurrentPackID,
			GroupingID: groupingID,
		})
		t.sess.PendingTops = append(t.sess.PendingTops, models.PendingToppings{
			GroupingID:     groupingID,
			ItemID:         item.ID,
			ItemName:       item.Name,
			ToppingClassID: item.ToppingClassID,
		})
	default:
		cart.AddItem(&t.sess.Cart, models.CartItem{
			ItemID:     item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   qty,
			TaxClassID: item.TaxClassID,
			PackID:     t.sess.CurrentPackID,
		})
	}
}

// continueCartFlow advances the conversation after cart mutations: pending
// parents first, then pending toppings, then the order ladder.
func (e *Engine) continueCartFlow(ctx context.Context, t *turn) error {
	if len(t.sess.PendingParents) > 0 {
		t.sess.CurrentState = models.StateItemOptions
		return e.renderCurrentOptionSet(ctx, t)
	}
	if len(t.sess.PendingTops) > 0 {
		t.sess.CurrentState = models.StateItemToppings
		return e.renderCurrentToppings(ctx, t)
	}
	t.text(e.cartSummaryText(t))
	if t.sess.IsEditing {
		t.sess.IsEditing = false
		t.sess.CurrentState = models.StateOrderConfirmation
		return e.renderStatePrompt(ctx, t)
	}
	if t.sess.DeliveryMethod == "" {
		t.sess.CurrentState = models.StateDeliveryMethod
		return e.renderStatePrompt(ctx, t)
	}
	return e.redirectToNextStep(ctx, t, "")
}
