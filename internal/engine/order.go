package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tablelink/ordergate/internal/cart"
	"github.com/tablelink/ordergate/internal/models"
)

// submitOrder builds the order request from the session, submits it to the
// order collaborator, and on success resets the session for the next
// conversation. A failed submission leaves the session untouched so
// confirming again is safe.
func (e *Engine) submitOrder(ctx context.Context, t *turn) error {
	if len(t.sess.Cart.Items) == 0 {
		t.text("Your cart is empty, there is nothing to submit.")
		t.sess.CurrentState = models.StateItemSelection
		return e.renderMenu(ctx, t)
	}

	req := e.buildOrderRequest(t)
	result, err := e.orders.CreateOrder(ctx, req, t.biz.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to submit order: %w", err)
	}

	slog.Info("Engine order submitted", "businessID", t.sess.BusinessID, "phone", t.sess.PhoneNumber,
		"orderID", result.OrderID, "subtotal", req.Subtotal)

	confirmation := fmt.Sprintf("Your order is in! Order number: %s.", result.OrderID)
	if result.CheckoutLink != "" {
		confirmation += "\nPay here: " + result.CheckoutLink
	}
	confirmation += "\n\nSay hi whenever you want to order again."
	t.text(confirmation)

	t.sess.Reset()
	return nil
}

func (e *Engine) buildOrderRequest(t *turn) models.OrderRequest {
	s := t.sess
	subtotal := cart.Subtotal(&s.Cart)
	discount := s.DiscountAmount
	// Percent discounts are recomputed against the final subtotal; the
	// amount stored at validation time may predate later cart edits.
	if s.DiscountCode != "" && s.DiscountType == "percent" {
		discount = cart.Round2(subtotal * s.DiscountValue / 100)
	}
	if discount > subtotal {
		discount = subtotal
	}
	notes := s.Notes
	if strings.EqualFold(notes, "none") {
		notes = ""
	}
	return models.OrderRequest{
		RestaurantID:     t.biz.RestaurantID,
		RevenueCenterID:  s.RevenueCenterID,
		PhoneNumber:      s.PhoneNumber,
		DeliveryMethod:   s.DeliveryMethod,
		DeliveryAddress:  s.DeliveryAddress,
		DeliveryChargeID: s.DeliveryChargeID,
		ContactPhone:     s.ContactPhone,
		Notes:            notes,
		DiscountCode:     s.DiscountCode,
		DiscountAmount:   discount,
		Subtotal:         subtotal,
		Items:            s.Cart.Items,
	}
}
