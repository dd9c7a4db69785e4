package cart

import (
	"testing"

	"github.com/tablelink/ordergate/internal/models"
)

func item(id, name string, price float64, qty int) models.CartItem {
	return models.CartItem{ItemID: id, Name: name, Price: price, Quantity: qty}
}

func TestSubtotal(t *testing.T) {
	var c models.Cart
	AddItem(&c, item("a", "Jollof Rice", 500, 2))
	AddItem(&c, item("b", "Water", 100.125, 1))

	got := Subtotal(&c)
	if got != 1100.13 {
		t.Errorf("Subtotal = %v, want 1100.13", got)
	}
}

func TestSubtotalAddThenRemoveRestoresPriorValue(t *testing.T) {
	var c models.Cart
	AddItem(&c, item("a", "Jollof Rice", 500, 2))
	before := Subtotal(&c)

	AddItem(&c, item("b", "Water", 100, 3))
	if !RemoveLogicalLine(&c, 2) {
		t.Fatal("RemoveLogicalLine failed")
	}
	if got := Subtotal(&c); got != before {
		t.Errorf("Subtotal after add+remove = %v, want %v", got, before)
	}
}

func TestRemoveGroupIsAtomic(t *testing.T) {
	var c models.Cart
	AddItem(&c, models.CartItem{ItemID: "combo", Name: "Combo", Price: 900, Quantity: 1, GroupingID: "g1", IsParentItem: true})
	AddItem(&c, models.CartItem{ItemID: "side", Name: "Fries", Price: 0, Quantity: 1, GroupingID: "g1", ParentItemID: "combo"})
	AddItem(&c, models.CartItem{ItemID: "top", Name: "Cheese", Price: 50, Quantity: 1, GroupingID: "g1", ParentItemID: "combo", IsTopping: true})
	AddItem(&c, item("x", "Water", 100, 1))

	removed := RemoveGroup(&c, "g1")
	if removed != 3 {
		t.Errorf("RemoveGroup removed %d items, want 3", removed)
	}
	if len(c.Items) != 1 || c.Items[0].ItemID != "x" {
		t.Errorf("cart after group removal = %+v, want only item x", c.Items)
	}
	for _, it := range c.Items {
		if it.GroupingID == "g1" {
			t.Error("partial group left in cart")
		}
	}
}

func TestLogicalLinesCollapse(t *testing.T) {
	var c models.Cart
	// Grouped purchase: parent plus children collapse to one line.
	AddItem(&c, models.CartItem{ItemID: "combo", Name: "Combo", Price: 900, Quantity: 1, GroupingID: "g1", IsParentItem: true})
	AddItem(&c, models.CartItem{ItemID: "side", Name: "Fries", Price: 100, Quantity: 1, GroupingID: "g1", ParentItemID: "combo"})
	// Standalone items of the same id and pack collapse with summed quantity.
	AddItem(&c, item("w", "Water", 100, 1))
	AddItem(&c, item("w", "Water", 100, 2))

	lines := LogicalLines(&c)
	if len(lines) != 2 {
		t.Fatalf("LogicalLines returned %d lines, want 2", len(lines))
	}
	if lines[0].Label != "Combo" || lines[0].GroupingID != "g1" {
		t.Errorf("line 1 = %+v, want the combo group head", lines[0])
	}
	if lines[0].Total != 1000 {
		t.Errorf("combo line total = %v, want 1000", lines[0].Total)
	}
	if lines[1].Quantity != 3 {
		t.Errorf("water line quantity = %d, want 3", lines[1].Quantity)
	}
	if lines[1].Total != 300 {
		t.Errorf("water line total = %v, want 300", lines[1].Total)
	}
}

func TestRemoveLogicalLineRemovesWholeGroup(t *testing.T) {
	var c models.Cart
	AddItem(&c, models.CartItem{ItemID: "combo", Name: "Combo", Price: 900, Quantity: 1, GroupingID: "g1", IsParentItem: true})
	AddItem(&c, models.CartItem{ItemID: "side", Name: "Fries", Price: 100, Quantity: 1, GroupingID: "g1", ParentItemID: "combo"})
	AddItem(&c, item("w", "Water", 100, 1))

	if !RemoveLogicalLine(&c, 1) {
		t.Fatal("RemoveLogicalLine(1) failed")
	}
	if len(c.Items) != 1 || c.Items[0].ItemID != "w" {
		t.Errorf("cart after removal = %+v, want only water", c.Items)
	}
	if RemoveLogicalLine(&c, 5) {
		t.Error("RemoveLogicalLine out of range should return false")
	}
}

func TestPackOperations(t *testing.T) {
	var c models.Cart
	AddItem(&c, models.CartItem{ItemID: "a", Name: "Rice", Price: 500, Quantity: 1, PackID: "pack1"})
	AddItem(&c, models.CartItem{ItemID: "b", Name: "Beans", Price: 300, Quantity: 2, PackID: "pack3"})

	packs := Packs(&c)
	if len(packs) != 2 || packs[0] != "pack1" || packs[1] != "pack3" {
		t.Errorf("Packs = %v, want [pack1 pack3]", packs)
	}
	if next := NextPackID(&c, "pack1"); next != "pack4" {
		t.Errorf("NextPackID = %s, want pack4", next)
	}
	if got := PackSubtotal(&c, "pack3"); got != 600 {
		t.Errorf("PackSubtotal(pack3) = %v, want 600", got)
	}

	removed := RemovePack(&c, "pack3")
	if removed != 1 {
		t.Errorf("RemovePack removed %d items, want 1", removed)
	}
	if len(c.Items) != 1 || c.Items[0].PackID != "pack1" {
		t.Errorf("cart after pack removal = %+v", c.Items)
	}
}

func TestAddItemDefaults(t *testing.T) {
	var c models.Cart
	AddItem(&c, models.CartItem{ItemID: "a", Name: "Rice", Price: 500})
	if c.Items[0].PackID != models.DefaultPackID {
		t.Errorf("PackID = %s, want %s", c.Items[0].PackID, models.DefaultPackID)
	}
	if c.Items[0].Quantity != 1 {
		t.Errorf("Quantity = %d, want 1", c.Items[0].Quantity)
	}
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.125, 0.13},
		{-0.125, -0.13},
		{1.234, 1.23},
		{1.236, 1.24},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
