// Package models defines the core data structures for OrderGate.
package models

// DefaultPackID is the pack every cart item belongs to unless the customer
// opens additional packs.
const DefaultPackID = "pack1"

// CartItem is one line in a customer's cart.
type CartItem struct {
	ItemID       string  `json:"item_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	TaxClassID   string  `json:"tax_class_id,omitempty"`
	PackID       string  `json:"pack_id"`
	GroupingID   string  `json:"grouping_id,omitempty"`
	ParentItemID string  `json:"parent_item_id,omitempty"`
	IsParentItem bool    `json:"is_parent_item,omitempty"`
	IsTopping    bool    `json:"is_topping,omitempty"`
}

// Cart is the ordered collection of cart items for one session.
type Cart struct {
	Items []CartItem `json:"items"`
}

// PendingParent is a recipe/combo item awaiting selection of its required
// option sets. The queue is FIFO: the head is always presented next.
type PendingParent struct {
	Item            CartItem `json:"item"`
	GroupingID      string   `json:"grouping_id"`
	OptionSetIDs    []string `json:"option_set_ids"`
	CurrentOptionIx int      `json:"current_option_ix"`
	TotalOptionSets int      `json:"total_option_sets"`
}

// PendingToppings is an item with optional toppings awaiting selection.
type PendingToppings struct {
	GroupingID     string   `json:"grouping_id"`
	ItemID         string   `json:"item_id"`
	ItemName       string   `json:"item_name"`
	ToppingClassID string   `json:"topping_class_id"`
	SelectedIDs    []string `json:"selected_ids"`
}
