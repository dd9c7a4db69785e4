package models

// OptionSet is one required choice group on a recipe parent.
type OptionSet struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Options []CatalogItem `json:"options"`
}

// CatalogItem is an authoritative menu item from the back-office catalog.
type CatalogItem struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Price          float64     `json:"price"`
	TaxClassID     string      `json:"tax_class_id,omitempty"`
	OptionSets     []OptionSet `json:"option_sets,omitempty"`
	ToppingClassID string      `json:"topping_class_id,omitempty"`
	CategoryID     string      `json:"category_id,omitempty"`
}

// IsRecipeParent reports whether the item requires option-set selection.
func (c CatalogItem) IsRecipeParent() bool {
	return len(c.OptionSets) > 0
}

// HasToppings reports whether the item offers an optional topping class.
func (c CatalogItem) HasToppings() bool {
	return c.ToppingClassID != ""
}

// ToppingItem is one selectable topping within a topping class.
type ToppingItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ChargeInfo is one delivery zone/charge option for a revenue center.
type ChargeInfo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// DiscountResult is the back-office answer to a discount code validation.
type DiscountResult struct {
	Code       string  `json:"code"`
	Value      float64 `json:"value"`
	AmountType string  `json:"amount_type"` // "percent" or "fixed"
	IsActive   bool    `json:"is_active"`
}

// OrderRequest is the payload submitted to the order collaborator.
type OrderRequest struct {
	RestaurantID     string     `json:"restaurant_id"`
	RevenueCenterID  string     `json:"revenue_center_id"`
	PhoneNumber      string     `json:"phone_number"`
	CustomerName     string     `json:"customer_name,omitempty"`
	DeliveryMethod   string     `json:"delivery_method"`
	DeliveryAddress  string     `json:"delivery_address,omitempty"`
	DeliveryChargeID string     `json:"delivery_charge_id,omitempty"`
	ContactPhone     string     `json:"contact_phone,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	DiscountCode     string     `json:"discount_code,omitempty"`
	DiscountAmount   float64    `json:"discount_amount,omitempty"`
	Subtotal         float64    `json:"subtotal"`
	Items            []CartItem `json:"items"`
}

// OrderResult is the collaborator's answer to a submitted order.
type OrderResult struct {
	OrderID      string `json:"order_id"`
	CheckoutLink string `json:"checkout_link,omitempty"`
}
