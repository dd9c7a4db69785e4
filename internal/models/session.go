package models

import "time"

// SessionIdleTTL is how long a session may sit without interaction before
// the periodic sweep deletes it.
const SessionIdleTTL = 24 * time.Hour

// OrderSession is the durable conversation state for one
// (business, phone number) pair.
type OrderSession struct {
	BusinessID  string `json:"business_id"`
	PhoneNumber string `json:"phone_number"`

	CurrentState ConversationState `json:"current_state"`
	ProfileState ProfileState      `json:"profile_state,omitempty"`

	Cart           Cart              `json:"cart"`
	PendingParents []PendingParent   `json:"pending_parents,omitempty"`
	PendingTops    []PendingToppings `json:"pending_toppings,omitempty"`

	RevenueCenterID  string  `json:"revenue_center_id,omitempty"`
	DeliveryMethod   string  `json:"delivery_method,omitempty"`
	DeliveryAddress  string  `json:"delivery_address,omitempty"`
	DeliveryChargeID string  `json:"delivery_charge_id,omitempty"`
	ContactPhone     string  `json:"contact_phone,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	DiscountCode     string  `json:"discount_code,omitempty"`
	DiscountType     string  `json:"discount_type,omitempty"`
	DiscountValue    float64 `json:"discount_value,omitempty"`
	DiscountAmount   float64 `json:"discount_amount,omitempty"`
	CurrentPackID    string  `json:"current_pack_id,omitempty"`

	// Menu navigation breadcrumbs.
	CategoryID    string `json:"category_id,omitempty"`
	SubcategoryID string `json:"subcategory_id,omitempty"`
	MenuLevel     int    `json:"menu_level,omitempty"`

	// Editing flags.
	IsEditing      bool     `json:"is_editing,omitempty"`
	EditingGroupID string   `json:"editing_group_id,omitempty"`
	EditGroupsData []string `json:"edit_groups_data,omitempty"`

	// Payload ids of the last rendered prompt, in display order. Providers
	// without native interactive messages number these rows as text; a
	// bare-number text reply is resolved against this slice.
	LastPromptPayloads []string `json:"last_prompt_payloads,omitempty"`

	LastInteraction time.Time `json:"last_interaction"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewOrderSession creates a session in the initial state.
func NewOrderSession(businessID, phoneNumber string) *OrderSession {
	now := time.Now()
	return &OrderSession{
		BusinessID:      businessID,
		PhoneNumber:     phoneNumber,
		CurrentState:    StateLocationSelection,
		CurrentPackID:   DefaultPackID,
		LastInteraction: now,
		CreatedAt:       now,
	}
}

// Reset returns the session to its initial state, clearing every
// order-building field but keeping identity and creation time.
func (s *OrderSession) Reset() {
	created := s.CreatedAt
	*s = OrderSession{
		BusinessID:      s.BusinessID,
		PhoneNumber:     s.PhoneNumber,
		CurrentState:    StateLocationSelection,
		CurrentPackID:   DefaultPackID,
		LastInteraction: time.Now(),
		CreatedAt:       created,
	}
}

// Touch records an interaction so the idle sweep leaves the session alone.
func (s *OrderSession) Touch() {
	s.LastInteraction = time.Now()
}

// InProfileFlow reports whether the secondary profile flow owns routing.
func (s *OrderSession) InProfileFlow() bool {
	return s.ProfileState != ProfileStateNone
}
