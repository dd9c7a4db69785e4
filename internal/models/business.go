package models

// MenuMode controls how the catalog is presented after location selection.
type MenuMode string

// Menu modes. Small catalogs skip category navigation entirely.
const (
	MenuModeFull    MenuMode = "full"
	MenuModeCompact MenuMode = "compact"
)

// Business is one configured tenant of the gateway.
type Business struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	RestaurantID string   `json:"restaurant_id"`
	AuthToken    string   `json:"auth_token,omitempty"`
	WAPhoneID    string   `json:"wa_phone_id,omitempty"` // Cloud API phone number id
	ChatEnabled  bool     `json:"chat_enabled"`
	Timezone     string   `json:"timezone"`
	MenuMode     MenuMode `json:"menu_mode"`
}

// RevenueCenter is a selectable physical/service location of a business.
type RevenueCenter struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OpenTime  string `json:"open_time,omitempty"`  // "HH:MM" in the business's zone
	CloseTime string `json:"close_time,omitempty"` // "HH:MM", may be before OpenTime (crosses midnight)
}
