// Package models defines state and action enumerations for order conversations.
package models

// ConversationState represents a position in the primary order state machine.
type ConversationState string

// Primary conversation states.
const (
	StateLocationSelection         ConversationState = "LOCATION_SELECTION"
	StateItemSelection             ConversationState = "ITEM_SELECTION"
	StateItemSelectionFromEdit     ConversationState = "ITEM_SELECTION_FROM_EDIT"
	StateItemOptions               ConversationState = "ITEM_OPTIONS"
	StateItemToppings              ConversationState = "ITEM_TOPPINGS"
	StateDeliveryMethod            ConversationState = "DELIVERY_METHOD"
	StateDeliveryLocationSelection ConversationState = "DELIVERY_LOCATION_SELECTION"
	StateDeliveryAddress           ConversationState = "DELIVERY_ADDRESS"
	StateDeliveryContactPhone      ConversationState = "DELIVERY_CONTACT_PHONE"
	StateAddressSavePrompt         ConversationState = "ADDRESS_SAVE_PROMPT"
	StateCollectNotes              ConversationState = "COLLECT_NOTES"
	StateOrderConfirmation         ConversationState = "ORDER_CONFIRMATION"
	StateWaitingForDiscountCode    ConversationState = "WAITING_FOR_DISCOUNT_CODE"
	StateEditOrder                 ConversationState = "EDIT_ORDER"
	StateRemoveItemPrompt          ConversationState = "REMOVE_ITEM_PROMPT"
	StatePackSelectionAdd          ConversationState = "PACK_SELECTION_ADD"
	StatePackSelectionRemove       ConversationState = "PACK_SELECTION_REMOVE"
	StateCancelConfirmation        ConversationState = "CANCEL_CONFIRMATION"
	StateConfirmClosedRestaurant   ConversationState = "CONFIRM_CLOSED_RESTAURANT"
	StateConfirmClosedDelivery     ConversationState = "CONFIRM_CLOSED_DELIVERY"
	StateSearch                    ConversationState = "SEARCH"
	StateSearchResults             ConversationState = "SEARCH_RESULTS"
	StateCancelled                 ConversationState = "CANCELLED"
)

// AllConversationStates lists every primary state. The engine uses it at
// construction time to assert full handler coverage.
var AllConversationStates = []ConversationState{
	StateLocationSelection,
	StateItemSelection,
	StateItemSelectionFromEdit,
	StateItemOptions,
	StateItemToppings,
	StateDeliveryMethod,
	StateDeliveryLocationSelection,
	StateDeliveryAddress,
	StateDeliveryContactPhone,
	StateAddressSavePrompt,
	StateCollectNotes,
	StateOrderConfirmation,
	StateWaitingForDiscountCode,
	StateEditOrder,
	StateRemoveItemPrompt,
	StatePackSelectionAdd,
	StatePackSelectionRemove,
	StateCancelConfirmation,
	StateConfirmClosedRestaurant,
	StateConfirmClosedDelivery,
	StateSearch,
	StateSearchResults,
	StateCancelled,
}

// ProfileState represents a position in the secondary profile sub-flow.
// An empty value means the profile flow is not active.
type ProfileState string

// Profile sub-flow states.
const (
	ProfileStateNone                     ProfileState = ""
	ProfileStateMenu                     ProfileState = "PROFILE_MENU"
	ProfileStateAddressMenu              ProfileState = "ADDRESS_MENU"
	ProfileStatePhoneMenu                ProfileState = "PHONE_MENU"
	ProfileStateWaitingForAddress        ProfileState = "WAITING_FOR_ADDRESS"
	ProfileStateWaitingForAddressRemoval ProfileState = "WAITING_FOR_ADDRESS_REMOVAL"
	ProfileStateWaitingForPhone          ProfileState = "WAITING_FOR_PHONE"
	ProfileStateConfirmPhoneRemoval      ProfileState = "CONFIRM_PHONE_REMOVAL"
)

// Action classifies what an inbound message is asking the engine to do.
type Action string

// Engine actions. Button and list payload ids map onto these.
const (
	ActionAddToCart     Action = "ADD_TO_CART"
	ActionCheckout      Action = "CHECKOUT"
	ActionDelivery      Action = "DELIVERY"
	ActionPlaceOrder    Action = "PLACE_ORDER"
	ActionApplyDiscount Action = "APPLY_DISCOUNT"
	ActionManageProfile Action = "MANAGE_PROFILE"
	ActionFullMenu      Action = "FULL_MENU"
	ActionHelp          Action = "HELP"
	ActionSearch        Action = "SEARCH"
	ActionCancelOrder   Action = "CANCEL_ORDER"
	ActionEditOrder     Action = "EDIT_ORDER"
	ActionAddItem       Action = "ADD_ITEM"
	ActionRemoveItem    Action = "REMOVE_ITEM"
	ActionAddPack       Action = "ADD_PACK"
	ActionRemovePack    Action = "REMOVE_PACK"
)

// DeliveryMethod values collected in the DELIVERY_METHOD step.
const (
	DeliveryMethodPickup   = "Pickup"
	DeliveryMethodDelivery = "Delivery"
)
