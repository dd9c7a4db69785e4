package models

// Interactive payload identifiers. Button and list row ids are built from
// these; prefixed ids carry the subject after the prefix
// (e.g. "rc_42" selects revenue center 42).
const (
	PayloadRevenueCenterPrefix = "rc_"
	PayloadOptionPrefix        = "opt_"
	PayloadToppingPrefix       = "top_"
	PayloadSkipToppings        = "skip_toppings"
	PayloadToppingsDone        = "toppings_done"
	PayloadMethodPickup        = "method_pickup"
	PayloadMethodDelivery      = "method_delivery"
	PayloadChargePrefix        = "charge_"
	PayloadSavedAddressPrefix  = "addr_"
	PayloadNewAddress          = "addr_new"
	PayloadSaveAddressYes      = "save_addr_yes"
	PayloadSaveAddressNo       = "save_addr_no"
	PayloadCheckout            = "checkout"
	PayloadConfirmOrder        = "confirm_order"
	PayloadEditOrder           = "edit_order"
	PayloadCancelOrder         = "cancel_order"
	PayloadApplyDiscount       = "apply_discount"
	PayloadEditAddItem         = "edit_add_item"
	PayloadEditRemoveItem      = "edit_remove_item"
	PayloadEditBack            = "edit_back"
	PayloadPackPrefix          = "pack_"
	PayloadNewPack             = "pack_new"
	PayloadYes                 = "yes"
	PayloadNo                  = "no"
	PayloadSearchResultPrefix  = "sr_"
	PayloadItemPrefix          = "item_"
	PayloadCategoryPrefix      = "cat_"
)

// Profile sub-flow payload identifiers.
const (
	PayloadProfileAddresses    = "profile_addresses"
	PayloadProfilePhone        = "profile_phone"
	PayloadProfileContinue     = "profile_continue"
	PayloadProfileAddAddress   = "profile_addr_add"
	PayloadProfileRemoveAddr   = "profile_addr_remove"
	PayloadProfileBack         = "profile_back"
	PayloadProfileSetPhone     = "profile_phone_set"
	PayloadProfileRemovePhone  = "profile_phone_remove"
	PayloadProfileRmAddrPrefix = "profile_rmaddr_"
)
