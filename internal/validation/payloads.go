package validation

import (
	"strings"

	"github.com/tablelink/ordergate/internal/models"
)

// statePayloads maps each primary state to the interactive payload ids and
// id prefixes it accepts. Clicks outside this table are mismatched clicks:
// the engine re-renders the current prompt instead of executing them.
var statePayloads = map[models.ConversationState][]string{
	models.StateLocationSelection: {models.PayloadRevenueCenterPrefix},
	models.StateItemSelection: {
		models.PayloadItemPrefix, models.PayloadCategoryPrefix,
		models.PayloadPackPrefix, models.PayloadApplyDiscount,
		models.PayloadCheckout,
	},
	models.StateItemSelectionFromEdit: {
		models.PayloadItemPrefix, models.PayloadCategoryPrefix,
		models.PayloadEditBack, models.PayloadCheckout,
	},
	models.StateItemOptions:  {models.PayloadOptionPrefix},
	models.StateItemToppings: {models.PayloadToppingPrefix, models.PayloadSkipToppings, models.PayloadToppingsDone},
	models.StateDeliveryMethod: {
		models.PayloadMethodPickup, models.PayloadMethodDelivery,
	},
	models.StateDeliveryLocationSelection: {models.PayloadChargePrefix},
	models.StateDeliveryAddress:           {models.PayloadSavedAddressPrefix, models.PayloadNewAddress},
	models.StateAddressSavePrompt:         {models.PayloadSaveAddressYes, models.PayloadSaveAddressNo},
	models.StateOrderConfirmation: {
		models.PayloadConfirmOrder, models.PayloadEditOrder,
		models.PayloadCancelOrder, models.PayloadApplyDiscount,
	},
	models.StateEditOrder: {
		models.PayloadEditAddItem, models.PayloadEditRemoveItem, models.PayloadEditBack,
	},
	models.StatePackSelectionAdd:       {models.PayloadPackPrefix},
	models.StatePackSelectionRemove:    {models.PayloadPackPrefix},
	models.StateCancelConfirmation:     {models.PayloadYes, models.PayloadNo},
	models.StateConfirmClosedRestaurant: {models.PayloadYes, models.PayloadNo},
	models.StateConfirmClosedDelivery:  {models.PayloadYes, models.PayloadNo},
	models.StateSearchResults:          {models.PayloadSearchResultPrefix, models.PayloadCheckout},
}

// profilePayloads maps each profile sub-state to its accepted payload ids.
var profilePayloads = map[models.ProfileState][]string{
	models.ProfileStateMenu: {
		models.PayloadProfileAddresses, models.PayloadProfilePhone, models.PayloadProfileContinue,
	},
	models.ProfileStateAddressMenu: {
		models.PayloadProfileAddAddress, models.PayloadProfileRemoveAddr,
		models.PayloadProfileBack, models.PayloadProfileContinue,
	},
	models.ProfileStatePhoneMenu: {
		models.PayloadProfileSetPhone, models.PayloadProfileRemovePhone,
		models.PayloadProfileBack, models.PayloadProfileContinue,
	},
	models.ProfileStateWaitingForAddressRemoval: {models.PayloadProfileRmAddrPrefix, models.PayloadProfileBack},
	models.ProfileStateConfirmPhoneRemoval:      {models.PayloadYes, models.PayloadNo},
	models.ProfileStateWaitingForAddress:        {models.PayloadProfileBack},
	models.ProfileStateWaitingForPhone:          {models.PayloadProfileBack},
}

// IsPayloadValidForSession reports whether an interactive payload belongs to
// the session's current state or active profile sub-state.
func IsPayloadValidForSession(s *models.OrderSession, payload string) bool {
	if s.InProfileFlow() {
		if matchPayload(profilePayloads[s.ProfileState], payload) {
			return true
		}
		// The profile entry button is harmless to replay inside the flow.
		return false
	}
	return matchPayload(statePayloads[s.CurrentState], payload)
}

func matchPayload(accepted []string, payload string) bool {
	for _, a := range accepted {
		if strings.HasSuffix(a, "_") {
			if strings.HasPrefix(payload, a) {
				return true
			}
			continue
		}
		if payload == a {
			return true
		}
	}
	return false
}
