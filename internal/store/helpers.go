package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tablelink/ordergate/internal/models"
)

// DetectDSNType reports "postgres" for PostgreSQL-looking DSNs, otherwise
// "sqlite" (a file path is assumed to be an SQLite database).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalSessionBlobs serializes the cart and pending queues for storage in
// the session row's JSON columns.
func marshalSessionBlobs(s models.OrderSession) (cartJSON, parentsJSON, toppingsJSON string, err error) {
	cart, err := json.Marshal(s.Cart)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal cart failed: %w", err)
	}
	parents, err := json.Marshal(s.PendingParents)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal pending parents failed: %w", err)
	}
	toppings, err := json.Marshal(s.PendingTops)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal pending toppings failed: %w", err)
	}
	return string(cart), string(parents), string(toppings), nil
}

// unmarshalSessionBlobs restores the cart and pending queues from the
// session row's JSON columns. Empty columns leave zero values.
func unmarshalSessionBlobs(s *models.OrderSession, cartJSON, parentsJSON, toppingsJSON sql.NullString) error {
	if cartJSON.Valid && cartJSON.String != "" {
		if err := json.Unmarshal([]byte(cartJSON.String), &s.Cart); err != nil {
			return fmt.Errorf("unmarshal cart failed: %w", err)
		}
	}
	if parentsJSON.Valid && parentsJSON.String != "" {
		if err := json.Unmarshal([]byte(parentsJSON.String), &s.PendingParents); err != nil {
			return fmt.Errorf("unmarshal pending parents failed: %w", err)
		}
	}
	if toppingsJSON.Valid && toppingsJSON.String != "" {
		if err := json.Unmarshal([]byte(toppingsJSON.String), &s.PendingTops); err != nil {
			return fmt.Errorf("unmarshal pending toppings failed: %w", err)
		}
	}
	return nil
}

// scanSession reads one order_sessions row. The caller supplies the Scan
// function of either sql.Row or sql.Rows.
func scanSession(scan func(dest ...interface{}) error) (*models.OrderSession, error) {
	var s models.OrderSession
	var profileState, deliveryMethod, deliveryAddress, deliveryChargeID sql.NullString
	var contactPhone, notes, discountCode, discountType, currentPackID sql.NullString
	var categoryID, subcategoryID, editingGroupID, editGroupsJSON sql.NullString
	var cartJSON, parentsJSON, toppingsJSON, lastPromptJSON sql.NullString

	err := scan(
		&s.BusinessID, &s.PhoneNumber, &s.CurrentState, &profileState,
		&cartJSON, &parentsJSON, &toppingsJSON,
		&s.RevenueCenterID, &deliveryMethod, &deliveryAddress, &deliveryChargeID,
		&contactPhone, &notes, &discountCode, &discountType,
		&s.DiscountValue, &s.DiscountAmount, &currentPackID,
		&categoryID, &subcategoryID, &s.MenuLevel,
		&s.IsEditing, &editingGroupID, &editGroupsJSON, &lastPromptJSON,
		&s.LastInteraction, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.ProfileState = models.ProfileState(profileState.String)
	s.DeliveryMethod = deliveryMethod.String
	s.DeliveryAddress = deliveryAddress.String
	s.DeliveryChargeID = deliveryChargeID.String
	s.ContactPhone = contactPhone.String
	s.Notes = notes.String
	s.DiscountCode = discountCode.String
	s.DiscountType = discountType.String
	s.CurrentPackID = currentPackID.String
	s.CategoryID = categoryID.String
	s.SubcategoryID = subcategoryID.String
	s.EditingGroupID = editingGroupID.String
	if s.CurrentPackID == "" {
		s.CurrentPackID = models.DefaultPackID
	}
	if editGroupsJSON.Valid && editGroupsJSON.String != "" {
		if err := json.Unmarshal([]byte(editGroupsJSON.String), &s.EditGroupsData); err != nil {
			return nil, fmt.Errorf("unmarshal edit groups failed: %w", err)
		}
	}
	if lastPromptJSON.Valid && lastPromptJSON.String != "" {
		if err := json.Unmarshal([]byte(lastPromptJSON.String), &s.LastPromptPayloads); err != nil {
			return nil, fmt.Errorf("unmarshal prompt payloads failed: %w", err)
		}
	}
	if err := unmarshalSessionBlobs(&s, cartJSON, parentsJSON, toppingsJSON); err != nil {
		return nil, err
	}
	return &s, nil
}

// sessionColumns is the column list matching scanSession's scan order.
const sessionColumns = `business_id, phone_number, current_state, profile_state,
	cart_data, pending_parents, pending_toppings,
	revenue_center_id, delivery_method, delivery_address, delivery_charge_id,
	contact_phone, notes, discount_code, discount_type,
	discount_value, discount_amount, current_pack_id,
	category_id, subcategory_id, menu_level,
	is_editing, editing_group_id, edit_groups_data, last_prompt_payloads,
	last_interaction, created_at`
