// Package profile implements the customer profile sub-flow: a secondary
// state machine that interrupts the order conversation to manage saved
// addresses and the contact phone, then hands control back to the order
// flow.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tablelink/ordergate/internal/messaging"
	"github.com/tablelink/ordergate/internal/models"
	"github.com/tablelink/ordergate/internal/store"
	"github.com/tablelink/ordergate/internal/validation"
)

// MinAddressLength is the shortest free-text address accepted.
const MinAddressLength = 10

// Manager runs the profile sub-flow. It mutates the session's ProfileState
// and the stored CustomerProfile; the caller persists the session.
type Manager struct {
	store store.Store
	msg   messaging.Service
}

// NewManager creates a profile manager.
func NewManager(st store.Store, msg messaging.Service) *Manager {
	return &Manager{store: st, msg: msg}
}

// Load returns the customer's profile, or nil when none exists yet.
func (m *Manager) Load(businessID, phoneNumber string) (*models.CustomerProfile, error) {
	return m.store.GetProfile(businessID, phoneNumber)
}

// loadOrCreate returns the profile, creating an empty one lazily.
func (m *Manager) loadOrCreate(businessID, phoneNumber string) (*models.CustomerProfile, error) {
	p, err := m.store.GetProfile(businessID, phoneNumber)
	if err != nil {
		return nil, err
	}
	if p == nil {
		now := time.Now()
		p = &models.CustomerProfile{
			BusinessID:  businessID,
			PhoneNumber: phoneNumber,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return p, nil
}

// SaveContactPhone stores a contact phone on the profile, creating the
// profile if needed. Also used by the order flow's contact-phone step.
func (m *Manager) SaveContactPhone(businessID, phoneNumber, contactPhone string) error {
	normalized, ok := NormalizePhone(contactPhone)
	if !ok {
		return models.ErrInvalidPhone
	}
	p, err := m.loadOrCreate(businessID, phoneNumber)
	if err != nil {
		return err
	}
	p.ContactPhone = normalized
	p.UpdatedAt = time.Now()
	return m.store.SaveProfile(*p)
}

// SaveAddress appends a free-text address, enforcing the address cap and
// rejecting command-like input. Also used by the order flow's
// address-save prompt.
func (m *Manager) SaveAddress(businessID, phoneNumber, address string) error {
	address = strings.TrimSpace(address)
	if len(address) < MinAddressLength {
		return models.ErrAddressTooShort
	}
	if validation.ContainsCommandToken(address) {
		return models.ErrAddressLooksCommand
	}
	p, err := m.loadOrCreate(businessID, phoneNumber)
	if err != nil {
		return err
	}
	if len(p.Addresses) >= models.MaxProfileAddresses {
		return models.ErrAddressLimitReached
	}
	p.Addresses = append(p.Addresses, models.CustomerAddress{Address: address, CreatedAt: time.Now()})
	p.UpdatedAt = time.Now()
	return m.store.SaveProfile(*p)
}

// Enter activates the profile sub-flow and renders its menu.
func (m *Manager) Enter(ctx context.Context, sess *models.OrderSession) error {
	sess.ProfileState = models.ProfileStateMenu
	return m.renderMenu(ctx, sess)
}

// RenderPrompt re-sends the prompt for the active profile sub-state. The
// engine calls this when a stale click lands while the sub-flow owns the
// conversation, so the customer is reminded of the sub-flow's own prompt
// rather than shown the primary order prompt.
func (m *Manager) RenderPrompt(ctx context.Context, sess *models.OrderSession) error {
	switch sess.ProfileState {
	case models.ProfileStateAddressMenu:
		return m.renderAddressMenu(ctx, sess)
	case models.ProfileStatePhoneMenu:
		return m.renderPhoneMenu(ctx, sess)
	case models.ProfileStateWaitingForAddress:
		sess.LastPromptPayloads = nil
		return m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
			"Please type the address you want to save (at least 10 characters).")
	case models.ProfileStateWaitingForAddressRemoval:
		p, err := m.Load(sess.BusinessID, sess.PhoneNumber)
		if err != nil {
			return err
		}
		if p == nil || len(p.Addresses) == 0 {
			return m.renderAddressMenu(ctx, sess)
		}
		return m.renderAddressRemovalList(ctx, sess, p)
	case models.ProfileStateWaitingForPhone:
		sess.LastPromptPayloads = nil
		return m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
			"Please type the contact phone number for your orders.")
	case models.ProfileStateConfirmPhoneRemoval:
		return m.renderPhoneRemovalConfirm(ctx, sess, "Remove saved contact phone?")
	default:
		return m.renderMenu(ctx, sess)
	}
}

// HandleMessage processes one turn while the profile sub-flow is active.
// It returns true when the customer chose to continue the order: the caller
// must then re-render the primary state's prompt so the customer is never
// left without one.
func (m *Manager) HandleMessage(ctx context.Context, sess *models.OrderSession, msg models.IncomingMessage) (resumed bool, err error) {
	input := msg.Content
	if msg.IsInteractive() {
		input = msg.InteractivePayload
	}
	input = strings.TrimSpace(input)

	if input == models.PayloadProfileContinue || strings.EqualFold(input, "continue order") {
		sess.ProfileState = models.ProfileStateNone
		slog.Debug("Profile flow resumed order", "businessID", sess.BusinessID, "phone", sess.PhoneNumber)
		return true, nil
	}

	switch sess.ProfileState {
	case models.ProfileStateMenu:
		return false, m.handleMenu(ctx, sess, input)
	case models.ProfileStateAddressMenu:
		return false, m.handleAddressMenu(ctx, sess, input)
	case models.ProfileStatePhoneMenu:
		return false, m.handlePhoneMenu(ctx, sess, input)
	case models.ProfileStateWaitingForAddress:
		return false, m.handleNewAddress(ctx, sess, input)
	case models.ProfileStateWaitingForAddressRemoval:
		return false, m.handleAddressRemoval(ctx, sess, input)
	case models.ProfileStateWaitingForPhone:
		return false, m.handleNewPhone(ctx, sess, input)
	case models.ProfileStateConfirmPhoneRemoval:
		return false, m.handlePhoneRemoval(ctx, sess, input)
	default:
		// Unknown sub-state: bail out to the order flow rather than trap
		// the customer.
		sess.ProfileState = models.ProfileStateNone
		return true, nil
	}
}

func (m *Manager) handleMenu(ctx context.Context, sess *models.OrderSession, input string) error {
	switch input {
	case models.PayloadProfileAddresses:
		sess.ProfileState = models.ProfileStateAddressMenu
		return m.renderAddressMenu(ctx, sess)
	case models.PayloadProfilePhone:
		sess.ProfileState = models.ProfileStatePhoneMenu
		return m.renderPhoneMenu(ctx, sess)
	default:
		return m.renderMenu(ctx, sess)
	}
}

func (m *Manager) handleAddressMenu(ctx context.Context, sess *models.OrderSession, input string) error {
	switch input {
	case models.PayloadProfileAddAddress:
		p, err := m.loadOrCreate(sess.BusinessID, sess.PhoneNumber)
		if err != nil {
			return err
		}
		if len(p.Addresses) >= models.MaxProfileAddresses {
			if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
				fmt.Sprintf("Your address book is full (%d addresses). Remove one first.", models.MaxProfileAddresses)); err != nil {
				return err
			}
			return m.renderAddressMenu(ctx, sess)
		}
		sess.ProfileState = models.ProfileStateWaitingForAddress
		sess.LastPromptPayloads = nil
		return m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
			"Please type the address you want to save (at least 10 characters).")
	case models.PayloadProfileRemoveAddr:
		p, err := m.Load(sess.BusinessID, sess.PhoneNumber)
		if err != nil {
			return err
		}
		if p == nil || len(p.Addresses) == 0 {
			if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber, "You have no saved addresses."); err != nil {
				return err
			}
			return m.renderAddressMenu(ctx, sess)
		}
		sess.ProfileState = models.ProfileStateWaitingForAddressRemoval
		return m.renderAddressRemovalList(ctx, sess, p)
	case models.PayloadProfileBack:
		sess.ProfileState = models.ProfileStateMenu
		return m.renderMenu(ctx, sess)
	default:
		return m.renderAddressMenu(ctx, sess)
	}
}

func (m *Manager) handlePhoneMenu(ctx context.Context, sess *models.OrderSession, input string) error {
	switch input {
	case models.PayloadProfileSetPhone:
		sess.ProfileState = models.ProfileStateWaitingForPhone
		sess.LastPromptPayloads = nil
		return m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
			"Please type the contact phone number for your orders.")
	case models.PayloadProfileRemovePhone:
		p, err := m.Load(sess.BusinessID, sess.PhoneNumber)
		if err != nil {
			return err
		}
		if p == nil || p.ContactPhone == "" {
			if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber, "You have no saved contact phone."); err != nil {
				return err
			}
			return m.renderPhoneMenu(ctx, sess)
		}
		sess.ProfileState = models.ProfileStateConfirmPhoneRemoval
		return m.renderPhoneRemovalConfirm(ctx, sess,
			fmt.Sprintf("Remove saved contact phone %s?", p.ContactPhone))
	case models.PayloadProfileBack:
		sess.ProfileState = models.ProfileStateMenu
		return m.renderMenu(ctx, sess)
	default:
		return m.renderPhoneMenu(ctx, sess)
	}
}

func (m *Manager) handleNewAddress(ctx context.Context, sess *models.OrderSession, input string) error {
	if input == models.PayloadProfileBack {
		sess.ProfileState = models.ProfileStateAddressMenu
		return m.renderAddressMenu(ctx, sess)
	}
	err := m.SaveAddress(sess.BusinessID, sess.PhoneNumber, input)
	switch err {
	case nil:
		sess.ProfileState = models.ProfileStateAddressMenu
		if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber, "Address saved."); err != nil {
			return err
		}
		return m.renderAddressMenu(ctx, sess)
	case models.ErrAddressTooShort:
		return m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
			"That address looks too short. Please send the full address (at least 10 characters).")
	case models.ErrAddressLooksCommand:
		return m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
			"That text contains menu keywords and cannot be saved as an address. Please send the address only.")
	case models.ErrAddressLimitReached:
		sess.ProfileState = models.ProfileStateAddressMenu
		if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
			fmt.Sprintf("Your address book is full (%d addresses). Remove one first.", models.MaxProfileAddresses)); err != nil {
			return err
		}
		return m.renderAddressMenu(ctx, sess)
	default:
		return err
	}
}

func (m *Manager) handleAddressRemoval(ctx context.Context, sess *models.OrderSession, input string) error {
	if input == models.PayloadProfileBack {
		sess.ProfileState = models.ProfileStateAddressMenu
		return m.renderAddressMenu(ctx, sess)
	}
	id := strings.TrimPrefix(input, models.PayloadProfileRmAddrPrefix)
	p, err := m.Load(sess.BusinessID, sess.PhoneNumber)
	if err != nil {
		return err
	}
	if p != nil {
		kept := p.Addresses[:0]
		removed := false
		for _, a := range p.Addresses {
			if fmt.Sprintf("%d", a.ID) == id {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		if removed {
			p.Addresses = kept
			p.UpdatedAt = time.Now()
			if err := m.store.SaveProfile(*p); err != nil {
				return err
			}
			sess.ProfileState = models.ProfileStateAddressMenu
			if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber, "Address removed."); err != nil {
				return err
			}
			return m.renderAddressMenu(ctx, sess)
		}
	}
	if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber, "That address was not found."); err != nil {
		return err
	}
	sess.ProfileState = models.ProfileStateAddressMenu
	return m.renderAddressMenu(ctx, sess)
}

func (m *Manager) handleNewPhone(ctx context.Context, sess *models.OrderSession, input string) error {
	if input == models.PayloadProfileBack {
		sess.ProfileState = models.ProfileStatePhoneMenu
		return m.renderPhoneMenu(ctx, sess)
	}
	if err := m.SaveContactPhone(sess.BusinessID, sess.PhoneNumber, input); err != nil {
		if err == models.ErrInvalidPhone {
			return m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber,
				"That doesn't look like a phone number. Please send digits only, e.g. +2348012345678.")
		}
		return err
	}
	sess.ProfileState = models.ProfileStatePhoneMenu
	if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber, "Contact phone saved."); err != nil {
		return err
	}
	return m.renderPhoneMenu(ctx, sess)
}

func (m *Manager) handlePhoneRemoval(ctx context.Context, sess *models.OrderSession, input string) error {
	switch input {
	case models.PayloadYes:
		p, err := m.Load(sess.BusinessID, sess.PhoneNumber)
		if err != nil {
			return err
		}
		if p != nil {
			p.ContactPhone = ""
			p.UpdatedAt = time.Now()
			if err := m.store.SaveProfile(*p); err != nil {
				return err
			}
		}
		sess.ProfileState = models.ProfileStatePhoneMenu
		if err := m.msg.SendText(ctx, sess.BusinessID, sess.PhoneNumber, "Contact phone removed."); err != nil {
			return err
		}
		return m.renderPhoneMenu(ctx, sess)
	case models.PayloadNo:
		sess.ProfileState = models.ProfileStatePhoneMenu
		return m.renderPhoneMenu(ctx, sess)
	default:
		return m.renderPhoneRemovalConfirm(ctx, sess, "Remove saved contact phone?")
	}
}

func (m *Manager) renderPhoneRemovalConfirm(ctx context.Context, sess *models.OrderSession, body string) error {
	sess.LastPromptPayloads = []string{models.PayloadYes, models.PayloadNo}
	return m.msg.SendInteractiveButtons(ctx, sess.BusinessID, sess.PhoneNumber, body,
		[]messaging.Button{
			{ID: models.PayloadYes, Title: "Yes, remove"},
			{ID: models.PayloadNo, Title: "No, keep it"},
		}, "")
}

func (m *Manager) renderMenu(ctx context.Context, sess *models.OrderSession) error {
	sess.LastPromptPayloads = []string{models.PayloadProfileAddresses, models.PayloadProfilePhone, models.PayloadProfileContinue}
	return m.msg.SendInteractiveButtons(ctx, sess.BusinessID, sess.PhoneNumber,
		"What would you like to manage?",
		[]messaging.Button{
			{ID: models.PayloadProfileAddresses, Title: "My addresses"},
			{ID: models.PayloadProfilePhone, Title: "Contact phone"},
			{ID: models.PayloadProfileContinue, Title: "Continue order"},
		}, "")
}

func (m *Manager) renderAddressMenu(ctx context.Context, sess *models.OrderSession) error {
	p, err := m.Load(sess.BusinessID, sess.PhoneNumber)
	if err != nil {
		return err
	}
	count := 0
	if p != nil {
		count = len(p.Addresses)
	}
	sess.LastPromptPayloads = []string{models.PayloadProfileAddAddress, models.PayloadProfileRemoveAddr, models.PayloadProfileContinue}
	return m.msg.SendInteractiveButtons(ctx, sess.BusinessID, sess.PhoneNumber,
		fmt.Sprintf("You have %d saved address(es).", count),
		[]messaging.Button{
			{ID: models.PayloadProfileAddAddress, Title: "Add address"},
			{ID: models.PayloadProfileRemoveAddr, Title: "Remove address"},
			{ID: models.PayloadProfileContinue, Title: "Continue order"},
		}, "")
}

func (m *Manager) renderPhoneMenu(ctx context.Context, sess *models.OrderSession) error {
	p, err := m.Load(sess.BusinessID, sess.PhoneNumber)
	if err != nil {
		return err
	}
	body := "No contact phone saved."
	if p != nil && p.ContactPhone != "" {
		body = "Saved contact phone: " + p.ContactPhone
	}
	sess.LastPromptPayloads = []string{models.PayloadProfileSetPhone, models.PayloadProfileRemovePhone, models.PayloadProfileContinue}
	return m.msg.SendInteractiveButtons(ctx, sess.BusinessID, sess.PhoneNumber, body,
		[]messaging.Button{
			{ID: models.PayloadProfileSetPhone, Title: "Set phone"},
			{ID: models.PayloadProfileRemovePhone, Title: "Remove phone"},
			{ID: models.PayloadProfileContinue, Title: "Continue order"},
		}, "")
}

func (m *Manager) renderAddressRemovalList(ctx context.Context, sess *models.OrderSession, p *models.CustomerProfile) error {
	var rows []messaging.ListRow
	sess.LastPromptPayloads = nil
	for _, a := range p.Addresses {
		id := fmt.Sprintf("%s%d", models.PayloadProfileRmAddrPrefix, a.ID)
		sess.LastPromptPayloads = append(sess.LastPromptPayloads, id)
		rows = append(rows, messaging.ListRow{
			ID:    id,
			Title: truncate(a.Address, 24),
		})
	}
	return m.msg.SendInteractiveList(ctx, sess.BusinessID, sess.PhoneNumber,
		"Which address should be removed?", "Select address",
		[]messaging.ListSection{{Title: "Saved addresses", Rows: rows}})
}

// NormalizePhone strips formatting and validates a phone-like string,
// returning digits with an optional leading plus.
func NormalizePhone(v string) (string, bool) {
	var b strings.Builder
	v = strings.TrimSpace(v)
	for i, r := range v {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// formatting, ignore
		default:
			return "", false
		}
	}
	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", false
	}
	return b.String(), true
}

// truncate counts runes so a multi-byte address is never cut mid-character.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
