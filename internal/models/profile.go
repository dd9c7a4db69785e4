package models

import (
	"errors"
	"time"
)

// MaxProfileAddresses caps how many saved addresses one profile may hold.
const MaxProfileAddresses = 9

// Validation errors for profile input.
var (
	ErrAddressTooShort     = errors.New("address must be at least 10 characters")
	ErrAddressLimitReached = errors.New("address book is full")
	ErrAddressLooksCommand = errors.New("address contains command keywords")
	ErrInvalidPhone        = errors.New("phone number is not valid")
)

// CustomerAddress is one saved free-text address.
type CustomerAddress struct {
	ID        int64     `json:"id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// CustomerProfile is the customer's address book and contact phone for one
// business. Profiles are created lazily and outlive order sessions.
type CustomerProfile struct {
	BusinessID   string            `json:"business_id"`
	PhoneNumber  string            `json:"phone_number"`
	ContactPhone string            `json:"contact_phone,omitempty"`
	Addresses    []CustomerAddress `json:"addresses,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
