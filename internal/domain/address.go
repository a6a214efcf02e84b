package domain

import (
	"strings"
	"time"
)

type AddressType string

const (
	AddressTypeHome  AddressType = "Home"
	AddressTypeWork  AddressType = "Work"
	AddressTypeOther AddressType = "Other"
)

func (t AddressType) Valid() bool {
	switch t {
	case AddressTypeHome, AddressTypeWork, AddressTypeOther:
		return true
	}
	return false
}

// Address is a shipping address stored at users/{userId}/addresses/{id}.
// Across one user's addresses exactly one has IsDefault set whenever the set
// is non-empty.
type Address struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Type      AddressType `json:"type"`
	Name      string      `json:"name"`
	Street    string      `json:"street"`
	City      string      `json:"city"`
	State     string      `json:"state"`
	ZipCode   string      `json:"zipCode"`
	Country   string      `json:"country"`
	Phone     string      `json:"phone"`
	IsDefault bool        `json:"isDefault"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func (a Address) Validate() error {
	if !a.Type.Valid() {
		return NewValidationError("type", "must be Home, Work or Other")
	}
	if strings.TrimSpace(a.Name) == "" {
		return NewValidationError("name", "recipient name is required")
	}
	if strings.TrimSpace(a.Street) == "" {
		return NewValidationError("street", "is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return NewValidationError("city", "is required")
	}
	return nil
}
