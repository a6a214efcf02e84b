package domain

import "time"

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentGCash  PaymentMethod = "gcash"
	PaymentMaya   PaymentMethod = "maya"
	PaymentPayPal PaymentMethod = "paypal"
	PaymentCard   PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentGCash, PaymentMaya, PaymentPayPal, PaymentCard:
		return true
	}
	return false
}

// Appointment is an optional service booking attached to an order.
// Date is MM-DD-YYYY, Time is HH:MM.
type Appointment struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Order is the snapshot written at checkout. Only Status and UpdatedAt change
// after creation.
type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Items           []CartItem    `json:"items"`
	ShippingAddress Address       `json:"shippingAddress"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	Total           float64       `json:"total"`
	Appointment     *Appointment  `json:"appointment,omitempty"`
	Status          OrderStatus   `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}
