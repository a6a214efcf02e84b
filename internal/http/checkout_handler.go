package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/checkout"
	"github.com/Mjnllee/kidfromanila/internal/domain"
)

type CheckoutHandler struct {
	checkout *checkout.Service
	timeout  time.Duration
}

func NewCheckoutHandler(svc *checkout.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	CheckoutToken   string               `json:"checkoutToken"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	AddressID       string               `json:"addressId"`
	AppointmentDate string               `json:"appointmentDate"`
	AppointmentTime string               `json:"appointmentTime"`
}

type CheckoutResponseDTO struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Checkout places an order from the caller's cart. The checkout token may
// also be sent as an Idempotency-Key header.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var req CheckoutRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CheckoutToken == "" {
		req.CheckoutToken = r.Header.Get("Idempotency-Key")
	}

	orderID, err := h.checkout.Checkout(ctx, checkout.CheckoutRequest{
		CheckoutToken:   req.CheckoutToken,
		UserID:          userID,
		PaymentMethod:   req.PaymentMethod,
		AddressID:       req.AddressID,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		OrderID: orderID,
		Status:  domain.OrderStatusPending.String(),
	})
}
