package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Mjnllee/kidfromanila/internal/address"
	"github.com/Mjnllee/kidfromanila/internal/cart"
	"github.com/Mjnllee/kidfromanila/internal/catalog"
	"github.com/Mjnllee/kidfromanila/internal/checkout"
	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/Mjnllee/kidfromanila/internal/orders"
	"github.com/Mjnllee/kidfromanila/internal/store"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts service errors into HTTP status codes.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var stepErr *checkout.StepError

	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrAddressRequired):
		respondError(w, http.StatusBadRequest, "address_required", err.Error())
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, address.ErrAddressNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrServiceNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, checkout.ErrTokenConflict):
		respondError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.As(err, &stepErr):
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "checkout did not complete, retry with the same checkout token",
			Code:    "checkout_incomplete",
			Details: fmt.Sprintf("step=%s order_id=%s", stepErr.Step, stepErr.OrderID),
		})
	case errors.Is(err, store.ErrStorageUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "storage unavailable, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		zap.L().Error("unhandled error",
			zap.String("request_id", getRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// requireUser writes 401 and returns "" when the caller is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
	}
	return userID
}
