package http

import (
	"net/http"

	"github.com/Mjnllee/kidfromanila/internal/appointment"
)

type AppointmentHandler struct {
	validator *appointment.Validator
}

func NewAppointmentHandler(validator *appointment.Validator) *AppointmentHandler {
	return &AppointmentHandler{validator: validator}
}

type ValidateAppointmentRequestDTO struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type ValidateAppointmentResponseDTO struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Complete bool   `json:"complete"`
}

// Validate formats what the customer typed so far. A complete date that is
// not bookable is rejected with 400.
func (h *AppointmentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateAppointmentRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := h.validator.ValidateDate(req.Date)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ValidateAppointmentResponseDTO{
		Date:     date,
		Time:     appointment.FormatTime(req.Time),
		Complete: len(date) == len(appointment.DateLayout),
	})
}
