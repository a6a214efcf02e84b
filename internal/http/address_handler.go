package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/address"
	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AddressHandler struct {
	book    *address.Book
	timeout time.Duration
}

func NewAddressHandler(book *address.Book, timeout time.Duration) *AddressHandler {
	return &AddressHandler{
		book:    book,
		timeout: timeout,
	}
}

type AddressRequestDTO struct {
	Type        domain.AddressType `json:"type"`
	Name        string             `json:"name"`
	Street      string             `json:"street"`
	City        string             `json:"city"`
	State       string             `json:"state"`
	ZipCode     string             `json:"zipCode"`
	Country     string             `json:"country"`
	Phone       string             `json:"phone"`
	MakeDefault bool               `json:"makeDefault"`
}

func (d AddressRequestDTO) toAddress() domain.Address {
	return domain.Address{
		Type:    d.Type,
		Name:    d.Name,
		Street:  d.Street,
		City:    d.City,
		State:   d.State,
		ZipCode: d.ZipCode,
		Country: d.Country,
		Phone:   d.Phone,
	}
}

func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	addrs, err := h.book.List(ctx, userID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, addrs)
}

func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var req AddressRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	addr, err := h.book.AddAddress(ctx, userID, req.toAddress(), req.MakeDefault)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, addr)
}

func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var req AddressRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	addr, err := h.book.UpdateAddress(ctx, userID, chi.URLParam(r, "id"), req.toAddress())
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, addr)
}

func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	if err := h.book.DeleteAddress(ctx, userID, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	if err := h.book.SetDefault(ctx, userID, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
