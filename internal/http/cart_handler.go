package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/cart"
	"github.com/Mjnllee/kidfromanila/internal/catalog"
	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	carts   *cart.Service
	catalog *catalog.Catalog
	timeout time.Duration
}

func NewCartHandler(carts *cart.Service, cat *catalog.Catalog, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: cat,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	UserID string            `json:"userId"`
	Items  []domain.CartItem `json:"items"`
	Total  float64           `json:"total"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	item, err := product.LineItem(req.Size, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}

	c, err := h.carts.AddItem(ctx, userID, item)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(userID, c))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	c, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(userID, c))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	c, err := h.carts.SetQuantity(ctx, userID, index, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(userID, c))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(ctx, userID, index)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(userID, c))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	if err := h.carts.ClearCart(ctx, userID); err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

// cartResponse renders a missing cart as an empty one.
func cartResponse(userID string, c *domain.Cart) CartResponseDTO {
	if c == nil {
		return CartResponseDTO{UserID: userID, Items: []domain.CartItem{}}
	}
	return CartResponseDTO{UserID: userID, Items: c.Items, Total: c.Total()}
}
