package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/catalog"
	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
	timeout time.Duration
}

func NewCatalogHandler(c *catalog.Catalog, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: c,
		timeout: timeout,
	}
}

type ServiceRequestDTO struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Duration    int     `json:"duration"`
	IsAvailable bool    `json:"isAvailable"`
}

type AvailabilityRequestDTO struct {
	IsAvailable bool `json:"isAvailable"`
}

func (d ServiceRequestDTO) toService(id string) domain.Service {
	return domain.Service{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Price:       d.Price,
		Duration:    d.Duration,
		IsAvailable: d.IsAvailable,
	}
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	category := r.URL.Query().Get("category")
	if category == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "category query parameter is required")
		return
	}

	products, err := h.catalog.ListProductsByCategory(ctx, category)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	services, err := h.catalog.ListAvailableServices(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, services)
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ServiceRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	svc, err := h.catalog.SaveService(ctx, req.toService(""))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, svc)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ServiceRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "service id is required")
		return
	}

	svc, err := h.catalog.SaveService(ctx, req.toService(id))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, svc)
}

func (h *CatalogHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AvailabilityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.catalog.SetServiceAvailability(ctx, chi.URLParam(r, "id"), req.IsAvailable); err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
