package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Cart         *CartHandler
	Addresses    *AddressHandler
	Appointments *AppointmentHandler
	Checkout     *CheckoutHandler
	Orders       *OrdersHandler
	Catalog      *CatalogHandler
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func NewRouter(h Handlers, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}
	r.Use(AuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{index}", h.Cart.UpdateQuantity)
			r.Delete("/items/{index}", h.Cart.RemoveItem)
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", h.Addresses.List)
			r.Post("/", h.Addresses.Create)
			r.Put("/{id}", h.Addresses.Update)
			r.Delete("/{id}", h.Addresses.Delete)
			r.Post("/{id}/default", h.Addresses.SetDefault)
		})

		r.Post("/appointments/validate", h.Appointments.Validate)
		r.Post("/checkout", h.Checkout.Checkout)

		r.Get("/orders", h.Orders.ListMine)
		r.Get("/orders/{id}", h.Orders.Get)

		r.Get("/services", h.Catalog.ListServices)
		r.Get("/products", h.Catalog.ListProducts)
		r.Get("/products/{id}", h.Catalog.GetProduct)

		r.Route("/staff", func(r chi.Router) {
			r.Use(RequireStaff)

			r.Get("/orders", h.Orders.ListByStatus)
			r.Get("/orders/counts", h.Orders.Counts)
			r.Post("/orders/{id}/status", h.Orders.Transition)

			r.Post("/services", h.Catalog.CreateService)
			r.Put("/services/{id}", h.Catalog.UpdateService)
			r.Post("/services/{id}/availability", h.Catalog.SetAvailability)
		})
	})

	return r
}
