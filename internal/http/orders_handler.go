package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/Mjnllee/kidfromanila/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	workflow *orders.Workflow
	timeout  time.Duration
}

func NewOrdersHandler(workflow *orders.Workflow, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		workflow: workflow,
		timeout:  timeout,
	}
}

type TransitionRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	list, err := h.workflow.ListByUser(ctx, userID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// Get returns one order. Customers only see their own orders; another
// user's order is reported as not found.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	order, err := h.workflow.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if order.UserID != userID && !isStaff(r.Context()) {
		handleError(w, r, orders.ErrOrderNotFound)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// ListByStatus serves the staff dashboard. An empty or "all" status lists
// every order.
func (h *OrdersHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := r.URL.Query().Get("status")
	if status == "" {
		status = orders.StatusAll
	}

	var (
		list []domain.Order
		err  error
	)
	if status == orders.StatusAll {
		list, err = h.workflow.ListAll(ctx)
	} else {
		list, err = h.workflow.ListByStatus(ctx, domain.OrderStatus(status))
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) Counts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	counts, err := h.workflow.StatusCounts(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, counts)
}

func (h *OrdersHandler) Transition(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req TransitionRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.workflow.Transition(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
