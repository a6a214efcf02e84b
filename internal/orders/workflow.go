package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/Mjnllee/kidfromanila/internal/events"
	"github.com/Mjnllee/kidfromanila/internal/store"
	"go.uber.org/zap"
)

var ErrOrderNotFound = errors.New("order not found")

// StatusAll is the StatusCounts key holding the number of all orders.
const StatusAll = "all"

// Workflow drives orders through their status state machine:
//
//	pending  -> approved | cancelled
//	approved -> shipped
//	shipped  -> delivered
//
// Only status and updatedAt are ever written after an order is created.
type Workflow struct {
	gw          store.Gateway
	publisher   events.Publisher
	publishWait time.Duration
	log         *zap.Logger
	now         func() time.Time
}

func NewWorkflow(gw store.Gateway, publisher events.Publisher, log *zap.Logger) *Workflow {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{
		gw:          gw,
		publisher:   publisher,
		publishWait: events.DefaultPublishTimeout,
		log:         log,
		now:         time.Now,
	}
}

func (w *Workflow) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrOrderNotFound
	}
	snap, err := w.gw.GetDocument(ctx, store.OrdersCollection, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if snap == nil {
		return nil, ErrOrderNotFound
	}
	return decodeOrder(*snap)
}

// Transition moves the order to target if the state machine allows it.
func (w *Workflow) Transition(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	if !target.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown order status %q", target))
	}

	order, err := w.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if !from.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, target)
	}

	now := w.now()
	patch := store.Document{"status": target, "updatedAt": now}
	if err := w.gw.SetDocument(ctx, store.OrdersCollection, orderID, patch, true); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = target
	order.UpdatedAt = now

	w.log.Info("order status changed",
		zap.String("order_id", orderID),
		zap.Stringer("from", from),
		zap.Stringer("to", target))

	event := events.Event{
		Type:       events.TypeOrderStatusChanged,
		OrderID:    orderID,
		UserID:     order.UserID,
		Status:     target.String(),
		FromStatus: from.String(),
		OccurredAt: now,
	}
	if err := events.PublishDetached(ctx, w.publisher, event, w.publishWait); err != nil {
		w.log.Warn("failed to publish order event", zap.String("order_id", orderID), zap.Error(err))
	}
	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (w *Workflow) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.NewValidationError("userId", "must be set")
	}
	return w.query(ctx, "userId", userID)
}

// ListByStatus returns the orders in one status, newest first.
func (w *Workflow) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown order status %q", status))
	}
	return w.query(ctx, "status", status)
}

// ListAll returns every order across all statuses, newest first.
func (w *Workflow) ListAll(ctx context.Context) ([]domain.Order, error) {
	all := make([]domain.Order, 0)
	for _, status := range domain.OrderStatuses {
		list, err := w.ListByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
	}
	sortNewestFirst(all)
	return all, nil
}

// StatusCounts counts orders per status; StatusAll holds the total.
func (w *Workflow) StatusCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(domain.OrderStatuses)+1)
	for _, status := range domain.OrderStatuses {
		list, err := w.ListByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[status.String()] = len(list)
		counts[StatusAll] += len(list)
	}
	return counts, nil
}

func (w *Workflow) query(ctx context.Context, field string, value any) ([]domain.Order, error) {
	snaps, err := w.gw.QueryEquals(ctx, store.OrdersCollection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	list := make([]domain.Order, 0, len(snaps))
	for _, snap := range snaps {
		o, err := decodeOrder(snap)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}

	sortNewestFirst(list)
	return list, nil
}

func sortNewestFirst(list []domain.Order) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func decodeOrder(snap store.Snapshot) (*domain.Order, error) {
	var o domain.Order
	if err := store.Decode(snap.Data, &o); err != nil {
		return nil, err
	}
	o.ID = snap.ID
	return &o, nil
}
