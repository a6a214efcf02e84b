package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/Mjnllee/kidfromanila/internal/events"
	"github.com/Mjnllee/kidfromanila/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CartStore interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type AddressBook interface {
	Get(ctx context.Context, userID, addressID string) (*domain.Address, error)
	Default(ctx context.Context, userID string) (*domain.Address, error)
}

type AppointmentParser interface {
	Parse(date, clock string) (*domain.Appointment, error)
}

type PlaceOrderRequest struct {
	// CheckoutToken is generated by the client and becomes the order ID.
	// Retrying with the same token never creates a second order.
	CheckoutToken string
	UserID        string
	Items         []domain.CartItem
	Total         float64
	Address       *domain.Address
	PaymentMethod domain.PaymentMethod
	Appointment   *domain.Appointment
}

type CheckoutRequest struct {
	CheckoutToken   string
	UserID          string
	PaymentMethod   domain.PaymentMethod
	AddressID       string // empty selects the default address
	AppointmentDate string
	AppointmentTime string
}

type Service struct {
	gw           store.Gateway
	carts        CartStore
	addresses    AddressBook
	appointments AppointmentParser
	publisher    events.Publisher
	publishWait  time.Duration
	log          *zap.Logger
	now          func() time.Time
	newID        func() string
}

func NewService(
	gw store.Gateway,
	carts CartStore,
	addresses AddressBook,
	appointments AppointmentParser,
	publisher events.Publisher,
	log *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		gw:           gw,
		carts:        carts,
		addresses:    addresses,
		appointments: appointments,
		publisher:    publisher,
		publishWait:  events.DefaultPublishTimeout,
		log:          log,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// PlaceOrder writes a pending order snapshot and then deletes the user's
// cart. The two writes are not atomic; a failure is returned as a *StepError.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	orderID := req.CheckoutToken
	if orderID == "" {
		orderID = s.newID()
	}

	exists, err := s.orderExists(ctx, orderID, req.UserID)
	if err != nil {
		return "", err
	}
	if exists {
		s.log.Info("duplicate checkout detected",
			zap.String("order_id", orderID),
			zap.String("user_id", req.UserID))
		return orderID, s.clearCart(ctx, req.UserID, orderID)
	}

	order := s.snapshot(orderID, req)
	doc, err := store.Encode(order)
	if err != nil {
		return "", err
	}
	if err := s.gw.SetDocument(ctx, store.OrdersCollection, orderID, doc, false); err != nil {
		s.log.Error("checkout failed",
			zap.String("step", StepCreateOrder),
			zap.String("order_id", orderID),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return "", &StepError{Step: StepCreateOrder, OrderID: orderID, Err: err}
	}

	// the cart goes right after the order; nothing may run in between
	clearErr := s.clearCart(ctx, req.UserID, orderID)

	s.publish(ctx, events.Event{
		Type:       events.TypeOrderPlaced,
		OrderID:    orderID,
		UserID:     order.UserID,
		Status:     order.Status.String(),
		Total:      order.Total,
		OccurredAt: order.CreatedAt,
	})

	return orderID, clearErr
}

// Checkout places an order from the user's stored cart, the chosen or
// default address and the typed appointment.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (string, error) {
	if req.UserID == "" {
		return "", domain.NewValidationError("userId", "must be set")
	}

	// a replayed token resumes the earlier checkout even if its cart is gone
	if req.CheckoutToken != "" {
		exists, err := s.orderExists(ctx, req.CheckoutToken, req.UserID)
		if err != nil {
			return "", err
		}
		if exists {
			return req.CheckoutToken, s.clearCart(ctx, req.UserID, req.CheckoutToken)
		}
	}

	addr, err := s.resolveAddress(ctx, req.UserID, req.AddressID)
	if err != nil {
		return "", err
	}

	c, err := s.carts.GetCart(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	if c.IsEmpty() {
		return "", domain.ErrEmptyCart
	}

	appt, err := s.appointments.Parse(req.AppointmentDate, req.AppointmentTime)
	if err != nil {
		return "", err
	}

	return s.PlaceOrder(ctx, PlaceOrderRequest{
		CheckoutToken: req.CheckoutToken,
		UserID:        req.UserID,
		Items:         c.Items,
		Total:         domain.ComputeTotal(c.Items),
		Address:       addr,
		PaymentMethod: req.PaymentMethod,
		Appointment:   appt,
	})
}

func validate(req PlaceOrderRequest) error {
	if req.UserID == "" {
		return domain.NewValidationError("userId", "must be set")
	}
	if req.Address == nil {
		return domain.ErrAddressRequired
	}
	if len(req.Items) == 0 {
		return domain.ErrEmptyCart
	}
	for _, item := range req.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if !req.PaymentMethod.Valid() {
		return domain.NewValidationError("paymentMethod", fmt.Sprintf("unsupported payment method %q", req.PaymentMethod))
	}
	if req.Total < 0 {
		return domain.NewValidationError("total", "must not be negative")
	}
	if strings.Contains(req.CheckoutToken, "/") {
		return domain.NewValidationError("checkoutToken", "must not contain '/'")
	}
	return nil
}

func (s *Service) resolveAddress(ctx context.Context, userID, addressID string) (*domain.Address, error) {
	if addressID != "" {
		return s.addresses.Get(ctx, userID, addressID)
	}
	addr, err := s.addresses.Default(ctx, userID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, domain.ErrAddressRequired
	}
	return addr, nil
}

// orderExists reports whether orderID was already written for userID.
func (s *Service) orderExists(ctx context.Context, orderID, userID string) (bool, error) {
	snap, err := s.gw.GetDocument(ctx, store.OrdersCollection, orderID)
	if err != nil {
		return false, &StepError{Step: StepCreateOrder, OrderID: orderID, Err: err}
	}
	if snap == nil {
		return false, nil
	}

	owner, _ := snap.Data["userId"].(string)
	if owner != userID {
		return false, ErrTokenConflict
	}
	return true, nil
}

func (s *Service) snapshot(orderID string, req PlaceOrderRequest) *domain.Order {
	now := s.now()
	order := &domain.Order{
		ID:              orderID,
		UserID:          req.UserID,
		Items:           domain.CloneItems(req.Items),
		ShippingAddress: *req.Address,
		PaymentMethod:   req.PaymentMethod,
		Total:           req.Total,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Appointment != nil {
		appt := *req.Appointment
		order.Appointment = &appt
	}
	return order
}

func (s *Service) clearCart(ctx context.Context, userID, orderID string) error {
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		s.log.Error("checkout failed",
			zap.String("step", StepClearCart),
			zap.String("order_id", orderID),
			zap.String("user_id", userID),
			zap.Error(err))
		return &StepError{Step: StepClearCart, OrderID: orderID, Err: err}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := events.PublishDetached(ctx, s.publisher, event, s.publishWait); err != nil {
		s.log.Warn("failed to publish order event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
	}
}
