package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/address"
	"github.com/Mjnllee/kidfromanila/internal/appointment"
	"github.com/Mjnllee/kidfromanila/internal/cart"
	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/Mjnllee/kidfromanila/internal/events"
	"github.com/Mjnllee/kidfromanila/internal/store"
	"github.com/Mjnllee/kidfromanila/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "user123"

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type fixture struct {
	svc       *Service
	gw        *storetest.FlakyGateway
	mem       *store.MemoryStore
	carts     *cart.Service
	addresses *address.Book
	events    *recordingPublisher
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	gw := storetest.NewFlakyGateway(mem)
	carts := cart.NewService(gw, nil)
	addresses := address.NewBook(gw, nil)
	validator := appointment.NewValidator(appointment.WithClock(func() time.Time { return fixedNow }))
	pub := &recordingPublisher{}

	svc := NewService(gw, carts, addresses, validator, pub, nil)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, gw: gw, mem: mem, carts: carts, addresses: addresses, events: pub}
}

func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, userID, domain.CartItem{ProductID: "p1", ProductName: "Pilot Sport 4", Size: "205/55R16", Price: 100, Quantity: 2})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, userID, domain.CartItem{ProductID: "p2", ProductName: "Turanza", Size: "195/65R15", Price: 50, Quantity: 1})
	require.NoError(t, err)
}

func (f *fixture) addAddress(t *testing.T, name string, makeDefault bool) *domain.Address {
	t.Helper()
	a, err := f.addresses.AddAddress(context.Background(), userID, domain.Address{
		Type:   domain.AddressTypeHome,
		Name:   name,
		Street: "123 Rizal Ave",
		City:   "Manila",
	}, makeDefault)
	require.NoError(t, err)
	return a
}

func (f *fixture) order(t *testing.T, id string) *domain.Order {
	t.Helper()
	snap, err := f.mem.GetDocument(context.Background(), store.OrdersCollection, id)
	require.NoError(t, err)
	require.NotNil(t, snap)
	var o domain.Order
	require.NoError(t, store.Decode(snap.Data, &o))
	return &o
}

func placeRequest(token string) PlaceOrderRequest {
	return PlaceOrderRequest{
		CheckoutToken: token,
		UserID:        userID,
		Items: []domain.CartItem{
			{ProductID: "p1", Size: "205/55R16", Price: 100, Quantity: 2},
		},
		Total:         200,
		Address:       &domain.Address{Type: domain.AddressTypeHome, Name: "Juan", Street: "123 Rizal Ave", City: "Manila"},
		PaymentMethod: domain.PaymentGCash,
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	f := setup(t)
	f.fillCart(t)
	ctx := context.Background()

	req := placeRequest("tok-1")
	req.Appointment = &domain.Appointment{Date: "03-15-2025", Time: "09:30"}

	id, err := f.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", id)

	o := f.order(t, id)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, userID, o.UserID)
	assert.Equal(t, 200.0, o.Total)
	assert.Equal(t, domain.PaymentGCash, o.PaymentMethod)
	assert.Equal(t, "Juan", o.ShippingAddress.Name)
	require.NotNil(t, o.Appointment)
	assert.Equal(t, "03-15-2025", o.Appointment.Date)
	assert.True(t, o.CreatedAt.Equal(fixedNow))

	c, err := f.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, c)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.TypeOrderPlaced, f.events.events[0].Type)
	assert.Equal(t, "tok-1", f.events.events[0].OrderID)
}

func TestPlaceOrder_SnapshotIsFrozen(t *testing.T) {
	f := setup(t)
	req := placeRequest("tok-1")

	id, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	req.Items[0].Quantity = 99
	req.Address.City = "Cebu"

	o := f.order(t, id)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "Manila", o.ShippingAddress.City)
}

func TestPlaceOrder_EmptyCartWritesNoOrder(t *testing.T) {
	f := setup(t)

	req := placeRequest("tok-1")
	req.Items = nil

	_, err := f.svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, f.mem.Len(store.OrdersCollection))
	assert.Empty(t, f.gw.Calls(storetest.OpSet))
	assert.Empty(t, f.gw.Calls(storetest.OpDelete))
}

func TestPlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlaceOrderRequest)
		want   error
	}{
		{"missing address", func(r *PlaceOrderRequest) { r.Address = nil }, domain.ErrAddressRequired},
		{"address checked before items", func(r *PlaceOrderRequest) { r.Address = nil; r.Items = nil }, domain.ErrAddressRequired},
		{"unknown payment method", func(r *PlaceOrderRequest) { r.PaymentMethod = "bitcoin" }, domain.ErrValidation},
		{"negative total", func(r *PlaceOrderRequest) { r.Total = -1 }, domain.ErrValidation},
		{"bad item", func(r *PlaceOrderRequest) { r.Items[0].Quantity = 0 }, domain.ErrValidation},
		{"missing user", func(r *PlaceOrderRequest) { r.UserID = "" }, domain.ErrValidation},
		{"token with slash", func(r *PlaceOrderRequest) { r.CheckoutToken = "a/b" }, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			req := placeRequest("tok-1")
			tt.mutate(&req)

			_, err := f.svc.PlaceOrder(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, f.mem.Len(store.OrdersCollection))
		})
	}
}

func TestPlaceOrder_CreateFailureLeavesCart(t *testing.T) {
	f := setup(t)
	f.fillCart(t)
	f.gw.FailOn(storetest.OpSet, store.OrdersCollection)

	_, err := f.svc.PlaceOrder(context.Background(), placeRequest("tok-1"))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepCreateOrder, stepErr.Step)
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)

	c, err := f.carts.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Empty(t, f.events.events)
}

func TestPlaceOrder_RetryAfterClearCartFailureDoesNotDuplicate(t *testing.T) {
	f := setup(t)
	f.fillCart(t)
	ctx := context.Background()
	f.gw.FailOn(storetest.OpDelete, store.CartsCollection)

	id, err := f.svc.PlaceOrder(ctx, placeRequest("tok-1"))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepClearCart, stepErr.Step)
	assert.Equal(t, "tok-1", stepErr.OrderID)
	assert.Equal(t, "tok-1", id)

	// the order exists and the cart is still there
	assert.Equal(t, 1, f.mem.Len(store.OrdersCollection))
	c, err := f.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.NotNil(t, c)

	f.gw.Heal()
	id, err = f.svc.PlaceOrder(ctx, placeRequest("tok-1"))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", id)
	assert.Equal(t, 1, f.mem.Len(store.OrdersCollection))
	assert.Len(t, f.events.events, 1)

	c, err = f.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestPlaceOrder_WithoutTokenGeneratesID(t *testing.T) {
	f := setup(t)

	id, err := f.svc.PlaceOrder(context.Background(), placeRequest(""))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, f.mem.Len(store.OrdersCollection))
}

func TestPlaceOrder_TokenConflict(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, placeRequest("tok-1"))
	require.NoError(t, err)

	other := placeRequest("tok-1")
	other.UserID = "someone-else"
	_, err = f.svc.PlaceOrder(ctx, other)
	assert.ErrorIs(t, err, ErrTokenConflict)
	assert.Equal(t, userID, f.order(t, "tok-1").UserID)
}

func TestPlaceOrder_PublishFailureIsIgnored(t *testing.T) {
	f := setup(t)
	f.events.err = errors.New("broker down")

	_, err := f.svc.PlaceOrder(context.Background(), placeRequest("tok-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.mem.Len(store.OrdersCollection))
}

func TestCheckout_FromStoredState(t *testing.T) {
	f := setup(t)
	f.fillCart(t)
	f.addAddress(t, "Juan", false)
	work := f.addAddress(t, "Office", true)
	ctx := context.Background()

	id, err := f.svc.Checkout(ctx, CheckoutRequest{
		CheckoutToken:   "tok-1",
		UserID:          userID,
		PaymentMethod:   domain.PaymentCash,
		AppointmentDate: "03152025",
		AppointmentTime: "0930",
	})
	require.NoError(t, err)

	o := f.order(t, id)
	assert.Equal(t, 250.0, o.Total)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, work.ID, o.ShippingAddress.ID)
	require.NotNil(t, o.Appointment)
	assert.Equal(t, domain.Appointment{Date: "03-15-2025", Time: "09:30"}, *o.Appointment)

	// replaying the token after the cart is gone returns the same order
	again, err := f.svc.Checkout(ctx, CheckoutRequest{CheckoutToken: "tok-1", UserID: userID, PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, f.mem.Len(store.OrdersCollection))
}

func TestCheckout_ChosenAddress(t *testing.T) {
	f := setup(t)
	f.fillCart(t)
	f.addAddress(t, "Juan", false)
	other := f.addAddress(t, "Maria", false)

	id, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:        userID,
		PaymentMethod: domain.PaymentMaya,
		AddressID:     other.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria", f.order(t, id).ShippingAddress.Name)
	assert.Nil(t, f.order(t, id).Appointment)
}

func TestCheckout_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("no address", func(t *testing.T) {
		f := setup(t)
		f.fillCart(t)
		_, err := f.svc.Checkout(ctx, CheckoutRequest{UserID: userID, PaymentMethod: domain.PaymentCash})
		assert.ErrorIs(t, err, domain.ErrAddressRequired)
	})

	t.Run("empty cart", func(t *testing.T) {
		f := setup(t)
		f.addAddress(t, "Juan", false)
		_, err := f.svc.Checkout(ctx, CheckoutRequest{UserID: userID, PaymentMethod: domain.PaymentCash})
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
		assert.Equal(t, 0, f.mem.Len(store.OrdersCollection))
	})

	t.Run("invalid appointment", func(t *testing.T) {
		f := setup(t)
		f.fillCart(t)
		f.addAddress(t, "Juan", false)
		_, err := f.svc.Checkout(ctx, CheckoutRequest{
			UserID:          userID,
			PaymentMethod:   domain.PaymentCash,
			AppointmentDate: "02-30-2025",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, 0, f.mem.Len(store.OrdersCollection))
	})

	t.Run("unknown address", func(t *testing.T) {
		f := setup(t)
		f.fillCart(t)
		_, err := f.svc.Checkout(ctx, CheckoutRequest{UserID: userID, PaymentMethod: domain.PaymentCash, AddressID: "nope"})
		assert.ErrorIs(t, err, address.ErrAddressNotFound)
	})
}

// stalledPublisher blocks until its context ends, as a publisher does when
// the broker is unreachable. It records whether the cart was still stored
// when publishing started.
type stalledPublisher struct {
	mem         *store.MemoryStore
	cartPresent bool
	err         error
}

func (p *stalledPublisher) Publish(ctx context.Context, _ events.Event) error {
	p.cartPresent = p.mem.Len(store.CartsCollection) > 0
	<-ctx.Done()
	p.err = ctx.Err()
	return p.err
}

func TestPlaceOrder_StalledPublisherDoesNotBlockCartDeletion(t *testing.T) {
	f := setup(t)
	f.fillCart(t)
	pub := &stalledPublisher{mem: f.mem}
	f.svc.publisher = pub
	f.svc.publishWait = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := f.svc.PlaceOrder(ctx, placeRequest("tok-1"))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", id)
	assert.NoError(t, ctx.Err())

	assert.False(t, pub.cartPresent)
	assert.ErrorIs(t, pub.err, context.DeadlineExceeded)
	assert.Equal(t, 0, f.mem.Len(store.CartsCollection))
	assert.Equal(t, 1, f.mem.Len(store.OrdersCollection))
}

func TestPlaceOrder_PublishRunsAfterCallerDeadline(t *testing.T) {
	f := setup(t)
	f.fillCart(t)
	pub := &stalledPublisher{mem: f.mem}
	f.svc.publishWait = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the request is abandoned as soon as the event goes out
	f.svc.publisher = publisherFunc(func(pctx context.Context, e events.Event) error {
		cancel()
		return pub.Publish(pctx, e)
	})

	_, err := f.svc.PlaceOrder(ctx, placeRequest("tok-2"))
	require.NoError(t, err)
	assert.ErrorIs(t, pub.err, context.DeadlineExceeded)
	assert.Equal(t, 0, f.mem.Len(store.CartsCollection))
}

type publisherFunc func(ctx context.Context, e events.Event) error

func (f publisherFunc) Publish(ctx context.Context, e events.Event) error { return f(ctx, e) }
