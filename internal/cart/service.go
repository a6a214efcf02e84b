package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/Mjnllee/kidfromanila/internal/store"
	"go.uber.org/zap"
)

var ErrCartNotFound = errors.New("cart not found")

// Service keeps one cart document per user. A cart document exists only while
// it holds at least one item.
type Service struct {
	gw  store.Gateway
	log *zap.Logger
	now func() time.Time
}

func NewService(gw store.Gateway, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gw: gw, log: log, now: time.Now}
}

// GetCart returns the user's cart, or nil when the user has none.
func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, domain.NewValidationError("userId", "must be set")
	}

	snap, err := s.gw.GetDocument(ctx, store.CartsCollection, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if snap == nil {
		return nil, nil
	}

	var c domain.Cart
	if err := store.Decode(snap.Data, &c); err != nil {
		return nil, err
	}
	c.UserID = snap.ID
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return &c, nil
}

// AddItem merges item into the user's cart, creating the cart when needed.
func (s *Service) AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.Cart, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if c == nil {
		c = domain.NewCart(userID, now)
	}
	if err := c.Add(item, now); err != nil {
		return nil, err
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetQuantity sets the quantity of the line at index. A quantity <= 0 removes
// the line. On a storage failure the caller should re-read the cart; nothing
// is rolled back.
func (s *Service) SetQuantity(ctx context.Context, userID string, index, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, index)
	}

	c, err := s.mustGetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.SetQuantity(index, quantity, s.now()); err != nil {
		return nil, err
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops the line at index. Removing the last line deletes the cart
// document and returns a nil cart.
func (s *Service) RemoveItem(ctx context.Context, userID string, index int) (*domain.Cart, error) {
	c, err := s.mustGetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.Remove(index, s.now()); err != nil {
		return nil, err
	}

	if c.IsEmpty() {
		if err := s.ClearCart(ctx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ClearCart deletes the user's cart document whether or not it exists.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.NewValidationError("userId", "must be set")
	}
	if err := s.gw.DeleteDocument(ctx, store.CartsCollection, userID); err != nil {
		s.log.Error("failed to delete cart", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *Service) mustGetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCartNotFound
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c *domain.Cart) error {
	doc, err := store.Encode(c)
	if err != nil {
		return err
	}
	if err := s.gw.SetDocument(ctx, store.CartsCollection, c.UserID, doc, false); err != nil {
		s.log.Error("failed to save cart", zap.String("user_id", c.UserID), zap.Error(err))
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
