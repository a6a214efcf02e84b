package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart. Lines are merged on (ProductID, Size).
type CartItem struct {
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Brand       string    `json:"brand"`
	Size        string    `json:"size"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	ImageURL    string    `json:"imageUrl"`
	AddedAt     time.Time `json:"addedAt"`
}

func (i CartItem) sameLine(other CartItem) bool {
	return i.ProductID == other.ProductID && i.Size == other.Size
}

// Validate checks the fields a line item needs before it may enter a cart.
func (i CartItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return NewValidationError("productId", "must be set")
	}
	if strings.TrimSpace(i.Size) == "" {
		return NewValidationError("size", "must be selected")
	}
	if i.Quantity <= 0 {
		return NewValidationError("quantity", "must be greater than 0")
	}
	if i.Price < 0 {
		return NewValidationError("price", "must not be negative")
	}
	return nil
}

// Cart is the per-user cart document (carts/{userId}). A stored cart always
// has at least one item; an emptied cart is deleted instead of saved.
type Cart struct {
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		UserID:    userID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Add increments the quantity of a matching line or appends a new one.
func (c *Cart) Add(item CartItem, now time.Time) error {
	if err := item.Validate(); err != nil {
		return err
	}

	for idx := range c.Items {
		if c.Items[idx].sameLine(item) {
			c.Items[idx].Quantity += item.Quantity
			c.UpdatedAt = now
			return nil
		}
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = now
	}
	c.Items = append(c.Items, item)
	c.UpdatedAt = now
	return nil
}

// SetQuantity replaces the quantity of the line at index. A quantity <= 0
// removes the line.
func (c *Cart) SetQuantity(index, quantity int, now time.Time) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if quantity <= 0 {
		return c.Remove(index, now)
	}
	c.Items[index].Quantity = quantity
	c.UpdatedAt = now
	return nil
}

// Remove drops the line at index, preserving the order of the rest.
func (c *Cart) Remove(index int, now time.Time) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	items := make([]CartItem, 0, len(c.Items)-1)
	items = append(items, c.Items[:index]...)
	c.Items = append(items, c.Items[index+1:]...)
	c.UpdatedAt = now
	return nil
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) Total() float64 {
	if c == nil {
		return 0
	}
	return ComputeTotal(c.Items)
}

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.Items) {
		return NewValidationError("index", "no cart item at that position")
	}
	return nil
}

// ComputeTotal sums price * quantity over items. Summation is exact; no
// rounding or currency policy is applied.
func ComputeTotal(items []CartItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	total, _ := sum.Float64()
	return total
}

// CloneItems returns an independent copy of items.
func CloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
