package domain

import (
	"strings"
	"time"
)

// ProductSize is one purchasable size of a product with its own price.
type ProductSize struct {
	Size  string  `json:"size"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// Product is a read-only catalog document (products/{id}).
type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Brand       string        `json:"brand"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	ImageURL    string        `json:"imageUrl"`
	Sizes       []ProductSize `json:"sizes"`
}

// LineItem builds the cart line for quantity units of the given size.
func (p Product) LineItem(size string, quantity int) (CartItem, error) {
	if strings.TrimSpace(size) == "" {
		return CartItem{}, NewValidationError("size", "must be selected")
	}
	for _, s := range p.Sizes {
		if s.Size != size {
			continue
		}
		item := CartItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Brand:       p.Brand,
			Size:        s.Size,
			Price:       s.Price,
			Quantity:    quantity,
			ImageURL:    p.ImageURL,
		}
		return item, item.Validate()
	}
	return CartItem{}, NewValidationError("size", "not offered for this product")
}

// Service is a bookable shop service (services/{id}). Duration is in minutes.
type Service struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Duration    int       `json:"duration"`
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if s.Price < 0 {
		return NewValidationError("price", "must not be negative")
	}
	if s.Duration <= 0 {
		return NewValidationError("duration", "must be a positive number of minutes")
	}
	return nil
}
