package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/Mjnllee/kidfromanila/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrServiceNotFound = errors.New("service not found")
)

// Catalog reads products and services. Products are read-only here; services
// are maintained by staff.
type Catalog struct {
	gw    store.Gateway
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

func New(gw store.Gateway, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{gw: gw, log: log, now: time.Now, newID: uuid.NewString}
}

func (c *Catalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	if productID == "" {
		return nil, ErrProductNotFound
	}
	snap, err := c.gw.GetDocument(ctx, store.ProductsCollection, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if snap == nil {
		return nil, ErrProductNotFound
	}

	var p domain.Product
	if err := store.Decode(snap.Data, &p); err != nil {
		return nil, err
	}
	p.ID = snap.ID
	return &p, nil
}

func (c *Catalog) ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	snaps, err := c.gw.QueryEquals(ctx, store.ProductsCollection, "category", category)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]domain.Product, 0, len(snaps))
	for _, snap := range snaps {
		var p domain.Product
		if err := store.Decode(snap.Data, &p); err != nil {
			return nil, err
		}
		p.ID = snap.ID
		products = append(products, p)
	}
	return products, nil
}

// ListAvailableServices returns bookable services ordered by name.
func (c *Catalog) ListAvailableServices(ctx context.Context) ([]domain.Service, error) {
	snaps, err := c.gw.QueryEquals(ctx, store.ServicesCollection, "isAvailable", true)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	services := make([]domain.Service, 0, len(snaps))
	for _, snap := range snaps {
		s, err := decodeService(snap)
		if err != nil {
			return nil, err
		}
		services = append(services, *s)
	}
	sort.SliceStable(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

func (c *Catalog) GetService(ctx context.Context, serviceID string) (*domain.Service, error) {
	if serviceID == "" {
		return nil, ErrServiceNotFound
	}
	snap, err := c.gw.GetDocument(ctx, store.ServicesCollection, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if snap == nil {
		return nil, ErrServiceNotFound
	}
	return decodeService(*snap)
}

// SaveService creates a service when svc.ID is empty and replaces it
// otherwise.
func (c *Catalog) SaveService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	if err := svc.Validate(); err != nil {
		return nil, err
	}

	now := c.now()
	if svc.ID == "" {
		svc.ID = c.newID()
		svc.CreatedAt = now
	} else {
		current, err := c.GetService(ctx, svc.ID)
		if err != nil {
			return nil, err
		}
		svc.CreatedAt = current.CreatedAt
	}
	svc.UpdatedAt = now

	doc, err := store.Encode(svc)
	if err != nil {
		return nil, err
	}
	if err := c.gw.SetDocument(ctx, store.ServicesCollection, svc.ID, doc, false); err != nil {
		return nil, fmt.Errorf("failed to save service: %w", err)
	}
	c.log.Info("service saved", zap.String("service_id", svc.ID), zap.String("name", svc.Name))
	return &svc, nil
}

func (c *Catalog) SetServiceAvailability(ctx context.Context, serviceID string, available bool) error {
	if _, err := c.GetService(ctx, serviceID); err != nil {
		return err
	}
	patch := store.Document{"isAvailable": available, "updatedAt": c.now()}
	if err := c.gw.SetDocument(ctx, store.ServicesCollection, serviceID, patch, true); err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	return nil
}

func decodeService(snap store.Snapshot) (*domain.Service, error) {
	var s domain.Service
	if err := store.Decode(snap.Data, &s); err != nil {
		return nil, err
	}
	s.ID = snap.ID
	return &s, nil
}
