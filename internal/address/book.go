package address

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

var ErrAddressNotFound = errors.New("address not found")

// Book manages a user's shipping addresses under users/{userId}/addresses.
//
// Exactly one address is default while the set is non-empty. Default changes
// are sequences of independent writes: other addresses are cleared first,
// then the target is set. A failure in between can leave the set with no
// default; it is reported to the caller and never repaired silently.
type Book struct {
	gw    store.Gateway
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

func NewBook(gw store.Gateway, log *zap.Logger) *Book {
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{
		gw:    gw,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// List returns the user's addresses ordered by creation time, then ID.
func (b *Book) List(ctx context.Context, userID string) ([]domain.Address, error) {
	if userID == "" {
		return nil, domain.NewValidationError("userId", "must be set")
	}

	snaps, err := b.gw.QueryEquals(ctx, store.AddressesPath(userID), "userId", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}

	addrs := make([]domain.Address, 0, len(snaps))
	for _, snap := range snaps {
		var a domain.Address
		if err := store.Decode(snap.Data, &a); err != nil {
			return nil, err
		}
		a.ID = snap.ID
		a.UserID = userID
		addrs = append(addrs, a)
	}

	sort.SliceStable(addrs, func(i, j int) bool {
		if !addrs[i].CreatedAt.Equal(addrs[j].CreatedAt) {
			return addrs[i].CreatedAt.Before(addrs[j].CreatedAt)
		}
		return addrs[i].ID < addrs[j].ID
	})
	return addrs, nil
}

// Get returns one address of the user.
func (b *Book) Get(ctx context.Context, userID, addressID string) (*domain.Address, error) {
	if userID == "" || addressID == "" {
		return nil, ErrAddressNotFound
	}
	snap, err := b.gw.GetDocument(ctx, store.AddressesPath(userID), addressID)
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	if snap == nil {
		return nil, ErrAddressNotFound
	}

	var a domain.Address
	if err := store.Decode(snap.Data, &a); err != nil {
		return nil, err
	}
	a.ID = snap.ID
	a.UserID = userID
	return &a, nil
}

// Default returns the address checkout should use: the default one, else the
// first one, else nil when the user has none.
func (b *Book) Default(ctx context.Context, userID string) (*domain.Address, error) {
	addrs, err := b.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, nil
	}
	for i := range addrs {
		if addrs[i].IsDefault {
			return &addrs[i], nil
		}
	}
	return &addrs[0], nil
}

// AddAddress stores a new address. The first address of a user always becomes
// default; makeDefault moves the default to the new address.
func (b *Book) AddAddress(ctx context.Context, userID string, addr domain.Address, makeDefault bool) (*domain.Address, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	existing, err := b.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := b.now()
	addr.ID = b.newID()
	addr.UserID = userID
	addr.IsDefault = len(existing) == 0 || makeDefault
	addr.CreatedAt = now
	addr.UpdatedAt = now

	if addr.IsDefault {
		if err := b.clearDefaults(ctx, userID, existing, ""); err != nil {
			return nil, err
		}
	}

	if err := b.write(ctx, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

// UpdateAddress rewrites the editable fields of an address. The default flag
// is left untouched; use SetDefault to move it.
func (b *Book) UpdateAddress(ctx context.Context, userID, addressID string, addr domain.Address) (*domain.Address, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	current, err := b.Get(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	addr.ID = current.ID
	addr.UserID = userID
	addr.IsDefault = current.IsDefault
	addr.CreatedAt = current.CreatedAt
	addr.UpdatedAt = b.now()

	if err := b.write(ctx, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

// SetDefault makes addressID the user's default address.
func (b *Book) SetDefault(ctx context.Context, userID, addressID string) error {
	addrs, err := b.List(ctx, userID)
	if err != nil {
		return err
	}
	if indexOf(addrs, addressID) < 0 {
		return ErrAddressNotFound
	}

	if err := b.clearDefaults(ctx, userID, addrs, addressID); err != nil {
		return err
	}
	return b.markDefault(ctx, userID, addressID)
}

// DeleteAddress removes an address. When the default is deleted and others
// remain, the first remaining address becomes default.
func (b *Book) DeleteAddress(ctx context.Context, userID, addressID string) error {
	addrs, err := b.List(ctx, userID)
	if err != nil {
		return err
	}
	idx := indexOf(addrs, addressID)
	if idx < 0 {
		return ErrAddressNotFound
	}
	deleted := addrs[idx]

	if err := b.gw.DeleteDocument(ctx, store.AddressesPath(userID), addressID); err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}

	remaining := append(addrs[:idx:idx], addrs[idx+1:]...)
	if !deleted.IsDefault || len(remaining) == 0 {
		return nil
	}

	b.log.Info("promoting address to default",
		zap.String("user_id", userID),
		zap.String("address_id", remaining[0].ID))
	return b.markDefault(ctx, userID, remaining[0].ID)
}

// clearDefaults issues one merge write per address other than keep.
func (b *Book) clearDefaults(ctx context.Context, userID string, addrs []domain.Address, keep string) error {
	now := b.now()
	for _, a := range addrs {
		if a.ID == keep {
			continue
		}
		patch := store.Document{"isDefault": false, "updatedAt": now}
		if err := b.gw.SetDocument(ctx, store.AddressesPath(userID), a.ID, patch, true); err != nil {
			b.log.Error("failed to clear default address",
				zap.String("user_id", userID),
				zap.String("address_id", a.ID),
				zap.Error(err))
			return fmt.Errorf("failed to clear default on address %s: %w", a.ID, err)
		}
	}
	return nil
}

func (b *Book) markDefault(ctx context.Context, userID, addressID string) error {
	patch := store.Document{"isDefault": true, "updatedAt": b.now()}
	if err := b.gw.SetDocument(ctx, store.AddressesPath(userID), addressID, patch, true); err != nil {
		return fmt.Errorf("failed to set default address %s: %w", addressID, err)
	}
	return nil
}

func (b *Book) write(ctx context.Context, addr *domain.Address) error {
	doc, err := store.Encode(addr)
	if err != nil {
		return err
	}
	if err := b.gw.SetDocument(ctx, store.AddressesPath(addr.UserID), addr.ID, doc, false); err != nil {
		return fmt.Errorf("failed to save address: %w", err)
	}
	return nil
}

func indexOf(addrs []domain.Address, id string) int {
	for i := range addrs {
		if addrs[i].ID == id {
			return i
		}
	}
	return -1
}
