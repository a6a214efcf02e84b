package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrStorageUnavailable wraps every failure of the underlying document store.
// Absence of a document is never reported through it.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Document is a JSON-shaped document body.
type Document map[string]any

// Snapshot is a document together with its ID inside its collection.
type Snapshot struct {
	ID   string   `json:"id"`
	Data Document `json:"data"`
}

// Gateway is the minimal persistence contract the core needs from the remote
// document store. Consumers define this interface, not the backends.
//
// GetDocument returns (nil, nil) when the document does not exist and
// QueryEquals returns an empty slice when nothing matches.
type Gateway interface {
	GetDocument(ctx context.Context, collection, id string) (*Snapshot, error)
	SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error
	DeleteDocument(ctx context.Context, collection, id string) error
	QueryEquals(ctx context.Context, collection, field string, value any) ([]Snapshot, error)
}

const (
	CartsCollection    = "carts"
	OrdersCollection   = "orders"
	ProductsCollection = "products"
	ServicesCollection = "services"
)

// AddressesPath is the collection holding one user's shipping addresses.
func AddressesPath(userID string) string {
	return "users/" + userID + "/addresses"
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}

func checkKey(collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return fmt.Errorf("invalid document id %q", id)
	}
	return nil
}

func checkCollection(collection string) error {
	segments := strings.Split(collection, "/")
	if collection == "" || len(segments)%2 == 0 {
		return fmt.Errorf("invalid collection path %q", collection)
	}
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("invalid collection path %q", collection)
		}
	}
	return nil
}

// splitCollection returns the parent document path and the leaf collection
// name, e.g. "users/u1/addresses" -> ("users/u1", "addresses").
func splitCollection(collection string) (parent, leaf string) {
	idx := strings.LastIndex(collection, "/")
	if idx < 0 {
		return "", collection
	}
	return collection[:idx], collection[idx+1:]
}
