package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runGatewayContract exercises the behaviour every backend must share.
func runGatewayContract(t *testing.T, gw Gateway) {
	ctx := context.Background()

	t.Run("absent document", func(t *testing.T) {
		snap, err := gw.GetDocument(ctx, CartsCollection, "nobody")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("replace and merge", func(t *testing.T) {
		path := AddressesPath("user123")
		require.NoError(t, gw.SetDocument(ctx, path, "a1", Document{"city": "Manila", "isDefault": true, "zip": "1000"}, false))
		require.NoError(t, gw.SetDocument(ctx, path, "a1", Document{"isDefault": false}, true))

		snap, err := gw.GetDocument(ctx, path, "a1")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "a1", snap.ID)
		assert.Equal(t, "Manila", snap.Data["city"])
		assert.Equal(t, false, snap.Data["isDefault"])

		require.NoError(t, gw.SetDocument(ctx, path, "a1", Document{"city": "Cebu"}, false))
		snap, err = gw.GetDocument(ctx, path, "a1")
		require.NoError(t, err)
		assert.Equal(t, Document{"city": "Cebu"}, snap.Data)
	})

	t.Run("merge creates missing document", func(t *testing.T) {
		require.NoError(t, gw.SetDocument(ctx, OrdersCollection, "fresh", Document{"status": "approved"}, true))
		snap, err := gw.GetDocument(ctx, OrdersCollection, "fresh")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "approved", snap.Data["status"])
	})

	t.Run("nested values round trip", func(t *testing.T) {
		doc := Document{
			"items": []any{
				map[string]any{"productId": "p1", "price": 100.5, "quantity": 2},
			},
			"updatedAt": "2025-03-01T10:00:00Z",
		}
		require.NoError(t, gw.SetDocument(ctx, CartsCollection, "user-nested", doc, false))

		snap, err := gw.GetDocument(ctx, CartsCollection, "user-nested")
		require.NoError(t, err)
		require.NotNil(t, snap)

		items, ok := snap.Data["items"].([]any)
		require.True(t, ok)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.Equal(t, "p1", item["productId"])
		assert.Equal(t, 100.5, item["price"])
		assert.EqualValues(t, 2, item["quantity"])
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, gw.SetDocument(ctx, CartsCollection, "user-del", Document{"items": []any{}}, false))
		require.NoError(t, gw.DeleteDocument(ctx, CartsCollection, "user-del"))

		snap, err := gw.GetDocument(ctx, CartsCollection, "user-del")
		require.NoError(t, err)
		assert.Nil(t, snap)

		require.NoError(t, gw.DeleteDocument(ctx, CartsCollection, "user-del"))
	})

	t.Run("query equals", func(t *testing.T) {
		require.NoError(t, gw.SetDocument(ctx, ServicesCollection, "s2", Document{"isAvailable": true, "price": 350}, false))
		require.NoError(t, gw.SetDocument(ctx, ServicesCollection, "s1", Document{"isAvailable": true, "price": 500}, false))
		require.NoError(t, gw.SetDocument(ctx, ServicesCollection, "s3", Document{"isAvailable": false, "price": 350}, false))

		available, err := gw.QueryEquals(ctx, ServicesCollection, "isAvailable", true)
		require.NoError(t, err)
		require.Len(t, available, 2)
		assert.Equal(t, "s1", available[0].ID)
		assert.Equal(t, "s2", available[1].ID)

		byPrice, err := gw.QueryEquals(ctx, ServicesCollection, "price", 350)
		require.NoError(t, err)
		assert.Len(t, byPrice, 2)

		none, err := gw.QueryEquals(ctx, ServicesCollection, "category", "alignment")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("query is scoped to the parent document", func(t *testing.T) {
		require.NoError(t, gw.SetDocument(ctx, AddressesPath("alice"), "x1", Document{"userId": "alice"}, false))
		require.NoError(t, gw.SetDocument(ctx, AddressesPath("bob"), "x2", Document{"userId": "alice"}, false))

		got, err := gw.QueryEquals(ctx, AddressesPath("alice"), "userId", "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "x1", got[0].ID)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	runGatewayContract(t, NewMemoryStore())
}
