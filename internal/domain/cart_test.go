package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", Size: "205/55R16", Price: 100, Quantity: 2},
		{ProductID: "p2", Size: "195/65R15", Price: 50, Quantity: 1},
	}
	assert.Equal(t, 250.0, ComputeTotal(items))
}

func TestComputeTotal_Empty(t *testing.T) {
	assert.Equal(t, 0.0, ComputeTotal(nil))
}

func TestComputeTotal_ExactDecimalSum(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", Size: "S", Price: 0.1, Quantity: 1},
		{ProductID: "p2", Size: "S", Price: 0.2, Quantity: 1},
	}
	assert.Equal(t, 0.3, ComputeTotal(items))
}

func TestCart_Add_MergesSameProductAndSize(t *testing.T) {
	now := time.Now()
	c := NewCart("user123", now)

	require.NoError(t, c.Add(CartItem{ProductID: "p1", Size: "16", Price: 10, Quantity: 2}, now))
	require.NoError(t, c.Add(CartItem{ProductID: "p1", Size: "16", Price: 10, Quantity: 3}, now))
	require.NoError(t, c.Add(CartItem{ProductID: "p1", Size: "17", Price: 12, Quantity: 1}, now))

	require.Len(t, c.Items, 2)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, "17", c.Items[1].Size)
	assert.False(t, c.Items[0].AddedAt.IsZero())
}

func TestCart_Add_Validation(t *testing.T) {
	now := time.Now()
	c := NewCart("user123", now)

	err := c.Add(CartItem{ProductID: "p1", Size: "16", Quantity: 0}, now)
	assert.ErrorIs(t, err, ErrValidation)

	err = c.Add(CartItem{ProductID: "p1", Quantity: 1}, now)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "size", verr.Field)

	assert.Empty(t, c.Items)
}

func TestCart_SetQuantity_ZeroRemoves(t *testing.T) {
	now := time.Now()
	c := NewCart("user123", now)
	require.NoError(t, c.Add(CartItem{ProductID: "p1", Size: "16", Quantity: 2}, now))
	require.NoError(t, c.Add(CartItem{ProductID: "p2", Size: "16", Quantity: 1}, now))

	require.NoError(t, c.SetQuantity(0, 0, now))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)

	require.NoError(t, c.SetQuantity(0, 7, now))
	assert.Equal(t, 7, c.Items[0].Quantity)
}

func TestCart_Remove_OutOfRange(t *testing.T) {
	c := NewCart("user123", time.Now())
	assert.ErrorIs(t, c.Remove(0, time.Now()), ErrValidation)
	assert.ErrorIs(t, c.SetQuantity(-1, 1, time.Now()), ErrValidation)
}

func TestProduct_LineItem(t *testing.T) {
	p := Product{
		ID:    "p1",
		Name:  "Enasave EC300+",
		Brand: "Dunlop",
		Sizes: []ProductSize{{Size: "185/65R15", Price: 4200}},
	}

	item, err := p.LineItem("185/65R15", 2)
	require.NoError(t, err)
	assert.Equal(t, "Dunlop", item.Brand)
	assert.Equal(t, 4200.0, item.Price)

	_, err = p.LineItem("205/55R16", 1)
	assert.ErrorIs(t, err, ErrValidation)
}
