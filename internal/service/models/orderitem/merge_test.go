package orderitem

import (
	"testing"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLinesSumsMatchingItems(t *testing.T) {
	items := []OrderItem{
		{ID: "1", Name: "Cola", Quantity: 2, KitchenStatus: kitchenstatus.New},
		{ID: "2", Name: "Cola", Quantity: 1, KitchenStatus: kitchenstatus.New},
	}

	lines := MergeLines(items, true)

	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, []string{"1", "2"}, lines[0].IDs)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestMergeLinesDistinctNotes(t *testing.T) {
	items := []OrderItem{
		{ID: "1", Name: "Cola", Quantity: 2, KitchenStatus: kitchenstatus.New},
		{ID: "2", Name: "Cola", Note: "no ice", Quantity: 1, KitchenStatus: kitchenstatus.New},
	}

	lines := MergeLines(items, true)

	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "no ice", lines[1].Note)
}

func TestMergeLinesStatusKey(t *testing.T) {
	items := []OrderItem{
		{ID: "1", Name: "Soup", Quantity: 1, KitchenStatus: kitchenstatus.New},
		{ID: "2", Name: "Soup", Quantity: 1, KitchenStatus: kitchenstatus.InProgress},
		{ID: "3", Name: "Soup", Quantity: 1, KitchenStatus: kitchenstatus.Reordered},
	}

	kitchen := MergeLines(items, true)
	require.Len(t, kitchen, 2)
	assert.Equal(t, kitchenstatus.New, kitchen[0].KitchenStatus)
	assert.Equal(t, 2, kitchen[0].Quantity)
	assert.Equal(t, []string{"1", "3"}, kitchen[0].IDs)

	bar := MergeLines(items, false)
	require.Len(t, bar, 1)
	assert.Equal(t, 3, bar[0].Quantity)
}
