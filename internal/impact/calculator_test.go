package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Run("two passengers over 100km", func(t *testing.T) {
		got := Calculate(100, 10, 2)

		assert.InDelta(t, 20.0, got.FuelSavedLiters, 1e-9)
		assert.InDelta(t, 46.0, got.CO2SavedKg, 1e-9)
		assert.InDelta(t, 46.0/22.0, got.TreesEquivalent, 1e-9)
	})

	t.Run("zero passengers saves nothing", func(t *testing.T) {
		got := Calculate(100, 10, 0)

		assert.Zero(t, got.FuelSavedLiters)
		assert.Zero(t, got.CO2SavedKg)
		assert.Zero(t, got.TreesEquivalent)
	})

	t.Run("zero distance saves nothing", func(t *testing.T) {
		got := Calculate(0, 10, 3)

		assert.Zero(t, got.CO2SavedKg)
	})

	t.Run("missing efficiency falls back to default", func(t *testing.T) {
		got := Calculate(30, 0, 1)

		assert.InDelta(t, 2.0, got.FuelSavedLiters, 1e-9)
		assert.InDelta(t, 4.6, got.CO2SavedKg, 1e-9)
	})

	t.Run("impact scales linearly with passengers", func(t *testing.T) {
		one := Calculate(50, 12, 1)
		three := Calculate(50, 12, 3)

		assert.InDelta(t, one.CO2SavedKg*3, three.CO2SavedKg, 1e-9)
		assert.InDelta(t, one.FuelSavedLiters*3, three.FuelSavedLiters, 1e-9)
	})
}

func TestShare(t *testing.T) {
	total := Calculate(100, 10, 2)

	t.Run("splits evenly", func(t *testing.T) {
		share := Share(total, 2)

		assert.InDelta(t, total.CO2SavedKg/2, share.CO2SavedKg, 1e-9)
		assert.InDelta(t, total.FuelSavedLiters/2, share.FuelSavedLiters, 1e-9)
		assert.InDelta(t, total.TreesEquivalent/2, share.TreesEquivalent, 1e-9)
	})

	t.Run("zero passengers yields zero share", func(t *testing.T) {
		share := Share(total, 0)

		assert.Zero(t, share.CO2SavedKg)
	})
}
