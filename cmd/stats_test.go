package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/areascope/areascope/internal/model"
)

func TestFmtInt(t *testing.T) {
	assert.Equal(t, "-", fmtInt(nil))
	assert.Equal(t, "42", fmtInt(model.IntPtr(42)))
}

func TestFmtFloat(t *testing.T) {
	assert.Equal(t, "-", fmtFloat(nil, 1))
	assert.Equal(t, "3.1", fmtFloat(model.FloatPtr(3.14), 1))
	assert.Equal(t, "3", fmtFloat(model.FloatPtr(3.14), 0))
}

func TestFormatCategoryStats(t *testing.T) {
	var buf bytes.Buffer
	formatCategoryStats(&buf, []model.CategoryMetrics{
		{Category: "food", Count: 12, Density: 4.8, ActiveLayers: 2},
		{Category: "parks", Count: 0, Density: 0, ActiveLayers: 1},
	})

	out := buf.String()
	assert.Contains(t, out, "food")
	assert.Contains(t, out, "4.8")
	assert.Contains(t, out, "parks")
}

func TestRecipeString(t *testing.T) {
	assert.Equal(t, "-", recipeString(model.StatsRecipe{}))
	assert.Equal(t, "cd", recipeString(model.StatsRecipe{Count: true, Density: true}))
	assert.Equal(t, "las", recipeString(model.StatsRecipe{Length: true, Area: true, AreaShare: true}))
}
