package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselineProportionalCap(t *testing.T) {
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 900, UnitMargin: 5, UnitPrice: 10},
		{ID: "B", GroupKey: "g", Demand: 300, UnitMargin: 3, UnitPrice: 8},
	}
	groups := []CapacityGroup{{Key: "g", Max: 600}}

	baseline := Baseline(products, groups)

	require.Len(t, baseline, 2)
	// 1200 demand into 600 capacity: everyone keeps their share.
	assert.InDelta(t, 450.0, baseline[0].Volume, 1e-9)
	assert.InDelta(t, 150.0, baseline[1].Volume, 1e-9)
	assert.Equal(t, StatusAboveMaximum, baseline[0].Status)
}

func TestBaselineUncappedShipsDemand(t *testing.T) {
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 100, UnitMargin: 5},
		{ID: "B", GroupKey: "", Demand: 200, UnitMargin: 1},
	}
	groups := []CapacityGroup{{Key: "g", Max: math.Inf(1)}}

	baseline := Baseline(products, groups)

	assert.InDelta(t, 100.0, baseline[0].Volume, 1e-9)
	assert.Equal(t, StatusOK, baseline[0].Status)
	assert.InDelta(t, 200.0, baseline[1].Volume, 1e-9)
	assert.Equal(t, StatusUnconstrained, baseline[1].Status)
}

func TestScoreAllocations(t *testing.T) {
	allocations := []Allocation{
		{Volume: 100, UnitPrice: 10, UnitMargin: 2, Profit: 200},
		{Volume: 50, UnitPrice: 4, UnitMargin: 1, Profit: 50},
	}

	s := ScoreAllocations(allocations)

	assert.InDelta(t, 150.0, s.Volume, 1e-9)
	assert.InDelta(t, 1200.0, s.Revenue, 1e-9)
	assert.InDelta(t, 250.0, s.Profit, 1e-9)
}

func TestImprovementPct(t *testing.T) {
	assert.InDelta(t, 10.0, ImprovementPct(1000, 1100), 1e-9)
	assert.InDelta(t, -10.0, ImprovementPct(1000, 900), 1e-9)
	// Negative baseline: improvement is measured against its magnitude.
	assert.InDelta(t, 50.0, ImprovementPct(-1000, -500), 1e-9)
	assert.Zero(t, ImprovementPct(0, 500))
}
