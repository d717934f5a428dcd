package optimizer

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeSharedCapacityWaterfall(t *testing.T) {
	o := newTestOptimizer(t)

	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 800, UnitMargin: 5.0, UnitPrice: 20.0},
		{ID: "B", GroupKey: "g", Demand: 400, UnitMargin: 3.0, UnitPrice: 15.0},
	}
	groups := []CapacityGroup{{Key: "g", Min: 0, Max: 1000}}

	result, err := o.Optimize(context.Background(), products, groups)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 2)

	a, b := result.Allocations[0], result.Allocations[1]
	assert.Equal(t, "A", a.ProductID)
	assert.InDelta(t, 800.0, a.Volume, 1e-6)
	assert.InDelta(t, 200.0, b.Volume, 1e-6)
	assert.Equal(t, StatusOK, a.Status)
	assert.InDelta(t, 100.0, a.FulfillmentPct, 1e-6)
	assert.InDelta(t, 50.0, b.FulfillmentPct, 1e-6)
	assert.InDelta(t, 4000.0, a.Profit, 1e-6)
	assert.InDelta(t, 600.0, b.Profit, 1e-6)
}

func TestOptimizeUngroupedPassThrough(t *testing.T) {
	o := newTestOptimizer(t)

	products := []Product{
		{ID: "loose", GroupKey: "", Demand: 400, UnitMargin: 2.0},
	}

	result, err := o.Optimize(context.Background(), products, nil)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)

	a := result.Allocations[0]
	assert.InDelta(t, 400.0, a.Volume, 1e-9)
	assert.Equal(t, StatusUnconstrained, a.Status)
	assert.InDelta(t, 100.0, a.FulfillmentPct, 1e-9)
}

func TestOptimizeSingleMemberGroup(t *testing.T) {
	o := newTestOptimizer(t)

	products := []Product{
		{ID: "only", GroupKey: "g", Demand: 300, UnitMargin: 2.0},
	}
	groups := []CapacityGroup{{Key: "g", Min: 500, Max: 1000}}

	result, err := o.Optimize(context.Background(), products, groups)
	require.NoError(t, err)

	a := result.Allocations[0]
	assert.InDelta(t, 300.0, a.Volume, 1e-9)
	assert.Equal(t, StatusBelowMinimum, a.Status)
	assert.Equal(t, 1, result.Metrics.GroupsWithViolations)
}

func TestOptimizeUndeclaredGroupIsUnbounded(t *testing.T) {
	o := newTestOptimizer(t)

	products := []Product{
		{ID: "A", GroupKey: "mystery", Demand: 800, UnitMargin: 5.0},
		{ID: "B", GroupKey: "mystery", Demand: 400, UnitMargin: 3.0},
	}

	result, err := o.Optimize(context.Background(), products, nil)
	require.NoError(t, err)

	// No declared bounds: full demand ships.
	assert.InDelta(t, 800.0, result.Allocations[0].Volume, 1e-6)
	assert.InDelta(t, 400.0, result.Allocations[1].Volume, 1e-6)
	assert.Equal(t, StatusOK, result.Allocations[0].Status)
}

func TestOptimizeInfeasibleMinimumDropped(t *testing.T) {
	o := newTestOptimizer(t)

	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 700, UnitMargin: 5.0},
		{ID: "B", GroupKey: "g", Demand: 300, UnitMargin: 3.0},
	}
	groups := []CapacityGroup{{Key: "g", Min: 900, Max: 600}}

	result, err := o.Optimize(context.Background(), products, groups)
	require.NoError(t, err)

	// Minimum above maximum is dropped; the maximum still binds.
	total := result.Allocations[0].Volume + result.Allocations[1].Volume
	assert.InDelta(t, 600.0, total, 1e-6)
	assert.Equal(t, StatusOK, result.Allocations[0].Status)
}

func TestOptimizeMultipleGroupsIndependent(t *testing.T) {
	o := newTestOptimizer(t)

	products := []Product{
		{ID: "A", GroupKey: "g1", Demand: 800, UnitMargin: 5.0},
		{ID: "B", GroupKey: "g2", Demand: 400, UnitMargin: 3.0},
		{ID: "C", GroupKey: "g1", Demand: 400, UnitMargin: 1.0},
		{ID: "D", GroupKey: "", Demand: 100, UnitMargin: 9.0},
	}
	groups := []CapacityGroup{
		{Key: "g1", Max: 900},
		{Key: "g2", Max: 350},
	}

	result, err := o.Optimize(context.Background(), products, groups)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 4)

	// g1: A=800, C=100. g2 capped at 350. D passes through.
	assert.InDelta(t, 800.0, result.Allocations[0].Volume, 1e-6)
	assert.InDelta(t, 350.0, result.Allocations[1].Volume, 1e-6)
	assert.InDelta(t, 100.0, result.Allocations[2].Volume, 1e-6)
	assert.InDelta(t, 100.0, result.Allocations[3].Volume, 1e-9)
	assert.Equal(t, 2, result.Metrics.GroupsOptimized)
}

func TestOptimizeSingleTypeMatchesMultiWithOneMember(t *testing.T) {
	// A one-member group must allocate the same volume whether it goes
	// through the closed form or the shared-capacity path. The status
	// reads differ when demand overruns the line: the closed form flags
	// the overrun, the shared path reports where the total landed.
	o := newTestOptimizer(t)
	groups := []CapacityGroup{{Key: "g", Min: 0, Max: 500}}

	single, err := o.Optimize(context.Background(), []Product{
		{ID: "A", GroupKey: "g", Demand: 900, UnitMargin: 5.0},
	}, groups)
	require.NoError(t, err)

	vols, status, _ := o.allocateMulti([]Product{
		{ID: "A", GroupKey: "g", Demand: 900, UnitMargin: 5.0},
		{ID: "ghost", GroupKey: "g", Demand: 0, UnitMargin: 0},
	}, groups[0])

	assert.InDelta(t, single.Allocations[0].Volume, vols[0], 1e-6)
	assert.Equal(t, StatusAboveMaximum, single.Allocations[0].Status)
	assert.Equal(t, 1, single.Metrics.GroupsWithViolations)
	assert.Equal(t, StatusOK, status)
}

func TestOptimizeEmptyInput(t *testing.T) {
	o := newTestOptimizer(t)

	result, err := o.Optimize(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Allocations)
	assert.Zero(t, result.Metrics.ProfitAfter)
}

func TestOptimizeCancelledContext(t *testing.T) {
	o := newTestOptimizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Optimize(ctx, []Product{
		{ID: "A", GroupKey: "g", Demand: 1, UnitMargin: 1},
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimizeRejectsEmptyProductID(t *testing.T) {
	o := newTestOptimizer(t)

	_, err := o.Optimize(context.Background(), []Product{{ID: "", Demand: 1}}, nil)

	var invalid ErrInvalidInput
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "products", invalid.Field)
}

func TestOptimizeIdempotent(t *testing.T) {
	o := newTestOptimizer(t)

	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 321.5, UnitMargin: 4.2, UnitPrice: 9.5},
		{ID: "B", GroupKey: "g", Demand: 123.25, UnitMargin: 4.2, UnitPrice: 8.0},
		{ID: "C", GroupKey: "g", Demand: 555.75, UnitMargin: 1.9, UnitPrice: 4.0},
		{ID: "D", GroupKey: "", Demand: 10, UnitMargin: -0.5, UnitPrice: 1.0},
	}
	groups := []CapacityGroup{{Key: "g", Min: 100, Max: 700}}

	first, err := o.Optimize(context.Background(), products, groups)
	require.NoError(t, err)
	second, err := o.Optimize(context.Background(), products, groups)
	require.NoError(t, err)

	assert.Equal(t, first.Allocations, second.Allocations)
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestOptimizeImprovementOverBaseline(t *testing.T) {
	o := newTestOptimizer(t)

	// Over-subscribed group: baseline caps proportionally, the
	// optimizer shifts the capped volume toward the higher margin.
	products := []Product{
		{ID: "hi", GroupKey: "g", Demand: 600, UnitMargin: 10.0},
		{ID: "lo", GroupKey: "g", Demand: 600, UnitMargin: 1.0},
	}
	groups := []CapacityGroup{{Key: "g", Max: 600}}

	result, err := o.Optimize(context.Background(), products, groups)
	require.NoError(t, err)

	// Baseline: 300 each = 3300. Optimized: 600 high-margin = 6000.
	assert.InDelta(t, 3300.0, result.Metrics.ProfitBefore, 1e-6)
	assert.InDelta(t, 6000.0, result.Metrics.ProfitAfter, 1e-6)
	assert.Greater(t, result.Metrics.ImprovementPct, 80.0)
	assert.InDelta(t, result.Metrics.VolumeBefore, result.Metrics.VolumeAfter, 1e-6)
}

func TestOptimizeVolumesNeverExceedDemand(t *testing.T) {
	o := newTestOptimizer(t)

	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 120, UnitMargin: 3},
		{ID: "B", GroupKey: "g", Demand: 80, UnitMargin: 2},
		{ID: "C", GroupKey: "g", Demand: 40, UnitMargin: 7},
	}
	groups := []CapacityGroup{{Key: "g", Min: 200, Max: math.Inf(1)}}

	result, err := o.Optimize(context.Background(), products, groups)
	require.NoError(t, err)

	for _, a := range result.Allocations {
		assert.LessOrEqual(t, a.Volume, a.Demand+1e-9, "product %s", a.ProductID)
		assert.GreaterOrEqual(t, a.Volume, 0.0, "product %s", a.ProductID)
	}
}
