package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	o, err := New(nil)
	require.NoError(t, err)
	return o
}

func TestGreedyWaterfall(t *testing.T) {
	products := []Product{
		{ID: "A", Demand: 800, UnitMargin: 5.0},
		{ID: "B", Demand: 400, UnitMargin: 3.0},
	}

	vols := greedyWaterfall(products, 1000)

	// A has the higher margin and drinks first; B gets the remainder.
	assert.InDelta(t, 800.0, vols[0], 1e-9)
	assert.InDelta(t, 200.0, vols[1], 1e-9)
}

func TestGreedyWaterfallUnbounded(t *testing.T) {
	products := []Product{
		{ID: "A", Demand: 800, UnitMargin: 5.0},
		{ID: "B", Demand: 400, UnitMargin: -1.0},
	}

	vols := greedyWaterfall(products, math.Inf(1))

	// No shared maximum: everyone ships full demand, negative margin
	// included, because demand is the plan and capacity the only brake.
	assert.InDelta(t, 800.0, vols[0], 1e-9)
	assert.InDelta(t, 400.0, vols[1], 1e-9)
}

func TestGreedyWaterfallTieBreaksOnInputOrder(t *testing.T) {
	products := []Product{
		{ID: "A", Demand: 600, UnitMargin: 4.0},
		{ID: "B", Demand: 600, UnitMargin: 4.0},
	}

	vols := greedyWaterfall(products, 800)

	assert.InDelta(t, 600.0, vols[0], 1e-9)
	assert.InDelta(t, 200.0, vols[1], 1e-9)
}

func TestAllocateMultiMatchesGreedyOptimum(t *testing.T) {
	o := newTestOptimizer(t)
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 800, UnitMargin: 5.0},
		{ID: "B", GroupKey: "g", Demand: 400, UnitMargin: 3.0},
		{ID: "C", GroupKey: "g", Demand: 300, UnitMargin: 1.0},
	}
	g := CapacityGroup{Key: "g", Min: 0, Max: 1000}

	vols, status, _ := o.allocateMulti(products, g)

	// Linear objective with one shared maximum: descending-margin fill
	// is the true optimum, so whatever path ran must land on it.
	assert.InDelta(t, 800.0, vols[0], 1e-6)
	assert.InDelta(t, 200.0, vols[1], 1e-6)
	assert.InDelta(t, 0.0, vols[2], 1e-6)
	assert.Equal(t, StatusOK, status)
}

func TestAllocateMultiBelowMinimum(t *testing.T) {
	o := newTestOptimizer(t)
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 100, UnitMargin: 5.0},
		{ID: "B", GroupKey: "g", Demand: 150, UnitMargin: 3.0},
	}
	g := CapacityGroup{Key: "g", Min: 500, Max: 1000}

	vols, status, _ := o.allocateMulti(products, g)

	// Total demand cannot reach the floor; volumes stay demand-bound
	// and the shortfall is reported, never fabricated.
	assert.InDelta(t, 100.0, vols[0], 1e-6)
	assert.InDelta(t, 150.0, vols[1], 1e-6)
	assert.Equal(t, StatusBelowMinimum, status)
}

func TestAllocateMultiMeetsFeasibleMinimum(t *testing.T) {
	o := newTestOptimizer(t)
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 400, UnitMargin: 5.0},
		{ID: "B", GroupKey: "g", Demand: 300, UnitMargin: -1.0},
	}
	g := CapacityGroup{Key: "g", Min: 500, Max: 1000}

	vols, status, fallback := o.allocateMulti(products, g)

	// The floor is reachable, so the loss-making volume is cut only as
	// far as the floor allows, never past it.
	assert.InDelta(t, 400.0, vols[0], 1e-6)
	assert.InDelta(t, 100.0, vols[1], 1e-6)
	assert.GreaterOrEqual(t, vols[0]+vols[1], 500.0-1e-6)
	assert.Equal(t, StatusOK, status)
	assert.False(t, fallback)
}

func TestAllocateMultiMinimumWithUnboundedMax(t *testing.T) {
	o := newTestOptimizer(t)
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 400, UnitMargin: 5.0},
		{ID: "B", GroupKey: "g", Demand: 300, UnitMargin: -1.0},
	}
	g := CapacityGroup{Key: "g", Min: 500, Max: math.Inf(1)}

	vols, status, _ := o.allocateMulti(products, g)

	// No ceiling, but the floor still trims the loss-making volume to
	// exactly what keeps the line running.
	assert.InDelta(t, 400.0, vols[0], 1e-6)
	assert.InDelta(t, 100.0, vols[1], 1e-6)
	assert.Equal(t, StatusOK, status)
}

func TestAllocateMultiRespectsDemandBound(t *testing.T) {
	o := newTestOptimizer(t)
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 50, UnitMargin: 10.0},
		{ID: "B", GroupKey: "g", Demand: 75, UnitMargin: 8.0},
	}
	g := CapacityGroup{Key: "g", Min: 0, Max: 10000}

	vols, status, _ := o.allocateMulti(products, g)

	assert.InDelta(t, 50.0, vols[0], 1e-6)
	assert.InDelta(t, 75.0, vols[1], 1e-6)
	assert.Equal(t, StatusOK, status)
}

func TestAllocateMultiSolverDisabled(t *testing.T) {
	cfg := Defaults()
	cfg.EnableSolver = false
	o, err := New(cfg)
	require.NoError(t, err)

	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 800, UnitMargin: 5.0},
		{ID: "B", GroupKey: "g", Demand: 400, UnitMargin: 3.0},
	}
	vols, status, fallback := o.allocateMulti(products, CapacityGroup{Key: "g", Max: 1000})

	assert.InDelta(t, 800.0, vols[0], 1e-9)
	assert.InDelta(t, 200.0, vols[1], 1e-9)
	assert.Equal(t, StatusOK, status)
	assert.False(t, fallback, "disabled solver is not a fallback")
}

func TestAllocateMultiDeterministic(t *testing.T) {
	o := newTestOptimizer(t)
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 321.5, UnitMargin: 4.2},
		{ID: "B", GroupKey: "g", Demand: 123.25, UnitMargin: 4.2},
		{ID: "C", GroupKey: "g", Demand: 555.75, UnitMargin: 1.9},
		{ID: "D", GroupKey: "g", Demand: 10, UnitMargin: -0.5},
	}
	g := CapacityGroup{Key: "g", Min: 100, Max: 700}

	first, firstStatus, _ := o.allocateMulti(products, g)
	second, secondStatus, _ := o.allocateMulti(products, g)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStatus, secondStatus)
}

func TestAllocateMultiNeverExceedsCapacity(t *testing.T) {
	o := newTestOptimizer(t)
	products := []Product{
		{ID: "A", GroupKey: "g", Demand: 900, UnitMargin: 2.0},
		{ID: "B", GroupKey: "g", Demand: 900, UnitMargin: 2.0},
		{ID: "C", GroupKey: "g", Demand: 900, UnitMargin: 2.0},
	}
	g := CapacityGroup{Key: "g", Max: 1000}

	vols, status, _ := o.allocateMulti(products, g)

	total := vols[0] + vols[1] + vols[2]
	assert.LessOrEqual(t, total, g.Max+1e-6)
	assert.Equal(t, StatusOK, status)
	for i, v := range vols {
		assert.LessOrEqual(t, v, products[i].Demand+1e-9, "product %d", i)
	}
}
