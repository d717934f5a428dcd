package optimizer

import (
	"fmt"
	"math"
)

// Row is one raw input record: a product type observed in one territory
// and period slice. Rows sharing a (GroupKey, TypeKey) pair are merged
// into a single Product before optimization; allocating raw rows
// independently would double-count pressure on shared capacity.
type Row struct {
	SKU        string  // source SKU identifier, informational
	Brand      string  // informational only
	TypeKey    string  // canonical product-type key, e.g. "Pet|1.5"
	GroupKey   string  // capacity-group key; empty = unconstrained
	Demand     float64 // projected sellable volume, must be >= 0
	UnitMargin float64 // variable margin per unit, may be negative
	UnitPrice  float64 // net price per unit, 0 when unknown
}

// Product is the unit of allocation: one product type inside one
// capacity group, with demand summed and unit economics averaged over
// its source rows. Products are read-only inputs to a run; unit margin
// is fixed for the duration of the run and never re-derived mid-solve.
type Product struct {
	ID         string  // product-type key, unique within its group
	GroupKey   string  // empty = no shared capacity constraint
	Demand     float64 // upper bound on allocatable volume
	UnitMargin float64
	UnitPrice  float64
}

// CapacityGroup bounds the aggregate volume across every product type
// mapped to its key. Min defaults to 0 and Max to +Inf when a group has
// no declared bound.
type CapacityGroup struct {
	Key string
	Min float64
	Max float64
}

// GroupStatus tags the capacity outcome of an allocation.
type GroupStatus string

const (
	// StatusOK means the group's total volume landed inside [Min, Max].
	StatusOK GroupStatus = "ok"
	// StatusBelowMinimum means demand could not reach the group minimum.
	StatusBelowMinimum GroupStatus = "below_minimum"
	// StatusAboveMaximum means demand overran the group maximum: for a
	// one-product group it flags capped demand, for a shared group it
	// flags a total that exceeded Max beyond tolerance and was corrected.
	StatusAboveMaximum GroupStatus = "above_maximum"
	// StatusUnconstrained marks products with no capacity group.
	StatusUnconstrained GroupStatus = "unconstrained"
)

// Allocation is the optimized outcome for one product. A run produces
// allocations fresh and never mutates them afterwards.
type Allocation struct {
	ProductID      string
	GroupKey       string
	Demand         float64
	Volume         float64 // invariant: 0 <= Volume <= Demand
	UnitMargin     float64
	UnitPrice      float64
	Profit         float64 // Volume * UnitMargin
	FulfillmentPct float64 // 100 * Volume / Demand; 0 when Demand is 0
	Status         GroupStatus
}

// Metrics summarizes one optimization run against its demand baseline.
type Metrics struct {
	VolumeBefore         float64 // baseline volume (demand, capped per group)
	VolumeAfter          float64
	ProfitBefore         float64
	ProfitAfter          float64
	ImprovementPct       float64 // profit delta relative to baseline
	GroupsOptimized      int
	GroupsWithViolations int // groups finishing below Min or above Max
	FallbackCount        int // groups solved by the greedy waterfall alone
}

// Result is the complete output of one optimization run. Allocations
// are ordered exactly as the input products.
type Result struct {
	Allocations []Allocation
	Metrics     Metrics
}

// TotalVolume sums allocated volume across all allocations.
func (r *Result) TotalVolume() float64 {
	var v float64
	for i := range r.Allocations {
		v += r.Allocations[i].Volume
	}
	return v
}

// TotalProfit sums realized profit across all allocations.
func (r *Result) TotalProfit() float64 {
	var p float64
	for i := range r.Allocations {
		p += r.Allocations[i].Profit
	}
	return p
}

// Score aggregates realized totals over a set of allocations.
type Score struct {
	Volume  float64 // sum of Volume
	Revenue float64 // sum of Volume * UnitPrice
	Profit  float64 // sum of Volume * UnitMargin
}

// newAllocation builds an allocation with its derived fields populated.
func newAllocation(p Product, volume float64, status GroupStatus) Allocation {
	a := Allocation{
		ProductID:  p.ID,
		GroupKey:   p.GroupKey,
		Demand:     p.Demand,
		Volume:     volume,
		UnitMargin: p.UnitMargin,
		UnitPrice:  p.UnitPrice,
		Profit:     volume * p.UnitMargin,
		Status:     status,
	}
	if p.Demand > 0 {
		a.FulfillmentPct = 100 * volume / p.Demand
	}
	return a
}

// recompute refreshes Profit and FulfillmentPct after a volume change.
func (a *Allocation) recompute() {
	a.Profit = a.Volume * a.UnitMargin
	a.FulfillmentPct = 0
	if a.Demand > 0 {
		a.FulfillmentPct = 100 * a.Volume / a.Demand
	}
}

// unboundedMax reports whether a group maximum is effectively absent.
func unboundedMax(max float64) bool {
	return math.IsInf(max, 1)
}

// ErrInvalidInput is returned when the optimization input is unusable.
type ErrInvalidInput struct {
	Field  string
	Reason string
	Index  int
}

func (e ErrInvalidInput) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("%s: %s (index %d)", e.Field, e.Reason, e.Index)
	}
	return e.Field + ": " + e.Reason
}
