package optimizer

import "math"

// singleVolume computes the closed-form allocation for a product that
// is alone in its capacity group. No solver is involved:
//
//  1. take demand, capped at the group maximum;
//  2. if that lands below the group minimum and demand could actually
//     reach it, raise to the minimum (never past the maximum);
//  3. never exceed demand.
//
// The status reports how demand relates to the group bounds: below
// minimum when the final volume cannot reach the floor, above maximum
// when uncapped demand overruns the ceiling (the volume itself stays
// capped). Neither is an error; they are exactly what planners need
// surfaced about the line.
func singleVolume(demand, capMin, capMax, eps float64) (float64, GroupStatus) {
	volume := math.Min(demand, capMax)
	if volume < capMin && demand >= capMin {
		volume = math.Min(capMin, capMax)
	}
	if volume > demand {
		volume = demand
	}
	if volume < 0 {
		volume = 0
	}

	switch {
	case volume < capMin-eps:
		return volume, StatusBelowMinimum
	case demand > capMax+eps:
		return volume, StatusAboveMaximum
	default:
		return volume, StatusOK
	}
}

// allocateSingle allocates a one-product capacity group.
func (o *Optimizer) allocateSingle(p Product, g CapacityGroup) Allocation {
	volume, status := singleVolume(p.Demand, g.Min, g.Max, o.config.CapacityEpsilon)
	return newAllocation(p, volume, status)
}
