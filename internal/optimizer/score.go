package optimizer

import "math"

// Baseline computes the demand-as-volume reference plan: every product
// ships its full demand, except that groups over their maximum are
// capped proportionally, each member keeping its demand share. This is
// the plan the optimizer is measured against; without the proportional
// cap an over-subscribed group would inflate the "before" profit with
// volume no line could ever produce.
func Baseline(products []Product, groups []CapacityGroup) []Allocation {
	maxByKey := make(map[string]float64, len(groups))
	for _, g := range groups {
		if g.Max >= 0 && !math.IsNaN(g.Max) {
			maxByKey[g.Key] = g.Max
		}
	}

	demandByGroup := make(map[string]float64)
	for _, p := range products {
		if p.GroupKey != "" && p.Demand > 0 {
			demandByGroup[p.GroupKey] += p.Demand
		}
	}

	factor := func(key string) float64 {
		max, ok := maxByKey[key]
		if !ok || unboundedMax(max) {
			return 1
		}
		total := demandByGroup[key]
		if total <= max || total == 0 {
			return 1
		}
		return max / total
	}

	allocations := make([]Allocation, len(products))
	for i, p := range products {
		demand := p.Demand
		if !(demand >= 0) {
			demand = 0
		}
		p.Demand = demand
		if p.GroupKey == "" {
			allocations[i] = newAllocation(p, demand, StatusUnconstrained)
			continue
		}
		f := factor(p.GroupKey)
		status := StatusOK
		if f < 1 {
			status = StatusAboveMaximum
		}
		allocations[i] = newAllocation(p, demand*f, status)
	}
	return allocations
}

// ScoreAllocations totals volume, revenue and profit over allocations.
func ScoreAllocations(allocations []Allocation) Score {
	var s Score
	for i := range allocations {
		a := &allocations[i]
		s.Volume += a.Volume
		s.Revenue += a.Volume * a.UnitPrice
		s.Profit += a.Profit
	}
	return s
}

// ImprovementPct expresses the profit delta of after versus before as a
// percentage of the baseline. Zero baseline profit yields zero rather
// than a division blowup; a run that only exists because the baseline
// made nothing has no meaningful relative improvement.
func ImprovementPct(before, after float64) float64 {
	if before == 0 {
		return 0
	}
	return 100 * (after - before) / math.Abs(before)
}

// buildMetrics assembles run metrics from the optimized allocations and
// the demand baseline.
func (o *Optimizer) buildMetrics(products []Product, groups []CapacityGroup, allocations []Allocation, groupCount, violations, fallbacks int) Metrics {
	baseline := Baseline(products, groups)
	before := ScoreAllocations(baseline)
	after := ScoreAllocations(allocations)

	return Metrics{
		VolumeBefore:         before.Volume,
		VolumeAfter:          after.Volume,
		ProfitBefore:         before.Profit,
		ProfitAfter:          after.Profit,
		ImprovementPct:       ImprovementPct(before.Profit, after.Profit),
		GroupsOptimized:      groupCount,
		GroupsWithViolations: violations,
		FallbackCount:        fallbacks,
	}
}
