package optimizer

import (
	"math"
	"sort"
)

// allocateMulti allocates a capacity group shared by several product
// types. The greedy waterfall below is the exact optimum for a linear
// profit objective under one shared maximum, so it always produces the
// seed; the iterative solver then gets a chance to refine it, which
// matters once the objective stops being linear (price elasticity,
// changeover penalties). If the solver fails to converge, or converges
// to something no better than the seed, the seed wins and the group is
// counted as a fallback.
//
// Returned volumes are positionally aligned with the input products.
func (o *Optimizer) allocateMulti(products []Product, g CapacityGroup) (vols []float64, status GroupStatus, fallback bool) {
	n := len(products)
	vols = greedyWaterfall(products, g.Max)

	if o.config.EnableSolver && n > 1 && (g.Min > 0 || !unboundedMax(g.Max)) {
		fallback = !o.refineWithSolver(products, g, vols)
	}

	// Post-solve guards: volumes never exceed demand, and the group
	// total never exceeds the maximum. The solver respects both by
	// construction; the rescale protects against accumulated float
	// drift on large groups.
	total := 0.0
	for i := range vols {
		if vols[i] < 0 {
			vols[i] = 0
		}
		if vols[i] > products[i].Demand {
			vols[i] = products[i].Demand
		}
		total += vols[i]
	}
	if !unboundedMax(g.Max) && total > g.Max+o.config.CapacityEpsilon {
		factor := g.Max / total
		for i := range vols {
			vols[i] *= factor
		}
		overRatio := (total - g.Max) / g.Max
		if overRatio > o.config.RescaleWarnRatio {
			o.logger.Warn().
				Str("group", g.Key).
				Float64("total", total).
				Float64("cap_max", g.Max).
				Float64("over_ratio", overRatio).
				Msg("Group total exceeded maximum beyond tolerance, volumes rescaled")
		}
		o.metrics.RecordRescaleCorrection()
		total = g.Max
	}

	switch {
	case total < g.Min-o.config.CapacityEpsilon:
		status = StatusBelowMinimum
	case !unboundedMax(g.Max) && total > g.Max+o.config.CapacityEpsilon:
		status = StatusAboveMaximum
	default:
		status = StatusOK
	}
	return vols, status, fallback
}

// greedyWaterfall fills demand in descending unit-margin order until
// the shared maximum is exhausted. Ties break on input position, which
// keeps the result deterministic for equal-margin products.
func greedyWaterfall(products []Product, capMax float64) []float64 {
	order := make([]int, len(products))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return products[order[a]].UnitMargin > products[order[b]].UnitMargin
	})

	vols := make([]float64, len(products))
	remaining := capMax
	for _, i := range order {
		v := products[i].Demand
		if !unboundedMax(capMax) {
			v = math.Min(v, remaining)
			remaining -= v
		}
		vols[i] = v
	}
	return vols
}

// refineWithSolver runs the constrained solver seeded with vols and
// overwrites vols with the solver's point when it converged, matched or
// beat the seed's profit, and kept the group total at or above the
// reachable part of the minimum. Returns false when the seed was kept.
func (o *Optimizer) refineWithSolver(products []Product, g CapacityGroup, vols []float64) bool {
	n := len(products)
	margins := make([]float64, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	totalDemand := 0.0
	for i, p := range products {
		margins[i] = p.UnitMargin
		upper[i] = p.Demand
		totalDemand += p.Demand
	}

	// The floor binds only as far as demand can reach it; past that the
	// group ships everything and reports the shortfall.
	sumMin := math.Min(g.Min, totalDemand)

	problem := solveProblem{
		obj: func(x []float64) float64 {
			var v float64
			for i := range x {
				v += margins[i] * x[i]
			}
			return v
		},
		grad: func(x []float64) []float64 {
			return margins
		},
		lower:  lower,
		upper:  upper,
		sumMin: sumMin,
		sumMax: g.Max,
	}

	solution, converged := solveConstrained(problem, vols, o.config.SolverMaxIterations, o.config.SolverTolerance)
	if !converged {
		o.logger.Debug().
			Str("group", g.Key).
			Int("products", n).
			Msg("Solver did not converge, keeping greedy allocation")
		o.metrics.RecordSolverFallback()
		return false
	}
	if problem.obj(solution) < problem.obj(vols)-o.config.SolverTolerance {
		o.logger.Debug().
			Str("group", g.Key).
			Msg("Solver converged below greedy profit, keeping greedy allocation")
		o.metrics.RecordSolverFallback()
		return false
	}
	total := 0.0
	for _, v := range solution {
		total += v
	}
	if total < sumMin-o.config.CapacityEpsilon {
		o.logger.Debug().
			Str("group", g.Key).
			Float64("total", total).
			Float64("cap_min", sumMin).
			Msg("Solver result below group minimum, keeping greedy allocation")
		o.metrics.RecordSolverFallback()
		return false
	}
	copy(vols, solution)
	return true
}
