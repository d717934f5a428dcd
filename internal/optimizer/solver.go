package optimizer

import "math"

// solveProblem describes a box-and-budget constrained maximization:
// maximize obj(x) subject to lower[i] <= x[i] <= upper[i] and
// sumMin <= sum(x) <= sumMax. sumMax may be +Inf; sumMin defaults to
// zero. The objective must be concave for the solver to guarantee an
// optimum; for the linear profit objective this always holds.
type solveProblem struct {
	obj    func(x []float64) float64
	grad   func(x []float64) []float64
	lower  []float64
	upper  []float64
	sumMin float64
	sumMax float64
}

// solveConstrained runs projected gradient ascent from the starting
// point x0. Each iteration moves along the reduced gradient (the
// gradient with components pointing out of active bounds removed, and
// the uniform component removed when the run sits on a budget face),
// backtracking from the largest feasible step. It returns the best
// point found and whether a stationary point was reached before the
// iteration cap: the run is stationary when the reduced gradient
// vanishes relative to tol, which is the optimality condition for this
// constraint set. A false flag means the caller should fall back to
// its deterministic seed.
func solveConstrained(p solveProblem, x0 []float64, maxIter int, tol float64) ([]float64, bool) {
	n := len(x0)
	x := make([]float64, n)
	copy(x, x0)
	projectFeasible(x, p.lower, p.upper, p.sumMin, p.sumMax)

	fx := p.obj(x)
	trial := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		g := p.grad(x)
		d := reducedGradient(x, g, p)
		if maxAbs(d) <= tol*(1+maxAbs(g)) {
			return x, true
		}

		step := maxFeasibleStep(x, d, p)
		improved := false
		for step > 1e-18 {
			for i := 0; i < n; i++ {
				trial[i] = x[i] + step*d[i]
			}
			projectFeasible(trial, p.lower, p.upper, p.sumMin, p.sumMax)
			if fTrial := p.obj(trial); fTrial > fx {
				copy(x, trial)
				fx = fTrial
				improved = true
				break
			}
			step *= 0.5
		}
		if !improved {
			// No representable ascent step along the reduced gradient:
			// stationary to float precision.
			return x, true
		}
	}

	return x, false
}

// reducedGradient computes the feasible ascent direction at x. Gradient
// components that would push a variable past an active bound are
// zeroed; when x sits on an active budget face that the remaining
// gradient would leave, the direction is projected onto the face by
// removing its uniform component over the free variables, re-pinning
// any variable the shift turns against its own bound.
func reducedGradient(x, g []float64, p solveProblem) []float64 {
	n := len(x)
	d := make([]float64, n)
	free := make([]bool, n)
	total := 0.0
	for i := range x {
		total += x[i]
		d[i] = g[i]
		free[i] = true
		if atBound(x[i], p.lower[i]) && d[i] < 0 {
			d[i], free[i] = 0, false
		}
		if atBound(x[i], p.upper[i]) && d[i] > 0 {
			d[i], free[i] = 0, false
		}
	}

	sumD := 0.0
	for i := range d {
		sumD += d[i]
	}
	againstMax := !math.IsInf(p.sumMax, 1) && total >= p.sumMax-budgetEps(p.sumMax) && sumD > 0
	againstMin := p.sumMin > 0 && total <= p.sumMin+budgetEps(p.sumMin) && sumD < 0
	if !againstMax && !againstMin {
		return d
	}

	for {
		sum, count := 0.0, 0
		for i := range d {
			if free[i] {
				sum += g[i]
				count++
			}
		}
		if count == 0 {
			return d
		}
		lambda := sum / float64(count)
		repinned := false
		for i := range d {
			if !free[i] {
				continue
			}
			v := g[i] - lambda
			if (atBound(x[i], p.lower[i]) && v < 0) || (atBound(x[i], p.upper[i]) && v > 0) {
				d[i], free[i] = 0, false
				repinned = true
			}
		}
		if repinned {
			continue
		}
		for i := range d {
			if free[i] {
				d[i] = g[i] - lambda
			}
		}
		return d
	}
}

// maxFeasibleStep returns the largest step along d that keeps x inside
// the box and the budget. Directions produced by reducedGradient never
// point out of an active constraint, so the result is positive.
func maxFeasibleStep(x, d []float64, p solveProblem) float64 {
	step := math.Inf(1)
	sumX, sumD := 0.0, 0.0
	for i := range x {
		sumX += x[i]
		sumD += d[i]
		switch {
		case d[i] > 0:
			if r := (p.upper[i] - x[i]) / d[i]; r < step {
				step = r
			}
		case d[i] < 0:
			if r := (p.lower[i] - x[i]) / d[i]; r < step {
				step = r
			}
		}
	}
	if sumD > 0 && !math.IsInf(p.sumMax, 1) {
		if r := (p.sumMax - sumX) / sumD; r < step {
			step = r
		}
	}
	if sumD < 0 && p.sumMin > 0 {
		if r := (p.sumMin - sumX) / sumD; r < step {
			step = r
		}
	}
	if math.IsInf(step, 1) {
		// Every binding range is unbounded; scale so one move can cross
		// the widest finite span.
		span := 1.0
		for i := range x {
			if r := p.upper[i] - p.lower[i]; !math.IsInf(r, 1) && r > span {
				span = r
			}
		}
		step = span / maxAbs(d)
	}
	return step
}

func atBound(v, bound float64) bool {
	if math.IsInf(bound, 0) {
		return false
	}
	return math.Abs(v-bound) <= 1e-9*(1+math.Abs(bound))
}

func budgetEps(bound float64) float64 {
	return 1e-9 * (1 + math.Abs(bound))
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

// projectFeasible projects x in place onto the feasible set
// {lower <= x <= upper, sumMin <= sum(x) <= sumMax}. A sum outside the
// budget is repaired by the uniform shift lambda such that clipping
// x -/+ lambda back into the box lands the sum exactly on the violated
// bound; lambda is located by bisection, which is exact enough at 64
// rounds for any planning-scale volume.
func projectFeasible(x, lower, upper []float64, sumMin, sumMax float64) {
	total := 0.0
	for i := range x {
		if x[i] < lower[i] {
			x[i] = lower[i]
		}
		if x[i] > upper[i] {
			x[i] = upper[i]
		}
		total += x[i]
	}

	if !math.IsInf(sumMax, 1) && total > sumMax {
		shifted := func(lambda float64) float64 {
			s := 0.0
			for i := range x {
				v := x[i] - lambda
				if v < lower[i] {
					v = lower[i]
				}
				s += v
			}
			return s
		}

		lo, hi := 0.0, 0.0
		for i := range x {
			if d := x[i] - lower[i]; d > hi {
				hi = d
			}
		}
		for iter := 0; iter < 64; iter++ {
			mid := (lo + hi) / 2
			if shifted(mid) > sumMax {
				lo = mid
			} else {
				hi = mid
			}
		}
		lambda := hi
		for i := range x {
			v := x[i] - lambda
			if v < lower[i] {
				v = lower[i]
			}
			x[i] = v
		}
		return
	}

	if sumMin > 0 && total < sumMin {
		raised := func(lambda float64) float64 {
			s := 0.0
			for i := range x {
				v := x[i] + lambda
				if v > upper[i] {
					v = upper[i]
				}
				s += v
			}
			return s
		}

		hi := 1.0
		for raised(hi) < sumMin && hi < math.MaxFloat64/4 {
			hi *= 2
		}
		lo := 0.0
		for iter := 0; iter < 64; iter++ {
			mid := (lo + hi) / 2
			if raised(mid) < sumMin {
				lo = mid
			} else {
				hi = mid
			}
		}
		lambda := hi
		for i := range x {
			v := x[i] + lambda
			if v > upper[i] {
				v = upper[i]
			}
			x[i] = v
		}
	}
}
