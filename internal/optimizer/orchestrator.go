package optimizer

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Optimizer allocates production volume across products that share
// manufacturing capacity, maximizing total profit at fixed unit
// margins. It holds no I/O: callers aggregate rows, resolve capacity
// groups and persist results themselves.
type Optimizer struct {
	config  *Config
	metrics *MetricsRecorder
	logger  zerolog.Logger
}

// New creates an optimizer with the given configuration. A nil config
// uses Defaults.
func New(cfg *Config) (*Optimizer, error) {
	if cfg == nil {
		cfg = Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{
		config:  cfg,
		metrics: NewMetricsRecorder(),
		logger:  log.With().Str("component", "mix_optimizer").Logger(),
	}, nil
}

// Optimize runs one allocation over the given products and capacity
// groups. Products with an empty GroupKey pass through at full demand.
// Groups are solved independently, in the order their keys first appear
// in the product list; allocations come back in exactly the input
// product order.
//
// An empty product list yields an empty result, not an error.
func (o *Optimizer) Optimize(ctx context.Context, products []Product, groups []CapacityGroup) (*Result, error) {
	start := time.Now()

	if len(products) > o.config.MaxProducts {
		return nil, ErrInvalidInput{Field: "products", Reason: "exceeds maximum allowed"}
	}
	for i, p := range products {
		if p.ID == "" {
			return nil, ErrInvalidInput{Field: "products", Reason: "empty product ID", Index: i}
		}
	}

	bounds := o.sanitizeGroups(groups)

	// Partition by group, preserving first-appearance group order and
	// remembering each product's position for the final ordering.
	type memberRef struct {
		product Product
		pos     int
	}
	groupOrder := make([]string, 0)
	members := make(map[string][]memberRef)
	allocations := make([]Allocation, len(products))

	for i, p := range products {
		if !(p.Demand >= 0) { // negatives and NaN
			o.logger.Warn().
				Str("product", p.ID).
				Float64("demand", p.Demand).
				Msg("Invalid demand treated as zero")
			p.Demand = 0
		}
		if p.GroupKey == "" {
			allocations[i] = newAllocation(p, p.Demand, StatusUnconstrained)
			continue
		}
		if _, seen := members[p.GroupKey]; !seen {
			groupOrder = append(groupOrder, p.GroupKey)
		}
		members[p.GroupKey] = append(members[p.GroupKey], memberRef{product: p, pos: i})
	}

	fallbacks := 0
	violations := 0
	for _, key := range groupOrder {
		if err := ctx.Err(); err != nil {
			o.metrics.RecordRun("run", time.Since(start), false)
			return nil, err
		}

		refs := members[key]
		g := boundsFor(bounds, key)
		groupStart := time.Now()

		if len(refs) == 1 {
			a := o.allocateSingle(refs[0].product, g)
			allocations[refs[0].pos] = a
			o.metrics.RecordRun("single_type", time.Since(groupStart), true)
			if a.Status != StatusOK {
				violations++
				o.metrics.RecordCapacityViolation(a.Status)
			}
			continue
		}

		groupProducts := make([]Product, len(refs))
		for i, ref := range refs {
			groupProducts[i] = ref.product
		}
		vols, status, fellBack := o.allocateMulti(groupProducts, g)
		for i, ref := range refs {
			allocations[ref.pos] = newAllocation(ref.product, vols[i], status)
		}

		mode := "multi_type_solver"
		if fellBack {
			mode = "multi_type_greedy"
			fallbacks++
		}
		o.metrics.RecordRun(mode, time.Since(groupStart), true)
		if status != StatusOK {
			violations++
			o.metrics.RecordCapacityViolation(status)
		}
	}

	result := &Result{Allocations: allocations}
	result.Metrics = o.buildMetrics(products, groups, allocations, len(groupOrder), violations, fallbacks)

	o.metrics.RecordRunSize(len(products), len(groupOrder))
	o.metrics.RecordImprovement(result.Metrics.ImprovementPct)
	o.metrics.RecordRun("run", time.Since(start), true)

	o.logger.Info().
		Int("products", len(products)).
		Int("groups", len(groupOrder)).
		Int("violations", violations).
		Int("fallbacks", fallbacks).
		Float64("profit_after", result.Metrics.ProfitAfter).
		Float64("improvement_pct", result.Metrics.ImprovementPct).
		Dur("duration", time.Since(start)).
		Msg("Allocation run complete")

	return result, nil
}

// sanitizeGroups normalizes declared capacity bounds. Missing bounds
// default to [0, +Inf); a negative maximum is treated as absent and an
// infeasible minimum (above the maximum) is dropped, both with a
// warning so bad capacity data surfaces in the logs instead of
// silently shaping the plan.
func (o *Optimizer) sanitizeGroups(groups []CapacityGroup) map[string]CapacityGroup {
	bounds := make(map[string]CapacityGroup, len(groups))
	for _, g := range groups {
		if g.Max < 0 || math.IsNaN(g.Max) {
			o.logger.Warn().
				Str("group", g.Key).
				Float64("cap_max", g.Max).
				Msg("Invalid group maximum, treated as unbounded")
			g.Max = math.Inf(1)
		}
		if g.Min < 0 || math.IsNaN(g.Min) {
			g.Min = 0
		}
		if g.Min > g.Max {
			o.logger.Warn().
				Str("group", g.Key).
				Float64("cap_min", g.Min).
				Float64("cap_max", g.Max).
				Msg("Group minimum exceeds maximum, minimum dropped")
			g.Min = 0
		}
		bounds[g.Key] = g
	}
	return bounds
}

// boundsFor returns the sanitized bounds for a group key, defaulting to
// [0, +Inf) for groups that were never declared.
func boundsFor(bounds map[string]CapacityGroup, key string) CapacityGroup {
	if g, ok := bounds[key]; ok {
		return g
	}
	return CapacityGroup{Key: key, Min: 0, Max: math.Inf(1)}
}
