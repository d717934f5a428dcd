package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mixplan/mix-service/internal/database"
	"github.com/mixplan/mix-service/internal/optimizer"
	"github.com/mixplan/mix-service/internal/scenario"
)

// ============================================================================
// Scenario Simulation Endpoints
// ============================================================================

// ScenarioRow is one product's baseline economics in a simulation request
type ScenarioRow struct {
	SKU         string             `json:"sku" binding:"required"`
	Brand       string             `json:"brand,omitempty"`
	TypeKey     string             `json:"typeKey" binding:"required"`
	GroupKey    string             `json:"groupKey,omitempty"`
	Volume      float64            `json:"volume" binding:"min=0"`
	Elasticity  float64            `json:"elasticity"`
	UnitPrice   float64            `json:"unitPrice"`
	UnitMargin  float64            `json:"unitMargin"`
	DriverCosts map[string]float64 `json:"driverCosts,omitempty"`
}

// ShockInput describes the scenario: a uniform price adjustment and
// per-driver cost shocks, all as fractions (0.05 = +5%)
type ShockInput struct {
	PricePct float64            `json:"pricePct"`
	CostPct  map[string]float64 `json:"costPct,omitempty"`
}

// SimulateRequest represents the scenario simulation request. When
// Optimize is set the simulated rows are also run through capacity
// allocation against the supplied groups.
type SimulateRequest struct {
	Label    string                `json:"label,omitempty"`
	Rows     []*ScenarioRow        `json:"rows" binding:"required,min=1"`
	Shock    ShockInput            `json:"shock"`
	Groups   []*CapacityGroupInput `json:"groups,omitempty"`
	Optimize bool                  `json:"optimize,omitempty"`
	Persist  bool                  `json:"persist,omitempty"`
}

// SimulatedRowResult is one row after the shock has been applied
type SimulatedRowResult struct {
	SKU           string  `json:"sku"`
	TypeKey       string  `json:"typeKey"`
	GroupKey      string  `json:"groupKey,omitempty"`
	UnitPriceSim  float64 `json:"unitPriceSim"`
	VolumeSim     float64 `json:"volumeSim"`
	UnitCostSim   float64 `json:"unitCostSim"`
	UnitMarginSim float64 `json:"unitMarginSim"`
	Revenue       float64 `json:"revenue"`
	Margin        float64 `json:"margin"`
}

// ScenarioTotals aggregates revenue, margin and volume over a scenario
type ScenarioTotals struct {
	Revenue float64 `json:"revenue"`
	Margin  float64 `json:"margin"`
	Volume  float64 `json:"volume"`
}

// SimulateResponse represents the scenario simulation response
type SimulateResponse struct {
	Rows         []*SimulatedRowResult `json:"rows"`
	Baseline     ScenarioTotals        `json:"baseline"`
	Simulated    ScenarioTotals        `json:"simulated"`
	Optimization *OptimizeResponse     `json:"optimization,omitempty"`
}

// Simulate applies a price/cost shock to baseline product economics
// POST /api/v1/scenario
func Simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shock, err := toShock(req.Shock)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := toScenarioRows(req.Rows)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	simulated := scenario.NewSimulator().Apply(rows, shock)

	response := &SimulateResponse{
		Rows:      make([]*SimulatedRowResult, len(simulated)),
		Baseline:  baselineTotals(rows),
		Simulated: simulatedTotals(simulated),
	}
	for i := range simulated {
		s := &simulated[i]
		response.Rows[i] = &SimulatedRowResult{
			SKU:           s.SKU,
			TypeKey:       s.TypeKey,
			GroupKey:      s.GroupKey,
			UnitPriceSim:  s.UnitPriceSim,
			VolumeSim:     s.VolumeSim,
			UnitCostSim:   s.UnitCostSim,
			UnitMarginSim: s.UnitMarginSim,
			Revenue:       s.Revenue,
			Margin:        s.Margin,
		}
	}

	if req.Optimize {
		if mixOptimizer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Optimizer not initialized"})
			return
		}

		products := optimizer.Aggregate(scenario.OptimizerRows(simulated))
		result, err := mixOptimizer.Optimize(c.Request.Context(), products, toCapacityGroups(req.Groups))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Optimization = buildOptimizeResponse(result)

		if req.Persist {
			run, err := database.SaveRun(c.Request.Context(), req.Label, result)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to persist scenario run")
			} else {
				response.Optimization.RunID = run.ID
			}
		}
	}

	c.JSON(http.StatusOK, response)
}

// toShock validates driver names and converts the shock input.
func toShock(in ShockInput) (scenario.Shock, error) {
	shock := scenario.Shock{
		PricePct: in.PricePct,
		CostPct:  make(map[scenario.Driver]float64, len(in.CostPct)),
	}
	for name, pct := range in.CostPct {
		d, err := parseDriver(name)
		if err != nil {
			return scenario.Shock{}, err
		}
		shock.CostPct[d] = pct
	}
	return shock, nil
}

func toScenarioRows(rows []*ScenarioRow) ([]scenario.Row, error) {
	out := make([]scenario.Row, len(rows))
	for i, r := range rows {
		costs := make(map[scenario.Driver]float64, len(r.DriverCosts))
		for name, cost := range r.DriverCosts {
			d, err := parseDriver(name)
			if err != nil {
				return nil, fmt.Errorf("row %s: %w", r.SKU, err)
			}
			costs[d] = cost
		}
		out[i] = scenario.Row{
			SKU:         r.SKU,
			Brand:       r.Brand,
			TypeKey:     r.TypeKey,
			GroupKey:    r.GroupKey,
			Volume:      r.Volume,
			Elasticity:  r.Elasticity,
			UnitPrice:   r.UnitPrice,
			UnitMargin:  r.UnitMargin,
			DriverCosts: costs,
		}
	}
	return out, nil
}

func parseDriver(name string) (scenario.Driver, error) {
	for _, d := range scenario.Drivers {
		if string(d) == name {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown cost driver %q", name)
}

func baselineTotals(rows []scenario.Row) ScenarioTotals {
	var t ScenarioTotals
	for i := range rows {
		t.Revenue += rows[i].Volume * rows[i].UnitPrice
		t.Margin += rows[i].Volume * rows[i].UnitMargin
		t.Volume += rows[i].Volume
	}
	return t
}

func simulatedTotals(rows []scenario.SimulatedRow) ScenarioTotals {
	revenue, margin, volume := scenario.Totals(rows)
	return ScenarioTotals{Revenue: revenue, Margin: margin, Volume: volume}
}
