package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mixplan/mix-service/internal/database"
	"github.com/mixplan/mix-service/internal/optimizer"
)

// ============================================================================
// Mix Optimization Endpoints
// ============================================================================

// ProductRow represents one product row in an optimization request.
// Rows sharing the same group and type key are merged before the run.
type ProductRow struct {
	SKU        string  `json:"sku" binding:"required"`
	Brand      string  `json:"brand,omitempty"`
	TypeKey    string  `json:"typeKey" binding:"required"`
	GroupKey   string  `json:"groupKey,omitempty"`
	Demand     float64 `json:"demand" binding:"min=0"`
	UnitMargin float64 `json:"unitMargin"`
	UnitPrice  float64 `json:"unitPrice,omitempty"`
}

// CapacityGroupInput declares capacity bounds for one group. A null or
// omitted max means the group is unbounded above.
type CapacityGroupInput struct {
	Key string   `json:"key" binding:"required"`
	Min float64  `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// OptimizeRequest represents the volume allocation request
type OptimizeRequest struct {
	Label   string                `json:"label,omitempty"`
	Rows    []*ProductRow         `json:"rows" binding:"required,min=1"`
	Groups  []*CapacityGroupInput `json:"groups,omitempty"`
	Persist bool                  `json:"persist,omitempty"`
}

// AllocationResult is one product's optimized volume
type AllocationResult struct {
	ProductID      string  `json:"productId"`
	GroupKey       string  `json:"groupKey,omitempty"`
	Demand         float64 `json:"demand"`
	Volume         float64 `json:"volume"`
	Profit         float64 `json:"profit"`
	FulfillmentPct float64 `json:"fulfillmentPct"`
	Status         string  `json:"status"`
}

// RunMetrics summarizes a run against its demand baseline
type RunMetrics struct {
	VolumeBefore         float64 `json:"volumeBefore"`
	VolumeAfter          float64 `json:"volumeAfter"`
	ProfitBefore         float64 `json:"profitBefore"`
	ProfitAfter          float64 `json:"profitAfter"`
	ImprovementPct       float64 `json:"improvementPct"`
	GroupsOptimized      int     `json:"groupsOptimized"`
	GroupsWithViolations int     `json:"groupsWithViolations"`
	FallbackCount        int     `json:"fallbackCount"`
}

// OptimizeResponse represents the volume allocation response
type OptimizeResponse struct {
	RunID       string              `json:"runId,omitempty"`
	Allocations []*AllocationResult `json:"allocations"`
	Metrics     RunMetrics          `json:"metrics"`
}

// Global optimizer instance (initialized by the application)
var mixOptimizer *optimizer.Optimizer

// InitHandlers initializes the shared optimizer instance.
// This should be called during application startup.
func InitHandlers(opt *optimizer.Optimizer) {
	mixOptimizer = opt
}

// Optimize handles volume allocation across capacity groups
// POST /api/v1/optimize
func Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if mixOptimizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Optimizer not initialized"})
		return
	}

	products := optimizer.Aggregate(toOptimizerRows(req.Rows))
	groups := toCapacityGroups(req.Groups)

	result, err := mixOptimizer.Optimize(c.Request.Context(), products, groups)
	if err != nil {
		var invalid optimizer.ErrInvalidInput
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := buildOptimizeResponse(result)

	if req.Persist {
		run, err := database.SaveRun(c.Request.Context(), req.Label, result)
		if err != nil {
			// The allocation itself succeeded; report it with a warning
			// rather than failing the whole request.
			log.Warn().Err(err).Msg("Failed to persist allocation run")
		} else {
			response.RunID = run.ID
		}
	}

	c.JSON(http.StatusOK, response)
}

// toOptimizerRows converts request rows to the optimizer's input shape.
func toOptimizerRows(rows []*ProductRow) []optimizer.Row {
	out := make([]optimizer.Row, len(rows))
	for i, r := range rows {
		out[i] = optimizer.Row{
			SKU:        r.SKU,
			Brand:      r.Brand,
			TypeKey:    r.TypeKey,
			GroupKey:   r.GroupKey,
			Demand:     r.Demand,
			UnitMargin: r.UnitMargin,
			UnitPrice:  r.UnitPrice,
		}
	}
	return out
}

// toCapacityGroups converts declared bounds, mapping an absent max to an
// unbounded group.
func toCapacityGroups(groups []*CapacityGroupInput) []optimizer.CapacityGroup {
	out := make([]optimizer.CapacityGroup, len(groups))
	for i, g := range groups {
		max := math.Inf(1)
		if g.Max != nil {
			max = *g.Max
		}
		out[i] = optimizer.CapacityGroup{Key: g.Key, Min: g.Min, Max: max}
	}
	return out
}

func buildOptimizeResponse(result *optimizer.Result) *OptimizeResponse {
	allocations := make([]*AllocationResult, len(result.Allocations))
	for i := range result.Allocations {
		a := &result.Allocations[i]
		allocations[i] = &AllocationResult{
			ProductID:      a.ProductID,
			GroupKey:       a.GroupKey,
			Demand:         a.Demand,
			Volume:         a.Volume,
			Profit:         a.Profit,
			FulfillmentPct: a.FulfillmentPct,
			Status:         string(a.Status),
		}
	}

	m := result.Metrics
	return &OptimizeResponse{
		Allocations: allocations,
		Metrics: RunMetrics{
			VolumeBefore:         m.VolumeBefore,
			VolumeAfter:          m.VolumeAfter,
			ProfitBefore:         m.ProfitBefore,
			ProfitAfter:          m.ProfitAfter,
			ImprovementPct:       m.ImprovementPct,
			GroupsOptimized:      m.GroupsOptimized,
			GroupsWithViolations: m.GroupsWithViolations,
			FallbackCount:        m.FallbackCount,
		},
	}
}
