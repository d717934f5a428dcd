package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioRow() *ScenarioRow {
	return &ScenarioRow{
		SKU:        "SKU-A",
		TypeKey:    "Pet|2",
		GroupKey:   "Pet|2-3L",
		Volume:     1000,
		Elasticity: -1.2,
		UnitPrice:  10,
		UnitMargin: 4,
		DriverCosts: map[string]float64{
			"concentrate": 2.0,
			"sweetener":   1.0,
		},
	}
}

// TestSimulatePriceShock verifies the elasticity response and the
// concentrate repricing through the endpoint: +10% price with -1.2
// elasticity drops volume by 12%, and concentrate keeps its 20% revenue
// share at the new price.
func TestSimulatePriceShock(t *testing.T) {
	router := setupRouter(t)

	reqBody := SimulateRequest{
		Rows:  []*ScenarioRow{scenarioRow()},
		Shock: ShockInput{PricePct: 0.10},
	}

	w := postJSON(t, router, "/api/v1/scenario", reqBody)
	assert.Equal(t, http.StatusOK, w.Code)

	var response SimulateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	require.Len(t, response.Rows, 1)
	row := response.Rows[0]
	assert.InDelta(t, 11.0, row.UnitPriceSim, 1e-9)
	assert.InDelta(t, 880.0, row.VolumeSim, 1e-9)
	assert.InDelta(t, 2.2, row.UnitPriceSim*0.2, 1e-9)

	assert.InDelta(t, 10000.0, response.Baseline.Revenue, 1e-9)
	assert.InDelta(t, 4000.0, response.Baseline.Margin, 1e-9)
	assert.InDelta(t, 9680.0, response.Simulated.Revenue, 1e-9)
	assert.Nil(t, response.Optimization)
}

// TestSimulateCostShock checks a pure cost shock: no price move, so
// volume holds and margin absorbs the sweetener increase.
func TestSimulateCostShock(t *testing.T) {
	router := setupRouter(t)

	reqBody := SimulateRequest{
		Rows: []*ScenarioRow{scenarioRow()},
		Shock: ShockInput{
			CostPct: map[string]float64{"sweetener": 0.5},
		},
	}

	w := postJSON(t, router, "/api/v1/scenario", reqBody)
	assert.Equal(t, http.StatusOK, w.Code)

	var response SimulateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	require.Len(t, response.Rows, 1)
	row := response.Rows[0]
	assert.InDelta(t, 1000.0, row.VolumeSim, 1e-9)
	assert.InDelta(t, 3.5, row.UnitMarginSim, 1e-9)
}

func TestSimulateRejectsUnknownDriver(t *testing.T) {
	router := setupRouter(t)

	reqBody := SimulateRequest{
		Rows: []*ScenarioRow{scenarioRow()},
		Shock: ShockInput{
			CostPct: map[string]float64{"aluminium": 0.1},
		},
	}

	w := postJSON(t, router, "/api/v1/scenario", reqBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestSimulateWithOptimization chains the shock into a capacity run: the
// shocked volume exceeds the group max, so allocation caps it.
func TestSimulateWithOptimization(t *testing.T) {
	router := setupRouter(t)

	reqBody := SimulateRequest{
		Rows:     []*ScenarioRow{scenarioRow()},
		Shock:    ShockInput{PricePct: -0.10}, // cheaper, volume grows to 1120
		Groups:   []*CapacityGroupInput{{Key: "Pet|2-3L", Max: floatPtr(1050)}},
		Optimize: true,
	}

	w := postJSON(t, router, "/api/v1/scenario", reqBody)
	assert.Equal(t, http.StatusOK, w.Code)

	var response SimulateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	require.Len(t, response.Rows, 1)
	assert.InDelta(t, 1120.0, response.Rows[0].VolumeSim, 1e-9)

	require.NotNil(t, response.Optimization)
	require.Len(t, response.Optimization.Allocations, 1)
	assert.InDelta(t, 1050.0, response.Optimization.Allocations[0].Volume, 1e-6)
}

func TestSimulateRejectsEmptyRows(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(t, router, "/api/v1/scenario", SimulateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
