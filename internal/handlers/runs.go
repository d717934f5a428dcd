package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/mixplan/mix-service/internal/database"
)

// ListRunsRequest represents query parameters for listing allocation runs
type ListRunsRequest struct {
	Limit int `form:"limit" json:"limit" binding:"min=0,max=100" jsonschema:"minimum=0,maximum=100"`
}

// ListRunsResponse represents the response for listing allocation runs
type ListRunsResponse struct {
	Runs  []database.Run `json:"runs" jsonschema:"required"`
	Total int            `json:"total" jsonschema:"required"`
}

// RunDetailResponse is one persisted run with its allocation rows
type RunDetailResponse struct {
	Run  *database.Run     `json:"run" jsonschema:"required"`
	Rows []database.RunRow `json:"rows"`
}

// ListAllocationRuns returns persisted allocation runs, most recent first
// @Summary List allocation runs
// @Description Returns persisted allocation run summaries, most recent first
// @Tags runs
// @Produce json
// @Param limit query int false "Number of runs to return" default(50) minimum(1) maximum(100)
// @Success 200 {object} ListRunsResponse
// @Failure 503 {object} map[string]string "Persistence not configured"
// @Router /api/v1/runs [get]
func ListAllocationRuns(c *gin.Context) {
	var req ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if database.Pool() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run persistence not configured"})
		return
	}

	runs, err := database.ListRuns(c.Request.Context(), req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []database.Run{}
	}

	c.JSON(http.StatusOK, ListRunsResponse{Runs: runs, Total: len(runs)})
}

// GetAllocationRun returns one persisted run with its allocation rows
// @Summary Get allocation run
// @Description Returns one persisted run summary together with its per-product allocations
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} RunDetailResponse
// @Failure 404 {object} map[string]string "Run not found"
// @Router /api/v1/runs/{id} [get]
func GetAllocationRun(c *gin.Context) {
	if database.Pool() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run persistence not configured"})
		return
	}

	id := c.Param("id")
	run, err := database.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rows, err := database.GetRunRows(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, RunDetailResponse{Run: run, Rows: rows})
}
