package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingleVolume(t *testing.T) {
	const eps = 1e-6

	tests := []struct {
		name       string
		demand     float64
		capMin     float64
		capMax     float64
		wantVolume float64
		wantStatus GroupStatus
	}{
		{"demand inside bounds", 700, 500, 1000, 700, StatusOK},
		{"demand capped at maximum", 1500, 0, 1000, 1000, StatusAboveMaximum},
		{"demand barely over maximum", 1000.5, 0, 1000, 1000, StatusAboveMaximum},
		{"demand below reachable minimum", 300, 500, 1000, 300, StatusBelowMinimum},
		{"demand raised to minimum", 800, 900, 1000, 900, StatusOK},
		{"minimum above maximum stays at maximum", 800, 1200, 600, 600, StatusBelowMinimum},
		{"zero demand", 0, 100, 1000, 0, StatusBelowMinimum},
		{"zero demand no minimum", 0, 0, 1000, 0, StatusOK},
		{"unbounded maximum", 2500, 0, math.Inf(1), 2500, StatusOK},
		{"exact minimum", 500, 500, 1000, 500, StatusOK},
		{"exact maximum", 1000, 0, 1000, 1000, StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			volume, status := singleVolume(tt.demand, tt.capMin, tt.capMax, eps)
			assert.InDelta(t, tt.wantVolume, volume, 1e-9)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

// Raising to the minimum must never allocate more than demand: the
// minimum is a production floor, not a demand generator.
func TestSingleVolumeNeverExceedsDemand(t *testing.T) {
	for _, demand := range []float64{0, 1, 250, 499.99, 500, 10000} {
		volume, _ := singleVolume(demand, 500, 2000, 1e-6)
		assert.LessOrEqual(t, volume, demand, "demand=%v", demand)
		assert.GreaterOrEqual(t, volume, 0.0, "demand=%v", demand)
	}
}
