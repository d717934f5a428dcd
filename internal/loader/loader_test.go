package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mixplan/mix-service/internal/grouping"
	"github.com/mixplan/mix-service/internal/scenario"
)

func writeProductCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeCapacityXLSX(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"package", "size", "min", "max"}))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "capacity.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

const productCSV = `sku,brand,package,size,month,demand,unit_margin,unit_price,elasticity,cost_concentrate
SKU-1,CC,Pet,2L,2025-01,1000,4.5,10.0,-1.2,2.0
SKU-2,CC,Pet,2L,2025-02,900,4.5,10.0,-1.2,2.0
SKU-3,FANTA,Sleek Can,310ml,2025-01,500,2.0,6.0,-0.8,1.1
SKU-4,KUAT,Tetra,1L,2025-01,200,1.0,3.0,0,0.5
`

func TestLoadProducts(t *testing.T) {
	path := writeProductCSV(t, productCSV)

	records, err := LoadProducts(path, nil)
	require.NoError(t, err)
	require.Len(t, records, 4)

	r := records[0]
	assert.Equal(t, "SKU-1", r.SKU)
	assert.InDelta(t, 2.0, r.SizeLiters, 1e-9)
	assert.InDelta(t, 1000.0, r.Demand, 1e-9)
	assert.InDelta(t, 4.5, r.UnitMargin, 1e-9)
	assert.InDelta(t, -1.2, r.Elasticity, 1e-9)
	assert.InDelta(t, 2.0, r.DriverCosts[scenario.DriverConcentrate], 1e-9)
}

func TestLoadProductsMonthFilter(t *testing.T) {
	path := writeProductCSV(t, productCSV)

	records, err := LoadProducts(path, []string{"2025-01"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "2025-01", r.Month)
	}
}

func TestLoadProductsMissingColumn(t *testing.T) {
	path := writeProductCSV(t, "sku,package,size\nA,Pet,2L\n")

	_, err := LoadProducts(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demand")
}

func TestOptimizerRowsResolveGroups(t *testing.T) {
	path := writeProductCSV(t, productCSV)
	records, err := LoadProducts(path, []string{"2025-01"})
	require.NoError(t, err)

	rows := OptimizerRows(records, grouping.NewResolver())

	require.Len(t, rows, 3)
	assert.Equal(t, grouping.GroupPet2to3L, rows[0].GroupKey)
	assert.Equal(t, grouping.GroupSleekCan310, rows[1].GroupKey)
	// Unrecognized package passes through ungrouped.
	assert.Equal(t, "", rows[2].GroupKey)
	assert.InDelta(t, 200.0, rows[2].Demand, 1e-9)
}

func TestLoadCapacities(t *testing.T) {
	path := writeCapacityXLSX(t, [][]interface{}{
		{"Pet", "2-3L", 100, 1000},
		{"Sleek Can", "310ml", 0, 400},
		{"Bag in Box", "5-18L", 50, 300},
	})

	groups, err := LoadCapacities(path, 1)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, grouping.GroupPet2to3L, groups[0].Key)
	assert.InDelta(t, 100.0, groups[0].Min, 1e-9)
	assert.InDelta(t, 1000.0, groups[0].Max, 1e-9)
	assert.Equal(t, grouping.GroupSleekCan310, groups[1].Key)
	assert.Equal(t, grouping.GroupBIB5to18L, groups[2].Key)
}

func TestLoadCapacitiesScalesByMonths(t *testing.T) {
	path := writeCapacityXLSX(t, [][]interface{}{
		{"Pet", "2-3L", 100, 1000},
	})

	groups, err := LoadCapacities(path, 3)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.InDelta(t, 300.0, groups[0].Min, 1e-9)
	assert.InDelta(t, 3000.0, groups[0].Max, 1e-9)
}

func TestLoadCapacitiesRejectsBadMonths(t *testing.T) {
	path := writeCapacityXLSX(t, nil)

	_, err := LoadCapacities(path, 0)
	assert.Error(t, err)
}

func TestLoadCapacitiesMergesDuplicateGroups(t *testing.T) {
	// Two physical lines feeding one group: bounds add up.
	path := writeCapacityXLSX(t, [][]interface{}{
		{"Pet", "2L", 100, 600},
		{"Pet", "3L", 50, 400},
	})

	groups, err := LoadCapacities(path, 1)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, grouping.GroupPet2to3L, groups[0].Key)
	assert.InDelta(t, 150.0, groups[0].Min, 1e-9)
	assert.InDelta(t, 1000.0, groups[0].Max, 1e-9)
}

func TestLoadCombined(t *testing.T) {
	productPath := writeProductCSV(t, productCSV)
	capacityPath := writeCapacityXLSX(t, [][]interface{}{
		{"Pet", "2-3L", 0, 1500},
	})

	in, err := Load(context.Background(), productPath, capacityPath, []string{"2025-01"}, 2)
	require.NoError(t, err)
	assert.Len(t, in.Records, 3)
	require.Len(t, in.Groups, 1)
	assert.InDelta(t, 3000.0, in.Groups[0].Max, 1e-9)
}

func TestParseNumberFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1234.5", 1234.5},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"-10", -10},
	}
	for _, tt := range tests {
		got, err := parseNumber(tt.raw)
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.InDelta(t, tt.want, got, 1e-9, "raw=%q", tt.raw)
	}

	_, err := parseNumber("")
	assert.Error(t, err)
}
