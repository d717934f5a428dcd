package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mixplan/mix-service/internal/grouping"
	"github.com/mixplan/mix-service/internal/optimizer"
	"github.com/mixplan/mix-service/internal/scenario"
)

// driverColumns maps CSV cost columns to scenario drivers.
var driverColumns = map[string]scenario.Driver{
	"cost_concentrate": scenario.DriverConcentrate,
	"cost_sweetener":   scenario.DriverSweetener,
	"cost_pet":         scenario.DriverPET,
	"cost_can":         scenario.DriverCan,
	"cost_closure":     scenario.DriverClosure,
	"cost_purchases":   scenario.DriverPurchases,
	"cost_other_raw":   scenario.DriverOtherRaw,
}

// ProductRecord is one row of the product projection file: a SKU in one
// month with its demand projection and baseline unit economics.
type ProductRecord struct {
	SKU         string
	Brand       string
	Package     string
	SizeLiters  float64
	Month       string
	Demand      float64
	UnitMargin  float64
	UnitPrice   float64
	Elasticity  float64
	DriverCosts map[scenario.Driver]float64
}

// LoadProducts reads the product projection CSV. Expected header
// columns: sku, brand, package, size, month, demand, unit_margin and
// optionally unit_price, elasticity and the per-driver cost columns.
// When months is non-empty only matching rows are kept; the filter runs
// here, before any aggregation, so a narrowed horizon never leaks
// other months' demand into the run.
func LoadProducts(path string, months []string) ([]ProductRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open product file: %w", err)
	}
	defer f.Close()

	logger := log.With().Str("component", "product_loader").Logger()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read product header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"sku", "package", "size", "demand", "unit_margin"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("product file missing required column %q", required)
		}
	}

	monthSet := make(map[string]struct{}, len(months))
	for _, m := range months {
		monthSet[strings.TrimSpace(m)] = struct{}{}
	}

	var records []ProductRecord
	skipped := 0
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		getFloat := func(name string) float64 {
			v, err := parseNumber(get(name))
			if err != nil {
				return 0
			}
			return v
		}

		month := get("month")
		if len(monthSet) > 0 {
			if _, ok := monthSet[month]; !ok {
				continue
			}
		}

		size, ok := grouping.ParseSizeLiters(get("size"))
		if !ok {
			logger.Warn().
				Int("line", line).
				Str("sku", get("sku")).
				Str("size", get("size")).
				Msg("Product row has unparseable size, skipped")
			skipped++
			continue
		}

		demand, err := parseNumber(get("demand"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid demand %q", line, get("demand"))
		}
		margin, err := parseNumber(get("unit_margin"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid unit_margin %q", line, get("unit_margin"))
		}

		rec := ProductRecord{
			SKU:         get("sku"),
			Brand:       get("brand"),
			Package:     get("package"),
			SizeLiters:  size,
			Month:       month,
			Demand:      demand,
			UnitMargin:  margin,
			UnitPrice:   getFloat("unit_price"),
			Elasticity:  getFloat("elasticity"),
			DriverCosts: make(map[scenario.Driver]float64, len(driverColumns)),
		}
		for column, driver := range driverColumns {
			if _, ok := col[column]; ok {
				rec.DriverCosts[driver] = getFloat(column)
			}
		}
		records = append(records, rec)
	}

	logger.Info().
		Int("records", len(records)).
		Int("skipped", skipped).
		Int("month_filter", len(months)).
		Str("file", path).
		Msg("Product projections loaded")

	return records, nil
}

// OptimizerRows resolves each record's capacity group and converts to
// the optimizer's input shape. Records whose package cannot be
// recognized keep an empty group key and pass through unconstrained.
func OptimizerRows(records []ProductRecord, resolver *grouping.Resolver) []optimizer.Row {
	rows := make([]optimizer.Row, 0, len(records))
	for _, rec := range records {
		pkg, ok := grouping.NormalizePackage(rec.Package)
		if !ok {
			pkg = strings.ToUpper(strings.TrimSpace(rec.Package))
		}
		typeKey := grouping.TypeKey(pkg, rec.SizeLiters)
		groupKey := ""
		if ok {
			if key, resolved := resolver.Resolve(rec.Package, rec.SizeLiters); resolved {
				groupKey = key
			}
		}
		rows = append(rows, optimizer.Row{
			SKU:        rec.SKU,
			Brand:      rec.Brand,
			TypeKey:    typeKey,
			GroupKey:   groupKey,
			Demand:     rec.Demand,
			UnitMargin: rec.UnitMargin,
			UnitPrice:  rec.UnitPrice,
		})
	}
	return rows
}

// ScenarioRows converts records to scenario baseline rows, resolving
// capacity groups the same way OptimizerRows does.
func ScenarioRows(records []ProductRecord, resolver *grouping.Resolver) []scenario.Row {
	rows := make([]scenario.Row, 0, len(records))
	for _, rec := range records {
		pkg, ok := grouping.NormalizePackage(rec.Package)
		if !ok {
			pkg = strings.ToUpper(strings.TrimSpace(rec.Package))
		}
		groupKey := ""
		if key, resolved := resolver.Resolve(rec.Package, rec.SizeLiters); resolved {
			groupKey = key
		}
		rows = append(rows, scenario.Row{
			SKU:         rec.SKU,
			Brand:       rec.Brand,
			TypeKey:     grouping.TypeKey(pkg, rec.SizeLiters),
			GroupKey:    groupKey,
			Volume:      rec.Demand,
			Elasticity:  rec.Elasticity,
			UnitPrice:   rec.UnitPrice,
			UnitMargin:  rec.UnitMargin,
			DriverCosts: rec.DriverCosts,
		})
	}
	return rows
}

// parseNumber parses a numeric cell accepting comma decimals and
// thousands separators ("1.234,56" and "1,234.56" both work).
func parseNumber(value string) (float64, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, fmt.Errorf("empty value")
	}
	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	if lastComma > lastDot {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else if lastDot > lastComma {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	return strconv.ParseFloat(cleaned, 64)
}

// isEmptyRow reports whether every cell is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
