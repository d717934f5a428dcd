package loader

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/mixplan/mix-service/internal/grouping"
	"github.com/mixplan/mix-service/internal/optimizer"
)

// LoadCapacities reads the production capacity workbook. The first
// sheet carries one row per line: package label, size description,
// monthly minimum, monthly maximum. Rows resolve to canonical capacity
// group keys through the same rules products use, so both sides of a
// run speak the same group vocabulary.
//
// Bounds in the workbook are per month; months scales them to the
// planning horizon and must be stated explicitly by the caller — the
// horizon is a planner's decision, never inferred from data shape.
func LoadCapacities(path string, months int) ([]optimizer.CapacityGroup, error) {
	if months < 1 {
		return nil, fmt.Errorf("months must be at least 1, got %d", months)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open capacity workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("capacity workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read capacity sheet: %w", err)
	}

	logger := log.With().Str("component", "capacity_loader").Logger()
	resolver := grouping.NewResolver()

	groups := make([]optimizer.CapacityGroup, 0, len(rows))
	seen := make(map[string]int) // group key -> index in groups

	for i, row := range rows {
		if i == 0 || isEmptyRow(row) {
			continue // header
		}
		if len(row) < 4 {
			logger.Warn().Int("row", i+1).Msg("Capacity row too short, skipped")
			continue
		}

		pkg := strings.TrimSpace(row[0])
		sizeRaw := strings.TrimSpace(row[1])
		size, ok := grouping.ParseSizeLiters(sizeRaw)
		if !ok {
			logger.Warn().
				Int("row", i+1).
				Str("size", sizeRaw).
				Msg("Capacity row has unparseable size, skipped")
			continue
		}
		key, ok := resolver.Resolve(pkg, size)
		if !ok {
			logger.Warn().
				Int("row", i+1).
				Str("package", pkg).
				Msg("Capacity row has unrecognized package, skipped")
			continue
		}

		min, err := parseNumber(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid minimum %q: %w", i+1, row[2], err)
		}
		max, err := parseNumber(row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid maximum %q: %w", i+1, row[3], err)
		}

		g := optimizer.CapacityGroup{
			Key: key,
			Min: min * float64(months),
			Max: max * float64(months),
		}

		if idx, dup := seen[key]; dup {
			// Two workbook rows landing on one group means two lines
			// share it: bounds add up.
			groups[idx].Min += g.Min
			groups[idx].Max += g.Max
			continue
		}
		seen[key] = len(groups)
		groups = append(groups, g)
	}

	logger.Info().
		Int("groups", len(groups)).
		Int("months", months).
		Str("file", path).
		Msg("Capacity workbook loaded")

	return groups, nil
}
