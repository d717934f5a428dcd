package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mixplan/mix-service/internal/database"
	"github.com/mixplan/mix-service/internal/grouping"
	"github.com/mixplan/mix-service/internal/loader"
	"github.com/mixplan/mix-service/internal/optimizer"
	"github.com/mixplan/mix-service/internal/scenario"
)

var (
	simulateProducts string
	simulateCapacity string
	simulateMonths   []string
	simulateHorizon  int
	simulatePricePct float64
	simulateCosts    []string
	simulateOptimize bool
	simulateSave     bool
	simulateLabel    string
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a price and cost shock on the P&L",
	Long: `Apply a scenario to the baseline product economics: a uniform price
adjustment that moves volume through each product's elasticity, plus
per-driver cost shocks. The concentrate cost keeps its share of revenue,
so it is repriced with the shocked price; other drivers scale their
per-unit baselines.

With --optimize the shocked volumes are also allocated against the
capacity workbook.`,
	Example: `  mix-service simulate --products projections.csv --price-pct 0.05
  mix-service simulate --products projections.csv --cost sweetener=0.10 --cost pet=-0.03
  mix-service simulate --products projections.csv --capacity capacity.xlsx --price-pct -0.05 --optimize`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateProducts, "products", "", "Product projection CSV file (required)")
	simulateCmd.Flags().StringVar(&simulateCapacity, "capacity", "", "Capacity workbook XLSX file (required with --optimize)")
	simulateCmd.Flags().StringSliceVar(&simulateMonths, "months", nil, "Months to include (default all)")
	simulateCmd.Flags().IntVar(&simulateHorizon, "horizon", 0, "Planning horizon in months for capacity scaling")
	simulateCmd.Flags().Float64Var(&simulatePricePct, "price-pct", 0, "Uniform price adjustment as a fraction (0.05 = +5%)")
	simulateCmd.Flags().StringArrayVar(&simulateCosts, "cost", nil, "Cost driver shock as driver=pct (e.g. sweetener=0.10), repeatable")
	simulateCmd.Flags().BoolVar(&simulateOptimize, "optimize", false, "Allocate the shocked volumes against capacity")
	simulateCmd.Flags().BoolVar(&simulateSave, "save", false, "Persist the allocation run (requires --optimize)")
	simulateCmd.Flags().StringVar(&simulateLabel, "label", "", "Label for the persisted run")

	simulateCmd.MarkFlagRequired("products")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	shock, err := parseShock()
	if err != nil {
		return err
	}
	if simulateOptimize && simulateCapacity == "" {
		return fmt.Errorf("--optimize requires --capacity")
	}
	if simulateSave && !simulateOptimize {
		return fmt.Errorf("--save requires --optimize")
	}

	records, err := loader.LoadProducts(simulateProducts, simulateMonths)
	if err != nil {
		return err
	}
	rows := loader.ScenarioRows(records, grouping.NewResolver())

	simulated := scenario.NewSimulator().Apply(rows, shock)
	displayScenario(rows, simulated)

	if !simulateOptimize {
		return nil
	}

	horizon := simulateHorizon
	if horizon == 0 {
		horizon = len(simulateMonths)
		if horizon == 0 {
			horizon = 1
		}
	}
	groups, err := loader.LoadCapacities(simulateCapacity, horizon)
	if err != nil {
		return err
	}

	opt, err := newOptimizer()
	if err != nil {
		return err
	}

	products := optimizer.Aggregate(scenario.OptimizerRows(simulated))
	result, err := opt.Optimize(ctx, products, groups)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	fmt.Println()
	displayAllocations(result)

	if simulateSave {
		if err := initDatabase(); err != nil {
			return fmt.Errorf("cannot persist run: %w", err)
		}
		defer database.Close()

		run, err := database.SaveRun(ctx, simulateLabel, result)
		if err != nil {
			return fmt.Errorf("failed to persist run: %w", err)
		}
		logger.Info().Str("run_id", run.ID).Msg("Run persisted")
	}

	return nil
}

// parseShock builds the scenario from the --price-pct and --cost flags.
func parseShock() (scenario.Shock, error) {
	shock := scenario.Shock{
		PricePct: simulatePricePct,
		CostPct:  make(map[scenario.Driver]float64, len(simulateCosts)),
	}
	for _, spec := range simulateCosts {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 {
			return scenario.Shock{}, fmt.Errorf("invalid --cost %q, expected driver=pct", spec)
		}
		name := strings.TrimSpace(parts[0])
		driver, ok := findDriver(name)
		if !ok {
			return scenario.Shock{}, fmt.Errorf("unknown cost driver %q\nValid drivers: %s", name, strings.Join(driverNames(), ", "))
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return scenario.Shock{}, fmt.Errorf("invalid --cost %q: %w", spec, err)
		}
		shock.CostPct[driver] = pct
	}
	return shock, nil
}

func findDriver(name string) (scenario.Driver, bool) {
	for _, d := range scenario.Drivers {
		if string(d) == name {
			return d, true
		}
	}
	return "", false
}

func driverNames() []string {
	names := make([]string, len(scenario.Drivers))
	for i, d := range scenario.Drivers {
		names[i] = string(d)
	}
	return names
}

func displayScenario(baseline []scenario.Row, simulated []scenario.SimulatedRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SKU\tTYPE\tPRICE\tPRICE SIM\tVOLUME\tVOLUME SIM\tMARGIN\tMARGIN SIM")
	fmt.Fprintln(w, "---\t----\t-----\t---------\t------\t----------\t------\t----------")

	for i := range simulated {
		s := &simulated[i]
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.0f\t%.0f\t%.2f\t%.2f\n",
			s.SKU, s.TypeKey, s.UnitPrice, s.UnitPriceSim, s.Volume, s.VolumeSim, s.UnitMargin, s.UnitMarginSim)
	}
	w.Flush()

	var baseRevenue, baseMargin, baseVolume float64
	for i := range baseline {
		baseRevenue += baseline[i].Volume * baseline[i].UnitPrice
		baseMargin += baseline[i].Volume * baseline[i].UnitMargin
		baseVolume += baseline[i].Volume
	}
	revenue, margin, volume := scenario.Totals(simulated)

	fmt.Println()
	fmt.Printf("Revenue: %.2f -> %.2f (%+.2f%%)\n", baseRevenue, revenue, pctDelta(baseRevenue, revenue))
	fmt.Printf("Margin:  %.2f -> %.2f (%+.2f%%)\n", baseMargin, margin, pctDelta(baseMargin, margin))
	fmt.Printf("Volume:  %.0f -> %.0f (%+.2f%%)\n", baseVolume, volume, pctDelta(baseVolume, volume))
}

func pctDelta(before, after float64) float64 {
	if before == 0 {
		return 0
	}
	return 100 * (after - before) / before
}
