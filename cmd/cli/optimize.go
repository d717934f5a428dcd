package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mixplan/mix-service/internal/database"
	"github.com/mixplan/mix-service/internal/grouping"
	"github.com/mixplan/mix-service/internal/loader"
	"github.com/mixplan/mix-service/internal/optimizer"
)

var (
	optimizeProducts string
	optimizeCapacity string
	optimizeMonths   []string
	optimizeHorizon  int
	optimizeOutput   string
	optimizeSave     bool
	optimizeLabel    string
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Allocate projected demand across shared capacity",
	Long: `Run a capacity-constrained allocation over the product projection file.
Product rows are grouped by package and size, matched against the capacity
workbook, and volume is assigned to maximize total variable margin without
exceeding any group's production limits.`,
	Example: `  mix-service optimize --products projections.csv --capacity capacity.xlsx
  mix-service optimize --products projections.csv --capacity capacity.xlsx --months 2025-01,2025-02
  mix-service optimize --products projections.csv --capacity capacity.xlsx --output allocations.csv --save`,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVar(&optimizeProducts, "products", "", "Product projection CSV file (required)")
	optimizeCmd.Flags().StringVar(&optimizeCapacity, "capacity", "", "Capacity workbook XLSX file (required)")
	optimizeCmd.Flags().StringSliceVar(&optimizeMonths, "months", nil, "Months to include (e.g. 2025-01,2025-02; default all)")
	optimizeCmd.Flags().IntVar(&optimizeHorizon, "horizon", 0, "Planning horizon in months for capacity scaling (default: number of --months, or 1)")
	optimizeCmd.Flags().StringVar(&optimizeOutput, "output", "", "Write per-product allocations to this CSV file")
	optimizeCmd.Flags().BoolVar(&optimizeSave, "save", false, "Persist the run to the database")
	optimizeCmd.Flags().StringVar(&optimizeLabel, "label", "", "Label for the persisted run")

	optimizeCmd.MarkFlagRequired("products")
	optimizeCmd.MarkFlagRequired("capacity")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	in, err := loadInputs(ctx)
	if err != nil {
		return err
	}

	opt, err := newOptimizer()
	if err != nil {
		return err
	}

	products := optimizer.Aggregate(loader.OptimizerRows(in.Records, grouping.NewResolver()))
	result, err := opt.Optimize(ctx, products, in.Groups)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	displayAllocations(result)

	if optimizeOutput != "" {
		if err := writeAllocationsCSV(optimizeOutput, result); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		logger.Info().Str("file", optimizeOutput).Msg("Allocations written")
	}

	if optimizeSave {
		if err := initDatabase(); err != nil {
			return fmt.Errorf("cannot persist run: %w", err)
		}
		defer database.Close()

		run, err := database.SaveRun(ctx, optimizeLabel, result)
		if err != nil {
			return fmt.Errorf("failed to persist run: %w", err)
		}
		logger.Info().Str("run_id", run.ID).Msg("Run persisted")
	}

	return nil
}

func loadInputs(ctx context.Context) (*loader.Inputs, error) {
	horizon := optimizeHorizon
	if horizon == 0 {
		horizon = len(optimizeMonths)
		if horizon == 0 {
			horizon = 1
		}
	}
	return loader.Load(ctx, optimizeProducts, optimizeCapacity, optimizeMonths, horizon)
}

func newOptimizer() (*optimizer.Optimizer, error) {
	var optCfg *optimizer.Config
	if cfg != nil {
		optCfg = &cfg.Optimizer
	}
	opt, err := optimizer.New(optCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create optimizer: %w", err)
	}
	return opt, nil
}

func displayAllocations(result *optimizer.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tGROUP\tDEMAND\tVOLUME\tFULFILLED\tPROFIT\tSTATUS")
	fmt.Fprintln(w, "-------\t-----\t------\t------\t---------\t------\t------")

	for i := range result.Allocations {
		a := &result.Allocations[i]
		group := a.GroupKey
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%.1f%%\t%.2f\t%s\n",
			a.ProductID, group, a.Demand, a.Volume, a.FulfillmentPct, a.Profit, a.Status)
	}
	w.Flush()

	m := result.Metrics
	fmt.Println()
	fmt.Printf("Volume:  %.0f -> %.0f\n", m.VolumeBefore, m.VolumeAfter)
	fmt.Printf("Profit:  %.2f -> %.2f (%+.2f%%)\n", m.ProfitBefore, m.ProfitAfter, m.ImprovementPct)
	fmt.Printf("Groups:  %d optimized, %d with capacity violations, %d greedy fallbacks\n",
		m.GroupsOptimized, m.GroupsWithViolations, m.FallbackCount)
}

func writeAllocationsCSV(path string, result *optimizer.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"product_id", "group_key", "demand", "volume", "fulfillment_pct", "profit", "status"}); err != nil {
		return err
	}
	for i := range result.Allocations {
		a := &result.Allocations[i]
		record := []string{
			a.ProductID,
			a.GroupKey,
			strconv.FormatFloat(a.Demand, 'f', -1, 64),
			strconv.FormatFloat(a.Volume, 'f', -1, 64),
			strconv.FormatFloat(a.FulfillmentPct, 'f', 2, 64),
			strconv.FormatFloat(a.Profit, 'f', 2, 64),
			string(a.Status),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}
