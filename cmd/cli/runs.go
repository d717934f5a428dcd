package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mixplan/mix-service/internal/database"
)

var runsLimit int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List or inspect persisted allocation runs",
	Long: `Without arguments, lists persisted allocation runs most recent first.
With a run ID, shows that run's summary and per-product allocations.`,
	Example: `  mix-service runs
  mix-service runs --limit 10
  mix-service runs run_7f3f0c1e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Number of runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	defer database.Close()

	if len(args) == 1 {
		return showRun(ctx, args[0])
	}

	runs, err := database.ListRuns(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs persisted yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tLABEL\tPRODUCTS\tGROUPS\tPROFIT\tIMPROVEMENT\tCREATED")
	fmt.Fprintln(w, "------\t-----\t--------\t------\t------\t-----------\t-------")
	for _, r := range runs {
		label := r.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%+.2f%%\t%s\n",
			r.ID, label, r.ProductCount, r.GroupCount, r.ProfitAfter,
			r.ImprovementPct, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	return nil
}

func showRun(ctx context.Context, id string) error {
	run, err := database.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", id, err)
	}

	fmt.Printf("Run:         %s\n", run.ID)
	if run.Label != "" {
		fmt.Printf("Label:       %s\n", run.Label)
	}
	fmt.Printf("Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Volume:      %.0f -> %.0f\n", run.VolumeBefore, run.VolumeAfter)
	fmt.Printf("Profit:      %.2f -> %.2f (%+.2f%%)\n", run.ProfitBefore, run.ProfitAfter, run.ImprovementPct)
	fmt.Printf("Violations:  %d groups, %d greedy fallbacks\n", run.GroupsWithViolations, run.FallbackCount)

	rows, err := database.GetRunRows(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run rows: %w", err)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tGROUP\tDEMAND\tVOLUME\tFULFILLED\tPROFIT\tSTATUS")
	fmt.Fprintln(w, "-------\t-----\t------\t------\t---------\t------\t------")
	for _, r := range rows {
		group := r.GroupKey
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%.1f%%\t%.2f\t%s\n",
			r.ProductID, group, r.Demand, r.Volume, r.FulfillmentPct, r.Profit, r.Status)
	}
	w.Flush()

	return nil
}
