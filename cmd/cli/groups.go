package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mixplan/mix-service/internal/grouping"
	"github.com/mixplan/mix-service/internal/loader"
)

var (
	groupsProducts string
	groupsCapacity string
	groupsMonths   []string
	groupsHorizon  int
)

// groupsCmd represents the groups command
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show how products map onto capacity groups",
	Long: `Resolve every product row's package and size to its capacity group and
display the mapping. With --capacity the declared bounds of each group
are shown alongside.`,
	Example: `  mix-service groups --products projections.csv
  mix-service groups --products projections.csv --capacity capacity.xlsx`,
	RunE: runGroups,
}

func init() {
	rootCmd.AddCommand(groupsCmd)

	groupsCmd.Flags().StringVar(&groupsProducts, "products", "", "Product projection CSV file (required)")
	groupsCmd.Flags().StringVar(&groupsCapacity, "capacity", "", "Capacity workbook XLSX file")
	groupsCmd.Flags().StringSliceVar(&groupsMonths, "months", nil, "Months to include (default all)")
	groupsCmd.Flags().IntVar(&groupsHorizon, "horizon", 1, "Planning horizon in months for capacity scaling")

	groupsCmd.MarkFlagRequired("products")
}

func runGroups(cmd *cobra.Command, args []string) error {
	records, err := loader.LoadProducts(groupsProducts, groupsMonths)
	if err != nil {
		return err
	}

	resolver := grouping.NewResolver()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SKU\tPACKAGE\tSIZE (L)\tGROUP")
	fmt.Fprintln(w, "---\t-------\t--------\t-----")

	ungrouped := 0
	members := make(map[string]int)
	for _, rec := range records {
		key, ok := resolver.Resolve(rec.Package, rec.SizeLiters)
		display := key
		if !ok {
			display = "(none)"
			ungrouped++
		} else {
			members[key]++
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", rec.SKU, rec.Package, rec.SizeLiters, display)
	}
	w.Flush()

	fmt.Println()
	fmt.Printf("%d rows, %d groups, %d without a group\n", len(records), len(members), ungrouped)

	if groupsCapacity == "" {
		return nil
	}

	groups, err := loader.LoadCapacities(groupsCapacity, groupsHorizon)
	if err != nil {
		return err
	}

	fmt.Println()
	gw := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(gw, "GROUP\tMIN\tMAX\tMEMBERS")
	fmt.Fprintln(gw, "-----\t---\t---\t-------")
	for _, g := range groups {
		fmt.Fprintf(gw, "%s\t%.0f\t%.0f\t%d\n", g.Key, g.Min, g.Max, members[g.Key])
	}
	gw.Flush()

	return nil
}
