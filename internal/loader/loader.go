// Package loader reads the external inputs of an allocation run: the
// product projection CSV and the production capacity workbook. It is
// the only package that touches files; everything downstream works on
// in-memory values.
package loader

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mixplan/mix-service/internal/optimizer"
)

// Inputs bundles everything a run needs from disk.
type Inputs struct {
	Records []ProductRecord
	Groups  []optimizer.CapacityGroup
}

// Load reads the product file and the capacity workbook concurrently.
// months filters product rows (empty = all); horizonMonths scales the
// workbook's monthly capacity bounds.
func Load(ctx context.Context, productPath, capacityPath string, months []string, horizonMonths int) (*Inputs, error) {
	var in Inputs

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := LoadProducts(productPath, months)
		if err != nil {
			return err
		}
		in.Records = records
		return nil
	})
	g.Go(func() error {
		groups, err := LoadCapacities(capacityPath, horizonMonths)
		if err != nil {
			return err
		}
		in.Groups = groups
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}
