package optimizer

import (
	"github.com/rs/zerolog/log"
)

// Aggregate merges raw rows into one Product per (GroupKey, TypeKey)
// pair: demand is summed, unit margin and unit price are averaged over
// the contributing rows. Product order follows the first appearance of
// each pair in the input, so repeated runs over the same rows produce
// identical output.
//
// Rows with negative or NaN demand are treated as zero demand and
// logged; they still contribute to the margin average so a type whose
// demand collapsed keeps its unit economics.
func Aggregate(rows []Row) []Product {
	logger := log.With().Str("component", "aggregator").Logger()

	type accumulator struct {
		index     int
		product   Product
		rowCount  int
		marginSum float64
		priceSum  float64
	}

	byKey := make(map[string]*accumulator, len(rows))
	order := make([]*accumulator, 0, len(rows))

	for i, row := range rows {
		demand := row.Demand
		if !(demand >= 0) { // catches negatives and NaN
			logger.Warn().
				Str("sku", row.SKU).
				Str("type_key", row.TypeKey).
				Float64("demand", row.Demand).
				Msg("Row has invalid demand, treated as zero")
			demand = 0
		}

		key := row.GroupKey + "\x00" + row.TypeKey
		acc, ok := byKey[key]
		if !ok {
			acc = &accumulator{
				index: i,
				product: Product{
					ID:       row.TypeKey,
					GroupKey: row.GroupKey,
				},
			}
			byKey[key] = acc
			order = append(order, acc)
		}
		acc.product.Demand += demand
		acc.marginSum += row.UnitMargin
		acc.priceSum += row.UnitPrice
		acc.rowCount++
	}

	products := make([]Product, 0, len(order))
	for _, acc := range order {
		acc.product.UnitMargin = acc.marginSum / float64(acc.rowCount)
		acc.product.UnitPrice = acc.priceSum / float64(acc.rowCount)
		products = append(products, acc.product)
	}

	logger.Debug().
		Int("rows", len(rows)).
		Int("products", len(products)).
		Msg("Aggregated rows into products")

	return products
}
