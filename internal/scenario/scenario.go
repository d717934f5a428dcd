// Package scenario applies price and cost shocks to baseline product
// economics, producing the per-unit margins an allocation run consumes.
// Margin is re-derived here, per scenario, before the optimizer ever
// sees it; the optimizer itself treats unit margin as a fixed input.
package scenario

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mixplan/mix-service/internal/optimizer"
)

// Driver identifies one variable-cost bucket that can be shocked.
type Driver string

const (
	// DriverConcentrate is priced as a percentage of net revenue, not
	// as a fixed per-unit cost: when a price shock moves revenue, the
	// concentrate cost moves with it. Every other driver is a
	// multiplicative shock on its fixed per-unit baseline.
	DriverConcentrate Driver = "concentrate"
	DriverSweetener   Driver = "sweetener"
	DriverPET         Driver = "pet"
	DriverCan         Driver = "can"
	DriverClosure     Driver = "closure"
	DriverPurchases   Driver = "purchases"
	DriverOtherRaw    Driver = "other_raw"
)

// Drivers lists every shockable cost driver in presentation order.
var Drivers = []Driver{
	DriverConcentrate,
	DriverSweetener,
	DriverPET,
	DriverCan,
	DriverClosure,
	DriverPurchases,
	DriverOtherRaw,
}

// Row is one product's baseline economics before any shock.
type Row struct {
	SKU         string
	Brand       string
	TypeKey     string
	GroupKey    string
	Volume      float64 // projected baseline volume
	Elasticity  float64 // price elasticity of demand, typically negative
	UnitPrice   float64 // baseline net price per unit
	UnitMargin  float64 // baseline variable margin per unit
	DriverCosts map[Driver]float64 // baseline per-unit cost by driver
}

// Shock describes one scenario: a uniform price adjustment plus
// per-driver cost shocks, all expressed as fractions (0.05 = +5%).
type Shock struct {
	PricePct float64
	CostPct  map[Driver]float64
}

// SimulatedRow is a row after the shock has been applied.
type SimulatedRow struct {
	Row

	UnitPriceSim  float64
	VolumeSim     float64
	UnitCostSim   float64
	UnitMarginSim float64
	Revenue       float64 // VolumeSim * UnitPriceSim
	Margin        float64 // VolumeSim * UnitMarginSim
}

// Simulator applies shocks to baseline rows.
type Simulator struct {
	logger zerolog.Logger
}

// NewSimulator creates a scenario simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		logger: log.With().Str("component", "scenario_simulator").Logger(),
	}
}

// Apply runs one scenario over the baseline rows. For each row:
//
//   - price moves by the uniform price adjustment;
//   - volume responds through the row's elasticity;
//   - the concentrate cost keeps its baseline share of revenue (shocked
//     multiplicatively on that share), so it is recomputed from the
//     simulated price;
//   - every other driver cost is its per-unit baseline times its shock;
//   - costs outside the named drivers ride along unchanged;
//   - unit margin is simulated price minus simulated total cost.
//
// The input rows are never mutated.
func (s *Simulator) Apply(rows []Row, shock Shock) []SimulatedRow {
	out := make([]SimulatedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.applyRow(row, shock))
	}

	s.logger.Debug().
		Int("rows", len(rows)).
		Float64("price_pct", shock.PricePct).
		Msg("Scenario applied")
	return out
}

func (s *Simulator) applyRow(row Row, shock Shock) SimulatedRow {
	sim := SimulatedRow{Row: row}

	sim.UnitPriceSim = row.UnitPrice * (1 + shock.PricePct)

	// Elasticity response. A zero baseline price carries no signal, so
	// volume stays put.
	priceVar := 0.0
	if row.UnitPrice != 0 {
		priceVar = sim.UnitPriceSim/row.UnitPrice - 1
	}
	sim.VolumeSim = row.Volume * (1 + priceVar*row.Elasticity)
	if sim.VolumeSim < 0 {
		sim.VolumeSim = 0
	}

	baseTotalCost := row.UnitPrice - row.UnitMargin
	otherCosts := baseTotalCost
	for _, d := range Drivers {
		otherCosts -= row.DriverCosts[d]
	}

	concentratePct := 0.0
	if row.UnitPrice != 0 {
		concentratePct = row.DriverCosts[DriverConcentrate] / row.UnitPrice
	}
	concentratePct *= 1 + shock.CostPct[DriverConcentrate]
	costSim := otherCosts + sim.UnitPriceSim*concentratePct

	for _, d := range Drivers {
		if d == DriverConcentrate {
			continue
		}
		costSim += row.DriverCosts[d] * (1 + shock.CostPct[d])
	}

	sim.UnitCostSim = costSim
	sim.UnitMarginSim = sim.UnitPriceSim - costSim
	sim.Revenue = sim.VolumeSim * sim.UnitPriceSim
	sim.Margin = sim.VolumeSim * sim.UnitMarginSim
	return sim
}

// OptimizerRows converts simulated rows into the optimizer's input
// shape: simulated volume becomes demand, simulated unit economics
// become the run's fixed margin and price.
func OptimizerRows(rows []SimulatedRow) []optimizer.Row {
	out := make([]optimizer.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, optimizer.Row{
			SKU:        r.SKU,
			Brand:      r.Brand,
			TypeKey:    r.TypeKey,
			GroupKey:   r.GroupKey,
			Demand:     r.VolumeSim,
			UnitMargin: r.UnitMarginSim,
			UnitPrice:  r.UnitPriceSim,
		})
	}
	return out
}

// Totals sums simulated revenue, margin and volume over rows.
func Totals(rows []SimulatedRow) (revenue, margin, volume float64) {
	for i := range rows {
		revenue += rows[i].Revenue
		margin += rows[i].Margin
		volume += rows[i].VolumeSim
	}
	return revenue, margin, volume
}
