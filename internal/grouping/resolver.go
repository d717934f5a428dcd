package grouping

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Canonical capacity-group keys. A capacity group is the set of product
// types that share one physical production line: same package format
// and size class, regardless of brand.
const (
	GroupSleekCan310 = "Sleek Can|310ml"
	GroupRefpet2L    = "Refpet|2L"
	GroupBIB5to18L   = "BIB|5-18L"
	GroupPet200ml    = "Pet|200ml"
	GroupPet600ml    = "Pet|600ml"
	GroupPet1to15L   = "Pet|1-1.5L"
	GroupPet2to3L    = "Pet|2-3L"
	GroupKS290to310  = "KS|290-310ml"
	GroupLS1L        = "LS|1L"
	GroupGlass250ml  = "Glass|250ml"
	GroupMiniCan220  = "Mini Can|220ml"
	GroupCan350ml    = "Can|350ml"
)

// groupRule associates a canonical package with a contiguous size range
// (liters, inclusive) and the shared capacity-group key it resolves to.
type groupRule struct {
	pkg      string
	min, max float64
	key      string
}

// groupRules is evaluated top-down and its order is load-bearing.
// Named variants come before the generic families whose nominal sizes
// they overlap: a Sleek Can at ~0.31L must not land in the KS glass
// group (also 0.29-0.31L), and a Refpet at 2L must not land in Pet|2-3L.
// Within a family, point sizes precede ranges that contain them
// (KS|290-310ml before Glass|250ml, whose 0.05 tolerance reaches 0.30).
var groupRules = []groupRule{
	{"Sleek Can", 0.26, 0.36, GroupSleekCan310},
	{"Refpet", 1.95, 2.05, GroupRefpet2L},
	{"BIB", 5.0, 18.0, GroupBIB5to18L},
	{"Pet", 0.15, 0.25, GroupPet200ml},
	{"Pet", 0.55, 0.65, GroupPet600ml},
	{"Pet", 1.0, 1.5, GroupPet1to15L},
	{"Pet", 2.0, 3.0, GroupPet2to3L},
	{"KS", 0.29, 0.31, GroupKS290to310},
	{"LS", 0.95, 1.05, GroupLS1L},
	{"Glass", 0.29, 0.31, GroupKS290to310},
	{"Glass", 0.95, 1.05, GroupLS1L},
	{"Glass", 0.20, 0.30, GroupGlass250ml},
	{"Mini Can", 0.17, 0.27, GroupMiniCan220},
	{"Can", 0.17, 0.27, GroupMiniCan220},
	{"Can", 0.30, 0.40, GroupCan350ml},
}

// Resolver maps raw products to canonical capacity-group keys.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver creates a capacity-group resolver.
func NewResolver() *Resolver {
	return &Resolver{
		logger: log.With().Str("component", "group_resolver").Logger(),
	}
}

// Resolve returns the capacity-group key for a raw package label and a
// size in liters. Resolution order: named variants, family size ranges,
// then a synthesized standalone key (normalized package + rounded size)
// so unusual sizes still participate in single-type allocation without
// sharing capacity with anything else. Returns false only when the
// package label itself is unrecognized; such products are excluded from
// capacity-constrained optimization and allocated by demand alone.
func (r *Resolver) Resolve(rawPackage string, sizeLiters float64) (string, bool) {
	pkg, ok := NormalizePackage(rawPackage)
	if !ok {
		r.logger.Warn().
			Str("package", rawPackage).
			Float64("size_liters", sizeLiters).
			Msg("Unrecognized package label, product excluded from capacity groups")
		return "", false
	}
	if sizeLiters <= 0 {
		r.logger.Warn().
			Str("package", rawPackage).
			Float64("size_liters", sizeLiters).
			Msg("Missing or invalid size, product excluded from capacity groups")
		return "", false
	}

	for _, rule := range groupRules {
		if rule.pkg == pkg && sizeLiters >= rule.min && sizeLiters <= rule.max {
			return rule.key, true
		}
	}

	// No named group: standalone key, no false capacity sharing.
	return TypeKey(pkg, sizeLiters), true
}
