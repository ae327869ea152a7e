// Package existing derives fixed and variable O&M for already-built
// generators from new-build reference costs, heat-rate scaling, and
// capacity-banded empirical cost tables.
package existing

import "strings"

// TechFamily classifies a fleet technology label into the cost family
// that decides how its O&M is resolved.
type TechFamily int

const (
	// FamilyGeneric scales O&M from the new-build reference.
	FamilyGeneric TechFamily = iota

	// FamilyCombinedCycle uses capacity-banded gas CC tables.
	FamilyCombinedCycle

	// FamilyCombustionTurbine uses capacity-banded CT tables plus a
	// capacity-factor energy credit.
	FamilyCombustionTurbine

	// FamilyCoal uses capacity-banded tables plus an age-dependent
	// annualized capital add-on.
	FamilyCoal

	// FamilyGasSteam uses capacity-banded gas steam turbine tables.
	FamilyGasSteam

	// FamilyPumpedStorage uses a flat pumped hydro table.
	FamilyPumpedStorage

	// FamilyHydro uses a flat conventional hydro table.
	FamilyHydro

	// FamilyGeothermal uses a flat geothermal table.
	FamilyGeothermal
)

// String returns a short family name for logs.
func (f TechFamily) String() string {
	switch f {
	case FamilyCombinedCycle:
		return "combined_cycle"
	case FamilyCombustionTurbine:
		return "combustion_turbine"
	case FamilyCoal:
		return "coal"
	case FamilyGasSteam:
		return "gas_steam"
	case FamilyPumpedStorage:
		return "pumped_storage"
	case FamilyHydro:
		return "hydro"
	case FamilyGeothermal:
		return "geothermal"
	default:
		return "generic"
	}
}

// classifiers pair a label substring with its family. Order matters:
// pumped storage labels also contain "Hydroelectric", so the pumped
// entry must run first, and coal steam labels must resolve before any
// steam turbine entry.
var classifiers = []struct {
	substring string
	family    TechFamily
}{
	{"Combined Cycle", FamilyCombinedCycle},
	{"Combustion Turbine", FamilyCombustionTurbine},
	{"Coal", FamilyCoal},
	{"Natural Gas Steam Turbine", FamilyGasSteam},
	{"Pumped", FamilyPumpedStorage},
	{"Hydroelectric", FamilyHydro},
	{"Geothermal", FamilyGeothermal},
}

// ClassifyFamily resolves a fleet technology label to exactly one
// family. Labels matching no entry fall back to heat-rate scaling.
func ClassifyFamily(eiaTech string) TechFamily {
	for _, c := range classifiers {
		if strings.Contains(eiaTech, c.substring) {
			return c.family
		}
	}
	return FamilyGeneric
}
