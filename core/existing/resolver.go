package existing

import (
	"math"

	"go.uber.org/zap"

	"gencost/core/inflation"
	"gencost/core/override"
	"gencost/core/settings"
	"gencost/core/types"
	"gencost/internal/errors"
	"gencost/internal/logging"
)

// nemsUSDYear is the currency year the empirical NEMS O&M constants are
// expressed in. Every constant passes through the price index before it
// is attached to a fleet group.
const nemsUSDYear = 2017

// ctCreditHours is the assumed annual generation of a combustion
// turbine (8760 h at 4% capacity factor) used to convert its variable
// O&M into a per-MW-year credit against fixed O&M.
const ctCreditHours = 8760 * 0.04

// Resolver attaches fixed and variable O&M to existing fleet units.
type Resolver struct {
	settings *settings.Settings
	index    *inflation.PriceIndex
	refs     *ReferenceCosts
}

// NewResolver creates a fleet O&M resolver.
func NewResolver(s *settings.Settings, index *inflation.PriceIndex, refs *ReferenceCosts) *Resolver {
	return &Resolver{settings: s, index: index, refs: refs}
}

// ResolveFleet resolves O&M for every (plant, technology) group and
// returns a new slice with the same row order and cardinality. Fixed
// O&M is truncated to whole currency units; variable O&M stays float.
func (r *Resolver) ResolveFleet(units []types.FleetUnit) ([]types.FleetUnit, error) {
	logging.Info("adding fixed and variable O&M for existing plants",
		zap.Int("units", len(units)))

	out := make([]types.FleetUnit, len(units))
	copy(out, units)

	for _, group := range types.GroupFleet(out) {
		if err := r.resolveGroup(out, group); err != nil {
			return nil, err
		}
	}

	for i := range out {
		out[i].FixedOMMWYr = math.Trunc(out[i].FixedOMMWYr)
	}
	return out, nil
}

func (r *Resolver) resolveGroup(units []types.FleetUnit, group types.FleetGroup) error {
	eiaTech := group.Key.Technology
	entry, ok := r.settings.FindTechMap(eiaTech)
	if !ok {
		if r.settings.InTechGroups(eiaTech) {
			return errors.Configf(
				"%s is defined in tech_groups but has no reference technology in eia_atb_tech_map", eiaTech)
		}
		return errors.Configf("%s has no reference technology in eia_atb_tech_map", eiaTech)
	}

	switch ClassifyFamily(eiaTech) {
	case FamilyCombinedCycle:
		return r.resolveCombinedCycle(units, group)
	case FamilyCombustionTurbine:
		return r.resolveCombustionTurbine(units, group, entry)
	case FamilyCoal:
		return r.resolveCoal(units, group)
	case FamilyGasSteam:
		return r.resolveGasSteam(units, group)
	case FamilyHydro:
		return r.resolveFlat(units, group, 44.56*1000)
	case FamilyGeothermal:
		return r.resolveFlat(units, group, 198.04*1000)
	case FamilyPumpedStorage:
		return r.resolveFlat(units, group, (23.63+14.83)*1000)
	default:
		return r.resolveGeneric(units, group, entry)
	}
}

// groupCapacity sums the group's nameplate capacity, skipping NaN.
func groupCapacity(units []types.FleetUnit, group types.FleetGroup) float64 {
	var sum float64
	for _, i := range group.Units {
		if !math.IsNaN(units[i].CapacityMW) {
			sum += units[i].CapacityMW
		}
	}
	return sum
}

// groupHeatRate is the mean unit heat rate, skipping NaN. All-NaN
// groups stay NaN.
func groupHeatRate(units []types.FleetUnit, group types.FleetGroup) float64 {
	var sum float64
	var n int
	for _, i := range group.Units {
		if !math.IsNaN(units[i].HeatRate) {
			sum += units[i].HeatRate
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func (r *Resolver) assign(units []types.FleetUnit, group types.FleetGroup, fixed, variable float64) {
	for _, i := range group.Units {
		units[i].FixedOMMWYr = fixed
		units[i].VarOMMWh = variable
	}
}

// adjustPair converts 2017-USD fixed and variable O&M to the target
// currency year.
func (r *Resolver) adjustPair(fixed, variable float64) (float64, float64, error) {
	adjFixed, err := r.index.Adjust(fixed, nemsUSDYear, r.settings.TargetUSDYear)
	if err != nil {
		return 0, 0, err
	}
	adjVar, err := r.index.Adjust(variable, nemsUSDYear, r.settings.TargetUSDYear)
	if err != nil {
		return 0, 0, err
	}
	return adjFixed, adjVar, nil
}

func (r *Resolver) resolveCombinedCycle(units []types.FleetUnit, group types.FleetGroup) error {
	capacity := groupCapacity(units, group)

	var fixed, variable float64
	switch {
	case capacity < 500:
		fixed, variable = 15.62*1000, 4.31
	case capacity < 1000:
		fixed, variable = 9.27*1000, 3.42
	default:
		fixed, variable = 11.68*1000, 3.37
	}

	adjFixed, adjVar, err := r.adjustPair(fixed, variable)
	if err != nil {
		return err
	}
	r.assign(units, group, adjFixed, adjVar)
	return nil
}

func (r *Resolver) resolveCombustionTurbine(units []types.FleetUnit, group types.FleetGroup, entry settings.TechMapEntry) error {
	capacity := groupCapacity(units, group)

	ref, ok := r.refs.MidCase(entry.ATBTechnology, entry.ATBTechDetail, r.settings.ATBExistingYear)
	if !ok {
		return errors.NotFound("new-build reference cost",
			entry.ATBTechnology+"/"+entry.ATBTechDetail).
			WithContext("basis_year", r.settings.ATBExistingYear)
	}

	// Existing CTs report no variable O&M, so the new-build value is
	// used, with any configured table-wide patch for this technology
	// applied first.
	variable := ref.VarOMMWh
	if spec, ok := r.varOMModifier(entry); ok {
		variable = override.Apply(variable, spec.Op, spec.Operand)
	}

	var annualCapex, omComponent float64
	switch {
	case capacity < 100:
		annualCapex, omComponent = 9.0*1000, 5.96*1000
	case capacity <= 300:
		annualCapex, omComponent = 6.18*1000, 6.43*1000
	default:
		annualCapex, omComponent = 6.95*1000, 3.99*1000
	}

	// The capex band covers energy costs already recovered through
	// variable O&M, so back out the expected annual generation.
	fixed := annualCapex + omComponent - variable*ctCreditHours

	adjFixed, adjVar, err := r.adjustPair(fixed, variable)
	if err != nil {
		return err
	}
	r.assign(units, group, adjFixed, adjVar)
	return nil
}

// varOMModifier finds a configured table-wide patch of variable O&M for
// the mapped reference technology.
func (r *Resolver) varOMModifier(entry settings.TechMapEntry) (override.Spec, bool) {
	for _, gm := range r.settings.GlobalModifiers {
		if gm.Technology != entry.ATBTechnology || gm.TechDetail != entry.ATBTechDetail {
			continue
		}
		for _, spec := range gm.Specs {
			if spec.Field == types.ColVarOMMWh {
				return spec, true
			}
		}
	}
	return override.Spec{}, false
}

func (r *Resolver) resolveCoal(units []types.FleetUnit, group types.FleetGroup) error {
	capacity := groupCapacity(units, group)

	var fixed float64
	switch {
	case capacity < 500:
		fixed = 44.21 * 1000
	case capacity < 1000:
		fixed = 34.02 * 1000
	case capacity < 2000:
		fixed = 28.52 * 1000
	default:
		fixed = 33.27 * 1000
	}

	adjVar, err := r.index.Adjust(1.78, nemsUSDYear, r.settings.TargetUSDYear)
	if err != nil {
		return err
	}

	// The annualized capital add-on grows with unit age, so fixed O&M
	// is attached per unit rather than per group. The half-weighted
	// term assumes flue-gas desulfurization on half the fleet.
	for _, i := range group.Units {
		age := float64(r.settings.ModelYear - units[i].OperatingYear)
		annualCapex := (16.53 + 0.126*age + 5.68*0.5) * 1000
		adjFixed, err := r.index.Adjust(fixed+annualCapex, nemsUSDYear, r.settings.TargetUSDYear)
		if err != nil {
			return err
		}
		units[i].FixedOMMWYr = adjFixed
		units[i].VarOMMWh = adjVar
	}
	return nil
}

func (r *Resolver) resolveGasSteam(units []types.FleetUnit, group types.FleetGroup) error {
	capacity := groupCapacity(units, group)

	var annualCapex, omComponent float64
	switch {
	case capacity < 500:
		annualCapex, omComponent = 18.86*1000, 29.73*1000
	case capacity < 1000:
		annualCapex, omComponent = 11.57*1000, 17.98*1000
	default:
		annualCapex, omComponent = 10.82*1000, 14.51*1000
	}

	adjFixed, adjVar, err := r.adjustPair(annualCapex+omComponent, 1.0)
	if err != nil {
		return err
	}
	r.assign(units, group, adjFixed, adjVar)
	return nil
}

// resolveFlat handles families with a single fixed O&M value and no
// variable O&M.
func (r *Resolver) resolveFlat(units []types.FleetUnit, group types.FleetGroup, fixed float64) error {
	adjFixed, err := r.index.Adjust(fixed, nemsUSDYear, r.settings.TargetUSDYear)
	if err != nil {
		return err
	}
	r.assign(units, group, adjFixed, 0)
	return nil
}

func (r *Resolver) resolveGeneric(units []types.FleetUnit, group types.FleetGroup, entry settings.TechMapEntry) error {
	existingHR := groupHeatRate(units, group)
	newBuildHR, ok := r.refs.HeatRate(entry.ATBTechnology, entry.ATBTechDetail, r.settings.ATBExistingYear)
	if !ok {
		logging.Warn("no new-build heat rate, O&M heat-rate scaling disabled",
			zap.String("technology", group.Key.Technology),
			zap.String("reference", entry.ATBTechnology+"/"+entry.ATBTechDetail),
			zap.Int("basis_year", r.settings.ATBExistingYear))
		existingHR, newBuildHR = 1, 1
	}

	ref, ok := r.refs.MidCase(entry.ATBTechnology, entry.ATBTechDetail, r.settings.ATBExistingYear)
	if !ok {
		return errors.NotFound("new-build reference cost",
			entry.ATBTechnology+"/"+entry.ATBTechDetail).
			WithContext("basis_year", r.settings.ATBExistingYear)
	}

	r.assign(units, group, ref.FixedOMMW, ref.VarOMMWh*(existingHR/newBuildHR))
	return nil
}
