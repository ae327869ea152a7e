// Package settings defines the validated scenario settings consumed by
// a resolution run. A Settings value is built once, validated, and then
// treated as read-only; components copy anything they need to mutate so
// repeated runs with the same settings are idempotent.
package settings

import (
	"gencost/core/override"
	"gencost/internal/errors"
)

// NewGenSpec requests one resolved new-build row.
type NewGenSpec struct {
	// Technology is the base technology name.
	Technology string

	// TechDetail is the sub-variant qualifier.
	TechDetail string

	// CostCase is the financial-assumption scenario.
	CostCase string

	// SizeMW is the nameplate size assigned to the resolved row.
	SizeMW float64
}

// TechMapEntry maps one fleet technology label to its reference
// technology and detail.
type TechMapEntry struct {
	// EIA is the fleet technology label.
	EIA string

	// ATBTechnology is the reference base technology.
	ATBTechnology string

	// ATBTechDetail is the reference sub-variant.
	ATBTechDetail string
}

// AltRecovery overrides the capital recovery horizon for technologies
// whose composed name contains Match (case-insensitive).
type AltRecovery struct {
	// Match is the technology-name substring.
	Match string

	// Years is the recovery horizon to apply.
	Years int
}

// BatteryWACC overrides battery financing. Either a literal rate or the
// name of a technology to inherit the rate from (first matching row).
type BatteryWACC struct {
	// Value is the literal financing rate, used when Inherit is empty.
	Value float64

	// Inherit names a technology whose rate the battery adopts.
	Inherit string
}

// Set reports whether any battery override is configured.
func (b BatteryWACC) Set() bool {
	return b.Value != 0 || b.Inherit != ""
}

// Retirement assigns a lifetime to one fleet technology.
type Retirement struct {
	// Technology is the fleet technology label.
	Technology string

	// Years is the retirement lifetime.
	Years int
}

// ModifiedTech derives a new technology from an averaged template row
// and patches its fields.
type ModifiedTech struct {
	// Name is the short settings key, used in diagnostics.
	Name string

	// ATBTechnology, ATBTechDetail, ATBCostCase and SizeMW select the
	// template row.
	ATBTechnology string
	ATBTechDetail string
	ATBCostCase   string
	SizeMW        float64

	// NewTechnology, NewTechDetail and NewCostCase rename the copy.
	NewTechnology string
	NewTechDetail string
	NewCostCase   string

	// Specs are patches on internal column names, in author order.
	Specs []override.Spec
}

// GlobalModifier patches every table row matching a technology and
// detail pair, using public column names.
type GlobalModifier struct {
	// Name is the short settings key, used in diagnostics.
	Name string

	// Technology is the base technology to match.
	Technology string

	// TechDetail is the sub-variant to match.
	TechDetail string

	// Specs are patches in author order.
	Specs []override.Spec
}

// Filter is one non-identifying cluster scenario attribute. Filters
// constrain descriptor matching and compose the cluster name suffix.
type Filter struct {
	// Key is the descriptor attribute name.
	Key string

	// Value is the required attribute value.
	Value string
}

// ClusterScenario expands one renewable technology row in one region
// into resource clusters.
type ClusterScenario struct {
	// Region is the model region the scenario applies to.
	Region string

	// Technology is the descriptor technology to match.
	Technology string

	// MaxClusters caps how many clusters the provider returns; zero
	// leaves the count to the provider.
	MaxClusters int

	// MinCapacityMW warns when the summed cluster capacity falls
	// short; zero disables the check.
	MinCapacityMW float64

	// Filters are the remaining scenario attributes in author order.
	Filters []Filter
}

// RegionMapEntry assigns model regions to one cost region.
type RegionMapEntry struct {
	// CostRegion is the multiplier table row key.
	CostRegion string

	// Regions are the model regions sharing the cost region.
	Regions []string
}

// TechMultiplierEntry assigns reference technology names to one fleet
// technology column of the multiplier table.
type TechMultiplierEntry struct {
	// EIA is the multiplier table column key.
	EIA string

	// ATBTechs are the reference technology names scaled by it.
	ATBTechs []string
}

// Settings is one resolution run's full configuration.
type Settings struct {
	// ATBUSDYear is the currency year of the raw cost table.
	ATBUSDYear int

	// TargetUSDYear is the currency year of all resolved costs.
	TargetUSDYear int

	// ModelYear is the planning year being resolved.
	ModelYear int

	// FirstPlanningYear opens the averaging window; zero widens the
	// window to every year up to ModelYear.
	FirstPlanningYear int

	// ATBExistingYear is the reference year for existing-fleet O&M.
	ATBExistingYear int

	// ATBFinancialCase filters the raw cost table.
	ATBFinancialCase string

	// ATBCapRecoveryYears is the default capital recovery horizon and
	// the raw table's recovery key.
	ATBCapRecoveryYears int

	// AltCapRecoveryYears overrides the horizon by name substring.
	AltCapRecoveryYears []AltRecovery

	// BatteryWACC overrides battery financing.
	BatteryWACC BatteryWACC

	// PVACDCRatio inflates PV O&M from DC to AC terms.
	PVACDCRatio float64

	// NewGenSpecs lists the technologies to resolve.
	NewGenSpecs []NewGenSpec

	// UserTechFile names an extra technology CSV, empty to skip.
	UserTechFile string

	// AdditionalNewGen filters user technologies by name.
	AdditionalNewGen []string

	// ModifiedTechs derive variants from averaged template rows.
	ModifiedTechs []ModifiedTech

	// GlobalModifiers patch matching rows across the table.
	GlobalModifiers []GlobalModifier

	// TechMap maps fleet labels to reference technologies.
	TechMap []TechMapEntry

	// TechGroups names configured fleet groupings, for diagnostics
	// when a grouped label is missing from TechMap.
	TechGroups map[string][]string

	// RetirementAges assigns lifetimes by fleet technology.
	RetirementAges []Retirement

	// UseLifetime enables the retirement-lifetime pass.
	UseLifetime bool

	// ModelRegions are the regions to resolve, in output order.
	ModelRegions []string

	// RegionAggregations maps a model region to its IPM regions.
	RegionAggregations map[string][]string

	// CostMultiplierRegionMap groups model regions into cost regions.
	CostMultiplierRegionMap []RegionMapEntry

	// CostMultiplierTechMap groups reference technologies under the
	// multiplier table's fleet technology columns.
	CostMultiplierTechMap []TechMultiplierEntry

	// ClusterScenarios expand renewable rows into resource clusters.
	ClusterScenarios []ClusterScenario

	// NewGenNotAvailable excludes technologies by name substring in
	// specific regions.
	NewGenNotAvailable map[string][]string

	// CapacityCol names the fleet capacity column, for provenance.
	CapacityCol string
}

// Window returns the inclusive averaging year window.
func (s *Settings) Window() (first, last int) {
	if s.FirstPlanningYear > 0 {
		return s.FirstPlanningYear, s.ModelYear
	}
	return 0, s.ModelYear
}

// RegionToCostRegion reverses CostMultiplierRegionMap into a model
// region lookup.
func (s *Settings) RegionToCostRegion() map[string]string {
	out := make(map[string]string)
	for _, entry := range s.CostMultiplierRegionMap {
		for _, region := range entry.Regions {
			out[region] = entry.CostRegion
		}
	}
	return out
}

// IPMRegions returns the IPM regions backing a model region, which is
// the region itself unless an aggregation is configured.
func (s *Settings) IPMRegions(region string) []string {
	if ipm, ok := s.RegionAggregations[region]; ok {
		return ipm
	}
	return []string{region}
}

// FindTechMap returns the map entry for a fleet technology label.
func (s *Settings) FindTechMap(eia string) (TechMapEntry, bool) {
	for _, entry := range s.TechMap {
		if entry.EIA == eia {
			return entry, true
		}
	}
	return TechMapEntry{}, false
}

// InTechGroups reports whether a fleet label names a configured group.
func (s *Settings) InTechGroups(eia string) bool {
	_, ok := s.TechGroups[eia]
	return ok
}

// Validate checks the settings for statically detectable configuration
// errors. It never mutates the receiver.
func (s *Settings) Validate() error {
	if s.ModelYear <= 0 {
		return errors.Config("model_year must be a positive year")
	}
	if s.ATBUSDYear <= 0 || s.TargetUSDYear <= 0 {
		return errors.Config("atb_usd_year and target_usd_year must be positive years")
	}
	if s.FirstPlanningYear > s.ModelYear {
		return errors.Configf("first_planning_year %d is after model_year %d",
			s.FirstPlanningYear, s.ModelYear)
	}
	if len(s.ModelRegions) == 0 {
		return errors.Config("model_regions must name at least one region")
	}
	if s.ATBCapRecoveryYears <= 0 {
		return errors.Config("atb_cap_recovery_years must be positive")
	}
	if s.PVACDCRatio <= 0 {
		return errors.Config("pv_ac_dc_ratio must be positive")
	}
	if s.BatteryWACC.Value != 0 && s.BatteryWACC.Inherit != "" {
		return errors.Config("atb_battery_wacc cannot set both a literal rate and an inherit technology")
	}
	for _, alt := range s.AltCapRecoveryYears {
		if alt.Match == "" || alt.Years <= 0 {
			return errors.Configf("alt_atb_cap_recovery_years entry %q must name a substring and positive years", alt.Match)
		}
	}
	for _, spec := range s.NewGenSpecs {
		if spec.Technology == "" {
			return errors.Config("atb_new_gen entries must name a technology")
		}
	}
	for _, mod := range s.ModifiedTechs {
		if mod.ATBTechnology == "" || mod.ATBCostCase == "" {
			return errors.Configf("modified_atb_new_gen %q must name an atb_technology and atb_cost_case", mod.Name)
		}
		if mod.NewTechnology == "" || mod.NewCostCase == "" {
			return errors.Configf("modified_atb_new_gen %q must name a new_technology and new_cost_case", mod.Name)
		}
		if mod.SizeMW <= 0 {
			return errors.Configf("modified_atb_new_gen %q must set a positive size_mw", mod.Name)
		}
	}
	for _, gm := range s.GlobalModifiers {
		if gm.Technology == "" {
			return errors.Configf("atb_modifiers %q must name a technology", gm.Name)
		}
		if len(gm.Specs) == 0 {
			return errors.Configf("atb_modifiers %q has no field patches", gm.Name)
		}
	}
	for _, entry := range s.TechMap {
		if entry.EIA == "" || entry.ATBTechnology == "" {
			return errors.Config("eia_atb_tech_map entries must map a fleet label to a reference technology")
		}
	}
	if s.UseLifetime && len(s.RetirementAges) == 0 {
		return errors.Config("lifetime output requires retirement_ages")
	}
	for _, ret := range s.RetirementAges {
		if ret.Technology == "" || ret.Years <= 0 {
			return errors.Config("retirement_ages entries must map a technology to positive years")
		}
	}
	for _, sc := range s.ClusterScenarios {
		if sc.Region == "" || sc.Technology == "" {
			return errors.Config("renewables_clusters entries must name a region and technology")
		}
		if sc.MaxClusters < 0 || sc.MinCapacityMW < 0 {
			return errors.Configf("renewables_clusters for %s/%s has negative limits", sc.Region, sc.Technology)
		}
	}
	return nil
}
