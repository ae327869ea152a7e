// Package types - Technology cost record types
package types

import (
	"math"
	"strings"
)

// Public schema column names carried by resolved cost records. Modifier
// specs and output columns refer to these names.
const (
	ColCapex          = "capex"
	ColCapexMWh       = "capex_mwh"
	ColFixedOMMWYr    = "Fixed_OM_cost_per_MWyr"
	ColFixedOMMWhYr   = "Fixed_OM_cost_per_MWhyr"
	ColVarOMMWh       = "Var_OM_cost_per_MWh"
	ColHeatRate       = "Heat_rate_MMBTU_per_MWh"
	ColWACC           = "waccnomtech"
	ColCapSize        = "Cap_size"
	ColInvCostMWYr    = "Inv_cost_per_MWyr"
	ColInvCostMWhYr   = "Inv_cost_per_MWhyr"
	ColMaxCapMW       = "Max_Cap_MW"
	ColBasisYear      = "basis_year"
	ColTechnology     = "technology"
	ColRegion         = "region"
	ColCluster        = "cluster"
	ColCapRecovery    = "cap_recovery_years"
	ColLifetime       = "lifetime"
	ColRegionalMult   = "regional_cost_multiplier"
	ColDollarYear     = "dollar_year"
	ColTechDetail     = "tech_detail"
	ColCostCase       = "cost_case"
	ColFinancialCase  = "financial_case"
	ColCapacityMW     = "capacity_mw"
	ColSpurCapexMile  = "capex_mw_mile"
	ColClusterMaxCap  = "mw"
	ColFleetHeatRate  = "heat_rate_mmbtu_mwh"
	ColOperatingYear  = "operating_year"
	ColPlantID        = "plant_id_eia"
	ColHeatRateSource = "heat_rate"
)

// CostRecord is one row of resolved cost data for a single technology
// variant, keyed by the composed technology name once ComposeKey has run.
type CostRecord struct {
	// Technology is the canonical name, composed as
	// <base>_<tech_detail>_<cost_case> late in the build.
	Technology string

	// BaseTechnology is the uncomposed source technology name.
	BaseTechnology string

	// TechDetail is the sub-variant qualifier.
	TechDetail string

	// CostCase is the financial-assumption scenario (Low/Mid/High).
	CostCase string

	// Region is the model region, set during per-region resolution.
	Region string

	// Cluster is the 1-based resource cluster index, zero when the
	// record is not a renewable cluster.
	Cluster int

	// BasisYear is the rounded mean of the averaged year window.
	BasisYear int

	// Capex is overnight capital cost per MW.
	Capex float64

	// CapexMWh is overnight capital cost per MWh of storage.
	CapexMWh float64

	// FixedOMMWYr is fixed O&M per MW-year.
	FixedOMMWYr float64

	// FixedOMMWhYr is fixed O&M per MWh-year.
	FixedOMMWhYr float64

	// VarOMMWh is variable O&M per MWh.
	VarOMMWh float64

	// HeatRate is fuel use per MWh generated, NaN for non-thermal
	// technologies until finalization fills it with zero.
	HeatRate float64

	// WACC is the nominal financing rate used for annuitization.
	WACC float64

	// CapRecoveryYears is the capital recovery horizon.
	CapRecoveryYears int

	// InvCostMWYr is the annuitized investment cost per MW-year.
	InvCostMWYr float64

	// InvCostMWhYr is the annuitized investment cost per MWh-year.
	InvCostMWhYr float64

	// CapSizeMW is the nameplate size of a single unit.
	CapSizeMW float64

	// LifetimeYears is the retirement lifetime, zero when no policy
	// is configured.
	LifetimeYears int

	// MaxCapMW limits buildable capacity; -1 means unconstrained.
	MaxCapMW float64

	// RegionalMultiplier is the applied regional cost multiplier,
	// NaN when no multiplier was mapped for the technology.
	RegionalMultiplier float64

	// SiteMetrics carries extra per-cluster values supplied by the
	// resource cluster provider.
	SiteMetrics map[string]float64
}

// Field resolves a public schema column name to the backing value.
// The name set is a closed allow-list; unknown names return false.
func (r *CostRecord) Field(name string) (*float64, bool) {
	switch name {
	case ColCapex:
		return &r.Capex, true
	case ColCapexMWh:
		return &r.CapexMWh, true
	case ColFixedOMMWYr:
		return &r.FixedOMMWYr, true
	case ColFixedOMMWhYr:
		return &r.FixedOMMWhYr, true
	case ColVarOMMWh:
		return &r.VarOMMWh, true
	case ColHeatRate:
		return &r.HeatRate, true
	case ColWACC:
		return &r.WACC, true
	case ColCapSize:
		return &r.CapSizeMW, true
	case ColInvCostMWYr:
		return &r.InvCostMWYr, true
	case ColInvCostMWhYr:
		return &r.InvCostMWhYr, true
	case ColMaxCapMW:
		return &r.MaxCapMW, true
	default:
		return nil, false
	}
}

// ComposeKey joins base technology, detail and cost case into the final
// technology key. Empty components are kept so the key shape is stable.
func (r *CostRecord) ComposeKey() {
	r.Technology = strings.Join([]string{r.BaseTechnology, r.TechDetail, r.CostCase}, "_")
}

// Clone returns a deep copy of the record.
func (r *CostRecord) Clone() CostRecord {
	out := *r
	if r.SiteMetrics != nil {
		out.SiteMetrics = make(map[string]float64, len(r.SiteMetrics))
		for k, v := range r.SiteMetrics {
			out.SiteMetrics[k] = v
		}
	}
	return out
}

// CloneTable deep-copies a slice of records.
func CloneTable(records []CostRecord) []CostRecord {
	out := make([]CostRecord, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}

// DuplicateKey returns the first duplicated Technology value in the
// table, or "" when all keys are unique.
func DuplicateKey(records []CostRecord) string {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if _, ok := seen[records[i].Technology]; ok {
			return records[i].Technology
		}
		seen[records[i].Technology] = struct{}{}
	}
	return ""
}

// RoundYear converts an averaged basis year to the nearest whole year.
// NaN maps to zero.
func RoundYear(year float64) int {
	if math.IsNaN(year) {
		return 0
	}
	return int(math.Round(year))
}
