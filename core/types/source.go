package types

// CostTableRow is one raw source row of the multi-year technology cost
// table, already filtered to a single financial case and capital
// recovery key, with monetary columns normalized to the target USD year.
type CostTableRow struct {
	// Technology is the base technology name.
	Technology string

	// TechDetail is the sub-variant qualifier.
	TechDetail string

	// CostCase is the financial-assumption scenario.
	CostCase string

	// FinancialCase is the financing assumption the row was published
	// under (e.g. "Market").
	FinancialCase string

	// CapRecoveryYears is the capital recovery key the row was
	// published under, kept as the source's string form.
	CapRecoveryYears string

	// BasisYear is the projection year of the row.
	BasisYear int

	// FixedOMMW is fixed O&M per MW-year.
	FixedOMMW float64

	// FixedOMMWh is fixed O&M per MWh-year.
	FixedOMMWh float64

	// VarOMMWh is variable O&M per MWh.
	VarOMMWh float64

	// Capex is overnight capital cost per MW.
	Capex float64

	// CapexMWh is overnight capital cost per MWh.
	CapexMWh float64

	// WACC is the nominal financing rate.
	WACC float64
}

// HeatRateRow is one row of the new-build heat rate table.
type HeatRateRow struct {
	// Technology is the base technology name.
	Technology string

	// TechDetail is the sub-variant qualifier.
	TechDetail string

	// BasisYear is the projection year of the row.
	BasisYear int

	// HeatRate is fuel use per MWh generated.
	HeatRate float64
}

// SpurCostRow is one row of the offshore spur-line cost table, keyed the
// same way as cost rows so spur capex can be netted out of offshore wind.
type SpurCostRow struct {
	// Technology is the base technology name.
	Technology string

	// TechDetail is the sub-variant qualifier.
	TechDetail string

	// CostCase is the financial-assumption scenario.
	CostCase string

	// BasisYear is the projection year of the row.
	BasisYear int

	// Capex is the spur-line capital cost per MW.
	Capex float64

	// CapexMWMile is the spur capital cost normalized per MW-mile.
	CapexMWMile float64
}

// AveragedRow is an intermediate cost row averaged over the planning
// year window, still carrying internal column names. Modified-technology
// specs target these names before the rename to the public schema.
type AveragedRow struct {
	// Technology is the base technology name.
	Technology string

	// TechDetail is the sub-variant qualifier.
	TechDetail string

	// CostCase is the financial-assumption scenario.
	CostCase string

	// BasisYear is the mean projection year over the window.
	BasisYear float64

	// FixedOMMW is fixed O&M per MW-year.
	FixedOMMW float64

	// FixedOMMWh is fixed O&M per MWh-year.
	FixedOMMWh float64

	// VarOMMWh is variable O&M per MWh.
	VarOMMWh float64

	// Capex is overnight capital cost per MW.
	Capex float64

	// CapexMWh is overnight capital cost per MWh.
	CapexMWh float64

	// WACC is the nominal financing rate.
	WACC float64

	// HeatRate is fuel use per MWh generated, NaN when the left join
	// to the heat rate table found nothing.
	HeatRate float64

	// CapSizeMW is the nameplate size of a single unit.
	CapSizeMW float64

	// DollarYear is the currency year of a user-supplied row, zero
	// when the row is already in the target USD year.
	DollarYear float64
}

// Internal column names used by averaged rows.
const (
	ColSrcFixedOMMW  = "o_m_fixed_mw"
	ColSrcFixedOMMWh = "o_m_fixed_mwh"
	ColSrcVarOMMWh   = "o_m_variable_mwh"
)

// Field resolves an internal column name to the backing value. The name
// set is a closed allow-list; unknown names return false.
func (a *AveragedRow) Field(name string) (*float64, bool) {
	switch name {
	case ColBasisYear:
		return &a.BasisYear, true
	case ColSrcFixedOMMW:
		return &a.FixedOMMW, true
	case ColSrcFixedOMMWh:
		return &a.FixedOMMWh, true
	case ColSrcVarOMMWh:
		return &a.VarOMMWh, true
	case ColCapex:
		return &a.Capex, true
	case ColCapexMWh:
		return &a.CapexMWh, true
	case ColWACC:
		return &a.WACC, true
	case ColHeatRateSource:
		return &a.HeatRate, true
	case ColCapSize:
		return &a.CapSizeMW, true
	case ColDollarYear:
		return &a.DollarYear, true
	default:
		return nil, false
	}
}

// Record converts the averaged row to a cost record carrying the public
// schema. The technology key stays uncomposed until ComposeKey runs.
func (a *AveragedRow) Record() CostRecord {
	return CostRecord{
		BaseTechnology: a.Technology,
		TechDetail:     a.TechDetail,
		CostCase:       a.CostCase,
		BasisYear:      RoundYear(a.BasisYear),
		Capex:          a.Capex,
		CapexMWh:       a.CapexMWh,
		FixedOMMWYr:    a.FixedOMMW,
		FixedOMMWhYr:   a.FixedOMMWh,
		VarOMMWh:       a.VarOMMWh,
		HeatRate:       a.HeatRate,
		WACC:           a.WACC,
		CapSizeMW:      a.CapSizeMW,
	}
}
