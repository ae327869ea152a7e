package newgen

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"gencost/core/annuity"
	"gencost/core/inflation"
	"gencost/core/override"
	"gencost/core/settings"
	"gencost/core/types"
	"gencost/internal/errors"
)

func builderSettings() *settings.Settings {
	return &settings.Settings{
		ATBUSDYear:          2018,
		TargetUSDYear:       2019,
		ModelYear:           2028,
		FirstPlanningYear:   2026,
		ATBExistingYear:     2019,
		ATBFinancialCase:    "Market",
		ATBCapRecoveryYears: 20,
		PVACDCRatio:         1,
		ModelRegions:        []string{"CA_N"},
		NewGenSpecs: []settings.NewGenSpec{
			{Technology: "NaturalGas", TechDetail: "CCAvgCF", CostCase: "Mid", SizeMW: 500},
			{Technology: "UtilityPV", TechDetail: "Class1", CostCase: "Mid", SizeMW: 100},
			{Technology: "Battery", TechDetail: "", CostCase: "Mid", SizeMW: 50},
		},
	}
}

func builderIndex() *inflation.PriceIndex {
	return inflation.NewPriceIndex(map[int]decimal.Decimal{
		2017: decimal.NewFromInt(100),
		2019: decimal.NewFromInt(110),
	})
}

func builderRows() ([]types.CostTableRow, []types.HeatRateRow) {
	costs := []types.CostTableRow{
		{Technology: "NaturalGas", TechDetail: "CCAvgCF", CostCase: "Mid", BasisYear: 2025, Capex: 600, FixedOMMW: 9000, VarOMMWh: 2, WACC: 0.06},
		{Technology: "NaturalGas", TechDetail: "CCAvgCF", CostCase: "Mid", BasisYear: 2026, Capex: 1000, FixedOMMW: 10000, VarOMMWh: 2, WACC: 0.06},
		{Technology: "NaturalGas", TechDetail: "CCAvgCF", CostCase: "Mid", BasisYear: 2027, Capex: 1100, FixedOMMW: 11000, VarOMMWh: 2, WACC: 0.06},
		{Technology: "NaturalGas", TechDetail: "CCAvgCF", CostCase: "Mid", BasisYear: 2028, Capex: 1200, FixedOMMW: 12000, VarOMMWh: 2, WACC: 0.06},
		{Technology: "NaturalGas", TechDetail: "CCAvgCF", CostCase: "Mid", BasisYear: 2029, Capex: 2000, FixedOMMW: 20000, VarOMMWh: 9, WACC: 0.06},
		{Technology: "UtilityPV", TechDetail: "Class1", CostCase: "Mid", BasisYear: 2026, Capex: 900, FixedOMMW: 15000, WACC: 0.04},
		{Technology: "UtilityPV", TechDetail: "Class1", CostCase: "Mid", BasisYear: 2027, Capex: 900, FixedOMMW: 15000, WACC: 0.04},
		{Technology: "UtilityPV", TechDetail: "Class1", CostCase: "Mid", BasisYear: 2028, Capex: 900, FixedOMMW: 15000, WACC: 0.04},
		{Technology: "Battery", TechDetail: "", CostCase: "Mid", BasisYear: 2026, Capex: 800, CapexMWh: 300, FixedOMMW: 20000, WACC: 0.06},
		{Technology: "Battery", TechDetail: "", CostCase: "Mid", BasisYear: 2027, Capex: 800, CapexMWh: 300, FixedOMMW: 20000, WACC: 0.06},
		{Technology: "Battery", TechDetail: "", CostCase: "Mid", BasisYear: 2028, Capex: 800, CapexMWh: 300, FixedOMMW: 20000, WACC: 0.06},
	}
	heatRates := []types.HeatRateRow{
		{Technology: "NaturalGas", TechDetail: "CCAvgCF", BasisYear: 2026, HeatRate: 7.0},
		{Technology: "NaturalGas", TechDetail: "CCAvgCF", BasisYear: 2028, HeatRate: 8.0},
	}
	return costs, heatRates
}

// TestBuildTableAverages tests window averaging and the joined heat
// rate projection
func TestBuildTableAverages(t *testing.T) {
	costs, heatRates := builderRows()
	b := NewBuilder(builderSettings(), builderIndex())

	records, err := b.BuildTable(costs, heatRates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	cc := records[0]
	if cc.Technology != "NaturalGas_CCAvgCF_Mid" {
		t.Errorf("expected composed key NaturalGas_CCAvgCF_Mid, got %q", cc.Technology)
	}
	if cc.Capex != 1100 {
		t.Errorf("expected window-averaged capex 1100, got %v", cc.Capex)
	}
	if cc.FixedOMMWYr != 11000 {
		t.Errorf("expected fixed O&M 11000, got %v", cc.FixedOMMWYr)
	}
	if cc.VarOMMWh != 2 {
		t.Errorf("expected variable O&M 2, got %v", cc.VarOMMWh)
	}
	// 2027 has no heat rate projection, so the mean skips it.
	if cc.HeatRate != 7.5 {
		t.Errorf("expected heat rate 7.5, got %v", cc.HeatRate)
	}
	if cc.BasisYear != 2027 {
		t.Errorf("expected basis year 2027, got %v", cc.BasisYear)
	}
	if cc.CapSizeMW != 500 {
		t.Errorf("expected cap size 500, got %v", cc.CapSizeMW)
	}
	if cc.MaxCapMW != -1 {
		t.Errorf("expected unconstrained Max_Cap_MW -1, got %v", cc.MaxCapMW)
	}
	if cc.CapRecoveryYears != 20 {
		t.Errorf("expected default recovery 20, got %v", cc.CapRecoveryYears)
	}

	expected, err := annuity.InvestmentCost(1100, 0.06, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cc.InvCostMWYr != expected {
		t.Errorf("expected investment cost %v, got %v", expected, cc.InvCostMWYr)
	}
	if cc.InvCostMWhYr != 0 {
		t.Errorf("expected zero energy investment cost, got %v", cc.InvCostMWhYr)
	}

	pv := records[1]
	if !math.IsNaN(pv.HeatRate) {
		t.Errorf("expected NaN heat rate for PV, got %v", pv.HeatRate)
	}

	battery := records[2]
	if battery.Technology != "Battery__Mid" {
		t.Errorf("expected composed key Battery__Mid, got %q", battery.Technology)
	}
	expectedMWh, err := annuity.InvestmentCost(300, 0.06, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if battery.InvCostMWhYr != expectedMWh {
		t.Errorf("expected energy investment cost %v, got %v", expectedMWh, battery.InvCostMWhYr)
	}
}

// TestBuildTableFullWindow tests that an unset first planning year
// widens the averaging window back to every available year
func TestBuildTableFullWindow(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.FirstPlanningYear = 0
	b := NewBuilder(s, builderIndex())

	records, err := b.BuildTable(costs, heatRates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2025 joins the window, 2029 stays past the model year.
	if records[0].Capex != 975 {
		t.Errorf("expected capex 975, got %v", records[0].Capex)
	}
	if records[0].FixedOMMWYr != 10500 {
		t.Errorf("expected fixed O&M 10500, got %v", records[0].FixedOMMWYr)
	}
}

// TestBatteryWACC tests both battery financing override forms
func TestBatteryWACC(t *testing.T) {
	t.Run("literal rate", func(t *testing.T) {
		costs, heatRates := builderRows()
		s := builderSettings()
		s.BatteryWACC = settings.BatteryWACC{Value: 0.03}
		b := NewBuilder(s, builderIndex())

		records, err := b.BuildTable(costs, heatRates, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records[2].WACC != 0.03 {
			t.Errorf("expected battery WACC 0.03, got %v", records[2].WACC)
		}
		if records[0].WACC != 0.06 {
			t.Errorf("expected unchanged CC WACC 0.06, got %v", records[0].WACC)
		}
		expected, err := annuity.InvestmentCost(800, 0.03, 20)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records[2].InvCostMWYr != expected {
			t.Errorf("expected investment cost %v, got %v", expected, records[2].InvCostMWYr)
		}
	})

	t.Run("inherited rate", func(t *testing.T) {
		costs, heatRates := builderRows()
		s := builderSettings()
		s.BatteryWACC = settings.BatteryWACC{Inherit: "UtilityPV"}
		b := NewBuilder(s, builderIndex())

		records, err := b.BuildTable(costs, heatRates, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records[2].WACC != 0.04 {
			t.Errorf("expected inherited WACC 0.04, got %v", records[2].WACC)
		}
	})

	t.Run("inherit source missing", func(t *testing.T) {
		costs, heatRates := builderRows()
		s := builderSettings()
		s.BatteryWACC = settings.BatteryWACC{Inherit: "Nuclear"}
		b := NewBuilder(s, builderIndex())

		_, err := b.BuildTable(costs, heatRates, nil)
		if err == nil {
			t.Fatal("expected error for missing inherit source, got nil")
		}
		if !errors.IsType(err, errors.TypeConfig) {
			t.Errorf("expected CONFIG_ERROR, got %v", err)
		}
	})
}

// TestUserTechs tests filtering and currency normalization of
// user-supplied technologies
func TestUserTechs(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.AdditionalNewGen = []string{"CCS"}
	b := NewBuilder(s, builderIndex())

	userTechs := []types.AveragedRow{
		{Technology: "CCS", TechDetail: "90pct", CostCase: "custom", BasisYear: 2028,
			Capex: 2000, FixedOMMW: 30000, VarOMMWh: 5, WACC: 0.07, HeatRate: 8.0,
			CapSizeMW: 250, DollarYear: 2017},
		{Technology: "NotRequested", Capex: 1, WACC: 0.05, CapSizeMW: 1},
	}

	records, err := b.BuildTable(costs, heatRates, userTechs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	ccs := records[3]
	if ccs.Technology != "CCS_90pct_custom" {
		t.Errorf("expected composed key CCS_90pct_custom, got %q", ccs.Technology)
	}
	if math.Abs(ccs.Capex-2200) > 1e-6 {
		t.Errorf("expected capex 2200 in 2019 USD, got %v", ccs.Capex)
	}
	if math.Abs(ccs.FixedOMMWYr-33000) > 1e-6 {
		t.Errorf("expected fixed O&M 33000, got %v", ccs.FixedOMMWYr)
	}
	if math.Abs(ccs.VarOMMWh-5.5) > 1e-9 {
		t.Errorf("expected variable O&M 5.5, got %v", ccs.VarOMMWh)
	}
	expected, err := annuity.InvestmentCost(ccs.Capex, 0.07, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ccs.InvCostMWYr != expected {
		t.Errorf("expected investment cost %v, got %v", expected, ccs.InvCostMWYr)
	}
}

// TestModifiedTechs tests derived variants built from template rows
func TestModifiedTechs(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.ModifiedTechs = []settings.ModifiedTech{
		{
			Name:          "ngccs",
			ATBTechnology: "NaturalGas", ATBTechDetail: "CCAvgCF", ATBCostCase: "Mid",
			SizeMW:        400,
			NewTechnology: "NaturalGas", NewTechDetail: "CCCCSAvgCF", NewCostCase: "Mid",
			Specs: []override.Spec{
				{Field: types.ColCapex, Op: override.OpMul, Operand: 1.5},
				{Field: types.ColSrcVarOMMWh, Op: override.OpAdd, Operand: 3},
			},
		},
	}
	b := NewBuilder(s, builderIndex())

	records, err := b.BuildTable(costs, heatRates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	mod := records[3]
	if mod.Technology != "NaturalGas_CCCCSAvgCF_Mid" {
		t.Errorf("expected composed key NaturalGas_CCCCSAvgCF_Mid, got %q", mod.Technology)
	}
	if mod.Capex != 1650 {
		t.Errorf("expected patched capex 1650, got %v", mod.Capex)
	}
	if mod.VarOMMWh != 5 {
		t.Errorf("expected patched variable O&M 5, got %v", mod.VarOMMWh)
	}
	if mod.CapSizeMW != 400 {
		t.Errorf("expected cap size 400, got %v", mod.CapSizeMW)
	}
	// The template row stays untouched.
	if records[0].Capex != 1100 {
		t.Errorf("expected unchanged template capex 1100, got %v", records[0].Capex)
	}
}

// TestModifiedTechInvalidField tests that patches naming a public
// column fail before the rename
func TestModifiedTechInvalidField(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.ModifiedTechs = []settings.ModifiedTech{
		{
			Name:          "bad",
			ATBTechnology: "NaturalGas", ATBTechDetail: "CCAvgCF", ATBCostCase: "Mid",
			NewTechnology: "NaturalGas", NewCostCase: "Mid",
			Specs: []override.Spec{
				{Field: types.ColFixedOMMWYr, Op: override.OpAdd, Operand: 1},
			},
		},
	}
	b := NewBuilder(s, builderIndex())

	_, err := b.BuildTable(costs, heatRates, nil)
	if err == nil {
		t.Fatal("expected error for invalid patch field, got nil")
	}
	if !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

// TestGlobalModifiers tests table-wide patches on public column names
func TestGlobalModifiers(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.GlobalModifiers = []settings.GlobalModifier{
		{
			Name:       "ngcc",
			Technology: "NaturalGas",
			TechDetail: "CCAvgCF",
			Specs: []override.Spec{
				{Field: types.ColFixedOMMWYr, Op: override.OpAdd, Operand: 1000},
			},
		},
		{
			Name:       "unmatched",
			Technology: "Coal",
			TechDetail: "IGCCAvgCF",
			Specs: []override.Spec{
				{Field: types.ColCapex, Op: override.OpMul, Operand: 2},
			},
		},
	}
	b := NewBuilder(s, builderIndex())

	records, err := b.BuildTable(costs, heatRates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].FixedOMMWYr != 12000 {
		t.Errorf("expected patched fixed O&M 12000, got %v", records[0].FixedOMMWYr)
	}
	// The unmatched modifier warns without changing anything.
	if records[1].Capex != 900 || records[2].Capex != 800 {
		t.Errorf("expected untouched capex, got %v and %v", records[1].Capex, records[2].Capex)
	}
}

// TestGlobalModifierInvalidField tests that patches naming a source
// column fail after the rename
func TestGlobalModifierInvalidField(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.GlobalModifiers = []settings.GlobalModifier{
		{
			Name:       "bad",
			Technology: "NaturalGas",
			TechDetail: "CCAvgCF",
			Specs: []override.Spec{
				{Field: types.ColSrcFixedOMMW, Op: override.OpAdd, Operand: 1},
			},
		},
	}
	b := NewBuilder(s, builderIndex())

	_, err := b.BuildTable(costs, heatRates, nil)
	if err == nil {
		t.Fatal("expected error for invalid patch field, got nil")
	}
	if !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

// TestLifetimes tests retirement ages copied onto new-build rows
func TestLifetimes(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.UseLifetime = true
	s.TechMap = []settings.TechMapEntry{
		{EIA: "Natural Gas Fired Combined Cycle", ATBTechnology: "NaturalGas", ATBTechDetail: "CCAvgCF"},
		{EIA: "Solar Photovoltaic", ATBTechnology: "UtilityPV", ATBTechDetail: "Class1"},
		{EIA: "Battery", ATBTechnology: "Battery"},
		{EIA: "Peaker", ATBTechnology: "NaturalGas", ATBTechDetail: "CTAvgCF"},
	}
	s.RetirementAges = []settings.Retirement{
		{Technology: "Natural Gas Fired Combined Cycle", Years: 55},
		{Technology: "Batteries", Years: 15},
	}
	b := NewBuilder(s, builderIndex())

	records, err := b.BuildTable(costs, heatRates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records[0].LifetimeYears != 55 {
		t.Errorf("expected CC lifetime 55, got %v", records[0].LifetimeYears)
	}
	// No configured age for solar leaves the lifetime at zero.
	if records[1].LifetimeYears != 0 {
		t.Errorf("expected PV lifetime 0, got %v", records[1].LifetimeYears)
	}
	if records[2].LifetimeYears != 15 {
		t.Errorf("expected battery lifetime 15, got %v", records[2].LifetimeYears)
	}
}

// TestLifetimesUnmappedTechnology tests that a row without a fleet
// mapping fails the lifetime pass
func TestLifetimesUnmappedTechnology(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.UseLifetime = true
	s.TechMap = []settings.TechMapEntry{
		{EIA: "Natural Gas Fired Combined Cycle", ATBTechnology: "NaturalGas", ATBTechDetail: "CCAvgCF"},
		{EIA: "Battery", ATBTechnology: "Battery"},
	}
	b := NewBuilder(s, builderIndex())

	_, err := b.BuildTable(costs, heatRates, nil)
	if err == nil {
		t.Fatal("expected error for unmapped technology, got nil")
	}
	if !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

// TestCapRecoveryOverrides tests the substring recovery overrides
func TestCapRecoveryOverrides(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.AltCapRecoveryYears = []settings.AltRecovery{
		{Match: "naturalgas_ccavgcf", Years: 15},
		{Match: "battery", Years: 10},
	}
	b := NewBuilder(s, builderIndex())

	records, err := b.BuildTable(costs, heatRates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		index    int
		expected int
	}{
		{0, 15},
		{1, 20},
		{2, 10},
	}
	for _, tt := range tests {
		if records[tt.index].CapRecoveryYears != tt.expected {
			t.Errorf("record %d: expected recovery %d, got %d",
				tt.index, tt.expected, records[tt.index].CapRecoveryYears)
		}
	}
}

// TestCapRecoveryLaterEntryWins tests override ordering on overlap
func TestCapRecoveryLaterEntryWins(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.AltCapRecoveryYears = []settings.AltRecovery{
		{Match: "mid", Years: 30},
		{Match: "battery", Years: 10},
	}
	b := NewBuilder(s, builderIndex())

	records, err := b.BuildTable(costs, heatRates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].CapRecoveryYears != 30 {
		t.Errorf("expected recovery 30, got %d", records[0].CapRecoveryYears)
	}
	if records[2].CapRecoveryYears != 10 {
		t.Errorf("expected recovery 10, got %d", records[2].CapRecoveryYears)
	}
}

// TestEmptyWindowFails tests that a technology with no source rows in
// the window cannot be annuitized
func TestEmptyWindowFails(t *testing.T) {
	costs, heatRates := builderRows()
	s := builderSettings()
	s.NewGenSpecs = append(s.NewGenSpecs,
		settings.NewGenSpec{Technology: "Nuclear", TechDetail: "Nuclear", CostCase: "Mid", SizeMW: 1000})
	b := NewBuilder(s, builderIndex())

	_, err := b.BuildTable(costs, heatRates, nil)
	if err == nil {
		t.Fatal("expected error for empty averaging window, got nil")
	}
	if !errors.IsType(err, errors.TypeNumeric) {
		t.Errorf("expected NUMERIC_ERROR, got %v", err)
	}
}
