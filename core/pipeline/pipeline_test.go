package pipeline

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"gencost/core/annuity"
	"gencost/core/cluster"
	"gencost/core/inflation"
	"gencost/core/regional"
	"gencost/core/settings"
	"gencost/core/types"
	"gencost/internal/errors"
)

type pipeMapper struct{}

func (pipeMapper) MapTechnology(technology, techDetail string) (cluster.Descriptor, bool) {
	if technology == "UtilityPV" {
		return cluster.Descriptor{Technology: "utilitypv"}, true
	}
	return cluster.Descriptor{}, false
}

type pipeProvider struct{}

func (pipeProvider) Clusters(req cluster.ClusterRequest) ([]cluster.ClusterRow, error) {
	return []cluster.ClusterRow{{CapacityMW: 50}, {CapacityMW: 30}}, nil
}

func pipelineSettings() *settings.Settings {
	return &settings.Settings{
		ATBUSDYear:          2019,
		TargetUSDYear:       2019,
		ModelYear:           2030,
		FirstPlanningYear:   2026,
		ATBExistingYear:     2019,
		ATBFinancialCase:    "Market",
		ATBCapRecoveryYears: 20,
		PVACDCRatio:         1,
		ModelRegions:        []string{"CA_N", "CA_S"},
		NewGenSpecs: []settings.NewGenSpec{
			{Technology: "UtilityPV", TechDetail: "Class1", CostCase: "Mid", SizeMW: 100},
			{Technology: "NaturalGas", TechDetail: "CCAvgCF", CostCase: "Mid", SizeMW: 500},
		},
		CostMultiplierRegionMap: []settings.RegionMapEntry{
			{CostRegion: "PAC", Regions: []string{"CA_N"}},
			{CostRegion: "MTN", Regions: []string{"CA_S"}},
		},
		CostMultiplierTechMap: []settings.TechMultiplierEntry{
			{EIA: "Solar Photovoltaic", ATBTechs: []string{"UtilityPV"}},
			{EIA: "Natural Gas Fired Combined Cycle", ATBTechs: []string{"NaturalGas"}},
		},
		ClusterScenarios: []settings.ClusterScenario{
			{Region: "CA_S", Technology: "utilitypv", MaxClusters: 2},
		},
		NewGenNotAvailable: map[string][]string{"CA_N": {"NaturalGas"}},
		TechMap: []settings.TechMapEntry{
			{EIA: "Natural Gas Fired Combined Cycle", ATBTechnology: "NaturalGas", ATBTechDetail: "CCAvgCF"},
		},
	}
}

func pipelineIndex() *inflation.PriceIndex {
	return inflation.NewPriceIndex(map[int]decimal.Decimal{
		2017: decimal.NewFromInt(100),
		2019: decimal.NewFromInt(110),
	})
}

func pipelineInputs() Inputs {
	table := regional.NewMultiplierTable([]string{
		"Solar Photovoltaic",
		"Natural Gas Fired Combined Cycle",
	})
	table.AddRow("PAC", []float64{1.0, 1.0})
	table.AddRow("MTN", []float64{1.2, 0.9})

	return Inputs{
		Costs: []types.CostTableRow{
			{Technology: "UtilityPV", TechDetail: "Class1", CostCase: "Mid", BasisYear: 2028, Capex: 900, FixedOMMW: 15000.5, WACC: 0.04},
			{Technology: "NaturalGas", TechDetail: "CCAvgCF", CostCase: "Mid", BasisYear: 2028, Capex: 1100, FixedOMMW: 11000, VarOMMWh: 2.5, WACC: 0.05},
		},
		HeatRates: []types.HeatRateRow{
			{Technology: "NaturalGas", TechDetail: "CCAvgCF", BasisYear: 2028, HeatRate: 7.5},
		},
		Multipliers: table,
	}
}

func newTestPipeline(workers int) *Pipeline {
	return New(pipelineSettings(), pipelineIndex(), pipeMapper{}, pipeProvider{}, workers)
}

// TestRun tests region ordering, scaling, expansion, exclusion and
// finalization across a two-region run
func TestRun(t *testing.T) {
	p := newTestPipeline(4)

	out, err := p.Run(context.Background(), pipelineInputs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 records, got %d", len(out))
	}

	// CA_N keeps only solar: gas is excluded there and no cluster
	// scenario applies.
	pv := out[0]
	if pv.Region != "CA_N" || pv.Technology != "UtilityPV_Class1_Mid" {
		t.Fatalf("expected CA_N solar row first, got %s in %s", pv.Technology, pv.Region)
	}
	if pv.MaxCapMW != -1 {
		t.Errorf("expected unconstrained capacity, got %v", pv.MaxCapMW)
	}
	if pv.HeatRate != 0 {
		t.Errorf("expected NaN heat rate zeroed, got %v", pv.HeatRate)
	}
	if pv.FixedOMMWYr != 15000 {
		t.Errorf("expected truncated fixed O&M 15000, got %v", pv.FixedOMMWYr)
	}
	pvInv, err := annuity.InvestmentCost(900, 0.04, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pv.InvCostMWYr != math.Trunc(pvInv) {
		t.Errorf("expected investment cost %v, got %v", math.Trunc(pvInv), pv.InvCostMWYr)
	}
	if pv.RegionalMultiplier != 1.0 {
		t.Errorf("expected audit multiplier 1.0, got %v", pv.RegionalMultiplier)
	}

	// CA_S keeps gas, scaled by its cost region, and replaces solar
	// with two clusters.
	gas := out[1]
	if gas.Region != "CA_S" || gas.Technology != "NaturalGas_CCAvgCF_Mid" {
		t.Fatalf("expected CA_S gas row second, got %s in %s", gas.Technology, gas.Region)
	}
	gasInv, err := annuity.InvestmentCost(1100, 0.05, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gas.InvCostMWYr != math.Trunc(gasInv*0.9) {
		t.Errorf("expected investment cost %v, got %v", math.Trunc(gasInv*0.9), gas.InvCostMWYr)
	}
	if gas.VarOMMWh != 2.5 {
		t.Errorf("expected variable O&M to keep its fraction, got %v", gas.VarOMMWh)
	}
	if gas.HeatRate != 7.5 {
		t.Errorf("expected heat rate 7.5, got %v", gas.HeatRate)
	}

	capacities := []float64{50, 30}
	for i, c := range capacities {
		rec := out[2+i]
		if rec.Region != "CA_S" || rec.Technology != "UtilityPV_Class1_Mid" {
			t.Errorf("cluster %d: expected CA_S solar cluster, got %s in %s",
				i+1, rec.Technology, rec.Region)
		}
		if rec.Cluster != i+1 || rec.MaxCapMW != c {
			t.Errorf("cluster %d: expected capacity %v, got cluster %d capacity %v",
				i+1, c, rec.Cluster, rec.MaxCapMW)
		}
		if rec.InvCostMWYr != math.Trunc(pvInv*1.2) {
			t.Errorf("cluster %d: expected investment cost %v, got %v",
				i+1, math.Trunc(pvInv*1.2), rec.InvCostMWYr)
		}
	}
}

// TestRunParallelMatchesSequential tests that worker count never
// changes the output
func TestRunParallelMatchesSequential(t *testing.T) {
	seq, err := newTestPipeline(1).Run(context.Background(), pipelineInputs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	par, err := newTestPipeline(4).Run(context.Background(), pipelineInputs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(seq, par) {
		t.Errorf("parallel output differs from sequential output")
	}
}

// TestRunIdempotent tests that repeated runs leave the inputs intact
func TestRunIdempotent(t *testing.T) {
	p := newTestPipeline(2)
	in := pipelineInputs()

	first, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second run differs from first run")
	}
}

// TestRunRegionErrorPropagates tests that a failing region fails the
// run
func TestRunRegionErrorPropagates(t *testing.T) {
	s := pipelineSettings()
	s.CostMultiplierRegionMap = s.CostMultiplierRegionMap[:1]
	p := New(s, pipelineIndex(), pipeMapper{}, pipeProvider{}, 4)

	_, err := p.Run(context.Background(), pipelineInputs())
	if err == nil {
		t.Fatal("expected error for unmapped region, got nil")
	}
	if !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

// TestRunValidatesSettings tests that invalid settings fail before any
// resolution work
func TestRunValidatesSettings(t *testing.T) {
	s := pipelineSettings()
	s.ModelYear = 0
	p := New(s, pipelineIndex(), pipeMapper{}, pipeProvider{}, 1)

	_, err := p.Run(context.Background(), pipelineInputs())
	if err == nil {
		t.Fatal("expected error for invalid settings, got nil")
	}
	if !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

// TestRunCanceledContext tests that a canceled context aborts the run
func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(2).Run(ctx, pipelineInputs())
	if err == nil {
		t.Fatal("expected error for canceled context, got nil")
	}
}

// TestResolveExistingOM tests the existing-fleet delegation
func TestResolveExistingOM(t *testing.T) {
	p := newTestPipeline(1)
	in := pipelineInputs()

	units := []types.FleetUnit{
		{PlantID: 55, Technology: "Natural Gas Fired Combined Cycle", CapacityMW: 400, HeatRate: 7.5},
		{PlantID: 55, Technology: "Natural Gas Fired Combined Cycle", CapacityMW: 350, HeatRate: 7.1},
	}
	got, err := p.ResolveExistingOM(in.Costs, in.HeatRates, units)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 750 MW lands in the middle band, adjusted from 2017 to 2019 USD.
	expectedFixed := math.Trunc(9.27 * 1000 * 1.1)
	for i := range got {
		if got[i].FixedOMMWYr != expectedFixed {
			t.Errorf("unit %d: expected fixed O&M %v, got %v", i, expectedFixed, got[i].FixedOMMWYr)
		}
		if math.Abs(got[i].VarOMMWh-3.42*1.1) > 1e-9 {
			t.Errorf("unit %d: expected variable O&M %v, got %v", i, 3.42*1.1, got[i].VarOMMWh)
		}
	}
}
