package tables

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"gencost/core/types"
)

func TestWriteResolved(t *testing.T) {
	records := []types.CostRecord{
		{
			Technology:         "NaturalGas_CCAvgCF_Mid",
			Region:             "CA_N",
			Cluster:            0,
			BasisYear:          2027,
			Capex:              1100.5,
			FixedOMMWYr:        11000,
			VarOMMWh:           2.5,
			HeatRate:           6.4,
			WACC:               0.05,
			CapRecoveryYears:   20,
			InvCostMWYr:        90000,
			CapSizeMW:          500,
			LifetimeYears:      55,
			MaxCapMW:           -1,
			RegionalMultiplier: 1.2,
		},
		{
			Technology: "UtilityPV_Class1_Mid",
			Region:     "CA_N",
			Cluster:    1,
			SiteMetrics: map[string]float64{
				"site_count": 12,
				"avg_lcoe":   42.5,
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteResolved(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("rereading output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}

	header := rows[0]
	if len(header) != len(resolvedColumns)+2 {
		t.Fatalf("unexpected header width %d: %v", len(header), header)
	}
	if header[len(header)-2] != "avg_lcoe" || header[len(header)-1] != "site_count" {
		t.Errorf("expected sorted metric columns, got %v", header)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	cell := func(row int, name string) string {
		i, ok := col[name]
		if !ok {
			t.Fatalf("missing column %s", name)
		}
		return rows[row][i]
	}

	if cell(1, types.ColTechnology) != "NaturalGas_CCAvgCF_Mid" || cell(1, types.ColCluster) != "0" {
		t.Errorf("unexpected identity cells: %v", rows[1])
	}
	if cell(1, types.ColCapex) != "1100.5" || cell(1, types.ColWACC) != "0.05" {
		t.Errorf("unexpected float formatting: %v", rows[1])
	}
	if cell(1, types.ColMaxCapMW) != "-1" || cell(1, types.ColRegionalMult) != "1.2" {
		t.Errorf("unexpected cells: %v", rows[1])
	}
	if cell(1, "avg_lcoe") != "0" || cell(1, "site_count") != "0" {
		t.Errorf("expected zero-filled metrics for records without them: %v", rows[1])
	}
	if cell(2, "avg_lcoe") != "42.5" || cell(2, "site_count") != "12" {
		t.Errorf("unexpected metric cells: %v", rows[2])
	}
}

func TestWriteResolvedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolved.csv")
	records := []types.CostRecord{{Technology: "Battery_*_Mid", Region: "CA_S"}}
	if err := WriteResolvedFile(path, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("rereading output: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "Battery_*_Mid" {
		t.Errorf("unexpected file contents: %v", rows)
	}
}

func TestWriteFleetOM(t *testing.T) {
	units := []types.FleetUnit{
		{
			PlantID:       55,
			Technology:    "Conventional Steam Coal",
			Region:        "CA_N",
			CapacityMW:    600,
			HeatRate:      10.5,
			OperatingYear: 1985,
			FixedOMMWYr:   42000,
			VarOMMWh:      4,
		},
	}

	var buf bytes.Buffer
	if err := WriteFleetOM(&buf, units); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("rereading output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and 1 row, got %d", len(rows))
	}
	if rows[0][0] != types.ColPlantID || rows[0][len(rows[0])-1] != types.ColVarOMMWh {
		t.Errorf("unexpected header: %v", rows[0])
	}
	want := []string{"55", "Conventional Steam Coal", "CA_N", "600", "10.5", "1985", "42000", "4"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("column %d: expected %q, got %q", i, cell, rows[1][i])
		}
	}
}
