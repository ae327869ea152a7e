package tables

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"

	"gencost/core/types"
	"gencost/internal/errors"
)

// resolvedColumns is the fixed output header of the resolved table;
// site metric columns follow, sorted by name.
var resolvedColumns = []string{
	types.ColTechnology,
	types.ColRegion,
	types.ColCluster,
	types.ColBasisYear,
	types.ColCapex,
	types.ColCapexMWh,
	types.ColFixedOMMWYr,
	types.ColFixedOMMWhYr,
	types.ColVarOMMWh,
	types.ColHeatRate,
	types.ColWACC,
	types.ColCapRecovery,
	types.ColInvCostMWYr,
	types.ColInvCostMWhYr,
	types.ColCapSize,
	types.ColLifetime,
	types.ColMaxCapMW,
	types.ColRegionalMult,
}

// WriteResolved writes the resolved cost table. Site metric columns
// are the union across records so the header is stable run to run;
// records without a metric emit zero.
func WriteResolved(w io.Writer, records []types.CostRecord) error {
	metrics := metricColumns(records)

	out := csv.NewWriter(w)
	if err := out.Write(append(append([]string{}, resolvedColumns...), metrics...)); err != nil {
		return errors.Internal("writing resolved table", err)
	}

	for i := range records {
		r := &records[i]
		row := []string{
			r.Technology,
			r.Region,
			strconv.Itoa(r.Cluster),
			strconv.Itoa(r.BasisYear),
			formatFloat(r.Capex),
			formatFloat(r.CapexMWh),
			formatFloat(r.FixedOMMWYr),
			formatFloat(r.FixedOMMWhYr),
			formatFloat(r.VarOMMWh),
			formatFloat(r.HeatRate),
			formatFloat(r.WACC),
			strconv.Itoa(r.CapRecoveryYears),
			formatFloat(r.InvCostMWYr),
			formatFloat(r.InvCostMWhYr),
			formatFloat(r.CapSizeMW),
			strconv.Itoa(r.LifetimeYears),
			formatFloat(r.MaxCapMW),
			formatFloat(r.RegionalMultiplier),
		}
		for _, m := range metrics {
			row = append(row, formatFloat(r.SiteMetrics[m]))
		}
		if err := out.Write(row); err != nil {
			return errors.Internal("writing resolved table", err)
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return errors.Internal("writing resolved table", err)
	}
	return nil
}

// WriteResolvedFile writes the resolved cost table to a CSV file.
func WriteResolvedFile(path string, records []types.CostRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.TypeInput, err, "creating %s", path)
	}
	defer f.Close()
	return WriteResolved(f, records)
}

// fleetColumns is the output header of the fleet O&M table.
var fleetColumns = []string{
	types.ColPlantID,
	types.ColTechnology,
	types.ColRegion,
	types.ColCapacityMW,
	types.ColFleetHeatRate,
	types.ColOperatingYear,
	types.ColFixedOMMWYr,
	types.ColVarOMMWh,
}

// WriteFleetOM writes fleet units with their resolved O&M columns.
func WriteFleetOM(w io.Writer, units []types.FleetUnit) error {
	out := csv.NewWriter(w)
	if err := out.Write(fleetColumns); err != nil {
		return errors.Internal("writing fleet table", err)
	}

	for i := range units {
		u := &units[i]
		row := []string{
			strconv.Itoa(u.PlantID),
			u.Technology,
			u.Region,
			formatFloat(u.CapacityMW),
			formatFloat(u.HeatRate),
			strconv.Itoa(u.OperatingYear),
			formatFloat(u.FixedOMMWYr),
			formatFloat(u.VarOMMWh),
		}
		if err := out.Write(row); err != nil {
			return errors.Internal("writing fleet table", err)
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return errors.Internal("writing fleet table", err)
	}
	return nil
}

// WriteFleetOMFile writes the fleet O&M table to a CSV file.
func WriteFleetOMFile(path string, units []types.FleetUnit) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.TypeInput, err, "creating %s", path)
	}
	defer f.Close()
	return WriteFleetOM(f, units)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func metricColumns(records []types.CostRecord) []string {
	seen := make(map[string]struct{})
	for i := range records {
		for k := range records[i].SiteMetrics {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
