package tables

import (
	"math"

	"gencost/core/types"
	"gencost/internal/errors"
)

// ReadUserTechs loads user-defined technologies for one planning year.
// Optional columns default per row: absent tech_detail and cost_case
// read as "", an absent Cap_size column reads as 1 (an empty cell in a
// present column still reads as 0). Monetary and rate cells fill
// missing values with zero; basis year is left unset because user rows
// are not window averages.
func ReadUserTechs(path string, planningYear int) ([]types.AveragedRow, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if !table.has("planning_year") {
		return nil, errors.Configf("%s must carry a planning_year column", path)
	}

	numeric := []struct {
		col string
		set func(*types.AveragedRow, float64)
	}{
		{types.ColCapex, func(r *types.AveragedRow, v float64) { r.Capex = v }},
		{types.ColCapexMWh, func(r *types.AveragedRow, v float64) { r.CapexMWh = v }},
		{types.ColSrcFixedOMMW, func(r *types.AveragedRow, v float64) { r.FixedOMMW = v }},
		{types.ColSrcFixedOMMWh, func(r *types.AveragedRow, v float64) { r.FixedOMMWh = v }},
		{types.ColSrcVarOMMWh, func(r *types.AveragedRow, v float64) { r.VarOMMWh = v }},
		{types.ColWACC, func(r *types.AveragedRow, v float64) { r.WACC = v }},
		{types.ColHeatRateSource, func(r *types.AveragedRow, v float64) { r.HeatRate = v }},
		{types.ColDollarYear, func(r *types.AveragedRow, v float64) { r.DollarYear = v }},
	}

	rows := make([]types.AveragedRow, 0, len(table.rows))
	for i := range table.rows {
		year, err := table.whole(i, "planning_year")
		if err != nil {
			return nil, err
		}
		if year != planningYear {
			continue
		}

		row := types.AveragedRow{
			Technology: table.text(i, types.ColTechnology),
			TechDetail: table.text(i, types.ColTechDetail),
			CostCase:   table.text(i, types.ColCostCase),
			BasisYear:  math.NaN(),
			CapSizeMW:  1,
		}
		for _, nc := range numeric {
			v, err := table.number(i, nc.col)
			if err != nil {
				return nil, err
			}
			nc.set(&row, v)
		}
		if table.has(types.ColCapSize) {
			if row.CapSizeMW, err = table.number(i, types.ColCapSize); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
