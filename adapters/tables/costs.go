package tables

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gencost/core/inflation"
	"gencost/core/settings"
	"gencost/core/types"
	"gencost/internal/errors"
	"gencost/internal/logging"
)

// spurKey matches offshore spur rows to cost rows.
type spurKey struct {
	technology string
	techDetail string
	costCase   string
	basisYear  int
}

const offshoreTechnology = "OffShoreWind"

// usdColumns are the monetary columns normalized to the target USD year
// at load time.
var usdColumns = []string{
	types.ColSrcFixedOMMW,
	types.ColSrcFixedOMMWh,
	types.ColSrcVarOMMWh,
	types.ColCapex,
	types.ColCapexMWh,
}

// ReadCosts loads the raw technology cost table, keeping only rows
// published under the scenario's financial case and capital recovery
// key. Monetary columns are normalized to the target USD year, PV O&M
// is inflated from DC to AC terms, and offshore wind capex is netted
// of spur-line costs when a spur table is supplied.
func ReadCosts(path string, s *settings.Settings, index *inflation.PriceIndex, spur []types.SpurCostRow) ([]types.CostTableRow, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}
	logging.Info("loading technology cost table",
		zap.String("path", path),
		zap.Int("rows", len(table.rows)))

	ratio, err := index.Ratio(s.ATBUSDYear, s.TargetUSDYear)
	if err != nil {
		return nil, err
	}

	spurCapex := make(map[spurKey]float64, len(spur))
	for _, row := range spur {
		spurCapex[spurKey{row.Technology, row.TechDetail, row.CostCase, row.BasisYear}] = row.Capex
	}

	recovery := strconv.Itoa(s.ATBCapRecoveryYears)
	rows := make([]types.CostTableRow, 0, len(table.rows))
	for i := range table.rows {
		if table.text(i, types.ColCapRecovery) != recovery {
			continue
		}
		if table.text(i, types.ColFinancialCase) != s.ATBFinancialCase {
			continue
		}

		row := types.CostTableRow{
			Technology:       table.text(i, types.ColTechnology),
			TechDetail:       table.text(i, types.ColTechDetail),
			CostCase:         table.text(i, types.ColCostCase),
			FinancialCase:    s.ATBFinancialCase,
			CapRecoveryYears: recovery,
		}
		if row.BasisYear, err = table.whole(i, types.ColBasisYear); err != nil {
			return nil, err
		}

		values := make([]float64, len(usdColumns))
		for j, col := range usdColumns {
			v, err := table.number(i, col)
			if err != nil {
				return nil, err
			}
			values[j] = v * ratio
		}
		row.FixedOMMW, row.FixedOMMWh, row.VarOMMWh = values[0], values[1], values[2]
		row.Capex, row.CapexMWh = values[3], values[4]

		if row.WACC, err = table.number(i, types.ColWACC); err != nil {
			return nil, err
		}

		if strings.Contains(row.Technology, "PV") {
			row.FixedOMMW *= s.PVACDCRatio
			row.VarOMMWh *= s.PVACDCRatio
		}

		if len(spurCapex) > 0 && row.Technology == offshoreTechnology {
			key := spurKey{row.Technology, row.TechDetail, row.CostCase, row.BasisYear}
			capex, ok := spurCapex[key]
			if !ok {
				return nil, errors.DataIntegrityf("no offshore spur cost for %s/%s/%s/%d",
					key.technology, key.techDetail, key.costCase, key.basisYear)
			}
			row.Capex -= capex
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.Configf("%s has no rows for financial case %q and recovery years %s",
			path, s.ATBFinancialCase, recovery)
	}
	return rows, nil
}

// spurDistanceKM is the spur-line distance the source table assumes;
// per-mile costs divide it out.
const spurDistanceKM = 30.0

// ReadSpurCosts loads the offshore spur-line cost table, normalized to
// the target USD year, with a derived per-MW-mile cost column.
func ReadSpurCosts(path string, s *settings.Settings, index *inflation.PriceIndex) ([]types.SpurCostRow, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}

	ratio, err := index.Ratio(s.ATBUSDYear, s.TargetUSDYear)
	if err != nil {
		return nil, err
	}

	rows := make([]types.SpurCostRow, 0, len(table.rows))
	for i := range table.rows {
		row := types.SpurCostRow{
			Technology: table.text(i, types.ColTechnology),
			TechDetail: table.text(i, types.ColTechDetail),
			CostCase:   table.text(i, types.ColCostCase),
		}
		if row.BasisYear, err = table.whole(i, types.ColBasisYear); err != nil {
			return nil, err
		}
		capex, err := table.number(i, types.ColCapex)
		if err != nil {
			return nil, err
		}
		row.Capex = capex * ratio
		row.CapexMWMile = row.Capex / spurDistanceKM * 1.60934
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadHeatRates loads the new-build heat rate table.
func ReadHeatRates(path string) ([]types.HeatRateRow, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}

	rows := make([]types.HeatRateRow, 0, len(table.rows))
	for i := range table.rows {
		row := types.HeatRateRow{
			Technology: table.text(i, types.ColTechnology),
			TechDetail: table.text(i, types.ColTechDetail),
		}
		var err error
		if row.BasisYear, err = table.whole(i, types.ColBasisYear); err != nil {
			return nil, err
		}
		if row.HeatRate, err = table.float(i, types.ColHeatRateSource); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
