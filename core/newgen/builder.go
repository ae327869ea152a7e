// Package newgen assembles the cost table of new-build generating
// technologies shared by every model region. Each requested technology
// is averaged over the planning window, user-supplied and derived
// variants are appended, configured patches are applied, and both
// overnight capital columns are annuitized into yearly investment
// costs.
package newgen

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"gencost/core/annuity"
	"gencost/core/inflation"
	"gencost/core/override"
	"gencost/core/settings"
	"gencost/core/types"
	"gencost/internal/errors"
	"gencost/internal/logging"
)

const (
	// batteryTechnology is the row name the battery financing override
	// matches exactly.
	batteryTechnology = "Battery"

	// peakerLabel is skipped when inverting the technology map for
	// retirement ages: it has no retirement age of its own.
	peakerLabel = "Peaker"

	// batteriesLabel is the fleet-side name batteries retire under.
	batteriesLabel = "Batteries"
)

// Builder assembles the new-build technology cost table.
type Builder struct {
	settings *settings.Settings
	index    *inflation.PriceIndex
}

// NewBuilder creates a table builder for one resolution run.
func NewBuilder(s *settings.Settings, index *inflation.PriceIndex) *Builder {
	return &Builder{settings: s, index: index}
}

// BuildTable resolves the configured technologies into one cost record
// each. Rows keep settings order: requested technologies first, then
// user-supplied technologies, then derived variants. The returned
// records carry composed technology keys, recovery horizons and
// annuitized investment costs, ready for per-region processing.
func (b *Builder) BuildTable(costs []types.CostTableRow, heatRates []types.HeatRateRow, userTechs []types.AveragedRow) ([]types.CostRecord, error) {
	logging.Info("creating new-build resources",
		zap.Int("technologies", len(b.settings.NewGenSpecs)),
		zap.Int("user_technologies", len(userTechs)),
		zap.Int("modified_technologies", len(b.settings.ModifiedTechs)))

	source := joinHeatRates(costs, heatRates)

	rows := make([]types.AveragedRow, 0,
		len(b.settings.NewGenSpecs)+len(userTechs)+len(b.settings.ModifiedTechs))
	for _, spec := range b.settings.NewGenSpecs {
		rows = append(rows, b.averageWindow(source, spec.Technology, spec.TechDetail, spec.CostCase, spec.SizeMW))
	}

	// Battery financing is patched before variants join the table, so
	// user rows and derived rows keep their own rates.
	if err := b.applyBatteryWACC(rows); err != nil {
		return nil, err
	}

	normalized, err := b.normalizeUserTechs(userTechs)
	if err != nil {
		return nil, err
	}
	rows = append(rows, normalized...)

	derived, err := b.deriveModifiedTechs(source)
	if err != nil {
		return nil, err
	}
	rows = append(rows, derived...)

	records := make([]types.CostRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].Record()
	}

	if err := b.applyGlobalModifiers(records); err != nil {
		return nil, err
	}

	if b.settings.UseLifetime {
		if err := b.assignLifetimes(records); err != nil {
			return nil, err
		}
	}

	for i := range records {
		records[i].ComposeKey()
		records[i].MaxCapMW = -1
	}

	b.assignCapRecovery(records)

	if err := b.annuitize(records); err != nil {
		return nil, err
	}
	return records, nil
}

// hrKey identifies one heat rate projection.
type hrKey struct {
	technology string
	techDetail string
	basisYear  int
}

// sourceRow is a cost table row joined to its heat rate projection.
type sourceRow struct {
	types.CostTableRow
	HeatRate float64
}

// joinHeatRates left-joins heat rate projections onto cost rows by
// technology, detail and basis year. Rows without a projection carry
// NaN so they drop out of window averages.
func joinHeatRates(costs []types.CostTableRow, heatRates []types.HeatRateRow) []sourceRow {
	rates := make(map[hrKey]float64, len(heatRates))
	for _, hr := range heatRates {
		k := hrKey{hr.Technology, hr.TechDetail, hr.BasisYear}
		if _, ok := rates[k]; !ok {
			rates[k] = hr.HeatRate
		}
	}

	out := make([]sourceRow, len(costs))
	for i, c := range costs {
		rate, ok := rates[hrKey{c.Technology, c.TechDetail, c.BasisYear}]
		if !ok {
			rate = math.NaN()
		}
		out[i] = sourceRow{CostTableRow: c, HeatRate: rate}
	}
	return out
}

// meanAcc accumulates a NaN-skipping mean. An accumulator that never
// saw a value yields NaN.
type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v float64) {
	if !math.IsNaN(v) {
		m.sum += v
		m.n++
	}
}

func (m *meanAcc) mean() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.sum / float64(m.n)
}

// averageWindow resolves one technology to the mean of its source rows
// inside the planning window. When no rows fall in the window every
// numeric field stays NaN and annuitization later rejects the row.
func (b *Builder) averageWindow(source []sourceRow, technology, techDetail, costCase string, sizeMW float64) types.AveragedRow {
	first, last := b.settings.Window()

	var basisYear, fixedMW, fixedMWh, varMWh, capex, capexMWh, wacc, heatRate meanAcc
	for _, row := range source {
		if row.Technology != technology || row.TechDetail != techDetail || row.CostCase != costCase {
			continue
		}
		if row.BasisYear < first || row.BasisYear > last {
			continue
		}
		basisYear.add(float64(row.BasisYear))
		fixedMW.add(row.FixedOMMW)
		fixedMWh.add(row.FixedOMMWh)
		varMWh.add(row.VarOMMWh)
		capex.add(row.Capex)
		capexMWh.add(row.CapexMWh)
		wacc.add(row.WACC)
		heatRate.add(row.HeatRate)
	}

	return types.AveragedRow{
		Technology: technology,
		TechDetail: techDetail,
		CostCase:   costCase,
		BasisYear:  basisYear.mean(),
		FixedOMMW:  fixedMW.mean(),
		FixedOMMWh: fixedMWh.mean(),
		VarOMMWh:   varMWh.mean(),
		Capex:      capex.mean(),
		CapexMWh:   capexMWh.mean(),
		WACC:       wacc.mean(),
		HeatRate:   heatRate.mean(),
		CapSizeMW:  sizeMW,
	}
}

// applyBatteryWACC overrides the financing rate of rows named exactly
// "Battery", either with a literal rate or by inheriting the rate of
// the first requested technology whose name contains the configured
// string.
func (b *Builder) applyBatteryWACC(rows []types.AveragedRow) error {
	bw := b.settings.BatteryWACC
	if !bw.Set() {
		return nil
	}

	wacc := bw.Value
	if bw.Inherit != "" {
		found := false
		for _, row := range rows {
			if strings.Contains(row.Technology, bw.Inherit) {
				wacc = row.WACC
				found = true
				break
			}
		}
		if !found {
			return errors.Configf(
				"atb_battery_wacc inherits from %q but no requested technology matches", bw.Inherit)
		}
	}

	for i := range rows {
		if rows[i].Technology == batteryTechnology {
			rows[i].WACC = wacc
		}
	}
	return nil
}

// normalizeUserTechs filters user-supplied rows to the requested names
// and converts rows carrying their own currency year to the target
// year.
func (b *Builder) normalizeUserTechs(userTechs []types.AveragedRow) ([]types.AveragedRow, error) {
	if len(userTechs) == 0 {
		return nil, nil
	}

	requested := make(map[string]bool, len(b.settings.AdditionalNewGen))
	for _, name := range b.settings.AdditionalNewGen {
		requested[name] = true
	}

	usdFields := []string{
		types.ColSrcFixedOMMW,
		types.ColSrcFixedOMMWh,
		types.ColSrcVarOMMWh,
		types.ColCapex,
		types.ColCapexMWh,
	}

	out := make([]types.AveragedRow, 0, len(userTechs))
	for _, row := range userTechs {
		if !requested[row.Technology] {
			continue
		}
		dollarYear := int(row.DollarYear)
		if dollarYear > 0 && dollarYear != b.settings.TargetUSDYear {
			for _, name := range usdFields {
				field, _ := row.Field(name)
				adjusted, err := b.index.Adjust(*field, dollarYear, b.settings.TargetUSDYear)
				if err != nil {
					return nil, errors.Wrapf(errors.TypeConfig, err,
						"adjusting user technology %s from %d USD", row.Technology, dollarYear)
				}
				*field = adjusted
			}
			row.DollarYear = float64(b.settings.TargetUSDYear)
		}
		out = append(out, row)
	}
	return out, nil
}

// deriveModifiedTechs builds each configured variant from its averaged
// template row, renames it, and applies the author's patches. Patches
// address source column names since they run before the rename to the
// public schema.
func (b *Builder) deriveModifiedTechs(source []sourceRow) ([]types.AveragedRow, error) {
	out := make([]types.AveragedRow, 0, len(b.settings.ModifiedTechs))
	for _, mod := range b.settings.ModifiedTechs {
		row := b.averageWindow(source, mod.ATBTechnology, mod.ATBTechDetail, mod.ATBCostCase, mod.SizeMW)
		row.Technology = mod.NewTechnology
		row.TechDetail = mod.NewTechDetail
		row.CostCase = mod.NewCostCase

		if err := override.ApplySpecs(&row, mod.Specs); err != nil {
			return nil, errors.Wrapf(errors.TypeConfig, err,
				"modified_atb_new_gen %q", mod.Name)
		}
		out = append(out, row)
	}
	return out, nil
}

// applyGlobalModifiers patches every record matching a configured
// technology and detail pair. Patches address public column names. A
// modifier matching nothing is reported but not fatal.
func (b *Builder) applyGlobalModifiers(records []types.CostRecord) error {
	for _, gm := range b.settings.GlobalModifiers {
		matched := 0
		for i := range records {
			if records[i].BaseTechnology != gm.Technology || records[i].TechDetail != gm.TechDetail {
				continue
			}
			if err := override.ApplySpecs(&records[i], gm.Specs); err != nil {
				return errors.Wrapf(errors.TypeConfig, err, "atb_modifiers %q", gm.Name)
			}
			matched++
		}
		if matched == 0 {
			logging.Warn("table-wide modifier matched no technologies",
				zap.String("modifier", gm.Name),
				zap.String("technology", gm.Technology),
				zap.String("tech_detail", gm.TechDetail))
		}
	}
	return nil
}

// assignLifetimes maps each record back to its fleet technology and
// copies the configured retirement age. The technology map is inverted
// by base technology name, with later entries winning, so new-build
// rows retire on the same schedule as the existing fleet. Fleet
// technologies without a configured age keep a zero lifetime.
func (b *Builder) assignLifetimes(records []types.CostRecord) error {
	fleet := make(map[string]string, len(b.settings.TechMap))
	for _, entry := range b.settings.TechMap {
		eia := entry.EIA
		if eia == peakerLabel {
			continue
		}
		if eia == batteryTechnology {
			eia = batteriesLabel
		}
		base, _, _ := strings.Cut(entry.ATBTechnology, "_")
		fleet[base] = eia
	}

	ages := make(map[string]int, len(b.settings.RetirementAges))
	for _, r := range b.settings.RetirementAges {
		ages[r.Technology] = r.Years
	}

	for i := range records {
		base, _, _ := strings.Cut(records[i].BaseTechnology, "_")
		eia, ok := fleet[base]
		if !ok {
			return errors.Configf(
				"technology %s has no fleet mapping in eia_atb_tech_map for retirement ages", records[i].BaseTechnology)
		}
		if years, ok := ages[eia]; ok {
			records[i].LifetimeYears = years
		}
	}
	return nil
}

// assignCapRecovery sets the default recovery horizon, then applies the
// configured substring overrides in author order so later entries win
// on overlap. Matching is case-insensitive against the composed key.
func (b *Builder) assignCapRecovery(records []types.CostRecord) {
	for i := range records {
		records[i].CapRecoveryYears = b.settings.ATBCapRecoveryYears
	}
	for _, alt := range b.settings.AltCapRecoveryYears {
		match := strings.ToLower(alt.Match)
		for i := range records {
			if strings.Contains(strings.ToLower(records[i].Technology), match) {
				records[i].CapRecoveryYears = alt.Years
			}
		}
	}
}

// annuitize converts both overnight capital columns into yearly
// investment costs over each record's recovery horizon.
func (b *Builder) annuitize(records []types.CostRecord) error {
	for i := range records {
		years := float64(records[i].CapRecoveryYears)

		invMW, err := annuity.InvestmentCost(records[i].Capex, records[i].WACC, years)
		if err != nil {
			return errors.Wrapf(errors.TypeNumeric, err,
				"annuitizing capex for %s", records[i].Technology)
		}
		invMWh, err := annuity.InvestmentCost(records[i].CapexMWh, records[i].WACC, years)
		if err != nil {
			return errors.Wrapf(errors.TypeNumeric, err,
				"annuitizing energy capex for %s", records[i].Technology)
		}

		records[i].InvCostMWYr = invMW
		records[i].InvCostMWhYr = invMWh
	}
	return nil
}
