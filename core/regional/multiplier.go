// Package regional scales annuitized investment costs by regional
// construction cost multipliers. Multipliers are published per cost
// region and fleet technology, so model regions and new-build
// technology keys are both mapped before any scaling happens.
package regional

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"gencost/core/settings"
	"gencost/core/types"
	"gencost/internal/errors"
	"gencost/internal/logging"
)

// MultiplierTable holds cost multipliers keyed by cost region row and
// fleet technology column.
type MultiplierTable struct {
	technologies []string
	columns      map[string]int
	rows         map[string][]float64
}

// NewMultiplierTable creates an empty table with the given technology
// column order.
func NewMultiplierTable(technologies []string) *MultiplierTable {
	columns := make(map[string]int, len(technologies))
	for i, name := range technologies {
		columns[name] = i
	}
	return &MultiplierTable{
		technologies: technologies,
		columns:      columns,
		rows:         make(map[string][]float64),
	}
}

// AddRow stores one cost region's multipliers, aligned to the table's
// technology columns. Re-adding a cost region replaces the previous
// row, which lets user-supplied corrections override bundled data.
func (t *MultiplierTable) AddRow(costRegion string, values []float64) error {
	if len(values) != len(t.technologies) {
		return errors.DataIntegrityf(
			"multiplier row %s has %d values for %d technology columns",
			costRegion, len(values), len(t.technologies))
	}
	row := make([]float64, len(values))
	copy(row, values)
	t.rows[costRegion] = row
	return nil
}

// Technologies returns the column order.
func (t *MultiplierTable) Technologies() []string {
	return t.technologies
}

// Row returns one cost region's multipliers.
func (t *MultiplierTable) Row(costRegion string) ([]float64, bool) {
	row, ok := t.rows[costRegion]
	return row, ok
}

// Applier scales investment costs for one region at a time.
type Applier struct {
	settings     *settings.Settings
	table        *MultiplierTable
	regionToCost map[string]string
}

// NewApplier creates a multiplier applier.
func NewApplier(s *settings.Settings, table *MultiplierTable) *Applier {
	return &Applier{
		settings:     s,
		table:        table,
		regionToCost: s.RegionToCostRegion(),
	}
}

// Apply scales both investment cost columns of every mapped record in
// place and stores the applied multiplier for auditing. Records whose
// technology maps to no multiplier keep NaN in the audit column and
// NaN investment costs, which zero out when the table is finalized.
func (a *Applier) Apply(records []types.CostRecord, region string) error {
	if dup := types.DuplicateKey(records); dup != "" {
		return errors.DataIntegrityf("technology keys are not unique: %s", dup)
	}

	costRegion, ok := a.regionToCost[region]
	if !ok {
		return errors.Configf(
			"model region %s has no cost region in cost_multiplier_region_map", region)
	}
	values, ok := a.table.Row(costRegion)
	if !ok {
		return errors.Configf(
			"cost region %s is missing from the regional multiplier table", costRegion)
	}

	filled := a.fillRow(values, costRegion)

	techMult, err := a.mapTechnologies(records, filled)
	if err != nil {
		return err
	}

	for i := range records {
		mult, ok := techMult[records[i].Technology]
		if !ok {
			mult = math.NaN()
		}
		records[i].InvCostMWYr *= mult
		records[i].InvCostMWhYr *= mult
		records[i].RegionalMultiplier = mult
	}
	return nil
}

// fillRow replaces missing multipliers with the row mean so a sparse
// cost region still scales every technology.
func (a *Applier) fillRow(values []float64, costRegion string) []float64 {
	var sum float64
	var n int
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	mean := math.NaN()
	if n > 0 {
		mean = sum / float64(n)
	}

	filled := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			logging.Warn("missing regional multiplier, using row mean",
				zap.String("cost_region", costRegion),
				zap.String("technology", a.table.technologies[i]),
				zap.Float64("mean", mean))
			filled[i] = mean
			continue
		}
		filled[i] = v
	}
	return filled
}

// mapTechnologies resolves the configured technology grouping against
// the table rows. For each reference technology name, the first record
// whose composed key contains it claims that fleet technology's
// multiplier. Later grouping entries win when two names match the same
// record.
func (a *Applier) mapTechnologies(records []types.CostRecord, filled []float64) (map[string]float64, error) {
	techMult := make(map[string]float64)
	for _, entry := range a.settings.CostMultiplierTechMap {
		for _, atbTech := range entry.ATBTechs {
			matched := ""
			for i := range records {
				if strings.Contains(records[i].Technology, atbTech) {
					matched = records[i].Technology
					break
				}
			}
			if matched == "" {
				continue
			}
			col, ok := a.table.columns[entry.EIA]
			if !ok {
				return nil, errors.Configf(
					"technology %s is not a column of the regional multiplier table", entry.EIA)
			}
			techMult[matched] = filled[col]
		}
	}
	return techMult, nil
}
