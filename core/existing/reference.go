package existing

import (
	"gencost/core/types"
)

// midCostCase is the cost case used for all existing-fleet references.
const midCostCase = "Mid"

type costKey struct {
	technology string
	techDetail string
	costCase   string
	basisYear  int
}

type heatRateKey struct {
	technology string
	techDetail string
	basisYear  int
}

// ReferenceCosts indexes new-build cost and heat rate rows for
// existing-fleet lookups.
type ReferenceCosts struct {
	costs     map[costKey]types.CostTableRow
	heatRates map[heatRateKey]float64
}

// NewReferenceCosts builds the lookup index. The first row wins when a
// key repeats.
func NewReferenceCosts(costs []types.CostTableRow, heatRates []types.HeatRateRow) *ReferenceCosts {
	rc := &ReferenceCosts{
		costs:     make(map[costKey]types.CostTableRow, len(costs)),
		heatRates: make(map[heatRateKey]float64, len(heatRates)),
	}
	for _, row := range costs {
		key := costKey{row.Technology, row.TechDetail, row.CostCase, row.BasisYear}
		if _, ok := rc.costs[key]; !ok {
			rc.costs[key] = row
		}
	}
	for _, row := range heatRates {
		key := heatRateKey{row.Technology, row.TechDetail, row.BasisYear}
		if _, ok := rc.heatRates[key]; !ok {
			rc.heatRates[key] = row.HeatRate
		}
	}
	return rc
}

// HeatRate returns the new-build heat rate for a technology at a year.
func (rc *ReferenceCosts) HeatRate(technology, techDetail string, year int) (float64, bool) {
	hr, ok := rc.heatRates[heatRateKey{technology, techDetail, year}]
	return hr, ok
}

// MidCase returns the Mid cost-case row for a technology at a year.
func (rc *ReferenceCosts) MidCase(technology, techDetail string, year int) (types.CostTableRow, bool) {
	row, ok := rc.costs[costKey{technology, techDetail, midCostCase, year}]
	return row, ok
}
