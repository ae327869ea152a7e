// Package cluster expands renewable technology rows into per-site
// resource clusters. A matched row is replaced by one row per cluster,
// each carrying the cluster's capacity as its build limit while
// inheriting every cost field from the original row.
package cluster

import (
	"strings"

	"go.uber.org/zap"

	"gencost/core/settings"
	"gencost/core/types"
	"gencost/internal/errors"
	"gencost/internal/logging"
)

// Descriptor identifies a technology in the renewable resource data.
// Attrs carries qualifiers like turbine type or siting preference.
type Descriptor struct {
	Technology string
	Attrs      map[string]string
}

// TechnologyMapper translates a cost-table technology and detail pair
// into its resource descriptor. Pairs without renewable resource data
// return false and are never expanded.
type TechnologyMapper interface {
	MapTechnology(technology, techDetail string) (Descriptor, bool)
}

// ClusterRequest asks a provider for the clusters of one technology
// across a set of IPM regions.
type ClusterRequest struct {
	// Technology is the descriptor-space technology name.
	Technology string

	// Filters constrain the candidate sites, in scenario order.
	Filters []settings.Filter

	// MaxClusters caps the number of returned clusters; zero leaves
	// the count to the provider.
	MaxClusters int

	// IPMRegions are the resource regions to draw sites from.
	IPMRegions []string

	// Existing selects existing units instead of candidate sites.
	Existing bool
}

// ClusterRow is one resource cluster.
type ClusterRow struct {
	// CapacityMW is the cluster's developable capacity.
	CapacityMW float64

	// Extra carries provider-specific per-cluster values, copied onto
	// the expanded record's site metrics.
	Extra map[string]float64
}

// Provider returns resource clusters. Implementations order clusters
// by descending capacity so cluster numbering is stable.
type Provider interface {
	Clusters(req ClusterRequest) ([]ClusterRow, error)
}

// Expander replaces renewable rows with per-cluster rows.
type Expander struct {
	settings *settings.Settings
	mapper   TechnologyMapper
	provider Provider
}

// NewExpander creates a cluster expander.
func NewExpander(s *settings.Settings, mapper TechnologyMapper, provider Provider) *Expander {
	return &Expander{settings: s, mapper: mapper, provider: provider}
}

// Expand applies every cluster scenario configured for the region.
// Rows matched by a scenario are replaced with one row per cluster;
// all other rows pass through in their original order, with cluster
// rows appended in scenario order.
func (e *Expander) Expand(records []types.CostRecord, region string) ([]types.CostRecord, error) {
	if dup := types.DuplicateKey(records); dup != "" {
		return nil, errors.DataIntegrityf("technology keys are not unique: %s", dup)
	}

	descriptors := make(map[string]Descriptor, len(records))
	for i := range records {
		if desc, ok := e.mapper.MapTechnology(records[i].BaseTechnology, records[i].TechDetail); ok {
			descriptors[records[i].Technology] = desc
		}
	}

	replaced := make(map[string]bool)
	var expanded []types.CostRecord
	for _, scenario := range e.settings.ClusterScenarios {
		if scenario.Region != region {
			continue
		}

		template, err := matchScenario(records, descriptors, scenario)
		if err != nil {
			return nil, err
		}
		replaced[template.Technology] = true

		rows, err := e.provider.Clusters(ClusterRequest{
			Technology:  scenario.Technology,
			Filters:     scenario.Filters,
			MaxClusters: scenario.MaxClusters,
			IPMRegions:  e.settings.IPMRegions(region),
			Existing:    false,
		})
		if err != nil {
			return nil, err
		}

		if scenario.MinCapacityMW > 0 {
			var capacity float64
			for _, row := range rows {
				capacity += row.CapacityMW
			}
			if capacity < scenario.MinCapacityMW {
				logging.Warn("selected technology capacity less than minimum",
					zap.String("region", region),
					zap.String("technology", scenario.Technology),
					zap.Float64("capacity_mw", capacity),
					zap.Float64("min_capacity_mw", scenario.MinCapacityMW))
			}
		}

		expanded = append(expanded, expandRows(template, rows, scenario)...)
	}

	out := make([]types.CostRecord, 0, len(records)+len(expanded))
	for i := range records {
		if !replaced[records[i].Technology] {
			out = append(out, records[i])
		}
	}
	return append(out, expanded...), nil
}

// matchScenario finds the single record a scenario expands. Scenario
// filters whose key the descriptor carries must equal the descriptor's
// value; filters on keys the descriptor does not know are site
// constraints for the provider and do not affect matching.
func matchScenario(records []types.CostRecord, descriptors map[string]Descriptor, scenario settings.ClusterScenario) (*types.CostRecord, error) {
	var match *types.CostRecord
	for i := range records {
		desc, ok := descriptors[records[i].Technology]
		if !ok || desc.Technology != scenario.Technology {
			continue
		}
		satisfied := true
		for _, f := range scenario.Filters {
			if v, ok := desc.Attrs[f.Key]; ok && v != f.Value {
				satisfied = false
				break
			}
		}
		if !satisfied {
			continue
		}
		if match != nil {
			return nil, errors.DataIntegrityf(
				"renewables cluster scenario matches multiple technologies in %s: %s and %s",
				scenario.Region, match.Technology, records[i].Technology)
		}
		match = &records[i]
	}
	if match == nil {
		return nil, errors.DataIntegrityf(
			"renewables cluster scenario for %s in %s matches no technologies",
			scenario.Technology, scenario.Region)
	}
	return match, nil
}

// expandRows clones the template once per cluster. Filter values
// compose the cluster name suffix in scenario order.
func expandRows(template *types.CostRecord, rows []ClusterRow, scenario settings.ClusterScenario) []types.CostRecord {
	values := make([]string, len(scenario.Filters))
	for i, f := range scenario.Filters {
		values[i] = f.Value
	}
	suffix := strings.Join(values, "_")

	out := make([]types.CostRecord, len(rows))
	for i, row := range rows {
		rec := template.Clone()
		rec.Cluster = i + 1
		rec.MaxCapMW = row.CapacityMW
		if suffix != "" {
			rec.Technology = template.Technology + "_" + suffix
		}
		if len(row.Extra) > 0 {
			rec.SiteMetrics = make(map[string]float64, len(row.Extra))
			for k, v := range row.Extra {
				rec.SiteMetrics[k] = v
			}
		}
		out[i] = rec
	}
	return out
}
