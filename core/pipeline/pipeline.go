// Package pipeline orchestrates a full cost resolution run. The shared
// new-build table is built once, every model region then applies its
// regional multipliers, cluster expansions and exclusions on a private
// copy, and the per-region tables are concatenated in settings order
// and finalized.
package pipeline

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gencost/core/cluster"
	"gencost/core/existing"
	"gencost/core/inflation"
	"gencost/core/newgen"
	"gencost/core/regional"
	"gencost/core/settings"
	"gencost/core/types"
	"gencost/internal/logging"
)

// Inputs bundles the loaded source tables for one run.
type Inputs struct {
	// Costs is the filtered, target-USD cost table.
	Costs []types.CostTableRow

	// HeatRates are the heat rate projections.
	HeatRates []types.HeatRateRow

	// UserTechs are user-supplied technology rows, already filtered to
	// the model year.
	UserTechs []types.AveragedRow

	// Multipliers is the regional cost multiplier table.
	Multipliers *regional.MultiplierTable
}

// Pipeline resolves new-build and existing-fleet costs for a scenario.
type Pipeline struct {
	settings *settings.Settings
	index    *inflation.PriceIndex
	mapper   cluster.TechnologyMapper
	provider cluster.Provider
	workers  int
}

// New creates a pipeline. workers caps per-region parallelism; zero or
// one resolves regions sequentially.
func New(s *settings.Settings, index *inflation.PriceIndex, mapper cluster.TechnologyMapper, provider cluster.Provider, workers int) *Pipeline {
	return &Pipeline{
		settings: s,
		index:    index,
		mapper:   mapper,
		provider: provider,
		workers:  workers,
	}
}

// Run builds the new-build cost table for every model region. Output
// rows are grouped by region in settings order regardless of which
// region finishes first, so repeated runs produce identical tables.
func (p *Pipeline) Run(ctx context.Context, in Inputs) ([]types.CostRecord, error) {
	runID := uuid.NewString()
	start := time.Now()
	logging.Info("starting cost resolution run",
		zap.String("run_id", runID),
		zap.Int("model_year", p.settings.ModelYear),
		zap.Int("regions", len(p.settings.ModelRegions)),
		zap.Int("workers", p.workers))

	if err := p.settings.Validate(); err != nil {
		return nil, err
	}
	if len(in.UserTechs) > 0 && len(p.settings.AdditionalNewGen) == 0 {
		logging.Warn("user technologies were supplied but additional_new_gen requests none")
	}

	builder := newgen.NewBuilder(p.settings, p.index)
	base, err := builder.BuildTable(in.Costs, in.HeatRates, in.UserTechs)
	if err != nil {
		return nil, err
	}

	applier := regional.NewApplier(p.settings, in.Multipliers)
	expander := cluster.NewExpander(p.settings, p.mapper, p.provider)

	regions := p.settings.ModelRegions
	results := make([][]types.CostRecord, len(regions))
	errs := make([]error, len(regions))

	resolve := func(i int) {
		results[i], errs[i] = p.resolveRegion(base, regions[i], applier, expander)
	}

	workers := p.workers
	if workers > len(regions) {
		workers = len(regions)
	}
	if workers <= 1 {
		for i := range regions {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				continue
			}
			resolve(i)
		}
	} else {
		work := make(chan int, len(regions))
		for i := range regions {
			work <- i
		}
		close(work)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range work {
					select {
					case <-ctx.Done():
						errs[i] = ctx.Err()
					default:
						resolve(i)
					}
				}
			}()
		}
		wg.Wait()
	}

	// The first failing region in settings order wins, keeping error
	// reporting independent of scheduling.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var out []types.CostRecord
	for _, records := range results {
		out = append(out, records...)
	}
	finalize(out)

	logging.Info("cost resolution run finished",
		zap.String("run_id", runID),
		zap.Int("records", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// resolveRegion processes one region on a private copy of the base
// table: regional multipliers, cluster expansion, then the region's
// technology exclusions.
func (p *Pipeline) resolveRegion(base []types.CostRecord, region string, applier *regional.Applier, expander *cluster.Expander) ([]types.CostRecord, error) {
	logging.Debug("resolving region", zap.String("region", region))

	records := types.CloneTable(base)
	for i := range records {
		records[i].Region = region
	}

	if err := applier.Apply(records, region); err != nil {
		return nil, err
	}
	records, err := expander.Expand(records, region)
	if err != nil {
		return nil, err
	}

	if excluded := p.settings.NewGenNotAvailable[region]; len(excluded) > 0 {
		records = excludeTechnologies(records, region, excluded)
	}
	return records, nil
}

// excludeTechnologies drops records whose composed key contains any of
// the region's excluded names.
func excludeTechnologies(records []types.CostRecord, region string, excluded []string) []types.CostRecord {
	out := records[:0]
	for i := range records {
		keep := true
		for _, name := range excluded {
			if strings.Contains(records[i].Technology, name) {
				logging.Debug("excluding technology",
					zap.String("region", region),
					zap.String("technology", records[i].Technology))
				keep = false
				break
			}
		}
		if keep {
			out = append(out, records[i])
		}
	}
	return out
}

// intCols are the columns truncated to whole currency units when the
// table is finalized.
var intCols = []string{
	types.ColFixedOMMWYr,
	types.ColFixedOMMWhYr,
	types.ColInvCostMWYr,
	types.ColInvCostMWhYr,
}

// floatCols are every remaining numeric column, zeroed where NaN.
var floatCols = []string{
	types.ColCapex,
	types.ColCapexMWh,
	types.ColVarOMMWh,
	types.ColHeatRate,
	types.ColWACC,
	types.ColCapSize,
	types.ColMaxCapMW,
}

// finalize zeroes unresolved values and truncates the integer cost
// columns. Variable O&M deliberately keeps its fractional part.
func finalize(records []types.CostRecord) {
	for i := range records {
		for _, name := range intCols {
			field, _ := records[i].Field(name)
			if math.IsNaN(*field) {
				*field = 0
			}
			*field = math.Trunc(*field)
		}
		for _, name := range floatCols {
			field, _ := records[i].Field(name)
			if math.IsNaN(*field) {
				*field = 0
			}
		}
		if math.IsNaN(records[i].RegionalMultiplier) {
			records[i].RegionalMultiplier = 0
		}
		for k, v := range records[i].SiteMetrics {
			if math.IsNaN(v) {
				records[i].SiteMetrics[k] = 0
			}
		}
	}
}

// ResolveExistingOM attaches fixed and variable O&M to existing fleet
// units, using the cost and heat rate tables as the new-build
// reference.
func (p *Pipeline) ResolveExistingOM(costs []types.CostTableRow, heatRates []types.HeatRateRow, fleet []types.FleetUnit) ([]types.FleetUnit, error) {
	refs := existing.NewReferenceCosts(costs, heatRates)
	resolver := existing.NewResolver(p.settings, p.index, refs)
	return resolver.ResolveFleet(fleet)
}
