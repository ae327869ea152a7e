// Package cmd - resolve command
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gencost/adapters/resources"
	"gencost/adapters/settings"
	"gencost/adapters/tables"
	"gencost/core/pipeline"
	"gencost/core/types"
	"gencost/internal/config"
	"gencost/internal/logging"
)

// Output file names inside the output directory.
const (
	resolvedFile = "new_build_costs.csv"
	fleetFile    = "existing_fleet_om.csv"
)

var (
	outputDir string
	workers   int
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve [scenario file]",
	Short: "Resolve technology costs for a scenario",
	Long: `Run the full cost resolution pipeline for one scenario file.

Input table locations come from the config file; the scenario file
controls years, regions, technologies and overrides. The resolved
new-build table is always written; the existing-fleet O&M table is
written when the config names a fleet snapshot.

Examples:
  gencost resolve scenario.hcl
  gencost resolve --output ./results scenario.hcl
  gencost resolve --workers 8 scenario.hcl`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for resolved tables (default from config)")
	resolveCmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent region workers (default from config)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	s, err := settings.NewParser().ParseFile(args[0])
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	cfg := config.Get()
	outDir := outputDir
	if outDir == "" {
		outDir = cfg.Output.Directory
	}
	regionWorkers := workers
	if regionWorkers == 0 {
		regionWorkers = cfg.Pipeline.Workers
	}

	logging.Info("starting cost resolution",
		zap.String("scenario", args[0]),
		zap.Int("model_year", s.ModelYear),
		zap.Int("regions", len(s.ModelRegions)))

	index, err := tables.ReadPriceIndex(cfg.Data.PriceIndexTable)
	if err != nil {
		return err
	}

	var spur []types.SpurCostRow
	if cfg.Data.SpurTable != "" {
		if spur, err = tables.ReadSpurCosts(cfg.Data.SpurTable, s, index); err != nil {
			return err
		}
	}
	costs, err := tables.ReadCosts(cfg.Data.CostTable, s, index, spur)
	if err != nil {
		return err
	}
	heatRates, err := tables.ReadHeatRates(cfg.Data.HeatRateTable)
	if err != nil {
		return err
	}
	multipliers, err := tables.ReadMultipliers(cfg.Data.MultiplierTable, cfg.Data.UserMultiplierTable)
	if err != nil {
		return err
	}

	var userTechs []types.AveragedRow
	if s.UserTechFile != "" {
		// Relative user tech paths resolve against the scenario file.
		path := s.UserTechFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(args[0]), path)
		}
		if userTechs, err = tables.ReadUserTechs(path, s.ModelYear); err != nil {
			return err
		}
	}

	p := pipeline.New(s, index, resources.Mapper{}, resources.NewSiteProvider(cfg.Data.ResourceDir), regionWorkers)
	records, err := p.Run(ctx, pipeline.Inputs{
		Costs:       costs,
		HeatRates:   heatRates,
		UserTechs:   userTechs,
		Multipliers: multipliers,
	})
	if err != nil {
		return err
	}

	resolvedPath := filepath.Join(outDir, resolvedFile)
	if err := tables.WriteResolvedFile(resolvedPath, records); err != nil {
		return err
	}
	fmt.Printf("Resolved %d cost records to %s\n", len(records), resolvedPath)

	if cfg.Data.FleetTable != "" {
		fleet, err := tables.ReadFleet(cfg.Data.FleetTable, s.CapacityCol)
		if err != nil {
			return err
		}
		units, err := p.ResolveExistingOM(costs, heatRates, fleet)
		if err != nil {
			return err
		}
		fleetPath := filepath.Join(outDir, fleetFile)
		if err := tables.WriteFleetOMFile(fleetPath, units); err != nil {
			return err
		}
		fmt.Printf("Resolved O&M for %d fleet units to %s\n", len(units), fleetPath)
	}

	fmt.Printf("Completed in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
