// Package cmd provides the CLI commands for gencost.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gencost/internal/config"
	"gencost/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gencost",
	Short: "Resolve generator technology costs for capacity expansion models",
	Long: `gencost turns raw multi-year technology cost tables into one
normalized cost record per model region and technology variant.

Costs are normalized to a single currency year, averaged over the
planning window, adjusted by scenario overrides and regional
multipliers, annuitized, and expanded into renewable resource
clusters.

Examples:
  gencost resolve scenario.hcl
  gencost resolve --output ./results --workers 8 scenario.hcl
  gencost validate scenario.hcl`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gencost.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gencost version 0.1.0")
	},
}
