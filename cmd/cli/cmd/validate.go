// Package cmd - validate command
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gencost/adapters/settings"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [scenario file]",
	Short: "Check a scenario file without resolving",
	Long: `Parse a scenario file and run the same validation the resolve
command applies, without loading any data tables.

Examples:
  gencost validate scenario.hcl`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := settings.NewParser().ParseFile(args[0])
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	fmt.Printf("%s is valid: model year %d, %d regions, %d new-build technologies\n",
		args[0], s.ModelYear, len(s.ModelRegions), len(s.NewGenSpecs))
	return nil
}
