// Package main is the entry point for the gencost CLI.
package main

import (
	"os"

	"gencost/cmd/cli/cmd"
	"gencost/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
