// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gencost/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Data contains input table locations
	Data DataConfig `json:"data"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Pipeline contains resolution pipeline settings
	Pipeline PipelineConfig `json:"pipeline"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// DataConfig locates the input tables consumed by a resolution run
type DataConfig struct {
	// CostTable is the path to the multi-year technology cost CSV
	CostTable string `json:"cost_table"`

	// HeatRateTable is the path to the new-build heat rate CSV
	HeatRateTable string `json:"heat_rate_table"`

	// PriceIndexTable is the path to the annual price index CSV
	PriceIndexTable string `json:"price_index_table"`

	// MultiplierTable is the path to the regional cost multiplier CSV
	MultiplierTable string `json:"multiplier_table"`

	// UserMultiplierTable is an optional extra multiplier CSV appended
	// to the bundled one
	UserMultiplierTable string `json:"user_multiplier_table,omitempty"`

	// FleetTable is the path to the existing generator fleet CSV
	FleetTable string `json:"fleet_table,omitempty"`

	// SpurTable is the path to the offshore spur cost CSV
	SpurTable string `json:"spur_table,omitempty"`

	// ResourceDir is the directory holding site resource cluster CSVs
	ResourceDir string `json:"resource_dir,omitempty"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// Directory is where resolved tables are written
	Directory string `json:"directory"`

	// Format is the default output format
	Format string `json:"format"`
}

// PipelineConfig contains resolution pipeline settings
type PipelineConfig struct {
	// Workers is the number of concurrent region workers; zero or one
	// resolves regions sequentially
	Workers int `json:"workers"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".gencost", "data")

	return &Config{
		Version: "1.0",
		Data: DataConfig{
			CostTable:       filepath.Join(dataDir, "technology_costs.csv"),
			HeatRateTable:   filepath.Join(dataDir, "heat_rates.csv"),
			PriceIndexTable: filepath.Join(dataDir, "price_index.csv"),
			MultiplierTable: filepath.Join(dataDir, "regional_cost_multipliers.csv"),
			ResourceDir:     filepath.Join(dataDir, "resources"),
		},
		Output: OutputConfig{
			Directory: ".",
			Format:    "csv",
		},
		Pipeline: PipelineConfig{
			Workers: 4,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
