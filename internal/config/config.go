// Package config loads and saves the pipeline configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the pipeline configuration.
type Config struct {
	// Label generation configuration
	Labels LabelsConfig `toml:"labels"`

	// Model training configuration
	Training TrainingConfig `toml:"training"`

	// Data location configuration
	Data DataConfig `toml:"data"`
}

// LabelsConfig contains aggregation settings.
type LabelsConfig struct {
	MinBothPresent int `toml:"min_both_present"` // Minimum co-occurrence count for a label
}

// TrainingConfig contains trainer hyperparameters.
type TrainingConfig struct {
	LearningRate float64 `toml:"learning_rate"` // SGD learning rate
	L2Penalty    float64 `toml:"l2_penalty"`    // L2 regularization strength
	Epochs       int     `toml:"epochs"`        // Number of training passes
	EmbeddingDim int     `toml:"embedding_dim"` // Per-card embedding dimension
}

// DataConfig contains data file locations.
type DataConfig struct {
	CardsCSV     string `toml:"cards_csv"`     // Path to the card list CSV
	DatabasePath string `toml:"database_path"` // Path to the card directory SQLite DB
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Labels: LabelsConfig{
			MinBothPresent: 500,
		},
		Training: TrainingConfig{
			LearningRate: 0.01,
			L2Penalty:    0.001,
			Epochs:       50,
			EmbeddingDim: 16,
		},
		Data: DataConfig{},
	}
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".draft-synergy")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads the configuration from disk. Returns default config if the file
// doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from a specific path. Missing file means
// defaults, not an error.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
