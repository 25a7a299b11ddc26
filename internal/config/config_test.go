package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Labels.MinBothPresent != 500 {
		t.Errorf("MinBothPresent = %d, want 500", cfg.Labels.MinBothPresent)
	}
	if cfg.Training.LearningRate != 0.01 {
		t.Errorf("LearningRate = %v, want 0.01", cfg.Training.LearningRate)
	}
	if cfg.Training.Epochs != 50 {
		t.Errorf("Epochs = %d, want 50", cfg.Training.Epochs)
	}
	if cfg.Training.EmbeddingDim != 16 {
		t.Errorf("EmbeddingDim = %d, want 16", cfg.Training.EmbeddingDim)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Labels.MinBothPresent != 500 {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[labels]\nmin_both_present = 250\n\n[training]\nepochs = 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Labels.MinBothPresent != 250 {
		t.Errorf("MinBothPresent = %d, want 250", cfg.Labels.MinBothPresent)
	}
	if cfg.Training.Epochs != 10 {
		t.Errorf("Epochs = %d, want 10", cfg.Training.Epochs)
	}
	// Unset values keep their defaults.
	if cfg.Training.LearningRate != 0.01 {
		t.Errorf("LearningRate = %v, want default 0.01", cfg.Training.LearningRate)
	}
}

func TestLoadFromRejectsInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[labels\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom accepted invalid TOML")
	}
}
