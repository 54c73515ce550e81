package config

import (
	"os"
	"path/filepath"
	"testing"

	enginerr "verdict/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Classifier.ConfidenceThreshold != 0.8 {
		t.Errorf("default threshold = %v, want 0.8", cfg.Classifier.ConfidenceThreshold)
	}
	if cfg.Cache.AnalyzerTtlSeconds >= cfg.Cache.PatternTtlSeconds {
		t.Error("default analyzer TTL must be shorter than pattern TTL")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig on empty dir failed: %v", err)
	}
	if cfg.Classifier.ConfidenceThreshold != 0.8 {
		t.Error("missing config file should yield defaults")
	}
	if cfg.RootDir != tmpDir {
		t.Errorf("RootDir = %q, want %q", cfg.RootDir, tmpDir)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, StateDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `{
		"classifier": {"confidenceThreshold": 0.9},
		"cache": {"patternTtlSeconds": 7200, "analyzerTtlSeconds": 120}
	}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Classifier.ConfidenceThreshold != 0.9 {
		t.Errorf("threshold = %v, want 0.9", cfg.Classifier.ConfidenceThreshold)
	}
	if cfg.Cache.PatternTtlSeconds != 7200 {
		t.Errorf("pattern TTL = %d, want 7200", cfg.Cache.PatternTtlSeconds)
	}
	// Unspecified fields keep defaults
	if cfg.Detector.MinorByteThreshold != 1000 {
		t.Errorf("minor byte threshold = %d, want default 1000", cfg.Detector.MinorByteThreshold)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Classifier.ConfidenceThreshold = 0.75
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Classifier.ConfidenceThreshold != 0.75 {
		t.Errorf("round-tripped threshold = %v, want 0.75", loaded.Classifier.ConfidenceThreshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Classifier.ConfidenceThreshold = 0 }},
		{"threshold above one", func(c *Config) { c.Classifier.ConfidenceThreshold = 1.5 }},
		{"negative pattern TTL", func(c *Config) { c.Cache.PatternTtlSeconds = -1 }},
		{"zero analyzer TTL", func(c *Config) { c.Cache.AnalyzerTtlSeconds = 0 }},
		{"analyzer TTL not shorter", func(c *Config) { c.Cache.AnalyzerTtlSeconds = c.Cache.PatternTtlSeconds }},
		{"inverted byte thresholds", func(c *Config) { c.Detector.MajorByteThreshold = 500 }},
		{"inverted line thresholds", func(c *Config) { c.Detector.MajorLineThreshold = 5 }},
		{"zero analyzer timeout", func(c *Config) { c.Analyzer.TimeoutMs = 0 }},
		{"zero call cost", func(c *Config) { c.Analyzer.CallCost = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !enginerr.HasCode(err, enginerr.ConfigurationError) {
				t.Errorf("error code = %v, want CONFIGURATION_ERROR", enginerr.CodeOf(err))
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PatternTTL().Seconds() != float64(cfg.Cache.PatternTtlSeconds) {
		t.Error("PatternTTL mismatch")
	}
	if cfg.AnalyzerTTL() >= cfg.PatternTTL() {
		t.Error("analyzer TTL must be shorter than pattern TTL")
	}
}
