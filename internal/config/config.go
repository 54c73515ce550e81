// Package config loads and validates engine configuration from
// .verdict/config.json with defaults for every field. Validation failures
// are the only fatal errors in the system; everything past startup degrades.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	enginerr "verdict/internal/errors"
)

// StateDirName is the per-workspace state directory holding config and database.
const StateDirName = ".verdict"

// Config represents the complete engine configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	RootDir string `json:"rootDir" mapstructure:"rootDir"`

	Classifier ClassifierConfig `json:"classifier" mapstructure:"classifier"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
	Detector   DetectorConfig   `json:"detector" mapstructure:"detector"`
	Analyzer   AnalyzerConfig   `json:"analyzer" mapstructure:"analyzer"`
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Rules      RulesConfig      `json:"rules" mapstructure:"rules"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// ClassifierConfig controls tier escalation
type ClassifierConfig struct {
	// ConfidenceThreshold stops escalation once a tier meets it
	ConfidenceThreshold float64 `json:"confidenceThreshold" mapstructure:"confidenceThreshold"`
}

// CacheConfig contains decision-cache configuration.
// Pattern-tier entries must outlive analyzer-tier entries: uncertain
// answers are reverified sooner.
type CacheConfig struct {
	PatternTtlSeconds   int `json:"patternTtlSeconds" mapstructure:"patternTtlSeconds"`
	HeuristicTtlSeconds int `json:"heuristicTtlSeconds" mapstructure:"heuristicTtlSeconds"`
	AnalyzerTtlSeconds  int `json:"analyzerTtlSeconds" mapstructure:"analyzerTtlSeconds"`
	HotEntries          int `json:"hotEntries" mapstructure:"hotEntries"`
	SweepIntervalSecs   int `json:"sweepIntervalSeconds" mapstructure:"sweepIntervalSeconds"`
}

// DetectorConfig contains change-magnitude thresholds and scan excludes
type DetectorConfig struct {
	MinorByteThreshold int      `json:"minorByteThreshold" mapstructure:"minorByteThreshold"`
	MajorByteThreshold int      `json:"majorByteThreshold" mapstructure:"majorByteThreshold"`
	MinorLineThreshold int      `json:"minorLineThreshold" mapstructure:"minorLineThreshold"`
	MajorLineThreshold int      `json:"majorLineThreshold" mapstructure:"majorLineThreshold"`
	Excludes           []string `json:"excludes" mapstructure:"excludes"`
}

// AnalyzerConfig contains external-analyzer settings
type AnalyzerConfig struct {
	Endpoint  string  `json:"endpoint" mapstructure:"endpoint"`
	TimeoutMs int     `json:"timeoutMs" mapstructure:"timeoutMs"`
	CallCost  float64 `json:"callCost" mapstructure:"callCost"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr        string `json:"addr" mapstructure:"addr"`
	RequireAuth bool   `json:"requireAuth" mapstructure:"requireAuth"`
}

// RulesConfig points at an optional YAML rule-table file.
// When Path is empty the built-in defaults are used.
type RulesConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		RootDir: ".",
		Classifier: ClassifierConfig{
			ConfidenceThreshold: 0.8,
		},
		Cache: CacheConfig{
			PatternTtlSeconds:   3600,
			HeuristicTtlSeconds: 900,
			AnalyzerTtlSeconds:  300,
			HotEntries:          1024,
			SweepIntervalSecs:   600,
		},
		Detector: DetectorConfig{
			MinorByteThreshold: 1000,
			MajorByteThreshold: 5000,
			MinorLineThreshold: 10,
			MajorLineThreshold: 200,
			Excludes:           []string{".git", StateDirName, "vendor", "node_modules", "dist"},
		},
		Analyzer: AnalyzerConfig{
			Endpoint:  "",
			TimeoutMs: 10000,
			CallCost:  1.0,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:7317",
			RequireAuth: false,
		},
		Rules: RulesConfig{
			Path: "",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .verdict/config.json under rootDir.
// A missing file yields the defaults; a malformed file is an error.
func LoadConfig(rootDir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(rootDir, StateDirName))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.RootDir = rootDir
			return cfg, nil
		}
		return nil, enginerr.New(enginerr.ConfigurationError, "failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, enginerr.New(enginerr.ConfigurationError, "failed to parse config file", err)
	}
	cfg.RootDir = rootDir

	return cfg, nil
}

// Save writes the configuration to .verdict/config.json
func (c *Config) Save(rootDir string) error {
	dir := filepath.Join(rootDir, StateDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", StateDirName, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks that the configuration is usable. Any error here is
// fatal at startup.
func (c *Config) Validate() error {
	if c.Classifier.ConfidenceThreshold <= 0 || c.Classifier.ConfidenceThreshold > 1 {
		return enginerr.New(enginerr.ConfigurationError,
			fmt.Sprintf("confidenceThreshold must be in (0,1], got %v", c.Classifier.ConfidenceThreshold), nil)
	}

	for name, ttl := range map[string]int{
		"patternTtlSeconds":   c.Cache.PatternTtlSeconds,
		"heuristicTtlSeconds": c.Cache.HeuristicTtlSeconds,
		"analyzerTtlSeconds":  c.Cache.AnalyzerTtlSeconds,
	} {
		if ttl <= 0 {
			return enginerr.New(enginerr.ConfigurationError,
				fmt.Sprintf("%s must be positive, got %d", name, ttl), nil)
		}
	}

	// Analyzer-tier entries must expire before pattern-tier entries
	if c.Cache.AnalyzerTtlSeconds >= c.Cache.PatternTtlSeconds {
		return enginerr.New(enginerr.ConfigurationError,
			"analyzerTtlSeconds must be shorter than patternTtlSeconds", nil)
	}

	if c.Detector.MinorByteThreshold <= 0 || c.Detector.MajorByteThreshold <= c.Detector.MinorByteThreshold {
		return enginerr.New(enginerr.ConfigurationError,
			"detector byte thresholds must satisfy 0 < minor < major", nil)
	}
	if c.Detector.MinorLineThreshold <= 0 || c.Detector.MajorLineThreshold <= c.Detector.MinorLineThreshold {
		return enginerr.New(enginerr.ConfigurationError,
			"detector line thresholds must satisfy 0 < minor < major", nil)
	}

	if c.Analyzer.TimeoutMs <= 0 {
		return enginerr.New(enginerr.ConfigurationError,
			fmt.Sprintf("analyzer timeoutMs must be positive, got %d", c.Analyzer.TimeoutMs), nil)
	}
	if c.Analyzer.CallCost <= 0 {
		return enginerr.New(enginerr.ConfigurationError,
			fmt.Sprintf("analyzer callCost must be positive, got %v", c.Analyzer.CallCost), nil)
	}

	return nil
}

// PatternTTL returns the pattern-tier TTL as a duration
func (c *Config) PatternTTL() time.Duration {
	return time.Duration(c.Cache.PatternTtlSeconds) * time.Second
}

// HeuristicTTL returns the heuristic-tier TTL as a duration
func (c *Config) HeuristicTTL() time.Duration {
	return time.Duration(c.Cache.HeuristicTtlSeconds) * time.Second
}

// AnalyzerTTL returns the analyzer-tier TTL as a duration
func (c *Config) AnalyzerTTL() time.Duration {
	return time.Duration(c.Cache.AnalyzerTtlSeconds) * time.Second
}

// AnalyzerTimeout returns the per-batch analyzer timeout as a duration
func (c *Config) AnalyzerTimeout() time.Duration {
	return time.Duration(c.Analyzer.TimeoutMs) * time.Millisecond
}
