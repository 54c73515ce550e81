package main

import (
	"sync"

	"verdict/internal/config"
	"verdict/internal/engine"
	"verdict/internal/logging"
)

var (
	engineOnce   sync.Once
	sharedEngine *engine.Engine
	engineErr    error
)

// getEngine returns the shared engine, lazily opened on first use
func getEngine(rootDir string, logger *logging.Logger) (*engine.Engine, error) {
	engineOnce.Do(func() {
		sharedEngine, engineErr = engine.Open(rootDir, logger)
	})
	return sharedEngine, engineErr
}

// newLogger builds a logger from workspace config plus the --format flag
func newLogger(rootDir string) *logging.Logger {
	cfg, err := config.LoadConfig(rootDir)
	if err != nil {
		return logging.NewLogger(logging.Config{Format: "human", Level: "info"})
	}
	return logging.NewLogger(logging.Config{
		Format: logging.ParseFormat(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}
