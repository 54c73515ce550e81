// Package engine wires the detector, decision cache, classifier, and
// evidence gate into one pipeline the CLI and HTTP server share.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"verdict/internal/analyzer"
	"verdict/internal/auth"
	"verdict/internal/cache"
	"verdict/internal/classify"
	"verdict/internal/config"
	"verdict/internal/detect"
	"verdict/internal/evidence"
	"verdict/internal/logging"
	"verdict/internal/rules"
	"verdict/internal/storage"
)

// Engine owns the wired pipeline for one workspace
type Engine struct {
	Config     *config.Config
	DB         *storage.DB
	Cache      *cache.Cache
	Detector   *detect.Detector
	Snapshots  *detect.SnapshotStore
	Classifier *classify.Classifier
	Gate       *evidence.Gate
	Tokens     *auth.Store
	Backend    analyzer.Analyzer
	Rules      *rules.RuleSet

	rootDir string
	logger  *logging.Logger
}

// Open loads configuration and wires the pipeline for rootDir. A bad or
// missing state database is recovered, not fatal; a bad configuration is.
func Open(rootDir string, logger *logging.Logger) (*Engine, error) {
	cfg, err := config.LoadConfig(rootDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return OpenWith(rootDir, cfg, logger)
}

// OpenWith wires the pipeline with an already-validated configuration
func OpenWith(rootDir string, cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	db, err := storage.Open(rootDir, logger)
	if err != nil {
		return nil, err
	}

	decisionCache, err := cache.New(db, logger, cfg.Cache.HotEntries)
	if err != nil {
		db.Close()
		return nil, err
	}

	rulesPath := cfg.Rules.Path
	if rulesPath == "" {
		rulesPath = filepath.Join(rootDir, config.StateDirName, "rules.yaml")
	}
	ruleSet, err := rules.Load(rulesPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	gate, err := evidence.NewGate(ruleSet.Constraints)
	if err != nil {
		db.Close()
		return nil, err
	}

	thresholds := detect.Thresholds{
		MinorBytes: int64(cfg.Detector.MinorByteThreshold),
		MajorBytes: int64(cfg.Detector.MajorByteThreshold),
		MinorLines: cfg.Detector.MinorLineThreshold,
		MajorLines: cfg.Detector.MajorLineThreshold,
	}

	opts := classify.Options{
		Threshold:    cfg.Classifier.ConfidenceThreshold,
		PatternTTL:   cfg.PatternTTL(),
		HeuristicTTL: cfg.HeuristicTTL(),
		AnalyzerTTL:  cfg.AnalyzerTTL(),
		AnalyzerCost: cfg.Analyzer.CallCost,
	}

	var backend analyzer.Analyzer
	if cfg.Analyzer.Endpoint != "" {
		backend = analyzer.NewHTTPClient(cfg.Analyzer.Endpoint, cfg.AnalyzerTimeout(), logger)
	}

	return &Engine{
		Config:     cfg,
		DB:         db,
		Cache:      decisionCache,
		Detector:   detect.NewDetector(rootDir, thresholds, cfg.Detector.Excludes, logger),
		Snapshots:  detect.NewSnapshotStore(db, logger),
		Classifier: classify.New(ruleSet, decisionCache, opts, logger),
		Gate:       gate,
		Tokens:     auth.NewStore(db, logger),
		Backend:    backend,
		Rules:      ruleSet,
		rootDir:    rootDir,
		logger:     logger,
	}, nil
}

// Close releases the state database
func (e *Engine) Close() error {
	return e.DB.Close()
}

// RootDir returns the workspace root the engine was opened on
func (e *Engine) RootDir() string {
	return e.rootDir
}

// ScanResult summarizes one scan
type ScanResult struct {
	Changes  []detect.ChangeRecord `json:"changes"`
	Files    int                   `json:"files"`
	Duration time.Duration         `json:"-"`
}

// Scan walks the workspace, diffs against the stored snapshot, and
// replaces the snapshot atomically.
func (e *Engine) Scan() (*ScanResult, error) {
	start := time.Now()

	prior, err := e.Snapshots.Load()
	if err != nil {
		return nil, err
	}
	changes, next, err := e.Detector.ScanDir(prior)
	if err != nil {
		return nil, err
	}
	if err := e.Snapshots.Replace(next); err != nil {
		return nil, err
	}

	result := &ScanResult{Changes: changes, Files: len(next), Duration: time.Since(start)}
	e.logger.Info("scan complete", map[string]interface{}{
		"files":   result.Files,
		"changes": len(changes),
		"ms":      result.Duration.Milliseconds(),
	})
	return result, nil
}

// Outcome is one unit's decision after the evidence gate has seen it
type Outcome struct {
	Unit     classify.Unit     `json:"unit"`
	Decision classify.Decision `json:"decision"`
	Verdict  evidence.Verdict  `json:"verdict"`
}

// ClassifyUnits resolves units through the tiers, then passes each
// decision's rationale through the evidence gate. Gate rejections surface
// in the outcome; they never abort sibling units.
func (e *Engine) ClassifyUnits(ctx context.Context, units []classify.Unit) []Outcome {
	ctx, cancel := classify.WithDeadline(ctx, e.Config.AnalyzerTimeout())
	defer cancel()

	decisions := e.Classifier.ClassifyBatch(ctx, e.Backend, units)

	outcomes := make([]Outcome, len(units))
	for i, d := range decisions {
		claim := evidence.Claim{
			Statement:         fmt.Sprintf("%s classified as %s: %s", units[i].Path, d.Label, d.Rationale),
			SupportingSignals: d.Trail,
			Confidence:        d.Confidence,
		}
		outcomes[i] = Outcome{
			Unit:     units[i],
			Decision: d,
			Verdict:  e.Gate.Validate(claim, nil),
		}
	}
	return outcomes
}

// ClassifyChanges scans the workspace and classifies every added or
// modified file from the diff. Deleted files have nothing left to classify.
func (e *Engine) ClassifyChanges(ctx context.Context) (*ScanResult, []Outcome, error) {
	scan, err := e.Scan()
	if err != nil {
		return nil, nil, err
	}

	var units []classify.Unit
	for _, change := range scan.Changes {
		if change.Kind == detect.ChangeDeleted {
			continue
		}
		units = append(units, classify.Unit{Path: change.Path})
	}
	return scan, e.ClassifyUnits(ctx, units), nil
}

// Sweep evicts expired cache entries
func (e *Engine) Sweep() (int64, error) {
	removed, err := e.Cache.Sweep()
	if err != nil {
		return 0, err
	}
	if err := e.DB.SetMetaInt(storage.MetaKeyLastSweepAt, time.Now().UTC().Unix()); err != nil {
		e.logger.Warn("failed to record sweep time", map[string]interface{}{"error": err.Error()})
	}
	return removed, nil
}

// StartSweeper evicts expired cache entries on the configured interval
// until ctx is canceled. Returns immediately when sweeping is disabled.
func (e *Engine) StartSweeper(ctx context.Context) {
	interval := time.Duration(e.Config.Cache.SweepIntervalSecs) * time.Second
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := e.Sweep(); err != nil {
					e.logger.Warn("periodic sweep failed", map[string]interface{}{"error": err.Error()})
				} else if removed > 0 {
					e.logger.Debug("periodic sweep", map[string]interface{}{"removed": removed})
				}
			}
		}
	}()
}
