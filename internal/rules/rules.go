// Package rules loads the classification rule tables: exact matches,
// signature patterns, heuristic mappings, scoring categories, and evidence
// constraints. Tables live in a single YAML file; a built-in default set
// covers fresh workspaces.
package rules

import (
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	enginerr "verdict/internal/errors"
	"verdict/internal/evidence"
	"verdict/internal/score"
)

// Signature is one ordered pattern rule. Patterns are regular expressions
// matched against a unit's identifying text; first match wins.
type Signature struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`

	re *regexp.Regexp
}

// Matches reports whether the compiled pattern matches text
func (s *Signature) Matches(text string) bool {
	return s.re != nil && s.re.MatchString(text)
}

// Heuristics map cheap unit properties to labels
type Heuristics struct {
	Extensions  map[string]string `yaml:"extensions"`
	Directories map[string]string `yaml:"directories"`
	Fallback    string            `yaml:"fallback"`
}

// RuleSet is the full loaded rule table
type RuleSet struct {
	Exact       map[string]string     `yaml:"exact"`
	Signatures  []Signature           `yaml:"signatures"`
	Heuristics  Heuristics            `yaml:"heuristics"`
	Categories  []score.Category      `yaml:"categories"`
	Constraints []evidence.Constraint `yaml:"constraints"`
}

// Load reads a rule table from path. A missing file yields the built-in
// defaults; a present but malformed file is a configuration error.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, enginerr.New(enginerr.IOFailure, "failed to read rules file: "+path, err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, enginerr.New(enginerr.ConfigurationError, "failed to parse rules file: "+path, err)
	}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	if rs.Heuristics.Fallback == "" {
		rs.Heuristics.Fallback = "unknown"
	}
	return &rs, nil
}

// Compile validates and compiles a hand-built rule set's signature
// patterns. Load and Defaults already do this for the sets they return.
func Compile(rs *RuleSet) (*RuleSet, error) {
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return rs, nil
}

// compile validates and compiles every signature pattern
func (rs *RuleSet) compile() error {
	for i := range rs.Signatures {
		re, err := regexp.Compile(rs.Signatures[i].Pattern)
		if err != nil {
			return enginerr.New(enginerr.ConfigurationError,
				"invalid signature pattern: "+rs.Signatures[i].Pattern, err)
		}
		rs.Signatures[i].re = re
	}
	return nil
}

// Defaults returns the built-in rule table. It covers common source,
// config, test, and documentation shapes well enough to classify a typical
// repository without a rules file.
func Defaults() *RuleSet {
	rs := &RuleSet{
		Exact: map[string]string{
			"Makefile":     "build",
			"Dockerfile":   "build",
			"LICENSE":      "legal",
			"go.mod":       "build",
			"go.sum":       "build",
			"package.json": "build",
		},
		Signatures: []Signature{
			{Name: "test-file", Pattern: `_test\.[a-z]+$|\.test\.[a-z]+$|(^|/)tests?/`, Label: "test"},
			{Name: "ci-config", Pattern: `(^|/)\.github/workflows/|(^|/)\.gitlab-ci\.yml$`, Label: "ci"},
			{Name: "migration", Pattern: `(^|/)migrations?/.*\.sql$`, Label: "migration"},
			{Name: "generated", Pattern: `\.gen\.[a-z]+$|\.pb\.go$|_generated\.`, Label: "generated"},
		},
		Heuristics: Heuristics{
			Extensions: map[string]string{
				".go":   "source",
				".js":   "source",
				".ts":   "source",
				".py":   "source",
				".rs":   "source",
				".sql":  "data",
				".json": "config",
				".yaml": "config",
				".yml":  "config",
				".toml": "config",
				".md":   "docs",
				".txt":  "docs",
			},
			Directories: map[string]string{
				"docs":    "docs",
				"scripts": "tooling",
				"vendor":  "vendored",
			},
			Fallback: "unknown",
		},
		Categories: []score.Category{
			{
				Name: "debugging",
				Rules: []score.Rule{
					{Name: "kw-error", Kind: score.KindKeyword, Value: "error", Weight: 3},
					{Name: "kw-stack", Kind: score.KindKeyword, Value: "stack trace", Weight: 4},
					{Name: "err-text", Kind: score.KindErrorPattern, Value: "panic", Weight: 5},
					{Name: "task-debug", Kind: score.KindTaskType, Value: "debug", Weight: 4},
				},
			},
			{
				Name: "feature-work",
				Rules: []score.Rule{
					{Name: "kw-implement", Kind: score.KindKeyword, Value: "implement", Weight: 4},
					{Name: "kw-add", Kind: score.KindKeyword, Value: "add support", Weight: 3},
					{Name: "task-feature", Kind: score.KindTaskType, Value: "feature", Weight: 4},
					{Name: "recent-feature", Kind: score.KindRecency, Value: "feature-work", Weight: 2},
				},
			},
			{
				Name: "refactoring",
				Rules: []score.Rule{
					{Name: "kw-refactor", Kind: score.KindKeyword, Value: "refactor", Weight: 5},
					{Name: "kw-rename", Kind: score.KindKeyword, Value: "rename", Weight: 3},
					{Name: "task-refactor", Kind: score.KindTaskType, Value: "refactor", Weight: 4},
				},
			},
		},
		Constraints: []evidence.Constraint{
			{
				Rule:     "destructive-ops-need-backup",
				Severity: evidence.SeverityCritical,
				Pattern:  `\b(delete|drop|truncate|wipe)\b`,
				Requires: []string{"backup-confirmation"},
			},
			{
				Rule:     "perf-claims-need-measurement",
				Severity: evidence.SeverityHigh,
				Pattern:  `\b(faster|slower|performance|latency)\b`,
				Requires: []string{"measurement"},
			},
		},
	}
	// Defaults are code-controlled; compile cannot fail
	_ = rs.compile()
	return rs
}

// Save writes the rule table to path as YAML
func (rs *RuleSet) Save(path string) error {
	data, err := yaml.Marshal(rs)
	if err != nil {
		return enginerr.New(enginerr.InternalError, "failed to marshal rules", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return enginerr.New(enginerr.IOFailure, "failed to write rules file: "+path, err)
	}
	return nil
}
