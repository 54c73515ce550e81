// Package classify resolves a unit of work to a decision by escalating
// through tiers, cheapest first: exact table lookup, signature patterns,
// the decision cache, heuristic defaults, and finally the injected
// analyzer backend. Escalation stops at the first tier whose confidence
// meets the configured threshold.
package classify

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"verdict/internal/cache"
	"verdict/internal/logging"
	"verdict/internal/rules"
	"verdict/internal/score"
)

// Method names the tier that produced a decision
const (
	MethodExact     = "exact"
	MethodSignature = "signature"
	MethodCache     = "cache"
	MethodHeuristic = "heuristic"
	MethodAnalyzer  = "analyzer"
	MethodUnknown   = "unknown"
)

// Tier confidences. Exact and signature matches carry fixed confidence;
// cache hits carry the stored value; heuristics are a uniform 0.7.
const (
	exactConfidence     = 0.95
	signatureConfidence = 0.85
	heuristicConfidence = 0.7
)

// Unit is one item to classify
type Unit struct {
	Path             string   `json:"path"`
	Name             string   `json:"name,omitempty"` // base name; derived from Path when empty
	Text             string   `json:"text,omitempty"`
	TaskType         string   `json:"taskType,omitempty"`
	ErrorText        string   `json:"errorText,omitempty"`
	Overrides        []string `json:"overrides,omitempty"`
	RecentCategories []string `json:"recentCategories,omitempty"`
}

// baseName returns the unit's lookup name
func (u Unit) baseName() string {
	if u.Name != "" {
		return u.Name
	}
	return filepath.Base(u.Path)
}

// extension returns the unit's file extension, including the dot
func (u Unit) extension() string {
	return strings.ToLower(filepath.Ext(u.Path))
}

// directory returns the unit's top-level directory, or "." at the root
func (u Unit) directory() string {
	dir := filepath.Dir(u.Path)
	if dir == "." || dir == "/" {
		return "."
	}
	parts := strings.Split(filepath.ToSlash(dir), "/")
	return parts[0]
}

// contextMap is the canonical identity of the unit for cache keying.
// Only stable identifying facts participate; transient signals like
// error output do not.
func (u Unit) contextMap() map[string]string {
	ctx := map[string]string{
		"path": u.Path,
		"name": u.baseName(),
	}
	if u.Text != "" {
		ctx["text"] = u.Text
	}
	if u.TaskType != "" {
		ctx["taskType"] = u.TaskType
	}
	return ctx
}

// Fingerprint returns the unit's cache key
func (u Unit) Fingerprint() string {
	return cache.Fingerprint(u.contextMap())
}

// Decision is the classifier's answer for one unit
type Decision struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Method     string   `json:"method"`
	Cost       float64  `json:"cost"`
	Rationale  string   `json:"rationale"`
	Trail      []string `json:"trail,omitempty"` // triggered rules, per tier visited
}

// Options tunes the classifier
type Options struct {
	Threshold    float64       // confidence needed to stop escalating
	PatternTTL   time.Duration // cache TTL for signature-tier writebacks
	HeuristicTTL time.Duration // cache TTL for heuristic-tier writebacks
	AnalyzerTTL  time.Duration // cache TTL for analyzer-tier writebacks
	AnalyzerCost float64       // cost of one analyzer call, amortized per batch
}

// DefaultOptions returns the stock tuning. Analyzer-tier entries expire
// soonest so uncertain answers get reverified.
func DefaultOptions() Options {
	return Options{
		Threshold:    0.8,
		PatternTTL:   time.Hour,
		HeuristicTTL: 15 * time.Minute,
		AnalyzerTTL:  5 * time.Minute,
		AnalyzerCost: 1.0,
	}
}

// Classifier escalates units through the tiers. The rule tables, cache,
// scorer, and analyzer are injected so independent instances can coexist.
type Classifier struct {
	rules  *rules.RuleSet
	cache  *cache.Cache
	scorer *score.Scorer
	opts   Options
	logger *logging.Logger
}

// New creates a classifier over the given collaborators. cache may be nil
// to disable the cache tier and writebacks.
func New(ruleSet *rules.RuleSet, decisionCache *cache.Cache, opts Options, logger *logging.Logger) *Classifier {
	return &Classifier{
		rules:  ruleSet,
		cache:  decisionCache,
		scorer: score.NewScorer(ruleSet.Categories),
		opts:   opts,
		logger: logger,
	}
}

// resolveLocal runs tiers 0 through 3. It returns the committed decision
// when some tier met the threshold, otherwise resolved=false and the best
// result seen so far for fallback use.
func (c *Classifier) resolveLocal(unit Unit) (Decision, bool) {
	best := Decision{Label: "unknown", Method: MethodUnknown}

	consider := func(d Decision) (Decision, bool) {
		if d.Confidence > best.Confidence {
			best = d
		}
		if d.Confidence >= c.opts.Threshold {
			return d, true
		}
		return Decision{}, false
	}

	// Tier 0: exact table lookup on the unit's base name
	if label, ok := c.rules.Exact[unit.baseName()]; ok {
		d := Decision{
			Label:      label,
			Confidence: exactConfidence,
			Method:     MethodExact,
			Rationale:  fmt.Sprintf("exact match on %q", unit.baseName()),
		}
		if committed, ok := consider(d); ok {
			return committed, true
		}
	}

	// Tier 1: ordered signature patterns, first match wins
	for i := range c.rules.Signatures {
		sig := &c.rules.Signatures[i]
		if !sig.Matches(unit.Path) {
			continue
		}
		d := Decision{
			Label:      sig.Label,
			Confidence: signatureConfidence,
			Method:     MethodSignature,
			Rationale:  fmt.Sprintf("signature %q matched %s", sig.Name, unit.Path),
			Trail:      []string{sig.Name},
		}
		if committed, ok := consider(d); ok {
			c.writeback(unit, committed, c.opts.PatternTTL)
			return committed, true
		}
		break
	}

	// Tier 2: decision cache
	if c.cache != nil {
		if entry, hit, err := c.cache.Get(unit.Fingerprint()); err != nil {
			c.logger.Warn("cache lookup failed", map[string]interface{}{
				"path":  unit.Path,
				"error": err.Error(),
			})
		} else if hit {
			d := Decision{
				Label:      entry.Decision,
				Confidence: entry.Confidence,
				Method:     MethodCache,
				Rationale:  entry.Rationale,
			}
			if committed, ok := consider(d); ok {
				return committed, true
			}
		}
	}

	// Tier 3: heuristic defaults, then the scorer, then the catch-all
	d := c.heuristic(unit)
	if committed, ok := consider(d); ok {
		c.writeback(unit, committed, c.opts.HeuristicTTL)
		return committed, true
	}

	return best, false
}

// heuristic resolves tier 3. Extension mapping first, then top-level
// directory mapping, then the context scorer, then the fallback bucket.
// Total coverage is guaranteed; the result never escapes 0.7 confidence.
func (c *Classifier) heuristic(unit Unit) Decision {
	if ext := unit.extension(); ext != "" {
		if label, ok := c.rules.Heuristics.Extensions[ext]; ok {
			return Decision{
				Label:      label,
				Confidence: heuristicConfidence,
				Method:     MethodHeuristic,
				Rationale:  fmt.Sprintf("extension %s maps to %s", ext, label),
			}
		}
	}
	if label, ok := c.rules.Heuristics.Directories[unit.directory()]; ok {
		return Decision{
			Label:      label,
			Confidence: heuristicConfidence,
			Method:     MethodHeuristic,
			Rationale:  fmt.Sprintf("directory %s maps to %s", unit.directory(), label),
		}
	}

	signals := score.Signals{
		Text:             unit.Text,
		Extension:        unit.extension(),
		TaskType:         unit.TaskType,
		ErrorText:        unit.ErrorText,
		Overrides:        unit.Overrides,
		RecentCategories: unit.RecentCategories,
	}
	if top, _ := c.scorer.Top(signals); top.Score > 0 {
		return Decision{
			Label:      top.Category,
			Confidence: heuristicConfidence,
			Method:     MethodHeuristic,
			Rationale:  fmt.Sprintf("scored highest for %s", top.Category),
			Trail:      top.Triggered,
		}
	}

	fallback := c.rules.Heuristics.Fallback
	if fallback == "" {
		fallback = "unknown"
	}
	return Decision{
		Label:      fallback,
		Confidence: heuristicConfidence,
		Method:     MethodHeuristic,
		Rationale:  "no rule applied, fallback bucket",
	}
}

// writeback stores a committed decision in the cache. Failures only warn;
// a decision is never lost to a cache write error.
func (c *Classifier) writeback(unit Unit, d Decision, ttl time.Duration) {
	if c.cache == nil || ttl <= 0 {
		return
	}
	if err := c.cache.Put(unit.Fingerprint(), d.Label, d.Rationale, d.Confidence, ttl); err != nil {
		c.logger.Warn("cache writeback failed", map[string]interface{}{
			"path":  unit.Path,
			"error": err.Error(),
		})
	}
}
