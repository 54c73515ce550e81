// Package score ranks candidate category labels for a unit of work by
// multi-factor additive scoring.
//
// Each category declares a fixed weighted rule set. A category's score is
// the plain sum of the weights of every rule whose predicate matches —
// deliberately additive and unnormalized across categories, so categories
// with more applicable rule kinds are not penalized. Ties at the top score
// break by lexical order of category name, ascending; that ordering is a
// documented contract, not an accident of iteration.
package score

import (
	"sort"
	"strings"
)

// RuleKind identifies a predicate type
type RuleKind string

const (
	// KindKeyword matches when the rule value appears in the unit text
	KindKeyword RuleKind = "keyword"
	// KindExtension matches the unit's file extension
	KindExtension RuleKind = "extension"
	// KindTaskType matches the unit's declared task type
	KindTaskType RuleKind = "taskType"
	// KindErrorPattern matches against detected error output
	KindErrorPattern RuleKind = "errorPattern"
	// KindOverride matches an explicit override flag naming this rule value
	KindOverride RuleKind = "override"
	// KindRecency matches when the category was recently used
	KindRecency RuleKind = "recency"
)

// Rule is one weighted predicate in a category's rule set
type Rule struct {
	Name   string   `json:"name" yaml:"name"`
	Kind   RuleKind `json:"kind" yaml:"kind"`
	Value  string   `json:"value" yaml:"value"`
	Weight float64  `json:"weight" yaml:"weight"`
}

// Category is a candidate label with its fixed rule set
type Category struct {
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"rules" yaml:"rules"`
}

// Signals carries the observable facts about one unit of work.
// Computed fresh per request, never persisted.
type Signals struct {
	Text             string   // free-form unit description
	Extension        string   // file extension including the dot
	TaskType         string   // declared task type, if any
	ErrorText        string   // detected error output, if any
	Overrides        []string // explicit override flags
	RecentCategories []string // categories used recently, for the recency bias
}

// Result is one ranked category with its reasoning trail
type Result struct {
	Category  string   `json:"category"`
	Score     float64  `json:"score"`
	Triggered []string `json:"triggered"` // names of rules that matched
}

// Scorer ranks categories for signals. The category table is fixed at
// construction; extending the signal vocabulary means extending the table,
// not this code.
type Scorer struct {
	categories []Category
	maxScore   float64
}

// NewScorer creates a scorer over the given category table
func NewScorer(categories []Category) *Scorer {
	var max float64
	for _, cat := range categories {
		var total float64
		for _, r := range cat.Rules {
			total += r.Weight
		}
		if total > max {
			max = total
		}
	}
	return &Scorer{categories: categories, maxScore: max}
}

// MaxAchievableScore is the largest total any single category could reach
// if every one of its rules matched.
func (s *Scorer) MaxAchievableScore() float64 {
	return s.maxScore
}

// Score ranks every category against signals, highest score first.
// Equal scores order lexically by category name.
func (s *Scorer) Score(signals Signals) []Result {
	results := make([]Result, 0, len(s.categories))

	for _, cat := range s.categories {
		res := Result{Category: cat.Name}
		for _, rule := range cat.Rules {
			if matches(rule, cat.Name, signals) {
				res.Score += rule.Weight
				res.Triggered = append(res.Triggered, rule.Name)
			}
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Category < results[j].Category
	})

	return results
}

// Top returns the best-ranked category and its confidence:
// min(topScore / maxAchievableScore, 1.0). A scorer with no categories or
// an all-zero table reports ("", 0).
func (s *Scorer) Top(signals Signals) (Result, float64) {
	ranked := s.Score(signals)
	if len(ranked) == 0 || s.maxScore == 0 {
		return Result{}, 0
	}

	confidence := ranked[0].Score / s.maxScore
	if confidence > 1 {
		confidence = 1
	}
	return ranked[0], confidence
}

// matches evaluates one rule predicate against the signals
func matches(rule Rule, category string, signals Signals) bool {
	switch rule.Kind {
	case KindKeyword:
		return rule.Value != "" && containsFold(signals.Text, rule.Value)
	case KindExtension:
		return rule.Value != "" && strings.EqualFold(normalizeExt(signals.Extension), normalizeExt(rule.Value))
	case KindTaskType:
		return rule.Value != "" && strings.EqualFold(signals.TaskType, rule.Value)
	case KindErrorPattern:
		return rule.Value != "" && containsFold(signals.ErrorText, rule.Value)
	case KindOverride:
		for _, flag := range signals.Overrides {
			if strings.EqualFold(flag, rule.Value) {
				return true
			}
		}
		return false
	case KindRecency:
		for _, recent := range signals.RecentCategories {
			if strings.EqualFold(recent, category) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}
