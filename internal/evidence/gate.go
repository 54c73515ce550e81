// Package evidence validates proposed decisions against hard constraints
// and hedging-language heuristics before they are committed.
package evidence

import (
	"regexp"
	"strings"

	enginerr "verdict/internal/errors"
)

// Status is the gate's verdict on a claim
type Status string

const (
	// StatusAccepted means the claim passed with adequate confidence
	StatusAccepted Status = "accepted"
	// StatusNeedsEvidence means the claim is accepted but its adjusted
	// confidence sits below the floor; the caller should gather more
	// evidence before acting
	StatusNeedsEvidence Status = "needs-more-evidence"
	// StatusRejected means a hard constraint matched without its required
	// evidence present
	StatusRejected Status = "rejected"
)

// Claim is a proposed decision or assertion under validation.
// Computed fresh per request and discarded.
type Claim struct {
	Statement         string   `json:"statement"`
	SupportingSignals []string `json:"supportingSignals,omitempty"`
	Confidence        float64  `json:"confidence"`
}

// Item is one piece of presented evidence
type Item struct {
	Type string `json:"type"` // e.g. "test-result", "file-reference", "measurement"
	Ref  string `json:"ref"`  // locator for the evidence
}

// Severity grades a constraint
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
)

// Constraint is one hard rule. A claim matching Pattern without every
// evidence type in Requires present is rejected outright, irrespective of
// its confidence.
type Constraint struct {
	Rule     string   `json:"rule" yaml:"rule"`
	Severity Severity `json:"severity" yaml:"severity"`
	Pattern  string   `json:"pattern" yaml:"pattern"` // regular expression over the statement
	Requires []string `json:"requires" yaml:"requires"`

	re *regexp.Regexp
}

// Verdict is the gate's full answer
type Verdict struct {
	Status              Status   `json:"status"`
	ViolatedConstraints []string `json:"violatedConstraints,omitempty"`
	AdjustedConfidence  float64  `json:"adjustedConfidence"`
	MissingEvidence     []string `json:"missingEvidence,omitempty"`
	Notes               []string `json:"notes,omitempty"`
}

// Tunables. Hedging costs a fixed penalty per distinct hedge term;
// concrete references earn a fixed boost per reference kind present.
const (
	DefaultHedgePenalty  = 0.15
	DefaultConcreteBoost = 0.1
	DefaultMinConfidence = 0.5
)

// hedgeWords are the hedging terms the gate penalizes. Bare "should" and
// "will" are deliberately absent: they appear in normative statements far
// more often than in hedges, so only the hedged forms ("should work")
// count.
var hedgeWords = []string{
	"probably", "might", "maybe", "possibly", "likely",
	"should work", "hopefully", "i think", "presumably",
}

// Concrete-reference detectors: counts, file:line locators, and
// backtick-quoted identifiers.
var (
	countRe      = regexp.MustCompile(`\b\d+\b`)
	locatorRe    = regexp.MustCompile(`\b[\w./-]+\.[A-Za-z]+:\d+\b`)
	identifierRe = regexp.MustCompile("`[^`]+`")
)

// Gate validates claims against an ordered constraint set
type Gate struct {
	constraints   []Constraint
	hedgePenalty  float64
	concreteBoost float64
	minConfidence float64
	// baselineEvidence is what a below-floor claim is asked to produce
	baselineEvidence []string
}

// NewGate creates a gate over the given ordered constraints. Constraint
// patterns must be valid regular expressions; an invalid pattern is a
// configuration error.
func NewGate(constraints []Constraint) (*Gate, error) {
	compiled := make([]Constraint, len(constraints))
	for i, c := range constraints {
		re, err := regexp.Compile("(?i)" + c.Pattern)
		if err != nil {
			return nil, enginerr.New(enginerr.ConfigurationError,
				"invalid constraint pattern: "+c.Pattern, err)
		}
		c.re = re
		compiled[i] = c
	}

	return &Gate{
		constraints:      compiled,
		hedgePenalty:     DefaultHedgePenalty,
		concreteBoost:    DefaultConcreteBoost,
		minConfidence:    DefaultMinConfidence,
		baselineEvidence: []string{"test-result", "file-reference"},
	}, nil
}

// Validate checks a claim against the hard constraints, then adjusts its
// confidence for hedging language and concrete references. Hard-constraint
// rejection happens regardless of confidence; low confidence alone never
// rejects, it flags.
func (g *Gate) Validate(claim Claim, evidence []Item) Verdict {
	present := make(map[string]bool, len(evidence))
	for _, item := range evidence {
		present[strings.ToLower(item.Type)] = true
	}

	// Hard constraints, in declared order
	var violated []string
	var missing []string
	for _, c := range g.constraints {
		if !c.re.MatchString(claim.Statement) {
			continue
		}
		for _, req := range c.Requires {
			if !present[strings.ToLower(req)] {
				violated = append(violated, c.Rule)
				missing = append(missing, req)
				break
			}
		}
	}
	if len(violated) > 0 {
		return Verdict{
			Status:              StatusRejected,
			ViolatedConstraints: violated,
			AdjustedConfidence:  0,
			MissingEvidence:     dedupe(missing),
		}
	}

	confidence := claim.Confidence
	var notes []string

	statement := strings.ToLower(claim.Statement)
	for _, hedge := range hedgeWords {
		if strings.Contains(statement, hedge) {
			confidence -= g.hedgePenalty
			notes = append(notes, "hedging: "+hedge)
		}
	}

	if countRe.MatchString(claim.Statement) {
		confidence += g.concreteBoost
		notes = append(notes, "concrete: count")
	}
	if locatorRe.MatchString(claim.Statement) {
		confidence += g.concreteBoost
		notes = append(notes, "concrete: locator")
	}
	if identifierRe.MatchString(claim.Statement) {
		confidence += g.concreteBoost
		notes = append(notes, "concrete: identifier")
	}

	confidence = clamp(confidence)

	if confidence < g.minConfidence {
		return Verdict{
			Status:             StatusNeedsEvidence,
			AdjustedConfidence: confidence,
			MissingEvidence:    g.missingBaseline(present),
			Notes:              notes,
		}
	}

	return Verdict{
		Status:             StatusAccepted,
		AdjustedConfidence: confidence,
		Notes:              notes,
	}
}

// missingBaseline lists the baseline evidence categories not yet presented
func (g *Gate) missingBaseline(present map[string]bool) []string {
	var missing []string
	for _, typ := range g.baselineEvidence {
		if !present[typ] {
			missing = append(missing, typ)
		}
	}
	return missing
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
