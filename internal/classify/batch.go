package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"verdict/internal/analyzer"
)

// Classify resolves a single unit. Units that fail to meet the threshold
// locally go to the analyzer as a batch of one.
func (c *Classifier) Classify(ctx context.Context, backend analyzer.Analyzer, unit Unit) Decision {
	results := c.ClassifyBatch(ctx, backend, []Unit{unit})
	return results[0]
}

// ClassifyBatch resolves units independently through the local tiers, then
// batches the leftovers to the analyzer grouped by extension and top-level
// directory to amortize calls. One group's failure never aborts the others;
// failed or timed-out groups fall back to their best local result.
func (c *Classifier) ClassifyBatch(ctx context.Context, backend analyzer.Analyzer, units []Unit) []Decision {
	decisions := make([]Decision, len(units))

	groups := make(map[string][]int)

	for i, unit := range units {
		d, ok := c.resolveLocal(unit)
		decisions[i] = d
		if ok {
			continue
		}
		// Best local result recorded; the analyzer may improve on it
		key := unit.extension() + "|" + unit.directory()
		groups[key] = append(groups[key], i)
	}

	if backend == nil {
		return decisions
	}

	for key, indexes := range groups {
		if ctx.Err() != nil {
			// Deadline exhausted; the best local results stand
			c.logger.Warn("skipping analyzer batch, deadline exhausted", map[string]interface{}{
				"group": key,
				"units": len(indexes),
			})
			continue
		}
		c.analyzeGroup(ctx, backend, units, decisions, key, indexes)
	}

	return decisions
}

// analyzeGroup submits one batch and applies the results. The analyzer's
// call cost is split evenly across the batch.
func (c *Classifier) analyzeGroup(ctx context.Context, backend analyzer.Analyzer, units []Unit, decisions []Decision, groupKey string, indexes []int) {
	batchID := uuid.New().String()

	req := analyzer.Request{
		BatchID: batchID,
		Pattern: describeGroup(groupKey),
		Units:   make([]analyzer.UnitSummary, 0, len(indexes)),
	}
	var summary strings.Builder
	for _, i := range indexes {
		u := units[i]
		req.Units = append(req.Units, analyzer.UnitSummary{
			Key:       u.Fingerprint(),
			Path:      u.Path,
			Extension: u.extension(),
			Text:      u.Text,
		})
		summary.WriteString(u.Path)
		summary.WriteByte('\n')
	}
	if compressed, err := analyzer.CompressSummary([]byte(summary.String())); err == nil {
		req.Summary = compressed
	}

	results, err := backend.Analyze(ctx, req)
	if err != nil {
		// Analyzer failure is never fatal; local results stand
		c.logger.Warn("analyzer batch failed", map[string]interface{}{
			"batchId": batchID,
			"group":   groupKey,
			"units":   len(indexes),
			"error":   err.Error(),
		})
		return
	}

	cost := c.opts.AnalyzerCost / float64(len(indexes))
	resolved := 0
	for _, i := range indexes {
		u := units[i]
		r, ok := results[u.Fingerprint()]
		if !ok {
			continue
		}
		d := Decision{
			Label:      r.Label,
			Confidence: r.Confidence,
			Method:     MethodAnalyzer,
			Cost:       cost,
			Rationale:  r.Rationale,
		}
		if d.Confidence > decisions[i].Confidence {
			decisions[i] = d
			c.writeback(u, d, c.opts.AnalyzerTTL)
			resolved++
		}
	}

	c.logger.Debug("analyzer batch applied", map[string]interface{}{
		"batchId":  batchID,
		"group":    groupKey,
		"units":    len(indexes),
		"resolved": resolved,
	})
}

// describeGroup renders a group key for the analyzer's pattern hint
func describeGroup(key string) string {
	parts := strings.SplitN(key, "|", 2)
	ext, dir := parts[0], parts[1]
	if ext == "" {
		ext = "(no extension)"
	}
	return fmt.Sprintf("%s in %s", ext, dir)
}

// WithDeadline wraps ctx with the analyzer timeout when one is configured
func WithDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
