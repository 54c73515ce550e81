package analyzer

import (
	"context"
	"sync"
	"time"
)

// Mock is a deterministic in-process Analyzer for tests. Responses are
// keyed by unit key; units without a canned response get DefaultDecision
// if set, otherwise no entry.
type Mock struct {
	mu              sync.Mutex
	Responses       map[string]Decision
	DefaultDecision *Decision
	Err             error
	Delay           time.Duration
	Calls           []Request
}

// Analyze records the request and replays the canned responses
func (m *Mock) Analyze(ctx context.Context, req Request) (map[string]Decision, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	out := make(map[string]Decision, len(req.Units))
	for _, unit := range req.Units {
		if d, ok := m.Responses[unit.Key]; ok {
			out[unit.Key] = d
		} else if m.DefaultDecision != nil {
			out[unit.Key] = *m.DefaultDecision
		}
	}
	return out, nil
}

// CallCount returns how many batches were submitted
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
