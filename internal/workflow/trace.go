package workflow

import (
	"sync"

	"FactorySense/internal/models"
)

// Trace is an ordered append log of step results for a single workflow run.
// Each Runner owns its own Trace, so concurrent runs never interleave entries.
type Trace struct {
	mu      sync.Mutex
	entries []models.AgentStepResult
}

// NewTrace creates an empty Trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Append adds a step result to the end of the trace.
func (t *Trace) Append(result models.AgentStepResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, result)
}

// Entries returns a copy of all entries in insertion order.
func (t *Trace) Entries() []models.AgentStepResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.AgentStepResult, len(t.entries))
	copy(out, t.entries)
	return out
}

// Clear removes all entries.
func (t *Trace) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Len returns the number of recorded entries.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
