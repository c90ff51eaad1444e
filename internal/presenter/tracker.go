// ABOUTME: Tracker aggregates presenter events into a readable state for API clients
// ABOUTME: It subscribes to an Orchestrator and keeps status, transcript, suggestions, and last error

package presenter

import (
	"slices"
	"sync"
	"time"
)

// State is a point-in-time view of the presenter as seen by a Tracker.
type State struct {
	Status      Status    `json:"status"`
	IsActive    bool      `json:"isActive"`
	Session     *Session  `json:"session,omitempty"`
	Transcript  []string  `json:"transcript"`
	Suggestions []string  `json:"suggestions"`
	Error       string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Tracker keeps the aggregated presenter state.
type Tracker struct {
	orch        *Orchestrator
	unsubscribe func()
	now         func() time.Time

	mu          sync.RWMutex
	status      Status
	transcript  []string
	suggestions []string
	lastErr     string
	lastUpdated time.Time
}

// NewTracker subscribes a tracker to orch. Call Close to detach it.
func NewTracker(orch *Orchestrator) *Tracker {
	t := &Tracker{
		orch:   orch,
		now:    time.Now,
		status: orch.Status(),
	}
	t.lastUpdated = t.now()
	t.unsubscribe = orch.Subscribe(t.handle)
	return t
}

func (t *Tracker) handle(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev := e.(type) {
	case StatusEvent:
		t.status = ev.Status
		if ev.Status == StatusIdle {
			t.suggestions = nil
		}
	case ResponseEvent:
		t.transcript = append(t.transcript, ev.Text)
		t.suggestions = slices.Clone(ev.Suggestions)
		t.lastErr = ""
	case ErrorEvent:
		t.lastErr = ev.Message
	}
	t.lastUpdated = t.now()
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() State {
	sess, live := t.orch.ActiveSession()

	t.mu.RLock()
	defer t.mu.RUnlock()

	st := State{
		Status:      t.status,
		IsActive:    live && t.status != StatusIdle,
		Transcript:  cloneOrEmpty(t.transcript),
		Suggestions: cloneOrEmpty(t.suggestions),
		Error:       t.lastErr,
		LastUpdated: t.lastUpdated,
	}
	if live {
		st.Session = &sess
	}
	return st
}

// Reset clears transcript, suggestions and error. Status is left alone.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transcript = nil
	t.suggestions = nil
	t.lastErr = ""
	t.lastUpdated = t.now()
}

// Close detaches the tracker from its orchestrator.
func (t *Tracker) Close() {
	t.unsubscribe()
}

func cloneOrEmpty(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	return slices.Clone(in)
}
