// Package progress owns per-transcript progress state: the authoritative,
// monotonically non-decreasing target percentage and the animated displayed
// percentage that chases it. A Tracker is owned by a single goroutine (the
// engine reconcile loop); it holds no locks of its own.
package progress

import (
	"sort"

	"pipeline-console-go/internal/stage"
)

type entry struct {
	target    float64
	displayed float64
}

// Tracker maps tracked transcript IDs to their progress pair. Apply is the
// only code path that writes target, which keeps the monotonicity invariant
// enforceable in one place.
type Tracker struct {
	entries map[string]*entry
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Track begins tracking a transcript, folding floor into its target. Safe to
// call for an already-tracked transcript; the floor merges like any other
// candidate and never regresses the target.
func (t *Tracker) Track(id string, floor float64) {
	if _, ok := t.entries[id]; !ok {
		t.entries[id] = &entry{}
	}
	t.Apply(id, floor)
}

// Tracked reports whether a transcript is currently tracked.
func (t *Tracker) Tracked(id string) bool {
	_, ok := t.entries[id]
	return ok
}

// IDs returns the tracked transcript IDs in sorted order.
func (t *Tracker) IDs() []string {
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply folds candidate percentages into the transcript's target:
// newTarget = max(previous, candidates...), clamped to [0,100]. The max fold
// is commutative and idempotent, so stale or re-ordered samples never regress
// the target. Untracked transcripts are ignored.
func (t *Tracker) Apply(id string, candidates ...float64) (float64, bool) {
	e, ok := t.entries[id]
	if !ok {
		return 0, false
	}
	next := e.target
	for _, c := range candidates {
		if c > next {
			next = c
		}
	}
	if next < 0 {
		next = 0
	}
	if next > 100 {
		next = 100
	}
	e.target = next
	return next, true
}

// Target returns the transcript's target percentage.
func (t *Tracker) Target(id string) (float64, bool) {
	e, ok := t.entries[id]
	if !ok {
		return 0, false
	}
	return e.target, true
}

// Displayed returns the transcript's displayed percentage.
func (t *Tracker) Displayed(id string) (float64, bool) {
	e, ok := t.entries[id]
	if !ok {
		return 0, false
	}
	return e.displayed, true
}

// Clear drops all tracked transcripts. Used when the owning run leaves
// tracking; targets are discarded wholesale, never decreased in place.
func (t *Tracker) Clear() {
	t.entries = make(map[string]*entry)
}

// View is the read-only per-transcript picture published to consumers.
// Readiness flags derive from target, not displayed, so checkmarks shown
// elsewhere never lag behind truth while the bar is still easing.
type View struct {
	TranscriptID      string  `json:"transcript_id"`
	TargetProgress    float64 `json:"target_progress"`
	DisplayedProgress float64 `json:"displayed_progress"`
	AnalyzeReady      bool    `json:"analyze_ready"`
	PlanReady         bool    `json:"plan_ready"`
	WorkflowReady     bool    `json:"workflow_ready"`
	ExecuteComplete   bool    `json:"execute_complete"`
}

// View builds the published picture for one transcript.
func (t *Tracker) View(id string) (View, bool) {
	e, ok := t.entries[id]
	if !ok {
		return View{}, false
	}
	return View{
		TranscriptID:      id,
		TargetProgress:    e.target,
		DisplayedProgress: e.displayed,
		AnalyzeReady:      e.target >= stage.BaselineAnalyzed,
		PlanReady:         e.target >= stage.BaselinePlanned,
		WorkflowReady:     e.target >= stage.BaselineWorkflowed,
		ExecuteComplete:   e.target >= stage.BaselineExecuted,
	}, true
}

// Views returns the published picture for every tracked transcript, ordered
// by transcript ID.
func (t *Tracker) Views() []View {
	ids := t.IDs()
	out := make([]View, 0, len(ids))
	for _, id := range ids {
		v, _ := t.View(id)
		out = append(out, v)
	}
	return out
}
