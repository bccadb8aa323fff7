package snapshot

import (
	"sync"

	"pipeline-console-go/internal/types"
)

// Collection identifies one independently polled listing.
type Collection string

const (
	Transcripts Collection = "transcripts"
	Analyses    Collection = "analyses"
	Plans       Collection = "plans"
	Workflows   Collection = "workflows"
	Runs        Collection = "runs"
)

// Store holds the latest polled snapshot of each backend collection. Each
// listing poll replaces its collection wholesale; the store never merges
// partial updates. Reads are safe from any goroutine; writes come from the
// reconcile loop only.
type Store struct {
	mu          sync.RWMutex
	transcripts []types.Transcript
	analyses    []types.Analysis
	plans       []types.Plan
	workflows   []types.Workflow
	runs        []types.OrchestrationRun
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// SetTranscripts replaces the transcript listing.
func (s *Store) SetTranscripts(list []types.Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append([]types.Transcript(nil), list...)
}

// SetAnalyses replaces the analysis listing.
func (s *Store) SetAnalyses(list []types.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = append([]types.Analysis(nil), list...)
}

// SetPlans replaces the plan listing.
func (s *Store) SetPlans(list []types.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = append([]types.Plan(nil), list...)
}

// SetWorkflows replaces the workflow listing.
func (s *Store) SetWorkflows(list []types.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows = append([]types.Workflow(nil), list...)
}

// SetRuns replaces the run listing.
func (s *Store) SetRuns(list []types.OrchestrationRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append([]types.OrchestrationRun(nil), list...)
}

// Invalidate drops one cached collection so the next poll repopulates it
// from ground truth.
func (s *Store) Invalidate(col Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked(col)
}

// InvalidateAll drops every cached collection. Used when a tracked run
// terminates and pre-completion listings may be stale.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, col := range []Collection{Transcripts, Analyses, Plans, Workflows, Runs} {
		s.invalidateLocked(col)
	}
}

func (s *Store) invalidateLocked(col Collection) {
	switch col {
	case Transcripts:
		s.transcripts = nil
	case Analyses:
		s.analyses = nil
	case Plans:
		s.plans = nil
	case Workflows:
		s.workflows = nil
	case Runs:
		s.runs = nil
	}
}

// Transcripts returns a copy of the transcript listing.
func (s *Store) Transcripts() []types.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Transcript(nil), s.transcripts...)
}

// Analyses returns a copy of the analysis listing.
func (s *Store) Analyses() []types.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Analysis(nil), s.analyses...)
}

// Plans returns a copy of the plan listing.
func (s *Store) Plans() []types.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Plan(nil), s.plans...)
}

// Workflows returns a copy of the workflow listing.
func (s *Store) Workflows() []types.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Workflow(nil), s.workflows...)
}

// Runs returns a copy of the run listing.
func (s *Store) Runs() []types.OrchestrationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.OrchestrationRun(nil), s.runs...)
}

// LatestAnalysis returns the newest analysis for a transcript, by created_at.
// Duplicate records are expected from weakly consistent listings.
func (s *Store) LatestAnalysis(transcriptID string) (types.Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best types.Analysis
	found := false
	for _, a := range s.analyses {
		if a.TranscriptID != transcriptID {
			continue
		}
		if !found || a.CreatedAt.After(best.CreatedAt) {
			best = a
			found = true
		}
	}
	return best, found
}

// HasPlan reports whether any plan exists for a transcript.
func (s *Store) HasPlan(transcriptID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.TranscriptID == transcriptID {
			return true
		}
	}
	return false
}

// WorkflowsFor returns all workflows for one transcript.
func (s *Store) WorkflowsFor(transcriptID string) []types.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Workflow
	for _, w := range s.workflows {
		if w.TranscriptID == transcriptID {
			out = append(out, w)
		}
	}
	return out
}
