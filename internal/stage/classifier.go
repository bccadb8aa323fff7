package stage

import (
	"pipeline-console-go/internal/snapshot"
	"pipeline-console-go/internal/types"
)

// Baseline percentages contributed by each completed pipeline stage. The
// ladder is strictly ordered: a later stage never lowers an earlier rung.
const (
	BaselineAnalyzed   = 25.0
	BaselinePlanned    = 50.0
	BaselineWorkflowed = 75.0
	BaselineExecuted   = 100.0
)

// Flags are the stage-readiness booleans derived from domain evidence.
type Flags struct {
	Analyzed   bool
	Planned    bool
	Workflowed bool
	Executed   bool
}

// Classify derives a baseline completion percentage and stage flags for one
// transcript purely from the presence and status of its domain records.
// Total over all inputs: a transcript with no records classifies to zero.
func Classify(transcriptID string, snap *snapshot.Store) (float64, Flags) {
	var flags Flags
	baseline := 0.0

	if a, ok := snap.LatestAnalysis(transcriptID); ok && a.Complete() {
		flags.Analyzed = true
		baseline = BaselineAnalyzed
	}
	if snap.HasPlan(transcriptID) {
		flags.Planned = true
		baseline = BaselinePlanned
	}
	workflows := snap.WorkflowsFor(transcriptID)
	if len(workflows) > 0 {
		flags.Workflowed = true
		baseline = BaselineWorkflowed
		if executedCount(workflows) == len(workflows) {
			flags.Executed = true
			baseline = BaselineExecuted
		}
	}
	return baseline, flags
}

func executedCount(workflows []types.Workflow) int {
	n := 0
	for _, w := range workflows {
		if w.Status == types.WorkflowExecuted {
			n++
		}
	}
	return n
}
