// Package runstatus maps an orchestration run's self-reported stage token to
// signaled completion percentages. All functions are pure and total; unknown
// or missing tokens interpret as a no-op signal so a malformed status poll
// never disturbs baseline-driven progress.
package runstatus

import (
	"pipeline-console-go/internal/types"
)

// Milestone percentages for the fixed stage tokens.
const (
	PercentAnalysis  = 25.0
	PercentPlan      = 50.0
	PercentWorkflows = 75.0
	PercentExecution = 100.0
)

// Signal is the interpreter's verdict for one run-status payload.
//
// Percent applies to every transcript in AppliesTo. Floored lists transcripts
// that should receive the configured started floor (PROCESSING markers carry
// no percentage of their own). Completed lists transcripts individually
// reported done via result records; those are signaled at 100 regardless of
// the run's aggregate stage.
type Signal struct {
	Percent   float64
	AppliesTo []string
	Floored   []string
	Completed []string
}

// Interpret derives a Signal from the latest run-status payload. tracked is
// the currently tracked active transcript set, used when the run does not
// declare its own transcript set.
func Interpret(run types.OrchestrationRun, tracked []string) Signal {
	var sig Signal

	scope := run.TranscriptIDs
	if len(scope) == 0 {
		scope = tracked
	}

	if id, ok := run.Stage.ProcessingTranscript(); ok {
		sig.Floored = []string{id}
	} else {
		switch run.Stage {
		case types.StageAnalysisCompleted:
			sig.Percent = PercentAnalysis
			sig.AppliesTo = scope
		case types.StagePlanCompleted:
			sig.Percent = PercentPlan
			sig.AppliesTo = scope
		case types.StageWorkflowsCompleted:
			sig.Percent = PercentWorkflows
			sig.AppliesTo = scope
		case types.StageExecutionCompleted:
			// Execution only counts as fully done when every generated
			// workflow has executed; otherwise it signals the workflow rung.
			if run.WorkflowCount > 0 && run.ExecutedCount == run.WorkflowCount {
				sig.Percent = PercentExecution
			} else {
				sig.Percent = PercentWorkflows
			}
			sig.AppliesTo = scope
		case types.StageComplete:
			sig.Percent = PercentExecution
			sig.AppliesTo = run.TranscriptIDs
			if len(sig.AppliesTo) == 0 {
				sig.AppliesTo = tracked
			}
		default:
			// Unknown or absent stage token: no signal this cycle.
		}
	}

	for _, r := range run.Results {
		if r.TranscriptID != "" {
			sig.Completed = append(sig.Completed, r.TranscriptID)
		}
	}
	return sig
}
