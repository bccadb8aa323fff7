package types

import (
	"strings"
	"time"
)

// RunStatus is the lifecycle status of an orchestration run.
// STARTED -> RUNNING -> {COMPLETED | FAILED}; the last two are terminal.
type RunStatus string

const (
	RunStarted   RunStatus = "STARTED"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// Active reports whether the run is still being worked by the backend.
func (s RunStatus) Active() bool {
	return s == RunStarted || s == RunRunning
}

// Terminal reports whether the run can make no further progress.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// Stage is the run's self-reported milestone token. It is either one of the
// fixed milestones below or a per-transcript PROCESSING_<transcriptID> marker.
type Stage string

const (
	StageAnalysisCompleted  Stage = "ANALYSIS_COMPLETED"
	StagePlanCompleted      Stage = "PLAN_COMPLETED"
	StageWorkflowsCompleted Stage = "WORKFLOWS_COMPLETED"
	StageExecutionCompleted Stage = "EXECUTION_COMPLETED"
	StageComplete           Stage = "COMPLETE"
)

const processingPrefix = "PROCESSING_"

// ProcessingTranscript extracts the transcript ID from a PROCESSING_<id>
// stage token. ok is false for milestone tokens and malformed markers.
func (s Stage) ProcessingTranscript() (id string, ok bool) {
	raw := string(s)
	if !strings.HasPrefix(raw, processingPrefix) {
		return "", false
	}
	id = raw[len(processingPrefix):]
	return id, id != ""
}

// RunResult is a discrete per-transcript completion record reported by a run.
// Its presence means that transcript is done regardless of the aggregate stage.
type RunResult struct {
	TranscriptID string `json:"transcript_id"`
	Error        string `json:"error,omitempty"`
}

// OrchestrationRun is one backend pipeline invocation over a set of
// transcripts, as reported by the run-status and run-listing endpoints.
type OrchestrationRun struct {
	ID            string      `json:"run_id"`
	TranscriptIDs []string    `json:"transcript_ids,omitempty"`
	Status        RunStatus   `json:"status"`
	Stage         Stage       `json:"stage,omitempty"`
	WorkflowCount int         `json:"workflow_count,omitempty"`
	ExecutedCount int         `json:"executed_count,omitempty"`
	Results       []RunResult `json:"results,omitempty"`
	StartedAt     time.Time   `json:"started_at,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}
