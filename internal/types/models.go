package types

import (
	"strings"
	"time"
)

// Transcript is one recorded customer conversation. Immutable once listed.
type Transcript struct {
	ID          string    `json:"id"`
	Customer    string    `json:"customer,omitempty"`
	Topic       string    `json:"topic,omitempty"`
	DurationSec float64   `json:"duration_sec,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Analysis is the backend's analysis record for one transcript. Status is
// free-form text; completion is detected by token, not exact match.
type Analysis struct {
	ID           string    `json:"id"`
	TranscriptID string    `json:"transcript_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Complete reports whether the analysis status carries a done/complete token.
func (a Analysis) Complete() bool {
	s := strings.ToLower(a.Status)
	return strings.Contains(s, "complete") || strings.Contains(s, "done")
}

// Plan is an action plan derived from an analysis. Its presence alone marks
// the plan stage done; no internal state matters here.
type Plan struct {
	PlanID       string    `json:"plan_id"`
	TranscriptID string    `json:"transcript_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// WorkflowType categorizes who a generated workflow is for.
type WorkflowType string

const (
	WorkflowTypeBorrower   WorkflowType = "BORROWER"
	WorkflowTypeAdvisor    WorkflowType = "ADVISOR"
	WorkflowTypeSupervisor WorkflowType = "SUPERVISOR"
	WorkflowTypeLeadership WorkflowType = "LEADERSHIP"
)

// WorkflowStatus tracks a workflow through assessment, approval, and execution.
type WorkflowStatus string

const (
	WorkflowPendingAssessment WorkflowStatus = "PENDING_ASSESSMENT"
	WorkflowAwaitingApproval  WorkflowStatus = "AWAITING_APPROVAL"
	WorkflowAutoApproved      WorkflowStatus = "AUTO_APPROVED"
	WorkflowApproved          WorkflowStatus = "APPROVED"
	WorkflowRejected          WorkflowStatus = "REJECTED"
	WorkflowExecuted          WorkflowStatus = "EXECUTED"
)

// Workflow is one generated remediation workflow for a transcript. Risk and
// priority are display metadata only.
type Workflow struct {
	ID           string         `json:"id"`
	TranscriptID string         `json:"transcript_id"`
	Type         WorkflowType   `json:"workflow_type"`
	Status       WorkflowStatus `json:"status"`
	RiskLevel    string         `json:"risk_level,omitempty"`
	Priority     string         `json:"priority,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
}
