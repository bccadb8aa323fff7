// Package export writes operator-facing xlsx progress reports.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"pipeline-console-go/internal/progress"
	"pipeline-console-go/internal/types"
)

const (
	progressSheet = "Progress"
	summarySheet  = "Summary"
)

// BuildReport renders the current progress picture into a workbook: one row
// per transcript plus a summary sheet. The caller owns the returned file.
func BuildReport(runID string, views []progress.View, transcripts []types.Transcript, workflows []types.Workflow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	labels := map[string]types.Transcript{}
	for _, tr := range transcripts {
		labels[tr.ID] = tr
	}
	wfByTranscript := map[string][]types.Workflow{}
	for _, w := range workflows {
		wfByTranscript[w.TranscriptID] = append(wfByTranscript[w.TranscriptID], w)
	}

	header := []interface{}{
		"Transcript", "Customer", "Topic",
		"Analyzed", "Planned", "Workflows", "Executed",
		"Workflow Count", "Executed Count", "Target %", "Displayed %",
	}
	if err := f.SetSheetRow(progressSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	fullyExecuted := 0
	for i, v := range views {
		tr := labels[v.TranscriptID]
		wfs := wfByTranscript[v.TranscriptID]
		executed := 0
		for _, w := range wfs {
			if w.Status == types.WorkflowExecuted {
				executed++
			}
		}
		if v.ExecuteComplete {
			fullyExecuted++
		}
		row := []interface{}{
			v.TranscriptID, tr.Customer, tr.Topic,
			yesNo(v.AnalyzeReady), yesNo(v.PlanReady), yesNo(v.WorkflowReady), yesNo(v.ExecuteComplete),
			len(wfs), executed, v.TargetProgress, v.DisplayedProgress,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(progressSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Run", runID},
		{"Generated", time.Now().UTC().Format(time.RFC3339)},
		{"Transcripts", len(views)},
		{"Fully Executed", fullyExecuted},
		{"Workflows", len(workflows)},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		row := row
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return f, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
