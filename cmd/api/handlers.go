package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pipeline-console-go/internal/engine"
	"pipeline-console-go/internal/export"
	"pipeline-console-go/internal/logger"
	"pipeline-console-go/internal/orchestrator"
	"pipeline-console-go/internal/types"
)

type server struct {
	log    *logger.Logger
	eng    *engine.Engine
	client orchestrator.API
}

func newServer(log *logger.Logger, eng *engine.Engine, client orchestrator.API) *server {
	return &server{log: log, eng: eng, client: client}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /api/progress/{transcriptID}", s.handleProgressOne)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/runs", s.handleStartRun)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/transcripts", s.handleTranscripts)
	mux.HandleFunc("GET /api/analyses", s.handleAnalyses)
	mux.HandleFunc("GET /api/plans", s.handlePlans)
	mux.HandleFunc("GET /api/workflows", s.handleWorkflows)
	mux.HandleFunc("POST /api/workflows/{workflowID}/{action}", s.handleWorkflowAction)
	mux.HandleFunc("GET /api/report", s.handleReport)
	return mux
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("failed to write response")
	}
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.eng.Snapshot())
}

func (s *server) handleProgressOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("transcriptID")
	for _, v := range s.eng.Snapshot().Transcripts {
		if v.TranscriptID == id {
			s.writeJSON(w, r, http.StatusOK, v)
			return
		}
	}
	http.Error(w, "transcript not tracked", http.StatusNotFound)
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	since := int64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		since = parsed
	}
	events := s.eng.Events(since)
	if events == nil {
		events = []engine.Event{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"events": events})
}

func (s *server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "start_run")

	var req struct {
		TranscriptIDs []string `json:"transcript_ids"`
		AutoApprove   bool     `json:"auto_approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reqLog.WithField("error", err.Error()).Warn("bad request body")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.TranscriptIDs) == 0 {
		http.Error(w, "transcript_ids required", http.StatusBadRequest)
		return
	}

	runID, err := s.eng.StartRun(r.Context(), req.TranscriptIDs, req.AutoApprove)
	if err != nil {
		reqLog.WithField("error", err.Error()).Error("start run failed")
		http.Error(w, "failed to start run", http.StatusBadGateway)
		return
	}
	reqLog.WithField("run_id", runID).Info("run started")
	s.writeJSON(w, r, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.eng.Store().Runs()
	if runs == nil {
		runs = []types.OrchestrationRun{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"runs": runs})
}

func (s *server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.eng.Store().Transcripts())
}

func (s *server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.eng.Store().Analyses())
}

func (s *server) handlePlans(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.eng.Store().Plans())
}

func (s *server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.eng.Store().Workflows())
}

// handleWorkflowAction forwards approve/reject/execute to the backend. The
// engine never reacts to the mutation itself; the effect shows up in the
// next workflow listing poll.
func (s *server) handleWorkflowAction(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflowID")
	action := r.PathValue("action")
	reqLog := s.log.WithRequest(r).WithField("workflow_id", workflowID).WithField("action", action)

	var err error
	switch action {
	case "approve":
		err = s.client.ApproveWorkflow(r.Context(), workflowID)
	case "reject":
		err = s.client.RejectWorkflow(r.Context(), workflowID)
	case "execute":
		err = s.client.ExecuteWorkflow(r.Context(), workflowID)
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	if err != nil {
		reqLog.WithField("error", err.Error()).Error("workflow action failed")
		http.Error(w, "workflow action failed", http.StatusBadGateway)
		return
	}
	reqLog.Info("workflow action forwarded")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap := s.eng.Snapshot()
	f, err := export.BuildReport(snap.RunID, snap.Transcripts, s.eng.Store().Transcripts(), s.eng.Store().Workflows())
	if err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("report build failed")
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="pipeline-progress.xlsx"`)
	if _, err := f.WriteTo(w); err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("report write failed")
	}
}
