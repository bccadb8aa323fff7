// Package orchestrator is the REST client for the pipeline backend. It only
// reads listings and run status and forwards the few operator mutations; all
// reconciliation logic lives above it.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pipeline-console-go/internal/config"
	"pipeline-console-go/internal/logger"
	"pipeline-console-go/internal/types"
)

// API is the backend surface the engine and handlers depend on. Tests stub it.
type API interface {
	ListTranscripts(ctx context.Context) ([]types.Transcript, error)
	ListAnalyses(ctx context.Context) ([]types.Analysis, error)
	ListPlans(ctx context.Context) ([]types.Plan, error)
	ListWorkflows(ctx context.Context) ([]types.Workflow, error)
	StartRun(ctx context.Context, transcriptIDs []string, autoApprove bool) (string, error)
	RunStatus(ctx context.Context, runID string) (types.OrchestrationRun, error)
	ListRuns(ctx context.Context) ([]types.OrchestrationRun, error)
	ApproveWorkflow(ctx context.Context, workflowID string) error
	RejectWorkflow(ctx context.Context, workflowID string) error
	ExecuteWorkflow(ctx context.Context, workflowID string) error
}

// Client talks to the orchestration backend over JSON/HTTP with retry on
// transient failures. 4xx responses are permanent; 5xx and transport errors
// retry with exponential backoff inside the configured budget.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxElapsed time.Duration
	log        *logrus.Entry
}

// New creates a backend client from configuration.
func New(cfg config.Backend, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		maxElapsed: cfg.RetryMaxElapsed(),
		log:        log.WithField("component", "orchestrator"),
	}
}

var _ API = (*Client)(nil)

type startRunRequest struct {
	TranscriptIDs []string `json:"transcript_ids"`
	AutoApprove   bool     `json:"auto_approve"`
}

type startRunResponse struct {
	RunID string `json:"run_id"`
}

type runListingResponse struct {
	Runs []types.OrchestrationRun `json:"runs"`
}

// ListTranscripts fetches the transcript listing.
func (c *Client) ListTranscripts(ctx context.Context) ([]types.Transcript, error) {
	var out []types.Transcript
	if err := c.doJSON(ctx, http.MethodGet, "/api/transcripts", nil, &out); err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	return out, nil
}

// ListAnalyses fetches the analysis listing.
func (c *Client) ListAnalyses(ctx context.Context) ([]types.Analysis, error) {
	var out []types.Analysis
	if err := c.doJSON(ctx, http.MethodGet, "/api/analyses", nil, &out); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return out, nil
}

// ListPlans fetches the plan listing.
func (c *Client) ListPlans(ctx context.Context) ([]types.Plan, error) {
	var out []types.Plan
	if err := c.doJSON(ctx, http.MethodGet, "/api/plans", nil, &out); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return out, nil
}

// ListWorkflows fetches the workflow listing.
func (c *Client) ListWorkflows(ctx context.Context) ([]types.Workflow, error) {
	var out []types.Workflow
	if err := c.doJSON(ctx, http.MethodGet, "/api/workflows", nil, &out); err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return out, nil
}

// StartRun asks the backend to start a pipeline run over the given
// transcripts and returns the new run ID.
func (c *Client) StartRun(ctx context.Context, transcriptIDs []string, autoApprove bool) (string, error) {
	req := startRunRequest{TranscriptIDs: transcriptIDs, AutoApprove: autoApprove}
	var resp startRunResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/runs", req, &resp); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	if resp.RunID == "" {
		return "", fmt.Errorf("start run: backend returned no run_id")
	}
	return resp.RunID, nil
}

// RunStatus fetches the current status of one run.
func (c *Client) RunStatus(ctx context.Context, runID string) (types.OrchestrationRun, error) {
	var out types.OrchestrationRun
	path := "/api/runs/" + url.PathEscape(runID) + "/status"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return types.OrchestrationRun{}, fmt.Errorf("run status %s: %w", runID, err)
	}
	if out.ID == "" {
		out.ID = runID
	}
	return out, nil
}

// ListRuns fetches the run listing.
func (c *Client) ListRuns(ctx context.Context) ([]types.OrchestrationRun, error) {
	var resp runListingResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/runs", nil, &resp); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return resp.Runs, nil
}

// ApproveWorkflow approves one workflow. The effect is observed only through
// a later workflow listing poll.
func (c *Client) ApproveWorkflow(ctx context.Context, workflowID string) error {
	return c.workflowAction(ctx, workflowID, "approve")
}

// RejectWorkflow rejects one workflow.
func (c *Client) RejectWorkflow(ctx context.Context, workflowID string) error {
	return c.workflowAction(ctx, workflowID, "reject")
}

// ExecuteWorkflow executes one approved workflow.
func (c *Client) ExecuteWorkflow(ctx context.Context, workflowID string) error {
	return c.workflowAction(ctx, workflowID, "execute")
}

func (c *Client) workflowAction(ctx context.Context, workflowID, action string) error {
	path := "/api/workflows/" + url.PathEscape(workflowID) + "/" + action
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("%s workflow %s: %w", action, workflowID, err)
	}
	return nil
}

// doJSON performs one JSON request with retry. The request body is marshaled
// once and replayed per attempt.
func (c *Client) doJSON(ctx context.Context, method, path string, body, target any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	endpoint := c.baseURL + path
	reqID := uuid.New().String()
	log := c.log.WithFields(logrus.Fields{"method": method, "path": path, "req_id": reqID})

	operation := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", reqID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.WithError(err).Debug("request failed, will retry")
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode >= 500:
			err := fmt.Errorf("server error %d: %s", resp.StatusCode, respBody)
			log.WithError(err).Debug("server error, will retry")
			return err
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("request rejected %d: %s", resp.StatusCode, respBody))
		}

		if target == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, target); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}
