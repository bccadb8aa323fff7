package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pipeline-console-go/internal/engine"
	"pipeline-console-go/internal/types"
)

// consoleClient talks to the dashboard API service (cmd/api). The base URL
// pointer follows the persistent --server flag.
type consoleClient struct {
	baseURL    *string
	httpClient http.Client
}

func (c *consoleClient) init() {
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = 10 * time.Second
	}
}

func (c *consoleClient) getJSON(ctx context.Context, path string, target any) error {
	c.init()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s (%d)", path, bytes.TrimSpace(body), resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func (c *consoleClient) progress(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := c.getJSON(ctx, "/api/progress", &snap)
	return snap, err
}

func (c *consoleClient) runs(ctx context.Context) ([]types.OrchestrationRun, error) {
	var resp struct {
		Runs []types.OrchestrationRun `json:"runs"`
	}
	err := c.getJSON(ctx, "/api/runs", &resp)
	return resp.Runs, err
}

func (c *consoleClient) startRun(ctx context.Context, transcriptIDs []string, autoApprove bool) (string, error) {
	c.init()
	payload, err := json.Marshal(map[string]any{
		"transcript_ids": transcriptIDs,
		"auto_approve":   autoApprove,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *c.baseURL+"/api/runs", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("start run: %s (%d)", bytes.TrimSpace(body), resp.StatusCode)
	}
	var out struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.RunID, nil
}

func (c *consoleClient) report(ctx context.Context, w io.Writer) error {
	c.init()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *c.baseURL+"/api/report", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("report: %s (%d)", bytes.TrimSpace(body), resp.StatusCode)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
