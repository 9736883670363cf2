package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API response structures
type TriggerResponse struct {
	Status  string          `json:"status"`
	Result  string          `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
	RunID   string          `json:"run_id,omitempty"`
	Summary json.RawMessage `json:"summary,omitempty"`
}

type PreviewRow struct {
	ID        int64  `json:"id"`
	Zone      string `json:"zone"`
	Label     string `json:"label"`
	Level     string `json:"level"`
	Owner     string `json:"owner"`
	DueDate   string `json:"due_date,omitempty"`
	Staleness string `json:"staleness"`
}

type PreviewResponse struct {
	Report      string       `json:"report"`
	Recipient   string       `json:"recipient"`
	Subject     string       `json:"subject"`
	Total       int          `json:"total"`
	Shown       int          `json:"shown"`
	Rows        []PreviewRow `json:"rows"`
	GeneratedAt string       `json:"generated_at"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version"`
	DB      string `json:"db"`
	Cache   string `json:"cache"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// TrackerClient talks to the tracker API.
type TrackerClient struct {
	BaseURL   string
	Token     string // staff bearer token
	CronToken string
	HTTP      *http.Client
}

func NewTrackerClient(baseURL, token, cronToken string) *TrackerClient {
	return &TrackerClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		CronToken: cronToken,
		HTTP:      &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *TrackerClient) makeRequest(ctx context.Context, method, path string, header http.Header) (*http.Response, error) {
	u := c.BaseURL + path
	logVerbose("Making %s request to %s", method, u)

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	logVerbose("Response status: %s", resp.Status)
	return resp, nil
}

func (c *TrackerClient) readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			msg := errResp.Error
			if msg == "" {
				msg = errResp.Message
			}
			if msg != "" {
				return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// Trigger runs a digest through the cron endpoint.
func (c *TrackerClient) Trigger(ctx context.Context, report string, async bool) (TriggerResponse, error) {
	path := "/cron/" + url.PathEscape(report)
	if async {
		path += "?mode=async"
	}
	resp, err := c.makeRequest(ctx, http.MethodPost, path, http.Header{"X-Cron-Token": {c.CronToken}})
	if err != nil {
		return TriggerResponse{}, err
	}
	body, err := c.readBody(resp)
	if err != nil {
		return TriggerResponse{}, err
	}
	var out TriggerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return TriggerResponse{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out, nil
}

// PreviewRaw fetches the caller's digest rendered as html or text.
func (c *TrackerClient) PreviewRaw(ctx context.Context, report, format string) (string, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, c.previewPath(report, format), c.authHeader())
	if err != nil {
		return "", err
	}
	body, err := c.readBody(resp)
	return string(body), err
}

// Preview fetches the caller's digest as structured rows.
func (c *TrackerClient) Preview(ctx context.Context, report string) (PreviewResponse, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, c.previewPath(report, "json"), c.authHeader())
	if err != nil {
		return PreviewResponse{}, err
	}
	body, err := c.readBody(resp)
	if err != nil {
		return PreviewResponse{}, err
	}
	var out PreviewResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return PreviewResponse{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out, nil
}

func (c *TrackerClient) Health(ctx context.Context) (HealthResponse, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return HealthResponse{}, err
	}
	body, err := c.readBody(resp)
	if err != nil {
		return HealthResponse{}, err
	}
	var out HealthResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return HealthResponse{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out, nil
}

func (c *TrackerClient) previewPath(report, format string) string {
	return "/api/v1/digests/" + url.PathEscape(report) + "/preview?format=" + url.QueryEscape(format)
}

func (c *TrackerClient) authHeader() http.Header {
	h := http.Header{}
	if c.Token != "" {
		h.Set("Authorization", "Bearer "+c.Token)
	}
	return h
}
