package jobdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal jobdesk HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// JobSummary is the search-result view of a job.
type JobSummary struct {
	DocumentID   string `json:"documentId"`
	ProjectTitle string `json:"projectTitle"`
	ClientName   string `json:"clientName"`
	SiteStreet   string `json:"siteStreet,omitempty"`
	SiteCity     string `json:"siteCity,omitempty"`
	JobPrefix    string `json:"jobPrefix,omitempty"`
	Status       string `json:"status"`
	CreatedDate  string `json:"createdDate,omitempty"`
}

// ToolDefinition is a function declaration an agent can register.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Parameters  struct {
		Type       string                    `json:"type"`
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	} `json:"parameters"`
}

// Execution is one recorded tool call. Result holds the raw result record.
type Execution struct {
	ID            string          `json:"id"`
	TS            string          `json:"ts"`
	JobID         string          `json:"job_id"`
	Tool          string          `json:"tool"`
	Args          map[string]any  `json:"args"`
	Result        json.RawMessage `json:"result"`
	IsError       bool            `json:"is_error"`
	DurationMs    int64           `json:"duration_ms"`
	SwitchedJobID string          `json:"switched_job_id,omitempty"`
}

// Brief is the concurrent overview of one job.
type Brief struct {
	JobID      string          `json:"job_id"`
	Status     map[string]any  `json:"status"`
	Payments   json.RawMessage `json:"payments"`
	Comparison json.RawMessage `json:"comparison"`
	Executions []string        `json:"executions"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Tools lists the tool definitions, optionally for one category.
func (c *Client) Tools(ctx context.Context, category string) ([]ToolDefinition, error) {
	endpoint := "v0/tools"
	if category != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}
	var resp []ToolDefinition
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SearchJobs lists jobs whose title, client, street or prefix contains query.
func (c *Client) SearchJobs(ctx context.Context, query string) ([]JobSummary, error) {
	var resp struct {
		Items []JobSummary `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/jobs?query="+url.QueryEscape(query), nil, &resp)
	return resp.Items, err
}

// ImportJob uploads a job document.
func (c *Client) ImportJob(ctx context.Context, doc json.RawMessage) (JobSummary, error) {
	var resp JobSummary
	err := c.do(ctx, http.MethodPost, "v0/jobs", doc, &resp)
	return resp, err
}

// Call runs a tool against a job. A tool-level failure is reported through
// Execution.IsError, not as an error.
func (c *Client) Call(ctx context.Context, jobID, tool string, args map[string]any) (Execution, error) {
	if args == nil {
		args = map[string]any{}
	}
	var resp Execution
	endpoint := fmt.Sprintf("v0/jobs/%s/tools/%s", url.PathEscape(jobID), url.PathEscape(tool))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"args": args}, &resp)
	return resp, err
}

// Brief fetches the overview of a job.
func (c *Client) Brief(ctx context.Context, jobID string) (Brief, error) {
	var resp Brief
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/jobs/%s/brief", url.PathEscape(jobID)), nil, &resp)
	return resp, err
}

// Executions lists recorded tool calls, newest first.
func (c *Client) Executions(ctx context.Context, jobID, tool string, limit int) ([]Execution, error) {
	q := url.Values{}
	if jobID != "" {
		q.Set("job_id", jobID)
	}
	if tool != "" {
		q.Set("tool", tool)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	endpoint := "v0/executions"
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	var resp struct {
		Items []Execution `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case json.RawMessage:
		buf.Write(b)
	default:
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
