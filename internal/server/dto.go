package server

import (
	"jobdesk/internal/domain"
	"jobdesk/internal/engine"
	"jobdesk/internal/tools"
)

// Request payloads

type ToolCallRequest struct {
	Args map[string]any `json:"args,omitempty" doc:"Flat argument record for the tool"`
}

// Response payloads

type HealthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int    `json:"schema_version"`
}

type ExecutionResponse struct {
	ID            string         `json:"id"`
	TS            string         `json:"ts" format:"date-time"`
	JobID         string         `json:"job_id,omitempty"`
	Tool          string         `json:"tool"`
	Args          map[string]any `json:"args"`
	Result        any            `json:"result"`
	IsError       bool           `json:"is_error"`
	DurationMs    int64          `json:"duration_ms"`
	SwitchedJobID string         `json:"switched_job_id,omitempty"`
}

type ToolDefinitionResponse struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Parameters  ToolParametersResponse `json:"parameters"`
}

type ToolParametersResponse struct {
	Type       string                    `json:"type"`
	Properties map[string]tools.Property `json:"properties"`
	Required   []string                  `json:"required"`
}

type JobListResponse struct {
	Items []domain.JobSummary `json:"items"`
}

type ExecutionListResponse struct {
	Items []ExecutionResponse `json:"items"`
}

type BriefResponse struct {
	JobID      string         `json:"job_id"`
	Status     map[string]any `json:"status"`
	Payments   any            `json:"payments"`
	Comparison any            `json:"comparison"`
	Executions []string       `json:"executions"`
}

func executionResponse(e domain.ToolExecution) ExecutionResponse {
	args := e.Args
	if args == nil {
		args = map[string]any{}
	}
	return ExecutionResponse{
		ID:            e.ID,
		TS:            e.TS,
		JobID:         e.JobID,
		Tool:          e.Tool,
		Args:          args,
		Result:        e.Result,
		IsError:       e.IsError,
		DurationMs:    e.DurationMs,
		SwitchedJobID: e.SwitchedJobID,
	}
}

func definitionResponse(d tools.Definition) ToolDefinitionResponse {
	return ToolDefinitionResponse{
		Name:        d.Name,
		Description: d.Description,
		Category:    string(d.Category),
		Parameters: ToolParametersResponse{
			Type:       d.Parameters.Type,
			Properties: d.Parameters.Properties,
			Required:   nonNilSlice(d.Parameters.Required),
		},
	}
}

func briefResponse(b engine.Brief) BriefResponse {
	return BriefResponse{
		JobID:      b.JobID,
		Status:     b.Status,
		Payments:   b.Payments,
		Comparison: b.Comparison,
		Executions: nonNilSlice(b.Executions),
	}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
