package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"jobdesk/internal/domain"
	"jobdesk/internal/query"
)

// Brief is a one-shot overview of a job assembled from several tool calls.
type Brief struct {
	JobID      string         `json:"jobId"`
	Status     map[string]any `json:"status"`
	Payments   any            `json:"payments"`
	Comparison any            `json:"comparison"`
	Executions []string       `json:"executions"`
}

type briefCall struct {
	key  string
	tool string
	args map[string]any
}

// Brief runs the overview tools for jobID concurrently. Each call is recorded
// like any other execution; a failing tool leaves its error record in place
// of the section.
func (e Engine) Brief(ctx context.Context, jobID string) (Brief, error) {
	calls := []briefCall{
		{key: domain.StatusNotStarted, tool: ToolQuerySchedule, args: map[string]any{"status": domain.StatusNotStarted, "returnType": "count"}},
		{key: domain.StatusInProgress, tool: ToolQuerySchedule, args: map[string]any{"status": domain.StatusInProgress, "returnType": "count"}},
		{key: domain.StatusCompleted, tool: ToolQuerySchedule, args: map[string]any{"status": domain.StatusCompleted, "returnType": "count"}},
		{key: "payments", tool: ToolQueryPaymentSchedule, args: map[string]any{"returnType": "summary"}},
		{key: "comparison", tool: ToolGetComparisonSummary, args: map[string]any{}},
	}
	results := make([]domain.ToolExecution, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			exec, err := e.Execute(gctx, Request{JobID: jobID, Tool: call.tool, Args: call.args})
			if err != nil {
				return fmt.Errorf("%s: %w", call.tool, err)
			}
			results[i] = exec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Brief{}, err
	}

	b := Brief{JobID: jobID, Status: map[string]any{}}
	for i, call := range calls {
		exec := results[i]
		b.Executions = append(b.Executions, exec.ID)
		switch call.key {
		case "payments":
			b.Payments = exec.Result
		case "comparison":
			b.Comparison = exec.Result
		default:
			b.Status[call.key] = countOf(exec)
		}
	}
	return b, nil
}

func countOf(exec domain.ToolExecution) any {
	if exec.IsError {
		return exec.Result
	}
	if c, ok := exec.Result.(query.ScheduleCount); ok {
		return c.Count
	}
	return exec.Result
}
