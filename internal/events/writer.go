// Package events records tool executions in the execution log.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobdesk/internal/domain"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Append stores one tool execution, filling in its id and timestamp when they
// are empty, and returns the stored record.
func (w Writer) Append(ctx context.Context, companyID string, exec domain.ToolExecution) (domain.ToolExecution, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}
	if exec.TS == "" {
		exec.TS = w.Now().UTC().Format(time.RFC3339Nano)
	}
	if exec.Args == nil {
		exec.Args = map[string]any{}
	}
	args, err := json.Marshal(exec.Args)
	if err != nil {
		return exec, fmt.Errorf("marshal execution args: %w", err)
	}
	result, err := json.Marshal(exec.Result)
	if err != nil {
		return exec, fmt.Errorf("marshal execution result: %w", err)
	}
	isError := 0
	if exec.IsError {
		isError = 1
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO tool_executions(id,ts,company_id,job_id,tool,args_json,result_json,is_error,duration_ms,switched_job_id) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		exec.ID, exec.TS, companyID, nullable(exec.JobID), exec.Tool, string(args), string(result), isError, exec.DurationMs, nullable(exec.SwitchedJobID))
	return exec, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
