package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"jobdesk/internal/config"
	"jobdesk/internal/domain"
	"jobdesk/internal/events"
	"jobdesk/internal/query"
	"jobdesk/internal/repo"
	"jobdesk/internal/tools"
)

// ErrUnknownTool is returned by Execute when no tool has the requested name.
var ErrUnknownTool = errors.New("unknown tool")

// JobSource loads job documents for the job tools.
type JobSource interface {
	GetJob(ctx context.Context, companyID, jobID string) (domain.Job, error)
	SearchJobs(ctx context.Context, companyID, query string) ([]domain.JobSummary, error)
}

// ComparisonSource fetches budget-vs-actual data for a job.
type ComparisonSource interface {
	Fetch(ctx context.Context, companyID, jobID string) (domain.ComparisonData, error)
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Logger *zap.Logger
	Tools  *tools.Registry
	Now    func() time.Time
}

// New wires the engine over db. Job tools read from the repo; comparison
// tools read from cmp.
func New(db *sql.DB, cfg *config.Config, cmp ComparisonSource, logger *zap.Logger) Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := repo.Repo{DB: db}
	return Engine{
		DB:     db,
		Repo:   r,
		Events: events.Writer{DB: db},
		Config: cfg,
		Logger: logger,
		Tools:  Catalog(r, cmp),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) companyID() string {
	if e.Config == nil {
		return ""
	}
	return e.Config.Company.ID
}

// Request is one tool call against a job.
type Request struct {
	JobID string
	Tool  string
	Args  map[string]any
}

// Execute runs a tool and records it in the execution log. Tool failures
// (missing tasks, bad arguments, an unavailable upstream) come back as a
// structured error result with IsError set. The returned error is reserved
// for unknown tools and cancelled contexts.
func (e Engine) Execute(ctx context.Context, req Request) (domain.ToolExecution, error) {
	if err := ctx.Err(); err != nil {
		return domain.ToolExecution{}, err
	}
	if e.Tools == nil || !e.Tools.Has(req.Tool) {
		return domain.ToolExecution{}, fmt.Errorf("%w: %s", ErrUnknownTool, req.Tool)
	}
	if req.Args == nil {
		req.Args = map[string]any{}
	}
	start := e.now()
	out, err := e.Tools.Execute(ctx, req.Tool, req.Args, tools.Scope{CompanyID: e.companyID(), JobID: req.JobID})
	if err != nil && ctx.Err() != nil {
		return domain.ToolExecution{}, ctx.Err()
	}
	exec := domain.ToolExecution{
		TS:         start.UTC().Format(time.RFC3339Nano),
		JobID:      req.JobID,
		Tool:       req.Tool,
		Args:       req.Args,
		Result:     out,
		DurationMs: e.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		exec.Result = errorRecord(err)
		exec.IsError = true
	}
	if req.Tool == ToolGetCurrentJobData && !exec.IsError {
		exec.SwitchedJobID, _ = req.Args["jobId"].(string)
	}

	log := e.Logger.With(zap.String("tool", req.Tool), zap.String("job_id", req.JobID))
	if e.DB != nil {
		stored, werr := e.Events.Append(ctx, e.companyID(), exec)
		if werr != nil {
			log.Warn("record tool execution", zap.Error(werr))
		}
		exec = stored
	}
	log.Info("tool executed",
		zap.String("execution_id", exec.ID),
		zap.Int64("duration_ms", exec.DurationMs),
		zap.Bool("is_error", exec.IsError),
	)
	return exec, nil
}

// errorRecord converts a tool failure into the record handed back to the
// agent.
func errorRecord(err error) any {
	var lookup *query.LookupError
	if errors.As(err, &lookup) {
		return lookup
	}
	var te *toolError
	if errors.As(err, &te) {
		return te.record
	}
	return map[string]any{"error": err.Error()}
}

// History lists recorded tool executions, newest first.
func (e Engine) History(ctx context.Context, f repo.ExecutionFilter) ([]domain.ToolExecution, error) {
	return e.Repo.LatestExecutions(ctx, f)
}

// ImportJob stores a job document for the configured company.
func (e Engine) ImportJob(ctx context.Context, doc []byte) (domain.Job, error) {
	job, err := e.Repo.UpsertJob(ctx, e.companyID(), doc, e.now().UTC().Format(time.RFC3339))
	if err != nil {
		return domain.Job{}, err
	}
	e.Logger.Info("job imported",
		zap.String("job_id", job.DocumentID),
		zap.Int("tasks", len(job.Schedule)),
		zap.Int("dropped_rows", job.Dropped),
	)
	return job, nil
}

// Session tracks the active job across a sequence of calls. Loading another
// job with get_current_job_data makes it the target of later calls.
type Session struct {
	Engine Engine
	JobID  string
}

func (s *Session) Call(ctx context.Context, tool string, args map[string]any) (domain.ToolExecution, error) {
	exec, err := s.Engine.Execute(ctx, Request{JobID: s.JobID, Tool: tool, Args: args})
	if err != nil {
		return exec, err
	}
	if exec.SwitchedJobID != "" {
		s.JobID = exec.SwitchedJobID
	}
	return exec, nil
}
