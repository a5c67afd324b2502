package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jobdesk/internal/domain"
)

// recentJobs bounds how many of a company's newest jobs a search scans.
const recentJobs = 50

type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidDocument = errors.New("invalid job document")
)

// JobRecord is a stored job document with its indexed header columns.
type JobRecord struct {
	ID        string
	CompanyID string
	Summary   domain.JobSummary
	CreatedAt string
	UpdatedAt string
	Document  json.RawMessage
}

// UpsertJob stores doc under companyID, keyed by its documentId. The raw
// document is kept verbatim so later reads see fields this service does not
// model.
func (r Repo) UpsertJob(ctx context.Context, companyID string, doc json.RawMessage, now string) (domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return domain.Job{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if strings.TrimSpace(job.DocumentID) == "" {
		return domain.Job{}, fmt.Errorf("%w: documentId is required", ErrInvalidDocument)
	}
	createdAt := job.CreatedDate
	if createdAt == "" {
		createdAt = now
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO jobs(id,company_id,project_title,client_name,site_street,site_city,job_prefix,status,created_at,updated_at,document_json)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(company_id, id) DO UPDATE SET project_title=excluded.project_title, client_name=excluded.client_name,
site_street=excluded.site_street, site_city=excluded.site_city, job_prefix=excluded.job_prefix, status=excluded.status,
created_at=excluded.created_at, updated_at=excluded.updated_at, document_json=excluded.document_json`,
		job.DocumentID, companyID, job.ProjectTitle, job.ClientName, job.SiteStreet, job.SiteCity, job.JobPrefix, job.Status,
		createdAt, now, string(doc))
	if err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// GetJob loads and decodes a job document.
func (r Repo) GetJob(ctx context.Context, companyID, jobID string) (domain.Job, error) {
	var raw string
	err := r.DB.QueryRowContext(ctx, `SELECT document_json FROM jobs WHERE company_id=? AND id=?`, companyID, jobID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, ErrNotFound
	}
	if err != nil {
		return domain.Job{}, err
	}
	var job domain.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return domain.Job{}, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return job, nil
}

const jobColumns = `id,company_id,project_title,client_name,site_street,site_city,job_prefix,status,created_at,updated_at`

func scanJob(rows *sql.Rows) (JobRecord, error) {
	var rec JobRecord
	s := &rec.Summary
	err := rows.Scan(&rec.ID, &rec.CompanyID, &s.ProjectTitle, &s.ClientName, &s.SiteStreet, &s.SiteCity, &s.JobPrefix, &s.Status, &rec.CreatedAt, &rec.UpdatedAt)
	s.DocumentID = rec.ID
	s.CreatedDate = rec.CreatedAt
	return rec, err
}

// ListJobs returns a company's jobs, newest first. limit <= 0 means no limit.
func (r Repo) ListJobs(ctx context.Context, companyID string, limit int) ([]JobRecord, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE company_id=? ORDER BY created_at DESC, id`
	args := []any{companyID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// SearchJobs matches query case-insensitively as a substring of the title,
// client name, street or job prefix among the company's most recent jobs.
func (r Repo) SearchJobs(ctx context.Context, companyID, query string) ([]domain.JobSummary, error) {
	recs, err := r.ListJobs(ctx, companyID, recentJobs)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	res := []domain.JobSummary{}
	for _, rec := range recs {
		s := rec.Summary
		if strings.Contains(strings.ToLower(s.ProjectTitle), q) ||
			strings.Contains(strings.ToLower(s.ClientName), q) ||
			strings.Contains(strings.ToLower(s.SiteStreet), q) ||
			strings.Contains(strings.ToLower(s.JobPrefix), q) {
			res = append(res, s)
		}
	}
	return res, nil
}

// SingleJob returns the only job of a company, failing when there are none or
// several.
func (r Repo) SingleJob(ctx context.Context, companyID string) (JobRecord, error) {
	recs, err := r.ListJobs(ctx, companyID, 2)
	if err != nil {
		return JobRecord{}, err
	}
	if len(recs) == 0 {
		return JobRecord{}, ErrNotFound
	}
	if len(recs) > 1 {
		return JobRecord{}, fmt.Errorf("multiple jobs exist; specify --job")
	}
	return recs[0], nil
}

func (r Repo) DeleteJob(ctx context.Context, companyID, jobID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM jobs WHERE company_id=? AND id=?`, companyID, jobID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExecutionFilter narrows LatestExecutions.
type ExecutionFilter struct {
	JobID string
	Tool  string
	Limit int
}

// LatestExecutions returns recorded tool calls, newest first.
func (r Repo) LatestExecutions(ctx context.Context, f ExecutionFilter) ([]domain.ToolExecution, error) {
	var (
		where []string
		args  []any
	)
	if f.JobID != "" {
		where = append(where, "job_id=?")
		args = append(args, f.JobID)
	}
	if f.Tool != "" {
		where = append(where, "tool=?")
		args = append(args, f.Tool)
	}
	q := `SELECT id,ts,COALESCE(job_id,''),tool,args_json,result_json,is_error,duration_ms,COALESCE(switched_job_id,'') FROM tool_executions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY ts DESC, rowid DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	q += ` LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ToolExecution{}
	for rows.Next() {
		var (
			e                 domain.ToolExecution
			argsJSON, resJSON string
			isError           int
		)
		if err := rows.Scan(&e.ID, &e.TS, &e.JobID, &e.Tool, &argsJSON, &resJSON, &isError, &e.DurationMs, &e.SwitchedJobID); err != nil {
			return nil, err
		}
		e.IsError = isError != 0
		if err := json.Unmarshal([]byte(argsJSON), &e.Args); err != nil {
			return nil, fmt.Errorf("decode args of execution %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(resJSON), &e.Result); err != nil {
			return nil, fmt.Errorf("decode result of execution %s: %w", e.ID, err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// GetExecution loads one recorded tool call.
func (r Repo) GetExecution(ctx context.Context, id string) (domain.ToolExecution, error) {
	var (
		e                 domain.ToolExecution
		argsJSON, resJSON string
		isError           int
	)
	err := r.DB.QueryRowContext(ctx, `SELECT id,ts,COALESCE(job_id,''),tool,args_json,result_json,is_error,duration_ms,COALESCE(switched_job_id,'') FROM tool_executions WHERE id=?`, id).
		Scan(&e.ID, &e.TS, &e.JobID, &e.Tool, &argsJSON, &resJSON, &isError, &e.DurationMs, &e.SwitchedJobID)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	e.IsError = isError != 0
	if err := json.Unmarshal([]byte(argsJSON), &e.Args); err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(resJSON), &e.Result); err != nil {
		return e, err
	}
	return e, nil
}
