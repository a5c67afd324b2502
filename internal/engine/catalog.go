package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"jobdesk/internal/domain"
	"jobdesk/internal/query"
	"jobdesk/internal/repo"
	"jobdesk/internal/tools"
)

const (
	ToolSearchJobs           = "search_jobs"
	ToolGetCurrentJobData    = "get_current_job_data"
	ToolCalculateFieldSum    = "calculate_field_sum"
	ToolCalculateEstimateSum = "calculate_estimate_sum"
	ToolQuerySchedule        = "query_schedule"
	ToolGetTaskDetails       = "get_task_details"
	ToolQueryTaskHierarchy   = "query_task_hierarchy"
	ToolQueryDependencies    = "query_dependencies"
	ToolQueryPaymentSchedule = "query_payment_schedule"
	ToolGetComparisonData    = "get_comparison_data"
	ToolQueryComparisonRows  = "query_comparison_rows"
	ToolGetComparisonSummary = "get_comparison_summary"
)

const (
	unavailableMessage    = "Failed to fetch comparison data from API. The service may be unavailable."
	unavailableSuggestion = "Try again later or check if the job has comparison data available."
)

// toolError is a failure reported to the agent as a fixed record rather than
// a bare message.
type toolError struct {
	record map[string]any
	cause  error
}

func (e *toolError) Error() string { return fmt.Sprint(e.record["error"]) }

func (e *toolError) Unwrap() error { return e.cause }

func (e *toolError) MarshalJSON() ([]byte, error) { return json.Marshal(e.record) }

func unavailable(jobID string, cause error) error {
	return &toolError{
		record: map[string]any{"error": unavailableMessage, "jobId": jobID, "suggestion": unavailableSuggestion},
		cause:  cause,
	}
}

var errNoJob = errors.New("no job selected; call search_jobs and get_current_job_data first")

type catalog struct {
	jobs JobSource
	cmp  ComparisonSource
}

func (c catalog) job(ctx context.Context, scope tools.Scope) (domain.Job, error) {
	if scope.JobID == "" {
		return domain.Job{}, errNoJob
	}
	job, err := c.jobs.GetJob(ctx, scope.CompanyID, scope.JobID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Job{}, &query.LookupError{
			Message:     "Job not found",
			SearchedFor: scope.JobID,
			Hints:       map[string]any{"suggestion": "Use search_jobs to find the job's documentId."},
		}
	}
	return job, err
}

func (c catalog) comparison(ctx context.Context, scope tools.Scope, jobID string) (domain.ComparisonData, error) {
	if jobID == "" {
		return domain.ComparisonData{}, errNoJob
	}
	if c.cmp == nil {
		return domain.ComparisonData{}, unavailable(jobID, errors.New("comparison source not configured"))
	}
	data, err := c.cmp.Fetch(ctx, scope.CompanyID, jobID)
	if err != nil {
		return domain.ComparisonData{}, unavailable(jobID, err)
	}
	return data, nil
}

// withJob adapts a query over a decoded argument struct and the loaded job.
func withJob[A any](c catalog, run func(job domain.Job, args A) (any, error)) tools.ExecuteFunc {
	return func(ctx context.Context, raw map[string]any, scope tools.Scope) (any, error) {
		args, err := tools.Decode[A](raw)
		if err != nil {
			return nil, err
		}
		job, err := c.job(ctx, scope)
		if err != nil {
			return nil, err
		}
		return run(job, args)
	}
}

func withSchedule[A any](c catalog, run func(idx *query.ScheduleIndex, args A) (any, error)) tools.ExecuteFunc {
	return withJob(c, func(job domain.Job, args A) (any, error) {
		return run(query.NewScheduleIndex(job.Schedule), args)
	})
}

func withComparison[A any](c catalog, run func(jobID string, data domain.ComparisonData, args A) any) tools.ExecuteFunc {
	return func(ctx context.Context, raw map[string]any, scope tools.Scope) (any, error) {
		args, err := tools.Decode[A](raw)
		if err != nil {
			return nil, err
		}
		data, err := c.comparison(ctx, scope, scope.JobID)
		if err != nil {
			return nil, err
		}
		return run(scope.JobID, data, args), nil
	}
}

func str(desc string) tools.Property { return tools.Property{Type: "string", Description: desc} }
func boolean(desc string) tools.Property { return tools.Property{Type: "boolean", Description: desc} }
func number(desc string) tools.Property { return tools.Property{Type: "number", Description: desc} }

func enum(desc string, values ...string) tools.Property {
	return tools.Property{Type: "string", Description: desc, Enum: values}
}

var taskTypes = []string{domain.TaskTypeLabour, domain.TaskTypeMilestone, domain.TaskTypeMaterial, domain.TaskTypeSubcontractor, domain.TaskTypeOthers}

// Catalog registers every job tool over the given sources.
func Catalog(jobs JobSource, cmp ComparisonSource) *tools.Registry {
	c := catalog{jobs: jobs, cmp: cmp}
	reg := tools.NewRegistry()

	reg.MustRegister(&tools.Tool{
		Name:        ToolSearchJobs,
		Description: "Searches the company's most recent jobs by project title, client name, street or job prefix.",
		Category:    tools.CategoryJob,
		Schema: tools.Schema{
			Required:   []string{"query"},
			Properties: map[string]tools.Property{"query": str("Search term, e.g. 'Smith' or 'Kitchen Remodel'.")},
		},
		Execute: func(ctx context.Context, raw map[string]any, scope tools.Scope) (any, error) {
			args, err := tools.Decode[struct {
				Query string `json:"query"`
			}](raw)
			if err != nil {
				return nil, err
			}
			return c.jobs.SearchJobs(ctx, scope.CompanyID, args.Query)
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolGetCurrentJobData,
		Description: "Loads the full job document (estimate, schedule, milestones) and makes it the current job.",
		Category:    tools.CategoryJob,
		Schema: tools.Schema{
			Required:   []string{"jobId"},
			Properties: map[string]tools.Property{"jobId": str("Document id of the job to load.")},
		},
		Execute: func(ctx context.Context, raw map[string]any, scope tools.Scope) (any, error) {
			args, err := tools.Decode[struct {
				JobID string `json:"jobId"`
			}](raw)
			if err != nil {
				return nil, err
			}
			scope.JobID = args.JobID
			return c.job(ctx, scope)
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolCalculateFieldSum,
		Description: "Sums a numeric field across one list of the current job, optionally filtered by a text search.",
		Category:    tools.CategoryEstimate,
		Schema: tools.Schema{
			Required: []string{"listName", "fieldName"},
			Properties: map[string]tools.Property{
				"listName":    enum("List to sum over.", "estimate", "schedule", "milestones", "flooringEstimateData"),
				"fieldName":   str("Numeric field to sum, e.g. 'total', 'hours', 'amount'."),
				"searchQuery": str("Optional text filter; 'all' or omitted sums every row."),
			},
		},
		Execute: withJob(c, func(job domain.Job, args query.FieldSumArgs) (any, error) {
			return query.CalculateFieldSum(job, args)
		}),
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolCalculateEstimateSum,
		Description: "Sums a numeric field of the estimate, optionally filtered by area, scope, description or cost code.",
		Category:    tools.CategoryEstimate,
		Schema: tools.Schema{
			Required: []string{"fieldName"},
			Properties: map[string]tools.Property{
				"fieldName":   enum("Numeric estimate field.", "total", "budgetedTotal", "qty", "rate", "budgetedRate"),
				"searchQuery": str("Optional text filter, e.g. 'Kitchen' or 'Demolition'."),
			},
		},
		Execute: withJob(c, func(job domain.Job, args query.EstimateSumArgs) (any, error) {
			return query.CalculateEstimateSum(job, args), nil
		}),
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolQuerySchedule,
		Description: "Filters schedule tasks and returns a count, a sum of one numeric field, or a list.",
		Category:    tools.CategorySchedule,
		Schema: tools.Schema{Properties: map[string]tools.Property{
			"taskType":      enum("Only tasks of this type.", taskTypes...),
			"status":        enum("Only tasks in this progress state.", domain.StatusNotStarted, domain.StatusInProgress, domain.StatusCompleted),
			"isCritical":    boolean("true for critical-path tasks only, false for non-critical only."),
			"isMainTask":    boolean("true for main tasks only, false for subtasks only."),
			"searchQuery":   str("Text search over task name and remarks, including the parent task name."),
			"startDateFrom": str("Tasks starting on or after this date (YYYY-MM-DD)."),
			"startDateTo":   str("Tasks starting on or before this date (YYYY-MM-DD)."),
			"fieldToSum":    enum("Numeric field summed when returnType is sum.", "hours", "consumed", "duration", "percentageComplete", "totalSlack", "totalPaymentAmount"),
			"returnType":    {Type: "string", Description: "Shape of the result.", Enum: []string{"count", "sum", "list"}, Default: "list"},
			"limit":         {Type: "number", Description: "Maximum tasks listed.", Default: 10},
		}},
		Execute: withJob(c, func(job domain.Job, args query.ScheduleArgs) (any, error) {
			return query.QuerySchedule(job, args), nil
		}),
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolGetTaskDetails,
		Description: "Returns full details of one task: dates, progress, dependencies, payment stages and resources.",
		Category:    tools.CategorySchedule,
		Schema: tools.Schema{Properties: map[string]tools.Property{
			"searchQuery":        str("Task name to search for."),
			"taskId":             str("Exact task id; takes precedence over searchQuery."),
			"onlyPaymentCapable": boolean("Restrict the search to material, subcontractor and milestone tasks."),
		}},
		Execute: withSchedule(c, func(idx *query.ScheduleIndex, args query.TaskDetailsArgs) (any, error) {
			return query.GetTaskDetails(idx, args)
		}),
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolQueryTaskHierarchy,
		Description: "Returns a main task with all of its subtasks and their totals.",
		Category:    tools.CategorySchedule,
		Schema: tools.Schema{Properties: map[string]tools.Property{
			"mainTaskSearch": str("Name of the main task."),
			"mainTaskId":     str("Exact id of the main task; takes precedence over mainTaskSearch."),
			"includeDetails": boolean("Return full subtask details instead of summaries."),
		}},
		Execute: withSchedule(c, func(idx *query.ScheduleIndex, args query.HierarchyArgs) (any, error) {
			return query.ResolveHierarchy(idx, args)
		}),
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolQueryDependencies,
		Description: "Lists the predecessors or successors of a task, optionally following the whole chain.",
		Category:    tools.CategorySchedule,
		Schema: tools.Schema{Properties: map[string]tools.Property{
			"taskSearch":   str("Name of the task."),
			"taskId":       str("Exact task id; takes precedence over taskSearch."),
			"direction":    {Type: "string", Description: "Which side of the task to walk.", Enum: []string{"predecessors", "successors"}, Default: "predecessors"},
			"includeChain": boolean("Follow dependencies recursively."),
		}},
		Execute: withSchedule(c, func(idx *query.ScheduleIndex, args query.DependencyArgs) (any, error) {
			return query.ResolveDependencies(idx, args)
		}),
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolQueryPaymentSchedule,
		Description: "Lists payment stages across tasks, or totals them by task type or by month.",
		Category:    tools.CategoryPayment,
		Schema: tools.Schema{Properties: map[string]tools.Property{
			"dateFrom":   str("Payments due on or after this date (YYYY-MM-DD)."),
			"dateTo":     str("Payments due on or before this date (YYYY-MM-DD)."),
			"taskType":   enum("Only stages of tasks of this type.", taskTypes...),
			"taskSearch": str("Only stages of tasks matching this name."),
			"returnType": {Type: "string", Description: "Shape of the result.", Enum: []string{"list", "summary", "timeline"}, Default: "list"},
		}},
		Execute: withJob(c, func(job domain.Job, args query.PaymentArgs) (any, error) {
			return query.QueryPaymentSchedule(job, args), nil
		}),
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolGetComparisonData,
		Description: "Fetches the budget-vs-actual dataset with every labour, material, subcontractor and other row.",
		Category:    tools.CategoryComparison,
		Schema: tools.Schema{Properties: map[string]tools.Property{
			"jobId": str("Job to fetch; defaults to the current job."),
		}},
		Execute: func(ctx context.Context, raw map[string]any, scope tools.Scope) (any, error) {
			args, err := tools.Decode[struct {
				JobID string `json:"jobId"`
			}](raw)
			if err != nil {
				return nil, err
			}
			jobID := scope.JobID
			if args.JobID != "" {
				jobID = args.JobID
			}
			data, err := c.comparison(ctx, scope, jobID)
			if err != nil {
				return nil, err
			}
			return query.NormalizeComparison(jobID, data), nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolQueryComparisonRows,
		Description: "Filters budget-vs-actual rows by category, tag, cost code or over-budget state.",
		Category:    tools.CategoryComparison,
		Schema: tools.Schema{Properties: map[string]tools.Property{
			"category":       {Type: "string", Description: "Row category.", Enum: []string{"all", "labour", "material", "subcontractor", "other", "allowance"}, Default: "all"},
			"tag":            enum("Only rows carrying this tag.", domain.TagAllowance, domain.TagEstimate, domain.TagChangeOrder),
			"costCodeSearch": str("Text search over the cost code."),
			"overBudgetOnly": boolean("Only rows whose consumed amount exceeds the budget."),
			"returnType":     {Type: "string", Description: "Shape of the result.", Enum: []string{"list", "summary", "count"}, Default: "list"},
			"limit":          number("Maximum rows listed. Default 20."),
		}},
		Execute: withComparison(c, func(jobID string, data domain.ComparisonData, args query.ComparisonArgs) any {
			return query.QueryComparisonRows(query.NormalizeComparison(jobID, data), args)
		}),
	})

	reg.MustRegister(&tools.Tool{
		Name:        ToolGetComparisonSummary,
		Description: "Summarizes budgeted against consumed amounts for labour hours and each cost category.",
		Category:    tools.CategoryComparison,
		Schema: tools.Schema{Properties: map[string]tools.Property{
			"includeSubcategories": boolean("Include the labour hour breakdown per phase."),
		}},
		Execute: withComparison(c, func(jobID string, data domain.ComparisonData, args query.SummaryArgs) any {
			return query.ComparisonSummary(jobID, data, args)
		}),
	})

	return reg
}
