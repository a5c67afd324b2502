package query

import (
	"jobdesk/internal/domain"
)

const defaultScheduleLimit = 10

type ScheduleArgs struct {
	TaskType      *string        `json:"taskType,omitempty"`
	Status        *string        `json:"status,omitempty"`
	IsCritical    *bool          `json:"isCritical,omitempty"`
	IsMainTask    *bool          `json:"isMainTask,omitempty"`
	SearchQuery   *string        `json:"searchQuery,omitempty"`
	StartDateFrom *string        `json:"startDateFrom,omitempty"`
	StartDateTo   *string        `json:"startDateTo,omitempty"`
	FieldToSum    *string        `json:"fieldToSum,omitempty"`
	ReturnType    *string        `json:"returnType,omitempty"`
	Limit         *domain.Number `json:"limit,omitempty"`
}

type ScheduleCount struct {
	Count          int            `json:"count"`
	TotalTasks     int            `json:"totalTasks"`
	FiltersApplied map[string]any `json:"filtersApplied"`
}

type ScheduleSum struct {
	Sum            float64        `json:"sum"`
	FieldSummed    string         `json:"fieldSummed"`
	MatchedTasks   int            `json:"matchedTasks"`
	TotalTasks     int            `json:"totalTasks"`
	FiltersApplied map[string]any `json:"filtersApplied"`
}

type ScheduleList struct {
	Tasks          []TaskSummary  `json:"tasks"`
	MatchedCount   int            `json:"matchedCount"`
	ReturnedCount  int            `json:"returnedCount"`
	TotalTasks     int            `json:"totalTasks"`
	FiltersApplied map[string]any `json:"filtersApplied"`
}

// FilterTasks applies every present filter in args. Date bounds are inclusive
// and drop tasks whose startDate is missing or unparseable.
func FilterTasks(idx *ScheduleIndex, args ScheduleArgs) []domain.Task {
	taskType := str(args.TaskType)
	status := str(args.Status)
	search := str(args.SearchQuery)
	from, hasFrom := domain.ParseDate(str(args.StartDateFrom))
	to, hasTo := domain.ParseDate(str(args.StartDateTo))

	out := make([]domain.Task, 0, len(idx.Tasks))
	for _, t := range idx.Tasks {
		if taskType != "" && t.TaskType != taskType {
			continue
		}
		if status != "" && t.Status() != status {
			continue
		}
		if args.IsCritical != nil && bool(t.IsCritical) != *args.IsCritical {
			continue
		}
		if args.IsMainTask != nil && bool(t.IsMainTask) != *args.IsMainTask {
			continue
		}
		if search != "" && !idx.Matches(t, search) {
			continue
		}
		if hasFrom || hasTo {
			start, ok := domain.ParseDate(t.StartDate)
			if !ok {
				continue
			}
			if hasFrom && start.Before(from) {
				continue
			}
			if hasTo && start.After(to) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func scheduleFilters(args ScheduleArgs) map[string]any {
	return echoFilters(args, "returnType", "limit", "fieldToSum")
}

func CountTasks(idx *ScheduleIndex, args ScheduleArgs) ScheduleCount {
	return ScheduleCount{
		Count:          len(FilterTasks(idx, args)),
		TotalTasks:     len(idx.Tasks),
		FiltersApplied: scheduleFilters(args),
	}
}

// SumTasks sums fieldToSum (default "hours") over the matching tasks. Unknown
// fields contribute 0.
func SumTasks(idx *ScheduleIndex, args ScheduleArgs) ScheduleSum {
	field := str(args.FieldToSum)
	if field == "" {
		field = "hours"
	}
	matched := FilterTasks(idx, args)
	var total float64
	for _, t := range matched {
		v, _ := t.NumericField(field)
		total += v
	}
	return ScheduleSum{
		Sum:            domain.Round(total, 2),
		FieldSummed:    field,
		MatchedTasks:   len(matched),
		TotalTasks:     len(idx.Tasks),
		FiltersApplied: scheduleFilters(args),
	}
}

func ListTasks(idx *ScheduleIndex, args ScheduleArgs) ScheduleList {
	matched := FilterTasks(idx, args)
	limit := limitOf(args.Limit, defaultScheduleLimit)
	if limit > len(matched) {
		limit = len(matched)
	}
	tasks := make([]TaskSummary, 0, limit)
	for _, t := range matched[:limit] {
		tasks = append(tasks, Summarize(t))
	}
	return ScheduleList{
		Tasks:          tasks,
		MatchedCount:   len(matched),
		ReturnedCount:  len(tasks),
		TotalTasks:     len(idx.Tasks),
		FiltersApplied: scheduleFilters(args),
	}
}

// QuerySchedule dispatches on returnType: count, sum, or list (default).
func QuerySchedule(job domain.Job, args ScheduleArgs) any {
	idx := NewScheduleIndex(job.Schedule)
	switch str(args.ReturnType) {
	case "count":
		return CountTasks(idx, args)
	case "sum":
		return SumTasks(idx, args)
	default:
		return ListTasks(idx, args)
	}
}
