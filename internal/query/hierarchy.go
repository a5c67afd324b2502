package query

import (
	"jobdesk/internal/domain"
	"jobdesk/internal/match"
)

type HierarchyArgs struct {
	MainTaskSearch *string `json:"mainTaskSearch,omitempty"`
	MainTaskID     *string `json:"mainTaskId,omitempty"`
	IncludeDetails *bool   `json:"includeDetails,omitempty"`
}

type HierarchyTotals struct {
	Hours             float64 `json:"hours"`
	Consumed          float64 `json:"consumed"`
	Duration          float64 `json:"duration"`
	AverageCompletion float64 `json:"averageCompletion"`
}

type Hierarchy struct {
	MainTask     TaskSummary     `json:"mainTask"`
	Subtasks     any             `json:"subtasks"`
	SubtaskCount int             `json:"subtaskCount"`
	Totals       HierarchyTotals `json:"totals"`
}

// ResolveHierarchy finds a main task by id, or failing that by the first main
// task whose name fuzzily matches, and collects its subtasks. A task is a
// subtask when its id is in subtaskIds, its index is in subtaskIndices, or its
// mainTaskId names the parent.
func ResolveHierarchy(idx *ScheduleIndex, args HierarchyArgs) (Hierarchy, error) {
	main := -1
	if id := str(args.MainTaskID); id != "" {
		for i, t := range idx.Tasks {
			if t.ID == id && t.IsMainTask {
				main = i
				break
			}
		}
	}
	if q := str(args.MainTaskSearch); main < 0 && q != "" {
		for i, t := range idx.Tasks {
			if bool(t.IsMainTask) && match.Fuzzy(q, t.Name) {
				main = i
				break
			}
		}
	}
	if main < 0 {
		names := []string{}
		for _, t := range idx.Tasks {
			if t.IsMainTask {
				names = append(names, t.Name)
			}
		}
		searched := str(args.MainTaskID)
		if searched == "" {
			searched = str(args.MainTaskSearch)
		}
		return Hierarchy{}, &LookupError{
			Message:     "Main task not found",
			SearchedFor: searched,
			Hints:       map[string]any{"availableMainTasks": names},
		}
	}

	parent := idx.Tasks[main]
	subtasks := Subtasks(idx, main)

	var totals HierarchyTotals
	var completion float64
	for _, t := range subtasks {
		totals.Hours += t.Hours.Float()
		totals.Consumed += t.Consumed.Float()
		totals.Duration += t.Duration.Float()
		completion += t.PercentageComplete.Float()
	}
	totals.Hours = domain.Round(totals.Hours, 2)
	totals.Consumed = domain.Round(totals.Consumed, 2)
	totals.Duration = domain.Round(totals.Duration, 2)
	if len(subtasks) > 0 {
		totals.AverageCompletion = domain.Round(completion/float64(len(subtasks)), 1)
	}

	var out any
	if flag(args.IncludeDetails) {
		details := make([]TaskDetails, 0, len(subtasks))
		for _, t := range subtasks {
			details = append(details, FormatDetails(t, idx))
		}
		out = details
	} else {
		summaries := make([]TaskSummary, 0, len(subtasks))
		for _, t := range subtasks {
			summaries = append(summaries, Summarize(t))
		}
		out = summaries
	}
	return Hierarchy{
		MainTask:     Summarize(parent),
		Subtasks:     out,
		SubtaskCount: len(subtasks),
		Totals:       totals,
	}, nil
}

// Subtasks returns the children of the task at position main, in schedule
// order and without duplicates.
func Subtasks(idx *ScheduleIndex, main int) []domain.Task {
	parent := idx.Tasks[main]
	ids := make(map[string]bool, len(parent.SubtaskIDs))
	for _, id := range parent.SubtaskIDs {
		ids[id] = true
	}
	indices := make(map[string]bool, len(parent.SubtaskIndices))
	for _, n := range parent.SubtaskIndices {
		indices[n.Key()] = true
	}
	var out []domain.Task
	for i, t := range idx.Tasks {
		if i == main {
			continue
		}
		switch {
		case t.ID != "" && ids[t.ID]:
		case t.IndexKey() != "" && indices[t.IndexKey()]:
		case parent.ID != "" && t.MainTaskID == parent.ID:
		default:
			continue
		}
		out = append(out, t)
	}
	return out
}
