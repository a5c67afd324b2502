// Package query holds the filtering and aggregation functions behind the
// job tools. Every function is pure: it reads an already fetched job
// document and returns a result record.
package query

import (
	"encoding/json"
	"strings"

	"jobdesk/internal/domain"
	"jobdesk/internal/match"
)

// LookupError is returned when a referenced task or dataset cannot be found.
// It serializes to a flat record with an "error" message and remediation hints.
type LookupError struct {
	Message     string
	SearchedFor string
	Hints       map[string]any
}

func (e *LookupError) Error() string { return e.Message }

func (e *LookupError) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Hints)+2)
	for k, v := range e.Hints {
		out[k] = v
	}
	out["error"] = e.Message
	if e.SearchedFor != "" {
		out["searchedFor"] = e.SearchedFor
	}
	return json.Marshal(out)
}

// ScheduleIndex resolves tasks by id and by legacy index. Build it once per
// call and reuse it for every sub-lookup.
type ScheduleIndex struct {
	Tasks   []domain.Task
	byID    map[string]int
	byIndex map[string]int
}

func NewScheduleIndex(tasks []domain.Task) *ScheduleIndex {
	idx := &ScheduleIndex{
		Tasks:   tasks,
		byID:    make(map[string]int, len(tasks)),
		byIndex: make(map[string]int, len(tasks)),
	}
	for i, t := range tasks {
		if t.ID != "" {
			if _, ok := idx.byID[t.ID]; !ok {
				idx.byID[t.ID] = i
			}
		}
		if key := t.IndexKey(); key != "" {
			if _, ok := idx.byIndex[key]; !ok {
				idx.byIndex[key] = i
			}
		}
	}
	return idx
}

// ByID returns the position of the task with the given id.
func (x *ScheduleIndex) ByID(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	i, ok := x.byID[id]
	return i, ok
}

// ByRef resolves a dependency reference: id first, then index.
func (x *ScheduleIndex) ByRef(ref string) (int, bool) {
	if ref == "" {
		return 0, false
	}
	if i, ok := x.byID[ref]; ok {
		return i, true
	}
	i, ok := x.byIndex[ref]
	return i, ok
}

// ParentName returns the name of t's main task, via mainTaskId and then
// mainTaskIndex. Empty when t has no resolvable parent.
func (x *ScheduleIndex) ParentName(t domain.Task) string {
	if i, ok := x.ByID(t.MainTaskID); ok {
		return x.Tasks[i].Name
	}
	if t.MainTaskIndex != nil {
		if i, ok := x.byIndex[t.MainTaskIndex.Key()]; ok {
			return x.Tasks[i].Name
		}
	}
	return ""
}

// Matches applies the fuzzy matcher to t's name and remarks plus its parent
// task's name.
func (x *ScheduleIndex) Matches(t domain.Task, query string) bool {
	return match.Fields(t.TextFields(), query, x.ParentName(t))
}

// Names lists up to n task names in schedule order.
func (x *ScheduleIndex) Names(n int) []string {
	names := make([]string, 0, n)
	for _, t := range x.Tasks {
		if len(names) == n {
			break
		}
		names = append(names, t.Name)
	}
	return names
}

// TaskSummary is the compact task view used in lists.
type TaskSummary struct {
	ID                 string  `json:"id"`
	Task               string  `json:"task"`
	TaskType           string  `json:"taskType"`
	Status             string  `json:"status"`
	PercentageComplete float64 `json:"percentageComplete"`
	StartDate          *string `json:"startDate"`
	EndDate            *string `json:"endDate"`
	Duration           float64 `json:"duration"`
	Hours              float64 `json:"hours"`
	IsCritical         bool    `json:"isCritical"`
	IsMainTask         bool    `json:"isMainTask"`
	HasPayments        bool    `json:"hasPayments"`
	TotalPaymentAmount float64 `json:"totalPaymentAmount"`
}

func Summarize(t domain.Task) TaskSummary {
	return TaskSummary{
		ID:                 t.ID,
		Task:               t.Name,
		TaskType:           t.TaskType,
		Status:             t.Status(),
		PercentageComplete: t.PercentageComplete.Float(),
		StartDate:          optional(t.StartDate),
		EndDate:            optional(t.EndDate),
		Duration:           t.Duration.Float(),
		Hours:              t.Hours.Float(),
		IsCritical:         bool(t.IsCritical),
		IsMainTask:         bool(t.IsMainTask),
		HasPayments:        len(t.PaymentStages) > 0,
		TotalPaymentAmount: t.TotalPaymentAmount.Float(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func flag(p *bool) bool {
	return p != nil && *p
}

// limitOf returns the requested limit, or def when absent. Negative limits
// return nothing.
func limitOf(n *domain.Number, def int) int {
	if n == nil {
		return def
	}
	l := int(n.Float())
	if l < 0 {
		return 0
	}
	return l
}

// echoFilters renders args as the filtersApplied record: absent keys are
// dropped, and so are the named result-control keys.
func echoFilters(args any, omit ...string) map[string]any {
	out := map[string]any{}
	raw, err := json.Marshal(args)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	for _, k := range omit {
		delete(out, k)
	}
	for k, v := range out {
		if v == nil {
			delete(out, k)
		}
	}
	return out
}
