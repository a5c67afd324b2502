package query

import (
	"fmt"

	"jobdesk/internal/domain"
	"jobdesk/internal/match"
)

type TaskDetailsArgs struct {
	SearchQuery        *string `json:"searchQuery,omitempty"`
	TaskID             *string `json:"taskId,omitempty"`
	OnlyPaymentCapable *bool   `json:"onlyPaymentCapable,omitempty"`
}

type DependencyDetail struct {
	PredecessorID string  `json:"predecessorId"`
	Type          string  `json:"type"`
	TypeMeaning   string  `json:"typeMeaning"`
	Lag           float64 `json:"lag"`
}

type PaymentStageDetail struct {
	Name             string  `json:"name"`
	Percentage       float64 `json:"percentage"`
	CalculatedAmount float64 `json:"calculatedAmount"`
	EffectiveDate    *string `json:"effectiveDate"`
	IsManualDate     bool    `json:"isManualDate"`
	LinkedType       *string `json:"linkedType"`
	LagDays          float64 `json:"lagDays"`
}

// TaskDetails is the fully expanded view of one task.
type TaskDetails struct {
	ID                 string               `json:"id"`
	Index              *domain.Number       `json:"index"`
	Task               string               `json:"task"`
	TaskType           string               `json:"taskType"`
	Status             string               `json:"status"`
	PercentageComplete float64              `json:"percentageComplete"`
	StartDate          *string              `json:"startDate"`
	EndDate            *string              `json:"endDate"`
	ActualStart        *string              `json:"actualStart"`
	ActualEnd          *string              `json:"actualEnd"`
	BaselineStartDate  *string              `json:"baselineStartDate"`
	BaselineEndDate    *string              `json:"baselineEndDate"`
	Duration           float64              `json:"duration"`
	Hours              float64              `json:"hours"`
	Consumed           float64              `json:"consumed"`
	HoursRemaining     float64              `json:"hoursRemaining"`
	IsCritical         bool                 `json:"isCritical"`
	TotalSlack         float64              `json:"totalSlack"`
	SchedulingMode     string               `json:"schedulingMode"`
	IsMainTask         bool                 `json:"isMainTask"`
	MainTaskID         *string              `json:"mainTaskId"`
	SubtaskIDs         []string             `json:"subtaskIds"`
	Dependencies       []DependencyDetail   `json:"dependencies"`
	DependencyCount    int                  `json:"dependencyCount"`
	PaymentStages      []PaymentStageDetail `json:"paymentStages"`
	TotalPaymentAmount float64              `json:"totalPaymentAmount"`
	HasPayments        bool                 `json:"hasPayments"`
	Resources          []domain.Resource    `json:"resources"`
	Remarks            string               `json:"remarks"`
	IsBaselineSet      bool                 `json:"isBaselineSet"`
	ParentTaskName     string               `json:"parentTaskName,omitempty"`
}

// FormatDetails expands t: dependency meanings, stage amounts, the resource
// list, hours remaining and the parent task's name.
func FormatDetails(t domain.Task, idx *ScheduleIndex) TaskDetails {
	deps := make([]DependencyDetail, 0, len(t.Dependencies))
	for _, d := range t.Dependencies {
		deps = append(deps, DependencyDetail{
			PredecessorID: d.Ref(),
			Type:          d.Kind(),
			TypeMeaning:   domain.DependencyTypeMeaning(d.Kind()),
			Lag:           d.Lag.Float(),
		})
	}
	total := t.TotalPaymentAmount.Float()
	stages := make([]PaymentStageDetail, 0, len(t.PaymentStages))
	for _, s := range t.PaymentStages {
		stages = append(stages, PaymentStageDetail{
			Name:             s.Name,
			Percentage:       s.Percentage.Float(),
			CalculatedAmount: domain.Round(s.Amount(total), 2),
			EffectiveDate:    optional(s.EffectiveDate),
			IsManualDate:     s.Manual(),
			LinkedType:       optional(s.LinkedType),
			LagDays:          s.LagDays.Float(),
		})
	}
	mode := t.SchedulingMode
	if mode == "" {
		mode = "Automatic"
	}
	remaining := t.Hours.Float() - t.Consumed.Float()
	if remaining < 0 {
		remaining = 0
	}
	d := TaskDetails{
		ID:                 t.ID,
		Index:              t.Index,
		Task:               t.Name,
		TaskType:           t.TaskType,
		Status:             t.Status(),
		PercentageComplete: t.PercentageComplete.Float(),
		StartDate:          optional(t.StartDate),
		EndDate:            optional(t.EndDate),
		ActualStart:        optional(t.ActualStart),
		ActualEnd:          optional(t.ActualEnd),
		BaselineStartDate:  optional(t.BaselineStartDate),
		BaselineEndDate:    optional(t.BaselineEndDate),
		Duration:           t.Duration.Float(),
		Hours:              t.Hours.Float(),
		Consumed:           t.Consumed.Float(),
		HoursRemaining:     remaining,
		IsCritical:         bool(t.IsCritical),
		TotalSlack:         t.TotalSlack.Float(),
		SchedulingMode:     mode,
		IsMainTask:         bool(t.IsMainTask),
		MainTaskID:         optional(t.MainTaskID),
		SubtaskIDs:         t.SubtaskIDs,
		Dependencies:       deps,
		DependencyCount:    len(deps),
		PaymentStages:      stages,
		TotalPaymentAmount: total,
		HasPayments:        len(stages) > 0,
		Resources:          t.ResourceList(),
		Remarks:            t.Remarks,
		IsBaselineSet:      bool(t.IsBaselineSet),
	}
	if idx != nil {
		d.ParentTaskName = idx.ParentName(t)
	}
	return d
}

// GetTaskDetails finds one task by exact id, then by the best fuzzy match.
// A direct name match scores 100, a match through the parent's name 50, and
// payment-capable tasks get +10 when onlyPaymentCapable is set. Ties keep the
// earliest task.
func GetTaskDetails(idx *ScheduleIndex, args TaskDetailsArgs) (TaskDetails, error) {
	paymentOnly := flag(args.OnlyPaymentCapable)
	candidates := make([]int, 0, len(idx.Tasks))
	for i, t := range idx.Tasks {
		if paymentOnly && !domain.PaymentCapable(t.TaskType) {
			continue
		}
		candidates = append(candidates, i)
	}

	if id := str(args.TaskID); id != "" {
		for _, i := range candidates {
			if idx.Tasks[i].ID == id {
				return FormatDetails(idx.Tasks[i], idx), nil
			}
		}
	}

	if q := str(args.SearchQuery); q != "" {
		best, bestScore := -1, 0
		for _, i := range candidates {
			t := idx.Tasks[i]
			if !idx.Matches(t, q) {
				continue
			}
			score := 50
			if match.Fuzzy(q, t.Name) {
				score = 100
			}
			if paymentOnly && domain.PaymentCapable(t.TaskType) {
				score += 10
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 {
			return FormatDetails(idx.Tasks[best], idx), nil
		}
	}

	searched := str(args.TaskID)
	if searched == "" {
		searched = str(args.SearchQuery)
	}
	if paymentOnly {
		available := make([]string, 0, 10)
		for _, i := range candidates {
			if len(available) == 10 {
				break
			}
			t := idx.Tasks[i]
			available = append(available, fmt.Sprintf("%s (%s)", t.Name, t.TaskType))
		}
		return TaskDetails{}, &LookupError{
			Message:     "No payment-capable task found matching your search",
			SearchedFor: searched,
			Hints: map[string]any{
				"note":                  "Only material, subcontractor, and milestone tasks can have payment stages",
				"availablePaymentTasks": available,
				"hint":                  "Try searching with different keywords or check the task name spelling",
			},
		}
	}
	return TaskDetails{}, &LookupError{
		Message:     "Task not found",
		SearchedFor: searched,
		Hints: map[string]any{
			"availableTasks": idx.Names(10),
			"hint":           "Try searching with the exact task name or parent task name",
		},
	}
}
