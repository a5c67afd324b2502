package query

import (
	"sort"

	"jobdesk/internal/domain"
)

const (
	undatedSortKey = "9999-12-31"
	unscheduled    = "Unscheduled"
)

type PaymentArgs struct {
	DateFrom   *string `json:"dateFrom,omitempty"`
	DateTo     *string `json:"dateTo,omitempty"`
	TaskType   *string `json:"taskType,omitempty"`
	TaskSearch *string `json:"taskSearch,omitempty"`
	ReturnType *string `json:"returnType,omitempty"`
}

type PaymentEntry struct {
	TaskID         string  `json:"taskId"`
	TaskName       string  `json:"taskName"`
	TaskType       string  `json:"taskType"`
	StageName      string  `json:"stageName"`
	Percentage     float64 `json:"percentage"`
	Amount         float64 `json:"amount"`
	EffectiveDate  *string `json:"effectiveDate"`
	IsManualDate   bool    `json:"isManualDate"`
	TaskStatus     string  `json:"taskStatus"`
	ParentTaskName string  `json:"parentTaskName,omitempty"`
}

type PaymentList struct {
	Payments       []PaymentEntry `json:"payments"`
	TotalPayments  int            `json:"totalPayments"`
	GrandTotal     float64        `json:"grandTotal"`
	FiltersApplied map[string]any `json:"filtersApplied"`
}

type PaymentGroup struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

type PaymentSummary struct {
	ByTaskType     map[string]*PaymentGroup `json:"byTaskType"`
	GrandTotal     float64                  `json:"grandTotal"`
	TotalPayments  int                      `json:"totalPayments"`
	FiltersApplied map[string]any           `json:"filtersApplied"`
}

type PaymentMonth struct {
	Payments []PaymentEntry `json:"payments"`
	Total    float64        `json:"total"`
}

type PaymentTimeline struct {
	Timeline       map[string]*PaymentMonth `json:"timeline"`
	GrandTotal     float64                  `json:"grandTotal"`
	TotalPayments  int                      `json:"totalPayments"`
	FiltersApplied map[string]any           `json:"filtersApplied"`
}

// CollectPayments emits one entry per payment stage of every task that passes
// the filters, sorted by effective date with undated stages last. Tasks with
// no positive totalPaymentAmount are skipped. Date bounds only exclude stages
// whose effective date falls outside them; undated stages are kept.
func CollectPayments(idx *ScheduleIndex, args PaymentArgs) []PaymentEntry {
	taskType := str(args.TaskType)
	search := str(args.TaskSearch)
	from, hasFrom := domain.ParseDate(str(args.DateFrom))
	to, hasTo := domain.ParseDate(str(args.DateTo))

	entries := []PaymentEntry{}
	for _, t := range idx.Tasks {
		if taskType != "" && t.TaskType != taskType {
			continue
		}
		if search != "" && !idx.Matches(t, search) {
			continue
		}
		total := t.TotalPaymentAmount.Float()
		if total <= 0 {
			continue
		}
		parent := idx.ParentName(t)
		status := t.Status()
		for _, s := range t.PaymentStages {
			if due, ok := domain.ParseDate(s.EffectiveDate); ok {
				if hasFrom && due.Before(from) {
					continue
				}
				if hasTo && due.After(to) {
					continue
				}
			}
			entries = append(entries, PaymentEntry{
				TaskID:         t.ID,
				TaskName:       t.Name,
				TaskType:       t.TaskType,
				StageName:      s.Name,
				Percentage:     s.Percentage.Float(),
				Amount:         domain.Round(s.Amount(total), 2),
				EffectiveDate:  optional(s.EffectiveDate),
				IsManualDate:   s.Manual(),
				TaskStatus:     status,
				ParentTaskName: parent,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})
	return entries
}

func sortKey(e PaymentEntry) string {
	if e.EffectiveDate == nil {
		return undatedSortKey
	}
	return *e.EffectiveDate
}

func grandTotal(entries []PaymentEntry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Amount
	}
	return domain.Round(sum, 2)
}

func paymentFilters(args PaymentArgs) map[string]any {
	return echoFilters(args, "returnType")
}

func ListPayments(idx *ScheduleIndex, args PaymentArgs) PaymentList {
	entries := CollectPayments(idx, args)
	return PaymentList{
		Payments:       entries,
		TotalPayments:  len(entries),
		GrandTotal:     grandTotal(entries),
		FiltersApplied: paymentFilters(args),
	}
}

// SummarizePayments groups entries by task type.
func SummarizePayments(idx *ScheduleIndex, args PaymentArgs) PaymentSummary {
	entries := CollectPayments(idx, args)
	groups := map[string]*PaymentGroup{}
	for _, e := range entries {
		g, ok := groups[e.TaskType]
		if !ok {
			g = &PaymentGroup{}
			groups[e.TaskType] = g
		}
		g.Count++
		g.Total += e.Amount
	}
	for _, g := range groups {
		g.Total = domain.Round(g.Total, 2)
	}
	return PaymentSummary{
		ByTaskType:     groups,
		GrandTotal:     grandTotal(entries),
		TotalPayments:  len(entries),
		FiltersApplied: paymentFilters(args),
	}
}

// Timeline groups entries by calendar month (YYYY-MM); undated entries go
// under "Unscheduled".
func Timeline(idx *ScheduleIndex, args PaymentArgs) PaymentTimeline {
	entries := CollectPayments(idx, args)
	months := map[string]*PaymentMonth{}
	for _, e := range entries {
		key := unscheduled
		if e.EffectiveDate != nil {
			key = *e.EffectiveDate
			if len(key) > 7 {
				key = key[:7]
			}
		}
		m, ok := months[key]
		if !ok {
			m = &PaymentMonth{}
			months[key] = m
		}
		m.Payments = append(m.Payments, e)
		m.Total += e.Amount
	}
	for _, m := range months {
		m.Total = domain.Round(m.Total, 2)
	}
	return PaymentTimeline{
		Timeline:       months,
		GrandTotal:     grandTotal(entries),
		TotalPayments:  len(entries),
		FiltersApplied: paymentFilters(args),
	}
}

// QueryPaymentSchedule dispatches on returnType: summary, timeline, or list
// (default).
func QueryPaymentSchedule(job domain.Job, args PaymentArgs) any {
	idx := NewScheduleIndex(job.Schedule)
	switch str(args.ReturnType) {
	case "summary":
		return SummarizePayments(idx, args)
	case "timeline":
		return Timeline(idx, args)
	default:
		return ListPayments(idx, args)
	}
}
