package query

import (
	"strings"

	"jobdesk/internal/domain"
	"jobdesk/internal/match"
)

const defaultComparisonLimit = 20

// NormalizeRows coerces raw rows into ComparisonRows for one category.
// Rows without explicit tags are tagged "co" when they come from a change
// order, "est" otherwise, plus "alw" for allowance rows.
func NormalizeRows(category string, raw []domain.RawComparisonRow) []domain.ComparisonRow {
	out := make([]domain.ComparisonRow, 0, len(raw))
	for _, r := range raw {
		budgeted := r.BudgetedAmount.Float()
		consumed := r.ConsumedAmount.Float()
		progress := 0.0
		if budgeted > 0 {
			progress = consumed / budgeted * 100
		}
		tags := r.TagList()
		if len(tags) == 0 {
			tags = defaultTags(r)
		}
		out = append(out, domain.ComparisonRow{
			CostCode:           r.CostCode.String(),
			Category:           category,
			BudgetedAmount:     budgeted,
			ConsumedAmount:     consumed,
			DifferenceAmount:   domain.Round(budgeted-consumed, 2),
			Progress:           domain.Round(progress, 1),
			RowType:            r.RowType,
			FromChangeOrder:    bool(r.FromChangeOrder),
			Tags:               tags,
			TagAmounts:         floats(r.TagAmounts),
			ConsumedTagAmounts: floats(r.ConsumedTagAmounts),
			IsOverBudget:       consumed > budgeted,
			IsAllowance:        hasTag(tags, domain.TagAllowance),
			IsChangeOrder:      hasTag(tags, domain.TagChangeOrder),
		})
	}
	return out
}

func defaultTags(r domain.RawComparisonRow) []string {
	tags := []string{domain.TagEstimate}
	if r.FromChangeOrder {
		tags[0] = domain.TagChangeOrder
	}
	if strings.EqualFold(r.RowType, "allowance") {
		tags = append(tags, domain.TagAllowance)
	}
	return tags
}

func floats(m map[string]domain.Number) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v.Float()
	}
	return out
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

type CategoryTotals struct {
	BudgetedAmount float64 `json:"budgetedAmount"`
	ConsumedAmount float64 `json:"consumedAmount"`
	PercentageUsed float64 `json:"percentageUsed"`
}

type LabourTotals struct {
	BudgetedHours  float64 `json:"budgetedHours"`
	ActualHours    float64 `json:"actualHours"`
	PercentageUsed float64 `json:"percentageUsed"`
}

type ComparisonOverview struct {
	Labour        LabourTotals   `json:"labour"`
	Material      CategoryTotals `json:"material"`
	Subcontractor CategoryTotals `json:"subcontractor"`
	Other         CategoryTotals `json:"other"`
}

// ComparisonDataset is the normalized form of a comparison payload.
type ComparisonDataset struct {
	Summary ComparisonOverview                `json:"summary"`
	Details map[string][]domain.ComparisonRow `json:"details"`
	Counts  map[string]int                    `json:"counts"`
	JobID   string                            `json:"jobId"`
}

// Rows returns the rows of every category in category order.
func (d ComparisonDataset) Rows() []domain.ComparisonRow {
	var out []domain.ComparisonRow
	for _, cat := range domain.ComparisonCategories {
		out = append(out, d.Details[cat]...)
	}
	return out
}

func NormalizeComparison(jobID string, data domain.ComparisonData) ComparisonDataset {
	s := data.Summary
	ds := ComparisonDataset{
		Summary: ComparisonOverview{
			Labour: LabourTotals{
				BudgetedHours:  s.Labour.BudgetedHours.Float(),
				ActualHours:    s.Labour.ActualHours.Float(),
				PercentageUsed: s.Labour.PercentageUsed.Float(),
			},
			Material:      categoryTotals(s.Material),
			Subcontractor: categoryTotals(s.Subcontractor),
			Other:         categoryTotals(s.Other),
		},
		Details: make(map[string][]domain.ComparisonRow, len(domain.ComparisonCategories)),
		Counts:  make(map[string]int, len(domain.ComparisonCategories)+1),
		JobID:   jobID,
	}
	total := 0
	for _, cat := range domain.ComparisonCategories {
		rows := NormalizeRows(cat, data.Details[cat])
		ds.Details[cat] = rows
		ds.Counts[cat] = len(rows)
		total += len(rows)
	}
	ds.Counts["total"] = total
	return ds
}

func categoryTotals(a domain.AmountSummary) CategoryTotals {
	return CategoryTotals{
		BudgetedAmount: a.BudgetedAmount.Float(),
		ConsumedAmount: a.ConsumedAmount.Float(),
		PercentageUsed: a.PercentageUsed.Float(),
	}
}

type ComparisonArgs struct {
	Category       *string        `json:"category,omitempty"`
	Tag            *string        `json:"tag,omitempty"`
	CostCodeSearch *string        `json:"costCodeSearch,omitempty"`
	OverBudgetOnly *bool          `json:"overBudgetOnly,omitempty"`
	ReturnType     *string        `json:"returnType,omitempty"`
	Limit          *domain.Number `json:"limit,omitempty"`
}

type ComparisonCount struct {
	Count          int            `json:"count"`
	TotalRows      int            `json:"totalRows"`
	FiltersApplied map[string]any `json:"filtersApplied"`
}

type CategoryBreakdown struct {
	Count           int     `json:"count"`
	BudgetedTotal   float64 `json:"budgetedTotal"`
	ConsumedTotal   float64 `json:"consumedTotal"`
	OverBudgetCount int     `json:"overBudgetCount"`
}

type ComparisonRowSummary struct {
	ByCategory      map[string]*CategoryBreakdown `json:"byCategory"`
	GrandBudgeted   float64                       `json:"grandBudgeted"`
	GrandConsumed   float64                       `json:"grandConsumed"`
	GrandDifference float64                       `json:"grandDifference"`
	TotalRows       int                           `json:"totalRows"`
	FiltersApplied  map[string]any                `json:"filtersApplied"`
}

type ComparisonList struct {
	Rows           []domain.ComparisonRow `json:"rows"`
	MatchedCount   int                    `json:"matchedCount"`
	ReturnedCount  int                    `json:"returnedCount"`
	FiltersApplied map[string]any         `json:"filtersApplied"`
}

// SelectRows picks the rows of one category. "all" (the default) takes every
// category, "allowance" pools allowance rows from all of them, and an unknown
// category selects nothing.
func SelectRows(ds ComparisonDataset, category string) []domain.ComparisonRow {
	category = strings.ToLower(strings.TrimSpace(category))
	switch category {
	case "", "all":
		return ds.Rows()
	case "allowance":
		var out []domain.ComparisonRow
		for _, r := range ds.Rows() {
			if r.IsAllowance {
				out = append(out, r)
			}
		}
		return out
	}
	return ds.Details[category]
}

// FilterRows applies the tag, cost-code and over-budget filters.
func FilterRows(rows []domain.ComparisonRow, args ComparisonArgs) []domain.ComparisonRow {
	tag := str(args.Tag)
	search := str(args.CostCodeSearch)
	overOnly := flag(args.OverBudgetOnly)
	out := make([]domain.ComparisonRow, 0, len(rows))
	for _, r := range rows {
		if tag != "" && !hasTag(r.Tags, tag) {
			continue
		}
		if search != "" && !match.Fuzzy(search, r.CostCode) {
			continue
		}
		if overOnly && !r.IsOverBudget {
			continue
		}
		out = append(out, r)
	}
	return out
}

// QueryComparisonRows selects, filters and aggregates rows; returnType is
// count, summary, or list (default).
func QueryComparisonRows(ds ComparisonDataset, args ComparisonArgs) any {
	selected := SelectRows(ds, str(args.Category))
	filtered := FilterRows(selected, args)
	filters := echoFilters(args, "returnType", "limit")

	switch str(args.ReturnType) {
	case "count":
		return ComparisonCount{Count: len(filtered), TotalRows: len(selected), FiltersApplied: filters}
	case "summary":
		groups := map[string]*CategoryBreakdown{}
		for _, r := range filtered {
			g, ok := groups[r.Category]
			if !ok {
				g = &CategoryBreakdown{}
				groups[r.Category] = g
			}
			g.Count++
			g.BudgetedTotal += r.BudgetedAmount
			g.ConsumedTotal += r.ConsumedAmount
			if r.IsOverBudget {
				g.OverBudgetCount++
			}
		}
		var budgeted, consumed float64
		for _, g := range groups {
			g.BudgetedTotal = domain.Round(g.BudgetedTotal, 2)
			g.ConsumedTotal = domain.Round(g.ConsumedTotal, 2)
			budgeted += g.BudgetedTotal
			consumed += g.ConsumedTotal
		}
		return ComparisonRowSummary{
			ByCategory:      groups,
			GrandBudgeted:   domain.Round(budgeted, 2),
			GrandConsumed:   domain.Round(consumed, 2),
			GrandDifference: domain.Round(budgeted-consumed, 2),
			TotalRows:       len(filtered),
			FiltersApplied:  filters,
		}
	default:
		limit := limitOf(args.Limit, defaultComparisonLimit)
		if limit > len(filtered) {
			limit = len(filtered)
		}
		return ComparisonList{
			Rows:           filtered[:limit],
			MatchedCount:   len(filtered),
			ReturnedCount:  limit,
			FiltersApplied: filters,
		}
	}
}

type SummaryArgs struct {
	IncludeSubcategories *bool `json:"includeSubcategories,omitempty"`
}

type HoursPair struct {
	Budgeted float64 `json:"budgeted"`
	Actual   float64 `json:"actual"`
}

type LabourReport struct {
	BudgetedHours  float64              `json:"budgetedHours"`
	ActualHours    float64              `json:"actualHours"`
	Variance       float64              `json:"variance"`
	PercentageUsed float64              `json:"percentageUsed"`
	IsOverBudget   bool                 `json:"isOverBudget"`
	Subcategories  map[string]HoursPair `json:"subcategories,omitempty"`
}

type AmountReport struct {
	BudgetedAmount float64 `json:"budgetedAmount"`
	ConsumedAmount float64 `json:"consumedAmount"`
	Variance       float64 `json:"variance"`
	PercentageUsed float64 `json:"percentageUsed"`
	IsOverBudget   bool    `json:"isOverBudget"`
}

type GrandTotals struct {
	BudgetedAmount float64 `json:"budgetedAmount"`
	ConsumedAmount float64 `json:"consumedAmount"`
	Variance       float64 `json:"variance"`
	PercentageUsed float64 `json:"percentageUsed"`
}

type ComparisonReport struct {
	Labour        LabourReport `json:"labour"`
	Material      AmountReport `json:"material"`
	Subcontractor AmountReport `json:"subcontractor"`
	Other         AmountReport `json:"other"`
	GrandTotals   GrandTotals  `json:"grandTotals"`
	LabourHours   HoursPair    `json:"labourHours"`
	JobID         string       `json:"jobId"`
}

func percentUsed(consumed, budgeted float64) float64 {
	if budgeted <= 0 {
		return 0
	}
	return domain.Round(consumed/budgeted*100, 1)
}

func amountReport(a domain.AmountSummary) AmountReport {
	b, c := a.BudgetedAmount.Float(), a.ConsumedAmount.Float()
	return AmountReport{
		BudgetedAmount: b,
		ConsumedAmount: c,
		Variance:       domain.Round(c-b, 2),
		PercentageUsed: percentUsed(c, b),
		IsOverBudget:   c > b,
	}
}

// ComparisonSummary reports budget against actuals per category. Grand totals
// cover the money categories only; labour is tracked in hours.
func ComparisonSummary(jobID string, data domain.ComparisonData, args SummaryArgs) ComparisonReport {
	l := data.Summary.Labour
	budgetedHours, actualHours := l.BudgetedHours.Float(), l.ActualHours.Float()
	labour := LabourReport{
		BudgetedHours:  budgetedHours,
		ActualHours:    actualHours,
		Variance:       domain.Round(actualHours-budgetedHours, 2),
		PercentageUsed: percentUsed(actualHours, budgetedHours),
		IsOverBudget:   actualHours > budgetedHours,
	}
	if flag(args.IncludeSubcategories) {
		labour.Subcategories = map[string]HoursPair{
			"projectPlanning": {Budgeted: l.PPBudgetedHours.Float(), Actual: l.PPActualHours.Float()},
			"estimating":      {Budgeted: l.EPBudgetedHours.Float(), Actual: l.EPActualHours.Float()},
			"painting":        {Budgeted: l.PBudgetedHours.Float(), Actual: l.PActualHours.Float()},
			"carpentry":       {Budgeted: l.CBudgetedHours.Float(), Actual: l.CActualHours.Float()},
		}
	}
	material := amountReport(data.Summary.Material)
	sub := amountReport(data.Summary.Subcontractor)
	other := amountReport(data.Summary.Other)
	budgeted := material.BudgetedAmount + sub.BudgetedAmount + other.BudgetedAmount
	consumed := material.ConsumedAmount + sub.ConsumedAmount + other.ConsumedAmount
	return ComparisonReport{
		Labour:        labour,
		Material:      material,
		Subcontractor: sub,
		Other:         other,
		GrandTotals: GrandTotals{
			BudgetedAmount: domain.Round(budgeted, 2),
			ConsumedAmount: domain.Round(consumed, 2),
			Variance:       domain.Round(consumed-budgeted, 2),
			PercentageUsed: percentUsed(consumed, budgeted),
		},
		LabourHours: HoursPair{Budgeted: budgetedHours, Actual: actualHours},
		JobID:       jobID,
	}
}
