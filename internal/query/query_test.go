package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobdesk/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func loadJob(t *testing.T, doc string) domain.Job {
	t.Helper()
	var job domain.Job
	require.NoError(t, json.Unmarshal([]byte(doc), &job))
	return job
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

const kitchenJob = `{
	"documentId": "job-1",
	"projectTitle": "Hammond Kitchen",
	"schedule": [
		{"id": "m1", "index": 0, "task": "Kitchen Remodel", "taskType": "labour", "isMainTask": true,
		 "subtaskIds": ["s1"], "subtaskIndices": [2]},
		{"id": "s1", "index": 1, "task": "Demolition", "taskType": "labour", "hours": 10, "consumed": 4,
		 "duration": 2, "percentageComplete": 100, "startDate": "2024-05-01", "isCritical": true},
		{"id": "s2", "index": 2, "task": "Cabinet prep painting labor", "taskType": "labour", "hours": "6",
		 "duration": 1, "percentageComplete": 50, "startDate": "2024-05-10", "remarks": "two coats"},
		{"id": "s3", "index": 3, "task": "Clean Up Crew", "taskType": "labour", "mainTaskId": "m1",
		 "hours": 2, "duration": 1, "startDate": "bad-date"},
		{"id": "ms1", "index": 4, "task": "Rough-in inspection", "taskType": "milestone", "percentageComplete": 100,
		 "totalPaymentAmount": 1000, "paymentStages": [{"id": "p1", "name": "Inspection", "percentage": 100, "effectiveDate": "2024-06-02"}]},
		{"id": "ms2", "index": 5, "task": "Final walkthrough", "taskType": "milestone", "percentageComplete": 0},
		{"id": "mat1", "index": 6, "task": "Cabinets", "taskType": "material", "mainTaskId": "m1",
		 "totalPaymentAmount": 9000, "paymentStages": [
			{"id": "p2", "name": "Deposit", "percentage": 50, "effectiveDate": "2024-05-03"},
			{"id": "p3", "name": "Delivery", "percentage": 50}]},
		{"id": "mat2", "index": 7, "task": "Countertops", "taskType": "material",
		 "totalPaymentAmount": 4000, "paymentStages": [
			{"id": "p4", "name": "Deposit", "percentage": 25, "effectiveDate": "2024-05-20", "isManualDate": false},
			{"id": "p5", "name": "Install", "percentage": 75, "effectiveDate": "2024-06-15"}]},
		{"id": "fl", "index": 8, "task": "Flooring", "taskType": "subcontractor",
		 "dependencies": [{"predecessorId": "s1", "type": "FS"}, {"predecessorTaskId": 2}]}
	],
	"estimate": [
		{"area": "Kitchen", "description": "Cabinet install", "total": 5000, "budgetedTotal": 3000, "costCode": "06-100"},
		{"area": "Kitchen", "description": "Paint walls", "total": "1200.50", "budgetedTotal": 700},
		{"area": "Bath", "description": "Tile floor", "total": 2500, "notesRemarks": "kitchen style tile"}
	],
	"milestones": [{"title": "Deposit", "amount": 2000, "state": true}, {"title": "Final", "amount": "3000", "state": false}]
}`

func TestQueryScheduleCountByStatus(t *testing.T) {
	job := loadJob(t, kitchenJob)
	res := QuerySchedule(job, ScheduleArgs{TaskType: ptr("milestone"), Status: ptr("completed"), ReturnType: ptr("count")})
	count, ok := res.(ScheduleCount)
	require.True(t, ok)
	assert.Equal(t, 1, count.Count)
	assert.Equal(t, 9, count.TotalTasks)
	assert.Equal(t, map[string]any{"taskType": "milestone", "status": "completed"}, count.FiltersApplied)
}

func TestQueryScheduleSearchUsesParentContext(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)
	got := FilterTasks(idx, ScheduleArgs{SearchQuery: ptr("kitchen")})
	var ids []string
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"m1", "s3", "mat1"}, ids)
}

func TestQueryScheduleDateRangeExcludesUndated(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)
	got := FilterTasks(idx, ScheduleArgs{StartDateFrom: ptr("2024-05-01"), StartDateTo: ptr("2024-05-10")})
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "s2", got[1].ID)

	assert.Len(t, FilterTasks(idx, ScheduleArgs{}), 9)
}

func TestQueryScheduleSum(t *testing.T) {
	job := loadJob(t, kitchenJob)
	sum := QuerySchedule(job, ScheduleArgs{TaskType: ptr("labour"), ReturnType: ptr("sum")}).(ScheduleSum)
	assert.Equal(t, 18.0, sum.Sum)
	assert.Equal(t, "hours", sum.FieldSummed)
	assert.Equal(t, 4, sum.MatchedTasks)

	unknown := QuerySchedule(job, ScheduleArgs{FieldToSum: ptr("bogus"), ReturnType: ptr("sum")}).(ScheduleSum)
	assert.Zero(t, unknown.Sum)
	assert.Equal(t, 9, unknown.MatchedTasks)
	assert.NotContains(t, unknown.FiltersApplied, "fieldToSum")
}

func TestQueryScheduleListLimit(t *testing.T) {
	job := loadJob(t, kitchenJob)
	list := QuerySchedule(job, ScheduleArgs{Limit: ptr(domain.Number(3))}).(ScheduleList)
	assert.Equal(t, 9, list.MatchedCount)
	assert.Equal(t, 3, list.ReturnedCount)
	require.Len(t, list.Tasks, 3)
	assert.Equal(t, "completed", list.Tasks[1].Status)
	assert.Empty(t, list.FiltersApplied)

	out := toMap(t, list.Tasks[0])
	assert.Nil(t, out["startDate"])
	assert.Contains(t, out, "startDate")
}

func TestGetTaskDetails(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)

	d, err := GetTaskDetails(idx, TaskDetailsArgs{TaskID: ptr("s1")})
	require.NoError(t, err)
	assert.Equal(t, 6.0, d.HoursRemaining)
	assert.Equal(t, "Automatic", d.SchedulingMode)

	d, err = GetTaskDetails(idx, TaskDetailsArgs{SearchQuery: ptr("cabinets")})
	require.NoError(t, err)
	assert.Equal(t, "mat1", d.ID)
	assert.Equal(t, "Kitchen Remodel", d.ParentTaskName)
	require.Len(t, d.PaymentStages, 2)
	assert.Equal(t, 4500.0, d.PaymentStages[0].CalculatedAmount)

	d, err = GetTaskDetails(idx, TaskDetailsArgs{SearchQuery: ptr("flooring")})
	require.NoError(t, err)
	require.Len(t, d.Dependencies, 2)
	assert.Equal(t, "Finish-to-Start (predecessor must finish first)", d.Dependencies[0].TypeMeaning)
	assert.Equal(t, "2", d.Dependencies[1].PredecessorID)
}

func TestGetTaskDetailsPrefersDirectNameMatch(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)
	// "Kitchen Remodel" matches by name; its subtasks only through the parent.
	d, err := GetTaskDetails(idx, TaskDetailsArgs{SearchQuery: ptr("kitchen remodel")})
	require.NoError(t, err)
	assert.Equal(t, "m1", d.ID)

	d, err = GetTaskDetails(idx, TaskDetailsArgs{SearchQuery: ptr("kitchen"), OnlyPaymentCapable: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "mat1", d.ID)
}

func TestGetTaskDetailsNotFound(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)
	_, err := GetTaskDetails(idx, TaskDetailsArgs{SearchQuery: ptr("xyz")})
	var lookup *LookupError
	require.ErrorAs(t, err, &lookup)
	out := toMap(t, lookup)
	assert.Equal(t, "Task not found", out["error"])
	assert.Equal(t, "xyz", out["searchedFor"])
	assert.Len(t, out["availableTasks"], 9)

	_, err = GetTaskDetails(idx, TaskDetailsArgs{SearchQuery: ptr("demolition"), OnlyPaymentCapable: ptr(true)})
	require.ErrorAs(t, err, &lookup)
	out = toMap(t, lookup)
	assert.Equal(t, "No payment-capable task found matching your search", out["error"])
	assert.Contains(t, out["availablePaymentTasks"], "Cabinets (material)")
}

func TestResolveHierarchyUnion(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)
	h, err := ResolveHierarchy(idx, HierarchyArgs{MainTaskSearch: ptr("kitchen")})
	require.NoError(t, err)
	assert.Equal(t, "m1", h.MainTask.ID)
	subs := h.Subtasks.([]TaskSummary)
	var ids []string
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"s1", "s2", "s3", "mat1"}, ids)
	assert.Equal(t, 4, h.SubtaskCount)
	assert.Equal(t, 18.0, h.Totals.Hours)
	assert.Equal(t, 4.0, h.Totals.Consumed)
	assert.Equal(t, 37.5, h.Totals.AverageCompletion)
}

func TestResolveHierarchyDeduplicates(t *testing.T) {
	job := loadJob(t, `{"schedule": [
		{"id": "p", "index": 0, "task": "Parent", "isMainTask": true, "subtaskIds": ["c"], "subtaskIndices": [1]},
		{"id": "c", "index": 1, "task": "Child", "mainTaskId": "p"}
	]}`)
	h, err := ResolveHierarchy(NewScheduleIndex(job.Schedule), HierarchyArgs{MainTaskID: ptr("p"), IncludeDetails: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, h.SubtaskCount)
	assert.Len(t, h.Subtasks.([]TaskDetails), 1)
}

func TestResolveHierarchyEmptyAndMissing(t *testing.T) {
	job := loadJob(t, `{"schedule": [{"id": "p", "task": "Lonely", "isMainTask": true}]}`)
	idx := NewScheduleIndex(job.Schedule)
	h, err := ResolveHierarchy(idx, HierarchyArgs{MainTaskID: ptr("p")})
	require.NoError(t, err)
	assert.Zero(t, h.Totals.AverageCompletion)
	assert.Empty(t, h.Subtasks)

	_, err = ResolveHierarchy(idx, HierarchyArgs{MainTaskSearch: ptr("garage")})
	var lookup *LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "Main task not found", lookup.Message)
	assert.Equal(t, []string{"Lonely"}, lookup.Hints["availableMainTasks"])
}

func TestDependenciesTwoPredecessors(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)
	res, err := ResolveDependencies(idx, DependencyArgs{TaskSearch: ptr("Flooring"), Direction: ptr("predecessors")})
	require.NoError(t, err)
	require.Len(t, res.Links, 2)
	for _, l := range res.Links {
		assert.Equal(t, "FS", l.DependencyType)
		assert.Zero(t, l.Lag)
		assert.Nil(t, l.Predecessors)
	}
	assert.Equal(t, "s1", res.Links[0].Task.ID)
	assert.Equal(t, "s2", res.Links[1].Task.ID)

	out := toMap(t, res)
	assert.Equal(t, float64(2), out["count"])
	assert.Len(t, out["predecessors"], 2)
}

func TestDependenciesSuccessorsByIdAndIndex(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)
	res, err := ResolveDependencies(idx, DependencyArgs{TaskID: ptr("s2"), Direction: ptr("successors")})
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "fl", res.Links[0].Task.ID)
	assert.Contains(t, toMap(t, res), "successors")
}

func TestDependencyCycleTerminates(t *testing.T) {
	job := loadJob(t, `{"schedule": [
		{"id": "A", "index": 0, "task": "Alpha", "dependencies": [{"predecessorId": "B"}]},
		{"id": "B", "index": 1, "task": "Beta", "dependencies": [{"predecessorId": "A"}, {"predecessorId": "A"}]}
	]}`)
	idx := NewScheduleIndex(job.Schedule)
	res, err := ResolveDependencies(idx, DependencyArgs{TaskID: ptr("A"), IncludeChain: ptr(true)})
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	b := res.Links[0]
	assert.Equal(t, "B", b.Task.ID)
	require.NotNil(t, b.Predecessors)
	require.Len(t, *b.Predecessors, 2)
	for _, a := range *b.Predecessors {
		assert.Equal(t, "A", a.Task.ID)
		require.NotNil(t, a.Predecessors)
		assert.Empty(t, *a.Predecessors)
	}

	succ, err := ResolveDependencies(idx, DependencyArgs{TaskID: ptr("A"), Direction: ptr("successors"), IncludeChain: ptr(true)})
	require.NoError(t, err)
	require.Len(t, succ.Links, 1)
	assert.Equal(t, "B", succ.Links[0].Task.ID)
}

func TestDependenciesNotFound(t *testing.T) {
	idx := NewScheduleIndex(loadJob(t, kitchenJob).Schedule)
	_, err := ResolveDependencies(idx, DependencyArgs{TaskSearch: ptr("zzz")})
	var lookup *LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Len(t, lookup.Hints["availableTasks"], 9)
}

func TestPaymentAmountsExact(t *testing.T) {
	job := loadJob(t, `{"schedule": [{"id": "x", "task": "Sub work", "taskType": "subcontractor",
		"totalPaymentAmount": 4200.00, "paymentStages": [{"name": "Down", "percentage": 25}, {"name": "Done", "percentage": 75}]}]}`)
	list := QueryPaymentSchedule(job, PaymentArgs{}).(PaymentList)
	require.Len(t, list.Payments, 2)
	assert.Equal(t, 1050.0, list.Payments[0].Amount)
	assert.Equal(t, 3150.0, list.Payments[1].Amount)
	assert.Equal(t, 4200.0, list.GrandTotal)
}

func TestPaymentSummaryByType(t *testing.T) {
	job := loadJob(t, kitchenJob)
	sum := QueryPaymentSchedule(job, PaymentArgs{TaskType: ptr("material"), ReturnType: ptr("summary")}).(PaymentSummary)
	require.Contains(t, sum.ByTaskType, "material")
	assert.Equal(t, PaymentGroup{Count: 4, Total: 13000}, *sum.ByTaskType["material"])
	assert.Equal(t, 13000.0, sum.GrandTotal)
	assert.Equal(t, map[string]any{"taskType": "material"}, sum.FiltersApplied)
}

func TestPaymentListSortingAndFilters(t *testing.T) {
	job := loadJob(t, kitchenJob)
	list := QueryPaymentSchedule(job, PaymentArgs{}).(PaymentList)
	var names []string
	for _, p := range list.Payments {
		names = append(names, p.StageName)
	}
	assert.Equal(t, []string{"Deposit", "Deposit", "Inspection", "Install", "Delivery"}, names)
	assert.Equal(t, "Kitchen Remodel", list.Payments[0].ParentTaskName)
	assert.False(t, list.Payments[1].IsManualDate)

	bounded := QueryPaymentSchedule(job, PaymentArgs{DateFrom: ptr("2024-05-15"), DateTo: ptr("2024-06-10")}).(PaymentList)
	names = nil
	for _, p := range bounded.Payments {
		names = append(names, p.StageName)
	}
	assert.Equal(t, []string{"Deposit", "Inspection", "Delivery"}, names)

	searched := QueryPaymentSchedule(job, PaymentArgs{TaskSearch: ptr("kitchen")}).(PaymentList)
	assert.Equal(t, 2, searched.TotalPayments)
}

func TestPaymentTimeline(t *testing.T) {
	job := loadJob(t, kitchenJob)
	tl := QueryPaymentSchedule(job, PaymentArgs{ReturnType: ptr("timeline")}).(PaymentTimeline)
	require.Contains(t, tl.Timeline, "2024-05")
	assert.Equal(t, 5500.0, tl.Timeline["2024-05"].Total)
	assert.Equal(t, 4000.0, tl.Timeline["2024-06"].Total)
	assert.Equal(t, 4500.0, tl.Timeline["Unscheduled"].Total)
	assert.Equal(t, 14000.0, tl.GrandTotal)
}

func TestCalculateEstimateSum(t *testing.T) {
	job := loadJob(t, kitchenJob)
	res := CalculateEstimateSum(job, EstimateSumArgs{FieldName: ptr("total"), SearchQuery: ptr("kitchen")})
	assert.Equal(t, 8700.5, res.Sum)
	assert.Equal(t, 3, res.MatchedItems)
	assert.Equal(t, "Kitchen - Cabinet install", res.MatchedExamples[0])

	all := CalculateEstimateSum(job, EstimateSumArgs{FieldName: ptr("budgetedTotal")})
	assert.Equal(t, 3700.0, all.Sum)
	assert.Equal(t, "ALL", all.SearchQuery)

	unknown := CalculateEstimateSum(job, EstimateSumArgs{FieldName: ptr("nope")})
	assert.Zero(t, unknown.Sum)
}

func TestCalculateFieldSum(t *testing.T) {
	job := loadJob(t, kitchenJob)
	res, err := CalculateFieldSum(job, FieldSumArgs{ListName: ptr("milestones"), FieldName: ptr("amount")})
	require.NoError(t, err)
	assert.Equal(t, 5000.0, res.Sum)
	assert.Equal(t, []string{"Deposit", "Final"}, res.MatchedExamples)

	res, err = CalculateFieldSum(job, FieldSumArgs{ListName: ptr("schedule"), FieldName: ptr("hours"), SearchQuery: ptr("painting")})
	require.NoError(t, err)
	assert.Equal(t, 6.0, res.Sum)

	_, err = CalculateFieldSum(job, FieldSumArgs{ListName: ptr("invoices"), FieldName: ptr("amount")})
	var lookup *LookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "List 'invoices' not found or is not an array.", lookup.Message)
}

const comparisonPayload = `{
	"summary": {
		"labour": {"budgetedHours": 100, "actualHours": 120, "PPbudgetedHours": 10, "PPactualHours": 12},
		"material": {"budgetedAmount": 5000, "consumedAmount": 4000},
		"subcontractor": {"budgetedAmount": "2000", "consumedAmount": 2500},
		"other": {}
	},
	"details": {
		"labour": [{"costCode": "01-Labor", "budgetedAmount": 800, "consumedAmount": 900}],
		"material": [
			{"costCode": "06-Cabinets", "budgetedAmount": 3000, "consumedAmount": 2000, "rowType": "allowance"},
			{"costCode": "09-Paint", "budgetedAmount": 0, "consumedAmount": 500, "fromChangeOrder": true}
		],
		"subcontractor": [{"costCode": "15-Plumbing", "budgetedAmount": 2000, "consumedAmount": 2500, "tags": ["EST", "alw"]}]
	}
}`

func loadComparison(t *testing.T) ComparisonDataset {
	t.Helper()
	var data domain.ComparisonData
	require.NoError(t, json.Unmarshal([]byte(comparisonPayload), &data))
	return NormalizeComparison("job-1", data)
}

func TestNormalizeRowsZeroBudget(t *testing.T) {
	rows := NormalizeRows("material", []domain.RawComparisonRow{{BudgetedAmount: 0, ConsumedAmount: 500}})
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].Progress)
	assert.True(t, rows[0].IsOverBudget)
	assert.Equal(t, -500.0, rows[0].DifferenceAmount)
	assert.Equal(t, []string{"est"}, rows[0].Tags)
}

func TestNormalizeComparisonTags(t *testing.T) {
	ds := loadComparison(t)
	assert.Equal(t, 4, ds.Counts["total"])
	cab := ds.Details["material"][0]
	assert.Equal(t, []string{"est", "alw"}, cab.Tags)
	assert.True(t, cab.IsAllowance)
	assert.Equal(t, 66.7, cab.Progress)
	paint := ds.Details["material"][1]
	assert.Equal(t, []string{"co"}, paint.Tags)
	assert.True(t, paint.IsChangeOrder)
}

func TestQueryComparisonRows(t *testing.T) {
	ds := loadComparison(t)

	count := QueryComparisonRows(ds, ComparisonArgs{OverBudgetOnly: ptr(true), ReturnType: ptr("count")}).(ComparisonCount)
	assert.Equal(t, 3, count.Count)
	assert.Equal(t, 4, count.TotalRows)

	alw := QueryComparisonRows(ds, ComparisonArgs{Category: ptr("Allowance"), ReturnType: ptr("list")}).(ComparisonList)
	require.Len(t, alw.Rows, 2)
	assert.Equal(t, "material", alw.Rows[0].Category)
	assert.Equal(t, "subcontractor", alw.Rows[1].Category)

	tagged := QueryComparisonRows(ds, ComparisonArgs{Tag: ptr("est")}).(ComparisonList)
	assert.Equal(t, 3, tagged.MatchedCount)

	search := QueryComparisonRows(ds, ComparisonArgs{CostCodeSearch: ptr("plumbing"), Limit: ptr(domain.Number(5))}).(ComparisonList)
	require.Len(t, search.Rows, 1)
	assert.Equal(t, map[string]any{"costCodeSearch": "plumbing"}, search.FiltersApplied)

	unknown := QueryComparisonRows(ds, ComparisonArgs{Category: ptr("equipment")}).(ComparisonList)
	assert.Empty(t, unknown.Rows)
	assert.Zero(t, unknown.MatchedCount)

	summary := QueryComparisonRows(ds, ComparisonArgs{ReturnType: ptr("summary")}).(ComparisonRowSummary)
	assert.Equal(t, CategoryBreakdown{Count: 2, BudgetedTotal: 3000, ConsumedTotal: 2500, OverBudgetCount: 1}, *summary.ByCategory["material"])
	assert.Equal(t, 5800.0, summary.GrandBudgeted)
	assert.Equal(t, 5900.0, summary.GrandConsumed)
	assert.Equal(t, -100.0, summary.GrandDifference)
}

func TestComparisonSummary(t *testing.T) {
	var data domain.ComparisonData
	require.NoError(t, json.Unmarshal([]byte(comparisonPayload), &data))

	rep := ComparisonSummary("job-1", data, SummaryArgs{IncludeSubcategories: ptr(true)})
	assert.Equal(t, 20.0, rep.Labour.Variance)
	assert.Equal(t, 120.0, rep.Labour.PercentageUsed)
	assert.True(t, rep.Labour.IsOverBudget)
	assert.Equal(t, HoursPair{Budgeted: 10, Actual: 12}, rep.Labour.Subcategories["projectPlanning"])
	assert.Equal(t, 80.0, rep.Material.PercentageUsed)
	assert.True(t, rep.Subcontractor.IsOverBudget)
	assert.Zero(t, rep.Other.PercentageUsed)
	assert.Equal(t, GrandTotals{BudgetedAmount: 7000, ConsumedAmount: 6500, Variance: -500, PercentageUsed: 92.9}, rep.GrandTotals)

	plain := ComparisonSummary("job-1", data, SummaryArgs{})
	assert.NotContains(t, toMap(t, plain)["labour"], "subcategories")
}

func TestMistypedFieldsDoNotDropRecords(t *testing.T) {
	var data domain.ComparisonData
	require.NoError(t, json.Unmarshal([]byte(`{"details": {"material": [
		{"costCode": "M1", "budgetedAmount": 1000, "consumedAmount": 1500, "tagAmounts": []}
	]}}`), &data))
	ds := NormalizeComparison("job-1", data)
	summary := QueryComparisonRows(ds, ComparisonArgs{ReturnType: ptr("summary")}).(ComparisonRowSummary)
	assert.Equal(t, CategoryBreakdown{Count: 1, BudgetedTotal: 1000, ConsumedTotal: 1500, OverBudgetCount: 1}, *summary.ByCategory["material"])
	assert.Equal(t, 1500.0, summary.GrandConsumed)

	var job domain.Job
	require.NoError(t, json.Unmarshal([]byte(`{"documentId": "J1", "schedule": [
		{"id": "a", "task": "Framing", "hours": 10, "isCritical": "true"},
		{"id": "b", "task": "Drywall", "hours": 5}
	]}`), &job))
	require.Zero(t, job.Dropped)
	idx := NewScheduleIndex(job.Schedule)
	assert.Equal(t, 1, CountTasks(idx, ScheduleArgs{IsCritical: ptr(true)}).Count)
	assert.Equal(t, 2, CountTasks(idx, ScheduleArgs{}).Count)
}
