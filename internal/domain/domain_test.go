package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberLenientDecoding(t *testing.T) {
	cases := map[string]float64{
		`12.5`:     12.5,
		`"42"`:     42,
		`" 7.25 "`: 7.25,
		`null`:     0,
		`"abc"`:    0,
		`true`:     1,
		`false`:    0,
		`{}`:       0,
		`"NaN"`:    0,
	}
	for in, want := range cases {
		var n Number
		require.NoError(t, json.Unmarshal([]byte(in), &n), in)
		assert.Equal(t, want, n.Float(), in)
	}
}

func TestRefAcceptsStringsAndNumbers(t *testing.T) {
	var refs []Ref
	require.NoError(t, json.Unmarshal([]byte(`["t-1", 3, 4.0, null, true]`), &refs))
	assert.Equal(t, []Ref{"t-1", "3", "4", "", ""}, refs)
}

func TestJobKeepsRowsWithMistypedFields(t *testing.T) {
	doc := `{
		"documentId": "job-1",
		"projectTitle": "Kitchen",
		"schedule": [
			{"id": "a", "task": "Demo", "hours": "8", "isCritical": "true"},
			{"id": "b", "task": "Paint", "isMainTask": 1, "remarks": 42, "subtaskIds": "c"},
			{"id": ["x"], "task": "Trim", "index": 3, "hours": 4},
			"junk"
		],
		"estimate": [{"area": "Kitchen", "total": "1,000"}, 5],
		"milestones": [{"title": "Deposit", "amount": 500, "state": "yes"}]
	}`
	var job Job
	require.NoError(t, json.Unmarshal([]byte(doc), &job))
	require.Len(t, job.Schedule, 3)
	assert.Equal(t, "a", job.Schedule[0].ID)
	assert.Equal(t, 8.0, job.Schedule[0].Hours.Float())
	assert.True(t, bool(job.Schedule[0].IsCritical))

	assert.Equal(t, "Paint", job.Schedule[1].Name)
	assert.True(t, bool(job.Schedule[1].IsMainTask))
	assert.Empty(t, job.Schedule[1].Remarks)
	assert.Empty(t, job.Schedule[1].SubtaskIDs)

	assert.Empty(t, job.Schedule[2].ID)
	assert.Equal(t, "Trim", job.Schedule[2].Name)
	assert.Equal(t, "3", job.Schedule[2].IndexKey())
	assert.Equal(t, 4.0, job.Schedule[2].Hours.Float())

	require.Len(t, job.Estimate, 1)
	assert.Equal(t, 0.0, job.Estimate[0].Total.Float())
	require.Len(t, job.Milestones, 1)
	assert.True(t, bool(job.Milestones[0].State))
	assert.Equal(t, 2, job.Dropped)
}

func TestJobHeaderTypeMismatchKeepsLists(t *testing.T) {
	var job Job
	require.NoError(t, json.Unmarshal([]byte(`{"documentId": "J9", "clientName": 7, "schedule": [{"id": "a"}]}`), &job))
	assert.Equal(t, "J9", job.DocumentID)
	assert.Empty(t, job.ClientName)
	require.Len(t, job.Schedule, 1)

	assert.Error(t, json.Unmarshal([]byte(`{"documentId": `), &job))
}

func TestFlagLenientDecoding(t *testing.T) {
	cases := map[string]bool{
		`true`:    true,
		`false`:   false,
		`"true"`:  true,
		`"Yes"`:   true,
		`"1"`:     true,
		`"no"`:    false,
		`1`:       true,
		`0`:       false,
		`null`:    false,
		`[]`:      false,
		`{"a":1}`: false,
	}
	for in, want := range cases {
		var f Flag
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Equal(t, want, bool(f), in)
	}
}

func TestAmountsIgnoreNonObjects(t *testing.T) {
	var a Amounts
	require.NoError(t, json.Unmarshal([]byte(`{"alw": "250", "co": 100}`), &a))
	assert.Equal(t, Amounts{"alw": 250, "co": 100}, a)

	for _, in := range []string{`[]`, `"x"`, `12`, `null`} {
		a = Amounts{"stale": 1}
		require.NoError(t, json.Unmarshal([]byte(in), &a), in)
		assert.Empty(t, a, in)
	}
}

func TestStatusPartition(t *testing.T) {
	for _, pct := range []float64{-5, 0, 0.1, 50, 99.9, 100, 120} {
		task := Task{PercentageComplete: Number(pct)}
		status := task.Status()
		switch {
		case pct >= 100:
			assert.Equal(t, StatusCompleted, status)
		case pct > 0:
			assert.Equal(t, StatusInProgress, status)
		default:
			assert.Equal(t, StatusNotStarted, status)
		}
	}
}

func TestNumericFieldUnknownName(t *testing.T) {
	task := Task{Hours: 4}
	v, ok := task.NumericField("hours")
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
	v, ok = task.NumericField("bogus")
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestResourceListDefaults(t *testing.T) {
	task := Task{Resources: json.RawMessage(`{"b": {"name": "Ann"}, "a": {"role": "lead"}, "c": "skip"}`)}
	assert.Equal(t, []Resource{
		{Key: "a", Name: "Unknown", Role: "lead"},
		{Key: "b", Name: "Ann", Role: "Unknown"},
	}, task.ResourceList())
}

func TestDependencyDefaults(t *testing.T) {
	var d Dependency
	require.NoError(t, json.Unmarshal([]byte(`{"predecessorTaskId": 2}`), &d))
	assert.Equal(t, "2", d.Ref())
	assert.Equal(t, "FS", d.Kind())

	var stage PaymentStage
	require.NoError(t, json.Unmarshal([]byte(`{"percentage": "25"}`), &stage))
	assert.True(t, stage.Manual())
	assert.Equal(t, 1050.0, stage.Amount(4200))
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2024-05-01T08:00:00Z")
	require.True(t, ok)
	assert.Equal(t, "2024-05-01", d.Format(DateLayout))
	_, ok = ParseDate("05/01/2024")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}

func TestComparisonDataDecoding(t *testing.T) {
	payload := `{
		"summary": {"labour": {"budgetedHours": "100", "actualHours": 80}},
		"details": {"material": [{"costCode": 501, "budgetedAmount": "10", "tags": ["alw"]}, "junk"]}
	}`
	var data ComparisonData
	require.NoError(t, json.Unmarshal([]byte(payload), &data))
	assert.Equal(t, 100.0, data.Summary.Labour.BudgetedHours.Float())
	require.Len(t, data.Details["material"], 1)
	row := data.Details["material"][0]
	assert.Equal(t, "501", row.CostCode.String())
	assert.Equal(t, []string{"alw"}, row.TagList())
	assert.Equal(t, 1, data.Dropped)
}

func TestComparisonRowWithMalformedTagAmountsIsKept(t *testing.T) {
	payload := `{
		"details": {
			"material": [{"costCode": "M1", "budgetedAmount": 1000, "consumedAmount": 1500,
				"tagAmounts": [], "consumedTagAmounts": "n/a", "fromChangeOrder": "true"}],
			"labour": "unavailable"
		}
	}`
	var data ComparisonData
	require.NoError(t, json.Unmarshal([]byte(payload), &data))
	require.Len(t, data.Details["material"], 1)
	row := data.Details["material"][0]
	assert.Equal(t, 1500.0, row.ConsumedAmount.Float())
	assert.Empty(t, row.TagAmounts)
	assert.Empty(t, row.ConsumedTagAmounts)
	assert.True(t, bool(row.FromChangeOrder))
	assert.NotContains(t, data.Details, "labour")
	assert.Equal(t, 1, data.Dropped)
}
