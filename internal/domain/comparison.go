package domain

import "encoding/json"

// Comparison categories as delivered by the budget-vs-actual service.
var ComparisonCategories = []string{"labour", "material", "subcontractor", "other"}

const (
	TagAllowance   = "alw"
	TagEstimate    = "est"
	TagChangeOrder = "co"
)

// ComparisonData is the raw payload of the comparison service.
type ComparisonData struct {
	Summary ComparisonSummary             `json:"summary"`
	Details map[string][]RawComparisonRow `json:"details"`
	Dropped int                           `json:"-"`
}

func (c *ComparisonData) UnmarshalJSON(data []byte) error {
	var doc struct {
		Summary json.RawMessage            `json:"summary"`
		Details map[string]json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &doc); err != nil && !fieldTypeError(data, err) {
		return err
	}
	out := ComparisonData{Details: map[string][]RawComparisonRow{}}
	if len(doc.Summary) > 0 {
		if err := json.Unmarshal(doc.Summary, &out.Summary); err != nil {
			out.Summary = ComparisonSummary{}
		}
	}
	for cat, list := range doc.Details {
		var rows []json.RawMessage
		if err := json.Unmarshal(list, &rows); err != nil {
			out.Dropped++
			continue
		}
		out.Details[cat] = decodeRows[RawComparisonRow](rows, &out.Dropped)
	}
	*c = out
	return nil
}

type ComparisonSummary struct {
	Labour        LabourSummary `json:"labour"`
	Material      AmountSummary `json:"material"`
	Subcontractor AmountSummary `json:"subcontractor"`
	Other         AmountSummary `json:"other"`
}

type LabourSummary struct {
	BudgetedHours   Number `json:"budgetedHours"`
	ActualHours     Number `json:"actualHours"`
	PercentageUsed  Number `json:"percentageUsed"`
	PPBudgetedHours Number `json:"PPbudgetedHours"`
	PPActualHours   Number `json:"PPactualHours"`
	EPBudgetedHours Number `json:"EPbudgetedHours"`
	EPActualHours   Number `json:"EPactualHours"`
	PBudgetedHours  Number `json:"PbudgetedHours"`
	PActualHours    Number `json:"PactualHours"`
	CBudgetedHours  Number `json:"CbudgetedHours"`
	CActualHours    Number `json:"CactualHours"`
}

type AmountSummary struct {
	BudgetedAmount Number `json:"budgetedAmount"`
	ConsumedAmount Number `json:"consumedAmount"`
	PercentageUsed Number `json:"percentageUsed"`
}

// RawComparisonRow is a detail row before normalization.
type RawComparisonRow struct {
	CostCode           Ref             `json:"costCode"`
	BudgetedAmount     Number          `json:"budgetedAmount"`
	ConsumedAmount     Number          `json:"consumedAmount"`
	RowType            string          `json:"rowType,omitempty"`
	FromChangeOrder    Flag            `json:"fromChangeOrder"`
	Tags               json.RawMessage `json:"tags,omitempty"`
	TagAmounts         Amounts         `json:"tagAmounts,omitempty"`
	ConsumedTagAmounts Amounts         `json:"consumedTagAmounts,omitempty"`
}

// TagList returns the row's explicit tags; non-list or non-string values yield nil.
func (r RawComparisonRow) TagList() []string {
	if len(r.Tags) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(r.Tags, &tags); err != nil {
		return nil
	}
	return tags
}

// ComparisonRow is a normalized budget-vs-actual row.
type ComparisonRow struct {
	CostCode           string             `json:"costCode"`
	Category           string             `json:"category"`
	BudgetedAmount     float64            `json:"budgetedAmount"`
	ConsumedAmount     float64            `json:"consumedAmount"`
	DifferenceAmount   float64            `json:"differenceAmount"`
	Progress           float64            `json:"progress"`
	RowType            string             `json:"rowType,omitempty"`
	FromChangeOrder    bool               `json:"fromChangeOrder"`
	Tags               []string           `json:"tags"`
	TagAmounts         map[string]float64 `json:"tagAmounts"`
	ConsumedTagAmounts map[string]float64 `json:"consumedTagAmounts"`
	IsOverBudget       bool               `json:"isOverBudget"`
	IsAllowance        bool               `json:"isAllowance"`
	IsChangeOrder      bool               `json:"isChangeOrder"`
}
