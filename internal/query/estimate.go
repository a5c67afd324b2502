package query

import (
	"fmt"

	"jobdesk/internal/domain"
	"jobdesk/internal/match"
)

const maxExamples = 5

// Row is a list item that can be searched and summed by field name.
type Row interface {
	NumericField(name string) (float64, bool)
	TextFields() []string
	Label() string
}

type EstimateSumArgs struct {
	FieldName   *string `json:"fieldName,omitempty"`
	SearchQuery *string `json:"searchQuery,omitempty"`
}

type EstimateSum struct {
	Sum             float64  `json:"sum"`
	Currency        string   `json:"currency"`
	FieldSummed     string   `json:"fieldSummed"`
	TotalItems      int      `json:"totalItems"`
	MatchedItems    int      `json:"matchedItems"`
	SearchQuery     string   `json:"searchQuery"`
	MatchedExamples []string `json:"matchedExamples"`
}

// CalculateEstimateSum sums fieldName (default "total") over estimate rows
// whose area, scope, description, cost code, notes or row type match.
func CalculateEstimateSum(job domain.Job, args EstimateSumArgs) EstimateSum {
	field := str(args.FieldName)
	if field == "" {
		field = "total"
	}
	q := str(args.SearchQuery)
	rows := make([]Row, len(job.Estimate))
	for i, r := range job.Estimate {
		rows[i] = r
	}
	matched, sum := sumRows(rows, field, q)
	examples := make([]string, 0, maxExamples)
	for _, r := range matched {
		if len(examples) == maxExamples {
			break
		}
		examples = append(examples, truncate(r.Label(), 50))
	}
	if q == "" {
		q = "ALL"
	}
	return EstimateSum{
		Sum:             sum,
		Currency:        "USD",
		FieldSummed:     field,
		TotalItems:      len(rows),
		MatchedItems:    len(matched),
		SearchQuery:     q,
		MatchedExamples: examples,
	}
}

type FieldSumArgs struct {
	ListName    *string `json:"listName,omitempty"`
	FieldName   *string `json:"fieldName,omitempty"`
	SearchQuery *string `json:"searchQuery,omitempty"`
}

type FieldSum struct {
	Sum             float64  `json:"sum"`
	Currency        string   `json:"currency"`
	FieldSummed     string   `json:"fieldSummed"`
	ItemsCount      int      `json:"itemsCount"`
	MatchesFound    int      `json:"matchesFound"`
	SearchQueryUsed string   `json:"searchQueryUsed"`
	MatchedExamples []string `json:"matchedExamples"`
}

// CalculateFieldSum sums a field over one of the job's lists: estimate,
// schedule, milestones or flooringEstimateData. Any other list name is an
// error.
func CalculateFieldSum(job domain.Job, args FieldSumArgs) (FieldSum, error) {
	list := str(args.ListName)
	rows, ok := listRows(job, list)
	if !ok {
		return FieldSum{}, &LookupError{Message: fmt.Sprintf("List '%s' not found or is not an array.", list)}
	}
	field := str(args.FieldName)
	q := str(args.SearchQuery)
	matched, sum := sumRows(rows, field, q)
	examples := make([]string, 0, maxExamples)
	for _, r := range matched {
		if len(examples) == maxExamples {
			break
		}
		examples = append(examples, r.Label())
	}
	if q == "" {
		q = "ALL"
	}
	return FieldSum{
		Sum:             sum,
		Currency:        "USD",
		FieldSummed:     field,
		ItemsCount:      len(rows),
		MatchesFound:    len(matched),
		SearchQueryUsed: q,
		MatchedExamples: examples,
	}, nil
}

func listRows(job domain.Job, name string) ([]Row, bool) {
	var rows []Row
	switch name {
	case "estimate":
		for _, r := range job.Estimate {
			rows = append(rows, r)
		}
	case "schedule":
		for _, r := range job.Schedule {
			rows = append(rows, r)
		}
	case "milestones":
		for _, r := range job.Milestones {
			rows = append(rows, r)
		}
	case "flooringEstimateData":
		for _, r := range job.FlooringEstimateData {
			rows = append(rows, r)
		}
	default:
		return nil, false
	}
	return rows, true
}

func sumRows(rows []Row, field, query string) ([]Row, float64) {
	var matched []Row
	var sum float64
	for _, r := range rows {
		if !match.Fields(r.TextFields(), query, "") {
			continue
		}
		matched = append(matched, r)
		v, _ := r.NumericField(field)
		sum += v
	}
	return matched, domain.Round(sum, 2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
