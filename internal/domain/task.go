package domain

import (
	"encoding/json"
	"sort"
)

const (
	TaskTypeLabour        = "labour"
	TaskTypeMilestone     = "milestone"
	TaskTypeMaterial      = "material"
	TaskTypeSubcontractor = "subcontractor"
	TaskTypeOthers        = "others"
)

const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// PaymentCapable reports whether tasks of the given type may carry payment stages.
func PaymentCapable(taskType string) bool {
	switch taskType {
	case TaskTypeMaterial, TaskTypeSubcontractor, TaskTypeMilestone:
		return true
	}
	return false
}

// DependencyTypeMeaning describes a dependency type code.
func DependencyTypeMeaning(t string) string {
	switch t {
	case "FS":
		return "Finish-to-Start (predecessor must finish first)"
	case "SS":
		return "Start-to-Start (start together)"
	case "FF":
		return "Finish-to-Finish (finish together)"
	case "SF":
		return "Start-to-Finish (predecessor start triggers finish)"
	}
	return "Unknown"
}

// Task is one schedule row. ID is stable; Index is the reorder-volatile UI
// position.
type Task struct {
	ID                 string          `json:"id"`
	Index              *Number         `json:"index,omitempty"`
	Name               string          `json:"task"`
	TaskType           string          `json:"taskType"`
	Hours              Number          `json:"hours"`
	Consumed           Number          `json:"consumed"`
	Duration           Number          `json:"duration"`
	StartDate          string          `json:"startDate,omitempty"`
	EndDate            string          `json:"endDate,omitempty"`
	ActualStart        string          `json:"actualStart,omitempty"`
	ActualEnd          string          `json:"actualEnd,omitempty"`
	BaselineStartDate  string          `json:"baselineStartDate,omitempty"`
	BaselineEndDate    string          `json:"baselineEndDate,omitempty"`
	PercentageComplete Number          `json:"percentageComplete"`
	SchedulingMode     string          `json:"schedulingMode,omitempty"`
	IsCritical         Flag            `json:"isCritical"`
	TotalSlack         Number          `json:"totalSlack"`
	IsMainTask         Flag            `json:"isMainTask"`
	MainTaskID         string          `json:"mainTaskId,omitempty"`
	MainTaskIndex      *Number         `json:"mainTaskIndex,omitempty"`
	SubtaskIDs         []string        `json:"subtaskIds,omitempty"`
	SubtaskIndices     []Number        `json:"subtaskIndices,omitempty"`
	Dependencies       []Dependency    `json:"dependencies,omitempty"`
	PaymentStages      []PaymentStage  `json:"paymentStages,omitempty"`
	TotalPaymentAmount Number          `json:"totalPaymentAmount"`
	Remarks            string          `json:"remarks,omitempty"`
	Resources          json.RawMessage `json:"resources,omitempty"`
	IsBaselineSet      Flag            `json:"isBaselineSet"`
}

// Status derives the progress state from PercentageComplete.
func (t Task) Status() string {
	pct := t.PercentageComplete.Float()
	switch {
	case pct >= 100:
		return StatusCompleted
	case pct > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// IndexKey is the string form of Index used by legacy references, or "" when
// the task has no index.
func (t Task) IndexKey() string {
	if t.Index == nil {
		return ""
	}
	return t.Index.Key()
}

func (t Task) NumericField(name string) (float64, bool) {
	switch name {
	case "hours":
		return t.Hours.Float(), true
	case "consumed":
		return t.Consumed.Float(), true
	case "duration":
		return t.Duration.Float(), true
	case "percentageComplete":
		return t.PercentageComplete.Float(), true
	case "totalSlack":
		return t.TotalSlack.Float(), true
	case "totalPaymentAmount":
		return t.TotalPaymentAmount.Float(), true
	case "index":
		if t.Index == nil {
			return 0, true
		}
		return t.Index.Float(), true
	}
	return 0, false
}

func (t Task) TextFields() []string { return []string{t.Name, t.Remarks} }

func (t Task) Label() string { return t.Name }

// ResourceList flattens the resources mapping, sorted by key. Entries that are
// not objects are skipped; missing names and roles read "Unknown".
func (t Task) ResourceList() []Resource {
	if len(t.Resources) == 0 {
		return []Resource{}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(t.Resources, &raw); err != nil {
		return []Resource{}
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Resource, 0, len(keys))
	for _, k := range keys {
		var r struct {
			Name *string `json:"name"`
			Role *string `json:"role"`
		}
		if err := json.Unmarshal(raw[k], &r); err != nil {
			continue
		}
		res := Resource{Key: k, Name: "Unknown", Role: "Unknown"}
		if r.Name != nil {
			res.Name = *r.Name
		}
		if r.Role != nil {
			res.Role = *r.Role
		}
		out = append(out, res)
	}
	return out
}

type Resource struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Dependency links a task to its predecessor. PredecessorID is preferred;
// PredecessorTaskID is the legacy index-based reference.
type Dependency struct {
	PredecessorID     Ref    `json:"predecessorId,omitempty"`
	PredecessorTaskID Ref    `json:"predecessorTaskId,omitempty"`
	Type              string `json:"type,omitempty"`
	Lag               Number `json:"lag"`
}

// Ref returns the effective predecessor reference.
func (d Dependency) Ref() string {
	if d.PredecessorID != "" {
		return d.PredecessorID.String()
	}
	return d.PredecessorTaskID.String()
}

// Kind returns the dependency type, defaulting to FS.
func (d Dependency) Kind() string {
	if d.Type == "" {
		return "FS"
	}
	return d.Type
}

type PaymentStage struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Percentage    Number `json:"percentage"`
	IsManualDate  *Flag  `json:"isManualDate,omitempty"`
	LinkedTaskID  string `json:"linkedTaskId,omitempty"`
	LinkedType    string `json:"linkedType,omitempty"`
	LagDays       Number `json:"lagDays"`
	ManualDate    string `json:"manualDate,omitempty"`
	BaseDate      string `json:"baseDate,omitempty"`
	EffectiveDate string `json:"effectiveDate,omitempty"`
}

// Manual reports isManualDate, which defaults to true.
func (p PaymentStage) Manual() bool {
	return p.IsManualDate == nil || bool(*p.IsManualDate)
}

// Amount is the share of total due at this stage.
func (p PaymentStage) Amount(total float64) float64 {
	return total * p.Percentage.Float() / 100
}
