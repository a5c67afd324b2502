package domain

import "encoding/json"

// JobHeader holds the scalar project fields of a job document.
type JobHeader struct {
	DocumentID         string `json:"documentId"`
	ProjectTitle       string `json:"projectTitle"`
	ProjectDescription string `json:"projectDescription,omitempty"`
	ClientName         string `json:"clientName"`
	Status             string `json:"status"`
	EstimateType       string `json:"estimateType,omitempty"`
	JobPrefix          string `json:"jobPrefix,omitempty"`
	SiteStreet         string `json:"siteStreet,omitempty"`
	SiteCity           string `json:"siteCity,omitempty"`
	SiteState          string `json:"siteState,omitempty"`
	SiteZip            string `json:"siteZip,omitempty"`
	CreatedDate        string `json:"createdDate,omitempty"`
	ContractDate       string `json:"contractDate,omitempty"`
}

// Job is a fetched job document. Lists are decoded row by row; rows that fail
// to decode are counted in Dropped and left out.
type Job struct {
	JobHeader
	Estimate             []EstimateRow         `json:"estimate"`
	Schedule             []Task                `json:"schedule"`
	Milestones           []Milestone           `json:"milestones"`
	CostCodes            []CostCode            `json:"costCodes"`
	FlooringEstimateData []FlooringEstimateRow `json:"flooringEstimateData"`
	Dropped              int                   `json:"-"`
}

func (j *Job) UnmarshalJSON(data []byte) error {
	var doc struct {
		JobHeader
		Estimate             []json.RawMessage `json:"estimate"`
		Schedule             []json.RawMessage `json:"schedule"`
		Milestones           []json.RawMessage `json:"milestones"`
		CostCodes            []json.RawMessage `json:"costCodes"`
		FlooringEstimateData []json.RawMessage `json:"flooringEstimateData"`
	}
	if err := json.Unmarshal(data, &doc); err != nil && !fieldTypeError(data, err) {
		return err
	}
	out := Job{JobHeader: doc.JobHeader}
	out.Estimate = decodeRows[EstimateRow](doc.Estimate, &out.Dropped)
	out.Schedule = decodeRows[Task](doc.Schedule, &out.Dropped)
	out.Milestones = decodeRows[Milestone](doc.Milestones, &out.Dropped)
	out.CostCodes = decodeRows[CostCode](doc.CostCodes, &out.Dropped)
	out.FlooringEstimateData = decodeRows[FlooringEstimateRow](doc.FlooringEstimateData, &out.Dropped)
	*j = out
	return nil
}

// Summary returns the search-result view of the job.
func (j Job) Summary() JobSummary {
	return JobSummary{
		DocumentID:   j.DocumentID,
		ProjectTitle: j.ProjectTitle,
		ClientName:   j.ClientName,
		SiteStreet:   j.SiteStreet,
		SiteCity:     j.SiteCity,
		JobPrefix:    j.JobPrefix,
		Status:       j.Status,
		CreatedDate:  j.CreatedDate,
	}
}

type JobSummary struct {
	DocumentID   string `json:"documentId"`
	ProjectTitle string `json:"projectTitle"`
	ClientName   string `json:"clientName"`
	SiteStreet   string `json:"siteStreet,omitempty"`
	SiteCity     string `json:"siteCity,omitempty"`
	JobPrefix    string `json:"jobPrefix,omitempty"`
	Status       string `json:"status"`
	CreatedDate  string `json:"createdDate,omitempty"`
}

type EstimateRow struct {
	Area          string `json:"area,omitempty"`
	TaskScope     string `json:"taskScope,omitempty"`
	CostCode      Ref    `json:"costCode,omitempty"`
	Description   string `json:"description,omitempty"`
	Units         string `json:"units,omitempty"`
	Qty           Number `json:"qty"`
	Rate          Number `json:"rate"`
	Total         Number `json:"total"`
	BudgetedRate  Number `json:"budgetedRate"`
	BudgetedTotal Number `json:"budgetedTotal"`
	NotesRemarks  string `json:"notesRemarks,omitempty"`
	RowType       string `json:"rowType,omitempty"`
}

func (e EstimateRow) NumericField(name string) (float64, bool) {
	switch name {
	case "qty":
		return e.Qty.Float(), true
	case "rate":
		return e.Rate.Float(), true
	case "total":
		return e.Total.Float(), true
	case "budgetedRate":
		return e.BudgetedRate.Float(), true
	case "budgetedTotal":
		return e.BudgetedTotal.Float(), true
	}
	return 0, false
}

func (e EstimateRow) TextFields() []string {
	return []string{e.Area, e.TaskScope, e.Description, e.CostCode.String(), e.NotesRemarks, e.RowType}
}

// Label is the short "area - description" form used in examples.
func (e EstimateRow) Label() string {
	return e.Area + " - " + e.Description
}

type Milestone struct {
	Title  string `json:"title"`
	Amount Number `json:"amount"`
	State  Flag   `json:"state"`
}

func (m Milestone) NumericField(name string) (float64, bool) {
	if name == "amount" {
		return m.Amount.Float(), true
	}
	return 0, false
}

func (m Milestone) TextFields() []string { return []string{m.Title} }

func (m Milestone) Label() string { return m.Title }

type CostCode struct {
	Code        Ref    `json:"code"`
	Description string `json:"description"`
}

type FlooringEstimateRow struct {
	FloorTypeID       string `json:"floorTypeId,omitempty"`
	Vendor            string `json:"vendor,omitempty"`
	ItemMaterialName  string `json:"itemMaterialName,omitempty"`
	Brand             string `json:"brand,omitempty"`
	Unit              string `json:"unit,omitempty"`
	MeasuredQty       Number `json:"measuredQty"`
	SupplierQty       Number `json:"supplierQty"`
	WasteFactor       Number `json:"wasteFactor"`
	QtyIncludingWaste Number `json:"qtyIncludingWaste"`
	UnitPrice         Number `json:"unitPrice"`
	CostPrice         Number `json:"costPrice"`
	TaxFreight        Number `json:"taxFreight"`
	TotalCost         Number `json:"totalCost"`
	SalePrice         Number `json:"salePrice"`
	NotesRemarks      string `json:"notesRemarks,omitempty"`
}

func (f FlooringEstimateRow) NumericField(name string) (float64, bool) {
	switch name {
	case "measuredQty":
		return f.MeasuredQty.Float(), true
	case "supplierQty":
		return f.SupplierQty.Float(), true
	case "wasteFactor":
		return f.WasteFactor.Float(), true
	case "qtyIncludingWaste":
		return f.QtyIncludingWaste.Float(), true
	case "unitPrice":
		return f.UnitPrice.Float(), true
	case "costPrice":
		return f.CostPrice.Float(), true
	case "taxFreight":
		return f.TaxFreight.Float(), true
	case "totalCost":
		return f.TotalCost.Float(), true
	case "salePrice":
		return f.SalePrice.Float(), true
	}
	return 0, false
}

func (f FlooringEstimateRow) TextFields() []string {
	return []string{f.ItemMaterialName, f.Vendor, f.Brand, f.NotesRemarks}
}

func (f FlooringEstimateRow) Label() string { return f.ItemMaterialName }

// ToolExecution is one recorded tool invocation.
type ToolExecution struct {
	ID            string         `json:"id"`
	TS            string         `json:"ts" format:"date-time"`
	JobID         string         `json:"job_id,omitempty"`
	Tool          string         `json:"tool"`
	Args          map[string]any `json:"args"`
	Result        any            `json:"result"`
	IsError       bool           `json:"is_error"`
	DurationMs    int64          `json:"duration_ms"`
	SwitchedJobID string         `json:"switched_job_id,omitempty"`
}
