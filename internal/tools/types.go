// Package tools defines the named query tools an agent can call and the
// registry that looks them up and runs them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Category groups tools by the part of the job they read.
type Category string

const (
	CategoryJob        Category = "job"
	CategoryEstimate   Category = "estimate"
	CategorySchedule   Category = "schedule"
	CategoryPayment    Category = "payment"
	CategoryComparison Category = "comparison"
)

// Property describes one argument in JSON-schema terms.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Schema is the argument schema published to agents.
type Schema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Scope identifies the job a call runs against.
type Scope struct {
	CompanyID string
	JobID     string
}

// ExecuteFunc runs a tool. A returned error is reported to the caller as a
// structured error result, never as a failure of the call itself.
type ExecuteFunc func(ctx context.Context, args map[string]any, scope Scope) (any, error)

type Tool struct {
	Name        string
	Description string
	Category    Category
	Schema      Schema
	Execute     ExecuteFunc
}

func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Definition is the function declaration form of a tool.
type Definition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Parameters  Parameters `json:"parameters"`
}

type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

func (t *Tool) Definition() Definition {
	props := t.Schema.Properties
	if props == nil {
		props = map[string]Property{}
	}
	required := t.Schema.Required
	if required == nil {
		required = []string{}
	}
	return Definition{
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Parameters:  Parameters{Type: "object", Properties: props, Required: required},
	}
}

// Decode converts a flat argument record into a typed argument struct.
func Decode[T any](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return out, nil
}
