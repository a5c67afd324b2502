package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string, category Category) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its scope",
		Category:    category,
		Schema: Schema{
			Required:   []string{"fieldName"},
			Properties: map[string]Property{"fieldName": {Type: "string", Description: "field"}},
		},
		Execute: func(ctx context.Context, args map[string]any, scope Scope) (any, error) {
			return map[string]any{"job": scope.JobID, "field": args["fieldName"]}, nil
		},
	}
}

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("b_tool", CategoryEstimate)))
	require.NoError(t, reg.Register(echoTool("a_tool", CategorySchedule)))

	assert.True(t, reg.Has("a_tool"))
	assert.False(t, reg.Has("missing"))
	assert.Nil(t, reg.Get("missing"))
	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, []string{"a_tool", "b_tool"}, reg.Names())
	assert.Len(t, reg.GetByCategory(CategoryEstimate), 1)
	assert.Empty(t, reg.GetByCategory(CategoryComparison))
}

func TestRegisterRejectsInvalidAndDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("dupe", CategoryJob)))
	require.ErrorIs(t, reg.Register(echoTool("dupe", CategoryJob)), ErrToolAlreadyRegistered)
	require.ErrorIs(t, reg.Register(&Tool{Name: "noexec"}), ErrToolExecuteNil)
	require.ErrorIs(t, reg.Register(&Tool{}), ErrToolNameEmpty)
	assert.Panics(t, func() { reg.MustRegister(echoTool("dupe", CategoryJob)) })
}

func TestExecute(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool("echo", CategoryJob))

	out, err := reg.Execute(context.Background(), "echo", map[string]any{"fieldName": "total"}, Scope{JobID: "j1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"job": "j1", "field": "total"}, out)

	_, err = reg.Execute(context.Background(), "echo", map[string]any{}, Scope{})
	require.ErrorIs(t, err, ErrMissingRequiredArg)

	_, err = reg.Execute(context.Background(), "nope", nil, Scope{})
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestDefinitions(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Tool{Name: "bare", Category: CategoryJob, Execute: func(context.Context, map[string]any, Scope) (any, error) {
		return nil, nil
	}})
	defs := reg.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "object", defs[0].Parameters.Type)
	assert.NotNil(t, defs[0].Parameters.Properties)
	assert.Equal(t, []string{}, defs[0].Parameters.Required)
}

func TestDecode(t *testing.T) {
	type args struct {
		Limit  *float64 `json:"limit"`
		Search *string  `json:"searchQuery"`
	}
	got, err := Decode[args](map[string]any{"limit": 5, "searchQuery": "kitchen"})
	require.NoError(t, err)
	require.NotNil(t, got.Limit)
	assert.Equal(t, 5.0, *got.Limit)
	assert.Equal(t, "kitchen", *got.Search)

	_, err = Decode[args](map[string]any{"searchQuery": 7})
	require.ErrorIs(t, err, ErrInvalidArgs)
}
