package scripts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/meadow/internal/analysis"
	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/runtime"
	"github.com/jward/meadow/internal/syntax"
	"github.com/jward/meadow/scripts"
)

func check(t *testing.T, src string) []lint.Diagnostic {
	t.Helper()
	vs, err := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS)).Validators()
	require.NoError(t, err)
	pre := analysis.Preprocess(src, 1)
	tree := syntax.NewParser().Parse(src, pre)
	return lint.NewPipeline(vs).Run(context.Background(), lint.Input{
		Tree:      tree,
		Pre:       pre,
		Lint:      analysis.Build(tree, pre, 1),
		SessionID: 1,
	})
}

func TestShippedRules(t *testing.T) {
	t.Parallel()
	vs, err := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS)).Validators()
	require.NoError(t, err)
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name
		assert.NotEmpty(t, v.Doc, v.Name)
	}
	assert.Equal(t, []string{"script:empty-procedure"}, names)
}

func TestEmptyProcedure(t *testing.T) {
	t.Parallel()
	diags := check(t, "to setup end\nto go ask turtles [ fd 1 ] end\nto-report r report 1 end")
	require.Len(t, diags, 1)
	assert.Equal(t, "script:empty-procedure", diags[0].Validator)
	assert.Equal(t, lint.SeverityInfo, diags[0].Severity)
	assert.Equal(t, "procedure setup has an empty body", diags[0].Message)
	assert.Equal(t, 0, diags[0].From)
}

func TestEmptyProcedure_WithArgumentsOnly(t *testing.T) {
	t.Parallel()
	diags := check(t, "to walk [ steps ] end")
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "walk")
}

func TestEmptyProcedure_CleanModel(t *testing.T) {
	t.Parallel()
	assert.Empty(t, check(t, "globals [ g ]\nto go set g 1 end"))
}
