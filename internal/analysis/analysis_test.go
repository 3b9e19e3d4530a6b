package analysis

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

func build(t *testing.T, src string) *model.LintContext {
	t.Helper()
	pre := Preprocess(src, 1)
	tree := syntax.NewParser().Parse(src, pre)
	return Build(tree, pre, 1)
}

// =============================================================================
// Preprocess
// =============================================================================

func TestPreprocess(t *testing.T) {
	t.Parallel()
	src := `breed [ wolves wolf ]
directed-link-breed [ streets street ]
breed [ broken ]
wolves-own [ energy age ]
to go end
to walk [ steps heading-offset ] end
to-report double [ n ] report n * 2 end
to-report pi-ish report 3 end`
	pre := Preprocess(src, 7)

	want := &model.PreprocessContext{
		PluralBreeds:    map[string]int{"wolves": 7, "streets": 7},
		SingularBreeds:  map[string]int{"wolf": 7, "street": 7},
		LinkBreeds:      map[string]int{"streets": 7, "street": 7},
		BreedVars:       map[string]int{"energy": 7, "age": 7},
		Commands:        map[string]int{"go": 0, "walk": 2},
		Reporters:       map[string]int{"double": 1, "pi-ish": 0},
		CommandsOrigin:  map[string]int{"go": 7, "walk": 7},
		ReportersOrigin: map[string]int{"double": 7, "pi-ish": 7},
	}
	if diff := cmp.Diff(want, pre); diff != "" {
		t.Errorf("preprocess mismatch (-want +got):\n%s", diff)
	}
}

func TestPreprocess_IgnoresComments(t *testing.T) {
	t.Parallel()
	pre := Preprocess("; breed [ ghosts ghost ]\nto go end", 1)
	assert.Empty(t, pre.PluralBreeds)
	assert.Contains(t, pre.Commands, "go")
}

// =============================================================================
// Build
// =============================================================================

func TestBuild_Declarations(t *testing.T) {
	t.Parallel()
	src := `extensions [ table ]
globals [ score lives ]
breed [ wolves wolf ]
undirected-link-breed [ roads road ]
wolves-own [ energy ]
patches-own [ grass ]
to go end`
	ctx := build(t, src)

	assert.Equal(t, map[string]int{"table": 1}, ctx.Extensions)
	assert.Equal(t, map[string]int{"score": 1, "lives": 1}, ctx.Globals)
	assert.Equal(t, []string{"patches", "roads", "wolves"}, ctx.PluralBreedNames())

	w := ctx.Breeds["wolves"]
	assert.True(t, w.Declared)
	assert.Equal(t, []string{"energy"}, w.Variables)
	assert.Equal(t, model.BreedUndirectedLink, ctx.Breeds["roads"].BreedType)

	p := ctx.Breeds["patches"]
	assert.False(t, p.Declared)
	assert.Equal(t, model.BreedPatch, p.BreedType)
	assert.Equal(t, []string{"grass"}, p.Variables)
	assert.False(t, ctx.Incomplete)
}

func TestBuild_OwnForBreedOfAnotherSession(t *testing.T) {
	t.Parallel()
	src := "sheep-own [ wool ]\nghosts-own [ boo ]"
	pre := Preprocess(src, 2)
	pre.Merge(Preprocess("breed [ sheep a-sheep ]", 1))

	ctx := Build(syntax.NewParser().Parse(src, pre), pre, 2)
	s := ctx.Breeds["sheep"]
	require.NotNil(t, s)
	assert.False(t, s.Declared)
	assert.Equal(t, []string{"wool"}, s.Variables)
	assert.Equal(t, 2, s.SessionID)
	assert.NotContains(t, ctx.Breeds, "ghosts")
}

func TestBuild_Procedures(t *testing.T) {
	t.Parallel()
	src := `to go [ speed ]
  let n 5
  let label-text "hi"
  let flag true
end
to-report double [ x ] report x * 2 end
to go end`
	ctx := build(t, src)

	go1 := ctx.Procedures["go"]
	require.NotNil(t, go1)
	assert.True(t, go1.IsCommand)
	assert.Equal(t, []string{"speed"}, go1.Arguments)
	assert.True(t, go1.Context.IsAll())
	assert.Equal(t, 0, go1.PositionStart)
	assert.Equal(t, strings.Index(src, "\nto-report"), go1.PositionEnd)

	want := []model.LocalVariable{
		{Name: "n", Type: lang.Number, CreationPos: strings.Index(src, "n 5")},
		{Name: "label-text", Type: lang.String, CreationPos: strings.Index(src, "label-text")},
		{Name: "flag", Type: lang.Boolean, CreationPos: strings.Index(src, "flag")},
	}
	if diff := cmp.Diff(want, go1.Variables); diff != "" {
		t.Errorf("locals mismatch (-want +got):\n%s", diff)
	}

	d := ctx.Procedures["double"]
	require.NotNil(t, d)
	assert.False(t, d.IsCommand)
	assert.Equal(t, []string{"x"}, d.Arguments)
}

func TestBuild_CodeBlockContexts(t *testing.T) {
	t.Parallel()
	src := `breed [ wolves wolf ]
undirected-link-breed [ roads road ]
to go
  ask patches [ set pcolor red ]
  ask wolves [ fd 1 ]
  ask roads [ die ]
  ask turtles with [ color = red ] [ fd 1 ]
  create-wolves 3 [ fd 1 ]
  if true [ tick ]
  show [ color ] of turtle 0
  ask (one-of patches) [ sprout 1 ]
end`
	ctx := build(t, src)
	proc := ctx.Procedures["go"]
	require.NotNil(t, proc)

	at := func(marker string) *model.CodeBlock {
		t.Helper()
		blk := ctx.CodeBlockAt(strings.Index(src, marker))
		require.NotNil(t, blk, marker)
		return blk
	}
	tests := []struct {
		marker  string
		context string
		prim    string
		inherit bool
	}{
		{"set pcolor", "--P-", "ask", false},
		{"fd 1 ]\n  ask roads", "-T--", "ask", false},
		{"die", "---L", "ask", false},
		{"color = red ] [", "-T--", "with", false},
		{"fd 1 ]\n  create", "-T--", "ask", false},
		{"fd 1 ]\n  if", "-T--", "create-wolves", false},
		{"tick", "OTPL", "if", true},
		{"color ] of", "-T--", "of", false},
		{"sprout", "--P-", "ask", false},
	}
	for _, tt := range tests {
		blk := at(tt.marker)
		assert.Equal(t, tt.context, blk.Context.String(), tt.marker)
		assert.Equal(t, tt.prim, blk.Primitive, tt.marker)
		assert.Equal(t, tt.inherit, blk.InheritParentContext, tt.marker)
	}
	assert.Equal(t, "wolves", at("fd 1 ]\n  if").Breed)
}

func TestBuild_NestedBlocksAndLocals(t *testing.T) {
	t.Parallel()
	src := `to go
  ask turtles [
    let here-x xcor
    ask patch-here [ let p pcolor ]
  ]
end`
	ctx := build(t, src)
	proc := ctx.Procedures["go"]
	require.Len(t, proc.CodeBlocks, 1)

	outer := proc.CodeBlocks[0]
	require.Len(t, outer.Variables, 1)
	assert.Equal(t, "here-x", outer.Variables[0].Name)
	require.Len(t, outer.CodeBlocks, 1)

	inner := outer.CodeBlocks[0]
	assert.Equal(t, "--P-", inner.Context.String())
	require.Len(t, inner.Variables, 1)
	assert.Equal(t, "p", inner.Variables[0].Name)
	assert.Empty(t, proc.Variables)

	_, ok := ctx.ResolveLocal("p", strings.Index(src, "pcolor"))
	assert.True(t, ok)
	_, ok = ctx.ResolveLocal("p", strings.Index(src, "  ]\nend"))
	assert.False(t, ok)
}

func TestBuild_AnonymousProcedures(t *testing.T) {
	t.Parallel()
	src := "to go [ n ]\n  foreach [ 1 2 ] [ v -> show map [ w -> w * v * n ] [ 3 ] ]\nend"
	ctx := build(t, src)
	proc := ctx.Procedures["go"]
	require.Len(t, proc.AnonymousProcedures, 1)

	outer := proc.AnonymousProcedures[0]
	assert.True(t, outer.IsAnonymous)
	assert.True(t, outer.IsCommand)
	assert.Equal(t, []string{"v"}, outer.Arguments)
	require.Len(t, outer.AnonymousProcedures, 1)

	inner := outer.AnonymousProcedures[0]
	assert.False(t, inner.IsCommand)
	assert.Equal(t, []string{"w"}, inner.Arguments)

	pos := strings.Index(src, "w * v")
	for _, name := range []string{"w", "v", "n"} {
		_, ok := ctx.ResolveLocal(name, pos)
		assert.True(t, ok, name)
	}
	_, ok := ctx.ResolveLocal("w", strings.Index(src, "[ 1 2 ]"))
	assert.False(t, ok)
}

func TestBuild_FirstProcedureDeclarationWins(t *testing.T) {
	t.Parallel()
	ctx := build(t, "to go [ a ] end\nto go [ b c ] end")
	assert.Equal(t, []string{"a"}, ctx.Procedures["go"].Arguments)
}

func TestBuild_Truncated(t *testing.T) {
	t.Parallel()
	src := "globals [ a ]\nto go fd 1 end\nto later end"
	pre := Preprocess(src, 1)
	tree := syntax.NewParser(syntax.WithNodeBudget(5)).Parse(src, pre)
	ctx := Build(tree, pre, 1)
	assert.True(t, ctx.Incomplete)
	assert.Contains(t, ctx.Globals, "a")
	assert.NotContains(t, ctx.Procedures, "later")
}

func TestBuild_SnapshotIsDeterministic(t *testing.T) {
	t.Parallel()
	src := `globals [ a b c ]
breed [ wolves wolf ]
breed [ sheep a-sheep ]
to go ask wolves [ let x 1 fd x ] end
to-report r [ q ] report q end`
	first, err := build(t, src).Snapshot()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := build(t, src).Snapshot()
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestBuild_NilTree(t *testing.T) {
	t.Parallel()
	ctx := Build(nil, nil, 1)
	require.NotNil(t, ctx)
	assert.Empty(t, ctx.Procedures)
}

func TestPrimitive(t *testing.T) {
	t.Parallel()
	cat := lang.Default()
	src := "breed [ wolves wolf ]\nto go create-wolves 1 walk end\nto walk end"
	pre := Preprocess(src, 1)
	tree := syntax.NewParser().Parse(src, pre)

	bc := tree.All(syntax.BreedCommand)
	require.Len(t, bc, 1)
	p := Primitive(cat, bc[0])
	require.NotNil(t, p)
	assert.Equal(t, "create-{}", p.Name)

	cc := tree.All(syntax.CustomCommand)
	require.Len(t, cc, 1)
	assert.Nil(t, Primitive(cat, cc[0]))
	assert.Nil(t, Primitive(cat, nil))
}
