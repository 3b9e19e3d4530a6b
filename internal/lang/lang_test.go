package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	t.Parallel()
	c, err := LoadEmbedded()
	require.NoError(t, err)
	assert.True(t, c.IsTurtleVariable("hidden?"))
	assert.True(t, c.IsLinkVariable("hidden?"))
	p, ok := c.Lookup("create-turtles")
	require.True(t, ok)
	assert.NotEmpty(t, p.Help)
}

func TestCatalog_NameLists(t *testing.T) {
	t.Parallel()
	c := Default()

	names := c.PrimitiveNames()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "forward")
	assert.Contains(t, names, "fd", "aliases are listed")
	assert.Contains(t, names, "table:make")

	assert.Contains(t, c.Keywords(), "to-report")
	assert.Contains(t, c.Constants(), "nobody")
	assert.Contains(t, c.Extensions(), "csv")

	vars := c.BuiltinVariables()
	assert.IsIncreasing(t, vars, "sorted and unique")
	assert.Contains(t, vars, "hidden?")
	assert.Contains(t, vars, "pcolor")
	assert.Contains(t, vars, "end1")
}

func TestParseAgentContexts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"", "OTPL"},
		{"?", "-TPL"},
		{"O---", "O---"},
		{"-T--", "-T--"},
		{"-TP-", "-TP-"},
		{"T---", "----"}, // letters only count at their own position
		{"OT", "OT--"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAgentContexts(tt.in).String())
		})
	}
}

func TestAgentContexts_SetOperations(t *testing.T) {
	t.Parallel()
	tp := ParseAgentContexts("-TP-")
	pl := ParseAgentContexts("--PL")

	assert.Equal(t, "--P-", tp.Intersect(pl).String())
	assert.Equal(t, "-TPL", tp.Union(pl).String())
	assert.True(t, ParseAgentContexts("O---").Intersect(tp).IsEmpty())
	assert.True(t, AllContexts().IsAll())
	assert.Equal(t, "turtle/patch", tp.Describe())
	assert.Equal(t, "no agent", AgentContexts{}.Describe())
}

func TestParseType(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"anything", "number", "turtleset", "reporterblock"} {
		typ, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, name, typ.String())
	}
	_, err := ParseType("banana")
	assert.Error(t, err)
}

func TestType_AgentKind(t *testing.T) {
	t.Parallel()
	k, ok := PatchSet.AgentKind()
	require.True(t, ok)
	assert.Equal(t, "--P-", k.String())

	k, ok = AgentSet.AgentKind()
	require.True(t, ok)
	assert.Equal(t, "-TPL", k.String())

	_, ok = Number.AgentKind()
	assert.False(t, ok)
}

func TestParseArg(t *testing.T) {
	t.Parallel()
	a, err := parseArg("number|list*")
	require.NoError(t, err)
	assert.True(t, a.Repeat)
	assert.True(t, a.Accepts(List))
	assert.False(t, a.Accepts(String))

	a, err = parseArg("commandblock?")
	require.NoError(t, err)
	assert.True(t, a.Optional)
	assert.True(t, a.Accepts(CommandBlock))
}

// =============================================================================
// Catalog
// =============================================================================

func TestDefault_Lookup(t *testing.T) {
	t.Parallel()
	c := Default()

	fd, ok := c.Lookup("fd")
	require.True(t, ok)
	forward, ok := c.Lookup("forward")
	require.True(t, ok)
	assert.Same(t, forward, fd)
	assert.Equal(t, "-T--", fd.Context.String())
	assert.True(t, fd.IsCommand)

	with, ok := c.Lookup("with")
	require.True(t, ok)
	assert.True(t, with.IsInfix())
	assert.True(t, with.IntroducesContext)

	put, ok := c.Lookup("table:put")
	require.True(t, ok)
	assert.Equal(t, "table", put.Extension)

	_, ok = c.Lookup("put")
	assert.False(t, ok)
}

func TestPrimitive_ArgCounts(t *testing.T) {
	t.Parallel()
	c := Default()

	crt, _ := c.Lookup("create-turtles")
	assert.Equal(t, 2, crt.DefaultArgs())
	assert.Equal(t, 1, crt.RequiredArgs())
	assert.False(t, crt.Variadic())

	list, _ := c.Lookup("list")
	assert.Equal(t, 2, list.DefaultArgs())
	assert.Equal(t, 0, list.MinArgs())
	assert.True(t, list.Variadic())

	slot, ok := list.ArgAt(7)
	require.True(t, ok)
	assert.True(t, slot.Repeat)

	ifelse, _ := c.Lookup("ifelse")
	assert.Equal(t, 3, ifelse.DefaultArgs())
	assert.Equal(t, 2, ifelse.MinArgs())
	assert.True(t, ifelse.InheritParentContext)
}

func TestCatalog_MatchTemplate(t *testing.T) {
	t.Parallel()
	c := Default()
	tests := []struct {
		word  string
		breed string
		shape BreedShape
	}{
		{"create-wolves", "wolves", ShapeCreateTurtles},
		{"create-ordered-wolves", "wolves", ShapeCreateTurtles},
		{"hatch-sheep", "sheep", ShapeCreateTurtles},
		{"wolves-here", "wolves", ShapeTurtleReporter},
		{"create-roads-with", "roads", ShapeCreateLinks},
		{"road-neighbors", "road", ShapeLinkReporter},
		{"my-roads", "roads", ShapeLinkSetReporter},
		{"is-wolf?", "wolf", ShapeBreedTest},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			tmpl, breed, ok := c.MatchTemplate(tt.word)
			require.True(t, ok)
			assert.Equal(t, tt.breed, breed)
			assert.Equal(t, tt.shape, tmpl.Shape)
			assert.Equal(t, tt.word, tmpl.Expand(breed))
		})
	}

	_, _, ok := c.MatchTemplate("create-")
	assert.False(t, ok)
}

func TestCatalog_Variables(t *testing.T) {
	t.Parallel()
	c := Default()

	ctx, ok := c.BuiltinVariable("pcolor")
	require.True(t, ok)
	assert.Equal(t, "-TP-", ctx.String())

	ctx, ok = c.BuiltinVariable("color")
	require.True(t, ok)
	assert.Equal(t, "-T-L", ctx.String())

	_, ok = c.BuiltinVariable("energy")
	assert.False(t, ok)
}

func TestCatalog_IsReserved(t *testing.T) {
	t.Parallel()
	c := Default()
	for _, name := range []string{"fd", "turtles", "patch", "red", "globals", "xcor", "end1"} {
		assert.True(t, c.IsReserved(name), name)
	}
	assert.False(t, c.IsReserved("energy"))
	assert.True(t, c.KnownExtension("table"))
	assert.False(t, c.KnownExtension("gis"))
}

func TestCatalog_PrimitivesSortedWithoutAliases(t *testing.T) {
	t.Parallel()
	prims := Default().Primitives()
	require.NotEmpty(t, prims)
	seen := map[*Primitive]bool{}
	for i, p := range prims {
		assert.False(t, seen[p])
		seen[p] = true
		if i > 0 {
			assert.LessOrEqual(t, fullName(prims[i-1]), fullName(p))
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"bad type":     "primitives:\n  - {name: x, type: widget}\n",
		"bad arg":      "primitives:\n  - {name: x, type: command, args: [banana]}\n",
		"duplicate":    "primitives:\n  - {name: x, type: command}\n  - {name: x, type: reporter}\n",
		"no slot":      "templates:\n  - {pattern: create, shape: create-turtles, type: command}\n",
		"bad shape":    "templates:\n  - {pattern: \"x-{}\", shape: round, type: command}\n",
		"invalid yaml": "primitives: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestNewProcedurePrimitive(t *testing.T) {
	t.Parallel()
	p := NewProcedurePrimitive("walk", 2, false)
	assert.Equal(t, 2, p.DefaultArgs())
	assert.Equal(t, 2, p.MinArgs())
	assert.Equal(t, ReporterPrecedence, p.Precedence)
	assert.Equal(t, Wildcard, p.Returns)
	assert.True(t, p.Context.IsAll())
}
