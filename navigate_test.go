package meadow

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// describe describes the word starting at the nth occurrence (from 1) of
// marker, using a position inside the word.
func describe(t *testing.T, s *Session, marker string, nth int) *Description {
	t.Helper()
	pos := nthIndex(t, s.Text(), marker, nth)
	d, ok := s.DescribeAt(pos+1, pos+1)
	require.True(t, ok, "nothing at %q #%d", marker, nth)
	return d
}

func nthIndex(t *testing.T, src, marker string, nth int) int {
	t.Helper()
	off := 0
	for i := 1; ; i++ {
		idx := strings.Index(src[off:], marker)
		require.GreaterOrEqual(t, idx, 0, "marker %q #%d not found", marker, nth)
		if i == nth {
			return off + idx
		}
		off += idx + len(marker)
	}
}

// =============================================================================
// DescribeAt
// =============================================================================

func TestDescribeAt_Primitive(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, "to go ask turtles [ fd 1 ] end")
	d := describe(t, s, "fd", 1)

	assert.Equal(t, CategoryPrimitive, d.Category)
	assert.Equal(t, "fd", d.Term)
	assert.Equal(t, "Moves forward.", d.Help)
	assert.Equal(t, "-T--", d.Context)
	assert.Nil(t, d.Definition)
}

func TestDescribeAt_Global(t *testing.T) {
	t.Parallel()
	src := "globals [ score ]\nto go set score 1 end"
	s := newTestSession(t, src)

	d := describe(t, s, "score", 2)
	assert.Equal(t, CategoryGlobal, d.Category)
	require.NotNil(t, d.Definition)
	decl := strings.Index(src, "score")
	assert.Equal(t, Location{SessionID: s.ID(), From: decl, To: decl + len("score")}, *d.Definition)

	// The declaration itself.
	d = describe(t, s, "score", 1)
	assert.Equal(t, CategoryGlobal, d.Category)
}

func TestDescribeAt_WidgetGlobal(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, "to go set speed 1 end")
	s.SetWidgetGlobals([]string{"speed"})
	d := describe(t, s, "speed", 1)
	assert.Equal(t, CategoryWidgetGlobal, d.Category)
	assert.Nil(t, d.Definition)
}

func TestDescribeAt_Breeds(t *testing.T) {
	t.Parallel()
	src := "breed [ wolves wolf ]\nundirected-link-breed [ roads road ]"
	s := newTestSession(t, src)

	tests := []struct {
		marker string
		want   Category
	}{
		{"wolves", CategoryTurtleBreed},
		{"wolf ", CategoryTurtleBreedSingular},
		{"roads", CategoryLinkBreed},
		{"road ", CategoryLinkBreedSingular},
	}
	for _, tt := range tests {
		d := describe(t, s, tt.marker, 1)
		assert.Equal(t, tt.want, d.Category, tt.marker)
		require.NotNil(t, d.Definition, tt.marker)
		assert.Equal(t, strings.Index(src, tt.marker), d.Definition.From, tt.marker)
	}
	assert.Equal(t, "wolves", describe(t, s, "wolf ", 1).Detail)
}

func TestDescribeAt_BreedVariable(t *testing.T) {
	t.Parallel()
	src := "breed [ wolves wolf ]\nwolves-own [ energy ]\nto go ask wolves [ set energy 1 ] end"
	s := newTestSession(t, src)

	d := describe(t, s, "energy", 2)
	assert.Equal(t, CategoryBreedVariable, d.Category)
	assert.Equal(t, "wolves", d.Detail)
	require.NotNil(t, d.Definition)
	assert.Equal(t, strings.Index(src, "energy"), d.Definition.From)
}

func TestDescribeAt_LocalAndArgument(t *testing.T) {
	t.Parallel()
	src := "to-report double [ x ] let n x * 2 report n end"
	s := newTestSession(t, src)

	arg := describe(t, s, "x *", 1)
	assert.Equal(t, CategoryArgument, arg.Category)
	assert.Equal(t, "double", arg.Detail)
	require.NotNil(t, arg.Definition)
	assert.Equal(t, strings.Index(src, "x ]"), arg.Definition.From)

	local := describe(t, s, "n end", 1)
	assert.Equal(t, CategoryLocalVariable, local.Category)
	assert.Equal(t, "double", local.Detail)
	require.NotNil(t, local.Definition)
	assert.Equal(t, strings.Index(src, "n x"), local.Definition.From)
}

func TestDescribeAt_Procedure(t *testing.T) {
	t.Parallel()
	src := "to go walk end\nto walk ask turtles [ fd 1 ] end\nto-report twice [ v ] report v * 2 end"
	s := newTestSession(t, src)

	d := describe(t, s, "walk", 1)
	assert.Equal(t, CategoryProcedure, d.Category)
	assert.Equal(t, "command", d.Detail)
	require.NotNil(t, d.Definition)
	assert.Equal(t, strings.Index(src, "walk ask"), d.Definition.From)

	assert.Equal(t, "reporter", describe(t, s, "twice", 1).Detail)
}

func TestDescribeAt_Structure(t *testing.T) {
	t.Parallel()
	src := "globals [ a ]"
	s := newTestSession(t, src)
	d, ok := s.DescribeAt(0, len(src))
	require.True(t, ok)
	assert.Equal(t, CategoryStructure, d.Category)
	assert.Equal(t, d.Kind, d.Detail)
}

func TestDescribeAt_Unresolved(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, "to go set y 5 end")
	pos := strings.Index(s.Text(), "y")
	_, ok := s.DescribeAt(pos, pos+1)
	assert.False(t, ok)

	_, ok = s.DescribeAt(500, 501)
	assert.False(t, ok, "outside the text")
}

func TestDescription_JSON(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, "globals [ score ]")
	d := describe(t, s, "score", 1)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"category":"global variable"`)
}

// =============================================================================
// DefinitionAt
// =============================================================================

func TestDefinitionAt_AcrossSessions(t *testing.T) {
	t.Parallel()
	rootSrc := "globals [ score ]\nto helper end"
	childSrc := "to go set score 1 helper end"
	root := newTestSession(t, rootSrc)
	child := newTestSession(t, childSrc)
	require.NoError(t, root.Attach(child))

	loc, ok := child.DefinitionAt(strings.Index(childSrc, "helper") + 1)
	require.True(t, ok)
	assert.Equal(t, root.ID(), loc.SessionID)
	assert.Equal(t, strings.Index(rootSrc, "helper"), loc.From)
	assert.Equal(t, strings.Index(rootSrc, "helper")+len("helper"), loc.To)

	loc, ok = child.DefinitionAt(strings.Index(childSrc, "score") + 1)
	require.True(t, ok)
	assert.Equal(t, root.ID(), loc.SessionID)
	assert.Equal(t, strings.Index(rootSrc, "score"), loc.From)
}

func TestDefinitionAt_None(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, "to go fd 1 end")
	_, ok := s.DefinitionAt(strings.Index(s.Text(), "fd") + 1)
	assert.False(t, ok, "primitives have no definition")
}

func TestCategory_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "local variable", CategoryLocalVariable.String())
	assert.Equal(t, "unknown", Category(200).String())
}

// =============================================================================
// CompleteAt
// =============================================================================

// completeAfter completes with the cursor just past the nth occurrence of
// marker.
func completeAfter(t *testing.T, s *Session, marker string, nth int) (*Completion, bool) {
	t.Helper()
	return s.CompleteAt(nthIndex(t, s.Text(), marker, nth) + len(marker))
}

func optionCategories(c *Completion) map[string]Category {
	out := map[string]Category{}
	if c == nil {
		return out
	}
	for _, o := range c.Options {
		out[o.Label] = o.Category
	}
	return out
}

func TestCompleteAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		marker   string
		ok       bool
		contains map[string]Category
		excludes []string
	}{
		{
			name:     "primitives",
			src:      "to go fo end",
			marker:   "go fo",
			ok:       true,
			contains: map[string]Category{"forward": CategoryPrimitive, "foreach": CategoryPrimitive},
		},
		{
			name:     "aliases but not unsupported primitives",
			src:      "to go f end",
			marker:   "go f",
			ok:       true,
			contains: map[string]Category{"fd": CategoryPrimitive, "false": CategoryConstant},
			excludes: []string{"file-open", "file-close"},
		},
		{
			name:     "declared extension primitives",
			src:      "extensions [ csv ]\nto go show csv:fr end",
			marker:   "csv:fr",
			ok:       true,
			contains: map[string]Category{"csv:from-row": CategoryPrimitive, "csv:from-string": CategoryPrimitive},
			excludes: []string{"csv:to-row"},
		},
		{
			name:   "undeclared extension primitives",
			src:    "to go show tabl end",
			marker: "tabl",
			ok:     false,
		},
		{
			name:     "extensions block offers undeclared extensions",
			src:      "extensions [ csv  ]",
			marker:   "csv ",
			ok:       true,
			contains: map[string]Category{"table": CategoryExtension, "array": CategoryExtension},
			excludes: []string{"csv"},
		},
		{
			name:     "extension being typed",
			src:      "extensions [ csv ]",
			marker:   "cs",
			ok:       true,
			contains: map[string]Category{"csv": CategoryExtension},
		},
		{
			name: "user declarations",
			src: "breed [ wolves wolf ]\nglobals [ score ]\nwolves-own [ strength ]\n" +
				"to setup end\nto go s end",
			marker: "go s",
			ok:     true,
			contains: map[string]Category{
				"score":         CategoryGlobal,
				"setup":         CategoryProcedure,
				"sprout-wolves": CategoryBreedPrimitive,
				"strength":      CategoryBreedVariable,
				"set":           CategoryPrimitive,
			},
		},
		{
			name:   "breed templates follow the breed's shape",
			src:    "breed [ wolves wolf ]\nto go create-w end",
			marker: "create-w",
			ok:     true,
			contains: map[string]Category{
				"create-wolves": CategoryBreedPrimitive,
			},
			excludes: []string{"create-wolves-with", "create-wolf"},
		},
		{
			name:     "breed test uses the singular",
			src:      "breed [ wolves wolf ]\nto go show is-w end",
			marker:   "is-w",
			ok:       true,
			contains: map[string]Category{"is-wolf?": CategoryBreedPrimitive},
			excludes: []string{"is-wolves?"},
		},
		{
			name:   "locals and arguments",
			src:    "to move [ speed ]\n  let spare 1\n  fd sp\nend",
			marker: "fd sp",
			ok:     true,
			contains: map[string]Category{
				"speed": CategoryArgument,
				"spare": CategoryLocalVariable,
			},
		},
		{name: "globals block", src: "globals [ sc ]", marker: "sc", ok: false},
		{name: "own block", src: "breed [ wolves wolf ]\nwolves-own [ st ]", marker: "st", ok: false},
		{name: "procedure name", src: "to fo end", marker: "to fo", ok: false},
		{name: "let name", src: "to go let fo 1 end", marker: "let fo", ok: false},
		{name: "string", src: "to go show \"fo\" end", marker: "\"fo", ok: false},
		{name: "comment", src: "to go ; fo\nend", marker: "; fo", ok: false},
		{name: "no word", src: "to go  end", marker: "go ", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestSession(t, tt.src)
			c, ok := completeAfter(t, s, tt.marker, 1)
			require.Equal(t, tt.ok, ok)
			got := optionCategories(c)
			for label, cat := range tt.contains {
				assert.Equal(t, cat, got[label], "option %q", label)
			}
			for _, label := range tt.excludes {
				assert.NotContains(t, got, label)
			}
		})
	}
}

func TestCompleteAt_ReplacesWholeWord(t *testing.T) {
	t.Parallel()
	src := "to go forw end"
	s := newTestSession(t, src)
	start := strings.Index(src, "forw")

	c, ok := s.CompleteAt(start + 2)
	require.True(t, ok)
	assert.Equal(t, start, c.From)
	assert.Equal(t, start+len("forw"), c.To)
	assert.Contains(t, optionCategories(c), "forward")
	assert.Contains(t, optionCategories(c), "foreach", "only the text before the cursor filters")

	labels := make([]string, len(c.Options))
	for i, o := range c.Options {
		labels[i] = o.Label
	}
	assert.IsIncreasing(t, labels)
}

func TestCompleteAt_WidgetGlobalsAndAttachedSessions(t *testing.T) {
	t.Parallel()
	root := newTestSession(t, "globals [ population ]\nto populate end")
	child := newTestSession(t, "to go po end")
	require.NoError(t, root.Attach(child))
	child.SetWidgetGlobals([]string{"pollution"})

	c, ok := completeAfter(t, child, "go po", 1)
	require.True(t, ok)
	got := optionCategories(c)
	assert.Equal(t, CategoryGlobal, got["population"])
	assert.Equal(t, CategoryProcedure, got["populate"])
	assert.Equal(t, CategoryWidgetGlobal, got["pollution"])
}
