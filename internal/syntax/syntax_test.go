package syntax

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/meadow/internal/lang"
)

func TestEmbeddedCatalogLoads(t *testing.T) {
	t.Parallel()
	_, err := lang.LoadEmbedded()
	require.NoError(t, err)
	require.NotPanics(t, func() { NewParser() })
}

func TestWordAt(t *testing.T) {
	t.Parallel()
	src := "ask turtles [ fd 1 ] ; hatch-sheep"
	tests := []struct {
		pos      int
		from, to int
	}{
		{0, 0, 3},
		{2, 0, 3},
		{3, 0, 3},
		{4, 4, 11},
		{12, 12, 12},
		{15, 14, 16},
		{27, 23, 34},
		{-5, 0, 3},
		{100, 23, 34},
	}
	for _, tt := range tests {
		from, to := WordAt(src, tt.pos)
		assert.Equal(t, tt.from, from, "from at %d", tt.pos)
		assert.Equal(t, tt.to, to, "to at %d", tt.pos)
	}
}

type testVocab struct {
	commands  map[string]int
	reporters map[string]int
	breeds    []string
}

func (v testVocab) CommandArity(name string) (int, bool) {
	n, ok := v.commands[name]
	return n, ok
}

func (v testVocab) ReporterArity(name string) (int, bool) {
	n, ok := v.reporters[name]
	return n, ok
}

func (v testVocab) IsBreed(name string) bool {
	for _, b := range v.breeds {
		if b == name {
			return true
		}
	}
	return false
}

// dump renders n as an s-expression of kinds, leaves as Kind:name.
// Delimiters are left out.
func dump(n *Node) string {
	if len(n.Children) == 0 {
		if n.Name != "" {
			return n.Kind.String() + ":" + n.Name
		}
		return n.Kind.String()
	}
	parts := []string{n.Kind.String()}
	for _, c := range n.Children {
		if c.Kind.IsDelimiter() {
			continue
		}
		parts = append(parts, dump(c))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func parse(t *testing.T, src string, vocab Vocabulary) *Tree {
	t.Helper()
	tree := NewParser().Parse(src, vocab)
	require.NotNil(t, tree)
	require.NotNil(t, tree.Root)
	return tree
}

// body dumps the statements of the first procedure.
func body(t *testing.T, src string, vocab Vocabulary) string {
	t.Helper()
	proc := parse(t, src, vocab).Root.Child(Procedure)
	require.NotNil(t, proc)
	var parts []string
	for _, c := range proc.Children {
		switch c.Kind {
		case To, ToReport, ProcedureName, Arguments, End:
			continue
		}
		parts = append(parts, dump(c))
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// Lexer
// =============================================================================

func TestLex(t *testing.T) {
	t.Parallel()
	src := "FD 1 ; move\n\"a \\\"b\\\"\" -3.5e2 [ x ]( - )"
	toks := Lex(src)

	type tok struct {
		Kind TokenKind
		Text string
	}
	var got []tok
	for _, tk := range toks {
		got = append(got, tok{tk.Kind, tk.Text})
	}
	want := []tok{
		{TokWord, "fd"},
		{TokNumber, "1"},
		{TokString, `"a \"b\""`},
		{TokNumber, "-3.5e2"},
		{TokOpenBracket, "["},
		{TokWord, "x"},
		{TokCloseBracket, "]"},
		{TokOpenParen, "("},
		{TokWord, "-"},
		{TokCloseParen, ")"},
		{TokEOF, ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lex mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "FD", src[toks[0].From:toks[0].To])
}

func TestLex_UnterminatedString(t *testing.T) {
	t.Parallel()
	toks := Lex("show \"abc\nfd 1")
	require.Len(t, toks, 5)
	assert.Equal(t, TokString, toks[1].Kind)
	assert.Equal(t, `"abc`, toks[1].Text)
	assert.Equal(t, "fd", toks[2].Text)
}

// =============================================================================
// Parser
// =============================================================================

func TestParse_Shapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "ask block",
			src:  "to go ask turtles [ fd 1 ] end",
			want: "(CommandStatement Command:ask (ReporterCall Reporter:turtles) (CommandBlock (CommandStatement Command:fd Number:1)))",
		},
		{
			name: "of takes a reporter block",
			src:  "to-report f report [ color ] of turtle 0 end",
			want: "(CommandStatement Command:report (ReporterCall (ReporterBlock VariableName:color) Reporter:of (ReporterCall Reporter:turtle Number:0)))",
		},
		{
			name: "operator precedence",
			src:  "to go show 1 + 2 * 3 end",
			want: "(CommandStatement Command:show (ReporterCall Number:1 Reporter:+ (ReporterCall Number:2 Reporter:* Number:3)))",
		},
		{
			name: "reporter input absorbs tighter infix",
			src:  "to go show count turtles with [ color = red ] end",
			want: "(CommandStatement Command:show (ReporterCall Reporter:count (ReporterCall (ReporterCall Reporter:turtles) Reporter:with (ReporterBlock (ReporterCall VariableName:color Reporter:= Constant:red)))))",
		},
		{
			name: "anonymous reporter",
			src:  "to go let f [ x -> x * 2 ] end",
			want: "(CommandStatement Command:let NewVariableDeclaration:f (AnonProcedure (AnonArguments Identifier:x) Arrow:-> (ReporterCall VariableName:x Reporter:* Number:2)))",
		},
		{
			name: "parenthesized variadic",
			src:  "to go show (list 1 2 3) end",
			want: "(CommandStatement Command:show (ReporterCall Reporter:list Number:1 Number:2 Number:3))",
		},
		{
			name: "parenthesized foreach",
			src:  "to go (foreach [1] [2] [ [a b] -> show a ]) end",
			want: "(CommandStatement Command:foreach (List Number:1) (List Number:2) (AnonProcedure (AnonArguments Identifier:a Identifier:b) Arrow:-> (CommandStatement Command:show VariableName:a)))",
		},
		{
			name: "negation and grouping",
			src:  "to go show (- 5) show (1 + 2) end",
			want: "(CommandStatement Command:show (ReporterCall Reporter:- Number:5)) (CommandStatement Command:show (Parenthetical (ReporterCall Number:1 Reporter:+ Number:2)))",
		},
		{
			name: "expression statement",
			src:  "to go 5 end",
			want: "(ExpressionStatement Number:5)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, body(t, tt.src, nil)); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Vocabulary(t *testing.T) {
	t.Parallel()
	vocab := testVocab{
		commands:  map[string]int{"walk": 1},
		reporters: map[string]int{"double": 1},
		breeds:    []string{"wolves", "wolf"},
	}

	got := body(t, "to go walk double 3 end", vocab)
	assert.Equal(t, "(CommandStatement CustomCommand:walk (ReporterCall CustomReporter:double Number:3))", got)

	// Without the vocabulary the same words are plain identifiers.
	got = body(t, "to go walk double 3 end", nil)
	assert.Equal(t, "(ExpressionStatement VariableName:walk) (ExpressionStatement VariableName:double) (ExpressionStatement Number:3)", got)
}

func TestParse_BreedPrimitives(t *testing.T) {
	t.Parallel()
	vocab := testVocab{breeds: []string{"wolves", "wolf"}}
	src := "breed [ wolves wolf ]\nto go create-wolves 2 [ fd 1 ] show wolves-here end"
	tree := parse(t, src, vocab)

	decl := tree.Root.Child(BreedDecl)
	require.NotNil(t, decl)
	assert.Equal(t, "(BreedDecl Keyword:breed BreedPlural:wolves BreedSingular:wolf)", dump(decl))

	got := body(t, src, vocab)
	assert.Equal(t, "(CommandStatement BreedCommand:create-wolves Number:2 (CommandBlock (CommandStatement Command:fd Number:1))) (CommandStatement Command:show (ReporterCall BreedReporter:wolves-here))", got)

	create := tree.All(BreedCommand)
	require.Len(t, create, 1)
	assert.Equal(t, "wolves", create[0].Breed)

	// Breed reporters need a known breed; breed commands do not.
	got = body(t, "to go create-sheep 1 show sheep-here end", nil)
	assert.Equal(t, "(CommandStatement BreedCommand:create-sheep Number:1) (CommandStatement Command:show VariableName:sheep-here)", got)
}

func TestParse_TopLevel(t *testing.T) {
	t.Parallel()
	src := "globals [ a b ]\nfd 1\nextensions [ table ]\nturtles-own [ energy ]\n]"
	tree := parse(t, src, nil)

	var got []string
	for _, c := range tree.Root.Children {
		got = append(got, dump(c))
	}
	want := []string{
		"(Globals Keyword:globals Identifier:a Identifier:b)",
		"(Stray (CommandStatement Command:fd Number:1))",
		"(Extensions Keyword:extensions ExtensionName:table)",
		"(BreedsOwn Own:turtles-own Identifier:energy)",
		"(Stray)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("top level mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "turtles", tree.Root.Child(BreedsOwn).Child(Own).Breed)
	assert.Equal(t, len(src), tree.Root.To)
}

func TestParse_UnclosedBlock(t *testing.T) {
	t.Parallel()
	tree := parse(t, "to go ask turtles [ fd 1\nend\nto stop-it end", nil)
	procs := tree.Root.ChildrenOf(Procedure)
	require.Len(t, procs, 2)

	block := tree.All(CommandBlock)
	require.Len(t, block, 1)
	assert.NotNil(t, block[0].Child(OpenBracket))
	assert.Nil(t, block[0].Child(CloseBracket))
	assert.NotNil(t, procs[0].Child(End))
}

func TestParse_NodeBudget(t *testing.T) {
	t.Parallel()
	src := "to go fd 1 end\nto later fd 2 end"
	tree := NewParser(WithNodeBudget(6)).Parse(src, nil)
	require.True(t, tree.Truncated)

	last := tree.Root.Children[len(tree.Root.Children)-1]
	assert.Equal(t, Unparsed, last.Kind)
	assert.Equal(t, len(src), last.To)
	assert.Less(t, last.From, len(src))

	full := NewParser().Parse(src, nil)
	assert.False(t, full.Truncated)
	assert.Empty(t, full.All(Unparsed))
}

func TestTree_Path(t *testing.T) {
	t.Parallel()
	src := "to go ask turtles [ fd 1 ] end"
	tree := parse(t, src, nil)
	at := strings.Index(src, "fd")

	var kinds []Kind
	for _, n := range tree.Path(at, at+2) {
		kinds = append(kinds, n.Kind)
	}
	assert.Equal(t, []Kind{Program, Procedure, CommandStatement, CommandBlock, CommandStatement, Command}, kinds)
	assert.Nil(t, tree.Path(0, len(src)+1))
}

func TestNode_Helpers(t *testing.T) {
	t.Parallel()
	src := "to go show 1 + 2 end"
	tree := parse(t, src, nil)
	plus := tree.All(ReporterCall)[0]

	name := plus.CallName()
	require.NotNil(t, name)
	assert.Equal(t, "+", name.Name)
	assert.Len(t, plus.Args(), 2)
	assert.Len(t, plus.RightArgs(), 1)
	assert.Equal(t, "1 + 2", plus.Text(src))
	assert.Equal(t, Procedure, plus.Enclosing(Procedure).Kind)
	assert.Nil(t, plus.Enclosing(CommandBlock))
}

func TestKinds(t *testing.T) {
	t.Parallel()
	for _, k := range Kinds() {
		assert.NotEqual(t, "", k.String())
		assert.NotContains(t, k.String(), "Kind(")
		back, ok := ParseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, back)
	}
	_, ok := ParseKind("Invalid")
	assert.False(t, ok)
	assert.True(t, BreedReporter.IsCallName())
	assert.False(t, VariableName.IsCallName())
	assert.True(t, CloseParen.IsDelimiter())
}
