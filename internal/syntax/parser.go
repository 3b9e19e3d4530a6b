package syntax

import (
	"strings"

	"github.com/jward/meadow/internal/lang"
)

// DefaultNodeBudget bounds the nodes created by one parse.
const DefaultNodeBudget = 200000

// Parser is the reference Provider. It is safe for concurrent use.
type Parser struct {
	catalog *lang.Catalog
	budget  int
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithNodeBudget caps the number of nodes per parse. Source past the cap is
// kept as a single Unparsed node.
func WithNodeBudget(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.budget = n
		}
	}
}

// WithCatalog replaces the embedded primitive catalog.
func WithCatalog(c *lang.Catalog) ParserOption {
	return func(p *Parser) {
		if c != nil {
			p.catalog = c
		}
	}
}

// NewParser creates a parser over the embedded catalog.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{budget: DefaultNodeBudget}
	for _, o := range opts {
		o(p)
	}
	if p.catalog == nil {
		p.catalog = lang.Default()
	}
	return p
}

// Parse builds a tree for src. It never fails: irregular input produces
// unbalanced delimiters, stray nodes or an Unparsed tail.
func (p *Parser) Parse(src string, vocab Vocabulary) *Tree {
	if vocab == nil {
		vocab = emptyVocabulary{}
	}
	s := &parseState{
		cat:    p.catalog,
		vocab:  vocab,
		src:    src,
		toks:   Lex(src),
		budget: p.budget,
	}
	root := s.parseProgram()
	return &Tree{
		Root:      root,
		Source:    src,
		Truncated: s.truncated,
		Nodes:     s.nodes,
	}
}

type parseState struct {
	cat   *lang.Catalog
	vocab Vocabulary
	src   string
	toks  []Token
	pos   int

	budget    int
	nodes     int
	truncated bool
	cutAt     int
	lastEnd   int
}

func (s *parseState) peek() Token {
	return s.peekAt(0)
}

func (s *parseState) peekAt(k int) Token {
	if s.truncated {
		return Token{Kind: TokEOF, From: s.cutAt, To: s.cutAt}
	}
	i := s.pos + k
	if i >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[i]
}

func (s *parseState) next() Token {
	t := s.peek()
	if t.Kind != TokEOF {
		s.pos++
		s.lastEnd = t.To
	}
	return t
}

func (s *parseState) node(kind Kind, from int) *Node {
	s.nodes++
	if s.nodes > s.budget && !s.truncated {
		s.truncated = true
		s.cutAt = s.toks[s.pos].From
	}
	return &Node{Kind: kind, From: from, To: from}
}

// leaf consumes the next token as a node of the given kind.
func (s *parseState) leaf(kind Kind) *Node {
	t := s.next()
	n := s.node(kind, t.From)
	n.To = t.To
	n.Name = t.Text
	return n
}

func (s *parseState) finish(n *Node) *Node {
	if s.lastEnd > n.To {
		n.To = s.lastEnd
	}
	return n
}

func add(parent, child *Node) {
	if child == nil {
		return
	}
	child.Parent = parent
	parent.Children = append(parent.Children, child)
	if child.To > parent.To {
		parent.To = child.To
	}
}

func (s *parseState) isWord(t Token, text string) bool {
	return t.Kind == TokWord && t.Text == text
}

// atTopLevelStart reports tokens that can only begin a declaration.
func (s *parseState) atTopLevelStart() bool {
	t := s.peek()
	if t.Kind != TokWord {
		return false
	}
	switch t.Text {
	case "to", "to-report", "globals", "extensions", "breed", "directed-link-breed", "undirected-link-breed", "__includes":
		return true
	}
	return strings.HasSuffix(t.Text, "-own") && s.peekAt(1).Kind == TokOpenBracket
}

func (s *parseState) atStop() bool {
	t := s.peek()
	return t.Kind == TokEOF || s.isWord(t, "end") || s.atTopLevelStart()
}

func (s *parseState) parseProgram() *Node {
	root := s.node(Program, 0)
	for s.peek().Kind != TokEOF {
		t := s.peek()
		switch {
		case s.isWord(t, "to") || s.isWord(t, "to-report"):
			add(root, s.parseProcedure())
		case s.isWord(t, "extensions"):
			add(root, s.parseNameList(Extensions, ExtensionName))
		case s.isWord(t, "globals"):
			add(root, s.parseNameList(Globals, Identifier))
		case s.isWord(t, "breed") || s.isWord(t, "directed-link-breed") || s.isWord(t, "undirected-link-breed"):
			add(root, s.parseBreed())
		case s.isWord(t, "__includes"):
			add(root, s.parseNameList(Stray, String))
		case s.atTopLevelStart():
			add(root, s.parseOwn())
		default:
			add(root, s.parseStray())
		}
	}
	if s.truncated {
		u := &Node{Kind: Unparsed, From: s.cutAt, To: len(s.src)}
		add(root, u)
	}
	root.From = 0
	root.To = len(s.src)
	return root
}

// parseNameList parses "keyword [ name ... ]".
func (s *parseState) parseNameList(kind, item Kind) *Node {
	n := s.node(kind, s.peek().From)
	add(n, s.leaf(Keyword))
	if s.peek().Kind == TokOpenBracket {
		add(n, s.leaf(OpenBracket))
	loop:
		for !s.atStop() {
			switch s.peek().Kind {
			case TokWord, TokNumber, TokString:
				add(n, s.leaf(item))
			default:
				break loop
			}
		}
		if s.peek().Kind == TokCloseBracket {
			add(n, s.leaf(CloseBracket))
		}
	}
	return s.finish(n)
}

func (s *parseState) parseBreed() *Node {
	n := s.node(BreedDecl, s.peek().From)
	add(n, s.leaf(Keyword))
	if s.peek().Kind != TokOpenBracket {
		return s.finish(n)
	}
	add(n, s.leaf(OpenBracket))
	kinds := []Kind{BreedPlural, BreedSingular}
	for i := 0; s.peek().Kind == TokWord && !s.atStop(); i++ {
		k := Identifier
		if i < len(kinds) {
			k = kinds[i]
		}
		add(n, s.leaf(k))
	}
	if s.peek().Kind == TokCloseBracket {
		add(n, s.leaf(CloseBracket))
	}
	return s.finish(n)
}

func (s *parseState) parseOwn() *Node {
	n := s.node(BreedsOwn, s.peek().From)
	own := s.leaf(Own)
	own.Breed = strings.TrimSuffix(own.Name, "-own")
	add(n, own)
	add(n, s.leaf(OpenBracket))
	for s.peek().Kind == TokWord && !s.atStop() {
		add(n, s.leaf(Identifier))
	}
	if s.peek().Kind == TokCloseBracket {
		add(n, s.leaf(CloseBracket))
	}
	return s.finish(n)
}

func (s *parseState) parseProcedure() *Node {
	n := s.node(Procedure, s.peek().From)
	if s.isWord(s.peek(), "to-report") {
		add(n, s.leaf(ToReport))
	} else {
		add(n, s.leaf(To))
	}
	if t := s.peek(); t.Kind == TokWord && !s.atStop() {
		add(n, s.leaf(ProcedureName))
	}
	if s.peek().Kind == TokOpenBracket {
		args := s.node(Arguments, s.peek().From)
		add(args, s.leaf(OpenBracket))
		for s.peek().Kind == TokWord && !s.atStop() {
			add(args, s.leaf(Identifier))
		}
		if s.peek().Kind == TokCloseBracket {
			add(args, s.leaf(CloseBracket))
		}
		add(n, s.finish(args))
	}
	s.parseStatements(n, false)
	if s.isWord(s.peek(), "end") {
		add(n, s.leaf(End))
	}
	return s.finish(n)
}

func (s *parseState) parseStray() *Node {
	n := s.node(Stray, s.peek().From)
	switch t := s.peek(); {
	case s.isWord(t, "end"):
		add(n, s.leaf(End))
	case t.Kind == TokCloseBracket:
		add(n, s.leaf(CloseBracket))
	case t.Kind == TokCloseParen:
		add(n, s.leaf(CloseParen))
	default:
		add(n, s.parseStatement())
	}
	return s.finish(n)
}

// parseStatements appends statements to parent until a block end, "end" or a
// declaration keyword.
func (s *parseState) parseStatements(parent *Node, inBlock bool) {
	for !s.atStop() {
		switch s.peek().Kind {
		case TokCloseBracket:
			if inBlock {
				return
			}
			add(parent, s.leaf(CloseBracket))
		case TokCloseParen:
			add(parent, s.leaf(CloseParen))
		default:
			add(parent, s.parseStatement())
		}
	}
}

func (s *parseState) parseStatement() *Node {
	t := s.peek()
	switch t.Kind {
	case TokWord:
		if _, ok := s.classifyCommand(t.Text); ok {
			return s.parseCommand(false)
		}
	case TokOpenParen:
		if w := s.peekAt(1); w.Kind == TokWord {
			if _, ok := s.classifyCommand(w.Text); ok {
				return s.parseCommand(true)
			}
		}
	}
	st := s.node(ExpressionStatement, t.From)
	if e := s.parseExpr(0, nil); e != nil {
		add(st, e)
	} else {
		add(st, s.strayToken())
	}
	return s.finish(st)
}

// strayToken consumes one token that cannot start an expression.
func (s *parseState) strayToken() *Node {
	switch s.peek().Kind {
	case TokCloseBracket:
		return s.leaf(CloseBracket)
	case TokCloseParen:
		return s.leaf(CloseParen)
	case TokNumber:
		return s.leaf(Number)
	case TokString:
		return s.leaf(String)
	default:
		return s.leaf(VariableName)
	}
}

// callee describes what a word invokes.
type callee struct {
	kind  Kind
	prim  *lang.Primitive
	breed string
	shape lang.BreedShape
}

func (s *parseState) classifyCommand(word string) (callee, bool) {
	if p, ok := s.cat.Lookup(word); ok {
		return callee{kind: Command, prim: p}, p.IsCommand
	}
	if n, ok := s.vocab.CommandArity(word); ok {
		return callee{kind: CustomCommand, prim: lang.NewProcedurePrimitive(word, n, true)}, true
	}
	if _, ok := s.vocab.ReporterArity(word); ok {
		return callee{}, false
	}
	if t, breed, ok := s.cat.MatchTemplate(word); ok && t.Primitive.IsCommand {
		return callee{kind: BreedCommand, prim: t.Primitive, breed: breed, shape: t.Shape}, true
	}
	if strings.Contains(word, ":") {
		return callee{kind: Command, prim: lang.NewProcedurePrimitive(word, 0, true)}, true
	}
	return callee{}, false
}

func (s *parseState) classifyReporter(word string) (callee, bool) {
	if p, ok := s.cat.Lookup(word); ok {
		return callee{kind: Reporter, prim: p}, !p.IsCommand && !p.IsInfix()
	}
	if n, ok := s.vocab.ReporterArity(word); ok {
		return callee{kind: CustomReporter, prim: lang.NewProcedurePrimitive(word, n, false)}, true
	}
	if _, ok := s.vocab.CommandArity(word); ok {
		return callee{}, false
	}
	if t, breed, ok := s.cat.MatchTemplate(word); ok && !t.Primitive.IsCommand && s.vocab.IsBreed(breed) {
		return callee{kind: BreedReporter, prim: t.Primitive, breed: breed, shape: t.Shape}, true
	}
	if strings.Contains(word, ":") {
		return callee{kind: Reporter, prim: lang.NewProcedurePrimitive(word, 0, false)}, true
	}
	return callee{}, false
}

func (s *parseState) nameLeaf(c callee) *Node {
	n := s.leaf(c.kind)
	n.Breed = c.breed
	n.Shape = c.shape
	return n
}

func (s *parseState) parseCommand(paren bool) *Node {
	st := s.node(CommandStatement, s.peek().From)
	st.Parenthesized = paren
	if paren {
		add(st, s.leaf(OpenParen))
	}
	c, _ := s.classifyCommand(s.peek().Text)
	name := s.nameLeaf(c)
	add(st, name)

	switch name.Name {
	case "let":
		if s.peek().Kind == TokWord && !s.atStop() {
			add(st, s.leaf(NewVariableDeclaration))
			add(st, s.parseArg(lang.Arg{Types: []lang.Type{lang.Wildcard}}, 0))
		}
	case "set":
		if s.peek().Kind == TokWord && !s.atStop() {
			add(st, s.leaf(VariableName))
			add(st, s.parseArg(lang.Arg{Types: []lang.Type{lang.Wildcard}}, 0))
		}
	default:
		s.parseArgs(st, c.prim, paren, 0)
	}

	if paren && s.peek().Kind == TokCloseParen {
		add(st, s.leaf(CloseParen))
	}
	return s.finish(st)
}

func (s *parseState) parseReporterCall(c callee, paren bool) *Node {
	call := s.node(ReporterCall, s.peek().From)
	call.Parenthesized = paren
	if paren {
		add(call, s.leaf(OpenParen))
	}
	add(call, s.nameLeaf(c))
	s.parseArgs(call, c.prim, paren, c.prim.Precedence+1)
	if paren && s.peek().Kind == TokCloseParen {
		add(call, s.leaf(CloseParen))
	}
	return s.finish(call)
}

// atArgBoundary reports tokens that end an input list.
func (s *parseState) atArgBoundary() bool {
	t := s.peek()
	switch t.Kind {
	case TokEOF, TokCloseBracket, TokCloseParen:
		return true
	case TokWord:
		if s.atStop() {
			return true
		}
		_, isCmd := s.classifyCommand(t.Text)
		return isCmd
	}
	return false
}

func (s *parseState) parseArgs(call *Node, prim *lang.Primitive, paren bool, minPrec int) {
	if paren {
		for i := 0; ; i++ {
			t := s.peek()
			if t.Kind == TokEOF || t.Kind == TokCloseParen || t.Kind == TokCloseBracket || s.atStop() {
				return
			}
			slot := s.parenSlot(prim, i)
			e := s.parseArg(slot, 0)
			if e == nil {
				return
			}
			add(call, e)
		}
	}
	for i := 0; i < prim.DefaultArgs(); i++ {
		slot, _ := prim.ArgAt(i)
		if slot.Optional && s.peek().Kind != TokOpenBracket {
			return
		}
		if s.atArgBoundary() {
			return
		}
		e := s.parseArg(slot, minPrec)
		if e == nil {
			return
		}
		add(call, e)
	}
}

// parenSlot picks the input slot inside parentheses, where a repeatable slot
// may stand before a final fixed one as in "(foreach xs ys [...])".
func (s *parseState) parenSlot(prim *lang.Primitive, i int) lang.Arg {
	right := prim.Right
	if len(right) == 0 {
		return lang.Arg{Types: []lang.Type{lang.Wildcard}}
	}
	repeat := -1
	for j, a := range right {
		if a.Repeat {
			repeat = j
			break
		}
	}
	if repeat < 0 || i < repeat {
		if a, ok := prim.ArgAt(i); ok {
			return a
		}
		return lang.Arg{Types: []lang.Type{lang.Wildcard}}
	}
	if repeat < len(right)-1 && s.peek().Kind == TokOpenBracket {
		end := s.matchingClose(s.pos)
		if end >= 0 && end+1 < len(s.toks) && s.toks[end+1].Kind == TokCloseParen {
			return right[len(right)-1]
		}
	}
	return right[repeat]
}

// parseArg parses one input. Command blocks never take part in infix
// expressions; any other bracket may be the left operand of "of" and friends.
func (s *parseState) parseArg(slot lang.Arg, minPrec int) *Node {
	if s.peek().Kind == TokOpenBracket && (slot.Accepts(lang.CommandBlock) || slot.Accepts(lang.Command)) {
		return s.parseBracket(slot)
	}
	return s.parseExpr(minPrec, &slot)
}

func (s *parseState) parseExpr(minPrec int, expected *lang.Arg) *Node {
	left := s.parseTerm(expected)
	if left == nil {
		return nil
	}
	for {
		t := s.peek()
		if t.Kind != TokWord {
			return left
		}
		prim, ok := s.cat.Lookup(t.Text)
		if !ok || !prim.IsInfix() || prim.Precedence < minPrec {
			return left
		}
		if left.Kind == List && prim.Left.Accepts(lang.ReporterBlock) {
			left.Kind = ReporterBlock
		}
		call := s.node(ReporterCall, left.From)
		add(call, left)
		add(call, s.leaf(Reporter))
		for i := range prim.Right {
			if s.atArgBoundary() {
				break
			}
			e := s.parseArg(prim.Right[i], prim.Precedence+1)
			if e == nil {
				break
			}
			add(call, e)
		}
		left = s.finish(call)
	}
}

func (s *parseState) parseTerm(expected *lang.Arg) *Node {
	t := s.peek()
	switch t.Kind {
	case TokNumber:
		return s.leaf(Number)
	case TokString:
		return s.leaf(String)
	case TokOpenBracket:
		slot := lang.Arg{Types: []lang.Type{lang.Wildcard}}
		if expected != nil {
			slot = *expected
		}
		return s.parseBracket(slot)
	case TokOpenParen:
		return s.parseParen()
	case TokWord:
		if s.atStop() {
			return nil
		}
		if s.cat.IsConstant(t.Text) {
			return s.leaf(Constant)
		}
		if c, ok := s.classifyReporter(t.Text); ok {
			return s.parseReporterCall(c, false)
		}
		if p, ok := s.cat.Lookup(t.Text); ok && (p.IsCommand || p.IsInfix()) {
			return nil
		}
		if _, ok := s.vocab.CommandArity(t.Text); ok {
			return nil
		}
		return s.leaf(VariableName)
	}
	return nil
}

func (s *parseState) parseParen() *Node {
	w := s.peekAt(1)
	if w.Kind == TokWord {
		if c, ok := s.classifyReporter(w.Text); ok {
			return s.parseReporterCall(c, true)
		}
		if _, ok := s.classifyCommand(w.Text); ok {
			return s.parseCommand(true)
		}
		if w.Text == "-" {
			return s.parseNegation()
		}
	}
	n := s.node(Parenthetical, s.peek().From)
	add(n, s.leaf(OpenParen))
	add(n, s.parseExpr(0, nil))
	if s.peek().Kind == TokCloseParen {
		add(n, s.leaf(CloseParen))
	}
	return s.finish(n)
}

// parseNegation parses "(- x)".
func (s *parseState) parseNegation() *Node {
	call := s.node(ReporterCall, s.peek().From)
	call.Parenthesized = true
	add(call, s.leaf(OpenParen))
	add(call, s.leaf(Reporter))
	add(call, s.parseExpr(0, nil))
	if s.peek().Kind == TokCloseParen {
		add(call, s.leaf(CloseParen))
	}
	return s.finish(call)
}

// matchingClose returns the index of the token closing the bracket at i, or
// -1 when the bracket is never closed.
func (s *parseState) matchingClose(i int) int {
	depth := 0
	for j := i; j < len(s.toks); j++ {
		switch s.toks[j].Kind {
		case TokOpenBracket:
			depth++
		case TokCloseBracket:
			depth--
			if depth == 0 {
				return j
			}
		case TokEOF:
			return -1
		}
	}
	return -1
}

// bracketHasArrow recognizes "[ -> ...", "[ x -> ..." and "[ [x y] -> ...".
func (s *parseState) bracketHasArrow() bool {
	a := s.peekAt(1)
	if s.isWord(a, "->") {
		return true
	}
	if a.Kind == TokWord {
		return s.isWord(s.peekAt(2), "->")
	}
	if a.Kind != TokOpenBracket {
		return false
	}
	for k := 2; ; k++ {
		t := s.peekAt(k)
		switch t.Kind {
		case TokWord:
			continue
		case TokCloseBracket:
			return s.isWord(s.peekAt(k+1), "->")
		default:
			return false
		}
	}
}

func (s *parseState) parseBracket(slot lang.Arg) *Node {
	switch {
	case s.bracketHasArrow():
		return s.parseAnon(slot, true)
	case slot.Accepts(lang.CommandBlock):
		return s.parseBlock(CommandBlock, true)
	case slot.Accepts(lang.ReporterBlock), slot.Accepts(lang.BooleanBlock), slot.Accepts(lang.NumberBlock):
		return s.parseBlock(ReporterBlock, false)
	case slot.Accepts(lang.Command), slot.Accepts(lang.Reporter):
		return s.parseAnon(slot, false)
	}
	return s.parseBlock(List, false)
}

func (s *parseState) parseBlock(kind Kind, statements bool) *Node {
	n := s.node(kind, s.peek().From)
	add(n, s.leaf(OpenBracket))
	if statements {
		s.parseStatements(n, true)
	} else {
		s.parseExpressions(n)
	}
	if s.peek().Kind == TokCloseBracket {
		add(n, s.leaf(CloseBracket))
	}
	return s.finish(n)
}

// parseExpressions fills a list or reporter body up to the closing bracket.
func (s *parseState) parseExpressions(n *Node) {
	for !s.atStop() && s.peek().Kind != TokCloseBracket {
		if t := s.peek(); t.Kind == TokWord {
			if _, ok := s.classifyCommand(t.Text); ok {
				add(n, s.parseCommand(false))
				continue
			}
		}
		if e := s.parseExpr(0, nil); e != nil {
			add(n, e)
			continue
		}
		add(n, s.strayToken())
	}
}

// parseAnon parses an anonymous procedure. Without an arrow the bracket is
// the concise form with no arguments.
func (s *parseState) parseAnon(slot lang.Arg, arrow bool) *Node {
	n := s.node(AnonProcedure, s.peek().From)
	add(n, s.leaf(OpenBracket))
	if arrow {
		switch t := s.peek(); {
		case t.Kind == TokOpenBracket:
			args := s.node(AnonArguments, t.From)
			add(args, s.leaf(OpenBracket))
			for s.peek().Kind == TokWord {
				add(args, s.leaf(Identifier))
			}
			if s.peek().Kind == TokCloseBracket {
				add(args, s.leaf(CloseBracket))
			}
			add(n, s.finish(args))
		case t.Kind == TokWord && !s.isWord(t, "->"):
			args := s.node(AnonArguments, t.From)
			add(args, s.leaf(Identifier))
			add(n, s.finish(args))
		}
		if s.isWord(s.peek(), "->") {
			add(n, s.leaf(Arrow))
		}
	}

	statements := slot.Accepts(lang.Command) || slot.Accepts(lang.CommandBlock)
	if !statements && !slot.Accepts(lang.Reporter) {
		if t := s.peek(); t.Kind == TokWord {
			_, statements = s.classifyCommand(t.Text)
		}
	}
	if statements {
		s.parseStatements(n, true)
	} else {
		s.parseExpressions(n)
	}
	if s.peek().Kind == TokCloseBracket {
		add(n, s.leaf(CloseBracket))
	}
	return s.finish(n)
}
