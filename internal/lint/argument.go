package lint

import (
	"strconv"

	"github.com/jward/meadow/internal/analysis"
	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/syntax"
)

// Argument reports calls with too few or too many inputs.
var Argument = &Validator{
	Name: "argument",
	Doc:  "checks the number of inputs of every call",
	Run:  runArgument,
}

func runArgument(p *Pass) {
	calls(p.Tree.Root, func(call, name *syntax.Node) {
		prim := p.callee(name)
		if prim == nil {
			return
		}
		got := len(call.RightArgs())
		lo, hi := prim.RequiredArgs(), prim.DefaultArgs()
		switch {
		case prim.IsInfix():
			// "(- x)" is negation, not subtraction.
			if call.Parenthesized {
				return
			}
			lo, hi = len(prim.Right), len(prim.Right)
		case call.Parenthesized:
			lo = prim.MinArgs()
			if prim.Variadic() {
				hi = -1
			}
		}
		if got < lo {
			p.ReportNode(name, SeverityError, MsgTooFewInputs, name.Name, strconv.Itoa(lo), strconv.Itoa(got))
		} else if hi >= 0 && got > hi {
			p.ReportNode(name, SeverityError, MsgTooManyInputs, name.Name, strconv.Itoa(hi), strconv.Itoa(got))
		}
	})
}

// callee returns the primitive a call name leaf invokes, with user procedures
// described by their declared arity.
func (p *Pass) callee(name *syntax.Node) *lang.Primitive {
	switch name.Kind {
	case syntax.CustomCommand:
		if n, ok := p.Pre.CommandArity(name.Name); ok {
			return lang.NewProcedurePrimitive(name.Name, n, true)
		}
		return nil
	case syntax.CustomReporter:
		if n, ok := p.Pre.ReporterArity(name.Name); ok {
			return lang.NewProcedurePrimitive(name.Name, n, false)
		}
		return nil
	}
	return analysis.Primitive(p.Catalog, name)
}
