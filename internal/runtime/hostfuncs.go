package runtime

import (
	"context"
	"fmt"
	"sort"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// passGlobals returns the host functions a rule script uses to inspect the
// document under validation and report findings on it.
func passGlobals(p *lint.Pass) map[string]any {
	return map[string]any{
		"source":     object.NewString(p.Source),
		"nodes":      makeNodesFn(p),
		"text":       makeTextFn(p),
		"procedures": makeProceduresFn(p),
		"breeds":     makeBreedsFn(p),
		"globals":    makeGlobalsFn(p),
		"report":     makeReportFn(p),
	}
}

// nodes(kind) → list of {kind, name, from, to} in document order.
func makeNodesFn(p *lint.Pass) *object.Builtin {
	return object.NewBuiltin("nodes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("nodes", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("nodes: %v", err)
		}
		kind, ok := syntax.ParseKind(name)
		if !ok {
			return object.Errorf("nodes: unknown kind %q", name)
		}
		var items []object.Object
		for _, n := range p.Tree.All(kind) {
			items = append(items, nodeToMap(n))
		}
		return object.NewList(items)
	})
}

func nodeToMap(n *syntax.Node) object.Object {
	return object.NewMap(map[string]object.Object{
		"kind": object.NewString(n.Kind.String()),
		"name": object.NewString(n.Name),
		"from": object.NewInt(int64(n.From)),
		"to":   object.NewInt(int64(n.To)),
	})
}

// text(from, to) → the source in [from, to), clamped to the document.
func makeTextFn(p *lint.Pass) *object.Builtin {
	return object.NewBuiltin("text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("text", 2, len(args))
		}
		from, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("text: from: %v", err)
		}
		to, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("text: to: %v", err)
		}
		n := int64(len(p.Source))
		from, to = max(0, min(from, n)), max(0, min(to, n))
		if to < from {
			to = from
		}
		return object.NewString(p.Source[from:to])
	})
}

// procedures() → the document's own procedures ordered by position.
func makeProceduresFn(p *lint.Pass) *object.Builtin {
	return object.NewBuiltin("procedures", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("procedures", 0, len(args))
		}
		procs := make([]*model.Procedure, 0, len(p.Own.Procedures))
		for _, proc := range p.Own.Procedures {
			procs = append(procs, proc)
		}
		sort.Slice(procs, func(i, j int) bool { return procs[i].PositionStart < procs[j].PositionStart })

		items := make([]object.Object, 0, len(procs))
		for _, proc := range procs {
			kind := "reporter"
			if proc.IsCommand {
				kind = "command"
			}
			items = append(items, object.NewMap(map[string]object.Object{
				"name":      object.NewString(proc.Name),
				"kind":      object.NewString(kind),
				"from":      object.NewInt(int64(proc.PositionStart)),
				"to":        object.NewInt(int64(proc.PositionEnd)),
				"arguments": stringList(proc.Arguments),
				"context":   object.NewString(proc.Context.String()),
			}))
		}
		return object.NewList(items)
	})
}

// breeds() → every breed visible to the document, by plural name.
func makeBreedsFn(p *lint.Pass) *object.Builtin {
	return object.NewBuiltin("breeds", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("breeds", 0, len(args))
		}
		var items []object.Object
		for _, b := range p.Lint.SortedBreeds() {
			items = append(items, object.NewMap(map[string]object.Object{
				"plural":    object.NewString(b.Plural),
				"singular":  object.NewString(b.Singular),
				"type":      object.NewString(b.BreedType.String()),
				"variables": stringList(b.Variables),
				"declared":  object.NewBool(b.Declared),
			}))
		}
		return object.NewList(items)
	})
}

// globals() → sorted names of the globals visible to the document.
func makeGlobalsFn(p *lint.Pass) *object.Builtin {
	return object.NewBuiltin("globals", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("globals", 0, len(args))
		}
		names := make([]string, 0, len(p.Lint.Globals))
		for name := range p.Lint.Globals {
			names = append(names, name)
		}
		sort.Strings(names)
		return stringList(names)
	})
}

// report({from, to, severity, message}) records a diagnostic. severity
// defaults to "warning".
func makeReportFn(p *lint.Pass) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("report: %v", err)
		}
		msg := getString(m, "message")
		if msg == "" {
			return object.Errorf("report: message is required")
		}
		sev := lint.SeverityWarning
		if s := getString(m, "severity"); s != "" {
			if err := sev.UnmarshalText([]byte(s)); err != nil {
				return object.Errorf("report: %v", err)
			}
		}
		p.Report(getInt(m, "from"), getInt(m, "to"), sev, msg)
		return object.Nil
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}

// --- conversions ---

func stringList(ss []string) object.Object {
	items := make([]object.Object, len(ss))
	for i, s := range ss {
		items[i] = object.NewString(s)
	}
	return object.NewList(items)
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getInt(m map[string]object.Object, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return int(i.Value())
	}
	if f, ok := v.(*object.Float); ok {
		return int(f.Value())
	}
	return 0
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
