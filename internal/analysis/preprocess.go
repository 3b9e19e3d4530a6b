// Package analysis builds the semantic contexts of a document: the
// declaration-only vocabulary and the full symbol table.
package analysis

import (
	"strings"

	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// Preprocess scans src for declarations without parsing it. Breed names,
// breed variables and procedure names with their arity are recorded under
// sessionID. Malformed declarations are skipped.
func Preprocess(src string, sessionID int) *model.PreprocessContext {
	ctx := model.NewPreprocessContext()
	toks := syntax.Lex(src)

	// words returns the words between the bracket at i and its closing
	// bracket, and the index of that bracket. ok is false if the bracket is
	// missing or holds anything but words.
	words := func(i int) (out []string, end int, ok bool) {
		if i >= len(toks) || toks[i].Kind != syntax.TokOpenBracket {
			return nil, i, false
		}
		for j := i + 1; j < len(toks); j++ {
			switch toks[j].Kind {
			case syntax.TokWord:
				out = append(out, toks[j].Text)
			case syntax.TokCloseBracket:
				return out, j, true
			default:
				return nil, j, false
			}
		}
		return nil, len(toks), false
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != syntax.TokWord {
			continue
		}
		switch {
		case t.Text == "breed" || t.Text == "directed-link-breed" || t.Text == "undirected-link-breed":
			names, end, ok := words(i + 1)
			if !ok || len(names) != 2 {
				continue
			}
			i = end
			ctx.PluralBreeds[names[0]] = sessionID
			ctx.SingularBreeds[names[1]] = sessionID
			if t.Text != "breed" {
				ctx.LinkBreeds[names[0]] = sessionID
				ctx.LinkBreeds[names[1]] = sessionID
			}

		case t.Text == "to" || t.Text == "to-report":
			if i+1 >= len(toks) || toks[i+1].Kind != syntax.TokWord {
				continue
			}
			name := toks[i+1].Text
			arity := 0
			if args, end, ok := words(i + 2); ok {
				arity = len(args)
				i = end
			} else {
				i++
			}
			if t.Text == "to" {
				ctx.Commands[name] = arity
				ctx.CommandsOrigin[name] = sessionID
			} else {
				ctx.Reporters[name] = arity
				ctx.ReportersOrigin[name] = sessionID
			}

		case strings.HasSuffix(t.Text, "-own"):
			vars, end, ok := words(i + 1)
			if !ok {
				continue
			}
			i = end
			for _, v := range vars {
				ctx.BreedVars[v] = sessionID
			}
		}
	}
	return ctx
}
