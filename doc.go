// Package meadow provides live semantic analysis for agent-based models
// written in a NetLogo dialect. It discovers the symbols a document declares,
// validates how they are used and answers "what is this?" queries at a
// source position.
//
// # Pipeline
//
// Every text change runs the same synchronous steps:
//
//  1. Preprocess: scan the text for declarations (breeds, breed variables,
//     procedure names and arities) without parsing it.
//
//  2. Merge the vocabulary of every session of the group, then parse with
//     it, so user procedures are known before their declaration.
//
//  3. Build: walk the tree once into a LintContext holding globals, breeds,
//     procedures, locals, anonymous procedures and code blocks with their
//     agent contexts.
//
//  4. Merge the LintContexts of the group and run the validators over every
//     visible member.
//
// # Usage
//
//	s := meadow.NewSession(meadow.WithLogger(logger))
//	s.SetText("globals [ x ]\nto go set y 5 end")
//	for _, d := range s.Diagnostics() {
//		fmt.Println(d.From, d.To, d.Message)
//	}
//
//	if desc, ok := s.DescribeAt(from, to); ok { ... }
//
// # Groups
//
// A session may Attach others to share declarations, such as a model and the
// code generated for its widgets. Groups are one level deep: a child cannot
// have children and a parent cannot be attached. Children in ModeIsolated see
// the group's declarations without contributing their own.
//
// # Projects
//
// A [Checker] checks files on disk and records their symbols and diagnostics
// in SQLite, skipping files whose content and rules are unchanged. Its
// [QueryBuilder] lists and searches what was recorded across the project.
//
// # Validators
//
// The built-in validators live in internal/lint. Extra rules can be written
// as Risor scripts; see [LoadRules].
package meadow
