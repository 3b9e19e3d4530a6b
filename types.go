package meadow

import (
	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// Public aliases for the internal types a host handles. They are identical to
// the internal types; no conversion is needed.

type Diagnostic = lint.Diagnostic
type Severity = lint.Severity
type Fix = lint.Fix
type Edit = lint.Edit
type Validator = lint.Validator
type Localizer = lint.Localizer

type LintContext = model.LintContext
type PreprocessContext = model.PreprocessContext
type Breed = model.Breed
type Procedure = model.Procedure
type CodeBlock = model.CodeBlock
type LocalVariable = model.LocalVariable
type AgentContexts = lang.AgentContexts

type Tree = syntax.Tree
type Node = syntax.Node
type Provider = syntax.Provider

const (
	SeverityInfo    = lint.SeverityInfo
	SeverityWarning = lint.SeverityWarning
	SeverityError   = lint.SeverityError
)
