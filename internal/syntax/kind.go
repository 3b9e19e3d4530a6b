package syntax

import "fmt"

// Kind is the closed set of node categories produced by a Provider.
type Kind uint8

const (
	KindInvalid Kind = iota
	Program
	Unparsed

	// Declarations.
	Extensions
	ExtensionName
	Globals
	Identifier
	BreedDecl
	Keyword
	BreedPlural
	BreedSingular
	BreedsOwn
	Own
	Procedure
	To
	ToReport
	ProcedureName
	Arguments
	End
	Stray

	// Statements and expressions.
	CommandStatement
	ExpressionStatement
	ReporterCall
	Parenthetical
	Command
	Reporter
	CustomCommand
	CustomReporter
	BreedCommand
	BreedReporter
	VariableName
	NewVariableDeclaration
	Number
	String
	Constant
	CommandBlock
	ReporterBlock
	List
	AnonProcedure
	AnonArguments
	Arrow

	// Delimiters.
	OpenBracket
	CloseBracket
	OpenParen
	CloseParen

	kindCount
)

var kindNames = [...]string{
	KindInvalid:            "Invalid",
	Program:                "Program",
	Unparsed:               "Unparsed",
	Extensions:             "Extensions",
	ExtensionName:          "ExtensionName",
	Globals:                "Globals",
	Identifier:             "Identifier",
	BreedDecl:              "BreedDecl",
	Keyword:                "Keyword",
	BreedPlural:            "BreedPlural",
	BreedSingular:          "BreedSingular",
	BreedsOwn:              "BreedsOwn",
	Own:                    "Own",
	Procedure:              "Procedure",
	To:                     "To",
	ToReport:               "ToReport",
	ProcedureName:          "ProcedureName",
	Arguments:              "Arguments",
	End:                    "End",
	Stray:                  "Stray",
	CommandStatement:       "CommandStatement",
	ExpressionStatement:    "ExpressionStatement",
	ReporterCall:           "ReporterCall",
	Parenthetical:          "Parenthetical",
	Command:                "Command",
	Reporter:               "Reporter",
	CustomCommand:          "CustomCommand",
	CustomReporter:         "CustomReporter",
	BreedCommand:           "BreedCommand",
	BreedReporter:          "BreedReporter",
	VariableName:           "VariableName",
	NewVariableDeclaration: "NewVariableDeclaration",
	Number:                 "Number",
	String:                 "String",
	Constant:               "Constant",
	CommandBlock:           "CommandBlock",
	ReporterBlock:          "ReporterBlock",
	List:                   "List",
	AnonProcedure:          "AnonProcedure",
	AnonArguments:          "AnonArguments",
	Arrow:                  "Arrow",
	OpenBracket:            "OpenBracket",
	CloseBracket:           "CloseBracket",
	OpenParen:              "OpenParen",
	CloseParen:             "CloseParen",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind returns the kind named name, as printed by String.
func ParseKind(name string) (Kind, bool) {
	for k := Program; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return KindInvalid, false
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := Program; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// IsCallName reports kinds that name the primitive or procedure invoked by
// their parent call node.
func (k Kind) IsCallName() bool {
	switch k {
	case Command, Reporter, CustomCommand, CustomReporter, BreedCommand, BreedReporter:
		return true
	}
	return false
}

// IsDelimiter reports bracket and parenthesis tokens.
func (k Kind) IsDelimiter() bool {
	switch k {
	case OpenBracket, CloseBracket, OpenParen, CloseParen:
		return true
	}
	return false
}
