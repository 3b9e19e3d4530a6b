package lint

import "strings"

// Message templates. Each "_" is replaced by the next parameter.
const (
	MsgUnmatched          = "Unmatched _, expected a matching _"
	MsgInvalidBreed       = "_ does not name a valid _"
	MsgAddBreed           = "Declare the breed _"
	MsgTermUsed           = "Term _ is already used as _"
	MsgTermReserved       = "Term _ is reserved and cannot be used as _"
	MsgAlsoDeclared       = "_ _ is also declared in a linked session"
	MsgContextConflict    = "_ can only be used by _ agents, but this code runs as _"
	MsgTooFewInputs       = "_ expects at least _ inputs, found _"
	MsgTooManyInputs      = "_ expects at most _ inputs, found _"
	MsgUnsupported        = "_ is not supported in this environment"
	MsgMissingExtension   = "_ requires the _ extension to be declared"
	MsgAddExtension       = "Declare the extension _"
	MsgUnknownExtension   = "Unknown extension _"
	MsgUnknownExtPrim     = "_ is not a known primitive of the _ extension"
	MsgUnrecognized       = "Unrecognized identifier _"
	MsgDidYouMean         = "Unrecognized identifier _, did you mean _?"
	MsgUnrecognizedGlobal = "Unrecognized global statement _"
	MsgExpectedCommand    = "Expected a command, found _"
	MsgUnparsed           = "The rest of the document was not analyzed"
)

// Localizer renders a template with its parameters.
type Localizer interface {
	Localize(template string, params ...string) string
}

// English renders templates as written.
type English struct{}

func (English) Localize(template string, params ...string) string {
	return Fill(template, params...)
}

// Translations maps templates to translated templates. Templates without a
// translation are rendered as written.
type Translations map[string]string

func (t Translations) Localize(template string, params ...string) string {
	if tr, ok := t[template]; ok {
		template = tr
	}
	return Fill(template, params...)
}

// Fill substitutes params for the "_" placeholders of template in order.
func Fill(template string, params ...string) string {
	var b strings.Builder
	next := 0
	for _, r := range template {
		if r == '_' && next < len(params) {
			b.WriteString(params[next])
			next++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
