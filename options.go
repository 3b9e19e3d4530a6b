package meadow

import (
	"go.uber.org/zap"

	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/syntax"
)

// Mode controls how a child session takes part in its group.
type Mode uint8

const (
	// ModeNormal children contribute their declarations to the group.
	ModeNormal Mode = iota
	// ModeIsolated children see the group's declarations but contribute
	// none of their own.
	ModeIsolated
)

func (m Mode) String() string {
	if m == ModeIsolated {
		return "isolated"
	}
	return "normal"
}

// ParseMode parses "normal" or "isolated". The empty string is ModeNormal.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "normal":
		return ModeNormal, true
	case "isolated":
		return ModeIsolated, true
	}
	return ModeNormal, false
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session's logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCatalog replaces the embedded primitive catalog.
func WithCatalog(c *lang.Catalog) Option {
	return func(s *Session) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithProvider replaces the reference parser.
func WithProvider(p syntax.Provider) Option {
	return func(s *Session) {
		s.provider = p
	}
}

// WithNodeBudget caps the nodes the reference parser builds per document.
// It has no effect together with WithProvider.
func WithNodeBudget(n int) Option {
	return func(s *Session) {
		s.nodeBudget = n
	}
}

// WithPipeline replaces the validator pipeline. WithValidators,
// WithUnsupported, WithDisabled and WithLocalizer are ignored when it is set.
func WithPipeline(p *lint.Pipeline) Option {
	return func(s *Session) {
		s.pipeline = p
	}
}

// WithValidators adds validators after the built-in ones.
func WithValidators(vs ...*lint.Validator) Option {
	return func(s *Session) {
		s.extra = append(s.extra, vs...)
	}
}

// WithUnsupported names primitives the execution target cannot run.
func WithUnsupported(names ...string) Option {
	return func(s *Session) {
		s.unsupported = append(s.unsupported, names...)
	}
}

// WithDisabled turns off validators by name.
func WithDisabled(names ...string) Option {
	return func(s *Session) {
		s.disabled = append(s.disabled, names...)
	}
}

// WithLocalizer sets the language of diagnostic messages.
func WithLocalizer(l lint.Localizer) Option {
	return func(s *Session) {
		s.localizer = l
	}
}

// WithMode sets the session's initial Mode.
func WithMode(m Mode) Option {
	return func(s *Session) {
		s.mode = m
	}
}

// WithWidgetGlobals sets the initial widget globals. See
// Session.SetWidgetGlobals.
func WithWidgetGlobals(names ...string) Option {
	return func(s *Session) {
		s.widgetGlobals = append([]string(nil), names...)
	}
}
