package meadow

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jward/meadow/internal/analysis"
	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

var lastSessionID atomic.Int64

// Session is one document under analysis. A session is not safe for
// concurrent use, and neither is the group it belongs to: drive a group from
// one goroutine.
type Session struct {
	id       int
	logger   *zap.Logger
	catalog  *lang.Catalog
	provider syntax.Provider
	pipeline *lint.Pipeline

	// Pipeline construction, used when no pipeline is given.
	nodeBudget  int
	extra       []*lint.Validator
	unsupported []string
	disabled    []string
	localizer   lint.Localizer

	mode          Mode
	visible       bool
	text          string
	widgetGlobals []string

	// dirty is set when the text changed since the last parse; parsedWith
	// is the fingerprint of the vocabulary that parse used.
	dirty      bool
	parsedWith string

	tree *syntax.Tree
	pre  *model.PreprocessContext
	lint *model.LintContext
	// view is what validators and queries see: the group's shared context,
	// or for isolated children the shared context plus their own.
	view     *model.LintContext
	viewPre  *model.PreprocessContext
	stale    bool
	diags    []lint.Diagnostic
	external map[string][]lint.Diagnostic

	parent   *Session
	children []*Session
	shared   *sharedContext
	private  *sharedContext
}

// sharedContext is the merged state of a group. Every member points at the
// root's.
type sharedContext struct {
	pre  *model.PreprocessContext
	lint *model.LintContext
}

func newSharedContext() *sharedContext {
	return &sharedContext{
		pre:  model.NewPreprocessContext(),
		lint: model.NewLintContext(),
	}
}

// NewSession returns an empty, visible session with a fresh id.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:       int(lastSessionID.Add(1)),
		logger:   zap.NewNop(),
		catalog:  lang.Default(),
		visible:  true,
		pre:      model.NewPreprocessContext(),
		lint:     model.NewLintContext(),
		external: make(map[string][]lint.Diagnostic),
		dirty:    true,
	}
	for _, o := range opts {
		o(s)
	}
	if s.provider == nil {
		popts := []syntax.ParserOption{syntax.WithCatalog(s.catalog)}
		if s.nodeBudget > 0 {
			popts = append(popts, syntax.WithNodeBudget(s.nodeBudget))
		}
		s.provider = syntax.NewParser(popts...)
	}
	if s.pipeline == nil {
		s.pipeline = lint.NewPipeline(lint.DefaultValidators(s.unsupported...),
			lint.WithLogger(s.logger),
			lint.WithCatalog(s.catalog),
			lint.WithLocalizer(s.localizer),
			lint.WithDisabled(s.disabled...),
			lint.WithValidators(s.extra...),
		)
	}
	s.private = newSharedContext()
	s.shared = s.private
	s.view = s.shared.lint
	s.viewPre = s.shared.pre
	s.logger = s.logger.With(zap.Int("session", s.id))
	s.refresh()
	return s
}

// ID returns the session's id. Ids are unique within the process.
func (s *Session) ID() int { return s.id }

// Text returns the current source.
func (s *Session) Text() string { return s.text }

// Tree returns the syntax tree of the last parse.
func (s *Session) Tree() *syntax.Tree { return s.tree }

// Mode returns the session's mode.
func (s *Session) Mode() Mode { return s.mode }

// Visible reports whether the session is validated on every group change.
func (s *Session) Visible() bool { return s.visible }

// Stale reports whether the session's diagnostics predate a change to its
// group. Only invisible sessions become stale.
func (s *Session) Stale() bool { return s.stale }

// Parent returns the session this one is attached to, or nil.
func (s *Session) Parent() *Session { return s.parent }

// Children returns the attached sessions in attachment order.
func (s *Session) Children() []*Session {
	return append([]*Session(nil), s.children...)
}

// LintContext returns the context the session is validated against: the
// merged context of its group.
func (s *Session) LintContext() *model.LintContext { return s.view }

// OwnContext returns the context built from the session's text alone.
func (s *Session) OwnContext() *model.LintContext { return s.lint }

// PreprocessContext returns the vocabulary the session was parsed with.
func (s *Session) PreprocessContext() *model.PreprocessContext { return s.viewPre }

// SetText replaces the source and revalidates the group.
func (s *Session) SetText(text string) {
	s.text = text
	s.pre = analysis.Preprocess(text, s.id)
	s.dirty = true
	s.refresh()
}

// SetVisible shows or hides the session. Hidden sessions are not validated;
// showing a stale session validates it.
func (s *Session) SetVisible(visible bool) {
	s.visible = visible
	if visible && s.stale {
		s.validate(context.Background())
	}
}

// SetMode changes how the session takes part in its group.
func (s *Session) SetMode(m Mode) {
	if s.mode == m {
		return
	}
	s.mode = m
	s.refresh()
}

// SetWidgetGlobals replaces the globals defined by interface widgets. The
// group is revalidated only when the list changed, order included; the
// return value reports whether it did.
func (s *Session) SetWidgetGlobals(names []string) bool {
	if equalStrings(s.widgetGlobals, names) {
		return false
	}
	s.widgetGlobals = append([]string(nil), names...)
	s.applyWidgetGlobals()
	s.refresh()
	return true
}

func (s *Session) applyWidgetGlobals() {
	s.lint.WidgetGlobals = make(map[string]int, len(s.widgetGlobals))
	for _, name := range s.widgetGlobals {
		s.lint.WidgetGlobals[name] = s.id
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SetExternalDiagnostics replaces the diagnostics of a named category, such
// as the output of a compiler. A nil slice removes the category.
func (s *Session) SetExternalDiagnostics(category string, diags []lint.Diagnostic) {
	if diags == nil {
		delete(s.external, category)
		return
	}
	s.external[category] = append([]lint.Diagnostic(nil), diags...)
}

// Diagnostics returns the validators' diagnostics followed by the external
// categories in name order.
func (s *Session) Diagnostics() []lint.Diagnostic {
	out := append([]lint.Diagnostic(nil), s.diags...)
	cats := make([]string, 0, len(s.external))
	for c := range s.external {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		out = append(out, s.external[c]...)
	}
	return out
}

// ApplyFix applies f to the source, revalidates and returns the new text.
func (s *Session) ApplyFix(f lint.Fix) string {
	text := f.Apply(s.text)
	if text != s.text {
		s.SetText(text)
	}
	return s.text
}
