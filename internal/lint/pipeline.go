// Package lint runs validators over an analyzed document and collects their
// diagnostics.
package lint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// Validator is one named check.
type Validator struct {
	Name string
	Doc  string
	Run  func(*Pass)
}

// Input is everything a validator may read. Lint is the merged context of the
// session's group; Own is the session's alone and answers queries by source
// position.
type Input struct {
	Tree      *syntax.Tree
	Pre       *model.PreprocessContext
	Lint      *model.LintContext
	Own       *model.LintContext
	SessionID int
}

func (in Input) normalize() Input {
	if in.Pre == nil {
		in.Pre = model.NewPreprocessContext()
	}
	if in.Lint == nil {
		in.Lint = model.NewLintContext()
	}
	if in.Own == nil {
		in.Own = in.Lint
	}
	return in
}

// Pass is the state handed to one validator run.
type Pass struct {
	Tree      *syntax.Tree
	Source    string
	Pre       *model.PreprocessContext
	Lint      *model.LintContext
	Own       *model.LintContext
	Catalog   *lang.Catalog
	SessionID int

	ctx       context.Context
	localizer Localizer
	diags     []*Diagnostic
}

// Context returns the context of the pipeline run.
func (p *Pass) Context() context.Context { return p.ctx }

// Localize renders a template, such as a fix label, in the pipeline's
// language.
func (p *Pass) Localize(template string, params ...string) string {
	return p.localizer.Localize(template, params...)
}

// Report records a diagnostic over [from, to). The returned diagnostic may be
// amended with fixes before the validator returns.
func (p *Pass) Report(from, to int, sev Severity, template string, params ...string) *Diagnostic {
	d := &Diagnostic{
		From:     from,
		To:       to,
		Severity: sev,
		Template: template,
		Params:   params,
	}
	p.diags = append(p.diags, d)
	return d
}

// ReportNode records a diagnostic over the range of n.
func (p *Pass) ReportNode(n *syntax.Node, sev Severity, template string, params ...string) *Diagnostic {
	return p.Report(n.From, n.To, sev, template, params...)
}

// Pipeline runs validators in order.
type Pipeline struct {
	validators []*Validator
	catalog    *lang.Catalog
	logger     *zap.Logger
	localizer  Localizer
	disabled   map[string]bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger used to report validator failures.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithLocalizer sets how diagnostic messages are rendered.
func WithLocalizer(l Localizer) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.localizer = l
		}
	}
}

func WithCatalog(c *lang.Catalog) PipelineOption {
	return func(p *Pipeline) {
		if c != nil {
			p.catalog = c
		}
	}
}

// WithDisabled skips the named validators.
func WithDisabled(names ...string) PipelineOption {
	return func(p *Pipeline) {
		for _, n := range names {
			p.disabled[n] = true
		}
	}
}

// WithValidators appends validators after the built-in ones.
func WithValidators(vs ...*Validator) PipelineOption {
	return func(p *Pipeline) {
		p.validators = append(p.validators, vs...)
	}
}

// NewPipeline returns a pipeline running validators in order.
func NewPipeline(validators []*Validator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		validators: append([]*Validator(nil), validators...),
		catalog:    lang.Default(),
		logger:     zap.NewNop(),
		localizer:  English{},
		disabled:   make(map[string]bool),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Validators returns the validators of the pipeline, disabled ones included.
func (p *Pipeline) Validators() []*Validator { return p.validators }

// Run executes every enabled validator over in. A validator that panics is
// logged and contributes no diagnostics; the others still run.
func (p *Pipeline) Run(ctx context.Context, in Input) []Diagnostic {
	if in.Tree == nil || in.Tree.Root == nil {
		return nil
	}
	in = in.normalize()

	var out []Diagnostic
	for _, v := range p.validators {
		if p.disabled[v.Name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			p.logger.Debug("validation cancelled", zap.Int("session", in.SessionID), zap.Error(err))
			break
		}
		diags, err := p.runOne(ctx, v, in)
		if err != nil {
			p.logger.Error("validator failed",
				zap.String("validator", v.Name),
				zap.Int("session", in.SessionID),
				zap.Error(err))
			continue
		}
		out = append(out, diags...)
	}
	Sort(out)
	return out
}

func (p *Pipeline) runOne(ctx context.Context, v *Validator, in Input) (diags []Diagnostic, err error) {
	pass := &Pass{
		Tree:      in.Tree,
		Source:    in.Tree.Source,
		Pre:       in.Pre,
		Lint:      in.Lint,
		Own:       in.Own,
		Catalog:   p.catalog,
		SessionID: in.SessionID,
		ctx:       ctx,
		localizer: p.localizer,
	}
	defer func() {
		if r := recover(); r != nil {
			diags, err = nil, fmt.Errorf("lint: %s panicked: %v", v.Name, r)
		}
	}()
	v.Run(pass)

	diags = make([]Diagnostic, 0, len(pass.diags))
	for _, d := range pass.diags {
		d.Validator = v.Name
		d.Message = p.localizer.Localize(d.Template, d.Params...)
		diags = append(diags, *d)
	}
	return diags, nil
}

// DefaultValidators returns the built-in validators. unsupported names extra
// primitives to reject on top of those the catalog marks.
func DefaultValidators(unsupported ...string) []*Validator {
	return []*Validator{
		Bracket,
		Breed,
		Naming,
		Context,
		Argument,
		Unsupported(unsupported...),
		Extension,
		Unrecognized,
	}
}
