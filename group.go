package meadow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jward/meadow/internal/analysis"
	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/model"
)

// Attach makes child a member of s's group. s must not be a child itself and
// child must have neither a parent nor children. Nothing changes when Attach
// returns an error.
func (s *Session) Attach(child *Session) error {
	switch {
	case child == nil || child == s:
		return ErrSelfAttach
	case s.parent != nil:
		return fmt.Errorf("attach %d to %d: parent is a child of %d: %w", child.id, s.id, s.parent.id, ErrNestedGroup)
	case len(child.children) > 0:
		return fmt.Errorf("attach %d to %d: child has %d children: %w", child.id, s.id, len(child.children), ErrNestedGroup)
	case child.parent != nil:
		return fmt.Errorf("attach %d to %d: %w to %d", child.id, s.id, ErrAlreadyAttached, child.parent.id)
	}
	child.parent = s
	child.shared = s.shared
	s.children = append(s.children, child)
	s.logger.Debug("session attached", zap.Int("child", child.id))
	s.refresh()
	return nil
}

// Detach removes child from s's group. Both groups are revalidated.
func (s *Session) Detach(child *Session) error {
	if child == nil || child.parent != s {
		return ErrNotAttached
	}
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			break
		}
	}
	child.parent = nil
	child.shared = child.private
	s.logger.Debug("session detached", zap.Int("child", child.id))
	s.refresh()
	child.refresh()
	return nil
}

func (s *Session) root() *Session {
	if s.parent != nil {
		return s.parent
	}
	return s
}

// members returns the children in attachment order, then the root.
func (s *Session) members() []*Session {
	r := s.root()
	return append(append([]*Session(nil), r.children...), r)
}

// contributes reports whether the session's declarations enter the group.
func (s *Session) contributes() bool {
	return s.parent == nil || s.mode == ModeNormal
}

// refresh merges the group's vocabulary, reparses the members whose text or
// vocabulary changed, merges their contexts and validates the visible ones.
func (s *Session) refresh() {
	ctx := context.Background()
	root := s.root()
	members := s.members()
	shared := root.shared

	shared.pre.Clear()
	for _, m := range members {
		if m.contributes() {
			shared.pre.Merge(m.pre)
		}
	}

	for _, m := range members {
		m.viewPre = shared.pre
		if !m.contributes() {
			m.viewPre = model.NewPreprocessContext()
			m.viewPre.Merge(shared.pre)
			m.viewPre.Merge(m.pre)
		}
		fp := m.viewPre.Fingerprint()
		if m.dirty || fp != m.parsedWith {
			m.parse(fp)
		}
	}

	shared.lint.Clear()
	for _, m := range members {
		if m.contributes() {
			shared.lint.Merge(m.lint)
		}
	}

	for _, m := range members {
		m.view = shared.lint
		if !m.contributes() {
			m.view = model.NewLintContext()
			m.view.Merge(shared.lint)
			m.view.Merge(m.lint)
		}
		if m.visible {
			m.validate(ctx)
		} else {
			m.stale = true
		}
	}
	root.logger.Debug("group refreshed",
		zap.Int("members", len(members)),
		zap.Int("conflicts", len(shared.lint.Conflicts)))
}

func (s *Session) parse(fingerprint string) {
	s.tree = s.provider.Parse(s.text, s.viewPre)
	s.lint = analysis.Build(s.tree, s.viewPre, s.id, analysis.WithCatalog(s.catalog))
	s.applyWidgetGlobals()
	s.parsedWith = fingerprint
	s.dirty = false
	if s.tree != nil && s.tree.Truncated {
		s.logger.Warn("document truncated", zap.Int("nodes", s.tree.Nodes))
	}
}

func (s *Session) validate(ctx context.Context) {
	s.diags = s.pipeline.Run(ctx, lint.Input{
		Tree:      s.tree,
		Pre:       s.viewPre,
		Lint:      s.view,
		Own:       s.lint,
		SessionID: s.id,
	})
	s.stale = false
}
