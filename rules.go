package meadow

import (
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/runtime"
	"github.com/jward/meadow/internal/store"
)

// Rules is a set of rule scripts, each run as a validator named
// "script:<file name>".
type Rules struct {
	Validators []*lint.Validator
	// Hash changes whenever any script of the set changes.
	Hash string
}

// LoadRules loads the .risor rule scripts at the top level of fsys. Scripts
// named lib_* are only importable by other scripts. logger receives the
// scripts' log output and their failures; nil discards both.
func LoadRules(fsys fs.FS, logger *zap.Logger) (*Rules, error) {
	rt := runtime.NewRuntime("", runtime.WithRuntimeFS(fsys), runtime.WithLogger(logger))
	vs, err := rt.Validators()
	if err != nil {
		return nil, fmt.Errorf("meadow: load rules: %w", err)
	}
	return &Rules{Validators: vs, Hash: rt.Hash()}, nil
}

// Names returns the validator names of the rules.
func (r *Rules) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Validators))
	for i, v := range r.Validators {
		names[i] = v.Name
	}
	return names
}

// CombineRules joins rule sets in order. Nil sets are skipped; the result is
// nil when every set is.
func CombineRules(sets ...*Rules) *Rules {
	var out *Rules
	var hashes [][]byte
	for _, r := range sets {
		if r == nil {
			continue
		}
		if out == nil {
			out = &Rules{}
		}
		out.Validators = append(out.Validators, r.Validators...)
		hashes = append(hashes, []byte(r.Hash))
	}
	if out != nil {
		out.Hash = store.ContentHash(hashes...)
	}
	return out
}
