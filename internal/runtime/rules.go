package runtime

import (
	"strings"

	"go.uber.org/zap"

	"github.com/jward/meadow/internal/lint"
)

// ValidatorPrefix starts the name of every script validator.
const ValidatorPrefix = "script:"

// Validators loads every rule script and wraps each as a validator named
// "script:<name>", where name is the file name without its extension.
// Scripts are read once, here; a script that fails while running is logged
// and reports nothing.
func (r *Runtime) Validators() ([]*lint.Validator, error) {
	names, err := r.Scripts()
	if err != nil {
		return nil, err
	}
	out := make([]*lint.Validator, 0, len(names))
	for _, file := range names {
		src, err := r.LoadScript(file)
		if err != nil {
			return nil, err
		}
		out = append(out, r.validator(file, src))
	}
	return out, nil
}

func (r *Runtime) validator(file, src string) *lint.Validator {
	name := ValidatorName(file)
	return &lint.Validator{
		Name: name,
		Doc:  scriptDoc(src),
		Run: func(p *lint.Pass) {
			if err := r.eval(p.Context(), src, file, passGlobals(p)); err != nil {
				r.logger.Error("rule script failed",
					zap.String("validator", name),
					zap.Int("session", p.SessionID),
					zap.Error(err))
			}
		},
	}
}

// scriptDoc returns the leading comment block of a script.
func scriptDoc(src string) string {
	var lines []string
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "//") {
			break
		}
		lines = append(lines, strings.TrimSpace(strings.TrimPrefix(line, "//")))
	}
	return strings.Join(lines, " ")
}

// ValidatorName returns the validator name of a rule script file.
func ValidatorName(file string) string {
	return ValidatorPrefix + strings.TrimSuffix(file, ".risor")
}
