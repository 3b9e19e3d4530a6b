package lint

import (
	"fmt"
	"sort"
	"strings"
)

// Severity of a diagnostic.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("lint: unknown severity %q", b)
	}
	return nil
}

// Edit replaces the source range [From, To) with Insert.
type Edit struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Insert string `json:"insert"`
}

// Fix is a labelled set of edits resolving a diagnostic.
type Fix struct {
	Label string `json:"label"`
	Edits []Edit `json:"edits"`
	// Guard makes Apply a no-op when the source already contains it.
	Guard string `json:"guard,omitempty"`
}

// Apply returns src with the fix's edits applied. Edits are applied from the
// end of the document backwards so earlier offsets stay valid.
func (f Fix) Apply(src string) string {
	if f.Guard != "" && strings.Contains(src, f.Guard) {
		return src
	}
	edits := append([]Edit(nil), f.Edits...)
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].From > edits[j].From })
	for _, e := range edits {
		from, to := clamp(e.From, len(src)), clamp(e.To, len(src))
		if to < from {
			to = from
		}
		src = src[:from] + e.Insert + src[to:]
	}
	return src
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// Diagnostic is one finding of a validator.
type Diagnostic struct {
	From      int      `json:"from"`
	To        int      `json:"to"`
	Severity  Severity `json:"severity"`
	Validator string   `json:"validator"`
	Template  string   `json:"template"`
	Params    []string `json:"params,omitempty"`
	Message   string   `json:"message"`
	Fixes     []Fix    `json:"fixes,omitempty"`
}

// Sort orders diagnostics by start, end, then descending severity.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Severity > b.Severity
	})
}
