package pickcolor

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// Result describes how one pick-color invocation ended.
type Result struct {
	URI         string        // Document the literal lives in
	Range       Range         // Original range of the literal
	Original    string        // Literal the picker was seeded with
	Replacement string        // Picked color, empty unless the picker accepted
	Reason      Reason        // Classification of the picker outcome
	ExitCode    int           // Picker exit code
	Applied     bool          // Whether the edit was applied
	Err         error         // Edit failure, if any
	Duration    time.Duration // Time the picker was open
}

// Changed reports whether the document was modified.
func (r *Result) Changed() bool {
	return r.Applied && r.Replacement != r.Original
}

// Format formats the Result. %+v prints a multi-line view, every other verb a single line.
func (r *Result) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			r.formatVerbosePlus(s)
			return
		}
		fallthrough
	default:
		r.formatCompact(s)
	}
}

// formatCompact prints the single-line view.
func (r *Result) formatCompact(s fmt.State) {
	parts := []string{r.Original}
	if r.Replacement != "" {
		parts = append(parts, "->", r.Replacement)
	}
	status := r.Reason.String()
	switch {
	case r.Err != nil:
		status += ", edit failed"
	case r.Applied:
		status += ", applied"
	}
	parts = append(parts, "("+status+")")
	io.WriteString(s, strings.Join(parts, " "))
}

// formatVerbosePlus prints the multi-line view used by %+v.
func (r *Result) formatVerbosePlus(s fmt.State) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "Document")
	fmt.Fprintf(&buf, "  URI: %s\n", r.URI)
	fmt.Fprintf(&buf, "  Range: %s\n", r.Range)
	fmt.Fprintln(&buf, "Picker")
	fmt.Fprintf(&buf, "  Seed: %s\n", r.Original)
	fmt.Fprintf(&buf, "  Outcome: %s\n", r.Reason)
	fmt.Fprintf(&buf, "  Exit code: %d\n", r.ExitCode)
	fmt.Fprintf(&buf, "  Open for: %d ms\n", int(r.Duration/time.Millisecond))
	fmt.Fprintln(&buf, "Edit")
	if r.Replacement == "" {
		fmt.Fprintf(&buf, "  Replacement: %s\n", "-")
	} else {
		fmt.Fprintf(&buf, "  Replacement: %s\n", r.Replacement)
	}
	fmt.Fprintf(&buf, "  Applied: %t\n", r.Applied)
	if r.Err != nil {
		fmt.Fprintf(&buf, "  Error: %v\n", r.Err)
	}
	io.WriteString(s, buf.String())
}
