package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/obestwalter/datatest/internal/diff"
)

// ValidationError is the structured failure raised when subject data
// does not satisfy a requirement. It carries the full difference
// collection - flat, grouped by key, or both - plus references to the
// subject and required data for diagnostics.
//
// It is distinct from an ordinary error so allowance scopes can tell
// "there is difference information to filter" apart from an unrelated
// failure, which must propagate unfiltered. Use AsValidationError to
// distinguish it through wrapping.
type ValidationError struct {
	// Description is the human-readable failure description.
	Description string

	// Differences holds flat (ungrouped) differences.
	Differences []diff.Difference

	// Keyed holds grouped differences, ordered by group key. For
	// context-labelled collections the keys are Text labels.
	Keyed []diff.Keyed

	// Subject and Required reference the compared data for later
	// diagnostics. Either may be nil.
	Subject  any
	Required any

	// MaxLines truncates rendering after this many difference lines
	// when positive. The count line always reports the full total.
	MaxLines int
}

// Count returns the total number of differences carried.
func (e *ValidationError) Count() int {
	n := len(e.Differences)
	for _, k := range e.Keyed {
		n += len(k.Diffs)
	}
	return n
}

// Empty reports whether the error carries no differences. An empty
// ValidationError is never raised; allowance scopes use this to decide
// whether to suppress a filtered failure.
func (e *ValidationError) Empty() bool { return e.Count() == 0 }

// Error renders the description, the difference count, and every
// difference in deterministic order. Flat differences are sorted by
// structural key; keyed differences are listed under their group key
// in group-key order.
func (e *ValidationError) Error() string {
	var sb strings.Builder

	count := e.Count()
	plural := "s"
	if count == 1 {
		plural = ""
	}
	if e.Description != "" {
		fmt.Fprintf(&sb, "%s (%d difference%s):\n", e.Description, count, plural)
	} else {
		fmt.Fprintf(&sb, "%d difference%s:\n", count, plural)
	}

	lines := 0
	truncated := false
	emit := func(line string) {
		if e.MaxLines > 0 && lines >= e.MaxLines {
			truncated = true
			return
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
		lines++
	}

	flat := make([]diff.Difference, len(e.Differences))
	copy(flat, e.Differences)
	diff.Sort(flat)
	for _, d := range flat {
		emit("    " + d.String())
	}

	keyed := make([]diff.Keyed, len(e.Keyed))
	copy(keyed, e.Keyed)
	diff.SortKeyed(keyed)
	for _, k := range keyed {
		ds := make([]diff.Difference, len(k.Diffs))
		copy(ds, k.Diffs)
		diff.Sort(ds)
		for _, d := range ds {
			emit("    " + k.Key.String() + ": " + d.String())
		}
	}

	if truncated {
		sb.WriteString("    ...\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// AsValidationError unwraps err to a *ValidationError, or nil when the
// error carries no difference information.
func AsValidationError(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}

// Fail raises a structured failure with caller-supplied differences,
// or an ordinary error when no differences are supplied.
func Fail(msg string, differences ...diff.Difference) error {
	if len(differences) == 0 {
		return errors.New(msg)
	}
	return &ValidationError{Description: msg, Differences: differences}
}

// FailKeyed raises a structured failure with grouped differences.
func FailKeyed(msg string, keyed []diff.Keyed) error {
	if len(keyed) == 0 {
		return errors.New(msg)
	}
	return &ValidationError{Description: msg, Keyed: keyed}
}
