// Package validate provides the assertion entry point and the
// structured failure type that carries difference collections to the
// enclosing test framework.
package validate

import (
	"fmt"

	"github.com/obestwalter/datatest/internal/compare"
	"github.com/obestwalter/datatest/internal/diff"
)

// Subject is the closed set of subject shapes Validate accepts:
// a single diff.Value, a []diff.Value element collection, or a
// compare.Mapping of grouped values.
type Subject any

// Validate compares subject data against a requirement and returns a
// *ValidationError when differences are found, nil otherwise.
//
// Shape dispatch happens here, once:
//   - compare.Mapping subject against a Mapping requirement uses the
//     grouped comparison (numeric pairs become deviations)
//   - []diff.Value subject uses the set, sequence, or per-element
//     predicate comparison depending on the requirement variant
//   - a single diff.Value is checked as one element
//
// msg overrides the requirement's default failure description when
// non-empty.
func Validate(actual Subject, required compare.Requirement, msg string) error {
	desc := msg
	if desc == "" {
		desc = required.Describe()
	}

	switch subject := actual.(type) {
	case compare.Mapping:
		mapping, ok := required.(compare.Mapping)
		if !ok {
			return fmt.Errorf("grouped subject data requires a mapping requirement, got %T", required)
		}
		keyed := compare.Groups(subject, mapping)
		if len(keyed) == 0 {
			return nil
		}
		return &ValidationError{
			Description: desc,
			Keyed:       keyed,
			Subject:     subject,
			Required:    required,
		}

	case []diff.Value:
		ds := compare.Elements(subject, required)
		if len(ds) == 0 {
			return nil
		}
		return &ValidationError{
			Description: desc,
			Differences: ds,
			Subject:     subject,
			Required:    required,
		}

	case diff.Value:
		d := compare.One(subject, required)
		if d == nil {
			return nil
		}
		return &ValidationError{
			Description: desc,
			Differences: []diff.Difference{d},
			Subject:     subject,
			Required:    required,
		}

	default:
		return fmt.Errorf("unsupported subject type: %T", actual)
	}
}

// ValidateGroups compares grouped subject data against a grouped
// requirement, attaching the named group-key columns as deviation
// attributes so allowance field filters can match them.
func ValidateGroups(actual, required compare.Mapping, msg string, keyNames ...string) error {
	desc := msg
	if desc == "" {
		desc = required.Describe()
	}
	keyed := compare.Groups(actual, required, keyNames...)
	if len(keyed) == 0 {
		return nil
	}
	return &ValidationError{
		Description: desc,
		Keyed:       keyed,
		Subject:     actual,
		Required:    required,
	}
}

// Valid reports whether the subject satisfies the requirement.
func Valid(actual Subject, required compare.Requirement) bool {
	return Validate(actual, required, "") == nil
}
