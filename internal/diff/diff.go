package diff

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Difference is a sealed interface over the four kinds of data
// non-conformance. Only Missing, Extra, Invalid, and Deviation
// implement it.
//
// Differences are immutable value objects. Equality is structural
// (variant plus fields), via Key, so differences can be deduplicated
// and matched against allowance rules with multiset semantics.
type Difference interface {
	difference() // Sealed - only these types implement it
	// Key returns the structural identity of the difference.
	// Two differences are equal iff their keys are equal.
	Key() string
	String() string
}

// Equal reports whether two differences are structurally equal.
func Equal(a, b Difference) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Missing reports a value present in the reference data but absent
// from the subject data.
type Missing struct {
	Value Value
}

func (Missing) difference() {}

func (d Missing) Key() string { return "missing|" + Encode(d.Value) }

func (d Missing) String() string { return "Missing(" + d.Value.String() + ")" }

// Extra reports a value present in the subject data but absent from
// the reference data.
type Extra struct {
	Value Value
}

func (Extra) difference() {}

func (d Extra) Key() string { return "extra|" + Encode(d.Value) }

func (d Extra) String() string { return "Extra(" + d.Value.String() + ")" }

// Invalid reports a value that failed a predicate, type, regex, or
// equality check. Expected optionally records what was required and
// may be nil.
type Invalid struct {
	Value    Value
	Expected Value
}

func (Invalid) difference() {}

func (d Invalid) Key() string {
	if d.Expected == nil {
		return "invalid|" + Encode(d.Value)
	}
	return "invalid|" + Encode(d.Value) + "|" + Encode(d.Expected)
}

func (d Invalid) String() string {
	if d.Expected == nil {
		return "Invalid(" + d.Value.String() + ")"
	}
	return "Invalid(" + d.Value.String() + ", expected=" + d.Expected.String() + ")"
}

// Deviation reports a signed numeric difference between a subject value
// and its reference value: Delta is always actual minus expected.
//
// Delta may be NaN when the subject pairing itself is missing. Expected
// is never zero: percent deviation is undefined for a zero reference,
// so comparisons report those cases as Invalid instead.
//
// Attrs carries the group-key attributes of grouped comparisons
// (e.g. department="marketing") and participates in identity. Allowance
// field filters match against Attrs.
type Deviation struct {
	Delta    float64
	Expected float64
	Attrs    map[string]Value
}

// NewDeviation builds a Deviation, validating the zero-expected
// invariant. Attrs may be nil.
func NewDeviation(delta, expected float64, attrs map[string]Value) (Deviation, error) {
	if expected == 0 {
		return Deviation{}, fmt.Errorf("deviation expected value must be non-zero (delta=%v)", delta)
	}
	if math.IsNaN(expected) {
		return Deviation{}, fmt.Errorf("deviation expected value must be a defined number")
	}
	return Deviation{Delta: delta, Expected: expected, Attrs: attrs}, nil
}

// MustDeviation is NewDeviation for statically known inputs, typically
// tests and allowance declarations. Panics on invalid arguments.
func MustDeviation(delta, expected float64, attrs map[string]Value) Deviation {
	d, err := NewDeviation(delta, expected, attrs)
	if err != nil {
		panic(err)
	}
	return d
}

func (Deviation) difference() {}

func (d Deviation) Key() string {
	var sb strings.Builder
	sb.WriteString("deviation|")
	sb.WriteString(formatFloat(d.Delta))
	sb.WriteByte('|')
	sb.WriteString(formatFloat(d.Expected))
	for _, name := range sortedAttrNames(d.Attrs) {
		sb.WriteByte('|')
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(Encode(d.Attrs[name]))
	}
	return sb.String()
}

func (d Deviation) String() string {
	var sb strings.Builder
	sb.WriteString("Deviation(")
	if d.Delta >= 0 && !math.IsNaN(d.Delta) {
		sb.WriteByte('+')
	}
	sb.WriteString(formatFloat(d.Delta))
	sb.WriteString(", ")
	sb.WriteString(formatFloat(d.Expected))
	for _, name := range sortedAttrNames(d.Attrs) {
		sb.WriteString(", ")
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(d.Attrs[name].String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Keyed groups the differences found for one group key of a grouped
// comparison (e.g. sums per department). Key is the group key; for
// context-labelled difference collections Key is a Text label.
type Keyed struct {
	Key   Value
	Diffs []Difference
}

// SortKeyed orders keyed differences by group key, in place.
// Comparison results are always reported in this deterministic order.
func SortKeyed(ks []Keyed) {
	sort.SliceStable(ks, func(i, j int) bool {
		return Compare(ks[i].Key, ks[j].Key) < 0
	})
}

// Sort orders differences deterministically by structural key, in place.
func Sort(ds []Difference) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Key() < ds[j].Key()
	})
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func sortedAttrNames(attrs map[string]Value) []string {
	if len(attrs) == 0 {
		return nil
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
