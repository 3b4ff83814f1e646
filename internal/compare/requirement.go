package compare

import (
	"fmt"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/obestwalter/datatest/internal/diff"
)

// Requirement is a sealed interface over the closed set of requirement
// variants a subject can be validated against. The variant is resolved
// once at the assertion boundary; comparison logic dispatches on it with
// one handler per variant, never with scattered runtime type inspection.
//
// Variants:
//   - Set: exact membership (order-insensitive)
//   - Sequence: positional equality
//   - Mapping: per-group-key values (numeric pairs compared as deviations)
//   - Func, Regex, TypeIs, Literal, TupleOf, Schema: element predicates
type Requirement interface {
	requirement() // Sealed - only these types implement it
	// Describe returns the default failure description used when the
	// caller supplies no message.
	Describe() string
}

// Set is a membership requirement. Construction deduplicates elements
// by canonical identity.
type Set struct {
	members []diff.Value
	index   map[string]struct{}
}

// NewSet builds a Set requirement from the given values.
func NewSet(values ...diff.Value) Set {
	s := Set{index: make(map[string]struct{}, len(values))}
	for _, v := range values {
		key := diff.Encode(v)
		if _, seen := s.index[key]; seen {
			continue
		}
		s.index[key] = struct{}{}
		s.members = append(s.members, v)
	}
	return s
}

func (Set) requirement() {}

func (s Set) Describe() string { return "does not satisfy set membership" }

// Contains reports membership by canonical identity.
func (s Set) Contains(v diff.Value) bool {
	_, ok := s.index[diff.Encode(v)]
	return ok
}

// Members returns the distinct members in insertion order.
func (s Set) Members() []diff.Value { return s.members }

// Sequence is a positional requirement: element i of the subject must
// equal element i of the sequence.
type Sequence []diff.Value

func (Sequence) requirement() {}

func (Sequence) Describe() string { return "does not match sequence order" }

// Pair is one group-key/value entry of a Mapping.
type Pair struct {
	Key   diff.Value
	Value diff.Value
}

// Mapping is a grouped requirement: an association of group keys to
// required values. It is held as an ordered slice so comparison results
// and reports stay deterministic; key lookups go through an index built
// on demand from canonical key identity.
type Mapping []Pair

func (Mapping) requirement() {}

func (Mapping) Describe() string { return "does not satisfy mapping requirement" }

// Get returns the value for a group key.
func (m Mapping) Get(key diff.Value) (diff.Value, bool) {
	want := diff.Encode(key)
	for _, p := range m {
		if diff.Encode(p.Key) == want {
			return p.Value, true
		}
	}
	return nil, false
}

// Func is a named predicate requirement. Fn returns true for acceptable
// elements. The name appears in failure descriptions.
type Func struct {
	Name string
	Fn   func(diff.Value) bool
}

func (Func) requirement() {}

func (f Func) Describe() string {
	name := f.Name
	if name == "" {
		name = "predicate"
	}
	return fmt.Sprintf("does not satisfy %q condition", name)
}

// Regex is a pattern requirement over string elements, in either
// polarity: elements must match the pattern, or (negated) must not.
// Non-string elements satisfy neither polarity.
type Regex struct {
	re     *regexp.Regexp
	negate bool
}

// NewRegex compiles a pattern requirement.
func NewRegex(pattern string) (Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regex{}, fmt.Errorf("compile requirement pattern: %w", err)
	}
	return Regex{re: re}, nil
}

// NewNotRegex compiles a negated pattern requirement: string elements
// containing a match are the non-conforming ones.
func NewNotRegex(pattern string) (Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regex{}, fmt.Errorf("compile requirement pattern: %w", err)
	}
	return Regex{re: re, negate: true}, nil
}

func (Regex) requirement() {}

func (r Regex) Describe() string {
	if r.negate {
		return fmt.Sprintf("matches forbidden %q regex", r.re.String())
	}
	return fmt.Sprintf("does not satisfy %q regex", r.re.String())
}

// Matches reports whether the element satisfies the requirement.
func (r Regex) Matches(v diff.Value) bool {
	s, ok := v.(diff.Text)
	if !ok {
		return false
	}
	if r.negate {
		return !r.re.MatchString(string(s))
	}
	return r.re.MatchString(string(s))
}

// TypeIs is a kind requirement: every element must be of the given kind.
// Int and Float are interchangeable for integral values, mirroring
// element identity.
type TypeIs diff.Kind

func (TypeIs) requirement() {}

func (t TypeIs) Describe() string {
	return fmt.Sprintf("does not satisfy %q type requirement", diff.Kind(t))
}

// Matches reports whether the element has the required kind.
func (t TypeIs) Matches(v diff.Value) bool {
	if v.Kind() == diff.Kind(t) {
		return true
	}
	// 5 and 5.0 are one element; accept either numeric kind when the
	// value is numerically representable in the required kind.
	if diff.Kind(t) == diff.KindFloat && v.Kind() == diff.KindInt {
		return true
	}
	return false
}

// Literal is a single-value equality requirement: every element must
// equal the literal by canonical identity.
type Literal struct {
	Value diff.Value
}

func (Literal) requirement() {}

func (l Literal) Describe() string {
	return fmt.Sprintf("does not equal %s", l.Value.String())
}

// TupleOf is a parallel-predicate requirement for tuple elements:
// element i of the tuple is checked against requirement i. A length
// mismatch between value tuple and requirement tuple is reported as
// Invalid (design choice; see DESIGN.md).
type TupleOf []Requirement

func (TupleOf) requirement() {}

func (TupleOf) Describe() string { return "does not satisfy tuple requirement" }

// Schema is a CUE constraint requirement: every element must unify with
// the compiled constraint. This gives check files a full constraint
// language (e.g. `int & >=0`, `=~"^[A-Z]"`) without growing the
// requirement taxonomy.
type Schema struct {
	expr string
	val  cue.Value
}

// NewSchema compiles a CUE constraint expression.
func NewSchema(expr string) (Schema, error) {
	ctx := cuecontext.New()
	val := ctx.CompileString(expr)
	if err := val.Err(); err != nil {
		return Schema{}, fmt.Errorf("compile CUE constraint %q: %w", expr, err)
	}
	return Schema{expr: expr, val: val}, nil
}

func (Schema) requirement() {}

func (s Schema) Describe() string {
	return fmt.Sprintf("does not satisfy CUE constraint %q", s.expr)
}

// Matches reports whether the element unifies with the constraint.
func (s Schema) Matches(v diff.Value) bool {
	enc, ok := cueEncode(v)
	if !ok {
		return false
	}
	unified := s.val.Context().Encode(enc).Unify(s.val)
	if unified.Err() != nil {
		return false
	}
	return unified.Validate(cue.Concrete(true)) == nil
}

// cueEncode converts a Value to a plain Go value for cue encoding.
// Tuples become lists; Null is not expressible as a concrete CUE
// constraint subject and never matches.
func cueEncode(v diff.Value) (any, bool) {
	switch val := v.(type) {
	case diff.Null:
		return nil, false
	case diff.Bool:
		return bool(val), true
	case diff.Int:
		return int64(val), true
	case diff.Float:
		return float64(val), true
	case diff.Text:
		return string(val), true
	case diff.Tuple:
		out := make([]any, len(val))
		for i, elem := range val {
			enc, ok := cueEncode(elem)
			if !ok {
				return nil, false
			}
			out[i] = enc
		}
		return out, true
	default:
		return nil, false
	}
}
