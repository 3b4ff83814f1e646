package compare

import (
	"github.com/obestwalter/datatest/internal/diff"
)

// Comparison operations are pure: no side effects, no I/O. Every
// operation returns nil when zero differences are found so callers can
// skip constructing a failure cheaply.

// Elements compares every element of the subject against a requirement,
// dispatching on the requirement variant. Set, Sequence, and Mapping
// requirements use their dedicated comparison shapes; all other variants
// are element predicates applied independently to each value.
func Elements(actual []diff.Value, required Requirement) []diff.Difference {
	switch req := required.(type) {
	case Set:
		return SetMembers(actual, req)
	case Sequence:
		return SequenceOrder(actual, req)
	case Mapping:
		// Grouped requirements need keyed subject data; a flat element
		// slice can never satisfy one.
		ds := make([]diff.Difference, 0, len(actual))
		for _, v := range actual {
			ds = append(ds, diff.Invalid{Value: v})
		}
		return ds
	default:
		var ds []diff.Difference
		for _, v := range actual {
			if d := One(v, required); d != nil {
				ds = append(ds, d)
			}
		}
		return ds
	}
}

// One checks a single value against a predicate requirement and returns
// the resulting difference, or nil when the value conforms.
func One(v diff.Value, required Requirement) diff.Difference {
	switch req := required.(type) {
	case Func:
		if req.Fn == nil || !req.Fn(v) {
			return diff.Invalid{Value: v}
		}
		return nil
	case Regex:
		if !req.Matches(v) {
			return diff.Invalid{Value: v}
		}
		return nil
	case TypeIs:
		if !req.Matches(v) {
			return diff.Invalid{Value: v}
		}
		return nil
	case Schema:
		if !req.Matches(v) {
			return diff.Invalid{Value: v}
		}
		return nil
	case Literal:
		return literalDifference(v, req.Value, false)
	case TupleOf:
		return tupleDifference(v, req)
	case Set:
		if !req.Contains(v) {
			return diff.Invalid{Value: v}
		}
		return nil
	default:
		return diff.Invalid{Value: v}
	}
}

// SetMembers compares the subject elements against a membership
// requirement: Extra for subject elements not in the requirement,
// Missing for required members never observed. Duplicate subject
// elements collapse to one membership test.
func SetMembers(actual []diff.Value, required Set) []diff.Difference {
	matched := make(map[string]struct{}, len(required.index))
	var extras []diff.Value
	seenExtra := make(map[string]struct{})

	for _, v := range actual {
		key := diff.Encode(v)
		if required.Contains(v) {
			matched[key] = struct{}{}
			continue
		}
		if _, dup := seenExtra[key]; dup {
			continue
		}
		seenExtra[key] = struct{}{}
		extras = append(extras, v)
	}

	var ds []diff.Difference
	for _, m := range required.Members() {
		if _, ok := matched[diff.Encode(m)]; !ok {
			ds = append(ds, diff.Missing{Value: m})
		}
	}
	for _, v := range extras {
		ds = append(ds, diff.Extra{Value: v})
	}
	diff.Sort(ds)
	return ds
}

// SequenceOrder compares element-by-element by position. Mismatched
// positions yield Invalid with the expected value recorded; a length
// mismatch yields trailing Extra or Missing for the unmatched tail.
func SequenceOrder(actual []diff.Value, required Sequence) []diff.Difference {
	var ds []diff.Difference
	n := len(actual)
	if len(required) < n {
		n = len(required)
	}
	for i := 0; i < n; i++ {
		if diff.Encode(actual[i]) != diff.Encode(required[i]) {
			ds = append(ds, diff.Invalid{Value: actual[i], Expected: required[i]})
		}
	}
	for _, v := range actual[n:] {
		ds = append(ds, diff.Extra{Value: v})
	}
	for _, v := range required[n:] {
		ds = append(ds, diff.Missing{Value: v})
	}
	return ds
}

// Groups compares grouped subject data against a grouped requirement,
// one group key at a time:
//
//   - numeric pairs that differ yield a Deviation (actual - required);
//     equal pairs are omitted
//   - a required value of zero with a differing subject value yields
//     Invalid (percent deviation is undefined for a zero reference)
//   - non-numeric pairs yield Invalid with the expected value recorded
//   - keys absent from the subject are treated as subject value 0 for
//     numeric requirements (a full negative deviation) and as Missing
//     otherwise
//   - keys absent from the requirement yield Extra
//
// keyNames, when given, names the group-key columns; deviations then
// carry the group key as attributes for allowance field filters.
// The result is ordered by group key.
func Groups(actual, required Mapping, keyNames ...string) []diff.Keyed {
	requiredIndex := make(map[string]int, len(required))
	for i, p := range required {
		requiredIndex[diff.Encode(p.Key)] = i
	}

	var keyed []diff.Keyed
	seen := make(map[string]struct{}, len(actual))

	for _, p := range actual {
		enc := diff.Encode(p.Key)
		seen[enc] = struct{}{}
		ri, ok := requiredIndex[enc]
		if !ok {
			keyed = append(keyed, diff.Keyed{Key: p.Key, Diffs: []diff.Difference{diff.Extra{Value: p.Value}}})
			continue
		}
		if d := groupDifference(p.Key, p.Value, required[ri].Value, keyNames); d != nil {
			keyed = append(keyed, diff.Keyed{Key: p.Key, Diffs: []diff.Difference{d}})
		}
	}

	for _, p := range required {
		if _, ok := seen[diff.Encode(p.Key)]; ok {
			continue
		}
		if d := missingGroupDifference(p.Key, p.Value, keyNames); d != nil {
			keyed = append(keyed, diff.Keyed{Key: p.Key, Diffs: []diff.Difference{d}})
		}
	}

	diff.SortKeyed(keyed)
	return keyed
}

// groupDifference compares one present group pairing.
func groupDifference(key, actual, required diff.Value, keyNames []string) diff.Difference {
	av, aNum := diff.Numeric(actual)
	rv, rNum := diff.Numeric(required)

	if aNum && rNum {
		if av == rv {
			return nil
		}
		if rv == 0 {
			return diff.Invalid{Value: actual, Expected: required}
		}
		return diff.Deviation{Delta: av - rv, Expected: rv, Attrs: groupAttrs(key, keyNames)}
	}

	return literalDifference(actual, required, true)
}

// missingGroupDifference reports a group key present in the requirement
// but absent from the subject.
func missingGroupDifference(key, required diff.Value, keyNames []string) diff.Difference {
	if rv, ok := diff.Numeric(required); ok {
		if rv == 0 {
			return nil // absent subject and required 0 agree
		}
		return diff.Deviation{Delta: -rv, Expected: rv, Attrs: groupAttrs(key, keyNames)}
	}
	return diff.Missing{Value: required}
}

// groupAttrs attaches group-key columns as deviation attributes.
func groupAttrs(key diff.Value, keyNames []string) map[string]diff.Value {
	if len(keyNames) == 0 {
		return nil
	}
	attrs := make(map[string]diff.Value, len(keyNames))
	if tuple, ok := key.(diff.Tuple); ok {
		for i, name := range keyNames {
			if i < len(tuple) {
				attrs[name] = tuple[i]
			}
		}
		return attrs
	}
	attrs[keyNames[0]] = key
	return attrs
}

// literalDifference compares a value against a required literal.
// Numeric pairs that differ become deviations when the reference is
// non-zero; everything else becomes Invalid (with the expected value
// recorded only when showExpected is set).
func literalDifference(v, required diff.Value, showExpected bool) diff.Difference {
	if diff.Encode(v) == diff.Encode(required) {
		return nil
	}
	av, aNum := diff.Numeric(v)
	rv, rNum := diff.Numeric(required)
	if aNum && rNum && rv != 0 {
		return diff.Deviation{Delta: av - rv, Expected: rv}
	}
	if showExpected {
		return diff.Invalid{Value: v, Expected: required}
	}
	return diff.Invalid{Value: v}
}

// tupleDifference checks a tuple element against parallel requirements.
// A non-tuple value or a length mismatch is Invalid; any failing
// component makes the whole element Invalid, identifying the row.
func tupleDifference(v diff.Value, req TupleOf) diff.Difference {
	tuple, ok := v.(diff.Tuple)
	if !ok || len(tuple) != len(req) {
		return diff.Invalid{Value: v}
	}
	for i, elem := range tuple {
		if d := One(elem, req[i]); d != nil {
			return diff.Invalid{Value: v}
		}
	}
	return nil
}

