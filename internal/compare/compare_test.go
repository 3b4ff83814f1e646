package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obestwalter/datatest/internal/diff"
)

func values(t *testing.T, vs ...any) []diff.Value {
	t.Helper()
	out, err := diff.Values(vs...)
	require.NoError(t, err)
	return out
}

func TestSetMembers_ExtraAndMissing(t *testing.T) {
	actual := values(t, "x", "x", "y")
	required := NewSet(values(t, "x", "z")...)

	ds := SetMembers(actual, required)

	assert.Equal(t, []diff.Difference{
		diff.Extra{Value: diff.Text("y")},
		diff.Missing{Value: diff.Text("z")},
	}, ds)
}

func TestSetMembers_DuplicatesCollapse(t *testing.T) {
	// Four "a" rows against a set containing "a": one membership test,
	// zero differences.
	actual := values(t, "a", "a", "a", "a")
	required := NewSet(values(t, "a")...)

	assert.Empty(t, SetMembers(actual, required))
}

func TestSetMembers_DuplicateExtrasReportedOnce(t *testing.T) {
	actual := values(t, "b", "b")
	required := NewSet(values(t, "a")...)

	ds := SetMembers(actual, required)

	assert.Equal(t, []diff.Difference{
		diff.Extra{Value: diff.Text("b")},
		diff.Missing{Value: diff.Text("a")},
	}, ds)
}

func TestSetMembers_NumericIdentityAcrossKinds(t *testing.T) {
	actual := values(t, 5)
	required := NewSet(values(t, 5.0)...)

	assert.Empty(t, SetMembers(actual, required))
}

func TestSequenceOrder_PositionalMismatch(t *testing.T) {
	actual := values(t, "a", "x", "c")
	required := Sequence(values(t, "a", "b", "c"))

	ds := SequenceOrder(actual, required)

	assert.Equal(t, []diff.Difference{
		diff.Invalid{Value: diff.Text("x"), Expected: diff.Text("b")},
	}, ds)
}

func TestSequenceOrder_LengthMismatch(t *testing.T) {
	t.Run("subject longer", func(t *testing.T) {
		ds := SequenceOrder(values(t, "a", "b", "c"), Sequence(values(t, "a")))
		assert.Equal(t, []diff.Difference{
			diff.Extra{Value: diff.Text("b")},
			diff.Extra{Value: diff.Text("c")},
		}, ds)
	})

	t.Run("requirement longer", func(t *testing.T) {
		ds := SequenceOrder(values(t, "a"), Sequence(values(t, "a", "b", "c")))
		assert.Equal(t, []diff.Difference{
			diff.Missing{Value: diff.Text("b")},
			diff.Missing{Value: diff.Text("c")},
		}, ds)
	})
}

func TestSequenceOrder_SameMembersWrongOrder(t *testing.T) {
	// Order matters: permuted members fail positionally even though the
	// membership comparison would pass.
	actual := values(t, "b", "a")
	required := Sequence(values(t, "a", "b"))

	ds := SequenceOrder(actual, required)
	require.Len(t, ds, 2)
	assert.Equal(t, diff.Invalid{Value: diff.Text("b"), Expected: diff.Text("a")}, ds[0])
	assert.Equal(t, diff.Invalid{Value: diff.Text("a"), Expected: diff.Text("b")}, ds[1])
}

func TestOne_Predicates(t *testing.T) {
	even := Func{Name: "even", Fn: func(v diff.Value) bool {
		n, ok := v.(diff.Int)
		return ok && n%2 == 0
	}}

	testCases := []struct {
		desc     string
		v        diff.Value
		required Requirement
		want     diff.Difference
	}{
		{"func pass", diff.Int(4), even, nil},
		{"func fail", diff.Int(5), even, diff.Invalid{Value: diff.Int(5)}},
		{"literal pass", diff.Int(7), Literal{Value: diff.Int(7)}, nil},
		{"type pass", diff.Text("x"), TypeIs(diff.KindString), nil},
		{"type fail", diff.Int(1), TypeIs(diff.KindString), diff.Invalid{Value: diff.Int(1)}},
		{"int acceptable for float kind", diff.Int(1), TypeIs(diff.KindFloat), nil},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, One(tc.v, tc.required))
		})
	}
}

func TestOne_RegexNonStringNeverMatches(t *testing.T) {
	re, err := NewRegex(`^\d+$`)
	require.NoError(t, err)

	assert.Nil(t, One(diff.Text("123"), re))
	assert.Equal(t, diff.Invalid{Value: diff.Int(123)}, One(diff.Int(123), re))
}

func TestNewRegex_BadPattern(t *testing.T) {
	_, err := NewRegex("[unclosed")
	require.Error(t, err)

	_, err = NewNotRegex("[unclosed")
	require.Error(t, err)
}

func TestOne_NotRegexFlagsMatchingStrings(t *testing.T) {
	re, err := NewNotRegex(`^\d+$`)
	require.NoError(t, err)

	assert.Nil(t, One(diff.Text("abc"), re))
	assert.Equal(t, diff.Invalid{Value: diff.Text("123")}, One(diff.Text("123"), re))

	// Non-strings satisfy neither regex polarity.
	assert.Equal(t, diff.Invalid{Value: diff.Int(123)}, One(diff.Int(123), re))

	assert.Contains(t, re.Describe(), "forbidden")
}

func TestOne_LiteralNumericDeviation(t *testing.T) {
	// Numeric inequality against a non-zero literal reports magnitude.
	d := One(diff.Int(12), Literal{Value: diff.Int(10)})
	assert.Equal(t, diff.Deviation{Delta: 2, Expected: 10}, d)

	// Zero reference cannot express percent deviation; plain Invalid.
	d = One(diff.Int(12), Literal{Value: diff.Int(0)})
	assert.Equal(t, diff.Invalid{Value: diff.Int(12)}, d)
}

func TestOne_TupleOf(t *testing.T) {
	re, err := NewRegex("^[a-z]+$")
	require.NoError(t, err)
	req := TupleOf{re, TypeIs(diff.KindInt)}

	t.Run("all components pass", func(t *testing.T) {
		assert.Nil(t, One(diff.Tuple{diff.Text("abc"), diff.Int(1)}, req))
	})

	t.Run("failing component flags whole row", func(t *testing.T) {
		row := diff.Tuple{diff.Text("ABC"), diff.Int(1)}
		assert.Equal(t, diff.Invalid{Value: row}, One(row, req))
	})

	t.Run("length mismatch", func(t *testing.T) {
		row := diff.Tuple{diff.Text("abc")}
		assert.Equal(t, diff.Invalid{Value: row}, One(row, req))
	})

	t.Run("non-tuple value", func(t *testing.T) {
		assert.Equal(t, diff.Invalid{Value: diff.Text("abc")}, One(diff.Text("abc"), req))
	})
}

func TestOne_Schema(t *testing.T) {
	schema, err := NewSchema("int & >=0")
	require.NoError(t, err)

	assert.Nil(t, One(diff.Int(3), schema))
	assert.Equal(t, diff.Invalid{Value: diff.Int(-1)}, One(diff.Int(-1), schema))
	assert.Equal(t, diff.Invalid{Value: diff.Text("3")}, One(diff.Text("3"), schema))
}

func TestNewSchema_BadConstraint(t *testing.T) {
	_, err := NewSchema("int & &")
	require.Error(t, err)
}

func TestElements_DispatchesOnRequirement(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		ds := Elements(values(t, "a", "b"), NewSet(values(t, "a")...))
		assert.Equal(t, []diff.Difference{diff.Extra{Value: diff.Text("b")}}, ds)
	})

	t.Run("sequence", func(t *testing.T) {
		ds := Elements(values(t, "b"), Sequence(values(t, "a")))
		assert.Equal(t, []diff.Difference{
			diff.Invalid{Value: diff.Text("b"), Expected: diff.Text("a")},
		}, ds)
	})

	t.Run("predicate per element", func(t *testing.T) {
		re, err := NewRegex("^a")
		require.NoError(t, err)
		ds := Elements(values(t, "apple", "banana"), re)
		assert.Equal(t, []diff.Difference{diff.Invalid{Value: diff.Text("banana")}}, ds)
	})
}

func TestElements_FloatKindOverMixedNumerics(t *testing.T) {
	// Ints are acceptable wherever floats are required; a column of
	// mixed numerics passes a float type check with zero differences.
	ds := Elements(values(t, 1.5, 2, 3.0), TypeIs(diff.KindFloat))
	assert.Empty(t, ds)

	ds = Elements(values(t, 1.5, "2"), TypeIs(diff.KindFloat))
	assert.Equal(t, []diff.Difference{diff.Invalid{Value: diff.Text("2")}}, ds)
}

func TestGroups_NumericPairsBecomeDeviations(t *testing.T) {
	actual := Mapping{
		{Key: diff.Text("a"), Value: diff.Int(12)},
		{Key: diff.Text("b"), Value: diff.Int(20)},
	}
	required := Mapping{
		{Key: diff.Text("a"), Value: diff.Int(10)},
		{Key: diff.Text("b"), Value: diff.Int(20)},
	}

	keyed := Groups(actual, required)

	require.Len(t, keyed, 1)
	assert.Equal(t, diff.Text("a"), keyed[0].Key)
	assert.Equal(t, []diff.Difference{
		diff.Deviation{Delta: 2, Expected: 10},
	}, keyed[0].Diffs)
}

func TestGroups_KeyNamesBecomeAttrs(t *testing.T) {
	actual := Mapping{{Key: diff.Text("marketing"), Value: diff.Int(150000)}}
	required := Mapping{{Key: diff.Text("marketing"), Value: diff.Int(152530)}}

	keyed := Groups(actual, required, "department")

	require.Len(t, keyed, 1)
	dev, ok := keyed[0].Diffs[0].(diff.Deviation)
	require.True(t, ok)
	assert.Equal(t, -2530.0, dev.Delta)
	assert.Equal(t, 152530.0, dev.Expected)
	assert.Equal(t, diff.Text("marketing"), dev.Attrs["department"])
}

func TestGroups_CompoundKeyAttrs(t *testing.T) {
	key := diff.Tuple{diff.Text("us"), diff.Text("east")}
	actual := Mapping{{Key: key, Value: diff.Int(5)}}
	required := Mapping{{Key: key, Value: diff.Int(7)}}

	keyed := Groups(actual, required, "country", "region")

	require.Len(t, keyed, 1)
	dev := keyed[0].Diffs[0].(diff.Deviation)
	assert.Equal(t, diff.Text("us"), dev.Attrs["country"])
	assert.Equal(t, diff.Text("east"), dev.Attrs["region"])
}

func TestGroups_ZeroRequiredIsInvalid(t *testing.T) {
	actual := Mapping{{Key: diff.Text("a"), Value: diff.Int(5)}}
	required := Mapping{{Key: diff.Text("a"), Value: diff.Int(0)}}

	keyed := Groups(actual, required)

	require.Len(t, keyed, 1)
	assert.Equal(t, []diff.Difference{
		diff.Invalid{Value: diff.Int(5), Expected: diff.Int(0)},
	}, keyed[0].Diffs)
}

func TestGroups_AbsentKeys(t *testing.T) {
	t.Run("key absent from requirement is extra", func(t *testing.T) {
		actual := Mapping{{Key: diff.Text("a"), Value: diff.Int(5)}}
		keyed := Groups(actual, Mapping{})
		require.Len(t, keyed, 1)
		assert.Equal(t, []diff.Difference{diff.Extra{Value: diff.Int(5)}}, keyed[0].Diffs)
	})

	t.Run("numeric key absent from subject is full deviation", func(t *testing.T) {
		required := Mapping{{Key: diff.Text("a"), Value: diff.Int(100)}}
		keyed := Groups(Mapping{}, required)
		require.Len(t, keyed, 1)
		assert.Equal(t, []diff.Difference{
			diff.Deviation{Delta: -100, Expected: 100},
		}, keyed[0].Diffs)
	})

	t.Run("zero required key absent from subject agrees", func(t *testing.T) {
		required := Mapping{{Key: diff.Text("a"), Value: diff.Int(0)}}
		assert.Empty(t, Groups(Mapping{}, required))
	})

	t.Run("non-numeric key absent from subject is missing", func(t *testing.T) {
		required := Mapping{{Key: diff.Text("a"), Value: diff.Text("v")}}
		keyed := Groups(Mapping{}, required)
		require.Len(t, keyed, 1)
		assert.Equal(t, []diff.Difference{diff.Missing{Value: diff.Text("v")}}, keyed[0].Diffs)
	})
}

func TestGroups_NonNumericPairIsInvalidWithExpected(t *testing.T) {
	actual := Mapping{{Key: diff.Text("a"), Value: diff.Text("x")}}
	required := Mapping{{Key: diff.Text("a"), Value: diff.Text("y")}}

	keyed := Groups(actual, required)

	require.Len(t, keyed, 1)
	assert.Equal(t, []diff.Difference{
		diff.Invalid{Value: diff.Text("x"), Expected: diff.Text("y")},
	}, keyed[0].Diffs)
}

func TestGroups_ResultOrderedByKey(t *testing.T) {
	actual := Mapping{
		{Key: diff.Text("z"), Value: diff.Int(1)},
		{Key: diff.Text("a"), Value: diff.Int(1)},
	}
	keyed := Groups(actual, Mapping{})

	require.Len(t, keyed, 2)
	assert.Equal(t, diff.Text("a"), keyed[0].Key)
	assert.Equal(t, diff.Text("z"), keyed[1].Key)
}

func TestNewSet_DeduplicatesByIdentity(t *testing.T) {
	s := NewSet(values(t, 5, 5.0, "x")...)
	assert.Len(t, s.Members(), 2)
	assert.True(t, s.Contains(diff.Float(5.0)))
	assert.True(t, s.Contains(diff.Int(5)))
}

func TestMapping_Get(t *testing.T) {
	m := Mapping{{Key: diff.Int(1), Value: diff.Text("one")}}

	v, ok := m.Get(diff.Float(1.0))
	require.True(t, ok)
	assert.Equal(t, diff.Text("one"), v)

	_, ok = m.Get(diff.Int(2))
	assert.False(t, ok)
}
