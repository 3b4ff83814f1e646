package diff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifference_KeyStructuralEquality(t *testing.T) {
	testCases := []struct {
		desc  string
		a, b  Difference
		equal bool
	}{
		{"same missing", Missing{Value: Text("x")}, Missing{Value: Text("x")}, true},
		{"missing vs extra of same value", Missing{Value: Text("x")}, Extra{Value: Text("x")}, false},
		{"invalid without expected", Invalid{Value: Int(1)}, Invalid{Value: Int(1)}, true},
		{"invalid with and without expected", Invalid{Value: Int(1)}, Invalid{Value: Int(1), Expected: Int(2)}, false},
		{"int float value identity", Missing{Value: Int(5)}, Missing{Value: Float(5.0)}, true},
		{
			"same deviation",
			MustDeviation(2, 10, nil),
			MustDeviation(2, 10, nil),
			true,
		},
		{
			"deviation attrs participate in identity",
			MustDeviation(2, 10, map[string]Value{"dept": Text("a")}),
			MustDeviation(2, 10, map[string]Value{"dept": Text("b")}),
			false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.equal, Equal(tc.a, tc.b))
		})
	}
}

func TestNewDeviation_RejectsZeroExpected(t *testing.T) {
	_, err := NewDeviation(5, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-zero")
}

func TestNewDeviation_RejectsNaNExpected(t *testing.T) {
	_, err := NewDeviation(5, math.NaN(), nil)
	require.Error(t, err)
}

func TestNewDeviation_NaNDeltaAllowed(t *testing.T) {
	// A NaN delta marks a missing pairing; only the expected value is
	// constrained.
	d, err := NewDeviation(math.NaN(), 10, nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(d.Delta))
}

func TestDeviation_StringSignsDelta(t *testing.T) {
	testCases := []struct {
		desc     string
		d        Deviation
		expected string
	}{
		{"positive delta", MustDeviation(2, 10, nil), "Deviation(+2, 10)"},
		{"negative delta", MustDeviation(-3.5, 100, nil), "Deviation(-3.5, 100)"},
		{
			"attrs sorted by name",
			MustDeviation(1, 4, map[string]Value{"b": Int(2), "a": Int(1)}),
			"Deviation(+1, 4, a=1, b=2)",
		},
		{"nan delta unsigned", MustDeviation(math.NaN(), 10, nil), "Deviation(NaN, 10)"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.d.String())
		})
	}
}

func TestDifference_String(t *testing.T) {
	testCases := []struct {
		d        Difference
		expected string
	}{
		{Missing{Value: Text("x")}, `Missing("x")`},
		{Extra{Value: Int(3)}, "Extra(3)"},
		{Invalid{Value: Text("y")}, `Invalid("y")`},
		{Invalid{Value: Text("y"), Expected: Text("z")}, `Invalid("y", expected="z")`},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.d.String())
	}
}

func TestSort_Deterministic(t *testing.T) {
	ds := []Difference{
		Missing{Value: Text("b")},
		Extra{Value: Text("a")},
		Missing{Value: Text("a")},
	}
	Sort(ds)

	assert.Equal(t, []Difference{
		Extra{Value: Text("a")},
		Missing{Value: Text("a")},
		Missing{Value: Text("b")},
	}, ds)
}

func TestSortKeyed_OrdersByGroupKey(t *testing.T) {
	ks := []Keyed{
		{Key: Text("b"), Diffs: []Difference{Extra{Value: Int(1)}}},
		{Key: Int(2), Diffs: []Difference{Extra{Value: Int(2)}}},
		{Key: Text("a"), Diffs: []Difference{Extra{Value: Int(3)}}},
	}
	SortKeyed(ks)

	// Numerics order before text.
	assert.Equal(t, Int(2), ks[0].Key)
	assert.Equal(t, Text("a"), ks[1].Key)
	assert.Equal(t, Text("b"), ks[2].Key)
}
