package diff

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_IntFloatShareIdentity(t *testing.T) {
	testCases := []struct {
		desc string
		a, b Value
	}{
		{"int and integral float", Int(5), Float(5.0)},
		{"negative int and float", Int(-3), Float(-3.0)},
		{"zero", Int(0), Float(0.0)},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, Encode(tc.a), Encode(tc.b))
		})
	}
}

func TestEncode_DistinctKindsNeverCollide(t *testing.T) {
	values := []Value{
		Null{},
		Bool(true),
		Int(1),
		Text("1"),
		Text("true"),
		Tuple{Int(1)},
	}

	seen := make(map[string]Value)
	for _, v := range values {
		key := Encode(v)
		prev, dup := seen[key]
		require.False(t, dup, "Encode collision between %v and %v", prev, v)
		seen[key] = v
	}
}

func TestEncode_FractionalFloatStaysFloat(t *testing.T) {
	assert.NotEqual(t, Encode(Float(5.5)), Encode(Int(5)))
	assert.NotEqual(t, Encode(Float(5.5)), Encode(Int(6)))
}

func TestEncode_IntegralFloatBeyondInt64StaysFloat(t *testing.T) {
	// 2^63 is integral and finite but does not fit int64; converting it
	// would wrap to math.MinInt64 and collide identities.
	huge := Float(9223372036854775808.0)

	assert.True(t, strings.HasPrefix(Encode(huge), "f:"))
	assert.NotEqual(t, Encode(Int(math.MinInt64)), Encode(huge))

	// The negative boundary -2^63 is exactly representable and keeps
	// its integer identity.
	assert.Equal(t, Encode(Int(math.MinInt64)), Encode(Float(-9223372036854775808.0)))
}

func TestEncode_UnicodeNormalization(t *testing.T) {
	// U+00E9 (precomposed) vs e + U+0301 (combining acute).
	precomposed := Text("café")
	decomposed := Text("café")

	assert.Equal(t, Encode(precomposed), Encode(decomposed))
}

func TestEncode_TupleIsElementWise(t *testing.T) {
	a := Tuple{Text("x"), Int(1)}
	b := Tuple{Text("x"), Float(1.0)}
	c := Tuple{Text("x"), Int(2)}

	assert.Equal(t, Encode(a), Encode(b))
	assert.NotEqual(t, Encode(a), Encode(c))
}

func TestFromAny_SupportedTypes(t *testing.T) {
	testCases := []struct {
		desc     string
		input    any
		expected Value
	}{
		{"nil", nil, Null{}},
		{"bool", true, Bool(true)},
		{"int", 42, Int(42)},
		{"int64", int64(-7), Int(-7)},
		{"float64", 1.5, Float(1.5)},
		{"string", "abc", Text("abc")},
		{"bytes", []byte("abc"), Text("abc")},
		{"slice", []any{1, "x"}, Tuple{Int(1), Text("x")}},
		{"already a value", Int(9), Int(9)},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			v, err := FromAny(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, v)
		})
	}
}

func TestFromAny_UnsupportedType(t *testing.T) {
	_, err := FromAny(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported value type")
}

func TestNumeric_BoolCountsAsNumeric(t *testing.T) {
	f, ok := Numeric(Bool(true))
	require.True(t, ok)
	assert.Equal(t, 1.0, f)

	f, ok = Numeric(Bool(false))
	require.True(t, ok)
	assert.Equal(t, 0.0, f)

	_, ok = Numeric(Text("1"))
	assert.False(t, ok)
}

func TestCompare_TotalOrder(t *testing.T) {
	// NULL < numerics < text < tuples, NaN first among numerics.
	ordered := []Value{
		Null{},
		Float(math.NaN()),
		Int(-10),
		Float(2.5),
		Int(3),
		Text("a"),
		Text("b"),
		Tuple{Int(1)},
		Tuple{Int(1), Int(2)},
	}

	for i := 0; i < len(ordered); i++ {
		for j := 0; j < len(ordered); j++ {
			c := Compare(ordered[i], ordered[j])
			switch {
			case i < j:
				assert.Negative(t, c, "Compare(%v, %v)", ordered[i], ordered[j])
			case i > j:
				assert.Positive(t, c, "Compare(%v, %v)", ordered[i], ordered[j])
			default:
				assert.Zero(t, c, "Compare(%v, %v)", ordered[i], ordered[j])
			}
		}
	}
}

func TestValue_String(t *testing.T) {
	testCases := []struct {
		v        Value
		expected string
	}{
		{Null{}, "null"},
		{Bool(true), "true"},
		{Int(42), "42"},
		{Float(1.5), "1.5"},
		{Text("abc"), `"abc"`},
		{Tuple{Text("a"), Int(1)}, `("a", 1)`},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.v.String())
	}
}
