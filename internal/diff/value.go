package diff

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface over the element types that can appear in
// subject or reference data. Only Null, Bool, Int, Float, String, and
// Tuple implement it.
//
// Values are immutable. Identity is structural: two values are the same
// element iff Encode returns the same key for both. Numerically equal
// Int and Float values share an identity (5 and 5.0 are the same element),
// matching SQLite's numeric affinity.
type Value interface {
	value() // Sealed - only these types implement it
	Kind() Kind
	String() string
}

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTuple
)

// String returns the kind name as used in check files and messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTuple:
		return "tuple"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Null represents an absent value (SQL NULL, empty CSV field).
type Null struct{}

func (Null) value()         {}
func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "null" }

// Bool represents a boolean value.
type Bool bool

func (Bool) value()     {}
func (Bool) Kind() Kind { return KindBool }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Int represents an integer value. Always int64.
type Int int64

func (Int) value()     {}
func (Int) Kind() Kind { return KindInt }

func (n Int) String() string { return strconv.FormatInt(int64(n), 10) }

// Float represents a floating point value. Comparison is exact - there
// is no epsilon; tolerated deviation is expressed through allowances,
// never through fuzzy equality.
type Float float64

func (Float) value()     {}
func (Float) Kind() Kind { return KindFloat }

func (f Float) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

// Text represents a string value.
type Text string

func (Text) value()     {}
func (Text) Kind() Kind { return KindString }

func (s Text) String() string { return strconv.Quote(string(s)) }

// Tuple represents a fixed row of values, used for multi-column elements
// and compound group keys.
type Tuple []Value

func (Tuple) value()     {}
func (Tuple) Kind() Kind { return KindTuple }

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FromAny converts a plain Go value into a Value. Supported inputs are
// nil, bool, the integer types, float32/64, string, []byte, and slices
// of any supported type (which become Tuples). Used at the YAML/CSV/SQL
// boundaries; library callers normally construct Values directly.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case string:
		return Text(val), nil
	case []byte:
		return Text(val), nil
	case []any:
		tuple := make(Tuple, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("tuple[%d]: %w", i, err)
			}
			tuple[i] = ev
		}
		return tuple, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// MustFromAny is FromAny for statically known inputs, typically tests.
// Panics on unsupported types.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Values converts a slice of plain Go values via FromAny.
func Values(vs ...any) ([]Value, error) {
	out := make([]Value, len(vs))
	for i, v := range vs {
		val, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out[i] = val
	}
	return out, nil
}

// Numeric reports the float64 reading of a numeric Value.
// Bools count as numeric (0/1) to match SQLite affinity.
func Numeric(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	case Bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Encode returns the canonical identity key for a value.
//
// The encoding is prefixed by a kind tag so that values of different
// kinds never collide, with one deliberate exception: a Float holding
// an integral value encodes as the equivalent Int, so 5 and 5.0 are
// one element. Strings are NFC normalized before encoding so that
// canonically equivalent Unicode spellings are one element.
func Encode(v Value) string {
	switch val := v.(type) {
	case nil:
		return "n:"
	case Null:
		return "n:"
	case Bool:
		return "b:" + strconv.FormatBool(bool(val))
	case Int:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case Float:
		f := float64(val)
		// The positive bound is exclusive: 2^63 is representable as a
		// float but overflows int64 (math.MaxInt64 rounds up to it).
		if f == math.Trunc(f) && !math.IsInf(f, 0) && f >= math.MinInt64 && f < 1<<63 {
			return "i:" + strconv.FormatInt(int64(f), 10)
		}
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	case Text:
		return "s:" + strconv.Quote(norm.NFC.String(string(val)))
	case Tuple:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Encode(elem)
		}
		return "t:(" + strings.Join(parts, ",") + ")"
	default:
		return fmt.Sprintf("?:%v", v)
	}
}

// Compare defines a total order over values, following SQLite ORDER BY
// semantics: NULL first, then numerics in numeric order, then text in
// byte order, then tuples element-wise. NaN sorts before all other
// numerics. Used to report differences in a deterministic order.
func Compare(a, b Value) int {
	ga, gb := sortGroup(a), sortGroup(b)
	if ga != gb {
		return ga - gb
	}
	switch ga {
	case 0: // both NULL
		return 0
	case 1: // numeric
		fa, _ := Numeric(a)
		fb, _ := Numeric(b)
		return compareFloat(fa, fb)
	case 2: // text
		sa := norm.NFC.String(string(a.(Text)))
		sb := norm.NFC.String(string(b.(Text)))
		return strings.Compare(sa, sb)
	default: // tuple
		ta := a.(Tuple)
		tb := b.(Tuple)
		for i := 0; i < len(ta) && i < len(tb); i++ {
			if c := Compare(ta[i], tb[i]); c != 0 {
				return c
			}
		}
		return len(ta) - len(tb)
	}
}

func sortGroup(v Value) int {
	switch v.(type) {
	case Null, nil:
		return 0
	case Bool, Int, Float:
		return 1
	case Text:
		return 2
	default:
		return 3
	}
}

func compareFloat(a, b float64) int {
	na, nb := math.IsNaN(a), math.IsNaN(b)
	switch {
	case na && nb:
		return 0
	case na:
		return -1
	case nb:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
