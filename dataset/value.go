package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the type of a raw cell.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "missing"
	}
}

// Value is a raw cell: a number, a string, or missing.
// The zero Value is missing.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Number returns a numeric Value. NaN is treated as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Missing returns the missing Value.
func Missing() Value {
	return Value{}
}

// Of converts a Go value to a Value. nil becomes missing; integer and float
// types become numbers; bool becomes 0 or 1; anything else is formatted as a string.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Missing()
	case Value:
		return x
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case bool:
		if x {
			return Number(1)
		}
		return Number(0)
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	default:
		return String(strings.TrimSpace(toString(x)))
	}
}

// Kind reports the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns v as a number. Strings are parsed after trimming spaces;
// ok is false for missing values and strings that are not numbers.
func (v Value) Float() (f float64, ok bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Key is the canonical text of v. Numbers use the shortest representation
// that parses back to the same float64; missing values give "".
func (v Value) Key() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	default:
		return ""
	}
}

// CategoryKey is the text v is compared by as a category. Strings that parse
// as finite numbers are canonicalized like numbers, so "1.0" from a CSV and 1
// from SQL or XLSX are the same category; other strings are kept verbatim.
func (v Value) CategoryKey() string {
	if v.kind != KindString {
		return v.Key()
	}
	if f, ok := v.Float(); ok && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v.str
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.kind == KindMissing {
		return "<missing>"
	}
	return v.Key()
}
