package recon

import (
	"strconv"
	"strings"
)

// Kind discriminates the cell value variants.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is one nullable table cell. The zero Value is null. Null and the
// empty string are distinct, which several predicate operators depend on.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string cell.
func String(s string) Value { return Value{kind: KindString, str: s} }

// StringOrNull maps the empty string to null, the convention for absent
// cells in the source extracts.
func StringOrNull(s string) Value {
	if s == "" {
		return Null()
	}
	return String(s)
}

// Number returns a numeric cell.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the value variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank reports whether the cell is the empty string.
func (v Value) IsBlank() bool { return v.kind == KindString && v.str == "" }

// Str returns the string form of the cell; null renders empty.
func (v Value) Str() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	}
	return ""
}

// Num returns the numeric form of the cell, ok=false when it has none.
func (v Value) Num() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// True reports whether the cell is boolean true.
func (v Value) True() bool { return v.kind == KindBool && v.b }

// IsZero reports whether the cell is numerically zero, including numeric
// text from the extracts. Null is not zero.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindNumber:
		return v.num == 0
	case KindString:
		f, err := strconv.ParseFloat(v.str, 64)
		return err == nil && f == 0
	}
	return false
}

// Equal is literal equality without null coercion: a null cell equals
// nothing, including another null.
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull || v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	}
	return false
}

// Less is a total order used only for deterministic sorting: nulls first,
// then by kind, then by value.
func (v Value) Less(o Value) bool {
	if v.kind != o.kind {
		return v.kind < o.kind
	}
	switch v.kind {
	case KindString:
		return strings.Compare(v.str, o.str) < 0
	case KindNumber:
		return v.num < o.num
	case KindBool:
		return !v.b && o.b
	}
	return false
}
