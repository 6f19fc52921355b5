package recon

import "testing"

func TestValueZeroIsNull(t *testing.T) {
	var v Value
	if !v.IsNull() {
		t.Error("zero Value should be null")
	}
	if v.Kind() != KindNull {
		t.Errorf("zero Value kind = %v, want KindNull", v.Kind())
	}
}

func TestStringOrNull(t *testing.T) {
	if !StringOrNull("").IsNull() {
		t.Error("empty string should map to null")
	}
	if StringOrNull("x").IsNull() {
		t.Error("non-empty string should not map to null")
	}
}

func TestBlankAndNullAreDistinct(t *testing.T) {
	blank := String("")
	if blank.IsNull() {
		t.Error("blank string is not null")
	}
	if !blank.IsBlank() {
		t.Error("blank string should report IsBlank")
	}
	if Null().IsBlank() {
		t.Error("null should not report IsBlank")
	}
}

func TestEqualNullCoercion(t *testing.T) {
	if Null().Equal(Null()) {
		t.Error("null must not equal null")
	}
	if Null().Equal(String("")) || String("").Equal(Null()) {
		t.Error("null must not equal blank")
	}
	if !String("x").Equal(String("x")) {
		t.Error("equal strings should match")
	}
	if String("1").Equal(Number(1)) {
		t.Error("values of different kinds must not match")
	}
}

func TestIsZero(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Number(0), true},
		{Number(0.0), true},
		{Number(7), false},
		{String("0"), true},
		{String("0.0"), true},
		{String("7"), false},
		{String(""), false},
		{String("abc"), false},
		{Null(), false},
		{Bool(false), false},
	}
	for _, tc := range cases {
		if got := tc.v.IsZero(); got != tc.want {
			t.Errorf("IsZero(%v %q) = %v, want %v", tc.v.Kind(), tc.v.Str(), got, tc.want)
		}
	}
}

func TestLessOrdersNullsFirst(t *testing.T) {
	if !Null().Less(String("")) {
		t.Error("null sorts before strings")
	}
	if !String("a").Less(String("b")) {
		t.Error("strings sort lexically")
	}
	if String("b").Less(String("a")) {
		t.Error("strings sort lexically")
	}
	if !Number(1).Less(Number(2)) {
		t.Error("numbers sort numerically")
	}
}
