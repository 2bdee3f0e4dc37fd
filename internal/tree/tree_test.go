// internal/tree/tree_test.go
package tree

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse_PreservesKeyOrder(t *testing.T) {
	o, err := ParseObject([]byte(`{"z":1,"a":{"y":true,"b":null},"m":"x"}`))
	if err != nil {
		t.Fatalf("ParseObject err=%v", err)
	}

	keys := o.Keys()
	want := []string{"z", "a", "m"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key %d: got=%q want=%q", i, keys[i], want[i])
		}
	}

	out, err := o.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON err=%v", err)
	}
	if string(out) != `{"z":1,"a":{"y":true,"b":null},"m":"x"}` {
		t.Fatalf("unexpected encoding: %s", out)
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{``, `{`, `{"a":}`, `{"a":1} {"b":2}`, `nope`}
	for _, c := range cases {
		if _, err := Parse([]byte(c)); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("input %q: expected ErrMalformedPayload, got %v", c, err)
		}
	}
}

func TestParseObject_RejectsNonObject(t *testing.T) {
	if _, err := ParseObject([]byte(`[1,2]`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"valid passthrough", []byte("héllo"), "héllo"},
		{"truncated 3-byte sequence", []byte{'a', 0xE2, 0x82, 'b'}, "a b"},
		{"lone lead byte", []byte{'a', 0xC3, 'b'}, "a b"},
		{"stray continuation run", []byte{'a', 0x80, 0x81, 0x82, 'b'}, "a b"},
		{"overlong encoding", []byte{'a', 0xC0, 0x80, 'b'}, "a b"},
		{"two broken sequences", []byte{0xE2, 0x82, 0xE2, 0x82}, "  "},
	}
	for _, tc := range cases {
		if got := string(SanitizeUTF8(tc.in)); got != tc.want {
			t.Fatalf("%s: got=%q want=%q", tc.name, got, tc.want)
		}
	}
}

func TestParse_RepairsInvalidUTF8(t *testing.T) {
	payload := append([]byte(`{"name":"pla`), 0xE2, 0x82)
	payload = append(payload, []byte(`"}`)...)

	v, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	name, ok := v.Lookup("name")
	if !ok {
		t.Fatalf("name missing")
	}
	if s, _ := name.Str(); s != "pla " {
		t.Fatalf("unexpected name %q", s)
	}
}

func TestAccessors_FailClosed(t *testing.T) {
	v := String("12")

	if _, ok := v.IntValue(); ok {
		t.Fatalf("string must not read as int")
	}
	if _, ok := v.Obj(); ok {
		t.Fatalf("string must not read as object")
	}
	if _, ok := Null().Str(); ok {
		t.Fatalf("null must not read as string")
	}
	if i, ok := Number("3.0").IntValue(); !ok || i != 3 {
		t.Fatalf("integral float: got=%d ok=%v", i, ok)
	}
	if _, ok := Number("3.5").IntValue(); ok {
		t.Fatalf("fraction must not read as int")
	}
	if _, ok := Int(1).Lookup("a", "b"); ok {
		t.Fatalf("lookup through a number must fail")
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{String(""), true},
		{Array(), true},
		{ObjectValue(NewObject()), true},
		{Null(), false},
		{Int(0), false},
		{Bool(false), false},
		{String("x"), false},
	}
	for i, tc := range cases {
		if got := tc.v.IsEmpty(); got != tc.want {
			t.Fatalf("case %d (%s): got=%v want=%v", i, tc.v.Kind(), got, tc.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := NewObject()
	inner.Set("a", Int(1))
	outer := NewObject()
	outer.Set("inner", ObjectValue(inner))

	cp := outer.Clone()
	inner.Set("a", Int(2))

	got, _ := ObjectValue(cp).Lookup("inner", "a")
	if n, _ := got.IntValue(); n != 1 {
		t.Fatalf("clone shares state with original: a=%d", n)
	}
}

func TestObjectDeleteKeepsOrder(t *testing.T) {
	o := NewObject()
	o.Set("a", Int(1))
	o.Set("b", Int(2))
	o.Set("c", Int(3))
	o.Delete("b")
	o.Set("b", Int(4))

	keys := o.Keys()
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "c" || keys[2] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestEqual_NumbersByValue(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"25", "25.0", true},
		{"2.5e1", "25", true},
		{"-0", "0", true},
		{"25", "26", false},
		{"9007199254740993", "9007199254740992", false},
		{"0.1", "0.10", true},
	}
	for _, tc := range cases {
		a := Number(json.Number(tc.a))
		b := Number(json.Number(tc.b))
		if got := Equal(a, b); got != tc.want {
			t.Fatalf("Equal(%s, %s): got=%v want=%v", tc.a, tc.b, got, tc.want)
		}
	}
}
