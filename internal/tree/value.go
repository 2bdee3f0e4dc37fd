// internal/tree/value.go
package tree

import (
	"encoding/json"
	"strconv"
)

// Kind is the closed set of document value types.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one node of a JSON-like document.
// The zero Value is Null.
// Numbers keep their literal text so that equality and re-encoding are exact.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	arr  []Value
	obj  *Object
}

// ---- constructors ----

func Null() Value                 { return Value{} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func String(s string) Value       { return Value{kind: KindString, s: s} }
func Number(n json.Number) Value  { return Value{kind: KindNumber, n: n} }
func Int(i int64) Value           { return Number(json.Number(strconv.FormatInt(i, 10))) }
func Array(items ...Value) Value  { return Value{kind: KindArray, arr: items} }
func ObjectValue(o *Object) Value { return Value{kind: KindObject, obj: o} }

func Float(f float64) Value {
	return Number(json.Number(strconv.FormatFloat(f, 'g', -1, 64)))
}

// Kind reports the value type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// SameKind reports whether a and b carry the same value type.
func SameKind(a, b Value) bool { return a.kind == b.kind }

// IsEmpty reports whether v is an empty string, array or object.
// Null, booleans and numbers are never empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindString:
		return v.s == ""
	case KindArray:
		return len(v.arr) == 0
	case KindObject:
		return v.obj == nil || v.obj.Len() == 0
	default:
		return false
	}
}

// ---- fail-closed accessors ----

// Str returns the string payload. ok is false for any other kind.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// BoolValue returns the boolean payload. ok is false for any other kind.
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// NumberLiteral returns the number text. ok is false for any other kind.
func (v Value) NumberLiteral() (json.Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return v.n, true
}

// IntValue returns the number as int64.
// Integral floats ("3.0") are accepted; fractions and non-numbers are not.
func (v Value) IntValue() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if i, err := v.n.Int64(); err == nil {
		return i, true
	}
	f, err := v.n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// IsInteger reports whether v is a number without a fractional part.
func (v Value) IsInteger() bool {
	_, ok := v.IntValue()
	return ok
}

// FloatValue returns the number as float64.
func (v Value) FloatValue() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// Obj returns the object payload. ok is false for any other kind.
func (v Value) Obj() (*Object, bool) {
	if v.kind != KindObject || v.obj == nil {
		return nil, false
	}
	return v.obj, true
}

// Arr returns the array payload. ok is false for any other kind.
// The returned slice must not be modified.
func (v Value) Arr() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Lookup walks nested objects by key.
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, k := range path {
		o, ok := cur.Obj()
		if !ok {
			return Value{}, false
		}
		cur, ok = o.Get(k)
		if !ok {
			return Value{}, false
		}
	}
	return cur, true
}

// ---- structural helpers ----

// Equal is deep structural equality. Object key order is not significant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return numberEqual(a.n, b.n)
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return a.obj.Equal(b.obj)
	}
	return false
}

// numberEqual compares by value when both literals parse, so 25 and 25.0 are
// the same number. Integers are compared exactly before falling back to float64.
func numberEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	if x, err := a.Int64(); err == nil {
		if y, err := b.Int64(); err == nil {
			return x == y
		}
	}
	x, errA := a.Float64()
	y, errB := b.Float64()
	if errA != nil || errB != nil {
		return false
	}
	return x == y
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.arr))
		for i := range v.arr {
			out[i] = v.arr[i].Clone()
		}
		return Value{kind: KindArray, arr: out}
	case KindObject:
		return Value{kind: KindObject, obj: v.obj.Clone()}
	default:
		return v
	}
}
